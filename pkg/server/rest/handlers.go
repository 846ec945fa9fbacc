package rest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/theawareai/stealth/pkg/datastructure"
	"github.com/theawareai/stealth/pkg/kv"
	"github.com/theawareai/stealth/pkg/prediction"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	enTranslations "github.com/go-playground/validator/v10/translations/en"
)

type RouteProcessor interface {
	ProcessRoute(ctx context.Context, sLat, sLon, dLat, dLon float64, email string) json.RawMessage
}

type PredictionCoordinator interface {
	Trigger(email string, origin, destination datastructure.Coordinate)
	Poll(ctx context.Context, email string) (json.RawMessage, error)
}

type HistoryReader interface {
	FindRecentHistory(email string, limit int) ([]datastructure.HistoryRecord, error)
}

type UserStore interface {
	SaveUser(user datastructure.User) error
	FindUserByEmail(email string) (datastructure.User, error)
}

type StealthHandler struct {
	svc         RouteProcessor
	predictions PredictionCoordinator
	history     HistoryReader
	users       UserStore
	metrics     *Metrics
}

func StealthRouter(r *chi.Mux, svc RouteProcessor, predictions PredictionCoordinator,
	history HistoryReader, users UserStore, m *Metrics) {
	handler := &StealthHandler{svc, predictions, history, users, m}

	r.Group(func(r chi.Router) {
		r.Route("/api/routes", func(r chi.Router) {
			r.Post("/process", handler.ProcessRoute)
			r.Get("/prediction", handler.GetPrediction)
			r.Get("/history", handler.GetHistory)
		})
		r.Route("/api/users", func(r chi.Router) {
			r.Post("/", handler.UpsertUser)
			r.Get("/", handler.GetUser)
		})
	})
}

const defaultHistoryLimit = 10

type ProcessRouteRequest struct {
	SLat  float64 `json:"sLat" validate:"required,lt=90,gt=-90"`
	SLon  float64 `json:"sLon" validate:"required,lt=180,gt=-180"`
	DLat  float64 `json:"dLat" validate:"required,lt=90,gt=-90"`
	DLon  float64 `json:"dLon" validate:"required,lt=180,gt=-180"`
	Email string  `json:"email" validate:"required,email"`
}

func (s *ProcessRouteRequest) Bind(r *http.Request) error {
	if s.Email == "" {
		return errors.New("invalid request")
	}
	return nil
}

func (h *StealthHandler) ProcessRoute(w http.ResponseWriter, r *http.Request) {
	data := &ProcessRouteRequest{}
	if err := render.Bind(r, data); err != nil {
		render.Render(w, r, ErrInvalidRequest(err))
		return
	}
	validate := validator.New()
	if err := validate.Struct(*data); err != nil {
		english := en.New()
		uni := ut.New(english, english)
		trans, _ := uni.GetTranslator("en")
		_ = enTranslations.RegisterDefaultTranslations(validate, trans)
		vv := translateError(err, trans)
		render.Render(w, r, ErrValidation(err, vv))
		return
	}

	// the prediction runs alongside the route pipeline, the caller retrieves
	// it later via /prediction
	h.predictions.Trigger(data.Email,
		datastructure.NewCoordinate(data.SLat, data.SLon),
		datastructure.NewCoordinate(data.DLat, data.DLon))

	verdict := h.svc.ProcessRoute(r.Context(), data.SLat, data.SLon, data.DLat, data.DLon, data.Email)
	h.metrics.processedRoutes.Inc()

	render.Status(r, http.StatusOK)
	render.JSON(w, r, verdict)
}

// prediction outcomes travel as 200 bodies with an "error" field, only
// malformed requests get a transport-level status.
func (h *StealthHandler) GetPrediction(w http.ResponseWriter, r *http.Request) {
	email := r.URL.Query().Get("email")
	if email == "" {
		render.Render(w, r, ErrInvalidRequest(errors.New("email query parameter is required")))
		return
	}

	result, err := h.predictions.Poll(r.Context(), email)
	render.Status(r, http.StatusOK)
	switch {
	case errors.Is(err, prediction.ErrNotFound):
		h.metrics.predictionPolls.WithLabelValues("not_found").Inc()
		render.JSON(w, r, map[string]string{"error": "No prediction found. Please call /process first."})
	case errors.Is(err, prediction.ErrStillProcessing):
		h.metrics.predictionPolls.WithLabelValues("still_processing").Inc()
		render.JSON(w, r, map[string]string{"error": "Prediction still processing, try again in a moment."})
	case err != nil:
		h.metrics.predictionPolls.WithLabelValues("failed").Inc()
		render.JSON(w, r, map[string]string{"error": fmt.Sprintf("Prediction failed: %v", err)})
	default:
		h.metrics.predictionPolls.WithLabelValues("hit").Inc()
		render.JSON(w, r, result)
	}
}

type HistoryRouteResponse struct {
	SLat      float64     `json:"sLat"`
	SLon      float64     `json:"sLon"`
	DLat      float64     `json:"dLat"`
	DLon      float64     `json:"dLon"`
	Geometry  [][]float64 `json:"geometry"`
	CreatedAt time.Time   `json:"createdAt"`
}

type HistoryResponse struct {
	Email  string                 `json:"email"`
	Routes []HistoryRouteResponse `json:"routes"`
}

func RenderHistoryResponse(email string, records []datastructure.HistoryRecord) *HistoryResponse {
	routes := make([]HistoryRouteResponse, 0, len(records))
	for _, record := range records {
		geometry := make([][]float64, 0, len(record.Geometry))
		for _, c := range record.Geometry {
			geometry = append(geometry, []float64{c.Lat, c.Lon})
		}
		routes = append(routes, HistoryRouteResponse{
			SLat:      record.StartLat,
			SLon:      record.StartLon,
			DLat:      record.EndLat,
			DLon:      record.EndLon,
			Geometry:  geometry,
			CreatedAt: record.CreatedAt,
		})
	}
	return &HistoryResponse{
		Email:  email,
		Routes: routes,
	}
}

func (h *StealthHandler) GetHistory(w http.ResponseWriter, r *http.Request) {
	email := r.URL.Query().Get("email")
	if email == "" {
		render.Render(w, r, ErrInvalidRequest(errors.New("email query parameter is required")))
		return
	}

	limit := defaultHistoryLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			render.Render(w, r, ErrInvalidRequest(errors.New("limit must be a positive integer")))
			return
		}
		limit = parsed
	}

	records, err := h.history.FindRecentHistory(email, limit)
	if err != nil {
		render.Render(w, r, ErrInternalServerErrorRend(errors.New("internal server error")))
		return
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, RenderHistoryResponse(email, records))
}

type UpsertUserRequest struct {
	Email     string `json:"email" validate:"required,email"`
	FullName  string `json:"fullName" validate:"required"`
	AvatarURL string `json:"avatarUrl" validate:"omitempty,url"`
}

func (s *UpsertUserRequest) Bind(r *http.Request) error {
	if s.Email == "" {
		return errors.New("invalid request")
	}
	return nil
}

func (h *StealthHandler) UpsertUser(w http.ResponseWriter, r *http.Request) {
	data := &UpsertUserRequest{}
	if err := render.Bind(r, data); err != nil {
		render.Render(w, r, ErrInvalidRequest(err))
		return
	}
	validate := validator.New()
	if err := validate.Struct(*data); err != nil {
		english := en.New()
		uni := ut.New(english, english)
		trans, _ := uni.GetTranslator("en")
		_ = enTranslations.RegisterDefaultTranslations(validate, trans)
		vv := translateError(err, trans)
		render.Render(w, r, ErrValidation(err, vv))
		return
	}

	user := datastructure.User{
		Email:     data.Email,
		FullName:  data.FullName,
		AvatarURL: data.AvatarURL,
	}
	if err := h.users.SaveUser(user); err != nil {
		render.Render(w, r, ErrInternalServerErrorRend(errors.New("internal server error")))
		return
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, user)
}

func (h *StealthHandler) GetUser(w http.ResponseWriter, r *http.Request) {
	email := r.URL.Query().Get("email")
	if email == "" {
		render.Render(w, r, ErrInvalidRequest(errors.New("email query parameter is required")))
		return
	}

	user, err := h.users.FindUserByEmail(email)
	if err != nil {
		if errors.Is(err, kv.ErrUserNotFound) {
			render.Render(w, r, ErrNotFoundRend(err))
			return
		}
		render.Render(w, r, ErrInternalServerErrorRend(errors.New("internal server error")))
		return
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, user)
}

func ErrInvalidRequest(err error) render.Renderer {
	return &ErrResponse{
		Err:            err,
		HTTPStatusCode: 400,
		StatusText:     "Invalid request.",
		ErrorText:      err.Error(),
	}
}

// ErrResponse model info
//
//	@Description	model for error response
type ErrResponse struct {
	Err            error `json:"-"` // low-level runtime error
	HTTPStatusCode int   `json:"-"` // http response status code

	StatusText    string   `json:"status"`          // user-level status message
	AppCode       int64    `json:"code,omitempty"`  // application-specific error code
	ErrorText     string   `json:"error,omitempty"` // application-level error message, for debugging
	ErrValidation []string `json:"validation,omitempty"`
}

func (e *ErrResponse) Render(w http.ResponseWriter, r *http.Request) error {
	render.Status(r, e.HTTPStatusCode)
	return nil
}

func translateError(err error, trans ut.Translator) (errs []error) {
	if err == nil {
		return nil
	}
	validatorErrs := err.(validator.ValidationErrors)
	for _, e := range validatorErrs {
		translatedErr := fmt.Errorf(e.Translate(trans))
		errs = append(errs, translatedErr)
	}
	return errs
}

func ErrValidation(err error, errV []error) render.Renderer {
	vv := []string{}
	for _, v := range errV {
		vv = append(vv, v.Error())
	}
	return &ErrResponse{
		Err:            err,
		HTTPStatusCode: 400,
		StatusText:     "Invalid request.",
		ErrorText:      err.Error(),
		ErrValidation:  vv,
	}
}

func ErrInternalServerErrorRend(err error) render.Renderer {
	return &ErrResponse{
		Err:            err,
		HTTPStatusCode: 500,
		StatusText:     "Internal server error.",
		ErrorText:      err.Error(),
	}
}

func ErrNotFoundRend(err error) render.Renderer {
	return &ErrResponse{
		Err:            err,
		HTTPStatusCode: 404,
		StatusText:     "Resource not found.",
		ErrorText:      err.Error(),
	}
}
