package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/theawareai/stealth/pkg/datastructure"
	"github.com/theawareai/stealth/pkg/gateway"
	"github.com/theawareai/stealth/pkg/geo"
	"github.com/theawareai/stealth/pkg/server"
)

type DirectionsGateway interface {
	FetchAlternatives(ctx context.Context, origin, destination datastructure.Coordinate) ([]datastructure.RouteAlternative, error)
}

type AnalysisGateway interface {
	Analyze(ctx context.Context, request gateway.AnalysisRequest) (json.RawMessage, error)
}

type HistoryRepository interface {
	SaveHistory(record datastructure.HistoryRecord) error
	FindMostRecentHistory(email string) (datastructure.HistoryRecord, bool, error)
}

type ResultCache interface {
	GetOrCompute(key string, compute func() (json.RawMessage, error)) (json.RawMessage, error)
}

const defaultIntervalMeters = 1000.0

type RouteService struct {
	directions     DirectionsGateway
	analysis       AnalysisGateway
	history        HistoryRepository
	cache          ResultCache
	intervalMeters float64
}

func NewRouteService(directions DirectionsGateway, analysis AnalysisGateway, history HistoryRepository,
	cache ResultCache, intervalMeters float64) *RouteService {
	if intervalMeters <= 0 {
		intervalMeters = defaultIntervalMeters
	}
	return &RouteService{
		directions:     directions,
		analysis:       analysis,
		history:        history,
		cache:          cache,
		intervalMeters: intervalMeters,
	}
}

// Fingerprint derives the cache key from the requester-observed raw inputs.
// Inputs are deliberately not rounded first, so representation noise yields
// distinct entries (source-compatible behavior).
func Fingerprint(sLat, sLon, dLat, dLon float64, email string) string {
	return fmt.Sprintf("%v:%v:%v:%v:%s", sLat, sLon, dLat, dLon, email)
}

// ErrorPayload is the structured error body returned to callers. Upstream
// failures travel as 200 responses carrying an error indicator, not as
// transport-level failures.
type ErrorPayload struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// ProcessRoute is the primary request path: fetch alternatives, resample,
// forward to the analysis service and return its verdict. Identical
// requests within the cache TTL share one computation and one result.
func (s *RouteService) ProcessRoute(ctx context.Context, sLat, sLon, dLat, dLon float64, email string) json.RawMessage {
	key := Fingerprint(sLat, sLon, dLat, dLon, email)

	verdict, err := s.cache.GetOrCompute(key, func() (json.RawMessage, error) {
		log.Printf("[CACHE MISS] processing fresh request for %s", email)
		return s.process(ctx, sLat, sLon, dLat, dLon, email)
	})
	if err != nil {
		return errorPayload(err)
	}
	return verdict
}

func (s *RouteService) process(ctx context.Context, sLat, sLon, dLat, dLon float64, email string) (json.RawMessage, error) {
	origin := datastructure.NewCoordinate(sLat, sLon)
	destination := datastructure.NewCoordinate(dLat, dLon)

	alternatives, err := s.directions.FetchAlternatives(ctx, origin, destination)
	if err != nil {
		return nil, server.WrapErrorf(err, server.ErrDirections, "fetch route alternatives")
	}
	if len(alternatives) == 0 {
		return nil, server.WrapErrorf(nil, server.ErrDirections, "directions provider returned no routes")
	}

	routes := make([]gateway.AnalysisRoute, 0, len(alternatives))
	for _, alternative := range alternatives {
		resampled := geo.Resample(alternative.Geometry, s.intervalMeters)

		geometry := make([][]float64, 0, len(resampled))
		for _, p := range resampled {
			geometry = append(geometry, []float64{p.Lat, p.Lon})
		}

		distance := alternative.DistanceMeters
		if distance == 0 {
			distance = geo.PathLengthMeters(alternative.Geometry)
		}

		routes = append(routes, gateway.AnalysisRoute{
			DistanceMeters:  distance,
			DurationSeconds: alternative.DurationSeconds,
			Geometry:        geometry,
		})
	}

	verdict, err := s.analysis.Analyze(ctx, gateway.AnalysisRequest{
		StartLoc:   [2]float64{sLat, sLon},
		EndLoc:     [2]float64{dLat, dLon},
		RouteCount: len(routes),
		Routes:     routes,
	})
	if err != nil {
		return nil, classifyAnalysisError(err)
	}

	s.checkAndSaveHistory(sLat, sLon, dLat, dLon, email, alternatives[0])

	return verdict, nil
}

func classifyAnalysisError(err error) error {
	var statusErr *gateway.UpstreamStatusError
	if errors.As(err, &statusErr) {
		if statusErr.IsClientError() {
			return server.WrapErrorf(err, server.ErrAnalysisBadRequest, "%s", statusErr.Detail)
		}
		return server.WrapErrorf(err, server.ErrAnalysisServer, "%s", statusErr.Detail)
	}
	return server.WrapErrorf(err, server.ErrAnalysisUnreachable, "analysis service unreachable")
}

// checkAndSaveHistory skips the write when the requester's newest record
// has the exact same origin/destination (bit-for-bit float equality,
// geometry not compared). The read-then-write is not transactional:
// concurrent identical requests may both pass the check and both write.
// Failures here never fail the request.
func (s *RouteService) checkAndSaveHistory(sLat, sLon, dLat, dLon float64, email string, primary datastructure.RouteAlternative) {
	last, found, err := s.history.FindMostRecentHistory(email)
	if err != nil {
		log.Printf("history lookup failed for %s: %v", email, err)
	}

	isDuplicate := found &&
		last.StartLat == sLat && last.StartLon == sLon &&
		last.EndLat == dLat && last.EndLon == dLon

	if isDuplicate {
		log.Printf("route already exists in history for %s, skipping save", email)
		return
	}

	record := datastructure.HistoryRecord{
		Email:     email,
		StartLat:  sLat,
		StartLon:  sLon,
		EndLat:    dLat,
		EndLon:    dLon,
		Geometry:  primary.Geometry,
		CreatedAt: time.Now(),
	}
	if err := s.history.SaveHistory(record); err != nil {
		log.Printf("history save failed for %s: %v", email, err)
		return
	}
	log.Printf("logged history for %s", email)
}

func errorPayload(err error) json.RawMessage {
	payload := ErrorPayload{Error: "Processing Error", Message: err.Error()}

	var svcErr *server.Error
	detail := err.Error()
	if errors.As(err, &svcErr) {
		detail = svcErr.Message()
	}

	switch server.KindOf(err) {
	case server.ErrDirections:
		payload = ErrorPayload{Error: "Processing Error", Message: err.Error()}
	case server.ErrAnalysisUnreachable:
		payload = ErrorPayload{Error: "AI Service Unreachable"}
	case server.ErrAnalysisBadRequest:
		payload = ErrorPayload{Error: "Bad Request", Message: detail}
	case server.ErrAnalysisServer:
		payload = ErrorPayload{Error: "AI Service Error", Message: detail}
	}

	body, marshalErr := json.Marshal(payload)
	if marshalErr != nil {
		return json.RawMessage(`{"error":"Processing Error"}`)
	}
	return body
}
