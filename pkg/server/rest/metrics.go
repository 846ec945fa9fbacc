package rest

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
)

type Metrics struct {
	httpRequestDuration *prometheus.HistogramVec
	processedRoutes     prometheus.Counter
	predictionPolls     *prometheus.CounterVec
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		httpRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "stealth",
			Name:      "http_request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"path", "method", "status"}),
		processedRoutes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "stealth",
			Name:      "processed_routes_total",
			Help:      "Number of route processing requests accepted.",
		}),
		predictionPolls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "stealth",
			Name:      "prediction_polls_total",
			Help:      "Number of prediction polls by outcome.",
		}, []string{"outcome"}),
	}
	reg.MustRegister(m.httpRequestDuration, m.processedRoutes, m.predictionPolls)
	return m
}

func PromeHttpMiddleware(m *Metrics) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			path := chi.RouteContext(r.Context()).RoutePattern()
			m.httpRequestDuration.WithLabelValues(path, r.Method,
				strconv.Itoa(ww.Status())).Observe(time.Since(start).Seconds())
		})
	}
}
