package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/theawareai/stealth/pkg/cache"
	"github.com/theawareai/stealth/pkg/gateway"
	"github.com/theawareai/stealth/pkg/kv"
	"github.com/theawareai/stealth/pkg/prediction"
	"github.com/theawareai/stealth/pkg/server/rest"
	"github.com/theawareai/stealth/pkg/server/rest/service"

	"github.com/dgraph-io/badger/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	_ "net/http/pprof"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

var (
	listenAddr     = flag.String("listenaddr", ":5000", "server listen address")
	dbPath         = flag.String("dbpath", "./stealth_db", "badger database directory")
	googleURL      = flag.String("googleurl", "https://maps.googleapis.com/maps/api/directions/json", "directions provider base url")
	googleAPIKey   = flag.String("googleapikey", "", "directions provider api key")
	analysisURL    = flag.String("analysisurl", "http://localhost:8000/analyze", "route analysis service url")
	predictURL     = flag.String("predicturl", "http://localhost:8000/predict", "prediction service url")
	cacheTTL       = flag.Duration("cachettl", 5*time.Minute, "verdict cache entry lifetime")
	cacheSize      = flag.Int("cachesize", 500, "verdict cache max entries")
	pendingTTL     = flag.Duration("pendingttl", 2*time.Minute, "pending prediction lifetime")
	maxPending     = flag.Int("maxpending", 1000, "max in-flight predictions")
	pollTimeout    = flag.Duration("polltimeout", 30*time.Second, "prediction poll wait")
	intervalMeters = flag.Float64("interval", 1000, "route resampling interval in meters")
	workers        = flag.Int("workers", 4, "prediction worker goroutines")
)

func main() {
	flag.Parse()

	db, err := badger.Open(badger.DefaultOptions(*dbPath))
	if err != nil {
		log.Fatal(err)
	}

	kvDB := kv.NewKVDB(db)
	defer kvDB.Close()

	reg := prometheus.NewRegistry()
	m := rest.NewMetrics(reg)

	r := chi.NewRouter()

	r.Use(middleware.Logger)

	r.Use(rest.PromeHttpMiddleware(m)) // prometheus http middleware
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*", "http://*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Mount("/debug", middleware.Profiler())

	r.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	directions := gateway.NewGoogleClient(*googleURL, *googleAPIKey, nil)
	analysis := gateway.NewAnalysisClient(*analysisURL, nil)
	predict := gateway.NewPredictClient(*predictURL, nil)

	coordinator := prediction.NewCoordinator(predict,
		prediction.WithPollTimeout(*pollTimeout),
		prediction.WithPendingTTL(*pendingTTL),
		prediction.WithMaxPending(*maxPending),
	)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	coordinator.Start(ctx, *workers)

	verdictCache := cache.New[json.RawMessage](*cacheTTL, *cacheSize)
	routeSvc := service.NewRouteService(directions, analysis, kvDB, verdictCache, *intervalMeters)

	rest.StealthRouter(r, routeSvc, coordinator, kvDB, kvDB, m)

	fmt.Printf("\nserver started at %s\n", *listenAddr)

	log.Fatal(http.ListenAndServe(*listenAddr, r))
}
