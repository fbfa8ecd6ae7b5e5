package metrics

import (
	"context"
	"net/http"
	"time"

	"sjsage522/reviewworker/logger"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// PagesFetched counts fetched pages
	PagesFetched = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "reviewworker", Name: "pages_fetched_total", Help: "Pages fetched by kind and outcome."},
		[]string{"kind", "outcome"}, // kind: listing|review, outcome: ok|error
	)
	// FetchLatency tracks how long each page fetch took
	FetchLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "reviewworker", Name: "fetch_duration_seconds",
			Help:    "Page fetch duration seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"kind"},
	)
	// RecordsEmitted counts records handed to the sink
	RecordsEmitted = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "reviewworker", Name: "records_emitted_total", Help: "Review records handed to the sink."},
		[]string{"city", "outcome"}, // outcome: published|failed
	)
	// NullFields counts record fields the extractor could not fill
	NullFields = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "reviewworker", Name: "null_fields_total", Help: "Record fields left null by the extractor."},
		[]string{"field"},
	)
	// ActivitiesAbandoned counts activities cut short by repeated failures
	ActivitiesAbandoned = prometheus.NewCounter(
		prometheus.CounterOpts{Namespace: "reviewworker", Name: "activities_abandoned_total", Help: "Activities whose remaining pages were skipped after repeated failures."},
	)
	// CacheEvents counts cache operations by backend
	CacheEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "reviewworker", Name: "cache_events_total", Help: "Cache hits/misses/sets/dels."},
		[]string{"cache", "event"}, // event: hit|miss|set|del
	)
)

// InitRegistry returns a registry with every collector of this package
func InitRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(PagesFetched, FetchLatency, RecordsEmitted, NullFields, ActivitiesAbandoned, CacheEvents)
	return reg
}

// Handler serves the registry in the Prometheus text format
func Handler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}

// Serve exposes /metrics on addr until ctx is done. An empty addr disables it.
func Serve(ctx context.Context, addr string, reg *prometheus.Registry) {
	if addr == "" {
		return
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler(reg))

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	log := logger.ForMetrics()
	go func() {
		log.Info().Str("addr", addr).Msg("metrics server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("metrics server failed")
		}
	}()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
}

// ObserveFetch records the outcome and latency of one page fetch
func ObserveFetch(kind string, err error, dur time.Duration) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	PagesFetched.WithLabelValues(kind, outcome).Inc()
	FetchLatency.WithLabelValues(kind).Observe(dur.Seconds())
}

// ObserveRecord records one sink write and the fields it left null
func ObserveRecord(city string, err error, missing []string) {
	outcome := "published"
	if err != nil {
		outcome = "failed"
	}
	RecordsEmitted.WithLabelValues(city, outcome).Inc()
	for _, field := range missing {
		NullFields.WithLabelValues(field).Inc()
	}
}

// ObserveAbandoned records one abandoned activity
func ObserveAbandoned() {
	ActivitiesAbandoned.Inc()
}

// ObserveCache records one cache event: hit, miss, set or del
func ObserveCache(cache, event string) {
	CacheEvents.WithLabelValues(cache, event).Inc()
}
