package metrics

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

const namespace = "room_mapper"

var (
	HTTPRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "http_requests_total", Help: "HTTP requests."},
		[]string{"route", "method", "status"},
	)
	HTTPLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace, Name: "http_request_duration_seconds",
			Help:    "HTTP request duration seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route", "method"},
	)
	RoomsMapped = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "rooms_mapped_total", Help: "MapRoom outcomes per source."},
		[]string{"source", "outcome"}, // outcome: created|updated|skipped|failed
	)
	MapLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace, Name: "map_room_duration_seconds",
			Help:    "MapRoom transaction duration seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"source"},
	)
	ConflictEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "conflict_events_total", Help: "Conflicts opened, merged and resolved."},
		[]string{"field", "event"}, // event: opened|merged|resolved
	)
	FeedsIngested = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "feeds_ingested_total", Help: "Feed documents processed."},
		[]string{"source", "status"}, // status: ok|error
	)
	QualityRewrites = prometheus.NewCounter(
		prometheus.CounterOpts{Namespace: namespace, Name: "quality_scores_rewritten_total", Help: "Mapping quality scores rewritten by recalculation."},
	)
	CacheEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "cache_events_total", Help: "Cache hits/misses/sets/dels."},
		[]string{"cache", "event"}, // event: hit|miss|set|del|stale
	)
)

// InitRegistry returns a registry holding every collector of this package.
func InitRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(HTTPRequests, HTTPLatency, RoomsMapped, MapLatency, ConflictEvents, FeedsIngested, QualityRewrites, CacheEvents)
	return reg
}

// MetricsHandler serves the registry in the Prometheus exposition format.
func MetricsHandler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}

// Serve starts the metrics listener in the background and returns the server
// so the caller can shut it down. It returns nil when cfg.Addr is empty.
func Serve(cfg Config, reg *prometheus.Registry, logger *zap.Logger) *http.Server {
	if cfg.Addr == "" {
		return nil
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", MetricsHandler(reg))

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		logger.Info("metrics server listening", zap.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server failed", zap.Error(err))
		}
	}()
	return srv
}

// Middleware records request count and latency per matched route.
func Middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		status := c.Response().StatusCode()
		var fe *fiber.Error
		if errors.As(err, &fe) {
			status = fe.Code
		}
		ObserveHTTP(c.Route().Path, c.Method(), status, time.Since(start))
		return err
	}
}

func ObserveHTTP(route, method string, status int, dur time.Duration) {
	HTTPRequests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	HTTPLatency.WithLabelValues(route, method).Observe(dur.Seconds())
}

func ObserveMapRoom(source, outcome string, dur time.Duration) {
	RoomsMapped.WithLabelValues(source, outcome).Inc()
	MapLatency.WithLabelValues(source).Observe(dur.Seconds())
}

func ObserveConflict(field, event string) {
	ConflictEvents.WithLabelValues(field, event).Inc()
}

func ObserveFeed(source string, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	FeedsIngested.WithLabelValues(source, status).Inc()
}

func ObserveQualityRewrites(n int) {
	QualityRewrites.Add(float64(n))
}

func ObserveCache(cache, event string) { // event: hit|miss|set|del|stale
	CacheEvents.WithLabelValues(cache, event).Inc()
}
