// Package api serves a read-only HTTP view of a signature registry.
package api

import (
	"log/slog"
	"net/http"

	"github.com/GoCodeAlone/redishandles/observability/metrics"
	"github.com/GoCodeAlone/redishandles/registry"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// Config holds configuration for the API layer.
type Config struct {
	// Metrics, when set, is served on its MetricsPath.
	Metrics *metrics.Collector
	// RateLimit is the number of requests per minute allowed per client IP.
	// Zero disables limiting.
	RateLimit int
	Logger    *slog.Logger
}

// Router is the API http.Handler. Stop releases the rate limiter.
type Router struct {
	handler http.Handler
	limiter *rateLimiterStore
}

// NewRouter creates the API routes over reg.
func NewRouter(reg *registry.Registry, cfg Config) *Router {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	mux := http.NewServeMux()
	sigH := NewSignatureHandler(reg)
	mux.HandleFunc("GET /signatures", sigH.List)
	mux.HandleFunc("GET /signatures/lookup", sigH.Lookup)
	mux.HandleFunc("GET /signatures/duplicates", sigH.Duplicates)
	mux.HandleFunc("GET /healthz", sigH.Health)
	if cfg.Metrics != nil {
		mux.Handle("GET "+cfg.Metrics.MetricsPath(), cfg.Metrics.Handler())
	}

	rt := &Router{}
	var h http.Handler = mux
	if cfg.RateLimit > 0 {
		rt.limiter = newRateLimiterStore(cfg.RateLimit)
		h = rt.limiter.rateLimit(h)
	}
	h = AccessLog(cfg.Logger)(h)
	h = RequestID(h)
	rt.handler = otelhttp.NewHandler(h, "redishandles.api",
		otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
			return r.Method + " " + r.URL.Path
		}),
	)
	return rt
}

func (rt *Router) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	rt.handler.ServeHTTP(w, r)
}

// Stop shuts down background work. It is safe to call multiple times.
func (rt *Router) Stop() {
	if rt.limiter != nil {
		rt.limiter.stop()
	}
}
