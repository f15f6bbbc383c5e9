package middleware

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
)

// HTTPObserver records served requests
type HTTPObserver interface {
	ObserveHTTP(method, route string, status int, elapsed time.Duration)
	InFlight() prometheus.Gauge
}

// Metrics records request counts and latency by chi route pattern, so path
// parameters do not explode label cardinality
func Metrics(observer HTTPObserver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			inFlight := observer.InFlight()
			inFlight.Inc()
			defer inFlight.Dec()

			wrapped := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(wrapped, r)

			route := "unknown"
			if rctx := chi.RouteContext(r.Context()); rctx != nil {
				if pattern := rctx.RoutePattern(); pattern != "" {
					route = pattern
				}
			}

			status := wrapped.Status()
			if status == 0 {
				status = http.StatusOK
			}
			observer.ObserveHTTP(r.Method, route, status, time.Since(start))
		})
	}
}
