package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	pkghttp "github.com/curalink/curalink/pkg/http"
)

// Pinger checks a dependency is reachable
type Pinger interface {
	Ping(ctx context.Context) error
}

type HealthResponse struct {
	Status   string `json:"status"`
	Database string `json:"database"`
}

// Health reports 200 when the database answers a ping, 503 otherwise
func Health(db Pinger, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := db.Ping(ctx); err != nil {
			logger.Warn("health check failed", slog.Any("error", err))
			pkghttp.WriteJSON(w, http.StatusServiceUnavailable, HealthResponse{Status: "unhealthy", Database: "unreachable"})
			return
		}
		pkghttp.WriteJSON(w, http.StatusOK, HealthResponse{Status: "healthy", Database: "connected"})
	}
}
