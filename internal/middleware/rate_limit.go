package middleware

import (
	"net"
	"net/http"
	"time"

	"github.com/go-chi/httprate"

	pkghttp "github.com/curalink/curalink/pkg/http"
)

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	RequestsPerMinute int
	TrustedProxies    []*net.IPNet
}

// DefaultLoginRateLimit limits session creation to 10 requests per minute per IP
func DefaultLoginRateLimit() RateLimitConfig {
	return RateLimitConfig{RequestsPerMinute: 10}
}

// DefaultSearchRateLimit limits discovery searches to 30 requests per minute per IP
func DefaultSearchRateLimit() RateLimitConfig {
	return RateLimitConfig{RequestsPerMinute: 30}
}

// RateLimitByIP creates a middleware that rate limits requests by client IP.
// Forwarded headers count only when the peer is a trusted proxy.
func RateLimitByIP(config RateLimitConfig) func(next http.Handler) http.Handler {
	return httprate.Limit(
		config.RequestsPerMinute,
		time.Minute,
		httprate.WithKeyFuncs(func(r *http.Request) (string, error) {
			return pkghttp.ExtractClientIP(r, config.TrustedProxies), nil
		}),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			pkghttp.WriteTooManyRequests(w, "Rate limit exceeded")
		}),
	)
}
