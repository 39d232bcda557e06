// Package ratelimit provides a token-bucket middleware smoothing the request
// rate toward model endpoints. Where the throttle gate caps concurrency, the
// bucket caps sustained request frequency; the two compose.
package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/time/rate"

	llmerrors "github.com/mgmancho/sumjudge/internal/llm/errors"
	"github.com/mgmancho/sumjudge/internal/llm/transport"
)

// errRateInvalid indicates a limiter configured with a non-positive rate.
var errRateInvalid = errors.New("requestsPerSecond must be greater than 0")

// Config controls the local token-bucket limiter.
type Config struct {
	Enabled           bool    `json:"enabled" yaml:"enabled"`
	RequestsPerSecond float64 `json:"requests_per_second" yaml:"requestsPerSecond"`
	Burst             int     `json:"burst" yaml:"burst"`
}

// NewMiddleware creates rate limiting middleware with one bucket per
// endpoint. Waiting respects context cancellation; a wait aborted by
// cancellation surfaces as a rate-limit classified error.
func NewMiddleware(cfg Config) (transport.Middleware, error) {
	if !cfg.Enabled {
		return func(next transport.Handler) transport.Handler { return next }, nil
	}
	if cfg.RequestsPerSecond <= 0 {
		return nil, fmt.Errorf("%w, got %f", errRateInvalid, cfg.RequestsPerSecond)
	}
	burst := cfg.Burst
	if burst < 1 {
		burst = 1
	}

	rl := &rateLimitMiddleware{
		rps:      cfg.RequestsPerSecond,
		burst:    burst,
		limiters: make(map[string]*rate.Limiter),
		logger:   slog.Default().With("component", "ratelimit"),
	}
	return rl.middleware(), nil
}

// rateLimitMiddleware holds per-endpoint token buckets.
type rateLimitMiddleware struct {
	rps   float64
	burst int

	mu       sync.Mutex
	limiters map[string]*rate.Limiter

	logger *slog.Logger
}

func (r *rateLimitMiddleware) limiterFor(endpoint string) *rate.Limiter {
	r.mu.Lock()
	defer r.mu.Unlock()
	limiter, ok := r.limiters[endpoint]
	if !ok {
		limiter = rate.NewLimiter(rate.Limit(r.rps), r.burst)
		r.limiters[endpoint] = limiter
	}
	return limiter
}

func (r *rateLimitMiddleware) middleware() transport.Middleware {
	return func(next transport.Handler) transport.Handler {
		return transport.HandlerFunc(func(ctx context.Context, req *transport.Request) (*transport.Response, error) {
			limiter := r.limiterFor(req.Endpoint)
			if err := limiter.Wait(ctx); err != nil {
				return nil, &llmerrors.ProviderError{
					Provider: string(req.Provider),
					Message:  fmt.Sprintf("rate limit wait aborted: %v", err),
					Type:     llmerrors.ErrorTypeRateLimit,
				}
			}
			return next.Handle(ctx, req)
		})
	}
}
