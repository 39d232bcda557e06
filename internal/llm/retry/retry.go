// Package retry provides the retry middleware wrapping endpoint calls with
// exponential backoff. Errors tagged non-transient by the classification
// layer short-circuit the loop: an auth failure or a missing model fails
// identically on every attempt, so repeating it only burns quota.
package retry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	llmerrors "github.com/mgmancho/sumjudge/internal/llm/errors"
	"github.com/mgmancho/sumjudge/internal/llm/transport"
)

// Configuration validation errors.
var (
	errMaxAttemptsInvalid = errors.New("maxAttempts must be greater than 0")
	errBaseDelayInvalid   = errors.New("baseDelay must be greater than 0")
	errMaxDelayInvalid    = errors.New("maxDelay must be >= baseDelay")

	// errContextCancelled is returned when cancellation interrupts the
	// retry loop between attempts.
	errContextCancelled = errors.New("context cancelled during retry")
)

// Config controls retry behavior for failed endpoint calls.
type Config struct {
	// MaxAttempts is the total number of attempts, first call included.
	MaxAttempts int `json:"max_attempts" yaml:"maxAttempts"`

	// BaseDelay is the backoff before the second attempt; each further
	// attempt doubles it (baseDelay * 2^attempt).
	BaseDelay time.Duration `json:"base_delay" yaml:"baseDelay"`

	// MaxDelay caps the computed backoff.
	MaxDelay time.Duration `json:"max_delay" yaml:"maxDelay"`

	// UseJitter randomizes each backoff over [0, computed) to spread
	// concurrent retries.
	UseJitter bool `json:"use_jitter" yaml:"useJitter"`
}

// DefaultConfig returns the default retry policy: three attempts with a one
// second base delay capped at thirty seconds.
func DefaultConfig() Config {
	return Config{
		MaxAttempts: 3,
		BaseDelay:   time.Second,
		MaxDelay:    30 * time.Second,
	}
}

// NewMiddleware creates retry middleware with the given configuration.
func NewMiddleware(cfg Config) (transport.Middleware, error) {
	if cfg.MaxAttempts <= 0 {
		return nil, fmt.Errorf("%w, got %d", errMaxAttemptsInvalid, cfg.MaxAttempts)
	}
	if cfg.BaseDelay <= 0 {
		return nil, fmt.Errorf("%w, got %v", errBaseDelayInvalid, cfg.BaseDelay)
	}
	if cfg.MaxDelay < cfg.BaseDelay {
		return nil, fmt.Errorf("%w, maxDelay: %v, baseDelay: %v", errMaxDelayInvalid, cfg.MaxDelay, cfg.BaseDelay)
	}

	rm := &retryMiddleware{
		config: cfg,
		logger: slog.Default().With("component", "retry"),
	}
	return rm.middleware(), nil
}

// retryMiddleware implements the retry loop with transient-aware backoff.
type retryMiddleware struct {
	config Config
	logger *slog.Logger
}

func (r *retryMiddleware) middleware() transport.Middleware {
	return func(next transport.Handler) transport.Handler {
		return transport.HandlerFunc(func(ctx context.Context, req *transport.Request) (*transport.Response, error) {
			// Fail fast if the context is already cancelled.
			if err := ctx.Err(); err != nil {
				return nil, fmt.Errorf("%w: %w", errContextCancelled, err)
			}

			var lastErr error
			for attempt := 1; attempt <= r.config.MaxAttempts; attempt++ {
				resp, err := next.Handle(ctx, req)
				if err == nil {
					if attempt > 1 {
						r.logger.Info("request succeeded after retry",
							"attempt", attempt,
							"provider", req.Provider,
							"model", req.Model)
					}
					return resp, nil
				}

				// Non-transient errors fail identically every time;
				// skip the remaining attempts.
				if !llmerrors.IsTransient(err) {
					r.logger.Debug("non-transient error, not retrying",
						"error", err,
						"attempt", attempt,
						"provider", req.Provider)
					return nil, err
				}

				lastErr = err
				if attempt == r.config.MaxAttempts {
					break
				}

				backoff := Backoff(attempt, r.config)
				if after := llmerrors.RetryAfterSeconds(err); after > 0 {
					backoff = time.Duration(after) * time.Second
				}

				r.logger.Debug("retrying after backoff",
					"attempt", attempt,
					"backoff", backoff,
					"error", err,
					"provider", req.Provider)

				select {
				case <-time.After(backoff):
				case <-ctx.Done():
					return nil, fmt.Errorf("%w: %w", errContextCancelled, ctx.Err())
				}
			}

			return nil, fmt.Errorf("%w after %d attempts: %w",
				llmerrors.ErrMaxRetriesExceeded, r.config.MaxAttempts, lastErr)
		})
	}
}
