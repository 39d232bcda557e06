package llm

import (
	"context"
	"log/slog"
	"time"

	"github.com/mgmancho/sumjudge/internal/llm/transport"
)

// NewLoggingMiddleware creates structured logging middleware for endpoint
// calls. It records one line per call with operation, provider, model,
// latency, and outcome, using slog for consistency with the rest of the
// pipeline.
func NewLoggingMiddleware() transport.Middleware {
	logger := slog.Default().With("component", "llm")
	return func(next transport.Handler) transport.Handler {
		return transport.HandlerFunc(func(ctx context.Context, req *transport.Request) (*transport.Response, error) {
			start := time.Now()
			resp, err := next.Handle(ctx, req)
			elapsed := time.Since(start)

			if err != nil {
				logger.Warn("endpoint call failed",
					"operation", req.Operation,
					"provider", req.Provider,
					"model", req.Model,
					"elapsed", elapsed,
					"error", err)
				return nil, err
			}

			logger.Debug("endpoint call completed",
				"operation", req.Operation,
				"provider", req.Provider,
				"model", req.Model,
				"elapsed", elapsed,
				"total_tokens", resp.Usage.TotalTokens)
			return resp, nil
		})
	}
}
