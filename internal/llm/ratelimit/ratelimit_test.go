package ratelimit

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	llmerrors "github.com/mgmancho/sumjudge/internal/llm/errors"
	"github.com/mgmancho/sumjudge/internal/llm/transport"
)

func passthrough(calls *atomic.Int64) transport.Handler {
	return transport.HandlerFunc(func(ctx context.Context, req *transport.Request) (*transport.Response, error) {
		calls.Add(1)
		return &transport.Response{Content: "ok"}, nil
	})
}

func TestNewMiddleware(t *testing.T) {
	t.Run("disabled_is_passthrough", func(t *testing.T) {
		mw, err := NewMiddleware(Config{Enabled: false})
		require.NoError(t, err)

		var calls atomic.Int64
		handler := mw(passthrough(&calls))

		start := time.Now()
		for range 20 {
			_, err := handler.Handle(context.Background(), &transport.Request{Endpoint: "http://a"})
			require.NoError(t, err)
		}
		assert.Equal(t, int64(20), calls.Load())
		assert.Less(t, time.Since(start), 100*time.Millisecond)
	})

	t.Run("rejects_non_positive_rate", func(t *testing.T) {
		_, err := NewMiddleware(Config{Enabled: true, RequestsPerSecond: 0})
		assert.Error(t, err)
	})
}

func TestRateLimiting(t *testing.T) {
	t.Run("delays_beyond_burst", func(t *testing.T) {
		mw, err := NewMiddleware(Config{Enabled: true, RequestsPerSecond: 50, Burst: 1})
		require.NoError(t, err)

		var calls atomic.Int64
		handler := mw(passthrough(&calls))

		start := time.Now()
		for range 3 {
			_, err := handler.Handle(context.Background(), &transport.Request{Endpoint: "http://a"})
			require.NoError(t, err)
		}
		// Two waits at 20ms each after the burst token.
		assert.GreaterOrEqual(t, time.Since(start), 30*time.Millisecond)
	})

	t.Run("buckets_are_per_endpoint", func(t *testing.T) {
		mw, err := NewMiddleware(Config{Enabled: true, RequestsPerSecond: 1, Burst: 1})
		require.NoError(t, err)

		var calls atomic.Int64
		handler := mw(passthrough(&calls))

		start := time.Now()
		_, err = handler.Handle(context.Background(), &transport.Request{Endpoint: "http://a"})
		require.NoError(t, err)
		_, err = handler.Handle(context.Background(), &transport.Request{Endpoint: "http://b"})
		require.NoError(t, err)
		// Separate buckets, so neither call waits.
		assert.Less(t, time.Since(start), 500*time.Millisecond)
	})

	t.Run("aborted_wait_is_rate_limit_error", func(t *testing.T) {
		mw, err := NewMiddleware(Config{Enabled: true, RequestsPerSecond: 0.1, Burst: 1})
		require.NoError(t, err)

		var calls atomic.Int64
		handler := mw(passthrough(&calls))

		// Drain the burst token.
		_, err = handler.Handle(context.Background(), &transport.Request{Endpoint: "http://a"})
		require.NoError(t, err)

		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()

		_, err = handler.Handle(ctx, &transport.Request{Endpoint: "http://a", Provider: "local"})
		var provErr *llmerrors.ProviderError
		require.ErrorAs(t, err, &provErr)
		assert.Equal(t, llmerrors.ErrorTypeRateLimit, provErr.Type)
		assert.True(t, provErr.IsTransient())
		assert.Equal(t, int64(1), calls.Load())
	})
}
