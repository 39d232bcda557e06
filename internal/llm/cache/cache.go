// Package cache provides Redis-based success-only caching for endpoint
// responses. Identical requests (same operation, endpoint, model, prompts,
// and sampling parameters) reuse the stored completion instead of spending
// another call. Redis failures degrade gracefully to a cache bypass.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mgmancho/sumjudge/internal/llm/transport"
)

const (
	defaultPoolSize   = 10
	connectionTimeout = 5 * time.Second
)

// Config controls the response cache.
type Config struct {
	Enabled       bool          `json:"enabled" yaml:"enabled"`
	RedisAddr     string        `json:"redis_addr" yaml:"redisAddr"`
	RedisPassword string        `json:"-" yaml:"redisPassword"`
	RedisDB       int           `json:"redis_db" yaml:"redisDB"`
	TTL           time.Duration `json:"ttl" yaml:"ttl"`
}

// entry is the stored representation of a cached response.
type entry struct {
	Content      string                 `json:"content"`
	FinishReason transport.FinishReason `json:"finish_reason"`
	Usage        transport.Usage        `json:"usage"`
	StoredAtMs   int64                  `json:"stored_at_ms"`
}

// cacheMiddleware implements Redis-backed response caching. All operations
// are safe for concurrent use; any Redis error results in a bypass, never a
// failed request.
type cacheMiddleware struct {
	client  *redis.Client
	ttl     time.Duration
	enabled bool
	logger  *slog.Logger
}

// NewMiddleware creates the caching middleware. When client is nil and
// caching is enabled, a Redis client is created from cfg; a failed ping
// disables caching instead of failing construction.
func NewMiddleware(ctx context.Context, cfg Config, client *redis.Client) transport.Middleware {
	if client == nil && cfg.Enabled {
		client = redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
			PoolSize: defaultPoolSize,
		})

		pingCtx, cancel := context.WithTimeout(ctx, connectionTimeout)
		defer cancel()
		if err := client.Ping(pingCtx).Err(); err != nil {
			slog.Warn("Redis connection failed, response cache disabled", "error", err)
			cfg.Enabled = false
		}
	}

	cm := &cacheMiddleware{
		client:  client,
		ttl:     cfg.TTL,
		enabled: cfg.Enabled,
		logger:  slog.Default().With("component", "cache"),
	}
	return cm.middleware()
}

func (c *cacheMiddleware) middleware() transport.Middleware {
	return func(next transport.Handler) transport.Handler {
		return transport.HandlerFunc(func(ctx context.Context, req *transport.Request) (*transport.Response, error) {
			if !c.enabled || c.client == nil {
				return next.Handle(ctx, req)
			}

			key := Key(req)
			if resp, ok := c.lookup(ctx, key); ok {
				c.logger.Debug("cache hit", "operation", req.Operation, "model", req.Model)
				return resp, nil
			}

			resp, err := next.Handle(ctx, req)
			if err != nil {
				return nil, err
			}

			c.store(ctx, key, resp)
			return resp, nil
		})
	}
}

// lookup fetches and decodes a cached entry. Corrupt entries are deleted
// and treated as misses.
func (c *cacheMiddleware) lookup(ctx context.Context, key string) (*transport.Response, bool) {
	raw, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.logger.Warn("cache lookup failed", "error", err)
		}
		return nil, false
	}

	var e entry
	if err := json.Unmarshal(raw, &e); err != nil {
		c.client.Del(ctx, key)
		return nil, false
	}

	return &transport.Response{
		Content:      e.Content,
		FinishReason: e.FinishReason,
		Usage:        e.Usage,
	}, true
}

func (c *cacheMiddleware) store(ctx context.Context, key string, resp *transport.Response) {
	raw, err := json.Marshal(entry{
		Content:      resp.Content,
		FinishReason: resp.FinishReason,
		Usage:        resp.Usage,
		StoredAtMs:   time.Now().UnixMilli(),
	})
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, key, raw, c.ttl).Err(); err != nil {
		c.logger.Warn("cache store failed", "error", err)
	}
}

// Key derives the deterministic cache key for a request from every field
// that affects the completion.
func Key(req *transport.Request) string {
	h := sha256.New()
	fmt.Fprintf(h, "%s|%s|%s|%s|%s|%s|%g|%d",
		req.Operation, req.Provider, req.Endpoint, req.Model,
		req.SystemPrompt, req.UserPrompt, req.Temperature, req.MaxTokens)
	if req.TopP != nil {
		fmt.Fprintf(h, "|p%g", *req.TopP)
	}
	if req.TopK != nil {
		fmt.Fprintf(h, "|k%d", *req.TopK)
	}
	return "sumjudge:resp:" + hex.EncodeToString(h.Sum(nil))
}
