// Package llm provides a resilient client for OpenAI-compatible model
// endpoints. It assembles the middleware chain around the core HTTP
// handler:
//
//	logging -> cache -> retry -> ratelimit -> throttle -> HTTP
//
// Rate limiting and the concurrency gate sit inside the retry loop so every
// attempt is admitted individually; caching sits outside so a retried call
// that eventually succeeds is stored once.
package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/mgmancho/sumjudge/internal/llm/cache"
	llmerrors "github.com/mgmancho/sumjudge/internal/llm/errors"
	"github.com/mgmancho/sumjudge/internal/llm/providers"
	"github.com/mgmancho/sumjudge/internal/llm/ratelimit"
	"github.com/mgmancho/sumjudge/internal/llm/retry"
	"github.com/mgmancho/sumjudge/internal/llm/throttle"
	"github.com/mgmancho/sumjudge/internal/llm/transport"
)

const (
	defaultHTTPTimeout   = 120 * time.Second
	defaultMaxConcurrent = 8
)

// Config holds client-level settings for the resilient invoker.
type Config struct {
	// HTTPTimeout bounds each HTTP exchange when the request itself does
	// not carry a timeout.
	HTTPTimeout time.Duration `json:"http_timeout" yaml:"httpTimeout"`

	// HTTPClient overrides the default client, used by tests.
	HTTPClient *http.Client `json:"-" yaml:"-"`

	// MaxConcurrent caps in-flight calls process-wide via the throttle
	// gate. Zero selects the default.
	MaxConcurrent int `json:"max_concurrent" yaml:"maxConcurrent"`

	// Retry configures the backoff policy.
	Retry retry.Config `json:"retry" yaml:"retry"`

	// RateLimit configures the optional token-bucket smoothing.
	RateLimit ratelimit.Config `json:"rate_limit" yaml:"rateLimit"`

	// Cache configures the optional Redis response cache.
	Cache cache.Config `json:"cache" yaml:"cache"`
}

// DefaultConfig returns a client configuration with the default resilience
// stack: three retry attempts, eight concurrent calls, no rate smoothing,
// no cache.
func DefaultConfig() Config {
	return Config{
		HTTPTimeout:   defaultHTTPTimeout,
		MaxConcurrent: defaultMaxConcurrent,
		Retry:         retry.DefaultConfig(),
	}
}

// Client is the resilient invoker. One instance serves both generation and
// judging calls; the throttle gate therefore caps their combined in-flight
// count.
type Client struct {
	handler    transport.Handler
	gate       *throttle.Gate
	httpClient *http.Client
}

// NewClient assembles the middleware chain and returns a ready client.
func NewClient(ctx context.Context, cfg Config) (*Client, error) {
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.HTTPTimeout
		if timeout <= 0 {
			timeout = defaultHTTPTimeout
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	maxConcurrent := cfg.MaxConcurrent
	if maxConcurrent <= 0 {
		maxConcurrent = defaultMaxConcurrent
	}
	gate, err := throttle.NewGate(maxConcurrent)
	if err != nil {
		return nil, err
	}

	coreHandler := transport.NewHTTPHandler(httpClient, providers.NewRouter())

	// Attempt-level middlewares run once per retry attempt.
	rlMiddleware, err := ratelimit.NewMiddleware(cfg.RateLimit)
	if err != nil {
		return nil, err
	}
	attemptHandler := transport.Chain(coreHandler, rlMiddleware, gate.Middleware())

	retryCfg := cfg.Retry
	if retryCfg.MaxAttempts == 0 {
		retryCfg = retry.DefaultConfig()
	}
	retryMiddleware, err := retry.NewMiddleware(retryCfg)
	if err != nil {
		return nil, err
	}
	retryHandler := retryMiddleware(attemptHandler)

	// Call-level middlewares run once per logical call.
	handler := transport.Chain(retryHandler,
		NewLoggingMiddleware(),
		cache.NewMiddleware(ctx, cfg.Cache, nil),
	)

	return &Client{handler: handler, gate: gate, httpClient: httpClient}, nil
}

// Do executes one normalized request through the full middleware chain and
// returns the assistant text from the first completion choice.
func (c *Client) Do(ctx context.Context, req *transport.Request) (*transport.Response, error) {
	if req.UserPrompt == "" {
		return nil, &llmerrors.ValidationError{Field: "user_prompt", Message: "must not be empty"}
	}
	if req.Endpoint == "" {
		return nil, &llmerrors.ValidationError{Field: "endpoint", Message: "must not be empty"}
	}
	if req.Model == "" {
		return nil, &llmerrors.ValidationError{Field: "model", Message: "must not be empty"}
	}
	return c.handler.Handle(ctx, req)
}

// Gate exposes the throttle gate for diagnostics.
func (c *Client) Gate() *throttle.Gate { return c.gate }

// ListModels queries the endpoint's model listing and returns the model
// identifiers. Used by configuration tooling, not by the batch pipeline.
func (c *Client) ListModels(ctx context.Context, endpoint, apiKey string) ([]string, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, providers.ModelsEndpoint(endpoint), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	providers.SetAuthHeader(httpReq, endpoint, apiKey)

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, &llmerrors.ProviderError{
			Provider: "models",
			Message:  err.Error(),
			Type:     llmerrors.ErrorTypeNetwork,
		}
	}
	defer func() { _ = httpResp.Body.Close() }()

	body, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if httpResp.StatusCode != http.StatusOK {
		return nil, &llmerrors.ProviderError{
			Provider:   "models",
			StatusCode: httpResp.StatusCode,
			Message:    string(body),
			Type:       llmerrors.Classify(httpResp.StatusCode, ""),
		}
	}

	var listing struct {
		Data []struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &listing); err != nil {
		return nil, &llmerrors.ProviderError{
			Provider: "models",
			Message:  fmt.Sprintf("model listing is not valid JSON: %v", err),
			Type:     llmerrors.ErrorTypeProtocol,
		}
	}

	ids := make([]string, 0, len(listing.Data))
	for _, m := range listing.Data {
		ids = append(ids, m.ID)
	}
	return ids, nil
}
