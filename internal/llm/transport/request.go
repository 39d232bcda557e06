// Package transport defines the normalized request/response shapes and the
// composable Handler/Middleware pipeline that every model endpoint call
// flows through.
package transport

import (
	"net/http"
	"time"

	"github.com/mgmancho/sumjudge/internal/domain"
)

// OperationType differentiates between generation and judging operations.
// It affects cache key namespacing, throttle accounting, and log labels.
type OperationType string

const (
	// OpGeneration indicates summary generation from a source document.
	OpGeneration OperationType = "generation"

	// OpJudging indicates evaluation of generated output by a judge model.
	OpJudging OperationType = "judging"
)

// FinishReason indicates why the model stopped producing output.
type FinishReason string

const (
	// FinishStop indicates natural completion.
	FinishStop FinishReason = "stop"

	// FinishLength indicates the token limit was reached.
	FinishLength FinishReason = "length"

	// FinishContentFilter indicates a safety filter terminated generation.
	FinishContentFilter FinishReason = "content_filter"
)

// Request represents a normalized request to any model endpoint. It carries
// everything an adapter needs to construct the provider-specific HTTP call,
// without referencing the work item it originated from.
type Request struct {
	// Operation type affects caching, throttling, and log labels.
	Operation OperationType `json:"operation"`

	// Provider selects the adapter ("cloud" or "local").
	Provider domain.ProviderKind `json:"provider"`

	// Model is the model identifier for the payload.
	Model string `json:"model"`

	// Endpoint is the raw target URL as configured; adapters normalize it.
	Endpoint string `json:"endpoint"`

	// APIKey is the optional credential for the endpoint.
	APIKey string `json:"-"`

	// SystemPrompt and UserPrompt are the two chat messages sent.
	SystemPrompt string `json:"system_prompt,omitempty"`
	UserPrompt   string `json:"user_prompt"`

	// Sampling parameters. Nil pointers mean "omit from the payload".
	Temperature float64  `json:"temperature"`
	TopP        *float64 `json:"top_p,omitempty"`
	TopK        *int     `json:"top_k,omitempty"`
	MaxTokens   int      `json:"max_tokens"`

	// Timeout bounds the single HTTP exchange, not the retry loop.
	Timeout time.Duration `json:"timeout"`
}

// Response represents normalized output from any model endpoint.
type Response struct {
	// Content is the assistant text from the first completion choice.
	Content string `json:"content"`

	// FinishReason indicates why generation stopped.
	FinishReason FinishReason `json:"finish_reason"`

	// Usage tracks token consumption and latency.
	Usage Usage `json:"usage"`

	// Headers preserves raw response headers for debugging.
	Headers http.Header `json:"-"`

	// RawBody preserves the original response body for diagnosis.
	RawBody []byte `json:"-"`
}

// Usage provides consistent usage metrics across endpoints.
type Usage struct {
	PromptTokens     int64 `json:"prompt_tokens"`
	CompletionTokens int64 `json:"completion_tokens"`
	TotalTokens      int64 `json:"total_tokens"`
	LatencyMs        int64 `json:"latency_ms"`
}
