package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/mgmancho/sumjudge/internal/domain"
	llmerrors "github.com/mgmancho/sumjudge/internal/llm/errors"
	"github.com/mgmancho/sumjudge/internal/llm/transport"
)

// maxBodyExcerpt bounds how much of an upstream body is carried in error
// messages and protocol errors.
const maxBodyExcerpt = 512

// chatAdapter implements transport.ProviderAdapter for OpenAI-compatible
// chat-completions endpoints. Cloud and local adapters share this core;
// the kind only affects naming and error attribution.
type chatAdapter struct {
	kind domain.ProviderKind
}

// NewCloudAdapter creates the adapter for hosted OpenAI-compatible APIs.
func NewCloudAdapter() transport.ProviderAdapter {
	return &chatAdapter{kind: domain.ProviderCloud}
}

// NewLocalAdapter creates the adapter for self-hosted OpenAI-compatible
// servers.
func NewLocalAdapter() transport.ProviderAdapter {
	return &chatAdapter{kind: domain.ProviderLocal}
}

// Name returns the provider kind this adapter serves.
func (a *chatAdapter) Name() string { return string(a.kind) }

// Build constructs the chat-completions HTTP request from a normalized
// request. It normalizes the endpoint URL shape, selects the auth header by
// endpoint heuristics, and adjusts the payload for reasoning-class models.
func (a *chatAdapter) Build(ctx context.Context, req *transport.Request) (*http.Request, error) {
	endpoint := NormalizeEndpoint(req.Endpoint)

	messages := []map[string]any{}
	if req.SystemPrompt != "" {
		messages = append(messages, map[string]any{"role": "system", "content": req.SystemPrompt})
	}
	messages = append(messages, map[string]any{"role": "user", "content": req.UserPrompt})

	body := map[string]any{
		"model":    req.Model,
		"messages": messages,
		"stream":   false,
	}

	if IsReasoningModel(req.Model) {
		// Reasoning models reject sampling parameters outright and name
		// the token limit differently.
		if req.MaxTokens > 0 {
			body["max_completion_tokens"] = req.MaxTokens
		}
	} else {
		body["temperature"] = req.Temperature
		if req.TopP != nil {
			body["top_p"] = *req.TopP
		}
		if req.TopK != nil {
			body["top_k"] = *req.TopK
		}
		if req.MaxTokens > 0 {
			body["max_tokens"] = req.MaxTokens
		}
	}

	jsonBody, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	SetAuthHeader(httpReq, req.Endpoint, req.APIKey)

	return httpReq, nil
}

// SetAuthHeader attaches the credential using the header shape the endpoint
// expects. No header is attached when the credential is empty.
func SetAuthHeader(httpReq *http.Request, endpoint, apiKey string) {
	if apiKey == "" {
		return
	}
	if UsesKeyHeader(endpoint) {
		httpReq.Header.Set("api-key", apiKey)
		return
	}
	httpReq.Header.Set("Authorization", "Bearer "+apiKey)
}

// Parse extracts normalized data from a chat-completions response. Non-2xx
// statuses become classified ProviderErrors; a 2xx body without assistant
// content becomes a protocol error carrying the raw body, with safety-filter
// terminations distinguished from true format errors.
func (a *chatAdapter) Parse(httpResp *http.Response) (*transport.Response, error) {
	body, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, &llmerrors.ProviderError{
			Provider: string(a.kind),
			Message:  fmt.Sprintf("failed to read response body: %v", err),
			Type:     llmerrors.ErrorTypeNetwork,
		}
	}

	if httpResp.StatusCode != http.StatusOK {
		return nil, a.parseError(httpResp, body)
	}

	var resp struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
			FinishReason string `json:"finish_reason"`
		} `json:"choices"`
		Usage struct {
			PromptTokens     int64 `json:"prompt_tokens"`
			CompletionTokens int64 `json:"completion_tokens"`
			TotalTokens      int64 `json:"total_tokens"`
		} `json:"usage"`
	}

	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, &llmerrors.ProviderError{
			Provider: string(a.kind),
			Message:  fmt.Sprintf("response is not valid JSON: %v; body: %s", err, excerpt(body)),
			Type:     llmerrors.ErrorTypeProtocol,
		}
	}

	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		finish := ""
		if len(resp.Choices) > 0 {
			finish = resp.Choices[0].FinishReason
		}
		msg := fmt.Sprintf("%v; body: %s", llmerrors.ErrMissingContent, excerpt(body))
		if finish == "content_filter" {
			msg = fmt.Sprintf("%v; body: %s", llmerrors.ErrContentFiltered, excerpt(body))
		}
		return nil, &llmerrors.ProviderError{
			Provider: string(a.kind),
			Message:  msg,
			Type:     llmerrors.ErrorTypeProtocol,
		}
	}

	return &transport.Response{
		Content:      resp.Choices[0].Message.Content,
		FinishReason: mapFinishReason(resp.Choices[0].FinishReason),
		Usage: transport.Usage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
			TotalTokens:      resp.Usage.TotalTokens,
		},
		Headers: httpResp.Header,
		RawBody: body,
	}, nil
}

// parseError converts a non-2xx response into a classified ProviderError,
// preferring the structured error body when present.
func (a *chatAdapter) parseError(httpResp *http.Response, body []byte) error {
	retryAfter := 0
	if v := httpResp.Header.Get("Retry-After"); v != "" {
		fmt.Sscanf(v, "%d", &retryAfter)
	}

	var errResp struct {
		Error struct {
			Message string `json:"message"`
			Type    string `json:"type"`
			Code    string `json:"code"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &errResp); err == nil && errResp.Error.Message != "" {
		code := errResp.Error.Code
		if code == "" {
			code = errResp.Error.Type
		}
		return &llmerrors.ProviderError{
			Provider:   string(a.kind),
			StatusCode: httpResp.StatusCode,
			Message:    errResp.Error.Message,
			Type:       llmerrors.Classify(httpResp.StatusCode, code),
			RetryAfter: retryAfter,
		}
	}

	return &llmerrors.ProviderError{
		Provider:   string(a.kind),
		StatusCode: httpResp.StatusCode,
		Message:    excerpt(body),
		Type:       llmerrors.Classify(httpResp.StatusCode, ""),
		RetryAfter: retryAfter,
	}
}

// mapFinishReason converts wire finish_reason values to transport constants.
func mapFinishReason(reason string) transport.FinishReason {
	switch reason {
	case "length":
		return transport.FinishLength
	case "content_filter":
		return transport.FinishContentFilter
	default:
		return transport.FinishStop
	}
}

// excerpt truncates an upstream body for inclusion in error messages.
func excerpt(body []byte) string {
	if len(body) > maxBodyExcerpt {
		return string(body[:maxBodyExcerpt]) + "..."
	}
	return string(body)
}
