package providers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	llmerrors "github.com/mgmancho/sumjudge/internal/llm/errors"
	"github.com/mgmancho/sumjudge/internal/llm/transport"
)

func decodeBody(t *testing.T, httpReq *http.Request) map[string]any {
	t.Helper()
	raw, err := io.ReadAll(httpReq.Body)
	require.NoError(t, err)
	var body map[string]any
	require.NoError(t, json.Unmarshal(raw, &body))
	return body
}

func TestChatAdapterBuild(t *testing.T) {
	t.Run("standard_model_payload", func(t *testing.T) {
		topP := 0.9
		topK := 40
		req := &transport.Request{
			Model:        "gpt-4o-mini",
			Endpoint:     "https://api.openai.com",
			APIKey:       "sk-test",
			SystemPrompt: "You are concise.",
			UserPrompt:   "Summarize this.",
			Temperature:  0.7,
			TopP:         &topP,
			TopK:         &topK,
			MaxTokens:    256,
		}

		httpReq, err := NewCloudAdapter().Build(context.Background(), req)
		require.NoError(t, err)

		assert.Equal(t, http.MethodPost, httpReq.Method)
		assert.Equal(t, "https://api.openai.com/v1/chat/completions", httpReq.URL.String())
		assert.Equal(t, "application/json", httpReq.Header.Get("Content-Type"))
		assert.Equal(t, "Bearer sk-test", httpReq.Header.Get("Authorization"))

		body := decodeBody(t, httpReq)
		assert.Equal(t, "gpt-4o-mini", body["model"])
		assert.Equal(t, false, body["stream"])
		assert.InDelta(t, 0.7, body["temperature"], 0.001)
		assert.InDelta(t, 0.9, body["top_p"], 0.001)
		assert.InDelta(t, 40, body["top_k"], 0.001)
		assert.InDelta(t, 256, body["max_tokens"], 0.001)

		messages, ok := body["messages"].([]any)
		require.True(t, ok)
		require.Len(t, messages, 2)
		first := messages[0].(map[string]any)
		assert.Equal(t, "system", first["role"])
		assert.Equal(t, "You are concise.", first["content"])
		second := messages[1].(map[string]any)
		assert.Equal(t, "user", second["role"])
	})

	t.Run("reasoning_model_drops_sampling_params", func(t *testing.T) {
		topP := 0.9
		req := &transport.Request{
			Model:      "o3-mini",
			Endpoint:   "https://api.openai.com/v1",
			UserPrompt: "Summarize this.",
			TopP:       &topP,
			MaxTokens:  512,
		}

		httpReq, err := NewCloudAdapter().Build(context.Background(), req)
		require.NoError(t, err)

		body := decodeBody(t, httpReq)
		assert.NotContains(t, body, "temperature")
		assert.NotContains(t, body, "top_p")
		assert.NotContains(t, body, "top_k")
		assert.NotContains(t, body, "max_tokens")
		assert.InDelta(t, 512, body["max_completion_tokens"], 0.001)
	})

	t.Run("no_system_message_when_empty", func(t *testing.T) {
		req := &transport.Request{
			Model:      "gpt-4o-mini",
			Endpoint:   "https://api.openai.com",
			UserPrompt: "hi",
		}

		httpReq, err := NewCloudAdapter().Build(context.Background(), req)
		require.NoError(t, err)

		body := decodeBody(t, httpReq)
		messages := body["messages"].([]any)
		require.Len(t, messages, 1)
		assert.Equal(t, "user", messages[0].(map[string]any)["role"])
	})

	t.Run("azure_host_uses_key_header", func(t *testing.T) {
		req := &transport.Request{
			Model:      "gpt-4o",
			Endpoint:   "https://myres.openai.azure.com/openai/deployments/gpt4/chat/completions",
			APIKey:     "azure-key",
			UserPrompt: "hi",
		}

		httpReq, err := NewCloudAdapter().Build(context.Background(), req)
		require.NoError(t, err)

		assert.Equal(t, "azure-key", httpReq.Header.Get("api-key"))
		assert.Empty(t, httpReq.Header.Get("Authorization"))
	})

	t.Run("no_auth_header_without_key", func(t *testing.T) {
		req := &transport.Request{
			Model:      "llama-3.1-8b-instruct",
			Endpoint:   "http://localhost:8080",
			UserPrompt: "hi",
		}

		httpReq, err := NewLocalAdapter().Build(context.Background(), req)
		require.NoError(t, err)

		assert.Empty(t, httpReq.Header.Get("Authorization"))
		assert.Empty(t, httpReq.Header.Get("api-key"))
	})
}

func respWith(status int, body string, header http.Header) *http.Response {
	if header == nil {
		header = http.Header{}
	}
	return &http.Response{
		StatusCode: status,
		Header:     header,
		Body:       io.NopCloser(strings.NewReader(body)),
	}
}

func TestChatAdapterParse(t *testing.T) {
	adapter := NewCloudAdapter()

	t.Run("success", func(t *testing.T) {
		body := `{
			"choices": [{"message": {"content": "A summary."}, "finish_reason": "stop"}],
			"usage": {"prompt_tokens": 12, "completion_tokens": 5, "total_tokens": 17}
		}`

		resp, err := adapter.Parse(respWith(http.StatusOK, body, nil))
		require.NoError(t, err)

		assert.Equal(t, "A summary.", resp.Content)
		assert.Equal(t, transport.FinishStop, resp.FinishReason)
		assert.Equal(t, int64(12), resp.Usage.PromptTokens)
		assert.Equal(t, int64(17), resp.Usage.TotalTokens)
	})

	t.Run("structured_error_body", func(t *testing.T) {
		body := `{"error": {"message": "Incorrect API key provided", "type": "invalid_request_error", "code": "invalid_api_key"}}`

		_, err := adapter.Parse(respWith(http.StatusUnauthorized, body, nil))

		var provErr *llmerrors.ProviderError
		require.ErrorAs(t, err, &provErr)
		assert.Equal(t, llmerrors.ErrorTypeAuth, provErr.Type)
		assert.Equal(t, http.StatusUnauthorized, provErr.StatusCode)
		assert.Equal(t, "Incorrect API key provided", provErr.Message)
		assert.False(t, provErr.IsTransient())
	})

	t.Run("rate_limit_with_retry_after", func(t *testing.T) {
		header := http.Header{}
		header.Set("Retry-After", "30")

		_, err := adapter.Parse(respWith(http.StatusTooManyRequests, `{"error": {"message": "slow down"}}`, header))

		var provErr *llmerrors.ProviderError
		require.ErrorAs(t, err, &provErr)
		assert.Equal(t, llmerrors.ErrorTypeRateLimit, provErr.Type)
		assert.Equal(t, 30, provErr.RetryAfter)
		assert.True(t, provErr.IsTransient())
	})

	t.Run("unstructured_error_body", func(t *testing.T) {
		_, err := adapter.Parse(respWith(http.StatusBadGateway, "<html>bad gateway</html>", nil))

		var provErr *llmerrors.ProviderError
		require.ErrorAs(t, err, &provErr)
		assert.Equal(t, llmerrors.ErrorTypeServer, provErr.Type)
		assert.Contains(t, provErr.Message, "bad gateway")
	})

	t.Run("empty_choices_is_protocol_error", func(t *testing.T) {
		_, err := adapter.Parse(respWith(http.StatusOK, `{"choices": []}`, nil))

		var provErr *llmerrors.ProviderError
		require.ErrorAs(t, err, &provErr)
		assert.Equal(t, llmerrors.ErrorTypeProtocol, provErr.Type)
		assert.False(t, provErr.IsTransient())
	})

	t.Run("content_filter_distinguished", func(t *testing.T) {
		body := `{"choices": [{"message": {"content": ""}, "finish_reason": "content_filter"}]}`

		_, err := adapter.Parse(respWith(http.StatusOK, body, nil))

		var provErr *llmerrors.ProviderError
		require.ErrorAs(t, err, &provErr)
		assert.Equal(t, llmerrors.ErrorTypeProtocol, provErr.Type)
		assert.Contains(t, provErr.Message, "content filter")
	})

	t.Run("invalid_json_is_protocol_error", func(t *testing.T) {
		_, err := adapter.Parse(respWith(http.StatusOK, "not json at all", nil))

		var provErr *llmerrors.ProviderError
		require.ErrorAs(t, err, &provErr)
		assert.Equal(t, llmerrors.ErrorTypeProtocol, provErr.Type)
	})
}

func TestRouterPick(t *testing.T) {
	router := NewRouter()

	t.Run("cloud", func(t *testing.T) {
		adapter, err := router.Pick("cloud")
		require.NoError(t, err)
		assert.Equal(t, "cloud", adapter.Name())
	})

	t.Run("local", func(t *testing.T) {
		adapter, err := router.Pick("local")
		require.NoError(t, err)
		assert.Equal(t, "local", adapter.Name())
	})

	t.Run("unknown_kind", func(t *testing.T) {
		_, err := router.Pick("serverless")
		assert.ErrorIs(t, err, llmerrors.ErrUnknownProvider)
	})
}
