package providers

import (
	"net/url"
	"regexp"
	"strings"
)

// completionsPath is the canonical chat-completions suffix.
const completionsPath = "/chat/completions"

// versionSuffix matches a trailing API version segment like /v1 or /v1beta.
var versionSuffix = regexp.MustCompile(`/v\d+[a-z]*\d*$`)

// NormalizeEndpoint turns the heterogeneous endpoint shapes users configure
// into one canonical completions URL by inspecting the path suffix:
//
//	https://host               -> https://host/v1/chat/completions
//	https://host/v1            -> https://host/v1/chat/completions
//	https://host/v1/chat/completions -> unchanged
func NormalizeEndpoint(raw string) string {
	endpoint := strings.TrimRight(strings.TrimSpace(raw), "/")
	switch {
	case strings.HasSuffix(endpoint, completionsPath):
		return endpoint
	case versionSuffix.MatchString(endpoint):
		return endpoint + completionsPath
	default:
		return endpoint + "/v1" + completionsPath
	}
}

// ModelsEndpoint derives the model-listing URL from a configured endpoint,
// applying the same suffix inspection as NormalizeEndpoint.
func ModelsEndpoint(raw string) string {
	endpoint := strings.TrimRight(strings.TrimSpace(raw), "/")
	if idx := strings.Index(endpoint, completionsPath); idx >= 0 {
		endpoint = endpoint[:idx]
	}
	if versionSuffix.MatchString(endpoint) {
		return endpoint + "/models"
	}
	return endpoint + "/v1/models"
}

// UsesKeyHeader reports whether the endpoint expects the provider-specific
// "api-key" header instead of a bearer token. Azure-hosted deployments are
// the only family using the key header shape.
func UsesKeyHeader(endpoint string) bool {
	u, err := url.Parse(endpoint)
	if err != nil || u.Host == "" {
		return strings.Contains(strings.ToLower(endpoint), "azure")
	}
	return strings.Contains(strings.ToLower(u.Host), "azure")
}

// IsReasoningModel reports whether the model belongs to the reasoning class
// that rejects sampling parameters and uses max_completion_tokens instead
// of max_tokens.
func IsReasoningModel(model string) bool {
	m := strings.ToLower(model)
	for _, prefix := range []string{"o1", "o3", "o4", "gpt-5"} {
		if strings.HasPrefix(m, prefix) {
			return true
		}
	}
	return false
}
