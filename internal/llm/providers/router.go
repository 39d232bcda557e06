// Package providers implements the adapters that translate normalized
// requests into OpenAI-compatible HTTP calls. Two sealed adapter kinds
// exist: cloud (hosted APIs, including Azure-shaped deployments) and local
// (self-hosted servers). Both speak the chat-completions wire format.
package providers

import (
	"fmt"

	"github.com/mgmancho/sumjudge/internal/domain"
	llmerrors "github.com/mgmancho/sumjudge/internal/llm/errors"
	"github.com/mgmancho/sumjudge/internal/llm/transport"
)

// NewRouter creates a router holding the two supported adapters.
func NewRouter() transport.Router {
	return &router{
		adapters: map[string]transport.ProviderAdapter{
			string(domain.ProviderCloud): NewCloudAdapter(),
			string(domain.ProviderLocal): NewLocalAdapter(),
		},
	}
}

// router implements transport.Router with a fixed adapter registry.
type router struct {
	adapters map[string]transport.ProviderAdapter
}

// Pick selects the adapter for the given provider kind. Returns an error
// for unknown kinds; this indicates a configuration contract violation.
func (r *router) Pick(provider string) (transport.ProviderAdapter, error) {
	adapter, ok := r.adapters[provider]
	if !ok {
		return nil, fmt.Errorf("%w: %s", llmerrors.ErrUnknownProvider, provider)
	}
	return adapter, nil
}
