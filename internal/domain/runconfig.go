package domain

import "errors"

// ProviderKind distinguishes the two endpoint families the pipeline can
// target. Both speak the chat-completions wire shape; the kind drives
// default endpoints and authentication header selection.
type ProviderKind string

const (
	// ProviderCloud targets a hosted OpenAI-compatible API.
	ProviderCloud ProviderKind = "cloud"

	// ProviderLocal targets a self-hosted OpenAI-compatible server
	// (llama.cpp, vLLM, LM Studio and the like).
	ProviderLocal ProviderKind = "local"
)

// Summary output formats understood by the prompt builder.
const (
	FormatParagraph = "paragraph"
	FormatBullets   = "bullets"
	FormatJSON      = "json"
)

// ErrUnknownRunConfig indicates a run-configuration id that is not present
// in the active configuration list. This is a contract violation by the
// caller, not a runtime failure.
var ErrUnknownRunConfig = errors.New("unknown run configuration")

// StyleConfig holds the presentation parameters a run configuration applies
// to generated summaries.
type StyleConfig struct {
	// Tone is the target register, e.g. "neutral", "formal", "casual".
	Tone string `json:"tone" yaml:"tone"`

	// Format is one of FormatParagraph, FormatBullets, FormatJSON.
	Format string `json:"format" yaml:"format"`

	// Focus lists optional terms the summary should emphasize.
	Focus []string `json:"focus,omitempty" yaml:"focus"`

	// MaxWords is the hard word-count ceiling stated in the prompt.
	MaxWords int `json:"max_words" yaml:"maxWords" validate:"min=0"`
}

// RunConfiguration is a named, independent generation policy. Its id is
// immutable once referenced by any item result; deleting a configuration
// orphans historical results but never removes them.
type RunConfiguration struct {
	ID   string `json:"id" yaml:"id" validate:"required"`
	Name string `json:"name" yaml:"name" validate:"required"`

	// Provider selects the endpoint family.
	Provider ProviderKind `json:"provider" yaml:"provider" validate:"required,oneof=cloud local"`

	// Endpoint is the target base URL. Accepts a bare host, a versioned
	// base path, or a full completions path; the invoker normalizes it.
	Endpoint string `json:"endpoint" yaml:"endpoint" validate:"required"`

	// APIKey is the credential for the endpoint. Optional; local servers
	// commonly run unauthenticated.
	APIKey string `json:"-" yaml:"apiKey"`

	// Model is the model identifier sent in the request payload.
	Model string `json:"model" yaml:"model" validate:"required"`

	// SystemPrompt is the system instruction for generation calls.
	SystemPrompt string `json:"system_prompt,omitempty" yaml:"systemPrompt"`

	// Sampling parameters. TopP and TopK are pointers so "unset" is
	// distinguishable from zero; reasoning-class models reject them.
	Temperature float64  `json:"temperature" yaml:"temperature" validate:"min=0,max=2"`
	TopP        *float64 `json:"top_p,omitempty" yaml:"topP"`
	TopK        *int     `json:"top_k,omitempty" yaml:"topK"`

	// MaxTokens caps completion length.
	MaxTokens int `json:"max_tokens" yaml:"maxTokens" validate:"min=0"`

	// Style holds the summary presentation parameters.
	Style StyleConfig `json:"style" yaml:"style"`
}

// Validate checks if the run configuration meets all requirements.
func (c *RunConfiguration) Validate() error { return validate.Struct(c) }

// JudgeCriterion is one named, weighted rubric dimension.
type JudgeCriterion struct {
	// Name identifies the dimension and keys the judge's sub-scores.
	Name string `json:"name" yaml:"name" validate:"required"`

	// Weight is the dimension's share of the total, intended to sum to
	// 100 across the rubric. Advisory only; see SumWeights.
	Weight int `json:"weight" yaml:"weight" validate:"min=0"`

	// Description tells the judge what the dimension measures.
	Description string `json:"description" yaml:"description"`
}

// SumWeights returns the total weight across criteria. A total other than
// 100 is a data-entry warning for callers to surface, never a validation
// failure.
func SumWeights(criteria []JudgeCriterion) int {
	total := 0
	for _, c := range criteria {
		total += c.Weight
	}
	return total
}
