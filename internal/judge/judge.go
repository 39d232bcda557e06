// Package judge implements the rubric evaluator: it builds a weighted-rubric
// prompt for a judge model, invokes it through the resilient client, and
// parses the structured verdict defensively. Failures that are the judge's
// fault (unparseable output) become zero-score evaluations carrying a
// diagnostic note, never errors; only invocation failures propagate.
package judge

import (
	"context"
	"fmt"
	"time"

	"github.com/mgmancho/sumjudge/internal/domain"
	"github.com/mgmancho/sumjudge/internal/llm/transport"
)

// judgeTemperature favors determinism: verdicts should depend on the
// rubric, not on sampling luck.
const judgeTemperature = 0.1

// Invoker executes one normalized endpoint request. Satisfied by
// llm.Client; tests substitute fakes.
type Invoker interface {
	Do(ctx context.Context, req *transport.Request) (*transport.Response, error)
}

// Params identifies the judge endpoint for one evaluation.
type Params struct {
	Provider domain.ProviderKind
	Endpoint string
	APIKey   string
	Model    string

	// MaxTokens caps the verdict length. Zero lets the endpoint decide.
	MaxTokens int

	// Timeout bounds the judge call. Zero disables the per-call bound.
	Timeout time.Duration
}

// Configured reports whether the params name a callable judge.
func (p Params) Configured() bool { return p.Endpoint != "" && p.Model != "" }

// Evaluator judges generated output against a weighted rubric.
type Evaluator struct {
	invoker Invoker
}

// NewEvaluator creates an evaluator backed by the given invoker.
func NewEvaluator(invoker Invoker) *Evaluator {
	return &Evaluator{invoker: invoker}
}

// Evaluate judges one generated text. It fails fast with a synthetic
// zero-score evaluation, making no network call, when inputs or judge
// parameters are missing. Parse failures are likewise returned as data.
// The returned error is non-nil only when the judge invocation itself
// failed (network, auth, upstream), in which case the evaluation still
// carries the zero-score diagnostic verdict.
func (e *Evaluator) Evaluate(
	ctx context.Context,
	sourceText, generatedText string,
	criteria []domain.JudgeCriterion,
	params Params,
	referenceText string,
) (domain.Evaluation, error) {
	hasReference := referenceText != ""

	switch {
	case sourceText == "":
		return domain.FailedEvaluation("not judged: source text is empty", hasReference), nil
	case generatedText == "":
		return domain.FailedEvaluation("not judged: generated text is empty", hasReference), nil
	case !params.Configured():
		return domain.FailedEvaluation("not judged: judge model or endpoint not configured", hasReference), nil
	case len(criteria) == 0:
		return domain.FailedEvaluation("not judged: no criteria defined", hasReference), nil
	}

	req := &transport.Request{
		Operation:    transport.OpJudging,
		Provider:     params.Provider,
		Model:        params.Model,
		Endpoint:     params.Endpoint,
		APIKey:       params.APIKey,
		SystemPrompt: systemPrompt,
		UserPrompt:   BuildJudgePrompt(sourceText, generatedText, referenceText, criteria),
		Temperature:  judgeTemperature,
		MaxTokens:    params.MaxTokens,
		Timeout:      params.Timeout,
	}

	resp, err := e.invoker.Do(ctx, req)
	if err != nil {
		return domain.FailedEvaluation(fmt.Sprintf("judge call failed: %v", err), hasReference), err
	}

	v, err := parseVerdict(resp.Content)
	if err != nil {
		return domain.FailedEvaluation(fmt.Sprintf("judge response unparseable: %v", err), hasReference), nil
	}

	return domain.NewEvaluation(v.Score, v.Note, v.CriteriaScores, hasReference), nil
}
