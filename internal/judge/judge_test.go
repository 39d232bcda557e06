package judge

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mgmancho/sumjudge/internal/domain"
	"github.com/mgmancho/sumjudge/internal/llm/transport"
)

// fakeInvoker records calls and replies with a canned response or error.
type fakeInvoker struct {
	calls   atomic.Int64
	lastReq *transport.Request
	content string
	err     error
}

func (f *fakeInvoker) Do(ctx context.Context, req *transport.Request) (*transport.Response, error) {
	f.calls.Add(1)
	f.lastReq = req
	if f.err != nil {
		return nil, f.err
	}
	return &transport.Response{Content: f.content}, nil
}

func defaultCriteria() []domain.JudgeCriterion {
	return []domain.JudgeCriterion{
		{Name: "accuracy", Weight: 50, Description: "factual fidelity"},
		{Name: "brevity", Weight: 50, Description: "concision"},
	}
}

func configuredParams() Params {
	return Params{
		Provider: domain.ProviderLocal,
		Endpoint: "http://localhost:8080",
		Model:    "judge-model",
	}
}

func TestParamsConfigured(t *testing.T) {
	assert.True(t, configuredParams().Configured())
	assert.False(t, Params{Endpoint: "http://x"}.Configured())
	assert.False(t, Params{Model: "m"}.Configured())
	assert.False(t, Params{}.Configured())
}

func TestEvaluateFailFast(t *testing.T) {
	tests := []struct {
		name      string
		source    string
		generated string
		criteria  []domain.JudgeCriterion
		params    Params
		noteHas   string
	}{
		{
			name: "empty_source", generated: "summary",
			criteria: defaultCriteria(), params: configuredParams(),
			noteHas: "source text is empty",
		},
		{
			name: "empty_generated", source: "text",
			criteria: defaultCriteria(), params: configuredParams(),
			noteHas: "generated text is empty",
		},
		{
			name: "unconfigured_judge", source: "text", generated: "summary",
			criteria: defaultCriteria(), params: Params{},
			noteHas: "not configured",
		},
		{
			name: "no_criteria", source: "text", generated: "summary",
			params:  configuredParams(),
			noteHas: "no criteria",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			invoker := &fakeInvoker{}
			eval, err := NewEvaluator(invoker).Evaluate(
				context.Background(), tt.source, tt.generated, tt.criteria, tt.params, "")

			require.NoError(t, err)
			assert.InDelta(t, domain.MinScore, eval.Score, 0.001)
			assert.Contains(t, eval.Note, tt.noteHas)
			// Fail-fast paths make no network call.
			assert.Equal(t, int64(0), invoker.calls.Load())
		})
	}
}

func TestEvaluate(t *testing.T) {
	t.Run("successful_verdict", func(t *testing.T) {
		invoker := &fakeInvoker{content: `{"score": 8, "note": "faithful", "criteriaScores": {"accuracy": 9, "brevity": 7}}`}

		eval, err := NewEvaluator(invoker).Evaluate(
			context.Background(), "source", "summary", defaultCriteria(), configuredParams(), "")

		require.NoError(t, err)
		assert.InDelta(t, 8, eval.Score, 0.001)
		assert.Equal(t, "faithful", eval.Note)
		assert.InDelta(t, 9, eval.CriteriaScores["accuracy"], 0.001)
		assert.False(t, eval.ComparedToReference)

		req := invoker.lastReq
		require.NotNil(t, req)
		assert.Equal(t, transport.OpJudging, req.Operation)
		assert.Equal(t, "judge-model", req.Model)
		assert.InDelta(t, judgeTemperature, req.Temperature, 0.001)
		assert.Contains(t, req.UserPrompt, "accuracy")
	})

	t.Run("reference_sets_compared_flag", func(t *testing.T) {
		invoker := &fakeInvoker{content: `{"score": 7, "note": "close to reference"}`}

		eval, err := NewEvaluator(invoker).Evaluate(
			context.Background(), "source", "summary", defaultCriteria(), configuredParams(), "the gold summary")

		require.NoError(t, err)
		assert.True(t, eval.ComparedToReference)
		assert.Contains(t, invoker.lastReq.UserPrompt, "the gold summary")
	})

	t.Run("out_of_range_scores_clamped", func(t *testing.T) {
		invoker := &fakeInvoker{content: `{"score": 23, "note": "overenthusiastic", "criteriaScores": {"accuracy": -2}}`}

		eval, err := NewEvaluator(invoker).Evaluate(
			context.Background(), "source", "summary", defaultCriteria(), configuredParams(), "")

		require.NoError(t, err)
		assert.InDelta(t, domain.MaxScore, eval.Score, 0.001)
		assert.InDelta(t, domain.MinScore, eval.CriteriaScores["accuracy"], 0.001)
	})

	t.Run("unparseable_verdict_is_data_not_error", func(t *testing.T) {
		invoker := &fakeInvoker{content: "I give it a seven."}

		eval, err := NewEvaluator(invoker).Evaluate(
			context.Background(), "source", "summary", defaultCriteria(), configuredParams(), "")

		require.NoError(t, err)
		assert.InDelta(t, domain.MinScore, eval.Score, 0.001)
		assert.Contains(t, eval.Note, "unparseable")
	})

	t.Run("invocation_failure_propagates_with_diagnostic_eval", func(t *testing.T) {
		boom := errors.New("upstream unreachable")
		invoker := &fakeInvoker{err: boom}

		eval, err := NewEvaluator(invoker).Evaluate(
			context.Background(), "source", "summary", defaultCriteria(), configuredParams(), "")

		assert.ErrorIs(t, err, boom)
		assert.InDelta(t, domain.MinScore, eval.Score, 0.001)
		assert.Contains(t, eval.Note, "judge call failed")
	})
}

func TestBuildJudgePrompt(t *testing.T) {
	criteria := defaultCriteria()

	t.Run("contains_texts_and_rubric", func(t *testing.T) {
		prompt := BuildJudgePrompt("the original", "the summary", "", criteria)

		assert.Contains(t, prompt, "the original")
		assert.Contains(t, prompt, "the summary")
		assert.Contains(t, prompt, "accuracy (weight 50)")
		assert.Contains(t, prompt, `"criteriaScores"`)
		assert.NotContains(t, prompt, "Reference summary")
	})

	t.Run("reference_section_when_present", func(t *testing.T) {
		prompt := BuildJudgePrompt("original", "summary", "gold", criteria)

		assert.Contains(t, prompt, "Reference summary")
		assert.Contains(t, prompt, "gold")
	})

	t.Run("deterministic", func(t *testing.T) {
		a := BuildJudgePrompt("o", "s", "r", criteria)
		b := BuildJudgePrompt("o", "s", "r", criteria)
		assert.Equal(t, a, b)
	})
}
