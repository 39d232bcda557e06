package batch

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/mgmancho/sumjudge/internal/domain"
	"github.com/mgmancho/sumjudge/internal/judge"
	"github.com/mgmancho/sumjudge/internal/llm/transport"
)

// defaultJudgeAllDelay spaces out sequential judge calls in JudgeAll to
// avoid hammering the judge endpoint.
const defaultJudgeAllDelay = 500 * time.Millisecond

// JudgeSettings names the dedicated judge endpoint. When not configured,
// each generation configuration's own provider, endpoint, model, and
// credential are mirrored for its judge call.
type JudgeSettings struct {
	Provider  domain.ProviderKind `yaml:"provider"`
	Endpoint  string              `yaml:"endpoint"`
	APIKey    string              `yaml:"-"`
	Model     string              `yaml:"model"`
	MaxTokens int                 `yaml:"maxTokens"`
}

// Configured reports whether a dedicated judge endpoint is set.
func (j JudgeSettings) Configured() bool { return j.Endpoint != "" && j.Model != "" }

// Orchestrator drives pending items through the generate-and-judge
// pipeline. Items are processed strictly in input order, one at a time;
// the configurations of one item fan out concurrently.
type Orchestrator struct {
	store     *Store
	invoker   judge.Invoker
	evaluator *judge.Evaluator
	judge     JudgeSettings

	// OnItemDone, when set, is called after each item settles. It runs on
	// the orchestrator goroutine so consumers can render live progress in
	// order.
	OnItemDone func(domain.WorkItem)

	// judgeAllDelay is the pause between sequential JudgeAll calls.
	judgeAllDelay time.Duration

	logger *slog.Logger
}

// NewOrchestrator creates an orchestrator over the given store and invoker.
func NewOrchestrator(store *Store, invoker judge.Invoker, judgeSettings JudgeSettings) *Orchestrator {
	return &Orchestrator{
		store:         store,
		invoker:       invoker,
		evaluator:     judge.NewEvaluator(invoker),
		judge:         judgeSettings,
		judgeAllDelay: defaultJudgeAllDelay,
		logger:        slog.Default().With("component", "orchestrator"),
	}
}

// configResult is one configuration's settled outcome for an item.
type configResult struct {
	configID string
	text     string
	eval     *domain.Evaluation
}

// ProcessBatch runs every not-yet-done item through all active
// configurations. Per-configuration failures are recorded as data on the
// item; the only errors returned are contract violations (invalid
// configurations, unknown items) and context cancellation.
func (o *Orchestrator) ProcessBatch(ctx context.Context, configs []domain.RunConfiguration, criteria []domain.JudgeCriterion) error {
	for i := range configs {
		if err := configs[i].Validate(); err != nil {
			return fmt.Errorf("invalid run configuration %q: %w", configs[i].ID, err)
		}
	}
	if len(configs) == 0 {
		return nil
	}

	for _, item := range o.store.Items() {
		if item.Status == domain.StatusDone {
			continue
		}
		// Cancellation is checked before claiming each item.
		if err := ctx.Err(); err != nil {
			return err
		}

		if err := o.processItem(ctx, item, configs, criteria); err != nil {
			return err
		}
	}
	return nil
}

// processItem claims one item, fans out its configurations, and writes the
// settled outcome back in a single store update.
func (o *Orchestrator) processItem(ctx context.Context, item domain.WorkItem, configs []domain.RunConfiguration, criteria []domain.JudgeCriterion) error {
	claimed, err := item.WithStatus(domain.StatusProcessing)
	if err != nil {
		return err
	}
	if err := o.store.Replace(claimed); err != nil {
		return err
	}

	settled := make(chan configResult, len(configs))
	for _, cfg := range configs {
		go func(cfg domain.RunConfiguration) {
			settled <- o.runConfiguration(ctx, claimed, cfg, criteria)
		}(cfg)
	}

	results := make(map[string]string, len(configs))
	evaluations := make(map[string]domain.Evaluation, len(configs))
	discarded := 0

	for range configs {
		res := <-settled
		// Results arriving after cancellation are discarded, not written
		// back; in-flight calls themselves are not aborted.
		if ctx.Err() != nil {
			discarded++
			continue
		}
		results[res.configID] = res.text
		if res.eval != nil {
			evaluations[res.configID] = *res.eval
		}
	}

	if discarded > 0 {
		o.logger.Info("cancellation observed mid-item",
			"item", claimed.ID, "discarded", discarded, "retained", len(results))
	}

	done, err := claimed.WithOutcome(results, evaluations)
	if err != nil {
		return err
	}
	if err := o.store.Replace(done); err != nil {
		return err
	}

	if o.OnItemDone != nil {
		o.OnItemDone(done)
	}
	return nil
}

// runConfiguration executes the full per-configuration pipeline for one
// item: prompt build, generation, and judging. Every failure is converted
// into data; nothing escapes to abort the sibling configurations.
func (o *Orchestrator) runConfiguration(ctx context.Context, item domain.WorkItem, cfg domain.RunConfiguration, criteria []domain.JudgeCriterion) configResult {
	req := &transport.Request{
		Operation:    transport.OpGeneration,
		Provider:     cfg.Provider,
		Model:        cfg.Model,
		Endpoint:     cfg.Endpoint,
		APIKey:       cfg.APIKey,
		SystemPrompt: cfg.SystemPrompt,
		UserPrompt:   domain.BuildSummaryPrompt(item.SourceText, cfg.Style),
		Temperature:  cfg.Temperature,
		TopP:         cfg.TopP,
		TopK:         cfg.TopK,
		MaxTokens:    cfg.MaxTokens,
	}

	resp, err := o.invoker.Do(ctx, req)
	if err != nil {
		o.logger.Warn("generation failed",
			"item", item.ID, "configuration", cfg.ID, "error", err)
		eval := domain.FailedEvaluation(fmt.Sprintf("generation failed: %v", err), item.ReferenceText != "")
		return configResult{configID: cfg.ID, text: domain.ErrorResult(err), eval: &eval}
	}

	params := o.judgeParams(cfg)
	if !params.Configured() {
		return configResult{configID: cfg.ID, text: resp.Content}
	}

	eval, err := o.evaluator.Evaluate(ctx, item.SourceText, resp.Content, criteria, params, item.ReferenceText)
	if err != nil {
		// A judge invocation failure marks the whole configuration
		// errored; the diagnostic evaluation is kept alongside.
		o.logger.Warn("judging failed",
			"item", item.ID, "configuration", cfg.ID, "error", err)
		return configResult{configID: cfg.ID, text: domain.ErrorResult(err), eval: &eval}
	}
	return configResult{configID: cfg.ID, text: resp.Content, eval: &eval}
}

// judgeParams derives the judge invocation parameters for a configuration:
// the dedicated judge endpoint when configured, otherwise a mirror of the
// generation endpoint.
func (o *Orchestrator) judgeParams(cfg domain.RunConfiguration) judge.Params {
	if o.judge.Configured() {
		return judge.Params{
			Provider:  o.judge.Provider,
			Endpoint:  o.judge.Endpoint,
			APIKey:    o.judge.APIKey,
			Model:     o.judge.Model,
			MaxTokens: o.judge.MaxTokens,
		}
	}
	return judge.Params{
		Provider:  cfg.Provider,
		Endpoint:  cfg.Endpoint,
		APIKey:    cfg.APIKey,
		Model:     cfg.Model,
		MaxTokens: o.judge.MaxTokens,
	}
}

// JudgeAll re-judges every non-error result across the collection,
// sequentially with a fixed delay between calls. Returns the number of
// successful and failed judge invocations.
func (o *Orchestrator) JudgeAll(ctx context.Context, configs []domain.RunConfiguration, criteria []domain.JudgeCriterion) (judged, failed int, err error) {
	for _, item := range o.store.Items() {
		for _, cfg := range configs {
			output, ok := item.Results[cfg.ID]
			if !ok || output == "" || domain.IsErrorResult(output) {
				continue
			}
			if ctxErr := ctx.Err(); ctxErr != nil {
				return judged, failed, ctxErr
			}

			eval, evalErr := o.evaluator.Evaluate(ctx, item.SourceText, output, criteria, o.judgeParams(cfg), item.ReferenceText)
			if evalErr != nil {
				failed++
			} else {
				judged++
			}
			if storeErr := o.store.SetEvaluation(item.ID, cfg.ID, eval); storeErr != nil {
				return judged, failed, storeErr
			}

			select {
			case <-time.After(o.judgeAllDelay):
			case <-ctx.Done():
				return judged, failed, ctx.Err()
			}
		}
	}

	o.logger.Info("batch judging complete", "judged", judged, "failed", failed)
	return judged, failed, nil
}
