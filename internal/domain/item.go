// Package domain provides the core types for the batch summarization and
// judging pipeline. It defines work items, run configurations, rubric
// criteria, and evaluation verdicts, along with the pure prompt builders
// that turn them into model requests.
package domain

import (
	"errors"
	"fmt"
	"maps"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// ItemStatus represents the lifecycle state of a work item.
// Using typed constants instead of raw strings provides compile-time safety
// and enables exhaustive switch statements over item states.
type ItemStatus string

const (
	// StatusPending indicates the item has not been claimed for processing.
	StatusPending ItemStatus = "pending"

	// StatusProcessing indicates the orchestrator currently owns the item.
	StatusProcessing ItemStatus = "processing"

	// StatusDone indicates all configurations for the item have settled.
	// Per-configuration failures are recorded inside Results/Evaluations;
	// they do not prevent the item from reaching Done.
	StatusDone ItemStatus = "done"

	// StatusError is reserved for whole-item failures. It is not reachable
	// through normal processing since per-configuration errors are caught
	// and recorded as data.
	StatusError ItemStatus = "error"
)

// ErrorResultPrefix marks a per-configuration result that failed.
// A result string carrying this prefix is an error marker, not output text.
const ErrorResultPrefix = "Error: "

// Item-specific errors.
var (
	// ErrEmptySourceText indicates an item was created without input text.
	ErrEmptySourceText = errors.New("source text must not be empty")

	// ErrInvalidTransition indicates a status change that the item state
	// machine does not permit.
	ErrInvalidTransition = errors.New("invalid item status transition")
)

// validate is the package-level validator instance used for struct validation.
var validate = validator.New(validator.WithRequiredStructEnabled())

// WorkItem is one source record to be summarized and judged.
// Items are value types: mutating operations return a modified copy so the
// owning collection can swap whole items atomically and concurrent readers
// never observe a partially updated record.
type WorkItem struct {
	// ID uniquely identifies the item (UUID).
	ID string `json:"id" validate:"required"`

	// SourceText is the input to summarize. Required, non-empty.
	SourceText string `json:"source_text" validate:"required,min=1"`

	// ReferenceText is an optional gold-standard summary the evaluator
	// benchmarks generated output against.
	ReferenceText string `json:"reference_text,omitempty"`

	// Status is the item's position in the processing state machine.
	Status ItemStatus `json:"status" validate:"required"`

	// Results maps run-configuration id to generated text, or to an error
	// marker string (see ErrorResultPrefix) when that configuration failed.
	Results map[string]string `json:"results,omitempty"`

	// Evaluations maps run-configuration id to the judge's verdict.
	Evaluations map[string]Evaluation `json:"evaluations,omitempty"`

	// CreatedAt records when the item entered the collection.
	CreatedAt time.Time `json:"created_at"`
}

// NewWorkItem creates a pending work item with a generated id.
// Returns ErrEmptySourceText if sourceText is empty.
func NewWorkItem(sourceText, referenceText string) (WorkItem, error) {
	if sourceText == "" {
		return WorkItem{}, ErrEmptySourceText
	}
	return WorkItem{
		ID:            uuid.New().String(),
		SourceText:    sourceText,
		ReferenceText: referenceText,
		Status:        StatusPending,
		CreatedAt:     time.Now(),
	}, nil
}

// Validate checks if the item meets all structural requirements.
func (w *WorkItem) Validate() error { return validate.Struct(w) }

// IsErrorResult reports whether a result string is an error marker rather
// than generated output.
func IsErrorResult(result string) bool {
	return len(result) >= len(ErrorResultPrefix) && result[:len(ErrorResultPrefix)] == ErrorResultPrefix
}

// ErrorResult formats an error into the result-marker convention.
func ErrorResult(err error) string {
	return fmt.Sprintf("%s%v", ErrorResultPrefix, err)
}

// WithStatus returns a copy of the item in the given status.
// It enforces the state machine: Pending -> Processing -> Done, with
// Processing -> Error reserved for whole-item failures.
func (w WorkItem) WithStatus(status ItemStatus) (WorkItem, error) {
	allowed := false
	switch w.Status {
	case StatusPending:
		allowed = status == StatusProcessing
	case StatusProcessing:
		allowed = status == StatusDone || status == StatusError
	case StatusError:
		// Failed items may be claimed again; anything not Done is
		// eligible for processing.
		allowed = status == StatusProcessing
	case StatusDone:
		// Done only leaves via Reset.
	}
	if !allowed {
		return WorkItem{}, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, w.Status, status)
	}
	item := w
	item.Status = status
	return item, nil
}

// WithOutcome returns a Done copy of the item with the given result and
// evaluation maps attached. Input maps are copied so later mutation by the
// caller cannot alias into the stored item.
func (w WorkItem) WithOutcome(results map[string]string, evaluations map[string]Evaluation) (WorkItem, error) {
	item, err := w.WithStatus(StatusDone)
	if err != nil {
		return WorkItem{}, err
	}
	item.Results = cloneMap(results)
	item.Evaluations = cloneMap(evaluations)
	return item, nil
}

// Reset returns a pending copy of the item with results and evaluations
// cleared. Source and reference texts are preserved so the item can be
// re-processed after configuration changes.
func (w WorkItem) Reset() WorkItem {
	item := w
	item.Status = StatusPending
	item.Results = nil
	item.Evaluations = nil
	return item
}

// cloneMap copies a map to prevent aliasing. Returns nil for empty input so
// a pending item keeps both maps empty.
func cloneMap[V any](m map[string]V) map[string]V {
	if len(m) == 0 {
		return nil
	}
	out := make(map[string]V, len(m))
	maps.Copy(out, m)
	return out
}
