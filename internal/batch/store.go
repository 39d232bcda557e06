// Package batch owns the authoritative work item collection and the
// orchestrator that drives items through the processing pipeline.
package batch

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/mgmancho/sumjudge/internal/domain"
)

// Store-specific errors.
var (
	// ErrItemNotFound indicates a requested item id is not in the store.
	ErrItemNotFound = errors.New("work item not found")

	// ErrEvaluationNotFound indicates a (item, configuration) pair with no
	// recorded evaluation.
	ErrEvaluationNotFound = errors.New("evaluation not found")

	// ErrNotResettable indicates a reset attempt on an item that is not in
	// a terminal state.
	ErrNotResettable = errors.New("only finished items can be reset")
)

// Store holds the ordered work item collection behind an immutable snapshot
// with copy-on-write semantics. Reads are lock-free and always observe whole
// items; all mutations replace entire items, so a concurrent reader never
// sees a status from one update paired with result maps from another.
type Store struct {
	// snapshot holds the current []domain.WorkItem via atomic.Value.
	snapshot atomic.Value

	// mu serializes writers. Readers never take it.
	mu sync.Mutex
}

// NewStore creates an empty store.
func NewStore() *Store {
	s := new(Store)
	s.snapshot.Store([]domain.WorkItem{})
	return s
}

// Items returns a copy of the current snapshot in input order.
func (s *Store) Items() []domain.WorkItem {
	items := s.snapshot.Load().([]domain.WorkItem) //nolint:errcheck // always initialized with slice
	out := make([]domain.WorkItem, len(items))
	copy(out, items)
	return out
}

// Len returns the number of items.
func (s *Store) Len() int {
	return len(s.snapshot.Load().([]domain.WorkItem)) //nolint:errcheck // always initialized with slice
}

// Get retrieves an item by id.
func (s *Store) Get(id string) (domain.WorkItem, bool) {
	items := s.snapshot.Load().([]domain.WorkItem) //nolint:errcheck // always initialized with slice
	for _, item := range items {
		if item.ID == id {
			return item, true
		}
	}
	return domain.WorkItem{}, false
}

// Add appends an item to the collection.
func (s *Store) Add(item domain.WorkItem) {
	s.mu.Lock()
	defer s.mu.Unlock()
	old := s.snapshot.Load().([]domain.WorkItem) //nolint:errcheck // always initialized with slice
	next := make([]domain.WorkItem, len(old), len(old)+1)
	copy(next, old)
	s.snapshot.Store(append(next, item))
}

// Replace swaps the stored item carrying the same id in a single snapshot
// update. Returns ErrItemNotFound for unknown ids; that is a contract
// violation by the caller, not a runtime condition.
func (s *Store) Replace(item domain.WorkItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.replaceLocked(item)
}

func (s *Store) replaceLocked(item domain.WorkItem) error {
	old := s.snapshot.Load().([]domain.WorkItem) //nolint:errcheck // always initialized with slice
	next := make([]domain.WorkItem, len(old))
	copy(next, old)
	for i := range next {
		if next[i].ID == item.ID {
			next[i] = item
			s.snapshot.Store(next)
			return nil
		}
	}
	return fmt.Errorf("%w: %s", ErrItemNotFound, item.ID)
}

// Reset transitions a finished item back to pending with its result and
// evaluation maps cleared, preserving source and reference texts.
func (s *Store) Reset(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	item, ok := s.getLocked(id)
	if !ok {
		return fmt.Errorf("%w: %s", ErrItemNotFound, id)
	}
	if item.Status != domain.StatusDone && item.Status != domain.StatusError {
		return fmt.Errorf("%w: %s is %s", ErrNotResettable, id, item.Status)
	}
	return s.replaceLocked(item.Reset())
}

// SetEvaluation records or overwrites the evaluation for one
// (item, configuration) pair as a whole-item update.
func (s *Store) SetEvaluation(itemID, configID string, eval domain.Evaluation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	item, ok := s.getLocked(itemID)
	if !ok {
		return fmt.Errorf("%w: %s", ErrItemNotFound, itemID)
	}

	evals := make(map[string]domain.Evaluation, len(item.Evaluations)+1)
	for k, v := range item.Evaluations {
		evals[k] = v
	}
	evals[configID] = eval
	item.Evaluations = evals
	return s.replaceLocked(item)
}

// MarkGroundTruth flags one configuration's evaluation as the preferred
// output for the item, clearing the flag on every sibling so at most one
// evaluation per item carries it.
func (s *Store) MarkGroundTruth(itemID, configID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	item, ok := s.getLocked(itemID)
	if !ok {
		return fmt.Errorf("%w: %s", ErrItemNotFound, itemID)
	}
	if _, ok := item.Evaluations[configID]; !ok {
		return fmt.Errorf("%w: item %s, configuration %s", ErrEvaluationNotFound, itemID, configID)
	}

	evals := make(map[string]domain.Evaluation, len(item.Evaluations))
	for k, v := range item.Evaluations {
		v.IsGroundTruth = k == configID
		evals[k] = v
	}
	item.Evaluations = evals
	return s.replaceLocked(item)
}

func (s *Store) getLocked(id string) (domain.WorkItem, bool) {
	items := s.snapshot.Load().([]domain.WorkItem) //nolint:errcheck // always initialized with slice
	for _, item := range items {
		if item.ID == id {
			return item, true
		}
	}
	return domain.WorkItem{}, false
}
