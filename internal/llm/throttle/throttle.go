// Package throttle provides a counting admission gate that caps the number
// of simultaneous in-flight endpoint calls process-wide. It is composed
// with, and independent of, the per-item fan-out concurrency: the gate is
// the last line of defense against overwhelming an upstream endpoint when
// many configurations want to run at once.
package throttle

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/mgmancho/sumjudge/internal/llm/transport"
)

// errCapacityInvalid indicates a gate constructed with non-positive capacity.
var errCapacityInvalid = errors.New("gate capacity must be greater than 0")

// Gate is a fixed-capacity admission gate. Submit blocks the caller without
// busy work until a slot frees, and slots are released on completion whether
// the task succeeds or fails.
type Gate struct {
	slots   chan struct{}
	running atomic.Int64
}

// NewGate creates a gate admitting at most maxConcurrent tasks at once.
func NewGate(maxConcurrent int) (*Gate, error) {
	if maxConcurrent <= 0 {
		return nil, fmt.Errorf("%w, got %d", errCapacityInvalid, maxConcurrent)
	}
	return &Gate{slots: make(chan struct{}, maxConcurrent)}, nil
}

// Submit runs fn once a slot is free, blocking until then or until the
// context is cancelled. The slot is released when fn returns, success or
// failure.
func (g *Gate) Submit(ctx context.Context, fn func() error) error {
	select {
	case g.slots <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}
	g.running.Add(1)
	defer func() {
		g.running.Add(-1)
		<-g.slots
	}()
	return fn()
}

// RunningCount returns the number of tasks currently admitted.
func (g *Gate) RunningCount() int { return int(g.running.Load()) }

// IsFull reports whether every slot is occupied.
func (g *Gate) IsFull() bool { return len(g.slots) == cap(g.slots) }

// Middleware adapts the gate into the transport chain so every endpoint
// call passes through it.
func (g *Gate) Middleware() transport.Middleware {
	return func(next transport.Handler) transport.Handler {
		return transport.HandlerFunc(func(ctx context.Context, req *transport.Request) (*transport.Response, error) {
			var resp *transport.Response
			err := g.Submit(ctx, func() error {
				var innerErr error
				resp, innerErr = next.Handle(ctx, req)
				return innerErr
			})
			if err != nil {
				return nil, err
			}
			return resp, nil
		})
	}
}
