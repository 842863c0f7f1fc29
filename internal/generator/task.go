package generator

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"

	"shoplist/internal/shopping"
	"shoplist/internal/store"
)

// State is where a generation task is in its lifecycle.
type State string

const (
	StateSending   State = store.GenerationSending
	StateSucceeded State = store.GenerationSucceeded
	StateFailed    State = store.GenerationFailed
	StateCanceled  State = store.GenerationCanceled
)

// Task is one in-flight generation request. It can be canceled at any time;
// a canceled task never writes to the store.
type Task struct {
	ID    uuid.UUID
	Event string

	seq    int64
	cancel context.CancelCauseFunc
	done   chan struct{}

	mu    sync.Mutex
	state State
	items []shopping.Item
	err   error
}

func newTask(gen store.Generation, cancel context.CancelCauseFunc) *Task {
	return &Task{
		ID:     gen.TaskID,
		Event:  gen.Event,
		seq:    gen.Seq,
		cancel: cancel,
		done:   make(chan struct{}),
		state:  StateSending,
	}
}

// Cancel abandons the task. It has no effect once the task finished.
func (t *Task) Cancel() {
	t.cancel(context.Canceled)
}

// Done is closed when the task reaches a final state.
func (t *Task) Done() <-chan struct{} {
	return t.done
}

func (t *Task) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// Result returns the inserted items or the failure. It is only meaningful
// after Done is closed.
func (t *Task) Result() ([]shopping.Item, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.items, t.err
}

// Wait blocks until the task finishes or ctx ends.
func (t *Task) Wait(ctx context.Context) ([]shopping.Item, error) {
	select {
	case <-t.done:
		return t.Result()
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (t *Task) finish(items []shopping.Item, err error) {
	t.mu.Lock()
	t.items, t.err = items, err
	switch {
	case err == nil:
		t.state = StateSucceeded
	case isCanceled(err):
		t.state = StateCanceled
	default:
		t.state = StateFailed
	}
	t.mu.Unlock()
	close(t.done)
}

func isCanceled(err error) bool {
	return errors.Is(err, ErrSuperseded) || errors.Is(err, context.Canceled)
}
