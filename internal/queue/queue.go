package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"shoplist/internal/retry"
)

// TaskType enumerates supported task categories.
type TaskType string

const (
	TaskTypeGenerate TaskType = "generate"
)

// Task is a unit of work handed from the gateway to a worker.
type Task struct {
	ID          uuid.UUID
	Type        TaskType
	Payload     []byte
	Attempts    int
	MaxAttempts int
	NotBefore   time.Time
}

// GeneratePayload asks a worker to build the list for Event. Seq and TaskID
// identify a generation already claimed in the shared store; Seq is zero when
// the worker should claim one itself.
type GeneratePayload struct {
	Event  string    `json:"event"`
	Seq    int64     `json:"seq,omitempty"`
	TaskID uuid.UUID `json:"task_id"`
}

// NewGenerateTask builds a generate task, reusing the generation's task id
// when there is one. Completion calls are never retried, so the task gets a
// single attempt.
func NewGenerateTask(payload GeneratePayload) (Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return Task{}, err
	}
	id := payload.TaskID
	if id == uuid.Nil {
		id = uuid.New()
	}
	return Task{
		ID:          id,
		Type:        TaskTypeGenerate,
		Payload:     body,
		MaxAttempts: 1,
	}, nil
}

// ErrPermanent marks handler errors that redelivery cannot fix.
var ErrPermanent = errors.New("permanent task failure")

// Permanent wraps err so the task is dropped instead of retried.
func Permanent(err error) error {
	return fmt.Errorf("%w: %w", ErrPermanent, err)
}

type Handler func(context.Context, Task) error

// Queue exposes a minimal contract to enqueue and consume tasks.
type Queue interface {
	Enqueue(ctx context.Context, task Task) error
	Worker(ctx context.Context, taskType TaskType, handler Handler) error
}

// EnqueueWithRetry attempts to enqueue with retries and exponential backoff.
func EnqueueWithRetry(ctx context.Context, q Queue, task Task, attempts int, base time.Duration) error {
	if attempts <= 0 {
		attempts = 1
	}
	for attempt := 0; attempt < attempts; attempt++ {
		if err := q.Enqueue(ctx, task); err == nil {
			return nil
		} else if attempt == attempts-1 {
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(retry.ExponentialBackoff(attempt, base)):
		}
	}
	return nil
}
