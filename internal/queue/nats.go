package queue

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"

	"shoplist/internal/retry"
)

const (
	subjectPrefix = "shoplist.tasks."
	groupPrefix   = "shoplist-workers-"

	defaultMaxAttempts = 5
	redeliveryBase     = time.Second
)

// publisher is the slice of *nats.Conn used to send tasks.
type publisher interface {
	Publish(subject string, data []byte) error
}

// NewNATS constructs a queue on core NATS subjects with one queue group per task type.
func NewNATS(log *slog.Logger, nc *nats.Conn) Queue {
	return &natsQueue{log: log, nc: nc, pub: nc}
}

type natsQueue struct {
	log *slog.Logger
	nc  *nats.Conn
	pub publisher
}

func subject(taskType TaskType) string {
	return subjectPrefix + string(taskType)
}

func (q *natsQueue) Enqueue(_ context.Context, task Task) error {
	if task.ID == uuid.Nil {
		task.ID = uuid.New()
	}
	if task.Type == "" {
		return errors.New("task type required")
	}
	body, err := json.Marshal(task)
	if err != nil {
		return err
	}
	return q.pub.Publish(subject(task.Type), body)
}

// Worker consumes taskType until ctx ends, then drains the subscription so
// in-flight handlers finish.
func (q *natsQueue) Worker(ctx context.Context, taskType TaskType, handler Handler) error {
	sub, err := q.nc.QueueSubscribe(subject(taskType), groupPrefix+string(taskType), func(msg *nats.Msg) {
		q.handleMessage(ctx, msg.Data, handler)
	})
	if err != nil {
		return err
	}
	q.log.Info("worker subscribed", "subject", sub.Subject, "group", sub.Queue)
	<-ctx.Done()
	return sub.Drain()
}

func (q *natsQueue) handleMessage(ctx context.Context, data []byte, handler Handler) {
	var task Task
	if err := json.Unmarshal(data, &task); err != nil {
		q.log.Error("failed to decode task", "err", err)
		return
	}
	log := q.log.With("id", task.ID, "type", task.Type)

	if wait := time.Until(task.NotBefore); wait > 0 {
		select {
		case <-ctx.Done():
			log.Warn("worker stopping; task dropped before start")
			return
		case <-time.After(wait):
		}
	}

	err := handler(ctx, task)
	switch {
	case err == nil:
		return
	case errors.Is(err, ErrPermanent):
		log.Error("task rejected", "err", err)
	default:
		q.retryTask(ctx, task, err)
	}
}

func (q *natsQueue) retryTask(ctx context.Context, task Task, handlerErr error) {
	task.Attempts++
	if task.MaxAttempts == 0 {
		task.MaxAttempts = defaultMaxAttempts
	}

	if task.Attempts < task.MaxAttempts {
		task.NotBefore = time.Now().Add(retry.ExponentialBackoff(task.Attempts, redeliveryBase))
		if err := q.Enqueue(ctx, task); err != nil {
			q.log.Error("failed to re-enqueue task after failure", "id", task.ID, "type", task.Type, "original_err", handlerErr, "enqueue_err", err)
		}
		return
	}
	q.log.Error("task permanently failed", "id", task.ID, "type", task.Type, "attempts", task.Attempts, "original_err", handlerErr)
}
