package main

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"shoplist/internal/app"
	"shoplist/internal/generator"
	"shoplist/internal/httputil"
	"shoplist/internal/queue"
	"shoplist/internal/shopping"
	"shoplist/internal/store"
)

func main() {
	deps, err := app.Build("worker")
	if err != nil {
		slog.Default().Error("failed to build dependencies", "err", err)
		os.Exit(1)
	}
	if deps.Queue == nil {
		deps.Log.Error("worker needs a queue; set QUEUE_PROVIDER=nats")
		os.Exit(1)
	}
	if deps.Config.StoreProvider == "memory" {
		deps.Log.Warn("worker is using the in-memory store; generated lists are not visible to the gateway")
	}
	deps.Log.Info("generate worker starting")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return deps.Queue.Worker(ctx, queue.TaskTypeGenerate, func(ctx context.Context, task queue.Task) error {
			return handleGenerate(ctx, deps, task)
		})
	})

	g.Go(func() error {
		return httputil.ServeHealth(ctx, deps.Log, deps.Config.HealthPort, "worker")
	})

	if err := g.Wait(); err != nil {
		deps.Log.Error("worker stopped", "err", err)
	}
}

func handleGenerate(ctx context.Context, deps app.Deps, task queue.Task) error {
	var payload queue.GeneratePayload
	if err := json.Unmarshal(task.Payload, &payload); err != nil {
		return queue.Permanent(err)
	}
	log := deps.Log.With("queue_task_id", task.ID, "event", payload.Event, "seq", payload.Seq)

	items, err := generate(ctx, deps, payload)
	switch {
	case err == nil:
		log.Info("generated list saved", "items", len(items))
		return nil
	case errors.Is(err, generator.ErrEmptyEvent):
		return queue.Permanent(err)
	case errors.Is(err, generator.ErrSuperseded), errors.Is(err, context.Canceled):
		log.Info("generation abandoned", "reason", generator.Describe(err))
		return nil
	default:
		return err
	}
}

// generate runs the generation the gateway claimed, or claims a new one for
// payloads without a sequence number.
func generate(ctx context.Context, deps app.Deps, payload queue.GeneratePayload) ([]shopping.Item, error) {
	if payload.Seq == 0 {
		return deps.Generator.Generate(ctx, payload.Event)
	}
	t, err := deps.Generator.Resume(ctx, store.Generation{
		Seq:    payload.Seq,
		TaskID: payload.TaskID,
		Event:  payload.Event,
		State:  store.GenerationSending,
	})
	if err != nil {
		return nil, err
	}
	return t.Wait(ctx)
}
