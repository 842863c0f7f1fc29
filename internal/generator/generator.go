package generator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"shoplist/internal/cache"
	"shoplist/internal/llm"
	"shoplist/internal/metrics"
	"shoplist/internal/shopping"
	"shoplist/internal/store"
)

// recordTimeout bounds writing a failed or canceled outcome to the store.
const recordTimeout = 5 * time.Second

// Generator turns an event name into a shopping list via a completion API.
// At most one task is in flight per Generator: starting a new one cancels
// the previous. Generators sharing a store also supersede each other through
// the store's generation token.
type Generator struct {
	llm   llm.Client
	store store.Store
	log   *slog.Logger
	now   func() time.Time

	cache    cache.Cache
	cacheTTL time.Duration
	model    string

	mu      sync.Mutex
	current *Task
}

type Option func(*Generator)

// WithCache reuses replies for the same model and event for ttl.
func WithCache(c cache.Cache, model string, ttl time.Duration) Option {
	return func(g *Generator) {
		g.cache, g.model, g.cacheTTL = c, model, ttl
	}
}

func WithLogger(log *slog.Logger) Option {
	return func(g *Generator) { g.log = log }
}

// WithClock overrides the time source used for item ids.
func WithClock(now func() time.Time) Option {
	return func(g *Generator) { g.now = now }
}

func New(client llm.Client, st store.Store, opts ...Option) *Generator {
	g := &Generator{
		llm:   client,
		store: st,
		log:   slog.Default(),
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Generate runs a task for event and waits for it.
func (g *Generator) Generate(ctx context.Context, event string) ([]shopping.Item, error) {
	t, err := g.Start(ctx, event)
	if err != nil {
		return nil, err
	}
	return t.Wait(ctx)
}

// Start claims a new generation for event and runs it in the background.
// Any older task in flight is canceled with ErrSuperseded.
func (g *Generator) Start(ctx context.Context, event string) (*Task, error) {
	gen, err := g.Claim(ctx, event)
	if err != nil {
		return nil, err
	}
	return g.launch(ctx, gen), nil
}

// Claim records a new generation for event in the store without running it.
// From then on only the claimed generation may write the list, in this
// process or any other sharing the store.
func (g *Generator) Claim(ctx context.Context, event string) (store.Generation, error) {
	event = strings.TrimSpace(event)
	if event == "" {
		return store.Generation{}, ErrEmptyEvent
	}
	gen, err := g.store.BeginGeneration(ctx, uuid.New(), event)
	if err != nil {
		return store.Generation{}, fmt.Errorf("failed to claim generation: %w", err)
	}
	g.mu.Lock()
	g.supersedeOlder(gen.Seq)
	g.mu.Unlock()
	return gen, nil
}

// Resume runs a generation claimed earlier, possibly by another process. It
// fails with ErrSuperseded or context.Canceled when gen can no longer commit.
func (g *Generator) Resume(ctx context.Context, gen store.Generation) (*Task, error) {
	latest, ok, err := g.store.CurrentGeneration(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read generation: %w", err)
	}
	switch {
	case !ok || latest.Seq != gen.Seq:
		return nil, ErrSuperseded
	case latest.State != store.GenerationSending:
		return nil, context.Canceled
	}
	return g.launch(ctx, latest), nil
}

// Cancel cancels the latest generation in the store and abandons the local
// task, reporting whether a generation was still in flight.
func (g *Generator) Cancel(ctx context.Context) (bool, error) {
	_, canceled, err := g.store.CancelGeneration(ctx)

	g.mu.Lock()
	local := g.current != nil
	if local {
		g.current.Cancel()
		g.current = nil
	}
	g.mu.Unlock()

	if err != nil {
		return local, fmt.Errorf("failed to cancel generation: %w", err)
	}
	return canceled, nil
}

// Current returns the in-flight task, or nil when idle.
func (g *Generator) Current() *Task {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.current
}

func (g *Generator) launch(ctx context.Context, gen store.Generation) *Task {
	taskCtx, cancel := context.WithCancelCause(ctx)
	t := newTask(gen, cancel)

	g.mu.Lock()
	g.supersedeOlder(t.seq)
	if g.current == nil {
		g.current = t
	} else {
		// a newer generation already runs here
		t.cancel(ErrSuperseded)
	}
	g.mu.Unlock()

	go g.run(taskCtx, t)
	return t
}

// supersedeOlder cancels the current task if its generation is older than
// seq. g.mu must be held.
func (g *Generator) supersedeOlder(seq int64) {
	if g.current != nil && g.current.seq < seq {
		g.current.cancel(ErrSuperseded)
		g.current = nil
	}
}

func (g *Generator) run(ctx context.Context, t *Task) {
	log := g.log.With("task_id", t.ID, "event", t.Event, "seq", t.seq)
	start := time.Now()

	items, cached, err := g.generate(ctx, t)
	if err != nil && ctx.Err() != nil {
		err = context.Cause(ctx)
	}
	t.cancel(nil)

	g.mu.Lock()
	if g.current == t {
		g.current = nil
	}
	g.mu.Unlock()

	if err != nil && !errors.Is(err, ErrSuperseded) {
		g.record(ctx, t, err)
	}
	t.finish(items, err)

	switch t.State() {
	case StateSucceeded:
		outcome := metrics.OutcomeSucceeded
		if cached {
			outcome = metrics.OutcomeCached
		}
		metrics.ObserveGeneration(outcome, len(items))
		log.Info("list generated", "items", len(items), "cached", cached, "duration_ms", time.Since(start).Milliseconds())
	case StateCanceled:
		metrics.ObserveGeneration(metrics.OutcomeCanceled, 0)
		log.Info("generation canceled", "reason", err)
	default:
		metrics.ObserveGeneration(metrics.OutcomeFailed, 0)
		log.Warn("generation failed", "err", err)
	}
}

// record stores how t ended. The store ignores it once a newer generation
// was begun.
func (g *Generator) record(ctx context.Context, t *Task, cause error) {
	state := store.GenerationFailed
	if isCanceled(cause) {
		state = store.GenerationCanceled
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), recordTimeout)
	defer cancel()
	if err := g.store.FinishGeneration(ctx, t.seq, state, Describe(cause)); err != nil {
		g.log.Warn("failed to record generation outcome", "task_id", t.ID, "err", err)
	}
}

func (g *Generator) generate(ctx context.Context, t *Task) ([]shopping.Item, bool, error) {
	if ctx.Err() != nil {
		return nil, false, context.Cause(ctx)
	}
	reply, cached, err := g.reply(ctx, t.Event)
	if err != nil {
		return nil, false, err
	}
	items := ParseReply(reply, g.now())
	if err := g.commit(ctx, t, items); err != nil {
		return nil, false, err
	}
	return items, cached, nil
}

func (g *Generator) reply(ctx context.Context, event string) (string, bool, error) {
	key := ""
	if g.cache != nil && g.cacheTTL > 0 {
		key = cache.GenerateCacheKey(g.model, event)
		reply, ok, err := g.cache.GetReply(ctx, key)
		if err != nil {
			g.log.Warn("reply cache read failed", "err", err)
		} else if ok {
			return reply, true, nil
		}
	}

	reply, err := g.llm.Complete(ctx, SystemPrompt, BuildPrompt(event))
	if err != nil {
		return "", false, err
	}

	if key != "" {
		if err := g.cache.SetReply(ctx, key, reply, g.cacheTTL); err != nil {
			g.log.Warn("reply cache write failed", "err", err)
		}
	}
	return reply, false, nil
}

// commit replaces the stored list if t's generation is still the latest one
// and nobody canceled it. The store makes that check atomic with the write.
func (g *Generator) commit(ctx context.Context, t *Task, items []shopping.Item) error {
	if ctx.Err() != nil {
		return context.Cause(ctx)
	}
	err := g.store.CommitGeneration(ctx, t.seq, items)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, store.ErrGenerationSuperseded):
		return ErrSuperseded
	case errors.Is(err, store.ErrGenerationCanceled):
		return context.Canceled
	case ctx.Err() != nil:
		return context.Cause(ctx)
	default:
		return &SaveError{Err: err}
	}
}
