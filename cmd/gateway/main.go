package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"shoplist/internal/app"
	"shoplist/internal/generator"
	"shoplist/internal/httputil"
	"shoplist/internal/queue"
	"shoplist/internal/shopping"
	"shoplist/internal/store"
)

type createItemRequest struct {
	ID       *int64 `json:"id"`
	Name     string `json:"name" validate:"required,max=200"`
	Quantity int    `json:"quantity" validate:"omitempty,min=1"`
	Category string `json:"category" validate:"max=100"`
	Checked  bool   `json:"is_checked"`
}

type updateItemRequest struct {
	Name     *string `json:"name" validate:"omitnil,min=1,max=200"`
	Quantity *int    `json:"quantity" validate:"omitnil,min=1"`
	Category *string `json:"category" validate:"omitnil,max=100"`
	Checked  *bool   `json:"is_checked"`
}

type generateRequest struct {
	Event string `json:"event" validate:"required,max=200"`
	Async bool   `json:"async"`
}

func main() {
	deps, err := app.Build("gateway")
	if err != nil {
		slog.Default().Error("failed to build dependencies", "err", err)
		os.Exit(1)
	}

	addr := fmt.Sprintf(":%d", deps.Config.Port)
	deps.Log.Info("gateway listening", "addr", addr)
	if err := http.ListenAndServe(addr, newRouter(deps)); err != nil {
		deps.Log.Error("server failed", "err", err)
	}
}

func newRouter(deps app.Deps) http.Handler {
	r := httputil.NewRouter(deps.Log)

	r.Route("/api/items", func(r chi.Router) {
		r.Get("/", listItemsHandler(deps))
		r.Post("/", addItemHandler(deps))
		r.Delete("/", clearItemsHandler(deps))
		r.Patch("/{id}", updateItemHandler(deps))
		r.Delete("/{id}", removeItemHandler(deps))
	})
	r.Post("/api/generate", generateHandler(deps))
	r.Get("/api/generate", generationStatusHandler(deps))
	r.Delete("/api/generate", cancelGenerateHandler(deps))
	r.Delete("/api/generate/cache", purgeCacheHandler(deps))
	return r
}

func listItemsHandler(deps app.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		items, err := deps.Store.List(r.Context())
		if err != nil {
			httputil.FailJSON(deps.Log, w, "failed to load items", err, http.StatusInternalServerError)
			return
		}
		if items == nil {
			items = []shopping.Item{}
		}
		httputil.WriteJSON(w, http.StatusOK, map[string]any{"items": items})
	}
}

func addItemHandler(deps app.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createItemRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httputil.FailJSON(deps.Log, w, "invalid request body", err, http.StatusBadRequest)
			return
		}
		req.Name = strings.TrimSpace(req.Name)
		if err := httputil.Validator.Struct(req); err != nil {
			httputil.ValidationError(deps.Log, w, err)
			return
		}

		item := shopping.NewItem(req.Name, time.Now())
		if req.ID != nil {
			item.ID = *req.ID
		}
		if req.Quantity > 0 {
			item.Quantity = req.Quantity
		}
		item.Category = req.Category
		item.Checked = req.Checked

		if err := deps.Store.Add(r.Context(), item); err != nil {
			httputil.FailJSON(deps.Log, w, "failed to add item", err, http.StatusInternalServerError)
			return
		}
		httputil.WriteJSON(w, http.StatusCreated, item)
	}
}

func updateItemHandler(deps app.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := itemID(r)
		if err != nil {
			httputil.FailJSON(deps.Log, w, "invalid item id", err, http.StatusBadRequest)
			return
		}
		var req updateItemRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httputil.FailJSON(deps.Log, w, "invalid request body", err, http.StatusBadRequest)
			return
		}
		if err := httputil.Validator.Struct(req); err != nil {
			httputil.ValidationError(deps.Log, w, err)
			return
		}
		patch := shopping.Patch{
			Name:     req.Name,
			Quantity: req.Quantity,
			Category: req.Category,
			Checked:  req.Checked,
		}
		if patch.Empty() {
			httputil.FailJSON(deps.Log, w, "nothing to update", nil, http.StatusBadRequest)
			return
		}

		n, err := deps.Store.Update(r.Context(), id, patch)
		if errors.Is(err, store.ErrItemNotFound) {
			httputil.FailJSON(deps.Log.With("item_id", id), w, "item not found", err, http.StatusNotFound)
			return
		}
		if err != nil {
			httputil.FailJSON(deps.Log.With("item_id", id), w, "failed to update item", err, http.StatusInternalServerError)
			return
		}
		httputil.WriteJSON(w, http.StatusOK, map[string]any{"id": id, "updated": n})
	}
}

func removeItemHandler(deps app.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := itemID(r)
		if err != nil {
			httputil.FailJSON(deps.Log, w, "invalid item id", err, http.StatusBadRequest)
			return
		}
		if err := deps.Store.Remove(r.Context(), id); err != nil {
			httputil.FailJSON(deps.Log.With("item_id", id), w, "failed to remove item", err, http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func clearItemsHandler(deps app.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := deps.Store.Clear(r.Context()); err != nil {
			httputil.FailJSON(deps.Log, w, "failed to clear items", err, http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func generateHandler(deps app.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		var req generateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httputil.FailJSON(deps.Log, w, "invalid request body", err, http.StatusBadRequest)
			return
		}
		if err := httputil.Validator.Struct(req); err != nil {
			httputil.ValidationError(deps.Log, w, err)
			return
		}

		if req.Async {
			enqueueGenerate(ctx, deps, w, req.Event)
			return
		}

		task, err := deps.Generator.Start(ctx, req.Event)
		if err != nil {
			failGenerate(deps.Log, w, err)
			return
		}
		items, err := task.Wait(ctx)
		if err != nil {
			failGenerate(deps.Log.With("task_id", task.ID), w, err)
			return
		}
		if items == nil {
			items = []shopping.Item{}
		}
		httputil.WriteJSON(w, http.StatusOK, map[string]any{
			"task_id": task.ID.String(),
			"items":   items,
		})
	}
}

// enqueueGenerate claims the generation here so that a later request, sync or
// async, supersedes it even before a worker picks it up.
func enqueueGenerate(ctx context.Context, deps app.Deps, w http.ResponseWriter, event string) {
	if deps.Queue == nil {
		httputil.FailJSON(deps.Log, w, "async generation is not enabled", nil, http.StatusServiceUnavailable)
		return
	}
	gen, err := deps.Generator.Claim(ctx, event)
	if err != nil {
		failGenerate(deps.Log, w, err)
		return
	}
	log := deps.Log.With("task_id", gen.TaskID, "seq", gen.Seq)

	task, err := queue.NewGenerateTask(queue.GeneratePayload{Event: gen.Event, Seq: gen.Seq, TaskID: gen.TaskID})
	if err == nil {
		err = queue.EnqueueWithRetry(ctx, deps.Queue, task, 3, 200*time.Millisecond)
	}
	if err != nil {
		if ferr := deps.Store.FinishGeneration(context.WithoutCancel(ctx), gen.Seq, store.GenerationFailed, "failed to enqueue generation"); ferr != nil {
			log.Warn("failed to record enqueue failure", "err", ferr)
		}
		httputil.FailJSON(log, w, "failed to enqueue generation; please retry", err, http.StatusServiceUnavailable)
		return
	}
	httputil.WriteJSON(w, http.StatusAccepted, map[string]any{"task_id": gen.TaskID.String()})
}

func generationStatusHandler(deps app.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		gen, ok, err := deps.Store.CurrentGeneration(r.Context())
		if err != nil {
			httputil.FailJSON(deps.Log, w, "failed to load generation", err, http.StatusInternalServerError)
			return
		}
		if !ok {
			httputil.FailJSON(deps.Log, w, "no generation yet", nil, http.StatusNotFound)
			return
		}
		httputil.WriteJSON(w, http.StatusOK, gen)
	}
}

func cancelGenerateHandler(deps app.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		canceled, err := deps.Generator.Cancel(r.Context())
		if err != nil {
			httputil.FailJSON(deps.Log, w, "failed to cancel generation", err, http.StatusInternalServerError)
			return
		}
		deps.Log.Info("generation cancel requested", "canceled", canceled)
		httputil.WriteJSON(w, http.StatusOK, map[string]any{"canceled": canceled})
	}
}

func purgeCacheHandler(deps app.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if deps.Cache == nil {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		if err := deps.Cache.Purge(r.Context()); err != nil {
			httputil.FailJSON(deps.Log, w, "failed to purge reply cache", err, http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// failGenerate maps generator errors to a status and a message the client can show as-is.
func failGenerate(log *slog.Logger, w http.ResponseWriter, err error) {
	status := http.StatusBadGateway
	switch {
	case errors.Is(err, generator.ErrEmptyEvent):
		status = http.StatusBadRequest
	case errors.Is(err, generator.ErrSuperseded), errors.Is(err, context.Canceled):
		status = http.StatusConflict
	}
	httputil.FailJSON(log, w, generator.Describe(err), err, status)
}

func itemID(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
}
