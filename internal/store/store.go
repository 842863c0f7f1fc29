package store

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"shoplist/internal/shopping"
)

var ErrItemNotFound = errors.New("item not found")

// Store defines the shopping list persistence contract. Implementations keep
// insertion order and never enforce id uniqueness.
type Store interface {
	// Add appends an item.
	Add(ctx context.Context, item shopping.Item) error
	// Remove deletes every item with id. Missing ids are not an error.
	Remove(ctx context.Context, id int64) error
	// Update patches every item with id and returns how many changed.
	// Returns ErrItemNotFound when none matched.
	Update(ctx context.Context, id int64, patch shopping.Patch) (int, error)
	List(ctx context.Context) ([]shopping.Item, error)
	Clear(ctx context.Context) error
	// Replace atomically clears the list and inserts items in order.
	Replace(ctx context.Context, items []shopping.Item) error

	// BeginGeneration starts a new generation in GenerationSending. Any
	// earlier generation can no longer commit.
	BeginGeneration(ctx context.Context, taskID uuid.UUID, event string) (Generation, error)
	// CommitGeneration replaces the list with items and marks seq succeeded,
	// atomically, if seq is still the latest generation and still sending.
	// Otherwise it returns ErrGenerationSuperseded or ErrGenerationCanceled
	// and leaves the list alone.
	CommitGeneration(ctx context.Context, seq int64, items []shopping.Item) error
	// FinishGeneration records a final state for seq if it is still the
	// latest and still sending. It is a no-op otherwise.
	FinishGeneration(ctx context.Context, seq int64, state, message string) error
	// CancelGeneration cancels the latest generation if it is still sending
	// and reports whether it did.
	CancelGeneration(ctx context.Context) (Generation, bool, error)
	// CurrentGeneration returns the latest generation; ok is false before the first.
	CurrentGeneration(ctx context.Context) (gen Generation, ok bool, err error)
}
