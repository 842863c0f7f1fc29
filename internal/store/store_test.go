package store

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shoplist/internal/shopping"
)

// runStoreContract exercises behaviour every backend must share.
// newStore must return an empty store.
func runStoreContract(t *testing.T, newStore func(t *testing.T) Store) {
	ctx := context.Background()
	a := shopping.Item{ID: 1, Name: "Tent", Quantity: 1}
	b := shopping.Item{ID: 2, Name: "Sleeping bag", Quantity: 1}
	c := shopping.Item{ID: 3, Name: "Flashlight", Quantity: 2, Category: "gear"}

	t.Run("AddThenRemove", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.Add(ctx, a))
		require.NoError(t, s.Add(ctx, b))
		require.NoError(t, s.Remove(ctx, a.ID))

		got, err := s.List(ctx)
		require.NoError(t, err)
		assert.Equal(t, []shopping.Item{b}, got)
	})

	t.Run("RemoveMissingIsNoop", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.Add(ctx, a))
		require.NoError(t, s.Remove(ctx, 999))

		got, err := s.List(ctx)
		require.NoError(t, err)
		assert.Equal(t, []shopping.Item{a}, got)
	})

	t.Run("RemoveAllDuplicates", func(t *testing.T) {
		s := newStore(t)
		dup := shopping.Item{ID: a.ID, Name: "Tent (spare)", Quantity: 1}
		require.NoError(t, s.Add(ctx, a))
		require.NoError(t, s.Add(ctx, b))
		require.NoError(t, s.Add(ctx, dup))
		require.NoError(t, s.Remove(ctx, a.ID))

		got, err := s.List(ctx)
		require.NoError(t, err)
		assert.Equal(t, []shopping.Item{b}, got)
	})

	t.Run("Clear", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.Add(ctx, a))
		require.NoError(t, s.Add(ctx, b))
		require.NoError(t, s.Clear(ctx))

		got, err := s.List(ctx)
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("UpdateInPlace", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.Add(ctx, a))
		require.NoError(t, s.Add(ctx, b))
		require.NoError(t, s.Add(ctx, c))

		checked := true
		n, err := s.Update(ctx, b.ID, shopping.Patch{Checked: &checked})
		require.NoError(t, err)
		assert.Equal(t, 1, n)

		got, err := s.List(ctx)
		require.NoError(t, err)
		want := b
		want.Checked = true
		assert.Equal(t, []shopping.Item{a, want, c}, got)
	})

	t.Run("UpdateMissing", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.Add(ctx, a))
		name := "x"
		_, err := s.Update(ctx, 404, shopping.Patch{Name: &name})
		assert.ErrorIs(t, err, ErrItemNotFound)
	})

	t.Run("Replace", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.Add(ctx, a))
		require.NoError(t, s.Replace(ctx, []shopping.Item{c, b}))

		got, err := s.List(ctx)
		require.NoError(t, err)
		assert.Equal(t, []shopping.Item{c, b}, got)
	})

	t.Run("ReplaceWithNothingEmpties", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.Add(ctx, a))
		require.NoError(t, s.Replace(ctx, nil))

		got, err := s.List(ctx)
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("NoGenerationYet", func(t *testing.T) {
		s := newStore(t)
		_, ok, err := s.CurrentGeneration(ctx)
		require.NoError(t, err)
		assert.False(t, ok)

		_, canceled, err := s.CancelGeneration(ctx)
		require.NoError(t, err)
		assert.False(t, canceled)
	})

	t.Run("GenerationCommits", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.Add(ctx, a))
		taskID := uuid.New()
		gen, err := s.BeginGeneration(ctx, taskID, "camping")
		require.NoError(t, err)
		assert.Equal(t, int64(1), gen.Seq)
		assert.Equal(t, taskID, gen.TaskID)
		assert.Equal(t, GenerationSending, gen.State)

		require.NoError(t, s.CommitGeneration(ctx, gen.Seq, []shopping.Item{b, c}))

		got, err := s.List(ctx)
		require.NoError(t, err)
		assert.Equal(t, []shopping.Item{b, c}, got)

		current, ok, err := s.CurrentGeneration(ctx)
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, Generation{Seq: 1, TaskID: taskID, Event: "camping", State: GenerationSucceeded}, current)
	})

	t.Run("NewerGenerationSupersedes", func(t *testing.T) {
		s := newStore(t)
		older, err := s.BeginGeneration(ctx, uuid.New(), "camping")
		require.NoError(t, err)
		newer, err := s.BeginGeneration(ctx, uuid.New(), "picnic")
		require.NoError(t, err)
		assert.Greater(t, newer.Seq, older.Seq)

		require.NoError(t, s.CommitGeneration(ctx, newer.Seq, []shopping.Item{a}))
		assert.ErrorIs(t, s.CommitGeneration(ctx, older.Seq, []shopping.Item{b, c}), ErrGenerationSuperseded)

		// a stale failure report leaves the newer state alone
		require.NoError(t, s.FinishGeneration(ctx, older.Seq, GenerationFailed, "boom"))

		got, err := s.List(ctx)
		require.NoError(t, err)
		assert.Equal(t, []shopping.Item{a}, got)
		current, _, err := s.CurrentGeneration(ctx)
		require.NoError(t, err)
		assert.Equal(t, GenerationSucceeded, current.State)
		assert.Empty(t, current.Error)
	})

	t.Run("CanceledGenerationCannotCommit", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.Add(ctx, a))
		gen, err := s.BeginGeneration(ctx, uuid.New(), "camping")
		require.NoError(t, err)

		canceled, ok, err := s.CancelGeneration(ctx)
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, gen.Seq, canceled.Seq)
		assert.Equal(t, GenerationCanceled, canceled.State)

		assert.ErrorIs(t, s.CommitGeneration(ctx, gen.Seq, []shopping.Item{b}), ErrGenerationCanceled)

		_, ok, err = s.CancelGeneration(ctx)
		require.NoError(t, err)
		assert.False(t, ok)

		got, err := s.List(ctx)
		require.NoError(t, err)
		assert.Equal(t, []shopping.Item{a}, got)
	})

	t.Run("FinishRecordsFailure", func(t *testing.T) {
		s := newStore(t)
		gen, err := s.BeginGeneration(ctx, uuid.New(), "camping")
		require.NoError(t, err)
		require.NoError(t, s.FinishGeneration(ctx, gen.Seq, GenerationFailed, "server busy"))

		current, ok, err := s.CurrentGeneration(ctx)
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, GenerationFailed, current.State)
		assert.Equal(t, "server busy", current.Error)
	})
}

func TestMemoryStore(t *testing.T) {
	runStoreContract(t, func(t *testing.T) Store { return NewMemory() })
}
