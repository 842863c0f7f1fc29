package shopping

import (
	"fmt"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func item(id int64, name string) Item {
	return Item{ID: id, Name: name, Quantity: 1}
}

func TestListReplaysOperations(t *testing.T) {
	l := NewList()
	a, b := item(1, "A"), item(2, "B")

	l.Add(a)
	l.Add(b)
	removed := l.Remove(a.ID)

	assert.Equal(t, 1, removed)
	assert.Equal(t, []Item{b}, l.Items())
}

func TestListRemoveMissingIsNoop(t *testing.T) {
	l := NewList()
	l.Add(item(1, "A"))
	l.Add(item(2, "B"))
	before := l.Items()

	assert.Equal(t, 0, l.Remove(42))
	assert.Equal(t, before, l.Items())
}

func TestListRemoveDeletesAllDuplicates(t *testing.T) {
	l := NewList()
	l.Add(item(7, "first"))
	l.Add(item(8, "other"))
	l.Add(item(7, "second"))

	assert.Equal(t, 2, l.Remove(7))
	assert.Equal(t, []Item{item(8, "other")}, l.Items())
}

func TestListReAddAfterRemove(t *testing.T) {
	l := NewList()
	l.Add(item(1, "A"))
	l.Remove(1)
	l.Add(item(1, "A again"))

	assert.Equal(t, []Item{item(1, "A again")}, l.Items())
}

func TestListClear(t *testing.T) {
	l := NewList()
	for i := 0; i < 5; i++ {
		l.Add(item(int64(i), "x"))
	}
	l.Clear()

	assert.Empty(t, l.Items())
	assert.Equal(t, 0, l.Len())
}

func TestListItemsIsSnapshot(t *testing.T) {
	l := NewList()
	l.Add(item(1, "A"))

	snap := l.Items()
	snap[0].Name = "mutated"
	l.Add(item(2, "B"))

	require.Len(t, snap, 1)
	assert.Equal(t, "A", l.Items()[0].Name)
}

func TestListUpdateKeepsPosition(t *testing.T) {
	l := NewList()
	l.Add(item(1, "A"))
	l.Add(item(2, "B"))
	l.Add(item(3, "C"))

	checked := true
	n := l.Update(2, Patch{Checked: &checked})

	assert.Equal(t, 1, n)
	got := l.Items()
	assert.Equal(t, []string{"A", "B", "C"}, []string{got[0].Name, got[1].Name, got[2].Name})
	assert.True(t, got[1].Checked)
	assert.False(t, got[0].Checked)
}

func TestListUpdateMissing(t *testing.T) {
	l := NewList()
	l.Add(item(1, "A"))
	name := "Z"

	assert.Equal(t, 0, l.Update(9, Patch{Name: &name}))
	assert.Equal(t, "A", l.Items()[0].Name)
}

func TestListReplace(t *testing.T) {
	l := NewList()
	l.Add(item(1, "old"))
	fresh := []Item{item(2, "Tent"), item(3, "Rope")}

	l.Replace(fresh)
	fresh[0].Name = "mutated"

	assert.Equal(t, []string{"Tent", "Rope"}, []string{l.Items()[0].Name, l.Items()[1].Name})
}

func TestPatchApply(t *testing.T) {
	name, qty, cat, checked := "Milk", 3, "dairy", true
	base := Item{ID: 1, Name: "milk", Quantity: 1}

	assert.True(t, Patch{}.Empty())
	assert.Equal(t, base, Patch{}.Apply(base))

	got := Patch{Name: &name, Quantity: &qty, Category: &cat, Checked: &checked}.Apply(base)
	assert.Equal(t, Item{ID: 1, Name: "Milk", Quantity: 3, Category: "dairy", Checked: true}, got)
}

func TestNewItem(t *testing.T) {
	now := time.UnixMilli(1_700_000_000_000)
	it := NewItem("Bread", now)

	assert.Equal(t, "Bread", it.Name)
	assert.Equal(t, 1, it.Quantity)
	assert.Empty(t, it.Category)
	assert.False(t, it.Checked)
	assert.Equal(t, NewItemID(now, "Bread", 0), it.ID)
}

func TestNewItemIDSpreadsNamesAndPositions(t *testing.T) {
	now := time.UnixMilli(1_700_000_000_000)

	assert.NotEqual(t, NewItemID(now, "Tent", 0), NewItemID(now, "Rope", 0))
	assert.NotEqual(t, NewItemID(now, "Tent", 0), NewItemID(now, "Tent", 1))
	assert.Equal(t, NewItemID(now, "Tent", 2), NewItemID(now, "Tent", 2))
}

// TestListMatchesSliceModel replays seeded random operations against a plain
// slice and checks the list after every step.
func TestListMatchesSliceModel(t *testing.T) {
	for _, seed := range []int64{1, 7, 42, 2024} {
		t.Run(fmt.Sprint(seed), func(t *testing.T) {
			rng := rand.New(rand.NewSource(seed))
			l := NewList()
			var model []Item

			for step := 0; step < 500; step++ {
				// a small id space keeps duplicates and misses frequent
				id := int64(rng.Intn(8))
				switch op := rng.Intn(10); {
				case op < 6:
					it := item(id, fmt.Sprintf("item-%d-%d", id, step))
					l.Add(it)
					model = append(model, it)
				case op < 9:
					kept := model[:0:0]
					for _, it := range model {
						if it.ID != id {
							kept = append(kept, it)
						}
					}
					assert.Equal(t, len(model)-len(kept), l.Remove(id), "step %d remove %d", step, id)
					model = kept
				default:
					l.Clear()
					model = nil
				}

				require.Equal(t, len(model), l.Len(), "step %d", step)
				if len(model) == 0 {
					require.Empty(t, l.Items(), "step %d", step)
				} else {
					require.Equal(t, model, l.Items(), "step %d", step)
				}
			}
		})
	}
}
