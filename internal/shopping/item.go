package shopping

import (
	"time"

	"github.com/cespare/xxhash/v2"
)

// Item is one entry on the shopping list.
type Item struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Quantity int    `json:"quantity"`
	Category string `json:"category"`
	Checked  bool   `json:"is_checked"`
}

// NewItem returns an item with default quantity and a generated id.
func NewItem(name string, now time.Time) Item {
	return Item{
		ID:       NewItemID(now, name, 0),
		Name:     name,
		Quantity: 1,
	}
}

// NewItemID derives an id from the wall clock, a hash of the name and the
// item's position in its batch. Collisions are unlikely, not impossible.
func NewItemID(now time.Time, name string, position int) int64 {
	return now.UnixMilli() + int64(int32(xxhash.Sum64String(name))) + int64(position)
}

// Patch describes a partial update; nil fields are left untouched.
type Patch struct {
	Name     *string `json:"name,omitempty"`
	Quantity *int    `json:"quantity,omitempty"`
	Category *string `json:"category,omitempty"`
	Checked  *bool   `json:"is_checked,omitempty"`
}

// Empty reports whether the patch changes nothing.
func (p Patch) Empty() bool {
	return p.Name == nil && p.Quantity == nil && p.Category == nil && p.Checked == nil
}

// Apply returns a copy of item with the patch applied.
func (p Patch) Apply(item Item) Item {
	if p.Name != nil {
		item.Name = *p.Name
	}
	if p.Quantity != nil {
		item.Quantity = *p.Quantity
	}
	if p.Category != nil {
		item.Category = *p.Category
	}
	if p.Checked != nil {
		item.Checked = *p.Checked
	}
	return item
}
