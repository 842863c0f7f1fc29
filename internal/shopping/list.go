package shopping

// List is an ordered, in-memory collection of items.
//
// A List has a single owner and no internal locking; callers that share one
// across goroutines must serialize access themselves.
type List struct {
	items []Item
}

// NewList returns an empty list.
func NewList() *List {
	return &List{}
}

// Add appends item. Nothing is validated or deduplicated.
func (l *List) Add(item Item) {
	l.items = append(l.items, item)
}

// Remove deletes every item with the given id and returns how many went.
func (l *List) Remove(id int64) int {
	kept := l.items[:0]
	for _, it := range l.items {
		if it.ID != id {
			kept = append(kept, it)
		}
	}
	removed := len(l.items) - len(kept)
	// zero the tail so dropped items don't linger in the backing array
	clear(l.items[len(kept):])
	l.items = kept
	return removed
}

// Update applies patch to every item with the given id, in place.
func (l *List) Update(id int64, patch Patch) int {
	n := 0
	for i := range l.items {
		if l.items[i].ID == id {
			l.items[i] = patch.Apply(l.items[i])
			n++
		}
	}
	return n
}

// Items returns a copy of the contents in insertion order.
func (l *List) Items() []Item {
	out := make([]Item, len(l.items))
	copy(out, l.items)
	return out
}

// Len returns the number of items.
func (l *List) Len() int {
	return len(l.items)
}

// Clear empties the list.
func (l *List) Clear() {
	l.items = nil
}

// Replace clears the list and appends items in order.
func (l *List) Replace(items []Item) {
	l.items = append([]Item(nil), items...)
}
