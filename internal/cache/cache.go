// Package cache holds the client-side state shared by every flow: the
// logged-in username, the user's spaces and the expenses and categories of
// the open space.
package cache

import "expensetracker/internal/core"

// Cache defines a keyed collection.
type Cache[K comparable, V any] interface {
	// Get retrieves a value from the cache
	Get(key K) (V, bool)

	// Set stores a value in the cache
	Set(key K, data V)

	// Delete removes a key from the cache
	Delete(key K)

	// Size returns the current number of items in the cache
	Size() int
}

var _ Cache[core.ID, core.Space] = (*Collection[core.Space])(nil)

// Collection is an insertion-ordered set of records keyed by id. It is not
// safe for concurrent use; Store guards its collections.
type Collection[T any] struct {
	key   func(T) core.ID
	order []core.ID
	items map[core.ID]*T
}

// NewCollection creates an empty collection that keys records with key.
func NewCollection[T any](key func(T) core.ID) *Collection[T] {
	return &Collection[T]{
		key:   key,
		items: make(map[core.ID]*T),
	}
}

// Find returns the stored record for id, or nil. The pointer aliases the
// stored record.
func (c *Collection[T]) Find(id core.ID) *T {
	return c.items[id]
}

func (c *Collection[T]) Get(id core.ID) (T, bool) {
	if p, ok := c.items[id]; ok {
		return *p, true
	}
	var zero T
	return zero, false
}

// Set stores v under id. An existing record keeps its position.
func (c *Collection[T]) Set(id core.ID, v T) {
	if p, ok := c.items[id]; ok {
		*p = v
		return
	}
	c.order = append(c.order, id)
	c.items[id] = &v
}

// Append stores v at the end, keyed by its own id.
func (c *Collection[T]) Append(v T) {
	c.Set(c.key(v), v)
}

// Delete removes id. Removing an absent id is a no-op.
func (c *Collection[T]) Delete(id core.ID) {
	if _, ok := c.items[id]; !ok {
		return
	}
	delete(c.items, id)
	for i, k := range c.order {
		if k == id {
			c.order = append(c.order[:i:i], c.order[i+1:]...)
			break
		}
	}
}

// Replace drops every record and stores items in order.
func (c *Collection[T]) Replace(items []T) {
	c.Clear()
	for _, v := range items {
		c.Append(v)
	}
}

func (c *Collection[T]) Clear() {
	c.order = nil
	c.items = make(map[core.ID]*T)
}

// Items returns copies of the records in insertion order.
func (c *Collection[T]) Items() []T {
	out := make([]T, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, *c.items[id])
	}
	return out
}

func (c *Collection[T]) Size() int {
	return len(c.order)
}
