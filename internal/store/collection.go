package store

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"sync"
)

// Collection caches one unpaginated REST collection in server order.
//
// The mutex guards the slice only; it is never held across a request, so
// overlapping calls apply their results in the order they resolve.
type Collection[T Resource] struct {
	doer Doer
	path string

	mu    sync.Mutex
	items []T
}

// NewCollection creates an empty collection for the endpoint at path, which
// must end in "/".
func NewCollection[T Resource](d Doer, path string) *Collection[T] {
	return &Collection[T]{doer: d, path: path}
}

// Path returns the collection endpoint.
func (c *Collection[T]) Path() string { return c.path }

// FetchAll replaces the local items with the server's list.
func (c *Collection[T]) FetchAll(ctx context.Context) error {
	var items []T
	if err := c.doer.Do(ctx, http.MethodGet, c.path, nil, &items); err != nil {
		return err
	}

	c.mu.Lock()
	c.items = items
	c.mu.Unlock()
	return nil
}

// Create posts payload and appends the created resource.
func (c *Collection[T]) Create(ctx context.Context, payload T) (T, error) {
	var created T
	if payload.ResourceID() != 0 {
		return created, ErrNotPending
	}
	if err := c.doer.Do(ctx, http.MethodPost, c.path, payload, &created); err != nil {
		return created, err
	}
	if created.ResourceID() == 0 {
		return created, ErrMissingID
	}

	c.mu.Lock()
	c.items = append(c.items, created)
	c.mu.Unlock()
	return created, nil
}

// Update puts r and replaces the local entry with the server's answer. found
// reports whether an entry with that id was cached; when it wasn't, the
// updated resource is still returned but the items are left as they are.
func (c *Collection[T]) Update(ctx context.Context, r T) (updated T, found bool, err error) {
	id := r.ResourceID()
	if id == 0 {
		return updated, false, ErrPending
	}
	if err := c.doer.Do(ctx, http.MethodPut, c.itemPath(id), r, &updated); err != nil {
		return updated, false, err
	}
	if updated.ResourceID() != id {
		return updated, false, fmt.Errorf("%w: sent %d, got %d", ErrMissingID, id, updated.ResourceID())
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range c.items {
		if c.items[i].ResourceID() == id {
			c.items[i] = updated
			return updated, true, nil
		}
	}
	return updated, false, nil
}

// Delete removes the resource on the server and every local entry with its id.
// removed reports whether any local entry was dropped.
func (c *Collection[T]) Delete(ctx context.Context, id int) (removed bool, err error) {
	if err := c.doer.Do(ctx, http.MethodDelete, c.itemPath(id), nil, nil); err != nil {
		return false, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	kept := make([]T, 0, len(c.items))
	for _, it := range c.items {
		if it.ResourceID() == id {
			removed = true
			continue
		}
		kept = append(kept, it)
	}
	c.items = kept
	return removed, nil
}

// Items returns a copy of the cached resources.
func (c *Collection[T]) Items() []T {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]T, len(c.items))
	copy(out, c.items)
	return out
}

// Find returns the cached resource with the given id.
func (c *Collection[T]) Find(id int) (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, it := range c.items {
		if it.ResourceID() == id {
			return it, true
		}
	}
	var zero T
	return zero, false
}

// Len returns the number of cached resources.
func (c *Collection[T]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

func (c *Collection[T]) itemPath(id int) string {
	return c.path + strconv.Itoa(id)
}
