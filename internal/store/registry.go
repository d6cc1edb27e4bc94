package store

import "sync"

// DocumentRegistry hands out one DocumentPages per knowledge id, created on
// first use and kept until disposed.
type DocumentRegistry struct {
	t Transport

	mu     sync.Mutex
	stores map[int]*DocumentPages
}

// NewDocumentRegistry creates an empty registry.
func NewDocumentRegistry(t Transport) *DocumentRegistry {
	return &DocumentRegistry{t: t, stores: make(map[int]*DocumentPages)}
}

// Open returns the document cache for knowledgeID, creating it if needed.
func (r *DocumentRegistry) Open(knowledgeID int) *DocumentPages {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.stores[knowledgeID]; ok {
		return s
	}
	s := NewDocumentPages(r.t, knowledgeID)
	r.stores[knowledgeID] = s
	return s
}

// Dispose forgets the cache for knowledgeID. A later Open starts empty.
func (r *DocumentRegistry) Dispose(knowledgeID int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.stores, knowledgeID)
}

// Len returns the number of open caches.
func (r *DocumentRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.stores)
}
