package docstore

import "sync"

// Registry maps a document id to the original filename it was uploaded
// under. Implementations need not persist across restarts.
type Registry interface {
	Remember(docID, filename string)
	Lookup(docID string) (string, bool)
}

// MemoryRegistry is a process-lifetime Registry. The most recent upload
// of a given document wins.
type MemoryRegistry struct {
	mu    sync.RWMutex
	names map[string]string
}

// NewMemoryRegistry returns an empty registry.
func NewMemoryRegistry() *MemoryRegistry {
	return &MemoryRegistry{names: make(map[string]string)}
}

func (r *MemoryRegistry) Remember(docID, filename string) {
	r.mu.Lock()
	r.names[docID] = filename
	r.mu.Unlock()
}

func (r *MemoryRegistry) Lookup(docID string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	name, ok := r.names[docID]
	return name, ok
}
