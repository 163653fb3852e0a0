package service

import (
	"sort"
	"sync"

	"github.com/remedy-kit/remedy/domain"
)

// overlayEntry holds both sides of one staged file
type overlayEntry struct {
	original string
	proposed string
}

// MemoryOverlay implements domain.OverlayFS in memory, keyed by
// workspace-relative path. Real files are never read or written here.
type MemoryOverlay struct {
	mu      sync.RWMutex
	entries map[string]overlayEntry
}

// NewMemoryOverlay creates an empty overlay
func NewMemoryOverlay() *MemoryOverlay {
	return &MemoryOverlay{
		entries: make(map[string]overlayEntry),
	}
}

// Stage records the original and proposed content for a path, replacing any
// previous entry.
func (o *MemoryOverlay) Stage(rel, original, proposed string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.entries[rel] = overlayEntry{original: original, proposed: proposed}
}

// Read resolves an overlay URI to its content. The proposed scheme returns
// the staged content; the read-only scheme returns the original.
func (o *MemoryOverlay) Read(uri string) (string, error) {
	scheme, rel, err := domain.ParseOverlayURI(uri)
	if err != nil {
		return "", err
	}

	o.mu.RLock()
	entry, ok := o.entries[rel]
	o.mu.RUnlock()
	if !ok {
		return "", domain.NewFileNotFoundError(uri, nil)
	}

	if scheme == domain.OriginalScheme {
		return entry.original, nil
	}
	return entry.proposed, nil
}

// Proposed returns the staged proposed content for a path
func (o *MemoryOverlay) Proposed(rel string) (string, bool) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	entry, ok := o.entries[rel]
	if !ok {
		return "", false
	}
	return entry.proposed, true
}

// Original returns the content the proposal was computed from
func (o *MemoryOverlay) Original(rel string) (string, bool) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	entry, ok := o.entries[rel]
	if !ok {
		return "", false
	}
	return entry.original, true
}

// Remove drops the entry for a path
func (o *MemoryOverlay) Remove(rel string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	delete(o.entries, rel)
}

// Reset drops all entries
func (o *MemoryOverlay) Reset() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.entries = make(map[string]overlayEntry)
}

// List returns the staged paths in sorted order
func (o *MemoryOverlay) List() []string {
	o.mu.RLock()
	defer o.mu.RUnlock()
	paths := make([]string, 0, len(o.entries))
	for rel := range o.entries {
		paths = append(paths, rel)
	}
	sort.Strings(paths)
	return paths
}
