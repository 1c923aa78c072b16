package store

import (
	"sort"
	"sync"

	"ragbot/internal/models"
)

// Catalog is the in-memory index of ingested documents. It holds summaries
// only; full records live in per-document files and the catalog is
// rebuildable from them.
type Catalog struct {
	mu   sync.RWMutex
	docs map[string]models.DocumentSummary
}

func NewCatalog() *Catalog {
	return &Catalog{docs: make(map[string]models.DocumentSummary)}
}

func (c *Catalog) Register(s models.DocumentSummary) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.docs[s.ID] = s
}

func (c *Catalog) Get(id string) (models.DocumentSummary, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	s, ok := c.docs[id]
	return s, ok
}

// Remove deletes the catalog entry and reports whether it existed.
func (c *Catalog) Remove(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.docs[id]
	delete(c.docs, id)
	return ok
}

// List returns all summaries, newest upload first.
func (c *Catalog) List() []models.DocumentSummary {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]models.DocumentSummary, 0, len(c.docs))
	for _, s := range c.docs {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UploadedAt.After(out[j].UploadedAt) })
	return out
}

func (c *Catalog) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.docs)
}
