package perform

import (
	"sync"

	"github.com/hmori/go-hall-metrics/internal/model"
)

// Loader is the history source behind the cache. *storage.DB satisfies it.
type Loader interface {
	Load(venue, unitID string) (model.UnitHistory, error)
}

// Cache is a read-through history cache shared by the aggregation and
// pattern passes of one scoring run. Invalidate is wired to History Store
// writes so a merge during a run cannot serve stale rows.
type Cache struct {
	loader Loader

	mu      sync.RWMutex
	entries map[string]model.UnitHistory
}

func NewCache(loader Loader) *Cache {
	return &Cache{loader: loader, entries: make(map[string]model.UnitHistory)}
}

// History returns the cached history for a unit, loading it on first use.
func (c *Cache) History(venue, unitID string) (model.UnitHistory, error) {
	key := venue + "/" + unitID

	c.mu.RLock()
	h, ok := c.entries[key]
	c.mu.RUnlock()
	if ok {
		return h, nil
	}

	h, err := c.loader.Load(venue, unitID)
	if err != nil {
		return h, err
	}
	c.mu.Lock()
	c.entries[key] = h
	c.mu.Unlock()
	return h, nil
}

// Invalidate drops one unit's cached history.
func (c *Cache) Invalidate(venue, unitID string) {
	c.mu.Lock()
	delete(c.entries, venue+"/"+unitID)
	c.mu.Unlock()
}
