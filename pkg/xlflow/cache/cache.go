// Package cache provides an in-memory MappingCache keyed by structure
// fingerprint.
package cache

import (
	"context"
	"sync"

	"github.com/ukaji3/xlflow-go/pkg/xlflow/models"
)

// DefaultMaxEntries bounds a Memory cache created with a non-positive size.
const DefaultMaxEntries = 1024

// Memory is a bounded mapping cache. When full, the oldest inserted entry
// is evicted. It is safe for concurrent use.
type Memory struct {
	mu      sync.Mutex
	max     int
	entries map[string]models.MappingResult
	order   []string
}

// NewMemory returns a cache holding at most maxEntries mappings.
func NewMemory(maxEntries int) *Memory {
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}
	return &Memory{
		max:     maxEntries,
		entries: make(map[string]models.MappingResult, maxEntries),
	}
}

// Get returns a copy of the mapping stored under key.
func (c *Memory) Get(_ context.Context, key string) (models.MappingResult, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	m, ok := c.entries[key]
	if !ok {
		return models.MappingResult{}, false
	}
	return m.Clone(), true
}

// Put stores m under key, replacing any previous value.
func (c *Memory) Put(_ context.Context, key string, m models.MappingResult) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.entries[key]; !ok {
		for len(c.order) >= c.max {
			oldest := c.order[0]
			c.order = c.order[1:]
			delete(c.entries, oldest)
		}
		c.order = append(c.order, key)
	}
	c.entries[key] = m.Clone()
}

// Len returns the number of cached mappings.
func (c *Memory) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
