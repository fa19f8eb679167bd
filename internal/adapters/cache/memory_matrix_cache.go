package cache

import (
	"container/list"
	"context"
	"sync"

	"fleet-routing-service/internal/domain"
)

// In-memory least-recently-used cache for finished travel matrices.
// Bounding by entry count keeps long-running deployments from growing
// without limit. Safe for concurrent use.
type MemoryMatrixCache struct {
	mu       sync.Mutex
	capacity int
	order    *list.List
	entries  map[string]*list.Element
}

type memoryEntry struct {
	key    string
	matrix *domain.TravelMatrix
}

func NewMemoryMatrixCache(capacity int) *MemoryMatrixCache {
	if capacity < 1 {
		capacity = 1
	}
	return &MemoryMatrixCache{
		capacity: capacity,
		order:    list.New(),
		entries:  make(map[string]*list.Element, capacity),
	}
}

// Get returns the cached matrix for key and marks it most recently used.
func (c *MemoryMatrixCache) Get(_ context.Context, key string) (*domain.TravelMatrix, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.entries[key]
	if !ok {
		return nil, false, nil
	}
	c.order.MoveToFront(el)
	return el.Value.(*memoryEntry).matrix, true, nil
}

// Put stores the matrix under key, evicting the least recently used entry
// when the cache is full.
func (c *MemoryMatrixCache) Put(_ context.Context, key string, m *domain.TravelMatrix) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.entries[key]; ok {
		el.Value.(*memoryEntry).matrix = m
		c.order.MoveToFront(el)
		return nil
	}

	c.entries[key] = c.order.PushFront(&memoryEntry{key: key, matrix: m})

	for c.order.Len() > c.capacity {
		oldest := c.order.Back()
		if oldest == nil {
			break
		}
		c.order.Remove(oldest)
		delete(c.entries, oldest.Value.(*memoryEntry).key)
	}
	return nil
}

// Len reports the number of cached matrices.
func (c *MemoryMatrixCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}
