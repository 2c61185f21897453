// Package cache keeps registration records the recorder looks up on every frame.
package cache

import (
	"sort"
	"sync"

	"github.com/skyward/combat-core/pkg/core"
)

// EnemyCache caches enemies when they spawn so frame handlers can associate
// states without asking the storage backend.
type EnemyCache struct {
	m       sync.RWMutex
	Enemies map[int]core.Enemy
}

func NewEnemyCache() *EnemyCache {
	return &EnemyCache{
		Enemies: make(map[int]core.Enemy),
	}
}

func (c *EnemyCache) Reset() {
	c.m.Lock()
	defer c.m.Unlock()
	c.Enemies = make(map[int]core.Enemy)
}

func (c *EnemyCache) Get(id int) (core.Enemy, bool) {
	c.m.RLock()
	defer c.m.RUnlock()
	e, ok := c.Enemies[id]
	return e, ok
}

func (c *EnemyCache) Has(id int) bool {
	_, ok := c.Get(id)
	return ok
}

// Add stores e, returning false when the id was already registered.
func (c *EnemyCache) Add(e core.Enemy) bool {
	c.m.Lock()
	defer c.m.Unlock()
	if _, ok := c.Enemies[e.ID]; ok {
		return false
	}
	c.Enemies[e.ID] = e
	return true
}

func (c *EnemyCache) Len() int {
	c.m.RLock()
	defer c.m.RUnlock()
	return len(c.Enemies)
}

// IDs returns the registered ids in ascending order.
func (c *EnemyCache) IDs() []int {
	c.m.RLock()
	defer c.m.RUnlock()
	ids := make([]int, 0, len(c.Enemies))
	for id := range c.Enemies {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}
