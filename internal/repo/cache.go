// Package repo implements the dual-path repositories: remote-first writes
// with a provisional local fallback when the remote is unreachable, and
// remote-first reads with a stale-tagged local fallback.
package repo

import (
	"sync"

	"github.com/corbin/stride/internal/models"
)

// Cache is the in-memory session mirror of the local store. Every
// successful repository write refreshes it so repeated reads within a
// session skip the database. It is shared between the goal and check-in
// repositories so a goal deletion can drop its check-ins in one place.
type Cache struct {
	mu       sync.RWMutex
	goals    map[string]models.Goal
	checkins map[string]models.CheckIn
}

// NewCache creates an empty session cache.
func NewCache() *Cache {
	return &Cache{
		goals:    make(map[string]models.Goal),
		checkins: make(map[string]models.CheckIn),
	}
}

func (c *Cache) putGoal(g models.Goal) {
	c.mu.Lock()
	c.goals[g.ID.String()] = g
	c.mu.Unlock()
}

func (c *Cache) goal(id models.ID) (models.Goal, bool) {
	c.mu.RLock()
	g, ok := c.goals[id.String()]
	c.mu.RUnlock()
	return g, ok
}

// dropGoal removes a goal and every check-in referencing it.
func (c *Cache) dropGoal(id models.ID) {
	c.mu.Lock()
	delete(c.goals, id.String())
	for key, ci := range c.checkins {
		if ci.GoalID == id {
			delete(c.checkins, key)
		}
	}
	c.mu.Unlock()
}

func (c *Cache) putCheckin(ci models.CheckIn) {
	c.mu.Lock()
	c.checkins[ci.ID.String()] = ci
	c.mu.Unlock()
}

func (c *Cache) checkin(id models.ID) (models.CheckIn, bool) {
	c.mu.RLock()
	ci, ok := c.checkins[id.String()]
	c.mu.RUnlock()
	return ci, ok
}

// Reset empties the cache. The reconciliation engine calls it after a pass,
// since identity rewrites invalidate cached provisional ids.
func (c *Cache) Reset() {
	c.mu.Lock()
	c.goals = make(map[string]models.Goal)
	c.checkins = make(map[string]models.CheckIn)
	c.mu.Unlock()
}
