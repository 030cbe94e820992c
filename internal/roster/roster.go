// Package roster caches the list of agents eligible for lead rotation.
package roster

import (
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/funildigital/funil/internal/models"
	"gorm.io/gorm"
)

// Cache is a time-bounded view of the active, selling-capable agents.
// Availability beats freshness: when a refresh fails or comes back empty,
// a previous non-empty roster keeps being served so lead capture never
// stalls on a roster hiccup.
type Cache struct {
	db    *gorm.DB
	ttl   time.Duration
	roles []string

	mu        sync.Mutex
	agents    []models.Agent
	fetchedAt time.Time
	now       func() time.Time
}

// New creates a roster cache over db for the given selling-capable roles.
func New(db *gorm.DB, ttl time.Duration, roles []string) *Cache {
	return &Cache{
		db:    db,
		ttl:   ttl,
		roles: roles,
		now:   time.Now,
	}
}

// Active returns the current roster, sorted by name. The ordering is
// deterministic across refreshes so rotation indices stay meaningful.
// An empty result means "no agents available" and callers degrade to the
// sentinel agent.
func (c *Cache) Active() []models.Agent {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.agents != nil && c.now().Sub(c.fetchedAt) < c.ttl {
		return c.snapshot()
	}

	fresh, err := c.query()
	if err != nil || len(fresh) == 0 {
		if err != nil {
			log.Printf("roster: refresh failed, serving cached roster: %v", err)
		}
		if len(c.agents) > 0 {
			return c.snapshot()
		}
		return nil
	}

	c.agents = fresh
	c.fetchedAt = c.now()
	return c.snapshot()
}

// Refresh forces a reload regardless of TTL. Used by the background
// scheduler to keep the cache warm between requests.
func (c *Cache) Refresh() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	fresh, err := c.query()
	if err != nil {
		return err
	}
	if len(fresh) == 0 && len(c.agents) > 0 {
		return fmt.Errorf("roster: refresh returned no active agents, keeping %d cached", len(c.agents))
	}
	c.agents = fresh
	c.fetchedAt = c.now()
	return nil
}

func (c *Cache) query() ([]models.Agent, error) {
	var agents []models.Agent
	if err := c.db.Where("active = ? AND role IN ?", true, c.roles).
		Order("name ASC").Find(&agents).Error; err != nil {
		return nil, fmt.Errorf("roster: query active agents: %w", err)
	}
	return agents, nil
}

// snapshot returns a copy so callers can't mutate the cached slice.
func (c *Cache) snapshot() []models.Agent {
	out := make([]models.Agent, len(c.agents))
	copy(out, c.agents)
	return out
}
