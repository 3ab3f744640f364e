package rules

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/dukex/supplyflow/pkg/models"
	"golang.org/x/sync/singleflight"
)

// Source yields the active rules in evaluation order.
type Source interface {
	ActiveRules(ctx context.Context) ([]*models.Rule, error)
}

// Cache serves active rules from memory and reloads them after ttl or an
// explicit Invalidate. Readers may see rules up to ttl old.
type Cache struct {
	source Source
	ttl    time.Duration
	now    func() time.Time

	group singleflight.Group

	mu         sync.RWMutex
	rules      []*models.Rule
	loadedAt   time.Time
	valid      bool
	generation uint64
}

func NewCache(source Source, ttl time.Duration) *Cache {
	return &Cache{source: source, ttl: ttl, now: time.Now}
}

// ActiveRules returns the cached rules, reloading at most once for
// concurrent callers when the cache is stale.
func (c *Cache) ActiveRules(ctx context.Context) ([]*models.Rule, error) {
	if rules, ok := c.fresh(); ok {
		return slices.Clone(rules), nil
	}

	loaded, err, _ := c.group.Do("rules", func() (any, error) {
		if rules, ok := c.fresh(); ok {
			return rules, nil
		}

		c.mu.RLock()
		generation := c.generation
		c.mu.RUnlock()

		rules, err := c.source.ActiveRules(ctx)
		if err != nil {
			return nil, err
		}

		c.mu.Lock()
		defer c.mu.Unlock()

		// An Invalidate during the load makes this result stale already.
		if c.generation == generation {
			c.rules = rules
			c.loadedAt = c.now()
			c.valid = true
		}

		return rules, nil
	})
	if err != nil {
		return nil, err
	}

	return slices.Clone(loaded.([]*models.Rule)), nil
}

func (c *Cache) fresh() ([]*models.Rule, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.valid && (c.ttl <= 0 || c.now().Sub(c.loadedAt) < c.ttl) {
		return c.rules, true
	}

	return nil, false
}

// Invalidate forces the next read to reload.
func (c *Cache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.valid = false
	c.generation++
}
