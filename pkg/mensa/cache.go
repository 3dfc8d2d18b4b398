package mensa

import (
	"context"
	"errors"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/sipeed/picotune/pkg/logger"
)

type planKey struct {
	canteen int
	day     string
}

type plan struct {
	meals     []Meal
	err       error // ErrNoPlan is cached too
	fetchedAt time.Time
}

// PlanCache keeps fetched plans for a TTL.
type PlanCache struct {
	src Source
	ttl time.Duration
	now func() time.Time

	mu    sync.RWMutex
	plans map[planKey]plan
}

func NewPlanCache(src Source, ttl time.Duration) *PlanCache {
	return &PlanCache{
		src:   src,
		ttl:   ttl,
		now:   time.Now,
		plans: make(map[planKey]plan),
	}
}

// Meals returns the cached plan or fetches it.
func (c *PlanCache) Meals(ctx context.Context, canteenID int, day time.Time) ([]Meal, error) {
	key := planKey{canteen: canteenID, day: day.Format(dayLayout)}

	c.mu.RLock()
	p, ok := c.plans[key]
	c.mu.RUnlock()
	if ok && c.now().Sub(p.fetchedAt) < c.ttl {
		return p.meals, p.err
	}

	meals, err := c.src.Meals(ctx, canteenID, day)
	if err != nil && !errors.Is(err, ErrNoPlan) {
		return nil, err
	}

	c.mu.Lock()
	c.plans[key] = plan{meals: meals, err: err, fetchedAt: c.now()}
	c.mu.Unlock()
	return meals, err
}

// Prime fetches every canteen/day pair concurrently. Days without a plan are
// not an error.
func (c *PlanCache) Prime(ctx context.Context, canteenIDs []int, days []time.Time) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for _, id := range canteenIDs {
		for _, day := range days {
			g.Go(func() error {
				_, err := c.Meals(gctx, id, day)
				if errors.Is(err, ErrNoPlan) {
					return nil
				}
				return err
			})
		}
	}
	if err := g.Wait(); err != nil {
		logger.WarnCF("mensa", "Priming plan cache failed", map[string]interface{}{
			"error": err.Error(),
		})
		return err
	}
	return nil
}

var _ Source = (*PlanCache)(nil)
