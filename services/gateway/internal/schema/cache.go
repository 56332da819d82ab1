package schema

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/redbco/redb-gateway/pkg/anchor/adapter"
	"github.com/redbco/redb-gateway/pkg/unifiedmodel"
)

// DefaultTTL is how long a snapshot stays fresh.
const DefaultTTL = 10 * time.Minute

const fullSchemaKey = "full_schema"

// ComputeFunc builds a fresh snapshot.
type ComputeFunc func(ctx context.Context) (*unifiedmodel.FullSchemaSnapshot, error)

type entry struct {
	snapshot *unifiedmodel.FullSchemaSnapshot
	err      *adapter.CachedError
	expires  time.Time
}

// Cache holds a single snapshot for ttl. Concurrent misses share one
// computation, and its failure, when cacheErrors is set, is cached as an
// adapter.CachedError so every caller sees the same value.
type Cache struct {
	compute     ComputeFunc
	ttl         time.Duration
	cacheErrors bool
	now         func() time.Time

	group singleflight.Group

	mu    sync.RWMutex
	entry *entry
}

// NewCache creates a cache around compute. A non-positive ttl means
// DefaultTTL.
func NewCache(compute ComputeFunc, ttl time.Duration, cacheErrors bool) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Cache{
		compute:     compute,
		ttl:         ttl,
		cacheErrors: cacheErrors,
		now:         time.Now,
	}
}

func (c *Cache) lookup() (*entry, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.entry == nil || !c.now().Before(c.entry.expires) {
		return nil, false
	}
	return c.entry, true
}

func (e *entry) result() (*unifiedmodel.FullSchemaSnapshot, error) {
	if e.err != nil {
		return nil, e.err
	}
	return e.snapshot, nil
}

// GetOrCompute returns the cached snapshot, computing it on a miss.
func (c *Cache) GetOrCompute(ctx context.Context) (*unifiedmodel.FullSchemaSnapshot, error) {
	if e, ok := c.lookup(); ok {
		return e.result()
	}

	ch := c.group.DoChan(fullSchemaKey, func() (interface{}, error) {
		// A caller may have filled the entry while this one waited.
		if e, ok := c.lookup(); ok {
			return e, nil
		}

		// The computation outlives any single caller that gives up.
		snapshot, err := c.compute(context.WithoutCancel(ctx))
		e := &entry{snapshot: snapshot, err: adapter.ToCached(err), expires: c.now().Add(c.ttl)}
		if err == nil || c.cacheErrors {
			c.mu.Lock()
			c.entry = e
			c.mu.Unlock()
		}
		return e, nil
	})

	select {
	case res := <-ch:
		return res.Val.(*entry).result()
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Invalidate drops the cached snapshot. A computation already in flight
// still stores its result.
func (c *Cache) Invalidate() {
	c.mu.Lock()
	c.entry = nil
	c.mu.Unlock()
	c.group.Forget(fullSchemaKey)
}
