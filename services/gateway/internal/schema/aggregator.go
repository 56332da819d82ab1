package schema

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redbco/redb-gateway/pkg/anchor/adapter"
	"github.com/redbco/redb-gateway/pkg/logger"
	"github.com/redbco/redb-gateway/pkg/unifiedmodel"
)

// Stores resolves store names to live connections.
type Stores interface {
	Lookup(name string) (adapter.Connection, bool)
}

// Aggregator introspects every configured store into one snapshot.
type Aggregator struct {
	stores       Stores
	names        []string
	parallel     bool
	storeTimeout time.Duration
	logger       *logger.Logger
}

// NewAggregator creates an aggregator over names in configuration order.
// Names without a live connection are skipped when aggregating. Each store
// gets at most storeTimeout to list and introspect its relations; a
// non-positive value means adapter.DefaultQueryTimeout.
func NewAggregator(stores Stores, names []string, parallel bool, storeTimeout time.Duration, log *logger.Logger) *Aggregator {
	if log == nil {
		log = logger.NewNop()
	}
	if storeTimeout <= 0 {
		storeTimeout = adapter.DefaultQueryTimeout
	}
	return &Aggregator{
		stores:       stores,
		names:        append([]string(nil), names...),
		parallel:     parallel,
		storeTimeout: storeTimeout,
		logger:       log,
	}
}

// Aggregate builds the snapshot. Store and relation failures are logged
// and skipped; only cancellation fails the whole snapshot.
func (a *Aggregator) Aggregate(ctx context.Context) (*unifiedmodel.FullSchemaSnapshot, error) {
	results := make([]*unifiedmodel.StoreSchema, len(a.names))

	if a.parallel {
		var wg sync.WaitGroup
		for i, name := range a.names {
			wg.Add(1)
			go func(i int, name string) {
				defer wg.Done()
				results[i] = a.store(ctx, name)
			}(i, name)
		}
		wg.Wait()
	} else {
		for i, name := range a.names {
			results[i] = a.store(ctx, name)
		}
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	snapshot := &unifiedmodel.FullSchemaSnapshot{Databases: make([]unifiedmodel.StoreSchema, 0, len(results))}
	for _, s := range results {
		if s != nil {
			snapshot.Databases = append(snapshot.Databases, *s)
		}
	}
	return snapshot, nil
}

func (a *Aggregator) store(ctx context.Context, name string) *unifiedmodel.StoreSchema {
	conn, ok := a.stores.Lookup(name)
	if !ok {
		a.logger.Warnf("schema: store %s has no connection, skipping", name)
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, a.storeTimeout)
	defer cancel()

	relations, err := conn.ListRelations(ctx)
	if err != nil {
		a.logger.Errorf("schema: listing relations of %s failed: %v", name, err)
		return nil
	}

	s := &unifiedmodel.StoreSchema{
		Name:   name,
		Type:   conn.Type(),
		Tables: make([]unifiedmodel.RelationSchema, 0, len(relations)),
	}
	for _, relation := range relations {
		table, err := conn.Introspect(ctx, relation.Name)
		if err != nil {
			a.logger.WithFields(map[string]string{
				"store":    name,
				"relation": relation.Name,
			}).Warn(fmt.Sprintf("schema: introspection failed: %v", err))
			continue
		}
		s.Tables = append(s.Tables, *table)
	}
	return s
}

// Service couples the aggregator with its cache.
type Service struct {
	aggregator *Aggregator
	cache      *Cache
}

// NewService creates a cached schema service.
func NewService(aggregator *Aggregator, ttl time.Duration, cacheErrors bool) *Service {
	return &Service{
		aggregator: aggregator,
		cache:      NewCache(aggregator.Aggregate, ttl, cacheErrors),
	}
}

// Snapshot returns the cached snapshot, computing it when stale.
func (s *Service) Snapshot(ctx context.Context) (*unifiedmodel.FullSchemaSnapshot, error) {
	return s.cache.GetOrCompute(ctx)
}

// Refresh drops the cached snapshot and computes a new one.
func (s *Service) Refresh(ctx context.Context) (*unifiedmodel.FullSchemaSnapshot, error) {
	s.cache.Invalidate()
	return s.cache.GetOrCompute(ctx)
}
