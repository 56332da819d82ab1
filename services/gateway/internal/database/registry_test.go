package database

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/redbco/redb-gateway/pkg/anchor/adapter"
	"github.com/redbco/redb-gateway/pkg/dbcapabilities"
	"github.com/redbco/redb-gateway/pkg/logger"
	"github.com/redbco/redb-gateway/services/gateway/internal/database/dbtest"
)

func storeConfig(name string, kind dbcapabilities.DatabaseType) adapter.ConnectionConfig {
	return adapter.ConnectionConfig{Name: name, DatabaseType: kind}
}

func TestBuild(t *testing.T) {
	pg := &dbtest.Connection{StoreName: "main"}
	cache := &dbtest.Connection{StoreName: "cache", Kind: dbcapabilities.Redis}

	registry := Build(context.Background(), []adapter.ConnectionConfig{
		storeConfig("main", dbcapabilities.PostgreSQL),
		storeConfig("broken", dbcapabilities.MySQL),
		storeConfig("cache", dbcapabilities.Redis),
		storeConfig("main", dbcapabilities.PostgreSQL),
	}, dbtest.Registry(pg, cache), logger.NewNop())

	assert.Equal(t, []string{"main", "cache"}, registry.Names())
	assert.Equal(t, 2, registry.Len())

	conn, ok := registry.Lookup("cache")
	require.True(t, ok)
	assert.Equal(t, dbcapabilities.Redis, conn.Type())

	_, ok = registry.Lookup("broken")
	assert.False(t, ok, "failed stores are never registered")

	_, ok = registry.Lookup("unknown")
	assert.False(t, ok)

	require.NoError(t, registry.Close())
	assert.True(t, pg.Closed())
	assert.True(t, cache.Closed())
}

func TestNamesIsACopy(t *testing.T) {
	registry := Build(context.Background(), []adapter.ConnectionConfig{
		storeConfig("a", dbcapabilities.PostgreSQL),
	}, dbtest.Registry(&dbtest.Connection{StoreName: "a"}), nil)

	names := registry.Names()
	names[0] = "mutated"
	assert.Equal(t, []string{"a"}, registry.Names())
}

func TestDefaultAdapters(t *testing.T) {
	adapters := DefaultAdapters()
	for _, id := range dbcapabilities.IDs() {
		assert.True(t, adapters.IsRegistered(id), id)
	}

	_, err := adapters.GetByName("oracle")
	assert.Equal(t, adapter.KindUnsupportedType, adapter.KindOf(err))
}

func TestOpenInvalidConnectionString(t *testing.T) {
	_, err := Open(context.Background(), adapter.ConnectionConfig{
		Name:             "cache",
		DatabaseType:     dbcapabilities.Redis,
		ConnectionString: "not-a-url",
	}, nil)
	require.Error(t, err)
	assert.Equal(t, adapter.KindConnection, adapter.KindOf(err))
}
