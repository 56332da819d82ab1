package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/redbco/redb-gateway/pkg/anchor/adapter"
	"github.com/redbco/redb-gateway/pkg/dbcapabilities"
)

func writeYAML(t *testing.T, dir, name string, v interface{}) {
	t.Helper()
	data, err := yaml.Marshal(v)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), data, 0o600))
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(LoadOptions{ConfigDir: t.TempDir()})
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:3111", cfg.Server.Addr)
	assert.Equal(t, 10*time.Minute, cfg.Schema.TTL)
	assert.True(t, cfg.Schema.CacheErrors)
	assert.False(t, cfg.Schema.Parallel)
	assert.Equal(t, 30*time.Second, cfg.Query.Timeout)
	assert.Equal(t, 500, cfg.Query.DefaultLimit)
	assert.Equal(t, 5000, cfg.Query.MaxLimit)
	assert.False(t, cfg.Redis.ReadOnly)
	assert.Empty(t, cfg.Databases)
	assert.Equal(t, "info", cfg.Get("logging.level"))
}

func TestLoadLayering(t *testing.T) {
	dir := t.TempDir()
	writeYAML(t, dir, "default.yaml", map[string]interface{}{
		"server": map[string]interface{}{"addr": "127.0.0.1:9000", "allowed_origin": "https://app.example"},
		"schema": map[string]interface{}{"ttl": "2m"},
		"databases": []map[string]string{
			{"name": "orders", "type": "postgresql", "conn_string": "postgres://u:p@pg:5432/orders"},
			{"name": "cache", "type": "redis", "conn_string": "redis://cache:6379/0"},
		},
	})
	writeYAML(t, dir, "development.yaml", map[string]interface{}{
		"schema":  map[string]interface{}{"parallel": true},
		"logging": map[string]interface{}{"level": "debug"},
	})
	t.Setenv("APP_SERVER__ADDR", "0.0.0.0:8080")
	t.Setenv("APP_REDIS__READ_ONLY", "true")

	cfg, err := Load(LoadOptions{ConfigDir: dir})
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:8080", cfg.Server.Addr)
	assert.Equal(t, "https://app.example", cfg.Server.AllowedOrigin)
	assert.Equal(t, 2*time.Minute, cfg.Schema.TTL)
	assert.True(t, cfg.Schema.Parallel)
	assert.True(t, cfg.Redis.ReadOnly)
	assert.Equal(t, "debug", cfg.Logging.Level)

	require.Len(t, cfg.Databases, 2)
	assert.Equal(t, "orders", cfg.Databases[0].Name)
	kind, ok := cfg.Databases[0].Kind()
	require.True(t, ok)
	assert.Equal(t, dbcapabilities.PostgreSQL, kind)

	cc, err := cfg.ConnectionConfig(cfg.Databases[1])
	require.NoError(t, err)
	assert.Equal(t, dbcapabilities.Redis, cc.DatabaseType)
	assert.Equal(t, "cache", cc.Host())
	assert.Equal(t, 6379, cc.Port())
	assert.True(t, cc.ReadOnly)
	assert.Equal(t, 30*time.Second, cc.QueryTimeout)
}

func TestLoadFlagsOverride(t *testing.T) {
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	fs.String("log-level", "info", "")
	require.NoError(t, fs.Parse([]string{"--log-level", "warn"}))

	cfg, err := Load(LoadOptions{
		ConfigDir: t.TempDir(),
		Flags:     map[string]*pflag.Flag{"logging.level": fs.Lookup("log-level")},
	})
	require.NoError(t, err)
	assert.Equal(t, "warn", cfg.Logging.Level)
}

func TestLoadExplicitFileMissing(t *testing.T) {
	_, err := Load(LoadOptions{ConfigFile: filepath.Join(t.TempDir(), "nope.yaml")})
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		return &Config{
			Schema: SchemaConfig{TTL: time.Minute},
			Query:  QueryConfig{Timeout: time.Second, DefaultLimit: 500, MaxLimit: 5000},
		}
	}

	tests := []struct {
		name      string
		stores    []StoreConfig
		mutate    func(*Config)
		expectErr bool
		unknown   bool
	}{
		{
			name:   "valid",
			stores: []StoreConfig{{Name: "a", Type: "mysql", ConnString: "u@tcp(h:3306)/d"}},
		},
		{
			name:      "missing name",
			stores:    []StoreConfig{{Type: "mysql", ConnString: "x"}},
			expectErr: true,
		},
		{
			name: "duplicate name",
			stores: []StoreConfig{
				{Name: "a", Type: "redis", ConnString: "redis://h"},
				{Name: "a", Type: "redis", ConnString: "redis://h"},
			},
			expectErr: true,
		},
		{
			name:      "unknown type",
			stores:    []StoreConfig{{Name: "a", Type: "oracle", ConnString: "x"}},
			expectErr: true,
			unknown:   true,
		},
		{
			name:      "empty conn string",
			stores:    []StoreConfig{{Name: "a", Type: "scylla", ConnString: " "}},
			expectErr: true,
		},
		{
			name:      "max below default",
			mutate:    func(c *Config) { c.Query.MaxLimit = 10 },
			expectErr: true,
		},
		{
			name:      "zero ttl",
			mutate:    func(c *Config) { c.Schema.TTL = 0 },
			expectErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			cfg.Databases = tt.stores
			if tt.mutate != nil {
				tt.mutate(cfg)
			}
			err := cfg.Validate()
			if !tt.expectErr {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			if tt.unknown {
				assert.Equal(t, adapter.KindUnsupportedType, adapter.KindOf(err))
			}
		})
	}
}
