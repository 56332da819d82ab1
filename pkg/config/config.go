package config

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/redbco/redb-gateway/pkg/anchor/adapter"
	"github.com/redbco/redb-gateway/pkg/dbcapabilities"
)

const (
	// EnvPrefix is prepended to every environment override, e.g.
	// APP_SERVER__ADDR overrides server.addr.
	EnvPrefix = "APP"

	// EnvKeySeparator joins nested keys in environment variable names.
	EnvKeySeparator = "__"

	defaultConfigName     = "default"
	developmentConfigName = "development"
)

// Config is the complete gateway configuration.
type Config struct {
	Server    ServerConfig  `mapstructure:"server" yaml:"server"`
	Auth      AuthConfig    `mapstructure:"auth" yaml:"auth"`
	Databases []StoreConfig `mapstructure:"databases" yaml:"databases"`
	Schema    SchemaConfig  `mapstructure:"schema" yaml:"schema"`
	Query     QueryConfig   `mapstructure:"query" yaml:"query"`
	Redis     RedisConfig   `mapstructure:"redis" yaml:"redis"`
	Logging   LoggingConfig `mapstructure:"logging" yaml:"logging"`

	v *viper.Viper
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Addr          string        `mapstructure:"addr" yaml:"addr"`
	AllowedOrigin string        `mapstructure:"allowed_origin" yaml:"allowed_origin"`
	ReadTimeout   time.Duration `mapstructure:"read_timeout" yaml:"read_timeout"`
	WriteTimeout  time.Duration `mapstructure:"write_timeout" yaml:"write_timeout"`
}

// AuthConfig configures bearer token authentication. An empty secret
// disables authentication.
type AuthConfig struct {
	JWTSecret string `mapstructure:"jwt_secret" yaml:"jwt_secret"`
}

// StoreConfig names one backing store.
type StoreConfig struct {
	Name       string `mapstructure:"name" yaml:"name"`
	Type       string `mapstructure:"type" yaml:"type"`
	ConnString string `mapstructure:"conn_string" yaml:"conn_string"`
}

// Kind resolves the configured type to its canonical store kind.
func (s StoreConfig) Kind() (dbcapabilities.DatabaseType, bool) {
	return dbcapabilities.ParseID(s.Type)
}

// SchemaConfig tunes the schema snapshot cache.
type SchemaConfig struct {
	TTL         time.Duration `mapstructure:"ttl" yaml:"ttl"`
	CacheErrors bool          `mapstructure:"cache_errors" yaml:"cache_errors"`
	Parallel    bool          `mapstructure:"parallel" yaml:"parallel"`
}

// QueryConfig bounds query execution.
type QueryConfig struct {
	Timeout      time.Duration `mapstructure:"timeout" yaml:"timeout"`
	DefaultLimit int           `mapstructure:"default_limit" yaml:"default_limit"`
	MaxLimit     int           `mapstructure:"max_limit" yaml:"max_limit"`
}

// RedisConfig holds key-value specific switches.
type RedisConfig struct {
	ReadOnly bool `mapstructure:"read_only" yaml:"read_only"`
}

// LoggingConfig selects level and encoding of the process logger.
type LoggingConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
}

// LoadOptions controls where configuration is read from.
type LoadOptions struct {
	// ConfigDir holds default.yaml and the optional development.yaml.
	ConfigDir string
	// ConfigFile, when set, is read instead of the directory lookup.
	ConfigFile string
	// Flags maps config keys to command line flags that override them.
	Flags map[string]*pflag.Flag
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", "0.0.0.0:3111")
	v.SetDefault("server.allowed_origin", "*")
	v.SetDefault("server.read_timeout", 30*time.Second)
	v.SetDefault("server.write_timeout", 60*time.Second)

	v.SetDefault("auth.jwt_secret", "")

	v.SetDefault("schema.ttl", 10*time.Minute)
	v.SetDefault("schema.cache_errors", true)
	v.SetDefault("schema.parallel", false)

	v.SetDefault("query.timeout", 30*time.Second)
	v.SetDefault("query.default_limit", 500)
	v.SetDefault("query.max_limit", 5000)

	v.SetDefault("redis.read_only", false)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
}

// Load reads configuration from defaults, the config directory, the
// environment and flags, in increasing order of precedence. The result is
// validated before it is returned.
func Load(opts LoadOptions) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetConfigType("yaml")

	if opts.ConfigFile != "" {
		v.SetConfigFile(opts.ConfigFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("error reading config file %s: %w", opts.ConfigFile, err)
		}
	} else {
		dir := opts.ConfigDir
		if dir == "" {
			dir = "config"
		}
		v.AddConfigPath(dir)
		v.SetConfigName(defaultConfigName)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("error reading config file %s: %w", v.ConfigFileUsed(), err)
			}
			// No default.yaml; defaults, env and flags still apply.
		}

		dev := filepath.Join(dir, developmentConfigName+".yaml")
		if err := mergeOptional(v, dev); err != nil {
			return nil, err
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", EnvKeySeparator))
	v.AutomaticEnv()

	for key, flag := range opts.Flags {
		if flag == nil {
			continue
		}
		if err := v.BindPFlag(key, flag); err != nil {
			return nil, fmt.Errorf("failed to bind flag for %s: %w", key, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg.v = v

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func mergeOptional(v *viper.Viper, path string) error {
	ov := viper.New()
	ov.SetConfigFile(path)
	ov.SetConfigType("yaml")
	if err := ov.ReadInConfig(); err != nil {
		if isNotExist(err) {
			return nil
		}
		return fmt.Errorf("error reading config file %s: %w", path, err)
	}
	if err := v.MergeConfigMap(ov.AllSettings()); err != nil {
		return fmt.Errorf("failed to merge %s: %w", path, err)
	}
	return nil
}

// Validate checks store entries and numeric bounds.
func (c *Config) Validate() error {
	seen := make(map[string]struct{}, len(c.Databases))
	for i, db := range c.Databases {
		name := strings.TrimSpace(db.Name)
		if name == "" {
			return fmt.Errorf("databases[%d]: name is required", i)
		}
		if _, dup := seen[name]; dup {
			return fmt.Errorf("databases[%d]: duplicate store name %q", i, name)
		}
		seen[name] = struct{}{}

		if _, ok := db.Kind(); !ok {
			return &adapter.UnsupportedTypeError{Store: name, Type: db.Type}
		}
		if strings.TrimSpace(db.ConnString) == "" {
			return fmt.Errorf("databases[%d] (%s): conn_string is required", i, name)
		}
	}

	if c.Query.DefaultLimit <= 0 {
		return fmt.Errorf("query.default_limit must be positive, got %d", c.Query.DefaultLimit)
	}
	if c.Query.MaxLimit < c.Query.DefaultLimit {
		return fmt.Errorf("query.max_limit (%d) must not be below query.default_limit (%d)",
			c.Query.MaxLimit, c.Query.DefaultLimit)
	}
	if c.Query.Timeout < 0 {
		return fmt.Errorf("query.timeout must not be negative")
	}
	if c.Schema.TTL <= 0 {
		return fmt.Errorf("schema.ttl must be positive")
	}
	return nil
}

// Get returns the string value of any key, including ones without a typed
// field, for ad-hoc lookups.
func (c *Config) Get(key string) string {
	if c.v == nil {
		return ""
	}
	return c.v.GetString(key)
}

// ConnectionConfig builds the adapter configuration for one store entry.
func (c *Config) ConnectionConfig(store StoreConfig) (adapter.ConnectionConfig, error) {
	kind, ok := store.Kind()
	if !ok {
		return adapter.ConnectionConfig{}, &adapter.UnsupportedTypeError{Store: store.Name, Type: store.Type}
	}
	details, err := dbcapabilities.ParseConnectionString(kind, store.ConnString)
	if err != nil {
		return adapter.ConnectionConfig{}, fmt.Errorf("store %q: %w", store.Name, err)
	}
	return adapter.ConnectionConfig{
		Name:             store.Name,
		DatabaseType:     kind,
		ConnectionString: store.ConnString,
		Details:          details,
		QueryTimeout:     c.Query.Timeout,
		DefaultLimit:     c.Query.DefaultLimit,
		MaxLimit:         c.Query.MaxLimit,
		ReadOnly:         c.Redis.ReadOnly,
	}, nil
}

func isNotExist(err error) bool {
	var notFound viper.ConfigFileNotFoundError
	return errors.Is(err, fs.ErrNotExist) || errors.As(err, &notFound)
}
