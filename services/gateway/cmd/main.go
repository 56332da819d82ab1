package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"runtime"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/redbco/redb-gateway/pkg/anchor/adapter"
	"github.com/redbco/redb-gateway/pkg/config"
	"github.com/redbco/redb-gateway/pkg/logger"
	"github.com/redbco/redb-gateway/services/gateway/internal/database"
	"github.com/redbco/redb-gateway/services/gateway/internal/engine"
	"github.com/redbco/redb-gateway/services/gateway/internal/schema"
)

const serviceName = "gateway"

var (
	configDir  string
	configFile string
	logLevel   string
	// Build information, set with -ldflags
	Version   = "dev"
	GitCommit = "unknown"
	BuildTime = "unknown"
)

// printVersionInfo displays detailed version information
func printVersionInfo(out io.Writer) {
	fmt.Fprintf(out, "reDB gateway %s\n", Version)
	fmt.Fprintf(out, "Built: %s, from commit: %s\n", BuildTime, GitCommit)
	fmt.Fprintf(out, "Go version: %s\n", runtime.Version())
	fmt.Fprintf(out, "OS/Arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
}

// rootCmd serves the gateway when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "redb-gateway",
	Short: "Read-only query gateway over heterogeneous data stores",
	Long: "Serves a uniform HTTP API for listing, introspecting and querying PostgreSQL, MySQL, " +
		"OpenSearch, Elasticsearch, MongoDB, Redis and Cassandra stores.",
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Flags().Lookup("version").Changed {
			printVersionInfo(cmd.OutOrStdout())
			return nil
		}
		return runServe(cmd, args)
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configDir, "config-dir", "config", "Directory holding default.yaml and development.yaml")
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "Read this config file instead of the config directory")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error)")

	rootCmd.Flags().Bool("version", false, "Show version information and exit")

	setupCommands()
}

func main() {
	Execute()
}

// loadConfig reads configuration with the persistent flags applied.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	return config.Load(config.LoadOptions{
		ConfigDir:  configDir,
		ConfigFile: configFile,
		Flags: map[string]*pflag.Flag{
			"logging.level": changedFlag(cmd, "log-level"),
		},
	})
}

// changedFlag returns the flag only when it was set on the command line so
// unset flags never shadow file or environment values.
func changedFlag(cmd *cobra.Command, name string) *pflag.Flag {
	f := cmd.Flags().Lookup(name)
	if f == nil || !f.Changed {
		return nil
	}
	return f
}

func newLogger(cfg *config.Config) (*logger.Logger, error) {
	return logger.NewWithOptions(serviceName, Version, logger.Options{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	})
}

// connectionConfigs converts the configured stores, logging and skipping
// entries whose connection string cannot be parsed.
func connectionConfigs(cfg *config.Config, log *logger.Logger) []adapter.ConnectionConfig {
	configs := make([]adapter.ConnectionConfig, 0, len(cfg.Databases))
	for _, store := range cfg.Databases {
		cc, err := cfg.ConnectionConfig(store)
		if err != nil {
			log.Errorf("Skipping store %s: %v", store.Name, err)
			continue
		}
		configs = append(configs, cc)
	}
	return configs
}

func storeNames(cfg *config.Config) []string {
	names := make([]string, 0, len(cfg.Databases))
	for _, store := range cfg.Databases {
		names = append(names, store.Name)
	}
	return names
}

// gateway is everything a command needs to answer requests.
type gateway struct {
	config   *config.Config
	logger   *logger.Logger
	registry *database.Registry
	schema   *schema.Service
	engine   *engine.Engine
}

func openGateway(ctx context.Context, cfg *config.Config, log *logger.Logger) *gateway {
	registry := database.Build(ctx, connectionConfigs(cfg, log), database.DefaultAdapters(), log)
	aggregator := schema.NewAggregator(registry, storeNames(cfg), cfg.Schema.Parallel, cfg.Query.Timeout, log)
	service := schema.NewService(aggregator, cfg.Schema.TTL, cfg.Schema.CacheErrors)
	return &gateway{
		config:   cfg,
		logger:   log,
		registry: registry,
		schema:   service,
		engine:   engine.NewEngine(cfg, registry, service, log),
	}
}

func (g *gateway) Close() {
	if err := g.registry.Close(); err != nil {
		g.logger.Warnf("Error closing connections: %v", err)
	}
	_ = g.logger.Sync()
}

// withGateway loads configuration, opens every store and runs fn.
func withGateway(cmd *cobra.Command, fn func(ctx context.Context, g *gateway) error) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	log, err := newLogger(cfg)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	g := openGateway(ctx, cfg, log)
	defer g.Close()

	return fn(ctx, g)
}

func printJSON(out io.Writer, v interface{}) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
