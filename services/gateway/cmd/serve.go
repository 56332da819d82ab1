package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
)

const shutdownTimeout = 15 * time.Second

// serveCmd runs the HTTP server until interrupted
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP gateway",
	Long:  `Connect to every configured store and serve the HTTP API until SIGINT or SIGTERM.`,
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	cmd.SetContext(ctx)

	return withGateway(cmd, func(ctx context.Context, g *gateway) error {
		g.logger.Infof("Connected to %d of %d configured stores", g.registry.Len(), len(g.config.Databases))
		for name, err := range g.engine.CheckHealth(ctx) {
			g.logger.Warnf("Store %s is unavailable: %v", name, err)
		}

		if err := g.engine.Start(ctx); err != nil {
			return err
		}

		<-ctx.Done()
		g.logger.Info("Shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return g.engine.Stop(shutdownCtx)
	})
}
