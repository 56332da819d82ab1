package main

import (
	"context"

	"github.com/spf13/cobra"
)

// schemaCmd prints the aggregated schema snapshot
var schemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Print the schema of every configured store",
	Long:  `Connect to every configured store, introspect all relations and print the snapshot as JSON.`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withGateway(cmd, func(ctx context.Context, g *gateway) error {
			snapshot, err := g.schema.Snapshot(ctx)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), snapshot)
		})
	},
}
