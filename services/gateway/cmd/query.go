package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/redbco/redb-gateway/services/gateway/internal/engine"
)

// queryCmd runs one query against one store
var queryCmd = &cobra.Command{
	Use:   "query [query]",
	Short: "Run one query and print the result",
	Long:  `Run a query against the store named by --db and print the same JSON the HTTP API returns.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, _ := cmd.Flags().GetString("db")
		if db == "" {
			return fmt.Errorf("--db is required")
		}
		req := &engine.ExecuteQueryRequest{DBName: db, Query: args[0]}
		if cmd.Flags().Lookup("limit").Changed {
			limit, _ := cmd.Flags().GetInt("limit")
			req.Limit = &limit
		}

		return withGateway(cmd, func(ctx context.Context, g *gateway) error {
			resp, err := g.engine.Execute(ctx, req)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), resp)
		})
	},
}

func init() {
	queryCmd.Flags().String("db", "", "Name of the configured store")
	queryCmd.Flags().Int("limit", 0, "Row limit, defaults to query.default_limit")
}
