package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/redbco/redb-gateway/services/gateway/internal/sanitizer"
)

// sanitizeCmd bounds a SQL statement without contacting any store
var sanitizeCmd = &cobra.Command{
	Use:   "sanitize [sql]",
	Short: "Validate and bound a SQL statement",
	Long:  `Check that a statement is a single read-only query and print it with its row limit applied.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		name, _ := cmd.Flags().GetString("dialect")
		limit := cfg.Query.DefaultLimit
		if cmd.Flags().Lookup("limit").Changed {
			limit, _ = cmd.Flags().GetInt("limit")
		}
		return runSanitize(cmd.OutOrStdout(), cfg.Query.MaxLimit, name, args[0], limit)
	},
}

func init() {
	sanitizeCmd.Flags().String("dialect", "postgres", "SQL dialect: postgres or mysql")
	sanitizeCmd.Flags().Int("limit", 0, "Row limit, defaults to query.default_limit")
}

func runSanitize(out io.Writer, maxLimit int, dialectName, sql string, limit int) error {
	dialect, ok := sanitizer.ParseDialect(dialectName)
	if !ok {
		return fmt.Errorf("unknown dialect %q", dialectName)
	}
	bounded, err := sanitizer.New(maxLimit).Sanitize(dialect, sql, limit)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(out, bounded)
	return err
}
