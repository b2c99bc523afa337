package main

import (
	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create tables and apply pending migrations, then exit",
	RunE: func(cmd *cobra.Command, _ []string) error {
		st, err := openStores(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer st.close()

		logger.Info().Str("db", cfg.DBDriver).Msg("database is up to date")
		return nil
	},
}
