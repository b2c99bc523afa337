package main

import (
	"context"
	"fmt"
	"os"

	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/BrandonDHaskell/kragdb/internal/config"
	"github.com/BrandonDHaskell/kragdb/internal/db"
	"github.com/BrandonDHaskell/kragdb/internal/kragdb/store"
	"github.com/BrandonDHaskell/kragdb/internal/kragdb/store/memory"
	"github.com/BrandonDHaskell/kragdb/internal/kragdb/store/sqlstore"
	"github.com/BrandonDHaskell/kragdb/internal/logging"
)

// Set by the root command before any subcommand runs.
var (
	cfg    config.Config
	logger zerolog.Logger
)

var envFile string

var rootCmd = &cobra.Command{
	Use:           "kragdb-server",
	Short:         "Membership pass access server",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		if err := config.LoadEnvFile(envFile); err != nil {
			return err
		}
		cfg = config.FromEnv()

		var err error
		logger, err = logging.New(cfg.LogLevel, cfg.LogPretty)
		return err
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", "", "dotenv file to load (default .env if present)")
	rootCmd.AddCommand(serveCmd, migrateCmd, userCmd, passCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// stores bundles one backend's implementations of every store contract.
type stores struct {
	users  store.UserStore
	passes store.PassStore
	events store.AccessEventStore

	conn  *sqlx.DB // nil for the memory backend
	close func()
}

// openStores connects to the configured backend. The "memory" driver keeps
// everything in process and loses it on exit.
func openStores(ctx context.Context, c config.Config) (*stores, error) {
	if c.DBDriver == "memory" {
		passes := memory.NewPassStore()
		return &stores{
			users:  memory.NewUserStore(passes),
			passes: passes,
			events: memory.NewAccessEventStore(),
			close:  func() {},
		}, nil
	}

	conn, err := db.Open(ctx, db.Config{
		Driver: c.DBDriver,
		Path:   c.DBPath,
		URL:    c.DatabaseURL,
		Env:    c.Env,
	}, sqlstore.Tables()...)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	writer := db.NewWorker(conn)
	return &stores{
		users:  sqlstore.NewUserStore(conn, writer),
		passes: sqlstore.NewPassStore(conn, writer),
		events: sqlstore.NewAccessEventStore(conn, writer),
		conn:   conn,
		close: func() {
			writer.Close()
			_ = conn.Close()
		},
	}, nil
}
