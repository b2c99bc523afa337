package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/BrandonDHaskell/kragdb/internal/db"
	"github.com/BrandonDHaskell/kragdb/internal/grpcapi"
	"github.com/BrandonDHaskell/kragdb/internal/httpapi"
	"github.com/BrandonDHaskell/kragdb/internal/kragdb/service"
	"github.com/BrandonDHaskell/kragdb/internal/kragdb/types"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP access API and the gRPC health endpoint",
	RunE:  runServe,
}

func init() {
	f := serveCmd.Flags()
	f.String("http-addr", "", "HTTP listen address (overrides KRAGDB_HTTP_ADDR)")
	f.String("grpc-addr", "", "gRPC health listen address (overrides KRAGDB_GRPC_ADDR)")
	f.String("db-driver", "", "sqlite, postgres or memory (overrides KRAGDB_DB_DRIVER)")
}

func runServe(cmd *cobra.Command, _ []string) error {
	f := cmd.Flags()
	if v, _ := f.GetString("http-addr"); v != "" {
		cfg.HTTPAddr = v
	}
	if v, _ := f.GetString("grpc-addr"); v != "" {
		cfg.GRPCAddr = v
	}
	if v, _ := f.GetString("db-driver"); v != "" {
		cfg.DBDriver = v
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := openStores(ctx, cfg)
	if err != nil {
		return err
	}
	defer st.close()

	accessSvc := service.NewAccessService(st.passes, st.events, logger)
	adminSvc := service.NewAdminService(st.users, st.passes, logger)

	if cfg.Env == "dev" {
		if err := seedRoot(ctx, st, adminSvc); err != nil {
			return err
		}
	}

	pruner := service.NewEventPruner(st.events, service.PrunerConfig{
		RetentionDays: cfg.EventRetentionDays,
		IntervalHours: cfg.PruneIntervalHours,
	}, logger)
	pruner.Start(ctx)
	defer pruner.Stop()

	srv := httpapi.NewServer(httpapi.Dependencies{
		Logger:        logger,
		Addr:          cfg.HTTPAddr,
		AccessService: accessSvc,
		AdminService:  adminSvc,
	})

	go func() {
		logger.Info().Str("addr", cfg.HTTPAddr).Str("db", cfg.DBDriver).Msg("http listening")
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("http server")
			stop()
		}
	}()

	var gs *grpcapi.Server
	if cfg.GRPCAddr != "" {
		var check grpcapi.CheckFunc
		if st.conn != nil {
			check = st.conn.PingContext
		}
		gs = grpcapi.NewServer(cfg.GRPCAddr, check, logger)
		go func() {
			logger.Info().Str("addr", cfg.GRPCAddr).Msg("grpc listening")
			if err := gs.Start(); err != nil {
				logger.Error().Err(err).Msg("grpc server")
				stop()
			}
		}()
	}

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if gs != nil {
		gs.Shutdown(shutdownCtx)
	}
	_ = srv.Shutdown(shutdownCtx)
	logger.Info().Msg("stopped")
	return nil
}

// seedRoot makes sure a dev database has a root account to log in with.
func seedRoot(ctx context.Context, st *stores, adminSvc *service.AdminService) error {
	if cfg.RootEmail == "" || cfg.RootPassword == "" {
		return nil
	}
	if st.conn != nil {
		return db.SeedDev(ctx, st.conn, db.SeedDevOptions{
			RootEmail:    cfg.RootEmail,
			RootPassword: cfg.RootPassword,
		})
	}
	_, err := adminSvc.CreateUser(ctx, service.Operator, types.CreateUserRequest{
		Username:    "root",
		Email:       cfg.RootEmail,
		Password:    cfg.RootPassword,
		Permissions: "ROOT",
	})
	return err
}
