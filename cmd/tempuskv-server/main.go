// Command tempuskv-server runs the engine as a standalone TCP server,
// wiring config, logging, the lazyfree pool and internal/server together
// behind a cobra CLI and a signal-driven graceful shutdown.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/tempuskv/tempuskv/internal/config"
	"github.com/tempuskv/tempuskv/internal/lazyfree"
	"github.com/tempuskv/tempuskv/internal/logging"
	"github.com/tempuskv/tempuskv/internal/server"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tempuskv-server",
		Short: "tempuskv-server runs the key-value engine",
		RunE:  runServer,
	}
	config.RegisterFlags(cmd.Flags())
	return cmd
}

func runServer(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(cmd.Flags())
	if err != nil {
		return err
	}

	log, err := logging.New(logging.Options{
		Level:    cfg.LogLevel,
		JSON:     cfg.LogJSON,
		FilePath: cfg.LogFile,
	})
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	lf, err := lazyfree.New(cfg.LazyFreePoolSize, log)
	if err != nil {
		return err
	}
	defer lf.Release()

	srv, err := server.New(server.Options{
		Databases:             cfg.Databases,
		KeyspaceNotifications: cfg.KeyspaceNotifications,
		ActiveExpirePeriod:    cfg.ActiveExpirePeriod(),
		MaxMemoryBytes:        cfg.MaxMemoryBytes,
		LazyFree:              lf,
		Log:                   log,
	})
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("listening", zap.String("addr", cfg.Addr))
		return srv.Serve(cfg.Addr)
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down")
		return srv.Close()
	})

	if err := g.Wait(); err != nil {
		log.Error("server exited with error", zap.Error(err))
		return err
	}
	return nil
}
