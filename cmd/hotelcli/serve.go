package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/decden/hotelsync/pkg/netserver"
	"github.com/decden/hotelsync/pkg/persistence"
	"github.com/decden/hotelsync/pkg/persistence/sqlite"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the database over TCP until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return exitErr(cmd, err)
			}
			if err := runServe(cfg.SQLitePath, cfg.ListenAddr); err != nil {
				return exitErr(cmd, err)
			}
			return nil
		},
	}
}

func runServe(dbPath, listenAddr string) error {
	backend, err := sqlite.Open(dbPath)
	if err != nil {
		return fmt.Errorf("open backend: %w", err)
	}
	defer backend.Close()

	server, err := netserver.Listen(listenAddr, backend)
	if err != nil {
		return fmt.Errorf("listen %s: %w", listenAddr, err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		persistence.NewPump(backend.ChangeQueue()).Run(ctx)
		return nil
	})
	g.Go(server.Serve)
	g.Go(func() error {
		<-ctx.Done()
		return server.Close()
	})

	slog.Info("hotelcli serve listening", "addr", server.Addr(), "db", dbPath)
	return g.Wait()
}
