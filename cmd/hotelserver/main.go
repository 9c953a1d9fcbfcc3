// hotelserver boots the SQLite-backed store and serves it over TCP to any
// number of netclient-speaking clients (§4.9).
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/decden/hotelsync/pkg/config"
	"github.com/decden/hotelsync/pkg/netserver"
	"github.com/decden/hotelsync/pkg/persistence"
	"github.com/decden/hotelsync/pkg/persistence/sqlite"
)

func main() {
	envPath := flag.String("env", "", "optional .env file to load before reading the environment")
	flag.Parse()

	cfg, err := config.Load(*envPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "hotelserver: %v\n", err)
		os.Exit(1)
	}

	level, err := config.ParseLogLevel(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "hotelserver: %v\n", err)
		os.Exit(1)
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	if err := run(cfg); err != nil {
		slog.Error("hotelserver exited", "error", err)
		os.Exit(1)
	}
}

func run(cfg config.Config) error {
	backend, err := sqlite.Open(cfg.SQLitePath)
	if err != nil {
		return fmt.Errorf("open backend: %w", err)
	}
	defer backend.Close()

	server, err := netserver.Listen(cfg.ListenAddr, backend)
	if err != nil {
		return fmt.Errorf("listen %s: %w", cfg.ListenAddr, err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pump := persistence.NewPump(backend.ChangeQueue())

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		pump.Run(ctx)
		return nil
	})
	g.Go(func() error {
		return server.Serve()
	})
	g.Go(func() error {
		<-ctx.Done()
		slog.Info("shutting down", "addr", server.Addr())
		return server.Close()
	})

	slog.Info("hotelserver listening", "addr", server.Addr(), "db", cfg.SQLitePath)
	return g.Wait()
}
