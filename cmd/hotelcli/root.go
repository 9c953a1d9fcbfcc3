// hotelcli is the operator-facing counterpart to hotelserver: seed a
// database with sample data, run the server in the foreground, or dump a
// running server's current snapshot — grounded on the original's
// single-purpose cli/cli.cpp, split into subcommands the way a modern Go
// CLI would (§ supplemented features).
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/decden/hotelsync/pkg/config"
)

var envFile string

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "hotelcli",
		Short: "Operate a hotelsync store: seed, serve, or dump its contents",
	}
	root.PersistentFlags().StringVar(&envFile, "env", "", "optional .env file to load before reading the environment")

	root.AddCommand(newSeedCmd())
	root.AddCommand(newServeCmd())
	root.AddCommand(newDumpCmd())
	return root
}

func loadConfig() (config.Config, error) {
	cfg, err := config.Load(envFile)
	if err != nil {
		return config.Config{}, err
	}
	level, err := config.ParseLogLevel(cfg.LogLevel)
	if err != nil {
		return config.Config{}, err
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
	return cfg, nil
}

func exitErr(cmd *cobra.Command, err error) error {
	fmt.Fprintf(cmd.ErrOrStderr(), "hotelcli: %v\n", err)
	return err
}
