// Package cli implements the aisearchctl command tree.
package cli

import (
	"context"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/practice2025/supportai/internal/app"
	"github.com/practice2025/supportai/internal/config"
)

var verbose bool

var rootCmd = &cobra.Command{
	Use:           "aisearchctl",
	Short:         "Query and maintain the support search service",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log to stderr")
}

// loadConfig and openApp are replaced in tests.
var (
	loadConfig = config.Load
	openApp    = func(ctx context.Context, cfg *config.Config) (*app.App, error) {
		return app.New(ctx, cfg, logger())
	}
)

func logger() *slog.Logger {
	if !verbose {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func withApp(ctx context.Context, fn func(a *app.App) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	a, err := openApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(a)
}

// Execute runs the root command
func Execute() error {
	rootCmd.SetOut(os.Stdout)
	return rootCmd.ExecuteContext(context.Background())
}
