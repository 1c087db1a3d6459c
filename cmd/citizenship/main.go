// Command citizenship runs the regional citizenship bot: it keeps a
// user-to-nation mapping, refreshes nation titles from NationStates and the
// regional spreadsheets, and reconciles guild roles to match.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"citizenship/internal/platform/config"
	"citizenship/internal/platform/logger"
)

func newRootCmd() *cobra.Command {
	cfg := config.FromEnv()

	root := &cobra.Command{
		Use:           "citizenship",
		Short:         "Nation identity and role sync bot",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&cfg.Store.Backend, "store", cfg.Store.Backend, "Field store backend: memory, redis or postgres")
	root.PersistentFlags().StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "Log level: debug, info, warn or error")
	root.PersistentFlags().BoolVar(&cfg.DryRun, "dry-run", cfg.DryRun, "Log planned role edits without applying them")

	root.AddCommand(newServeCmd(&cfg))
	root.AddCommand(newImportCmd(&cfg))
	return root
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		log := logger.New("error", "text")
		log.Error("citizenship failed", "error", err)
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}
