package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"citizenship/internal/audit"
	"citizenship/internal/identity"
	"citizenship/internal/legacy"
	"citizenship/internal/platform/config"
	"citizenship/internal/platform/logger"
	"citizenship/internal/settings"
)

func newImportCmd(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "import <path>",
		Short: "Import a legacy JSON export into the configured field store",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			report, err := runImport(cmd.Context(), cfg, args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), report)
			return nil
		},
	}
}

func runImport(ctx context.Context, cfg *config.Config, path string) (*legacy.Report, error) {
	log := logger.New(cfg.LogLevel, cfg.LogFormat)

	st, err := openStores(ctx, cfg, log)
	if err != nil {
		return nil, err
	}
	defer st.close()

	identities := identity.New(st.fields, identity.WithLogger(log))
	if err := identities.Load(ctx); err != nil {
		return nil, fmt.Errorf("load identities: %w", err)
	}
	guildSettings, err := settings.New(st.fields, settings.WithLogger(log))
	if err != nil {
		return nil, err
	}
	if err := guildSettings.Load(ctx); err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}

	importer, err := legacy.New(identities, guildSettings,
		legacy.WithLogger(log),
		legacy.WithAuditPublisher(audit.NewPublisher(st.audit, audit.WithLogger(log))),
	)
	if err != nil {
		return nil, err
	}

	// The write-back worker persists the imported mapping; flush before exit.
	workerCtx, stopWorker := context.WithCancel(ctx)
	g, gctx := errgroup.WithContext(workerCtx)
	g.Go(func() error { return identities.Run(gctx) })

	report, importErr := importer.Import(ctx, path)

	flushCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
	defer cancel()
	flushErr := identities.Flush(flushCtx)
	stopWorker()
	_ = g.Wait()

	if importErr != nil {
		return nil, importErr
	}
	if flushErr != nil {
		return nil, fmt.Errorf("flush identities: %w", flushErr)
	}
	return report, nil
}
