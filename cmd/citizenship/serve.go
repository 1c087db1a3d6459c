package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"citizenship/internal/audit"
	"citizenship/internal/claim"
	"citizenship/internal/discord"
	"citizenship/internal/feeds"
	"citizenship/internal/feeds/sheets"
	"citizenship/internal/identity"
	"citizenship/internal/legacy"
	"citizenship/internal/nation"
	"citizenship/internal/nsapi"
	"citizenship/internal/ops"
	"citizenship/internal/platform/config"
	"citizenship/internal/platform/httpserver"
	"citizenship/internal/platform/logger"
	"citizenship/internal/platform/metrics"
	"citizenship/internal/roles"
	"citizenship/internal/scheduler"
	"citizenship/internal/settings"
	"citizenship/internal/titles"
	"citizenship/pkg/domain"
)

const (
	shutdownTimeout = 10 * time.Second
	auditQueueSize  = 256
)

const gatewayIntents = discordgo.IntentsGuilds |
	discordgo.IntentsGuildMembers |
	discordgo.IntentsGuildMessages |
	discordgo.IntentsDirectMessages |
	discordgo.IntentsMessageContent

func newServeCmd(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Connect to Discord, run the refresh task and serve the ops endpoints",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), cfg)
		},
	}
	cmd.Flags().StringVar(&cfg.Server.Addr, "addr", cfg.Server.Addr, "Ops HTTP listen address")
	return cmd
}

// runServe wires every component and blocks until ctx is cancelled.
func runServe(ctx context.Context, cfg *config.Config) error {
	log := logger.New(cfg.LogLevel, cfg.LogFormat)
	if cfg.Discord.Token == "" {
		return errors.New("DISCORD_TOKEN is required")
	}
	home, err := nation.Normalize(cfg.NationAPI.Region)
	if err != nil {
		return fmt.Errorf("home region: %w", err)
	}
	operators, err := parseUserIDs(cfg.Discord.OperatorIDs)
	if err != nil {
		return fmt.Errorf("operator ids: %w", err)
	}
	welcome, err := parseWelcomeChannels(cfg.Discord.WelcomeChannels)
	if err != nil {
		return fmt.Errorf("welcome channels: %w", err)
	}

	m := metrics.New()

	st, err := openStores(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer st.close()

	identities := identity.New(st.fields, identity.WithLogger(log), identity.WithMetrics(m))
	if err := identities.Load(ctx); err != nil {
		return fmt.Errorf("load identities: %w", err)
	}
	guildSettings, err := settings.New(st.fields,
		settings.WithLogger(log),
		settings.WithBootstrapKey(cfg.Sheets.BootstrapKey),
	)
	if err != nil {
		return err
	}
	if err := guildSettings.Load(ctx); err != nil {
		return fmt.Errorf("load settings: %w", err)
	}
	log.InfoContext(ctx, "state loaded",
		"claims", identities.Len(),
		"enabled_guilds", len(guildSettings.Enabled()),
		"store", cfg.Store.Backend,
	)

	nationAPI, err := nsapi.New(cfg.NationAPI.BaseURL, cfg.NationAPI.UserAgent,
		nsapi.WithLogger(log),
		nsapi.WithRateLimit(cfg.NationAPI.Requests, cfg.NationAPI.Per),
	)
	if err != nil {
		return err
	}
	sheetsAPI := sheets.New(cfg.Sheets.BaseURL)

	registry := feeds.NewRegistry()
	if err := registry.RegisterPrimary(
		feeds.NewRegionFeed(nationAPI, home),
		feeds.NewCitizensFeed(sheetsAPI, cfg.Sheets.CitizensSheet, cfg.Sheets.CitizensRange),
		feeds.NewArmyFeed(sheetsAPI, cfg.Sheets.ArmySheet, cfg.Sheets.ArmyRange),
		feeds.NewGovernmentFeed(sheetsAPI, cfg.Sheets.GovernmentSheet, cfg.Sheets.GovernmentColumns),
	); err != nil {
		return err
	}
	if err := registry.RegisterSupplementary(
		feeds.NewWorldFeed(nationAPI),
		feeds.NewWAFeed(nationAPI, home),
	); err != nil {
		return err
	}
	runner, err := feeds.NewRunner(registry,
		feeds.WithLogger(log),
		feeds.WithMetrics(m),
		feeds.WithRetry(cfg.Refresh.FeedMaxTries, cfg.Refresh.BaseDelay),
	)
	if err != nil {
		return err
	}

	session, err := discordgo.New("Bot " + cfg.Discord.Token)
	if err != nil {
		return fmt.Errorf("discord session: %w", err)
	}
	session.Identify.Intents = gatewayIntents
	bot, err := discord.New(session, discord.WithLogger(log), discord.WithOperators(operators...))
	if err != nil {
		return err
	}

	cache := titles.NewCache()
	reconciler, err := roles.New(bot, identities, cache, guildSettings,
		roles.WithLogger(log),
		roles.WithMetrics(m),
		roles.WithDryRun(cfg.DryRun),
		roles.WithRateLimit(cfg.Reconcile.EditsPerSecond, cfg.Reconcile.Burst),
		roles.WithYieldEvery(cfg.Reconcile.YieldEvery),
	)
	if err != nil {
		return err
	}

	auditQueue := make(chan audit.Event, auditQueueSize)
	publisher := audit.NewPublisher(st.audit, audit.WithLogger(log), audit.WithQueue(auditQueue))
	auditWorker := audit.NewWorker(st.audit, auditQueue, log)

	claims, err := claim.New(identities, nationAPI, reconciler, cache,
		claim.WithLogger(log),
		claim.WithMetrics(m),
		claim.WithAuditPublisher(publisher),
		claim.WithPrompter(bot),
		claim.WithEnabledGuilds(guildSettings),
		claim.WithHomeRegion(home),
		claim.WithCooldown(cfg.Claims.Cooldown),
		claim.WithConfirmTimeout(cfg.Claims.ConfirmTimeout),
		claim.WithWelcomeChannels(welcome),
	)
	if err != nil {
		return err
	}

	task, err := scheduler.New(runner, guildSettings, reconciler, cache,
		scheduler.WithLogger(log),
		scheduler.WithMetrics(m),
		scheduler.WithReporter(bot),
		scheduler.WithPeriod(cfg.Refresh.Period),
		scheduler.WithRetry(cfg.Refresh.CycleMaxTries, cfg.Refresh.BaseDelay),
	)
	if err != nil {
		return err
	}

	importer, err := legacy.New(identities, guildSettings,
		legacy.WithLogger(log),
		legacy.WithAuditPublisher(publisher),
	)
	if err != nil {
		return err
	}

	router, err := discord.NewRouter(bot, claims,
		discord.WithPrefix(cfg.Discord.CommandPrefix),
		discord.WithPermissions(bot),
		discord.WithToggler(guildSettings),
		discord.WithTask(task),
		discord.WithImporter(importer, bot),
		discord.WithReplies(bot.Dispatch),
		discord.WithOperatorIDs(operators...),
		discord.WithRouterLogger(log),
	)
	if err != nil {
		return err
	}

	opsHandler := ops.New(task,
		ops.WithLogger(log),
		ops.WithAdminToken(cfg.Server.AdminToken),
		ops.WithCheck("nation_api", func(context.Context) error {
			if !nationAPI.Healthy() {
				return errors.New("circuit open")
			}
			return nil
		}),
		ops.WithCheck("refresh_task", func(context.Context) error {
			if !task.Status().Running {
				return errors.New("not running")
			}
			return nil
		}),
	)
	for name, check := range st.checks {
		ops.WithCheck(name, check)(opsHandler)
	}
	srv := httpserver.New(cfg.Server.Addr, opsHandler.Router(), log)

	// Background workers stop on their own context so they outlive the
	// gateway and drain after it closes.
	workerCtx, stopWorkers := context.WithCancel(context.WithoutCancel(ctx))
	defer stopWorkers()
	workers, wctx := errgroup.WithContext(workerCtx)
	workers.Go(func() error { return ignoreCancel(identities.Run(wctx)) })
	workers.Go(func() error { return ignoreCancel(auditWorker.Run(wctx)) })

	detach := router.Attach(ctx, session)
	if err := session.Open(); err != nil {
		detach()
		stopWorkers()
		_ = workers.Wait()
		return fmt.Errorf("open discord gateway: %w", err)
	}
	log.InfoContext(ctx, "discord gateway connected", "dry_run", cfg.DryRun)

	if err := task.Start(ctx); err != nil {
		log.ErrorContext(ctx, "refresh task did not start", "error", err)
	}

	serveErr := make(chan error, 1)
	go func() {
		log.InfoContext(ctx, "ops server listening", "addr", cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	var runErr error
	select {
	case <-ctx.Done():
		log.InfoContext(ctx, "shutdown requested")
	case err, ok := <-serveErr:
		if ok {
			runErr = fmt.Errorf("ops server: %w", err)
		}
	}

	return errors.Join(runErr, shutdown(log, srv, task, session, detach, identities, stopWorkers, workers))
}

// shutdown stops intake first, then drains the writers.
func shutdown(log *slog.Logger, srv *http.Server, task *scheduler.Scheduler, session *discordgo.Session,
	detach func(), identities *identity.Store, stopWorkers context.CancelFunc, workers *errgroup.Group) error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	var errs []error
	if err := srv.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("ops server shutdown: %w", err))
	}
	if err := task.Stop(ctx); err != nil {
		errs = append(errs, fmt.Errorf("stop refresh task: %w", err))
	}
	detach()
	if err := session.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close discord gateway: %w", err))
	}
	if err := identities.Flush(ctx); err != nil {
		errs = append(errs, fmt.Errorf("flush identities: %w", err))
	}
	stopWorkers()
	if err := workers.Wait(); err != nil {
		errs = append(errs, err)
	}
	log.Info("shutdown complete")
	return errors.Join(errs...)
}

func ignoreCancel(err error) error {
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func parseUserIDs(raw []string) ([]domain.UserID, error) {
	out := make([]domain.UserID, 0, len(raw))
	for _, s := range raw {
		id, err := domain.ParseUserID(s)
		if err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, nil
}

func parseWelcomeChannels(raw map[string]string) (map[domain.GuildID]domain.ChannelID, error) {
	out := make(map[domain.GuildID]domain.ChannelID, len(raw))
	for g, c := range raw {
		guild, err := domain.ParseGuildID(g)
		if err != nil {
			return nil, err
		}
		channel, err := domain.ParseChannelID(c)
		if err != nil {
			return nil, err
		}
		out[guild] = channel
	}
	return out, nil
}
