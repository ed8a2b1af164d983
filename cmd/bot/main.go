// Package main is the entry point for the RankForge Discord bot.
//
// RankForge turns guild activity into progression: messages and voice
// presence earn experience, experience crosses level thresholds, and
// level transitions drive role rewards and announcements.
//
// The architecture follows Clean Architecture and DDD:
// - Domain: leveling rules, config resolution, reward diffing
// - Application: use case orchestration (Commands/Queries/Event handlers)
// - Infrastructure: PostgreSQL, Redis, the Discord gateway, scheduler
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	// Application layer
	"github.com/rankforge/rankforge-bot/internal/application/command"
	"github.com/rankforge/rankforge-bot/internal/application/eventhandler"
	"github.com/rankforge/rankforge-bot/internal/application/presence"
	"github.com/rankforge/rankforge-bot/internal/application/query"

	// Domain layer
	"github.com/rankforge/rankforge-bot/internal/domain/guildconfig"
	"github.com/rankforge/rankforge-bot/internal/domain/level"

	// Infrastructure layer
	"github.com/rankforge/rankforge-bot/internal/infrastructure/discord"
	"github.com/rankforge/rankforge-bot/internal/infrastructure/messaging"
	"github.com/rankforge/rankforge-bot/internal/infrastructure/persistence/postgres"
	"github.com/rankforge/rankforge-bot/internal/infrastructure/persistence/redis"
	"github.com/rankforge/rankforge-bot/internal/infrastructure/scheduler"
	"github.com/rankforge/rankforge-bot/internal/infrastructure/scheduler/jobs"

	"github.com/rankforge/rankforge-bot/config"
)

// ══════════════════════════════════════════════════════════════════════════════
// MAIN
// ══════════════════════════════════════════════════════════════════════════════

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "fatal error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	// ─────────────────────────────────────────────────────────────────────────
	// 1. LOAD CONFIGURATION
	// ─────────────────────────────────────────────────────────────────────────
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 2. SET UP LOGGING
	// ─────────────────────────────────────────────────────────────────────────
	log := setupLogger(cfg)
	log.Info("starting RankForge",
		"env", cfg.App.Environment,
		"version", cfg.App.Version,
		"debug", cfg.App.Debug,
	)

	// ─────────────────────────────────────────────────────────────────────────
	// 3. CONNECT TO THE DATABASE (PostgreSQL)
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("connecting to database...")
	dbConn, err := connectDatabase(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer func() {
		log.Info("closing database connection...")
		dbConn.Close()
	}()

	if err := dbConn.Ping(ctx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}
	log.Info("database connection established")

	// ─────────────────────────────────────────────────────────────────────────
	// 4. RUN MIGRATIONS
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("running database migrations...")
	migrator := postgres.NewMigrator(dbConn)
	if err := migrator.Migrate(ctx); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	status, err := migrator.Status(ctx)
	if err != nil {
		log.Warn("failed to get migration status", "error", err)
	} else {
		appliedCount := 0
		for _, m := range status {
			if m.IsApplied {
				appliedCount++
			}
		}
		log.Info("migrations completed", "applied", appliedCount, "total", len(status))
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 5. INITIALIZE REDIS (optional)
	// The caches are read shields, not sources of truth: when Redis is down
	// or disabled, every handler runs straight against PostgreSQL.
	// ─────────────────────────────────────────────────────────────────────────
	var levelCache level.Cache
	var configCache guildconfig.Cache

	if !cfg.Redis.Disabled {
		log.Info("connecting to Redis...")
		redisCfg := redis.DefaultConfig()
		redisCfg.Host = cfg.Redis.Host
		redisCfg.Port = cfg.Redis.Port
		redisCfg.Password = cfg.Redis.Password
		redisCfg.DB = cfg.Redis.DB
		redisCfg.PoolSize = cfg.Redis.PoolSize
		redisCfg.MinIdleConns = cfg.Redis.MinIdleConns
		redisCfg.DialTimeout = cfg.Redis.DialTimeout
		redisCfg.ReadTimeout = cfg.Redis.ReadTimeout
		redisCfg.WriteTimeout = cfg.Redis.WriteTimeout

		redisCache, err := redis.NewCache(redisCfg)
		if err != nil {
			log.Warn("failed to connect to Redis, caching disabled", "error", err)
		} else {
			defer func() {
				log.Info("closing Redis connection...")
				_ = redisCache.Close()
			}()
			levelCache = redis.NewLevelCache(redisCache)
			configCache = redis.NewConfigCache(redisCache)
			log.Info("Redis connection established")
		}
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 6. INITIALIZE REPOSITORIES
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("initializing repositories...")
	levelRepo := postgres.NewUserLevelRepository(dbConn)
	configRepo := postgres.NewGuildConfigRepository(dbConn)

	// ─────────────────────────────────────────────────────────────────────────
	// 7. INITIALIZE EVENT BUS
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("initializing event bus...")
	eventBusConfig := messaging.DefaultInMemoryEventBusConfig()
	eventBusConfig.Logger = log
	eventBusConfig.AsyncMode = cfg.EventBus.Async
	eventBusConfig.WorkerPoolSize = cfg.EventBus.WorkerPoolSize
	eventBus := messaging.NewInMemoryEventBus(eventBusConfig)
	defer func() {
		log.Info("closing event bus...")
		_ = eventBus.Close()
	}()

	// ─────────────────────────────────────────────────────────────────────────
	// 8. INITIALIZE THE CONFIG PROVIDER
	// The default layer comes from the environment; per-guild overrides live
	// in the database and merge on top at read time.
	// ─────────────────────────────────────────────────────────────────────────
	defaults := guildconfig.Defaults{
		ExperiencePerMessage:     cfg.Leveling.ExperiencePerMessage,
		ExperiencePerVoiceMinute: cfg.Leveling.ExperiencePerVoiceMinute,
		MessageCooldownSeconds:   cfg.Leveling.MessageCooldownSeconds,
		LeaderboardStyle:         guildconfig.LeaderboardStyle(cfg.Leveling.LeaderboardStyle),
		NotifyLevelUp:            cfg.Leveling.NotifyLevelUp,
		LevelUpMessageTemplate:   cfg.Leveling.LevelUpMessageTemplate,
	}
	if defaults.LevelUpMessageTemplate == "" {
		defaults.LevelUpMessageTemplate = guildconfig.DefaultTemplate
	}
	configProvider := guildconfig.NewProvider(configRepo, configCache, defaults, redis.TTLConfigCache)

	// ─────────────────────────────────────────────────────────────────────────
	// 9. INITIALIZE APPLICATION LAYER (Commands and Queries)
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("initializing application layer...")

	grantCmd := command.NewGrantExperienceHandler(levelRepo, levelCache, eventBus)
	revokeCmd := command.NewRevokeExperienceHandler(levelRepo, levelCache, configProvider, eventBus)
	recordMessageCmd := command.NewRecordMessageHandler(levelRepo, configProvider, grantCmd)
	recordVoiceCmd := command.NewRecordVoiceHandler(levelRepo, configProvider, grantCmd)
	resetUserCmd := command.NewResetUserHandler(levelRepo, levelCache, eventBus)
	resetGuildCmd := command.NewResetGuildHandler(levelRepo, levelCache, eventBus)
	updateConfigCmd := command.NewUpdateConfigHandler(configRepo, configProvider, eventBus)
	deleteConfigCmd := command.NewDeleteConfigHandler(configRepo, configProvider, eventBus)

	userLevelQuery := query.NewGetUserLevelHandler(levelRepo, levelCache, redis.TTLRecordCache)
	leaderboardQuery := query.NewGetLeaderboardHandler(levelRepo, levelCache, redis.TTLLeaderboardCache)
	configQuery := query.NewGetConfigHandler(configProvider)

	// ─────────────────────────────────────────────────────────────────────────
	// 10. INITIALIZE THE DISCORD SESSION
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("initializing Discord session...")
	session, err := discord.NewSession(cfg.Discord.Token)
	if err != nil {
		return fmt.Errorf("failed to create Discord session: %w", err)
	}

	roleService := discord.NewRoleService(session, log)
	stateAdapter := discord.NewStateAdapter(session)
	messenger := discord.NewChannelMessenger(session, log)

	// ─────────────────────────────────────────────────────────────────────────
	// 11. REGISTER EVENT HANDLERS
	// Side effects hang off the bus: a failed role sync or announcement
	// never rolls back the experience ledger.
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("registering event handlers...")

	if cfg.Features.IsEnabled(config.FeatureRoleRewards, nil) {
		onLevelUp := eventhandler.NewOnLevelUpHandler(configProvider, roleService, roleService, eventBus, log)
		if err := eventBus.Subscribe(onLevelUp.EventType(), onLevelUp.Handle); err != nil {
			return fmt.Errorf("failed to subscribe level-up handler: %w", err)
		}

		onLevelDown := eventhandler.NewOnLevelDownHandler(configProvider, roleService, roleService, eventBus, log)
		if err := eventBus.Subscribe(onLevelDown.EventType(), onLevelDown.Handle); err != nil {
			return fmt.Errorf("failed to subscribe level-down handler: %w", err)
		}
	} else {
		log.Info("role rewards disabled by feature flag")
	}

	if cfg.Features.IsEnabled(config.FeatureAnnouncements, nil) {
		notifier := eventhandler.NewLevelUpNotifier(configProvider, messenger, stateAdapter, log)
		if err := eventBus.Subscribe(notifier.EventType(), notifier.Handle); err != nil {
			return fmt.Errorf("failed to subscribe level-up notifier: %w", err)
		}
	} else {
		log.Info("level-up announcements disabled by feature flag")
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 12. INITIALIZE THE VOICE PRESENCE TRACKER
	// ─────────────────────────────────────────────────────────────────────────
	tracker := presence.NewTracker(recordVoiceCmd, roleService, stateAdapter, presence.Config{
		SweepInterval:      cfg.Voice.SweepInterval,
		MinFlushMs:         cfg.Voice.MinFlush.Milliseconds(),
		MinShutdownFlushMs: cfg.Voice.MinShutdownFlush.Milliseconds(),
	}, log)

	// ─────────────────────────────────────────────────────────────────────────
	// 13. START THE SCHEDULER
	// ─────────────────────────────────────────────────────────────────────────
	var sched *scheduler.Scheduler
	if cfg.Scheduler.Enabled {
		log.Info("initializing scheduler...")
		schedConfig := scheduler.DefaultSchedulerConfig()
		schedConfig.Logger = log
		sched = scheduler.NewScheduler(schedConfig)

		sweepJob := jobs.NewVoiceSweepJob(tracker, log)
		if err := sched.Register(sweepJob, scheduler.NewIntervalSchedule(cfg.Voice.SweepInterval)); err != nil {
			return fmt.Errorf("failed to register voice sweep job: %w", err)
		}

		if cfg.Features.IsEnabled(config.FeatureLeaderboard, nil) {
			refreshJob := jobs.NewRefreshLeaderboardsJob(
				stateAdapter, leaderboardQuery, log, jobs.DefaultRefreshLeaderboardsConfig())
			if err := sched.Register(refreshJob, scheduler.NewIntervalSchedule(cfg.Scheduler.LeaderboardRefreshInterval)); err != nil {
				return fmt.Errorf("failed to register leaderboard refresh job: %w", err)
			}
		}

		if err := sched.Start(ctx); err != nil {
			return fmt.Errorf("failed to start scheduler: %w", err)
		}
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 14. OPEN THE GATEWAY
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("opening Discord gateway...")
	gateway := discord.NewGateway(session, recordMessageCmd, tracker, log)
	if err := gateway.Open(); err != nil {
		return fmt.Errorf("failed to open gateway: %w", err)
	}

	// Admin command surfaces plug in here as they land. The handlers are
	// wired and live; slash command registration is the remaining piece.
	_ = revokeCmd
	_ = resetUserCmd
	_ = resetGuildCmd
	_ = updateConfigCmd
	_ = deleteConfigCmd
	_ = userLevelQuery
	_ = configQuery

	// ─────────────────────────────────────────────────────────────────────────
	// 15. GRACEFUL SHUTDOWN
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("RankForge is running")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)

	select {
	case sig := <-sigCh:
		log.Info("received shutdown signal", "signal", sig.String())
	case <-ctx.Done():
		log.Info("context cancelled")
	}

	log.Info("starting graceful shutdown...", "timeout", cfg.App.ShutdownTimeout.String())

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.App.ShutdownTimeout)
	defer shutdownCancel()

	// Close the gateway first so no new activity arrives, then flush the
	// voice sessions still open. The order matters: a flush after the
	// gateway closes can no longer race an incoming voice update.
	log.Info("closing Discord gateway...")
	if err := gateway.Close(); err != nil {
		log.Error("failed to close gateway", "error", err)
	}

	log.Info("flushing open voice sessions...")
	tracker.FlushAll(shutdownCtx)

	if sched != nil {
		log.Info("stopping scheduler...")
		if err := sched.Stop(); err != nil {
			log.Error("failed to stop scheduler", "error", err)
		}
	}

	// Event bus, Redis, and the database close through defers.
	log.Info("shutdown completed")
	return nil
}

// ══════════════════════════════════════════════════════════════════════════════
// HELPERS
// ══════════════════════════════════════════════════════════════════════════════

// setupLogger configures structured logging from the observability config.
func setupLogger(cfg *config.Config) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: parseLogLevel(cfg.Observability.LogLevel),
	}
	if cfg.App.Debug {
		opts.Level = slog.LevelDebug
	}

	var handler slog.Handler
	if cfg.Observability.LogFormat == "text" {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	log := slog.New(handler)
	slog.SetDefault(log)

	return log
}

func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// connectDatabase opens the pool from DATABASE_URL when set, otherwise
// from the individual DB_* settings.
func connectDatabase(ctx context.Context, cfg *config.Config) (*postgres.Connection, error) {
	if cfg.Database.URL != "" {
		return postgres.NewConnectionFromURL(ctx, cfg.Database.URL)
	}

	pgCfg := postgres.DefaultConfig()
	pgCfg.MaxConns = int32(cfg.Database.MaxOpenConns)
	pgCfg.MinConns = int32(cfg.Database.MaxIdleConns)
	pgCfg.MaxConnLifetime = cfg.Database.ConnMaxLifetime
	pgCfg.MaxConnIdleTime = cfg.Database.ConnMaxIdleTime
	return postgres.NewConnection(ctx, pgCfg)
}
