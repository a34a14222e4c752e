// Package main - точка входа фонового процесса (Worker) скорингового
// движка OTIS.
//
// Worker отвечает за периодические задачи:
// - Пересборка лидерборда и снапшотов рангов
// - Прогон проверки уровня по всем студентам семестра
// - Очистка устаревших снапшотов
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/otis-hub/otis-rpg/config"
	"github.com/otis-hub/otis-rpg/internal/application/command"
	"github.com/otis-hub/otis-rpg/internal/application/query"
	"github.com/otis-hub/otis-rpg/internal/domain/leaderboard"
	"github.com/otis-hub/otis-rpg/internal/domain/shared"
	"github.com/otis-hub/otis-rpg/internal/infrastructure/messaging"
	"github.com/otis-hub/otis-rpg/internal/infrastructure/persistence/postgres"
	"github.com/otis-hub/otis-rpg/internal/infrastructure/persistence/redis"
	"github.com/otis-hub/otis-rpg/internal/infrastructure/scheduler"
	"github.com/otis-hub/otis-rpg/internal/infrastructure/scheduler/jobs"
)

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
	// 1. КОНФИГУРАЦИЯ И ЛОГИРОВАНИЕ
	// ─────────────────────────────────────────────────────────────────────────
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	log := setupLogger(cfg)
	log.Info("starting OTIS scoring worker",
		"env", string(cfg.App.Environment),
		"version", cfg.App.Version,
		"timezone", cfg.App.Timezone,
	)

	// ─────────────────────────────────────────────────────────────────────────
	// 2. POSTGRESQL И МИГРАЦИИ
	// ─────────────────────────────────────────────────────────────────────────
	dbConn, err := postgres.NewConnectionFromURL(ctx, cfg.Database.URL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer dbConn.Close()

	if err := dbConn.Ping(ctx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}
	log.Info("database connection established")

	migrator := postgres.NewMigrator(dbConn)
	if err := migrator.Migrate(ctx); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	log.Info("database schema is up to date")

	// ─────────────────────────────────────────────────────────────────────────
	// 3. REDIS (опционально)
	// ─────────────────────────────────────────────────────────────────────────
	var cache *redis.Cache
	if !cfg.Redis.Disabled && cfg.Redis.URL != "" {
		cache, err = redis.NewCacheFromURL(cfg.Redis.URL)
		if err != nil {
			// Кеш и pub/sub - только ускорение; движок работает и без них.
			log.Warn("failed to connect to redis, running without cache", "error", err)
			cache = nil
		} else {
			defer cache.Close()
			log.Info("redis connection established")
		}
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 4. РЕПОЗИТОРИИ И КЕШИ
	// ─────────────────────────────────────────────────────────────────────────
	studentRepo := postgres.NewStudentRepository(dbConn)
	ledgerRepo := postgres.NewLedgerRepository(dbConn)
	rpgRepo := postgres.NewRPGRepository(dbConn)
	achievementRepo := postgres.NewAchievementRepository(dbConn)
	leaderboardRepo := postgres.NewLeaderboardRepository(dbConn)

	var rowCache leaderboard.RowCache
	var snapshots leaderboard.SnapshotRepository = leaderboardRepo
	if cache != nil {
		rowCache = redis.NewRowCache(cache, nil)
		snapshots = redis.NewCachedSnapshotRepository(leaderboardRepo, cache, nil)
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 5. ШИНА СОБЫТИЙ И ДИСПЕТЧЕР
	// ─────────────────────────────────────────────────────────────────────────
	busConfig := messaging.DefaultInMemoryEventBusConfig()
	busConfig.Logger = log

	var bus shared.EventBus
	if cache != nil {
		redisBus, err := messaging.NewRedisEventBus(messaging.RedisEventBusConfig{
			Client:         redis.NewPubSubAdapter(cache),
			LocalBusConfig: busConfig,
			Logger:         log,
		})
		if err != nil {
			return fmt.Errorf("failed to start redis event bus: %w", err)
		}
		bus = redisBus
	} else {
		bus = messaging.NewInMemoryEventBus(busConfig)
	}
	defer func() {
		if err := bus.Close(); err != nil {
			log.Error("failed to close event bus", "error", err)
		}
	}()

	dispatcher, err := messaging.NewDispatcher(messaging.DispatcherConfig{
		Bus:    bus,
		Logger: log,
	})
	if err != nil {
		return fmt.Errorf("failed to create dispatcher: %w", err)
	}
	registerEventLogging(dispatcher, log)

	// ─────────────────────────────────────────────────────────────────────────
	// 6. ОБРАБОТЧИКИ КОМАНД И ЗАПРОСОВ
	// ─────────────────────────────────────────────────────────────────────────
	levelInfo := query.NewGetLevelInfoHandler(
		studentRepo, studentRepo, ledgerRepo, achievementRepo, rpgRepo, rpgRepo,
	)
	leaderboardHandler := query.NewGetLeaderboardHandler(leaderboardRepo, rpgRepo, rowCache)
	checkLevelUp := command.NewCheckLevelUpHandler(
		studentRepo, studentRepo, ledgerRepo, levelInfo, rpgRepo, rpgRepo, bus,
	)
	certificates := query.NewGetCertificateHandler(studentRepo, achievementRepo, cfg.RPG.CertificateKey)
	registerMaxedOutWatcher(dispatcher, bus, levelInfo, certificates, log)

	// Регистрация закрывается стартом, поэтому диспетчер запускается
	// после подписки всех обработчиков.
	if err := dispatcher.Start(); err != nil {
		return fmt.Errorf("failed to start dispatcher: %w", err)
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 7. ПЛАНИРОВЩИК И ЗАДАЧИ
	// ─────────────────────────────────────────────────────────────────────────
	var sched *scheduler.Scheduler
	if cfg.Scheduler.Enabled {
		sched = scheduler.NewScheduler(scheduler.SchedulerConfig{
			Logger:   log,
			Timezone: cfg.App.Location,
		})

		rebuildConfig := jobs.DefaultRebuildLeaderboardConfig()
		rebuildConfig.CacheTTL = cfg.RPG.LeaderboardCacheTTL
		rebuildConfig.Timeout = cfg.Scheduler.JobTimeout
		rebuildConfig.EmitRankEvents = func(studentID int64) bool {
			return cfg.Features.IsEnabled(
				config.FeatureExperimentalRankEvents,
				&config.FeatureContext{UserID: studentID},
			)
		}
		rebuildJob := jobs.NewRebuildLeaderboardJob(
			leaderboardHandler, snapshots, rowCache, bus, log, rebuildConfig,
		)

		sweepConfig := jobs.DefaultSweepLevelUpsConfig()
		sweepConfig.Concurrency = cfg.Scheduler.MaxConcurrentJobs
		sweepConfig.Timeout = cfg.Scheduler.JobTimeout
		sweepJob := jobs.NewSweepLevelUpsJob(studentRepo, checkLevelUp, log, sweepConfig)

		cleanupJob := jobs.NewCleanupSnapshotsJob(snapshots, cfg.Scheduler.SnapshotRetention, log)

		if err := sched.Register(rebuildJob, scheduler.NewIntervalSchedule(cfg.Scheduler.RebuildLeaderboardInterval)); err != nil {
			return fmt.Errorf("failed to register rebuild job: %w", err)
		}
		if err := sched.Register(sweepJob, scheduler.NewIntervalSchedule(cfg.Scheduler.LevelUpSweepInterval)); err != nil {
			return fmt.Errorf("failed to register sweep job: %w", err)
		}
		if err := sched.Register(cleanupJob, scheduler.MustParseCronExpression(scheduler.EveryDayMidnight)); err != nil {
			return fmt.Errorf("failed to register cleanup job: %w", err)
		}

		if err := sched.Start(ctx); err != nil {
			return fmt.Errorf("failed to start scheduler: %w", err)
		}
		log.Info("scheduler started", "jobs", len(sched.ListJobs()))
	} else {
		log.Warn("scheduler is disabled, worker will only relay events")
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 8. GRACEFUL SHUTDOWN
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("OTIS scoring worker is running")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	log.Info("received shutdown signal", "signal", sig.String())

	shutdownDone := make(chan struct{})
	go func() {
		defer close(shutdownDone)
		if sched != nil {
			if err := sched.Stop(); err != nil {
				log.Error("failed to stop scheduler", "error", err)
			}
		}
	}()

	select {
	case <-shutdownDone:
		log.Info("shutdown completed")
	case <-time.After(cfg.App.ShutdownTimeout):
		log.Warn("shutdown timeout exceeded, exiting")
	}

	return nil
}

// registerEventLogging подписывает журналирующие обработчики на
// доменные события. Полезно и как аудит, и как smoke-тест шины.
func registerEventLogging(d *messaging.Dispatcher, log *slog.Logger) {
	logEvent := func(event shared.Event) error {
		log.Info("domain event",
			"event_type", event.EventType(),
			"aggregate_id", event.AggregateID(),
			"payload", event.Payload(),
		)
		return nil
	}

	for _, eventType := range []shared.EventType{
		shared.EventLevelUp,
		shared.EventBonusUnlocked,
		shared.EventAchievementUnlocked,
		shared.EventMaxedOut,
		shared.EventLeaderboardRebuilt,
		shared.EventRankChanged,
	} {
		_ = d.RegisterSync(eventType, "event_log", logEvent)
	}
}

// registerMaxedOutWatcher следит за повышениями уровня: как только
// профиль достигает верхнего порога таблицы уровней, публикуется
// событие maxed_out и выписывается подписанный сертификат.
func registerMaxedOutWatcher(
	d *messaging.Dispatcher,
	bus shared.EventPublisher,
	levelInfo *query.GetLevelInfoHandler,
	certificates *query.GetCertificateHandler,
	log *slog.Logger,
) {
	_ = d.RegisterSync(shared.EventLevelUp, "maxed_out_watcher", func(event shared.Event) error {
		studentID := payloadInt64(event.Payload(), "student_id")
		if studentID == 0 {
			return nil
		}

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		profile, err := levelInfo.Handle(ctx, query.GetLevelInfoQuery{StudentID: studentID})
		if err != nil {
			return err
		}
		if !profile.IsMaxed {
			return nil
		}

		cert, err := certificates.Handle(ctx, query.GetCertificateQuery{StudentID: studentID})
		if err != nil {
			return err
		}
		if err := bus.Publish(shared.NewMaxedOutEvent(event.AggregateID(), studentID, cert.UserID, profile.LevelNumber)); err != nil {
			return err
		}

		log.Info("student maxed out, certificate issued",
			"student_id", studentID,
			"level", profile.LevelNumber,
			"checksum", cert.Checksum,
		)
		return nil
	})
}

// payloadInt64 достаёт число из полезной нагрузки события. После
// пересылки через Redis числа приходят уже как float64.
func payloadInt64(payload map[string]interface{}, key string) int64 {
	switch v := payload[key].(type) {
	case int64:
		return v
	case float64:
		return int64(v)
	case int:
		return int64(v)
	}
	return 0
}

// setupLogger настраивает структурированное логирование.
func setupLogger(cfg *config.Config) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLogLevel(cfg.Observability.LogLevel)}
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

// parseLogLevel переводит строку конфигурации в уровень slog.
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
