// Package main - точка входа сервиса аналитики ученика.
//
// Сервис принимает события об ответах и учебных сессиях, хранит их в
// журнале с ограничением по размеру и отдаёт полный аналитический снимок:
// прогресс, мастерство по темам, скорость обучения, серии занятий и
// рекомендации.
//
// Архитектура следует принципам Clean Architecture и DDD:
// - Domain: чистая бизнес-логика без внешних зависимостей
// - Application: оркестрация use cases (Commands/Queries)
// - Infrastructure: хранилища событий (memory/redis/postgres), event bus
// - Interface: HTTP endpoints
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/mathsprint/learner-analytics/config"
	"github.com/mathsprint/learner-analytics/internal/application/command"
	"github.com/mathsprint/learner-analytics/internal/application/eventhandler"
	"github.com/mathsprint/learner-analytics/internal/application/query"
	"github.com/mathsprint/learner-analytics/internal/domain/analytics"
	"github.com/mathsprint/learner-analytics/internal/domain/performance"
	"github.com/mathsprint/learner-analytics/internal/domain/shared"
	"github.com/mathsprint/learner-analytics/internal/infrastructure/messaging"
	"github.com/mathsprint/learner-analytics/internal/infrastructure/persistence"
	"github.com/mathsprint/learner-analytics/internal/infrastructure/persistence/memory"
	"github.com/mathsprint/learner-analytics/internal/infrastructure/persistence/postgres"
	redisstore "github.com/mathsprint/learner-analytics/internal/infrastructure/persistence/redis"
	httpserver "github.com/mathsprint/learner-analytics/internal/interface/http"
	"github.com/mathsprint/learner-analytics/pkg/logger"
	"github.com/mathsprint/learner-analytics/pkg/timeutil"
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
	// 1. ЗАГРУЗКА КОНФИГУРАЦИИ
	// ─────────────────────────────────────────────────────────────────────────
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 2. НАСТРОЙКА ЛОГИРОВАНИЯ И ЧАСОВОГО ПОЯСА
	// ─────────────────────────────────────────────────────────────────────────
	log := setupLogger(cfg)
	log.Info("starting learner analytics service",
		logger.String("env", string(cfg.App.Environment)),
		logger.String("version", cfg.App.Version),
		logger.String("backend", cfg.Storage.Backend),
		logger.String("timezone", cfg.App.Timezone),
	)

	// Вся календарная математика (серии, дневные итоги) считается в
	// настроенном часовом поясе.
	timeutil.SetLocation(cfg.App.Location)

	// ─────────────────────────────────────────────────────────────────────────
	// 3. ИНИЦИАЛИЗАЦИЯ ХРАНИЛИЩА СОБЫТИЙ
	// ─────────────────────────────────────────────────────────────────────────
	store, cleanup, err := buildStore(ctx, cfg, log)
	if err != nil {
		return fmt.Errorf("failed to initialize event store: %w", err)
	}
	defer cleanup()

	// ─────────────────────────────────────────────────────────────────────────
	// 4. ИНИЦИАЛИЗАЦИЯ EVENT BUS
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("initializing event bus...")
	busConfig := messaging.DefaultInMemoryEventBusConfig()
	busConfig.Logger = log
	eventBus := messaging.NewInMemoryEventBus(busConfig)
	defer func() {
		log.Info("closing event bus...")
		_ = eventBus.Close()
	}()

	registerEventHandlers(eventBus, log)

	// ─────────────────────────────────────────────────────────────────────────
	// 5. ИНИЦИАЛИЗАЦИЯ APPLICATION LAYER (Commands, Queries)
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("initializing application layer...")

	recordHandler := command.NewRecordPerformanceHandler(store, eventBus, log)
	sessionHandler := command.NewSessionHandler(store, eventBus, log)

	var seeder *command.SeedHistoryHandler
	if cfg.Bootstrap.Enabled {
		seeder = command.NewSeedHistoryHandler(store, eventBus, command.SeedConfig{
			Days:         cfg.Bootstrap.Days,
			MinQuestions: cfg.Bootstrap.MinQuestions,
			MaxQuestions: cfg.Bootstrap.MaxQuestions,
		}, log)
	}

	engine := analytics.NewEngine(analytics.Config{
		VelocityWindow:      cfg.Analytics.VelocityWindow,
		RecentActivityLimit: cfg.Analytics.RecentActivityLimit,
	})
	generator := analytics.NewGenerator(cfg.Analytics.RecommendationLimit)

	analyticsHandler := query.NewGetAnalyticsHandler(store, engine, generator, seeder, cfg.Features, log)

	// ─────────────────────────────────────────────────────────────────────────
	// 6. СОЗДАНИЕ HTTP SERVER
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("initializing HTTP server...")

	httpDeps := httpserver.Dependencies{
		RecordPerformanceHandler: recordHandler,
		SessionHandler:           sessionHandler,
		GetAnalyticsHandler:      analyticsHandler,
		Logger:                   log,
		HealthChecker:            &storeHealthChecker{store: store},
	}

	server := httpserver.NewServer(httpserver.ConfigFrom(cfg.HTTP), httpDeps)

	// ─────────────────────────────────────────────────────────────────────────
	// 7. ЗАПУСК И GRACEFUL SHUTDOWN
	// ─────────────────────────────────────────────────────────────────────────
	errCh := make(chan error, 1)
	go func() {
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server error: %w", err)
		}
	}()

	log.Info("learner analytics service is running",
		logger.String("http_address", server.Address()))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)

	select {
	case sig := <-sigCh:
		log.Info("received shutdown signal", logger.String("signal", sig.String()))
	case err := <-errCh:
		log.Error("service error", logger.Err(err))
		return err
	case <-ctx.Done():
		log.Info("root context cancelled")
	}

	log.Info("starting graceful shutdown...",
		logger.Duration("timeout", cfg.App.ShutdownTimeout))

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.App.ShutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("failed to stop HTTP server gracefully", logger.Err(err))
		return err
	}

	log.Info("shutdown completed successfully")
	return nil
}

// ══════════════════════════════════════════════════════════════════════════════
// WIRING HELPERS
// ══════════════════════════════════════════════════════════════════════════════

// buildStore создаёт хранилище событий по выбранному бэкенду.
func buildStore(ctx context.Context, cfg *config.Config, log *logger.Logger) (performance.EventStore, func(), error) {
	switch cfg.Storage.Backend {
	case config.BackendPostgres:
		log.Info("connecting to PostgreSQL...")
		conn, err := postgres.NewConnectionFromURL(ctx, cfg.Storage.PostgresURL)
		if err != nil {
			return nil, nil, err
		}

		log.Info("running database migrations...")
		if err := postgres.NewMigrator(conn).Migrate(ctx); err != nil {
			conn.Close()
			return nil, nil, err
		}

		cleanup := func() {
			log.Info("closing database connection...")
			conn.Close()
		}
		store := postgres.NewStore(conn, cfg.Analytics.RetentionCap, log)
		return persistence.NewBreakerStore(store, log), cleanup, nil

	case config.BackendRedis:
		log.Info("connecting to Redis...")
		redisCfg := redisstore.DefaultConfig()
		redisCfg.Host = cfg.Storage.RedisHost
		redisCfg.Port = cfg.Storage.RedisPort
		redisCfg.Password = cfg.Storage.RedisPassword
		redisCfg.DB = cfg.Storage.RedisDB
		redisCfg.PoolSize = cfg.Storage.RedisPoolSize
		redisCfg.MinIdleConns = cfg.Storage.RedisMinIdleConns
		redisCfg.DialTimeout = cfg.Storage.RedisDialTimeout
		redisCfg.ReadTimeout = cfg.Storage.RedisReadTimeout
		redisCfg.WriteTimeout = cfg.Storage.RedisWriteTimeout

		client, err := redisstore.NewClient(redisCfg)
		if err != nil {
			return nil, nil, err
		}

		cleanup := func() {
			log.Info("closing Redis connection...")
			_ = client.Close()
		}
		store := redisstore.NewStore(client, cfg.Analytics.RetentionCap, log)
		return persistence.NewBreakerStore(store, log), cleanup, nil

	default:
		log.Info("using in-memory event store")
		store := memory.NewStore(memory.WithRetentionCap(cfg.Analytics.RetentionCap))
		return store, func() {}, nil
	}
}

// registerEventHandlers подписывает обработчики доменных событий.
func registerEventHandlers(bus *messaging.InMemoryEventBus, log *logger.Logger) {
	levelUp := eventhandler.NewOnLevelUpHandler(log)
	seeded := eventhandler.NewOnHistorySeededHandler(log)

	_ = bus.Subscribe(shared.EventLevelUp, levelUp.Handle)
	_ = bus.Subscribe(shared.EventHistorySeeded, seeded.Handle)

	// Трассировка всех доменных событий на уровне debug.
	_ = bus.SubscribeAll(func(event shared.Event) error {
		log.Debug("domain event",
			logger.String("event_type", string(event.EventType())),
			logger.String("aggregate_id", event.AggregateID()))
		return nil
	})
}

// ══════════════════════════════════════════════════════════════════════════════
// HEALTH CHECK
// ══════════════════════════════════════════════════════════════════════════════

// pinger абстрагирует бэкенды с проверкой соединения.
type pinger interface {
	Ping(ctx context.Context) error
}

// storeHealthChecker проверяет доступность хранилища событий.
type storeHealthChecker struct {
	store performance.EventStore
}

func (c *storeHealthChecker) Check(ctx context.Context) httpserver.HealthStatus {
	status := httpserver.HealthStatus{
		Healthy:    true,
		Ready:      true,
		Components: map[string]string{"store": "ok"},
	}

	if p, ok := c.store.(pinger); ok {
		if err := p.Ping(ctx); err != nil {
			status.Healthy = false
			status.Ready = false
			status.Message = "event store unreachable"
			status.Components["store"] = err.Error()
		}
	}
	return status
}

// setupLogger настраивает структурированное логирование.
func setupLogger(cfg *config.Config) *logger.Logger {
	opts := logger.DefaultOptions()
	opts.Level = logger.ParseLevel(cfg.Observability.LogLevel)
	if cfg.App.Debug {
		opts.Level = logger.LevelDebug
	}
	return logger.New(opts)
}
