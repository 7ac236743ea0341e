// Package main - точка входа для HTTP сервиса трофеев разработчика.
//
// Сервис получает публичную статистику профиля GitHub, превращает её в
// набор достижений с уровнями и раскладывает карточки по сетке.
//
// Архитектура следует принципам Clean Architecture и DDD:
// - Domain: чистая логика трофеев и раскладки без внешних зависимостей
// - Application: оркестрация запроса (агрегация метрик, сборка ответа)
// - Infrastructure: клиент GitHub, Redis для лимитов
// - Interface: HTTP endpoints
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/devtrophies/trophies/config"

	// Application layer
	"github.com/devtrophies/trophies/internal/application/query"

	// Domain layer
	"github.com/devtrophies/trophies/internal/domain/layout"
	"github.com/devtrophies/trophies/internal/domain/trophy"

	// Infrastructure layer
	"github.com/devtrophies/trophies/internal/infrastructure/external/github"
	"github.com/devtrophies/trophies/internal/infrastructure/persistence/redis"

	// Interface layer
	httpserver "github.com/devtrophies/trophies/internal/interface/http"
	"github.com/devtrophies/trophies/internal/interface/http/handlers"

	// Packages
	"github.com/devtrophies/trophies/pkg/logger"
	"github.com/devtrophies/trophies/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// MAIN
// ══════════════════════════════════════════════════════════════════════════════

func main() {
	// Создаём корневой контекст с возможностью отмены
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
	// 2. НАСТРОЙКА ЛОГИРОВАНИЯ
	// ─────────────────────────────────────────────────────────────────────────
	log := setupLogger(cfg)
	defer func() { _ = log.Sync() }()

	log.Info("starting trophy service",
		logger.String("env", string(cfg.App.Environment)),
		logger.String("version", cfg.App.Version),
		logger.Bool("debug", cfg.App.Debug),
	)

	clock := timeutil.SystemClock()

	// ─────────────────────────────────────────────────────────────────────────
	// 3. КЛИЕНТ GITHUB
	// ─────────────────────────────────────────────────────────────────────────
	ghClient, err := github.NewClient(github.ClientConfig{
		BaseURL:            cfg.GitHub.BaseURL,
		Token:              cfg.GitHub.Token,
		UserAgent:          cfg.GitHub.UserAgent,
		Timeout:            cfg.GitHub.RequestTimeout,
		RequestsPerSecond:  cfg.GitHub.RateLimit,
		Burst:              cfg.GitHub.RateLimitBurst,
		MaxRetries:         cfg.GitHub.MaxRetries,
		RetryBaseDelay:     cfg.GitHub.RetryBaseDelay,
		RetryMaxDelay:      cfg.GitHub.RetryMaxDelay,
		BreakerThreshold:   cfg.GitHub.CircuitBreakerThreshold,
		BreakerTimeout:     cfg.GitHub.CircuitBreakerTimeout,
		BreakerHalfOpenMax: cfg.GitHub.CircuitBreakerHalfOpenMax,
		MaxRepoPages:       cfg.GitHub.MaxRepoPages,
		Logger:             log,
	})
	if err != nil {
		return fmt.Errorf("failed to create github client: %w", err)
	}
	if cfg.GitHub.Token == "" {
		log.Warn("GITHUB_TOKEN is not set, using anonymous quota")
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 4. ИНИЦИАЛИЗАЦИЯ REDIS (опционально)
	// ─────────────────────────────────────────────────────────────────────────
	// Redis нужен только для общего лимита запросов между репликами.
	// Без него используется лимитер в памяти процесса.
	var limiter redis.RequestLimiter
	var redisClient *redis.Client

	if !cfg.Redis.Disabled {
		log.Info("connecting to Redis...", logger.String("addr", redisAddr(cfg.Redis)))
		redisClient, err = redis.NewClient(ctx, redis.Config{
			URL:          cfg.Redis.URL,
			Host:         cfg.Redis.Host,
			Port:         cfg.Redis.Port,
			Password:     cfg.Redis.Password,
			DB:           cfg.Redis.DB,
			PoolSize:     cfg.Redis.PoolSize,
			MinIdleConns: cfg.Redis.MinIdleConns,
			DialTimeout:  cfg.Redis.DialTimeout,
			ReadTimeout:  cfg.Redis.ReadTimeout,
			WriteTimeout: cfg.Redis.WriteTimeout,
		})
		if err != nil {
			log.Warn("failed to connect to Redis, using in-memory limiter", logger.Err(err))
			redisClient = nil
		} else {
			defer func() {
				log.Info("closing Redis connection...")
				_ = redisClient.Close()
			}()
			limiter = redis.NewRedisLimiter(redisClient, cfg.HTTP.RateLimitRequests, cfg.HTTP.RateLimitWindow, clock)
			log.Info("Redis connection established")
		}
	}

	if limiter == nil {
		memLimiter := redis.NewMemoryLimiter(cfg.HTTP.RateLimitRequests, cfg.HTTP.RateLimitWindow, clock)
		defer memLimiter.Close()
		limiter = memLimiter
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 5. ИНИЦИАЛИЗАЦИЯ QUERY HANDLERS
	// ─────────────────────────────────────────────────────────────────────────
	aggregator := query.NewMetricAggregator(ghClient, query.AggregatorConfig{
		ProfileTimeout: cfg.Aggregation.ProfileTimeout,
		AuxTimeout:     cfg.Aggregation.AuxTimeout,
	}, clock, log)

	builder := trophy.NewBuilder(cfg.Rules())
	grid := layout.NewGrid(cfg.Layout)

	getTrophiesHandler := query.NewGetTrophiesHandler(
		aggregator,
		builder,
		grid,
		cfg.Features,
		clock,
		log,
	)

	log.Info("achievement rules loaded",
		logger.Int("goals", len(builder.Rules().Goals)),
		logger.String("scoring_file", cfg.Scoring.File),
	)

	// ─────────────────────────────────────────────────────────────────────────
	// 6. HEALTH CHECKS
	// ─────────────────────────────────────────────────────────────────────────
	healthChecker := handlers.NewCompositeHealthChecker(cfg.App.Version)
	healthChecker.AddCheck("github_quota", handlers.NewQuotaCheck(ghClient, 1))
	healthChecker.AddCheck("github_breaker", handlers.NewBreakerCheck(ghClient))
	if redisClient != nil {
		healthChecker.AddCheck("redis", handlers.NewPingCheck(redisClient))
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 7. HTTP СЕРВЕР
	// ─────────────────────────────────────────────────────────────────────────
	httpConfig := httpserver.DefaultConfig()
	httpConfig.Host = cfg.HTTP.Host
	httpConfig.Port = cfg.HTTP.Port
	httpConfig.ReadTimeout = cfg.HTTP.ReadTimeout
	httpConfig.WriteTimeout = cfg.HTTP.WriteTimeout
	httpConfig.IdleTimeout = cfg.HTTP.IdleTimeout
	httpConfig.RequestTimeout = cfg.HTTP.RequestTimeout
	httpConfig.AllowedOrigins = cfg.HTTP.AllowedOrigins
	httpConfig.TrustedProxies = cfg.HTTP.TrustedProxies
	httpConfig.Version = cfg.App.Version

	httpServer := httpserver.NewServer(httpConfig, httpserver.Dependencies{
		GetTrophiesHandler: getTrophiesHandler,
		Limiter:            limiter,
		Features:           cfg.Features,
		Logger:             log,
		HealthChecker:      healthChecker,
	})

	// ─────────────────────────────────────────────────────────────────────────
	// 8. ЗАПУСК И GRACEFUL SHUTDOWN
	// ─────────────────────────────────────────────────────────────────────────
	errCh := httpServer.StartAsync()

	log.Info("trophy service is running", logger.String("http_address", httpServer.Address()))

	// Ожидаем сигнал завершения или ошибку
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)

	select {
	case sig := <-sigCh:
		log.Info("received shutdown signal", logger.String("signal", sig.String()))
	case err, ok := <-errCh:
		if ok && err != nil {
			log.Error("http server error", logger.Err(err))
			return err
		}
		return errors.New("http server stopped unexpectedly")
	case <-ctx.Done():
		log.Info("context cancelled")
	}

	log.Info("starting graceful shutdown...", logger.Duration("timeout", cfg.App.ShutdownTimeout))

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.App.ShutdownTimeout)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error("failed to stop HTTP server gracefully", logger.Err(err))
		log.Warn("shutdown completed with errors")
		return nil
	}

	// Redis и лимитер закроются через defer
	log.Info("shutdown completed successfully")
	return nil
}

// ══════════════════════════════════════════════════════════════════════════════
// HELPERS
// ══════════════════════════════════════════════════════════════════════════════

// setupLogger настраивает структурированное логирование.
func setupLogger(cfg *config.Config) *logger.Logger {
	opts := logger.DefaultOptions()
	opts.Level = logger.ParseLevel(cfg.Observability.LogLevel)
	if cfg.App.Debug {
		opts.Level = logger.LevelDebug
	}

	// JSON для production (лучше для агрегаторов логов), консоль для разработки
	opts.Format = logger.Format(cfg.Observability.LogFormat)
	if opts.Format == "" {
		opts.Format = logger.FormatJSON
		if cfg.IsDevelopment() {
			opts.Format = logger.FormatConsole
		}
	}

	return logger.New(opts).With(logger.String("service", cfg.App.Name))
}

// redisAddr возвращает адрес для логов без пароля.
func redisAddr(rc config.RedisConfig) string {
	if rc.URL != "" {
		return "url"
	}
	return fmt.Sprintf("%s:%d", rc.Host, rc.Port)
}
