// Package main реализует точку входа службы заметок.
package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"notecache/internal/notes/adapters/cache"
	"notecache/internal/notes/adapters/dynamo"
	"notecache/internal/notes/adapters/grpc"
	notehttp "notecache/internal/notes/adapters/http"
	"notecache/internal/notes/adapters/memory"
	"notecache/internal/notes/adapters/metrics"
	"notecache/internal/notes/adapters/postgres"
	"notecache/internal/notes/adapters/services"
	"notecache/internal/notes/app"
	"notecache/internal/notes/config"
	"notecache/internal/notes/db"
	"notecache/internal/notes/ports/repositories"
	dbredis "notecache/pkg/db/redis"
	"notecache/pkg/logger"
	"notecache/pkg/shutdown"
)

// Константы для переменных окружения.
const (
	EnvLoggerMode  = "NOTES_LOGGER_MODE"
	EnvLoggerLevel = "NOTES_LOGGER_LEVEL"
)

// Константы для сообщений об ошибках.
const (
	ErrInitLogger           = "failed to initialize logger"
	ErrSyncLogger           = "failed to sync logger"
	ErrLoadConfig           = "failed to load configuration"
	ErrInitLoggerWithConfig = "failed to initialize logger with configuration settings"
	ErrInitStore            = "failed to initialize note store"
	ErrStartGRPC            = "failed to start gRPC server"
	ErrStartHTTP            = "failed to start HTTP server"
)

// Константы для игнорируемых ошибок.
const (
	ErrSyncStderr = "sync /dev/stderr: invalid argument"
	ErrSyncStdout = "sync /dev/stdout: invalid argument"
)

// Константы для сообщений сервиса.
const (
	LogServiceStarted      = "note service started"
	LogServiceShutdownDone = "note service shutdown complete"
	LogClosingStore        = "closing note store"
	LogClosingRedis        = "closing redis connection"
	LogStoppingGRPC        = "stopping gRPC server"
	LogStoppingHTTP        = "stopping HTTP server"
	LogInitStore           = "initializing note store"
	LogInitCache           = "initializing cache"
	LogCacheUnavailable    = "redis is unavailable, starting without cache"
	LogInitUseCases        = "initializing use cases"
	LogInitGRPCServer      = "initializing gRPC server"
	LogStartingGRPC        = "starting gRPC server"
	LogStartingHTTP        = "starting HTTP server"
)

const metricsNamespace = "notes"

func main() {
	env := logger.Development
	if strings.ToLower(os.Getenv(EnvLoggerMode)) == "production" {
		env = logger.Production
	}

	log, err := logger.NewLogger(env, os.Getenv(EnvLoggerLevel))
	if err != nil {
		panic(ErrInitLogger + ": " + err.Error())
	}

	logger.SetGlobalLogger(log)

	ctx := logger.NewRequestIDContext(context.Background(), "")

	var exitCode int

	func() {
		defer func() {
			if err := log.Sync(); err != nil {
				errMsg := err.Error()
				if strings.Contains(errMsg, ErrSyncStderr) || strings.Contains(errMsg, ErrSyncStdout) {
					return
				}
				if _, writeErr := fmt.Fprintf(os.Stderr, "%s: %v\n", ErrSyncLogger, err); writeErr != nil {
					panic(writeErr)
				}
			}
		}()

		cfg, err := config.Load(ctx)
		if err != nil {
			log.Error(ctx, ErrLoadConfig, zap.Error(err))
			exitCode = 1
			return
		}

		finalLogger, err := logger.NewLogger(cfg.Logging.GetEnvironment(), cfg.Logging.Level)
		if err != nil {
			log.Error(ctx, ErrInitLoggerWithConfig, zap.Error(err))
			exitCode = 1
			return
		}
		logger.SetGlobalLogger(finalLogger)
		log = finalLogger

		log.Info(ctx, LogServiceStarted,
			zap.String("environment", string(cfg.Logging.GetEnvironment())),
			zap.String("log_level", cfg.Logging.Level),
			zap.String("startup_time", time.Now().Format(time.RFC3339)))

		collector := metrics.NewCollector(metricsNamespace)

		log.Info(ctx, LogInitStore, zap.String("backend", string(cfg.Store.Backend)))
		store, closeStore, err := newStore(ctx, cfg)
		if err != nil {
			log.Error(ctx, ErrInitStore, zap.Error(err))
			exitCode = 1
			return
		}

		log.Info(ctx, LogInitCache)
		redisCache := cache.NewRedisCache(ctx, dbredis.NewClient(cfg.Redis.ClientConfig()), cache.Options{
			DefaultTTL: cfg.Redis.DefaultTTL,
			ScanCount:  cfg.Redis.ScanCount,
			Breaker:    cfg.Breaker,
			OnState:    collector.BreakerStateChanged,
		})
		// Недоступный кэш не мешает старту: сервис работает в деградированном режиме.
		if err := redisCache.Ping(ctx); err != nil {
			log.Warn(ctx, LogCacheUnavailable, zap.String("address", cfg.Redis.GetAddress()), zap.Error(err))
		}

		log.Info(ctx, LogInitUseCases)
		noteUseCase := app.NewNoteUseCase(store, redisCache, cfg.Redis.DefaultTTL, app.WithMetrics(collector))
		tokenService := services.NewJWT(cfg.JWT.SecretKey)

		log.Info(ctx, LogInitGRPCServer)
		grpcServer := grpc.New(&cfg.GRPC)
		monitor := grpc.NewHealthMonitor(store, redisCache, grpcServer.Health(), cfg.GRPC.HealthInterval)

		monitorCtx, stopMonitor := context.WithCancel(ctx)
		go monitor.Run(monitorCtx)

		log.Info(ctx, LogStartingGRPC, zap.String("address", cfg.GRPC.GetAddress()))
		if err := grpcServer.Start(ctx); err != nil {
			log.Error(ctx, ErrStartGRPC, zap.Error(err))
			stopMonitor()
			closeStore(ctx)
			exitCode = 1
			return
		}

		httpApp := notehttp.NewApp(&cfg.HTTP)
		notehttp.SetupRouter(httpApp, notehttp.Deps{
			Notes:   noteUseCase,
			Tokens:  tokenService,
			Health:  monitor,
			Metrics: collector,
			Logger:  log,
		})

		log.Info(ctx, LogStartingHTTP, zap.String("address", cfg.HTTP.GetAddress()))
		go func() {
			if err := httpApp.Listen(cfg.HTTP.GetAddress()); err != nil {
				log.Error(ctx, ErrStartHTTP, zap.Error(err))
			}
		}()

		shutdown.Wait(ctx, cfg.Shutdown.GetTimeout(),
			func(ctx context.Context) error {
				log.Info(ctx, LogStoppingHTTP)
				return httpApp.ShutdownWithContext(ctx)
			},
			func(ctx context.Context) error {
				log.Info(ctx, LogStoppingGRPC)
				stopMonitor()
				grpcServer.Stop(ctx)
				return nil
			},
			func(ctx context.Context) error {
				log.Info(ctx, LogClosingRedis)
				return redisCache.Close()
			},
			func(ctx context.Context) error {
				log.Info(ctx, LogClosingStore)
				closeStore(ctx)
				return nil
			},
		)

		log.Info(ctx, LogServiceShutdownDone)
	}()

	if exitCode != 0 {
		os.Exit(exitCode)
	}
}

// newStore создает хранилище заметок по настройке NOTES_STORE_BACKEND.
func newStore(ctx context.Context, cfg *config.Config) (repositories.NoteStore, func(context.Context), error) {
	switch cfg.Store.Backend {
	case config.BackendPostgres:
		database, err := db.New(ctx, &cfg.Postgres)
		if err != nil {
			return nil, nil, err
		}
		return postgres.NewNoteStore(database.Pool()), database.Close, nil
	case config.BackendDynamoDB:
		client, err := dynamo.NewClient(ctx, cfg.DynamoDB)
		if err != nil {
			return nil, nil, err
		}
		return dynamo.NewNoteStore(client, cfg.DynamoDB.Table), func(context.Context) {}, nil
	default:
		return memory.NewNoteStore(), func(context.Context) {}, nil
	}
}
