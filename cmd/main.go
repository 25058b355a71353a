package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/redis/go-redis/v9"
	"go.uber.org/automaxprocs/maxprocs"
	"go.uber.org/dig"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/davidbz/promptdesk/internal/config"
	"github.com/davidbz/promptdesk/internal/domain"
	apihttp "github.com/davidbz/promptdesk/internal/http"
	"github.com/davidbz/promptdesk/internal/observability"
	"github.com/davidbz/promptdesk/internal/queue/redisqueue"
	"github.com/davidbz/promptdesk/internal/scheduler"
	"github.com/davidbz/promptdesk/internal/storage/gormstore"
)

type options struct {
	migrate bool
	server  bool
	worker  bool
}

type application struct {
	dig.In

	Logger       *zap.Logger
	DB           *gorm.DB
	Redis        *redis.Client
	Server       *apihttp.Server
	Dispatcher   *redisqueue.Dispatcher
	Service      *domain.RequestService
	Reconciler   *scheduler.Reconciler
	ServerConfig *config.ServerConfig
}

func main() {
	var opts options
	flag.BoolVar(&opts.migrate, "migrate", true, "apply database migrations on startup")
	flag.BoolVar(&opts.server, "server", true, "serve the HTTP API")
	flag.BoolVar(&opts.worker, "worker", true, "run queue workers and the reconciler")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	container := buildContainer()

	err := container.Invoke(func(app application) error {
		return run(ctx, app, opts)
	})
	if err != nil {
		log.Fatalf("Application failed: %v", err)
	}
}

func run(ctx context.Context, app application, opts options) error {
	logger := app.Logger
	defer func() { _ = logger.Sync() }()

	if _, err := maxprocs.Set(maxprocs.Logger(logger.Sugar().Infof)); err != nil {
		logger.Warn("failed to set GOMAXPROCS", observability.Error(err))
	}

	defer closeResources(logger, app)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if opts.migrate {
		if err := gormstore.Migrate(app.DB); err != nil {
			return err
		}
		logger.Info("database migrated")
	}

	if !opts.server && !opts.worker {
		return nil
	}

	var wg sync.WaitGroup
	errCh := make(chan error, 2)

	if opts.worker {
		if err := app.Reconciler.Start(ctx); err != nil {
			return err
		}
		defer app.Reconciler.Stop()

		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := app.Dispatcher.Run(ctx, app.Service.ResolveJob); err != nil {
				errCh <- fmt.Errorf("dispatcher failed: %w", err)
			}
		}()
	}

	if opts.server {
		go func() {
			if err := app.Server.Start(ctx); err != nil {
				errCh <- err
			}
		}()
	}

	var runErr error
	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case runErr = <-errCh:
		logger.Error("component failed, shutting down", observability.Error(runErr))
	}

	if opts.server {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.WithoutCancel(ctx), app.ServerConfig.ShutdownTimeout)
		defer shutdownCancel()
		if err := app.Server.Shutdown(shutdownCtx); err != nil {
			logger.Error("server shutdown failed", observability.Error(err))
		}
	}

	cancel()
	wg.Wait()

	return runErr
}

func closeResources(logger *zap.Logger, app application) {
	if err := app.Redis.Close(); err != nil {
		logger.Warn("failed to close redis client", observability.Error(err))
	}

	sqlDB, err := app.DB.DB()
	if err != nil {
		logger.Warn("failed to get database handle", observability.Error(err))
		return
	}
	if err := sqlDB.Close(); err != nil {
		logger.Warn("failed to close database", observability.Error(err))
	}
}
