package main

import (
	"context"
	"fmt"
	"log"

	"github.com/redis/go-redis/v9"
	"go.uber.org/dig"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/davidbz/promptdesk/internal/config"
	"github.com/davidbz/promptdesk/internal/domain"
	apihttp "github.com/davidbz/promptdesk/internal/http"
	"github.com/davidbz/promptdesk/internal/http/middleware"
	"github.com/davidbz/promptdesk/internal/observability"
	"github.com/davidbz/promptdesk/internal/provider/echo"
	"github.com/davidbz/promptdesk/internal/provider/openai"
	"github.com/davidbz/promptdesk/internal/provider/registry"
	"github.com/davidbz/promptdesk/internal/queue/redisqueue"
	"github.com/davidbz/promptdesk/internal/scheduler"
	"github.com/davidbz/promptdesk/internal/storage/gormstore"
)

func buildContainer() *dig.Container {
	container := dig.New()

	provide := func(name string, constructor any) {
		if err := container.Provide(constructor); err != nil {
			log.Fatalf("Failed to provide %s: %v", name, err)
		}
	}

	// Configuration
	provide("config", config.Load)
	provide("config dependencies", config.ParseDependenciesConfig)

	// Observability
	provide("logger", func(cfg *config.Config) (*zap.Logger, error) {
		return observability.InitLogger(cfg.Log.Level, cfg.Log.Development)
	})

	// Storage
	provide("database", func(cfg *config.DatabaseConfig) (*gorm.DB, error) {
		return gormstore.Open(cfg.Driver, cfg.DSN)
	})
	provide("store", gormstore.NewStore)
	provide("api key store", func(store *gormstore.Store) domain.APIKeyStore { return store })
	provide("request store", func(store *gormstore.Store) domain.RequestStore { return store })

	// Queue
	provide("redis client", func(cfg *config.RedisConfig) (*redis.Client, error) {
		return redisqueue.NewClient(cfg.URL)
	})
	provide("dispatcher", func(client *redis.Client, cfg *config.RedisConfig) *redisqueue.Dispatcher {
		return redisqueue.NewDispatcher(client, redisqueue.Config{
			QueueName:   cfg.QueueName,
			Concurrency: cfg.Concurrency,
			RevokeTTL:   cfg.RevokeTTL,
			PollTimeout: cfg.PollTimeout,
		})
	})
	provide("domain dispatcher", func(d *redisqueue.Dispatcher) domain.Dispatcher { return d })

	// Providers
	provide("provider registry", newProviderRegistry)

	// Domain Services
	provide("gateway service", func(reg domain.ProviderRegistry, cfg *config.Config) domain.Gateway {
		return domain.NewGatewayService(reg, cfg.Defaults.ProxyURL)
	})
	provide("request service", func(
		keys domain.APIKeyStore,
		requests domain.RequestStore,
		gateway domain.Gateway,
		dispatcher domain.Dispatcher,
		cfg *config.Config,
	) *domain.RequestService {
		return domain.NewRequestService(keys, requests, gateway, dispatcher, cfg.GenerationDefaults())
	})
	provide("reconciler", func(service *domain.RequestService, cfg *config.SchedulerConfig) *scheduler.Reconciler {
		return scheduler.NewReconciler(service, scheduler.Config{
			Schedule: cfg.Schedule,
			Grace:    cfg.Grace,
			Batch:    cfg.Batch,
		})
	})

	// HTTP Layer
	provide("health pinger", func(store *gormstore.Store) apihttp.Pinger { return store })
	provide("queue stats", func(d *redisqueue.Dispatcher) apihttp.QueueStats { return d })
	provide("middleware chain", middleware.BuildMiddlewareChain)
	provide("HTTP handler", apihttp.NewHandler)
	provide("admin handler", apihttp.NewAdminHandler)
	provide("HTTP server", apihttp.NewServer)

	return container
}

// newProviderRegistry registers the upstream providers and wires the
// engine routing table.
func newProviderRegistry(cfg *config.Config, gw *config.GatewayConfig) (domain.ProviderRegistry, error) {
	ctx := context.Background()
	reg := registry.NewRegistry(cfg.Routing.EngineProviders, cfg.Routing.PrimaryProvider)

	timeouts := openai.Timeouts{
		Connect: gw.ConnectTimeout,
		Write:   gw.WriteTimeout,
		Read:    gw.ReadTimeout,
		Pool:    gw.PoolTimeout,
	}

	upstreams := []struct {
		name string
		cfg  config.ProviderConfig
	}{
		{name: domain.ProviderOpenAI, cfg: cfg.OpenAI},
		{name: domain.ProviderDeepSeek, cfg: cfg.DeepSeek},
	}

	for _, upstream := range upstreams {
		provider, err := openai.NewProvider(openai.Config{
			Name:          upstream.name,
			APIKey:        upstream.cfg.APIKey,
			BaseURL:       upstream.cfg.BaseURL,
			UseProxy:      upstream.cfg.ProxyEnabled(),
			Models:        upstream.cfg.Models,
			ModelPrefixes: upstream.cfg.ModelPrefixes,
			Timeouts:      timeouts,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create %s provider: %w", upstream.name, err)
		}
		if err := reg.Register(ctx, provider); err != nil {
			return nil, fmt.Errorf("failed to register %s provider: %w", upstream.name, err)
		}
	}

	if cfg.Routing.EchoEnabled {
		if err := reg.Register(ctx, echo.NewProvider()); err != nil {
			return nil, fmt.Errorf("failed to register echo provider: %w", err)
		}
	}

	return reg, nil
}
