package config

import (
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"go.uber.org/dig"

	"github.com/davidbz/promptdesk/internal/domain"
)

const (
	defaultOpenAIBaseURL   = "https://api.openai.com/v1"
	defaultDeepSeekBaseURL = "https://api.deepseek.com/v1"
)

// Config represents the service configuration. It is loaded once at startup
// and treated as read-only afterwards.
type Config struct {
	Server    ServerConfig
	Log       LogConfig
	CORS      CORSConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Scheduler SchedulerConfig
	Defaults  DefaultsConfig
	Gateway   GatewayConfig
	Routing   RoutingConfig
	Admin     AdminConfig
	OpenAI    ProviderConfig `envPrefix:"OPENAI_"`
	DeepSeek  ProviderConfig `envPrefix:"DEEPSEEK_"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Port            int           `env:"SERVER_PORT"             envDefault:"8080"`
	ReadTimeout     int           `env:"SERVER_READ_TIMEOUT"     envDefault:"30"`
	WriteTimeout    int           `env:"SERVER_WRITE_TIMEOUT"    envDefault:"660"`
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" envDefault:"15s"`
}

// LogConfig controls the zap logger.
type LogConfig struct {
	Level       string `env:"LOG_LEVEL"       envDefault:"info"`
	Development bool   `env:"LOG_DEVELOPMENT" envDefault:"false"`
}

// CORSConfig contains CORS policy settings.
type CORSConfig struct {
	AllowedOrigins   []string `env:"CORS_ALLOWED_ORIGINS"   envSeparator:"," envDefault:"*"`
	AllowedMethods   []string `env:"CORS_ALLOWED_METHODS"   envSeparator:"," envDefault:"GET,POST,PUT,PATCH,DELETE,OPTIONS"`
	AllowedHeaders   []string `env:"CORS_ALLOWED_HEADERS"   envSeparator:"," envDefault:"Content-Type,Authorization"`
	AllowCredentials bool     `env:"CORS_ALLOW_CREDENTIALS"                  envDefault:"true"`
	MaxAge           int      `env:"CORS_MAX_AGE"                            envDefault:"86400"`
}

// DatabaseConfig selects the gorm dialector and its DSN.
type DatabaseConfig struct {
	Driver string `env:"DB_DRIVER" envDefault:"sqlite"`
	DSN    string `env:"DB_DSN"    envDefault:"promptdesk.db"`
}

// RedisConfig contains job queue settings.
type RedisConfig struct {
	URL         string        `env:"REDIS_URL"           envDefault:"redis://localhost:6379/0"`
	QueueName   string        `env:"QUEUE_NAME"          envDefault:"promptdesk"`
	Concurrency int           `env:"WORKER_CONCURRENCY"  envDefault:"4"`
	RevokeTTL   time.Duration `env:"JOB_REVOKE_TTL"      envDefault:"24h"`
	PollTimeout time.Duration `env:"WORKER_POLL_TIMEOUT" envDefault:"1s"`
}

// SchedulerConfig controls the reconciler that re-enqueues unscheduled requests.
type SchedulerConfig struct {
	Schedule string        `env:"RECONCILE_SCHEDULE" envDefault:"@every 1m"`
	Grace    time.Duration `env:"RECONCILE_GRACE"    envDefault:"30s"`
	Batch    int           `env:"RECONCILE_BATCH"    envDefault:"100"`
}

// DefaultsConfig holds process-wide generation defaults. Unset pointers mean
// the parameter is not sent to the provider at all.
type DefaultsConfig struct {
	Engine           string   `env:"DEFAULT_ENGINE"            envDefault:"gpt-4o-mini"`
	Temperature      *float64 `env:"DEFAULT_TEMPERATURE"`
	MaxTokens        *int64   `env:"DEFAULT_MAX_TOKENS"`
	TopP             *float64 `env:"DEFAULT_TOP_P"`
	FrequencyPenalty *float64 `env:"DEFAULT_FREQUENCY_PENALTY"`
	PresencePenalty  *float64 `env:"DEFAULT_PRESENCE_PENALTY"`
	ProxyURL         string   `env:"DEFAULT_PROXY_URL"`
}

// GatewayConfig holds outbound HTTP timeouts shared by all providers.
type GatewayConfig struct {
	ConnectTimeout time.Duration `env:"GATEWAY_CONNECT_TIMEOUT" envDefault:"60s"`
	WriteTimeout   time.Duration `env:"GATEWAY_WRITE_TIMEOUT"   envDefault:"60s"`
	ReadTimeout    time.Duration `env:"GATEWAY_READ_TIMEOUT"    envDefault:"600s"`
	PoolTimeout    time.Duration `env:"GATEWAY_POOL_TIMEOUT"    envDefault:"300s"`
}

// RoutingConfig maps engines to providers.
type RoutingConfig struct {
	EngineProviders map[string]string `env:"ENGINE_PROVIDERS" envSeparator:"," envKeyValSeparator:":"`
	PrimaryProvider string            `env:"PRIMARY_PROVIDER" envDefault:"openai"`
	EchoEnabled     bool              `env:"ECHO_ENABLED"     envDefault:"false"`
}

// AdminConfig lists basic-auth accounts for the admin surface.
type AdminConfig struct {
	Users map[string]string `env:"ADMIN_USERS" envSeparator:"," envKeyValSeparator:":"`
}

// ProviderConfig is parsed once per upstream provider using an env prefix.
type ProviderConfig struct {
	APIKey        string   `env:"API_KEY"`
	BaseURL       string   `env:"BASE_URL"`
	UseProxy      *bool    `env:"USE_PROXY"`
	Models        []string `env:"MODELS"         envSeparator:","`
	ModelPrefixes []string `env:"MODEL_PREFIXES" envSeparator:","`
}

// ProxyEnabled reports whether outbound calls should go through a proxy.
func (p ProviderConfig) ProxyEnabled() bool {
	return p.UseProxy != nil && *p.UseProxy
}

// DepConfig is used for dependency injection with dig.
type DepConfig struct {
	dig.Out
	*ServerConfig
	*CORSConfig
	*DatabaseConfig
	*RedisConfig
	*SchedulerConfig
	*GatewayConfig
	*RoutingConfig
	*AdminConfig
}

// Load loads environment files and parses configuration.
func Load() *Config {
	for _, file := range []string{".env"} {
		_ = godotenv.Load(file)
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		panic(err)
	}

	applyProviderDefaults(&cfg.OpenAI, defaultOpenAIBaseURL, true, []string{"gpt-", "o1", "o3", "o4", "chatgpt-"})
	applyProviderDefaults(&cfg.DeepSeek, defaultDeepSeekBaseURL, false, []string{"deepseek"})

	return &cfg
}

func applyProviderDefaults(p *ProviderConfig, baseURL string, useProxy bool, prefixes []string) {
	if p.BaseURL == "" {
		p.BaseURL = baseURL
	}
	if p.UseProxy == nil {
		p.UseProxy = &useProxy
	}
	if len(p.ModelPrefixes) == 0 {
		p.ModelPrefixes = prefixes
	}
}

// ParseDependenciesConfig returns pointers to sub-configs for dependency injection.
func ParseDependenciesConfig(cfg *Config) DepConfig {
	return DepConfig{
		dig.Out{},
		&cfg.Server,
		&cfg.CORS,
		&cfg.Database,
		&cfg.Redis,
		&cfg.Scheduler,
		&cfg.Gateway,
		&cfg.Routing,
		&cfg.Admin,
	}
}

// GenerationDefaults converts the defaults section into the domain value
// consumed by the request service.
func (c *Config) GenerationDefaults() domain.Defaults {
	return domain.Defaults{
		Engine:           c.Defaults.Engine,
		Temperature:      c.Defaults.Temperature,
		MaxTokens:        c.Defaults.MaxTokens,
		TopP:             c.Defaults.TopP,
		FrequencyPenalty: c.Defaults.FrequencyPenalty,
		PresencePenalty:  c.Defaults.PresencePenalty,
	}
}
