// Package config loads the orchestrator configuration from consilium.yaml with
// environment overrides, and provides a file watcher for hot-reload.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// Config is the full orchestrator configuration.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Gateway  GatewayConfig  `mapstructure:"gateway"`
	Council  CouncilConfig  `mapstructure:"council"`
	Arxiv    ArxivConfig    `mapstructure:"arxiv"`
	Temporal TemporalConfig `mapstructure:"temporal"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Postgres PostgresConfig `mapstructure:"postgres"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Tracing  TracingConfig  `mapstructure:"tracing"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// ServerConfig configures the public API and admin HTTP listeners.
type ServerConfig struct {
	Port      int `mapstructure:"port"`
	AdminPort int `mapstructure:"admin_port"`
}

// GatewayConfig configures the hosted-model gateway (the invocation port).
type GatewayConfig struct {
	URL            string  `mapstructure:"url"`
	ModelID        string  `mapstructure:"model_id"`
	Region         string  `mapstructure:"region"`
	TimeoutSeconds int     `mapstructure:"timeout_seconds"`
	RequestsPerMin int     `mapstructure:"requests_per_min"`
	TopP           float64 `mapstructure:"top_p"`
}

// CouncilConfig configures the council deliberation engine.
type CouncilConfig struct {
	Members         int     `mapstructure:"members"`
	BaseTemperature float64 `mapstructure:"base_temperature"`
}

// ArxivConfig configures the paper search port.
type ArxivConfig struct {
	BaseURL    string `mapstructure:"base_url"`
	MaxResults int    `mapstructure:"max_results"`
}

// TemporalConfig configures the workflow engine connection.
type TemporalConfig struct {
	HostPort  string `mapstructure:"host_port"`
	Namespace string `mapstructure:"namespace"`
	TaskQueue string `mapstructure:"task_queue"`
}

// RedisConfig configures the conversation store backend.
type RedisConfig struct {
	Addr string `mapstructure:"addr"`
}

// PostgresConfig configures the durable deliberation record. Disabled by
// default; the orchestrator runs fully without it.
type PostgresConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Database string `mapstructure:"database"`
	SSLMode  string `mapstructure:"sslmode"`
}

// AuthConfig configures gateway authentication. When disabled the API routes
// run open; the token exchange endpoint is registered either way.
type AuthConfig struct {
	Enabled         bool              `mapstructure:"enabled"`
	SigningKey      string            `mapstructure:"signing_key"`
	TokenTTLMinutes int               `mapstructure:"token_ttl_minutes"`
	Clients         map[string]string `mapstructure:"clients"` // client_id -> client_secret
}

// TracingConfig configures optional OTLP trace export.
type TracingConfig struct {
	Enabled      bool   `mapstructure:"enabled"`
	ServiceName  string `mapstructure:"service_name"`
	OTLPEndpoint string `mapstructure:"otlp_endpoint"`
}

// LoggingConfig configures the zap logger.
type LoggingConfig struct {
	Level string `mapstructure:"level"`
}

// Path returns the config file path: CONFIG_PATH or ./config/consilium.yaml.
func Path() string {
	if p := os.Getenv("CONFIG_PATH"); p != "" {
		return p
	}
	return "./config/consilium.yaml"
}

// Load reads the config file and applies CONSILIUM_* environment overrides
// (e.g. CONSILIUM_GATEWAY_URL overrides gateway.url). A missing file is not an
// error; defaults plus env are enough to run.
func Load() (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("CONSILIUM")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	path := Path()
	if _, err := os.Stat(path); err == nil {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8001)
	v.SetDefault("server.admin_port", 8081)

	v.SetDefault("gateway.url", "http://model-gateway:8080")
	v.SetDefault("gateway.model_id", "us.anthropic.claude-3-5-haiku-20241022-v1:0")
	v.SetDefault("gateway.region", "us-east-1")
	v.SetDefault("gateway.timeout_seconds", 120)
	v.SetDefault("gateway.requests_per_min", 60)
	v.SetDefault("gateway.top_p", 0.9)

	v.SetDefault("council.members", 3)
	v.SetDefault("council.base_temperature", 0.7)

	v.SetDefault("arxiv.base_url", "http://export.arxiv.org/api/query")
	v.SetDefault("arxiv.max_results", 5)

	v.SetDefault("temporal.host_port", "temporal:7233")
	v.SetDefault("temporal.namespace", "default")
	v.SetDefault("temporal.task_queue", "consilium-tasks")

	v.SetDefault("redis.addr", "redis:6379")

	v.SetDefault("postgres.enabled", false)
	v.SetDefault("postgres.host", "postgres")
	v.SetDefault("postgres.port", 5432)
	v.SetDefault("postgres.user", "consilium")
	v.SetDefault("postgres.database", "consilium")
	v.SetDefault("postgres.sslmode", "disable")

	v.SetDefault("auth.enabled", false)
	v.SetDefault("auth.token_ttl_minutes", 60)

	v.SetDefault("tracing.enabled", false)
	v.SetDefault("tracing.service_name", "consilium-orchestrator")
	v.SetDefault("tracing.otlp_endpoint", "localhost:4317")

	v.SetDefault("logging.level", "info")
}
