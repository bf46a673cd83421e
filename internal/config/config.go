// Package config loads and validates application configuration from YAML files
// and environment variables.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Supported backends.
const (
	LicenseProviderStatic = "static"
	LicenseProviderRedis  = "redis"

	TriggerStoreMemory   = "memory"
	TriggerStorePostgres = "postgres"
)

// Config is the root application configuration.
type Config struct {
	Server        ServerConfig        `yaml:"server"`
	Auth          AuthConfig          `yaml:"auth"`
	License       LicenseConfig       `yaml:"license"`
	Triggers      TriggersConfig      `yaml:"triggers"`
	Catalog       CatalogConfig       `yaml:"catalog"`
	Observability ObservabilityConfig `yaml:"observability"`
}

// ServerConfig describes HTTP server settings.
type ServerConfig struct {
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	HandlerTimeout  time.Duration `yaml:"handler_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	CORS            CORSConfig    `yaml:"cors"`
}

// CORSConfig describes Cross-Origin Resource Sharing settings.
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
	AllowedMethods []string `yaml:"allowed_methods"`
	AllowedHeaders []string `yaml:"allowed_headers"`
	MaxAge         int      `yaml:"max_age"`
}

// AuthConfig describes session token verification. Authentication is off
// when no secret resolves.
type AuthConfig struct {
	CookieName string `yaml:"cookie_name"`
	Secret     string `yaml:"secret"`
	SecretEnv  string `yaml:"secret_env"`
	Issuer     string `yaml:"issuer"`
}

// JWTSecret returns the signing secret, preferring the environment variable
// named by SecretEnv.
func (a AuthConfig) JWTSecret() string {
	if a.SecretEnv != "" {
		if v := os.Getenv(a.SecretEnv); v != "" {
			return v
		}
	}
	return a.Secret
}

// LicenseConfig selects and configures the license provider.
type LicenseConfig struct {
	Provider string             `yaml:"provider"`
	Static   StaticLicense      `yaml:"static"`
	Redis    RedisLicenseConfig `yaml:"redis"`
}

// StaticLicense is a license declared inline.
type StaticLicense struct {
	PlanID   string         `yaml:"plan_id"`
	Features map[string]any `yaml:"features"`
}

// RedisLicenseConfig describes the redis license cache.
type RedisLicenseConfig struct {
	Addr        string `yaml:"addr"`
	AddrEnv     string `yaml:"addr_env"`
	Password    string `yaml:"-"`
	PasswordEnv string `yaml:"password_env"`
	DB          int    `yaml:"db"`
	FeaturesKey string `yaml:"features_key"`
	MainPlanKey string `yaml:"main_plan_key"`
}

// Address returns the redis address, preferring the environment variable
// named by AddrEnv.
func (r RedisLicenseConfig) Address() string {
	if r.AddrEnv != "" {
		if v := os.Getenv(r.AddrEnv); v != "" {
			return v
		}
	}
	return r.Addr
}

// TriggersConfig selects and configures the active trigger counter.
type TriggersConfig struct {
	Store           string                     `yaml:"store"`
	DSNEnv          string                     `yaml:"dsn_env"`
	TablePrefix     string                     `yaml:"table_prefix"`
	MaxConns        int32                      `yaml:"max_conns"`
	MinConns        int32                      `yaml:"min_conns"`
	ConnMaxLifetime time.Duration              `yaml:"conn_max_lifetime"`
	Workflows       map[string]WorkflowTrigger `yaml:"workflows"`
}

// WorkflowTrigger seeds the in-memory trigger counter.
type WorkflowTrigger struct {
	Active       bool `yaml:"active"`
	TriggerCount int  `yaml:"trigger_count"`
}

// CatalogConfig describes where node types come from and how the catalog
// is organized.
type CatalogConfig struct {
	Directories              []string    `yaml:"directories"`
	Personalized             []string    `yaml:"personalized"`
	CategoryExpanded         bool        `yaml:"category_expanded"`
	UncategorizedSubcategory string      `yaml:"uncategorized_subcategory"`
	CredentialKeywords       []string    `yaml:"credential_keywords"`
	NodeKeywords             []string    `yaml:"node_keywords"`
	Cache                    CacheConfig `yaml:"cache"`
	Watch                    WatchConfig `yaml:"watch"`
}

// WatchConfig controls reloading node types when their files change.
type WatchConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Debounce time.Duration `yaml:"debounce"`
}

// CacheConfig describes cache settings.
type CacheConfig struct {
	TTL        time.Duration `yaml:"ttl"`
	MaxEntries int           `yaml:"max_entries"`
}

// ObservabilityConfig describes logging, tracing, and metrics settings.
type ObservabilityConfig struct {
	LogLevel string        `yaml:"log_level"`
	Tracing  TracingConfig `yaml:"tracing"`
	Metrics  MetricsConfig `yaml:"metrics"`
}

// TracingConfig describes distributed tracing settings.
type TracingConfig struct {
	Enabled      bool    `yaml:"enabled"`
	Exporter     string  `yaml:"exporter"`
	Endpoint     string  `yaml:"endpoint"`
	SamplingRate float64 `yaml:"sampling_rate"`
}

// MetricsConfig describes Prometheus metrics settings.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// Defaults returns a Config with sensible default values.
func Defaults() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            5678,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    30 * time.Second,
			HandlerTimeout:  25 * time.Second,
			ShutdownTimeout: 30 * time.Second,
			CORS: CORSConfig{
				AllowedMethods: []string{"GET", "OPTIONS"},
				AllowedHeaders: []string{"Authorization", "Content-Type", "X-Correlation-Id"},
				MaxAge:         86400,
			},
		},
		Auth: AuthConfig{
			CookieName: "n8n-auth",
			SecretEnv:  "FLOWDECK_AUTH_SECRET",
		},
		License: LicenseConfig{
			Provider: LicenseProviderStatic,
			Redis: RedisLicenseConfig{
				AddrEnv:     "FLOWDECK_REDIS_ADDR",
				PasswordEnv: "FLOWDECK_REDIS_PASSWORD",
			},
		},
		Triggers: TriggersConfig{
			Store:           TriggerStoreMemory,
			DSNEnv:          "FLOWDECK_DATABASE_URL",
			MaxConns:        10,
			MinConns:        1,
			ConnMaxLifetime: 30 * time.Minute,
		},
		Catalog: CatalogConfig{
			Directories: []string{"/node-types"},
			Cache: CacheConfig{
				TTL:        5 * time.Minute,
				MaxEntries: 256,
			},
			Watch: WatchConfig{
				Debounce: 500 * time.Millisecond,
			},
		},
		Observability: ObservabilityConfig{
			LogLevel: "info",
			Tracing: TracingConfig{
				Exporter:     "otlp",
				SamplingRate: 0.1,
			},
			Metrics: MetricsConfig{
				Enabled: true,
				Path:    "/metrics",
			},
		},
	}
}

// Load reads a YAML config file, applies environment variable overrides,
// and validates required fields. An empty path loads the defaults.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config: reading %s: %w", path, err)
		}

		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("config: parsing %s: %w", path, err)
		}
	}

	applyEnvOverrides(cfg)

	if cfg.License.Redis.PasswordEnv != "" {
		cfg.License.Redis.Password = os.Getenv(cfg.License.Redis.PasswordEnv)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: validation: %w", err)
	}

	return cfg, nil
}

// Validate checks that all required fields are present and valid.
func (c *Config) Validate() error {
	var errs []string

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errs = append(errs, "server.port must be between 1 and 65535")
	}

	switch c.License.Provider {
	case LicenseProviderStatic:
	case LicenseProviderRedis:
		if c.License.Redis.Address() == "" {
			errs = append(errs, "license.redis.addr or license.redis.addr_env is required for the redis provider")
		}
	default:
		errs = append(errs, fmt.Sprintf("license.provider %q must be static or redis", c.License.Provider))
	}

	switch c.Triggers.Store {
	case TriggerStoreMemory:
	case TriggerStorePostgres:
		if c.Triggers.DSNEnv == "" {
			errs = append(errs, "triggers.dsn_env is required for the postgres store")
		}
	default:
		errs = append(errs, fmt.Sprintf("triggers.store %q must be memory or postgres", c.Triggers.Store))
	}

	if len(c.Catalog.Directories) == 0 {
		errs = append(errs, "catalog.directories must list at least one directory")
	}

	if c.Observability.Tracing.Enabled {
		switch c.Observability.Tracing.Exporter {
		case "otlp", "stdout":
		default:
			errs = append(errs, fmt.Sprintf("observability.tracing.exporter %q must be otlp or stdout", c.Observability.Tracing.Exporter))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

// applyEnvOverrides reads FLOWDECK_* environment variables and overrides
// config values. Only the most commonly overridden fields are supported.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("FLOWDECK_SERVER_PORT"); v != "" {
		var port int
		if _, err := fmt.Sscanf(v, "%d", &port); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("FLOWDECK_LICENSE_PROVIDER"); v != "" {
		cfg.License.Provider = v
	}
	if v := os.Getenv("FLOWDECK_TRIGGERS_STORE"); v != "" {
		cfg.Triggers.Store = v
	}
	if v := os.Getenv("FLOWDECK_CATALOG_DIRECTORIES"); v != "" {
		var dirs []string
		for _, d := range strings.Split(v, ",") {
			if d = strings.TrimSpace(d); d != "" {
				dirs = append(dirs, d)
			}
		}
		cfg.Catalog.Directories = dirs
	}
	if v := os.Getenv("FLOWDECK_CATALOG_WATCH"); v != "" {
		cfg.Catalog.Watch.Enabled = v == "true" || v == "1"
	}
	if v := os.Getenv("FLOWDECK_OBSERVABILITY_LOG_LEVEL"); v != "" {
		cfg.Observability.LogLevel = v
	}
}
