package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all service configuration
type Config struct {
	Service     ServiceConfig
	Database    DatabaseConfig
	Redis       RedisConfig
	Cache       CacheConfig
	Queue       QueueConfig
	Telemetry   TelemetryConfig
	PatchSystem PatchSystemConfig
}

// ServiceConfig holds service-specific settings
type ServiceConfig struct {
	Name        string
	Port        int
	Environment string
	LogLevel    string
	LogFormat   string
}

// DatabaseConfig holds Postgres connection settings
type DatabaseConfig struct {
	Host        string
	Port        int
	Database    string
	User        string
	Password    string
	MaxConns    int
	MinConns    int
	MaxIdleTime time.Duration
	MaxLifetime time.Duration
}

// RedisConfig holds Redis connection settings
type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
}

// CacheConfig holds result cache settings
type CacheConfig struct {
	Enabled    bool
	Backend    string // "memory" or "redis"
	DefaultTTL time.Duration
}

// QueueConfig holds in-process event queue settings
type QueueConfig struct {
	Type       string // "memory" only
	BufferSize int
}

// TelemetryConfig holds observability settings
type TelemetryConfig struct {
	EnablePprof bool
	PprofPort   int
}

// PatchSystemConfig holds patch discovery and execution settings
type PatchSystemConfig struct {
	// ResultStore selects where run results live: "postgres" or "memory"
	ResultStore string

	// Sources lists the patch roots to scan; see LoadSources
	Sources []SourceConfig

	// SourcesFile optionally points to a YAML file describing Sources
	SourcesFile string

	// GroovyConsoleURL is the base URL of the script console, empty disables it
	GroovyConsoleURL      string
	GroovyConsoleUser     string
	GroovyConsolePassword string
	GroovyConsoleTimeout  time.Duration

	// ServiceUser is sent to the script console as the executing user
	ServiceUser string

	// AutoRun executes every new or modified patch once at startup
	AutoRun bool

	// RunRateLimit is the number of run requests per user per minute, 0 disables it
	RunRateLimit int64
}

// Load loads configuration from environment variables
func Load(serviceName string) (*Config, error) {
	cfg := &Config{
		Service: ServiceConfig{
			Name:        serviceName,
			Port:        getEnvInt("PORT", 8080),
			Environment: getEnv("ENVIRONMENT", "development"),
			LogLevel:    getEnv("LOG_LEVEL", "info"),
			LogFormat:   getEnv("LOG_FORMAT", "text"), // Default to text for development
		},
		Database: DatabaseConfig{
			Host:        getEnv("POSTGRES_HOST", "localhost"),
			Port:        getEnvInt("POSTGRES_PORT", 5432),
			Database:    getEnv("POSTGRES_DB", "patchsystem"),
			User:        getEnv("POSTGRES_USER", "patchsystem"),
			Password:    getEnv("POSTGRES_PASSWORD", "patchsystem"),
			MaxConns:    getEnvInt("POSTGRES_MAX_CONNS", 10),
			MinConns:    getEnvInt("POSTGRES_MIN_CONNS", 2),
			MaxIdleTime: getEnvDuration("POSTGRES_MAX_IDLE_TIME", 30*time.Minute),
			MaxLifetime: getEnvDuration("POSTGRES_MAX_LIFETIME", 1*time.Hour),
		},
		Redis: RedisConfig{
			Enabled:  getEnvBool("REDIS_ENABLED", false),
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnvInt("REDIS_PORT", 6379),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
		},
		Cache: CacheConfig{
			Enabled:    getEnvBool("CACHE_ENABLED", true),
			Backend:    getEnv("CACHE_BACKEND", "memory"),
			DefaultTTL: getEnvDuration("CACHE_DEFAULT_TTL", 5*time.Minute),
		},
		Queue: QueueConfig{
			Type:       getEnv("QUEUE_TYPE", "memory"),
			BufferSize: getEnvInt("QUEUE_BUFFER_SIZE", 1000),
		},
		Telemetry: TelemetryConfig{
			EnablePprof: getEnvBool("ENABLE_PPROF", false),
			PprofPort:   getEnvInt("PPROF_PORT", 6060),
		},
		PatchSystem: PatchSystemConfig{
			ResultStore:           getEnv("PATCH_RESULT_STORE", "postgres"),
			SourcesFile:           getEnv("PATCH_SOURCES_FILE", ""),
			GroovyConsoleURL:      getEnv("GROOVY_CONSOLE_URL", ""),
			GroovyConsoleUser:     getEnv("GROOVY_CONSOLE_USER", "admin"),
			GroovyConsolePassword: getEnv("GROOVY_CONSOLE_PASSWORD", ""),
			GroovyConsoleTimeout:  getEnvDuration("GROOVY_CONSOLE_TIMEOUT", 10*time.Minute),
			ServiceUser:           getEnv("PATCH_SERVICE_USER", DefaultServiceUser),
			AutoRun:               getEnvBool("PATCH_AUTO_RUN", false),
			RunRateLimit:          int64(getEnvInt("PATCH_RUN_RATE_LIMIT", 30)),
		},
	}

	sources, err := LoadSources(cfg.PatchSystem.SourcesFile)
	if err != nil {
		return nil, err
	}
	cfg.PatchSystem.Sources = sources

	return cfg, cfg.Validate()
}

// Validate checks if configuration is valid
func (c *Config) Validate() error {
	if c.Service.Port < 1 || c.Service.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Service.Port)
	}

	switch c.PatchSystem.ResultStore {
	case "postgres":
		if c.Database.Host == "" {
			return fmt.Errorf("database host is required")
		}
		if c.Database.MaxConns < c.Database.MinConns {
			return fmt.Errorf("max_conns must be >= min_conns")
		}
	case "memory":
	default:
		return fmt.Errorf("unknown result store: %s", c.PatchSystem.ResultStore)
	}

	if c.Cache.Enabled && c.Cache.Backend == "redis" && !c.Redis.Enabled {
		return fmt.Errorf("redis cache backend requires REDIS_ENABLED=true")
	}

	if len(c.PatchSystem.Sources) == 0 {
		return fmt.Errorf("at least one patch source is required")
	}

	seen := make(map[string]bool, len(c.PatchSystem.Sources))
	for _, src := range c.PatchSystem.Sources {
		if err := src.Validate(); err != nil {
			return err
		}
		if seen[src.Name] {
			return fmt.Errorf("duplicate patch source: %s", src.Name)
		}
		seen[src.Name] = true
	}

	return nil
}

// DatabaseURL returns the PostgreSQL connection string
func (c *Config) DatabaseURL() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=disable",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Database,
	)
}

// RedisAddr returns host:port of the Redis server
func (c *Config) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Redis.Host, c.Redis.Port)
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getEnvSlice(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
