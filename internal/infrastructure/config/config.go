// Package config provides centralized configuration management
// using Viper for configuration loading and validation
package config

import (
	stderrors "errors"
	"fmt"
	"io/fs"
	"net/url"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix is the prefix of environment variables overriding the config
const EnvPrefix = "RECIPEDIFF"

// Config holds all application configuration
type Config struct {
	App        AppConfig        `mapstructure:"app"`
	Server     ServerConfig     `mapstructure:"server"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Redis      RedisConfig      `mapstructure:"redis"`
	Cache      CacheConfig      `mapstructure:"cache"`
	Auth       AuthConfig       `mapstructure:"auth"`
	Diff       DiffConfig       `mapstructure:"diff"`
	Monitoring MonitoringConfig `mapstructure:"monitoring"`
	RateLimit  RateLimitConfig  `mapstructure:"rate_limit"`
	Retention  RetentionConfig  `mapstructure:"retention"`
	Log        LogConfig        `mapstructure:"log"`

	viper *viper.Viper
}

// AppConfig contains application-level configuration
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
	Debug       bool   `mapstructure:"debug"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Host              string        `mapstructure:"host"`
	Port              int           `mapstructure:"port"`
	ReadTimeout       time.Duration `mapstructure:"read_timeout"`
	WriteTimeout      time.Duration `mapstructure:"write_timeout"`
	IdleTimeout       time.Duration `mapstructure:"idle_timeout"`
	MaxHeaderBytes    int           `mapstructure:"max_header_bytes"`
	ShutdownTimeout   time.Duration `mapstructure:"shutdown_timeout"`
	EnableCORS        bool          `mapstructure:"enable_cors"`
	AllowedOrigins    []string      `mapstructure:"allowed_origins"`
	TrustedProxies    []string      `mapstructure:"trusted_proxies"`
	EnableCompression bool          `mapstructure:"enable_compression"`
	EnableHTTP2       bool          `mapstructure:"enable_http2"`
	MaxBodyBytes      int64         `mapstructure:"max_body_bytes"`
}

// DatabaseConfig contains database configuration
type DatabaseConfig struct {
	Driver             string        `mapstructure:"driver"`
	Path               string        `mapstructure:"path"`
	Host               string        `mapstructure:"host"`
	Port               int           `mapstructure:"port"`
	Database           string        `mapstructure:"database"`
	Username           string        `mapstructure:"username"`
	Password           string        `mapstructure:"password"`
	SSLMode            string        `mapstructure:"ssl_mode"`
	Replicas           []string      `mapstructure:"replicas"`
	MaxOpenConns       int           `mapstructure:"max_open_conns"`
	MaxIdleConns       int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime    time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime    time.Duration `mapstructure:"conn_max_idle_time"`
	LogLevel           string        `mapstructure:"log_level"`
	SlowQueryThreshold time.Duration `mapstructure:"slow_query_threshold"`
	AutoMigrate        bool          `mapstructure:"auto_migrate"`
}

// RedisConfig contains Redis configuration
type RedisConfig struct {
	Host          string        `mapstructure:"host"`
	Port          int           `mapstructure:"port"`
	Password      string        `mapstructure:"password"`
	Database      int           `mapstructure:"database"`
	MaxRetries    int           `mapstructure:"max_retries"`
	MinIdleConns  int           `mapstructure:"min_idle_conns"`
	PoolSize      int           `mapstructure:"pool_size"`
	DialTimeout   time.Duration `mapstructure:"dial_timeout"`
	ReadTimeout   time.Duration `mapstructure:"read_timeout"`
	WriteTimeout  time.Duration `mapstructure:"write_timeout"`
	EnableCluster bool          `mapstructure:"enable_cluster"`
	ClusterNodes  []string      `mapstructure:"cluster_nodes"`
}

// CacheConfig contains diff and token cache configuration
type CacheConfig struct {
	Provider  string        `mapstructure:"provider"`
	TTL       time.Duration `mapstructure:"ttl"`
	Size      int           `mapstructure:"size"`
	TokenTTL  time.Duration `mapstructure:"token_ttl"`
	TokenSize int           `mapstructure:"token_size"`
}

// AuthConfig contains authentication configuration
type AuthConfig struct {
	JWTSecret string   `mapstructure:"jwt_secret"`
	Issuer    string   `mapstructure:"issuer"`
	Audience  []string `mapstructure:"audience"`
}

// DiffConfig controls how recipe diffs are computed and rendered
type DiffConfig struct {
	Alignment  string `mapstructure:"alignment"`
	AddedClass string `mapstructure:"added_class"`
	Escape     bool   `mapstructure:"escape"`
	Sanitize   bool   `mapstructure:"sanitize"`
}

// MonitoringConfig contains monitoring configuration
type MonitoringConfig struct {
	EnableMetrics bool    `mapstructure:"enable_metrics"`
	MetricsPort   int     `mapstructure:"metrics_port"`
	EnablePprof   bool    `mapstructure:"enable_pprof"`
	EnableTracing bool    `mapstructure:"enable_tracing"`
	OTLPEndpoint  string  `mapstructure:"otlp_endpoint"`
	OTLPInsecure  bool    `mapstructure:"otlp_insecure"`
	SamplingRate  float64 `mapstructure:"sampling_rate"`
}

// RateLimitConfig contains rate limiting configuration
type RateLimitConfig struct {
	Enable          bool          `mapstructure:"enable"`
	RequestsPerMin  int           `mapstructure:"requests_per_min"`
	BurstSize       int           `mapstructure:"burst_size"`
	CleanupInterval time.Duration `mapstructure:"cleanup_interval"`
}

// RetentionConfig controls the scheduled deletion of archived revisions
type RetentionConfig struct {
	Enable    bool          `mapstructure:"enable"`
	Interval  time.Duration `mapstructure:"interval"`
	OlderThan time.Duration `mapstructure:"older_than"`
}

// LogConfig contains logger configuration
type LogConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
	Compress   bool   `mapstructure:"compress"`
}

// Load loads configuration from .env files, the config file and
// environment variables, in increasing order of precedence
func Load(configPath string) (*Config, error) {
	if err := loadDotEnv(".env.local", ".env"); err != nil {
		return nil, err
	}

	v := viper.New()

	// Set default values
	setDefaults(v)

	// Set config file
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("/etc/recipediff")
	}

	// Enable environment variable override
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Read config file
	if err := v.ReadInConfig(); err != nil {
		// It's okay if config file doesn't exist, we have defaults
		var notFound viper.ConfigFileNotFoundError
		if !stderrors.As(err, &notFound) && !stderrors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	return decode(v)
}

func decode(v *viper.Viper) (*Config, error) {
	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	config.viper = v
	return &config, nil
}

// loadDotEnv loads the given files into the environment. Earlier files
// win since godotenv never overrides a variable that is already set.
func loadDotEnv(files ...string) error {
	for _, file := range files {
		if err := godotenv.Load(file); err != nil && !stderrors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("failed to load %s: %w", file, err)
		}
	}
	return nil
}

// Watch re-reads the config file whenever it changes and passes the new
// configuration to onChange. Invalid configurations are reported to
// onError and otherwise ignored.
func (c *Config) Watch(onChange func(*Config, fsnotify.Event), onError func(error)) {
	if c.viper == nil || c.viper.ConfigFileUsed() == "" {
		return
	}

	c.viper.OnConfigChange(func(e fsnotify.Event) {
		if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
			return
		}
		next, err := decode(c.viper)
		if err != nil {
			if onError != nil {
				onError(err)
			}
			return
		}
		onChange(next, e)
	})
	c.viper.WatchConfig()
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// App defaults
	v.SetDefault("app.name", "recipediff")
	v.SetDefault("app.version", "1.0.0")
	v.SetDefault("app.environment", "development")
	v.SetDefault("app.debug", false)

	// Server defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 3000)
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.write_timeout", "15s")
	v.SetDefault("server.idle_timeout", "60s")
	v.SetDefault("server.max_header_bytes", 1<<20) // 1MB
	v.SetDefault("server.shutdown_timeout", "30s")
	v.SetDefault("server.enable_cors", true)
	v.SetDefault("server.allowed_origins", []string{"http://localhost:5173"})
	v.SetDefault("server.trusted_proxies", []string{})
	v.SetDefault("server.enable_compression", true)
	v.SetDefault("server.enable_http2", true)
	v.SetDefault("server.max_body_bytes", 1<<20)

	// Database defaults
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.path", "recipediff.db")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.database", "recipediff")
	v.SetDefault("database.username", "")
	v.SetDefault("database.password", "")
	v.SetDefault("database.ssl_mode", "disable")
	v.SetDefault("database.replicas", []string{})
	v.SetDefault("database.max_open_conns", 25)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", "1h")
	v.SetDefault("database.conn_max_idle_time", "10m")
	v.SetDefault("database.log_level", "warn")
	v.SetDefault("database.slow_query_threshold", "200ms")
	v.SetDefault("database.auto_migrate", true)

	// Redis defaults
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.database", 0)
	v.SetDefault("redis.max_retries", 3)
	v.SetDefault("redis.min_idle_conns", 0)
	v.SetDefault("redis.pool_size", 10)
	v.SetDefault("redis.dial_timeout", "5s")
	v.SetDefault("redis.read_timeout", "3s")
	v.SetDefault("redis.write_timeout", "3s")
	v.SetDefault("redis.enable_cluster", false)
	v.SetDefault("redis.cluster_nodes", []string{})

	// Cache defaults
	v.SetDefault("cache.provider", "memory")
	v.SetDefault("cache.ttl", "300s")
	v.SetDefault("cache.size", 100)
	v.SetDefault("cache.token_ttl", "1h")
	v.SetDefault("cache.token_size", 1000)

	// Auth defaults. Every key needs one so RECIPEDIFF_AUTH_* overrides
	// are picked up by Unmarshal.
	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.issuer", "")
	v.SetDefault("auth.audience", []string{})

	// Diff defaults
	v.SetDefault("diff.alignment", "greedy")
	v.SetDefault("diff.added_class", "diff-added")
	v.SetDefault("diff.escape", false)
	v.SetDefault("diff.sanitize", true)

	// Monitoring defaults
	v.SetDefault("monitoring.enable_metrics", true)
	v.SetDefault("monitoring.metrics_port", 9090)
	v.SetDefault("monitoring.enable_pprof", false)
	v.SetDefault("monitoring.enable_tracing", false)
	v.SetDefault("monitoring.otlp_endpoint", "localhost:4318")
	v.SetDefault("monitoring.otlp_insecure", true)
	v.SetDefault("monitoring.sampling_rate", 0.1)

	// Rate limit defaults
	v.SetDefault("rate_limit.enable", true)
	v.SetDefault("rate_limit.requests_per_min", 10)
	v.SetDefault("rate_limit.burst_size", 10)
	v.SetDefault("rate_limit.cleanup_interval", "1m")

	// Retention defaults
	v.SetDefault("retention.enable", true)
	v.SetDefault("retention.interval", "24h")
	v.SetDefault("retention.older_than", "720h") // 30 days

	// Log defaults
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("log.file", "")
	v.SetDefault("log.max_size_mb", 100)
	v.SetDefault("log.max_backups", 5)
	v.SetDefault("log.max_age_days", 28)
	v.SetDefault("log.compress", true)
}

// Validate validates the configuration
func (c *Config) Validate() error {
	// Validate required fields
	if c.App.Name == "" {
		return fmt.Errorf("app.name is required")
	}

	if c.Auth.JWTSecret == "" && c.IsProduction() {
		return fmt.Errorf("auth.jwt_secret is required in production")
	}
	if c.IsProduction() && c.Server.EnableCORS {
		for _, origin := range c.Server.AllowedOrigins {
			if origin == "*" {
				return fmt.Errorf("server.allowed_origins must list explicit origins in production")
			}
		}
	}

	// Validate port ranges
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535")
	}
	if c.Monitoring.EnableMetrics && (c.Monitoring.MetricsPort < 1 || c.Monitoring.MetricsPort > 65535) {
		return fmt.Errorf("monitoring.metrics_port must be between 1 and 65535")
	}

	switch c.Database.Driver {
	case "sqlite":
		if c.Database.Path == "" {
			return fmt.Errorf("database.path is required for sqlite")
		}
	case "postgres":
		if c.Database.Database == "" {
			return fmt.Errorf("database.database is required for postgres")
		}
	default:
		return fmt.Errorf("database.driver must be sqlite or postgres, got %q", c.Database.Driver)
	}

	switch c.Cache.Provider {
	case "memory", "redis", "none":
	default:
		return fmt.Errorf("cache.provider must be memory, redis or none, got %q", c.Cache.Provider)
	}

	switch c.Diff.Alignment {
	case "", "greedy", "lcs":
	default:
		return fmt.Errorf("diff.alignment must be greedy or lcs, got %q", c.Diff.Alignment)
	}

	if c.RateLimit.Enable && c.RateLimit.RequestsPerMin <= 0 {
		return fmt.Errorf("rate_limit.requests_per_min must be positive")
	}
	if c.Retention.Enable && c.Retention.Interval <= 0 {
		return fmt.Errorf("retention.interval must be positive")
	}

	return nil
}

// IsProduction returns true if running in production
func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

// IsDevelopment returns true if running in development
func (c *Config) IsDevelopment() bool {
	return c.App.Environment == "development"
}

// GetDSN returns the postgres connection string
func (c *Config) GetDSN() string {
	return PostgresDSN(c.Database.Host, c.Database.Port, c.Database)
}

// PostgresDSN builds a postgres DSN for host:port using the credentials
// in db. Replicas share the primary's credentials.
func PostgresDSN(host string, port int, db DatabaseConfig) string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		host,
		port,
		db.Username,
		db.Password,
		db.Database,
		db.SSLMode,
	)
}

// MigrationURL returns the postgres URL used by golang-migrate
func (c *Config) MigrationURL() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.Database.Username, c.Database.Password),
		Host:     fmt.Sprintf("%s:%d", c.Database.Host, c.Database.Port),
		Path:     "/" + c.Database.Database,
		RawQuery: url.Values{"sslmode": {c.Database.SSLMode}}.Encode(),
	}
	return u.String()
}

// RedisAddrs returns the redis addresses to connect to
func (c *Config) RedisAddrs() []string {
	if c.Redis.EnableCluster && len(c.Redis.ClusterNodes) > 0 {
		return c.Redis.ClusterNodes
	}
	return []string{fmt.Sprintf("%s:%d", c.Redis.Host, c.Redis.Port)}
}
