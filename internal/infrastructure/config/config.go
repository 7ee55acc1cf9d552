package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	Server        ServerConfig        `mapstructure:"server"`
	Database      DatabaseConfig      `mapstructure:"database"`
	Redis         RedisConfig         `mapstructure:"redis"`
	Purchase      PurchaseConfig      `mapstructure:"purchase"`
	Digest        DigestConfig        `mapstructure:"digest"`
	Postback      PostbackConfig      `mapstructure:"postback"`
	Fraud         FraudConfig         `mapstructure:"fraud"`
	Observability ObservabilityConfig `mapstructure:"observability"`
	InstanceID    string              `mapstructure:"instance_id"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	CORS            CORSConfig    `mapstructure:"cors"`
}

// CORSConfig holds CORS configuration
type CORSConfig struct {
	AllowedOrigins   []string `mapstructure:"allowed_origins"`
	AllowCredentials bool     `mapstructure:"allow_credentials"`
}

// DatabaseConfig holds PostgreSQL configuration
type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Database        string        `mapstructure:"database"`
	MaxConnections  int           `mapstructure:"max_connections"`
	MinConnections  int           `mapstructure:"min_connections"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	SSLMode         string        `mapstructure:"ssl_mode"`
}

// DatabaseDSN builds the connection string.
func (c *DatabaseConfig) DatabaseDSN() string {
	return fmt.Sprintf("postgresql://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.Database, c.SSLMode)
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host              string        `mapstructure:"host"`
	Port              int           `mapstructure:"port"`
	DB                int           `mapstructure:"db"`
	Password          string        `mapstructure:"password"`
	ConnectRetries    int           `mapstructure:"connect_retries"`
	ConnectRetryDelay time.Duration `mapstructure:"connect_retry_delay"`
}

// RedisAddr builds the host:port address.
func (c *RedisConfig) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// PurchaseConfig holds purchase orchestration configuration
type PurchaseConfig struct {
	SessionTTL        time.Duration `mapstructure:"session_ttl"`
	MaxBillerSubmits  int           `mapstructure:"max_biller_submits"`
	ThreeDMandated    bool          `mapstructure:"three_d_mandated"`
	CascadeOrder      []string      `mapstructure:"cascade_order"`
	CurrencyOverrides map[string][]string `mapstructure:"currency_overrides"`
}

// DigestConfig holds the per-site signing keys, indexed by publicKeyIndex.
type DigestConfig struct {
	SiteKeys []string `mapstructure:"site_keys"`
}

// PostbackConfig holds postback delivery configuration
type PostbackConfig struct {
	MaxAttempts   int           `mapstructure:"max_attempts"`
	RetryDelay    time.Duration `mapstructure:"retry_delay"`
	BatchSize     int64         `mapstructure:"batch_size"`
	BlockDuration time.Duration `mapstructure:"block_duration"`
	ConsumerGroup string        `mapstructure:"consumer_group"`
	HTTPTimeout   time.Duration `mapstructure:"http_timeout"`
}

// FraudConfig holds fraud gate configuration
type FraudConfig struct {
	Enabled            bool     `mapstructure:"enabled"`
	BlacklistedEmails  []string `mapstructure:"blacklisted_emails"`
	BlacklistedIPs     []string `mapstructure:"blacklisted_ips"`
	ForceThreeDSites   []string `mapstructure:"force_three_d_sites"`
	CaptchaOnInitSites []string `mapstructure:"captcha_on_init_sites"`
}

// ObservabilityConfig holds logging and tracing configuration
type ObservabilityConfig struct {
	LogLevel       string `mapstructure:"log_level"`
	JaegerEndpoint string `mapstructure:"jaeger_endpoint"`
	EnableMetrics  bool   `mapstructure:"enable_metrics"`
	EnableTracing  bool   `mapstructure:"enable_tracing"`
}

// Load reads configuration from environment variables and config files
func Load() (*Config, error) {
	v := viper.New()

	// Set defaults
	setDefaults(v)

	// Read from environment variables
	v.SetEnvPrefix("PURCHASES")
	v.AutomaticEnv()

	// Read from config file if exists
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/purchases")

	// Config file is optional
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

// Validate checks that required configuration fields have valid values.
func (c *Config) Validate() error {
	var errs []error

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port must be between 1 and 65535, got %d", c.Server.Port))
	}
	if c.Server.ReadTimeout <= 0 {
		errs = append(errs, fmt.Errorf("server.read_timeout must be positive"))
	}
	if c.Server.WriteTimeout <= 0 {
		errs = append(errs, fmt.Errorf("server.write_timeout must be positive"))
	}
	if c.Database.Host == "" {
		errs = append(errs, fmt.Errorf("database.host is required"))
	}
	if c.Database.Port <= 0 {
		errs = append(errs, fmt.Errorf("database.port must be positive"))
	}
	if c.Redis.Port <= 0 {
		errs = append(errs, fmt.Errorf("redis.port must be positive"))
	}
	if c.Purchase.SessionTTL <= 0 {
		errs = append(errs, fmt.Errorf("purchase.session_ttl must be positive"))
	}
	if c.Purchase.MaxBillerSubmits <= 0 {
		errs = append(errs, fmt.Errorf("purchase.max_biller_submits must be positive"))
	}
	if len(c.Digest.SiteKeys) == 0 {
		errs = append(errs, fmt.Errorf("digest.site_keys must contain at least one key"))
	}
	if c.Postback.MaxAttempts <= 0 {
		errs = append(errs, fmt.Errorf("postback.max_attempts must be positive"))
	}
	if c.Postback.RetryDelay <= 0 {
		errs = append(errs, fmt.Errorf("postback.retry_delay must be positive"))
	}
	if c.Postback.BatchSize <= 0 {
		errs = append(errs, fmt.Errorf("postback.batch_size must be positive"))
	}

	return errors.Join(errs...)
}

func setDefaults(v *viper.Viper) {
	// Server
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.write_timeout", "15s")
	v.SetDefault("server.shutdown_timeout", "30s")
	v.SetDefault("server.cors.allowed_origins", []string{"*"})
	v.SetDefault("server.cors.allow_credentials", false)

	// Database
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "purchases")
	v.SetDefault("database.password", "purchases")
	v.SetDefault("database.database", "purchases")
	v.SetDefault("database.max_connections", 25)
	v.SetDefault("database.min_connections", 5)
	v.SetDefault("database.conn_max_lifetime", "30m")
	v.SetDefault("database.ssl_mode", "disable")

	// Redis
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.connect_retries", 5)
	v.SetDefault("redis.connect_retry_delay", "1s")

	// Purchase orchestration
	v.SetDefault("purchase.session_ttl", "30m")
	v.SetDefault("purchase.max_biller_submits", 2)
	v.SetDefault("purchase.three_d_mandated", false)
	v.SetDefault("purchase.cascade_order", []string{"rocketgate", "netbilling", "epoch"})

	// Digest
	v.SetDefault("digest.site_keys", []string{"local-development-key"})

	// Postback delivery
	v.SetDefault("postback.max_attempts", 5)
	v.SetDefault("postback.retry_delay", "10s")
	v.SetDefault("postback.batch_size", 10)
	v.SetDefault("postback.block_duration", "5s")
	v.SetDefault("postback.consumer_group", "postback-delivery")
	v.SetDefault("postback.http_timeout", "10s")

	// Fraud
	v.SetDefault("fraud.enabled", true)

	// Observability
	v.SetDefault("observability.log_level", "info")
	v.SetDefault("observability.jaeger_endpoint", "http://localhost:14268/api/traces")
	v.SetDefault("observability.enable_metrics", true)
	v.SetDefault("observability.enable_tracing", false)

	// Instance
	v.SetDefault("instance_id", "purchases-1")
}
