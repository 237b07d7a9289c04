package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	App        AppConfig
	Database   DatabaseConfig
	Redis      RedisConfig
	Log        LogConfig
	HTTP       HTTPConfig
	Poller     PollerConfig
	Connectors ConnectorsConfig
}

// AppConfig holds application-specific settings
type AppConfig struct {
	Name string
	Env  string
	Port string
	// BaseURL is this process's externally reachable address, used to build
	// OAuth redirect and webhook callback URLs
	BaseURL string
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Host            string
	Port            int
	User            string
	Password        string
	DBName          string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime int // in minutes
	ConnMaxIdleTime int // in minutes
}

// RedisConfig holds Redis connection settings
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // json, console
	Output string // stdout, stderr, or file path
}

// HTTPConfig holds HTTP server configuration
type HTTPConfig struct {
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
	MaxHeaderBytes int
	TrustedProxies []string
}

// PollerConfig holds order polling configuration
type PollerConfig struct {
	// Interval is how often watched platforms are polled for orders
	Interval time.Duration
	// StateTTL bounds how long an in-flight authorization may dangle
	StateTTL time.Duration
}

// ConnectorsConfig holds per-platform connector settings. A platform with
// no credentials configured is simply not wired at startup.
type ConnectorsConfig struct {
	Etsy    EtsyConnectorConfig
	EtsyV3  EtsyV3ConnectorConfig
	Shopify ShopifyConnectorConfig
	POS     POSConnectorConfig
}

// EtsyConnectorConfig holds legacy Etsy v2 settings
type EtsyConnectorConfig struct {
	Keystring    string
	SharedSecret string
	Shop         string
}

// Enabled reports whether the connector has enough configuration to start
func (c EtsyConnectorConfig) Enabled() bool {
	return c.Keystring != "" && c.SharedSecret != "" && c.Shop != ""
}

// EtsyV3ConnectorConfig holds Etsy v3 settings
type EtsyV3ConnectorConfig struct {
	Keystring    string
	SharedSecret string
	Shop         string
}

// Enabled reports whether the connector has enough configuration to start
func (c EtsyV3ConnectorConfig) Enabled() bool {
	return c.Keystring != "" && c.Shop != ""
}

// ShopifyConnectorConfig holds Shopify settings
type ShopifyConnectorConfig struct {
	Shop      string
	APIKey    string
	SecretKey string
}

// Enabled reports whether the connector has enough configuration to start
func (c ShopifyConnectorConfig) Enabled() bool {
	return c.Shop != "" && c.APIKey != "" && c.SecretKey != ""
}

// POSConnectorConfig holds point-of-sale settings
type POSConnectorConfig struct {
	Username string
	Password string
	BaseURL  string
}

// Enabled reports whether the connector has enough configuration to start
func (c POSConnectorConfig) Enabled() bool {
	return c.Username != "" && c.Password != ""
}

// Load loads configuration from TOML file and environment variables
// Priority (highest to lowest):
// 1. Environment variables with CHANNELSYNC_ prefix (e.g. CHANNELSYNC_DATABASE_PASSWORD)
// 2. config.toml
// 3. Built-in defaults
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(".")
	v.AddConfigPath("/app")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Missing config file is fine; defaults and env vars cover it
	}

	v.SetEnvPrefix("CHANNELSYNC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := &Config{
		App: AppConfig{
			Name:    v.GetString("app.name"),
			Env:     v.GetString("app.env"),
			Port:    v.GetString("app.port"),
			BaseURL: v.GetString("app.base_url"),
		},
		Database: DatabaseConfig{
			Host:            v.GetString("database.host"),
			Port:            v.GetInt("database.port"),
			User:            v.GetString("database.user"),
			Password:        v.GetString("database.password"),
			DBName:          v.GetString("database.dbname"),
			SSLMode:         v.GetString("database.sslmode"),
			MaxOpenConns:    v.GetInt("database.max_open_conns"),
			MaxIdleConns:    v.GetInt("database.max_idle_conns"),
			ConnMaxLifetime: v.GetInt("database.conn_max_lifetime"),
			ConnMaxIdleTime: v.GetInt("database.conn_max_idle_time"),
		},
		Redis: RedisConfig{
			Host:     v.GetString("redis.host"),
			Port:     v.GetInt("redis.port"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
			Output: v.GetString("log.output"),
		},
		HTTP: HTTPConfig{
			ReadTimeout:    v.GetDuration("http.read_timeout"),
			WriteTimeout:   v.GetDuration("http.write_timeout"),
			IdleTimeout:    v.GetDuration("http.idle_timeout"),
			MaxHeaderBytes: v.GetInt("http.max_header_bytes"),
			TrustedProxies: v.GetStringSlice("http.trusted_proxies"),
		},
		Poller: PollerConfig{
			Interval: v.GetDuration("poller.interval"),
			StateTTL: v.GetDuration("poller.state_ttl"),
		},
		Connectors: ConnectorsConfig{
			Etsy: EtsyConnectorConfig{
				Keystring:    v.GetString("connectors.etsy.keystring"),
				SharedSecret: v.GetString("connectors.etsy.shared_secret"),
				Shop:         v.GetString("connectors.etsy.shop"),
			},
			EtsyV3: EtsyV3ConnectorConfig{
				Keystring:    v.GetString("connectors.etsy_v3.keystring"),
				SharedSecret: v.GetString("connectors.etsy_v3.shared_secret"),
				Shop:         v.GetString("connectors.etsy_v3.shop"),
			},
			Shopify: ShopifyConnectorConfig{
				Shop:      v.GetString("connectors.shopify.shop"),
				APIKey:    v.GetString("connectors.shopify.api_key"),
				SecretKey: v.GetString("connectors.shopify.secret_key"),
			},
			POS: POSConnectorConfig{
				Username: v.GetString("connectors.pos.username"),
				Password: v.GetString("connectors.pos.password"),
				BaseURL:  v.GetString("connectors.pos.base_url"),
			},
		},
	}

	applyDefaults(cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyDefaults sets default values for any empty config fields
func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "channelsync"
	}
	if cfg.App.Env == "" {
		cfg.App.Env = "development"
	}
	if cfg.App.Port == "" {
		cfg.App.Port = "8080"
	}
	if cfg.App.BaseURL == "" {
		cfg.App.BaseURL = "http://localhost:" + cfg.App.Port
	}
	if cfg.Database.Host == "" {
		cfg.Database.Host = "localhost"
	}
	if cfg.Database.Port == 0 {
		cfg.Database.Port = 5432
	}
	if cfg.Database.User == "" {
		cfg.Database.User = "postgres"
	}
	if cfg.Database.DBName == "" {
		cfg.Database.DBName = "channelsync"
	}
	if cfg.Database.SSLMode == "" {
		cfg.Database.SSLMode = "disable"
	}
	if cfg.Database.MaxOpenConns == 0 {
		cfg.Database.MaxOpenConns = 25
	}
	if cfg.Database.MaxIdleConns == 0 {
		cfg.Database.MaxIdleConns = 5
	}
	if cfg.Database.ConnMaxLifetime == 0 {
		cfg.Database.ConnMaxLifetime = 60
	}
	if cfg.Database.ConnMaxIdleTime == 0 {
		cfg.Database.ConnMaxIdleTime = 30
	}
	if cfg.Redis.Host == "" {
		cfg.Redis.Host = "localhost"
	}
	if cfg.Redis.Port == 0 {
		cfg.Redis.Port = 6379
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "console"
	}
	if cfg.Log.Output == "" {
		cfg.Log.Output = "stdout"
	}
	if cfg.HTTP.ReadTimeout == 0 {
		cfg.HTTP.ReadTimeout = 15 * time.Second
	}
	if cfg.HTTP.WriteTimeout == 0 {
		cfg.HTTP.WriteTimeout = 15 * time.Second
	}
	if cfg.HTTP.IdleTimeout == 0 {
		cfg.HTTP.IdleTimeout = 60 * time.Second
	}
	if cfg.HTTP.MaxHeaderBytes == 0 {
		cfg.HTTP.MaxHeaderBytes = 1 << 20 // 1MB
	}
	if cfg.Poller.Interval == 0 {
		cfg.Poller.Interval = time.Hour
	}
	if cfg.Poller.StateTTL == 0 {
		cfg.Poller.StateTTL = time.Hour
	}
}

// validate performs validation on the configuration
func (c *Config) validate() error {
	if c.Database.MaxOpenConns <= 0 {
		return fmt.Errorf("database.max_open_conns must be positive")
	}
	if c.Database.MaxIdleConns < 0 {
		return fmt.Errorf("database.max_idle_conns cannot be negative")
	}
	if c.Database.MaxIdleConns > c.Database.MaxOpenConns {
		return fmt.Errorf("database.max_idle_conns (%d) cannot exceed database.max_open_conns (%d)",
			c.Database.MaxIdleConns, c.Database.MaxOpenConns)
	}
	if c.Poller.Interval < time.Minute {
		return fmt.Errorf("poller.interval must be at least one minute")
	}

	if c.App.Env == "production" {
		if c.Database.Password == "" {
			return fmt.Errorf("database.password is required in production")
		}
		if c.Database.SSLMode == "disable" {
			return fmt.Errorf("database.sslmode cannot be 'disable' in production")
		}
		if !strings.HasPrefix(c.App.BaseURL, "https://") {
			return fmt.Errorf("app.base_url must be https in production (OAuth callbacks require it)")
		}
	}
	return nil
}

// DSN returns the database connection string with properly escaped values
func (d *DatabaseConfig) DSN() string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(d.User, d.Password),
		Host:   fmt.Sprintf("%s:%d", d.Host, d.Port),
		Path:   d.DBName,
	}
	q := u.Query()
	q.Set("sslmode", d.SSLMode)
	u.RawQuery = q.Encode()
	return u.String()
}

// Addr returns the host:port address for the Redis client
func (r *RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}
