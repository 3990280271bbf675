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
	App       AppConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Log       LogConfig
	HTTP      HTTPConfig
	Sync      SyncConfig
	Scheduler SchedulerConfig
	Webhook   WebhookConfig
	Bulk      BulkConfig
	Platforms PlatformsConfig
}

// AppConfig holds application-specific settings
type AppConfig struct {
	Name string
	Env  string
	Port string
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
	ReadTimeout       time.Duration
	WriteTimeout      time.Duration
	IdleTimeout       time.Duration
	MaxHeaderBytes    int
	MaxBodySize       int64
	RateLimitRequests int           // requests per tenant per window
	RateLimitWindow   time.Duration // throttling window
	CORSAllowOrigins  []string
	CORSAllowMethods  []string
	CORSAllowHeaders  []string
	TrustedProxies    []string
}

// SyncConfig holds sync orchestrator configuration
type SyncConfig struct {
	Workers        int           // concurrent entity workers per run
	MaxRetries     int           // retry attempts for transient platform failures
	RetryBaseDelay time.Duration // initial backoff delay, doubled per attempt
	PageSize       int           // fetch page size hint for platform clients
}

// SchedulerConfig holds the scheduled sync trigger configuration
type SchedulerConfig struct {
	Enabled         bool
	Interval        time.Duration // interval between scheduled incremental runs
	CatchUpOnStart  bool          // run a catch-up sync at startup for overdue routes
	JobTimeout      time.Duration
	MaxMissedBeforeFull int // missed intervals after which a full sync replaces incremental
}

// WebhookConfig holds webhook intake configuration
type WebhookConfig struct {
	Enabled      bool
	DedupTTL     time.Duration // window during which a repeated event id is dropped
	QueueSize    int           // buffered webhook queue capacity
	Workers      int           // webhook queue consumers
}

// BulkConfig holds the bulk operation safety gate configuration
type BulkConfig struct {
	ConfirmRecordCount  int // record count at which confirmation is required
	CriticalRecordCount int // record count at which a backup is recommended
}

// PlatformsConfig holds the connection settings for every platform the
// engine can synchronize with. A platform with an empty base URL is not
// registered.
type PlatformsConfig struct {
	Internal   PlatformEndpointConfig
	Storefront PlatformEndpointConfig
	Accounting PlatformEndpointConfig
	Warehouse  PlatformEndpointConfig
}

// PlatformEndpointConfig holds one platform's API endpoint settings
type PlatformEndpointConfig struct {
	BaseURL   string
	APIKey    string
	APISecret string
	Timeout   time.Duration
}

// Load loads configuration from TOML file and environment variables
// Priority (highest to lowest):
// 1. Environment variables with RETAIL_ prefix (e.g., RETAIL_DATABASE_PASSWORD)
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
		// Config file not found is OK, we'll use defaults and env vars
	}

	v.SetEnvPrefix("RETAIL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := &Config{
		App: AppConfig{
			Name: v.GetString("app.name"),
			Env:  v.GetString("app.env"),
			Port: v.GetString("app.port"),
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
			ReadTimeout:       v.GetDuration("http.read_timeout"),
			WriteTimeout:      v.GetDuration("http.write_timeout"),
			IdleTimeout:       v.GetDuration("http.idle_timeout"),
			MaxHeaderBytes:    v.GetInt("http.max_header_bytes"),
			MaxBodySize:       v.GetInt64("http.max_body_size"),
			RateLimitRequests: v.GetInt("http.rate_limit_requests"),
			RateLimitWindow:   v.GetDuration("http.rate_limit_window"),
			CORSAllowOrigins:  v.GetStringSlice("http.cors_allow_origins"),
			CORSAllowMethods:  v.GetStringSlice("http.cors_allow_methods"),
			CORSAllowHeaders:  v.GetStringSlice("http.cors_allow_headers"),
			TrustedProxies:    v.GetStringSlice("http.trusted_proxies"),
		},
		Sync: SyncConfig{
			Workers:        v.GetInt("sync.workers"),
			MaxRetries:     v.GetInt("sync.max_retries"),
			RetryBaseDelay: v.GetDuration("sync.retry_base_delay"),
			PageSize:       v.GetInt("sync.page_size"),
		},
		Scheduler: SchedulerConfig{
			Enabled:             v.GetBool("scheduler.enabled"),
			Interval:            v.GetDuration("scheduler.interval"),
			CatchUpOnStart:      v.GetBool("scheduler.catch_up_on_start"),
			JobTimeout:          v.GetDuration("scheduler.job_timeout"),
			MaxMissedBeforeFull: v.GetInt("scheduler.max_missed_before_full"),
		},
		Webhook: WebhookConfig{
			Enabled:   v.GetBool("webhook.enabled"),
			DedupTTL:  v.GetDuration("webhook.dedup_ttl"),
			QueueSize: v.GetInt("webhook.queue_size"),
			Workers:   v.GetInt("webhook.workers"),
		},
		Bulk: BulkConfig{
			ConfirmRecordCount:  v.GetInt("bulk.confirm_record_count"),
			CriticalRecordCount: v.GetInt("bulk.critical_record_count"),
		},
		Platforms: PlatformsConfig{
			Internal:   platformEndpoint(v, "platforms.internal"),
			Storefront: platformEndpoint(v, "platforms.storefront"),
			Accounting: platformEndpoint(v, "platforms.accounting"),
			Warehouse:  platformEndpoint(v, "platforms.warehouse"),
		},
	}

	applyDefaults(cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// platformEndpoint reads one platform endpoint section
func platformEndpoint(v *viper.Viper, prefix string) PlatformEndpointConfig {
	return PlatformEndpointConfig{
		BaseURL:   v.GetString(prefix + ".base_url"),
		APIKey:    v.GetString(prefix + ".api_key"),
		APISecret: v.GetString(prefix + ".api_secret"),
		Timeout:   v.GetDuration(prefix + ".timeout"),
	}
}

// applyDefaults sets default values for any empty config fields
func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "retailops-sync"
	}
	if cfg.App.Env == "" {
		cfg.App.Env = "development"
	}
	if cfg.App.Port == "" {
		cfg.App.Port = "8080"
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
		cfg.Database.DBName = "retailops"
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
	if cfg.HTTP.MaxBodySize == 0 {
		cfg.HTTP.MaxBodySize = 10 << 20 // 10MB
	}
	if cfg.HTTP.RateLimitRequests == 0 {
		cfg.HTTP.RateLimitRequests = 120
	}
	if cfg.HTTP.RateLimitWindow == 0 {
		cfg.HTTP.RateLimitWindow = time.Minute
	}
	if len(cfg.HTTP.CORSAllowMethods) == 0 {
		cfg.HTTP.CORSAllowMethods = []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"}
	}
	if len(cfg.HTTP.CORSAllowHeaders) == 0 {
		cfg.HTTP.CORSAllowHeaders = []string{"Content-Type", "X-Request-ID", "X-Tenant-ID"}
	}
	if cfg.Sync.Workers == 0 {
		cfg.Sync.Workers = 4
	}
	if cfg.Sync.MaxRetries == 0 {
		cfg.Sync.MaxRetries = 3
	}
	if cfg.Sync.RetryBaseDelay == 0 {
		cfg.Sync.RetryBaseDelay = 2 * time.Second
	}
	if cfg.Sync.PageSize == 0 {
		cfg.Sync.PageSize = 100
	}
	if cfg.Scheduler.Interval == 0 {
		cfg.Scheduler.Interval = 15 * time.Minute
	}
	if cfg.Scheduler.JobTimeout == 0 {
		cfg.Scheduler.JobTimeout = 30 * time.Minute
	}
	if cfg.Scheduler.MaxMissedBeforeFull == 0 {
		cfg.Scheduler.MaxMissedBeforeFull = 12
	}
	if cfg.Webhook.DedupTTL == 0 {
		cfg.Webhook.DedupTTL = 24 * time.Hour
	}
	if cfg.Webhook.QueueSize == 0 {
		cfg.Webhook.QueueSize = 1024
	}
	if cfg.Webhook.Workers == 0 {
		cfg.Webhook.Workers = 2
	}
	if cfg.Bulk.ConfirmRecordCount == 0 {
		cfg.Bulk.ConfirmRecordCount = 100
	}
	if cfg.Bulk.CriticalRecordCount == 0 {
		cfg.Bulk.CriticalRecordCount = 1000
	}
	for _, ep := range []*PlatformEndpointConfig{
		&cfg.Platforms.Internal,
		&cfg.Platforms.Storefront,
		&cfg.Platforms.Accounting,
		&cfg.Platforms.Warehouse,
	} {
		if ep.Timeout == 0 {
			ep.Timeout = 30 * time.Second
		}
	}
	if cfg.Platforms.Internal.BaseURL == "" {
		cfg.Platforms.Internal.BaseURL = "http://localhost:8081"
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
	if c.Sync.Workers < 1 {
		return fmt.Errorf("sync.workers must be at least 1")
	}
	if c.Bulk.CriticalRecordCount < c.Bulk.ConfirmRecordCount {
		return fmt.Errorf("bulk.critical_record_count (%d) cannot be below bulk.confirm_record_count (%d)",
			c.Bulk.CriticalRecordCount, c.Bulk.ConfirmRecordCount)
	}

	if c.App.Env == "production" {
		if c.Database.Password == "" {
			return fmt.Errorf("database.password is required in production")
		}
		if c.Database.SSLMode == "disable" {
			return fmt.Errorf("database.sslmode cannot be 'disable' in production")
		}
		for _, origin := range c.HTTP.CORSAllowOrigins {
			if origin == "*" {
				return fmt.Errorf("cors_allow_origins cannot be '*' in production (use specific origins)")
			}
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
