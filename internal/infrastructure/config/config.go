package config

import (
	"fmt"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	App          AppConfig
	Database     DatabaseConfig
	Redis        RedisConfig
	JWT          JWTConfig
	Log          LogConfig
	HTTP         HTTPConfig
	Webhook      WebhookConfig
	Gateway      GatewayConfig
	Scheduler    SchedulerConfig
	Telemetry    TelemetryConfig
	Marketplaces map[string]MarketplaceConfig
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // json, console
	Output string // stdout, stderr, or file path
}

// AppConfig holds application-specific settings
type AppConfig struct {
	Name string
	Env  string
	Port string
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Driver          string // postgres, sqlite
	Host            string
	Port            int
	User            string
	Password        string
	DBName          string
	SSLMode         string
	SQLitePath      string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime int // in minutes
	ConnMaxIdleTime int // in minutes
	AutoMigrate     bool
}

// RedisConfig holds Redis connection settings. An empty Host disables Redis.
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// Addr returns host:port
func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// JWTConfig holds settings for admin API bearer tokens
type JWTConfig struct {
	Secret                string
	Issuer                string
	AccessTokenExpiration time.Duration
}

// HTTPConfig holds HTTP server configuration
type HTTPConfig struct {
	ReadTimeout       time.Duration
	WriteTimeout      time.Duration
	IdleTimeout       time.Duration
	MaxHeaderBytes    int
	MaxBodySize       int64
	RateLimitEnabled  bool
	RateLimitRequests int
	RateLimitWindow   time.Duration
	TrustedProxies    []string
	Swagger           SwaggerConfig
}

// SwaggerConfig controls the /swagger documentation endpoint
type SwaggerConfig struct {
	Enabled     bool
	RequireAuth bool
	AllowedIPs  []string
}

// WebhookConfig holds inbound webhook settings
type WebhookConfig struct {
	MaxPayloadSize            int64
	TimestampToleranceSeconds int
	InboundRatePerSecond      float64
	InboundBurst              int
	LowStockThreshold         int
	MaxRetryAttempts          int
}

// GatewayConfig holds outbound gateway settings shared by all marketplaces
type GatewayConfig struct {
	CacheBackend   string // memory, redis
	CacheKeyPrefix string
	DeadLetterKey  string
	SweepInterval  time.Duration
}

// SchedulerConfig holds background job configuration
type SchedulerConfig struct {
	Enabled             bool
	MaxConcurrentJobs   int
	JobTimeout          time.Duration
	ReplayInterval      time.Duration
	ReplayBatchSize     int
	CleanupInterval     time.Duration
	LogRetention        time.Duration
	APILogRetention     time.Duration
	OrderSyncEnabled    bool
	OrderSyncInterval   time.Duration
	OrderSyncLookbehind time.Duration
}

// TelemetryConfig holds OpenTelemetry configuration
type TelemetryConfig struct {
	Enabled           bool    // Whether to enable OpenTelemetry
	CollectorEndpoint string  // OTEL Collector endpoint (e.g., "localhost:4317")
	SamplingRatio     float64 // Sampling ratio (0.0-1.0, 1.0 = 100%)
	ServiceName       string  // Service name for traces
	Insecure          bool    // Use insecure (non-TLS) connection (development only)
	DBTraceEnabled    bool    // Enable database query tracing (otelgorm)
	LogExportEnabled  bool    // Export zap logs over OTLP
}

// RateLimitMode decides what happens when a marketplace window is exhausted
type RateLimitMode string

const (
	// RateLimitModeReject fails the call immediately
	RateLimitModeReject RateLimitMode = "reject"
	// RateLimitModeBlock waits for the window to reset
	RateLimitModeBlock RateLimitMode = "block"
)

// MarketplaceConfig holds per-marketplace settings
type MarketplaceConfig struct {
	Code                    string
	Enabled                 bool
	WebhookSecret           string
	SignatureHeader         string
	APIBaseURL              string
	APIUsername             string
	APIPassword             string
	MerchantID              string
	MaxRequestsPerMinute    int
	CircuitBreakerThreshold int
	CircuitBreakerCooldown  time.Duration
	CacheTTL                time.Duration
	RequestTimeout          time.Duration
	RateLimitMode           RateLimitMode
}

// String hides credentials when the config is printed
func (m MarketplaceConfig) String() string {
	return fmt.Sprintf("MarketplaceConfig{code=%s enabled=%t base_url=%s rpm=%d}",
		m.Code, m.Enabled, m.APIBaseURL, m.MaxRequestsPerMinute)
}

// Load loads configuration from TOML file and environment variables
// Priority (highest to lowest):
// 1. Environment variables with MPGW_ prefix (e.g., MPGW_DATABASE_PASSWORD)
// 2. config.toml
// 3. Built-in defaults
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/marketplace-gateway")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}
	return build(v)
}

// LoadFile loads configuration from an explicit file path
func LoadFile(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading config file %s: %w", path, err)
	}
	return build(v)
}

func build(v *viper.Viper) (*Config, error) {
	v.SetEnvPrefix("MPGW")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := &Config{
		App: AppConfig{
			Name: v.GetString("app.name"),
			Env:  v.GetString("app.env"),
			Port: v.GetString("app.port"),
		},
		Database: DatabaseConfig{
			Driver:          v.GetString("database.driver"),
			Host:            v.GetString("database.host"),
			Port:            v.GetInt("database.port"),
			User:            v.GetString("database.user"),
			Password:        v.GetString("database.password"),
			DBName:          v.GetString("database.dbname"),
			SSLMode:         v.GetString("database.sslmode"),
			SQLitePath:      v.GetString("database.sqlite_path"),
			MaxOpenConns:    v.GetInt("database.max_open_conns"),
			MaxIdleConns:    v.GetInt("database.max_idle_conns"),
			ConnMaxLifetime: v.GetInt("database.conn_max_lifetime"),
			ConnMaxIdleTime: v.GetInt("database.conn_max_idle_time"),
			AutoMigrate:     v.GetBool("database.auto_migrate"),
		},
		Redis: RedisConfig{
			Host:     v.GetString("redis.host"),
			Port:     v.GetInt("redis.port"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
		},
		JWT: JWTConfig{
			Secret:                v.GetString("jwt.secret"),
			Issuer:                v.GetString("jwt.issuer"),
			AccessTokenExpiration: v.GetDuration("jwt.access_token_expiration"),
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
			RateLimitEnabled:  v.GetBool("http.rate_limit_enabled"),
			RateLimitRequests: v.GetInt("http.rate_limit_requests"),
			RateLimitWindow:   v.GetDuration("http.rate_limit_window"),
			TrustedProxies:    v.GetStringSlice("http.trusted_proxies"),
			Swagger: SwaggerConfig{
				Enabled:     v.GetBool("http.swagger.enabled"),
				RequireAuth: v.GetBool("http.swagger.require_auth"),
				AllowedIPs:  v.GetStringSlice("http.swagger.allowed_ips"),
			},
		},
		Webhook: WebhookConfig{
			MaxPayloadSize:            v.GetInt64("webhook.max_payload_size"),
			TimestampToleranceSeconds: v.GetInt("webhook.timestamp_tolerance_seconds"),
			InboundRatePerSecond:      v.GetFloat64("webhook.inbound_rate_per_second"),
			InboundBurst:              v.GetInt("webhook.inbound_burst"),
			LowStockThreshold:         v.GetInt("webhook.low_stock_threshold"),
			MaxRetryAttempts:          v.GetInt("webhook.max_retry_attempts"),
		},
		Gateway: GatewayConfig{
			CacheBackend:   v.GetString("gateway.cache_backend"),
			CacheKeyPrefix: v.GetString("gateway.cache_key_prefix"),
			DeadLetterKey:  v.GetString("gateway.dead_letter_key"),
			SweepInterval:  v.GetDuration("gateway.sweep_interval"),
		},
		Scheduler: SchedulerConfig{
			Enabled:             v.GetBool("scheduler.enabled"),
			MaxConcurrentJobs:   v.GetInt("scheduler.max_concurrent_jobs"),
			JobTimeout:          v.GetDuration("scheduler.job_timeout"),
			ReplayInterval:      v.GetDuration("scheduler.replay_interval"),
			ReplayBatchSize:     v.GetInt("scheduler.replay_batch_size"),
			CleanupInterval:     v.GetDuration("scheduler.cleanup_interval"),
			LogRetention:        v.GetDuration("scheduler.log_retention"),
			APILogRetention:     v.GetDuration("scheduler.api_log_retention"),
			OrderSyncEnabled:    v.GetBool("scheduler.order_sync_enabled"),
			OrderSyncInterval:   v.GetDuration("scheduler.order_sync_interval"),
			OrderSyncLookbehind: v.GetDuration("scheduler.order_sync_lookbehind"),
		},
		Telemetry: TelemetryConfig{
			Enabled:           v.GetBool("telemetry.enabled"),
			CollectorEndpoint: v.GetString("telemetry.collector_endpoint"),
			SamplingRatio:     v.GetFloat64("telemetry.sampling_ratio"),
			ServiceName:       v.GetString("telemetry.service_name"),
			Insecure:          v.GetBool("telemetry.insecure"),
			DBTraceEnabled:    v.GetBool("telemetry.db_trace_enabled"),
			LogExportEnabled:  v.GetBool("telemetry.log_export_enabled"),
		},
		Marketplaces: loadMarketplaces(v),
	}

	applyDefaults(cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// loadMarketplaces reads every [marketplaces.<code>] table. Codes can also be
// listed in marketplace_codes so that a marketplace may be configured purely
// through environment variables.
func loadMarketplaces(v *viper.Viper) map[string]MarketplaceConfig {
	codes := map[string]struct{}{}
	for code := range v.GetStringMap("marketplaces") {
		codes[strings.ToLower(code)] = struct{}{}
	}
	for _, code := range v.GetStringSlice("marketplace_codes") {
		if code = strings.ToLower(strings.TrimSpace(code)); code != "" {
			codes[code] = struct{}{}
		}
	}

	result := make(map[string]MarketplaceConfig, len(codes))
	for code := range codes {
		prefix := "marketplaces." + code + "."
		enabled := true
		if v.IsSet(prefix + "enabled") {
			enabled = v.GetBool(prefix + "enabled")
		}
		result[code] = MarketplaceConfig{
			Code:                    code,
			Enabled:                 enabled,
			WebhookSecret:           v.GetString(prefix + "webhook_secret"),
			SignatureHeader:         v.GetString(prefix + "signature_header"),
			APIBaseURL:              v.GetString(prefix + "api_base_url"),
			APIUsername:             v.GetString(prefix + "api_username"),
			APIPassword:             v.GetString(prefix + "api_password"),
			MerchantID:              v.GetString(prefix + "merchant_id"),
			MaxRequestsPerMinute:    v.GetInt(prefix + "max_requests_per_minute"),
			CircuitBreakerThreshold: v.GetInt(prefix + "circuit_breaker_threshold"),
			CircuitBreakerCooldown:  time.Duration(v.GetInt64(prefix+"circuit_breaker_cooldown_ms")) * time.Millisecond,
			CacheTTL:                time.Duration(v.GetInt64(prefix+"cache_ttl_seconds")) * time.Second,
			RequestTimeout:          time.Duration(v.GetInt64(prefix+"request_timeout_ms")) * time.Millisecond,
			RateLimitMode:           RateLimitMode(strings.ToLower(v.GetString(prefix + "rate_limit_mode"))),
		}
	}
	return result
}

// applyDefaults sets default values for any empty config fields
func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "marketplace-gateway"
	}
	if cfg.App.Env == "" {
		cfg.App.Env = "development"
	}
	if cfg.App.Port == "" {
		cfg.App.Port = "8080"
	}
	if cfg.Database.Driver == "" {
		cfg.Database.Driver = "postgres"
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
		cfg.Database.DBName = "marketplace_gateway"
	}
	if cfg.Database.SSLMode == "" {
		cfg.Database.SSLMode = "disable"
	}
	if cfg.Database.SQLitePath == "" {
		cfg.Database.SQLitePath = "file::memory:?cache=shared"
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
	if cfg.Redis.Port == 0 {
		cfg.Redis.Port = 6379
	}
	if cfg.JWT.Issuer == "" {
		cfg.JWT.Issuer = "marketplace-gateway"
	}
	if cfg.JWT.AccessTokenExpiration == 0 {
		cfg.JWT.AccessTokenExpiration = time.Hour
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
		cfg.HTTP.WriteTimeout = 30 * time.Second
	}
	if cfg.HTTP.IdleTimeout == 0 {
		cfg.HTTP.IdleTimeout = 60 * time.Second
	}
	if cfg.HTTP.MaxHeaderBytes == 0 {
		cfg.HTTP.MaxHeaderBytes = 1 << 20
	}
	if cfg.HTTP.MaxBodySize == 0 {
		cfg.HTTP.MaxBodySize = 1 << 20
	}
	if cfg.HTTP.RateLimitRequests == 0 {
		cfg.HTTP.RateLimitRequests = 100
	}
	if cfg.HTTP.RateLimitWindow == 0 {
		cfg.HTTP.RateLimitWindow = time.Minute
	}
	if cfg.Webhook.MaxPayloadSize == 0 {
		cfg.Webhook.MaxPayloadSize = 64 * 1024
	}
	if cfg.Webhook.InboundRatePerSecond == 0 {
		cfg.Webhook.InboundRatePerSecond = 50
	}
	if cfg.Webhook.InboundBurst == 0 {
		cfg.Webhook.InboundBurst = 100
	}
	if cfg.Webhook.LowStockThreshold == 0 {
		cfg.Webhook.LowStockThreshold = 5
	}
	if cfg.Webhook.MaxRetryAttempts == 0 {
		cfg.Webhook.MaxRetryAttempts = 3
	}
	if cfg.Gateway.CacheBackend == "" {
		cfg.Gateway.CacheBackend = "memory"
	}
	if cfg.Gateway.CacheKeyPrefix == "" {
		cfg.Gateway.CacheKeyPrefix = "mpgw:cache:"
	}
	if cfg.Gateway.DeadLetterKey == "" {
		cfg.Gateway.DeadLetterKey = "mpgw:dlq"
	}
	if cfg.Gateway.SweepInterval == 0 {
		cfg.Gateway.SweepInterval = time.Minute
	}
	if cfg.Scheduler.MaxConcurrentJobs == 0 {
		cfg.Scheduler.MaxConcurrentJobs = 2
	}
	if cfg.Scheduler.JobTimeout == 0 {
		cfg.Scheduler.JobTimeout = 5 * time.Minute
	}
	if cfg.Scheduler.ReplayInterval == 0 {
		cfg.Scheduler.ReplayInterval = 5 * time.Minute
	}
	if cfg.Scheduler.ReplayBatchSize == 0 {
		cfg.Scheduler.ReplayBatchSize = 50
	}
	if cfg.Scheduler.CleanupInterval == 0 {
		cfg.Scheduler.CleanupInterval = 24 * time.Hour
	}
	if cfg.Scheduler.LogRetention == 0 {
		cfg.Scheduler.LogRetention = 30 * 24 * time.Hour
	}
	if cfg.Scheduler.APILogRetention == 0 {
		cfg.Scheduler.APILogRetention = 7 * 24 * time.Hour
	}
	if cfg.Scheduler.OrderSyncInterval == 0 {
		cfg.Scheduler.OrderSyncInterval = 15 * time.Minute
	}
	if cfg.Scheduler.OrderSyncLookbehind == 0 {
		cfg.Scheduler.OrderSyncLookbehind = time.Hour
	}
	if cfg.Telemetry.CollectorEndpoint == "" {
		cfg.Telemetry.CollectorEndpoint = "localhost:4317"
	}
	if cfg.Telemetry.SamplingRatio == 0 {
		cfg.Telemetry.SamplingRatio = 1.0
	}
	if cfg.Telemetry.ServiceName == "" {
		cfg.Telemetry.ServiceName = "marketplace-gateway"
	}
	for code, m := range cfg.Marketplaces {
		m.applyDefaults()
		cfg.Marketplaces[code] = m
	}
}

func (m *MarketplaceConfig) applyDefaults() {
	if m.SignatureHeader == "" {
		m.SignatureHeader = DefaultSignatureHeader(m.Code)
	}
	if m.MaxRequestsPerMinute == 0 {
		m.MaxRequestsPerMinute = 120
	}
	if m.CircuitBreakerThreshold == 0 {
		m.CircuitBreakerThreshold = 5
	}
	if m.CircuitBreakerCooldown == 0 {
		m.CircuitBreakerCooldown = 60 * time.Second
	}
	if m.CacheTTL == 0 {
		m.CacheTTL = 300 * time.Second
	}
	if m.RequestTimeout == 0 {
		m.RequestTimeout = 15 * time.Second
	}
	if m.RateLimitMode == "" {
		m.RateLimitMode = RateLimitModeReject
	}
}

// DefaultSignatureHeader returns X-{Marketplace}-Signature for a code
func DefaultSignatureHeader(code string) string {
	if code == "" {
		return "X-Signature"
	}
	return "X-" + strings.ToUpper(code[:1]) + strings.ToLower(code[1:]) + "-Signature"
}

// validate performs validation on the configuration
func (c *Config) validate() error {
	switch c.Database.Driver {
	case "postgres", "sqlite":
	default:
		return fmt.Errorf("database.driver must be postgres or sqlite, got %q", c.Database.Driver)
	}
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
	switch c.Gateway.CacheBackend {
	case "memory", "redis":
	default:
		return fmt.Errorf("gateway.cache_backend must be memory or redis, got %q", c.Gateway.CacheBackend)
	}

	for _, code := range c.MarketplaceCodes() {
		m := c.Marketplaces[code]
		if m.MaxRequestsPerMinute < 0 {
			return fmt.Errorf("marketplaces.%s.max_requests_per_minute cannot be negative", code)
		}
		if m.CircuitBreakerThreshold < 1 {
			return fmt.Errorf("marketplaces.%s.circuit_breaker_threshold must be at least 1", code)
		}
		if m.RateLimitMode != RateLimitModeReject && m.RateLimitMode != RateLimitModeBlock {
			return fmt.Errorf("marketplaces.%s.rate_limit_mode must be reject or block, got %q", code, m.RateLimitMode)
		}
		if c.App.Env == "production" && m.Enabled && m.WebhookSecret == "" {
			return fmt.Errorf("marketplaces.%s.webhook_secret is required in production", code)
		}
	}

	if c.App.Env == "production" {
		if len(c.JWT.Secret) < 32 {
			return fmt.Errorf("jwt.secret must be at least 32 characters in production")
		}
		if c.Database.Driver == "postgres" && c.Database.SSLMode == "disable" {
			return fmt.Errorf("database.sslmode cannot be 'disable' in production")
		}
	}

	if c.Telemetry.SamplingRatio < 0.0 || c.Telemetry.SamplingRatio > 1.0 {
		return fmt.Errorf("telemetry.sampling_ratio must be between 0.0 and 1.0, got %f", c.Telemetry.SamplingRatio)
	}

	return nil
}

// MarketplaceCodes returns the configured marketplace codes in sorted order
func (c *Config) MarketplaceCodes() []string {
	codes := make([]string, 0, len(c.Marketplaces))
	for code := range c.Marketplaces {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

// Marketplace returns the configuration of one marketplace
func (c *Config) Marketplace(code string) (MarketplaceConfig, bool) {
	m, ok := c.Marketplaces[strings.ToLower(code)]
	return m, ok
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
