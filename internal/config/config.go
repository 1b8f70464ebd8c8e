package config

import (
	"log"
	"log/slog"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	Server     Server     `yaml:"server"`
	Log        Log        `yaml:"log"`
	Database   Database   `yaml:"database"`
	Generation Generation `yaml:"generation"`
	Primary    Provider   `yaml:"primary" env-prefix:"PRIMARY_"`
	Secondary  Provider   `yaml:"secondary" env-prefix:"SECONDARY_"`
	Cluster    Cluster    `yaml:"cluster"`
	Shopify    Shopify    `yaml:"shopify"`
	Sync       Sync       `yaml:"sync"`
	S3         S3         `yaml:"s3"`
	Metrics    Metrics    `yaml:"metrics"`
}

// Server holds HTTP server configuration
type Server struct {
	Host         string        `yaml:"host" env:"SERVER_HOST" env-default:"0.0.0.0"`
	Port         string        `yaml:"port" env:"SERVER_PORT" env-default:"8080"`
	ReadTimeout  time.Duration `yaml:"read_timeout" env:"SERVER_READ_TIMEOUT" env-default:"15s"`
	WriteTimeout time.Duration `yaml:"write_timeout" env:"SERVER_WRITE_TIMEOUT" env-default:"10m"`
	IdleTimeout  time.Duration `yaml:"idle_timeout" env:"SERVER_IDLE_TIMEOUT" env-default:"60s"`
	// RequestTimeout bounds synchronous handlers; bulk runs are sequential and slow.
	RequestTimeout time.Duration `yaml:"request_timeout" env:"SERVER_REQUEST_TIMEOUT" env-default:"10m"`
}

// Address returns the full server address
func (s Server) Address() string {
	return s.Host + ":" + s.Port
}

// Log holds logger configuration
type Log struct {
	Level  string `yaml:"level" env:"LOG_LEVEL" env-default:"info"`
	Format string `yaml:"format" env:"LOG_FORMAT" env-default:"json"`
}

// SlogLevel maps the configured level name to a slog level
func (l Log) SlogLevel() slog.Level {
	switch strings.ToLower(l.Level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Database holds database configuration
type Database struct {
	// PostgreSQL. Empty DSN runs the service on in-memory stores.
	PostgresDSN string `yaml:"postgres_dsn" env:"DATABASE_URL"`

	MaxConns    int32 `yaml:"max_conns" env:"DB_MAX_CONNS" env-default:"25"`
	MinConns    int32 `yaml:"min_conns" env:"DB_MIN_CONNS" env-default:"5"`
	AutoMigrate bool  `yaml:"auto_migrate" env:"DB_AUTO_MIGRATE" env-default:"true"`
}

// Generation holds retry and sizing settings for the generation gateway
type Generation struct {
	MaxAttempts int           `yaml:"max_attempts" env:"GENERATION_MAX_ATTEMPTS" env-default:"3"`
	BaseDelay   time.Duration `yaml:"base_delay" env:"GENERATION_BASE_DELAY" env-default:"1s"`
	MaxTokens   int           `yaml:"max_tokens" env:"GENERATION_MAX_TOKENS" env-default:"4000"`
	CallTimeout time.Duration `yaml:"call_timeout" env:"GENERATION_CALL_TIMEOUT" env-default:"120s"`
}

// Provider holds credentials for one generative provider
type Provider struct {
	APIKey        string `yaml:"api_key" env:"API_KEY"`
	Model         string `yaml:"model" env:"MODEL"`
	BaseURL       string `yaml:"base_url" env:"BASE_URL"`
	ContextWindow int    `yaml:"context_window" env:"CONTEXT_WINDOW" env-default:"128000"`
}

// Enabled reports whether the provider has enough configuration to be used
func (p Provider) Enabled() bool {
	return p.APIKey != ""
}

// Cluster holds cluster generation and reconciliation settings
type Cluster struct {
	Size                int           `yaml:"size" env:"CLUSTER_SIZE" env-default:"10"`
	PollInterval        time.Duration `yaml:"poll_interval" env:"CLUSTER_POLL_INTERVAL" env-default:"10s"`
	Timeout             time.Duration `yaml:"timeout" env:"CLUSTER_TIMEOUT" env-default:"20m"`
	Lookback            time.Duration `yaml:"lookback" env:"CLUSTER_LOOKBACK" env-default:"1h"`
	RecentClaimWindow   time.Duration `yaml:"recent_claim_window" env:"CLUSTER_RECENT_CLAIM_WINDOW" env-default:"5m"`
	CorrelationMatching bool          `yaml:"correlation_matching" env:"CLUSTER_CORRELATION_MATCHING" env-default:"true"`
}

// Shopify holds publishing platform configuration
type Shopify struct {
	ShopDomain  string `yaml:"shop_domain" env:"SHOPIFY_SHOP_DOMAIN"`
	AccessToken string `yaml:"access_token" env:"SHOPIFY_ACCESS_TOKEN"`
	BlogID      string `yaml:"blog_id" env:"SHOPIFY_BLOG_ID"`
	APIVersion  string `yaml:"api_version" env:"SHOPIFY_API_VERSION" env-default:"2024-10"`
	BaseURL     string `yaml:"base_url" env:"SHOPIFY_BASE_URL"`
}

// Enabled reports whether the publishing platform is configured
func (s Shopify) Enabled() bool {
	return s.ShopDomain != "" && s.AccessToken != ""
}

// Sync holds the platform sync retry loop configuration
type Sync struct {
	Enabled   bool          `yaml:"enabled" env:"SYNC_ENABLED" env-default:"true"`
	Interval  time.Duration `yaml:"interval" env:"SYNC_INTERVAL" env-default:"2m"`
	BatchSize int           `yaml:"batch_size" env:"SYNC_BATCH_SIZE" env-default:"20"`
}

// S3 holds S3/MinIO storage configuration for archived provider responses
type S3 struct {
	Enabled         bool   `yaml:"enabled" env:"S3_ENABLED" env-default:"false"`
	Endpoint        string `yaml:"endpoint" env:"S3_ENDPOINT" env-default:"http://localhost:9000"`
	AccessKeyID     string `yaml:"access_key_id" env:"S3_ACCESS_KEY_ID" env-default:"minioadmin"`
	SecretAccessKey string `yaml:"secret_access_key" env:"S3_SECRET_ACCESS_KEY" env-default:"minioadmin"`
	Bucket          string `yaml:"bucket" env:"S3_BUCKET" env-default:"generation-archive"`
	Region          string `yaml:"region" env:"S3_REGION" env-default:"us-east-1"`
}

// Metrics holds Prometheus exposition configuration
type Metrics struct {
	Enabled bool   `yaml:"enabled" env:"METRICS_ENABLED" env-default:"true"`
	Path    string `yaml:"path" env:"METRICS_PATH" env-default:"/metrics"`
}

// MustLoad loads configuration from environment and exits on error
func MustLoad() Config {
	cfg, err := Load("")
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	return cfg
}

// Load loads configuration from the given .env file (or ".env" when empty) and the environment
func Load(envFile string) (Config, error) {
	// Load .env file if exists (for development)
	if envFile == "" {
		_ = godotenv.Load()
	} else {
		_ = godotenv.Load(envFile)
	}

	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// LoadFromFile loads configuration from a YAML file
func LoadFromFile(path string) (Config, error) {
	var cfg Config
	if err := cleanenv.ReadConfig(path, &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}
