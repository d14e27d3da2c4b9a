package runtimeconfig

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/goliatone/go-press/internal/database"
)

var (
	ErrServerAddrRequired     = errors.New("press config: server address is required")
	ErrDatabaseDriverUnknown  = errors.New("press config: database driver is invalid")
	ErrDatabaseDSNRequired    = errors.New("press config: database dsn is required")
	ErrCacheTTLInvalid        = errors.New("press config: cache ttl must be positive when cache is enabled")
	ErrStorageProviderUnknown = errors.New("press config: storage provider is invalid")
	ErrStorageDirRequired     = errors.New("press config: local storage directory is required")
	ErrS3BucketRequired       = errors.New("press config: s3 bucket is required")
	ErrSlugMaxLengthInvalid   = errors.New("press config: slug max length must be positive")
	ErrSlugAttemptsInvalid    = errors.New("press config: slug attempt limits must be positive")
	ErrLoggingProviderUnknown = errors.New("press config: logging provider is invalid")
	ErrLoggingLevelInvalid    = errors.New("press config: logging level is invalid")
	ErrLoggingFormatInvalid   = errors.New("press config: logging format is invalid")
	ErrAuthTokenInvalid       = errors.New("press config: auth token entries need a token and a username")
	ErrUploadLimitInvalid     = errors.New("press config: upload limit must be positive")
)

const (
	StorageLocal  = "local"
	StorageMemory = "memory"
	StorageS3     = "s3"

	LoggingGoLogger = "gologger"
	LoggingZap      = "zap"
	LoggingNoop     = "noop"
)

// Config aggregates every setting of the press module. Values are layered by
// Load: defaults, YAML file, .env file, then PRESS_* environment variables.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Cache    CacheConfig    `yaml:"cache"`
	Storage  StorageConfig  `yaml:"storage"`
	Markdown MarkdownConfig `yaml:"markdown"`
	Slugs    SlugConfig     `yaml:"slugs"`
	Logging  LoggingConfig  `yaml:"logging"`
	Auth     AuthConfig     `yaml:"auth"`
	Metrics  MetricsConfig  `yaml:"metrics"`
}

type ServerConfig struct {
	Addr            string        `yaml:"addr" envconfig:"addr"`
	ReadTimeout     time.Duration `yaml:"read_timeout" envconfig:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout" envconfig:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" envconfig:"shutdown_timeout"`
	AllowedOrigins  []string      `yaml:"allowed_origins" envconfig:"allowed_origins"`
	MaxUploadBytes  int64         `yaml:"max_upload_bytes" envconfig:"max_upload_bytes"`
}

type DatabaseConfig struct {
	Driver          string        `yaml:"driver" envconfig:"driver"`
	DSN             string        `yaml:"dsn" envconfig:"dsn"`
	MaxOpenConns    int           `yaml:"max_open_conns" envconfig:"max_open_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime" envconfig:"conn_max_lifetime"`
	Migrate         bool          `yaml:"migrate" envconfig:"migrate"`
}

// CacheConfig controls the read cache wrapped around the bun repositories.
type CacheConfig struct {
	Enabled bool          `yaml:"enabled" envconfig:"enabled"`
	TTL     time.Duration `yaml:"ttl" envconfig:"ttl"`
}

type StorageConfig struct {
	Provider  string   `yaml:"provider" envconfig:"provider"`
	LocalDir  string   `yaml:"local_dir" envconfig:"local_dir"`
	PublicURL string   `yaml:"public_url" envconfig:"public_url"`
	S3        S3Config `yaml:"s3"`
}

type S3Config struct {
	Bucket    string `yaml:"bucket" envconfig:"bucket"`
	Region    string `yaml:"region" envconfig:"region"`
	Endpoint  string `yaml:"endpoint" envconfig:"endpoint"`
	AccessKey string `yaml:"access_key" envconfig:"access_key"`
	SecretKey string `yaml:"secret_key" envconfig:"secret_key"`
	PathStyle bool   `yaml:"path_style" envconfig:"path_style"`
	PublicURL string `yaml:"public_url" envconfig:"public_url"`
}

type MarkdownConfig struct {
	HardWraps bool `yaml:"hard_wraps" envconfig:"hard_wraps"`
	Highlight bool `yaml:"highlight" envconfig:"highlight"`
	// ImportEnabled gates the import_posts command.
	ImportEnabled bool `yaml:"import_enabled" envconfig:"import_enabled"`
	// ImportDir is imported on startup when set.
	ImportDir string `yaml:"import_dir" envconfig:"import_dir"`
	Recursive bool   `yaml:"recursive" envconfig:"recursive"`
}

type SlugConfig struct {
	MaxLength       int `yaml:"max_length" envconfig:"max_length"`
	MaxAttempts     int `yaml:"max_attempts" envconfig:"max_attempts"`
	MaxWriteRetries int `yaml:"max_write_retries" envconfig:"max_write_retries"`
}

type LoggingConfig struct {
	Provider  string   `yaml:"provider" envconfig:"provider"`
	Level     string   `yaml:"level" envconfig:"level"`
	Format    string   `yaml:"format" envconfig:"format"`
	AddSource bool     `yaml:"add_source" envconfig:"add_source"`
	Focus     []string `yaml:"focus" envconfig:"focus"`
}

// AuthConfig holds the static bearer token table used by the development
// auth provider.
type AuthConfig struct {
	Tokens []TokenConfig `yaml:"tokens" ignored:"true"`
	// AdminToken adds a superadmin token, convenient from the environment.
	AdminToken string `yaml:"admin_token" envconfig:"admin_token"`
}

type TokenConfig struct {
	Token      string `yaml:"token"`
	Username   string `yaml:"username"`
	Staff      bool   `yaml:"staff"`
	Superadmin bool   `yaml:"superadmin"`
}

type MetricsConfig struct {
	Enabled bool   `yaml:"enabled" envconfig:"enabled"`
	Path    string `yaml:"path" envconfig:"path"`
	Runtime bool   `yaml:"runtime" envconfig:"runtime"`
}

// DefaultConfig runs against an in-memory SQLite database with local file
// storage, so a bare binary starts without any setup.
func DefaultConfig() Config {
	return Config{
		Server: ServerConfig{
			Addr:            ":8080",
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    60 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			AllowedOrigins:  []string{"*"},
			MaxUploadBytes:  64 << 20,
		},
		Database: DatabaseConfig{
			Driver:  database.DriverSQLite,
			DSN:     "file:press?mode=memory&cache=shared&_fk=1",
			Migrate: true,
		},
		Cache: CacheConfig{
			Enabled: true,
			TTL:     time.Minute,
		},
		Storage: StorageConfig{
			Provider:  StorageLocal,
			LocalDir:  "uploads",
			PublicURL: "/uploads",
		},
		Markdown: MarkdownConfig{
			HardWraps:     true,
			Highlight:     true,
			ImportEnabled: true,
		},
		Slugs: SlugConfig{
			MaxLength:       200,
			MaxAttempts:     1000,
			MaxWriteRetries: 5,
		},
		Logging: LoggingConfig{
			Provider: LoggingGoLogger,
			Level:    "info",
			Format:   "console",
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Path:    "/metrics",
		},
	}
}

// Validate performs consistency checks and returns wrapped sentinels.
func (cfg Config) Validate() error {
	if strings.TrimSpace(cfg.Server.Addr) == "" {
		return ErrServerAddrRequired
	}
	if cfg.Server.MaxUploadBytes <= 0 {
		return ErrUploadLimitInvalid
	}
	if _, err := database.Dialect(cfg.Database.Driver); err != nil {
		return fmt.Errorf("%w: %s", ErrDatabaseDriverUnknown, cfg.Database.Driver)
	}
	if strings.TrimSpace(cfg.Database.DSN) == "" {
		return ErrDatabaseDSNRequired
	}
	if cfg.Cache.Enabled && cfg.Cache.TTL <= 0 {
		return ErrCacheTTLInvalid
	}

	switch provider := normalize(cfg.Storage.Provider); provider {
	case StorageLocal:
		if strings.TrimSpace(cfg.Storage.LocalDir) == "" {
			return ErrStorageDirRequired
		}
	case StorageMemory:
	case StorageS3:
		if strings.TrimSpace(cfg.Storage.S3.Bucket) == "" {
			return ErrS3BucketRequired
		}
	default:
		return fmt.Errorf("%w: %s", ErrStorageProviderUnknown, cfg.Storage.Provider)
	}

	if cfg.Slugs.MaxLength <= 0 {
		return ErrSlugMaxLengthInvalid
	}
	if cfg.Slugs.MaxAttempts <= 0 || cfg.Slugs.MaxWriteRetries <= 0 {
		return ErrSlugAttemptsInvalid
	}

	provider := normalize(cfg.Logging.Provider)
	switch provider {
	case LoggingGoLogger, LoggingZap, LoggingNoop:
	default:
		return fmt.Errorf("%w: %s", ErrLoggingProviderUnknown, cfg.Logging.Provider)
	}
	if level := strings.TrimSpace(cfg.Logging.Level); level != "" && !isSupportedLevel(level) {
		return fmt.Errorf("%w: %s", ErrLoggingLevelInvalid, level)
	}
	if format := strings.TrimSpace(cfg.Logging.Format); format != "" && !isSupportedFormat(provider, format) {
		return fmt.Errorf("%w: %s", ErrLoggingFormatInvalid, format)
	}

	for i, token := range cfg.Auth.Tokens {
		if strings.TrimSpace(token.Token) == "" || strings.TrimSpace(token.Username) == "" {
			return fmt.Errorf("%w: entry %d", ErrAuthTokenInvalid, i)
		}
	}
	return nil
}

func normalize(value string) string {
	return strings.ToLower(strings.TrimSpace(value))
}

func isSupportedLevel(level string) bool {
	switch normalize(level) {
	case "trace", "debug", "info", "warn", "warning", "error", "fatal":
		return true
	default:
		return false
	}
}

func isSupportedFormat(provider, format string) bool {
	switch normalize(format) {
	case "json", "console":
		return true
	case "pretty":
		return provider == LoggingGoLogger
	default:
		return false
	}
}
