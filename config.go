package press

import "github.com/goliatone/go-press/internal/runtimeconfig"

var (
	ErrServerAddrRequired     = runtimeconfig.ErrServerAddrRequired
	ErrDatabaseDriverUnknown  = runtimeconfig.ErrDatabaseDriverUnknown
	ErrDatabaseDSNRequired    = runtimeconfig.ErrDatabaseDSNRequired
	ErrCacheTTLInvalid        = runtimeconfig.ErrCacheTTLInvalid
	ErrStorageProviderUnknown = runtimeconfig.ErrStorageProviderUnknown
	ErrStorageDirRequired     = runtimeconfig.ErrStorageDirRequired
	ErrS3BucketRequired       = runtimeconfig.ErrS3BucketRequired
	ErrSlugMaxLengthInvalid   = runtimeconfig.ErrSlugMaxLengthInvalid
	ErrSlugAttemptsInvalid    = runtimeconfig.ErrSlugAttemptsInvalid
	ErrLoggingProviderUnknown = runtimeconfig.ErrLoggingProviderUnknown
	ErrLoggingLevelInvalid    = runtimeconfig.ErrLoggingLevelInvalid
	ErrLoggingFormatInvalid   = runtimeconfig.ErrLoggingFormatInvalid
	ErrAuthTokenInvalid       = runtimeconfig.ErrAuthTokenInvalid
	ErrUploadLimitInvalid     = runtimeconfig.ErrUploadLimitInvalid
)

type (
	Config         = runtimeconfig.Config
	ServerConfig   = runtimeconfig.ServerConfig
	DatabaseConfig = runtimeconfig.DatabaseConfig
	CacheConfig    = runtimeconfig.CacheConfig
	StorageConfig  = runtimeconfig.StorageConfig
	S3Config       = runtimeconfig.S3Config
	MarkdownConfig = runtimeconfig.MarkdownConfig
	SlugConfig     = runtimeconfig.SlugConfig
	LoggingConfig  = runtimeconfig.LoggingConfig
	AuthConfig     = runtimeconfig.AuthConfig
	TokenConfig    = runtimeconfig.TokenConfig
	MetricsConfig  = runtimeconfig.MetricsConfig
)

// DefaultConfig returns the runtime defaults: in-memory SQLite, local
// uploads and go-logger console output.
func DefaultConfig() Config {
	return runtimeconfig.DefaultConfig()
}

// LoadConfig layers a YAML file, optional .env files and PRESS_* variables
// over DefaultConfig.
func LoadConfig(path string, envFiles ...string) (Config, error) {
	return runtimeconfig.Load(path, envFiles...)
}
