package di

import (
	"context"
	"errors"
	"fmt"
	nethttp "net/http"
	"strings"
	"sync"
	"time"

	"github.com/goliatone/go-command/dispatcher"
	"github.com/goliatone/go-command/runner"
	repocache "github.com/goliatone/go-repository-cache/cache"
	"github.com/uptrace/bun"

	"github.com/goliatone/go-press/internal/commands"
	markdowncmd "github.com/goliatone/go-press/internal/commands/markdown"
	"github.com/goliatone/go-press/internal/database"
	"github.com/goliatone/go-press/internal/files"
	httpapi "github.com/goliatone/go-press/internal/http"
	"github.com/goliatone/go-press/internal/library"
	"github.com/goliatone/go-press/internal/logging"
	"github.com/goliatone/go-press/internal/logging/gologger"
	"github.com/goliatone/go-press/internal/logging/zaplogger"
	"github.com/goliatone/go-press/internal/markdown"
	"github.com/goliatone/go-press/internal/metrics"
	"github.com/goliatone/go-press/internal/posts"
	"github.com/goliatone/go-press/internal/runtimeconfig"
	"github.com/goliatone/go-press/internal/slugs"
	"github.com/goliatone/go-press/pkg/interfaces"
)

// importTimeout bounds one import run; large content directories take longer
// than the default command timeout.
const importTimeout = 10 * time.Minute

// Container wires module dependencies from a runtime configuration.
type Container struct {
	Config runtimeconfig.Config

	loggerProvider interfaces.LoggerProvider
	logger         interfaces.Logger

	bunDB         *bun.DB
	ownsDB        bool
	memoryRepos   bool
	cacheService  repocache.CacheService
	keySerializer repocache.KeySerializer

	metrics     *metrics.Metrics
	fileStorage interfaces.FileStorage
	auth        interfaces.AuthProvider

	markdownSvc *markdown.Service
	postSlugs   *slugs.Assigner
	itemSlugs   *slugs.Assigner

	postRepo  posts.PostRepository
	itemRepo  library.MediaItemRepository
	trackRepo library.MediaTrackRepository

	postSvc    posts.Service
	librarySvc library.Service
	importer   *markdown.Importer

	markdownCommands *markdowncmd.HandlerSet
	dispatch         bool
	subscriptions    []subscription

	closeOnce sync.Once
}

type subscription interface {
	Unsubscribe()
}

// Option mutates the container before it is finalised.
type Option func(*Container)

// WithLoggerProvider overrides the provider selected by the logging config.
func WithLoggerProvider(provider interfaces.LoggerProvider) Option {
	return func(c *Container) {
		c.loggerProvider = provider
	}
}

// WithBunDB uses db instead of opening one from the database config. The
// caller keeps ownership of db.
func WithBunDB(db *bun.DB) Option {
	return func(c *Container) {
		c.bunDB = db
	}
}

// WithMemoryRepositories keeps every record in process memory and skips the
// database entirely.
func WithMemoryRepositories() Option {
	return func(c *Container) {
		c.memoryRepos = true
	}
}

// WithCache overrides the repository cache service.
func WithCache(service repocache.CacheService, serializer repocache.KeySerializer) Option {
	return func(c *Container) {
		c.cacheService = service
		c.keySerializer = serializer
	}
}

// WithFileStorage overrides the storage selected by the storage config.
func WithFileStorage(storage interfaces.FileStorage) Option {
	return func(c *Container) {
		c.fileStorage = storage
	}
}

// WithAuthProvider overrides the static token table.
func WithAuthProvider(provider interfaces.AuthProvider) Option {
	return func(c *Container) {
		c.auth = provider
	}
}

// WithCommandDispatch subscribes command handlers to the go-command
// dispatcher. Only one container per process should enable it.
func WithCommandDispatch() Option {
	return func(c *Container) {
		c.dispatch = true
	}
}

// NewContainer validates cfg and builds every service. Close releases the
// resources it opened.
func NewContainer(ctx context.Context, cfg runtimeconfig.Config, opts ...Option) (*Container, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	c := &Container{Config: cfg}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}

	steps := []func(context.Context) error{
		c.configureLogging,
		c.configureMetrics,
		c.configureRepositories,
		c.configureFileStorage,
		c.configureServices,
		c.configureCommands,
	}
	for _, step := range steps {
		if err := step(ctx); err != nil {
			c.Close()
			return nil, err
		}
	}

	c.logger.Info("press.container.ready",
		"database", c.databaseLabel(),
		"storage", c.Config.Storage.Provider,
		"cache", c.cacheService != nil,
		"metrics", c.metrics != nil,
	)
	return c, nil
}

func (c *Container) configureLogging(context.Context) error {
	if c.loggerProvider == nil {
		provider, err := newLoggerProvider(c.Config.Logging)
		if err != nil {
			return err
		}
		c.loggerProvider = provider
	}
	c.logger = logging.ModuleLogger(c.loggerProvider, logging.RootModule)
	return nil
}

func newLoggerProvider(cfg runtimeconfig.LoggingConfig) (interfaces.LoggerProvider, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Provider)) {
	case runtimeconfig.LoggingZap:
		return zaplogger.NewProvider(zaplogger.Config{Level: cfg.Level, Format: cfg.Format})
	case runtimeconfig.LoggingNoop:
		return nil, nil
	default:
		return gologger.NewProvider(gologger.Config{
			Level:     cfg.Level,
			Format:    cfg.Format,
			AddSource: cfg.AddSource,
			Focus:     cfg.Focus,
		})
	}
}

func (c *Container) configureMetrics(context.Context) error {
	if c.Config.Metrics.Enabled {
		c.metrics = metrics.New(c.Config.Metrics.Runtime)
	}
	return nil
}

func (c *Container) configureRepositories(ctx context.Context) error {
	if c.memoryRepos {
		store := library.NewMemoryStore()
		c.postRepo = posts.NewMemoryPostRepository()
		c.itemRepo = store.Items()
		c.trackRepo = store.Tracks()
		return nil
	}

	if c.bunDB == nil {
		db, err := database.Open(ctx, database.Config{
			Driver:          c.Config.Database.Driver,
			DSN:             c.Config.Database.DSN,
			MaxOpenConns:    c.Config.Database.MaxOpenConns,
			ConnMaxLifetime: c.Config.Database.ConnMaxLifetime,
			Migrate:         c.Config.Database.Migrate,
		}, logging.ModuleLogger(c.loggerProvider, logging.DatabaseModule))
		if err != nil {
			return err
		}
		c.bunDB = db
		c.ownsDB = true
	}

	c.configureCacheDefaults()
	c.postRepo = posts.NewBunPostRepositoryWithCache(c.bunDB, c.cacheService, c.keySerializer)
	c.itemRepo = library.NewBunMediaItemRepositoryWithCache(c.bunDB, c.cacheService, c.keySerializer)
	c.trackRepo = library.NewBunMediaTrackRepositoryWithCache(c.bunDB, c.cacheService, c.keySerializer)
	return nil
}

func (c *Container) configureCacheDefaults() {
	if !c.Config.Cache.Enabled {
		return
	}
	if c.cacheService == nil {
		cfg := repocache.DefaultConfig()
		if c.Config.Cache.TTL > 0 {
			cfg.TTL = c.Config.Cache.TTL
		}
		service, err := repocache.NewCacheService(cfg)
		if err != nil {
			c.logger.Warn("press.cache.disabled", "error", err)
			return
		}
		c.cacheService = service
	}
	if c.keySerializer == nil {
		c.keySerializer = repocache.NewDefaultKeySerializer()
	}
}

func (c *Container) configureFileStorage(ctx context.Context) error {
	if c.fileStorage != nil {
		return nil
	}
	storageCfg := c.Config.Storage
	opts := []files.Option{files.WithLogger(logging.ModuleLogger(c.loggerProvider, logging.FilesModule))}

	switch strings.ToLower(strings.TrimSpace(storageCfg.Provider)) {
	case runtimeconfig.StorageMemory:
		c.fileStorage = files.NewMemoryStorage(storageCfg.PublicURL, opts...)
	case runtimeconfig.StorageS3:
		s3Cfg := files.S3Config{
			Bucket:    storageCfg.S3.Bucket,
			Region:    storageCfg.S3.Region,
			Endpoint:  storageCfg.S3.Endpoint,
			AccessKey: storageCfg.S3.AccessKey,
			SecretKey: storageCfg.S3.SecretKey,
			PathStyle: storageCfg.S3.PathStyle,
			PublicURL: storageCfg.S3.PublicURL,
		}
		client, err := files.NewS3Client(ctx, s3Cfg)
		if err != nil {
			return err
		}
		storage, err := files.NewS3Storage(client, s3Cfg, opts...)
		if err != nil {
			return err
		}
		c.fileStorage = storage
	default:
		storage, err := files.NewLocalStorage(storageCfg.LocalDir, storageCfg.PublicURL, opts...)
		if err != nil {
			return err
		}
		c.fileStorage = storage
	}
	return nil
}

func (c *Container) configureServices(context.Context) error {
	var renderObserver markdown.RenderObserver
	var slugObserver slugs.Observer
	if c.metrics != nil {
		renderObserver = c.metrics
		slugObserver = c.metrics
	}

	c.markdownSvc = markdown.NewService(
		markdown.WithLogger(logging.ModuleLogger(c.loggerProvider, logging.MarkdownModule)),
		markdown.WithObserver(renderObserver),
		markdown.WithEngineOptions(markdown.EngineOptions{
			HardWraps: c.Config.Markdown.HardWraps,
			Highlight: c.Config.Markdown.Highlight,
		}),
	)

	slugLogger := logging.ModuleLogger(c.loggerProvider, logging.SlugsModule)
	c.postSlugs = slugs.NewAssigner(c.slugConfig(slugs.PostConfig()), slugs.WithLogger(slugLogger), slugs.WithObserver(slugObserver))
	c.itemSlugs = slugs.NewAssigner(c.slugConfig(slugs.MediaItemConfig()), slugs.WithLogger(slugLogger), slugs.WithObserver(slugObserver))

	c.postSvc = posts.NewService(c.postRepo,
		posts.WithLogger(logging.ModuleLogger(c.loggerProvider, logging.PostsModule)),
		posts.WithSlugAssigner(c.postSlugs),
	)
	c.librarySvc = library.NewService(c.itemRepo, c.trackRepo,
		library.WithLogger(logging.ModuleLogger(c.loggerProvider, logging.LibraryModule)),
		library.WithSlugAssigner(c.itemSlugs),
	)
	c.importer = markdown.NewImporter(markdown.ImporterConfig{
		Posts:     c.postSvc,
		Logger:    logging.ModuleLogger(c.loggerProvider, logging.MarkdownModule),
		Recursive: c.Config.Markdown.Recursive,
	})

	if c.auth == nil {
		c.auth = httpapi.NewStaticTokenAuth(tokenGrants(c.Config.Auth)...)
	}
	return nil
}

// slugConfig applies the configured limits. Posts keep their single attempt
// policy; only the length limit is shared.
func (c *Container) slugConfig(base slugs.Config) slugs.Config {
	base.MaxLength = c.Config.Slugs.MaxLength
	if base.Policy == slugs.PolicyAutoSuffix {
		base.MaxAttempts = c.Config.Slugs.MaxAttempts
		base.MaxWriteRetries = c.Config.Slugs.MaxWriteRetries
	}
	return base
}

func tokenGrants(cfg runtimeconfig.AuthConfig) []httpapi.TokenGrant {
	grants := make([]httpapi.TokenGrant, 0, len(cfg.Tokens)+1)
	for _, token := range cfg.Tokens {
		grants = append(grants, httpapi.TokenGrant{
			Token:      token.Token,
			Username:   token.Username,
			Staff:      token.Staff,
			Superadmin: token.Superadmin,
		})
	}
	if admin := strings.TrimSpace(cfg.AdminToken); admin != "" {
		grants = append(grants, httpapi.TokenGrant{Token: admin, Username: "admin", Superadmin: true})
	}
	return grants
}

func (c *Container) configureCommands(context.Context) error {
	var registry markdowncmd.CommandRegistry
	if c.dispatch {
		registry = dispatchRegistry{container: c}
	}
	var observer commands.Observer
	if c.metrics != nil {
		observer = c.metrics
	}
	telemetry := commands.ObservedTelemetry[markdowncmd.ImportPostsCommand](
		commands.CommandLogger(c.loggerProvider, "markdown"), observer)

	enabled := c.Config.Markdown.ImportEnabled
	set, err := markdowncmd.RegisterMarkdownCommands(registry, c.importer, c.loggerProvider,
		markdowncmd.FeatureGates{ImportEnabled: func() bool { return enabled }},
		markdowncmd.WithImportHandlerOptions(
			commands.WithTimeout[markdowncmd.ImportPostsCommand](importTimeout),
			commands.WithTelemetry(telemetry),
		),
	)
	if err != nil {
		return err
	}
	c.markdownCommands = set
	return nil
}

// dispatchRegistry subscribes handlers to the process wide dispatcher.
type dispatchRegistry struct {
	container *Container
}

func (r dispatchRegistry) RegisterCommand(handler any) error {
	switch h := handler.(type) {
	case *markdowncmd.ImportPostsHandler:
		sub := dispatcher.SubscribeCommand[markdowncmd.ImportPostsCommand](h, runner.WithMaxRetries(0))
		r.container.subscriptions = append(r.container.subscriptions, sub)
		return nil
	default:
		return fmt.Errorf("di: unsupported command handler %T", handler)
	}
}

// ImportPosts runs the import command for directory, through the dispatcher
// when it is enabled.
func (c *Container) ImportPosts(ctx context.Context, directory string, dryRun bool) (*markdown.ImportResult, error) {
	if c.markdownCommands == nil || c.markdownCommands.Import == nil {
		return nil, errors.New("di: import command not configured")
	}
	msg := markdowncmd.ImportPostsCommand{Directory: directory, DryRun: dryRun}
	var err error
	if c.dispatch {
		err = dispatcher.Dispatch(ctx, msg)
	} else {
		err = c.markdownCommands.Import.Execute(ctx, msg)
	}
	return c.markdownCommands.Import.LastResult(), err
}

// HTTPHandler builds the chi router for the configured services.
func (c *Container) HTTPHandler() (nethttp.Handler, error) {
	opts := []httpapi.Option{
		httpapi.WithPostService(c.postSvc),
		httpapi.WithLibraryService(c.librarySvc),
		httpapi.WithMarkdown(c.markdownSvc),
		httpapi.WithFileStorage(c.fileStorage, c.Config.Server.MaxUploadBytes),
		httpapi.WithAuthProvider(c.auth),
		httpapi.WithLogger(logging.ModuleLogger(c.loggerProvider, logging.HTTPModule)),
		httpapi.WithAllowedOrigins(c.Config.Server.AllowedOrigins...),
	}
	if c.metrics != nil {
		opts = append(opts, httpapi.WithMetrics(c.Config.Metrics.Path, c.metrics.Handler(), c.metrics.Middleware))
	}
	if local, ok := c.fileStorage.(*files.LocalStorage); ok && strings.HasPrefix(c.Config.Storage.PublicURL, "/") {
		opts = append(opts, httpapi.WithStaticFiles(c.Config.Storage.PublicURL, nethttp.Dir(local.Dir())))
	}
	return httpapi.NewAPI(opts...).Handler()
}

// Close unsubscribes command handlers, closes an owned database and flushes
// the logger. It is safe to call more than once.
func (c *Container) Close() error {
	var err error
	c.closeOnce.Do(func() {
		for _, sub := range c.subscriptions {
			sub.Unsubscribe()
		}
		c.subscriptions = nil
		if c.ownsDB && c.bunDB != nil {
			err = c.bunDB.Close()
		}
		if syncer, ok := c.loggerProvider.(interface{ Sync() error }); ok {
			_ = syncer.Sync()
		}
	})
	return err
}

func (c *Container) databaseLabel() string {
	if c.bunDB == nil {
		return "memory"
	}
	return database.DriverOf(c.bunDB)
}

func (c *Container) LoggerProvider() interfaces.LoggerProvider { return c.loggerProvider }

func (c *Container) DB() *bun.DB { return c.bunDB }

func (c *Container) Metrics() *metrics.Metrics { return c.metrics }

func (c *Container) FileStorage() interfaces.FileStorage { return c.fileStorage }

func (c *Container) AuthProvider() interfaces.AuthProvider { return c.auth }

func (c *Container) MarkdownService() *markdown.Service { return c.markdownSvc }

func (c *Container) PostService() posts.Service { return c.postSvc }

func (c *Container) LibraryService() library.Service { return c.librarySvc }

func (c *Container) Importer() *markdown.Importer { return c.importer }

func (c *Container) MarkdownCommands() *markdowncmd.HandlerSet { return c.markdownCommands }
