package http

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/goliatone/go-press/internal/library"
	"github.com/goliatone/go-press/internal/logging"
	"github.com/goliatone/go-press/internal/posts"
	"github.com/goliatone/go-press/pkg/interfaces"
)

// DefaultMaxUploadBytes caps multipart uploads when no limit is configured.
const DefaultMaxUploadBytes int64 = 64 << 20

// API serves the public site endpoints and the staff panel.
type API struct {
	posts          posts.Service
	library        library.Service
	markdown       interfaces.MarkdownRenderer
	uploads        interfaces.FileStorage
	auth           interfaces.AuthProvider
	logger         interfaces.Logger
	allowedOrigins []string
	maxUploadBytes int64
	metricsPath    string
	metrics        http.Handler
	instrument     func(http.Handler) http.Handler
	staticPrefix   string
	static         http.FileSystem
}

// Option mutates the API configuration.
type Option func(*API)

// NewAPI constructs an API instance.
func NewAPI(opts ...Option) *API {
	api := &API{
		logger:         logging.NoOp(),
		maxUploadBytes: DefaultMaxUploadBytes,
		metricsPath:    "/metrics",
	}
	for _, opt := range opts {
		if opt != nil {
			opt(api)
		}
	}
	return api
}

func WithPostService(service posts.Service) Option {
	return func(api *API) { api.posts = service }
}

func WithLibraryService(service library.Service) Option {
	return func(api *API) { api.library = service }
}

// WithMarkdown sets the renderer used for public bodies and the preview.
func WithMarkdown(renderer interfaces.MarkdownRenderer) Option {
	return func(api *API) { api.markdown = renderer }
}

// WithFileStorage enables the upload endpoint. maxBytes <= 0 keeps the
// default limit.
func WithFileStorage(storage interfaces.FileStorage, maxBytes int64) Option {
	return func(api *API) {
		api.uploads = storage
		if maxBytes > 0 {
			api.maxUploadBytes = maxBytes
		}
	}
}

func WithAuthProvider(provider interfaces.AuthProvider) Option {
	return func(api *API) { api.auth = provider }
}

func WithLogger(logger interfaces.Logger) Option {
	return func(api *API) { api.logger = logging.Ensure(logger) }
}

// WithAllowedOrigins configures CORS. No origins disables the middleware.
func WithAllowedOrigins(origins ...string) Option {
	return func(api *API) {
		api.allowedOrigins = api.allowedOrigins[:0]
		for _, origin := range origins {
			if trimmed := strings.TrimSpace(origin); trimmed != "" {
				api.allowedOrigins = append(api.allowedOrigins, trimmed)
			}
		}
	}
}

// WithMetrics mounts handler at path and wraps every route with instrument
// when it is not nil.
func WithMetrics(path string, handler http.Handler, instrument func(http.Handler) http.Handler) Option {
	return func(api *API) {
		if trimmed := strings.TrimSpace(path); trimmed != "" {
			api.metricsPath = "/" + strings.Trim(trimmed, "/")
		}
		api.metrics = handler
		api.instrument = instrument
	}
}

// WithStaticFiles serves stored uploads under prefix, used with local file
// storage.
func WithStaticFiles(prefix string, fsys http.FileSystem) Option {
	return func(api *API) {
		trimmed := strings.Trim(strings.TrimSpace(prefix), "/")
		if trimmed == "" || fsys == nil {
			return
		}
		api.staticPrefix = "/" + trimmed
		api.static = fsys
	}
}

// Handler builds a chi router serving every configured route.
func (api *API) Handler() (http.Handler, error) {
	router := chi.NewRouter()
	if err := api.Register(router); err != nil {
		return nil, err
	}
	return router, nil
}

// Register attaches middleware and routes to router.
func (api *API) Register(router chi.Router) error {
	if router == nil {
		return errors.New("http: router is required")
	}
	if api == nil {
		return errors.New("http: api is nil")
	}

	router.Use(middleware.RequestID, middleware.RealIP, api.recoverer)
	if api.instrument != nil {
		router.Use(api.instrument)
	}
	if len(api.allowedOrigins) > 0 {
		router.Use(cors.Handler(cors.Options{
			AllowedOrigins: api.allowedOrigins,
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
			AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
			MaxAge:         300,
		}))
	}
	router.Use(identify(api.auth))

	if api.metrics != nil {
		router.Method(http.MethodGet, api.metricsPath, api.metrics)
	}
	if api.static != nil {
		router.Handle(api.staticPrefix+"/*", http.StripPrefix(api.staticPrefix, http.FileServer(api.static)))
	}

	router.Get("/posts", api.handlePublicPostList)
	router.Get("/posts/{slug}", api.handlePublicPostGet)
	router.Get("/library", api.handlePublicItemList)
	router.Get("/library/{slug}", api.handlePublicItemGet)

	router.Route("/panel", func(panel chi.Router) {
		panel.Use(requireStaff)

		panel.Post("/markdown/preview", api.handlePreview)

		panel.Get("/posts", api.handlePostList)
		panel.Post("/posts", api.handlePostCreate)
		panel.Get("/posts/{id}", api.handlePostGet)
		panel.Put("/posts/{id}", api.handlePostUpdate)
		panel.Delete("/posts/{id}", api.handlePostDelete)

		panel.Get("/library", api.handleItemList)
		panel.Post("/library", api.handleItemCreate)
		panel.Get("/library/{id}", api.handleItemGet)
		panel.Put("/library/{id}", api.handleItemUpdate)
		panel.Delete("/library/{id}", api.handleItemDelete)
		panel.Post("/library/{id}/tracks", api.handleTrackAdd)
		panel.Delete("/library/{id}/tracks/{trackID}", api.handleTrackDelete)

		panel.Post("/uploads", api.handleUpload)
	})
	return nil
}

// recoverer turns handler panics into a JSON 500 and logs them.
func (api *API) recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				api.logger.Error("http.panic", "panic", rec, "path", r.URL.Path, "request_id", middleware.GetReqID(r.Context()))
				writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal_error", Message: "internal server error"})
			}
		}()
		next.ServeHTTP(w, r)
	})
}

func (api *API) render(raw string) string {
	if api.markdown == nil {
		return ""
	}
	return api.markdown.Render(raw)
}

func (api *API) fail(w http.ResponseWriter, r *http.Request, err error) {
	status, payload := mapError(err)
	if status >= http.StatusInternalServerError {
		api.logger.Error("http.request.failed", "path", r.URL.Path, "method", r.Method, "error", err,
			"request_id", middleware.GetReqID(r.Context()))
	}
	writeJSON(w, status, payload)
}

func unavailable(w http.ResponseWriter) {
	writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: "service_unavailable"})
}
