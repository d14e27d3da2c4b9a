package press

import (
	"context"
	"net/http"

	"github.com/goliatone/go-press/internal/di"
	"github.com/goliatone/go-press/internal/library"
	"github.com/goliatone/go-press/internal/markdown"
	"github.com/goliatone/go-press/internal/posts"
	"github.com/goliatone/go-press/pkg/interfaces"
)

// PostService exports the posts service contract.
type PostService = posts.Service

// LibraryService exports the media library service contract.
type LibraryService = library.Service

// ImportResult reports the outcome of a Markdown directory import.
type ImportResult = markdown.ImportResult

// Module is the top level press runtime façade.
type Module struct {
	container *di.Container
}

// New constructs a press module using the provided configuration and
// optional DI overrides.
func New(ctx context.Context, cfg Config, opts ...di.Option) (*Module, error) {
	container, err := di.NewContainer(ctx, cfg, opts...)
	if err != nil {
		return nil, err
	}
	return &Module{container: container}, nil
}

// Container exposes the underlying DI container for advanced integrations.
func (m *Module) Container() *di.Container {
	return m.container
}

// Posts returns the configured post service.
func (m *Module) Posts() PostService {
	return m.container.PostService()
}

// Library returns the configured media library service.
func (m *Module) Library() LibraryService {
	return m.container.LibraryService()
}

// Markdown returns the sanitizing renderer shared by every surface.
func (m *Module) Markdown() interfaces.MarkdownRenderer {
	return m.container.MarkdownService()
}

// Files returns the configured upload storage.
func (m *Module) Files() interfaces.FileStorage {
	return m.container.FileStorage()
}

// Handler returns the HTTP router serving the public site and the panel.
func (m *Module) Handler() (http.Handler, error) {
	return m.container.HTTPHandler()
}

// ImportPosts imports every Markdown file of directory as a post.
func (m *Module) ImportPosts(ctx context.Context, directory string, dryRun bool) (*ImportResult, error) {
	return m.container.ImportPosts(ctx, directory, dryRun)
}

// Close releases the database and flushes the logger.
func (m *Module) Close() error {
	if m == nil || m.container == nil {
		return nil
	}
	return m.container.Close()
}
