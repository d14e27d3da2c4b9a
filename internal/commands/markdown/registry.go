package markdowncmd

import (
	"errors"

	"github.com/goliatone/go-press/internal/commands"
	"github.com/goliatone/go-press/pkg/interfaces"
)

// CommandRegistry is the registration contract used when wiring handlers.
type CommandRegistry interface {
	RegisterCommand(handler any) error
}

// HandlerSet groups the handlers built by RegisterMarkdownCommands.
type HandlerSet struct {
	Import *ImportPostsHandler
}

// Option customises handler wiring during registration.
type Option func(*options)

type options struct {
	filesystem FileSystemFunc
	importOpts []commands.HandlerOption[ImportPostsCommand]
}

// WithFileSystem overrides how command directories are opened.
func WithFileSystem(fn FileSystemFunc) Option {
	return func(cfg *options) {
		cfg.filesystem = fn
	}
}

// WithImportHandlerOptions forwards options to NewImportPostsHandler.
func WithImportHandlerOptions(opts ...commands.HandlerOption[ImportPostsCommand]) Option {
	return func(cfg *options) {
		cfg.importOpts = append(cfg.importOpts, opts...)
	}
}

// RegisterMarkdownCommands builds the Markdown handlers and registers them
// with reg when it is not nil.
func RegisterMarkdownCommands(reg CommandRegistry, importer DirectoryImporter, provider interfaces.LoggerProvider, gates FeatureGates, opts ...Option) (*HandlerSet, error) {
	if importer == nil {
		return nil, errors.New("markdown command registration: importer is nil")
	}
	cfg := options{}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}

	logger := commands.CommandLogger(provider, "markdown")
	importHandler := NewImportPostsHandler(importer, cfg.filesystem, logger, gates, cfg.importOpts...)

	if reg != nil {
		if err := reg.RegisterCommand(importHandler); err != nil {
			return nil, err
		}
	}
	return &HandlerSet{Import: importHandler}, nil
}
