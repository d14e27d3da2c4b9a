package logging

import (
	"context"

	"github.com/goliatone/go-press/pkg/interfaces"
)

const (
	RootModule     = "press"
	MarkdownModule = "press.markdown"
	SlugsModule    = "press.slugs"
	PostsModule    = "press.posts"
	LibraryModule  = "press.library"
	FilesModule    = "press.files"
	HTTPModule     = "press.http"
	CommandsModule = "press.commands"
	DatabaseModule = "press.database"
)

// ModuleLogger returns a logger scoped to module. A nil provider yields the
// no-op logger. The module name is attached as the "module" field so entries
// can be filtered downstream.
func ModuleLogger(provider interfaces.LoggerProvider, module string) interfaces.Logger {
	if module == "" {
		module = RootModule
	}

	logger := NoOp()
	if provider != nil {
		if provided := provider.GetLogger(module); provided != nil {
			logger = provided
		}
	}

	return WithFields(logger, map[string]any{"module": module})
}

// NoOp returns a logger that discards every entry.
func NoOp() interfaces.Logger {
	return noopLogger{}
}

type noopLogger struct{}

var (
	_ interfaces.Logger       = noopLogger{}
	_ interfaces.FieldsLogger = noopLogger{}
)

func (noopLogger) Trace(string, ...any) {}
func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}
func (noopLogger) Fatal(string, ...any) {}

func (n noopLogger) WithFields(map[string]any) interfaces.Logger { return n }

func (n noopLogger) WithContext(context.Context) interfaces.Logger { return n }
