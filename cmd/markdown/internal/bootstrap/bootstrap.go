package bootstrap

import (
	"context"
	"fmt"
	"strings"

	press "github.com/goliatone/go-press"
	"github.com/goliatone/go-press/internal/di"
	"github.com/goliatone/go-press/internal/logging"
	"github.com/goliatone/go-press/pkg/interfaces"
)

// Options captures configuration for markdown CLI bootstraps.
type Options struct {
	ConfigPath     string
	EnvFiles       []string
	Recursive      bool
	LoggerProvider interfaces.LoggerProvider
	// Memory keeps records in process memory, for dry runs and tests.
	Memory bool
}

// Module wraps the press module and the markdown logger.
type Module struct {
	Module *press.Module
	Logger interfaces.Logger
}

// BuildModule constructs a press module configured for markdown operations.
func BuildModule(ctx context.Context, opts Options) (*Module, error) {
	cfg, err := press.LoadConfig(strings.TrimSpace(opts.ConfigPath), opts.EnvFiles...)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	cfg.Markdown.ImportEnabled = true
	if opts.Recursive {
		cfg.Markdown.Recursive = true
	}

	diOpts := []di.Option{}
	if opts.LoggerProvider != nil {
		diOpts = append(diOpts, di.WithLoggerProvider(opts.LoggerProvider))
	}
	if opts.Memory {
		diOpts = append(diOpts, di.WithMemoryRepositories())
	}

	module, err := press.New(ctx, cfg, diOpts...)
	if err != nil {
		return nil, fmt.Errorf("initialise press module: %w", err)
	}

	return &Module{
		Module: module,
		Logger: logging.ModuleLogger(module.Container().LoggerProvider(), logging.MarkdownModule),
	}, nil
}

// SplitList parses a comma separated list into a trimmed slice.
func SplitList(value string) []string {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
