// Package zaplogger adapts go.uber.org/zap to the press logging contracts.
package zaplogger

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/goliatone/go-press/pkg/interfaces"
)

// Config selects the zap encoder and minimum level.
type Config struct {
	Level  string
	Format string
}

// Provider names child loggers after press modules.
type Provider struct {
	root *zap.SugaredLogger
}

// NewProvider builds a production zap logger from cfg.
func NewProvider(cfg Config) (*Provider, error) {
	zcfg := zap.NewProductionConfig()

	level, err := parseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}
	zcfg.Level = zap.NewAtomicLevelAt(level)

	switch strings.ToLower(strings.TrimSpace(cfg.Format)) {
	case "", "json":
		zcfg.Encoding = "json"
	case "console", "pretty":
		zcfg.Encoding = "console"
		zcfg.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	default:
		return nil, fmt.Errorf("logging: unsupported zap format %q", cfg.Format)
	}

	logger, err := zcfg.Build()
	if err != nil {
		return nil, fmt.Errorf("logging: build zap logger: %w", err)
	}
	return NewProviderFromLogger(logger), nil
}

// NewProviderFromLogger wraps an existing zap logger.
func NewProviderFromLogger(logger *zap.Logger) *Provider {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Provider{root: logger.Sugar()}
}

// GetLogger returns a logger named after the module.
func (p *Provider) GetLogger(name string) interfaces.Logger {
	if name = strings.TrimSpace(name); name == "" {
		return &adapter{inner: p.root}
	}
	return &adapter{inner: p.root.Named(name)}
}

// Sync flushes buffered entries.
func (p *Provider) Sync() error {
	return p.root.Sync()
}

func parseLevel(level string) (zapcore.Level, error) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "", "info":
		return zapcore.InfoLevel, nil
	case "trace", "debug":
		return zapcore.DebugLevel, nil
	case "warn", "warning":
		return zapcore.WarnLevel, nil
	case "error":
		return zapcore.ErrorLevel, nil
	case "fatal":
		return zapcore.FatalLevel, nil
	default:
		return zapcore.InfoLevel, fmt.Errorf("logging: unsupported zap level %q", level)
	}
}

type adapter struct {
	inner *zap.SugaredLogger
}

var (
	_ interfaces.Logger       = (*adapter)(nil)
	_ interfaces.FieldsLogger = (*adapter)(nil)
)

// zap has no trace level.
func (a *adapter) Trace(msg string, args ...any) { a.inner.Debugw(msg, args...) }
func (a *adapter) Debug(msg string, args ...any) { a.inner.Debugw(msg, args...) }
func (a *adapter) Info(msg string, args ...any)  { a.inner.Infow(msg, args...) }
func (a *adapter) Warn(msg string, args ...any)  { a.inner.Warnw(msg, args...) }
func (a *adapter) Error(msg string, args ...any) { a.inner.Errorw(msg, args...) }
func (a *adapter) Fatal(msg string, args ...any) { a.inner.Fatalw(msg, args...) }

func (a *adapter) WithContext(context.Context) interfaces.Logger {
	return a
}

func (a *adapter) WithFields(fields map[string]any) interfaces.Logger {
	if len(fields) == 0 {
		return a
	}
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	args := make([]any, 0, len(keys)*2)
	for _, k := range keys {
		args = append(args, k, fields[k])
	}
	return &adapter{inner: a.inner.With(args...)}
}
