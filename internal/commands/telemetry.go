package commands

import (
	"context"
	"time"

	command "github.com/goliatone/go-command"

	"github.com/goliatone/go-press/internal/logging"
	"github.com/goliatone/go-press/pkg/interfaces"
)

type TelemetryStatus string

const (
	TelemetryStatusSuccess      TelemetryStatus = "success"
	TelemetryStatusFailed       TelemetryStatus = "failed"
	TelemetryStatusContextError TelemetryStatus = "context_error"
)

// TelemetryInfo describes one command execution.
type TelemetryInfo struct {
	Command   string
	Operation string
	Fields    map[string]any
	Duration  time.Duration
	Error     error
	Status    TelemetryStatus
}

// Telemetry is invoked once per execution with its outcome.
type Telemetry[T command.Message] func(ctx context.Context, msg T, info TelemetryInfo)

// Observer receives execution outcomes, typically a metrics sink.
type Observer interface {
	ObserveCommand(command, status string, duration time.Duration)
}

// DefaultTelemetry logs outcomes with logger. Cancellations and timeouts are
// warnings since the caller chose to stop.
func DefaultTelemetry[T command.Message](logger interfaces.Logger) Telemetry[T] {
	logger = logging.Ensure(logger)
	return func(ctx context.Context, _ T, info TelemetryInfo) {
		entry := logging.WithFields(logging.FromContext(ctx, logger), info.Fields)
		args := []any{"duration_ms", info.Duration.Milliseconds()}
		switch info.Status {
		case TelemetryStatusSuccess:
			entry.Info("command.execute.success", args...)
		case TelemetryStatusContextError:
			entry.Warn("command.execute.interrupted", append(args, "error", info.Error)...)
		default:
			entry.Error("command.execute.failed", append(args, "error", info.Error)...)
		}
	}
}

// ObservedTelemetry logs like DefaultTelemetry and reports every outcome to
// observer. A nil observer only logs.
func ObservedTelemetry[T command.Message](logger interfaces.Logger, observer Observer) Telemetry[T] {
	log := DefaultTelemetry[T](logger)
	if observer == nil {
		return log
	}
	return func(ctx context.Context, msg T, info TelemetryInfo) {
		log(ctx, msg, info)
		observer.ObserveCommand(info.Command, string(info.Status), info.Duration)
	}
}
