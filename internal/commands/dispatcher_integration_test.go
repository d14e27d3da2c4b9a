package commands

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/goliatone/go-command/dispatcher"
	"github.com/goliatone/go-command/runner"

	"github.com/goliatone/go-press/internal/logging"
)

type publishBatchCommand struct {
	Slugs []string
}

func (publishBatchCommand) Type() string { return "press.test.publish_batch" }

func (publishBatchCommand) Validate() error { return nil }

type recordingObserver struct {
	mu       sync.Mutex
	statuses []string
}

func (o *recordingObserver) ObserveCommand(_ string, status string, _ time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.statuses = append(o.statuses, status)
}

func TestDispatcherRetriesFlakyWriteAndObservesEachAttempt(t *testing.T) {
	observer := &recordingObserver{}
	var written []string
	attempts := 0

	handler := NewHandler(func(_ context.Context, msg publishBatchCommand) error {
		attempts++
		if attempts == 1 {
			return errors.New("unique constraint failed: media_items.slug")
		}
		written = append(written, msg.Slugs...)
		return nil
	},
		WithTimeout[publishBatchCommand](time.Second),
		WithTelemetry(ObservedTelemetry[publishBatchCommand](logging.NoOp(), observer)),
	)

	sub := dispatcher.SubscribeCommand(handler, runner.WithMaxRetries(1))
	t.Cleanup(sub.Unsubscribe)

	if err := dispatcher.Dispatch(context.Background(), publishBatchCommand{Slugs: []string{"song", "song-2"}}); err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if attempts != 2 || len(written) != 2 {
		t.Fatalf("expected one retry writing both slugs, got attempts=%d written=%v", attempts, written)
	}
	want := []string{string(TelemetryStatusFailed), string(TelemetryStatusSuccess)}
	if len(observer.statuses) != 2 || observer.statuses[0] != want[0] || observer.statuses[1] != want[1] {
		t.Fatalf("expected statuses %v, got %v", want, observer.statuses)
	}
}

type importBatchCommand struct {
	Directory string
}

func (importBatchCommand) Type() string { return "press.test.import_batch" }

func (importBatchCommand) Validate() error { return nil }

func TestDispatcherSurfacesErrorAfterRetries(t *testing.T) {
	attempts := 0
	handler := NewHandler(func(context.Context, importBatchCommand) error {
		attempts++
		return errors.New("posts directory unreadable")
	}, WithTimeout[importBatchCommand](time.Second))

	sub := dispatcher.SubscribeCommand(handler, runner.WithMaxRetries(2))
	t.Cleanup(sub.Unsubscribe)

	if err := dispatcher.Dispatch(context.Background(), importBatchCommand{Directory: "posts"}); err == nil {
		t.Fatal("expected error once retries are exhausted")
	}
	if attempts != 3 {
		t.Fatalf("expected initial attempt plus two retries, got %d", attempts)
	}
}

func TestObservedTelemetryWithoutObserverOnlyLogs(t *testing.T) {
	telemetry := ObservedTelemetry[importBatchCommand](logging.NoOp(), nil)
	telemetry(context.Background(), importBatchCommand{}, TelemetryInfo{Status: TelemetryStatusSuccess})
}
