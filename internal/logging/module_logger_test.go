package logging

import (
	"context"
	"testing"

	"github.com/goliatone/go-press/pkg/interfaces"
)

type recordingLogger struct {
	fields   []map[string]any
	contexts []context.Context
}

func (r *recordingLogger) Trace(string, ...any) {}
func (r *recordingLogger) Debug(string, ...any) {}
func (r *recordingLogger) Info(string, ...any)  {}
func (r *recordingLogger) Warn(string, ...any)  {}
func (r *recordingLogger) Error(string, ...any) {}
func (r *recordingLogger) Fatal(string, ...any) {}

func (r *recordingLogger) WithFields(fields map[string]any) interfaces.Logger {
	copied := make(map[string]any, len(fields))
	for k, v := range fields {
		copied[k] = v
	}
	r.fields = append(r.fields, copied)
	return r
}

func (r *recordingLogger) WithContext(ctx context.Context) interfaces.Logger {
	r.contexts = append(r.contexts, ctx)
	return r
}

type stubProvider struct {
	requested []string
	logger    interfaces.Logger
}

func (s *stubProvider) GetLogger(name string) interfaces.Logger {
	s.requested = append(s.requested, name)
	return s.logger
}

func TestModuleLoggerFallsBackToNoOp(t *testing.T) {
	logger := ModuleLogger(nil, PostsModule)
	if _, ok := logger.(noopLogger); !ok {
		t.Fatalf("expected noopLogger fallback, got %T", logger)
	}
	logger.WithContext(context.Background()).Debug("noop")
}

func TestModuleLoggerAttachesModuleField(t *testing.T) {
	rec := &recordingLogger{}
	provider := &stubProvider{logger: rec}

	ModuleLogger(provider, MarkdownModule)

	if len(provider.requested) != 1 || provider.requested[0] != MarkdownModule {
		t.Fatalf("expected provider lookup for %q, got %v", MarkdownModule, provider.requested)
	}
	if len(rec.fields) != 1 || rec.fields[0]["module"] != MarkdownModule {
		t.Fatalf("expected module field, got %v", rec.fields)
	}
}

func TestModuleLoggerDefaultsToRootModule(t *testing.T) {
	rec := &recordingLogger{}
	provider := &stubProvider{logger: rec}

	ModuleLogger(provider, "")

	if provider.requested[0] != RootModule {
		t.Fatalf("expected root module, got %q", provider.requested[0])
	}
}

func TestFromContextMergesContextFields(t *testing.T) {
	rec := &recordingLogger{}
	ctx := ContextWithFields(context.Background(), map[string]any{"request_id": "abc"})
	ctx = ContextWithFields(ctx, map[string]any{"actor": "editor"})

	FromContext(ctx, rec)

	if len(rec.contexts) != 1 || rec.contexts[0] != ctx {
		t.Fatalf("expected context to be bound")
	}
	if len(rec.fields) != 1 {
		t.Fatalf("expected one WithFields call, got %d", len(rec.fields))
	}
	got := rec.fields[0]
	if got["request_id"] != "abc" || got["actor"] != "editor" {
		t.Fatalf("unexpected merged fields %v", got)
	}
}

func TestContextFieldsReturnsCopy(t *testing.T) {
	ctx := ContextWithFields(context.Background(), map[string]any{"a": 1})
	fields := ContextFields(ctx)
	fields["a"] = 2

	if ContextFields(ctx)["a"] != 1 {
		t.Fatalf("expected stored fields to be unaffected by caller mutation")
	}
}
