package di_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/goliatone/go-press/internal/di"
	"github.com/goliatone/go-press/internal/files"
	"github.com/goliatone/go-press/internal/library"
	"github.com/goliatone/go-press/internal/logging/gologger"
	"github.com/goliatone/go-press/internal/logging/zaplogger"
	"github.com/goliatone/go-press/internal/posts"
	"github.com/goliatone/go-press/internal/runtimeconfig"
	"github.com/goliatone/go-press/pkg/interfaces"
)

func testConfig(t *testing.T) runtimeconfig.Config {
	t.Helper()
	cfg := runtimeconfig.DefaultConfig()
	cfg.Database.DSN = "file:" + strings.ReplaceAll(t.Name(), "/", "_") + "?mode=memory&cache=shared&_fk=1"
	cfg.Storage.Provider = runtimeconfig.StorageMemory
	cfg.Logging.Provider = runtimeconfig.LoggingNoop
	cfg.Auth.Tokens = []runtimeconfig.TokenConfig{{Token: "staff", Username: "editor", Staff: true}}
	return cfg
}

func newContainer(t *testing.T, cfg runtimeconfig.Config, opts ...di.Option) *di.Container {
	t.Helper()
	container, err := di.NewContainer(context.Background(), cfg, opts...)
	if err != nil {
		t.Fatalf("NewContainer: %v", err)
	}
	t.Cleanup(func() { _ = container.Close() })
	return container
}

func TestContainerRejectsInvalidConfig(t *testing.T) {
	cfg := testConfig(t)
	cfg.Storage.Provider = "ftp"
	if _, err := di.NewContainer(context.Background(), cfg); !errors.Is(err, runtimeconfig.ErrStorageProviderUnknown) {
		t.Fatalf("expected storage provider error, got %v", err)
	}
}

func TestContainerWiresBunRepositories(t *testing.T) {
	container := newContainer(t, testConfig(t))
	ctx := context.Background()

	if container.DB() == nil {
		t.Fatal("expected database to be opened")
	}
	item, err := container.LibraryService().Create(ctx, library.CreateItemRequest{
		Title:  "Night Drive",
		Kind:   library.KindVideo,
		Status: library.StatusPublished,
		File:   "uploads/night.mp4",
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	again, err := container.LibraryService().Create(ctx, library.CreateItemRequest{
		Title:  "Night Drive",
		Kind:   library.KindVideo,
		Status: library.StatusPublished,
		File:   "uploads/night-2.mp4",
	})
	if err != nil {
		t.Fatalf("second Create: %v", err)
	}
	if item.Slug != "night-drive" || again.Slug != "night-drive-2" {
		t.Fatalf("unexpected slugs %q %q", item.Slug, again.Slug)
	}

	count, err := slugCollisions(container)
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	if count < 1 {
		t.Fatalf("expected slug collisions recorded, got %v", count)
	}
}

func slugCollisions(container *di.Container) (float64, error) {
	families, err := container.Metrics().Registry().Gather()
	if err != nil {
		return 0, err
	}
	var total float64
	for _, family := range families {
		if family.GetName() != "press_slugs_collisions_total" {
			continue
		}
		for _, metric := range family.GetMetric() {
			total += metric.GetCounter().GetValue()
		}
	}
	return total, nil
}

func TestContainerMemoryRepositories(t *testing.T) {
	container := newContainer(t, testConfig(t), di.WithMemoryRepositories())

	if container.DB() != nil {
		t.Fatal("expected no database in memory mode")
	}
	post, err := container.PostService().Create(context.Background(), posts.CreatePostRequest{
		Title:  "Hello",
		Body:   "text",
		Status: posts.StatusPublished,
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if post.Slug != "hello" {
		t.Fatalf("expected hello, got %q", post.Slug)
	}
}

func TestContainerSelectsLoggerProvider(t *testing.T) {
	cfg := testConfig(t)
	cfg.Logging.Provider = runtimeconfig.LoggingGoLogger
	cfg.Logging.Format = "json"
	container := newContainer(t, cfg, di.WithMemoryRepositories())
	if _, ok := container.LoggerProvider().(*gologger.Provider); !ok {
		t.Fatalf("expected go-logger provider, got %T", container.LoggerProvider())
	}

	cfg = testConfig(t)
	cfg.Logging.Provider = runtimeconfig.LoggingZap
	cfg.Logging.Format = "json"
	zapContainer := newContainer(t, cfg, di.WithMemoryRepositories())
	if _, ok := zapContainer.LoggerProvider().(*zaplogger.Provider); !ok {
		t.Fatalf("expected zap provider, got %T", zapContainer.LoggerProvider())
	}
}

func TestContainerSelectsFileStorage(t *testing.T) {
	cfg := testConfig(t)
	container := newContainer(t, cfg, di.WithMemoryRepositories())
	if _, ok := container.FileStorage().(*files.MemoryStorage); !ok {
		t.Fatalf("expected memory storage, got %T", container.FileStorage())
	}

	cfg.Storage.Provider = runtimeconfig.StorageLocal
	cfg.Storage.LocalDir = t.TempDir()
	local := newContainer(t, cfg, di.WithMemoryRepositories())
	if _, ok := local.FileStorage().(*files.LocalStorage); !ok {
		t.Fatalf("expected local storage, got %T", local.FileStorage())
	}
}

func TestContainerAuthFromConfig(t *testing.T) {
	cfg := testConfig(t)
	cfg.Auth.AdminToken = "root"
	container := newContainer(t, cfg, di.WithMemoryRepositories())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer root")
	actor, err := container.AuthProvider().CurrentActor(req)
	if err != nil || actor == nil || !actor.IsSuperadmin {
		t.Fatalf("expected superadmin actor, got %+v %v", actor, err)
	}

	req.Header.Set("Authorization", "Bearer wrong")
	if _, err := container.AuthProvider().CurrentActor(req); !errors.Is(err, interfaces.ErrUnauthenticated) {
		t.Fatalf("expected unauthenticated, got %v", err)
	}
}

func TestContainerHTTPHandler(t *testing.T) {
	container := newContainer(t, testConfig(t), di.WithMemoryRepositories())
	handler, err := container.HTTPHandler()
	if err != nil {
		t.Fatalf("HTTPHandler: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/panel/markdown/preview", strings.NewReader(`{"text":"# Title"}`))
	req.Header.Set("Authorization", "Bearer staff")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "Title") {
		t.Fatalf("expected preview, got %d %s", rec.Code, rec.Body.String())
	}

	metricsRec := httptest.NewRecorder()
	handler.ServeHTTP(metricsRec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if !strings.Contains(metricsRec.Body.String(), "press_markdown_render_duration_seconds") {
		t.Fatalf("expected render histogram in metrics output")
	}
}

func TestContainerImportPosts(t *testing.T) {
	cfg := testConfig(t)
	container := newContainer(t, cfg, di.WithMemoryRepositories())

	dir := t.TempDir()
	writeFiles(t, dir, fstest.MapFS{
		"first.md":  {Data: []byte("---\ntitle: First\nstatus: published\n---\nBody\n")},
		"second.md": {Data: []byte("---\ntitle: Second\n---\nBody\n")},
	})

	result, err := container.ImportPosts(context.Background(), dir, false)
	if err != nil {
		t.Fatalf("ImportPosts: %v", err)
	}
	if len(result.Created) != 2 {
		t.Fatalf("expected two created posts, got %+v", result)
	}
	if _, err := container.PostService().GetPublishedBySlug(context.Background(), "first"); err != nil {
		t.Fatalf("expected imported post, got %v", err)
	}

	families, err := container.Metrics().Registry().Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	observed := false
	for _, family := range families {
		if family.GetName() == "press_commands_duration_seconds" {
			observed = true
		}
	}
	if !observed {
		t.Fatal("expected import command duration to be recorded")
	}
}

func TestContainerImportDisabled(t *testing.T) {
	cfg := testConfig(t)
	cfg.Markdown.ImportEnabled = false
	container := newContainer(t, cfg, di.WithMemoryRepositories())

	if _, err := container.ImportPosts(context.Background(), t.TempDir(), false); err == nil {
		t.Fatal("expected disabled import to fail")
	}
}

func writeFiles(t *testing.T, dir string, fsys fstest.MapFS) {
	t.Helper()
	for name, file := range fsys {
		if err := os.WriteFile(filepath.Join(dir, name), file.Data, 0o600); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
}
