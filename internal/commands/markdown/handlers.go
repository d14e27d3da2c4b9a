package markdowncmd

import (
	"context"
	"errors"
	"io/fs"
	"os"

	command "github.com/goliatone/go-command"
	"github.com/google/uuid"

	"github.com/goliatone/go-press/internal/commands"
	"github.com/goliatone/go-press/internal/logging"
	"github.com/goliatone/go-press/internal/markdown"
	"github.com/goliatone/go-press/internal/permissions"
	"github.com/goliatone/go-press/pkg/interfaces"
)

const importOperation = "markdown.import_posts"

var ErrImportDisabled = errors.New("markdown command: import disabled")

var _ command.Commander[ImportPostsCommand] = (*ImportPostsHandler)(nil)

// DirectoryImporter is satisfied by *markdown.Importer.
type DirectoryImporter interface {
	ImportDirectory(ctx context.Context, fsys fs.FS, dir string, opts markdown.ImportOptions) (*markdown.ImportResult, error)
}

// FileSystemFunc resolves the directory of a command into a filesystem and
// the directory inside it to walk.
type FileSystemFunc func(directory string) (fs.FS, string)

// OSFileSystem roots an os.DirFS at directory.
func OSFileSystem(directory string) (fs.FS, string) {
	return os.DirFS(directory), "."
}

// FeatureGates carries runtime toggles read from configuration.
type FeatureGates struct {
	ImportEnabled func() bool
}

func (g FeatureGates) importEnabled() bool {
	return g.ImportEnabled == nil || g.ImportEnabled()
}

// ImportPostsHandler runs ImportPostsCommand through the shared handler.
type ImportPostsHandler struct {
	inner *commands.Handler[ImportPostsCommand]
	last  *markdown.ImportResult
}

// NewImportPostsHandler binds importer. Imports run as the system actor
// unless the context already carries one.
func NewImportPostsHandler(importer DirectoryImporter, filesystem FileSystemFunc, logger interfaces.Logger, gates FeatureGates, opts ...commands.HandlerOption[ImportPostsCommand]) *ImportPostsHandler {
	logger = logging.Ensure(logger)
	if filesystem == nil {
		filesystem = OSFileSystem
	}
	h := &ImportPostsHandler{}

	exec := func(ctx context.Context, msg ImportPostsCommand) error {
		if !gates.importEnabled() {
			return ErrImportDisabled
		}
		if importer == nil {
			return markdown.ErrPostImporterRequired
		}
		if permissions.ActorFromContext(ctx) == nil {
			ctx = permissions.WithActor(ctx, permissions.System())
		}
		authorID := msg.AuthorID
		if authorID == uuid.Nil {
			authorID = permissions.ActorID(ctx)
		}

		fsys, dir := filesystem(msg.Directory)
		result, err := importer.ImportDirectory(ctx, fsys, dir, markdown.ImportOptions{
			AuthorID: authorID,
			DryRun:   msg.DryRun,
		})
		h.last = result
		if result != nil {
			logging.WithFields(logger, map[string]any{
				"created_count": len(result.Created),
				"skipped_count": len(result.Skipped),
				"error_count":   len(result.Errors),
				"dry_run":       msg.DryRun,
			}).Info("markdown.command.import_posts.completed")
		}
		return err
	}

	handlerOpts := []commands.HandlerOption[ImportPostsCommand]{
		commands.WithLogger[ImportPostsCommand](logger),
		commands.WithOperation[ImportPostsCommand](importOperation),
		commands.WithMessageFields(func(msg ImportPostsCommand) map[string]any {
			fields := map[string]any{"directory": msg.Directory}
			if msg.AuthorID != uuid.Nil {
				fields["author_id"] = msg.AuthorID
			}
			if msg.DryRun {
				fields["dry_run"] = true
			}
			return fields
		}),
	}
	h.inner = commands.NewHandler(exec, append(handlerOpts, opts...)...)
	return h
}

// Execute satisfies command.Commander[ImportPostsCommand].
func (h *ImportPostsHandler) Execute(ctx context.Context, msg ImportPostsCommand) error {
	return h.inner.Execute(ctx, msg)
}

// LastResult returns the result of the most recent run, which may be partial
// when the run failed.
func (h *ImportPostsHandler) LastResult() *markdown.ImportResult {
	return h.last
}
