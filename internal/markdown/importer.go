package markdown

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/goliatone/go-press/internal/identity"
	"github.com/goliatone/go-press/internal/logging"
	"github.com/goliatone/go-press/pkg/interfaces"
)

var (
	ErrPostImporterRequired = errors.New("markdown importer: post importer is required")
	ErrFileSystemRequired   = errors.New("markdown importer: filesystem is required")
)

const (
	statusDraft     = "draft"
	statusPublished = "published"
)

// ImporterConfig encapsulates dependencies required to persist documents.
type ImporterConfig struct {
	Posts     interfaces.PostImporter
	Logger    interfaces.Logger
	Recursive bool
}

// ImportOptions adjusts a single import run.
type ImportOptions struct {
	AuthorID uuid.UUID
	DryRun   bool
}

// ImportResult summarises an import run.
type ImportResult struct {
	Created []uuid.UUID
	Skipped []uuid.UUID
	Errors  []error
}

// Importer turns a directory of Markdown documents into posts.
type Importer struct {
	posts     interfaces.PostImporter
	logger    interfaces.Logger
	recursive bool
}

// NewImporter builds an Importer from the supplied configuration.
func NewImporter(cfg ImporterConfig) *Importer {
	return &Importer{
		posts:     cfg.Posts,
		logger:    logging.Ensure(cfg.Logger),
		recursive: cfg.Recursive,
	}
}

// ImportDirectory walks dir in fsys and creates one post per Markdown file.
// Post IDs derive from file paths; files whose post already exists are
// skipped. Per-file failures are collected and the first one is returned.
func (i *Importer) ImportDirectory(ctx context.Context, fsys fs.FS, dir string, opts ImportOptions) (*ImportResult, error) {
	if i.posts == nil {
		return nil, ErrPostImporterRequired
	}
	if fsys == nil {
		return nil, ErrFileSystemRequired
	}

	docs, err := NewLoader(fsys, LoaderConfig{Recursive: i.recursive}).LoadDirectory(ctx, dir)
	if err != nil {
		return nil, fmt.Errorf("markdown importer: load %s: %w", dir, err)
	}

	result := &ImportResult{}
	for _, doc := range docs {
		if err := i.importDocument(ctx, doc, opts, result); err != nil {
			i.logger.Warn("markdown.import.failed", "path", doc.FilePath, "error", err)
			result.Errors = append(result.Errors, err)
		}
	}

	i.logger.Info("markdown.import.completed",
		"directory", dir,
		"created", len(result.Created),
		"skipped", len(result.Skipped),
		"errors", len(result.Errors),
		"dry_run", opts.DryRun,
	)

	if len(result.Errors) > 0 {
		return result, result.Errors[0]
	}
	return result, nil
}

func (i *Importer) importDocument(ctx context.Context, doc *interfaces.Document, opts ImportOptions, result *ImportResult) error {
	id := identity.PostUUID(doc.FilePath)
	exists, err := i.posts.PostExists(ctx, id)
	if err != nil {
		return fmt.Errorf("markdown importer: lookup %s: %w", doc.FilePath, err)
	}
	if exists || opts.DryRun {
		result.Skipped = append(result.Skipped, id)
		return nil
	}

	post := documentToPost(id, doc, opts.AuthorID)
	if err := i.posts.ImportPost(ctx, post); err != nil {
		return fmt.Errorf("markdown importer: import %s: %w", doc.FilePath, err)
	}
	result.Created = append(result.Created, id)
	return nil
}

func documentToPost(id uuid.UUID, doc *interfaces.Document, authorID uuid.UUID) interfaces.ImportedPost {
	meta := doc.FrontMatter

	title := strings.TrimSpace(meta.Title)
	if title == "" {
		title = titleFromPath(doc.FilePath)
	}

	status := statusDraft
	if strings.EqualFold(strings.TrimSpace(meta.Status), statusPublished) && !meta.Draft {
		status = statusPublished
	}

	var publishedAt *time.Time
	if status == statusPublished && !meta.Date.IsZero() {
		date := meta.Date.UTC()
		publishedAt = &date
	}

	return interfaces.ImportedPost{
		ID:          id,
		Title:       title,
		Slug:        strings.TrimSpace(meta.Slug),
		Body:        string(doc.Body),
		Status:      status,
		VideoURL:    strings.TrimSpace(meta.VideoURL),
		CoverImage:  strings.TrimSpace(meta.CoverImage),
		AuthorID:    authorID,
		PublishedAt: publishedAt,
	}
}

func titleFromPath(p string) string {
	base := strings.TrimSuffix(path.Base(p), path.Ext(p))
	base = strings.NewReplacer("-", " ", "_", " ").Replace(base)
	return strings.TrimSpace(base)
}
