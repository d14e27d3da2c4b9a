package interfaces

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// MarkdownRenderer turns untrusted Markdown into sanitized HTML. Render must
// be deterministic and must never fail; malformed input degrades to a best
// effort rendering.
type MarkdownRenderer interface {
	Render(raw string) string
}

// Document is a Markdown file split into frontmatter metadata and body.
type Document struct {
	FilePath     string
	FrontMatter  FrontMatter
	Body         []byte
	LastModified time.Time
	// Checksum is the SHA-256 digest of the original file content.
	Checksum []byte
}

// FrontMatter lists the metadata keys understood by the post importer.
type FrontMatter struct {
	Title      string         `yaml:"title" json:"title"`
	Slug       string         `yaml:"slug" json:"slug"`
	Status     string         `yaml:"status" json:"status"`
	Date       time.Time      `yaml:"date" json:"date"`
	Draft      bool           `yaml:"draft" json:"draft"`
	VideoURL   string         `yaml:"video_url" json:"video_url"`
	CoverImage string         `yaml:"cover_image" json:"cover_image"`
	Custom     map[string]any `yaml:",inline" json:"custom,omitempty"`
}

// ImportedPost is a post built from a Markdown document.
type ImportedPost struct {
	ID          uuid.UUID
	Title       string
	Slug        string
	Body        string
	Status      string
	VideoURL    string
	CoverImage  string
	AuthorID    uuid.UUID
	PublishedAt *time.Time
}

// PostImporter persists imported documents. Implementations apply the same
// slug rules as posts created through the panel.
type PostImporter interface {
	PostExists(ctx context.Context, id uuid.UUID) (bool, error)
	ImportPost(ctx context.Context, post ImportedPost) error
}
