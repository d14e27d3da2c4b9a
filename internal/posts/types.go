package posts

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

const (
	StatusDraft     = "draft"
	StatusPublished = "published"
)

const (
	TitleMaxLength = 200
	SlugMaxLength  = 220
)

// Post is a Markdown article. Slug is unique across posts.
type Post struct {
	bun.BaseModel `bun:"table:posts,alias:p"`

	ID          uuid.UUID  `bun:",pk,type:uuid" json:"id"`
	Title       string     `bun:"title,notnull" json:"title"`
	Slug        string     `bun:"slug,notnull" json:"slug"`
	Body        string     `bun:"body,notnull" json:"body"`
	CoverImage  string     `bun:"cover_image,notnull" json:"cover_image,omitempty"`
	VideoURL    string     `bun:"video_url,notnull" json:"video_url,omitempty"`
	Status      string     `bun:"status,notnull" json:"status"`
	AuthorID    uuid.UUID  `bun:"author_id,type:uuid,nullzero" json:"author_id,omitempty"`
	CreatedAt   time.Time  `bun:"created_at,nullzero,notnull,default:current_timestamp" json:"created_at"`
	UpdatedAt   time.Time  `bun:"updated_at,nullzero,notnull,default:current_timestamp" json:"updated_at"`
	PublishedAt *time.Time `bun:"published_at,nullzero" json:"published_at,omitempty"`
}

// IsPublished reports whether the post is publicly visible.
func (p *Post) IsPublished() bool {
	return p != nil && p.Status == StatusPublished
}

func clonePost(p *Post) *Post {
	if p == nil {
		return nil
	}
	cloned := *p
	if p.PublishedAt != nil {
		published := *p.PublishedAt
		cloned.PublishedAt = &published
	}
	return &cloned
}
