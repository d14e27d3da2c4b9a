package library

import (
	"context"
	"fmt"

	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// ListQuery filters item listings. PublishedOnly restricts the result to
// published items ordered by publication date; other listings are newest
// first by creation date.
type ListQuery struct {
	Search        string
	Kind          string
	Status        string
	PublishedOnly bool
	Limit         int
	Offset        int
}

// MediaItemRepository abstracts storage operations for media items. Delete
// removes the item's tracks with it.
type MediaItemRepository interface {
	Create(ctx context.Context, record *MediaItem) (*MediaItem, error)
	GetByID(ctx context.Context, id uuid.UUID) (*MediaItem, error)
	GetBySlug(ctx context.Context, slug string) (*MediaItem, error)
	Update(ctx context.Context, record *MediaItem) (*MediaItem, error)
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, query ListQuery) ([]*MediaItem, int, error)
	SlugExists(ctx context.Context, slug string, excluding uuid.UUID) (bool, error)
}

// MediaTrackRepository abstracts storage operations for tracks.
type MediaTrackRepository interface {
	Create(ctx context.Context, record *MediaTrack) (*MediaTrack, error)
	GetByID(ctx context.Context, id uuid.UUID) (*MediaTrack, error)
	ListByItem(ctx context.Context, itemID uuid.UUID) ([]*MediaTrack, error)
	MaxOrder(ctx context.Context, itemID uuid.UUID) (int, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// NotFoundError represents missing records from repository lookups.
type NotFoundError struct {
	Resource string
	Key      string
}

func (e *NotFoundError) Error() string {
	if e.Key == "" {
		return fmt.Sprintf("%s not found", e.Resource)
	}
	return fmt.Sprintf("%s %q not found", e.Resource, e.Key)
}

func NewMediaItemRepository(db *bun.DB) repository.Repository[*MediaItem] {
	return repository.MustNewRepository(db, repository.ModelHandlers[*MediaItem]{
		NewRecord: func() *MediaItem { return &MediaItem{} },
		GetID: func(m *MediaItem) uuid.UUID {
			return m.ID
		},
		SetID: func(m *MediaItem, id uuid.UUID) {
			m.ID = id
		},
		GetIdentifier: func() string {
			return "slug"
		},
		GetIdentifierValue: func(m *MediaItem) string {
			return m.Slug
		},
	})
}

func NewMediaTrackRepository(db *bun.DB) repository.Repository[*MediaTrack] {
	return repository.MustNewRepository(db, repository.ModelHandlers[*MediaTrack]{
		NewRecord: func() *MediaTrack { return &MediaTrack{} },
		GetID: func(t *MediaTrack) uuid.UUID {
			return t.ID
		},
		SetID: func(t *MediaTrack, id uuid.UUID) {
			t.ID = id
		},
		GetIdentifier: func() string {
			return "id"
		},
		GetIdentifierValue: func(t *MediaTrack) string {
			if t == nil {
				return ""
			}
			return t.ID.String()
		},
	})
}
