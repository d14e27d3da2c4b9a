package library

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

const (
	KindAudio = "audio"
	KindVideo = "video"
)

const (
	StatusDraft     = "draft"
	StatusPublished = "published"
)

const (
	TitleMaxLength    = 200
	DefaultTrackTitle = "Track"
)

// MediaItem is an audio or video entry of the public library. Its slug is
// assigned once, on creation.
type MediaItem struct {
	bun.BaseModel `bun:"table:media_items,alias:mi"`

	ID          uuid.UUID     `bun:",pk,type:uuid" json:"id"`
	Title       string        `bun:"title,notnull" json:"title"`
	Slug        string        `bun:"slug,notnull" json:"slug"`
	Kind        string        `bun:"kind,notnull" json:"kind"`
	Status      string        `bun:"status,notnull" json:"status"`
	Description string        `bun:"description,notnull" json:"description"`
	File        string        `bun:"file,notnull" json:"file,omitempty"`
	VideoURL    string        `bun:"video_url,notnull" json:"video_url,omitempty"`
	CoverImage  string        `bun:"cover_image,notnull" json:"cover_image,omitempty"`
	CreatedAt   time.Time     `bun:"created_at,nullzero,notnull,default:current_timestamp" json:"created_at"`
	UpdatedAt   time.Time     `bun:"updated_at,nullzero,notnull,default:current_timestamp" json:"updated_at"`
	PublishedAt *time.Time    `bun:"published_at,nullzero" json:"published_at,omitempty"`
	Tracks      []*MediaTrack `bun:"-" json:"tracks,omitempty"`
}

// IsPublished reports whether the item is publicly visible.
func (m *MediaItem) IsPublished() bool {
	return m != nil && m.Status == StatusPublished
}

// MediaTrack is one audio file of a MediaItem. Order is unique per item.
type MediaTrack struct {
	bun.BaseModel `bun:"table:media_tracks,alias:mt"`

	ID        uuid.UUID `bun:",pk,type:uuid" json:"id"`
	ItemID    uuid.UUID `bun:"item_id,notnull,type:uuid" json:"item_id"`
	Title     string    `bun:"title,notnull" json:"title"`
	AudioFile string    `bun:"audio_file,notnull" json:"audio_file"`
	Order     int       `bun:"position,notnull" json:"order"`
	CreatedAt time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp" json:"created_at"`
}

func cloneItem(src *MediaItem) *MediaItem {
	if src == nil {
		return nil
	}
	copied := *src
	if src.PublishedAt != nil {
		published := *src.PublishedAt
		copied.PublishedAt = &published
	}
	if src.Tracks != nil {
		copied.Tracks = make([]*MediaTrack, len(src.Tracks))
		for i, track := range src.Tracks {
			copied.Tracks[i] = cloneTrack(track)
		}
	}
	return &copied
}

func cloneTrack(src *MediaTrack) *MediaTrack {
	if src == nil {
		return nil
	}
	copied := *src
	return &copied
}
