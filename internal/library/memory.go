package library

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/goliatone/go-press/internal/database"
)

// MemoryStore keeps items and tracks together so deleting an item can drop
// its tracks atomically, like the foreign key cascade does in SQL.
type MemoryStore struct {
	mu        sync.RWMutex
	items     map[uuid.UUID]*MediaItem
	slugIndex map[string]uuid.UUID
	tracks    map[uuid.UUID]*MediaTrack
}

// NewMemoryStore creates an empty in-memory library store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		items:     make(map[uuid.UUID]*MediaItem),
		slugIndex: make(map[string]uuid.UUID),
		tracks:    make(map[uuid.UUID]*MediaTrack),
	}
}

// Items returns the item repository view of the store.
func (s *MemoryStore) Items() *MemoryMediaItemRepository {
	return &MemoryMediaItemRepository{store: s}
}

// Tracks returns the track repository view of the store.
func (s *MemoryStore) Tracks() *MemoryMediaTrackRepository {
	return &MemoryMediaTrackRepository{store: s}
}

type MemoryMediaItemRepository struct {
	store *MemoryStore
}

func (m *MemoryMediaItemRepository) Create(_ context.Context, record *MediaItem) (*MediaItem, error) {
	s := m.store
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.items[record.ID]; exists {
		return nil, &database.UniqueViolationError{Table: "media_items", Column: "id"}
	}
	if _, taken := s.slugIndex[record.Slug]; taken {
		return nil, &database.UniqueViolationError{Table: "media_items", Column: "slug"}
	}
	copied := cloneItem(record)
	copied.Tracks = nil
	s.items[copied.ID] = copied
	s.slugIndex[copied.Slug] = copied.ID
	return cloneItem(copied), nil
}

func (m *MemoryMediaItemRepository) GetByID(_ context.Context, id uuid.UUID) (*MediaItem, error) {
	s := m.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.items[id]
	if !ok {
		return nil, &NotFoundError{Resource: "media_item", Key: id.String()}
	}
	return cloneItem(rec), nil
}

func (m *MemoryMediaItemRepository) GetBySlug(_ context.Context, slug string) (*MediaItem, error) {
	s := m.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.slugIndex[slug]
	if !ok {
		return nil, &NotFoundError{Resource: "media_item", Key: slug}
	}
	return cloneItem(s.items[id]), nil
}

func (m *MemoryMediaItemRepository) Update(_ context.Context, record *MediaItem) (*MediaItem, error) {
	s := m.store
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.items[record.ID]
	if !ok {
		return nil, &NotFoundError{Resource: "media_item", Key: record.ID.String()}
	}
	if owner, taken := s.slugIndex[record.Slug]; taken && owner != record.ID {
		return nil, &database.UniqueViolationError{Table: "media_items", Column: "slug"}
	}
	delete(s.slugIndex, existing.Slug)
	copied := cloneItem(record)
	copied.Tracks = nil
	s.items[copied.ID] = copied
	s.slugIndex[copied.Slug] = copied.ID
	return cloneItem(copied), nil
}

func (m *MemoryMediaItemRepository) Delete(_ context.Context, id uuid.UUID) error {
	s := m.store
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.items[id]
	if !ok {
		return &NotFoundError{Resource: "media_item", Key: id.String()}
	}
	for trackID, track := range s.tracks {
		if track.ItemID == id {
			delete(s.tracks, trackID)
		}
	}
	delete(s.slugIndex, existing.Slug)
	delete(s.items, id)
	return nil
}

func (m *MemoryMediaItemRepository) List(_ context.Context, query ListQuery) ([]*MediaItem, int, error) {
	s := m.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	search := strings.ToLower(strings.TrimSpace(query.Search))
	matched := make([]*MediaItem, 0, len(s.items))
	for _, rec := range s.items {
		if query.PublishedOnly && rec.Status != StatusPublished {
			continue
		}
		if query.Status != "" && rec.Status != query.Status {
			continue
		}
		if query.Kind != "" && rec.Kind != query.Kind {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(rec.Title), search) {
			continue
		}
		matched = append(matched, rec)
	}

	sort.Slice(matched, func(i, j int) bool {
		a, b := matched[i], matched[j]
		if query.PublishedOnly {
			pa, pb := publishedUnix(a), publishedUnix(b)
			if pa != pb {
				return pa > pb
			}
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return a.ID.String() < b.ID.String()
	})

	total := len(matched)
	page := paginate(matched, query.Limit, query.Offset)
	out := make([]*MediaItem, 0, len(page))
	for _, rec := range page {
		out = append(out, cloneItem(rec))
	}
	return out, total, nil
}

func (m *MemoryMediaItemRepository) SlugExists(_ context.Context, slug string, excluding uuid.UUID) (bool, error) {
	s := m.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.slugIndex[slug]
	return ok && id != excluding, nil
}

type MemoryMediaTrackRepository struct {
	store *MemoryStore
}

func (m *MemoryMediaTrackRepository) Create(_ context.Context, record *MediaTrack) (*MediaTrack, error) {
	s := m.store
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.items[record.ItemID]; !ok {
		return nil, &NotFoundError{Resource: "media_item", Key: record.ItemID.String()}
	}
	for _, track := range s.tracks {
		if track.ItemID == record.ItemID && track.Order == record.Order {
			return nil, &database.UniqueViolationError{Table: "media_tracks", Column: "position"}
		}
	}
	copied := cloneTrack(record)
	s.tracks[copied.ID] = copied
	return cloneTrack(copied), nil
}

func (m *MemoryMediaTrackRepository) GetByID(_ context.Context, id uuid.UUID) (*MediaTrack, error) {
	s := m.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	track, ok := s.tracks[id]
	if !ok {
		return nil, &NotFoundError{Resource: "media_track", Key: id.String()}
	}
	return cloneTrack(track), nil
}

func (m *MemoryMediaTrackRepository) ListByItem(_ context.Context, itemID uuid.UUID) ([]*MediaTrack, error) {
	s := m.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*MediaTrack, 0)
	for _, track := range s.tracks {
		if track.ItemID == itemID {
			out = append(out, cloneTrack(track))
		}
	}
	sortTracks(out)
	return out, nil
}

func (m *MemoryMediaTrackRepository) MaxOrder(_ context.Context, itemID uuid.UUID) (int, error) {
	s := m.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	maxOrder := 0
	for _, track := range s.tracks {
		if track.ItemID == itemID && track.Order > maxOrder {
			maxOrder = track.Order
		}
	}
	return maxOrder, nil
}

func (m *MemoryMediaTrackRepository) Delete(_ context.Context, id uuid.UUID) error {
	s := m.store
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.tracks[id]; !ok {
		return &NotFoundError{Resource: "media_track", Key: id.String()}
	}
	delete(s.tracks, id)
	return nil
}

// sortTracks orders tracks by (order, id).
func sortTracks(tracks []*MediaTrack) {
	sort.Slice(tracks, func(i, j int) bool {
		if tracks[i].Order != tracks[j].Order {
			return tracks[i].Order < tracks[j].Order
		}
		return tracks[i].ID.String() < tracks[j].ID.String()
	})
}

func publishedUnix(m *MediaItem) int64 {
	if m.PublishedAt == nil {
		return 0
	}
	return m.PublishedAt.UnixNano()
}

func paginate[T any](items []T, limit, offset int) []T {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(items) {
		return nil
	}
	items = items[offset:]
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}
