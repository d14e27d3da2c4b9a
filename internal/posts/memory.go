package posts

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/goliatone/go-press/internal/database"
)

// MemoryPostRepository is an in-memory implementation for scaffolding and tests.
// It enforces slug uniqueness like the database index does.
type MemoryPostRepository struct {
	mu        sync.RWMutex
	posts     map[uuid.UUID]*Post
	slugIndex map[string]uuid.UUID
}

// NewMemoryPostRepository creates an empty in-memory post repository.
func NewMemoryPostRepository() *MemoryPostRepository {
	return &MemoryPostRepository{
		posts:     make(map[uuid.UUID]*Post),
		slugIndex: make(map[string]uuid.UUID),
	}
}

func (m *MemoryPostRepository) Create(_ context.Context, record *Post) (*Post, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.posts[record.ID]; exists {
		return nil, &database.UniqueViolationError{Table: "posts", Column: "id"}
	}
	if _, taken := m.slugIndex[record.Slug]; taken {
		return nil, &database.UniqueViolationError{Table: "posts", Column: "slug"}
	}

	copied := clonePost(record)
	m.posts[copied.ID] = copied
	m.slugIndex[copied.Slug] = copied.ID
	return clonePost(copied), nil
}

func (m *MemoryPostRepository) GetByID(_ context.Context, id uuid.UUID) (*Post, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	rec, ok := m.posts[id]
	if !ok {
		return nil, &NotFoundError{Resource: "post", Key: id.String()}
	}
	return clonePost(rec), nil
}

func (m *MemoryPostRepository) GetBySlug(_ context.Context, slug string) (*Post, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	id, ok := m.slugIndex[slug]
	if !ok {
		return nil, &NotFoundError{Resource: "post", Key: slug}
	}
	return clonePost(m.posts[id]), nil
}

func (m *MemoryPostRepository) Update(_ context.Context, record *Post) (*Post, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	existing, ok := m.posts[record.ID]
	if !ok {
		return nil, &NotFoundError{Resource: "post", Key: record.ID.String()}
	}
	if owner, taken := m.slugIndex[record.Slug]; taken && owner != record.ID {
		return nil, &database.UniqueViolationError{Table: "posts", Column: "slug"}
	}

	delete(m.slugIndex, existing.Slug)
	copied := clonePost(record)
	m.posts[copied.ID] = copied
	m.slugIndex[copied.Slug] = copied.ID
	return clonePost(copied), nil
}

func (m *MemoryPostRepository) Delete(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	existing, ok := m.posts[id]
	if !ok {
		return &NotFoundError{Resource: "post", Key: id.String()}
	}
	delete(m.slugIndex, existing.Slug)
	delete(m.posts, id)
	return nil
}

func (m *MemoryPostRepository) List(_ context.Context, query ListQuery) ([]*Post, int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	search := strings.ToLower(strings.TrimSpace(query.Search))
	matched := make([]*Post, 0, len(m.posts))
	for _, rec := range m.posts {
		if query.PublishedOnly && rec.Status != StatusPublished {
			continue
		}
		if query.Status != "" && rec.Status != query.Status {
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
	out := make([]*Post, 0, len(page))
	for _, rec := range page {
		out = append(out, clonePost(rec))
	}
	return out, total, nil
}

func (m *MemoryPostRepository) SlugExists(_ context.Context, slug string, excluding uuid.UUID) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	id, ok := m.slugIndex[slug]
	return ok && id != excluding, nil
}

func publishedUnix(p *Post) int64 {
	if p.PublishedAt == nil {
		return 0
	}
	return p.PublishedAt.UnixNano()
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
