package posts

import (
	"context"
	"fmt"
	"strings"

	goerrors "github.com/goliatone/go-errors"
	repository "github.com/goliatone/go-repository-bun"
	cache "github.com/goliatone/go-repository-cache/cache"
	repositorycache "github.com/goliatone/go-repository-cache/repositorycache"
	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"github.com/goliatone/go-press/internal/database"
)

const (
	postNamespace = "post"
	postsTable    = "posts"
)

// listLimitCeiling bounds unpaginated listings.
const listLimitCeiling = 1000

// BunPostRepository implements PostRepository with optional read caching.
// Slug probes always hit the database.
type BunPostRepository struct {
	db           *bun.DB
	repo         repository.Repository[*Post]
	cacheService cache.CacheService
	cachePrefix  string
}

// NewBunPostRepository creates a post repository without caching.
func NewBunPostRepository(db *bun.DB) *BunPostRepository {
	return NewBunPostRepositoryWithCache(db, nil, nil)
}

// NewBunPostRepositoryWithCache creates a post repository with caching services.
func NewBunPostRepositoryWithCache(db *bun.DB, cacheService cache.CacheService, serializer cache.KeySerializer) *BunPostRepository {
	base := NewPostRepository(db)
	var svc cache.CacheService
	if cacheService != nil && serializer != nil {
		base = repositorycache.New(base, cacheService, serializer)
		svc = cacheService
	}
	prefix := ""
	if svc != nil {
		prefix = cachePrefix(postNamespace)
	}
	return &BunPostRepository{db: db, repo: base, cacheService: svc, cachePrefix: prefix}
}

func (r *BunPostRepository) Create(ctx context.Context, record *Post) (*Post, error) {
	created, err := r.repo.Create(ctx, record)
	if err != nil {
		return nil, database.Classify(err, postsTable, "slug")
	}
	r.invalidate(ctx)
	return created, nil
}

func (r *BunPostRepository) GetByID(ctx context.Context, id uuid.UUID) (*Post, error) {
	record, err := r.repo.GetByID(ctx, id.String())
	if err != nil {
		return nil, mapRepositoryError(err, "post", id.String())
	}
	return record, nil
}

func (r *BunPostRepository) GetBySlug(ctx context.Context, slug string) (*Post, error) {
	record, err := r.repo.GetByIdentifier(ctx, slug)
	if err != nil {
		return nil, mapRepositoryError(err, "post", slug)
	}
	return record, nil
}

func (r *BunPostRepository) Update(ctx context.Context, record *Post) (*Post, error) {
	updated, err := r.repo.Update(ctx, record,
		repository.UpdateByID(record.ID.String()),
		repository.UpdateColumns(
			"title",
			"slug",
			"body",
			"cover_image",
			"video_url",
			"status",
			"published_at",
			"updated_at",
		),
	)
	if database.IsUniqueViolation(err) {
		return nil, database.Classify(err, postsTable, "slug")
	}
	if err != nil {
		return nil, mapRepositoryError(err, "post", record.ID.String())
	}
	r.invalidate(ctx)
	if updated == nil {
		return record, nil
	}
	return updated, nil
}

func (r *BunPostRepository) Delete(ctx context.Context, id uuid.UUID) error {
	if err := r.repo.Delete(ctx, &Post{ID: id}); err != nil {
		return mapRepositoryError(err, "post", id.String())
	}
	r.invalidate(ctx)
	return nil
}

func (r *BunPostRepository) List(ctx context.Context, query ListQuery) ([]*Post, int, error) {
	limit := query.Limit
	if limit <= 0 {
		limit = listLimitCeiling
	}
	records, total, err := r.repo.List(ctx,
		repository.SelectRawProcessor(func(q *bun.SelectQuery) *bun.SelectQuery {
			return applyListQuery(q, query)
		}),
		repository.SelectPaginate(limit, max(query.Offset, 0)),
	)
	if err != nil {
		return nil, 0, fmt.Errorf("post repository error: %w", err)
	}
	return records, total, nil
}

func (r *BunPostRepository) SlugExists(ctx context.Context, slug string, excluding uuid.UUID) (bool, error) {
	q := r.db.NewSelect().
		Model((*Post)(nil)).
		Where("?TableAlias.slug = ?", slug)
	if excluding != uuid.Nil {
		q = q.Where("?TableAlias.id != ?", excluding)
	}
	return q.Exists(ctx)
}

// InvalidateCache drops every cached post lookup.
func (r *BunPostRepository) InvalidateCache(ctx context.Context) error {
	if r.cacheService == nil || r.cachePrefix == "" {
		return nil
	}
	return r.cacheService.DeleteByPrefix(ctx, r.cachePrefix)
}

func (r *BunPostRepository) invalidate(ctx context.Context) {
	_ = r.InvalidateCache(ctx)
}

func applyListQuery(q *bun.SelectQuery, query ListQuery) *bun.SelectQuery {
	if query.PublishedOnly {
		q = q.Where("?TableAlias.status = ?", StatusPublished)
	}
	if status := strings.TrimSpace(query.Status); status != "" {
		q = q.Where("?TableAlias.status = ?", status)
	}
	if search := strings.TrimSpace(query.Search); search != "" {
		q = q.Where("LOWER(?TableAlias.title) LIKE ? ESCAPE '\\'", containsPattern(search))
	}
	if query.PublishedOnly {
		q = q.OrderExpr("?TableAlias.published_at DESC")
	}
	return q.OrderExpr("?TableAlias.created_at DESC").OrderExpr("?TableAlias.id ASC")
}

// containsPattern builds a case-insensitive LIKE pattern matching value
// literally.
func containsPattern(value string) string {
	escaped := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(strings.ToLower(value))
	return "%" + escaped + "%"
}

func mapRepositoryError(err error, resource, key string) error {
	if err == nil {
		return nil
	}
	if goerrors.IsCategory(err, repository.CategoryDatabaseNotFound) {
		return &NotFoundError{
			Resource: resource,
			Key:      key,
		}
	}
	return fmt.Errorf("%s repository error: %w", resource, err)
}

func cachePrefix(namespace string) string {
	if namespace == "" {
		return ""
	}
	return namespace + cache.KeySeparator
}
