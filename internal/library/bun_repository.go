package library

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
	mediaItemNamespace  = "media_item"
	mediaTrackNamespace = "media_track"
	mediaItemsTable     = "media_items"
	mediaTracksTable    = "media_tracks"
	listLimitCeiling    = 1000
)

// BunMediaItemRepository implements MediaItemRepository with optional caching.
type BunMediaItemRepository struct {
	db           *bun.DB
	repo         repository.Repository[*MediaItem]
	cacheService cache.CacheService
	cachePrefix  string
}

// NewBunMediaItemRepository creates an item repository without caching.
func NewBunMediaItemRepository(db *bun.DB) *BunMediaItemRepository {
	return NewBunMediaItemRepositoryWithCache(db, nil, nil)
}

// NewBunMediaItemRepositoryWithCache creates an item repository with caching services.
func NewBunMediaItemRepositoryWithCache(db *bun.DB, cacheService cache.CacheService, serializer cache.KeySerializer) *BunMediaItemRepository {
	base := NewMediaItemRepository(db)
	var svc cache.CacheService
	if cacheService != nil && serializer != nil {
		base = repositorycache.New(base, cacheService, serializer)
		svc = cacheService
	}
	prefix := ""
	if svc != nil {
		prefix = cachePrefix(mediaItemNamespace)
	}
	return &BunMediaItemRepository{db: db, repo: base, cacheService: svc, cachePrefix: prefix}
}

func (r *BunMediaItemRepository) Create(ctx context.Context, record *MediaItem) (*MediaItem, error) {
	created, err := r.repo.Create(ctx, record)
	if err != nil {
		return nil, database.Classify(err, mediaItemsTable, "slug")
	}
	r.invalidate(ctx)
	return created, nil
}

func (r *BunMediaItemRepository) GetByID(ctx context.Context, id uuid.UUID) (*MediaItem, error) {
	record, err := r.repo.GetByID(ctx, id.String())
	if err != nil {
		return nil, mapRepositoryError(err, "media_item", id.String())
	}
	return record, nil
}

func (r *BunMediaItemRepository) GetBySlug(ctx context.Context, slug string) (*MediaItem, error) {
	record, err := r.repo.GetByIdentifier(ctx, slug)
	if err != nil {
		return nil, mapRepositoryError(err, "media_item", slug)
	}
	return record, nil
}

func (r *BunMediaItemRepository) Update(ctx context.Context, record *MediaItem) (*MediaItem, error) {
	updated, err := r.repo.Update(ctx, record,
		repository.UpdateByID(record.ID.String()),
		repository.UpdateColumns(
			"title",
			"slug",
			"kind",
			"status",
			"description",
			"file",
			"video_url",
			"cover_image",
			"published_at",
			"updated_at",
		),
	)
	if database.IsUniqueViolation(err) {
		return nil, database.Classify(err, mediaItemsTable, "slug")
	}
	if err != nil {
		return nil, mapRepositoryError(err, "media_item", record.ID.String())
	}
	r.invalidate(ctx)
	if updated == nil {
		return record, nil
	}
	return updated, nil
}

// Delete removes the item and its tracks in one transaction.
func (r *BunMediaItemRepository) Delete(ctx context.Context, id uuid.UUID) error {
	err := r.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewDelete().
			Model((*MediaTrack)(nil)).
			Where("item_id = ?", id).
			Exec(ctx); err != nil {
			return fmt.Errorf("delete media tracks: %w", err)
		}

		res, err := tx.NewDelete().
			Model((*MediaItem)(nil)).
			Where("id = ?", id).
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("delete media item: %w", err)
		}
		if affected, _ := res.RowsAffected(); affected == 0 {
			return &NotFoundError{Resource: "media_item", Key: id.String()}
		}
		return nil
	})
	if err != nil {
		return err
	}
	r.invalidate(ctx)
	return nil
}

func (r *BunMediaItemRepository) List(ctx context.Context, query ListQuery) ([]*MediaItem, int, error) {
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
		return nil, 0, fmt.Errorf("media_item repository error: %w", err)
	}
	return records, total, nil
}

func (r *BunMediaItemRepository) SlugExists(ctx context.Context, slug string, excluding uuid.UUID) (bool, error) {
	q := r.db.NewSelect().
		Model((*MediaItem)(nil)).
		Where("?TableAlias.slug = ?", slug)
	if excluding != uuid.Nil {
		q = q.Where("?TableAlias.id != ?", excluding)
	}
	return q.Exists(ctx)
}

func (r *BunMediaItemRepository) InvalidateCache(ctx context.Context) error {
	if r.cacheService == nil || r.cachePrefix == "" {
		return nil
	}
	return r.cacheService.DeleteByPrefix(ctx, r.cachePrefix)
}

func (r *BunMediaItemRepository) invalidate(ctx context.Context) {
	_ = r.InvalidateCache(ctx)
}

// BunMediaTrackRepository implements MediaTrackRepository with optional caching.
type BunMediaTrackRepository struct {
	db           *bun.DB
	repo         repository.Repository[*MediaTrack]
	cacheService cache.CacheService
	cachePrefix  string
}

// NewBunMediaTrackRepository creates a track repository without caching.
func NewBunMediaTrackRepository(db *bun.DB) *BunMediaTrackRepository {
	return NewBunMediaTrackRepositoryWithCache(db, nil, nil)
}

// NewBunMediaTrackRepositoryWithCache creates a track repository with caching services.
func NewBunMediaTrackRepositoryWithCache(db *bun.DB, cacheService cache.CacheService, serializer cache.KeySerializer) *BunMediaTrackRepository {
	base := NewMediaTrackRepository(db)
	var svc cache.CacheService
	if cacheService != nil && serializer != nil {
		base = repositorycache.New(base, cacheService, serializer)
		svc = cacheService
	}
	prefix := ""
	if svc != nil {
		prefix = cachePrefix(mediaTrackNamespace)
	}
	return &BunMediaTrackRepository{db: db, repo: base, cacheService: svc, cachePrefix: prefix}
}

func (r *BunMediaTrackRepository) Create(ctx context.Context, record *MediaTrack) (*MediaTrack, error) {
	created, err := r.repo.Create(ctx, record)
	if err != nil {
		return nil, database.Classify(err, mediaTracksTable, "position")
	}
	r.invalidate(ctx)
	return created, nil
}

func (r *BunMediaTrackRepository) GetByID(ctx context.Context, id uuid.UUID) (*MediaTrack, error) {
	record, err := r.repo.GetByID(ctx, id.String())
	if err != nil {
		return nil, mapRepositoryError(err, "media_track", id.String())
	}
	return record, nil
}

// ListByItem reads through to the database so ordering reflects the latest
// writes.
func (r *BunMediaTrackRepository) ListByItem(ctx context.Context, itemID uuid.UUID) ([]*MediaTrack, error) {
	var tracks []*MediaTrack
	err := r.db.NewSelect().
		Model(&tracks).
		Where("?TableAlias.item_id = ?", itemID).
		OrderExpr("?TableAlias.position ASC").
		OrderExpr("?TableAlias.id ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("media_track repository error: %w", err)
	}
	return tracks, nil
}

func (r *BunMediaTrackRepository) MaxOrder(ctx context.Context, itemID uuid.UUID) (int, error) {
	var maxOrder int
	err := r.db.NewSelect().
		Model((*MediaTrack)(nil)).
		ColumnExpr("COALESCE(MAX(?TableAlias.position), 0)").
		Where("?TableAlias.item_id = ?", itemID).
		Scan(ctx, &maxOrder)
	if err != nil {
		return 0, fmt.Errorf("media_track repository error: %w", err)
	}
	return maxOrder, nil
}

func (r *BunMediaTrackRepository) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := r.db.NewDelete().
		Model((*MediaTrack)(nil)).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("media_track repository error: %w", err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return &NotFoundError{Resource: "media_track", Key: id.String()}
	}
	r.invalidate(ctx)
	return nil
}

func (r *BunMediaTrackRepository) InvalidateCache(ctx context.Context) error {
	if r.cacheService == nil || r.cachePrefix == "" {
		return nil
	}
	return r.cacheService.DeleteByPrefix(ctx, r.cachePrefix)
}

func (r *BunMediaTrackRepository) invalidate(ctx context.Context) {
	_ = r.InvalidateCache(ctx)
}

func applyListQuery(q *bun.SelectQuery, query ListQuery) *bun.SelectQuery {
	if query.PublishedOnly {
		q = q.Where("?TableAlias.status = ?", StatusPublished)
	}
	if status := strings.TrimSpace(query.Status); status != "" {
		q = q.Where("?TableAlias.status = ?", status)
	}
	if kind := strings.TrimSpace(query.Kind); kind != "" {
		q = q.Where("?TableAlias.kind = ?", kind)
	}
	if search := strings.TrimSpace(query.Search); search != "" {
		escaped := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(strings.ToLower(search))
		q = q.Where("LOWER(?TableAlias.title) LIKE ? ESCAPE '\\'", "%"+escaped+"%")
	}
	if query.PublishedOnly {
		q = q.OrderExpr("?TableAlias.published_at DESC")
	}
	return q.OrderExpr("?TableAlias.created_at DESC").OrderExpr("?TableAlias.id ASC")
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
