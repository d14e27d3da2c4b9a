package posts

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"

	"github.com/goliatone/go-press/internal/database"
	"github.com/goliatone/go-press/internal/logging"
	"github.com/goliatone/go-press/internal/permissions"
	"github.com/goliatone/go-press/internal/slugs"
	"github.com/goliatone/go-press/pkg/interfaces"
)

// Service exposes post management use-cases.
type Service interface {
	Create(ctx context.Context, req CreatePostRequest) (*Post, error)
	Update(ctx context.Context, req UpdatePostRequest) (*Post, error)
	Delete(ctx context.Context, id uuid.UUID) error
	Get(ctx context.Context, id uuid.UUID) (*Post, error)
	List(ctx context.Context, filter PostFilter) ([]*Post, int, error)
	GetPublishedBySlug(ctx context.Context, slug string) (*Post, error)
	ListPublished(ctx context.Context, limit, offset int) ([]*Post, int, error)
	interfaces.PostImporter
}

// CreatePostRequest captures the fields of a new post. An empty Slug derives
// the slug from Title.
type CreatePostRequest struct {
	Title      string
	Slug       string
	Body       string
	Status     string
	VideoURL   string
	CoverImage string
	AuthorID   uuid.UUID
}

// UpdatePostRequest replaces the editable fields of a post. CoverImage nil
// keeps the current image.
type UpdatePostRequest struct {
	ID         uuid.UUID
	Title      string
	Slug       string
	Body       string
	Status     string
	VideoURL   string
	CoverImage *string
}

// PostFilter narrows panel listings.
type PostFilter struct {
	Query  string
	Status string
	Limit  int
	Offset int
}

var (
	ErrRepositoryRequired = errors.New("posts: repository is required")
	ErrPostIDRequired     = errors.New("posts: post id required")
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// ServiceOption configures the service at construction time.
type ServiceOption func(*service)

// WithClock overrides the clock used to stamp records.
func WithClock(clock func() time.Time) ServiceOption {
	return func(s *service) {
		if clock != nil {
			s.now = clock
		}
	}
}

type IDGenerator func() uuid.UUID

func WithIDGenerator(generator IDGenerator) ServiceOption {
	return func(s *service) {
		if generator != nil {
			s.id = generator
		}
	}
}

// WithLogger sets the module logger.
func WithLogger(logger interfaces.Logger) ServiceOption {
	return func(s *service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithSlugAssigner replaces the default reject-policy assigner.
func WithSlugAssigner(assigner *slugs.Assigner) ServiceOption {
	return func(s *service) {
		if assigner != nil {
			s.slugs = assigner
		}
	}
}

type service struct {
	repo   PostRepository
	slugs  *slugs.Assigner
	now    func() time.Time
	id     IDGenerator
	logger interfaces.Logger
}

// NewService constructs a post service backed by repo.
func NewService(repo PostRepository, opts ...ServiceOption) Service {
	s := &service{
		repo:   repo,
		now:    time.Now,
		id:     uuid.New,
		logger: logging.NoOp(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.slugs == nil {
		s.slugs = slugs.NewAssigner(slugs.PostConfig(), slugs.WithLogger(s.logger))
	}
	return s
}

func (s *service) Create(ctx context.Context, req CreatePostRequest) (*Post, error) {
	if err := permissions.Require(ctx, permissions.PostsCreate); err != nil {
		return nil, err
	}
	if req.AuthorID == uuid.Nil {
		req.AuthorID = permissions.ActorID(ctx)
	}
	return s.create(ctx, s.id(), req, nil)
}

func (s *service) create(ctx context.Context, id uuid.UUID, req CreatePostRequest, publishedAt *time.Time) (*Post, error) {
	if s.repo == nil {
		return nil, ErrRepositoryRequired
	}
	fields := postFields{
		Title:    strings.TrimSpace(req.Title),
		Slug:     strings.TrimSpace(req.Slug),
		Status:   normalizeStatus(req.Status),
		VideoURL: strings.TrimSpace(req.VideoURL),
	}
	if err := fields.validate(); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	record := &Post{
		ID:         id,
		Title:      fields.Title,
		Body:       req.Body,
		CoverImage: strings.TrimSpace(req.CoverImage),
		VideoURL:   fields.VideoURL,
		Status:     fields.Status,
		AuthorID:   req.AuthorID,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if record.Status == StatusPublished {
		stamp := now
		if publishedAt != nil && !publishedAt.IsZero() {
			stamp = publishedAt.UTC()
		}
		record.PublishedAt = &stamp
	}

	var created *Post
	_, err := s.slugs.AssignAndWrite(ctx, s.repo, fields.Title, fields.Slug, uuid.Nil,
		func(ctx context.Context, slug string) error {
			record.Slug = slug
			rec, err := s.repo.Create(ctx, record)
			if err != nil {
				return err
			}
			created = rec
			return nil
		},
		isSlugConflict,
	)
	if err != nil {
		s.log(ctx).Warn("posts.create.failed", "title", fields.Title, "error", err)
		return nil, err
	}

	s.log(ctx).Info("posts.create.success", "post_id", created.ID, "slug", created.Slug, "status", created.Status)
	return created, nil
}

func (s *service) Update(ctx context.Context, req UpdatePostRequest) (*Post, error) {
	if err := permissions.Require(ctx, permissions.PostsUpdate); err != nil {
		return nil, err
	}
	if req.ID == uuid.Nil {
		return nil, ErrPostIDRequired
	}
	if s.repo == nil {
		return nil, ErrRepositoryRequired
	}

	existing, err := s.repo.GetByID(ctx, req.ID)
	if err != nil {
		return nil, err
	}

	fields := postFields{
		Title:    strings.TrimSpace(req.Title),
		Slug:     strings.TrimSpace(req.Slug),
		Status:   normalizeStatus(req.Status),
		VideoURL: strings.TrimSpace(req.VideoURL),
	}
	if err := fields.validate(); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	record := clonePost(existing)
	record.Title = fields.Title
	record.Body = req.Body
	record.VideoURL = fields.VideoURL
	record.Status = fields.Status
	record.UpdatedAt = now
	if req.CoverImage != nil {
		record.CoverImage = strings.TrimSpace(*req.CoverImage)
	}
	switch {
	case record.Status == StatusPublished && record.PublishedAt == nil:
		record.PublishedAt = &now
	case record.Status == StatusDraft:
		record.PublishedAt = nil
	}

	var updated *Post
	_, err = s.slugs.AssignAndWrite(ctx, s.repo, fields.Title, fields.Slug, record.ID,
		func(ctx context.Context, slug string) error {
			record.Slug = slug
			rec, err := s.repo.Update(ctx, record)
			if err != nil {
				return err
			}
			updated = rec
			return nil
		},
		isSlugConflict,
	)
	if err != nil {
		s.log(ctx).Warn("posts.update.failed", "post_id", req.ID, "error", err)
		return nil, err
	}

	s.log(ctx).Info("posts.update.success", "post_id", updated.ID, "slug", updated.Slug, "status", updated.Status)
	return updated, nil
}

func (s *service) Delete(ctx context.Context, id uuid.UUID) error {
	if err := permissions.Require(ctx, permissions.PostsDelete); err != nil {
		return err
	}
	if id == uuid.Nil {
		return ErrPostIDRequired
	}
	if s.repo == nil {
		return ErrRepositoryRequired
	}
	if _, err := s.repo.GetByID(ctx, id); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.log(ctx).Info("posts.delete.success", "post_id", id)
	return nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*Post, error) {
	if err := permissions.Require(ctx, permissions.PostsRead); err != nil {
		return nil, err
	}
	if s.repo == nil {
		return nil, ErrRepositoryRequired
	}
	return s.repo.GetByID(ctx, id)
}

func (s *service) List(ctx context.Context, filter PostFilter) ([]*Post, int, error) {
	if err := permissions.Require(ctx, permissions.PostsRead); err != nil {
		return nil, 0, err
	}
	if s.repo == nil {
		return nil, 0, ErrRepositoryRequired
	}
	status := strings.ToLower(strings.TrimSpace(filter.Status))
	if status != "" && status != StatusDraft && status != StatusPublished {
		return nil, 0, goerrors.NewValidation("invalid filter",
			goerrors.FieldError{Field: "status", Message: "must be draft or published", Value: filter.Status},
		)
	}
	limit, offset := pageBounds(filter.Limit, filter.Offset)
	return s.repo.List(ctx, ListQuery{
		Search: filter.Query,
		Status: status,
		Limit:  limit,
		Offset: offset,
	})
}

func (s *service) GetPublishedBySlug(ctx context.Context, slug string) (*Post, error) {
	if s.repo == nil {
		return nil, ErrRepositoryRequired
	}
	slug = strings.TrimSpace(slug)
	record, err := s.repo.GetBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	if !record.IsPublished() {
		return nil, &NotFoundError{Resource: "post", Key: slug}
	}
	return record, nil
}

func (s *service) ListPublished(ctx context.Context, limit, offset int) ([]*Post, int, error) {
	if s.repo == nil {
		return nil, 0, ErrRepositoryRequired
	}
	limit, offset = pageBounds(limit, offset)
	return s.repo.List(ctx, ListQuery{PublishedOnly: true, Limit: limit, Offset: offset})
}

// PostExists reports whether a post with id is stored.
func (s *service) PostExists(ctx context.Context, id uuid.UUID) (bool, error) {
	if s.repo == nil {
		return false, ErrRepositoryRequired
	}
	_, err := s.repo.GetByID(ctx, id)
	if err == nil {
		return true, nil
	}
	var notFound *NotFoundError
	if errors.As(err, &notFound) {
		return false, nil
	}
	return false, err
}

// ImportPost creates a post with a caller-chosen id, keeping the publication
// date recorded in the source document.
func (s *service) ImportPost(ctx context.Context, post interfaces.ImportedPost) error {
	if err := permissions.Require(ctx, permissions.PostsCreate); err != nil {
		return err
	}
	if post.ID == uuid.Nil {
		return ErrPostIDRequired
	}
	_, err := s.create(ctx, post.ID, CreatePostRequest{
		Title:      post.Title,
		Slug:       post.Slug,
		Body:       post.Body,
		Status:     post.Status,
		VideoURL:   post.VideoURL,
		CoverImage: post.CoverImage,
		AuthorID:   post.AuthorID,
	}, post.PublishedAt)
	return err
}

func (s *service) log(ctx context.Context) interfaces.Logger {
	return logging.FromContext(ctx, s.logger)
}

type postFields struct {
	Title    string `json:"title"`
	Slug     string `json:"slug"`
	Status   string `json:"status"`
	VideoURL string `json:"video_url"`
}

func (f postFields) validate() error {
	err := validation.ValidateStruct(&f,
		validation.Field(&f.Title, validation.Required, validation.RuneLength(1, TitleMaxLength)),
		validation.Field(&f.Slug, validation.RuneLength(0, SlugMaxLength)),
		validation.Field(&f.Status, validation.Required, validation.In(StatusDraft, StatusPublished)),
		validation.Field(&f.VideoURL, validation.By(validateHTTPURL)),
	)
	if err == nil {
		return nil
	}
	if verr := goerrors.FromOzzoValidation(err, "post is invalid"); verr != nil {
		return verr
	}
	return err
}

func validateHTTPURL(value any) error {
	raw, _ := value.(string)
	if raw == "" {
		return nil
	}
	parsed, err := url.Parse(raw)
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
		return validation.NewError("validation_is_url", "must be a valid http(s) URL")
	}
	return nil
}

func normalizeStatus(status string) string {
	status = strings.ToLower(strings.TrimSpace(status))
	if status == "" {
		return StatusDraft
	}
	return status
}

func pageBounds(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = DefaultPageSize
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

func isSlugConflict(err error) bool {
	return database.IsUniqueViolationOn(err, "slug")
}
