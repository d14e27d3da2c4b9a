package library

import (
	"context"
	"errors"
	"fmt"
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

// Service exposes media library use-cases.
type Service interface {
	Create(ctx context.Context, req CreateItemRequest) (*MediaItem, error)
	Update(ctx context.Context, req UpdateItemRequest) (*MediaItem, error)
	Delete(ctx context.Context, id uuid.UUID) error
	Get(ctx context.Context, id uuid.UUID) (*MediaItem, error)
	List(ctx context.Context, filter ItemFilter) ([]*MediaItem, int, error)
	GetPublishedBySlug(ctx context.Context, slug string) (*MediaItem, error)
	ListPublished(ctx context.Context, kind string, limit, offset int) ([]*MediaItem, int, error)

	AddTrack(ctx context.Context, itemID uuid.UUID, req AddTrackRequest) (*MediaTrack, error)
	DeleteTrack(ctx context.Context, itemID, trackID uuid.UUID) error
	ListTracks(ctx context.Context, itemID uuid.UUID) ([]*MediaTrack, error)
}

// CreateItemRequest captures a new library entry. Slug is optional; when set
// it is normalized and suffixed like a derived one.
type CreateItemRequest struct {
	Title       string
	Slug        string
	Kind        string
	Status      string
	Description string
	File        string
	VideoURL    string
	CoverImage  string
}

// UpdateItemRequest edits an item. The slug is not editable. File and
// CoverImage nil keep the stored references.
type UpdateItemRequest struct {
	ID          uuid.UUID
	Title       string
	Kind        string
	Status      string
	Description string
	VideoURL    string
	File        *string
	CoverImage  *string
}

// ItemFilter narrows panel listings.
type ItemFilter struct {
	Query  string
	Kind   string
	Status string
	Limit  int
	Offset int
}

// AddTrackRequest describes a track upload. Order zero appends after the last
// track.
type AddTrackRequest struct {
	Title     string
	Order     int
	AudioFile string
}

var (
	ErrRepositoryRequired = errors.New("library: repository is required")
	ErrItemIDRequired     = errors.New("library: item id required")
	ErrTrackIDRequired    = errors.New("library: track id required")
	ErrTrackOrderRetries  = errors.New("library: could not allocate a track order")
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 100

	maxTrackOrderRetries = 5
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

// WithSlugAssigner replaces the default auto-suffix assigner.
func WithSlugAssigner(assigner *slugs.Assigner) ServiceOption {
	return func(s *service) {
		if assigner != nil {
			s.slugs = assigner
		}
	}
}

type service struct {
	items  MediaItemRepository
	tracks MediaTrackRepository
	slugs  *slugs.Assigner
	now    func() time.Time
	id     IDGenerator
	logger interfaces.Logger
}

// NewService constructs a library service over the item and track stores.
func NewService(items MediaItemRepository, tracks MediaTrackRepository, opts ...ServiceOption) Service {
	s := &service{
		items:  items,
		tracks: tracks,
		now:    time.Now,
		id:     uuid.New,
		logger: logging.NoOp(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.slugs == nil {
		s.slugs = slugs.NewAssigner(slugs.MediaItemConfig(), slugs.WithLogger(s.logger))
	}
	return s
}

func (s *service) Create(ctx context.Context, req CreateItemRequest) (*MediaItem, error) {
	if err := permissions.Require(ctx, permissions.LibraryCreate); err != nil {
		return nil, err
	}
	if s.items == nil {
		return nil, ErrRepositoryRequired
	}

	fields := itemFields{
		Title:    strings.TrimSpace(req.Title),
		Kind:     normalizeKind(req.Kind),
		Status:   normalizeStatus(req.Status),
		File:     strings.TrimSpace(req.File),
		VideoURL: strings.TrimSpace(req.VideoURL),
	}
	if err := fields.validate(); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	record := &MediaItem{
		ID:          s.id(),
		Title:       fields.Title,
		Kind:        fields.Kind,
		Status:      fields.Status,
		Description: req.Description,
		File:        fields.File,
		VideoURL:    fields.VideoURL,
		CoverImage:  strings.TrimSpace(req.CoverImage),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if record.Status == StatusPublished {
		record.PublishedAt = &now
	}

	var created *MediaItem
	_, err := s.slugs.AssignAndWrite(ctx, s.items, fields.Title, req.Slug, uuid.Nil,
		func(ctx context.Context, slug string) error {
			record.Slug = slug
			rec, err := s.items.Create(ctx, record)
			if err != nil {
				return err
			}
			created = rec
			return nil
		},
		isSlugConflict,
	)
	if err != nil {
		s.log(ctx).Warn("library.create.failed", "title", fields.Title, "error", err)
		return nil, err
	}

	s.log(ctx).Info("library.create.success", "item_id", created.ID, "slug", created.Slug, "kind", created.Kind)
	return created, nil
}

func (s *service) Update(ctx context.Context, req UpdateItemRequest) (*MediaItem, error) {
	if err := permissions.Require(ctx, permissions.LibraryUpdate); err != nil {
		return nil, err
	}
	if req.ID == uuid.Nil {
		return nil, ErrItemIDRequired
	}
	if s.items == nil {
		return nil, ErrRepositoryRequired
	}

	existing, err := s.items.GetByID(ctx, req.ID)
	if err != nil {
		return nil, err
	}

	record := cloneItem(existing)
	record.Tracks = nil
	if req.File != nil {
		record.File = strings.TrimSpace(*req.File)
	}
	if req.CoverImage != nil {
		record.CoverImage = strings.TrimSpace(*req.CoverImage)
	}

	fields := itemFields{
		Title:    strings.TrimSpace(req.Title),
		Kind:     normalizeKind(req.Kind),
		Status:   normalizeStatus(req.Status),
		File:     record.File,
		VideoURL: strings.TrimSpace(req.VideoURL),
	}
	if err := fields.validate(); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	record.Title = fields.Title
	record.Kind = fields.Kind
	record.Status = fields.Status
	record.Description = req.Description
	record.VideoURL = fields.VideoURL
	record.UpdatedAt = now
	if record.Status == StatusPublished && record.PublishedAt == nil {
		record.PublishedAt = &now
	}

	var updated *MediaItem
	if record.Slug != "" {
		updated, err = s.items.Update(ctx, record)
	} else {
		// Rows written before slugs existed get one on their first save.
		_, err = s.slugs.AssignAndWrite(ctx, s.items, record.Title, "", record.ID,
			func(ctx context.Context, slug string) error {
				record.Slug = slug
				rec, err := s.items.Update(ctx, record)
				if err != nil {
					return err
				}
				updated = rec
				return nil
			},
			isSlugConflict,
		)
	}
	if err != nil {
		s.log(ctx).Warn("library.update.failed", "item_id", req.ID, "error", err)
		return nil, err
	}

	s.log(ctx).Info("library.update.success", "item_id", updated.ID, "slug", updated.Slug, "status", updated.Status)
	return updated, nil
}

// Delete removes the item together with all of its tracks.
func (s *service) Delete(ctx context.Context, id uuid.UUID) error {
	if err := permissions.Require(ctx, permissions.LibraryDelete); err != nil {
		return err
	}
	if id == uuid.Nil {
		return ErrItemIDRequired
	}
	if s.items == nil {
		return ErrRepositoryRequired
	}
	if err := s.items.Delete(ctx, id); err != nil {
		return err
	}
	s.log(ctx).Info("library.delete.success", "item_id", id)
	return nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*MediaItem, error) {
	if err := permissions.Require(ctx, permissions.LibraryRead); err != nil {
		return nil, err
	}
	if s.items == nil {
		return nil, ErrRepositoryRequired
	}
	record, err := s.items.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.withTracks(ctx, record)
}

func (s *service) List(ctx context.Context, filter ItemFilter) ([]*MediaItem, int, error) {
	if err := permissions.Require(ctx, permissions.LibraryRead); err != nil {
		return nil, 0, err
	}
	if s.items == nil {
		return nil, 0, ErrRepositoryRequired
	}

	kind := strings.ToLower(strings.TrimSpace(filter.Kind))
	status := strings.ToLower(strings.TrimSpace(filter.Status))
	var issues []goerrors.FieldError
	if kind != "" && kind != KindAudio && kind != KindVideo {
		issues = append(issues, goerrors.FieldError{Field: "kind", Message: "must be audio or video", Value: filter.Kind})
	}
	if status != "" && status != StatusDraft && status != StatusPublished {
		issues = append(issues, goerrors.FieldError{Field: "status", Message: "must be draft or published", Value: filter.Status})
	}
	if len(issues) > 0 {
		return nil, 0, goerrors.NewValidation("invalid filter", issues...)
	}

	limit, offset := pageBounds(filter.Limit, filter.Offset)
	return s.items.List(ctx, ListQuery{
		Search: filter.Query,
		Kind:   kind,
		Status: status,
		Limit:  limit,
		Offset: offset,
	})
}

func (s *service) GetPublishedBySlug(ctx context.Context, slug string) (*MediaItem, error) {
	if s.items == nil {
		return nil, ErrRepositoryRequired
	}
	slug = strings.TrimSpace(slug)
	record, err := s.items.GetBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	if !record.IsPublished() {
		return nil, &NotFoundError{Resource: "media_item", Key: slug}
	}
	return s.withTracks(ctx, record)
}

// ListPublished lists public items, optionally of a single kind. Unknown
// kinds match nothing.
func (s *service) ListPublished(ctx context.Context, kind string, limit, offset int) ([]*MediaItem, int, error) {
	if s.items == nil {
		return nil, 0, ErrRepositoryRequired
	}
	limit, offset = pageBounds(limit, offset)
	return s.items.List(ctx, ListQuery{
		Kind:          strings.ToLower(strings.TrimSpace(kind)),
		PublishedOnly: true,
		Limit:         limit,
		Offset:        offset,
	})
}

func (s *service) AddTrack(ctx context.Context, itemID uuid.UUID, req AddTrackRequest) (*MediaTrack, error) {
	if err := permissions.Require(ctx, permissions.LibraryUpdate); err != nil {
		return nil, err
	}
	if itemID == uuid.Nil {
		return nil, ErrItemIDRequired
	}
	if s.items == nil || s.tracks == nil {
		return nil, ErrRepositoryRequired
	}

	fields := trackFields{
		Title:     strings.TrimSpace(req.Title),
		Order:     req.Order,
		AudioFile: strings.TrimSpace(req.AudioFile),
	}
	if fields.Title == "" {
		fields.Title = DefaultTrackTitle
	}
	if err := fields.validate(); err != nil {
		return nil, err
	}
	if _, err := s.items.GetByID(ctx, itemID); err != nil {
		return nil, err
	}

	track := &MediaTrack{
		ID:        s.id(),
		ItemID:    itemID,
		Title:     fields.Title,
		AudioFile: fields.AudioFile,
		CreatedAt: s.now().UTC(),
	}

	if fields.Order > 0 {
		track.Order = fields.Order
		created, err := s.tracks.Create(ctx, track)
		if isOrderConflict(err) {
			return nil, goerrors.NewValidation("track order already used",
				goerrors.FieldError{Field: "order", Message: "another track of this item already uses this order", Value: fields.Order},
			)
		}
		if err != nil {
			return nil, err
		}
		s.log(ctx).Info("library.track.create.success", "item_id", itemID, "track_id", created.ID, "order", created.Order)
		return created, nil
	}

	for attempt := 1; attempt <= maxTrackOrderRetries; attempt++ {
		last, err := s.tracks.MaxOrder(ctx, itemID)
		if err != nil {
			return nil, err
		}
		track.Order = last + 1
		created, err := s.tracks.Create(ctx, track)
		if err == nil {
			s.log(ctx).Info("library.track.create.success", "item_id", itemID, "track_id", created.ID, "order", created.Order)
			return created, nil
		}
		if !isOrderConflict(err) {
			return nil, err
		}
		s.log(ctx).Warn("library.track.order.retry", "item_id", itemID, "order", track.Order, "attempt", attempt)
	}
	return nil, fmt.Errorf("%w: item %s after %d attempts", ErrTrackOrderRetries, itemID, maxTrackOrderRetries)
}

func (s *service) DeleteTrack(ctx context.Context, itemID, trackID uuid.UUID) error {
	if err := permissions.Require(ctx, permissions.LibraryUpdate); err != nil {
		return err
	}
	if itemID == uuid.Nil {
		return ErrItemIDRequired
	}
	if trackID == uuid.Nil {
		return ErrTrackIDRequired
	}
	if s.tracks == nil {
		return ErrRepositoryRequired
	}

	track, err := s.tracks.GetByID(ctx, trackID)
	if err != nil {
		return err
	}
	if track.ItemID != itemID {
		return &NotFoundError{Resource: "media_track", Key: trackID.String()}
	}
	if err := s.tracks.Delete(ctx, trackID); err != nil {
		return err
	}
	s.log(ctx).Info("library.track.delete.success", "item_id", itemID, "track_id", trackID)
	return nil
}

func (s *service) ListTracks(ctx context.Context, itemID uuid.UUID) ([]*MediaTrack, error) {
	if err := permissions.Require(ctx, permissions.LibraryRead); err != nil {
		return nil, err
	}
	if s.tracks == nil {
		return nil, ErrRepositoryRequired
	}
	return s.tracks.ListByItem(ctx, itemID)
}

func (s *service) withTracks(ctx context.Context, record *MediaItem) (*MediaItem, error) {
	if s.tracks == nil {
		return record, nil
	}
	tracks, err := s.tracks.ListByItem(ctx, record.ID)
	if err != nil {
		return nil, err
	}
	record.Tracks = tracks
	return record, nil
}

func (s *service) log(ctx context.Context) interfaces.Logger {
	return logging.FromContext(ctx, s.logger)
}

type itemFields struct {
	Title    string `json:"title"`
	Kind     string `json:"kind"`
	Status   string `json:"status"`
	File     string `json:"file"`
	VideoURL string `json:"video_url"`
}

func (f itemFields) validate() error {
	err := validation.ValidateStruct(&f,
		validation.Field(&f.Title, validation.Required, validation.RuneLength(1, TitleMaxLength)),
		validation.Field(&f.Kind, validation.Required, validation.In(KindAudio, KindVideo)),
		validation.Field(&f.Status, validation.Required, validation.In(StatusDraft, StatusPublished)),
		validation.Field(&f.File,
			validation.When(f.Kind == KindAudio, validation.Required.Error("an audio item requires a file")),
		),
		validation.Field(&f.VideoURL,
			validation.By(validateHTTPURL),
			validation.When(f.Kind == KindVideo && f.File == "", validation.Required.Error("a video item requires a file or a video URL")),
		),
	)
	return asValidation(err, "media item is invalid")
}

type trackFields struct {
	Title     string `json:"title"`
	Order     int    `json:"order"`
	AudioFile string `json:"audio_file"`
}

func (f trackFields) validate() error {
	err := validation.ValidateStruct(&f,
		validation.Field(&f.Title, validation.RuneLength(1, TitleMaxLength)),
		validation.Field(&f.Order, validation.Min(0).Error("must be a positive number")),
		validation.Field(&f.AudioFile, validation.Required.Error("a track requires an audio file")),
	)
	return asValidation(err, "track is invalid")
}

func asValidation(err error, message string) error {
	if err == nil {
		return nil
	}
	if verr := goerrors.FromOzzoValidation(err, message); verr != nil {
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

func normalizeKind(kind string) string {
	kind = strings.ToLower(strings.TrimSpace(kind))
	if kind == "" {
		return KindAudio
	}
	return kind
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

func isOrderConflict(err error) bool {
	return database.IsUniqueViolationOn(err, "position")
}
