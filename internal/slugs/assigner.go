package slugs

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"

	"github.com/goliatone/go-press/internal/logging"
	"github.com/goliatone/go-press/pkg/interfaces"
)

var (
	ErrLookupRequired        = errors.New("slugs: lookup is required")
	ErrSlugTaken             = errors.New("slugs: slug already exists")
	ErrSlugEmpty             = errors.New("slugs: slug could not be derived")
	ErrSlugAttemptsExhausted = errors.New("slugs: no free slug candidate")
	ErrSlugRetriesExhausted  = errors.New("slugs: write retries exhausted")
)

const (
	DefaultMaxAttempts     = 1000
	DefaultMaxWriteRetries = 5
	DefaultMediaFallback   = "media"
)

// Policy selects what happens when a proposed slug is already in use.
type Policy string

const (
	// PolicyAutoSuffix appends -2, -3, ... until a free slug is found.
	PolicyAutoSuffix Policy = "auto_suffix"
	// PolicyReject surfaces the collision to the author as a validation error.
	PolicyReject Policy = "reject"
)

// Lookup reports whether slug is used by a record other than excluding.
type Lookup interface {
	SlugExists(ctx context.Context, slug string, excluding uuid.UUID) (bool, error)
}

// LookupFunc adapts a function to Lookup.
type LookupFunc func(ctx context.Context, slug string, excluding uuid.UUID) (bool, error)

func (f LookupFunc) SlugExists(ctx context.Context, slug string, excluding uuid.UUID) (bool, error) {
	return f(ctx, slug, excluding)
}

// Observer receives slug collision events.
type Observer interface {
	SlugCollision(entity string)
	SlugRetry(entity string)
}

// Config describes the slug rules of one entity type.
type Config struct {
	Entity string
	Policy Policy
	// AllowUnicode keeps letters of any script instead of folding the
	// source down to ASCII.
	AllowUnicode bool
	// Fallback is used when normalization yields nothing.
	Fallback string
	// RawFallback replaces spaces with hyphens in the unnormalized source
	// when normalization yields nothing. It takes precedence over Fallback
	// and may produce characters outside the URL-safe set.
	RawFallback     bool
	MaxAttempts     int
	MaxLength       int
	MaxWriteRetries int
}

// MediaItemConfig auto-suffixes collisions and falls back to "media".
func MediaItemConfig() Config {
	return Config{
		Entity:          "media_item",
		Policy:          PolicyAutoSuffix,
		Fallback:        DefaultMediaFallback,
		MaxAttempts:     DefaultMaxAttempts,
		MaxLength:       DefaultMaxLength,
		MaxWriteRetries: DefaultMaxWriteRetries,
	}
}

// PostConfig rejects collisions, keeps non-Latin titles readable and falls
// back to the raw title.
func PostConfig() Config {
	return Config{
		Entity:          "post",
		Policy:          PolicyReject,
		AllowUnicode:    true,
		RawFallback:     true,
		MaxAttempts:     1,
		MaxLength:       DefaultMaxLength,
		MaxWriteRetries: 1,
	}
}

// Option configures an Assigner.
type Option func(*Assigner)

// WithLogger sets the logger used for collision reporting.
func WithLogger(logger interfaces.Logger) Option {
	return func(a *Assigner) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// WithObserver records collisions and retries.
func WithObserver(observer Observer) Option {
	return func(a *Assigner) {
		a.observer = observer
	}
}

// Assigner derives unique slugs for one entity type. The same routine serves
// every entity; only the Config differs.
type Assigner struct {
	cfg      Config
	logger   interfaces.Logger
	observer Observer
}

// NewAssigner builds an Assigner, filling zero limits with defaults.
func NewAssigner(cfg Config, opts ...Option) *Assigner {
	if cfg.Policy == "" {
		cfg.Policy = PolicyAutoSuffix
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = DefaultMaxAttempts
	}
	if cfg.MaxLength <= 0 {
		cfg.MaxLength = DefaultMaxLength
	}
	if cfg.MaxWriteRetries <= 0 {
		cfg.MaxWriteRetries = DefaultMaxWriteRetries
	}
	a := &Assigner{cfg: cfg, logger: logging.NoOp()}
	for _, opt := range opts {
		if opt != nil {
			opt(a)
		}
	}
	return a
}

// Config returns the effective configuration.
func (a *Assigner) Config() Config {
	return a.cfg
}

// Base normalizes explicit, or title when explicit is blank, applying the
// configured fallback when normalization yields nothing.
func (a *Assigner) Base(title, explicit string) string {
	source := strings.TrimSpace(explicit)
	if source == "" {
		source = strings.TrimSpace(title)
	}

	var base string
	if a.cfg.AllowUnicode {
		base = NormalizeUnicode(source, a.cfg.MaxLength)
	} else {
		base = NormalizeWithLimit(source, a.cfg.MaxLength)
	}
	if base != "" {
		return base
	}
	if a.cfg.RawFallback {
		return strings.ReplaceAll(source, " ", "-")
	}
	return a.cfg.Fallback
}

// Candidate returns the n-th candidate for base: base itself for n <= 1,
// otherwise base-n.
func Candidate(base string, n int) string {
	if n <= 1 {
		return base
	}
	return base + "-" + strconv.Itoa(n)
}

// Assign returns a slug for title (or explicit) that lookup reports as free
// for every record except excluding.
func (a *Assigner) Assign(ctx context.Context, lookup Lookup, title, explicit string, excluding uuid.UUID) (string, error) {
	slug, _, err := a.assignFrom(ctx, lookup, a.Base(title, explicit), 1, excluding)
	return slug, err
}

// WriteFunc persists a record using slug.
type WriteFunc func(ctx context.Context, slug string) error

// AssignAndWrite assigns a slug and calls write with it. When write fails
// with an error isConflict recognises as a slug uniqueness violation, the
// auto-suffix policy moves to the next candidate and tries again up to
// MaxWriteRetries times; the reject policy reports the slug as taken.
func (a *Assigner) AssignAndWrite(ctx context.Context, lookup Lookup, title, explicit string, excluding uuid.UUID, write WriteFunc, isConflict func(error) bool) (string, error) {
	base := a.Base(title, explicit)
	start := 1
	for attempt := 1; attempt <= a.cfg.MaxWriteRetries; attempt++ {
		slug, n, err := a.assignFrom(ctx, lookup, base, start, excluding)
		if err != nil {
			return "", err
		}

		err = write(ctx, slug)
		if err == nil {
			return slug, nil
		}
		if isConflict == nil || !isConflict(err) {
			return "", err
		}

		a.logger.Warn("slugs.write.conflict", "entity", a.cfg.Entity, "slug", slug, "attempt", attempt)
		if a.cfg.Policy == PolicyReject {
			a.collision()
			return "", TakenError(slug)
		}
		if a.observer != nil {
			a.observer.SlugRetry(a.cfg.Entity)
		}
		start = n + 1
	}
	return "", fmt.Errorf("%w: %s after %d attempts", ErrSlugRetriesExhausted, a.cfg.Entity, a.cfg.MaxWriteRetries)
}

func (a *Assigner) assignFrom(ctx context.Context, lookup Lookup, base string, start int, excluding uuid.UUID) (string, int, error) {
	if lookup == nil {
		return "", 0, ErrLookupRequired
	}
	if base == "" {
		return "", 0, goerrors.NewValidation("slug is required",
			goerrors.FieldError{Field: "slug", Message: "a slug could not be derived from the title"},
		)
	}

	if a.cfg.Policy == PolicyReject {
		exists, err := lookup.SlugExists(ctx, base, excluding)
		if err != nil {
			return "", 0, fmt.Errorf("slugs: lookup %q: %w", base, err)
		}
		if exists {
			a.collision()
			return "", 0, TakenError(base)
		}
		return base, 1, nil
	}

	last := start + a.cfg.MaxAttempts - 1
	for n := start; n <= last; n++ {
		if err := ctx.Err(); err != nil {
			return "", 0, err
		}
		candidate := Candidate(base, n)
		exists, err := lookup.SlugExists(ctx, candidate, excluding)
		if err != nil {
			return "", 0, fmt.Errorf("slugs: lookup %q: %w", candidate, err)
		}
		if !exists {
			return candidate, n, nil
		}
		if n == start {
			a.collision()
		}
	}
	return "", 0, fmt.Errorf("%w: %q after %d candidates", ErrSlugAttemptsExhausted, base, a.cfg.MaxAttempts)
}

func (a *Assigner) collision() {
	if a.observer != nil {
		a.observer.SlugCollision(a.cfg.Entity)
	}
}

// TakenError is the validation failure reported when the reject policy finds
// slug in use. It matches ErrSlugTaken with errors.Is.
func TakenError(slug string) error {
	verr := goerrors.NewValidation("slug already exists",
		goerrors.FieldError{Field: "slug", Message: "slug already exists, choose a different slug", Value: slug},
	)
	verr.Source = ErrSlugTaken
	return verr
}
