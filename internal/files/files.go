// Package files stores uploaded blobs (cover images, media files and track
// audio) and hands back references the content services keep on records.
package files

import (
	"errors"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/goliatone/go-press/internal/logging"
	"github.com/goliatone/go-press/internal/slugs"
	"github.com/goliatone/go-press/pkg/interfaces"
)

var (
	ErrBodyRequired = errors.New("files: upload body is required")
	ErrInvalidKey   = errors.New("files: invalid key")
	ErrNotFound     = errors.New("files: file not found")
)

const (
	DefaultPrefix   = "uploads"
	maxExtensionLen = 10
)

// Option configures a storage backend.
type Option func(*keyer)

// WithClock overrides the clock used for the date segments of new keys.
func WithClock(clock func() time.Time) Option {
	return func(k *keyer) {
		if clock != nil {
			k.now = clock
		}
	}
}

// WithIDGenerator overrides the random part of new keys.
func WithIDGenerator(generator func() uuid.UUID) Option {
	return func(k *keyer) {
		if generator != nil {
			k.id = generator
		}
	}
}

func WithLogger(logger interfaces.Logger) Option {
	return func(k *keyer) {
		if logger != nil {
			k.logger = logger
		}
	}
}

// keyer builds object keys shared by every backend.
type keyer struct {
	now    func() time.Time
	id     func() uuid.UUID
	logger interfaces.Logger
}

func newKeyer(opts []Option) keyer {
	k := keyer{now: time.Now, id: uuid.New, logger: logging.NoOp()}
	for _, opt := range opts {
		if opt != nil {
			opt(&k)
		}
	}
	return k
}

// newKey returns prefix/YYYY/MM/<uuid><ext>.
func (k keyer) newKey(upload interfaces.FileUpload) string {
	now := k.now().UTC()
	return path.Join(
		cleanPrefix(upload.Prefix),
		now.Format("2006"),
		now.Format("01"),
		k.id().String()+Extension(upload.Name),
	)
}

func cleanPrefix(prefix string) string {
	parts := strings.Split(prefix, "/")
	kept := make([]string, 0, len(parts))
	for _, part := range parts {
		if normalized := slugs.Normalize(part); normalized != "" {
			kept = append(kept, normalized)
		}
	}
	if len(kept) == 0 {
		return DefaultPrefix
	}
	return strings.Join(kept, "/")
}

// Extension returns the lowercased extension of name when it is short and
// alphanumeric, otherwise "".
func Extension(name string) string {
	ext := strings.ToLower(filepath.Ext(strings.TrimSpace(name)))
	if len(ext) < 2 || len(ext) > maxExtensionLen {
		return ""
	}
	for _, r := range ext[1:] {
		if (r < 'a' || r > 'z') && (r < '0' || r > '9') {
			return ""
		}
	}
	return ext
}

// validKey rejects keys that could escape the storage root.
func validKey(key string) bool {
	if key == "" || strings.HasPrefix(key, "/") || strings.Contains(key, `\`) {
		return false
	}
	return filepath.IsLocal(filepath.FromSlash(key)) && path.Clean(key) == key
}

func joinURL(base, key string) string {
	return strings.TrimRight(base, "/") + "/" + key
}
