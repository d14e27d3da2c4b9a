package files

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/goliatone/go-press/pkg/interfaces"
)

type memoryObject struct {
	data        []byte
	contentType string
}

// MemoryStorage keeps uploads in memory. Used for tests and development.
type MemoryStorage struct {
	mu        sync.RWMutex
	objects   map[string]memoryObject
	publicURL string
	keys      keyer
}

var _ interfaces.FileStorage = (*MemoryStorage)(nil)

func NewMemoryStorage(publicURL string, opts ...Option) *MemoryStorage {
	if publicURL == "" {
		publicURL = "/" + DefaultPrefix
	}
	return &MemoryStorage{
		objects:   make(map[string]memoryObject),
		publicURL: publicURL,
		keys:      newKeyer(opts),
	}
}

func (s *MemoryStorage) Put(ctx context.Context, upload interfaces.FileUpload) (interfaces.FileRef, error) {
	if upload.Body == nil {
		return interfaces.FileRef{}, ErrBodyRequired
	}
	if err := ctx.Err(); err != nil {
		return interfaces.FileRef{}, err
	}
	data, err := io.ReadAll(upload.Body)
	if err != nil {
		return interfaces.FileRef{}, fmt.Errorf("files: read upload: %w", err)
	}

	key := s.keys.newKey(upload)
	s.mu.Lock()
	s.objects[key] = memoryObject{data: data, contentType: upload.ContentType}
	s.mu.Unlock()

	return interfaces.FileRef{
		Key:         key,
		URL:         s.URL(key),
		ContentType: upload.ContentType,
		Size:        int64(len(data)),
	}, nil
}

func (s *MemoryStorage) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.objects[key]; !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	delete(s.objects, key)
	return nil
}

func (s *MemoryStorage) URL(key string) string {
	return joinURL(s.publicURL, key)
}

// Open returns a reader over a stored object.
func (s *MemoryStorage) Open(key string) (io.Reader, string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	obj, ok := s.objects[key]
	if !ok {
		return nil, "", fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	return bytes.NewReader(obj.data), obj.contentType, nil
}

// Len reports the number of stored objects.
func (s *MemoryStorage) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.objects)
}
