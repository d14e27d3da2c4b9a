package interfaces

import (
	"context"
	"io"
)

// FileUpload is a blob handed to FileStorage.Put.
type FileUpload struct {
	// Name is the client supplied filename, used only for its extension.
	Name        string
	ContentType string
	Size        int64
	Body        io.Reader
	// Prefix groups uploads by purpose, e.g. "covers" or "tracks".
	Prefix string
}

// FileRef points at a stored blob.
type FileRef struct {
	Key         string `json:"key"`
	URL         string `json:"url"`
	ContentType string `json:"content_type,omitempty"`
	Size        int64  `json:"size"`
}

// FileStorage persists uploaded blobs and returns retrievable references.
type FileStorage interface {
	Put(ctx context.Context, upload FileUpload) (FileRef, error)
	Delete(ctx context.Context, key string) error
	URL(key string) string
}
