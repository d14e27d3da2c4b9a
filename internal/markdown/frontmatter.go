package markdown

import (
	"bytes"
	"crypto/sha256"
	"fmt"
	"maps"
	"time"

	"github.com/adrg/frontmatter"

	"github.com/goliatone/go-press/pkg/interfaces"
)

// ParseFrontMatter splits source into metadata and the Markdown body.
// Sources without a frontmatter block yield empty metadata and the whole
// input as body.
func ParseFrontMatter(source []byte) (interfaces.FrontMatter, []byte, error) {
	var meta interfaces.FrontMatter

	body, err := frontmatter.Parse(bytes.NewReader(source), &meta)
	if err != nil {
		return interfaces.FrontMatter{}, nil, fmt.Errorf("parse frontmatter: %w", err)
	}

	if meta.Custom == nil {
		meta.Custom = map[string]any{}
	} else {
		meta.Custom = maps.Clone(meta.Custom)
	}
	return meta, body, nil
}

// ParseDocument builds a Document for path, recording a SHA-256 checksum of
// the original bytes.
func ParseDocument(path string, source []byte, modified time.Time) (*interfaces.Document, error) {
	meta, body, err := ParseFrontMatter(source)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	sum := sha256.Sum256(source)
	return &interfaces.Document{
		FilePath:     path,
		FrontMatter:  meta,
		Body:         body,
		LastModified: modified,
		Checksum:     sum[:],
	}, nil
}
