// Package identity derives stable UUIDs for records whose identity comes from
// outside the database: imported Markdown files and token actors.
package identity

import (
	"path"
	"strings"

	hashid "github.com/goliatone/hashid/pkg/hashid"
	"github.com/google/uuid"
)

const (
	postNamespace  = "go-press:post:"
	actorNamespace = "go-press:actor:"
)

// UUID hashes key into a UUID. Keys must carry a namespace prefix so posts and
// actors never share an ID.
func UUID(key string) uuid.UUID {
	trimmed := strings.TrimSpace(key)
	if trimmed == "" {
		return uuid.Nil
	}
	uid, err := hashid.NewUUID(trimmed, hashid.WithHashAlgorithm(hashid.SHA256), hashid.WithNormalization(true))
	if err != nil || uid == uuid.Nil {
		return uuid.NewSHA1(uuid.NameSpaceOID, []byte(trimmed))
	}
	return uid
}

// PostUUID identifies a post imported from a Markdown file. The same
// relative path always maps to the same ID, so repeated imports are no-ops.
func PostUUID(filePath string) uuid.UUID {
	clean := path.Clean(strings.ReplaceAll(strings.TrimSpace(filePath), "\\", "/"))
	if clean == "." || clean == "" {
		return uuid.Nil
	}
	return UUID(postNamespace + strings.TrimPrefix(clean, "/"))
}

// ActorUUID identifies a configured user by name, case-insensitively.
func ActorUUID(username string) uuid.UUID {
	name := strings.ToLower(strings.TrimSpace(username))
	if name == "" {
		return uuid.Nil
	}
	return UUID(actorNamespace + name)
}
