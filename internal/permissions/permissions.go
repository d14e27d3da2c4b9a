package permissions

import (
	"context"
	"errors"
	"strings"
)

type Action string

const (
	ActionRead    Action = "read"
	ActionCreate  Action = "create"
	ActionUpdate  Action = "update"
	ActionDelete  Action = "delete"
	ActionPreview Action = "preview"
)

const (
	ResourcePosts    = "posts"
	ResourceLibrary  = "library"
	ResourceUploads  = "uploads"
	ResourceMarkdown = "markdown"
)

var (
	PostsRead   = Join(ResourcePosts, ActionRead)
	PostsCreate = Join(ResourcePosts, ActionCreate)
	PostsUpdate = Join(ResourcePosts, ActionUpdate)
	PostsDelete = Join(ResourcePosts, ActionDelete)

	LibraryRead   = Join(ResourceLibrary, ActionRead)
	LibraryCreate = Join(ResourceLibrary, ActionCreate)
	LibraryUpdate = Join(ResourceLibrary, ActionUpdate)
	LibraryDelete = Join(ResourceLibrary, ActionDelete)

	UploadsCreate   = Join(ResourceUploads, ActionCreate)
	MarkdownPreview = Join(ResourceMarkdown, ActionPreview)
)

var ErrPermissionDenied = errors.New("permissions: denied")

type Error struct {
	Permission string
}

func (e Error) Error() string {
	if strings.TrimSpace(e.Permission) == "" {
		return "permission denied"
	}
	return "permission denied: " + e.Permission
}

func (e Error) Unwrap() error {
	return ErrPermissionDenied
}

// Join builds a permission token from resource and action.
func Join(resource string, action Action) string {
	res := normalizeToken(resource)
	act := normalizeToken(string(action))
	if res == "" || act == "" {
		return ""
	}
	return res + ":" + act
}

type Checker interface {
	Allowed(permission string) bool
}

type CheckerFunc func(permission string) bool

func (fn CheckerFunc) Allowed(permission string) bool {
	return fn(permission)
}

// Set is a static list of granted tokens. "resource:*" grants every action
// on a resource and "*" grants everything.
type Set map[string]struct{}

func NewSet(perms ...string) Set {
	set := Set{}
	for _, perm := range perms {
		normalized := normalizePermission(perm)
		if normalized == "" {
			continue
		}
		set[normalized] = struct{}{}
	}
	return set
}

func (s Set) Allowed(permission string) bool {
	if len(s) == 0 {
		return false
	}
	normalized := normalizePermission(permission)
	if normalized == "" {
		return false
	}
	if _, ok := s[normalized]; ok {
		return true
	}
	resource, _ := splitPermission(normalized)
	if resource != "" {
		if _, ok := s[resource+":*"]; ok {
			return true
		}
	}
	_, ok := s["*"]
	return ok
}

type contextKey string

const checkerKey contextKey = "press.permissions.checker"

// WithChecker stores a permission checker on the context.
func WithChecker(ctx context.Context, checker Checker) context.Context {
	if ctx == nil || checker == nil {
		return ctx
	}
	return context.WithValue(ctx, checkerKey, checker)
}

// WithPermissions stores a static permission set on the context.
func WithPermissions(ctx context.Context, perms ...string) context.Context {
	if ctx == nil || len(perms) == 0 {
		return ctx
	}
	return WithChecker(ctx, NewSet(perms...))
}

// CheckerFromContext returns the checker stored directly on the context or
// derived from the stored actor.
func CheckerFromContext(ctx context.Context) Checker {
	if ctx == nil {
		return nil
	}
	if checker, ok := ctx.Value(checkerKey).(Checker); ok && checker != nil {
		return checker
	}
	if actor := ActorFromContext(ctx); actor != nil {
		return CheckerForActor(actor)
	}
	return nil
}

// Allowed reports whether the provided permission is allowed for the context.
// Contexts without a checker or actor are trusted callers.
func Allowed(ctx context.Context, permission string) bool {
	return Require(ctx, permission) == nil
}

// Require enforces a permission requirement when a checker or actor is
// available on the context.
func Require(ctx context.Context, permission string) error {
	normalized := normalizePermission(permission)
	if normalized == "" {
		return nil
	}
	checker := CheckerFromContext(ctx)
	if checker == nil {
		return nil
	}
	if checker.Allowed(normalized) {
		return nil
	}
	return Error{Permission: normalized}
}

func splitPermission(permission string) (string, Action) {
	normalized := normalizePermission(permission)
	if normalized == "" {
		return "", ""
	}
	parts := strings.SplitN(normalized, ":", 2)
	resource := normalizeToken(parts[0])
	if len(parts) == 1 {
		return resource, ""
	}
	return resource, Action(normalizeToken(parts[1]))
}

func normalizePermission(permission string) string {
	return strings.ToLower(strings.TrimSpace(permission))
}

func normalizeToken(value string) string {
	return strings.ToLower(strings.TrimSpace(value))
}
