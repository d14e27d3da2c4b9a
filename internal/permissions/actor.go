package permissions

import (
	"context"

	"github.com/google/uuid"

	"github.com/goliatone/go-press/pkg/interfaces"
)

const actorKey contextKey = "press.permissions.actor"

// SystemActorID identifies writes performed by background jobs and imports.
var SystemActorID = uuid.MustParse("00000000-0000-0000-0000-00000000c0de")

// System returns the actor used for unattended operations. It carries every
// capability.
func System() *interfaces.Actor {
	return &interfaces.Actor{
		ID:           SystemActorID,
		Username:     "system",
		IsStaff:      true,
		IsSuperadmin: true,
	}
}

// WithActor stores actor on the context.
func WithActor(ctx context.Context, actor *interfaces.Actor) context.Context {
	if ctx == nil || actor == nil {
		return ctx
	}
	return context.WithValue(ctx, actorKey, actor)
}

// ActorFromContext returns the stored actor, or nil.
func ActorFromContext(ctx context.Context) *interfaces.Actor {
	if ctx == nil {
		return nil
	}
	actor, _ := ctx.Value(actorKey).(*interfaces.Actor)
	return actor
}

// ActorID returns the id of the stored actor, or uuid.Nil.
func ActorID(ctx context.Context) uuid.UUID {
	if actor := ActorFromContext(ctx); actor != nil {
		return actor.ID
	}
	return uuid.Nil
}

// staffPermissions are the panel capabilities of a staff member. Deleting
// posts stays with superadmins.
var staffPermissions = NewSet(
	PostsRead, PostsCreate, PostsUpdate,
	ResourceLibrary+":*",
	UploadsCreate,
	MarkdownPreview,
)

// CheckerForActor maps the actor flags onto permission tokens.
func CheckerForActor(actor *interfaces.Actor) Checker {
	switch {
	case actor == nil:
		return NewSet()
	case actor.IsSuperadmin:
		return NewSet("*")
	case actor.IsStaff:
		return staffPermissions
	default:
		return NewSet()
	}
}

// RequireActor fails with interfaces.ErrUnauthenticated when no actor is
// present on the context.
func RequireActor(ctx context.Context) (*interfaces.Actor, error) {
	actor := ActorFromContext(ctx)
	if actor == nil {
		return nil, interfaces.ErrUnauthenticated
	}
	return actor, nil
}

// RequireStaff requires an authenticated staff member or superadmin.
func RequireStaff(ctx context.Context) error {
	actor, err := RequireActor(ctx)
	if err != nil {
		return err
	}
	if actor.IsStaff || actor.IsSuperadmin {
		return nil
	}
	return Error{Permission: "staff"}
}

// RequireSuperadmin requires an authenticated superadmin.
func RequireSuperadmin(ctx context.Context) error {
	actor, err := RequireActor(ctx)
	if err != nil {
		return err
	}
	if actor.IsSuperadmin {
		return nil
	}
	return Error{Permission: "superadmin"}
}
