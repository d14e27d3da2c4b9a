package http

import (
	"net/http"
	"strings"

	"github.com/goliatone/go-press/internal/identity"
	"github.com/goliatone/go-press/internal/permissions"
	"github.com/goliatone/go-press/pkg/interfaces"
)

// StaticTokenAuth resolves bearer tokens against a fixed table. It is a
// development adapter; production hosts plug in their own AuthProvider.
type StaticTokenAuth struct {
	actors map[string]*interfaces.Actor
}

var _ interfaces.AuthProvider = (*StaticTokenAuth)(nil)

// TokenGrant maps one bearer token onto an actor.
type TokenGrant struct {
	Token      string
	Username   string
	Staff      bool
	Superadmin bool
}

// NewStaticTokenAuth builds the token table. Actor IDs are derived from the
// username so they stay stable across restarts.
func NewStaticTokenAuth(grants ...TokenGrant) *StaticTokenAuth {
	auth := &StaticTokenAuth{actors: make(map[string]*interfaces.Actor, len(grants))}
	for _, grant := range grants {
		token := strings.TrimSpace(grant.Token)
		username := strings.TrimSpace(grant.Username)
		if token == "" || username == "" {
			continue
		}
		auth.actors[token] = &interfaces.Actor{
			ID:           identity.ActorUUID(username),
			Username:     username,
			IsStaff:      grant.Staff || grant.Superadmin,
			IsSuperadmin: grant.Superadmin,
		}
	}
	return auth
}

// CurrentActor returns the actor for the Authorization header. Requests
// without a bearer token yield (nil, nil); unknown tokens fail with
// interfaces.ErrUnauthenticated.
func (a *StaticTokenAuth) CurrentActor(r *http.Request) (*interfaces.Actor, error) {
	token, ok := bearerToken(r)
	if !ok {
		return nil, nil
	}
	if a == nil {
		return nil, interfaces.ErrUnauthenticated
	}
	actor, found := a.actors[token]
	if !found {
		return nil, interfaces.ErrUnauthenticated
	}
	copied := *actor
	return &copied, nil
}

func bearerToken(r *http.Request) (string, bool) {
	if r == nil {
		return "", false
	}
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if header == "" {
		return "", false
	}
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// identify stores the resolved actor on the request context. Failed
// credentials are rejected even on public routes.
func identify(provider interfaces.AuthProvider) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if provider == nil {
				next.ServeHTTP(w, r)
				return
			}
			actor, err := provider.CurrentActor(r)
			if err != nil {
				writeError(w, err)
				return
			}
			if actor != nil {
				r = r.WithContext(permissions.WithActor(r.Context(), actor))
			}
			next.ServeHTTP(w, r)
		})
	}
}

// requireStaff guards the panel. Anonymous requests must not reach the
// services, which trust contexts without an actor.
func requireStaff(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := permissions.RequireStaff(r.Context()); err != nil {
			writeError(w, err)
			return
		}
		next.ServeHTTP(w, r)
	})
}
