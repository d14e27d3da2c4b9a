package interfaces

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
)

// ErrUnauthenticated is returned by AuthProvider implementations when the
// request carries no usable credentials.
var ErrUnauthenticated = errors.New("auth: unauthenticated")

// Actor describes the user performing an operation. Capabilities come from
// the host authenticator; press only reads them.
type Actor struct {
	ID           uuid.UUID `json:"id"`
	Username     string    `json:"username"`
	IsStaff      bool      `json:"is_staff"`
	IsSuperadmin bool      `json:"is_superadmin"`
}

// AuthProvider resolves the current actor for an inbound request.
type AuthProvider interface {
	CurrentActor(r *http.Request) (*Actor, error)
}
