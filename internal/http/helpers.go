package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"

	"github.com/goliatone/go-press/internal/files"
	"github.com/goliatone/go-press/internal/library"
	"github.com/goliatone/go-press/internal/permissions"
	"github.com/goliatone/go-press/internal/posts"
	"github.com/goliatone/go-press/internal/slugs"
	"github.com/goliatone/go-press/pkg/interfaces"
)

type errorResponse struct {
	Error   string  `json:"error"`
	Message string  `json:"message,omitempty"`
	Issues  []issue `json:"issues,omitempty"`
}

type issue struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

type listResponse[T any] struct {
	Items  []T `json:"items"`
	Total  int `json:"total"`
	Limit  int `json:"limit,omitempty"`
	Offset int `json:"offset,omitempty"`
}

var errBadRequest = errors.New("bad request")

func badRequest(message string) error {
	return &requestError{message: message}
}

type requestError struct {
	message string
}

func (e *requestError) Error() string { return e.message }

func (e *requestError) Unwrap() error { return errBadRequest }

func decodeJSON(r *http.Request, target any) error {
	if r == nil || r.Body == nil {
		return io.EOF
	}
	defer r.Body.Close()
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(target); err != nil {
		return badRequest("invalid json body: " + err.Error())
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	if w == nil {
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, err error) {
	status, payload := mapError(err)
	writeJSON(w, status, payload)
}

func mapError(err error) (int, errorResponse) {
	if err == nil {
		return http.StatusInternalServerError, errorResponse{Error: "unknown_error"}
	}

	var postNotFound *posts.NotFoundError
	var itemNotFound *library.NotFoundError
	switch {
	case errors.As(err, &postNotFound), errors.As(err, &itemNotFound), errors.Is(err, files.ErrNotFound):
		return http.StatusNotFound, errorResponse{Error: "not_found", Message: err.Error()}
	case errors.Is(err, interfaces.ErrUnauthenticated):
		return http.StatusUnauthorized, errorResponse{Error: "unauthenticated", Message: err.Error()}
	case errors.Is(err, permissions.ErrPermissionDenied):
		return http.StatusForbidden, errorResponse{Error: "forbidden", Message: err.Error()}
	case errors.Is(err, errBadRequest), errors.Is(err, files.ErrBodyRequired):
		return http.StatusBadRequest, errorResponse{Error: "bad_request", Message: err.Error()}
	}

	// A rejected post slug is a validation error carrying the slug field, so
	// it must be matched before the conflict case.
	if fields, ok := goerrors.GetValidationErrors(err); ok || goerrors.IsValidation(err) {
		issues := make([]issue, 0, len(fields))
		for _, field := range fields {
			issues = append(issues, issue{Field: field.Field, Message: field.Message})
		}
		return http.StatusUnprocessableEntity, errorResponse{
			Error:   "validation_failed",
			Message: err.Error(),
			Issues:  issues,
		}
	}

	if errors.Is(err, slugs.ErrSlugTaken) || errors.Is(err, slugs.ErrSlugRetriesExhausted) ||
		errors.Is(err, slugs.ErrSlugAttemptsExhausted) {
		return http.StatusConflict, errorResponse{Error: "conflict", Message: err.Error()}
	}

	return http.StatusInternalServerError, errorResponse{Error: "internal_error", Message: "internal server error"}
}

func parseUUID(value string) (uuid.UUID, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return uuid.Nil, badRequest("id required")
	}
	parsed, err := uuid.Parse(trimmed)
	if err != nil {
		return uuid.Nil, badRequest("invalid id: " + trimmed)
	}
	return parsed, nil
}

// parsePage reads limit and offset query parameters. Bounds are enforced by
// the services.
func parsePage(r *http.Request) (int, int, error) {
	query := r.URL.Query()
	limit, err := parseIntQuery(query.Get("limit"))
	if err != nil {
		return 0, 0, badRequest("invalid limit")
	}
	offset, err := parseIntQuery(query.Get("offset"))
	if err != nil {
		return 0, 0, badRequest("invalid offset")
	}
	return limit, offset, nil
}

func parseIntQuery(value string) (int, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return 0, nil
	}
	return strconv.Atoi(trimmed)
}
