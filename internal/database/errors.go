package database

import (
	"errors"
	"fmt"
	"strings"

	goerrors "github.com/goliatone/go-errors"
	repository "github.com/goliatone/go-repository-bun"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/mattn/go-sqlite3"
)

// ErrUniqueViolation matches any unique index violation reported by a
// repository, whichever driver raised it.
var ErrUniqueViolation = errors.New("database: unique constraint violated")

const pgUniqueViolation = "23505"

// UniqueViolationError names the index a write collided with. Bun
// repositories build it with Classify; memory repositories return it
// directly.
type UniqueViolationError struct {
	Table  string
	Column string
	// Err is the driver or repository error, when there is one.
	Err error
}

func (e *UniqueViolationError) Error() string {
	return fmt.Sprintf("%s: %s.%s", ErrUniqueViolation.Error(), e.Table, e.Column)
}

func (e *UniqueViolationError) Is(target error) bool {
	return target == ErrUniqueViolation
}

func (e *UniqueViolationError) Unwrap() error {
	return e.Err
}

// IsUniqueViolation reports whether err is a unique index violation.
// go-repository-bun replaces driver errors with a database_duplicate
// category error, so that is checked before the raw driver errors.
func IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrUniqueViolation) || repository.IsDuplicatedKey(err) {
		return true
	}

	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgUniqueViolation
	}

	// Some wrappers flatten the driver error into a message.
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint failed") ||
		strings.Contains(msg, "duplicate key value violates unique constraint")
}

// IsUniqueViolationOn reports whether err is a unique violation that involves
// column.
func IsUniqueViolationOn(err error, column string) bool {
	if !IsUniqueViolation(err) {
		return false
	}
	column = strings.TrimSpace(column)
	if column == "" {
		return true
	}

	var uv *UniqueViolationError
	if errors.As(err, &uv) {
		return uv.Column == column
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return strings.Contains(pgErr.ConstraintName, column) || strings.Contains(pgErr.Detail, "("+column)
	}
	if name := constraintName(err); name != "" {
		return strings.Contains(name, column)
	}

	msg := err.Error()
	return strings.Contains(msg, "."+column) || strings.Contains(msg, "_"+column+"_")
}

// Classify turns a unique violation on table into a *UniqueViolationError.
// column is the table's secondary unique index, assumed when the error does
// not point at the primary key. Other errors are returned unchanged.
func Classify(err error, table, column string) error {
	if !IsUniqueViolation(err) {
		return err
	}
	var uv *UniqueViolationError
	if errors.As(err, &uv) {
		return err
	}
	if isPrimaryKeyViolation(err, table) {
		column = "id"
	}
	return &UniqueViolationError{Table: table, Column: column, Err: err}
}

func isPrimaryKeyViolation(err error, table string) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey ||
			strings.Contains(sqliteErr.Error(), table+".id")
	}
	name := constraintName(err)
	return strings.HasSuffix(name, "_pkey")
}

// constraintName reads the violated constraint from a pgx error or from the
// metadata go-repository-bun attaches to postgres errors.
func constraintName(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.ConstraintName
	}
	var base *goerrors.Error
	var retryable *goerrors.RetryableError
	switch {
	case errors.As(err, &retryable) && retryable.BaseError != nil:
		base = retryable.BaseError
	case errors.As(err, &base):
	default:
		return ""
	}
	name, _ := base.Metadata["constraint"].(string)
	return name
}
