// Package service implements the expo business operations on top of the
// repositories.  Errors returned from this package are either the
// sentinels below, a *ValidationError, a repository sentinel (ErrNotFound,
// ErrConflict) wrapped with context, or a raw store error.  Unreachable
// turns a raw connection failure into an *ExternalError.
package service

import (
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"net"

	"github.com/go-sql-driver/mysql"

	"github.com/iliyamo/expo-access/internal/repository"
)

var (
	// ErrAlreadyUsed is returned by Redeem for a code that was redeemed
	// before.  The stored record is returned alongside it.
	ErrAlreadyUsed = errors.New("code already used")
	// ErrInvalidTransition is returned when a status change skips a step,
	// goes backwards, or loses a concurrent race.
	ErrInvalidTransition = errors.New("invalid status transition")

	ErrNotFound  = repository.ErrNotFound
	ErrConflict  = repository.ErrConflict
	ErrForbidden = repository.ErrForbidden
)

// ValidationError reports a bad input field.
type ValidationError struct {
	Field string
	Msg   string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Msg
	}
	return e.Field + ": " + e.Msg
}

func invalid(field, msg string) error { return &ValidationError{Field: field, Msg: msg} }

// ExternalError wraps a failure of a downstream service (mysql, redis).
type ExternalError struct {
	Service string
	Err     error
}

func (e *ExternalError) Error() string { return fmt.Sprintf("%s: %v", e.Service, e.Err) }

func (e *ExternalError) Unwrap() error { return e.Err }

// Unreachable wraps err in an *ExternalError naming svc when err shows
// that the backing service could not be reached.  Other errors, and errors
// that already carry an *ExternalError, are returned unchanged.
func Unreachable(svc string, err error) error {
	if err == nil {
		return nil
	}
	var ee *ExternalError
	if errors.As(err, &ee) {
		return err
	}
	var op *net.OpError
	if errors.Is(err, driver.ErrBadConn) || errors.Is(err, mysql.ErrInvalidConn) ||
		errors.Is(err, sql.ErrConnDone) || errors.As(err, &op) {
		return &ExternalError{Service: svc, Err: err}
	}
	return err
}
