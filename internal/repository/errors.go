// Package repository holds the MySQL data access layer.  The sentinel
// errors below let services and handlers tell storage outcomes apart
// without inspecting driver errors.
package repository

import (
	"errors"

	"github.com/go-sql-driver/mysql"
)

// ErrNotFound is returned when a lookup matches no row.
var ErrNotFound = errors.New("not found")

// ErrForbidden is returned when the caller attempts an operation
// on a resource they do not own.
var ErrForbidden = errors.New("forbidden")

// ErrConflict is returned when a write would violate a uniqueness
// constraint or the current state of the row.
var ErrConflict = errors.New("conflict")

// ErrStaleState is returned by compare-and-swap updates when the row no
// longer holds the expected value.
var ErrStaleState = errors.New("stale state")

// mysqlDuplicateEntry is ER_DUP_ENTRY.
const mysqlDuplicateEntry = 1062

// isDuplicate reports whether err is a unique-key violation.
func isDuplicate(err error) bool {
	var me *mysql.MySQLError
	return errors.As(err, &me) && me.Number == mysqlDuplicateEntry
}
