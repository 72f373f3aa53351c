package handler // handler defines http handlers

import (
	"errors"  // errors provides sentinel values used in getUserID
	"strconv" // strconv converts strings to numeric types
	"strings" // strings provides trimming helpers
	"time"    // time parses date query parameters

	"github.com/labstack/echo/v4" // echo defines request context types

	"github.com/iliyamo/expo-access/internal/model"
)

// requestTimeout bounds the database work of a single request.
const requestTimeout = 5 * time.Second

// dateLayout is the wire format of whole-day dates.
const dateLayout = "2006-01-02"

// getUserID extracts the user_id from echo.Context and converts it to uint64
func getUserID(c echo.Context) (uint64, error) {
	v := c.Get("user_id")
	switch t := v.(type) {
	case uint64:
		return t, nil
	case int:
		return uint64(t), nil
	case int64:
		return uint64(t), nil
	case float64:
		return uint64(t), nil
	case string:
		if n, err := strconv.ParseUint(t, 10, 64); err == nil {
			return n, nil
		}
	}
	return 0, errors.New("invalid user_id in context")
}

func getRole(c echo.Context) string {
	r, _ := c.Get("role").(string)
	return r
}

// exhibitorScope returns the exhibitor an EXHIBITOR caller acts for.  The
// boolean is false for admins, who are not scoped.
func exhibitorScope(c echo.Context) (uint64, bool) {
	if getRole(c) != model.RoleExhibitor {
		return 0, false
	}
	id, _ := c.Get("exhibitor_id").(uint64)
	return id, true
}

// parseID reads a positive numeric path parameter.
func parseID(c echo.Context, name string) (uint64, bool) {
	n, err := strconv.ParseUint(c.Param(name), 10, 64)
	return n, err == nil && n > 0
}

// parseDate parses YYYY-MM-DD.  An empty string yields the zero time.
func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}
	return time.Parse(dateLayout, s)
}

// queryBool parses an optional boolean query parameter.
func queryBool(c echo.Context, name string) (*bool, error) {
	s := strings.TrimSpace(c.QueryParam(name))
	if s == "" {
		return nil, nil
	}
	b, err := strconv.ParseBool(s)
	if err != nil {
		return nil, err
	}
	return &b, nil
}

// queryInt parses an optional integer query parameter, returning def when absent.
func queryInt(c echo.Context, name string, def int) (int, error) {
	s := strings.TrimSpace(c.QueryParam(name))
	if s == "" {
		return def, nil
	}
	return strconv.Atoi(s)
}

// items wraps a list so that an empty result serializes as [] and not null.
func items[T any](list []T) echo.Map {
	if list == nil {
		list = []T{}
	}
	return echo.Map{"items": list}
}
