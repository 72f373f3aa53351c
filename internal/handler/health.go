package handler // declare the package name; contains HTTP handlers

import (
	"context"      // context bounds the readiness probes
	"database/sql" // sql.DB is pinged for readiness
	"net/http"     // net/http provides status codes and response helpers
	"time"

	"github.com/labstack/echo/v4" // echo is the web framework used for this project
	"github.com/redis/go-redis/v9"
)

// Health is a liveness endpoint used by load balancers and monitoring
// systems to verify that the process is running.  It returns a plain text
// "ok" with HTTP 200.
func Health(c echo.Context) error {
	return c.String(http.StatusOK, "ok")
}

// Readiness reports whether the dependencies needed to serve requests
// answer.  Any failing check turns the response into a 503.
type Readiness struct {
	DB    *sql.DB
	Redis *redis.Client
}

// Ready handles GET /readyz.
func (r *Readiness) Ready(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
	defer cancel()

	checks := echo.Map{}
	ok := true
	if r.DB != nil {
		if err := r.DB.PingContext(ctx); err != nil {
			checks["mysql"] = err.Error()
			ok = false
		} else {
			checks["mysql"] = "ok"
		}
	}
	if r.Redis != nil {
		if err := r.Redis.Ping(ctx).Err(); err != nil {
			checks["redis"] = err.Error()
			ok = false
		} else {
			checks["redis"] = "ok"
		}
	}
	if !ok {
		return c.JSON(http.StatusServiceUnavailable, echo.Map{"status": "unavailable", "checks": checks})
	}
	return c.JSON(http.StatusOK, echo.Map{"status": "ok", "checks": checks})
}
