package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4"                             // import the Echo web framework to handle routing
	"github.com/prometheus/client_golang/prometheus/promhttp" // scrape endpoint

	"github.com/iliyamo/expo-access/internal/handler"    // import the handlers that implement business logic
	"github.com/iliyamo/expo-access/internal/middleware" // import middleware for JWT authentication and role enforcement
	"github.com/iliyamo/expo-access/internal/model"      // role names
)

// Handlers bundles every HTTP handler the API exposes.
type Handlers struct {
	Auth         *handler.AuthHandler
	QR           *handler.QRHandler
	Booth        *handler.BoothHandler
	Lead         *handler.LeadHandler
	Exhibitor    *handler.ExhibitorHandler
	Schedule     *handler.ScheduleHandler
	Report       *handler.ReportHandler
	Notification *handler.NotificationHandler
	Ready        *handler.Readiness
}

// RegisterRoutes registers the probes and the Prometheus scrape endpoint.
// None of them require authentication.
func RegisterRoutes(e *echo.Echo, h Handlers) {
	e.GET("/healthz", handler.Health)
	if h.Ready != nil {
		e.GET("/readyz", h.Ready.Ready)
	}
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
}

// RegisterAuth registers all authentication-related routes.  Login,
// refresh and logout live under /v1/auth and need no access token.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, jwtSecret string) {
	g := e.Group("/v1/auth")
	g.POST("/login", a.Login)
	// Refresh rotates the refresh token.
	g.POST("/refresh", a.Refresh)
	// Logout accepts a refresh_token body or a bearer access token.
	g.POST("/logout", a.Logout)

	auth := e.Group("/v1", middleware.JWTAuth(jwtSecret), middleware.RequireRole(model.RoleAdmin, model.RoleExhibitor))
	auth.GET("/me", a.Me)
}

// RegisterPublic registers the unauthenticated endpoints used by visitors:
// the exhibitor directory, the agenda and the lead form.  The lead form is
// rate limited.
func RegisterPublic(e *echo.Echo, h Handlers, limiter echo.MiddlewareFunc) {
	g := e.Group("/v1/public")
	g.GET("/exhibitors", h.Exhibitor.PublicList)
	g.GET("/sessions", h.Schedule.ListSessions)
	g.POST("/leads", h.Lead.Submit, limiter)
}
