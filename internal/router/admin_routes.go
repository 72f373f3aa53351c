package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/expo-access/internal/middleware"
	"github.com/iliyamo/expo-access/internal/model"
)

// RegisterAdmin registers ADMIN-only endpoints under /v1.  The door
// scanner is rate limited and the reports go through the response cache.
func RegisterAdmin(e *echo.Echo, h Handlers, jwtSecret string, limiter, cache echo.MiddlewareFunc) {
	g := e.Group(
		"/v1",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(model.RoleAdmin),
	)

	// ---- Accounts ----
	g.POST("/users", h.Auth.CreateUser)

	// ---- Access codes ----
	g.POST("/qr", h.QR.Issue)
	g.POST("/qr/bulk", h.QR.IssueBulk)
	g.POST("/qr/exhibitors", h.QR.IssueForExhibitors)
	g.GET("/qr", h.QR.List)
	g.GET("/qr/png/:code", h.QR.PNG)
	g.DELETE("/qr/:id", h.QR.Delete)
	g.POST("/scan", h.QR.Scan, limiter)
	g.GET("/scan/:code", h.QR.Lookup, limiter)

	// ---- Exhibitors ----
	g.POST("/exhibitors", h.Exhibitor.Create)
	g.GET("/exhibitors", h.Exhibitor.List)
	g.GET("/exhibitors/export", h.Exhibitor.ExportCSV)
	g.POST("/exhibitors/import", h.Exhibitor.ImportCSV)
	g.GET("/exhibitors/unassigned", h.Booth.UnassignedExhibitors)
	g.PATCH("/exhibitors/:id/active", h.Exhibitor.SetActive)

	// ---- Venue ----
	g.POST("/venue/areas", h.Booth.CreateArea)
	g.GET("/venue/areas", h.Booth.ListAreas)
	g.POST("/venue/areas/:id/booths", h.Booth.CreateBooth)
	g.GET("/venue/areas/:id/booths", h.Booth.ListBooths)
	g.POST("/venue/areas/:id/facilities", h.Booth.CreateFacility)
	g.GET("/venue/facilities", h.Booth.ListFacilities)
	g.GET("/venue/layout", h.Booth.Layout)
	g.GET("/venue/booths/available", h.Booth.AvailableBooths)
	g.PATCH("/venue/booths/:id", h.Booth.SetAvailability)

	// ---- Booth assignments ----
	g.POST("/assignments", h.Booth.Assign)
	g.GET("/assignments", h.Booth.ListAssignments)
	g.POST("/assignments/:id/advance", h.Booth.Advance)

	// ---- Agenda ----
	g.POST("/sessions", h.Schedule.CreateSession)
	g.POST("/presentations/:id/confirm", h.Schedule.ConfirmPresentation)

	// ---- Reports ----
	g.GET("/reports/dashboard", h.Report.Dashboard, cache)
	g.GET("/reports/leads.xlsx", h.Report.LeadsXLSX, cache)
}
