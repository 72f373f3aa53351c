package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/expo-access/internal/middleware"
	"github.com/iliyamo/expo-access/internal/model"
)

// RegisterStaff registers endpoints shared by admins and exhibitor staff.
// Handlers narrow exhibitor staff to the data of their own company.
func RegisterStaff(e *echo.Echo, h Handlers, jwtSecret string) {
	g := e.Group(
		"/v1",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(model.RoleAdmin, model.RoleExhibitor),
	)

	// ---- Leads ----
	g.GET("/leads", h.Lead.List)
	g.GET("/leads/:id", h.Lead.Get)
	g.PATCH("/leads/:id/status", h.Lead.UpdateStatus)

	// ---- Exhibitor profile ----
	g.GET("/exhibitors/:id", h.Exhibitor.Get)

	// ---- Agenda ----
	g.GET("/sessions", h.Schedule.ListSessions)
	g.GET("/presentations", h.Schedule.ListPresentations)
	g.POST("/presentations", h.Schedule.CreatePresentation)

	// ---- Notifications ----
	g.GET("/notifications", h.Notification.List)
	g.GET("/notifications/unread-count", h.Notification.UnreadCount)
	g.POST("/notifications/read-all", h.Notification.MarkAllRead)
	g.POST("/notifications/:id/read", h.Notification.MarkRead)
	// Browsers pass the token as ?token= on the handshake.
	g.GET("/notifications/ws", h.Notification.Live)
}
