package handler

import (
	"context"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/expo-access/internal/model"
	"github.com/iliyamo/expo-access/internal/service"
)

// ScheduleHandler serves the event agenda.
type ScheduleHandler struct {
	Svc *service.ScheduleService
	Log *zap.Logger
}

func NewScheduleHandler(svc *service.ScheduleService, log *zap.Logger) *ScheduleHandler {
	if svc == nil {
		panic("nil service passed to NewScheduleHandler")
	}
	return &ScheduleHandler{Svc: svc, Log: log}
}

// CreateSession handles POST /v1/sessions.  start_time and end_time are
// RFC 3339 timestamps.
func (h *ScheduleHandler) CreateSession(c echo.Context) error {
	var es model.EventSession
	if err := c.Bind(&es); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	es.ID = 0
	es.IsActive = true
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	if err := h.Svc.CreateSession(ctx, &es); err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(http.StatusCreated, es)
}

// ListSessions handles GET /v1/sessions and GET /v1/public/sessions.
func (h *ScheduleHandler) ListSessions(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	out, err := h.Svc.ListSessions(ctx)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, items(out))
}

// CreatePresentation handles POST /v1/presentations.  Exhibitor staff can
// only propose talks for their own company.
func (h *ScheduleHandler) CreatePresentation(c echo.Context) error {
	var p model.ExhibitorPresentation
	if err := c.Bind(&p); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	p.ID = 0
	p.IsConfirmed = false
	if exh, scoped := exhibitorScope(c); scoped {
		if exh == 0 {
			return respondError(c, h.Log, fmt.Errorf("no exhibitor linked to account: %w", service.ErrForbidden))
		}
		p.ExhibitorID = exh
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	if err := h.Svc.CreatePresentation(ctx, &p); err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(http.StatusCreated, p)
}

// ConfirmPresentation handles POST /v1/presentations/:id/confirm.
func (h *ScheduleHandler) ConfirmPresentation(c echo.Context) error {
	id, ok := parseID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	if err := h.Svc.ConfirmPresentation(ctx, id); err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"id": id, "is_confirmed": true})
}

// ListPresentations handles GET /v1/presentations.
func (h *ScheduleHandler) ListPresentations(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	out, err := h.Svc.ListPresentations(ctx)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	if exh, scoped := exhibitorScope(c); scoped {
		own := make([]model.ExhibitorPresentation, 0, len(out))
		for _, p := range out {
			if p.ExhibitorID == exh {
				own = append(own, p)
			}
		}
		out = own
	}
	return c.JSON(http.StatusOK, items(out))
}
