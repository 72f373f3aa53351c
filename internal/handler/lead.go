package handler

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/expo-access/internal/model"
	"github.com/iliyamo/expo-access/internal/repository"
	"github.com/iliyamo/expo-access/internal/service"
)

// LeadHandler serves the public lead form and the lead inbox of admins
// and exhibitor staff.  Exhibitor staff only ever see their own leads.
type LeadHandler struct {
	Svc *service.LeadService
	Log *zap.Logger
}

func NewLeadHandler(svc *service.LeadService, log *zap.Logger) *LeadHandler {
	if svc == nil {
		panic("nil service passed to NewLeadHandler")
	}
	return &LeadHandler{Svc: svc, Log: log}
}

type submitLeadReq struct {
	ExhibitorID  uint64         `json:"exhibitor_id"`
	VisitorName  string         `json:"visitor_name"`
	VisitorEmail string         `json:"visitor_email"`
	VisitorPhone string         `json:"visitor_phone"`
	LeadType     model.LeadType `json:"lead_type"`
	Notes        *string        `json:"notes"`
}

type leadStatusReq struct {
	Status model.LeadStatus `json:"status"`
	Notes  *string          `json:"notes"`
}

// Submit handles POST /v1/public/leads.  No authentication.
func (h *LeadHandler) Submit(c echo.Context) error {
	var req submitLeadReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	l, err := h.Svc.Submit(ctx, service.SubmitInput{
		ExhibitorID:  req.ExhibitorID,
		VisitorName:  req.VisitorName,
		VisitorEmail: req.VisitorEmail,
		VisitorPhone: req.VisitorPhone,
		LeadType:     req.LeadType,
		Notes:        req.Notes,
	})
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(http.StatusCreated, l)
}

// List handles GET /v1/leads?exhibitor_id=&status=&lead_type=.
func (h *LeadHandler) List(c echo.Context) error {
	f := repository.LeadFilter{
		Status:   model.LeadStatus(c.QueryParam("status")),
		LeadType: model.LeadType(c.QueryParam("lead_type")),
	}
	if exh, scoped := exhibitorScope(c); scoped {
		if exh == 0 {
			return respondError(c, h.Log, fmt.Errorf("no exhibitor linked to account: %w", service.ErrForbidden))
		}
		f.ExhibitorID = exh
	} else if s := c.QueryParam("exhibitor_id"); s != "" {
		id, err := strconv.ParseUint(s, 10, 64)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid exhibitor_id"})
		}
		f.ExhibitorID = id
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	out, err := h.Svc.List(ctx, f)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, items(out))
}

// Get handles GET /v1/leads/:id.
func (h *LeadHandler) Get(c echo.Context) error {
	id, ok := parseID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	l, err := h.owned(ctx, c, id)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, l)
}

// UpdateStatus handles PATCH /v1/leads/:id/status.
func (h *LeadHandler) UpdateStatus(c echo.Context) error {
	id, ok := parseID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	var req leadStatusReq
	if err := c.Bind(&req); err != nil || req.Status == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "status required"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	if _, err := h.owned(ctx, c, id); err != nil {
		return respondError(c, h.Log, err)
	}
	l, err := h.Svc.AdvanceStatus(ctx, id, req.Status, req.Notes)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, l)
}

// owned loads a lead and hides it from exhibitor staff of other companies.
func (h *LeadHandler) owned(ctx context.Context, c echo.Context, id uint64) (*model.Lead, error) {
	l, err := h.Svc.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if exh, scoped := exhibitorScope(c); scoped && l.ExhibitorID != exh {
		return nil, repository.ErrNotFound
	}
	return l, nil
}
