package handler

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/expo-access/internal/model"
	"github.com/iliyamo/expo-access/internal/service"
)

// BoothHandler serves the venue layout and booth assignments.
type BoothHandler struct {
	Svc *service.BoothService
	Log *zap.Logger
}

func NewBoothHandler(svc *service.BoothService, log *zap.Logger) *BoothHandler {
	if svc == nil {
		panic("nil service passed to NewBoothHandler")
	}
	return &BoothHandler{Svc: svc, Log: log}
}

type assignReq struct {
	BoothPositionID     uint64  `json:"booth_position_id"`
	ExhibitorID         uint64  `json:"exhibitor_id"`
	StartDate           string  `json:"start_date"`
	EndDate             string  `json:"end_date"`
	SetupTime           *string `json:"setup_time"`
	BreakdownTime       *string `json:"breakdown_time"`
	SpecialRequirements *string `json:"special_requirements"`
}

type advanceReq struct {
	Status model.AssignmentStatus `json:"assignment_status"`
}

type availabilityReq struct {
	IsAvailable *bool `json:"is_available"`
}

// CreateArea handles POST /v1/venue/areas.
func (h *BoothHandler) CreateArea(c echo.Context) error {
	var a model.VenueArea
	if err := c.Bind(&a); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	a.ID = 0
	a.IsActive = true
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	if err := h.Svc.CreateArea(ctx, &a); err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(http.StatusCreated, a)
}

// ListAreas handles GET /v1/venue/areas.
func (h *BoothHandler) ListAreas(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	out, err := h.Svc.ListAreas(ctx)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, items(out))
}

// CreateBooth handles POST /v1/venue/areas/:id/booths.
func (h *BoothHandler) CreateBooth(c echo.Context) error {
	areaID, ok := parseID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid area id"})
	}
	var b model.BoothPosition
	if err := c.Bind(&b); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	b.ID = 0
	b.VenueAreaID = areaID
	b.IsAvailable = true
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	if err := h.Svc.CreateBooth(ctx, &b); err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(http.StatusCreated, b)
}

// ListBooths handles GET /v1/venue/areas/:id/booths.
func (h *BoothHandler) ListBooths(c echo.Context) error {
	areaID, ok := parseID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid area id"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	out, err := h.Svc.ListBooths(ctx, areaID)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, items(out))
}

// CreateFacility handles POST /v1/venue/areas/:id/facilities.
func (h *BoothHandler) CreateFacility(c echo.Context) error {
	areaID, ok := parseID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid area id"})
	}
	var f model.VenueFacility
	if err := c.Bind(&f); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	f.ID = 0
	f.VenueAreaID = areaID
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	if err := h.Svc.CreateFacility(ctx, &f); err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(http.StatusCreated, f)
}

// ListFacilities handles GET /v1/venue/facilities?area_id=.
func (h *BoothHandler) ListFacilities(c echo.Context) error {
	areaID, err := queryInt(c, "area_id", 0)
	if err != nil || areaID < 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid area_id"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	out, err := h.Svc.ListFacilities(ctx, uint64(areaID))
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, items(out))
}

// Layout handles GET /v1/venue/layout?area_id=, the booth map with the
// status of each booth.
func (h *BoothHandler) Layout(c echo.Context) error {
	areaID, err := queryInt(c, "area_id", 0)
	if err != nil || areaID < 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid area_id"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	out, err := h.Svc.BoothStatus(ctx, uint64(areaID))
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, items(out))
}

// SetAvailability handles PATCH /v1/venue/booths/:id.
func (h *BoothHandler) SetAvailability(c echo.Context) error {
	id, ok := parseID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	var req availabilityReq
	if err := c.Bind(&req); err != nil || req.IsAvailable == nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "is_available required"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	if err := h.Svc.SetBoothAvailability(ctx, id, *req.IsAvailable); err != nil {
		return respondError(c, h.Log, err)
	}
	b, err := h.Svc.GetBooth(ctx, id)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, b)
}

// AvailableBooths handles GET /v1/venue/booths/available?from=&to=.
func (h *BoothHandler) AvailableBooths(c echo.Context) error {
	from, err := parseDate(c.QueryParam("from"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "from must be YYYY-MM-DD"})
	}
	to, err := parseDate(c.QueryParam("to"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "to must be YYYY-MM-DD"})
	}
	if !from.IsZero() && to.IsZero() {
		to = from
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	out, err := h.Svc.AvailableBooths(ctx, from, to)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, items(out))
}

// UnassignedExhibitors handles GET /v1/exhibitors/unassigned.
func (h *BoothHandler) UnassignedExhibitors(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	out, err := h.Svc.UnassignedExhibitors(ctx)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, items(out))
}

// Assign handles POST /v1/assignments.
func (h *BoothHandler) Assign(c echo.Context) error {
	var req assignReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	start, err := parseDate(req.StartDate)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "start_date must be YYYY-MM-DD", "field": "start_date"})
	}
	end, err := parseDate(req.EndDate)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "end_date must be YYYY-MM-DD", "field": "end_date"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	a, err := h.Svc.Assign(ctx, service.AssignInput{
		BoothPositionID:     req.BoothPositionID,
		ExhibitorID:         req.ExhibitorID,
		StartDate:           start,
		EndDate:             end,
		SetupTime:           req.SetupTime,
		BreakdownTime:       req.BreakdownTime,
		SpecialRequirements: req.SpecialRequirements,
	})
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(http.StatusCreated, a)
}

// ListAssignments handles GET /v1/assignments.
func (h *BoothHandler) ListAssignments(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	out, err := h.Svc.ListAssignments(ctx)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, items(out))
}

// Advance handles POST /v1/assignments/:id/advance.  The body names the
// status the caller expects to move to; anything other than the immediate
// successor is refused with 409.
func (h *BoothHandler) Advance(c echo.Context) error {
	id, ok := parseID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	var req advanceReq
	if err := c.Bind(&req); err != nil || req.Status == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "assignment_status required"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	a, err := h.Svc.Advance(ctx, id, req.Status)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, a)
}
