package handler

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/expo-access/internal/model"
	"github.com/iliyamo/expo-access/internal/service"
)

// maxImportBytes caps an uploaded exhibitor CSV.
const maxImportBytes = 5 << 20

// ExhibitorHandler serves the exhibitor directory and its CSV exchange.
type ExhibitorHandler struct {
	Svc *service.ExhibitorService
	Log *zap.Logger
}

func NewExhibitorHandler(svc *service.ExhibitorService, log *zap.Logger) *ExhibitorHandler {
	if svc == nil {
		panic("nil service passed to NewExhibitorHandler")
	}
	return &ExhibitorHandler{Svc: svc, Log: log}
}

type activeReq struct {
	IsActive *bool `json:"is_active"`
}

// Create handles POST /v1/exhibitors.
func (h *ExhibitorHandler) Create(c echo.Context) error {
	var e model.Exhibitor
	if err := c.Bind(&e); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	e.ID = 0
	e.IsActive = true
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	if err := h.Svc.Create(ctx, &e); err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(http.StatusCreated, e)
}

// List handles GET /v1/exhibitors?active=true.
func (h *ExhibitorHandler) List(c echo.Context) error {
	active, err := queryBool(c, "active")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "active must be a boolean"})
	}
	return h.list(c, active != nil && *active)
}

// PublicList handles GET /v1/public/exhibitors, the directory shown to
// visitors.  Only active exhibitors are listed.
func (h *ExhibitorHandler) PublicList(c echo.Context) error {
	return h.list(c, true)
}

func (h *ExhibitorHandler) list(c echo.Context, activeOnly bool) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	out, err := h.Svc.List(ctx, activeOnly)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, items(out))
}

// Get handles GET /v1/exhibitors/:id.  Exhibitor staff may only read their
// own company.
func (h *ExhibitorHandler) Get(c echo.Context) error {
	id, ok := parseID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	if exh, scoped := exhibitorScope(c); scoped && exh != id {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "not found"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	e, err := h.Svc.Get(ctx, id)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, e)
}

// SetActive handles PATCH /v1/exhibitors/:id/active.
func (h *ExhibitorHandler) SetActive(c echo.Context) error {
	id, ok := parseID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	var req activeReq
	if err := c.Bind(&req); err != nil || req.IsActive == nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "is_active required"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	if err := h.Svc.SetActive(ctx, id, *req.IsActive); err != nil {
		return respondError(c, h.Log, err)
	}
	e, err := h.Svc.Get(ctx, id)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, e)
}

// ExportCSV handles GET /v1/exhibitors/export.
func (h *ExhibitorHandler) ExportCSV(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	var buf bytes.Buffer
	n, err := h.Svc.ExportCSV(ctx, &buf)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	name := "expositores_" + time.Now().UTC().Format(dateLayout) + ".csv"
	c.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="`+name+`"`)
	c.Response().Header().Set("X-Total-Count", strconv.Itoa(n))
	return c.Blob(http.StatusOK, "text/csv; charset=utf-8", buf.Bytes())
}

// ImportCSV handles POST /v1/exhibitors/import.  The CSV is taken from the
// multipart field "file" when present, otherwise from the raw body.
func (h *ExhibitorHandler) ImportCSV(c echo.Context) error {
	var src io.Reader
	if fh, err := c.FormFile("file"); err == nil {
		f, err := fh.Open()
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "cannot read upload"})
		}
		defer f.Close()
		src = f
	} else {
		src = c.Request().Body
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 4*requestTimeout)
	defer cancel()

	n, err := h.Svc.ImportCSV(ctx, io.LimitReader(src, maxImportBytes))
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(http.StatusCreated, echo.Map{"imported": n})
}
