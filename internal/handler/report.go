package handler

import (
	"bytes"
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/expo-access/internal/model"
	"github.com/iliyamo/expo-access/internal/repository"
	"github.com/iliyamo/expo-access/internal/service"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// ReportHandler serves the admin dashboard and exports.
type ReportHandler struct {
	Svc *service.ReportService
	Log *zap.Logger
}

func NewReportHandler(svc *service.ReportService, log *zap.Logger) *ReportHandler {
	if svc == nil {
		panic("nil service passed to NewReportHandler")
	}
	return &ReportHandler{Svc: svc, Log: log}
}

// Dashboard handles GET /v1/reports/dashboard.
func (h *ReportHandler) Dashboard(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	st, err := h.Svc.Dashboard(ctx)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, st)
}

// LeadsXLSX handles GET /v1/reports/leads.xlsx?exhibitor_id=&status=&lead_type=.
func (h *ReportHandler) LeadsXLSX(c echo.Context) error {
	f := repository.LeadFilter{
		Status:   model.LeadStatus(c.QueryParam("status")),
		LeadType: model.LeadType(c.QueryParam("lead_type")),
	}
	if s := c.QueryParam("exhibitor_id"); s != "" {
		id, err := strconv.ParseUint(s, 10, 64)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid exhibitor_id"})
		}
		f.ExhibitorID = id
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 2*requestTimeout)
	defer cancel()

	var buf bytes.Buffer
	n, err := h.Svc.ExportLeadsXLSX(ctx, f, &buf)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	name := "leads_" + time.Now().UTC().Format(dateLayout) + ".xlsx"
	c.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="`+name+`"`)
	c.Response().Header().Set("X-Total-Count", strconv.Itoa(n))
	return c.Blob(http.StatusOK, xlsxContentType, buf.Bytes())
}
