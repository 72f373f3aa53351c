package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/expo-access/internal/model"
	"github.com/iliyamo/expo-access/internal/repository"
	"github.com/iliyamo/expo-access/internal/service"
)

// QRHandler serves code issuance and the door scanner.
type QRHandler struct {
	Svc *service.QRService
	Log *zap.Logger
}

func NewQRHandler(svc *service.QRService, log *zap.Logger) *QRHandler {
	if svc == nil {
		panic("nil service passed to NewQRHandler")
	}
	return &QRHandler{Svc: svc, Log: log}
}

type issueReq struct {
	UserType    model.SubjectType `json:"user_type"`
	Email       string            `json:"user_email"`
	Name        string            `json:"user_name"`
	CompanyName *string           `json:"company_name"`
}

type bulkReq struct {
	UserType model.SubjectType `json:"user_type"`
	Entries  []struct {
		Email       string  `json:"user_email"`
		Name        string  `json:"user_name"`
		CompanyName *string `json:"company_name"`
	} `json:"entries"`
}

type scanReq struct {
	Code string `json:"code"`
}

// Issue handles POST /v1/qr.
func (h *QRHandler) Issue(c echo.Context) error {
	var req issueReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	q, err := h.Svc.Issue(ctx, service.IssueInput{
		SubjectType: req.UserType,
		Email:       req.Email,
		Name:        req.Name,
		Company:     req.CompanyName,
	})
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(http.StatusCreated, q)
}

// IssueBulk handles POST /v1/qr/bulk.  Either every entry gets a code or
// none does.
func (h *QRHandler) IssueBulk(c echo.Context) error {
	var req bulkReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	entries := make([]service.BulkEntry, 0, len(req.Entries))
	for _, e := range req.Entries {
		entries = append(entries, service.BulkEntry{Email: e.Email, Name: e.Name, Company: e.CompanyName})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	out, err := h.Svc.IssueBulk(ctx, req.UserType, entries)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(http.StatusCreated, items(out))
}

// IssueForExhibitors handles POST /v1/qr/exhibitors.
func (h *QRHandler) IssueForExhibitors(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	out, err := h.Svc.IssueForExhibitors(ctx)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(http.StatusCreated, items(out))
}

// List handles GET /v1/qr?user_type=&used=&limit=.
func (h *QRHandler) List(c echo.Context) error {
	used, err := queryBool(c, "used")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "used must be a boolean"})
	}
	limit, err := queryInt(c, "limit", 0)
	if err != nil || limit < 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "limit must be a positive integer"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	out, err := h.Svc.List(ctx, repository.QRFilter{
		SubjectType: model.SubjectType(c.QueryParam("user_type")),
		Used:        used,
		Limit:       limit,
	})
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, items(out))
}

// Delete handles DELETE /v1/qr/:id.
func (h *QRHandler) Delete(c echo.Context) error {
	id, ok := parseID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	if err := h.Svc.Delete(ctx, id); err != nil {
		return respondError(c, h.Log, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// PNG handles GET /v1/qr/png/:code?size=.
func (h *QRHandler) PNG(c echo.Context) error {
	size, err := queryInt(c, "size", 0)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "size must be an integer"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	png, err := h.Svc.RenderPNG(ctx, c.Param("code"), size)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	c.Response().Header().Set("Content-Length", strconv.Itoa(len(png)))
	return c.Blob(http.StatusOK, "image/png", png)
}

// Scan handles POST /v1/scan.  A second scan of the same code answers 409
// with the record of the first redemption so the door staff can see when
// it was used.
func (h *QRHandler) Scan(c echo.Context) error {
	var req scanReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	q, err := h.Svc.Redeem(ctx, req.Code)
	if errors.Is(err, service.ErrAlreadyUsed) {
		return c.JSON(http.StatusConflict, echo.Map{"error": "code already used", "qr_code": q})
	}
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, q)
}

// Lookup handles GET /v1/scan/:code and does not redeem.
func (h *QRHandler) Lookup(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	q, err := h.Svc.Lookup(ctx, c.Param("code"))
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, q)
}
