package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/expo-access/internal/repository"
	"github.com/iliyamo/expo-access/internal/service"
)

// respondError maps a service error onto a status code.  Unexpected errors
// are logged and answered with a generic message.
func respondError(c echo.Context, log *zap.Logger, err error) error {
	err = service.Unreachable("mysql", err)
	var ve *service.ValidationError
	var ee *service.ExternalError
	switch {
	case errors.As(err, &ve):
		body := echo.Map{"error": ve.Msg}
		if ve.Field != "" {
			body["field"] = ve.Field
		}
		return c.JSON(http.StatusBadRequest, body)
	case errors.Is(err, repository.ErrNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "not found"})
	case errors.Is(err, repository.ErrForbidden):
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
	case errors.Is(err, service.ErrAlreadyUsed):
		return c.JSON(http.StatusConflict, echo.Map{"error": "code already used"})
	case errors.Is(err, service.ErrInvalidTransition):
		return c.JSON(http.StatusConflict, echo.Map{"error": "invalid status transition"})
	case errors.Is(err, repository.ErrConflict):
		return c.JSON(http.StatusConflict, echo.Map{"error": "conflict"})
	case errors.As(err, &ee):
		log.Error("external service failed", zap.String("service", ee.Service), zap.Error(ee.Err))
		return c.JSON(http.StatusBadGateway, echo.Map{"error": ee.Service + " unavailable"})
	case errors.Is(err, context.DeadlineExceeded):
		log.Warn("request timed out", zap.String("path", c.Path()), zap.Error(err))
		return c.JSON(http.StatusGatewayTimeout, echo.Map{"error": "timeout"})
	}
	log.Error("request failed", zap.String("path", c.Path()), zap.Error(err))
	return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
}
