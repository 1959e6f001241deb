package routes

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/pinewilt/kgcurate/backend/internal/server/middleware"
	"github.com/pinewilt/kgcurate/backend/pkg/growth"
	"github.com/pinewilt/kgcurate/backend/pkg/logger"
	"github.com/pinewilt/kgcurate/backend/pkg/store"
)

func appOf(c echo.Context) *middleware.App {
	return c.(*middleware.AppContext).App
}

func errorJSON(c echo.Context, status int, msg string) error {
	return c.JSON(status, map[string]string{"error": msg})
}

func invalidParams(c echo.Context) error {
	return errorJSON(c, http.StatusBadRequest, "Invalid request params")
}

func internalError(c echo.Context, op string, err error) error {
	logger.Error("[Server] request failed", "op", op, "path", c.Path(), "err", err)
	return errorJSON(c, http.StatusInternalServerError, "Internal server error")
}

// workflowError maps orchestrator and store failures onto HTTP statuses.
// Storage and unknown errors stay opaque.
func workflowError(c echo.Context, op string, err error) error {
	var status int
	switch {
	case errors.Is(err, growth.ErrDuplicateEntity):
		status = http.StatusConflict
	case errors.Is(err, growth.ErrNotFound), errors.Is(err, store.ErrTripleNotFound):
		status = http.StatusNotFound
	case errors.Is(err, growth.ErrInvalidInput), errors.Is(err, growth.ErrInvalidRelation):
		status = http.StatusBadRequest
	default:
		return internalError(c, op, err)
	}

	logger.Info("[Server] request rejected", "op", op, "status", status, "reason", err.Error())
	return errorJSON(c, status, err.Error())
}
