package routes

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/pinewilt/kgcurate/backend/internal/queue"
	"github.com/pinewilt/kgcurate/backend/pkg/common"
)

func DeleteEdgeHandler(c echo.Context) error {
	type deleteEdgeParams struct {
		ID int64 `param:"id" validate:"required,min=1"`
	}

	params := new(deleteEdgeParams)
	if err := c.Bind(params); err != nil {
		return invalidParams(c)
	}
	if err := c.Validate(params); err != nil {
		return invalidParams(c)
	}

	ctx := c.Request().Context()
	app := appOf(c)
	if err := app.Store.DeleteTriple(ctx, params.ID); err != nil {
		return workflowError(c, "delete edge", err)
	}
	app.Events.Publish(ctx, queue.Event{Type: queue.EventTripleDeleted, Triple: &common.Triple{ID: params.ID}})

	return c.JSON(http.StatusOK, map[string]string{"message": "Edge deleted"})
}
