package routes

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/pinewilt/kgcurate/backend/internal/queue"
	"github.com/pinewilt/kgcurate/backend/internal/util"
	"github.com/pinewilt/kgcurate/backend/pkg/logger"
)

func DeleteNodeHandler(c echo.Context) error {
	type deleteNodeData struct {
		Name string `json:"name" validate:"required"`
	}

	type deleteNodeResponse struct {
		Message      string `json:"message"`
		DeletedCount int64  `json:"deleted_count"`
	}

	data := new(deleteNodeData)
	if err := c.Bind(data); err != nil {
		return invalidParams(c)
	}
	data.Name = util.NormalizeEntityName(data.Name)
	if err := c.Validate(data); err != nil {
		return invalidParams(c)
	}

	ctx := c.Request().Context()
	app := appOf(c)
	n, err := app.Store.DeleteEntity(ctx, data.Name)
	if err != nil {
		return internalError(c, "delete node", err)
	}
	logger.Info("[Server] node deleted", "entity", data.Name, "triples", n)
	if n > 0 {
		app.Events.Publish(ctx, queue.Event{Type: queue.EventEntityDeleted, Entity: data.Name, Count: n})
	}

	return c.JSON(http.StatusOK, deleteNodeResponse{
		Message:      "Node deleted",
		DeletedCount: n,
	})
}
