package routes

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/pinewilt/kgcurate/backend/internal/queue"
	"github.com/pinewilt/kgcurate/backend/internal/util"
	"github.com/pinewilt/kgcurate/backend/pkg/logger"
)

func UpdateNodeHandler(c echo.Context) error {
	type updateNodeData struct {
		OldName string `json:"old_name" validate:"required"`
		NewName string `json:"new_name" validate:"required"`
	}

	type updateNodeResponse struct {
		Message      string `json:"message"`
		UpdatedCount int64  `json:"updated_count"`
	}

	data := new(updateNodeData)
	if err := c.Bind(data); err != nil {
		return invalidParams(c)
	}
	data.OldName = util.NormalizeEntityName(data.OldName)
	data.NewName = util.NormalizeEntityName(data.NewName)
	if err := c.Validate(data); err != nil {
		return invalidParams(c)
	}

	ctx := c.Request().Context()
	app := appOf(c)
	n, err := app.Store.RenameEntity(ctx, data.OldName, data.NewName)
	if err != nil {
		return internalError(c, "rename node", err)
	}
	logger.Info("[Server] node renamed", "from", data.OldName, "to", data.NewName, "triples", n)
	if n > 0 {
		app.Events.Publish(ctx, queue.Event{
			Type:    queue.EventEntityRenamed,
			Entity:  data.OldName,
			NewName: data.NewName,
			Count:   n,
		})
	}

	return c.JSON(http.StatusOK, updateNodeResponse{
		Message:      "Node updated",
		UpdatedCount: n,
	})
}
