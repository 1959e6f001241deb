package routes

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/pinewilt/kgcurate/backend/internal/queue"
	"github.com/pinewilt/kgcurate/backend/internal/util"
)

func AddRelationHandler(c echo.Context) error {
	type addRelationData struct {
		Relation string `json:"relation" validate:"required"`
	}

	type addRelationResponse struct {
		Message  string `json:"message"`
		Relation string `json:"relation"`
	}

	data := new(addRelationData)
	if err := c.Bind(data); err != nil {
		return invalidParams(c)
	}
	data.Relation = util.NormalizeEntityName(data.Relation)
	if err := c.Validate(data); err != nil {
		return invalidParams(c)
	}

	ctx := c.Request().Context()
	app := appOf(c)
	if err := app.Store.AddRelation(ctx, data.Relation); err != nil {
		return internalError(c, "add relation", err)
	}
	app.Events.Publish(ctx, queue.Event{Type: queue.EventRelationAdded, Relation: data.Relation})

	return c.JSON(http.StatusCreated, addRelationResponse{
		Message:  "Relation added",
		Relation: data.Relation,
	})
}
