package routes

import (
	"fmt"
	"net/http"
	"slices"

	"github.com/labstack/echo/v4"

	"github.com/pinewilt/kgcurate/backend/internal/queue"
	"github.com/pinewilt/kgcurate/backend/internal/util"
	"github.com/pinewilt/kgcurate/backend/pkg/common"
	"github.com/pinewilt/kgcurate/backend/pkg/growth"
)

func UpdateEdgeHandler(c echo.Context) error {
	type updateEdgeData struct {
		ID       int64  `json:"id" validate:"required,min=1"`
		Head     string `json:"head_entity" validate:"required"`
		Relation string `json:"relation" validate:"required"`
		Tail     string `json:"tail_entity" validate:"required"`
	}

	type updateEdgeResponse struct {
		Message string        `json:"message"`
		Triple  common.Triple `json:"triple"`
	}

	data := new(updateEdgeData)
	if err := c.Bind(data); err != nil {
		return invalidParams(c)
	}
	t := common.Triple{
		ID:       data.ID,
		Head:     util.NormalizeEntityName(data.Head),
		Relation: util.NormalizeEntityName(data.Relation),
		Tail:     util.NormalizeEntityName(data.Tail),
	}
	data.Head, data.Relation, data.Tail = t.Head, t.Relation, t.Tail
	if err := c.Validate(data); err != nil {
		return invalidParams(c)
	}

	ctx := c.Request().Context()
	app := appOf(c)

	valid, err := app.Store.ValidRelations(ctx)
	if err != nil {
		return internalError(c, "update edge", err)
	}
	if !slices.Contains(valid, t.Relation) {
		return workflowError(c, "update edge", fmt.Errorf("%w: %s", growth.ErrInvalidRelation, t.Relation))
	}

	if err := app.Store.UpdateTriple(ctx, t); err != nil {
		return workflowError(c, "update edge", err)
	}
	app.Events.Publish(ctx, queue.Event{Type: queue.EventTripleUpdated, Triple: &t})

	return c.JSON(http.StatusOK, updateEdgeResponse{Message: "Edge updated", Triple: t})
}
