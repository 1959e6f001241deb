package routes

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/pinewilt/kgcurate/backend/internal/queue"
	"github.com/pinewilt/kgcurate/backend/pkg/common"
)

// GenerateTriplesHandler is step two of entity growth.
func GenerateTriplesHandler(c echo.Context) error {
	type generateTriplesData struct {
		EntityName    string `json:"entity_name" validate:"required"`
		SimilarEntity string `json:"similar_entity" validate:"required"`
	}

	data := new(generateTriplesData)
	if err := c.Bind(data); err != nil {
		return invalidParams(c)
	}
	if err := c.Validate(data); err != nil {
		return invalidParams(c)
	}

	ctx := c.Request().Context()
	res, err := appOf(c).Growth.ProposeTriples(ctx, data.EntityName, data.SimilarEntity)
	if err != nil {
		return workflowError(c, "generate triples", err)
	}
	return c.JSON(http.StatusOK, res)
}

// AddNodeHandler is step three of entity growth: it commits the triple the
// curator picked.
func AddNodeHandler(c echo.Context) error {
	type selectedTriple struct {
		Head     string `json:"head_entity" validate:"required"`
		Relation string `json:"relation" validate:"required"`
		Tail     string `json:"tail_entity" validate:"required"`
	}

	type addNodeData struct {
		EntityName     string          `json:"entity_name" validate:"required"`
		SimilarEntity  string          `json:"similar_entity"`
		SelectedTriple *selectedTriple `json:"selected_triple" validate:"required"`
	}

	type inferencePath struct {
		Input         string `json:"input"`
		SimilarEntity string `json:"similar_entity"`
	}

	type addNodeResponse struct {
		Message       string        `json:"message"`
		Triple        common.Triple `json:"triple"`
		InferencePath inferencePath `json:"inference_path"`
	}

	data := new(addNodeData)
	if err := c.Bind(data); err != nil {
		return invalidParams(c)
	}
	if err := c.Validate(data); err != nil {
		return invalidParams(c)
	}

	ctx := c.Request().Context()
	app := appOf(c)
	t, err := app.Growth.Commit(ctx, data.EntityName, common.Triple{
		Head:     data.SelectedTriple.Head,
		Relation: data.SelectedTriple.Relation,
		Tail:     data.SelectedTriple.Tail,
	})
	if err != nil {
		return workflowError(c, "add node", err)
	}
	app.Events.Publish(ctx, queue.Event{Type: queue.EventTripleCreated, Triple: &t, Entity: data.EntityName})

	return c.JSON(http.StatusCreated, addNodeResponse{
		Message: "Entity added",
		Triple:  t,
		InferencePath: inferencePath{
			Input:         data.EntityName,
			SimilarEntity: data.SimilarEntity,
		},
	})
}
