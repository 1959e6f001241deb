package routes

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/pinewilt/kgcurate/backend/pkg/common"
)

func GetGraphHandler(c echo.Context) error {
	ctx := c.Request().Context()
	triples, err := appOf(c).Store.ListTriples(ctx)
	if err != nil {
		return internalError(c, "graph", err)
	}
	return c.JSON(http.StatusOK, common.BuildGraph(triples))
}

func GetRelationsHandler(c echo.Context) error {
	type getRelationsResponse struct {
		Relations []string `json:"relations"`
	}

	ctx := c.Request().Context()
	relations, err := appOf(c).Store.ValidRelations(ctx)
	if err != nil {
		return internalError(c, "relations", err)
	}
	if relations == nil {
		relations = []string{}
	}
	return c.JSON(http.StatusOK, getRelationsResponse{Relations: relations})
}
