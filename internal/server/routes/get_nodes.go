package routes

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/pinewilt/kgcurate/backend/pkg/growth"
	"github.com/pinewilt/kgcurate/backend/pkg/similarity"
)

type topNParams struct {
	Name string `param:"name" validate:"required"`
	TopN int    `query:"topn" validate:"omitempty,min=1,max=100"`
}

func bindTopN(c echo.Context) (*topNParams, error) {
	params := new(topNParams)
	if err := c.Bind(params); err != nil {
		return nil, err
	}
	if params.TopN == 0 {
		params.TopN = growth.DefaultTopN
	}
	if err := c.Validate(params); err != nil {
		return nil, err
	}
	return params, nil
}

// SimilarNodesHandler is step one of entity growth.
func SimilarNodesHandler(c echo.Context) error {
	params, err := bindTopN(c)
	if err != nil {
		return invalidParams(c)
	}

	ctx := c.Request().Context()
	res, err := appOf(c).Growth.ProposeCandidates(ctx, params.Name, params.TopN)
	if err != nil {
		return workflowError(c, "similar nodes", err)
	}
	return c.JSON(http.StatusOK, res)
}

func RankNodesHandler(c echo.Context) error {
	type rankNodesResponse struct {
		Input string `json:"input"`
		similarity.Result
	}

	params, err := bindTopN(c)
	if err != nil {
		return invalidParams(c)
	}

	ctx := c.Request().Context()
	res, err := appOf(c).Growth.RankGraphEntities(ctx, params.Name, params.TopN)
	if err != nil {
		return workflowError(c, "rank nodes", err)
	}
	return c.JSON(http.StatusOK, rankNodesResponse{Input: params.Name, Result: res})
}
