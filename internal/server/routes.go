package server

import (
	"net/http"

	"github.com/pinewilt/kgcurate/backend/internal/server/middleware"
	"github.com/pinewilt/kgcurate/backend/internal/server/routes"

	"github.com/labstack/echo/v4"
)

func RegisterRoutes(e *echo.Echo) {
	// Health check route
	e.GET("/health", func(c echo.Context) error {
		return c.String(http.StatusOK, "OK")
	})
	e.GET("/", func(c echo.Context) error {
		app := c.(*middleware.AppContext).App
		return c.JSON(http.StatusOK, map[string]any{
			"message":          "松材线虫病知识图谱系统API",
			"version":          "1.0.0",
			"similarity_tiers": app.Tiers,
			"model_usage":      app.ModelUsage(),
		})
	})

	apiRoutes := e.Group("/api")

	// Graph routes
	apiRoutes.GET("/graph", routes.GetGraphHandler)
	apiRoutes.GET("/relations", routes.GetRelationsHandler)
	apiRoutes.POST("/relations", routes.AddRelationHandler)

	// Maintenance routes
	apiRoutes.DELETE("/node/delete", routes.DeleteNodeHandler)
	apiRoutes.PUT("/node/update", routes.UpdateNodeHandler)
	apiRoutes.DELETE("/edge/delete/:id", routes.DeleteEdgeHandler)
	apiRoutes.PUT("/edge/update", routes.UpdateEdgeHandler)

	// Entity growth routes
	apiRoutes.GET("/node/similar/:name", routes.SimilarNodesHandler)
	apiRoutes.GET("/node/rank/:name", routes.RankNodesHandler)
	apiRoutes.POST("/node/generate-triples", routes.GenerateTriplesHandler)
	apiRoutes.POST("/node/add", routes.AddNodeHandler)

	// Image routes
	apiRoutes.POST("/images/recognize", routes.RecognizeImageHandler)
}
