package router

import (
	"github.com/cuongbtq/derivative-dispatcher/internal/api/handler"
	"github.com/gin-gonic/gin"
)

// SetupRouter configures and returns the Gin router with all routes
func SetupRouter(deps *handler.Dependencies) *gin.Engine {
	r := gin.New()

	// Middleware
	r.Use(gin.Recovery())
	r.Use(CorrelationMiddleware())
	r.Use(LoggerMiddleware(deps.Logger))
	r.Use(CORSMiddleware())

	healthHandler := handler.NewHealthHandler(deps)
	r.GET("/health", healthHandler.Health)

	dispatchHandler := handler.NewDispatchHandler(deps)

	// API v1 routes
	v1 := r.Group("/api/v1")
	{
		// POST /api/v1/events - Run the actions triggered by a lifecycle event
		v1.POST("/events", dispatchHandler.HandleEvent)

		actions := v1.Group("/actions")
		{
			// GET /api/v1/actions - List configured actions
			actions.GET("", dispatchHandler.ListActions)

			// POST /api/v1/actions/:name/execute - Run one action on one entity
			actions.POST("/:name/execute", dispatchHandler.ExecuteAction)
		}
	}

	return r
}
