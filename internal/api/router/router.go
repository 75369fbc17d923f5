package router

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/hireval/evaluator-be/internal/api/handler"
)

// SetupRouter configures and returns the Gin router with all routes
func SetupRouter(deps *handler.Dependencies) *gin.Engine {
	r := gin.New()

	// Middleware
	r.Use(gin.Recovery())
	r.Use(LoggerMiddleware(deps.Logger))
	r.Use(CORSMiddleware())

	// Health check endpoint
	r.GET("/health", func(c *gin.Context) {
		if err := deps.DBClient.HealthCheck(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":  "unhealthy",
				"service": "evaluator-api-service",
				"error":   "database unreachable",
			})
			return
		}

		if !deps.RabbitClient.IsConnected() {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":  "unhealthy",
				"service": "evaluator-api-service",
				"error":   "queue unreachable",
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"service": "evaluator-api-service",
		})
	})

	uploadHandler := handler.NewUploadHandler(deps)
	evaluationHandler := handler.NewEvaluationHandler(deps)

	// API v1 routes
	v1 := r.Group("/api/v1")
	{
		// POST /api/v1/uploads - Store a candidate document
		v1.POST("/uploads", uploadHandler.UploadFile)

		evaluations := v1.Group("/evaluations")
		{
			// POST /api/v1/evaluations - Create and enqueue an evaluation job
			evaluations.POST("", evaluationHandler.CreateEvaluation)

			// GET /api/v1/evaluations - List evaluation jobs
			evaluations.GET("", evaluationHandler.ListEvaluations)

			// GET /api/v1/evaluations/:job_id - Get job status and result
			evaluations.GET("/:job_id", evaluationHandler.GetEvaluation)
		}
	}

	return r
}
