package app

import (
	"answer_eval_backend/pkg/monitoring"

	"github.com/gin-gonic/gin"
)

func (a *App) registerRoutes(router *gin.Engine, c *controllers) {
	router.GET("/metrics", monitoring.PrometheusHandler())
	router.GET("/api/health", c.health.HealthCheck)

	// Trigger endpoints: both return 202 and detach from the run.
	evaluate := router.Group("/evaluate")
	{
		evaluate.POST("/all-answers", c.evaluation.TriggerAll)
		evaluate.POST("/subject/:subjectId", c.evaluation.TriggerSubject)
		evaluate.GET("/logs", c.evaluation.GetUsageLogs)
	}

	router.GET("/answers/all", c.evaluation.GetEvaluatedAnswers)
}
