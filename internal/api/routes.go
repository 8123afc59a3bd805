package api

import (
	"github.com/gin-gonic/gin"

	"pulse-tracker-report/internal/middleware"
)

// SetupRoutes configures all API routes.
func SetupRoutes(handlers *Handlers, apiToken string) *gin.Engine {
	router := gin.Default()

	router.Use(corsMiddleware())

	api := router.Group("/api")
	{
		// Agent tool endpoints (no auth; local agent use)
		agent := api.Group("/agent")
		{
			agent.GET("/tools", handlers.ListToolsHandler)
			agent.POST("/tools/execute", handlers.ExecuteToolHandler)
		}

		reports := api.Group("/reports")
		reports.Use(middleware.AuthenticateUser(apiToken))
		{
			reports.POST("/generate", handlers.GenerateReportHandler)
			reports.POST("/generate-sync", handlers.GenerateReportSyncHandler)
			reports.POST("/generate-weekly", handlers.GenerateWeeklyReportHandler)
			reports.POST("/generate-weekly-sync", handlers.GenerateWeeklyReportSyncHandler)
			reports.GET("/status/:taskId", handlers.GetTaskStatusHandler)

			weekly := reports.Group("/weekly")
			{
				weekly.POST("/opt-in", handlers.OptInWeeklyReportsHandler)
				weekly.POST("/opt-out", handlers.OptOutWeeklyReportsHandler)
				weekly.POST("/send-email", handlers.SendWeeklyReportEmailHandler)
				weekly.GET("/opted-in/:accountId", handlers.GetOptedInAccountsHandler)
			}
		}
	}

	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	return router
}

// corsMiddleware adds CORS headers.
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}
