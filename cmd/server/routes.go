package main

import (
	"github.com/gin-gonic/gin"
	"github.com/jayeworks/circledesk/internal/middleware"
	"github.com/jayeworks/circledesk/pkg/logger"
)

// registerRoutes sets up all HTTP routes on the given Gin engine.
func registerRoutes(r *gin.Engine, svc *appServices) {
	r.Use(logger.GinLogger(), logger.GinRecovery())
	r.RedirectTrailingSlash = false
	r.RedirectFixedPath = false
	r.Use(middleware.CORS())
	r.Use(middleware.Profile())

	// Rate limiter for webhook ingestion routes
	webhookLimiter := middleware.NewRateLimiter(10, 20)

	// Health check
	r.GET("/health", svc.healthHandler.Check)

	// Root-level webhook route (without /api prefix for workflow compatibility)
	rootWebhook := r.Group("", webhookLimiter.Middleware())
	{
		rootWebhook.POST("/webhook/circle", svc.webhookHandler.Receive)
	}

	// API routes
	api := r.Group("/api")
	{
		// Issues
		api.GET("/issues", svc.issueHandler.List)
		api.GET("/issues/stats", svc.issueHandler.Stats)
		api.POST("/issues", svc.issueHandler.Create)
		api.DELETE("/issues/test-data", svc.issueHandler.PurgeTestData)
		api.GET("/issues/:id", svc.issueHandler.GetByID)
		api.PUT("/issues/:id", svc.issueHandler.Update)
		api.PUT("/issues/:id/status", svc.issueHandler.UpdateStatus)
		api.PUT("/issues/:id/ready", svc.issueHandler.SetReady)
		api.GET("/issues/:id/status-logs", svc.issueHandler.StatusLogs)

		// Comments
		api.GET("/issues/:id/comments", svc.commentHandler.List)
		api.POST("/issues/:id/comments", svc.commentHandler.Create)

		// Attachments (only when object storage is configured)
		if svc.attachmentHandler != nil {
			api.POST("/issues/:id/attachments", svc.attachmentHandler.Upload)
			api.GET("/issues/:id/attachments", svc.attachmentHandler.List)
			api.DELETE("/issues/:id/attachments", svc.attachmentHandler.Delete)
		}

		// Circle messages
		api.GET("/circle/messages", svc.circleHandler.ListMessages)
		api.GET("/circle/messages/:id", svc.circleHandler.GetMessage)
		api.POST("/circle/messages/:id/replies", svc.circleHandler.AddReply)
		api.POST("/circle/messages/:id/promote", svc.circleHandler.Promote)

		// Sync trigger
		api.POST("/sync", svc.webhookHandler.TriggerSync)

		// Webhook ingestion (rate limited)
		apiWebhook := api.Group("", webhookLimiter.Middleware())
		{
			apiWebhook.POST("/webhook/circle", svc.webhookHandler.Receive)
		}
	}

	r.NoRoute(func(c *gin.Context) {
		c.JSON(404, gin.H{"error": "Not found"})
	})
}
