// internal/app/router.go
package app

import (
	customerHandler "wa-insights-service/internal/handlers/customer"
	healthHandler "wa-insights-service/internal/handlers/health"
	segmentationHandler "wa-insights-service/internal/handlers/segmentation"
	webhookHandler "wa-insights-service/internal/handlers/webhook"
	"wa-insights-service/internal/middleware"

	"github.com/gin-gonic/gin"
)

type Handlers struct {
	WebhookHandler      *webhookHandler.WebhookHandler
	HealthHandler       *healthHandler.HealthHandler
	SegmentationHandler *segmentationHandler.SegmentationHandler
	CustomerHandler     *customerHandler.CustomerHandler
	AuthMiddleware      *middleware.AuthMiddleware
	WebhookMaxBodyBytes int64
}

func SetupRouter(r *gin.Engine, h *Handlers) {
	api := r.Group("/api")

	// ==================== Health Check ====================
	api.GET("/health", h.HealthHandler.Check)

	// ==================== Gateway Webhook ====================
	api.POST("/webhook", middleware.BodyLimit(h.WebhookMaxBodyBytes), h.WebhookHandler.Receive)

	// ==================== Segmentation ====================
	seg := api.Group("/segmentation")
	seg.Use(h.AuthMiddleware.Operator())
	{
		seg.GET("/stats", h.SegmentationHandler.GetStats)
		seg.GET("/customers", h.SegmentationHandler.ListCustomers)
		seg.POST("/customer/:customerId", h.SegmentationHandler.SegmentCustomer)
		seg.POST("/batch", h.SegmentationHandler.StartBatch)
	}

	// ==================== Customers ====================
	customers := api.Group("/customers")
	customers.Use(h.AuthMiddleware.Operator())
	{
		customers.GET("/:customerId/digest", h.CustomerHandler.GetDigest)
	}
}
