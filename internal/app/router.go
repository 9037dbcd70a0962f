// internal/app/router.go
package app

import (
	"time"

	installmentHandler "lms-admin-service/internal/handlers/installment"
	liveClassHandler "lms-admin-service/internal/handlers/liveclass"
	pricingHandler "lms-admin-service/internal/handlers/pricing"
	wsHandler "lms-admin-service/internal/handlers/websocket"
	"lms-admin-service/internal/middleware"
	"lms-admin-service/internal/pkg/session"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type Handlers struct {
	PricingHandler     *pricingHandler.PricingHandler
	InstallmentHandler *installmentHandler.InstallmentHandler
	LiveClassHandler   *liveClassHandler.LiveClassHandler
	WSHandler          *wsHandler.WebSocketHandler
	AuthMiddleware     *middleware.AuthMiddleware
	RateLimiter        *session.RateLimiter
}

func SetupRouter(r *gin.Engine, logger *zap.Logger, h *Handlers) {
	api := r.Group("/api/v1")

	// ==================== Health Check ====================
	api.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok", "version": "1.0.0"})
	})

	// ==================== WebSocket ====================
	r.GET("/ws", h.WSHandler.HandleConnection)

	limit := func(endpoint string, max int64) gin.HandlerFunc {
		return middleware.RateLimit(h.RateLimiter, endpoint, max, time.Minute, logger)
	}

	admin := api.Group("/admin")
	admin.Use(h.AuthMiddleware.AdminOnly()...)

	// ==================== Pricing ====================
	admin.POST("/pricing/quote", h.PricingHandler.Quote)

	// ==================== Installments ====================
	admin.POST("/courses/:course_id/installment-editor", h.InstallmentHandler.OpenEditor)
	editor := admin.Group("/installment-editor/:session_id")
	{
		editor.GET("", h.InstallmentHandler.GetEditor)
		editor.PUT("/rows/:validity_id", h.InstallmentHandler.UpdateRow)
		editor.POST("/submit", limit("installment_submit", 10), h.InstallmentHandler.Submit)
		editor.DELETE("", h.InstallmentHandler.Discard)
	}
	admin.GET("/installment-submissions", h.InstallmentHandler.ListSubmissions)

	// ==================== Live Classes ====================
	liveClasses := admin.Group("/live-classes")
	{
		liveClasses.GET("/upcoming", h.LiveClassHandler.ListUpcoming)
		liveClasses.GET("/transitions", h.LiveClassHandler.ListTransitions)
		liveClasses.POST("", h.LiveClassHandler.Schedule)
		liveClasses.PUT("/:id", h.LiveClassHandler.Edit)
		liveClasses.DELETE("/:id", limit("live_class_delete", 20), h.LiveClassHandler.Delete)
		liveClasses.POST("/:id/go-live", limit("live_class_go_live", 20), h.LiveClassHandler.GoLive)
		liveClasses.GET("/:id/status", h.LiveClassHandler.Status)
		liveClasses.POST("/:id/watch", h.LiveClassHandler.Watch)
		liveClasses.DELETE("/:id/watch", h.LiveClassHandler.Unwatch)
	}

	// ==================== WebSocket Stats ====================
	admin.GET("/ws/stats", h.WSHandler.GetStats)

	logger.Info("routes registered", zap.Int("count", len(r.Routes())))
}
