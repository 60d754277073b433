// Package routes provides HTTP route configuration for the presentation layer.
package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/zurichjs/conference-go/internal/application/container"
	"github.com/zurichjs/conference-go/internal/presentation/http/handlers"
	"github.com/zurichjs/conference-go/internal/presentation/http/middleware"
)

// SetupRoutes configures all HTTP routes and middleware with dependency injection.
func SetupRoutes(container *container.Container) *gin.Engine {
	r := gin.New()

	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger(container.Logger))
	r.Use(middleware.CORSMiddleware(container.AllowedOrigins))

	// Initialize handlers
	discountHandlers := handlers.NewDiscountHandlers(container.DiscountService, container.EmailService, container.Logger, container.PerfTracker)
	countdownHandlers := handlers.NewCountdownHandlers(container.AllowedOrigins, container.PopupSessions, container.Clock, container.Logger)
	adminHandlers := handlers.NewAdminHandlers(container.AuthService, container.DiscountService, container.AnalyticsService, container.Logger, container.PerfTracker)
	dbHandlers := handlers.NewDBHandlers(container.DBService, container.Logger, container.PerfTracker)

	api := r.Group("/api/v1")
	{
		// Database status
		api.GET("/db/status", dbHandlers.GetDatabaseStatus)

		// Popup session endpoints
		discountGroup := api.Group("/discount")
		discountGroup.Use(middleware.PopupSessionMiddleware(container.PopupSessions, container.NewPopupSession, container.Logger))
		{
			discountGroup.POST("/session", discountHandlers.PostSession)
			discountGroup.GET("/session", discountHandlers.GetSession)
			discountGroup.POST("/session/show", discountHandlers.PostShow)
			discountGroup.POST("/session/dismiss", discountHandlers.PostDismiss)
			discountGroup.POST("/session/reopen", discountHandlers.PostReopen)
			discountGroup.POST("/session/copy", discountHandlers.PostCopy)
			discountGroup.GET("/status", discountHandlers.GetStatus)
			discountGroup.POST("/email", discountHandlers.PostEmail)
			discountGroup.GET("/countdown/ws", countdownHandlers.ServeCountdown)
		}

		// Admin endpoints
		admin := api.Group("/admin")
		{
			admin.POST("/login", adminHandlers.PostLogin)

			protected := admin.Group("/discounts")
			protected.Use(adminHandlers.AuthMiddleware())
			{
				protected.GET("/summary", adminHandlers.GetSummary)
				protected.POST("/:code/redeem", adminHandlers.PostRedeem)
			}
		}
	}

	return r
}
