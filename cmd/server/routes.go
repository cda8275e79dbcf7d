package main

import (
	"github.com/creatorclub/backend/internal/middleware"
	"github.com/creatorclub/backend/pkg/logger"
	"github.com/gin-gonic/gin"
)

// registerRoutes sets up all HTTP routes on the given Gin engine.
func registerRoutes(r *gin.Engine, svc *appServices) {
	// Middleware
	r.Use(logger.GinLogger(), logger.GinRecovery())
	r.RedirectTrailingSlash = false
	r.RedirectFixedPath = false
	r.Use(middleware.CORS())

	waitlistLimiter := middleware.NewRateLimiter(svc.cfg.Waitlist.RPS, svc.cfg.Waitlist.Burst)
	webhookLimiter := middleware.NewRateLimiter(10, 20)
	audit := middleware.AuditLog(svc.logs)

	r.GET("/health", svc.healthHandler.CheckHealth)
	r.GET("/metrics", svc.metricsHandler.Metrics)

	api := r.Group("/api")
	{
		// Auth routes (public)
		auth := api.Group("/auth")
		{
			auth.POST("/register", svc.authHandler.Register)
			auth.POST("/login", svc.authHandler.Login)
			auth.POST("/refresh", svc.authHandler.Refresh)
			auth.POST("/logout", svc.authHandler.Logout)
		}

		api.POST("/waitlist", waitlistLimiter.Middleware(), svc.waitlistHandler.Submit)
		api.POST("/checkout/webhook", webhookLimiter.Middleware(), svc.checkoutHandler.Webhook)

		// Public pages that adapt to the visitor when a token is present
		public := api.Group("", middleware.OptionalAuth())
		{
			public.GET("/communities", svc.communityHandler.List)
			public.GET("/communities/:id", svc.communityHandler.GetByID)
			public.GET("/communities/:id/membership", svc.communityHandler.Membership)
			public.POST("/communities/:id/join", svc.communityHandler.Join)
		}

		// Protected routes
		protected := api.Group("", middleware.AuthRequired(), audit)
		{
			protected.GET("/auth/me", svc.authHandler.GetCurrentUser)
			protected.POST("/auth/change-password", svc.authHandler.ChangePassword)

			protected.GET("/profile", svc.profileHandler.Get)
			protected.PUT("/profile", svc.profileHandler.Update)
			protected.GET("/me/communities", svc.communityHandler.Mine)

			protected.POST("/communities", middleware.RoleRequired("creator", "admin"), svc.communityHandler.Create)
			protected.PUT("/communities/:id/pricing", svc.communityHandler.UpdatePricing)
			protected.GET("/communities/:id/checkout/return", svc.communityHandler.CheckoutReturn)
		}

		// Admin routes
		admin := api.Group("/admin", middleware.AuthRequired(), middleware.AdminRequired(), audit)
		{
			admin.GET("/waitlist", svc.waitlistHandler.List)
			admin.GET("/waitlist/stats", svc.waitlistHandler.Stats)

			admin.GET("/system-logs", svc.systemLogHandler.List)
			admin.GET("/system-logs/modules", svc.systemLogHandler.GetModules)
			admin.POST("/system-logs/cleanup", svc.systemLogHandler.Cleanup)
		}
	}
}
