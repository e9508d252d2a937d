package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"nigest-backend/internal/auth/delivery"
	authUsecase "nigest-backend/internal/auth/usecase"
	newsletterDelivery "nigest-backend/internal/newsletter/delivery"
	newsletterUsecase "nigest-backend/internal/newsletter/usecase"
)

func SetupRoutes(r *gin.Engine, authUc authUsecase.AuthUsecase, newsletterUc newsletterUsecase.NewsletterUsecase) {
	authHandler := delivery.NewAuthHandler(authUc)
	newsletterHandler := newsletterDelivery.NewNewsletterHandler(newsletterUc)

	api := r.Group("/api")
	{
		// Health check (no auth required)
		api.GET("/health", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"status": "ok"})
		})

		// Auth routes
		auth := api.Group("/auth")
		{
			auth.POST("/register", authHandler.Register)
			auth.POST("/login", authHandler.Login)
			auth.POST("/google", authHandler.GoogleSignIn)
			auth.GET("/google/url", authHandler.GoogleAuthURL)
			auth.GET("/google/callback", authHandler.GoogleCallback)
			auth.POST("/refresh", authHandler.RefreshToken)
			auth.POST("/logout", authHandler.Logout)
			auth.GET("/me", delivery.AuthMiddleware(authUc), authHandler.Me)
		}

		// FCM routes (protected)
		fcm := api.Group("/fcm")
		fcm.Use(delivery.AuthMiddleware(authUc))
		{
			fcm.POST("/register", authHandler.RegisterFCMToken)
			fcm.DELETE("/:token", authHandler.UnregisterFCMToken)
		}

		// Newsletter routes (protected)
		newsletters := api.Group("/newsletters")
		newsletters.Use(delivery.AuthMiddleware(authUc))
		{
			newsletters.GET("", newsletterHandler.ListNewsletters)
			newsletters.POST("/scan", newsletterHandler.ScanNewsletters)
			newsletters.POST("/watch", newsletterHandler.WatchMailbox)
			newsletters.POST("/unwatch", newsletterHandler.UnwatchMailbox)
		}

		// Summary routes (protected)
		summaries := api.Group("/summaries")
		summaries.Use(delivery.AuthMiddleware(authUc))
		{
			summaries.GET("", newsletterHandler.ListSummaries)
			summaries.POST("/generate", newsletterHandler.GenerateSummary)
			summaries.GET("/search", newsletterHandler.SearchSummaries)
			summaries.PATCH("/:id/read", newsletterHandler.MarkSummaryRead)
		}

		// Settings routes (protected)
		settings := api.Group("/settings")
		settings.Use(delivery.AuthMiddleware(authUc))
		{
			settings.GET("/scan", authHandler.GetScanSettings)
			settings.PUT("/scan", authHandler.UpdateScanSettings)
		}
	}
}
