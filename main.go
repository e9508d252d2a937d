package main

import (
	"context"
	"log"
	"strings"

	api "nigest-backend/cmd/api"
	authdomain "nigest-backend/internal/auth/domain"
	authRepo "nigest-backend/internal/auth/repository"
	authUsecase "nigest-backend/internal/auth/usecase"
	newsletterdomain "nigest-backend/internal/newsletter/domain"
	newsletterRepo "nigest-backend/internal/newsletter/repository"
	"nigest-backend/internal/newsletter/scheduler"
	newsletterUsecase "nigest-backend/internal/newsletter/usecase"
	"nigest-backend/internal/notification"
	"nigest-backend/pkg/config"
	"nigest-backend/pkg/database"
	"nigest-backend/pkg/fcm"
	"nigest-backend/pkg/gemini"
	"nigest-backend/pkg/gmail"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Initialize database
	db, err := database.NewPostgresConnection(cfg)
	if err != nil {
		log.Fatal("Failed to connect to database:", err)
	}

	// Auto-migrate database schemas
	if err := db.AutoMigrate(&authdomain.User{}, &authdomain.RefreshToken{}, &authdomain.FCMToken{}, &newsletterdomain.Newsletter{}, &newsletterdomain.Summary{}); err != nil {
		log.Fatal("Failed to migrate database:", err)
	}

	// Initialize repositories
	userRepo := authRepo.NewUserRepository(db)
	fcmTokenRepo := authRepo.NewFCMTokenRepository(db)
	newsletterRepository := newsletterRepo.NewNewsletterRepository(db)
	summaryRepository := newsletterRepo.NewSummaryRepository(db)

	// Initialize external services
	gmailService := gmail.NewService(cfg.GoogleClientID, cfg.GoogleClientSecret)
	geminiService := gemini.NewGeminiService(cfg.GeminiAPIKey, cfg.GeminiModel)

	// Initialize FCM client (optional, everything else works without it)
	var fcmClient *fcm.Client
	if cfg.FirebaseCredentials != "" {
		fcmClient, err = fcm.NewClient(cfg.FirebaseCredentials)
		if err != nil {
			log.Printf("[WARN] Failed to initialize FCM client (push notifications disabled): %v", err)
		}
	} else {
		log.Printf("[WARN] No Firebase credentials configured, FCM disabled")
	}

	// Initialize use cases
	authUc := authUsecase.NewAuthUsecase(userRepo, fcmTokenRepo, cfg)
	newsletterUc := newsletterUsecase.NewNewsletterUsecase(newsletterRepository, summaryRepository, userRepo, gmailService, geminiService, cfg)

	// Initialize notification service (Pub/Sub) if a project is configured
	if cfg.GoogleProjectID != "" {
		// Extract short topic name from full resource name if necessary
		topicName := cfg.GooglePubSubTopic
		if parts := strings.Split(topicName, "/"); len(parts) > 1 {
			topicName = parts[len(parts)-1]
		}

		notifService, err := notification.NewService(cfg.GoogleProjectID, topicName, userRepo, fcmTokenRepo, fcmClient, newsletterUc, cfg.FirebaseCredentials)
		if err != nil {
			log.Printf("[ERROR] Failed to initialize notification service: %v", err)
		} else {
			go notifService.Start(context.Background())
		}
	} else {
		log.Printf("[WARN] GoogleProjectID not configured, notification service disabled")
	}

	// Start scheduled scans
	scanScheduler := scheduler.NewScanScheduler(userRepo, fcmTokenRepo, fcmClient, newsletterUc, cfg.SchedulerInterval)
	scanScheduler.Start()
	defer scanScheduler.Stop()

	// Initialize HTTP handler and start the server
	handler := api.NewHandler(authUc, newsletterUc, cfg)

	log.Printf("Server starting on port %s", cfg.Port)
	if err := handler.Start(":" + cfg.Port); err != nil {
		log.Fatal("Failed to start server:", err)
	}
}
