package api

import (
	"log"

	"github.com/gin-gonic/gin"

	authUsecase "nigest-backend/internal/auth/usecase"
	newsletterUsecase "nigest-backend/internal/newsletter/usecase"
	"nigest-backend/pkg/chroma"
	"nigest-backend/pkg/config"
)

type Handler struct {
	authUsecase       authUsecase.AuthUsecase
	newsletterUsecase newsletterUsecase.NewsletterUsecase
	config            *config.Config
}

func NewHandler(authUc authUsecase.AuthUsecase, newsletterUc newsletterUsecase.NewsletterUsecase, cfg *config.Config) *Handler {
	// Vector search is optional; everything else works without Chroma.
	if cfg.ChromaAPIKey != "" {
		chromaClient, err := chroma.NewClient(cfg)
		if err != nil {
			log.Printf("Warning: Failed to initialize Chroma client: %v. Summary search will not be available.", err)
		} else {
			newsletterUc.SetSummaryIndexer(chromaClient)
			log.Println("Chroma client initialized successfully")
		}
	} else {
		log.Println("Warning: CHROMA_API_KEY not set. Summary search will not be available.")
	}

	return &Handler{
		authUsecase:       authUc,
		newsletterUsecase: newsletterUc,
		config:            cfg,
	}
}

func (h *Handler) Start(addr string) error {
	gin.SetMode(gin.ReleaseMode)
	r := gin.Default()

	// CORS middleware
	r.Use(func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if origin != "" {
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
		} else {
			c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		}

		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE, PATCH")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	SetupRoutes(r, h.authUsecase, h.newsletterUsecase)

	return r.Run(addr)
}
