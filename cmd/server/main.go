package main

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/skandula/docsim-server/internal/api"
	"github.com/skandula/docsim-server/internal/config"
	"github.com/skandula/docsim-server/internal/repository"
	"github.com/skandula/docsim-server/internal/scheduler"
	"github.com/skandula/docsim-server/internal/service"
	"github.com/skandula/docsim-server/internal/storage"
	"github.com/skandula/docsim-server/internal/utils"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	// Load configuration
	cfg := config.LoadConfig()
	logger := utils.NewLogger()

	// Set up database connection
	db, err := config.SetupDatabase(cfg)
	if err != nil {
		log.Fatalf("Failed to set up database: %v", err)
	}
	defer db.Close()

	// Set up file storage
	files, err := storage.NewLocalStore(cfg.Upload.DataDir)
	if err != nil {
		log.Fatalf("Failed to set up file storage: %v", err)
	}

	// Create repository
	repo := repository.NewPostgresRepository(db)

	// Create service
	svc := service.NewDefaultService(repo, files, logger, service.Options{
		JWTSecret:           cfg.Auth.JWTSecret,
		MaxUploadBytes:      cfg.Upload.MaxUploadBytes,
		SimilarityThreshold: cfg.Upload.SimilarityThreshold,
		DailyCredits:        cfg.Credits.DailyCredits,
		SignatureCacheSize:  cfg.Upload.SignatureCacheSize,
	})

	// Start the daily credit reset
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	scheduler.NewDailyReset(svc.ResetAllCredits, logger).Start(ctx)

	// Create API handler
	handler := api.NewHandler(svc, logger, cfg.Upload.MaxUploadBytes)

	// Set up Gin router
	router := gin.Default()
	router.Use(api.MetricsMiddleware())

	// Add middleware for JWT secret
	router.Use(func(c *gin.Context) {
		c.Set("jwtSecret", []byte(cfg.Auth.JWTSecret))
		c.Next()
	})

	// Set up routes
	handler.SetupRoutes(router)

	// Start server
	serverAddr := fmt.Sprintf(":%d", cfg.Server.Port)
	log.Printf("Starting server on %s", serverAddr)
	if err := http.ListenAndServe(serverAddr, router); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
