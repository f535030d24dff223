package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/xiaot623/loancourt/internal/adapter/encoder"
	"github.com/xiaot623/loancourt/internal/adapter/llm"
	"github.com/xiaot623/loancourt/internal/adapter/vectordb"
	"github.com/xiaot623/loancourt/internal/config"
	"github.com/xiaot623/loancourt/internal/policy"
	store "github.com/xiaot623/loancourt/internal/repository"
	"github.com/xiaot623/loancourt/internal/retrieval"
	"github.com/xiaot623/loancourt/internal/runstore"
	"github.com/xiaot623/loancourt/internal/service"
	v1 "github.com/xiaot623/loancourt/internal/transport/http/v1"
)

func main() {
	// Load configuration
	cfg := config.Load()

	log.Printf("Starting loancourt...")
	log.Printf("HTTP Port: %d", cfg.HTTPPort)
	log.Printf("Database: %s", cfg.DatabaseURL)
	log.Printf("Qdrant: %s", cfg.QdrantURL)
	log.Printf("Encoder: %s", cfg.EncoderURL)
	log.Printf("LLM: %s (%s)", cfg.LLMBaseURL, cfg.LLMModel)

	// Initialize store
	db, err := store.NewSQLiteStore(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to initialize store: %v", err)
	}
	defer db.Close()

	// Initialize adapters
	encoderClient := encoder.NewClient(cfg.EncoderURL, cfg.EncoderTimeout)
	qdrantClient := vectordb.NewClient(cfg.QdrantURL, cfg.QdrantAPIKey, cfg.SearchTimeout)
	generator := llm.NewGenerator(cfg.LLMBaseURL, cfg.LLMAPIKey, cfg.LLMModel, cfg.LLMTimeout)

	// Initialize retrieval
	neighbors := retrieval.NewAggregator(encoderClient, qdrantClient, cfg.ApplicantCollection)
	policies := retrieval.NewPolicyIndex(encoderClient, qdrantClient, cfg.PolicyCollection)

	// Initialize prescreen policy engine
	ctx := context.Background()
	prescreen, err := policy.NewEngine(ctx, policy.DefaultPolicy)
	if err != nil {
		log.Fatalf("Failed to initialize policy engine: %v", err)
	}

	// Initialize service
	runs := runstore.New()
	svc := service.New(cfg, db, runs, neighbors, policies, generator, prescreen)

	// Initialize handler
	h := v1.NewHandler(svc)

	// Create Echo server
	e := echo.New()
	e.HideBanner = true

	// Middleware
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())

	// Register routes
	h.RegisterRoutes(e)

	// Start server
	go func() {
		addr := fmt.Sprintf(":%d", cfg.HTTPPort)
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	log.Printf("API started on port %d", cfg.HTTPPort)

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down loancourt...")

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Printf("Failed to shutdown server gracefully: %v", err)
	}

	log.Println("Loancourt stopped")
}
