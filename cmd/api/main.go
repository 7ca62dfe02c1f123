package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alexadark/ripreel-api/internal/api"
	"github.com/alexadark/ripreel-api/internal/bible"
	"github.com/alexadark/ripreel-api/internal/config"
	"github.com/alexadark/ripreel-api/internal/db"
	"github.com/alexadark/ripreel-api/internal/dedup"
	"github.com/alexadark/ripreel-api/internal/reconcile"
	"github.com/alexadark/ripreel-api/internal/services"
	"github.com/alexadark/ripreel-api/internal/storage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	database, err := db.New(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer database.Close()
	log.Println("Connected to database")

	var guard api.DedupGuard
	if cfg.RedisURL != "" {
		g, err := dedup.New(cfg.RedisURL)
		if err != nil {
			log.Fatalf("Failed to connect to Redis: %v", err)
		}
		defer g.Close()
		guard = g
		log.Println("Connected to Redis, webhook dedup enabled")
	} else {
		log.Println("REDIS_URL not set, webhook dedup disabled")
	}

	store := storage.New(cfg.SupabaseURL, cfg.SupabaseServiceKey, cfg.SupabaseStorageBucket)

	workflows := services.NewWorkflowClient(cfg.N8NBaseURL, cfg.N8NWebhookSecret)

	var prompter reconcile.Prompter
	if cfg.OpenAIKey != "" {
		prompter = services.NewPromptService(cfg.OpenAIKey)
		log.Println("OpenAI prompt enrichment enabled")
	}

	reconciler := reconcile.New(database, workflows, prompter, cfg.MaxConcurrentVideos)
	maintenance := bible.NewMaintenance(database, workflows)

	handler := api.NewHandler(database, reconciler, maintenance, store, guard)
	router := api.NewRouter(handler, api.RouterConfig{
		BackendAPIKey:      cfg.BackendAPIKey,
		CorsAllowedOrigins: cfg.CorsAllowedOrigins,
		WebhookSecret:      cfg.N8NWebhookSecret,
	})

	if cfg.BackendAPIKey == "" {
		log.Println("WARNING: BACKEND_API_KEY not set, /v1 API is unauthenticated")
	}
	if cfg.N8NWebhookSecret == "" {
		log.Println("WARNING: N8N_WEBHOOK_SECRET not set, webhook endpoints are unauthenticated")
	}

	srv := &http.Server{
		Addr:         ":" + cfg.APIPort,
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		log.Printf("API server listening on port %s (max %d concurrent videos per project)", cfg.APIPort, cfg.MaxConcurrentVideos)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server exited")
}
