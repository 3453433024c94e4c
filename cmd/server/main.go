package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"gwi.com/testcase-dashboard/internal/api"
	"gwi.com/testcase-dashboard/internal/config"
	"gwi.com/testcase-dashboard/internal/core"
	"gwi.com/testcase-dashboard/internal/logger"
	"gwi.com/testcase-dashboard/internal/store"
	"gwi.com/testcase-dashboard/internal/storyapi"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	zapLogger, err := logger.New(logger.Config{Level: cfg.LogLevel, Encoding: cfg.LogEncoding})
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer zapLogger.Sync()

	// Initialize chat transcript store
	dbStore, err := store.NewSQLiteStore(cfg.ChatDatabaseURL)
	if err != nil {
		zapLogger.Fatal("Failed to initialize database", zap.Error(err))
	}
	defer dbStore.Close()

	stories, err := storyapi.NewClient(cfg.StoryAPIURL, cfg.UpstreamTimeout, zapLogger)
	if err != nil {
		zapLogger.Fatal("Failed to create story service client", zap.Error(err))
	}

	// Without an API key every LLM request is answered from the mock template.
	generator, err := core.NewTextGenerator(context.Background(), cfg, zapLogger)
	switch {
	case errors.Is(err, core.ErrNotConfigured):
		zapLogger.Warn("No LLM API key configured, serving mock responses", zap.String("provider", cfg.LLMProvider))
		generator = nil
	case err != nil:
		zapLogger.Fatal("Failed to initialize LLM client", zap.Error(err))
	default:
		defer generator.Close()
	}

	generationService := core.NewGenerationService(stories, generator, core.PersonaFor(cfg.GenerationPersona), zapLogger)
	chatService := core.NewChatService(dbStore, generationService, zapLogger)

	// Initialize API Handler and Router
	apiHandler := api.NewAPIHandler(generationService, chatService, stories, zapLogger)
	router := api.NewRouter(apiHandler, zapLogger)

	serverAddr := fmt.Sprintf(":%s", cfg.HTTPPort)

	srv := &http.Server{
		Addr:         serverAddr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.LLMTimeout + 15*time.Second, // LLM calls can take time
		IdleTimeout:  120 * time.Second,
	}

	// Graceful shutdown handling
	go func() {
		zapLogger.Info("Starting server",
			zap.String("addr", serverAddr),
			zap.String("storyAPI", cfg.StoryAPIURL),
			zap.String("persona", cfg.GenerationPersona),
			zap.String("provider", cfg.LLMProvider))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zapLogger.Fatal("Could not listen", zap.String("addr", serverAddr), zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	zapLogger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		zapLogger.Error("Server forced to shutdown", zap.Error(err))
	}

	zapLogger.Info("Server exiting gracefully")
}
