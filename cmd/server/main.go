package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/gorilla/mux"
	"github.com/hauslink/voice-crm-bridge/internal/config"
	"github.com/hauslink/voice-crm-bridge/internal/handler"
	"github.com/hauslink/voice-crm-bridge/pkg/logger"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

// Server is the voice-CRM bridge HTTP server.
type Server struct {
	config         *config.Config
	router         *mux.Router
	handlerManager *handler.HandlerManager
}

// NewServer creates the bridge server and wires all handlers.
func NewServer(cfg *config.Config) *Server {
	if _, err := logger.Init(os.Getenv("LOG_ENV")); err != nil {
		logger.Base().Error("Failed to initialize zap logger, falling back to std log")
	}

	router := mux.NewRouter()

	handlerManager := handler.NewHandlerManager(cfg)
	handlerManager.SetupAllRoutes(router)

	return &Server{
		config:         cfg,
		router:         router,
		handlerManager: handlerManager,
	}
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	addr := fmt.Sprintf(":%s", s.config.Port)

	server := &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	logger.Base().Info("Starting server", zap.String("addr", addr))
	return server.ListenAndServe()
}

// applyBootOverlay applies the assistant behavior overlay once at startup
// when enabled. Failures are logged, never fatal: the bridge still serves
// webhooks against the assistant's existing settings.
func (s *Server) applyBootOverlay() {
	if !s.config.OverlayEnabled {
		return
	}

	vapi := s.handlerManager.Vapi()
	if !vapi.Configured() {
		logger.Base().Warn("assistant overlay enabled but platform API not configured, skipping")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := vapi.ApplyOverlay(ctx, s.config); err != nil {
		logger.Base().Warn("boot-time assistant overlay failed", zap.Error(err))
		return
	}
	logger.Base().Info("boot-time assistant overlay applied")
}

func main() {
	// Load .env file for local development if it exists. This will not
	// override environment variables set by the deployment.
	if err := godotenv.Load(); err != nil {
		logger.L().Infof(".env file not found or skipped (expected in production): %v", err)
	}
	defer logger.Sync()

	cfg := config.LoadFromEnv()

	server := NewServer(cfg)
	logger.Base().Info("Server initialized successfully", zap.String("port", cfg.Port))

	server.applyBootOverlay()

	if err := server.Start(); err != nil {
		logger.Sync()
		log.Fatalf("Server failed to start: %v", err)
	}
}
