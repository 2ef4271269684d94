package handler

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/hauslink/voice-crm-bridge/internal/config"
	"github.com/hauslink/voice-crm-bridge/internal/crm"
	"github.com/hauslink/voice-crm-bridge/internal/dispatch"
	"github.com/hauslink/voice-crm-bridge/internal/leadstatus"
	"github.com/hauslink/voice-crm-bridge/internal/platform"
	"github.com/hauslink/voice-crm-bridge/internal/resolver"
	"github.com/hauslink/voice-crm-bridge/pkg/logger"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// HandlerManager builds the bridge's services and registers all routes.
// Backends (CRM gateway, lead-status store) are selected once here and
// injected; nothing downstream reaches for globals.
type HandlerManager struct {
	cfg        *config.Config
	gateway    crm.Gateway
	statuses   leadstatus.Store
	resolver   *resolver.Resolver
	dispatcher *dispatch.Dispatcher
	vapi       *platform.VapiClient
}

// NewHandlerManager creates and wires all services.
func NewHandlerManager(cfg *config.Config) *HandlerManager {
	var gateway crm.Gateway
	if cfg.CRMToken != "" {
		gateway = crm.NewHubSpotGateway(cfg.CRMBaseURL, cfg.CRMToken)
		logger.Base().Info("CRM gateway initialized",
			zap.String("backend", "hubspot"), zap.String("base_url", cfg.CRMBaseURL))
	} else {
		gateway = crm.NewMemoryGateway()
		logger.Base().Warn("no CRM token configured, using in-memory gateway (dry run)")
	}

	var statuses leadstatus.Store
	if cfg.RedisHost != "" {
		redisStore, err := leadstatus.NewRedisStore(cfg.RedisHost, cfg.RedisPort, cfg.RedisPassword)
		if err != nil {
			logger.Base().Warn("failed to initialize redis lead-status store, falling back to memory",
				zap.Error(err))
			statuses = leadstatus.NewMemoryStore()
		} else {
			statuses = redisStore
			logger.Base().Info("lead-status store initialized", zap.String("backend", "redis"))
		}
	} else {
		statuses = leadstatus.NewMemoryStore()
		logger.Base().Info("lead-status store initialized", zap.String("backend", "memory"))
	}

	return &HandlerManager{
		cfg:        cfg,
		gateway:    gateway,
		statuses:   statuses,
		resolver:   resolver.New(gateway),
		dispatcher: dispatch.New(gateway, cfg),
		vapi:       platform.NewVapiClient(cfg.VapiBaseURL, cfg.VapiAPIKey, cfg.VapiAssistantID),
	}
}

// SetupAllRoutes sets up all routes with middleware.
func (hm *HandlerManager) SetupAllRoutes(router *mux.Router) {
	router.Use(CORSMiddleware)
	router.Use(GlobalLoggingMiddleware)

	verify := SignatureMiddleware(hm.cfg.WebhookSecret, hm.cfg.StrictSignature)

	webhookHandler := NewWebhookHandler(hm.cfg, hm.resolver, hm.dispatcher, hm.statuses)
	webhookHandler.SetupWebhookRoutes(router, verify)

	leadStatusHandler := NewLeadStatusHandler(hm.statuses)
	leadStatusHandler.SetupLeadStatusRoutes(router, verify)

	adminHandler := NewAdminHandler(hm.cfg, hm.vapi)
	adminHandler.SetupAdminRoutes(router, verify)

	router.HandleFunc("/health", handleHealth).Methods("GET")
	router.Handle("/metrics", promhttp.Handler()).Methods("GET")

	logger.Base().Info("all application routes registered")
}

// Vapi returns the calling-platform client, for the boot-time overlay.
func (hm *HandlerManager) Vapi() *platform.VapiClient {
	return hm.vapi
}

// Gateway returns the active CRM gateway.
func (hm *HandlerManager) Gateway() crm.Gateway {
	return hm.gateway
}

// handleHealth is the liveness probe.
func handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
