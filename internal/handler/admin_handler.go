package handler

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/hauslink/voice-crm-bridge/internal/config"
	"github.com/hauslink/voice-crm-bridge/internal/platform"
	"github.com/hauslink/voice-crm-bridge/pkg/logger"
	"go.uber.org/zap"
)

// AdminHandler exposes operational endpoints.
type AdminHandler struct {
	cfg  *config.Config
	vapi *platform.VapiClient
}

// NewAdminHandler creates an admin handler.
func NewAdminHandler(cfg *config.Config, vapi *platform.VapiClient) *AdminHandler {
	return &AdminHandler{cfg: cfg, vapi: vapi}
}

// SetupAdminRoutes registers admin endpoints behind signature verification.
func (h *AdminHandler) SetupAdminRoutes(router *mux.Router, verify func(http.Handler) http.Handler) {
	router.Handle("/admin/assistant-overlay", verify(http.HandlerFunc(h.HandleApplyOverlay))).Methods("POST")
	logger.Base().Info("admin routes registered")
}

// HandleApplyOverlay re-applies the assistant behavior overlay on demand.
func (h *AdminHandler) HandleApplyOverlay(w http.ResponseWriter, r *http.Request) {
	if h.vapi == nil || !h.vapi.Configured() {
		http.Error(w, `{"error": "platform API not configured"}`, http.StatusBadRequest)
		return
	}

	if err := h.vapi.ApplyOverlay(r.Context(), h.cfg); err != nil {
		logger.Base().Error("failed to apply assistant overlay", zap.Error(err))
		writeJSON(w, http.StatusOK, map[string]interface{}{"ok": false, "error": err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"ok": true})
}
