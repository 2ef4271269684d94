package handler

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/hauslink/voice-crm-bridge/internal/leadstatus"
	"github.com/hauslink/voice-crm-bridge/internal/metrics"
	"github.com/hauslink/voice-crm-bridge/internal/phone"
	"github.com/hauslink/voice-crm-bridge/pkg/logger"
	"go.uber.org/zap"
)

// LeadStatusHandler exposes the lead-status update endpoint.
type LeadStatusHandler struct {
	statuses leadstatus.Store
}

// NewLeadStatusHandler creates a lead-status handler.
func NewLeadStatusHandler(statuses leadstatus.Store) *LeadStatusHandler {
	return &LeadStatusHandler{statuses: statuses}
}

// SetupLeadStatusRoutes registers the lead-status endpoint.
func (h *LeadStatusHandler) SetupLeadStatusRoutes(router *mux.Router, verify func(http.Handler) http.Handler) {
	router.Handle("/lead-status", verify(http.HandlerFunc(h.HandleUpdate))).Methods("POST")
	logger.Base().Info("lead-status route registered")
}

type leadStatusRequest struct {
	LeadID string `json:"leadId"`
	Status string `json:"status"`
	Number string `json:"number,omitempty"`
}

type leadStatusResponse struct {
	OK         bool   `json:"ok"`
	LeadID     string `json:"leadId"`
	Status     string `json:"status"`
	VerifiedBy string `json:"verifiedBy,omitempty"`
}

// HandleUpdate merges a status update into the store. Missing required
// fields are the one error class surfaced as a 400.
func (h *LeadStatusHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	metrics.WebhookRequests.WithLabelValues("lead_status").Inc()

	var req leadStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error": "invalid request body"}`, http.StatusBadRequest)
		return
	}
	defer r.Body.Close()

	if req.LeadID == "" || req.Status == "" {
		http.Error(w, `{"error": "leadId and status are required"}`, http.StatusBadRequest)
		return
	}

	entry, err := h.statuses.SetStatus(r.Context(), req.LeadID, req.Status, phone.Normalize(req.Number))
	if err != nil {
		// Store failures degrade to acknowledged-but-unrecorded; the calling
		// platform must not retry into a failure loop.
		logger.Base().Error("failed to store lead status",
			zap.String("lead_id", req.LeadID), zap.Error(err))
	}

	writeJSON(w, http.StatusOK, leadStatusResponse{
		OK:         err == nil,
		LeadID:     entry.LeadID,
		Status:     entry.Status,
		VerifiedBy: entry.VerifiedBy,
	})
}
