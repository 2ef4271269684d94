package handler

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/gorilla/mux"
	"github.com/hauslink/voice-crm-bridge/internal/assistant"
	"github.com/hauslink/voice-crm-bridge/internal/config"
	"github.com/hauslink/voice-crm-bridge/internal/dispatch"
	"github.com/hauslink/voice-crm-bridge/internal/domain"
	"github.com/hauslink/voice-crm-bridge/internal/leadstatus"
	"github.com/hauslink/voice-crm-bridge/internal/metrics"
	"github.com/hauslink/voice-crm-bridge/internal/phone"
	"github.com/hauslink/voice-crm-bridge/internal/resolver"
	"github.com/hauslink/voice-crm-bridge/pkg/logger"
	"go.uber.org/zap"
)

// WebhookHandler handles call-lifecycle webhooks from the calling platform.
// One endpoint pair serves two payload flavors: context enrichment (call
// metadata) and tool-call dispatch (message.toolCalls).
type WebhookHandler struct {
	cfg        *config.Config
	resolver   *resolver.Resolver
	dispatcher *dispatch.Dispatcher
	statuses   leadstatus.Store
}

// NewWebhookHandler creates a webhook handler.
func NewWebhookHandler(cfg *config.Config, res *resolver.Resolver, disp *dispatch.Dispatcher, statuses leadstatus.Store) *WebhookHandler {
	return &WebhookHandler{
		cfg:        cfg,
		resolver:   res,
		dispatcher: disp,
		statuses:   statuses,
	}
}

// SetupWebhookRoutes registers the webhook endpoints.
func (h *WebhookHandler) SetupWebhookRoutes(router *mux.Router, verify func(http.Handler) http.Handler) {
	webhook := verify(http.HandlerFunc(h.HandleWebhook))
	router.Handle("/webhook", webhook).Methods("POST")
	router.Handle("/assistant-request", webhook).Methods("POST")

	logger.Base().Info("webhook routes registered")
}

// webhookRequest is the inbound payload. Either call metadata is present
// (enrichment mode) or message.toolCalls (dispatch mode).
type webhookRequest struct {
	Message *webhookMessage `json:"message,omitempty"`

	Phone           string `json:"phone"`
	PropertyAddress string `json:"property_address"`
	City            string `json:"city"`
	State           string `json:"state"`
	CallerName      string `json:"caller_name"`
	LeadID          string `json:"leadId"`

	VoiceName       string `json:"voice_name"`
	VoiceStability  string `json:"voice_stability"`
	VoiceSimilarity string `json:"voice_similarity"`
	VoiceStyle      string `json:"voice_style"`
}

type webhookMessage struct {
	Type      string        `json:"type"`
	ToolCalls []rawToolCall `json:"toolCalls"`
	Call      *callInfo     `json:"call"`
}

type rawToolCall struct {
	ID       string `json:"id"`
	Function struct {
		Name      string          `json:"name"`
		Arguments json.RawMessage `json:"arguments"`
	} `json:"function"`
}

type callInfo struct {
	Customer struct {
		Number string `json:"number"`
		Name   string `json:"name"`
	} `json:"customer"`
}

type enrichmentResponse struct {
	AssistantOverrides domain.AssistantOverride `json:"assistantOverrides"`
}

type toolCallsResponse struct {
	Results []domain.ToolCallResult `json:"results"`
}

// HandleWebhook is the single entry point for both webhook flavors. Business
// failures never produce a non-200: an unexpected fault anywhere downstream
// degrades to a minimal valid response.
func (h *WebhookHandler) HandleWebhook(w http.ResponseWriter, r *http.Request) {
	defer func() {
		if rec := recover(); rec != nil {
			logger.Base().Error("webhook handler panicked, returning minimal response",
				zap.Any("panic", rec))
			writeJSON(w, http.StatusOK, enrichmentResponse{AssistantOverrides: assistant.Empty()})
		}
	}()

	bodyBytes, err := io.ReadAll(r.Body)
	if err != nil {
		logger.Base().Error("failed to read webhook body", zap.Error(err))
		writeJSON(w, http.StatusOK, enrichmentResponse{AssistantOverrides: assistant.Empty()})
		return
	}
	defer r.Body.Close()

	var req webhookRequest
	if err := json.Unmarshal(bodyBytes, &req); err != nil {
		logger.Base().Warn("unparsable webhook body, returning minimal response",
			zap.Error(err))
		writeJSON(w, http.StatusOK, enrichmentResponse{AssistantOverrides: assistant.Empty()})
		return
	}

	if req.Message != nil && len(req.Message.ToolCalls) > 0 {
		metrics.WebhookRequests.WithLabelValues("tool_calls").Inc()
		h.handleToolCalls(w, r, &req)
		return
	}

	metrics.WebhookRequests.WithLabelValues("enrichment").Inc()
	h.handleEnrichment(w, r, &req)
}

// handleEnrichment resolves call context and returns an assistant override.
func (h *WebhookHandler) handleEnrichment(w http.ResponseWriter, r *http.Request, req *webhookRequest) {
	callerPhone := req.Phone
	callerName := req.CallerName
	if req.Message != nil && req.Message.Call != nil {
		if callerPhone == "" {
			callerPhone = req.Message.Call.Customer.Number
		}
		if callerName == "" {
			callerName = req.Message.Call.Customer.Name
		}
	}

	// A lead already verified by a different number gets a polite decline
	// instead of a full context fetch. An unidentified caller (no number at
	// all) is not "a different number" and still gets normal enrichment.
	if req.LeadID != "" {
		if entry, ok := h.statuses.GetStatus(r.Context(), req.LeadID); ok {
			callerNumber := phone.Normalize(callerPhone)
			if entry.Status == domain.StatusOwnerVerified && entry.VerifiedBy != "" &&
				callerNumber != "" && entry.VerifiedBy != callerNumber {
				logger.Base().Info("lead already verified by another number, declining",
					zap.String("lead_id", req.LeadID))
				override := assistant.Empty()
				override.Variables["already_verified"] = "true"
				override.FirstMessage = "Hi, it looks like we've already confirmed this property with the owner. Sorry for the extra call — have a great day, goodbye."
				writeJSON(w, http.StatusOK, enrichmentResponse{AssistantOverrides: override})
				return
			}
		}
	}

	cc := h.resolver.Resolve(r.Context(), resolver.Input{
		Phone:           callerPhone,
		PropertyAddress: req.PropertyAddress,
		City:            req.City,
		State:           req.State,
		CallerName:      callerName,
	})

	override := assistant.Synthesize(cc, assistant.Request{
		CallerName:      firstName(callerName),
		PropertyAddress: req.PropertyAddress,
		City:            req.City,
		State:           req.State,
		VoiceName:       req.VoiceName,
		VoiceStability:  req.VoiceStability,
		VoiceSimilarity: req.VoiceSimilarity,
		VoiceStyle:      req.VoiceStyle,
	}, h.cfg)

	writeJSON(w, http.StatusOK, enrichmentResponse{AssistantOverrides: override})
}

// handleToolCalls dispatches the batch and reports one result per call. The
// response is always success-shaped.
func (h *WebhookHandler) handleToolCalls(w http.ResponseWriter, r *http.Request, req *webhookRequest) {
	calls := make([]domain.ToolCall, 0, len(req.Message.ToolCalls))
	for _, raw := range req.Message.ToolCalls {
		calls = append(calls, domain.ToolCall{
			ID:        raw.ID,
			Name:      raw.Function.Name,
			Arguments: string(raw.Function.Arguments),
		})
	}

	results := h.dispatcher.Dispatch(r.Context(), calls)
	writeJSON(w, http.StatusOK, toolCallsResponse{Results: results})
}

// firstName extracts the leading word of a full name.
func firstName(full string) string {
	full = strings.TrimSpace(full)
	if full == "" {
		return ""
	}
	if i := strings.IndexByte(full, ' '); i > 0 {
		return full[:i]
	}
	return full
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logger.Base().Error("failed to encode response", zap.Error(err))
	}
}
