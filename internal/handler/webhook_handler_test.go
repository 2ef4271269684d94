package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/hauslink/voice-crm-bridge/internal/config"
	"github.com/hauslink/voice-crm-bridge/internal/crm"
	"github.com/hauslink/voice-crm-bridge/internal/dispatch"
	"github.com/hauslink/voice-crm-bridge/internal/domain"
	"github.com/hauslink/voice-crm-bridge/internal/leadstatus"
	"github.com/hauslink/voice-crm-bridge/internal/resolver"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestWebhookHandler() (*WebhookHandler, *crm.MemoryGateway, leadstatus.Store) {
	gw := crm.NewMemoryGateway()
	store := leadstatus.NewMemoryStore()
	cfg := &config.Config{
		DealPipeline:  "default",
		DealStage:     "appointmentscheduled",
		SchedulingURL: "https://cal.example.com/team",
	}
	h := NewWebhookHandler(cfg, resolver.New(gw), dispatch.New(gw, cfg), store)
	return h, gw, store
}

func postWebhook(t *testing.T, h *WebhookHandler, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.HandleWebhook(rec, req)
	return rec
}

func decodeEnrichment(t *testing.T, rec *httptest.ResponseRecorder) domain.AssistantOverride {
	t.Helper()
	var resp enrichmentResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp.AssistantOverrides
}

func TestHandleWebhook_UnknownCallerKeepsSuppliedAddress(t *testing.T) {
	h, _, _ := newTestWebhookHandler()

	rec := postWebhook(t, h, `{"phone":"6155551234","property_address":"123 Main St"}`)

	require.Equal(t, http.StatusOK, rec.Code)
	override := decodeEnrichment(t, rec)
	assert.Equal(t, "123 Main St", override.Variables["property_address"])
	assert.Empty(t, override.Variables["last_summary"])
}

func TestHandleWebhook_KnownCallerGetsEnrichedContext(t *testing.T) {
	h, gw, _ := newTestWebhookHandler()
	contactID := gw.SeedContact(domain.Contact{FirstName: "Dana", LastName: "Wells", Phone: "6155551234"})
	gw.SeedDeal(domain.Deal{
		Name:        "123 Main St",
		Address:     "123 Main St",
		City:        "Nashville",
		State:       "TN",
		AskingPrice: "250000",
	}, contactID)

	rec := postWebhook(t, h, `{"phone":"(615) 555-1234","caller_name":"Dana Wells"}`)

	require.Equal(t, http.StatusOK, rec.Code)
	override := decodeEnrichment(t, rec)
	assert.Equal(t, "Dana", override.Variables["seller_first_name"])
	assert.Equal(t, "123 Main St", override.Variables["property_address"])
	assert.Contains(t, override.Variables["last_summary"], "Asking $250000")
	assert.NotEmpty(t, override.FirstMessage)
}

func TestHandleWebhook_PhoneFallsBackToCallCustomer(t *testing.T) {
	h, gw, _ := newTestWebhookHandler()
	contactID := gw.SeedContact(domain.Contact{FirstName: "Ray", Phone: "6155559999"})
	gw.SeedDeal(domain.Deal{Name: "7 Elm St", Address: "7 Elm St"}, contactID)

	rec := postWebhook(t, h, `{"message":{"type":"assistant-request","call":{"customer":{"number":"+16155559999","name":"Ray Ortiz"}}}}`)

	require.Equal(t, http.StatusOK, rec.Code)
	override := decodeEnrichment(t, rec)
	assert.Equal(t, "Ray", override.Variables["seller_first_name"],
		"customer name from call metadata must be used when no top-level caller_name")
	assert.Equal(t, "7 Elm St", override.Variables["property_address"])
}

func TestHandleWebhook_ToolCallBatchReturnsOrderedResults(t *testing.T) {
	h, _, _ := newTestWebhookHandler()

	body := `{"message":{"type":"tool-calls","toolCalls":[
		{"id":"call-1","function":{"name":"create_contact","arguments":{"firstname":"Dana","phone":"6155551234"}}},
		{"id":"call-2","function":{"name":"create_contact","arguments":{"firstname":"NoKey"}}},
		{"id":"call-3","function":{"name":"log_note","arguments":{"note":"spoke with owner"}}}
	]}}`
	rec := postWebhook(t, h, body)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp toolCallsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))

	require.Len(t, resp.Results, 3)
	assert.Equal(t, "call-1", resp.Results[0].ToolCallID)
	assert.Equal(t, "call-2", resp.Results[1].ToolCallID)
	assert.Equal(t, "call-3", resp.Results[2].ToolCallID)
	assert.Empty(t, resp.Results[0].Error)
	assert.NotEmpty(t, resp.Results[1].Error, "the failing call reports its error in-band")
	assert.Empty(t, resp.Results[2].Error)
}

func TestHandleWebhook_VerifiedLeadByOtherNumberDeclines(t *testing.T) {
	h, gw, store := newTestWebhookHandler()
	gw.SeedContact(domain.Contact{FirstName: "Dana", Phone: "6155551234"})
	_, err := store.SetStatus(context.Background(), "lead-7", domain.StatusOwnerVerified, "+16155550000")
	require.NoError(t, err)

	rec := postWebhook(t, h, `{"phone":"6155551234","leadId":"lead-7"}`)

	require.Equal(t, http.StatusOK, rec.Code)
	override := decodeEnrichment(t, rec)
	assert.Equal(t, "true", override.Variables["already_verified"])
	assert.Contains(t, override.FirstMessage, "already confirmed")
	assert.Empty(t, override.Variables["seller_first_name"],
		"the decline short-circuits before any context resolution")
}

func TestHandleWebhook_VerifiedLeadBySameNumberProceeds(t *testing.T) {
	h, gw, store := newTestWebhookHandler()
	contactID := gw.SeedContact(domain.Contact{FirstName: "Dana", Phone: "6155551234"})
	gw.SeedDeal(domain.Deal{Name: "123 Main St", Address: "123 Main St"}, contactID)
	_, err := store.SetStatus(context.Background(), "lead-7", domain.StatusOwnerVerified, "+16155551234")
	require.NoError(t, err)

	rec := postWebhook(t, h, `{"phone":"6155551234","leadId":"lead-7"}`)

	override := decodeEnrichment(t, rec)
	assert.Empty(t, override.Variables["already_verified"])
	assert.Equal(t, "123 Main St", override.Variables["property_address"])
}

// panickySearchGateway panics on the phone lookup, for exercising the
// top-level recovery path.
type panickySearchGateway struct {
	*crm.MemoryGateway
}

func (g *panickySearchGateway) SearchContactsByPhone(context.Context, string) []domain.Contact {
	panic("crm client broke")
}

func TestHandleWebhook_PanicDowngradesToMinimalResponse(t *testing.T) {
	gw := &panickySearchGateway{MemoryGateway: crm.NewMemoryGateway()}
	cfg := &config.Config{}
	h := NewWebhookHandler(cfg, resolver.New(gw), dispatch.New(gw, cfg), leadstatus.NewMemoryStore())

	rec := postWebhook(t, h, `{"phone":"6155551234","property_address":"123 Main St"}`)

	require.Equal(t, http.StatusOK, rec.Code, "a downstream panic must never bounce the call")
	override := decodeEnrichment(t, rec)
	assert.Empty(t, override.Variables)
	assert.Empty(t, override.FirstMessage)
}

func TestHandleWebhook_VerifiedLeadWithoutCallerNumberProceeds(t *testing.T) {
	h, gw, store := newTestWebhookHandler()
	gw.SeedContact(domain.Contact{FirstName: "Dana", Phone: "6155551234"})
	_, err := store.SetStatus(context.Background(), "lead-7", domain.StatusOwnerVerified, "+16155550000")
	require.NoError(t, err)

	rec := postWebhook(t, h, `{"leadId":"lead-7","property_address":"123 Main St"}`)

	require.Equal(t, http.StatusOK, rec.Code)
	override := decodeEnrichment(t, rec)
	assert.Empty(t, override.Variables["already_verified"],
		"an unidentified caller is not a different number and must not be declined")
	assert.Equal(t, "123 Main St", override.Variables["property_address"])
}

func TestHandleWebhook_MalformedBodyDegradesToMinimalResponse(t *testing.T) {
	h, _, _ := newTestWebhookHandler()

	rec := postWebhook(t, h, `{"phone": not-json`)

	require.Equal(t, http.StatusOK, rec.Code, "parse failures must not bounce the call")
	override := decodeEnrichment(t, rec)
	assert.Empty(t, override.FirstMessage)
	assert.Empty(t, override.Variables)
}

func TestHandleLeadStatus_Validation(t *testing.T) {
	_, _, store := newTestWebhookHandler()
	h := NewLeadStatusHandler(store)

	tests := []struct {
		name string
		body string
		code int
	}{
		{"missing leadId", `{"status":"owner_verified"}`, http.StatusBadRequest},
		{"missing status", `{"leadId":"lead-1"}`, http.StatusBadRequest},
		{"invalid json", `{{`, http.StatusBadRequest},
		{"valid", `{"leadId":"lead-1","status":"callback_requested"}`, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/lead-status", strings.NewReader(tt.body))
			rec := httptest.NewRecorder()
			h.HandleUpdate(rec, req)
			assert.Equal(t, tt.code, rec.Code)
		})
	}
}

func TestHandleLeadStatus_NormalizesVerifyingNumber(t *testing.T) {
	_, _, store := newTestWebhookHandler()
	h := NewLeadStatusHandler(store)

	body := `{"leadId":"lead-1","status":"owner_verified","number":"(615) 555-1234"}`
	req := httptest.NewRequest(http.MethodPost, "/lead-status", strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.HandleUpdate(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp leadStatusResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.OK)
	assert.Equal(t, "+16155551234", resp.VerifiedBy)
}

func TestSignatureMiddleware(t *testing.T) {
	inner := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	call := func(secret string, strict bool, header string) int {
		req := httptest.NewRequest(http.MethodPost, "/webhook", nil)
		if header != "" {
			req.Header.Set(SignatureHeader, header)
		}
		rec := httptest.NewRecorder()
		SignatureMiddleware(secret, strict)(inner).ServeHTTP(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusNoContent, call("", true, ""),
		"no configured secret skips verification even in strict mode")
	assert.Equal(t, http.StatusNoContent, call("s3cret", true, "s3cret"))
	assert.Equal(t, http.StatusUnauthorized, call("s3cret", true, "wrong"))
	assert.Equal(t, http.StatusUnauthorized, call("s3cret", true, ""))
	assert.Equal(t, http.StatusNoContent, call("s3cret", false, "wrong"),
		"non-strict mode logs the mismatch and lets the request through")
}

func TestGlobalLoggingMiddleware_EchoesRequestID(t *testing.T) {
	inner := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	GlobalLoggingMiddleware(inner).ServeHTTP(rec, req)

	assert.NotEmpty(t, rec.Header().Get(RequestIDHeader),
		"the generated request id must be echoed so callers can correlate with logs")
}

func TestHealthEndpoint(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	handleHealth(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}
