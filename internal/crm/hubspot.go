package crm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/hauslink/voice-crm-bridge/internal/domain"
	"github.com/hauslink/voice-crm-bridge/internal/metrics"
	"github.com/hauslink/voice-crm-bridge/internal/phone"
	"github.com/hauslink/voice-crm-bridge/pkg/logger"
	"go.uber.org/zap"
)

const searchLimit = 5

var contactProperties = []string{
	"firstname", "lastname", "email", "phone", "address", "city", "state", "zip",
}

var dealProperties = []string{
	"dealname", "amount", "property_address", "property_city", "property_state",
	"property_zip", "property_type", "asking_price", "timeline", "motivation",
}

// HubSpotGateway talks to the HubSpot v3/v4 CRM object API over HTTPS with
// bearer-token authentication.
type HubSpotGateway struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// NewHubSpotGateway creates a HubSpot-backed gateway. The client timeout is
// bounded so a slow CRM never holds the calling platform's webhook open.
func NewHubSpotGateway(baseURL, token string) *HubSpotGateway {
	return &HubSpotGateway{
		baseURL: baseURL,
		token:   token,
		httpClient: &http.Client{
			Timeout: 20 * time.Second,
		},
	}
}

// searchRequest is the HubSpot object search payload.
type searchRequest struct {
	FilterGroups []filterGroup `json:"filterGroups"`
	Properties   []string      `json:"properties"`
	Limit        int           `json:"limit"`
}

type filterGroup struct {
	Filters []filter `json:"filters"`
}

type filter struct {
	PropertyName string `json:"propertyName"`
	Operator     string `json:"operator"`
	Value        string `json:"value"`
}

type objectResult struct {
	ID         string            `json:"id"`
	Properties map[string]string `json:"properties"`
}

type searchResponse struct {
	Total   int            `json:"total"`
	Results []objectResult `json:"results"`
}

// SearchContactsByPhone searches contacts by phone and mobilephone. Fail-open:
// any failure degrades to an empty list.
func (g *HubSpotGateway) SearchContactsByPhone(ctx context.Context, rawPhone string) []domain.Contact {
	// Non-numeric input normalizes to empty and never reaches the network.
	normalized := phone.Normalize(rawPhone)
	if normalized == "" {
		return nil
	}

	// Phone and mobile are separate properties; either match counts.
	req := searchRequest{
		FilterGroups: []filterGroup{
			{Filters: []filter{{PropertyName: "phone", Operator: "EQ", Value: normalized}}},
			{Filters: []filter{{PropertyName: "mobilephone", Operator: "EQ", Value: normalized}}},
		},
		Properties: contactProperties,
		Limit:      searchLimit,
	}

	var resp searchResponse
	if err := g.post(ctx, "/crm/v3/objects/contacts/search", req, &resp); err != nil {
		metrics.CRMRequestErrors.WithLabelValues("search_contacts").Inc()
		logger.Base().Warn("contact search failed, degrading to empty result",
			zap.String("phone", normalized), zap.Error(err))
		return nil
	}

	contacts := make([]domain.Contact, 0, len(resp.Results))
	for _, r := range resp.Results {
		contacts = append(contacts, contactFromProperties(r.ID, r.Properties))
	}
	return contacts
}

// SearchContactByEmail performs an exact-match email lookup.
func (g *HubSpotGateway) SearchContactByEmail(ctx context.Context, email string) (string, bool) {
	if email == "" {
		return "", false
	}

	req := searchRequest{
		FilterGroups: []filterGroup{
			{Filters: []filter{{PropertyName: "email", Operator: "EQ", Value: email}}},
		},
		Properties: []string{"email"},
		Limit:      1,
	}

	var resp searchResponse
	if err := g.post(ctx, "/crm/v3/objects/contacts/search", req, &resp); err != nil {
		metrics.CRMRequestErrors.WithLabelValues("search_contact_email").Inc()
		logger.Base().Warn("contact email search failed", zap.Error(err))
		return "", false
	}
	if len(resp.Results) == 0 {
		return "", false
	}
	return resp.Results[0].ID, true
}

type associationList struct {
	Results []struct {
		ToObjectID json.Number `json:"toObjectId"`
	} `json:"results"`
}

type batchReadRequest struct {
	Properties []string  `json:"properties"`
	Inputs     []idInput `json:"inputs"`
}

type idInput struct {
	ID string `json:"id"`
}

type batchReadResponse struct {
	Results []objectResult `json:"results"`
}

// GetDealsForContact resolves the contact->deal association and batch-reads
// the deal properties. An empty association list short-circuits without a
// batch call.
func (g *HubSpotGateway) GetDealsForContact(ctx context.Context, contactID string) []domain.Deal {
	if contactID == "" {
		return nil
	}

	var assoc associationList
	path := fmt.Sprintf("/crm/v4/objects/contacts/%s/associations/deals", contactID)
	if err := g.get(ctx, path, &assoc); err != nil {
		metrics.CRMRequestErrors.WithLabelValues("deal_associations").Inc()
		logger.Base().Warn("deal association lookup failed",
			zap.String("contact_id", contactID), zap.Error(err))
		return nil
	}
	if len(assoc.Results) == 0 {
		return nil
	}

	inputs := make([]idInput, 0, len(assoc.Results))
	for i, r := range assoc.Results {
		if i >= searchLimit {
			break
		}
		inputs = append(inputs, idInput{ID: r.ToObjectID.String()})
	}

	var batch batchReadResponse
	req := batchReadRequest{Properties: dealProperties, Inputs: inputs}
	if err := g.post(ctx, "/crm/v3/objects/deals/batch/read", req, &batch); err != nil {
		metrics.CRMRequestErrors.WithLabelValues("deal_batch_read").Inc()
		logger.Base().Warn("deal batch read failed",
			zap.String("contact_id", contactID), zap.Error(err))
		return nil
	}

	deals := make([]domain.Deal, 0, len(batch.Results))
	for _, r := range batch.Results {
		deals = append(deals, dealFromProperties(r.ID, r.Properties))
	}
	return deals
}

// SearchDealsByAddress searches deals by address token match.
func (g *HubSpotGateway) SearchDealsByAddress(ctx context.Context, address string) []domain.Deal {
	if address == "" {
		return nil
	}

	req := searchRequest{
		FilterGroups: []filterGroup{
			{Filters: []filter{{PropertyName: "property_address", Operator: "CONTAINS_TOKEN", Value: address}}},
		},
		Properties: dealProperties,
		Limit:      searchLimit,
	}

	var resp searchResponse
	if err := g.post(ctx, "/crm/v3/objects/deals/search", req, &resp); err != nil {
		metrics.CRMRequestErrors.WithLabelValues("search_deals").Inc()
		logger.Base().Warn("deal address search failed",
			zap.String("address", address), zap.Error(err))
		return nil
	}

	deals := make([]domain.Deal, 0, len(resp.Results))
	for _, r := range resp.Results {
		deals = append(deals, dealFromProperties(r.ID, r.Properties))
	}
	return deals
}

type createObjectRequest struct {
	Properties map[string]string `json:"properties"`
}

// UpsertContact looks up by email first, then phone, and patches the match;
// otherwise it creates a new contact.
func (g *HubSpotGateway) UpsertContact(ctx context.Context, props map[string]string) (UpsertResult, error) {
	var existingID string
	if email := props["email"]; email != "" {
		if id, ok := g.SearchContactByEmail(ctx, email); ok {
			existingID = id
		}
	}
	if existingID == "" {
		if p := props["phone"]; p != "" {
			if found := g.SearchContactsByPhone(ctx, p); len(found) > 0 {
				existingID = found[0].ID
			}
		}
	}

	if existingID != "" {
		path := fmt.Sprintf("/crm/v3/objects/contacts/%s", existingID)
		var result objectResult
		if err := g.patch(ctx, path, createObjectRequest{Properties: props}, &result); err != nil {
			metrics.CRMRequestErrors.WithLabelValues("update_contact").Inc()
			return UpsertResult{}, fmt.Errorf("failed to update contact %s: %w", existingID, err)
		}
		logger.Base().Info("contact updated", zap.String("contact_id", existingID))
		return UpsertResult{ID: existingID, Outcome: OutcomeUpdated}, nil
	}

	var result objectResult
	if err := g.post(ctx, "/crm/v3/objects/contacts", createObjectRequest{Properties: props}, &result); err != nil {
		metrics.CRMRequestErrors.WithLabelValues("create_contact").Inc()
		return UpsertResult{}, fmt.Errorf("failed to create contact: %w", err)
	}
	logger.Base().Info("contact created", zap.String("contact_id", result.ID))
	return UpsertResult{ID: result.ID, Outcome: OutcomeCreated}, nil
}

// CreateDeal creates a deal, then best-effort associates it to a contact.
func (g *HubSpotGateway) CreateDeal(ctx context.Context, props map[string]string, contactID string) (string, error) {
	var result objectResult
	if err := g.post(ctx, "/crm/v3/objects/deals", createObjectRequest{Properties: props}, &result); err != nil {
		metrics.CRMRequestErrors.WithLabelValues("create_deal").Inc()
		return "", fmt.Errorf("failed to create deal: %w", err)
	}
	logger.Base().Info("deal created", zap.String("deal_id", result.ID))

	if contactID != "" {
		g.associate(ctx, "deals", result.ID, "contacts", contactID)
	}
	return result.ID, nil
}

// CreateNote creates a note and best-effort associates it to the contact
// and/or deal. Each association is independent; none of them can fail the
// note creation.
func (g *HubSpotGateway) CreateNote(ctx context.Context, body, contactID, dealID string) (string, error) {
	props := map[string]string{
		"hs_note_body": body,
		"hs_timestamp": fmt.Sprintf("%d", time.Now().UnixMilli()),
	}

	var result objectResult
	if err := g.post(ctx, "/crm/v3/objects/notes", createObjectRequest{Properties: props}, &result); err != nil {
		metrics.CRMRequestErrors.WithLabelValues("create_note").Inc()
		return "", fmt.Errorf("failed to create note: %w", err)
	}
	logger.Base().Info("note created", zap.String("note_id", result.ID))

	if contactID != "" {
		g.associate(ctx, "notes", result.ID, "contacts", contactID)
	}
	if dealID != "" {
		g.associate(ctx, "notes", result.ID, "deals", dealID)
	}
	return result.ID, nil
}

// associate creates a default-typed association between two objects.
// Best-effort: failures are logged and never propagated.
func (g *HubSpotGateway) associate(ctx context.Context, fromType, fromID, toType, toID string) {
	path := fmt.Sprintf("/crm/v4/objects/%s/%s/associations/default/%s/%s",
		fromType, fromID, toType, toID)

	if err := g.put(ctx, path, nil, nil); err != nil {
		metrics.CRMRequestErrors.WithLabelValues("associate").Inc()
		logger.Base().Warn("association failed, continuing",
			zap.String("from", fromType+"/"+fromID),
			zap.String("to", toType+"/"+toID),
			zap.Error(err))
		return
	}
	logger.Base().Debug("association created",
		zap.String("from", fromType+"/"+fromID),
		zap.String("to", toType+"/"+toID))
}

func (g *HubSpotGateway) get(ctx context.Context, path string, out interface{}) error {
	return g.do(ctx, http.MethodGet, path, nil, out)
}

func (g *HubSpotGateway) post(ctx context.Context, path string, in, out interface{}) error {
	return g.do(ctx, http.MethodPost, path, in, out)
}

func (g *HubSpotGateway) patch(ctx context.Context, path string, in, out interface{}) error {
	return g.do(ctx, http.MethodPatch, path, in, out)
}

func (g *HubSpotGateway) put(ctx context.Context, path string, in, out interface{}) error {
	return g.do(ctx, http.MethodPut, path, in, out)
}

func (g *HubSpotGateway) do(ctx context.Context, method, path string, in, out interface{}) error {
	url := g.baseURL + path

	var body io.Reader
	if in != nil {
		jsonData, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		body = bytes.NewBuffer(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+g.token)

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("CRM API error (status %d): %s", resp.StatusCode, string(bodyBytes))
	}

	if out != nil && len(bodyBytes) > 0 {
		if err := json.Unmarshal(bodyBytes, out); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return nil
}

func contactFromProperties(id string, props map[string]string) domain.Contact {
	return domain.Contact{
		ID:        id,
		FirstName: props["firstname"],
		LastName:  props["lastname"],
		Email:     props["email"],
		Phone:     props["phone"],
		Address:   props["address"],
		City:      props["city"],
		State:     props["state"],
		Zip:       props["zip"],
	}
}

func dealFromProperties(id string, props map[string]string) domain.Deal {
	return domain.Deal{
		ID:           id,
		Name:         props["dealname"],
		Amount:       props["amount"],
		Address:      props["property_address"],
		City:         props["property_city"],
		State:        props["property_state"],
		Zip:          props["property_zip"],
		PropertyType: props["property_type"],
		AskingPrice:  props["asking_price"],
		Timeline:     props["timeline"],
		Motivation:   props["motivation"],
	}
}
