package crm

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/hauslink/voice-crm-bridge/internal/domain"
	"github.com/hauslink/voice-crm-bridge/internal/phone"
	"github.com/hauslink/voice-crm-bridge/pkg/logger"
)

// MemoryGateway is an in-memory Gateway backend. It serves two purposes:
// the dry-run backend when no CRM token is configured, and the test double
// for handler and dispatcher tests.
type MemoryGateway struct {
	mu           sync.RWMutex
	contacts     map[string]domain.Contact
	deals        map[string]domain.Deal
	notes        map[string]domain.Note
	dealsByOwner map[string][]string // contactID -> deal ids
	nextID       int

	// FailNoteAssociation makes note associations fail without failing the
	// note itself, for exercising the best-effort contract in tests.
	FailNoteAssociation bool
}

// NewMemoryGateway creates an empty in-memory gateway.
func NewMemoryGateway() *MemoryGateway {
	return &MemoryGateway{
		contacts:     make(map[string]domain.Contact),
		deals:        make(map[string]domain.Deal),
		notes:        make(map[string]domain.Note),
		dealsByOwner: make(map[string][]string),
	}
}

// SeedContact inserts a contact with a generated id and returns it.
func (g *MemoryGateway) SeedContact(c domain.Contact) string {
	g.mu.Lock()
	defer g.mu.Unlock()
	id := g.generateID()
	c.ID = id
	c.Phone = phone.Normalize(c.Phone)
	g.contacts[id] = c
	return id
}

// SeedDeal inserts a deal, optionally associated to a contact.
func (g *MemoryGateway) SeedDeal(d domain.Deal, contactID string) string {
	g.mu.Lock()
	defer g.mu.Unlock()
	id := g.generateID()
	d.ID = id
	g.deals[id] = d
	if contactID != "" {
		g.dealsByOwner[contactID] = append(g.dealsByOwner[contactID], id)
	}
	return id
}

// Notes returns all notes created so far.
func (g *MemoryGateway) Notes() []domain.Note {
	g.mu.RLock()
	defer g.mu.RUnlock()
	notes := make([]domain.Note, 0, len(g.notes))
	for _, n := range g.notes {
		notes = append(notes, n)
	}
	return notes
}

// ContactCount returns the number of stored contacts.
func (g *MemoryGateway) ContactCount() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.contacts)
}

func (g *MemoryGateway) SearchContactsByPhone(_ context.Context, rawPhone string) []domain.Contact {
	normalized := phone.Normalize(rawPhone)
	if normalized == "" {
		return nil
	}

	g.mu.RLock()
	defer g.mu.RUnlock()
	var found []domain.Contact
	for _, c := range g.contacts {
		if c.Phone == normalized {
			found = append(found, c)
			if len(found) == searchLimit {
				break
			}
		}
	}
	return found
}

func (g *MemoryGateway) SearchContactByEmail(_ context.Context, email string) (string, bool) {
	if email == "" {
		return "", false
	}

	g.mu.RLock()
	defer g.mu.RUnlock()
	for _, c := range g.contacts {
		if strings.EqualFold(c.Email, email) {
			return c.ID, true
		}
	}
	return "", false
}

func (g *MemoryGateway) GetDealsForContact(_ context.Context, contactID string) []domain.Deal {
	g.mu.RLock()
	defer g.mu.RUnlock()
	ids := g.dealsByOwner[contactID]
	if len(ids) == 0 {
		return nil
	}
	deals := make([]domain.Deal, 0, len(ids))
	for _, id := range ids {
		if d, ok := g.deals[id]; ok {
			deals = append(deals, d)
		}
	}
	return deals
}

func (g *MemoryGateway) SearchDealsByAddress(_ context.Context, address string) []domain.Deal {
	if address == "" {
		return nil
	}

	g.mu.RLock()
	defer g.mu.RUnlock()
	needle := strings.ToLower(address)
	var found []domain.Deal
	for _, d := range g.deals {
		if strings.Contains(strings.ToLower(d.Address), needle) {
			found = append(found, d)
			if len(found) == searchLimit {
				break
			}
		}
	}
	return found
}

func (g *MemoryGateway) UpsertContact(ctx context.Context, props map[string]string) (UpsertResult, error) {
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

	g.mu.Lock()
	defer g.mu.Unlock()

	if existingID != "" {
		c := g.contacts[existingID]
		applyContactProps(&c, props)
		g.contacts[existingID] = c
		return UpsertResult{ID: existingID, Outcome: OutcomeUpdated}, nil
	}

	id := g.generateID()
	c := domain.Contact{ID: id}
	applyContactProps(&c, props)
	g.contacts[id] = c
	return UpsertResult{ID: id, Outcome: OutcomeCreated}, nil
}

func (g *MemoryGateway) CreateDeal(_ context.Context, props map[string]string, contactID string) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	id := g.generateID()
	g.deals[id] = domain.Deal{
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
	if contactID != "" {
		g.dealsByOwner[contactID] = append(g.dealsByOwner[contactID], id)
	}
	return id, nil
}

func (g *MemoryGateway) CreateNote(_ context.Context, body, contactID, dealID string) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	id := g.generateID()
	g.notes[id] = domain.Note{ID: id, Body: body}

	if g.FailNoteAssociation && (contactID != "" || dealID != "") {
		logger.Base().Warn("association failed, continuing (simulated)")
	}
	return id, nil
}

func applyContactProps(c *domain.Contact, props map[string]string) {
	if v, ok := props["firstname"]; ok {
		c.FirstName = v
	}
	if v, ok := props["lastname"]; ok {
		c.LastName = v
	}
	if v, ok := props["email"]; ok {
		c.Email = v
	}
	if v, ok := props["phone"]; ok {
		c.Phone = phone.Normalize(v)
	}
	if v, ok := props["address"]; ok {
		c.Address = v
	}
	if v, ok := props["city"]; ok {
		c.City = v
	}
	if v, ok := props["state"]; ok {
		c.State = v
	}
	if v, ok := props["zip"]; ok {
		c.Zip = v
	}
}

func (g *MemoryGateway) generateID() string {
	g.nextID++
	return fmt.Sprintf("mem-%d", g.nextID)
}

var _ Gateway = (*HubSpotGateway)(nil)
var _ Gateway = (*MemoryGateway)(nil)
