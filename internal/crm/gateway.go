// Package crm translates bridge operations into CRM API calls. Two
// interchangeable backends implement the Gateway interface: a HubSpot REST
// client and an in-memory gateway used when no CRM token is configured (and
// as the test double). The backend is chosen once at process start; callers
// depend only on the interface.
package crm

import (
	"context"

	"github.com/hauslink/voice-crm-bridge/internal/domain"
)

// UpsertOutcome reports whether an upsert created a new record or patched an
// existing one.
type UpsertOutcome string

const (
	OutcomeCreated UpsertOutcome = "created"
	OutcomeUpdated UpsertOutcome = "updated"
)

// UpsertResult is the outcome of a contact upsert.
type UpsertResult struct {
	ID      string
	Outcome UpsertOutcome
}

// Gateway is the CRM adapter used by the resolver and the tool dispatcher.
//
// Lookup methods are fail-open: transport or API failures are logged and
// degrade to empty results, never surfacing to the webhook caller. Write
// methods return errors, but association side effects inside them are
// best-effort by contract (logged and non-fatal).
type Gateway interface {
	// SearchContactsByPhone returns up to 5 contacts matching the phone
	// number, in the CRM's own relevance order. An empty or non-numeric
	// phone short-circuits to an empty result without a network call.
	SearchContactsByPhone(ctx context.Context, phone string) []domain.Contact

	// SearchContactByEmail returns the id of the contact whose email matches
	// exactly, or ok=false when there is none.
	SearchContactByEmail(ctx context.Context, email string) (id string, ok bool)

	// GetDealsForContact resolves the contact's associated deals. An empty
	// association list short-circuits without a batch read.
	GetDealsForContact(ctx context.Context, contactID string) []domain.Deal

	// SearchDealsByAddress returns up to 5 deals whose address matches the
	// given substring.
	SearchDealsByAddress(ctx context.Context, address string) []domain.Deal

	// UpsertContact looks a contact up by email (preferred) or phone and
	// patches it, creating it when no match exists. The same key never
	// produces two creates within one call.
	UpsertContact(ctx context.Context, props map[string]string) (UpsertResult, error)

	// CreateDeal creates a deal unconditionally, then best-effort associates
	// it to the contact when contactID is non-empty.
	CreateDeal(ctx context.Context, props map[string]string, contactID string) (string, error)

	// CreateNote creates a note, then best-effort associates it to the
	// contact and/or deal. Association failures are independent and do not
	// roll back the note.
	CreateNote(ctx context.Context, body, contactID, dealID string) (string, error)
}
