// Package leadstatus tracks per-lead verification state across calls, used
// to suppress redundant outreach to numbers already confirmed reached.
//
// Two backends implement Store: a process-lifetime in-memory map and an
// optional Redis-backed store. Durability is a deployment choice, not a
// contract: the in-memory store loses entries on restart.
package leadstatus

import (
	"context"
	"sync"

	"github.com/hauslink/voice-crm-bridge/internal/domain"
)

// Store is the lead-status interface consumed by the webhook entry point.
type Store interface {
	// SetStatus merges a status update into any existing entry. The status
	// always overwrites; verifiedBy is only updated when the new status is
	// owner_verified, otherwise the previous value is retained.
	SetStatus(ctx context.Context, leadID, status, verifiedByPhone string) (domain.LeadStatusEntry, error)

	// GetStatus returns the current entry, or ok=false when none exists.
	GetStatus(ctx context.Context, leadID string) (domain.LeadStatusEntry, bool)
}

// MemoryStore is the default in-memory backend.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]domain.LeadStatusEntry
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]domain.LeadStatusEntry)}
}

func (s *MemoryStore) SetStatus(_ context.Context, leadID, status, verifiedByPhone string) (domain.LeadStatusEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry := s.entries[leadID]
	entry.LeadID = leadID
	entry.Status = status
	if status == domain.StatusOwnerVerified && verifiedByPhone != "" {
		entry.VerifiedBy = verifiedByPhone
	}
	s.entries[leadID] = entry
	return entry, nil
}

func (s *MemoryStore) GetStatus(_ context.Context, leadID string) (domain.LeadStatusEntry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, ok := s.entries[leadID]
	return entry, ok
}

var _ Store = (*MemoryStore)(nil)
