package leadstatus

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hauslink/voice-crm-bridge/internal/domain"
	"github.com/redis/go-redis/v9"
)

const keyPrefix = "bridge_lead_status:"

// RedisStore keeps lead status in Redis so entries survive restarts and are
// shared across replicas. Same merge semantics as MemoryStore.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore connects to Redis and verifies the connection.
func NewRedisStore(host, port, password string) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%s", host, port),
		Password: password,
		DB:       0,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := client.Ping(ctx).Result(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &RedisStore{client: client}, nil
}

func (s *RedisStore) SetStatus(ctx context.Context, leadID, status, verifiedByPhone string) (domain.LeadStatusEntry, error) {
	entry, _ := s.GetStatus(ctx, leadID)
	entry.LeadID = leadID
	entry.Status = status
	if status == domain.StatusOwnerVerified && verifiedByPhone != "" {
		entry.VerifiedBy = verifiedByPhone
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return entry, err
	}
	// Entries never expire; ttl 0 keeps them for the store's lifetime.
	if err := s.client.Set(ctx, keyPrefix+leadID, data, 0).Err(); err != nil {
		return entry, fmt.Errorf("failed to store lead status: %w", err)
	}
	return entry, nil
}

func (s *RedisStore) GetStatus(ctx context.Context, leadID string) (domain.LeadStatusEntry, bool) {
	val, err := s.client.Get(ctx, keyPrefix+leadID).Result()
	if err != nil {
		return domain.LeadStatusEntry{}, false
	}

	var entry domain.LeadStatusEntry
	if err := json.Unmarshal([]byte(val), &entry); err != nil {
		return domain.LeadStatusEntry{}, false
	}
	return entry, true
}

var _ Store = (*RedisStore)(nil)
