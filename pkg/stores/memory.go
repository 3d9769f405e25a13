package stores

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"
)

// MemoryStore is a mutex-guarded in-memory WatchStore. It backs tests and
// embedded single-process deployments.
type MemoryStore struct {
	mu    sync.RWMutex
	rules map[string]*WatchRuleRecord // keyed by ID
	data  map[string][]*WatchDataRecord
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		rules: make(map[string]*WatchRuleRecord),
		data:  make(map[string][]*WatchDataRecord),
	}
}

// Init is a no-op for the in-memory store.
func (s *MemoryStore) Init(_ context.Context) error { return nil }

// Close is a no-op for the in-memory store.
func (s *MemoryStore) Close() error { return nil }

// Migrate is a no-op for the in-memory store.
func (s *MemoryStore) Migrate(_ context.Context) error { return nil }

// CreateWatchRule creates a new watch rule record.
func (s *MemoryStore) CreateWatchRule(_ context.Context, rule *WatchRuleRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.rules[rule.ID]; exists {
		return fmt.Errorf("watch rule already exists: %s", rule.ID)
	}
	for _, existing := range s.rules {
		if existing.Name == rule.Name {
			return fmt.Errorf("watch rule already exists: %s", rule.Name)
		}
	}

	stored := *rule
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = time.Now().UTC()
	}
	stored.UpdatedAt = stored.CreatedAt
	s.rules[rule.ID] = &stored
	return nil
}

// GetWatchRuleByName retrieves a watch rule by its name.
func (s *MemoryStore) GetWatchRuleByName(_ context.Context, name string) (*WatchRuleRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, rule := range s.rules {
		if rule.Name == name {
			copied := *rule
			return &copied, nil
		}
	}
	return nil, fmt.Errorf("watch rule not found: %s: %w", name, ErrNotFound)
}

// GetWatchRuleByID retrieves a watch rule by its ID.
func (s *MemoryStore) GetWatchRuleByID(_ context.Context, id string) (*WatchRuleRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rule, ok := s.rules[id]
	if !ok {
		return nil, fmt.Errorf("watch rule not found: %s: %w", id, ErrNotFound)
	}
	copied := *rule
	return &copied, nil
}

// UpdateWatchRule updates the mutable fields of a watch rule record.
func (s *MemoryStore) UpdateWatchRule(_ context.Context, rule *WatchRuleRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.rules[rule.ID]
	if !ok {
		return fmt.Errorf("watch rule not found: %s: %w", rule.ID, ErrNotFound)
	}

	existing.Name = rule.Name
	existing.StackID = rule.StackID
	existing.State = rule.State
	existing.Rule = rule.Rule
	existing.LastEvaluated = rule.LastEvaluated
	existing.UpdatedAt = time.Now().UTC()
	return nil
}

// DeleteWatchRule deletes a watch rule and the samples it owns.
func (s *MemoryStore) DeleteWatchRule(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.rules[id]; !ok {
		return fmt.Errorf("watch rule not found: %s: %w", id, ErrNotFound)
	}
	delete(s.rules, id)
	delete(s.data, id)
	return nil
}

// ListWatchRules lists all watch rules ordered by name.
func (s *MemoryStore) ListWatchRules(_ context.Context) ([]*WatchRuleRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rules := make([]*WatchRuleRecord, 0, len(s.rules))
	for _, rule := range s.rules {
		copied := *rule
		rules = append(rules, &copied)
	}
	sort.Slice(rules, func(i, j int) bool { return rules[i].Name < rules[j].Name })
	return rules, nil
}

// CreateWatchData appends a new metric sample record.
func (s *MemoryStore) CreateWatchData(_ context.Context, data *WatchDataRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	copied := *data
	s.data[data.WatchRuleID] = append(s.data[data.WatchRuleID], &copied)
	return nil
}

// ListWatchData lists all samples for a watch rule, oldest first.
func (s *MemoryStore) ListWatchData(_ context.Context, watchRuleID string) ([]*WatchDataRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stored := s.data[watchRuleID]
	samples := make([]*WatchDataRecord, 0, len(stored))
	for _, sample := range stored {
		copied := *sample
		samples = append(samples, &copied)
	}
	sort.Slice(samples, func(i, j int) bool { return samples[i].CreatedAt.Before(samples[j].CreatedAt) })
	return samples, nil
}

// HealthCheck always succeeds for the in-memory store.
func (s *MemoryStore) HealthCheck(_ context.Context) error { return nil }
