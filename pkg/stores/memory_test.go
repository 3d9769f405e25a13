package stores

import (
	"context"
	"errors"
	"testing"
	"time"
)

func memoryRule(id, name string) *WatchRuleRecord {
	now := time.Date(2026, 8, 23, 12, 0, 0, 0, time.UTC)
	return &WatchRuleRecord{
		ID:            id,
		Name:          name,
		StackID:       "web",
		State:         "NODATA",
		Rule:          []byte(`{"Period":60}`),
		LastEvaluated: now,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

func TestMemoryStore_RuleCRUD(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	rule := memoryRule("rule-001", "cpu-high")
	if err := store.CreateWatchRule(ctx, rule); err != nil {
		t.Fatalf("failed to create rule: %v", err)
	}

	// Duplicate IDs and names are rejected.
	if err := store.CreateWatchRule(ctx, memoryRule("rule-001", "other")); err == nil {
		t.Error("expected duplicate ID to be rejected")
	}
	if err := store.CreateWatchRule(ctx, memoryRule("rule-002", "cpu-high")); err == nil {
		t.Error("expected duplicate name to be rejected")
	}

	byName, err := store.GetWatchRuleByName(ctx, "cpu-high")
	if err != nil {
		t.Fatalf("failed to get rule by name: %v", err)
	}
	byID, err := store.GetWatchRuleByID(ctx, "rule-001")
	if err != nil {
		t.Fatalf("failed to get rule by ID: %v", err)
	}
	if byName.ID != byID.ID {
		t.Errorf("lookups disagree: %q vs %q", byName.ID, byID.ID)
	}

	rule.State = "ALARM"
	if err := store.UpdateWatchRule(ctx, rule); err != nil {
		t.Fatalf("failed to update rule: %v", err)
	}
	updated, _ := store.GetWatchRuleByID(ctx, "rule-001")
	if updated.State != "ALARM" {
		t.Errorf("expected updated state ALARM, got %s", updated.State)
	}

	if err := store.DeleteWatchRule(ctx, "rule-001"); err != nil {
		t.Fatalf("failed to delete rule: %v", err)
	}
	if _, err := store.GetWatchRuleByID(ctx, "rule-001"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound after delete, got %v", err)
	}
}

func TestMemoryStore_NotFound(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	if _, err := store.GetWatchRuleByName(ctx, "ghost"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if _, err := store.GetWatchRuleByID(ctx, "ghost"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if err := store.UpdateWatchRule(ctx, memoryRule("ghost", "ghost")); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if err := store.DeleteWatchRule(ctx, "ghost"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestMemoryStore_ListOrdering(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	for _, name := range []string{"zeta", "alpha", "mid"} {
		if err := store.CreateWatchRule(ctx, memoryRule("id-"+name, name)); err != nil {
			t.Fatalf("failed to create rule %s: %v", name, err)
		}
	}

	rules, err := store.ListWatchRules(ctx)
	if err != nil {
		t.Fatalf("failed to list rules: %v", err)
	}
	if len(rules) != 3 {
		t.Fatalf("expected 3 rules, got %d", len(rules))
	}
	want := []string{"alpha", "mid", "zeta"}
	for i, name := range want {
		if rules[i].Name != name {
			t.Errorf("expected rule %d to be %s, got %s", i, name, rules[i].Name)
		}
	}
}

func TestMemoryStore_WatchDataOrdering(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	if err := store.CreateWatchRule(ctx, memoryRule("rule-001", "cpu-high")); err != nil {
		t.Fatalf("failed to create rule: %v", err)
	}

	base := time.Date(2026, 8, 23, 12, 0, 0, 0, time.UTC)
	for i, offset := range []time.Duration{2 * time.Minute, 0, time.Minute} {
		record := &WatchDataRecord{
			ID:          string(rune('a' + i)),
			WatchRuleID: "rule-001",
			Data:        []byte(`{}`),
			CreatedAt:   base.Add(offset),
		}
		if err := store.CreateWatchData(ctx, record); err != nil {
			t.Fatalf("failed to create sample: %v", err)
		}
	}

	samples, err := store.ListWatchData(ctx, "rule-001")
	if err != nil {
		t.Fatalf("failed to list samples: %v", err)
	}
	if len(samples) != 3 {
		t.Fatalf("expected 3 samples, got %d", len(samples))
	}
	for i := 1; i < len(samples); i++ {
		if samples[i].CreatedAt.Before(samples[i-1].CreatedAt) {
			t.Errorf("samples out of order at %d", i)
		}
	}
}

func TestMemoryStore_DeleteCascadesSamples(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	if err := store.CreateWatchRule(ctx, memoryRule("rule-001", "cpu-high")); err != nil {
		t.Fatalf("failed to create rule: %v", err)
	}
	if err := store.CreateWatchData(ctx, &WatchDataRecord{
		ID: "d1", WatchRuleID: "rule-001", Data: []byte(`{}`), CreatedAt: time.Now(),
	}); err != nil {
		t.Fatalf("failed to create sample: %v", err)
	}

	if err := store.DeleteWatchRule(ctx, "rule-001"); err != nil {
		t.Fatalf("failed to delete rule: %v", err)
	}
	samples, _ := store.ListWatchData(ctx, "rule-001")
	if len(samples) != 0 {
		t.Errorf("expected samples to be removed with the rule, got %d", len(samples))
	}
}

func TestMemoryStore_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	if err := store.CreateWatchRule(ctx, memoryRule("rule-001", "cpu-high")); err != nil {
		t.Fatalf("failed to create rule: %v", err)
	}

	got, _ := store.GetWatchRuleByID(ctx, "rule-001")
	got.State = "ALARM"

	again, _ := store.GetWatchRuleByID(ctx, "rule-001")
	if again.State != "NODATA" {
		t.Errorf("mutating a returned record must not affect the store, got %s", again.State)
	}
}
