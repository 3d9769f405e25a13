package stores

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"
)

// setupTestStore creates a migrated SQLite store backed by a temp file.
func setupTestStore(t *testing.T) *SQLiteStore {
	t.Helper()

	store, err := NewSQLiteStore(Config{
		Path: filepath.Join(t.TempDir(), "test.db"),
	})
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}

	ctx := context.Background()
	if err := store.Init(ctx); err != nil {
		t.Fatalf("failed to initialize store: %v", err)
	}

	if err := store.Migrate(ctx); err != nil {
		t.Fatalf("failed to migrate store: %v", err)
	}

	t.Cleanup(func() { store.Close() })
	return store
}

func storedRule(id, name string) *WatchRuleRecord {
	now := time.Date(2026, 8, 23, 12, 0, 0, 0, time.UTC)
	return &WatchRuleRecord{
		ID:            id,
		Name:          name,
		StackID:       "web",
		State:         "NODATA",
		Rule:          []byte(`{"MetricName":"CPUUtilization","Period":60}`),
		LastEvaluated: now,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// TestStoreLifecycle tests database initialization and closure
func TestStoreLifecycle(t *testing.T) {
	store, err := NewSQLiteStore(Config{
		Path: filepath.Join(t.TempDir(), "test.db"),
	})
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}

	ctx := context.Background()
	if err := store.Init(ctx); err != nil {
		t.Fatalf("failed to initialize store: %v", err)
	}

	if err := store.HealthCheck(ctx); err != nil {
		t.Fatalf("health check failed: %v", err)
	}

	if err := store.Close(); err != nil {
		t.Fatalf("failed to close store: %v", err)
	}
}

// TestStoreMigrations tests database migrations
func TestStoreMigrations(t *testing.T) {
	store := setupTestStore(t)

	ctx := context.Background()

	// Check that tables exist by querying them
	tables := []string{"watch_rules", "watch_data"}
	for _, table := range tables {
		query := "SELECT COUNT(*) FROM " + table
		var count int
		err := store.db.QueryRowContext(ctx, query).Scan(&count)
		if err != nil {
			t.Errorf("table %s does not exist or is not accessible: %v", table, err)
		}
	}
}

// TestWatchRuleCRUD tests watch rule CRUD operations
func TestWatchRuleCRUD(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	rule := storedRule("rule-001", "cpu-high")
	if err := store.CreateWatchRule(ctx, rule); err != nil {
		t.Fatalf("failed to create watch rule: %v", err)
	}

	// Read by name
	byName, err := store.GetWatchRuleByName(ctx, "cpu-high")
	if err != nil {
		t.Fatalf("failed to get watch rule by name: %v", err)
	}
	if byName.ID != rule.ID {
		t.Errorf("expected ID %s, got %s", rule.ID, byName.ID)
	}
	if byName.StackID != rule.StackID {
		t.Errorf("expected StackID %s, got %s", rule.StackID, byName.StackID)
	}
	if string(byName.Rule) != string(rule.Rule) {
		t.Errorf("expected rule blob %s, got %s", rule.Rule, byName.Rule)
	}

	// Read by ID
	byID, err := store.GetWatchRuleByID(ctx, "rule-001")
	if err != nil {
		t.Fatalf("failed to get watch rule by ID: %v", err)
	}
	if byID.Name != "cpu-high" {
		t.Errorf("expected name cpu-high, got %s", byID.Name)
	}

	// Update
	rule.State = "ALARM"
	rule.LastEvaluated = rule.LastEvaluated.Add(time.Minute)
	if err := store.UpdateWatchRule(ctx, rule); err != nil {
		t.Fatalf("failed to update watch rule: %v", err)
	}
	updated, err := store.GetWatchRuleByID(ctx, "rule-001")
	if err != nil {
		t.Fatalf("failed to get updated rule: %v", err)
	}
	if updated.State != "ALARM" {
		t.Errorf("expected state ALARM, got %s", updated.State)
	}
	if !updated.LastEvaluated.Equal(rule.LastEvaluated) {
		t.Errorf("expected last evaluated %v, got %v", rule.LastEvaluated, updated.LastEvaluated)
	}

	// Delete
	if err := store.DeleteWatchRule(ctx, "rule-001"); err != nil {
		t.Fatalf("failed to delete watch rule: %v", err)
	}
	if _, err := store.GetWatchRuleByID(ctx, "rule-001"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound after delete, got %v", err)
	}
}

// TestWatchRuleNotFound tests not-found sentinel wrapping
func TestWatchRuleNotFound(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	if _, err := store.GetWatchRuleByName(ctx, "ghost"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if err := store.UpdateWatchRule(ctx, storedRule("ghost", "ghost")); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound on update, got %v", err)
	}
	if err := store.DeleteWatchRule(ctx, "ghost"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound on delete, got %v", err)
	}
}

// TestListWatchRules tests listing and ordering
func TestListWatchRules(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	for _, name := range []string{"zeta", "alpha"} {
		if err := store.CreateWatchRule(ctx, storedRule("id-"+name, name)); err != nil {
			t.Fatalf("failed to create rule %s: %v", name, err)
		}
	}

	rules, err := store.ListWatchRules(ctx)
	if err != nil {
		t.Fatalf("failed to list watch rules: %v", err)
	}
	if len(rules) != 2 {
		t.Fatalf("expected 2 rules, got %d", len(rules))
	}
	if rules[0].Name != "alpha" || rules[1].Name != "zeta" {
		t.Errorf("expected rules ordered by name, got %s, %s", rules[0].Name, rules[1].Name)
	}
}

// TestWatchDataAppendAndList tests sample persistence
func TestWatchDataAppendAndList(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	if err := store.CreateWatchRule(ctx, storedRule("rule-001", "cpu-high")); err != nil {
		t.Fatalf("failed to create rule: %v", err)
	}

	base := time.Date(2026, 8, 23, 12, 0, 0, 0, time.UTC)
	for i, offset := range []time.Duration{time.Minute, 0} {
		record := &WatchDataRecord{
			ID:          string(rune('a' + i)),
			WatchRuleID: "rule-001",
			Data:        []byte(`{"CPUUtilization":{"Value":50}}`),
			CreatedAt:   base.Add(offset),
		}
		if err := store.CreateWatchData(ctx, record); err != nil {
			t.Fatalf("failed to create watch data: %v", err)
		}
	}

	samples, err := store.ListWatchData(ctx, "rule-001")
	if err != nil {
		t.Fatalf("failed to list watch data: %v", err)
	}
	if len(samples) != 2 {
		t.Fatalf("expected 2 samples, got %d", len(samples))
	}
	if samples[0].CreatedAt.After(samples[1].CreatedAt) {
		t.Error("expected samples ordered oldest first")
	}
}

// TestWatchDataCascadeDelete tests the foreign key cascade
func TestWatchDataCascadeDelete(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	if err := store.CreateWatchRule(ctx, storedRule("rule-001", "cpu-high")); err != nil {
		t.Fatalf("failed to create rule: %v", err)
	}
	if err := store.CreateWatchData(ctx, &WatchDataRecord{
		ID:          "d1",
		WatchRuleID: "rule-001",
		Data:        []byte(`{}`),
		CreatedAt:   time.Now().UTC(),
	}); err != nil {
		t.Fatalf("failed to create watch data: %v", err)
	}

	if err := store.DeleteWatchRule(ctx, "rule-001"); err != nil {
		t.Fatalf("failed to delete rule: %v", err)
	}

	samples, err := store.ListWatchData(ctx, "rule-001")
	if err != nil {
		t.Fatalf("failed to list watch data: %v", err)
	}
	if len(samples) != 0 {
		t.Errorf("expected cascade to remove samples, got %d", len(samples))
	}
}
