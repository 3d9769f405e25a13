package stores

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound marks lookups that found no record. It is distinct from
// transient I/O faults: callers can branch on it with errors.Is.
var ErrNotFound = errors.New("record not found")

// WatchRuleRecord is the persisted form of a watch rule.
type WatchRuleRecord struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	StackID       string    `json:"stack_id"`
	State         string    `json:"state"`
	Rule          []byte    `json:"rule"` // JSON blob
	LastEvaluated time.Time `json:"last_evaluated"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// WatchDataRecord is one persisted metric sample. Records are append-only
// and never mutated after creation.
type WatchDataRecord struct {
	ID          string    `json:"id"`
	WatchRuleID string    `json:"watch_rule_id"`
	Data        []byte    `json:"data"` // JSON blob
	CreatedAt   time.Time `json:"created_at"`
}

// WatchStore defines the persistence layer for watch rules and their
// buffered metric samples.
type WatchStore interface {
	// Lifecycle
	Init(ctx context.Context) error
	Close() error
	Migrate(ctx context.Context) error

	// Watch rule operations
	CreateWatchRule(ctx context.Context, rule *WatchRuleRecord) error
	GetWatchRuleByName(ctx context.Context, name string) (*WatchRuleRecord, error)
	GetWatchRuleByID(ctx context.Context, id string) (*WatchRuleRecord, error)
	UpdateWatchRule(ctx context.Context, rule *WatchRuleRecord) error
	DeleteWatchRule(ctx context.Context, id string) error
	ListWatchRules(ctx context.Context) ([]*WatchRuleRecord, error)

	// Watch data operations
	CreateWatchData(ctx context.Context, data *WatchDataRecord) error
	ListWatchData(ctx context.Context, watchRuleID string) ([]*WatchDataRecord, error)

	// Utility
	HealthCheck(ctx context.Context) error
}
