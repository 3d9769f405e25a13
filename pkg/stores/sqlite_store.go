package stores

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	// SQLite driver
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// SQLiteStore implements the WatchStore interface using SQLite.
type SQLiteStore struct {
	db   *sql.DB
	path string
}

// Config holds SQLite store configuration.
type Config struct {
	Path            string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// NewSQLiteStore creates a new SQLite store instance.
func NewSQLiteStore(cfg Config) (*SQLiteStore, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("database path is required")
	}

	// Set defaults
	if cfg.MaxOpenConns == 0 {
		cfg.MaxOpenConns = 25
	}
	if cfg.MaxIdleConns == 0 {
		cfg.MaxIdleConns = 5
	}
	if cfg.ConnMaxLifetime == 0 {
		cfg.ConnMaxLifetime = 5 * time.Minute
	}

	return &SQLiteStore{
		path: cfg.Path,
	}, nil
}

// Init initializes the database connection and enables WAL mode.
func (s *SQLiteStore) Init(ctx context.Context) error {
	// Open database with SQLite-specific connection parameters
	dsn := fmt.Sprintf("%s?_foreign_keys=on&_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL&_txlock=immediate", s.path)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}

	// Configure connection pool
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	// Verify connection and set PRAGMAs
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to ping database: %w", err)
	}

	// Ensure foreign keys are enabled (connection-level setting)
	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys = ON"); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	s.db = db
	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Migrate runs database migrations.
func (s *SQLiteStore) Migrate(_ context.Context) error {
	if s.db == nil {
		return fmt.Errorf("database not initialized")
	}

	// Create migration source from embedded FS
	sourceDriver, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("failed to create migration source: %w", err)
	}

	// Create database driver
	driver, err := sqlite3.WithInstance(s.db, &sqlite3.Config{})
	if err != nil {
		return fmt.Errorf("failed to create database driver: %w", err)
	}

	// Create migration instance
	m, err := migrate.NewWithInstance("iofs", sourceDriver, "sqlite3", driver)
	if err != nil {
		return fmt.Errorf("failed to create migration instance: %w", err)
	}

	// Run migrations
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}

// CreateWatchRule creates a new watch rule record.
func (s *SQLiteStore) CreateWatchRule(ctx context.Context, rule *WatchRuleRecord) error {
	query := `
		INSERT INTO watch_rules (id, name, stack_id, state, rule, last_evaluated, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := s.db.ExecContext(ctx, query,
		rule.ID,
		rule.Name,
		rule.StackID,
		rule.State,
		rule.Rule,
		rule.LastEvaluated,
		rule.CreatedAt,
		rule.UpdatedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to create watch rule: %w", err)
	}

	return nil
}

// GetWatchRuleByName retrieves a watch rule by its name.
func (s *SQLiteStore) GetWatchRuleByName(ctx context.Context, name string) (*WatchRuleRecord, error) {
	query := `
		SELECT id, name, stack_id, state, rule, last_evaluated, created_at, updated_at
		FROM watch_rules
		WHERE name = ?
	`

	return s.scanWatchRule(s.db.QueryRowContext(ctx, query, name), name)
}

// GetWatchRuleByID retrieves a watch rule by its ID.
func (s *SQLiteStore) GetWatchRuleByID(ctx context.Context, id string) (*WatchRuleRecord, error) {
	query := `
		SELECT id, name, stack_id, state, rule, last_evaluated, created_at, updated_at
		FROM watch_rules
		WHERE id = ?
	`

	return s.scanWatchRule(s.db.QueryRowContext(ctx, query, id), id)
}

// scanWatchRule scans a single watch rule row.
func (s *SQLiteStore) scanWatchRule(row *sql.Row, key string) (*WatchRuleRecord, error) {
	rule := &WatchRuleRecord{}
	err := row.Scan(
		&rule.ID,
		&rule.Name,
		&rule.StackID,
		&rule.State,
		&rule.Rule,
		&rule.LastEvaluated,
		&rule.CreatedAt,
		&rule.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("watch rule not found: %s: %w", key, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get watch rule: %w", err)
	}

	return rule, nil
}

// UpdateWatchRule updates the mutable fields of a watch rule record.
func (s *SQLiteStore) UpdateWatchRule(ctx context.Context, rule *WatchRuleRecord) error {
	query := `
		UPDATE watch_rules
		SET name = ?, stack_id = ?, state = ?, rule = ?, last_evaluated = ?, updated_at = ?
		WHERE id = ?
	`

	result, err := s.db.ExecContext(ctx, query,
		rule.Name,
		rule.StackID,
		rule.State,
		rule.Rule,
		rule.LastEvaluated,
		time.Now().UTC(),
		rule.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update watch rule: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rows == 0 {
		return fmt.Errorf("watch rule not found: %s: %w", rule.ID, ErrNotFound)
	}

	return nil
}

// DeleteWatchRule deletes a watch rule by ID. Samples owned by the rule are
// removed by the foreign key cascade.
func (s *SQLiteStore) DeleteWatchRule(ctx context.Context, id string) error {
	query := `DELETE FROM watch_rules WHERE id = ?`

	result, err := s.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete watch rule: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rows == 0 {
		return fmt.Errorf("watch rule not found: %s: %w", id, ErrNotFound)
	}

	return nil
}

// ListWatchRules lists all watch rules ordered by name.
func (s *SQLiteStore) ListWatchRules(ctx context.Context) ([]*WatchRuleRecord, error) {
	query := `
		SELECT id, name, stack_id, state, rule, last_evaluated, created_at, updated_at
		FROM watch_rules
		ORDER BY name ASC
	`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list watch rules: %w", err)
	}
	defer rows.Close()

	rules := []*WatchRuleRecord{}
	for rows.Next() {
		rule := &WatchRuleRecord{}
		err := rows.Scan(
			&rule.ID,
			&rule.Name,
			&rule.StackID,
			&rule.State,
			&rule.Rule,
			&rule.LastEvaluated,
			&rule.CreatedAt,
			&rule.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan watch rule: %w", err)
		}
		rules = append(rules, rule)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating watch rules: %w", err)
	}

	return rules, nil
}

// CreateWatchData appends a new metric sample record.
func (s *SQLiteStore) CreateWatchData(ctx context.Context, data *WatchDataRecord) error {
	query := `
		INSERT INTO watch_data (id, watch_rule_id, data, created_at)
		VALUES (?, ?, ?, ?)
	`

	_, err := s.db.ExecContext(ctx, query,
		data.ID,
		data.WatchRuleID,
		data.Data,
		data.CreatedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to create watch data: %w", err)
	}

	return nil
}

// ListWatchData lists all samples for a watch rule, oldest first.
func (s *SQLiteStore) ListWatchData(ctx context.Context, watchRuleID string) ([]*WatchDataRecord, error) {
	query := `
		SELECT id, watch_rule_id, data, created_at
		FROM watch_data
		WHERE watch_rule_id = ?
		ORDER BY created_at ASC
	`

	rows, err := s.db.QueryContext(ctx, query, watchRuleID)
	if err != nil {
		return nil, fmt.Errorf("failed to list watch data: %w", err)
	}
	defer rows.Close()

	samples := []*WatchDataRecord{}
	for rows.Next() {
		sample := &WatchDataRecord{}
		err := rows.Scan(
			&sample.ID,
			&sample.WatchRuleID,
			&sample.Data,
			&sample.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan watch data: %w", err)
		}
		samples = append(samples, sample)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating watch data: %w", err)
	}

	return samples, nil
}

// HealthCheck verifies the database connection is healthy.
func (s *SQLiteStore) HealthCheck(ctx context.Context) error {
	if s.db == nil {
		return fmt.Errorf("database not initialized")
	}

	return s.db.PingContext(ctx)
}
