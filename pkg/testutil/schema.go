package testutil

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/jmoiron/sqlx"
)

// TestSchema is an isolated database schema created for one test
type TestSchema struct {
	Name string
}

// SchemaManager creates and drops isolated test schemas. Each test gets
// its own schema so tests can run in parallel against one shared
// container.
type SchemaManager struct {
	db      *sqlx.DB
	schemas []TestSchema
	mu      sync.Mutex
}

// NewSchemaManager creates a new schema manager for tests
func NewSchemaManager(db *sqlx.DB) *SchemaManager {
	return &SchemaManager{
		db:      db,
		schemas: make([]TestSchema, 0),
	}
}

// CreateSchema creates an isolated schema and applies the given migrations
// with the schema first on the search path.
func (sm *SchemaManager) CreateSchema(ctx context.Context, name string, migrations []string) (*TestSchema, error) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	schemaName := "test_" + strings.ToLower(strings.ReplaceAll(name, "-", "_"))

	if _, err := sm.db.ExecContext(ctx, fmt.Sprintf("CREATE SCHEMA IF NOT EXISTS %s", schemaName)); err != nil {
		return nil, fmt.Errorf("failed to create test schema: %w", err)
	}

	for _, migration := range migrations {
		if _, err := sm.db.ExecContext(ctx, fmt.Sprintf("SET search_path TO %s, public", schemaName)); err != nil {
			return nil, fmt.Errorf("failed to set search_path: %w", err)
		}
		if _, err := sm.db.ExecContext(ctx, migration); err != nil {
			return nil, fmt.Errorf("failed to apply migration: %w", err)
		}
	}

	if _, err := sm.db.ExecContext(ctx, "SET search_path TO public"); err != nil {
		return nil, fmt.Errorf("failed to reset search_path: %w", err)
	}

	s := TestSchema{Name: schemaName}
	sm.schemas = append(sm.schemas, s)
	return &s, nil
}

// DropSchema removes a test schema completely
func (sm *SchemaManager) DropSchema(ctx context.Context, s *TestSchema) error {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if _, err := sm.db.ExecContext(ctx, fmt.Sprintf("DROP SCHEMA IF EXISTS %s CASCADE", s.Name)); err != nil {
		return fmt.Errorf("failed to drop test schema: %w", err)
	}
	return nil
}

// Cleanup drops every schema this manager created
func (sm *SchemaManager) Cleanup(ctx context.Context) error {
	sm.mu.Lock()
	schemas := make([]TestSchema, len(sm.schemas))
	copy(schemas, sm.schemas)
	sm.schemas = sm.schemas[:0]
	sm.mu.Unlock()

	for _, s := range schemas {
		if _, err := sm.db.ExecContext(ctx, fmt.Sprintf("DROP SCHEMA IF EXISTS %s CASCADE", s.Name)); err != nil {
			return fmt.Errorf("failed to drop test schema %s: %w", s.Name, err)
		}
	}
	return nil
}
