package testutil

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/medsupply/medsupply-backend/pkg/database"
	"github.com/medsupply/medsupply-backend/pkg/logger"
)

var (
	// Global test container (shared across all integration tests)
	globalContainer *PostgresContainer
	globalDB        *sqlx.DB
	containerOnce   sync.Once
	containerErr    error
)

// IntegrationSuite provides a base for integration tests with real PostgreSQL
type IntegrationSuite struct {
	Container *PostgresContainer
	RawDB     *sqlx.DB
	Schemas   *SchemaManager
	Fixtures  *FixtureFactory
	Logger    *logger.Logger
}

// NewIntegrationSuite creates a new integration test suite.
// Call this in TestMain to set up shared test infrastructure.
//
// Usage:
//
//	var suite *testutil.IntegrationSuite
//
//	func TestMain(m *testing.M) {
//	    ctx := context.Background()
//
//	    suite, err := testutil.NewIntegrationSuite(ctx)
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//	    defer suite.Cleanup(ctx)
//
//	    code := m.Run()
//	    os.Exit(code)
//	}
//
//	func TestSomething(t *testing.T) {
//	    ctx := context.Background()
//	    db := suite.SetupSchema(t, ctx, "stock-receive")
//	    // ... run tests against the isolated schema
//	}
func NewIntegrationSuite(ctx context.Context) (*IntegrationSuite, error) {
	container, db, err := getOrCreateContainer(ctx)
	if err != nil {
		return nil, err
	}

	log := logger.New("test", "test")

	return &IntegrationSuite{
		Container: container,
		RawDB:     db,
		Schemas:   NewSchemaManager(db),
		Fixtures:  NewFixtureFactory(),
		Logger:    log,
	}, nil
}

// getOrCreateContainer returns the shared test container
func getOrCreateContainer(ctx context.Context) (*PostgresContainer, *sqlx.DB, error) {
	containerOnce.Do(func() {
		globalContainer, containerErr = NewPostgresContainer(ctx, DefaultPostgresConfig())
		if containerErr != nil {
			return
		}
		globalDB, containerErr = globalContainer.Connect(ctx)
	})

	return globalContainer, globalDB, containerErr
}

// SetupSchema creates an isolated schema with the supply service migrations
// and returns a wrapped connection whose search path points at it. The
// schema is dropped when the test finishes.
func (s *IntegrationSuite) SetupSchema(t *testing.T, ctx context.Context, name string) *database.DB {
	t.Helper()

	schema, err := s.Schemas.CreateSchema(ctx, name, Migrations())
	if err != nil {
		t.Fatalf("failed to create test schema: %v", err)
	}

	db, err := s.SchemaDB(schema)
	if err != nil {
		t.Fatalf("failed to connect to test schema: %v", err)
	}

	t.Cleanup(func() {
		db.Close()
		if err := s.Schemas.DropSchema(ctx, schema); err != nil {
			t.Logf("warning: failed to drop schema %s: %v", schema.Name, err)
		}
	})

	return db
}

// SchemaDB opens a wrapped connection scoped to the given schema
func (s *IntegrationSuite) SchemaDB(schema *TestSchema) (*database.DB, error) {
	dsn := s.Container.DSN
	if strings.Contains(dsn, "?") {
		dsn = fmt.Sprintf("%s&search_path=%s,public", dsn, schema.Name)
	} else {
		dsn = fmt.Sprintf("%s?search_path=%s,public", dsn, schema.Name)
	}
	return database.NewWithDSN(dsn, s.Logger)
}

// Cleanup cleans up all test resources
func (s *IntegrationSuite) Cleanup(ctx context.Context) error {
	return s.Schemas.Cleanup(ctx)
}

// TerminateContainer terminates the shared container.
// Only call this in TestMain after all tests have completed.
func TerminateContainer(ctx context.Context) {
	if globalDB != nil {
		globalDB.Close()
	}
	if globalContainer != nil {
		globalContainer.Terminate(ctx)
	}
}
