package testutil

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/medsupply/medsupply-backend/pkg/database"
)

// LocationFixture represents test health unit data
type LocationFixture struct {
	ID   string
	Name string
	Kind string
}

// UserFixture represents test user data
type UserFixture struct {
	ID         string
	Name       string
	Email      string
	LocationID string
}

// DrugFixture represents test drug catalog data
type DrugFixture struct {
	ID           string
	GroupName    string
	Presentation string
}

// SupplierFixture represents test supplier data
type SupplierFixture struct {
	ID   string
	Name string
}

// LotFixture represents test lot data
type LotFixture struct {
	ID              string
	DrugID          string
	SupplierID      string
	LotCode         string
	ManufactureDate time.Time
	ExpiryDate      time.Time
}

// FixtureFactory creates test fixtures with sensible defaults
type FixtureFactory struct {
	sequence int
}

// NewFixtureFactory creates a new fixture factory
func NewFixtureFactory() *FixtureFactory {
	return &FixtureFactory{sequence: 0}
}

// nextSeq returns the next sequence number for unique values
func (f *FixtureFactory) nextSeq() int {
	f.sequence++
	return f.sequence
}

// Location creates a location fixture. Kind defaults to UBS.
func (f *FixtureFactory) Location(opts ...func(*LocationFixture)) LocationFixture {
	seq := f.nextSeq()
	loc := LocationFixture{
		ID:   uuid.New().String(),
		Name: fmt.Sprintf("Health Unit %d", seq),
		Kind: "UBS",
	}
	for _, opt := range opts {
		opt(&loc)
	}
	return loc
}

// WithKind sets the location kind
func WithKind(kind string) func(*LocationFixture) {
	return func(l *LocationFixture) {
		l.Kind = kind
	}
}

// CentralWarehouse creates a CAF location fixture
func (f *FixtureFactory) CentralWarehouse() LocationFixture {
	return f.Location(WithKind("CAF"), func(l *LocationFixture) {
		l.Name = "Central Warehouse"
	})
}

// User creates a user fixture tied to a location
func (f *FixtureFactory) User(locationID string) UserFixture {
	seq := f.nextSeq()
	return UserFixture{
		ID:         uuid.New().String(),
		Name:       fmt.Sprintf("Test User %d", seq),
		Email:      fmt.Sprintf("user%d@test.medsupply.local", seq),
		LocationID: locationID,
	}
}

// Drug creates a drug fixture
func (f *FixtureFactory) Drug() DrugFixture {
	seq := f.nextSeq()
	return DrugFixture{
		ID:           uuid.New().String(),
		GroupName:    fmt.Sprintf("Drug %d", seq),
		Presentation: "500mg tablet",
	}
}

// Supplier creates a supplier fixture
func (f *FixtureFactory) Supplier() SupplierFixture {
	seq := f.nextSeq()
	return SupplierFixture{
		ID:   uuid.New().String(),
		Name: fmt.Sprintf("Supplier %d", seq),
	}
}

// Lot creates a lot fixture with a one-year shelf life
func (f *FixtureFactory) Lot(drugID, supplierID string) LotFixture {
	seq := f.nextSeq()
	now := time.Now()
	return LotFixture{
		ID:              uuid.New().String(),
		DrugID:          drugID,
		SupplierID:      supplierID,
		LotCode:         fmt.Sprintf("LOT-%04d", seq),
		ManufactureDate: now.AddDate(0, -1, 0),
		ExpiryDate:      now.AddDate(1, 0, 0),
	}
}

// SeedLocation inserts a location fixture
func SeedLocation(t *testing.T, ctx context.Context, db *database.DB, loc LocationFixture) {
	t.Helper()
	_, err := db.ExecContext(ctx,
		`INSERT INTO locations (id, name, kind) VALUES ($1, $2, $3)`,
		loc.ID, loc.Name, loc.Kind)
	if err != nil {
		t.Fatalf("failed to seed location: %v", err)
	}
}

// SeedUser inserts a user fixture
func SeedUser(t *testing.T, ctx context.Context, db *database.DB, u UserFixture) {
	t.Helper()
	_, err := db.ExecContext(ctx,
		`INSERT INTO users (id, name, email, location_id) VALUES ($1, $2, $3, $4)`,
		u.ID, u.Name, u.Email, u.LocationID)
	if err != nil {
		t.Fatalf("failed to seed user: %v", err)
	}
}

// SeedDrug inserts a drug fixture
func SeedDrug(t *testing.T, ctx context.Context, db *database.DB, d DrugFixture) {
	t.Helper()
	_, err := db.ExecContext(ctx,
		`INSERT INTO drugs (id, group_name, presentation) VALUES ($1, $2, $3)`,
		d.ID, d.GroupName, d.Presentation)
	if err != nil {
		t.Fatalf("failed to seed drug: %v", err)
	}
}

// SeedSupplier inserts a supplier fixture
func SeedSupplier(t *testing.T, ctx context.Context, db *database.DB, s SupplierFixture) {
	t.Helper()
	_, err := db.ExecContext(ctx,
		`INSERT INTO suppliers (id, name) VALUES ($1, $2)`,
		s.ID, s.Name)
	if err != nil {
		t.Fatalf("failed to seed supplier: %v", err)
	}
}
