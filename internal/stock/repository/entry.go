package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/medsupply/medsupply-backend/pkg/database"
	"github.com/medsupply/medsupply-backend/pkg/errors"
)

// StockEntry is the on-hand quantity of one lot at one location.
// Quantity never goes negative; the table carries a CHECK constraint as a
// last line of defense behind the row-locked read-then-write the service
// layer performs.
type StockEntry struct {
	ID         string    `db:"id" json:"id"`
	LocationID string    `db:"location_id" json:"location_id"`
	LotID      string    `db:"lot_id" json:"lot_id"`
	Quantity   int       `db:"quantity" json:"quantity"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time `db:"updated_at" json:"updated_at"`
}

// StockEntryDetail is a stock entry joined with its lot, drug and supplier
// for stock listings.
type StockEntryDetail struct {
	StockEntry
	LotCode          string    `db:"lot_code" json:"lot_code"`
	ManufactureDate  time.Time `db:"manufacture_date" json:"manufacture_date"`
	ExpiryDate       time.Time `db:"expiry_date" json:"expiry_date"`
	DrugID           string    `db:"drug_id" json:"drug_id"`
	DrugGroupName    string    `db:"group_name" json:"drug_group_name"`
	DrugPresentation string    `db:"presentation" json:"drug_presentation"`
	SupplierID       string    `db:"supplier_id" json:"supplier_id"`
	SupplierName     string    `db:"supplier_name" json:"supplier_name"`
}

// FIFOCandidate is one lot's stock at a location, carrying the expiry date
// the FIFO ordering is based on.
type FIFOCandidate struct {
	EntryID    string    `db:"id" json:"entry_id"`
	LotID      string    `db:"lot_id" json:"lot_id"`
	Quantity   int       `db:"quantity" json:"quantity"`
	ExpiryDate time.Time `db:"expiry_date" json:"expiry_date"`
}

// StockEntryRepository handles stock entry persistence
type StockEntryRepository struct {
	db *database.DB
}

// NewStockEntryRepository creates a new stock entry repository
func NewStockEntryRepository(db *database.DB) *StockEntryRepository {
	return &StockEntryRepository{db: db}
}

// LockByID reads a stock entry by ID with a row lock. Must run inside a
// transaction; the lock is held until commit or rollback.
func (r *StockEntryRepository) LockByID(ctx context.Context, tx *sqlx.Tx, id string) (*StockEntry, error) {
	var entry StockEntry
	query := `SELECT * FROM stock_entries WHERE id = $1 FOR UPDATE`
	if err := tx.GetContext(ctx, &entry, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.NotFound("stock entry")
		}
		return nil, err
	}
	return &entry, nil
}

// Lock reads the stock entry for (location, lot) with a row lock.
// Returns NotFound when the location has never held the lot.
func (r *StockEntryRepository) Lock(ctx context.Context, tx *sqlx.Tx, locationID, lotID string) (*StockEntry, error) {
	var entry StockEntry
	query := `SELECT * FROM stock_entries WHERE location_id = $1 AND lot_id = $2 FOR UPDATE`
	if err := tx.GetContext(ctx, &entry, query, locationID, lotID); err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.NotFound("stock entry")
		}
		return nil, err
	}
	return &entry, nil
}

// Increment adds quantity to the (location, lot) entry, creating it when it
// does not exist yet. The upsert serializes concurrent increments on the
// unique (location_id, lot_id) index.
func (r *StockEntryRepository) Increment(ctx context.Context, tx *sqlx.Tx, locationID, lotID string, quantity int) (*StockEntry, error) {
	var entry StockEntry
	query := `
		INSERT INTO stock_entries (id, location_id, lot_id, quantity)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT ON CONSTRAINT stock_entries_location_lot DO UPDATE
		SET quantity = stock_entries.quantity + EXCLUDED.quantity, updated_at = NOW()
		RETURNING *
	`
	err := tx.GetContext(ctx, &entry, query, uuid.New().String(), locationID, lotID, quantity)
	if err != nil {
		if appErr := database.MapPQError(err); appErr != nil {
			return nil, appErr
		}
		return nil, err
	}
	return &entry, nil
}

// Decrement subtracts quantity from a locked entry. Callers must hold the
// row lock and have verified sufficiency; the CHECK constraint still
// rejects a negative result should that discipline ever slip.
func (r *StockEntryRepository) Decrement(ctx context.Context, tx *sqlx.Tx, id string, quantity int) (*StockEntry, error) {
	var entry StockEntry
	query := `
		UPDATE stock_entries
		SET quantity = quantity - $2, updated_at = NOW()
		WHERE id = $1
		RETURNING *
	`
	err := tx.GetContext(ctx, &entry, query, id, quantity)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.NotFound("stock entry")
		}
		if appErr := database.MapPQError(err); appErr != nil {
			return nil, appErr
		}
		return nil, err
	}
	return &entry, nil
}

// Zero forces a locked entry's quantity to zero (full write-off).
func (r *StockEntryRepository) Zero(ctx context.Context, tx *sqlx.Tx, id string) (*StockEntry, error) {
	var entry StockEntry
	query := `
		UPDATE stock_entries
		SET quantity = 0, updated_at = NOW()
		WHERE id = $1
		RETURNING *
	`
	err := tx.GetContext(ctx, &entry, query, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.NotFound("stock entry")
		}
		return nil, err
	}
	return &entry, nil
}

// ListByLocation lists a location's stock with lot and drug detail.
// Only entries with positive quantity are returned. Expiry filtering is
// strict against today's date: when expiredOnly is set only lots whose
// expiry date is before today are returned, otherwise only lots expiring
// today or later. A lot expiring today is not yet expired.
func (r *StockEntryRepository) ListByLocation(ctx context.Context, locationID string, expiredOnly bool) ([]*StockEntryDetail, error) {
	cmp := ">="
	if expiredOnly {
		cmp = "<"
	}

	var entries []*StockEntryDetail
	query := `
		SELECT se.id, se.location_id, se.lot_id, se.quantity, se.created_at, se.updated_at,
		       l.lot_code, l.manufacture_date, l.expiry_date, l.drug_id, l.supplier_id,
		       d.group_name, d.presentation,
		       s.name AS supplier_name
		FROM stock_entries se
		JOIN lots l ON l.id = se.lot_id
		JOIN drugs d ON d.id = l.drug_id
		JOIN suppliers s ON s.id = l.supplier_id
		WHERE se.location_id = $1 AND se.quantity > 0
		  AND l.expiry_date ` + cmp + ` CURRENT_DATE
		ORDER BY d.group_name, d.presentation, l.expiry_date
	`
	if err := r.db.SelectContext(ctx, &entries, query, locationID); err != nil {
		return nil, err
	}
	return entries, nil
}

// FIFOCandidates returns a location's positive stock of one drug, oldest
// expiry first. Read-only; used by SelectFIFO planning.
func (r *StockEntryRepository) FIFOCandidates(ctx context.Context, q database.Queryer, locationID, drugID string) ([]*FIFOCandidate, error) {
	var candidates []*FIFOCandidate
	query := `
		SELECT se.id, se.lot_id, se.quantity, l.expiry_date
		FROM stock_entries se
		JOIN lots l ON l.id = se.lot_id
		WHERE se.location_id = $1 AND l.drug_id = $2 AND se.quantity > 0
		ORDER BY l.expiry_date ASC, l.created_at ASC
	`
	if err := sqlx.SelectContext(ctx, q, &candidates, query, locationID, drugID); err != nil {
		return nil, err
	}
	return candidates, nil
}

// FIFOCandidatesLocked is FIFOCandidates with the underlying stock entry
// rows locked, for dispatch-time decrements.
func (r *StockEntryRepository) FIFOCandidatesLocked(ctx context.Context, tx *sqlx.Tx, locationID, drugID string) ([]*FIFOCandidate, error) {
	var candidates []*FIFOCandidate
	query := `
		SELECT se.id, se.lot_id, se.quantity, l.expiry_date
		FROM stock_entries se
		JOIN lots l ON l.id = se.lot_id
		WHERE se.location_id = $1 AND l.drug_id = $2 AND se.quantity > 0
		ORDER BY l.expiry_date ASC, l.created_at ASC
		FOR UPDATE OF se
	`
	if err := tx.SelectContext(ctx, &candidates, query, locationID, drugID); err != nil {
		return nil, err
	}
	return candidates, nil
}

// AvailableForDrug sums a location's positive stock of one drug across all
// lots.
func (r *StockEntryRepository) AvailableForDrug(ctx context.Context, q database.Queryer, locationID, drugID string) (int, error) {
	var total sql.NullInt64
	query := `
		SELECT SUM(se.quantity)
		FROM stock_entries se
		JOIN lots l ON l.id = se.lot_id
		WHERE se.location_id = $1 AND l.drug_id = $2 AND se.quantity > 0
	`
	if err := sqlx.GetContext(ctx, q, &total, query, locationID, drugID); err != nil {
		return 0, err
	}
	if !total.Valid {
		return 0, nil
	}
	return int(total.Int64), nil
}
