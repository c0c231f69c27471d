package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/medsupply/medsupply-backend/pkg/database"
)

// Movement types. Outflows are recorded with negative quantities.
const (
	MovementReceipt     = "RECEIPT"
	MovementTransferOut = "TRANSFER_OUT"
	MovementTransferIn  = "TRANSFER_IN"
	MovementExpiryLoss  = "EXPIRY_LOSS"
	MovementDispense    = "DISPENSE"
)

// Movement is an immutable audit record of a quantity change. The log is
// append-only: for every (location, lot) pair the sum of movement
// quantities equals the stock entry's current quantity.
type Movement struct {
	ID          string    `db:"id" json:"id"`
	LocationID  string    `db:"location_id" json:"location_id"`
	LotID       string    `db:"lot_id" json:"lot_id"`
	UserID      string    `db:"user_id" json:"user_id"`
	Type        string    `db:"movement_type" json:"type"`
	Quantity    int       `db:"quantity" json:"quantity"`
	ReferenceID *string   `db:"reference_id" json:"reference_id,omitempty"`
	Note        *string   `db:"note" json:"note,omitempty"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// DisposalRecord is an EXPIRY_LOSS movement joined with lot and drug detail
// for the disposal history listing.
type DisposalRecord struct {
	Movement
	LotCode          string    `db:"lot_code" json:"lot_code"`
	ExpiryDate       time.Time `db:"expiry_date" json:"expiry_date"`
	DrugGroupName    string    `db:"group_name" json:"drug_group_name"`
	DrugPresentation string    `db:"presentation" json:"drug_presentation"`
	UserName         string    `db:"user_name" json:"user_name"`
}

// MovementRepository handles the append-only movement log
type MovementRepository struct {
	db *database.DB
}

// NewMovementRepository creates a new movement repository
func NewMovementRepository(db *database.DB) *MovementRepository {
	return &MovementRepository{db: db}
}

// Append appends a movement inside the caller's transaction. Movements are
// never updated or deleted.
func (r *MovementRepository) Append(ctx context.Context, tx *sqlx.Tx, m *Movement) error {
	if m.ID == "" {
		m.ID = uuid.New().String()
	}

	query := `
		INSERT INTO stock_movements (id, location_id, lot_id, user_id, movement_type, quantity, reference_id, note)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at
	`
	return tx.QueryRowxContext(ctx, query,
		m.ID, m.LocationID, m.LotID, m.UserID, m.Type, m.Quantity, m.ReferenceID, m.Note,
	).Scan(&m.CreatedAt)
}

// ListByLocationAndLot lists all movements for one (location, lot) pair in
// chronological order.
func (r *MovementRepository) ListByLocationAndLot(ctx context.Context, locationID, lotID string) ([]*Movement, error) {
	var movements []*Movement
	query := `
		SELECT * FROM stock_movements
		WHERE location_id = $1 AND lot_id = $2
		ORDER BY created_at
	`
	if err := r.db.SelectContext(ctx, &movements, query, locationID, lotID); err != nil {
		return nil, err
	}
	return movements, nil
}

// SumByLocationAndLot sums the movement quantities for one (location, lot)
// pair. Used to audit the conservation invariant against the stock entry.
func (r *MovementRepository) SumByLocationAndLot(ctx context.Context, locationID, lotID string) (int, error) {
	var total int
	query := `
		SELECT COALESCE(SUM(quantity), 0) FROM stock_movements
		WHERE location_id = $1 AND lot_id = $2
	`
	if err := r.db.GetContext(ctx, &total, query, locationID, lotID); err != nil {
		return 0, err
	}
	return total, nil
}

// ListDisposals lists a location's EXPIRY_LOSS movements, newest first,
// with lot, drug and user detail.
func (r *MovementRepository) ListDisposals(ctx context.Context, locationID string) ([]*DisposalRecord, error) {
	var records []*DisposalRecord
	query := `
		SELECT m.id, m.location_id, m.lot_id, m.user_id, m.movement_type, m.quantity,
		       m.reference_id, m.note, m.created_at,
		       l.lot_code, l.expiry_date,
		       d.group_name, d.presentation,
		       u.name AS user_name
		FROM stock_movements m
		JOIN lots l ON l.id = m.lot_id
		JOIN drugs d ON d.id = l.drug_id
		JOIN users u ON u.id = m.user_id
		WHERE m.location_id = $1 AND m.movement_type = 'EXPIRY_LOSS'
		ORDER BY m.created_at DESC
	`
	if err := r.db.SelectContext(ctx, &records, query, locationID); err != nil {
		return nil, err
	}
	return records, nil
}
