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

// Lot is a physical batch of one drug presentation from one supplier.
// Lots are immutable once created and are never deleted; the movement log
// references them forever.
type Lot struct {
	ID              string    `db:"id" json:"id"`
	DrugID          string    `db:"drug_id" json:"drug_id"`
	SupplierID      string    `db:"supplier_id" json:"supplier_id"`
	LotCode         string    `db:"lot_code" json:"lot_code"`
	ManufactureDate time.Time `db:"manufacture_date" json:"manufacture_date"`
	ExpiryDate      time.Time `db:"expiry_date" json:"expiry_date"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
}

// LotRepository handles lot persistence
type LotRepository struct {
	db *database.DB
}

// NewLotRepository creates a new lot repository
func NewLotRepository(db *database.DB) *LotRepository {
	return &LotRepository{db: db}
}

// Ensure looks up a lot by its natural key (lot_code, drug_id, supplier_id)
// and creates it if absent. The insert goes through ON CONFLICT DO NOTHING
// so two concurrent first receipts of the same new lot cannot create
// duplicates; whichever row lands first wins, and its dates are kept even
// if a later call carries different ones.
func (r *LotRepository) Ensure(ctx context.Context, tx *sqlx.Tx, lot *Lot) error {
	if lot.ID == "" {
		lot.ID = uuid.New().String()
	}

	insert := `
		INSERT INTO lots (id, drug_id, supplier_id, lot_code, manufacture_date, expiry_date)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT ON CONSTRAINT lots_natural_key DO NOTHING
	`
	if _, err := tx.ExecContext(ctx, insert,
		lot.ID, lot.DrugID, lot.SupplierID, lot.LotCode, lot.ManufactureDate, lot.ExpiryDate,
	); err != nil {
		if appErr := database.MapPQError(err); appErr != nil {
			return appErr
		}
		return err
	}

	// Re-select by natural key: either the row just inserted or the
	// pre-existing one.
	sel := `
		SELECT * FROM lots
		WHERE lot_code = $1 AND drug_id = $2 AND supplier_id = $3
	`
	return tx.GetContext(ctx, lot, sel, lot.LotCode, lot.DrugID, lot.SupplierID)
}

// GetByID gets a lot by ID
func (r *LotRepository) GetByID(ctx context.Context, id string) (*Lot, error) {
	var lot Lot
	query := `SELECT * FROM lots WHERE id = $1`
	if err := r.db.GetContext(ctx, &lot, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.NotFound("lot")
		}
		return nil, err
	}
	return &lot, nil
}
