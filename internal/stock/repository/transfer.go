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

// Transfer is a direct shipment between two locations, created atomically
// with its items and movements. Immutable once created.
type Transfer struct {
	ID                    string    `db:"id" json:"id"`
	OriginLocationID      string    `db:"origin_location_id" json:"origin_location_id"`
	DestinationLocationID string    `db:"destination_location_id" json:"destination_location_id"`
	SenderUserID          string    `db:"sender_user_id" json:"sender_user_id"`
	RequisitionID         *string   `db:"requisition_id" json:"requisition_id,omitempty"`
	SentAt                time.Time `db:"sent_at" json:"sent_at"`
}

// TransferItem is one lot line of a transfer
type TransferItem struct {
	ID         string `db:"id" json:"id"`
	TransferID string `db:"transfer_id" json:"transfer_id"`
	LotID      string `db:"lot_id" json:"lot_id"`
	Quantity   int    `db:"quantity" json:"quantity"`
}

// RecentTransfer is a transfer with the display fields the logistics feed
// needs.
type RecentTransfer struct {
	Transfer
	DestinationName string `db:"destination_name" json:"destination_name"`
	SenderName      string `db:"sender_name" json:"sender_name"`
	ItemCount       int    `db:"item_count" json:"item_count"`
}

// TransferRepository handles transfer persistence
type TransferRepository struct {
	db *database.DB
}

// NewTransferRepository creates a new transfer repository
func NewTransferRepository(db *database.DB) *TransferRepository {
	return &TransferRepository{db: db}
}

// Create creates the transfer header inside the caller's transaction
func (r *TransferRepository) Create(ctx context.Context, tx *sqlx.Tx, t *Transfer) error {
	if t.ID == "" {
		t.ID = uuid.New().String()
	}

	query := `
		INSERT INTO transfers (id, origin_location_id, destination_location_id, sender_user_id, requisition_id)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING sent_at
	`
	err := tx.QueryRowxContext(ctx, query,
		t.ID, t.OriginLocationID, t.DestinationLocationID, t.SenderUserID, t.RequisitionID,
	).Scan(&t.SentAt)
	if err != nil {
		if appErr := database.MapPQError(err); appErr != nil {
			return appErr
		}
		return err
	}
	return nil
}

// AddItem appends one lot line to a transfer inside the caller's transaction
func (r *TransferRepository) AddItem(ctx context.Context, tx *sqlx.Tx, item *TransferItem) error {
	if item.ID == "" {
		item.ID = uuid.New().String()
	}

	query := `
		INSERT INTO transfer_items (id, transfer_id, lot_id, quantity)
		VALUES ($1, $2, $3, $4)
	`
	_, err := tx.ExecContext(ctx, query, item.ID, item.TransferID, item.LotID, item.Quantity)
	return err
}

// GetByID gets a transfer with its items
func (r *TransferRepository) GetByID(ctx context.Context, id string) (*Transfer, []*TransferItem, error) {
	var t Transfer
	if err := r.db.GetContext(ctx, &t, `SELECT * FROM transfers WHERE id = $1`, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil, errors.NotFound("transfer")
		}
		return nil, nil, err
	}

	var items []*TransferItem
	query := `SELECT * FROM transfer_items WHERE transfer_id = $1`
	if err := r.db.SelectContext(ctx, &items, query, id); err != nil {
		return nil, nil, err
	}
	return &t, items, nil
}

// ListRecent lists the most recent transfers with destination and sender
// names and item counts, newest first.
func (r *TransferRepository) ListRecent(ctx context.Context, limit int) ([]*RecentTransfer, error) {
	var transfers []*RecentTransfer
	query := `
		SELECT t.id, t.origin_location_id, t.destination_location_id, t.sender_user_id,
		       t.requisition_id, t.sent_at,
		       dest.name AS destination_name,
		       u.name AS sender_name,
		       (SELECT COUNT(*) FROM transfer_items ti WHERE ti.transfer_id = t.id) AS item_count
		FROM transfers t
		JOIN locations dest ON dest.id = t.destination_location_id
		JOIN users u ON u.id = t.sender_user_id
		ORDER BY t.sent_at DESC
		LIMIT $1
	`
	if err := r.db.SelectContext(ctx, &transfers, query, limit); err != nil {
		return nil, err
	}
	return transfers, nil
}
