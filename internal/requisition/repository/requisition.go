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

// Requisition statuses. Transitions only move forward:
// AWAITING_REVIEW -> IN_PICKING -> DISPATCHED -> RECEIVED_FULL, with
// REFUSED reachable from the first two. Terminal statuses are immutable.
const (
	StatusAwaitingReview = "AWAITING_REVIEW"
	StatusInPicking      = "IN_PICKING"
	StatusDispatched     = "DISPATCHED"
	StatusReceivedFull   = "RECEIVED_FULL"
	StatusRefused        = "REFUSED"
)

// Requisition is a consuming location's formal request for supplies from
// the central warehouse.
type Requisition struct {
	ID                   string    `db:"id" json:"id"`
	RequestingLocationID string    `db:"requesting_location_id" json:"requesting_location_id"`
	RequestingUserID     string    `db:"requesting_user_id" json:"requesting_user_id"`
	Status               string    `db:"status" json:"status"`
	RefusalReason        *string   `db:"refusal_reason" json:"refusal_reason,omitempty"`
	CreatedAt            time.Time `db:"created_at" json:"created_at"`
	UpdatedAt            time.Time `db:"updated_at" json:"updated_at"`
}

// RequisitionItem is one drug line of a requisition. QuantityApproved is
// nil until the central reviewer rules on the line.
type RequisitionItem struct {
	ID                string `db:"id" json:"id"`
	RequisitionID     string `db:"requisition_id" json:"requisition_id"`
	DrugID            string `db:"drug_id" json:"drug_id"`
	QuantityRequested int    `db:"quantity_requested" json:"quantity_requested"`
	QuantityApproved  *int   `db:"quantity_approved" json:"quantity_approved,omitempty"`
}

// ItemDetail is a requisition item joined with drug display fields
type ItemDetail struct {
	RequisitionItem
	DrugGroupName    string `db:"group_name" json:"drug_group_name"`
	DrugPresentation string `db:"presentation" json:"drug_presentation"`
}

// Summary is a requisition with the display fields listings need
type Summary struct {
	Requisition
	LocationName  string `db:"location_name" json:"location_name"`
	RequesterName string `db:"requester_name" json:"requester_name"`
	ItemCount     int    `db:"item_count" json:"item_count"`
}

// RequisitionRepository handles requisition persistence
type RequisitionRepository struct {
	db *database.DB
}

// NewRequisitionRepository creates a new requisition repository
func NewRequisitionRepository(db *database.DB) *RequisitionRepository {
	return &RequisitionRepository{db: db}
}

// Create creates a requisition with its items inside the caller's
// transaction. The requisition starts in AWAITING_REVIEW.
func (r *RequisitionRepository) Create(ctx context.Context, tx *sqlx.Tx, req *Requisition, items []*RequisitionItem) error {
	if req.ID == "" {
		req.ID = uuid.New().String()
	}
	req.Status = StatusAwaitingReview

	query := `
		INSERT INTO requisitions (id, requesting_location_id, requesting_user_id, status)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at, updated_at
	`
	err := tx.QueryRowxContext(ctx, query,
		req.ID, req.RequestingLocationID, req.RequestingUserID, req.Status,
	).Scan(&req.CreatedAt, &req.UpdatedAt)
	if err != nil {
		if appErr := database.MapPQError(err); appErr != nil {
			return appErr
		}
		return err
	}

	for _, item := range items {
		if item.ID == "" {
			item.ID = uuid.New().String()
		}
		item.RequisitionID = req.ID

		itemQuery := `
			INSERT INTO requisition_items (id, requisition_id, drug_id, quantity_requested)
			VALUES ($1, $2, $3, $4)
		`
		if _, err := tx.ExecContext(ctx, itemQuery, item.ID, item.RequisitionID, item.DrugID, item.QuantityRequested); err != nil {
			if appErr := database.MapPQError(err); appErr != nil {
				return appErr
			}
			return err
		}
	}

	return nil
}

// GetByID gets a requisition by ID
func (r *RequisitionRepository) GetByID(ctx context.Context, id string) (*Requisition, error) {
	var req Requisition
	query := `SELECT * FROM requisitions WHERE id = $1`
	if err := r.db.GetContext(ctx, &req, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.NotFound("requisition")
		}
		return nil, err
	}
	return &req, nil
}

// GetForUpdate reads a requisition with a row lock so concurrent lifecycle
// transitions serialize.
func (r *RequisitionRepository) GetForUpdate(ctx context.Context, tx *sqlx.Tx, id string) (*Requisition, error) {
	var req Requisition
	query := `SELECT * FROM requisitions WHERE id = $1 FOR UPDATE`
	if err := tx.GetContext(ctx, &req, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.NotFound("requisition")
		}
		return nil, err
	}
	return &req, nil
}

// Items lists a requisition's items
func (r *RequisitionRepository) Items(ctx context.Context, q database.Queryer, requisitionID string) ([]*RequisitionItem, error) {
	var items []*RequisitionItem
	query := `SELECT * FROM requisition_items WHERE requisition_id = $1 ORDER BY id`
	if err := sqlx.SelectContext(ctx, q, &items, query, requisitionID); err != nil {
		return nil, err
	}
	return items, nil
}

// ItemDetails lists a requisition's items with drug display fields
func (r *RequisitionRepository) ItemDetails(ctx context.Context, requisitionID string) ([]*ItemDetail, error) {
	var items []*ItemDetail
	query := `
		SELECT ri.id, ri.requisition_id, ri.drug_id, ri.quantity_requested, ri.quantity_approved,
		       d.group_name, d.presentation
		FROM requisition_items ri
		JOIN drugs d ON d.id = ri.drug_id
		WHERE ri.requisition_id = $1
		ORDER BY d.group_name, d.presentation
	`
	if err := r.db.SelectContext(ctx, &items, query, requisitionID); err != nil {
		return nil, err
	}
	return items, nil
}

// SetStatus updates a requisition's status inside the caller's transaction
func (r *RequisitionRepository) SetStatus(ctx context.Context, tx *sqlx.Tx, id, status string) error {
	query := `UPDATE requisitions SET status = $2, updated_at = NOW() WHERE id = $1`
	result, err := tx.ExecContext(ctx, query, id, status)
	if err != nil {
		return err
	}
	affected, _ := result.RowsAffected()
	if affected == 0 {
		return errors.NotFound("requisition")
	}
	return nil
}

// SetRefused marks a requisition refused with the given reason
func (r *RequisitionRepository) SetRefused(ctx context.Context, tx *sqlx.Tx, id, reason string) error {
	query := `UPDATE requisitions SET status = $2, refusal_reason = $3, updated_at = NOW() WHERE id = $1`
	result, err := tx.ExecContext(ctx, query, id, StatusRefused, reason)
	if err != nil {
		return err
	}
	affected, _ := result.RowsAffected()
	if affected == 0 {
		return errors.NotFound("requisition")
	}
	return nil
}

// SetItemApproved records the reviewer's approved quantity for one item
func (r *RequisitionRepository) SetItemApproved(ctx context.Context, tx *sqlx.Tx, itemID string, quantity int) error {
	query := `UPDATE requisition_items SET quantity_approved = $2 WHERE id = $1`
	result, err := tx.ExecContext(ctx, query, itemID, quantity)
	if err != nil {
		return err
	}
	affected, _ := result.RowsAffected()
	if affected == 0 {
		return errors.NotFound("requisition item")
	}
	return nil
}

const summaryColumns = `
	r.id, r.requesting_location_id, r.requesting_user_id, r.status,
	r.refusal_reason, r.created_at, r.updated_at,
	loc.name AS location_name,
	u.name AS requester_name,
	(SELECT COUNT(*) FROM requisition_items ri WHERE ri.requisition_id = r.id) AS item_count
`

// ListByLocation lists a consuming location's requisitions, newest first
func (r *RequisitionRepository) ListByLocation(ctx context.Context, locationID string) ([]*Summary, error) {
	var reqs []*Summary
	query := `
		SELECT ` + summaryColumns + `
		FROM requisitions r
		JOIN locations loc ON loc.id = r.requesting_location_id
		JOIN users u ON u.id = r.requesting_user_id
		WHERE r.requesting_location_id = $1
		ORDER BY r.created_at DESC
	`
	if err := r.db.SelectContext(ctx, &reqs, query, locationID); err != nil {
		return nil, err
	}
	return reqs, nil
}

// ListAll lists every requisition, newest first (central warehouse view)
func (r *RequisitionRepository) ListAll(ctx context.Context) ([]*Summary, error) {
	var reqs []*Summary
	query := `
		SELECT ` + summaryColumns + `
		FROM requisitions r
		JOIN locations loc ON loc.id = r.requesting_location_id
		JOIN users u ON u.id = r.requesting_user_id
		ORDER BY r.created_at DESC
	`
	if err := r.db.SelectContext(ctx, &reqs, query); err != nil {
		return nil, err
	}
	return reqs, nil
}

// ListFulfilledRecent lists the most recent dispatched or fully received
// requisitions for the logistics feed.
func (r *RequisitionRepository) ListFulfilledRecent(ctx context.Context, limit int) ([]*Summary, error) {
	var reqs []*Summary
	query := `
		SELECT ` + summaryColumns + `
		FROM requisitions r
		JOIN locations loc ON loc.id = r.requesting_location_id
		JOIN users u ON u.id = r.requesting_user_id
		WHERE r.status IN ('DISPATCHED', 'RECEIVED_FULL')
		ORDER BY r.created_at DESC
		LIMIT $1
	`
	if err := r.db.SelectContext(ctx, &reqs, query, limit); err != nil {
		return nil, err
	}
	return reqs, nil
}

// ListForReport lists fulfilled-or-in-progress requisitions created within
// [start, end], oldest first, for the fulfilment report.
func (r *RequisitionRepository) ListForReport(ctx context.Context, start, end time.Time) ([]*Summary, error) {
	var reqs []*Summary
	query := `
		SELECT ` + summaryColumns + `
		FROM requisitions r
		JOIN locations loc ON loc.id = r.requesting_location_id
		JOIN users u ON u.id = r.requesting_user_id
		WHERE r.status IN ('IN_PICKING', 'DISPATCHED', 'RECEIVED_FULL')
		  AND r.created_at >= $1 AND r.created_at <= $2
		ORDER BY r.created_at ASC
	`
	if err := r.db.SelectContext(ctx, &reqs, query, start, end); err != nil {
		return nil, err
	}
	return reqs, nil
}
