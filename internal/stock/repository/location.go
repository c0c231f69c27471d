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

// Location is a storage location: the central warehouse (CAF) or a
// consuming health unit (UBS, UPA, HOSPITAL).
type Location struct {
	ID        string    `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	Kind      string    `db:"kind" json:"kind"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// LocationRepository handles location persistence
type LocationRepository struct {
	db *database.DB
}

// NewLocationRepository creates a new location repository
func NewLocationRepository(db *database.DB) *LocationRepository {
	return &LocationRepository{db: db}
}

// Create creates a new location
func (r *LocationRepository) Create(ctx context.Context, loc *Location) error {
	if loc.ID == "" {
		loc.ID = uuid.New().String()
	}

	query := `
		INSERT INTO locations (id, name, kind)
		VALUES ($1, $2, $3)
		RETURNING created_at
	`

	err := r.db.QueryRowxContext(ctx, query, loc.ID, loc.Name, loc.Kind).Scan(&loc.CreatedAt)
	if err != nil {
		if appErr := database.MapPQError(err); appErr != nil {
			return appErr
		}
		return err
	}
	return nil
}

// GetByID gets a location by ID
func (r *LocationRepository) GetByID(ctx context.Context, id string) (*Location, error) {
	var loc Location
	query := `SELECT * FROM locations WHERE id = $1`
	if err := r.db.GetContext(ctx, &loc, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.NotFound("location")
		}
		return nil, err
	}
	return &loc, nil
}

// GetCentral gets the central warehouse location. Exactly one location of
// kind CAF is expected to exist.
func (r *LocationRepository) GetCentral(ctx context.Context, q database.Queryer) (*Location, error) {
	var loc Location
	query := `SELECT * FROM locations WHERE kind = 'CAF' LIMIT 1`
	if err := sqlx.GetContext(ctx, q, &loc, query); err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.NotFound("central warehouse")
		}
		return nil, err
	}
	return &loc, nil
}

// List lists all locations
func (r *LocationRepository) List(ctx context.Context) ([]*Location, error) {
	var locs []*Location
	query := `SELECT * FROM locations ORDER BY name`
	if err := r.db.SelectContext(ctx, &locs, query); err != nil {
		return nil, err
	}
	return locs, nil
}
