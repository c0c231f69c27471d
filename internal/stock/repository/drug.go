package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/medsupply/medsupply-backend/pkg/database"
	"github.com/medsupply/medsupply-backend/pkg/errors"
)

// Drug is a drug presentation from the catalog. Catalog maintenance lives
// elsewhere; the stock engine only reads drugs for lot identity and for
// shortage reporting.
type Drug struct {
	ID           string    `db:"id" json:"id"`
	GroupName    string    `db:"group_name" json:"group_name"`
	Presentation string    `db:"presentation" json:"presentation"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

// DisplayName returns the name shown to operators, e.g.
// "Dipirona - 500mg comprimido".
func (d *Drug) DisplayName() string {
	return d.GroupName + " - " + d.Presentation
}

// DrugRepository reads the drug catalog
type DrugRepository struct {
	db *database.DB
}

// NewDrugRepository creates a new drug repository
func NewDrugRepository(db *database.DB) *DrugRepository {
	return &DrugRepository{db: db}
}

// GetByID gets a drug by ID
func (r *DrugRepository) GetByID(ctx context.Context, q database.Queryer, id string) (*Drug, error) {
	var drug Drug
	query := `SELECT * FROM drugs WHERE id = $1`
	if err := sqlx.GetContext(ctx, q, &drug, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.NotFound("drug")
		}
		return nil, err
	}
	return &drug, nil
}
