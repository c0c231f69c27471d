package service

import (
	"context"

	"github.com/medsupply/medsupply-backend/internal/stock/repository"
	"github.com/medsupply/medsupply-backend/pkg/errors"
)

// FIFOAllocation is one step of a FIFO plan: take Quantity units from the
// stock entry holding LotID.
type FIFOAllocation struct {
	EntryID  string `json:"entry_id"`
	LotID    string `json:"lot_id"`
	Quantity int    `json:"quantity"`
}

// PlanFIFO greedily consumes candidates (already ordered oldest expiry
// first) until needed is exhausted. Returns InsufficientStock with the
// total available when the candidates cannot cover the need; no plan is
// returned in that case.
func PlanFIFO(candidates []*repository.FIFOCandidate, drugID string, needed int) ([]FIFOAllocation, error) {
	available := 0
	for _, c := range candidates {
		available += c.Quantity
	}
	if available < needed {
		return nil, errors.InsufficientStock(errors.StockShortage{
			DrugID:    drugID,
			Available: available,
			Requested: needed,
		})
	}

	plan := make([]FIFOAllocation, 0, len(candidates))
	remaining := needed
	for _, c := range candidates {
		if remaining <= 0 {
			break
		}
		take := c.Quantity
		if take > remaining {
			take = remaining
		}
		plan = append(plan, FIFOAllocation{
			EntryID:  c.EntryID,
			LotID:    c.LotID,
			Quantity: take,
		})
		remaining -= take
	}
	return plan, nil
}

// SelectFIFO builds a read-only allocation plan drawing a drug's stock at a
// location oldest expiry first. No stock is mutated; callers execute the
// plan transactionally with locked rows.
func (s *StockService) SelectFIFO(ctx context.Context, locationID, drugID string, needed int) ([]FIFOAllocation, error) {
	if needed <= 0 {
		return nil, errors.Validation(map[string]string{
			"quantity": "must be greater than zero",
		})
	}

	candidates, err := s.entryRepo.FIFOCandidates(ctx, s.db, locationID, drugID)
	if err != nil {
		return nil, err
	}
	return PlanFIFO(candidates, drugID, needed)
}
