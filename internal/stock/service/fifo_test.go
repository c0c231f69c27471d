package service_test

import (
	"testing"
	"time"

	"github.com/medsupply/medsupply-backend/internal/stock/repository"
	"github.com/medsupply/medsupply-backend/internal/stock/service"
	"github.com/medsupply/medsupply-backend/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func candidate(entryID, lotID string, quantity int, expiry time.Time) *repository.FIFOCandidate {
	return &repository.FIFOCandidate{
		EntryID:    entryID,
		LotID:      lotID,
		Quantity:   quantity,
		ExpiryDate: expiry,
	}
}

func TestPlanFIFO_SingleLotCoversNeed(t *testing.T) {
	now := time.Now()
	candidates := []*repository.FIFOCandidate{
		candidate("e1", "l1", 100, now.AddDate(0, 1, 0)),
		candidate("e2", "l2", 50, now.AddDate(0, 6, 0)),
	}

	plan, err := service.PlanFIFO(candidates, "drug-1", 40)
	require.NoError(t, err)

	require.Len(t, plan, 1)
	assert.Equal(t, "e1", plan[0].EntryID)
	assert.Equal(t, "l1", plan[0].LotID)
	assert.Equal(t, 40, plan[0].Quantity)
}

func TestPlanFIFO_SpansMultipleLots(t *testing.T) {
	now := time.Now()
	candidates := []*repository.FIFOCandidate{
		candidate("e1", "l1", 30, now.AddDate(0, 1, 0)),
		candidate("e2", "l2", 30, now.AddDate(0, 2, 0)),
		candidate("e3", "l3", 30, now.AddDate(0, 3, 0)),
	}

	plan, err := service.PlanFIFO(candidates, "drug-1", 70)
	require.NoError(t, err)

	require.Len(t, plan, 3)
	// Oldest expiry drains first, last lot covers the remainder
	assert.Equal(t, 30, plan[0].Quantity)
	assert.Equal(t, 30, plan[1].Quantity)
	assert.Equal(t, 10, plan[2].Quantity)
	assert.Equal(t, "l1", plan[0].LotID)
	assert.Equal(t, "l2", plan[1].LotID)
	assert.Equal(t, "l3", plan[2].LotID)
}

func TestPlanFIFO_ExactFit(t *testing.T) {
	now := time.Now()
	candidates := []*repository.FIFOCandidate{
		candidate("e1", "l1", 25, now.AddDate(0, 1, 0)),
		candidate("e2", "l2", 25, now.AddDate(0, 2, 0)),
	}

	plan, err := service.PlanFIFO(candidates, "drug-1", 50)
	require.NoError(t, err)

	require.Len(t, plan, 2)
	total := 0
	for _, alloc := range plan {
		total += alloc.Quantity
	}
	assert.Equal(t, 50, total)
}

func TestPlanFIFO_Shortage(t *testing.T) {
	now := time.Now()
	candidates := []*repository.FIFOCandidate{
		candidate("e1", "l1", 10, now.AddDate(0, 1, 0)),
		candidate("e2", "l2", 15, now.AddDate(0, 2, 0)),
	}

	plan, err := service.PlanFIFO(candidates, "drug-1", 30)
	require.Error(t, err)
	assert.Nil(t, plan)
	assert.True(t, errors.Is(err, errors.ErrInsufficientStock))

	var appErr *errors.AppError
	require.True(t, errors.As(err, &appErr))
	require.NotNil(t, appErr.Shortage)
	assert.Equal(t, "drug-1", appErr.Shortage.DrugID)
	assert.Equal(t, 25, appErr.Shortage.Available)
	assert.Equal(t, 30, appErr.Shortage.Requested)
}

func TestPlanFIFO_NoCandidates(t *testing.T) {
	plan, err := service.PlanFIFO(nil, "drug-1", 1)
	require.Error(t, err)
	assert.Nil(t, plan)

	var appErr *errors.AppError
	require.True(t, errors.As(err, &appErr))
	require.NotNil(t, appErr.Shortage)
	assert.Equal(t, 0, appErr.Shortage.Available)
}
