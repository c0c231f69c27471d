package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/medsupply/medsupply-backend/internal/stock/service"
	"github.com/medsupply/medsupply-backend/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newStockService builds a service whose dependencies are never reached:
// these tests cover input validation that fails before any database or
// broker call.
func newStockService() *service.StockService {
	return service.NewStockService(nil, nil, nil, nil, nil, nil, nil)
}

func TestReceiveLot_RejectsNonPositiveQuantity(t *testing.T) {
	svc := newStockService()
	now := time.Now()

	for _, quantity := range []int{0, -5} {
		_, err := svc.ReceiveLot(context.Background(), service.ReceiveLotInput{
			DrugID:          "d1",
			SupplierID:      "s1",
			LotCode:         "LOT-1",
			ManufactureDate: now.AddDate(-1, 0, 0),
			ExpiryDate:      now.AddDate(1, 0, 0),
			Quantity:        quantity,
		})
		require.Error(t, err)
		assert.True(t, errors.Is(err, errors.ErrValidation))
	}
}

func TestReceiveLot_RejectsExpiryBeforeManufacture(t *testing.T) {
	svc := newStockService()
	now := time.Now()

	_, err := svc.ReceiveLot(context.Background(), service.ReceiveLotInput{
		DrugID:          "d1",
		SupplierID:      "s1",
		LotCode:         "LOT-1",
		ManufactureDate: now,
		ExpiryDate:      now.AddDate(0, -6, 0),
		Quantity:        10,
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrValidation))
}

func TestReceiveLot_RejectsEqualDates(t *testing.T) {
	svc := newStockService()
	now := time.Now()

	_, err := svc.ReceiveLot(context.Background(), service.ReceiveLotInput{
		DrugID:          "d1",
		SupplierID:      "s1",
		LotCode:         "LOT-1",
		ManufactureDate: now,
		ExpiryDate:      now,
		Quantity:        10,
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrValidation))
}

func TestTransfer_RejectsSameLocation(t *testing.T) {
	svc := newStockService()

	_, err := svc.Transfer(context.Background(), service.TransferInput{
		OriginID:      "loc-1",
		DestinationID: "loc-1",
		SenderUserID:  "u1",
		Items: []service.TransferItemInput{
			{LotID: "l1", Quantity: 5},
		},
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrSameLocation))
}

func TestTransfer_RejectsEmptyItems(t *testing.T) {
	svc := newStockService()

	_, err := svc.Transfer(context.Background(), service.TransferInput{
		OriginID:      "loc-1",
		DestinationID: "loc-2",
		SenderUserID:  "u1",
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrValidation))
}

func TestTransfer_RejectsNonPositiveItemQuantity(t *testing.T) {
	svc := newStockService()

	_, err := svc.Transfer(context.Background(), service.TransferInput{
		OriginID:      "loc-1",
		DestinationID: "loc-2",
		SenderUserID:  "u1",
		Items: []service.TransferItemInput{
			{LotID: "l1", Quantity: 0},
		},
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrValidation))
}

func TestSelectFIFO_RejectsNonPositiveNeed(t *testing.T) {
	svc := newStockService()

	_, err := svc.SelectFIFO(context.Background(), "loc-1", "d1", 0)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrValidation))
}
