package service

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/medsupply/medsupply-backend/internal/stock/events"
	"github.com/medsupply/medsupply-backend/internal/stock/repository"
	"github.com/medsupply/medsupply-backend/pkg/database"
	"github.com/medsupply/medsupply-backend/pkg/errors"
	"github.com/medsupply/medsupply-backend/pkg/logger"
	"github.com/medsupply/medsupply-backend/pkg/messaging"
)

// StockService handles the inventory ledger: receipts, queries, disposal
// and direct transfers. Every mutation runs inside a single transaction
// and appends to the movement log.
type StockService struct {
	db           *database.DB
	lotRepo      *repository.LotRepository
	entryRepo    *repository.StockEntryRepository
	movementRepo *repository.MovementRepository
	transferRepo *repository.TransferRepository
	publisher    *events.StockEventPublisher
	logger       *logger.Logger
}

// NewStockService creates a new stock service
func NewStockService(
	db *database.DB,
	lotRepo *repository.LotRepository,
	entryRepo *repository.StockEntryRepository,
	movementRepo *repository.MovementRepository,
	transferRepo *repository.TransferRepository,
	publisher *events.StockEventPublisher,
	log *logger.Logger,
) *StockService {
	return &StockService{
		db:           db,
		lotRepo:      lotRepo,
		entryRepo:    entryRepo,
		movementRepo: movementRepo,
		transferRepo: transferRepo,
		publisher:    publisher,
		logger:       log,
	}
}

// ReceiveLotInput is the input for receiving a lot into a location
type ReceiveLotInput struct {
	LocationID      string
	UserID          string
	DrugID          string
	SupplierID      string
	LotCode         string
	ManufactureDate time.Time
	ExpiryDate      time.Time
	Quantity        int
}

// ReceiveLotResult carries the lot and the updated stock entry
type ReceiveLotResult struct {
	Lot        *repository.Lot        `json:"lot"`
	StockEntry *repository.StockEntry `json:"stock_entry"`
}

// ReceiveLot registers the arrival of a batch at a location. The lot is
// created on first receipt of its (code, drug, supplier) key and reused
// afterwards; the stock entry is created or incremented; a RECEIPT movement
// is appended. All three writes share one transaction.
//
// Not idempotent: receiving the same input twice doubles the stock. Callers
// must deduplicate retries.
func (s *StockService) ReceiveLot(ctx context.Context, in ReceiveLotInput) (*ReceiveLotResult, error) {
	if in.Quantity <= 0 {
		return nil, errors.Validation(map[string]string{
			"quantity": "must be greater than zero",
		})
	}
	if !in.ManufactureDate.Before(in.ExpiryDate) {
		return nil, errors.Validation(map[string]string{
			"expiry_date": "must be after the manufacture date",
		})
	}

	lot := &repository.Lot{
		DrugID:          in.DrugID,
		SupplierID:      in.SupplierID,
		LotCode:         in.LotCode,
		ManufactureDate: in.ManufactureDate,
		ExpiryDate:      in.ExpiryDate,
	}

	var entry *repository.StockEntry
	err := s.db.Transaction(ctx, func(tx *sqlx.Tx) error {
		if err := s.lotRepo.Ensure(ctx, tx, lot); err != nil {
			return err
		}

		var err error
		entry, err = s.entryRepo.Increment(ctx, tx, in.LocationID, lot.ID, in.Quantity)
		if err != nil {
			return err
		}

		note := "supplier receipt"
		return s.movementRepo.Append(ctx, tx, &repository.Movement{
			LocationID: in.LocationID,
			LotID:      lot.ID,
			UserID:     in.UserID,
			Type:       repository.MovementReceipt,
			Quantity:   in.Quantity,
			Note:       &note,
		})
	})
	if err != nil {
		return nil, err
	}

	s.publisher.PublishLotReceived(ctx, messaging.LotReceivedEvent{
		LotID:      lot.ID,
		LotCode:    lot.LotCode,
		DrugID:     lot.DrugID,
		LocationID: in.LocationID,
		Quantity:   in.Quantity,
		ReceivedBy: in.UserID,
	})

	s.logger.Info().
		Str("lot_id", lot.ID).
		Str("location_id", in.LocationID).
		Int("quantity", in.Quantity).
		Msg("lot received")

	return &ReceiveLotResult{Lot: lot, StockEntry: entry}, nil
}

// QueryStock lists a location's on-hand stock with lot and drug detail.
// expiredOnly switches between current stock and the expired-only view.
func (s *StockService) QueryStock(ctx context.Context, locationID string, expiredOnly bool) ([]*repository.StockEntryDetail, error) {
	return s.entryRepo.ListByLocation(ctx, locationID, expiredOnly)
}

// DisposeExpired writes off an expired lot entirely: the entry is forced
// to zero (not decremented) and an EXPIRY_LOSS movement records the full
// prior quantity as negative.
func (s *StockService) DisposeExpired(ctx context.Context, stockEntryID, userID string) (*repository.StockEntry, error) {
	var disposed *repository.StockEntry
	var lotCode string
	var priorQuantity int

	err := s.db.Transaction(ctx, func(tx *sqlx.Tx) error {
		entry, err := s.entryRepo.LockByID(ctx, tx, stockEntryID)
		if err != nil {
			return err
		}
		if entry.Quantity <= 0 {
			return errors.AlreadyZero()
		}

		lot, err := s.lotRepo.GetByID(ctx, entry.LotID)
		if err != nil {
			return err
		}
		lotCode = lot.LotCode

		priorQuantity = entry.Quantity
		disposed, err = s.entryRepo.Zero(ctx, tx, entry.ID)
		if err != nil {
			return err
		}

		note := fmt.Sprintf("administrative disposal of expired lot (%s)", lotCode)
		return s.movementRepo.Append(ctx, tx, &repository.Movement{
			LocationID: entry.LocationID,
			LotID:      entry.LotID,
			UserID:     userID,
			Type:       repository.MovementExpiryLoss,
			Quantity:   -priorQuantity,
			Note:       &note,
		})
	})
	if err != nil {
		return nil, err
	}

	s.publisher.PublishStockDisposed(ctx, messaging.StockDisposedEvent{
		StockEntryID: disposed.ID,
		LotID:        disposed.LotID,
		LocationID:   disposed.LocationID,
		Quantity:     priorQuantity,
		DisposedBy:   userID,
	})

	s.logger.Info().
		Str("stock_entry_id", stockEntryID).
		Str("lot_code", lotCode).
		Int("quantity", priorQuantity).
		Msg("expired lot disposed")

	return disposed, nil
}

// DisposalHistory lists a location's expiry write-offs, newest first.
func (s *StockService) DisposalHistory(ctx context.Context, locationID string) ([]*repository.DisposalRecord, error) {
	return s.movementRepo.ListDisposals(ctx, locationID)
}
