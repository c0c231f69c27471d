package service

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/medsupply/medsupply-backend/internal/stock/repository"
	"github.com/medsupply/medsupply-backend/pkg/errors"
	"github.com/medsupply/medsupply-backend/pkg/messaging"
)

// TransferInput is the input for a direct transfer between locations
type TransferInput struct {
	OriginID      string
	DestinationID string
	SenderUserID  string
	RequisitionID *string
	Items         []TransferItemInput
}

// TransferItemInput is one lot line of a transfer request
type TransferItemInput struct {
	LotID    string
	Quantity int
}

// Transfer moves quantities of one or more lots from an origin location to
// a destination. The whole call is one transaction: when any line fails
// sufficiency, every prior line's writes roll back with it. Each line
// decrements the origin entry under a row lock, upserts the destination
// entry and appends a paired TRANSFER_OUT / TRANSFER_IN movement carrying
// the transfer id, so system-wide quantity per lot is conserved.
func (s *StockService) Transfer(ctx context.Context, in TransferInput) (*repository.Transfer, error) {
	if in.OriginID == in.DestinationID {
		return nil, errors.SameLocation()
	}
	if len(in.Items) == 0 {
		return nil, errors.Validation(map[string]string{
			"items": "at least one item is required",
		})
	}
	for _, item := range in.Items {
		if item.Quantity <= 0 {
			return nil, errors.Validation(map[string]string{
				"quantity": "must be greater than zero",
			})
		}
	}

	transfer := &repository.Transfer{
		OriginLocationID:      in.OriginID,
		DestinationLocationID: in.DestinationID,
		SenderUserID:          in.SenderUserID,
		RequisitionID:         in.RequisitionID,
	}

	err := s.db.Transaction(ctx, func(tx *sqlx.Tx) error {
		if err := s.transferRepo.Create(ctx, tx, transfer); err != nil {
			return err
		}

		for _, item := range in.Items {
			origin, err := s.entryRepo.Lock(ctx, tx, in.OriginID, item.LotID)
			if err != nil {
				if errors.Is(err, errors.ErrNotFound) {
					return errors.InsufficientStock(errors.StockShortage{
						LotID:     item.LotID,
						Available: 0,
						Requested: item.Quantity,
					})
				}
				return err
			}
			if origin.Quantity < item.Quantity {
				return errors.InsufficientStock(errors.StockShortage{
					LotID:     item.LotID,
					Available: origin.Quantity,
					Requested: item.Quantity,
				})
			}

			if _, err := s.entryRepo.Decrement(ctx, tx, origin.ID, item.Quantity); err != nil {
				return err
			}
			if _, err := s.entryRepo.Increment(ctx, tx, in.DestinationID, item.LotID, item.Quantity); err != nil {
				return err
			}

			if err := s.transferRepo.AddItem(ctx, tx, &repository.TransferItem{
				TransferID: transfer.ID,
				LotID:      item.LotID,
				Quantity:   item.Quantity,
			}); err != nil {
				return err
			}

			if err := s.movementRepo.Append(ctx, tx, &repository.Movement{
				LocationID:  in.OriginID,
				LotID:       item.LotID,
				UserID:      in.SenderUserID,
				Type:        repository.MovementTransferOut,
				Quantity:    -item.Quantity,
				ReferenceID: &transfer.ID,
			}); err != nil {
				return err
			}
			if err := s.movementRepo.Append(ctx, tx, &repository.Movement{
				LocationID:  in.DestinationID,
				LotID:       item.LotID,
				UserID:      in.SenderUserID,
				Type:        repository.MovementTransferIn,
				Quantity:    item.Quantity,
				ReferenceID: &transfer.ID,
			}); err != nil {
				return err
			}
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publisher.PublishStockTransferred(ctx, messaging.StockTransferredEvent{
		TransferID:    transfer.ID,
		OriginID:      in.OriginID,
		DestinationID: in.DestinationID,
		ItemCount:     len(in.Items),
		SentBy:        in.SenderUserID,
	})

	s.logger.Info().
		Str("transfer_id", transfer.ID).
		Str("origin_id", in.OriginID).
		Str("destination_id", in.DestinationID).
		Int("items", len(in.Items)).
		Msg("transfer completed")

	return transfer, nil
}

// GetTransfer gets a transfer with its items
func (s *StockService) GetTransfer(ctx context.Context, id string) (*repository.Transfer, []*repository.TransferItem, error) {
	return s.transferRepo.GetByID(ctx, id)
}
