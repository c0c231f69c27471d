package service

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/medsupply/medsupply-backend/internal/requisition/events"
	"github.com/medsupply/medsupply-backend/internal/requisition/repository"
	stockrepo "github.com/medsupply/medsupply-backend/internal/stock/repository"
	stockservice "github.com/medsupply/medsupply-backend/internal/stock/service"
	"github.com/medsupply/medsupply-backend/pkg/database"
	"github.com/medsupply/medsupply-backend/pkg/errors"
	"github.com/medsupply/medsupply-backend/pkg/logger"
	"github.com/medsupply/medsupply-backend/pkg/messaging"
)

// RequisitionService drives the requisition lifecycle. Stock only moves at
// dispatch, and only out of the central warehouse; receipt confirmation is
// an acknowledgement and does not credit the destination's stock.
type RequisitionService struct {
	db           *database.DB
	reqRepo      *repository.RequisitionRepository
	entryRepo    *stockrepo.StockEntryRepository
	movementRepo *stockrepo.MovementRepository
	locationRepo *stockrepo.LocationRepository
	drugRepo     *stockrepo.DrugRepository
	transferRepo *stockrepo.TransferRepository
	publisher    *events.RequisitionEventPublisher
	logger       *logger.Logger
}

// NewRequisitionService creates a new requisition service
func NewRequisitionService(
	db *database.DB,
	reqRepo *repository.RequisitionRepository,
	entryRepo *stockrepo.StockEntryRepository,
	movementRepo *stockrepo.MovementRepository,
	locationRepo *stockrepo.LocationRepository,
	drugRepo *stockrepo.DrugRepository,
	transferRepo *stockrepo.TransferRepository,
	publisher *events.RequisitionEventPublisher,
	log *logger.Logger,
) *RequisitionService {
	return &RequisitionService{
		db:           db,
		reqRepo:      reqRepo,
		entryRepo:    entryRepo,
		movementRepo: movementRepo,
		locationRepo: locationRepo,
		drugRepo:     drugRepo,
		transferRepo: transferRepo,
		publisher:    publisher,
		logger:       log,
	}
}

// CreateInput is the input for opening a requisition
type CreateInput struct {
	RequestingLocationID string
	RequestingUserID     string
	Items                []CreateItemInput
}

// CreateItemInput is one requested drug line
type CreateItemInput struct {
	DrugID   string
	Quantity int
}

// Create opens a requisition in AWAITING_REVIEW with at least one item.
func (s *RequisitionService) Create(ctx context.Context, in CreateInput) (*repository.Requisition, []*repository.RequisitionItem, error) {
	if len(in.Items) == 0 {
		return nil, nil, errors.Validation(map[string]string{
			"items": "at least one item is required",
		})
	}
	for _, item := range in.Items {
		if item.Quantity <= 0 {
			return nil, nil, errors.Validation(map[string]string{
				"quantity": "must be greater than zero",
			})
		}
	}

	req := &repository.Requisition{
		RequestingLocationID: in.RequestingLocationID,
		RequestingUserID:     in.RequestingUserID,
	}
	items := make([]*repository.RequisitionItem, 0, len(in.Items))
	for _, item := range in.Items {
		items = append(items, &repository.RequisitionItem{
			DrugID:            item.DrugID,
			QuantityRequested: item.Quantity,
		})
	}

	err := s.db.Transaction(ctx, func(tx *sqlx.Tx) error {
		return s.reqRepo.Create(ctx, tx, req, items)
	})
	if err != nil {
		return nil, nil, err
	}

	s.publisher.PublishCreated(ctx, messaging.RequisitionEvent{
		RequisitionID: req.ID,
		LocationID:    req.RequestingLocationID,
		Status:        req.Status,
		ActorID:       in.RequestingUserID,
	})

	s.logger.Info().
		Str("requisition_id", req.ID).
		Str("location_id", req.RequestingLocationID).
		Int("items", len(items)).
		Msg("requisition created")

	return req, items, nil
}

// ItemApproval is the reviewer's ruling on one requisition item
type ItemApproval struct {
	ItemID   string
	Quantity int
}

// Approve records the central reviewer's per-item rulings and moves the
// requisition to IN_PICKING. Each approved quantity is checked against the
// warehouse's current availability, but no stock moves yet; availability
// can still change before dispatch.
func (s *RequisitionService) Approve(ctx context.Context, requisitionID, reviewerID string, approvals []ItemApproval) (*repository.Requisition, error) {
	if len(approvals) == 0 {
		return nil, errors.Validation(map[string]string{
			"items": "at least one item ruling is required",
		})
	}
	for _, a := range approvals {
		if a.Quantity < 0 {
			return nil, errors.Validation(map[string]string{
				"quantity_approved": "must not be negative",
			})
		}
	}

	var req *repository.Requisition
	err := s.db.Transaction(ctx, func(tx *sqlx.Tx) error {
		var err error
		req, err = s.reqRepo.GetForUpdate(ctx, tx, requisitionID)
		if err != nil {
			return err
		}
		if req.Status != repository.StatusAwaitingReview {
			return errors.InvalidState(fmt.Sprintf("cannot approve a requisition in status %s", req.Status))
		}

		central, err := s.locationRepo.GetCentral(ctx, tx)
		if err != nil {
			return err
		}

		items, err := s.reqRepo.Items(ctx, tx, requisitionID)
		if err != nil {
			return err
		}
		byID := make(map[string]*repository.RequisitionItem, len(items))
		for _, item := range items {
			byID[item.ID] = item
		}

		for _, a := range approvals {
			item, ok := byID[a.ItemID]
			if !ok {
				return errors.BadRequest("item does not belong to this requisition")
			}

			if a.Quantity > 0 {
				available, err := s.entryRepo.AvailableForDrug(ctx, tx, central.ID, item.DrugID)
				if err != nil {
					return err
				}
				if available < a.Quantity {
					drug, err := s.drugRepo.GetByID(ctx, tx, item.DrugID)
					if err != nil {
						return err
					}
					return errors.InsufficientStock(errors.StockShortage{
						ItemID:    item.ID,
						DrugID:    item.DrugID,
						DrugName:  drug.DisplayName(),
						Available: available,
						Requested: a.Quantity,
					})
				}
			}

			if err := s.reqRepo.SetItemApproved(ctx, tx, a.ItemID, a.Quantity); err != nil {
				return err
			}
		}

		return s.reqRepo.SetStatus(ctx, tx, requisitionID, repository.StatusInPicking)
	})
	if err != nil {
		return nil, err
	}
	req.Status = repository.StatusInPicking

	s.publisher.PublishApproved(ctx, messaging.RequisitionEvent{
		RequisitionID: req.ID,
		LocationID:    req.RequestingLocationID,
		Status:        req.Status,
		ActorID:       reviewerID,
	})

	s.logger.Info().
		Str("requisition_id", req.ID).
		Msg("requisition approved for picking")

	return req, nil
}

// Dispatch ships an IN_PICKING requisition from the central warehouse.
// Approved quantities are drawn oldest expiry first; every draw decrements
// a locked stock entry and appends a TRANSFER_OUT movement referencing the
// requisition. The whole shipment commits or rolls back as one unit, so a
// shortage on any line leaves the warehouse untouched.
func (s *RequisitionService) Dispatch(ctx context.Context, requisitionID, dispatcherID string) (*repository.Requisition, error) {
	var req *repository.Requisition
	err := s.db.Transaction(ctx, func(tx *sqlx.Tx) error {
		var err error
		req, err = s.reqRepo.GetForUpdate(ctx, tx, requisitionID)
		if err != nil {
			return err
		}
		if req.Status != repository.StatusInPicking {
			return errors.InvalidState(fmt.Sprintf("cannot dispatch a requisition in status %s", req.Status))
		}

		central, err := s.locationRepo.GetCentral(ctx, tx)
		if err != nil {
			return err
		}

		items, err := s.reqRepo.Items(ctx, tx, requisitionID)
		if err != nil {
			return err
		}

		for _, item := range items {
			if item.QuantityApproved == nil || *item.QuantityApproved <= 0 {
				continue
			}
			needed := *item.QuantityApproved

			candidates, err := s.entryRepo.FIFOCandidatesLocked(ctx, tx, central.ID, item.DrugID)
			if err != nil {
				return err
			}
			plan, err := stockservice.PlanFIFO(candidates, item.DrugID, needed)
			if err != nil {
				var appErr *errors.AppError
				if errors.As(err, &appErr) && appErr.Shortage != nil {
					drug, derr := s.drugRepo.GetByID(ctx, tx, item.DrugID)
					if derr == nil {
						appErr.Shortage.ItemID = item.ID
						appErr.Shortage.DrugName = drug.DisplayName()
					}
				}
				return err
			}

			note := fmt.Sprintf("requisition dispatch (%s)", req.ID)
			for _, alloc := range plan {
				if _, err := s.entryRepo.Decrement(ctx, tx, alloc.EntryID, alloc.Quantity); err != nil {
					return err
				}
				if err := s.movementRepo.Append(ctx, tx, &stockrepo.Movement{
					LocationID:  central.ID,
					LotID:       alloc.LotID,
					UserID:      dispatcherID,
					Type:        stockrepo.MovementTransferOut,
					Quantity:    -alloc.Quantity,
					ReferenceID: &req.ID,
					Note:        &note,
				}); err != nil {
					return err
				}
			}
		}

		return s.reqRepo.SetStatus(ctx, tx, requisitionID, repository.StatusDispatched)
	})
	if err != nil {
		return nil, err
	}
	req.Status = repository.StatusDispatched

	s.publisher.PublishDispatched(ctx, messaging.RequisitionEvent{
		RequisitionID: req.ID,
		LocationID:    req.RequestingLocationID,
		Status:        req.Status,
		ActorID:       dispatcherID,
	})

	s.logger.Info().
		Str("requisition_id", req.ID).
		Msg("requisition dispatched")

	return req, nil
}

// Receive confirms arrival at the requesting location and closes the
// requisition as RECEIVED_FULL. Only the requesting location may confirm.
//
// Confirmation does not credit the destination's stock; the destination
// registers arrivals through its own receipt flow.
func (s *RequisitionService) Receive(ctx context.Context, requisitionID, callerLocationID, callerUserID string) (*repository.Requisition, error) {
	var req *repository.Requisition
	err := s.db.Transaction(ctx, func(tx *sqlx.Tx) error {
		var err error
		req, err = s.reqRepo.GetForUpdate(ctx, tx, requisitionID)
		if err != nil {
			return err
		}
		if req.RequestingLocationID != callerLocationID {
			return errors.Forbidden("only the requesting location can confirm receipt")
		}
		if req.Status != repository.StatusDispatched {
			return errors.InvalidState(fmt.Sprintf("cannot confirm receipt of a requisition in status %s", req.Status))
		}

		return s.reqRepo.SetStatus(ctx, tx, requisitionID, repository.StatusReceivedFull)
	})
	if err != nil {
		return nil, err
	}
	req.Status = repository.StatusReceivedFull

	s.publisher.PublishReceived(ctx, messaging.RequisitionEvent{
		RequisitionID: req.ID,
		LocationID:    req.RequestingLocationID,
		Status:        req.Status,
		ActorID:       callerUserID,
	})

	s.logger.Info().
		Str("requisition_id", req.ID).
		Msg("requisition receipt confirmed")

	return req, nil
}

// Refuse rejects a requisition before dispatch. A reason is mandatory and
// the status becomes terminal.
func (s *RequisitionService) Refuse(ctx context.Context, requisitionID, reviewerID, reason string) (*repository.Requisition, error) {
	if reason == "" {
		return nil, errors.Validation(map[string]string{
			"reason": "is required",
		})
	}

	var req *repository.Requisition
	err := s.db.Transaction(ctx, func(tx *sqlx.Tx) error {
		var err error
		req, err = s.reqRepo.GetForUpdate(ctx, tx, requisitionID)
		if err != nil {
			return err
		}
		if req.Status != repository.StatusAwaitingReview && req.Status != repository.StatusInPicking {
			return errors.InvalidState(fmt.Sprintf("cannot refuse a requisition in status %s", req.Status))
		}

		return s.reqRepo.SetRefused(ctx, tx, requisitionID, reason)
	})
	if err != nil {
		return nil, err
	}
	req.Status = repository.StatusRefused
	req.RefusalReason = &reason

	s.publisher.PublishRefused(ctx, messaging.RequisitionEvent{
		RequisitionID: req.ID,
		LocationID:    req.RequestingLocationID,
		Status:        req.Status,
		ActorID:       reviewerID,
		Reason:        reason,
	})

	s.logger.Info().
		Str("requisition_id", req.ID).
		Str("reason", reason).
		Msg("requisition refused")

	return req, nil
}

// RequisitionDetail is a requisition with its items for the detail view
type RequisitionDetail struct {
	*repository.Requisition
	Items []*repository.ItemDetail `json:"items"`
}

// Get returns a requisition with its items. Non-central callers can only
// see their own location's requisitions.
func (s *RequisitionService) Get(ctx context.Context, requisitionID, callerLocationID string, callerIsCentral bool) (*RequisitionDetail, error) {
	req, err := s.reqRepo.GetByID(ctx, requisitionID)
	if err != nil {
		return nil, err
	}
	if !callerIsCentral && req.RequestingLocationID != callerLocationID {
		return nil, errors.Forbidden("requisition belongs to another location")
	}

	items, err := s.reqRepo.ItemDetails(ctx, requisitionID)
	if err != nil {
		return nil, err
	}
	return &RequisitionDetail{Requisition: req, Items: items}, nil
}

// List lists requisitions: every one for central callers, otherwise only
// the caller's own location's.
func (s *RequisitionService) List(ctx context.Context, callerLocationID string, callerIsCentral bool) ([]*repository.Summary, error) {
	if callerIsCentral {
		return s.reqRepo.ListAll(ctx)
	}
	return s.reqRepo.ListByLocation(ctx, callerLocationID)
}

// Report lists requisitions that entered fulfilment within [start, end],
// oldest first.
func (s *RequisitionService) Report(ctx context.Context, start, end time.Time) ([]*repository.Summary, error) {
	if end.Before(start) {
		return nil, errors.Validation(map[string]string{
			"end_date": "must not be before start_date",
		})
	}
	return s.reqRepo.ListForReport(ctx, start, end)
}
