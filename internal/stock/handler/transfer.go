package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/medsupply/medsupply-backend/internal/stock/service"
	"github.com/medsupply/medsupply-backend/pkg/actor"
	"github.com/medsupply/medsupply-backend/pkg/httputil"
	"github.com/medsupply/medsupply-backend/pkg/logger"
)

// TransferHandler handles direct transfer endpoints
type TransferHandler struct {
	service *service.StockService
	logger  *logger.Logger
}

// NewTransferHandler creates a new transfer handler
func NewTransferHandler(svc *service.StockService, log *logger.Logger) *TransferHandler {
	return &TransferHandler{
		service: svc,
		logger:  log,
	}
}

// Create ships stock from the caller's location to another location
func (h *TransferHandler) Create(w http.ResponseWriter, r *http.Request) {
	a := actor.MustFromContext(r.Context())

	var req struct {
		DestinationLocationID string  `json:"destination_location_id" validate:"required,uuid"`
		RequisitionID         *string `json:"requisition_id" validate:"omitempty,uuid"`
		Items                 []struct {
			LotID    string `json:"lot_id" validate:"required,uuid"`
			Quantity int    `json:"quantity" validate:"required,gt=0"`
		} `json:"items" validate:"required,min=1,dive"`
	}
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}
	if err := httputil.Validate(&req); err != nil {
		httputil.Error(w, err)
		return
	}

	in := service.TransferInput{
		OriginID:      a.LocationID,
		DestinationID: req.DestinationLocationID,
		SenderUserID:  a.ID,
		RequisitionID: req.RequisitionID,
	}
	for _, item := range req.Items {
		in.Items = append(in.Items, service.TransferItemInput{
			LotID:    item.LotID,
			Quantity: item.Quantity,
		})
	}

	transfer, err := h.service.Transfer(r.Context(), in)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.Created(w, transfer)
}

// Get gets a transfer with its items
func (h *TransferHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	transfer, items, err := h.service.GetTransfer(r.Context(), id)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, map[string]interface{}{
		"transfer": transfer,
		"items":    items,
	})
}
