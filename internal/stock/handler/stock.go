package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/medsupply/medsupply-backend/internal/stock/service"
	"github.com/medsupply/medsupply-backend/pkg/actor"
	"github.com/medsupply/medsupply-backend/pkg/errors"
	"github.com/medsupply/medsupply-backend/pkg/httputil"
	"github.com/medsupply/medsupply-backend/pkg/logger"
)

// StockHandler handles stock ledger endpoints
type StockHandler struct {
	service *service.StockService
	logger  *logger.Logger
}

// NewStockHandler creates a new stock handler
func NewStockHandler(svc *service.StockService, log *logger.Logger) *StockHandler {
	return &StockHandler{
		service: svc,
		logger:  log,
	}
}

// Receive registers a supplier delivery at the caller's location
func (h *StockHandler) Receive(w http.ResponseWriter, r *http.Request) {
	a := actor.MustFromContext(r.Context())

	var req struct {
		DrugID          string `json:"drug_id" validate:"required,uuid"`
		SupplierID      string `json:"supplier_id" validate:"required,uuid"`
		LotCode         string `json:"lot_code" validate:"required"`
		ManufactureDate string `json:"manufacture_date" validate:"required"`
		ExpiryDate      string `json:"expiry_date" validate:"required"`
		Quantity        int    `json:"quantity" validate:"required,gt=0"`
	}
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}
	if err := httputil.Validate(&req); err != nil {
		httputil.Error(w, err)
		return
	}

	mfg, err := time.Parse("2006-01-02", req.ManufactureDate)
	if err != nil {
		httputil.Error(w, errors.Validation(map[string]string{
			"manufacture_date": "must be a date in YYYY-MM-DD format",
		}))
		return
	}
	exp, err := time.Parse("2006-01-02", req.ExpiryDate)
	if err != nil {
		httputil.Error(w, errors.Validation(map[string]string{
			"expiry_date": "must be a date in YYYY-MM-DD format",
		}))
		return
	}

	result, err := h.service.ReceiveLot(r.Context(), service.ReceiveLotInput{
		LocationID:      a.LocationID,
		UserID:          a.ID,
		DrugID:          req.DrugID,
		SupplierID:      req.SupplierID,
		LotCode:         req.LotCode,
		ManufactureDate: mfg,
		ExpiryDate:      exp,
		Quantity:        req.Quantity,
	})
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.Created(w, result)
}

// resolveLocation restricts non-central callers to their own location
func resolveLocation(r *http.Request) (string, error) {
	a := actor.MustFromContext(r.Context())
	locationID := chi.URLParam(r, "id")
	if !a.IsCentral() && locationID != a.LocationID {
		return "", errors.Forbidden("stock of another location is not visible")
	}
	return locationID, nil
}

// Query lists a location's current stock
func (h *StockHandler) Query(w http.ResponseWriter, r *http.Request) {
	locationID, err := resolveLocation(r)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	entries, err := h.service.QueryStock(r.Context(), locationID, false)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, entries)
}

// QueryExpired lists a location's expired stock only
func (h *StockHandler) QueryExpired(w http.ResponseWriter, r *http.Request) {
	locationID, err := resolveLocation(r)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	entries, err := h.service.QueryStock(r.Context(), locationID, true)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, entries)
}

// Dispose writes off an expired stock entry
func (h *StockHandler) Dispose(w http.ResponseWriter, r *http.Request) {
	a := actor.MustFromContext(r.Context())
	entryID := chi.URLParam(r, "id")

	entry, err := h.service.DisposeExpired(r.Context(), entryID, a.ID)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, entry)
}

// Disposals lists a location's expiry write-off history
func (h *StockHandler) Disposals(w http.ResponseWriter, r *http.Request) {
	locationID, err := resolveLocation(r)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	records, err := h.service.DisposalHistory(r.Context(), locationID)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, records)
}
