package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/medsupply/medsupply-backend/internal/requisition/service"
	"github.com/medsupply/medsupply-backend/pkg/actor"
	"github.com/medsupply/medsupply-backend/pkg/errors"
	"github.com/medsupply/medsupply-backend/pkg/httputil"
	"github.com/medsupply/medsupply-backend/pkg/logger"
)

// RequisitionHandler handles requisition lifecycle endpoints
type RequisitionHandler struct {
	service *service.RequisitionService
	logger  *logger.Logger
}

// NewRequisitionHandler creates a new requisition handler
func NewRequisitionHandler(svc *service.RequisitionService, log *logger.Logger) *RequisitionHandler {
	return &RequisitionHandler{
		service: svc,
		logger:  log,
	}
}

// Create opens a requisition for the caller's location
func (h *RequisitionHandler) Create(w http.ResponseWriter, r *http.Request) {
	a := actor.MustFromContext(r.Context())

	var req struct {
		Items []struct {
			DrugID   string `json:"drug_id" validate:"required,uuid"`
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

	in := service.CreateInput{
		RequestingLocationID: a.LocationID,
		RequestingUserID:     a.ID,
	}
	for _, item := range req.Items {
		in.Items = append(in.Items, service.CreateItemInput{
			DrugID:   item.DrugID,
			Quantity: item.Quantity,
		})
	}

	requisition, items, err := h.service.Create(r.Context(), in)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.Created(w, map[string]interface{}{
		"requisition": requisition,
		"items":       items,
	})
}

// List lists requisitions visible to the caller
func (h *RequisitionHandler) List(w http.ResponseWriter, r *http.Request) {
	a := actor.MustFromContext(r.Context())

	requisitions, err := h.service.List(r.Context(), a.LocationID, a.IsCentral())
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSONWithMeta(w, http.StatusOK, requisitions, &httputil.Meta{
		Total: int64(len(requisitions)),
	})
}

// Get gets a requisition with its items
func (h *RequisitionHandler) Get(w http.ResponseWriter, r *http.Request) {
	a := actor.MustFromContext(r.Context())
	id := chi.URLParam(r, "id")

	detail, err := h.service.Get(r.Context(), id, a.LocationID, a.IsCentral())
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, detail)
}

// Approve records per-item rulings and moves the requisition to picking
func (h *RequisitionHandler) Approve(w http.ResponseWriter, r *http.Request) {
	a := actor.MustFromContext(r.Context())
	id := chi.URLParam(r, "id")

	var req struct {
		Items []struct {
			ItemID   string `json:"item_id" validate:"required,uuid"`
			Quantity int    `json:"quantity_approved" validate:"min=0"`
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

	approvals := make([]service.ItemApproval, 0, len(req.Items))
	for _, item := range req.Items {
		approvals = append(approvals, service.ItemApproval{
			ItemID:   item.ItemID,
			Quantity: item.Quantity,
		})
	}

	requisition, err := h.service.Approve(r.Context(), id, a.ID, approvals)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, requisition)
}

// Dispatch ships an approved requisition from the central warehouse
func (h *RequisitionHandler) Dispatch(w http.ResponseWriter, r *http.Request) {
	a := actor.MustFromContext(r.Context())
	id := chi.URLParam(r, "id")

	requisition, err := h.service.Dispatch(r.Context(), id, a.ID)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, requisition)
}

// Receive confirms arrival at the requesting location
func (h *RequisitionHandler) Receive(w http.ResponseWriter, r *http.Request) {
	a := actor.MustFromContext(r.Context())
	id := chi.URLParam(r, "id")

	requisition, err := h.service.Receive(r.Context(), id, a.LocationID, a.ID)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, requisition)
}

// Refuse rejects a requisition with a mandatory reason
func (h *RequisitionHandler) Refuse(w http.ResponseWriter, r *http.Request) {
	a := actor.MustFromContext(r.Context())
	id := chi.URLParam(r, "id")

	var req struct {
		Reason string `json:"reason" validate:"required"`
	}
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}
	if err := httputil.Validate(&req); err != nil {
		httputil.Error(w, err)
		return
	}

	requisition, err := h.service.Refuse(r.Context(), id, a.ID, req.Reason)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, requisition)
}

// Report lists fulfilment activity between two dates
func (h *RequisitionHandler) Report(w http.ResponseWriter, r *http.Request) {
	startParam := r.URL.Query().Get("start_date")
	endParam := r.URL.Query().Get("end_date")

	start, err := time.Parse("2006-01-02", startParam)
	if err != nil {
		httputil.Error(w, errors.Validation(map[string]string{
			"start_date": "must be a date in YYYY-MM-DD format",
		}))
		return
	}
	end, err := time.Parse("2006-01-02", endParam)
	if err != nil {
		httputil.Error(w, errors.Validation(map[string]string{
			"end_date": "must be a date in YYYY-MM-DD format",
		}))
		return
	}
	// the whole end day is included
	end = end.Add(24*time.Hour - time.Nanosecond)

	requisitions, err := h.service.Report(r.Context(), start, end)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSONWithMeta(w, http.StatusOK, requisitions, &httputil.Meta{
		Total: int64(len(requisitions)),
	})
}

// RecentLogistics lists the merged feed of recent transfers and fulfilled
// requisitions
func (h *RequisitionHandler) RecentLogistics(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if param := r.URL.Query().Get("limit"); param != "" {
		parsed, err := parseLimit(param)
		if err != nil {
			httputil.Error(w, err)
			return
		}
		limit = parsed
	}

	feed, err := h.service.RecentLogistics(r.Context(), limit)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, feed)
}

func parseLimit(param string) (int, error) {
	limit, err := strconv.Atoi(param)
	if err != nil || limit <= 0 {
		return 0, errors.Validation(map[string]string{
			"limit": "must be a positive integer",
		})
	}
	if limit > 100 {
		limit = 100
	}
	return limit, nil
}
