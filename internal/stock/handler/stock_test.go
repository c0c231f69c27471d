package handler_test

import (
	"net/http"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/medsupply/medsupply-backend/internal/stock/handler"
	"github.com/medsupply/medsupply-backend/internal/stock/service"
	"github.com/medsupply/medsupply-backend/pkg/httputil"
	"github.com/medsupply/medsupply-backend/pkg/logger"
	"github.com/medsupply/medsupply-backend/pkg/testutil"
	"github.com/stretchr/testify/assert"
)

// newTestRouter builds the stock routes with the real middleware chain.
// The service has no database behind it; these tests only exercise paths
// that fail before any storage call.
func newTestRouter() http.Handler {
	log := logger.New("test", "test")
	svc := service.NewStockService(nil, nil, nil, nil, nil, nil, log)
	stockHandler := handler.NewStockHandler(svc, log)
	transferHandler := handler.NewTransferHandler(svc, log)

	r := chi.NewRouter()
	r.Use(httputil.ActorMiddleware)
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		httputil.JSON(w, http.StatusOK, map[string]string{"status": "healthy"})
	})
	r.With(httputil.RequireCentral).Post("/stock/receipts", stockHandler.Receive)
	r.Post("/stock/transfers", transferHandler.Create)
	return r
}

func TestRoutes_RejectMissingIdentity(t *testing.T) {
	router := newTestRouter()

	req := testutil.NewHTTPRequest(http.MethodPost, "/stock/receipts", map[string]string{})
	rr := testutil.ExecuteRequest(router, req)

	testutil.AssertStatus(t, rr, http.StatusForbidden)
	testutil.AssertBodyContains(t, rr, "missing identity context")
}

func TestRoutes_HealthSkipsIdentity(t *testing.T) {
	router := newTestRouter()

	req := testutil.NewHTTPRequest(http.MethodGet, "/health", nil)
	rr := testutil.ExecuteRequest(router, req)

	testutil.AssertStatus(t, rr, http.StatusOK)
}

func TestReceive_RequiresCentralRole(t *testing.T) {
	router := newTestRouter()

	req := testutil.NewHTTPRequest(http.MethodPost, "/stock/receipts", map[string]string{})
	testutil.WithActorHeaders(req, "user-1", "Clinic Nurse", "loc-1", "UBS")
	rr := testutil.ExecuteRequest(router, req)

	testutil.AssertStatus(t, rr, http.StatusForbidden)
	testutil.AssertBodyContains(t, rr, "central warehouse role required")
}

func TestReceive_ValidatesBody(t *testing.T) {
	router := newTestRouter()

	// missing every required field
	req := testutil.NewHTTPRequest(http.MethodPost, "/stock/receipts", map[string]string{})
	testutil.WithActorHeaders(req, "user-1", "Warehouse Op", "loc-caf", "CAF")
	rr := testutil.ExecuteRequest(router, req)

	testutil.AssertStatus(t, rr, http.StatusBadRequest)

	var body map[string]interface{}
	testutil.ParseJSONBody(t, rr, &body)
	assert.NotNil(t, body["error"])
}

func TestReceive_RejectsMalformedDates(t *testing.T) {
	router := newTestRouter()

	req := testutil.NewHTTPRequest(http.MethodPost, "/stock/receipts", map[string]interface{}{
		"drug_id":          "0d4b8aa5-2c20-4195-9aab-1f0db9a14e1b",
		"supplier_id":      "74a51f83-9f9b-4cf2-8f86-31ac15c4e2b3",
		"lot_code":         "LOT-1",
		"manufacture_date": "01/02/2024",
		"expiry_date":      "2026-01-01",
		"quantity":         10,
	})
	testutil.WithActorHeaders(req, "user-1", "Warehouse Op", "loc-caf", "CAF")
	rr := testutil.ExecuteRequest(router, req)

	testutil.AssertStatus(t, rr, http.StatusBadRequest)
	testutil.AssertBodyContains(t, rr, "manufacture_date")
}
