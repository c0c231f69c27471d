package handler_test

import (
	"net/http"
	"testing"

	"github.com/medsupply/medsupply-backend/pkg/testutil"
)

func TestTransferCreate_RejectsMalformedRequisitionRef(t *testing.T) {
	router := newTestRouter()

	req := testutil.NewHTTPRequest(http.MethodPost, "/stock/transfers", map[string]interface{}{
		"destination_location_id": "74a51f83-9f9b-4cf2-8f86-31ac15c4e2b3",
		"requisition_id":          "not-a-uuid",
		"items": []map[string]interface{}{
			{"lot_id": "0d4b8aa5-2c20-4195-9aab-1f0db9a14e1b", "quantity": 5},
		},
	})
	testutil.WithActorHeaders(req, "user-1", "Warehouse Op", "loc-caf", "CAF")
	rr := testutil.ExecuteRequest(router, req)

	testutil.AssertStatus(t, rr, http.StatusBadRequest)
	testutil.AssertBodyContains(t, rr, "RequisitionID")
}

func TestTransferCreate_ValidatesItems(t *testing.T) {
	router := newTestRouter()

	req := testutil.NewHTTPRequest(http.MethodPost, "/stock/transfers", map[string]interface{}{
		"destination_location_id": "74a51f83-9f9b-4cf2-8f86-31ac15c4e2b3",
		"items":                   []map[string]interface{}{},
	})
	testutil.WithActorHeaders(req, "user-1", "Warehouse Op", "loc-caf", "CAF")
	rr := testutil.ExecuteRequest(router, req)

	testutil.AssertStatus(t, rr, http.StatusBadRequest)
}
