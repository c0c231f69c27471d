package httputil_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/medsupply/medsupply-backend/pkg/httputil"
	"github.com/medsupply/medsupply-backend/pkg/messaging"
	"github.com/stretchr/testify/assert"
)

func TestRequestID_PropagatesToEventCorrelation(t *testing.T) {
	var correlationID string
	handler := httputil.RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		correlationID = messaging.CorrelationIDFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "req-abc-123")
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	assert.Equal(t, "req-abc-123", correlationID)
	assert.Equal(t, "req-abc-123", rr.Header().Get("X-Request-ID"))
}

func TestRequestID_GeneratesWhenMissing(t *testing.T) {
	var requestID, correlationID string
	handler := httputil.RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID = httputil.GetRequestID(r.Context())
		correlationID = messaging.CorrelationIDFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	assert.NotEmpty(t, requestID)
	assert.Equal(t, requestID, correlationID)
}
