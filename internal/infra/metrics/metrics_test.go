package metrics

import (
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordersCount(t *testing.T) {
	m := New()
	m.SaleCreated("in-store")
	m.SaleCreated("in-store")
	m.SaleTransition("cancelled")
	m.StockRejected()
	m.EventDropped("sale.created", "subscriber")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.salesCreated.WithLabelValues("in-store")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.saleTransitions.WithLabelValues("cancelled")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.stockRejections))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.eventsDropped.WithLabelValues("sale.created", "subscriber")))
}

func TestHandlerExposesRegistry(t *testing.T) {
	m := New()
	m.ObserveHTTP("GET", "/api/v1/sales/:saleId", 200, 15*time.Millisecond)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	require.Equal(t, 200, rec.Code)

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `pos_http_requests_total{method="GET",path="/api/v1/sales/:saleId",status="200"} 1`)
	assert.Contains(t, string(body), "go_goroutines")
}
