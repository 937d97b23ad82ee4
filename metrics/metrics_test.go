package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestSetActiveBackend(t *testing.T) {
	m := New()
	m.SetActiveBackend("", "mongodb")
	m.SetActiveBackend("mongodb", "memory")

	assert.Equal(t, 0.0, testutil.ToFloat64(m.ActiveBackend.WithLabelValues("mongodb")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ActiveBackend.WithLabelValues("memory")))
}

func TestHandlerExposesCounters(t *testing.T) {
	m := New()
	m.OrdersCreated.Inc()

	w := httptest.NewRecorder()
	m.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "kiosk_orders_created_total 1")
}
