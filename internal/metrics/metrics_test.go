package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransferCounters(t *testing.T) {
	m := newWithRegistry(prometheus.NewRegistry())

	m.TransferCommitted(20 * time.Millisecond)
	m.TransferCommitted(5 * time.Millisecond)
	m.TransferRejected("NoLocationChange")
	m.TransferRejected("ConcurrentModification")
	m.TransferRejected("ConcurrentModification")

	assert.Equal(t, float64(2), testutil.ToFloat64(m.transfersCommitted))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.transfersRejected.WithLabelValues("NoLocationChange")))
	assert.Equal(t, float64(2), testutil.ToFloat64(m.transfersRejected.WithLabelValues("ConcurrentModification")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.commitDuration))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.TransferCommitted(time.Second)
		m.TransferRejected("Internal")
		m.ObserveHTTP(http.MethodGet, http.StatusOK, time.Millisecond)
	})
}

func TestHandlerExposesCollectors(t *testing.T) {
	m := New()
	m.ObserveHTTP(http.MethodPost, http.StatusCreated, 3*time.Millisecond)
	m.TransferCommitted(time.Millisecond)

	srv := httptest.NewServer(m.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `custody_http_requests_total{method="POST",status="201"} 1`)
	assert.Contains(t, string(body), "custody_transfers_committed_total 1")
	assert.Contains(t, string(body), "go_goroutines")
}
