package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecorderCounters(t *testing.T) {
	m := New()
	m.RowsIngested("a.csv", 5)
	m.RowsIngested("a.csv", 2)
	m.RowErrors(3)
	m.UploadFinished(true)
	m.UploadFinished(false)
	m.FileDeleted()
	m.StoreSize(42)

	assert.Equal(t, 7.0, testutil.ToFloat64(m.RowsIngestedTotal.WithLabelValues("a.csv")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.RowErrorsTotal))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.UploadsTotal.WithLabelValues("failure")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.FilesDeleted))
	assert.Equal(t, 42.0, testutil.ToFloat64(m.StoreEntries))
}

func TestHandlerExposesRequests(t *testing.T) {
	m := New()
	m.ObserveRequest("/api/health", http.MethodGet, 200, 5*time.Millisecond)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.True(t, strings.Contains(body, `nexum_http_requests_total{method="GET",route="/api/health",status="200"} 1`))
	assert.Contains(t, body, "nexum_store_entries")
}

func TestRegistriesAreIndependent(t *testing.T) {
	a, b := New(), New()
	a.FileDeleted()
	assert.Equal(t, 0.0, testutil.ToFloat64(b.FilesDeleted))
}
