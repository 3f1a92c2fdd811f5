package metrics

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordGeneration(t *testing.T) {
	p := NewPrometheus()
	p.RecordGeneration("toccata", 800, 120*time.Millisecond, true, map[string]int{"parallel": 3, "leap": 0})
	p.RecordGeneration("toccata", 900, 90*time.Millisecond, true, nil)

	assert.Equal(t, 2.0, testutil.ToFloat64(p.GenerationsTotal.WithLabelValues("toccata", "true")))
	assert.Equal(t, 3.0, testutil.ToFloat64(p.RepairsTotal.WithLabelValues("toccata", "parallel")))
	assert.Equal(t, 1, testutil.CollectAndCount(p.RepairsTotal))
}

func TestRecordCache(t *testing.T) {
	p := NewPrometheus()
	p.RecordCache(true)
	p.RecordCache(false)
	p.RecordCache(false)
	assert.Equal(t, 1.0, testutil.ToFloat64(p.CacheHitsTotal))
	assert.Equal(t, 2.0, testutil.ToFloat64(p.CacheMissesTotal))
}

func TestHandlerExposesCollectors(t *testing.T) {
	p := NewPrometheus()
	p.RecordAPIRequest(http.MethodPost, "/api/v1/toccata", 200, 10*time.Millisecond)

	rec := httptest.NewRecorder()
	p.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `http_requests_total{method="POST",path="/api/v1/toccata",status="200"} 1`)
}

func TestNilRecordersAreNoops(t *testing.T) {
	var p *Prometheus
	p.RecordCache(true)
	p.RecordGeneration("goldberg", 1, time.Second, true, nil)
	p.RecordAPIRequest(http.MethodGet, "/", 200, time.Second)

	c, err := NewClient(context.Background(), "development", true)
	require.NoError(t, err)
	c.RecordGeneration("goldberg", 1, time.Second, true)
}
