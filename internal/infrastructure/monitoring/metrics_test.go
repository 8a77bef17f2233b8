package monitoring

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap/zaptest"
)

func TestMetricsCollector(t *testing.T) {
	m := NewMetricsCollector()

	m.ObserveComparison("greedy", 3*time.Millisecond, 4)
	m.ObserveComparison("lcs", time.Millisecond, 0)
	m.ObserveComparison("greedy", time.Millisecond, 1)
	assert.Equal(t, 2.0, testutil.ToFloat64(m.comparisonsTotal.WithLabelValues("greedy")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.comparisonsTotal.WithLabelValues("lcs")))

	m.CacheResult(true)
	m.CacheResult(false)
	m.CacheResult(false)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.cacheRequests.WithLabelValues("hit")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.cacheRequests.WithLabelValues("miss")))

	m.RevisionsPruned(5)
	m.RevisionsPruned(0)
	assert.Equal(t, 5.0, testutil.ToFloat64(m.revisionsPruned))

	m.RequestStarted()
	m.RecordHTTPRequest("POST", "/api/v1/recipe-diff", 200, 10*time.Millisecond)
	m.RequestFinished()
	assert.Equal(t, 1.0, testutil.ToFloat64(m.httpRequestsTotal.WithLabelValues("POST", "/api/v1/recipe-diff", "200")))
	assert.Zero(t, testutil.ToFloat64(m.httpActiveRequests))

	expected := `
# HELP recipediff_revisions_pruned_total Archived revisions deleted by retention
# TYPE recipediff_revisions_pruned_total counter
recipediff_revisions_pruned_total 5
`
	require.NoError(t, testutil.GatherAndCompare(m.Registry(), strings.NewReader(expected), "recipediff_revisions_pruned_total"))
}

func TestMetricsCollectorsAreIndependent(t *testing.T) {
	// Each collector owns its registry, so building two must not panic
	// on duplicate registration
	a, b := NewMetricsCollector(), NewMetricsCollector()
	a.CacheResult(true)
	assert.Zero(t, testutil.ToFloat64(b.cacheRequests.WithLabelValues("hit")))
}

func TestTracingProviderDisabled(t *testing.T) {
	before := otel.GetTracerProvider()

	tp, err := NewTracingProvider(context.Background(), TracingConfig{Enabled: false}, zaptest.NewLogger(t))
	require.NoError(t, err)
	assert.False(t, tp.Enabled())
	assert.NoError(t, tp.Shutdown(context.Background()))
	assert.Equal(t, before, otel.GetTracerProvider())
}
