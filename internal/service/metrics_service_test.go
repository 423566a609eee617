package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// counterValue sums the samples of a gathered counter whose labels include want.
func counterValue(t *testing.T, m *MetricsService, name string, want map[string]string) float64 {
	t.Helper()
	families, err := m.Registry().Gather()
	require.NoError(t, err)
	var total float64
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
	metrics:
		for _, metric := range mf.GetMetric() {
			labels := make(map[string]string)
			for _, lp := range metric.GetLabel() {
				labels[lp.GetName()] = lp.GetValue()
			}
			for k, v := range want {
				if labels[k] != v {
					continue metrics
				}
			}
			total += metric.GetCounter().GetValue()
		}
	}
	return total
}

func TestMetricsServiceCountsPlanOperations(t *testing.T) {
	m := NewMetricsService()
	m.ObservePlanOperation(OperationCreate, OutcomeOK, 3*time.Millisecond)
	m.ObservePlanOperation(OperationCreate, OutcomeRejected, time.Millisecond)
	m.ObservePlanOperation(OperationCreate, OutcomeOK, 2*time.Millisecond)

	assert.Equal(t, 2.0, counterValue(t, m, "studyplan_operations_total", map[string]string{"operation": "create", "outcome": "ok"}))
	assert.Equal(t, 1.0, counterValue(t, m, "studyplan_operations_total", map[string]string{"outcome": "rejected"}))
}

func TestMetricsServiceCacheCounters(t *testing.T) {
	m := NewMetricsService()
	m.RecordCacheOperation(true, time.Microsecond)
	m.RecordCacheOperation(false, time.Microsecond)
	m.RecordCacheOperation(false, time.Microsecond)

	assert.Equal(t, 1.0, counterValue(t, m, "catalog_cache_hits_total", nil))
	assert.Equal(t, 2.0, counterValue(t, m, "catalog_cache_misses_total", nil))
}

func TestMetricsServiceNilSafe(t *testing.T) {
	var m *MetricsService
	assert.NotPanics(t, func() {
		m.ObserveHTTPRequest("GET", "/api/courses", 200, time.Millisecond)
		m.RecordCacheOperation(true, time.Millisecond)
		m.ObserveCacheWrite(time.Millisecond)
		m.ObservePlanOperation(OperationDelete, OutcomeError, time.Millisecond)
	})
	assert.Nil(t, m.Registry())
	assert.NotNil(t, m.Handler())
}
