package metrics

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetrics_Record(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.RecordAdmission("flink", true)
	m.RecordAdmission("flink", true)
	m.RecordAdmission("spark", false)
	m.RecordAdmissionError("configuration")
	m.RecordCacheRequest("hit")
	m.RecordLoad(nil)
	m.RecordLoad(errors.New("boom"))
	m.RecordEviction()

	assert.Equal(t, 2.0, testutil.ToFloat64(m.admissionDecisions.WithLabelValues("flink", "true")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.admissionDecisions.WithLabelValues("spark", "false")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.admissionErrors.WithLabelValues("configuration")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.cacheRequests.WithLabelValues("hit")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.cacheLoads.WithLabelValues("success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.cacheLoads.WithLabelValues("failure")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.cacheEvictions))
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.RecordAdmission("flink", true)
		m.RecordAdmissionError("load")
		m.RecordCacheRequest("miss")
		m.RecordLoad(nil)
		m.RecordEviction()
	})
}
