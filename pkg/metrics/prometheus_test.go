package metrics

import (
	"testing"
	"time"

	dto "github.com/prometheus/client_model/go"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollector_ImplementsRecorder(t *testing.T) {
	var _ Recorder = (*Collector)(nil)
}

func TestNewCollector_RegistersMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	NewCollector(reg)

	families, err := reg.Gather()
	require.NoError(t, err)

	names := make(map[string]bool, len(families))
	for _, f := range families {
		names[f.GetName()] = true
	}

	for _, expected := range []string{
		"reactor_handle_creations_total",
		"reactor_mutations_total",
		"reactor_observer_notifications_total",
		"reactor_relation_depth",
		"reactor_history_flush_seconds",
	} {
		assert.True(t, names[expected], "expected metric %s to be registered", expected)
	}
}

func TestCollector_RecordMutation(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordMutation("set")
	c.RecordMutation("set")
	c.RecordMutation("splice")

	families, err := reg.Gather()
	require.NoError(t, err)

	var mutationsFamily *dto.MetricFamily
	for _, f := range families {
		if f.GetName() == "reactor_mutations_total" {
			mutationsFamily = f
		}
	}
	require.NotNil(t, mutationsFamily)

	values := map[string]float64{}
	for _, m := range mutationsFamily.GetMetric() {
		for _, l := range m.GetLabel() {
			if l.GetName() == "type" {
				values[l.GetValue()] = m.GetCounter().GetValue()
			}
		}
	}

	assert.Equal(t, float64(2), values["set"])
	assert.Equal(t, float64(1), values["splice"])
}

func TestCollector_RecordHistoryFlush(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	assert.NotPanics(t, func() {
		c.RecordHistoryFlush(5 * time.Millisecond)
		c.RecordRelationDepth(2)
		c.RecordObserverNotification()
		c.RecordHandleCreation("record")
	})
}
