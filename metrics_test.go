package charshadow

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsRecord(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(WithPrometheusRegistry(reg), WithNamespace("cs"), WithSubsystem("shadow"))

	m.RecordRefresh(5)
	m.RecordFrame(3, 4, 0.25, 2*time.Millisecond)
	m.RecordSkip(SkipCulled)
	m.RecordSkip(SkipCulled)
	m.RecordAtlas("opaque", 512, 4)
	m.RecordAtlas("opaque", 512, 2)

	assert.Equal(t, float64(1), testutil.ToFloat64(m.lightRefreshes))
	assert.Equal(t, float64(5), testutil.ToFloat64(m.catalogLights))
	assert.Equal(t, float64(3), testutil.ToFloat64(m.qualifyingLights))
	assert.Equal(t, float64(0.25), testutil.ToFloat64(m.cascadeScale))
	assert.Equal(t, float64(2), testutil.ToFloat64(m.framesSkipped.WithLabelValues(SkipCulled)))
	assert.Equal(t, float64(512), testutil.ToFloat64(m.atlasResolution.WithLabelValues("opaque")))
	assert.Equal(t, float64(6), testutil.ToFloat64(m.slicesDrawn.WithLabelValues("opaque")))

	families, err := reg.Gather()
	require.NoError(t, err)
	names := make([]string, 0, len(families))
	for _, f := range families {
		names = append(names, f.GetName())
	}
	assert.Contains(t, names, "cs_shadow_frames_total")
	assert.Contains(t, names, "cs_shadow_update_duration_seconds")
}

func TestMetricsDisabled(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(WithPrometheusRegistry(reg), WithMetricsEnabled(false))

	assert.NotPanics(t, func() {
		m.RecordRefresh(1)
		m.RecordFrame(1, 1, 1, time.Millisecond)
		m.RecordSkip(SkipNoTarget)
		m.RecordAtlas("opaque", 1, 1)
	})
	families, err := reg.Gather()
	require.NoError(t, err)
	assert.Empty(t, families)

	var nilMetrics *Metrics
	assert.NotPanics(t, func() { nilMetrics.RecordSkip(SkipNoTarget) })
}
