package metrics

import (
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCronJobMetricsRunsAndLock(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewCronJobMetrics(reg)

	m.IncSuccess("coverage-alert")
	m.IncFailure("schedule-regeneration")
	m.IncFailure("schedule-regeneration")
	m.IncLockMissed()

	err := testutil.GatherAndCompare(reg, strings.NewReader(`
# HELP socshift_cron_job_runs_total Cron job executions by outcome.
# TYPE socshift_cron_job_runs_total counter
socshift_cron_job_runs_total{job="coverage-alert",outcome="success"} 1
socshift_cron_job_runs_total{job="schedule-regeneration",outcome="failure"} 2
# HELP socshift_cron_lock_missed_total Cycles skipped because another worker held the lock.
# TYPE socshift_cron_lock_missed_total counter
socshift_cron_lock_missed_total 1
`), "socshift_cron_job_runs_total", "socshift_cron_lock_missed_total")
	require.NoError(t, err)

	stamp := testutil.ToFloat64(m.lastSuccess.WithLabelValues("coverage-alert"))
	assert.InDelta(t, float64(time.Now().Unix()), stamp, 60)
	assert.Equal(t, 1, testutil.CollectAndCount(m.lastSuccess), "failures never stamp last success")
}

func TestCronJobMetricsDuration(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewCronJobMetrics(reg)
	m.ObserveDuration(" coverage-alert ", 250*time.Millisecond)
	m.ObserveDuration("", time.Second)

	assert.InDelta(t, 0.25, histogramSum(t, reg, "socshift_cron_job_duration_seconds", "job", "coverage-alert"), 1e-9)
	assert.InDelta(t, 1.0, histogramSum(t, reg, "socshift_cron_job_duration_seconds", "job", "unknown"), 1e-9)
}

func TestNilCronJobMetricsIsNoop(t *testing.T) {
	m := NewCronJobMetrics(nil)
	assert.Nil(t, m)
	m.ObserveDuration("x", time.Second)
	m.IncSuccess("x")
	m.IncFailure("x")
	m.IncLockMissed()
}
