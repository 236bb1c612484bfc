package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// ScheduleMetrics tracks AI schedule generation runs.
type ScheduleMetrics struct {
	duration   *prometheus.HistogramVec
	inserted   prometheus.Counter
	skipped    *prometheus.CounterVec
	violations *prometheus.CounterVec
}

// NewScheduleMetrics registers the generation metrics on reg. A nil
// registerer yields a no-op recorder.
func NewScheduleMetrics(reg prometheus.Registerer) *ScheduleMetrics {
	if reg == nil {
		return &ScheduleMetrics{}
	}
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "socshift_schedule_generation_duration_seconds",
		Help:    "Duration of schedule generation requests, including model calls.",
		Buckets: []float64{1, 2.5, 5, 10, 20, 40, 80, 160},
	}, []string{"outcome"})
	inserted := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "socshift_schedule_shifts_inserted_total",
		Help: "Shifts inserted by schedule generation.",
	})
	skipped := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "socshift_schedule_shifts_skipped_total",
		Help: "Proposed shifts skipped during merge.",
	}, []string{"reason"})
	violations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "socshift_schedule_violations_total",
		Help: "Hard-constraint violations found in model output.",
	}, []string{"rule"})
	reg.MustRegister(duration, inserted, skipped, violations)
	return &ScheduleMetrics{
		duration:   duration,
		inserted:   inserted,
		skipped:    skipped,
		violations: violations,
	}
}

// ObserveGeneration records how long a generation took and how it ended.
func (m *ScheduleMetrics) ObserveGeneration(outcome string, d time.Duration) {
	if m == nil || m.duration == nil {
		return
	}
	m.duration.WithLabelValues(normalizeLabel(outcome)).Observe(d.Seconds())
}

// AddInserted counts inserted shifts.
func (m *ScheduleMetrics) AddInserted(n int) {
	if m == nil || m.inserted == nil || n <= 0 {
		return
	}
	m.inserted.Add(float64(n))
}

// IncSkipped counts one skipped proposal.
func (m *ScheduleMetrics) IncSkipped(reason string) {
	if m == nil || m.skipped == nil {
		return
	}
	m.skipped.WithLabelValues(normalizeLabel(reason)).Inc()
}

// IncViolation counts one validator finding.
func (m *ScheduleMetrics) IncViolation(rule string) {
	if m == nil || m.violations == nil {
		return
	}
	m.violations.WithLabelValues(normalizeLabel(rule)).Inc()
}

// CoverageMetrics exports the latest coverage snapshot.
type CoverageMetrics struct {
	slots *prometheus.GaugeVec
}

// NewCoverageMetrics registers the coverage gauge on reg.
func NewCoverageMetrics(reg prometheus.Registerer) *CoverageMetrics {
	if reg == nil {
		return &CoverageMetrics{}
	}
	slots := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "socshift_coverage_slots",
		Help: "Shift slots in the alert window by coverage status.",
	}, []string{"status"})
	reg.MustRegister(slots)
	return &CoverageMetrics{slots: slots}
}

// SetSlots records the number of slots with the given status.
func (m *CoverageMetrics) SetSlots(status string, count int) {
	if m == nil || m.slots == nil {
		return
	}
	m.slots.WithLabelValues(normalizeLabel(status)).Set(float64(count))
}
