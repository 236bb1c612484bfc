package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// ConsumerMetrics counts how the activity worker disposed of each Pub/Sub
// message. A nil *ConsumerMetrics is a no-op.
type ConsumerMetrics struct {
	messages *prometheus.CounterVec
	handle   prometheus.Histogram
}

func NewConsumerMetrics(reg prometheus.Registerer) *ConsumerMetrics {
	if reg == nil {
		return nil
	}
	m := &ConsumerMetrics{
		messages: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "socshift_activity_messages_total",
			Help: "Activity messages received, by disposition.",
		}, []string{"disposition"}),
		handle: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "socshift_activity_handle_duration_seconds",
			Help:    "Time spent turning one activity message into a warehouse row.",
			Buckets: prometheus.ExponentialBuckets(0.001, 4, 8),
		}),
	}
	reg.MustRegister(m.messages, m.handle)
	return m
}

func (m *ConsumerMetrics) Observe(disposition string, d time.Duration) {
	if m == nil {
		return
	}
	m.messages.WithLabelValues(normalizeLabel(disposition)).Inc()
	m.handle.Observe(d.Seconds())
}
