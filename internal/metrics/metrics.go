package metrics

import (
	"sort"
	"time"

	"photo-filters/internal/events"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "photo_filters"

var operationDurationName = prometheus.BuildFQName(namespace, "", "operation_duration_milliseconds")

// Metrics keeps Prometheus collectors on a private registry so several
// applications can live in one process.
type Metrics struct {
	registry          *prometheus.Registry
	operationDuration *prometheus.HistogramVec
	eventsTotal       *prometheus.CounterVec
}

// OperationStat is the histogram state of one timed operation.
type OperationStat struct {
	Operation string
	Count     uint64
	SumMillis float64
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		operationDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "operation_duration_milliseconds",
			Help:      "Time spent in filter transforms and store operations.",
			Buckets:   prometheus.ExponentialBuckets(0.5, 2, 14),
		}, []string{"operation"}),
		eventsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_total",
			Help:      "Notifications published by the session and gallery.",
		}, []string{"type"}),
	}

	m.registry.MustRegister(m.operationDuration, m.eventsTotal)
	return m
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// ObserveOperation implements timing.Observer.
func (m *Metrics) ObserveOperation(operation string, duration time.Duration) {
	m.operationDuration.
		WithLabelValues(operation).
		Observe(float64(duration.Nanoseconds()) / float64(time.Millisecond))
}

// Subscribe counts every event type published on bus.
func (m *Metrics) Subscribe(bus *events.Bus) {
	handler := events.NewHandler("metrics", func(e events.Event) {
		m.eventsTotal.WithLabelValues(e.Type).Inc()
	})
	for _, eventType := range events.AllTypes() {
		bus.Subscribe(eventType, handler)
	}
}

// Operations gathers the duration histogram, sorted by operation.
func (m *Metrics) Operations() ([]OperationStat, error) {
	families, err := m.registry.Gather()
	if err != nil {
		return nil, err
	}

	var stats []OperationStat
	for _, family := range families {
		if family.GetName() != operationDurationName {
			continue
		}
		for _, metric := range family.GetMetric() {
			stat := OperationStat{
				Count:     metric.GetHistogram().GetSampleCount(),
				SumMillis: metric.GetHistogram().GetSampleSum(),
			}
			for _, label := range metric.GetLabel() {
				if label.GetName() == "operation" {
					stat.Operation = label.GetValue()
				}
			}
			stats = append(stats, stat)
		}
	}

	sort.Slice(stats, func(i, j int) bool { return stats[i].Operation < stats[j].Operation })
	return stats, nil
}
