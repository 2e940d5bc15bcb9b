// Package observability holds the service's Prometheus collectors.
package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/jchen1/qs/internal/domain"
)

var (
	tasksProcessed = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "qs",
		Subsystem: "worker",
		Name:      "tasks_processed_total",
		Help:      "Tasks popped and dispatched, labelled by task type and outcome.",
	}, []string{"type", "result"})

	samplesDropped = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "qs",
		Subsystem: "ingest",
		Name:      "samples_dropped_total",
		Help:      "Raw samples dropped during normalization, labelled by metric.",
	}, []string{"metric"})

	fanoutTasks = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "qs",
		Subsystem: "worker",
		Name:      "fanout_subtasks_total",
		Help:      "Daily sub-tasks enqueued by bulk fan-out.",
	})

	enqueuedTasks = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "qs",
		Subsystem: "api",
		Name:      "tasks_enqueued_total",
		Help:      "Tasks accepted through the mutation surface, labelled by type.",
	}, []string{"type"})

	persistWatermark = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "qs",
		Subsystem: "persistence",
		Name:      "last_measurement_persisted_timestamp_seconds",
		Help:      "Unix timestamp of the most recent measurement batch persisted to Postgres.",
	})
)

func init() {
	prometheus.MustRegister(tasksProcessed, samplesDropped, fanoutTasks, enqueuedTasks, persistWatermark)
}

// RecordTaskProcessed counts one dispatched task by outcome.
func RecordTaskProcessed(taskType domain.TaskType, outcome string) {
	tasksProcessed.WithLabelValues(string(taskType), outcome).Inc()
}

// RecordSampleDropped counts one sample dropped during normalization.
func RecordSampleDropped(metric domain.Metric) {
	samplesDropped.WithLabelValues(string(metric)).Inc()
}

// RecordFanOut counts daily sub-tasks emitted by a bulk expansion.
func RecordFanOut(n int) {
	fanoutTasks.Add(float64(n))
}

// RecordTaskEnqueued counts one task accepted at submission.
func RecordTaskEnqueued(taskType domain.TaskType) {
	enqueuedTasks.WithLabelValues(string(taskType)).Inc()
}

// RecordMeasurementPersisted updates the persistence watermark gauge.
func RecordMeasurementPersisted(ts time.Time) {
	if ts.IsZero() {
		return
	}
	persistWatermark.Set(float64(ts.Unix()))
}
