package orchestrator

import (
	stderrors "errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics exposes Prometheus collectors for orchestrated tasks. A nil
// *Metrics records nothing.
type Metrics struct {
	taskDuration *prometheus.HistogramVec
	taskFailures *prometheus.CounterVec
	taskRetries  *prometheus.CounterVec
	tasksActive  prometheus.Gauge
}

// MustNewMetrics creates the collectors and registers them with reg.
// Collectors already registered by an earlier call are reused; any other
// registration error panics.
func MustNewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	m := &Metrics{
		taskDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "claudeflow",
				Subsystem: "orchestrator",
				Name:      "task_duration_seconds",
				Help:      "Wall time of orchestrated tasks including retries.",
				Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600, 1800},
			},
			[]string{"status"},
		),
		taskFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "claudeflow",
				Subsystem: "orchestrator",
				Name:      "task_failures_total",
				Help:      "Tasks that failed, by failure kind.",
			},
			[]string{"kind"},
		),
		taskRetries: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "claudeflow",
				Subsystem: "orchestrator",
				Name:      "task_retries_total",
				Help:      "Attempts re-run after a transient failure, by failure kind.",
			},
			[]string{"kind"},
		),
		tasksActive: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "claudeflow",
				Subsystem: "orchestrator",
				Name:      "tasks_active",
				Help:      "Tasks currently executing.",
			},
		),
	}

	m.taskDuration = register(reg, m.taskDuration)
	m.taskFailures = register(reg, m.taskFailures)
	m.taskRetries = register(reg, m.taskRetries)
	m.tasksActive = register(reg, m.tasksActive)

	return m
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C) C {
	err := reg.Register(c)
	if err == nil {
		return c
	}

	if already, ok := stderrors.AsType[prometheus.AlreadyRegisteredError](err); ok {
		if existing, ok := already.ExistingCollector.(C); ok {
			return existing
		}
	}

	panic(err)
}

// ObserveDuration records the duration of a finished task.
func (m *Metrics) ObserveDuration(status string, d time.Duration) {
	if m == nil {
		return
	}

	m.taskDuration.WithLabelValues(status).Observe(d.Seconds())
}

// IncFailure counts a failed task.
func (m *Metrics) IncFailure(kind string) {
	if m == nil {
		return
	}

	m.taskFailures.WithLabelValues(kind).Inc()
}

// IncRetry counts an attempt retried after a failure of the given kind.
func (m *Metrics) IncRetry(kind string) {
	if m == nil {
		return
	}

	m.taskRetries.WithLabelValues(kind).Inc()
}

// IncActiveTasks marks a task as running.
func (m *Metrics) IncActiveTasks() {
	if m == nil {
		return
	}

	m.tasksActive.Inc()
}

// DecActiveTasks marks a task as finished.
func (m *Metrics) DecActiveTasks() {
	if m == nil {
		return
	}

	m.tasksActive.Dec()
}
