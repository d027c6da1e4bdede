package metric

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "statekeep"

// Checkpoint results used as the "result" label.
const (
	ResultSuccess  = "success"
	ResultFailure  = "failure"
	ResultSkipped  = "skipped"
	ResultThrottle = "throttled"
	ResultTooLarge = "too_large"
)

// Registry holds all application metrics.
type Registry struct {
	registry *prometheus.Registry

	CheckpointsTotal    *prometheus.CounterVec
	CheckpointDuration  *prometheus.HistogramVec
	EntitiesSaved       prometheus.Counter
	EntitiesSkipped     prometheus.Counter
	EntitiesDeleted     prometheus.Counter
	CommitOperations    prometheus.Counter
	LastCheckpointTime  prometheus.Gauge
	ConsecutiveFailures prometheus.Gauge
	RecoveriesTotal     *prometheus.CounterVec
	RecoveredEntities   prometheus.Gauge
}

// NewRegistry creates a registry with every statekeep metric registered.
func NewRegistry() *Registry {
	r := &Registry{
		registry: prometheus.NewRegistry(),

		CheckpointsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "checkpoints_total",
			Help:      "Checkpoint attempts by kind and result.",
		}, []string{"kind", "result"}),
		CheckpointDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "checkpoint_duration_seconds",
			Help:      "Time from Begin to acknowledgement of a checkpoint.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 8),
		}, []string{"kind"}),
		EntitiesSaved: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "checkpoint_entities_saved_total",
			Help:      "Entities written by checkpoints.",
		}),
		EntitiesSkipped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "checkpoint_entities_skipped_total",
			Help:      "Clean entities skipped by checkpoints.",
		}),
		EntitiesDeleted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "checkpoint_entities_deleted_total",
			Help:      "Entity partitions removed by checkpoints.",
		}),
		CommitOperations: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "commit_operations_total",
			Help:      "Staged store operations applied by successful commits.",
		}),
		LastCheckpointTime: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_checkpoint_timestamp_seconds",
			Help:      "Unix time of the last acknowledged checkpoint.",
		}),
		ConsecutiveFailures: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "checkpoint_consecutive_failures",
			Help:      "Failed checkpoints since the last success.",
		}),
		RecoveriesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "recoveries_total",
			Help:      "Object space recoveries by result.",
		}, []string{"result"}),
		RecoveredEntities: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "recovered_entities",
			Help:      "Entities loaded by the last recovery.",
		}),
	}

	r.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		r.CheckpointsTotal,
		r.CheckpointDuration,
		r.EntitiesSaved,
		r.EntitiesSkipped,
		r.EntitiesDeleted,
		r.CommitOperations,
		r.LastCheckpointTime,
		r.ConsecutiveFailures,
		r.RecoveriesTotal,
		r.RecoveredEntities,
	)
	return r
}

var (
	globalOnce sync.Once
	global     *Registry
)

// Global returns the process-wide registry.
func Global() *Registry {
	globalOnce.Do(func() { global = NewRegistry() })
	return global
}

// Handler serves the global registry.
func Handler() http.Handler {
	return Global().Handler()
}

// Handler serves r in the Prometheus exposition format.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{Registry: r.registry})
}

// Registerer exposes the underlying registry, e.g. for store metrics.
func (r *Registry) Registerer() prometheus.Registerer {
	return r.registry
}

// Gatherer exposes the underlying registry for tests and pushers.
func (r *Registry) Gatherer() prometheus.Gatherer {
	return r.registry
}

// RecordCheckpoint counts one checkpoint attempt. Durations are only
// observed for attempts that reached the store.
func (r *Registry) RecordCheckpoint(kind, result string, elapsed time.Duration) {
	r.CheckpointsTotal.WithLabelValues(kind, result).Inc()
	switch result {
	case ResultSuccess:
		r.CheckpointDuration.WithLabelValues(kind).Observe(elapsed.Seconds())
		r.LastCheckpointTime.SetToCurrentTime()
		r.ConsecutiveFailures.Set(0)
	case ResultFailure, ResultTooLarge:
		r.CheckpointDuration.WithLabelValues(kind).Observe(elapsed.Seconds())
		r.ConsecutiveFailures.Inc()
	}
}

// AddSaveStats adds the entity counts of one acknowledged checkpoint.
func (r *Registry) AddSaveStats(saved, skipped, deleted int) {
	r.EntitiesSaved.Add(float64(saved))
	r.EntitiesSkipped.Add(float64(skipped))
	r.EntitiesDeleted.Add(float64(deleted))
}

// AddCommitOperations adds applied store operations.
func (r *Registry) AddCommitOperations(n int) {
	r.CommitOperations.Add(float64(n))
}

// RecordRecovery counts one recovery.
func (r *Registry) RecordRecovery(result string, entities int) {
	r.RecoveriesTotal.WithLabelValues(result).Inc()
	if result == ResultSuccess {
		r.RecoveredEntities.Set(float64(entities))
	}
}
