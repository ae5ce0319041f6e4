package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Collectors for the aggregation core. Registered on the default registry
// and served by promhttp at /metrics.
var (
	SubmittedSequences = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rolloutdb_submitted_sequences_total",
		Help: "Sequences accepted from producers.",
	})
	UnitsEmitted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rolloutdb_units_emitted_total",
		Help: "Complete units emitted by the aggregation buffer.",
	})
	BatchesFormed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rolloutdb_batches_formed_total",
		Help: "Successful batch draws.",
	})
	DrawFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rolloutdb_batch_draw_failures_total",
		Help: "Batch draws that returned insufficient data.",
	})
	DiscardedSequences = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rolloutdb_discarded_sequences_total",
		Help: "Sequences dropped by unregistration or partial-buffer expiry.",
	})
	QueuedSequences = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "rolloutdb_queued_sequences",
		Help: "Sequences currently held in the heterogeneous queue.",
	})
	RegisteredProducers = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "rolloutdb_registered_producers",
		Help: "Currently registered producers.",
	})
	Step = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "rolloutdb_step",
		Help: "Current training step (successful batches since start or reset).",
	})
)
