package core

import (
	"fmt"
	"sync"
	"time"

	"rolloutdb/pkg/allocator"
	"rolloutdb/pkg/buffer"
	"rolloutdb/pkg/logger"
	"rolloutdb/pkg/metrics"
	"rolloutdb/pkg/models"
	"rolloutdb/pkg/queue"
	"rolloutdb/pkg/registry"
	"rolloutdb/pkg/validation"
)

// SubmitResult reports the outcome of one submission.
type SubmitResult struct {
	EmittedUnits      int `json:"emitted_unit_count"`
	BufferedRemainder int `json:"buffered_remainder"`
}

// Status is the read-only server projection.
type Status struct {
	Step                 int64 `json:"step"`
	TotalQueuedSequences int   `json:"total_queued_sequences"`
}

// ProducerStatus extends Status with the producer's share of total weight.
type ProducerStatus struct {
	Status
	NormalizedWeight float64 `json:"normalized_weight"`
}

// Engine owns the registry, aggregation buffer, heterogeneous queue and the
// step counter behind one coarse mutex. Every mutating operation is a single
// critical section, which makes the allocator's all-or-nothing commit and
// the buffer's multi-unit emission trivially consistent. No operation ever
// blocks waiting for data; FormBatch is pollable.
type Engine struct {
	mu        sync.Mutex
	registry  *registry.Registry
	buffer    *buffer.Buffer
	queue     *queue.Queue
	batchSize int
	step      int64

	// onBatch runs after a successful draw has committed, outside the lock.
	// Batches are step-keyed, so hook ordering across concurrent trainers
	// does not matter.
	onBatch func(models.Batch)
}

// New creates an engine that forms batches of exactly batchSize sequences.
func New(batchSize int) *Engine {
	return &Engine{
		registry:  registry.New(),
		buffer:    buffer.New(),
		queue:     queue.New(),
		batchSize: batchSize,
	}
}

// OnBatch installs a hook invoked with every successfully formed batch,
// after the queue mutation has committed. Must be set before serving.
func (e *Engine) OnBatch(fn func(models.Batch)) { e.onBatch = fn }

// BatchSize returns the configured batch size.
func (e *Engine) BatchSize() int { return e.batchSize }

// Register adds a producer and returns its fresh id.
func (e *Engine) Register(weight float64, unitSize int, minAlloc *float64, maxPayloadLen int) (int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	id, err := e.registry.Register(weight, unitSize, minAlloc, maxPayloadLen)
	if err != nil {
		return 0, err
	}
	metrics.RegisteredProducers.Set(float64(e.registry.Len()))
	logger.Info("producer_registered", "producer", id, "weight", weight, "unit_size", unitSize, "max_payload_len", maxPayloadLen)
	return id, nil
}

// Unregister removes a producer and discards its partial buffer and queued
// units. Idempotent; the data loss is deliberate.
func (e *Engine) Unregister(id int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.registry.Unregister(id) {
		return
	}
	dropped := e.buffer.Discard(id) + e.queue.Drop(id)
	metrics.RegisteredProducers.Set(float64(e.registry.Len()))
	metrics.QueuedSequences.Set(float64(e.queue.TotalSequences()))
	if dropped > 0 {
		metrics.DiscardedSequences.Add(float64(dropped))
	}
	logger.Info("producer_unregistered", "producer", id, "dropped_sequences", dropped)
}

// Submit validates and absorbs a producer's sequences, enqueueing every
// complete unit. A zero-length submission is a no-op.
func (e *Engine) Submit(producerID int, seqs []models.Sequence) (SubmitResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	rec, ok := e.registry.Get(producerID)
	if !ok {
		return SubmitResult{}, fmt.Errorf("%w: id %d", registry.ErrUnknownProducer, producerID)
	}
	if err := validation.CheckSequences(rec, seqs); err != nil {
		return SubmitResult{}, err
	}
	emitted, remainder := e.buffer.Submit(producerID, rec.UnitSize, seqs)
	for _, u := range emitted {
		e.queue.Enqueue(producerID, u)
	}
	metrics.SubmittedSequences.Add(float64(len(seqs)))
	metrics.UnitsEmitted.Add(float64(len(emitted)))
	metrics.QueuedSequences.Set(float64(e.queue.TotalSequences()))
	return SubmitResult{EmittedUnits: len(emitted), BufferedRemainder: remainder}, nil
}

// FormBatch attempts to draw one batch. On success the step counter advances
// by one and the committed batch is handed to the OnBatch hook; on
// insufficient data nothing changes and the caller should retry later.
func (e *Engine) FormBatch() (models.Batch, error) {
	e.mu.Lock()
	units, err := allocator.FormBatch(e.registry.Snapshot(), e.queue, e.batchSize)
	if err != nil {
		e.mu.Unlock()
		metrics.DrawFailures.Inc()
		return models.Batch{}, err
	}
	e.step++
	batch := models.Batch{Step: e.step}
	for _, u := range units {
		batch.Sequences = append(batch.Sequences, u.Sequences...)
	}
	metrics.BatchesFormed.Inc()
	metrics.Step.Set(float64(e.step))
	metrics.QueuedSequences.Set(float64(e.queue.TotalSequences()))
	hook := e.onBatch
	e.mu.Unlock()

	logger.Debug("batch_formed", "step", batch.Step, "sequences", len(batch.Sequences))
	if hook != nil {
		hook(batch)
	}
	return batch, nil
}

// Status returns the step counter and total queued sequences.
func (e *Engine) Status() Status {
	e.mu.Lock()
	defer e.mu.Unlock()
	return Status{Step: e.step, TotalQueuedSequences: e.queue.TotalSequences()}
}

// ProducerStatus returns Status plus the producer's normalized weight.
func (e *Engine) ProducerStatus(id int) (ProducerStatus, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	rec, ok := e.registry.Get(id)
	if !ok {
		return ProducerStatus{}, fmt.Errorf("%w: id %d", registry.ErrUnknownProducer, id)
	}
	return ProducerStatus{
		Status:           Status{Step: e.step, TotalQueuedSequences: e.queue.TotalSequences()},
		NormalizedWeight: rec.Weight / e.registry.TotalWeight(),
	}, nil
}

// BufferedSequences returns the number of sequences held in partial buffers.
func (e *Engine) BufferedSequences() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.buffer.Pending()
}

// Reset destroys all state: producers, partial buffers, queued units, and
// the step counter. Runs as one critical section so no concurrent submission
// can straddle pre- and post-reset state.
func (e *Engine) Reset() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.registry.Reset()
	e.buffer.Reset()
	e.queue.Reset()
	e.step = 0
	metrics.RegisteredProducers.Set(0)
	metrics.QueuedSequences.Set(0)
	metrics.Step.Set(0)
	logger.Info("engine_reset")
}

// ExpireStale drops partial buffers that have not been appended to within
// maxAge. Returns dropped sequence counts by producer.
func (e *Engine) ExpireStale(maxAge time.Duration) map[int]int {
	e.mu.Lock()
	defer e.mu.Unlock()
	dropped := e.buffer.ExpireBefore(time.Now().Add(-maxAge))
	var total int
	for _, n := range dropped {
		total += n
	}
	if total > 0 {
		metrics.DiscardedSequences.Add(float64(total))
		logger.Info("stale_partials_expired", "producers", len(dropped), "sequences", total)
	}
	return dropped
}
