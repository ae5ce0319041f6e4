package registry

import (
	"errors"
	"fmt"
	"sort"

	"rolloutdb/pkg/models"
)

// ErrUnknownProducer is returned when an operation references a producer id
// that is not (or no longer) registered.
var ErrUnknownProducer = errors.New("unknown producer")

// ErrInvalidConfiguration is returned when a registration carries an
// out-of-range weight, unit size or minimum allocation. Nothing is mutated.
var ErrInvalidConfiguration = errors.New("invalid producer configuration")

// Registry owns the set of registered producers. Ids are fresh and
// monotonically increasing for the lifetime of the registry; they are never
// reused, including across unregistrations.
type Registry struct {
	nextID  int
	records map[int]*models.ProducerRecord
}

func New() *Registry {
	return &Registry{nextID: 1, records: make(map[int]*models.ProducerRecord)}
}

// Register validates and stores a new producer record, returning its id.
func (r *Registry) Register(weight float64, unitSize int, minAlloc *float64, maxPayloadLen int) (int, error) {
	if weight <= 0 {
		return 0, fmt.Errorf("%w: weight must be > 0, got %v", ErrInvalidConfiguration, weight)
	}
	if unitSize <= 0 {
		return 0, fmt.Errorf("%w: unit_size must be > 0, got %d", ErrInvalidConfiguration, unitSize)
	}
	if minAlloc != nil && (*minAlloc < 0 || *minAlloc > 1) {
		return 0, fmt.Errorf("%w: min_allocation must be in [0,1], got %v", ErrInvalidConfiguration, *minAlloc)
	}
	if maxPayloadLen < 0 {
		return 0, fmt.Errorf("%w: max_payload_len must be >= 0, got %d", ErrInvalidConfiguration, maxPayloadLen)
	}
	id := r.nextID
	r.nextID++
	rec := &models.ProducerRecord{ID: id, Weight: weight, UnitSize: unitSize, MaxPayloadLen: maxPayloadLen}
	if minAlloc != nil {
		m := *minAlloc
		rec.MinAllocation = &m
	}
	r.records[id] = rec
	return id, nil
}

// Unregister removes the record if present. Idempotent; reports whether a
// record was actually removed so the caller can discard dependent state.
func (r *Registry) Unregister(id int) bool {
	if _, ok := r.records[id]; !ok {
		return false
	}
	delete(r.records, id)
	return true
}

// Get returns the record for id.
func (r *Registry) Get(id int) (models.ProducerRecord, bool) {
	rec, ok := r.records[id]
	if !ok {
		return models.ProducerRecord{}, false
	}
	return *rec, true
}

// Snapshot returns copies of all records ordered by ascending id.
func (r *Registry) Snapshot() []models.ProducerRecord {
	out := make([]models.ProducerRecord, 0, len(r.records))
	for _, rec := range r.records {
		out = append(out, *rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// TotalWeight sums the weights of all registered producers.
func (r *Registry) TotalWeight() float64 {
	var sum float64
	for _, rec := range r.records {
		sum += rec.Weight
	}
	return sum
}

// Len returns the number of registered producers.
func (r *Registry) Len() int { return len(r.records) }

// Reset discards all records. Fresh ids continue from where they were, so
// ids from before a reset are still never reused.
func (r *Registry) Reset() {
	r.records = make(map[int]*models.ProducerRecord)
}
