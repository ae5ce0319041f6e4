package queue

import (
	"errors"
	"fmt"

	"rolloutdb/pkg/models"
)

// ErrInsufficientUnits is returned by DequeueFrom when a producer holds
// fewer queued units than requested. Callers are expected to pre-check via
// PeekCounts.
var ErrInsufficientUnits = errors.New("insufficient queued units")

// Queue is a passive multi-FIFO store of complete units awaiting batching.
// One FIFO per producer; insertion order is consumption order. The queue
// performs no allocation logic.
type Queue struct {
	fifos map[int][]models.Unit
	seqs  int
}

func New() *Queue {
	return &Queue{fifos: make(map[int][]models.Unit)}
}

// Enqueue appends a unit to its producer's FIFO.
func (q *Queue) Enqueue(producerID int, u models.Unit) {
	q.fifos[producerID] = append(q.fifos[producerID], u)
	q.seqs += u.Len()
}

// PeekCounts returns the number of queued units per producer. Producers
// with an empty FIFO are omitted.
func (q *Queue) PeekCounts() map[int]int {
	out := make(map[int]int, len(q.fifos))
	for id, units := range q.fifos {
		if len(units) > 0 {
			out[id] = len(units)
		}
	}
	return out
}

// Available returns the number of queued units for one producer.
func (q *Queue) Available(producerID int) int {
	return len(q.fifos[producerID])
}

// DequeueFrom removes and returns exactly n oldest units for a producer.
// On ErrInsufficientUnits nothing is removed.
func (q *Queue) DequeueFrom(producerID, n int) ([]models.Unit, error) {
	units := q.fifos[producerID]
	if len(units) < n {
		return nil, fmt.Errorf("%w: producer %d has %d, want %d", ErrInsufficientUnits, producerID, len(units), n)
	}
	out := make([]models.Unit, n)
	copy(out, units[:n])
	rest := units[n:]
	if len(rest) == 0 {
		delete(q.fifos, producerID)
	} else {
		q.fifos[producerID] = rest
	}
	for _, u := range out {
		q.seqs -= u.Len()
	}
	return out, nil
}

// Drop discards every queued unit for a producer, returning the number of
// sequences removed. Used on unregistration.
func (q *Queue) Drop(producerID int) int {
	var n int
	for _, u := range q.fifos[producerID] {
		n += u.Len()
	}
	delete(q.fifos, producerID)
	q.seqs -= n
	return n
}

// TotalSequences returns queued units times unit size, summed over all
// producers.
func (q *Queue) TotalSequences() int { return q.seqs }

// Reset discards every FIFO.
func (q *Queue) Reset() {
	q.fifos = make(map[int][]models.Unit)
	q.seqs = 0
}
