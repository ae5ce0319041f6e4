package buffer

import (
	"time"

	"rolloutdb/pkg/models"
)

// Buffer reassembles partial submissions into complete units. It keeps one
// ordered partial list per producer; a producer's partial length is always
// strictly less than its unit size between calls (Submit drains every whole
// multiple before returning).
type Buffer struct {
	partials map[int]*partial
}

type partial struct {
	seqs       []models.Sequence
	lastAppend time.Time
}

func New() *Buffer {
	return &Buffer{partials: make(map[int]*partial)}
}

// Submit appends seqs to the producer's partial list and drains every
// complete unit of unitSize sequences, preserving submission order. It
// returns the emitted units and the number of sequences left buffered.
// A zero-length submission is a no-op.
func (b *Buffer) Submit(producerID, unitSize int, seqs []models.Sequence) ([]models.Unit, int) {
	p := b.partials[producerID]
	if p == nil {
		p = &partial{}
		b.partials[producerID] = p
	}
	if len(seqs) > 0 {
		p.seqs = append(p.seqs, seqs...)
		p.lastAppend = time.Now()
	}

	var emitted []models.Unit
	for len(p.seqs) >= unitSize {
		u := models.Unit{Producer: producerID, Sequences: make([]models.Sequence, unitSize)}
		copy(u.Sequences, p.seqs[:unitSize])
		p.seqs = p.seqs[unitSize:]
		emitted = append(emitted, u)
	}
	if len(p.seqs) == 0 {
		delete(b.partials, producerID)
		return emitted, 0
	}
	// copy the tail so the drained backing array can be collected
	rest := make([]models.Sequence, len(p.seqs))
	copy(rest, p.seqs)
	p.seqs = rest
	return emitted, len(p.seqs)
}

// Remainder returns the number of sequences buffered for a producer.
func (b *Buffer) Remainder(producerID int) int {
	if p := b.partials[producerID]; p != nil {
		return len(p.seqs)
	}
	return 0
}

// Pending returns the total number of buffered sequences across producers.
func (b *Buffer) Pending() int {
	var n int
	for _, p := range b.partials {
		n += len(p.seqs)
	}
	return n
}

// Discard drops the producer's partial list, returning how many sequences
// were thrown away. Used on unregistration, where losing an incomplete unit
// is deliberate.
func (b *Buffer) Discard(producerID int) int {
	p := b.partials[producerID]
	if p == nil {
		return 0
	}
	n := len(p.seqs)
	delete(b.partials, producerID)
	return n
}

// ExpireBefore drops every partial list whose last append is older than
// cutoff. Returns dropped sequence counts keyed by producer id.
func (b *Buffer) ExpireBefore(cutoff time.Time) map[int]int {
	dropped := make(map[int]int)
	for id, p := range b.partials {
		if p.lastAppend.Before(cutoff) {
			dropped[id] = len(p.seqs)
			delete(b.partials, id)
		}
	}
	return dropped
}

// Reset discards every partial list.
func (b *Buffer) Reset() {
	b.partials = make(map[int]*partial)
}
