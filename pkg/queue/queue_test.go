package queue

import (
	"errors"
	"testing"

	"rolloutdb/pkg/models"
)

func unit(producer, first, size int) models.Unit {
	u := models.Unit{Producer: producer}
	for i := 0; i < size; i++ {
		u.Sequences = append(u.Sequences, models.Sequence{Tokens: []int{first + i}, Masks: []int{first + i}})
	}
	return u
}

func TestEnqueueDequeueFIFO(t *testing.T) {
	q := New()
	q.Enqueue(1, unit(1, 0, 2))
	q.Enqueue(1, unit(1, 10, 2))
	q.Enqueue(2, unit(2, 20, 3))

	if q.TotalSequences() != 7 {
		t.Fatalf("total sequences %d, want 7", q.TotalSequences())
	}
	counts := q.PeekCounts()
	if counts[1] != 2 || counts[2] != 1 {
		t.Fatalf("unexpected peek counts: %v", counts)
	}

	units, err := q.DequeueFrom(1, 1)
	if err != nil {
		t.Fatalf("dequeue failed: %v", err)
	}
	if units[0].Sequences[0].Tokens[0] != 0 {
		t.Fatalf("dequeue is not FIFO")
	}
	if q.TotalSequences() != 5 {
		t.Fatalf("total sequences %d after dequeue, want 5", q.TotalSequences())
	}
}

func TestDequeueInsufficientLeavesQueueUntouched(t *testing.T) {
	q := New()
	q.Enqueue(1, unit(1, 0, 2))

	_, err := q.DequeueFrom(1, 2)
	if !errors.Is(err, ErrInsufficientUnits) {
		t.Fatalf("expected ErrInsufficientUnits, got %v", err)
	}
	if q.Available(1) != 1 || q.TotalSequences() != 2 {
		t.Fatalf("failed dequeue mutated the queue")
	}

	if _, err := q.DequeueFrom(99, 1); !errors.Is(err, ErrInsufficientUnits) {
		t.Fatalf("expected ErrInsufficientUnits for unknown producer, got %v", err)
	}
}

func TestDrop(t *testing.T) {
	q := New()
	q.Enqueue(1, unit(1, 0, 2))
	q.Enqueue(1, unit(1, 2, 2))
	q.Enqueue(2, unit(2, 9, 1))

	if n := q.Drop(1); n != 4 {
		t.Fatalf("drop returned %d, want 4", n)
	}
	if q.TotalSequences() != 1 {
		t.Fatalf("total sequences %d after drop, want 1", q.TotalSequences())
	}
	if n := q.Drop(1); n != 0 {
		t.Fatalf("second drop returned %d, want 0", n)
	}
}

func TestReset(t *testing.T) {
	q := New()
	q.Enqueue(1, unit(1, 0, 3))
	q.Reset()
	if q.TotalSequences() != 0 || len(q.PeekCounts()) != 0 {
		t.Fatalf("reset left state behind")
	}
}
