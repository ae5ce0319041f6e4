package allocator

import (
	"errors"
	"reflect"
	"testing"

	"rolloutdb/pkg/models"
	"rolloutdb/pkg/queue"
)

func fptr(v float64) *float64 { return &v }

func rec(id int, weight float64, unitSize int, minAlloc *float64) models.ProducerRecord {
	return models.ProducerRecord{ID: id, Weight: weight, UnitSize: unitSize, MinAllocation: minAlloc}
}

// fill enqueues n units of the producer's unit size.
func fill(q *queue.Queue, r models.ProducerRecord, n int) {
	for i := 0; i < n; i++ {
		u := models.Unit{Producer: r.ID}
		for j := 0; j < r.UnitSize; j++ {
			u.Sequences = append(u.Sequences, models.Sequence{Tokens: []int{r.ID}, Masks: []int{r.ID}})
		}
		q.Enqueue(r.ID, u)
	}
}

func countByProducer(units []models.Unit) map[int]int {
	out := make(map[int]int)
	for _, u := range units {
		out[u.Producer] += u.Len()
	}
	return out
}

func TestFormBatchExactSize(t *testing.T) {
	q := queue.New()
	recs := []models.ProducerRecord{rec(1, 1, 2, nil), rec(2, 1, 2, nil)}
	fill(q, recs[0], 3)
	fill(q, recs[1], 3)

	units, err := FormBatch(recs, q, 8)
	if err != nil {
		t.Fatalf("form batch failed: %v", err)
	}
	var total int
	for _, u := range units {
		total += u.Len()
	}
	if total != 8 {
		t.Fatalf("batch has %d sequences, want 8", total)
	}
}

func TestFormBatchInsufficientLeavesQueueUntouched(t *testing.T) {
	q := queue.New()
	recs := []models.ProducerRecord{rec(1, 1, 4, nil)}
	fill(q, recs[0], 1)

	before := q.PeekCounts()
	_, err := FormBatch(recs, q, 8)
	if !errors.Is(err, ErrInsufficientData) {
		t.Fatalf("expected ErrInsufficientData, got %v", err)
	}
	if !reflect.DeepEqual(before, q.PeekCounts()) {
		t.Fatalf("failed draw mutated the queue: before=%v after=%v", before, q.PeekCounts())
	}
}

func TestFormBatchNeverSplitsUnits(t *testing.T) {
	// 2 units of size 3 queued: 6 sequences available, but 4 is not a sum
	// of whole units, so the draw must fail.
	q := queue.New()
	recs := []models.ProducerRecord{rec(1, 1, 3, nil)}
	fill(q, recs[0], 2)

	if _, err := FormBatch(recs, q, 4); !errors.Is(err, ErrInsufficientData) {
		t.Fatalf("expected ErrInsufficientData, got %v", err)
	}
	if q.TotalSequences() != 6 {
		t.Fatalf("failed draw mutated the queue")
	}

	// add a unit-size-1 producer and the same batch becomes feasible
	extra := rec(2, 1, 1, nil)
	fill(q, extra, 5)
	units, err := FormBatch([]models.ProducerRecord{recs[0], extra}, q, 4)
	if err != nil {
		t.Fatalf("form batch failed: %v", err)
	}
	var total int
	for _, u := range units {
		total += u.Len()
	}
	if total != 4 {
		t.Fatalf("batch has %d sequences, want 4", total)
	}
}

func TestFormBatchEmptyQueue(t *testing.T) {
	q := queue.New()
	if _, err := FormBatch([]models.ProducerRecord{rec(1, 1, 1, nil)}, q, 4); !errors.Is(err, ErrInsufficientData) {
		t.Fatalf("expected ErrInsufficientData, got %v", err)
	}
}

func TestWeightedProportionality(t *testing.T) {
	// weights 1:3, abundant supply, many batches of 4: long-run drawn
	// sequence ratio must converge to 1:3. With unit size 1 the
	// largest-remainder targets make every batch split exactly 1/3.
	q := queue.New()
	recs := []models.ProducerRecord{rec(1, 1, 1, nil), rec(2, 3, 1, nil)}
	fill(q, recs[0], 200)
	fill(q, recs[1], 400)

	drawn := make(map[int]int)
	for i := 0; i < 100; i++ {
		units, err := FormBatch(recs, q, 4)
		if err != nil {
			t.Fatalf("batch %d failed: %v", i, err)
		}
		for id, n := range countByProducer(units) {
			drawn[id] += n
		}
	}
	if drawn[1] != 100 || drawn[2] != 300 {
		t.Fatalf("drawn ratio %d:%d, want 100:300", drawn[1], drawn[2])
	}
}

func TestLargestRemainderTieBreaksByAscendingID(t *testing.T) {
	// equal weights, batch 3: shares are 1.5 each; the spare sequence goes
	// to the lower id.
	q := queue.New()
	recs := []models.ProducerRecord{rec(1, 1, 1, nil), rec(2, 1, 1, nil)}
	fill(q, recs[0], 10)
	fill(q, recs[1], 10)

	units, err := FormBatch(recs, q, 3)
	if err != nil {
		t.Fatalf("form batch failed: %v", err)
	}
	got := countByProducer(units)
	if got[1] != 2 || got[2] != 1 {
		t.Fatalf("tie broke wrong way: %v, want producer 1 -> 2, producer 2 -> 1", got)
	}
}

func TestMinimumFloorSatisfied(t *testing.T) {
	q := queue.New()
	recs := []models.ProducerRecord{rec(1, 1, 1, fptr(0.3)), rec(2, 1, 1, nil)}
	fill(q, recs[0], 3)
	fill(q, recs[1], 20)

	units, err := FormBatch(recs, q, 10)
	if err != nil {
		t.Fatalf("form batch failed: %v", err)
	}
	got := countByProducer(units)
	if got[1] < 3 {
		t.Fatalf("producer 1 contributed %d sequences, floor is 3", got[1])
	}
	if got[1]+got[2] != 10 {
		t.Fatalf("batch size %d, want 10", got[1]+got[2])
	}
}

func TestMinimumFloorNotSubstitutable(t *testing.T) {
	// producer 1 has only 2 queued sequences against a floor of 3: the
	// draw must fail rather than substitute producer 2's data.
	q := queue.New()
	recs := []models.ProducerRecord{rec(1, 1, 1, fptr(0.3)), rec(2, 1, 1, nil)}
	fill(q, recs[0], 2)
	fill(q, recs[1], 20)

	before := q.PeekCounts()
	_, err := FormBatch(recs, q, 10)
	if !errors.Is(err, ErrInsufficientData) {
		t.Fatalf("expected insufficient-data outcome, got %v", err)
	}
	if !errors.Is(err, ErrAllocationInfeasible) {
		t.Fatalf("expected ErrAllocationInfeasible, got %v", err)
	}
	if !reflect.DeepEqual(before, q.PeekCounts()) {
		t.Fatalf("failed draw mutated the queue")
	}
}

func TestMinimumsScaledWhenOversubscribed(t *testing.T) {
	// declared minimums sum to 1.4; effective minimums are 0.8/1.4 and
	// 0.6/1.4, giving floors of 5 and 4 for a batch of 10.
	q := queue.New()
	recs := []models.ProducerRecord{rec(1, 1, 1, fptr(0.8)), rec(2, 1, 1, fptr(0.6))}
	fill(q, recs[0], 20)
	fill(q, recs[1], 20)

	units, err := FormBatch(recs, q, 10)
	if err != nil {
		t.Fatalf("form batch failed: %v", err)
	}
	got := countByProducer(units)
	if got[1] < 5 {
		t.Fatalf("producer 1 contributed %d, scaled floor is 5", got[1])
	}
	if got[2] < 4 {
		t.Fatalf("producer 2 contributed %d, scaled floor is 4", got[2])
	}
	if got[1]+got[2] != 10 {
		t.Fatalf("batch size %d, want 10", got[1]+got[2])
	}
}

func TestMinimumFloorWholeUnits(t *testing.T) {
	// floor of 3 sequences with unit size 2 rounds up to 2 whole units.
	q := queue.New()
	recs := []models.ProducerRecord{rec(1, 1, 2, fptr(0.3)), rec(2, 1, 1, nil)}
	fill(q, recs[0], 2)
	fill(q, recs[1], 20)

	units, err := FormBatch(recs, q, 10)
	if err != nil {
		t.Fatalf("form batch failed: %v", err)
	}
	got := countByProducer(units)
	if got[1] != 4 {
		t.Fatalf("producer 1 contributed %d sequences, want 4 (2 whole units)", got[1])
	}

	// with only one unit queued the floor cannot be met in whole units
	q2 := queue.New()
	fill(q2, recs[0], 1)
	fill(q2, recs[1], 20)
	if _, err := FormBatch(recs, q2, 10); !errors.Is(err, ErrAllocationInfeasible) {
		t.Fatalf("expected ErrAllocationInfeasible, got %v", err)
	}
}

func TestMinimumModeRemainderUsesOriginalWeights(t *testing.T) {
	// producer 1's floor is 2; the remaining 8 sequences are split by the
	// original weights (1:3) over both producers: 2 and 6.
	q := queue.New()
	recs := []models.ProducerRecord{rec(1, 1, 1, fptr(0.2)), rec(2, 3, 1, nil)}
	fill(q, recs[0], 20)
	fill(q, recs[1], 20)

	units, err := FormBatch(recs, q, 10)
	if err != nil {
		t.Fatalf("form batch failed: %v", err)
	}
	got := countByProducer(units)
	if got[1] != 4 || got[2] != 6 {
		t.Fatalf("got %v, want producer 1 -> 4 (floor 2 + weighted 2), producer 2 -> 6", got)
	}
}
