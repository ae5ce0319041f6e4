package journal

import (
	"testing"

	"rolloutdb/pkg/models"
)

func openTemp(t *testing.T) {
	t.Helper()
	if err := Open(t.TempDir()); err != nil {
		t.Fatalf("open failed: %v", err)
	}
	t.Cleanup(func() { _ = Close() })
}

func batch(step int64, tokens ...int) models.Batch {
	b := models.Batch{Step: step}
	for _, tok := range tokens {
		b.Sequences = append(b.Sequences, models.Sequence{Tokens: []int{tok}, Masks: []int{tok}, Score: 1})
	}
	return b
}

func TestAppendGet(t *testing.T) {
	openTemp(t)
	if err := Append(batch(3, 1, 2)); err != nil {
		t.Fatalf("append failed: %v", err)
	}
	got, err := Get(3)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if got.Step != 3 || len(got.Sequences) != 2 || got.Sequences[1].Tokens[0] != 2 {
		t.Fatalf("unexpected batch: %+v", got)
	}
}

func TestWalkOrderedByStep(t *testing.T) {
	openTemp(t)
	for _, step := range []int64{5, 1, 12} {
		if err := Append(batch(step, int(step))); err != nil {
			t.Fatalf("append failed: %v", err)
		}
	}
	var steps []int64
	if err := Walk(func(b models.Batch) bool {
		steps = append(steps, b.Step)
		return true
	}); err != nil {
		t.Fatalf("walk failed: %v", err)
	}
	want := []int64{1, 5, 12}
	if len(steps) != 3 || steps[0] != want[0] || steps[1] != want[1] || steps[2] != want[2] {
		t.Fatalf("walk order %v, want %v", steps, want)
	}
}

func TestWalkStopsEarly(t *testing.T) {
	openTemp(t)
	for step := int64(1); step <= 5; step++ {
		_ = Append(batch(step, 0))
	}
	var n int
	_ = Walk(func(models.Batch) bool {
		n++
		return n < 2
	})
	if n != 2 {
		t.Fatalf("walk visited %d batches, want 2", n)
	}
}

func TestAppendWithoutOpen(t *testing.T) {
	if Ready() {
		t.Fatalf("journal unexpectedly open")
	}
	if err := Append(batch(1, 0)); err == nil {
		t.Fatalf("expected error when journal is closed")
	}
}
