package allocator

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"rolloutdb/pkg/models"
	"rolloutdb/pkg/queue"
)

// ErrInsufficientData means the batch could not be formed from the units
// currently queued. Not a fault: callers retry after a delay. The queue is
// never mutated on this outcome.
var ErrInsufficientData = errors.New("insufficient data")

// ErrAllocationInfeasible means a producer's minimum-allocation floor could
// not be met from its queue. It unwraps to ErrInsufficientData because both
// outcomes mean "try again later" to the caller.
var ErrAllocationInfeasible = fmt.Errorf("minimum allocation infeasible: %w", ErrInsufficientData)

// floorEps guards floor() against float artifacts such as 0.3*10 landing
// just below 3.
const floorEps = 1e-9

// FormBatch draws whole units totalling exactly batchSize sequences from q,
// weighted by the producer records. Minimum-allocation mode engages when any
// record declares a minimum. All-or-nothing: on any error the queue is
// untouched. Returned units are ordered by ascending producer id, FIFO
// within a producer.
func FormBatch(recs []models.ProducerRecord, q *queue.Queue, batchSize int) ([]models.Unit, error) {
	if batchSize <= 0 {
		return nil, fmt.Errorf("%w: batch size %d", ErrInsufficientData, batchSize)
	}
	avail := q.PeekCounts()

	hasMin := false
	for _, rec := range recs {
		if rec.MinAllocation != nil {
			hasMin = true
			break
		}
	}

	var plan map[int]int
	var err error
	if hasMin {
		plan, err = planWithMinimums(recs, avail, batchSize)
	} else {
		plan, err = planWeighted(recs, avail, batchSize)
	}
	if err != nil {
		return nil, err
	}

	ids := make([]int, 0, len(plan))
	for id, n := range plan {
		if n > 0 {
			ids = append(ids, id)
		}
	}
	sort.Ints(ids)

	var units []models.Unit
	for _, id := range ids {
		drawn, err := q.DequeueFrom(id, plan[id])
		if err != nil {
			// plan was computed against PeekCounts under the caller's lock,
			// so this indicates a bug rather than a racing writer
			return nil, err
		}
		units = append(units, drawn...)
	}
	return units, nil
}

// planWeighted allocates target sequences across producers with queued
// units, in whole units, tracking each producer's largest-remainder integer
// target. Ties break by ascending producer id. Fails if the target cannot
// be met exactly.
func planWeighted(recs []models.ProducerRecord, avail map[int]int, target int) (map[int]int, error) {
	plan := make(map[int]int)
	if target == 0 {
		return plan, nil
	}

	cands := make([]models.ProducerRecord, 0, len(recs))
	for _, rec := range recs {
		if avail[rec.ID] > 0 {
			cands = append(cands, rec)
		}
	}
	sort.Slice(cands, func(i, j int) bool { return cands[i].ID < cands[j].ID })
	if len(cands) == 0 {
		return nil, fmt.Errorf("%w: no producers with queued units", ErrInsufficientData)
	}

	targets := integerTargets(cands, target)

	unitSize := make(map[int]int, len(cands))
	for _, c := range cands {
		unitSize[c.ID] = c.UnitSize
	}

	drawnSeqs := make(map[int]int)
	remaining := target
	for remaining > 0 {
		best := -1
		var bestDeficit int
		for _, c := range cands {
			if plan[c.ID] >= avail[c.ID] {
				continue
			}
			if c.UnitSize > remaining {
				continue
			}
			deficit := targets[c.ID] - drawnSeqs[c.ID]
			if best == -1 || deficit > bestDeficit {
				best = c.ID
				bestDeficit = deficit
			}
		}
		if best == -1 {
			return nil, fmt.Errorf("%w: %d sequences unfilled", ErrInsufficientData, remaining)
		}
		plan[best]++
		drawnSeqs[best] += unitSize[best]
		remaining -= unitSize[best]
	}
	return plan, nil
}

// planWithMinimums satisfies every declared minimum floor in whole units
// first, then fills the remainder with the plain weighted allocation over
// all producers using their original weights.
func planWithMinimums(recs []models.ProducerRecord, avail map[int]int, batchSize int) (map[int]int, error) {
	var msum float64
	for _, rec := range recs {
		if rec.MinAllocation != nil {
			msum += *rec.MinAllocation
		}
	}
	// scale down proportionally when minimums oversubscribe the batch;
	// never scale up
	scale := 1.0
	if msum > 1 {
		scale = 1 / msum
	}

	base := make(map[int]int)
	used := 0
	for _, rec := range recs {
		if rec.MinAllocation == nil {
			continue
		}
		floorSeqs := int(math.Floor(*rec.MinAllocation*scale*float64(batchSize) + floorEps))
		if floorSeqs == 0 {
			continue
		}
		units := (floorSeqs + rec.UnitSize - 1) / rec.UnitSize
		if avail[rec.ID] < units {
			return nil, fmt.Errorf("%w: producer %d needs %d units for its floor, has %d",
				ErrAllocationInfeasible, rec.ID, units, avail[rec.ID])
		}
		base[rec.ID] = units
		used += units * rec.UnitSize
	}
	if used > batchSize {
		return nil, fmt.Errorf("%w: floors need %d sequences, batch size is %d",
			ErrAllocationInfeasible, used, batchSize)
	}

	remaining := batchSize - used
	if remaining == 0 {
		return base, nil
	}

	left := make(map[int]int, len(avail))
	for id, n := range avail {
		if rest := n - base[id]; rest > 0 {
			left[id] = rest
		}
	}
	extra, err := planWeighted(recs, left, remaining)
	if err != nil {
		return nil, err
	}
	for id, n := range extra {
		base[id] += n
	}
	return base, nil
}

// integerTargets converts weight shares of total into integers that sum to
// total exactly, by largest remainder. Ties break by ascending producer id.
func integerTargets(cands []models.ProducerRecord, total int) map[int]int {
	var wsum float64
	for _, c := range cands {
		wsum += c.Weight
	}

	type rem struct {
		id   int
		frac float64
	}
	targets := make(map[int]int, len(cands))
	rems := make([]rem, 0, len(cands))
	assigned := 0
	for _, c := range cands {
		ideal := c.Weight / wsum * float64(total)
		fl := math.Floor(ideal + floorEps)
		targets[c.ID] = int(fl)
		assigned += int(fl)
		rems = append(rems, rem{id: c.ID, frac: ideal - fl})
	}
	sort.SliceStable(rems, func(i, j int) bool {
		if rems[i].frac != rems[j].frac {
			return rems[i].frac > rems[j].frac
		}
		return rems[i].id < rems[j].id
	})
	for i := 0; assigned < total; i++ {
		targets[rems[i%len(rems)].id]++
		assigned++
	}
	return targets
}
