package models

// ProducerRecord describes one registered producer. Weight, UnitSize and
// MinAllocation are fixed for the producer's lifetime; the record is owned
// by the registry and referenced by ID everywhere else.
type ProducerRecord struct {
	ID       int     `json:"producer_id"`
	Weight   float64 `json:"weight"`
	UnitSize int     `json:"unit_size"`
	// MinAllocation, when set, is the minimum fraction of every batch that
	// must come from this producer (subject to down-scaling when the sum
	// across producers exceeds 1).
	MinAllocation *float64 `json:"min_allocation,omitempty"`
	MaxPayloadLen int      `json:"max_payload_len"`
}

// Batch is a successfully formed batch: the step it advanced the server to
// and the flattened sequences, whole units only, in draw order.
type Batch struct {
	Step      int64      `json:"step"`
	Sequences []Sequence `json:"batch"`
}
