package models

// Sequence is one scored trajectory submitted by a producer. The core
// treats every field as opaque except the token count, which is checked
// against the producer's max payload length, and the mask/aux lengths,
// which must agree with the tokens.
type Sequence struct {
	Tokens      []int     `json:"tokens"`
	Masks       []int     `json:"masks"`
	Score       float64   `json:"score"`
	Advantages  []float64 `json:"advantages,omitempty"`
	RefLogprobs []float64 `json:"ref_logprobs,omitempty"`
	Messages    []string  `json:"messages,omitempty"`
	// Overrides carries per-sequence trainer hints; contents are never
	// interpreted here.
	Overrides map[string]any `json:"overrides,omitempty"`
}

// Unit is the atomic queueing item: exactly unit_size sequences produced
// together by one producer, in submission order. Units are immutable once
// built by the aggregation buffer.
type Unit struct {
	Producer  int        `json:"producer_id"`
	Sequences []Sequence `json:"sequences"`
}

// Len returns the number of sequences in the unit.
func (u Unit) Len() int { return len(u.Sequences) }
