package validation

import (
	"errors"
	"fmt"

	"rolloutdb/pkg/models"
)

// ErrInvalidSequence marks a submission rejected before any state change.
var ErrInvalidSequence = errors.New("invalid sequence")

// CheckSequences validates a submission against its producer record: masks
// and optional per-token arrays must match the token count, and no sequence
// may exceed the producer's max payload length. Payload contents are never
// inspected.
func CheckSequences(rec models.ProducerRecord, seqs []models.Sequence) error {
	for i, s := range seqs {
		if len(s.Masks) != len(s.Tokens) {
			return fmt.Errorf("%w: sequence %d: masks length %d does not match tokens length %d",
				ErrInvalidSequence, i, len(s.Masks), len(s.Tokens))
		}
		if len(s.Advantages) > 0 && len(s.Advantages) != len(s.Tokens) {
			return fmt.Errorf("%w: sequence %d: advantages length %d does not match tokens length %d",
				ErrInvalidSequence, i, len(s.Advantages), len(s.Tokens))
		}
		if len(s.RefLogprobs) > 0 && len(s.RefLogprobs) != len(s.Tokens) {
			return fmt.Errorf("%w: sequence %d: ref_logprobs length %d does not match tokens length %d",
				ErrInvalidSequence, i, len(s.RefLogprobs), len(s.Tokens))
		}
		if rec.MaxPayloadLen > 0 && len(s.Tokens) > rec.MaxPayloadLen {
			return fmt.Errorf("%w: sequence %d: %d tokens exceeds max payload length %d",
				ErrInvalidSequence, i, len(s.Tokens), rec.MaxPayloadLen)
		}
	}
	return nil
}
