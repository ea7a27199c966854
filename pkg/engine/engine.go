// Package engine defines the boundary between the orchestration packages
// and the model runtime beneath them. Implementations wrap a concrete
// inference stack; everything above this interface is runtime-agnostic.
package engine

// Engine exposes the model operations the orchestration layer needs:
// text/token conversion, vocabulary lookup, forward passes and sampling.
//
// Encode, Decode, TokenID, Sample and ApplyRepeatPenalty are read-only with
// respect to engine state and safe for concurrent use. Mutable decoding
// state lives in the ForwardPass values handed out by NewPass, so
// independent consumers can share one Engine without interfering.
type Engine interface {
	// Encode converts text to token ids.
	Encode(text string) ([]uint32, error)

	// Decode converts token ids back to text. Decoding is deterministic
	// for a given engine but is not guaranteed to invert Encode exactly.
	Decode(ids []uint32) (string, error)

	// TokenID resolves a single vocabulary piece to its id. Unknown
	// pieces yield an error wrapping ErrTokenNotFound.
	TokenID(piece string) (uint32, error)

	// ContextSize reports the fixed context window in tokens.
	ContextSize() int

	// NewPass returns fresh forward-pass state over the shared weights.
	NewPass() (ForwardPass, error)

	// Sample draws a token id from a logits vector. It is a pure function
	// of its arguments: equal inputs give equal results. Temperature 0
	// selects the arg-max; topP in (0,1] enables nucleus truncation and
	// any other value disables it.
	Sample(logits []float32, seed uint64, temperature, topP float64) (uint32, error)

	// ApplyRepeatPenalty returns a logits vector with the penalty applied
	// to every id present in recent. The caller decides the window; the
	// engine only performs the transform. The input slice may be modified
	// and reused as the result.
	ApplyRepeatPenalty(logits []float32, penalty float32, recent []uint32) []float32
}

// ForwardPass is the stateful half of a decoding run. Forward extends the
// pass's cached context with ids and returns the logits for the next
// position, so passing only the newest token continues incrementally from
// the cached prefix. There is no way to rewind.
//
// A ForwardPass belongs to a single consumer and is not safe for
// concurrent use.
type ForwardPass interface {
	Forward(ids []uint32) ([]float32, error)
}
