package engine

import "errors"

// ErrTokenNotFound reports a vocabulary lookup for a piece the engine does
// not know. Implementations return it, usually wrapped, from TokenID.
var ErrTokenNotFound = errors.New("token not found in vocabulary")
