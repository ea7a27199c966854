package gen

import "errors"

// ErrEmptyPrompt reports a session started with no prompt tokens.
var ErrEmptyPrompt = errors.New("prompt is empty")
