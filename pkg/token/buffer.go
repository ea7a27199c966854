// Package token provides the append-only token sequence that every layer
// of the generation stack passes around. A Buffer pairs the ids with the
// engine that produced them, so holders can grow or decode the sequence
// without carrying the engine separately.
package token

import (
	"fmt"

	"github.com/bardworks/bard/pkg/engine"
)

// Buffer is an append-only sequence of token ids bound to an engine.
// The ids are owned by the buffer and only ever grow; the engine handle is
// shared freely between buffers.
type Buffer struct {
	eng engine.Engine
	ids []uint32
}

// New returns an empty buffer bound to eng.
func New(eng engine.Engine) *Buffer {
	return &Buffer{eng: eng}
}

// FromText encodes text and returns a buffer holding the result.
func FromText(eng engine.Engine, text string) (*Buffer, error) {
	b := New(eng)
	if err := b.AppendText(text); err != nil {
		return nil, err
	}
	return b, nil
}

// Engine returns the engine handle the buffer is bound to.
func (b *Buffer) Engine() engine.Engine { return b.eng }

// Len reports the number of tokens held.
func (b *Buffer) Len() int { return len(b.ids) }

// Append appends a single token id.
func (b *Buffer) Append(id uint32) {
	b.ids = append(b.ids, id)
}

// AppendTokens appends ids in order.
func (b *Buffer) AppendTokens(ids ...uint32) {
	b.ids = append(b.ids, ids...)
}

// AppendText encodes text with the buffer's engine and appends the result.
func (b *Buffer) AppendText(text string) error {
	ids, err := b.eng.Encode(text)
	if err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	b.ids = append(b.ids, ids...)
	return nil
}

// AppendBuffer appends the contents of other. The engines must match for
// the combined sequence to decode sensibly; no check is performed.
func (b *Buffer) AppendBuffer(other *Buffer) {
	b.ids = append(b.ids, other.ids...)
}

// Tokens returns a copy of all ids.
func (b *Buffer) Tokens() []uint32 {
	out := make([]uint32, len(b.ids))
	copy(out, b.ids)
	return out
}

// Slice returns a copy of the ids in [from, to). Bounds outside the buffer
// are reported as an error, never a panic.
func (b *Buffer) Slice(from, to int) ([]uint32, error) {
	if from < 0 || to > len(b.ids) || from > to {
		return nil, fmt.Errorf("slice [%d:%d) out of range for %d tokens", from, to, len(b.ids))
	}
	out := make([]uint32, to-from)
	copy(out, b.ids[from:to])
	return out, nil
}

// Tail returns a copy of the last n ids, or all of them when fewer exist.
func (b *Buffer) Tail(n int) []uint32 {
	if n < 0 {
		n = 0
	}
	if n > len(b.ids) {
		n = len(b.ids)
	}
	out := make([]uint32, n)
	copy(out, b.ids[len(b.ids)-n:])
	return out
}

// TailSum sums the last n ids as uint64, wrapping on overflow. Fewer than
// n ids sum what exists; an empty buffer sums to zero.
func (b *Buffer) TailSum(n int) uint64 {
	if n <= 0 {
		return 0
	}
	start := len(b.ids) - n
	if start < 0 {
		start = 0
	}
	var sum uint64
	for _, id := range b.ids[start:] {
		sum += uint64(id)
	}
	return sum
}

// HeadSum sums the first n ids as uint64, wrapping on overflow.
func (b *Buffer) HeadSum(n int) uint64 {
	if n <= 0 {
		return 0
	}
	if n > len(b.ids) {
		n = len(b.ids)
	}
	var sum uint64
	for _, id := range b.ids[:n] {
		sum += uint64(id)
	}
	return sum
}

// Text decodes the whole buffer.
func (b *Buffer) Text() (string, error) {
	return b.eng.Decode(b.ids)
}

// Clone returns a buffer with its own copy of the ids and the same engine
// handle.
func (b *Buffer) Clone() *Buffer {
	c := &Buffer{eng: b.eng, ids: make([]uint32, len(b.ids))}
	copy(c.ids, b.ids)
	return c
}
