// Package enginetest provides a scripted engine.Engine for package tests.
//
// The engine encodes text one ASCII byte per token, so test prompts and
// outputs are easy to write down and reason about. Each call to NewPass
// consumes the next configured script; each Forward call on that pass
// returns logits that force the script's next token under arg-max
// sampling, then the end-of-text token once the script is spent. The
// engine records every Forward, Sample and ApplyRepeatPenalty call so
// tests can assert on context sizes, seeds, temperatures and penalty
// windows.
package enginetest

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/bardworks/bard/pkg/engine"
)

const endOfText = "<|endoftext|>"

// Ids 0..255 are reserved for special pieces; ASCII bytes map to 256+b.
const (
	eosID     = 0
	runeBase  = 256
	vocabSize = runeBase + 128
)

// Fail is a reserved script id. When a script reaches it, Forward returns
// an error instead of logits.
const Fail = ^uint32(0)

// SampleCall records one Sample invocation.
type SampleCall struct {
	Seed        uint64
	Temperature float64
	TopP        float64
	Picked      uint32
}

// PenaltyCall records one ApplyRepeatPenalty invocation.
type PenaltyCall struct {
	Penalty float32
	Recent  []uint32
}

// Engine is a scripted engine.Engine implementation.
type Engine struct {
	mu        sync.Mutex
	ctxSize   int
	noEOS     bool
	pieces    []string // ids below runeBase; index 0 is end-of-text
	scripts   [][]uint32
	nextIdx   int
	passes    []*Pass
	samples   []SampleCall
	penalties []PenaltyCall
}

var _ engine.Engine = (*Engine)(nil)

// Pass replays one script.
type Pass struct {
	eng    *Engine
	script []uint32
	cursor int
	sizes  []int
	first  []uint32
}

// New returns an engine whose successive passes replay the given scripts,
// one script per NewPass. Scripts must be ASCII.
func New(scripts ...string) *Engine {
	e := &Engine{ctxSize: 2048, pieces: []string{endOfText}}
	for _, s := range scripts {
		e.scripts = append(e.scripts, Text(s))
	}
	return e
}

// NewTokens is New with raw id scripts, for scripts that need reserved ids
// such as Fail or registered pieces.
func NewTokens(scripts ...[]uint32) *Engine {
	e := &Engine{ctxSize: 2048, pieces: []string{endOfText}}
	e.scripts = append(e.scripts, scripts...)
	return e
}

// AddPiece registers a multi-character vocabulary piece and returns its
// id, so scripts can emit fragments longer than one byte.
func (e *Engine) AddPiece(piece string) uint32 {
	id := uint32(len(e.pieces))
	if id >= runeBase {
		panic("enginetest: piece table full")
	}
	e.pieces = append(e.pieces, piece)
	return id
}

// AddScript appends a script for a later NewPass to consume.
func (e *Engine) AddScript(ids ...uint32) {
	e.scripts = append(e.scripts, ids)
}

// Text converts ASCII text to the ids the engine would encode it as.
// It panics on non-ASCII input; scripts are fixtures, not data.
func Text(s string) []uint32 {
	ids, err := encodeASCII(s)
	if err != nil {
		panic(err)
	}
	return ids
}

// WithContextSize overrides the default 2048-token window.
func (e *Engine) WithContextSize(n int) *Engine {
	e.ctxSize = n
	return e
}

// WithoutEOS removes the end-of-text piece from the vocabulary, for
// exercising construction failures.
func (e *Engine) WithoutEOS() *Engine {
	e.noEOS = true
	return e
}

func (e *Engine) Encode(text string) ([]uint32, error) {
	return encodeASCII(text)
}

func (e *Engine) Decode(ids []uint32) (string, error) {
	var sb strings.Builder
	for _, id := range ids {
		switch {
		case id < runeBase && int(id) < len(e.pieces):
			sb.WriteString(e.pieces[id])
		case id >= runeBase && id < vocabSize:
			sb.WriteByte(byte(id - runeBase))
		default:
			return "", fmt.Errorf("decode: unknown id %d", id)
		}
	}
	return sb.String(), nil
}

func (e *Engine) TokenID(piece string) (uint32, error) {
	for i, p := range e.pieces {
		if p != piece {
			continue
		}
		if i == eosID && e.noEOS {
			break
		}
		return uint32(i), nil
	}
	if len(piece) == 1 && piece[0] < 128 {
		return runeBase + uint32(piece[0]), nil
	}
	return 0, fmt.Errorf("%q: %w", piece, engine.ErrTokenNotFound)
}

func (e *Engine) ContextSize() int { return e.ctxSize }

func (e *Engine) NewPass() (engine.ForwardPass, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	var script []uint32
	if e.nextIdx < len(e.scripts) {
		script = e.scripts[e.nextIdx]
		e.nextIdx++
	}
	p := &Pass{eng: e, script: script}
	e.passes = append(e.passes, p)
	return p, nil
}

// Sample picks the arg-max and records the call.
func (e *Engine) Sample(logits []float32, seed uint64, temperature, topP float64) (uint32, error) {
	if len(logits) == 0 {
		return 0, errors.New("sample: empty logits")
	}
	best := 0
	for i, v := range logits {
		if v > logits[best] {
			best = i
		}
	}
	e.mu.Lock()
	e.samples = append(e.samples, SampleCall{Seed: seed, Temperature: temperature, TopP: topP, Picked: uint32(best)})
	e.mu.Unlock()
	return uint32(best), nil
}

// ApplyRepeatPenalty records the call and returns the logits unchanged.
func (e *Engine) ApplyRepeatPenalty(logits []float32, penalty float32, recent []uint32) []float32 {
	e.mu.Lock()
	e.penalties = append(e.penalties, PenaltyCall{Penalty: penalty, Recent: append([]uint32(nil), recent...)})
	e.mu.Unlock()
	return logits
}

// Samples returns the recorded Sample calls in order.
func (e *Engine) Samples() []SampleCall {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]SampleCall(nil), e.samples...)
}

// Penalties returns the recorded ApplyRepeatPenalty calls in order.
func (e *Engine) Penalties() []PenaltyCall {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]PenaltyCall(nil), e.penalties...)
}

// PassCount reports how many passes have been created.
func (e *Engine) PassCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.passes)
}

// ForwardSizes returns the context lengths Forward received on the i'th
// pass, in call order.
func (e *Engine) ForwardSizes(i int) []int {
	e.mu.Lock()
	defer e.mu.Unlock()
	if i < 0 || i >= len(e.passes) {
		return nil
	}
	return append([]int(nil), e.passes[i].sizes...)
}

// FirstForward returns the ids the i'th pass received on its first
// Forward call, which for a session is the whole prompt.
func (e *Engine) FirstForward(i int) []uint32 {
	e.mu.Lock()
	defer e.mu.Unlock()
	if i < 0 || i >= len(e.passes) {
		return nil
	}
	return append([]uint32(nil), e.passes[i].first...)
}

func (p *Pass) Forward(ids []uint32) ([]float32, error) {
	p.eng.mu.Lock()
	defer p.eng.mu.Unlock()
	if p.first == nil {
		p.first = append([]uint32(nil), ids...)
	}
	p.sizes = append(p.sizes, len(ids))
	next := uint32(eosID)
	if p.cursor < len(p.script) {
		next = p.script[p.cursor]
		p.cursor++
	}
	if next == Fail {
		return nil, errors.New("scripted forward failure")
	}
	logits := make([]float32, vocabSize)
	logits[next] = 1
	return logits, nil
}

func encodeASCII(text string) ([]uint32, error) {
	ids := make([]uint32, 0, len(text))
	for i := 0; i < len(text); i++ {
		c := text[i]
		if c >= 128 {
			return nil, fmt.Errorf("encode: non-ascii byte %#x", c)
		}
		ids = append(ids, runeBase+uint32(c))
	}
	return ids, nil
}
