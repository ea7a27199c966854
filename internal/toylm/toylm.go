// Package toylm is a tiny self-contained language model backing the CLI
// and server when no real model runtime is wired in. The weights are
// seeded random, so the output is deterministic babble; the value is
// that every layer above it runs against a real sampler and a real
// forward pass.
package toylm

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"strings"

	"github.com/bardworks/bard/pkg/engine"
)

// EndOfText is the model's end-of-sequence piece.
const EndOfText = "<|endoftext|>"

const (
	vocabSize = 257 // end-of-text plus 256 byte ids
	decay     = 0.9
	shortlist = 40
)

// Config sizes the model. Zero fields take defaults.
type Config struct {
	Hidden      int    // hidden width, default 32
	ContextSize int    // context window in tokens, default 512
	Seed        uint64 // weight seed
}

// Model is a recurrent bag-of-embeddings language model: each context
// token folds its embedding into a decayed hidden state, and the logits
// are that state projected back over the vocabulary. It implements
// engine.Engine.
type Model struct {
	hidden  int
	ctxSize int
	emb     []float32 // [vocabSize x hidden]
	proj    []float32 // [hidden x vocabSize]
	bias    []float32 // [vocabSize]
}

var _ engine.Engine = (*Model)(nil)

// New builds a model with weights derived from cfg.Seed.
func New(cfg Config) *Model {
	if cfg.Hidden <= 0 {
		cfg.Hidden = 32
	}
	if cfg.ContextSize <= 0 {
		cfg.ContextSize = 512
	}
	m := &Model{
		hidden:  cfg.Hidden,
		ctxSize: cfg.ContextSize,
		emb:     make([]float32, vocabSize*cfg.Hidden),
		proj:    make([]float32, cfg.Hidden*vocabSize),
		bias:    make([]float32, vocabSize),
	}
	fillRand(m.emb, int64(cfg.Seed)+11)
	fillRand(m.proj, int64(cfg.Seed)+23)

	// Bias toward printable bytes so demo output reads as letter babble
	// rather than control characters.
	for b := 0; b < 256; b++ {
		switch {
		case b == ' ', b >= 'a' && b <= 'z':
			m.bias[1+b] = 2
		case b >= 'A' && b <= 'Z', b >= '0' && b <= '9':
			m.bias[1+b] = 1
		case b == '.', b == ',', b == '\n':
			m.bias[1+b] = 0.5
		}
	}
	return m
}

// fillRand fills dst with small centered values from a seeded stream.
func fillRand(dst []float32, seed int64) {
	rng := rand.New(rand.NewSource(seed))
	for i := range dst {
		dst[i] = (rng.Float32() - 0.5) * 0.02
	}
}

// Encode maps text to byte-level ids.
func (m *Model) Encode(text string) ([]uint32, error) {
	ids := make([]uint32, len(text))
	for i := 0; i < len(text); i++ {
		ids[i] = 1 + uint32(text[i])
	}
	return ids, nil
}

// Decode concatenates byte pieces. The end-of-text id decodes to its
// literal piece.
func (m *Model) Decode(ids []uint32) (string, error) {
	var sb strings.Builder
	for _, id := range ids {
		switch {
		case id == 0:
			sb.WriteString(EndOfText)
		case id < vocabSize:
			sb.WriteByte(byte(id - 1))
		default:
			return "", fmt.Errorf("token id %d out of range", id)
		}
	}
	return sb.String(), nil
}

// TokenID resolves the end-of-text piece and single-byte pieces.
func (m *Model) TokenID(piece string) (uint32, error) {
	if piece == EndOfText {
		return 0, nil
	}
	if len(piece) == 1 {
		return 1 + uint32(piece[0]), nil
	}
	return 0, fmt.Errorf("piece %q: %w", piece, engine.ErrTokenNotFound)
}

// ContextSize reports the configured window.
func (m *Model) ContextSize() int { return m.ctxSize }

// NewPass starts a pass with a zeroed hidden state.
func (m *Model) NewPass() (engine.ForwardPass, error) {
	return &pass{m: m, h: make([]float32, m.hidden)}, nil
}

type pass struct {
	m   *Model
	h   []float32
	fed int
}

// Forward folds ids into the hidden state and projects the logits for
// the next position. Feeding a batch and feeding the same ids one by one
// leave the pass in the same state.
func (p *pass) Forward(ids []uint32) ([]float32, error) {
	if p.fed+len(ids) > p.m.ctxSize {
		return nil, fmt.Errorf("context %d tokens exceeds %d-token window", p.fed+len(ids), p.m.ctxSize)
	}
	for _, id := range ids {
		row := p.m.emb[int(id%vocabSize)*p.m.hidden:][:p.m.hidden]
		for i, w := range row {
			p.h[i] = p.h[i]*decay + w
		}
	}
	p.fed += len(ids)

	logits := make([]float32, vocabSize)
	for i, hv := range p.h {
		row := p.m.proj[i*vocabSize:][:vocabSize]
		for j, w := range row {
			logits[j] += hv * w
		}
	}
	for j, b := range p.m.bias {
		logits[j] += b
	}
	return logits, nil
}

// Sample draws one id from logits. The RNG is seeded per call, so equal
// arguments always produce the same pick. Temperature zero or below is
// greedy arg-max; topP in (0,1] truncates the shortlist at that
// cumulative probability.
func (m *Model) Sample(logits []float32, seed uint64, temperature, topP float64) (uint32, error) {
	if len(logits) == 0 {
		return 0, errors.New("sample: empty logits")
	}
	if temperature <= 0 {
		return uint32(argmax(logits)), nil
	}

	k := shortlist
	if k > len(logits) {
		k = len(logits)
	}
	topIdx, topVal := topK(logits, k, float32(1/temperature))

	// Softmax over the shortlist. The values are descending, so the max
	// used for stability is the first.
	maxv := topVal[0]
	prob := make([]float64, len(topVal))
	var sum float64
	for i, v := range topVal {
		e := math.Exp(float64(v - maxv))
		prob[i] = e
		sum += e
	}
	for i := range prob {
		prob[i] /= sum
	}

	cut := len(prob)
	if topP > 0 && topP <= 1 {
		var c float64
		for i := range prob {
			c += prob[i]
			if c >= topP {
				cut = i + 1
				break
			}
		}
	}

	r := rand.New(rand.NewSource(int64(seed))).Float64()
	var c float64
	for i := 0; i < cut; i++ {
		c += prob[i]
		if r <= c {
			return uint32(topIdx[i]), nil
		}
	}
	return uint32(topIdx[cut-1]), nil
}

// ApplyRepeatPenalty dampens every id appearing in recent: positive
// logits are divided by the penalty, non-positive ones multiplied. Each
// id is penalized once however often it repeats in the window.
func (m *Model) ApplyRepeatPenalty(logits []float32, penalty float32, recent []uint32) []float32 {
	if penalty <= 0 {
		return logits
	}
	seen := make(map[uint32]struct{}, len(recent))
	for _, id := range recent {
		if int(id) >= len(logits) {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		if logits[id] > 0 {
			logits[id] /= penalty
		} else {
			logits[id] *= penalty
		}
	}
	return logits
}

func argmax(x []float32) int {
	best := 0
	for i := 1; i < len(x); i++ {
		if x[i] > x[best] {
			best = i
		}
	}
	return best
}

// topK returns the indices and values of the k largest scaled logits,
// ordered descending. Insertion into a bounded shortlist is O(V*K),
// fine at toy vocabulary sizes.
func topK(logits []float32, k int, invTemp float32) ([]int, []float32) {
	idx := make([]int, 0, k+1)
	val := make([]float32, 0, k+1)
	for i, l := range logits {
		v := l * invTemp
		pos := len(val)
		for pos > 0 && val[pos-1] < v {
			pos--
		}
		if pos >= k {
			continue
		}
		idx = append(idx, 0)
		val = append(val, 0)
		copy(idx[pos+1:], idx[pos:])
		copy(val[pos+1:], val[pos:])
		idx[pos] = i
		val[pos] = v
		if len(val) > k {
			idx = idx[:k]
			val = val[:k]
		}
	}
	return idx, val
}
