// Package gen drives autoregressive decoding over an engine. A Session
// owns a forward pass and a transcript buffer, produces one token per
// Scan, and stops on the engine's end-of-text token. Draining helpers
// collect the produced tokens or text with optional stop markers.
package gen

import (
	"fmt"

	"github.com/bardworks/bard/pkg/engine"
	"github.com/bardworks/bard/pkg/token"
)

// EndOfText is the vocabulary piece whose token terminates generation.
const EndOfText = "<|endoftext|>"

// Config carries the sampling parameters for a session. Zero values switch
// the corresponding behaviour off: temperature 0 samples greedily, top-p 0
// skips nucleus truncation, and a repeat penalty at or below 1 or a zero
// window leaves logits untouched.
type Config struct {
	Seed          uint64
	Temperature   float64
	TopP          float64
	RepeatPenalty float32
	RepeatWindow  int
}

// Session produces tokens one at a time in the manner of bufio.Scanner:
// Scan advances one step, Token returns the id just produced, and Err
// reports the first failure once scanning stops. A session is single-use
// and not safe for concurrent use.
type Session struct {
	eng       engine.Engine
	pass      engine.ForwardPass
	buf       *token.Buffer
	cfg       Config
	eos       uint32
	promptLen int
	step      int
	tok       uint32
	done      bool
	err       error
}

// NewSession starts a decoding session over a clone of prompt. It fails
// with ErrEmptyPrompt, before touching the engine, when the prompt holds
// no tokens, and with a wrapped engine.ErrTokenNotFound when the engine's
// vocabulary has no end-of-text piece.
func NewSession(prompt *token.Buffer, cfg Config) (*Session, error) {
	if prompt.Len() == 0 {
		return nil, ErrEmptyPrompt
	}
	eng := prompt.Engine()
	eos, err := eng.TokenID(EndOfText)
	if err != nil {
		return nil, fmt.Errorf("end-of-text lookup: %w", err)
	}
	pass, err := eng.NewPass()
	if err != nil {
		return nil, fmt.Errorf("new forward pass: %w", err)
	}
	return &Session{
		eng:       eng,
		pass:      pass,
		buf:       prompt.Clone(),
		cfg:       cfg,
		eos:       eos,
		promptLen: prompt.Len(),
	}, nil
}

// Scan advances the session by one token. It returns false once the
// engine emits end-of-text or on the first engine failure; Err
// distinguishes the two.
func (s *Session) Scan() bool {
	if s.done || s.err != nil {
		return false
	}

	// The first step feeds the whole prompt; later steps extend the
	// pass's cached context by the newest token only.
	var ctx []uint32
	if s.step == 0 {
		ctx = s.buf.Tokens()
	} else {
		ctx = s.buf.Tail(1)
	}

	logits, err := s.pass.Forward(ctx)
	if err != nil {
		s.err = fmt.Errorf("forward: %w", err)
		return false
	}

	if s.cfg.RepeatPenalty > 1 && s.cfg.RepeatWindow > 0 {
		logits = s.eng.ApplyRepeatPenalty(logits, s.cfg.RepeatPenalty, s.buf.Tail(s.cfg.RepeatWindow))
	}

	id, err := s.eng.Sample(logits, s.cfg.Seed+uint64(s.step), s.cfg.Temperature, s.cfg.TopP)
	if err != nil {
		s.err = fmt.Errorf("sample: %w", err)
		return false
	}

	if id == s.eos {
		s.done = true
		return false
	}

	s.buf.Append(id)
	s.tok = id
	s.step++
	return true
}

// Token returns the id produced by the last successful Scan.
func (s *Session) Token() uint32 { return s.tok }

// Err returns the first engine failure, or nil when the session ended
// cleanly.
func (s *Session) Err() error { return s.err }

// Done reports whether the engine emitted end-of-text. That token itself
// is never appended to the buffer.
func (s *Session) Done() bool { return s.done }

// Steps reports how many tokens the session has produced.
func (s *Session) Steps() int { return s.step }

// Buffer returns the session's transcript: the prompt plus every produced
// token. It is the live buffer, not a copy.
func (s *Session) Buffer() *token.Buffer { return s.buf }
