// Package choice picks one item from a fixed candidate list by
// constrained generation. The model's reply is read token by token and
// matched as a growing prefix against the candidates; an attempt succeeds
// when exactly one candidate remains.
package choice

import (
	"errors"
	"math"
	"strings"

	"github.com/bardworks/bard/pkg/engine"
	"github.com/bardworks/bard/pkg/gen"
	"github.com/bardworks/bard/pkg/instruct"
	"github.com/bardworks/bard/pkg/token"
)

// ErrNoCandidate reports that no attempt isolated a single candidate.
// Callers decide whether to retry, rephrase or fall back.
var ErrNoCandidate = errors.New("no candidate isolable")

const chooseInstruction = "Choose the most appropriate item for the context and desired traits."

// Query describes one constrained choice.
type Query struct {
	// Context situates the decision.
	Context string
	// Traits describes what the chosen item should be like.
	Traits string
	// Candidates are matched trimmed and lowercased; empty entries are
	// dropped.
	Candidates []string
	// Seed is the base sampling seed; each attempt advances it by one.
	Seed uint64
}

// Choose runs up to attempts isolation attempts and returns the winning
// candidate in normalized form. Each attempt samples a little hotter than
// the last, starting at temperature 0.2. When every attempt fails it
// returns ErrNoCandidate; engine failures abort immediately.
func Choose(eng engine.Engine, q Query, attempts int) (string, error) {
	candidates := normalize(q.Candidates)
	if len(candidates) == 0 || attempts <= 0 {
		return "", ErrNoCandidate
	}
	if len(candidates) == 1 {
		return candidates[0], nil
	}

	prompt, err := buildPrompt(eng, q, candidates)
	if err != nil {
		return "", err
	}

	seed := guardSeed(q.Seed, uint64(attempts))
	temperature := 0.2
	for a := 0; a < attempts; a++ {
		got, ok, err := attempt(prompt, candidates, seed+uint64(a), temperature)
		if err != nil {
			return "", err
		}
		if ok {
			return got, nil
		}
		temperature += 0.2
	}
	return "", ErrNoCandidate
}

// attempt runs one isolation pass: generate, accumulate the decoded
// reply, prune candidates that no longer match it as a prefix. It reports
// a miss when the set empties or the model stops with several left.
func attempt(prompt *token.Buffer, candidates []string, seed uint64, temperature float64) (string, bool, error) {
	sess, err := gen.NewSession(prompt, gen.Config{Seed: seed, Temperature: temperature})
	if err != nil {
		return "", false, err
	}

	working := append([]string(nil), candidates...)
	var inferred strings.Builder
	for len(working) > 1 {
		if !sess.Scan() {
			if err := sess.Err(); err != nil {
				return "", false, err
			}
			return "", false, nil
		}
		piece, err := prompt.Engine().Decode([]uint32{sess.Token()})
		if err != nil {
			return "", false, err
		}
		inferred.WriteString(piece)
		prefix := strings.ToLower(strings.TrimSpace(inferred.String()))
		working = prune(working, prefix)
	}
	if len(working) == 1 {
		return working[0], true, nil
	}
	return "", false, nil
}

func buildPrompt(eng engine.Engine, q Query, candidates []string) (*token.Buffer, error) {
	sections := []instruct.Section{
		{Label: "Context", Value: q.Context},
		{Label: "Items", Value: "[" + strings.Join(candidates, "][") + "]"},
		{Label: "Desired Traits", Value: q.Traits},
		{Label: instruct.ResponseLabel, Value: "["},
	}
	return instruct.Build(eng, chooseInstruction, sections)
}

func normalize(candidates []string) []string {
	out := make([]string, 0, len(candidates))
	for _, c := range candidates {
		c = strings.ToLower(strings.TrimSpace(c))
		if c == "" {
			continue
		}
		out = append(out, c)
	}
	return out
}

func prune(items []string, prefix string) []string {
	kept := items[:0]
	for _, it := range items {
		if strings.HasPrefix(it, prefix) {
			kept = append(kept, it)
		}
	}
	return kept
}

// guardSeed keeps seed+attempts from wrapping past the top of the seed
// space by shifting oversized seeds down half the range.
func guardSeed(seed, attempts uint64) uint64 {
	if seed > math.MaxUint64-attempts {
		return seed - math.MaxUint64/2
	}
	return seed
}
