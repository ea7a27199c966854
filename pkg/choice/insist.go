package choice

import (
	"context"

	"github.com/bardworks/bard/pkg/engine"
)

// Insist retries the isolation loop without an attempt cap until a
// candidate emerges or ctx is cancelled. The first attempt samples cool
// at temperature 0.2; once an attempt has failed every retry runs at 1.0
// to shake the model out of whatever it was repeating. The seed advances
// by one per attempt and wraps.
//
// An empty candidate list returns ErrNoCandidate immediately rather than
// spinning. Engine failures abort as in Choose.
func Insist(ctx context.Context, eng engine.Engine, q Query) (string, error) {
	candidates := normalize(q.Candidates)
	if len(candidates) == 0 {
		return "", ErrNoCandidate
	}
	if len(candidates) == 1 {
		return candidates[0], nil
	}

	prompt, err := buildPrompt(eng, q, candidates)
	if err != nil {
		return "", err
	}

	temperature := 0.2
	for a := uint64(0); ; a++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		got, ok, err := attempt(prompt, candidates, q.Seed+a, temperature)
		if err != nil {
			return "", err
		}
		if ok {
			return got, nil
		}
		temperature = 1.0
	}
}
