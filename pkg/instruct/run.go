package instruct

import (
	"fmt"

	"github.com/bardworks/bard/pkg/gen"
	"github.com/bardworks/bard/pkg/token"
)

// Options control one instruct run.
type Options struct {
	// Seed overrides the sampling seed. When nil the seed derives from
	// the prompt: the sum of its last four token ids, wrapping, zero for
	// an empty buffer.
	Seed *uint64

	// MaxTokens caps the response length. Zero or less fills whatever
	// context remains after the prompt.
	MaxTokens int

	Temperature float64
	TopP        float64

	// Stop markers truncate the decoded response; see gen.CompleteUntil.
	Stop []string
}

// Defaults returns the options used when the caller has no opinion.
func Defaults() Options {
	return Options{Temperature: 1}
}

// Run generates the response for a built prompt and returns it as text,
// truncated at the earliest stop marker.
func Run(prompt *token.Buffer, opts Options) (string, error) {
	sess, budget, err := start(prompt, opts)
	if err != nil {
		return "", err
	}
	return sess.CompleteUntil(budget, opts.Stop...)
}

// RunTokens generates the response for a built prompt and returns the raw
// response tokens. Stop markers do not apply; the budget and end-of-text
// bound the response.
func RunTokens(prompt *token.Buffer, opts Options) (*token.Buffer, error) {
	sess, budget, err := start(prompt, opts)
	if err != nil {
		return nil, err
	}
	out := token.New(prompt.Engine())
	for (budget <= 0 || out.Len() < budget) && sess.Scan() {
		out.Append(sess.Token())
	}
	if err := sess.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func start(prompt *token.Buffer, opts Options) (*gen.Session, int, error) {
	seed := prompt.TailSum(4)
	if opts.Seed != nil {
		seed = *opts.Seed
	}
	budget := opts.MaxTokens
	if budget <= 0 {
		budget = prompt.Engine().ContextSize() - prompt.Len()
		if budget <= 0 {
			return nil, 0, fmt.Errorf("prompt holds %d tokens, context window is %d", prompt.Len(), prompt.Engine().ContextSize())
		}
	}
	sess, err := gen.NewSession(prompt, gen.Config{
		Seed:        seed,
		Temperature: opts.Temperature,
		TopP:        opts.TopP,
	})
	if err != nil {
		return nil, 0, err
	}
	return sess, budget, nil
}
