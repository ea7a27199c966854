// Package craft infers crafting results from a few-shot recipe prompt.
package craft

import (
	"errors"
	"fmt"
	"strings"

	"github.com/bardworks/bard/pkg/engine"
	"github.com/bardworks/bard/pkg/instruct"
)

// ErrNoItems reports a craft request with nothing to combine.
var ErrNoItems = errors.New("no items to combine")

// Example is one known recipe shown to the engine before asking for a
// new one.
type Example struct {
	Items  []string
	Result string
}

// String renders the example as a prompt line.
func (e Example) String() string {
	return fmt.Sprintf("When you combine %s you get %s.", joinItems(e.Items), e.Result)
}

// Crafter asks the engine what combining a set of items produces, guided
// by a fixed pack of example recipes.
type Crafter struct {
	eng      engine.Engine
	seed     uint64
	examples string
}

// New builds a crafter over an example pack. The seed fixes the sampling
// stream, so the same items always craft the same result.
func New(eng engine.Engine, seed uint64, examples []Example) *Crafter {
	lines := make([]string, len(examples))
	for i, e := range examples {
		lines[i] = e.String()
	}
	return &Crafter{eng: eng, seed: seed, examples: strings.Join(lines, "\n")}
}

// Craft infers the crafting result for the given items. The answer is
// trimmed of wrapping quotes and trailing periods.
func (c *Crafter) Craft(items ...string) (string, error) {
	if len(items) == 0 {
		return "", ErrNoItems
	}
	instruction := fmt.Sprintf(
		"%s\nWhat item do you get when you combine %s? Use only one or two words, keep it short but creative.",
		c.examples, joinItems(items),
	)
	prompt, err := instruct.Build(c.eng, instruction, nil)
	if err != nil {
		return "", err
	}
	out, err := instruct.Run(prompt, instruct.Options{
		Seed:        &c.seed,
		MaxTokens:   64,
		Temperature: 0.5,
		Stop:        []string{".", ".\""},
	})
	if err != nil {
		return "", err
	}
	out = strings.Trim(out, `"`)
	out = strings.TrimRight(out, ".")
	return strings.Trim(out, `"`), nil
}

func joinItems(items []string) string {
	return strings.Join(items, " and ")
}
