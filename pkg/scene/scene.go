// Package scene maintains the memory of a narrative scene. Long-term
// memory pins the framing and absorbs compressed history; short-term
// memory accumulates recent turns verbatim. Turns are either pushed by
// the caller or inferred from the combined memory, and the combined
// memory is paraphrased down once it grows past a threshold.
package scene

import (
	"errors"
	"fmt"
	"strings"

	"github.com/bardworks/bard/pkg/engine"
	"github.com/bardworks/bard/pkg/gen"
	"github.com/bardworks/bard/pkg/instruct"
	"github.com/bardworks/bard/pkg/token"
)

var (
	// ErrNoCharacters reports a scene configured with an empty roster.
	ErrNoCharacters = errors.New("scene has no characters")

	// ErrNoEligibleSpeaker reports that turn selection found no character
	// allowed to speak next.
	ErrNoEligibleSpeaker = errors.New("no eligible speaker")
)

// storyStops end a narration line.
var storyStops = []string{"]", ".]", "?]", "']", ":]", "!]", "\"]", "]\"", "]]", "][", ".\"", "?\"", "!\"", ".", "?", "!"}

// dialogueStops end a spoken line at its closing quote.
var dialogueStops = []string{"\"", ".\"", "?\"", "!\""}

// Scene is the memory and roster of one narrative scene. It is not safe
// for concurrent use.
type Scene struct {
	eng         engine.Engine
	longTerm    *token.Buffer
	shortTerm   *token.Buffer
	characters  []string
	lastSpeaker string
	baseSeed    uint64
}

// New starts a scene. The setting line and the character roster become
// the scene's framing in long-term memory. At least one character is
// required; turn selection cannot work on an empty roster.
func New(eng engine.Engine, setting string, characters []string, baseSeed uint64) (*Scene, error) {
	if len(characters) == 0 {
		return nil, ErrNoCharacters
	}
	header := fmt.Sprintf("[%s]\n[There are %d characters: %s]\n", setting, len(characters), joinNames(characters))
	longTerm, err := token.FromText(eng, header)
	if err != nil {
		return nil, err
	}
	return &Scene{
		eng:        eng,
		longTerm:   longTerm,
		shortTerm:  token.New(eng),
		characters: append([]string(nil), characters...),
		baseSeed:   baseSeed,
	}, nil
}

// joinNames renders a roster as "A", "A and B" or "A, B and C".
func joinNames(names []string) string {
	if len(names) == 1 {
		return names[0]
	}
	return strings.Join(names[:len(names)-1], ", ") + " and " + names[len(names)-1]
}

// PushStory appends a narration line to short-term memory.
func (s *Scene) PushStory(text string) (Turn, error) {
	if err := s.shortTerm.AppendText(text + "\n"); err != nil {
		return Turn{}, err
	}
	return Turn{Kind: TurnStory, Text: text}, nil
}

// PushDialogue appends a spoken line to short-term memory and records the
// speaker.
func (s *Scene) PushDialogue(character, text string) (Turn, error) {
	line := fmt.Sprintf("%s: \"%s\"\n", character, text)
	if err := s.shortTerm.AppendText(line); err != nil {
		return Turn{}, err
	}
	s.lastSpeaker = character
	return Turn{Kind: TurnDialogue, Character: character, Text: text}, nil
}

// InferStory generates the next narration line and pushes it. maxTokens
// caps the generated line; zero or less leaves it to the engine's
// end-of-text.
func (s *Scene) InferStory(maxTokens int) (Turn, error) {
	if err := s.Compress(s.eng.ContextSize() / 2); err != nil {
		return Turn{}, err
	}
	prompt := s.fullMemory()
	if err := prompt.AppendText("["); err != nil {
		return Turn{}, err
	}
	line, err := s.inferLine(prompt, maxTokens, storyStops)
	if err != nil {
		return Turn{}, err
	}
	text := strings.TrimSpace(strings.NewReplacer("[", "", "]", "").Replace(line))
	return s.PushStory(text)
}

// InferDialogue generates the next spoken line for character and pushes
// it.
func (s *Scene) InferDialogue(character string, maxTokens int) (Turn, error) {
	if err := s.Compress(s.eng.ContextSize() / 2); err != nil {
		return Turn{}, err
	}
	prompt := s.fullMemory()
	if err := prompt.AppendText(character + ": \""); err != nil {
		return Turn{}, err
	}
	line, err := s.inferLine(prompt, maxTokens, dialogueStops)
	if err != nil {
		return Turn{}, err
	}
	text := strings.TrimSpace(strings.ReplaceAll(line, "\"", ""))
	return s.PushDialogue(character, text)
}

// InferAny decides what comes next: roughly three turns in five are
// dialogue, the rest narration. The decision seed mixes the scene's base
// seed with the tail of short-term memory, so the same state always makes
// the same decision. Dialogue goes to the first character, counting from
// a seed-picked start, who did not speak last.
func (s *Scene) InferAny(maxTokens int) (Turn, error) {
	seed := s.shortTerm.TailSum(4) + s.baseSeed
	if seed%5 < 3 {
		n := uint64(len(s.characters))
		for attempt := uint64(0); attempt < n; attempt++ {
			character := s.characters[(^seed+attempt)%n]
			if character != s.lastSpeaker {
				return s.InferDialogue(character, maxTokens)
			}
		}
		return Turn{}, ErrNoEligibleSpeaker
	}
	return s.InferStory(maxTokens)
}

// Compress paraphrases the combined memory into a fresh long-term buffer
// once it has grown to threshold tokens or beyond. The paraphrase budget
// is half the threshold, so a compression that succeeds always shrinks
// memory. Short-term memory starts over empty. The swap happens only
// after the engine delivers the paraphrase; on failure the memory is
// untouched.
func (s *Scene) Compress(threshold int) error {
	if threshold < 2 {
		return fmt.Errorf("compression threshold %d: need at least 2", threshold)
	}
	if s.MemoryLen() < threshold {
		return nil
	}

	full := s.fullMemory()
	body, err := token.FromText(s.eng, "Paraphrase the following text:\n")
	if err != nil {
		return err
	}
	body.AppendBuffer(full)
	prompt, err := instruct.BuildTokens(s.eng, body, nil)
	if err != nil {
		return err
	}

	seed := full.HeadSum(4) + s.baseSeed
	shortened, err := instruct.RunTokens(prompt, instruct.Options{
		Seed:        &seed,
		MaxTokens:   threshold / 2,
		Temperature: 0.5,
	})
	if err != nil {
		return fmt.Errorf("compress memory: %w", err)
	}

	s.longTerm = shortened
	s.shortTerm = token.New(s.eng)
	return nil
}

// MemoryLen reports the combined token count of both memories.
func (s *Scene) MemoryLen() int { return s.longTerm.Len() + s.shortTerm.Len() }

// LongTermLen reports the long-term memory token count.
func (s *Scene) LongTermLen() int { return s.longTerm.Len() }

// ShortTermLen reports the short-term memory token count.
func (s *Scene) ShortTermLen() int { return s.shortTerm.Len() }

// Characters returns the roster in introduction order.
func (s *Scene) Characters() []string {
	return append([]string(nil), s.characters...)
}

// LastSpeaker returns the character who spoke last, or "" when nobody
// has.
func (s *Scene) LastSpeaker() string { return s.lastSpeaker }

// Transcript decodes the combined memory.
func (s *Scene) Transcript() (string, error) {
	return s.fullMemory().Text()
}

func (s *Scene) fullMemory() *token.Buffer {
	full := s.longTerm.Clone()
	full.AppendBuffer(s.shortTerm)
	return full
}

func (s *Scene) inferLine(prompt *token.Buffer, maxTokens int, stops []string) (string, error) {
	sess, err := gen.NewSession(prompt, gen.Config{
		Seed:        prompt.TailSum(4) + s.baseSeed,
		Temperature: 0.5,
	})
	if err != nil {
		return "", err
	}
	return sess.CompleteUntil(maxTokens, stops...)
}
