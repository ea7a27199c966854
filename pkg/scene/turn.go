package scene

import "fmt"

// TurnKind distinguishes narration from speech.
type TurnKind int

const (
	TurnStory TurnKind = iota
	TurnDialogue
)

func (k TurnKind) String() string {
	if k == TurnDialogue {
		return "dialogue"
	}
	return "story"
}

// Turn is one line of a scene: either narration or a character speaking.
type Turn struct {
	Kind      TurnKind
	Character string // the speaker, for dialogue turns
	Text      string
}

// String renders the turn as it appears in memory, without the trailing
// newline.
func (t Turn) String() string {
	if t.Kind == TurnDialogue {
		return fmt.Sprintf("%s: \"%s\"", t.Character, t.Text)
	}
	return t.Text
}
