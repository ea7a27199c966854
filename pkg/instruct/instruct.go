// Package instruct assembles prompts in the "### Label:" instruction
// format and runs them to a response. The format is fixed: labelled
// context sections, an instruction block, a response header, and an
// optional primer that forces the first characters of the reply.
package instruct

import (
	"fmt"
	"strings"

	"github.com/bardworks/bard/pkg/engine"
	"github.com/bardworks/bard/pkg/token"
)

// ResponseLabel names the section that is not rendered as a block.
// Its value is appended after the response header instead, steering the
// first tokens of the reply.
const ResponseLabel = "Response"

// Section is one labelled block of an assembled prompt. Sections render
// in slice order; order is part of the protocol.
type Section struct {
	Label string
	Value string
}

// Build assembles an instruction prompt and encodes it. Every section
// except Response renders as "### {label}:\n{value}\n", followed by the
// instruction block and the response header; the first Response section's
// value, if any, is appended verbatim to prime the reply.
func Build(eng engine.Engine, instruction string, sections []Section) (*token.Buffer, error) {
	var sb strings.Builder
	for _, sec := range sections {
		if sec.Label == ResponseLabel {
			continue
		}
		fmt.Fprintf(&sb, "### %s:\n%s\n", sec.Label, sec.Value)
	}
	fmt.Fprintf(&sb, "### Instruction:\n%s\n### Response:\n", instruction)
	if primer, ok := responseValue(sections); ok {
		sb.WriteString(primer)
	}
	return token.FromText(eng, sb.String())
}

// BuildTokens is Build with a token-level instruction body. The body is
// spliced between header and footer without a decode/encode round trip,
// so its ids survive exactly; memory compression depends on that.
func BuildTokens(eng engine.Engine, instruction *token.Buffer, sections []Section) (*token.Buffer, error) {
	var head strings.Builder
	for _, sec := range sections {
		if sec.Label == ResponseLabel {
			continue
		}
		fmt.Fprintf(&head, "### %s:\n%s\n", sec.Label, sec.Value)
	}
	head.WriteString("### Instruction:\n")

	buf := token.New(eng)
	if err := buf.AppendText(head.String()); err != nil {
		return nil, err
	}
	buf.AppendBuffer(instruction)

	foot := "\n### Response:\n"
	if primer, ok := responseValue(sections); ok {
		foot += primer
	}
	if err := buf.AppendText(foot); err != nil {
		return nil, err
	}
	return buf, nil
}

func responseValue(sections []Section) (string, bool) {
	for _, sec := range sections {
		if sec.Label == ResponseLabel {
			return sec.Value, true
		}
	}
	return "", false
}
