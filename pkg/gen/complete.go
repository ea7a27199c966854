package gen

import (
	"fmt"
	"strings"

	"github.com/bardworks/bard/pkg/token"
)

// Complete drains the session and returns only the tokens produced after
// the prompt.
func (s *Session) Complete() (*token.Buffer, error) {
	for s.Scan() {
	}
	if s.err != nil {
		return nil, s.err
	}
	ids, err := s.buf.Slice(s.promptLen, s.buf.Len())
	if err != nil {
		return nil, err
	}
	out := token.New(s.eng)
	out.AppendTokens(ids...)
	return out, nil
}

// CompleteUntil drains the session until one of the stop markers appears
// in the decoded output, the token budget is spent, or generation ends on
// its own. The text before the earliest marker occurrence is returned;
// the marker and anything after it in the same fragment is discarded. The
// token carrying the marker stays in the session buffer, so buffer and
// returned text can diverge. A budget of zero or less means no budget.
//
// Markers are matched within each token's decoded fragment, not across
// fragment boundaries. Ties at the same position go to the marker listed
// first.
func (s *Session) CompleteUntil(maxTokens int, stop ...string) (string, error) {
	var sb strings.Builder
	produced := 0
	for s.Scan() {
		produced++
		piece, err := s.eng.Decode([]uint32{s.tok})
		if err != nil {
			return "", fmt.Errorf("decode token %d: %w", s.tok, err)
		}
		if cut, ok := earliestMarker(piece, stop); ok {
			sb.WriteString(piece[:cut])
			return sb.String(), nil
		}
		sb.WriteString(piece)
		if maxTokens > 0 && produced >= maxTokens {
			break
		}
	}
	if s.err != nil {
		return "", s.err
	}
	return sb.String(), nil
}

// earliestMarker locates the first stop marker occurrence in piece.
func earliestMarker(piece string, stop []string) (int, bool) {
	best := -1
	for _, m := range stop {
		if m == "" {
			continue
		}
		if i := strings.Index(piece, m); i >= 0 && (best < 0 || i < best) {
			best = i
		}
	}
	return best, best >= 0
}
