package instruct

import (
	"strconv"
	"strings"
)

// Kind classifies a parsed reply.
type Kind int

const (
	KindString Kind = iota
	KindInt
	KindFloat
)

// Value is a model reply read into its apparent type. Replies that parse
// as integers or floats carry the numeric value; everything else is text
// with wrapping quotes removed.
type Value struct {
	Kind  Kind
	Text  string
	Int   int64
	Float float64
}

// ParseValue classifies a reply. Surrounding whitespace is ignored;
// integer parses win over float parses so "42" is an int and "42.0" a
// float.
func ParseValue(s string) Value {
	trimmed := strings.TrimSpace(s)
	if i, err := strconv.ParseInt(trimmed, 10, 64); err == nil {
		return Value{Kind: KindInt, Text: trimmed, Int: i, Float: float64(i)}
	}
	if f, err := strconv.ParseFloat(trimmed, 64); err == nil {
		return Value{Kind: KindFloat, Text: trimmed, Float: f}
	}
	return Value{Kind: KindString, Text: strings.Trim(trimmed, `"`)}
}

func (v Value) String() string {
	switch v.Kind {
	case KindInt:
		return strconv.FormatInt(v.Int, 10)
	case KindFloat:
		return strconv.FormatFloat(v.Float, 'g', -1, 64)
	default:
		return v.Text
	}
}
