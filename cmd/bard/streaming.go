package main

import (
	"bufio"
	"io"
	"strings"
	"time"
)

type StreamMode string

const (
	StreamInstant    StreamMode = "instant"
	StreamTypewriter StreamMode = "typewriter"
	StreamQuiet      StreamMode = "quiet"
)

// ParseStreamMode maps a flag value to a mode; unknown values fall back
// to typewriter.
func ParseStreamMode(s string) StreamMode {
	switch StreamMode(s) {
	case StreamInstant, StreamTypewriter, StreamQuiet:
		return StreamMode(s)
	default:
		return StreamTypewriter
	}
}

// StreamWriter paces scene output. Typewriter reveals text a rune at a
// time, instant prints it whole, quiet holds everything until Flush.
type StreamWriter struct {
	mode  StreamMode
	out   *bufio.Writer
	delay time.Duration
	held  strings.Builder
}

func NewStreamWriter(mode StreamMode, w io.Writer) *StreamWriter {
	return &StreamWriter{
		mode:  mode,
		out:   bufio.NewWriterSize(w, 4096),
		delay: 12 * time.Millisecond,
	}
}

func (w *StreamWriter) Write(text string) {
	switch w.mode {
	case StreamTypewriter:
		for _, r := range text {
			_, _ = w.out.WriteRune(r)
			_ = w.out.Flush()
			time.Sleep(w.delay)
		}
	case StreamQuiet:
		w.held.WriteString(text)
	default:
		_, _ = w.out.WriteString(text)
		_ = w.out.Flush()
	}
}

// Flush writes anything held back and empties the buffer.
func (w *StreamWriter) Flush() {
	if w.mode == StreamQuiet && w.held.Len() > 0 {
		_, _ = w.out.WriteString(w.held.String())
		w.held.Reset()
	}
	_ = w.out.Flush()
}
