//go:build linux

package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/sys/unix"
)

var interactiveHistory []string

// readInteractiveLine reads one line from stdin. On a terminal it takes
// the tty raw for editing (cursor movement, word ops, history); piped
// input falls back to plain buffered reads.
func readInteractiveLine(prompt string) (string, error) {
	if !stdinIsTTY() {
		return readPlainLine()
	}

	fd := int(os.Stdin.Fd())
	oldState, err := unix.IoctlGetTermios(fd, unix.TCGETS)
	if err != nil {
		return "", err
	}
	raw := *oldState
	raw.Lflag &^= unix.ICANON | unix.ECHO
	raw.Cc[unix.VMIN] = 1
	raw.Cc[unix.VTIME] = 0
	if err := unix.IoctlSetTermios(fd, unix.TCSETS, &raw); err != nil {
		return "", err
	}
	defer func() {
		_ = unix.IoctlSetTermios(fd, unix.TCSETS, oldState)
	}()

	ed := &lineEditor{prompt: prompt, histPos: len(interactiveHistory)}
	fmt.Print(prompt)
	return ed.run()
}

type lineEditor struct {
	prompt   string
	line     []byte
	cursor   int
	histPos  int
	browsing bool
	draft    string
}

func (ed *lineEditor) run() (string, error) {
	var buf [16]byte
	esc := 0
	var seq strings.Builder
	for {
		n, err := os.Stdin.Read(buf[:])
		if err != nil {
			return "", err
		}
		for _, b := range buf[:n] {
			if esc != 0 {
				switch esc {
				case 1:
					switch {
					case b == '[':
						esc = 2
						seq.Reset()
					case b == 'b', b == 'B': // Alt+b
						ed.wordLeft()
						esc = 0
					case b == 'f', b == 'F': // Alt+f
						ed.wordRight()
						esc = 0
					case b == 127: // Alt+Backspace
						ed.deleteWordBack()
						esc = 0
					default:
						esc = 0
					}
				case 2:
					seq.WriteByte(b)
					if (b >= 'A' && b <= 'Z') || (b >= 'a' && b <= 'z') || b == '~' {
						ed.handleCSI(seq.String())
						esc = 0
					}
				}
				continue
			}

			switch b {
			case 27: // ESC
				esc = 1
			case '\r', '\n':
				fmt.Print("\r\n")
				out := string(ed.line)
				if strings.TrimSpace(out) != "" {
					interactiveHistory = append(interactiveHistory, out)
				}
				return out, nil
			case 3: // Ctrl+C
				fmt.Print("^C\r\n")
				return "", io.EOF
			case 4: // Ctrl+D
				if len(ed.line) == 0 {
					fmt.Print("\r\n")
					return "", io.EOF
				}
			case 127, 8: // backspace
				ed.backspace()
			case 1: // Ctrl+A
				ed.cursor = 0
				ed.redraw()
			case 5: // Ctrl+E
				ed.cursor = len(ed.line)
				ed.redraw()
			case 23: // Ctrl+W
				ed.deleteWordBack()
			default:
				if b >= 32 {
					ed.insert(b)
				}
			}
		}
	}
}

func (ed *lineEditor) handleCSI(seq string) {
	switch seq {
	case "A": // up
		ed.histPrev()
	case "B": // down
		ed.histNext()
	case "D":
		if ed.cursor > 0 {
			ed.cursor--
			ed.redraw()
		}
	case "C":
		if ed.cursor < len(ed.line) {
			ed.cursor++
			ed.redraw()
		}
	case "H":
		ed.cursor = 0
		ed.redraw()
	case "F":
		ed.cursor = len(ed.line)
		ed.redraw()
	case "3~": // delete
		if ed.cursor < len(ed.line) {
			ed.line = append(ed.line[:ed.cursor], ed.line[ed.cursor+1:]...)
			ed.redraw()
		}
	case "1;5D", "5D": // Ctrl+Left
		ed.wordLeft()
	case "1;5C", "5C": // Ctrl+Right
		ed.wordRight()
	case "3;5~": // Ctrl+Delete
		ed.deleteWordForward()
	}
}

func (ed *lineEditor) redraw() {
	fmt.Printf("\r%s%s\x1b[K", ed.prompt, string(ed.line))
	if ed.cursor < len(ed.line) {
		fmt.Printf("\r%s%s", ed.prompt, string(ed.line[:ed.cursor]))
	}
}

func (ed *lineEditor) insert(b byte) {
	ed.line = append(ed.line, 0)
	copy(ed.line[ed.cursor+1:], ed.line[ed.cursor:])
	ed.line[ed.cursor] = b
	ed.cursor++
	ed.redraw()
}

func (ed *lineEditor) backspace() {
	if ed.cursor == 0 {
		return
	}
	ed.line = append(ed.line[:ed.cursor-1], ed.line[ed.cursor:]...)
	ed.cursor--
	ed.redraw()
}

func (ed *lineEditor) wordLeft() {
	if ed.cursor == 0 {
		return
	}
	for ed.cursor > 0 && isWordSpace(ed.line[ed.cursor-1]) {
		ed.cursor--
	}
	for ed.cursor > 0 && !isWordSpace(ed.line[ed.cursor-1]) {
		ed.cursor--
	}
	ed.redraw()
}

func (ed *lineEditor) wordRight() {
	if ed.cursor >= len(ed.line) {
		return
	}
	for ed.cursor < len(ed.line) && isWordSpace(ed.line[ed.cursor]) {
		ed.cursor++
	}
	for ed.cursor < len(ed.line) && !isWordSpace(ed.line[ed.cursor]) {
		ed.cursor++
	}
	ed.redraw()
}

func (ed *lineEditor) deleteWordBack() {
	start := ed.cursor
	for start > 0 && isWordSpace(ed.line[start-1]) {
		start--
	}
	for start > 0 && !isWordSpace(ed.line[start-1]) {
		start--
	}
	if start == ed.cursor {
		return
	}
	ed.line = append(ed.line[:start], ed.line[ed.cursor:]...)
	ed.cursor = start
	ed.redraw()
}

func (ed *lineEditor) deleteWordForward() {
	end := ed.cursor
	for end < len(ed.line) && isWordSpace(ed.line[end]) {
		end++
	}
	for end < len(ed.line) && !isWordSpace(ed.line[end]) {
		end++
	}
	if end == ed.cursor {
		return
	}
	ed.line = append(ed.line[:ed.cursor], ed.line[end:]...)
	ed.redraw()
}

func (ed *lineEditor) histPrev() {
	if len(interactiveHistory) == 0 {
		return
	}
	if !ed.browsing {
		ed.draft = string(ed.line)
		ed.browsing = true
		ed.histPos = len(interactiveHistory)
	}
	if ed.histPos > 0 {
		ed.histPos--
		ed.setLine(interactiveHistory[ed.histPos])
	}
}

func (ed *lineEditor) histNext() {
	if !ed.browsing {
		return
	}
	if ed.histPos < len(interactiveHistory)-1 {
		ed.histPos++
		ed.setLine(interactiveHistory[ed.histPos])
	} else {
		ed.histPos = len(interactiveHistory)
		ed.setLine(ed.draft)
		ed.browsing = false
	}
}

func (ed *lineEditor) setLine(s string) {
	ed.line = append(ed.line[:0], s...)
	ed.cursor = len(ed.line)
	ed.redraw()
}

func isWordSpace(b byte) bool {
	return b == ' ' || b == '\t'
}
