package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/bardworks/bard/pkg/scene"
)

const defaultSetting = "In a mysterious maze-like dungeon full of deadly traps and valuable treasure. A group of adventurers are exploring the dungeon."

// stdinIsTTY is a small seam for tests.
var stdinIsTTY = isTTY

func playCmd() *cli.Command {
	var (
		setting    string
		characters string
		maxTokens  int64
		seed       int64
		turns      int64
		streamMode string
	)

	return &cli.Command{
		Name:  "play",
		Usage: "Run an interactive narrative scene",
		Flags: append(append(commonEngineFlags(), loggingFlags()...),
			&cli.StringFlag{
				Name:        "setting",
				Aliases:     []string{"s"},
				Usage:       "scene setting line",
				Value:       defaultSetting,
				Destination: &setting,
			},
			&cli.StringFlag{
				Name:        "characters",
				Usage:       "comma-separated character roster",
				Value:       "James,Raven,Morgan",
				Destination: &characters,
			},
			&cli.Int64Flag{
				Name:        "max-tokens",
				Aliases:     []string{"n"},
				Usage:       "token budget per generated line",
				Value:       50,
				Destination: &maxTokens,
			},
			&cli.Int64Flag{
				Name:        "seed",
				Usage:       "scene base seed (default -1 = random)",
				Value:       -1,
				Destination: &seed,
			},
			&cli.Int64Flag{
				Name:        "turns",
				Usage:       "generate this many turns and exit (0 = interactive)",
				Destination: &turns,
			},
			&cli.StringFlag{
				Name:        "stream-mode",
				Usage:       "output mode (typewriter, instant, quiet)",
				Value:       "typewriter",
				Destination: &streamMode,
			},
		),
		Action: func(ctx context.Context, c *cli.Command) error {
			cfg := LoadConfig()
			applyEngineConfig(c, cfg)
			applyPlayConfig(c, cfg, &setting, &characters, &maxTokens, &seed, &streamMode)
			log := buildLogger()

			roster := parseCharacters(characters)
			if len(roster) == 0 {
				return cli.Exit("error: at least one character is required", 1)
			}
			if seed == -1 {
				seed = time.Now().UnixNano()
			}

			eng, err := buildEngine()
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: %v", err), 1)
			}
			sc, err := scene.New(eng, setting, roster, uint64(seed))
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: start scene: %v", err), 1)
			}
			log.Debug("scene ready",
				"characters", len(roster),
				"seed", uint64(seed),
				"context", eng.ContextSize(),
			)

			out := NewStreamWriter(ParseStreamMode(streamMode), os.Stdout)
			framing, err := sc.Transcript()
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: decode framing: %v", err), 1)
			}
			out.Write(framing)

			if turns > 0 {
				for i := int64(0); i < turns; i++ {
					if err := produceTurn(sc, int(maxTokens), out); err != nil {
						return cli.Exit(fmt.Sprintf("error: %v", err), 1)
					}
				}
				out.Flush()
				return nil
			}

			fmt.Fprintln(os.Stderr, "Interactive mode. Enter advances the scene; say/story add lines; /quit exits.")
			for {
				input, err := readInteractiveLine("> ")
				if err != nil {
					break
				}
				line := strings.TrimSpace(input)
				switch {
				case line == "":
					if err := produceTurn(sc, int(maxTokens), out); err != nil {
						return cli.Exit(fmt.Sprintf("error: %v", err), 1)
					}
				case line == "/quit", line == "/exit":
					out.Flush()
					return nil
				case line == "/compress":
					before := sc.MemoryLen()
					if err := sc.Compress(2); err != nil {
						fmt.Fprintf(os.Stderr, "compress: %v\n", err)
						continue
					}
					fmt.Fprintf(os.Stderr, "memory %d -> %d tokens\n", before, sc.MemoryLen())
				case line == "/transcript":
					text, err := sc.Transcript()
					if err != nil {
						fmt.Fprintf(os.Stderr, "transcript: %v\n", err)
						continue
					}
					fmt.Print(text)
				case strings.HasPrefix(line, "say "):
					character, text, ok := parseSay(strings.TrimPrefix(line, "say "))
					if !ok {
						fmt.Fprintln(os.Stderr, "usage: say <character>: <text>")
						continue
					}
					if _, err := sc.PushDialogue(character, text); err != nil {
						fmt.Fprintf(os.Stderr, "push dialogue: %v\n", err)
					}
				case strings.HasPrefix(line, "story "):
					if _, err := sc.PushStory(strings.TrimSpace(strings.TrimPrefix(line, "story "))); err != nil {
						fmt.Fprintf(os.Stderr, "push story: %v\n", err)
					}
				case strings.HasPrefix(line, "/"):
					fmt.Fprintf(os.Stderr, "unknown command %s\n", line)
				default:
					// Bare text reads as narration.
					if _, err := sc.PushStory(line); err != nil {
						fmt.Fprintf(os.Stderr, "push story: %v\n", err)
					}
				}
			}
			out.Flush()
			return nil
		},
	}
}

func produceTurn(sc *scene.Scene, maxTokens int, out *StreamWriter) error {
	turn, err := sc.InferAny(maxTokens)
	if errors.Is(err, scene.ErrNoEligibleSpeaker) {
		fmt.Fprintln(os.Stderr, "(nobody speaks)")
		return nil
	}
	if err != nil {
		return fmt.Errorf("infer turn: %w", err)
	}
	out.Write(turn.String() + "\n")
	return nil
}

// parseSay splits "Morgan: Hello there" into speaker and line.
func parseSay(s string) (character, text string, ok bool) {
	character, text, ok = strings.Cut(s, ":")
	character = strings.TrimSpace(character)
	text = strings.TrimSpace(text)
	if !ok || character == "" || text == "" {
		return "", "", false
	}
	return character, text, true
}

// parseCharacters splits a comma-separated roster, dropping empties.
func parseCharacters(s string) []string {
	parts := strings.Split(s, ",")
	roster := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			roster = append(roster, p)
		}
	}
	return roster
}

var stdinReader *bufio.Reader

// readPlainLine reads one newline-terminated line from stdin through a
// shared reader, so piped scripts keep their buffered lines between
// calls.
func readPlainLine() (string, error) {
	if stdinReader == nil {
		stdinReader = bufio.NewReader(os.Stdin)
	}
	s, err := stdinReader.ReadString('\n')
	if err != nil {
		if err == io.EOF && s != "" {
			return trimTrailingNewline(s), nil
		}
		return "", err
	}
	return trimTrailingNewline(s), nil
}

func trimTrailingNewline(s string) string {
	s = strings.TrimSuffix(s, "\n")
	return strings.TrimSuffix(s, "\r")
}

func isTTY() bool {
	st, err := os.Stdin.Stat()
	if err != nil {
		return false
	}
	return (st.Mode() & os.ModeCharDevice) != 0
}
