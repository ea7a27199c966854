package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/bardworks/bard/pkg/instruct"
)

func askCmd() *cli.Command {
	var (
		contextText string
		primer      string
		stop        string
		temp        float64
		topP        float64
		maxTokens   int64
		seed        int64
		typed       bool
	)

	return &cli.Command{
		Name:      "ask",
		Usage:     "Run a one-shot instruction prompt",
		ArgsUsage: "<instruction>",
		Flags: append(append(commonEngineFlags(), loggingFlags()...),
			&cli.StringFlag{
				Name:        "context",
				Usage:       "context section text",
				Destination: &contextText,
			},
			&cli.StringFlag{
				Name:        "primer",
				Usage:       "force the first characters of the reply",
				Destination: &primer,
			},
			&cli.StringFlag{
				Name:        "stop",
				Usage:       "comma-separated stop markers",
				Destination: &stop,
			},
			&cli.Float64Flag{
				Name:        "temp",
				Aliases:     []string{"temperature", "t"},
				Usage:       "sampling temperature",
				Value:       1,
				Destination: &temp,
			},
			&cli.Float64Flag{
				Name:        "top-p",
				Aliases:     []string{"top_p", "topp"},
				Usage:       "nucleus cutoff in (0,1]; anything else disables",
				Destination: &topP,
			},
			&cli.Int64Flag{
				Name:        "max-tokens",
				Aliases:     []string{"n"},
				Usage:       "response token budget (0 = fill the context)",
				Destination: &maxTokens,
			},
			&cli.Int64Flag{
				Name:        "seed",
				Usage:       "sampling seed (default -1 = derive from prompt)",
				Value:       -1,
				Destination: &seed,
			},
			&cli.BoolFlag{
				Name:        "typed",
				Usage:       "parse the reply as int, float or string",
				Destination: &typed,
			},
		),
		Action: func(ctx context.Context, c *cli.Command) error {
			cfg := LoadConfig()
			applyEngineConfig(c, cfg)

			instruction := strings.TrimSpace(strings.Join(c.Args().Slice(), " "))
			if instruction == "" {
				return cli.Exit("error: an instruction is required", 1)
			}

			eng, err := buildEngine()
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: %v", err), 1)
			}

			var sections []instruct.Section
			if contextText != "" {
				sections = append(sections, instruct.Section{Label: "Context", Value: contextText})
			}
			if primer != "" {
				sections = append(sections, instruct.Section{Label: instruct.ResponseLabel, Value: primer})
			}
			prompt, err := instruct.Build(eng, instruction, sections)
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: build prompt: %v", err), 1)
			}

			opts := instruct.Defaults()
			opts.Temperature = temp
			opts.TopP = topP
			opts.MaxTokens = int(maxTokens)
			if stop != "" {
				opts.Stop = splitStops(stop)
			}
			if seed >= 0 {
				s := uint64(seed)
				opts.Seed = &s
			}

			out, err := instruct.Run(prompt, opts)
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: run: %v", err), 1)
			}
			if typed {
				fmt.Println(instruct.ParseValue(out).String())
				return nil
			}
			fmt.Println(out)
			return nil
		},
	}
}

// splitStops splits a comma-separated stop list. Markers keep their
// spacing; only empty entries are dropped.
func splitStops(s string) []string {
	parts := strings.Split(s, ",")
	stops := make([]string, 0, len(parts))
	for _, p := range parts {
		if p != "" {
			stops = append(stops, p)
		}
	}
	return stops
}
