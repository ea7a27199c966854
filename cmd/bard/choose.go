package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/bardworks/bard/pkg/choice"
)

func chooseCmd() *cli.Command {
	var (
		contextText string
		traits      string
		seed        int64
		attempts    int64
	)

	return &cli.Command{
		Name:      "choose",
		Usage:     "Pick one candidate by constrained generation",
		ArgsUsage: "<candidate> [candidate...]",
		Flags: append(append(commonEngineFlags(), loggingFlags()...),
			&cli.StringFlag{
				Name:        "context",
				Usage:       "decision context",
				Destination: &contextText,
			},
			&cli.StringFlag{
				Name:        "traits",
				Usage:       "desired traits of the chosen item",
				Destination: &traits,
			},
			&cli.Int64Flag{
				Name:        "seed",
				Usage:       "base seed (default -1 = random)",
				Value:       -1,
				Destination: &seed,
			},
			&cli.Int64Flag{
				Name:        "attempts",
				Usage:       "isolation attempts",
				Value:       5,
				Destination: &attempts,
			},
		),
		Action: func(ctx context.Context, c *cli.Command) error {
			cfg := LoadConfig()
			applyEngineConfig(c, cfg)
			if cfg.ChooseAttempts != nil && !c.IsSet("attempts") {
				attempts = *cfg.ChooseAttempts
			}

			candidates := c.Args().Slice()
			if len(candidates) == 0 {
				return cli.Exit("error: pass at least one candidate", 1)
			}
			if seed == -1 {
				seed = time.Now().UnixNano()
			}

			eng, err := buildEngine()
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: %v", err), 1)
			}
			got, err := choice.Choose(eng, choice.Query{
				Context:    contextText,
				Traits:     traits,
				Candidates: candidates,
				Seed:       uint64(seed),
			}, int(attempts))
			if errors.Is(err, choice.ErrNoCandidate) {
				fmt.Println("no answer")
				return nil
			}
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: choose: %v", err), 1)
			}
			fmt.Println(got)
			return nil
		},
	}
}
