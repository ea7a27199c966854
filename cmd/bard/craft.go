package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/bardworks/bard/pkg/craft"
)

func craftCmd() *cli.Command {
	var seed int64

	return &cli.Command{
		Name:      "craft",
		Usage:     "Combine items into a new one",
		ArgsUsage: "<item> [item...]",
		Flags: append(append(commonEngineFlags(), loggingFlags()...),
			&cli.Int64Flag{
				Name:        "seed",
				Usage:       "crafting seed",
				Value:       6532,
				Destination: &seed,
			},
		),
		Action: func(ctx context.Context, c *cli.Command) error {
			cfg := LoadConfig()
			applyEngineConfig(c, cfg)
			if cfg.CraftSeed != nil && !c.IsSet("seed") {
				seed = *cfg.CraftSeed
			}

			items := c.Args().Slice()
			if len(items) == 0 {
				return cli.Exit("error: nothing to combine; pass at least one item", 1)
			}

			eng, err := buildEngine()
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: %v", err), 1)
			}
			crafter := craft.New(eng, uint64(seed), craftPack(cfg))
			result, err := crafter.Craft(items...)
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: craft: %v", err), 1)
			}
			fmt.Printf("%s = %s\n", strings.Join(items, " + "), result)
			return nil
		},
	}
}

// defaultCraftExamples is the built-in recipe sheet shown to the model.
func defaultCraftExamples() []craft.Example {
	return []craft.Example{
		{Items: []string{"water", "fire"}, Result: "steam"},
		{Items: []string{"sugar", "water", "bee"}, Result: "honey"},
		{Items: []string{"weapon", "life"}, Result: "death"},
		{Items: []string{"light", "electricity"}, Result: "lightbulb"},
		{Items: []string{"bird", "stick", "stick"}, Result: "nest"},
		{Items: []string{"human", "hammer"}, Result: "construction worker"},
		{Items: []string{"staff", "book"}, Result: "grimoire"},
	}
}
