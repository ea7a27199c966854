package main

import (
	"fmt"

	"github.com/bardworks/bard/internal/toylm"
	"github.com/bardworks/bard/pkg/engine"
)

// buildEngine constructs the engine selected by --engine. Only the
// built-in toy model ships with bard; real model bindings implement
// engine.Engine out of tree.
func buildEngine() (engine.Engine, error) {
	switch engineKind {
	case "", "toy":
		return toylm.New(toylm.Config{
			Hidden:      int(hiddenWidth),
			ContextSize: int(maxContext),
			Seed:        uint64(weightsSeed),
		}), nil
	default:
		return nil, fmt.Errorf("unknown engine %q (try: toy)", engineKind)
	}
}
