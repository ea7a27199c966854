package main

import (
	"log/slog"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/bardworks/bard/internal/logger"
)

var (
	engineKind  string
	maxContext  int64
	hiddenWidth int64
	weightsSeed int64
	logLevel    string
	logFormat   string
	debug       bool
)

func commonEngineFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "engine",
			Usage:       "inference engine (toy)",
			Value:       "toy",
			Destination: &engineKind,
		},
		&cli.Int64Flag{
			Name:        "max-context",
			Aliases:     []string{"max-ctx", "ctx", "c"},
			Usage:       "max context length",
			Value:       512,
			Destination: &maxContext,
		},
		&cli.Int64Flag{
			Name:        "hidden",
			Usage:       "toy engine hidden width",
			Value:       32,
			Destination: &hiddenWidth,
		},
		&cli.Int64Flag{
			Name:        "weights-seed",
			Usage:       "toy engine weight seed",
			Destination: &weightsSeed,
		},
	}
}

func loggingFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "log-level",
			Usage:       "log level (debug, info, warn, error)",
			Value:       "info",
			Destination: &logLevel,
		},
		&cli.StringFlag{
			Name:        "log-format",
			Usage:       "log format (pretty, json, text)",
			Value:       "pretty",
			Destination: &logFormat,
		},
		&cli.BoolFlag{
			Name:        "debug",
			Usage:       "enable debug logging (shorthand for --log-level=debug)",
			Destination: &debug,
		},
	}
}

func buildLogger() logger.Logger {
	level := logger.ParseLevel(logLevel)
	if debug {
		level = slog.LevelDebug
	}
	return logger.ForFormat(logFormat, os.Stderr, level)
}
