package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v5"
	"github.com/labstack/echo/v5/middleware"
	"github.com/urfave/cli/v3"

	"github.com/bardworks/bard/internal/api"
)

func serveCmd() *cli.Command {
	var (
		addr          string
		readTimeout   time.Duration
		maxConcurrent int64
		rateLimit     float64
		craftSeed     int64
		attempts      int64
	)

	return &cli.Command{
		Name:  "serve",
		Usage: "Serve the scene and crafting REST API",
		Flags: append(append(commonEngineFlags(), loggingFlags()...),
			&cli.StringFlag{
				Name:        "addr",
				Usage:       "listen address",
				Value:       "127.0.0.1:8080",
				Destination: &addr,
			},
			&cli.DurationFlag{
				Name:        "read-timeout",
				Usage:       "read header timeout",
				Value:       30 * time.Second,
				Destination: &readTimeout,
			},
			&cli.Int64Flag{
				Name:        "max-concurrent",
				Usage:       "generation requests allowed to run at once",
				Value:       2,
				Destination: &maxConcurrent,
			},
			&cli.Float64Flag{
				Name:        "rate-limit",
				Usage:       "accepted requests per second (0 = unlimited)",
				Destination: &rateLimit,
			},
			&cli.Int64Flag{
				Name:        "craft-seed",
				Usage:       "default crafting seed",
				Value:       6532,
				Destination: &craftSeed,
			},
			&cli.Int64Flag{
				Name:        "choose-attempts",
				Usage:       "default choice isolation attempts",
				Value:       5,
				Destination: &attempts,
			},
		),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg := LoadConfig()
			applyEngineConfig(cmd, cfg)
			applyServeConfig(cmd, cfg, &addr, &maxConcurrent, &rateLimit)
			if cfg.CraftSeed != nil && !cmd.IsSet("craft-seed") {
				craftSeed = *cfg.CraftSeed
			}
			if cfg.ChooseAttempts != nil && !cmd.IsSet("choose-attempts") {
				attempts = *cfg.ChooseAttempts
			}
			log := buildLogger()

			eng, err := buildEngine()
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: %v", err), 1)
			}

			server := api.NewServer(api.Config{
				Engine:         eng,
				Log:            log,
				MaxConcurrent:  maxConcurrent,
				RateLimit:      rateLimit,
				CraftExamples:  craftPack(cfg),
				CraftSeed:      uint64(craftSeed),
				ChooseAttempts: int(attempts),
			})
			e := echo.New()
			e.Use(middleware.RequestLogger())
			e.Use(middleware.Recover())
			server.Register(e)
			log.Info("starting server", "address", addr)
			sc := echo.StartConfig{
				Address: addr,
				BeforeServeFunc: func(srv *http.Server) error {
					srv.ReadHeaderTimeout = readTimeout
					return nil
				},
			}
			return sc.Start(ctx, e)
		},
	}
}
