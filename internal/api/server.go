// Package api is the HTTP surface over the orchestration core: scene
// lifecycle and turns, one-shot crafting and constrained choice. One
// engine backs the whole server; per-scene locks serialize scene state
// and a weighted semaphore bounds concurrent generation.
package api

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"

	"github.com/bardworks/bard/internal/logger"
	"github.com/bardworks/bard/pkg/craft"
	"github.com/bardworks/bard/pkg/engine"
)

// Config assembles a Server.
type Config struct {
	Engine engine.Engine
	Log    logger.Logger

	// MaxConcurrent caps engine-bound requests running at once; zero
	// means one at a time.
	MaxConcurrent int64

	// RateLimit is accepted requests per second across the API; zero
	// disables limiting.
	RateLimit float64

	// CraftExamples is the default example pack for /v1/craft, and
	// CraftSeed seeds the default crafter.
	CraftExamples []craft.Example
	CraftSeed     uint64

	// ChooseAttempts bounds /v1/choose when the request leaves attempts
	// unset; zero means 5.
	ChooseAttempts int
}

// Server is the HTTP API.
type Server struct {
	eng       engine.Engine
	log       logger.Logger
	scenes    *SceneStore
	crafter   *craft.Crafter
	examples  []craft.Example
	craftSeed uint64
	attempts  int
	sem       *semaphore.Weighted
	limiter   *rate.Limiter
	metrics   *metrics
	clock     func() time.Time
}

// NewServer builds a Server from cfg. cfg.Engine is required.
func NewServer(cfg Config) *Server {
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = 1
	}
	if cfg.ChooseAttempts <= 0 {
		cfg.ChooseAttempts = 5
	}
	if cfg.Log == nil {
		cfg.Log = logger.Default()
	}
	s := &Server{
		eng:       cfg.Engine,
		log:       cfg.Log,
		scenes:    NewSceneStore(),
		crafter:   craft.New(cfg.Engine, cfg.CraftSeed, cfg.CraftExamples),
		examples:  cfg.CraftExamples,
		craftSeed: cfg.CraftSeed,
		attempts:  cfg.ChooseAttempts,
		sem:       semaphore.NewWeighted(cfg.MaxConcurrent),
		metrics:   newMetrics(),
		clock:     time.Now,
	}
	if cfg.RateLimit > 0 {
		burst := int(2 * cfg.RateLimit)
		if burst < 1 {
			burst = 1
		}
		s.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), burst)
	}
	return s
}

// Register mounts the API on e.
func (s *Server) Register(e *echo.Echo) {
	if s.limiter != nil {
		e.Use(s.rateLimit)
	}

	e.POST("/v1/scenes", s.handleCreateScene)
	e.GET("/v1/scenes", s.handleListScenes)
	e.GET("/v1/scenes/:id", s.handleGetScene)
	e.DELETE("/v1/scenes/:id", s.handleDeleteScene)
	e.POST("/v1/scenes/:id/turns", s.handleTurn)
	e.POST("/v1/craft", s.handleCraft)
	e.POST("/v1/choose", s.handleChoose)
	e.GET("/v1/version", s.handleVersion)

	metricsHandler := promhttp.HandlerFor(s.metrics.registry, promhttp.HandlerOpts{})
	e.GET("/metrics", func(c *echo.Context) error {
		metricsHandler.ServeHTTP(c.Response(), c.Request())
		return nil
	})
}

func (s *Server) rateLimit(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c *echo.Context) error {
		if !s.limiter.Allow() {
			return writeError(c, http.StatusTooManyRequests, "rate_limit_error", "too many requests")
		}
		return next(c)
	}
}

// acquire takes a generation slot, blocking until one frees up or the
// request context ends.
func (s *Server) acquire(c *echo.Context) error {
	return s.sem.Acquire(c.Request().Context(), 1)
}

func (s *Server) release() {
	s.sem.Release(1)
}
