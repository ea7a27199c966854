package api

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v5"

	"github.com/bardworks/bard/internal/version"
	"github.com/bardworks/bard/pkg/choice"
	"github.com/bardworks/bard/pkg/craft"
)

func (s *Server) handleCraft(c *echo.Context) error {
	req, err := decodeJSON[CraftRequest](c.Request().Body)
	if err != nil {
		return writeBadRequest(c, "invalid JSON: "+err.Error())
	}
	if len(req.Items) == 0 {
		return writeBadRequest(c, "items: at least one is required")
	}

	// The request may override the server's example pack or seed; the
	// default crafter is shared otherwise.
	crafter := s.crafter
	if len(req.Examples) > 0 || req.Seed != nil {
		seed := s.craftSeed
		if req.Seed != nil {
			seed = *req.Seed
		}
		examples := s.examples
		if len(req.Examples) > 0 {
			examples = make([]craft.Example, len(req.Examples))
			for i, ex := range req.Examples {
				examples[i] = craft.Example{Items: ex.Items, Result: ex.Result}
			}
		}
		crafter = craft.New(s.eng, seed, examples)
	}

	if err := s.acquire(c); err != nil {
		return err
	}
	defer s.release()

	start := s.clock()
	result, err := crafter.Craft(req.Items...)
	if err != nil {
		s.metrics.engineFaults.Inc()
		s.log.Error("craft failed", "error", err)
		return writeServerError(c, "craft failed")
	}

	s.metrics.genSeconds.Observe(s.clock().Sub(start).Seconds())
	s.metrics.crafts.Inc()
	return writeJSON(c, http.StatusOK, CraftResponse{Result: result})
}

func (s *Server) handleChoose(c *echo.Context) error {
	req, err := decodeJSON[ChooseRequest](c.Request().Body)
	if err != nil {
		return writeBadRequest(c, "invalid JSON: "+err.Error())
	}
	if len(req.Candidates) == 0 {
		return writeBadRequest(c, "candidates: at least one is required")
	}
	attempts := req.Attempts
	if attempts <= 0 {
		attempts = s.attempts
	}
	var seed uint64
	if req.Seed != nil {
		seed = *req.Seed
	}

	if err := s.acquire(c); err != nil {
		return err
	}
	defer s.release()

	start := s.clock()
	got, err := choice.Choose(s.eng, choice.Query{
		Context:    req.Context,
		Traits:     req.Traits,
		Candidates: req.Candidates,
		Seed:       seed,
	}, attempts)
	switch {
	case errors.Is(err, choice.ErrNoCandidate):
		// Isolation ran to completion; failing to isolate is an answer,
		// not a fault.
		s.metrics.genSeconds.Observe(s.clock().Sub(start).Seconds())
		s.metrics.choices.WithLabelValues("none").Inc()
		return writeJSON(c, http.StatusOK, ChooseResponse{})
	case err != nil:
		s.metrics.engineFaults.Inc()
		s.log.Error("choose failed", "error", err)
		return writeServerError(c, "choose failed")
	}

	s.metrics.genSeconds.Observe(s.clock().Sub(start).Seconds())
	s.metrics.choices.WithLabelValues("chosen").Inc()
	return writeJSON(c, http.StatusOK, ChooseResponse{Choice: &got})
}

func (s *Server) handleVersion(c *echo.Context) error {
	info := version.Resolve()
	return writeJSON(c, http.StatusOK, VersionResponse{
		Version: info.Version,
		Commit:  info.Commit,
	})
}
