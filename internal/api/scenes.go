package api

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v5"

	"github.com/bardworks/bard/pkg/scene"
)

// defaultTurnTokens caps a generated line when the request leaves
// max_tokens unset.
const defaultTurnTokens = 48

func (s *Server) handleCreateScene(c *echo.Context) error {
	req, err := decodeJSON[CreateSceneRequest](c.Request().Body)
	if err != nil {
		return writeBadRequest(c, "invalid JSON: "+err.Error())
	}
	if len(req.Characters) == 0 {
		return writeBadRequest(c, "characters: at least one is required")
	}
	var seed uint64
	if req.Seed != nil {
		seed = *req.Seed
	}

	sc, err := scene.New(s.eng, req.Setting, req.Characters, seed)
	if err != nil {
		s.metrics.engineFaults.Inc()
		s.log.Error("create scene", "error", err)
		return writeServerError(c, "could not start scene")
	}

	entry := s.scenes.Add(sc, req.Setting, s.clock())
	s.log.Info("scene created", "scene", entry.ID, "characters", len(req.Characters))
	return writeJSON(c, http.StatusCreated, sceneInfo(entry, sc))
}

func (s *Server) handleListScenes(c *echo.Context) error {
	entries := s.scenes.List()
	list := SceneList{Scenes: make([]SceneInfo, 0, len(entries))}
	for _, entry := range entries {
		sc := entry.Lock()
		list.Scenes = append(list.Scenes, sceneInfo(entry, sc))
		entry.Unlock()
	}
	return writeJSON(c, http.StatusOK, list)
}

func (s *Server) handleGetScene(c *echo.Context) error {
	entry, ok := s.scenes.Get(c.Param("id"))
	if !ok {
		return writeNotFound(c, "no such scene")
	}

	sc := entry.Lock()
	defer entry.Unlock()

	transcript, err := sc.Transcript()
	if err != nil {
		s.metrics.engineFaults.Inc()
		s.log.Error("decode transcript", "scene", entry.ID, "error", err)
		return writeServerError(c, "could not decode transcript")
	}
	return writeJSON(c, http.StatusOK, SceneDetail{
		SceneInfo:  sceneInfo(entry, sc),
		Transcript: transcript,
	})
}

func (s *Server) handleDeleteScene(c *echo.Context) error {
	id := c.Param("id")
	if !s.scenes.Delete(id) {
		return writeNotFound(c, "no such scene")
	}
	s.log.Info("scene deleted", "scene", id)
	return writeJSON(c, http.StatusOK, DeletedResponse{ID: id, Deleted: true})
}

func (s *Server) handleTurn(c *echo.Context) error {
	req, err := decodeJSON[TurnRequest](c.Request().Body)
	if err != nil {
		return writeBadRequest(c, "invalid JSON: "+err.Error())
	}
	entry, ok := s.scenes.Get(c.Param("id"))
	if !ok {
		return writeNotFound(c, "no such scene")
	}

	push := req.Text != ""
	kind := req.Kind
	if kind == "" {
		switch {
		case push && req.Character != "":
			kind = "dialogue"
		case push:
			kind = "story"
		default:
			kind = "auto"
		}
	}
	switch kind {
	case "auto", "story", "dialogue":
	default:
		return writeBadRequest(c, `kind: must be "auto", "story" or "dialogue"`)
	}
	if kind == "auto" && push {
		return writeBadRequest(c, "text: an auto turn is always inferred")
	}
	if kind == "dialogue" && req.Character == "" {
		return writeBadRequest(c, "character: required for dialogue turns")
	}
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultTurnTokens
	}

	// Pushed turns only encode; inferred turns run the engine and take a
	// generation slot first.
	if !push {
		if err := s.acquire(c); err != nil {
			return err
		}
		defer s.release()
	}

	sc := entry.Lock()
	defer entry.Unlock()

	start := s.clock()
	var turn scene.Turn
	switch {
	case push && kind == "dialogue":
		turn, err = sc.PushDialogue(req.Character, req.Text)
	case push:
		turn, err = sc.PushStory(req.Text)
	case kind == "story":
		turn, err = sc.InferStory(maxTokens)
	case kind == "dialogue":
		turn, err = sc.InferDialogue(req.Character, maxTokens)
	default:
		turn, err = sc.InferAny(maxTokens)
	}
	if err != nil {
		if errors.Is(err, scene.ErrNoEligibleSpeaker) {
			return writeBadRequest(c, err.Error())
		}
		s.metrics.engineFaults.Inc()
		s.log.Error("turn failed", "scene", entry.ID, "kind", kind, "error", err)
		return writeServerError(c, "turn failed")
	}

	if !push {
		s.metrics.genSeconds.Observe(s.clock().Sub(start).Seconds())
	}
	s.metrics.turns.WithLabelValues(turn.Kind.String()).Inc()
	return writeJSON(c, http.StatusOK, TurnInfo{
		Kind:         turn.Kind.String(),
		Character:    turn.Character,
		Text:         turn.Text,
		MemoryTokens: sc.MemoryLen(),
	})
}

// sceneInfo snapshots an entry. The caller holds the entry lock or sole
// ownership of a scene not yet published.
func sceneInfo(entry *SceneEntry, sc *scene.Scene) SceneInfo {
	return SceneInfo{
		ID:           entry.ID,
		Setting:      entry.Setting,
		Characters:   sc.Characters(),
		LastSpeaker:  sc.LastSpeaker(),
		MemoryTokens: sc.MemoryLen(),
		CreatedAt:    entry.CreatedAt.Unix(),
	}
}
