package api

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/bardworks/bard/pkg/scene"
)

// SceneEntry is one stored scene. Scene values are not safe for
// concurrent use, so every scene operation runs under the entry mutex.
type SceneEntry struct {
	ID        string
	Setting   string
	CreatedAt time.Time

	mu    sync.Mutex
	scene *scene.Scene
}

// Lock takes the entry's scene for exclusive use.
func (e *SceneEntry) Lock() *scene.Scene {
	e.mu.Lock()
	return e.scene
}

// Unlock releases the entry's scene.
func (e *SceneEntry) Unlock() {
	e.mu.Unlock()
}

// SceneStore holds live scenes by id.
type SceneStore struct {
	mu      sync.Mutex
	entries map[string]*SceneEntry
}

// NewSceneStore builds an empty store.
func NewSceneStore() *SceneStore {
	return &SceneStore{entries: make(map[string]*SceneEntry)}
}

// Add stores a scene and returns its entry.
func (s *SceneStore) Add(sc *scene.Scene, setting string, now time.Time) *SceneEntry {
	entry := &SceneEntry{
		ID:        "scene_" + uuid.NewString(),
		Setting:   setting,
		CreatedAt: now,
		scene:     sc,
	}
	s.mu.Lock()
	s.entries[entry.ID] = entry
	s.mu.Unlock()
	return entry
}

// Get looks a scene up by id.
func (s *SceneStore) Get(id string) (*SceneEntry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.entries[id]
	return entry, ok
}

// Delete removes a scene and reports whether it existed.
func (s *SceneStore) Delete(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.entries[id]; !ok {
		return false
	}
	delete(s.entries, id)
	return true
}

// List returns entries ordered by creation time, then id.
func (s *SceneStore) List() []*SceneEntry {
	s.mu.Lock()
	entries := make([]*SceneEntry, 0, len(s.entries))
	for _, entry := range s.entries {
		entries = append(entries, entry)
	}
	s.mu.Unlock()

	sort.Slice(entries, func(i, j int) bool {
		if !entries[i].CreatedAt.Equal(entries[j].CreatedAt) {
			return entries[i].CreatedAt.Before(entries[j].CreatedAt)
		}
		return entries[i].ID < entries[j].ID
	})
	return entries
}
