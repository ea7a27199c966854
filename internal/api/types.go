package api

// CreateSceneRequest starts a scene.
type CreateSceneRequest struct {
	Setting    string   `json:"setting"`
	Characters []string `json:"characters"`
	// Seed fixes the scene's sampling streams; unset means zero.
	Seed *uint64 `json:"seed,omitempty"`
}

// SceneInfo is the externally visible scene state.
type SceneInfo struct {
	ID           string   `json:"id"`
	Setting      string   `json:"setting"`
	Characters   []string `json:"characters"`
	LastSpeaker  string   `json:"last_speaker,omitempty"`
	MemoryTokens int      `json:"memory_tokens"`
	CreatedAt    int64    `json:"created_at"`
}

// SceneDetail is SceneInfo plus the decoded transcript.
type SceneDetail struct {
	SceneInfo
	Transcript string `json:"transcript"`
}

// SceneList wraps the scene collection.
type SceneList struct {
	Scenes []SceneInfo `json:"scenes"`
}

// TurnRequest asks for the next turn. With Text set the turn is pushed
// verbatim instead of inferred.
type TurnRequest struct {
	// Kind is "auto", "story" or "dialogue"; empty means auto when
	// inferring, and story or dialogue (by Character) when pushing.
	Kind      string `json:"kind,omitempty"`
	Character string `json:"character,omitempty"`
	Text      string `json:"text,omitempty"`
	MaxTokens int    `json:"max_tokens,omitempty"`
}

// TurnInfo is one produced turn.
type TurnInfo struct {
	Kind         string `json:"kind"`
	Character    string `json:"character,omitempty"`
	Text         string `json:"text"`
	MemoryTokens int    `json:"memory_tokens"`
}

// DeletedResponse confirms a deletion.
type DeletedResponse struct {
	ID      string `json:"id"`
	Deleted bool   `json:"deleted"`
}

// CraftExample is one recipe in a craft request's example override.
type CraftExample struct {
	Items  []string `json:"items"`
	Result string   `json:"result"`
}

// CraftRequest asks what combining items produces.
type CraftRequest struct {
	Items []string `json:"items"`
	// Examples overrides the server's configured example pack.
	Examples []CraftExample `json:"examples,omitempty"`
	Seed     *uint64        `json:"seed,omitempty"`
}

// CraftResponse carries the crafted result.
type CraftResponse struct {
	Result string `json:"result"`
}

// ChooseRequest asks for the candidate best matching context and traits.
type ChooseRequest struct {
	Context    string   `json:"context"`
	Traits     string   `json:"traits"`
	Candidates []string `json:"candidates"`
	Seed       *uint64  `json:"seed,omitempty"`
	Attempts   int      `json:"attempts,omitempty"`
}

// ChooseResponse carries the isolated candidate, or an explicit null
// when no candidate could be isolated within the attempt bound.
type ChooseResponse struct {
	Choice *string `json:"choice"`
}

// VersionResponse reports the build identity.
type VersionResponse struct {
	Version string `json:"version"`
	Commit  string `json:"commit,omitempty"`
}

// APIError is the error payload inside the "error" envelope.
type APIError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
}
