package api

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	json "github.com/goccy/go-json"
	"github.com/labstack/echo/v5"

	"github.com/bardworks/bard/internal/enginetest"
	"github.com/bardworks/bard/internal/logger"
	"github.com/bardworks/bard/pkg/craft"
)

func newTestEcho(eng *enginetest.Engine) *echo.Echo {
	srv := NewServer(Config{
		Engine: eng,
		Log:    logger.Text(io.Discard, slog.LevelError),
		CraftExamples: []craft.Example{
			{Items: []string{"water", "fire"}, Result: "steam"},
		},
		CraftSeed: 9,
	})
	e := echo.New()
	srv.Register(e)
	return e
}

func doJSON(t *testing.T, e *echo.Echo, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestSceneLifecycle(t *testing.T) {
	t.Parallel()

	e := newTestEcho(enginetest.New())
	header := "[Tavern]\n[There are 2 characters: Ana and Bo]\n"

	createRec := doJSON(t, e, http.MethodPost, "/v1/scenes", `{"setting":"Tavern","characters":["Ana","Bo"]}`)
	if createRec.Code != http.StatusCreated {
		t.Fatalf("create status: got %d body=%s", createRec.Code, createRec.Body.String())
	}
	var created SceneInfo
	if err := json.Unmarshal(createRec.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode create response: %v", err)
	}
	if !strings.HasPrefix(created.ID, "scene_") {
		t.Fatalf("expected scene_ id, got %q", created.ID)
	}
	if created.Setting != "Tavern" || len(created.Characters) != 2 {
		t.Fatalf("unexpected scene info: %+v", created)
	}
	if created.MemoryTokens != len(header) {
		t.Fatalf("memory tokens: got %d, want %d", created.MemoryTokens, len(header))
	}

	getRec := doJSON(t, e, http.MethodGet, "/v1/scenes/"+created.ID, "")
	if getRec.Code != http.StatusOK {
		t.Fatalf("get status: got %d body=%s", getRec.Code, getRec.Body.String())
	}
	var detail SceneDetail
	if err := json.Unmarshal(getRec.Body.Bytes(), &detail); err != nil {
		t.Fatalf("decode get response: %v", err)
	}
	if detail.Transcript != header {
		t.Fatalf("transcript: got %q, want %q", detail.Transcript, header)
	}

	listRec := doJSON(t, e, http.MethodGet, "/v1/scenes", "")
	if listRec.Code != http.StatusOK {
		t.Fatalf("list status: got %d body=%s", listRec.Code, listRec.Body.String())
	}
	var list SceneList
	if err := json.Unmarshal(listRec.Body.Bytes(), &list); err != nil {
		t.Fatalf("decode list response: %v", err)
	}
	if len(list.Scenes) != 1 || list.Scenes[0].ID != created.ID {
		t.Fatalf("unexpected scene list: %+v", list)
	}

	delRec := doJSON(t, e, http.MethodDelete, "/v1/scenes/"+created.ID, "")
	if delRec.Code != http.StatusOK {
		t.Fatalf("delete status: got %d body=%s", delRec.Code, delRec.Body.String())
	}
	if !strings.Contains(delRec.Body.String(), `"deleted":true`) {
		t.Fatalf("delete response missing deleted=true: %s", delRec.Body.String())
	}

	goneRec := doJSON(t, e, http.MethodGet, "/v1/scenes/"+created.ID, "")
	if goneRec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 after delete, got %d body=%s", goneRec.Code, goneRec.Body.String())
	}
}

func TestSceneValidationErrors(t *testing.T) {
	t.Parallel()

	e := newTestEcho(enginetest.New())

	rec := doJSON(t, e, http.MethodPost, "/v1/scenes", `{"setting":"Void","characters":[]}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d body=%s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), "characters") {
		t.Fatalf("unexpected error body: %s", rec.Body.String())
	}

	rec = doJSON(t, e, http.MethodPost, "/v1/scenes", `{"setting":`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad JSON, got %d body=%s", rec.Code, rec.Body.String())
	}

	for _, tc := range []struct {
		method, path string
	}{
		{http.MethodGet, "/v1/scenes/scene_missing"},
		{http.MethodDelete, "/v1/scenes/scene_missing"},
		{http.MethodPost, "/v1/scenes/scene_missing/turns"},
	} {
		rec := doJSON(t, e, tc.method, tc.path, `{}`)
		if rec.Code != http.StatusNotFound {
			t.Fatalf("%s %s: expected 404, got %d body=%s", tc.method, tc.path, rec.Code, rec.Body.String())
		}
		if !strings.Contains(rec.Body.String(), "not_found_error") {
			t.Fatalf("unexpected error body: %s", rec.Body.String())
		}
	}
}

func TestTurnPushAndInfer(t *testing.T) {
	t.Parallel()

	eng := enginetest.New("Rain falls", "Well met")
	e := newTestEcho(eng)
	header := "[Inn]\n[There are 2 characters: Ana and Bo]\n"

	createRec := doJSON(t, e, http.MethodPost, "/v1/scenes", `{"setting":"Inn","characters":["Ana","Bo"]}`)
	var created SceneInfo
	if err := json.Unmarshal(createRec.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode create response: %v", err)
	}
	turnsPath := "/v1/scenes/" + created.ID + "/turns"

	pushRec := doJSON(t, e, http.MethodPost, turnsPath, `{"text":"The door opens"}`)
	if pushRec.Code != http.StatusOK {
		t.Fatalf("push status: got %d body=%s", pushRec.Code, pushRec.Body.String())
	}
	var pushed TurnInfo
	if err := json.Unmarshal(pushRec.Body.Bytes(), &pushed); err != nil {
		t.Fatalf("decode push response: %v", err)
	}
	if pushed.Kind != "story" || pushed.Text != "The door opens" {
		t.Fatalf("unexpected pushed turn: %+v", pushed)
	}
	wantMem := len(header) + len("The door opens") + 1
	if pushed.MemoryTokens != wantMem {
		t.Fatalf("memory after push: got %d, want %d", pushed.MemoryTokens, wantMem)
	}
	if eng.PassCount() != 0 {
		t.Fatalf("push ran the engine: %d passes", eng.PassCount())
	}

	storyRec := doJSON(t, e, http.MethodPost, turnsPath, `{"kind":"story"}`)
	if storyRec.Code != http.StatusOK {
		t.Fatalf("infer story status: got %d body=%s", storyRec.Code, storyRec.Body.String())
	}
	var story TurnInfo
	if err := json.Unmarshal(storyRec.Body.Bytes(), &story); err != nil {
		t.Fatalf("decode story response: %v", err)
	}
	if story.Kind != "story" || story.Text != "Rain falls" {
		t.Fatalf("unexpected story turn: %+v", story)
	}

	sayRec := doJSON(t, e, http.MethodPost, turnsPath, `{"kind":"dialogue","character":"Ana"}`)
	if sayRec.Code != http.StatusOK {
		t.Fatalf("infer dialogue status: got %d body=%s", sayRec.Code, sayRec.Body.String())
	}
	var say TurnInfo
	if err := json.Unmarshal(sayRec.Body.Bytes(), &say); err != nil {
		t.Fatalf("decode dialogue response: %v", err)
	}
	if say.Kind != "dialogue" || say.Character != "Ana" || say.Text != "Well met" {
		t.Fatalf("unexpected dialogue turn: %+v", say)
	}
	if eng.PassCount() != 2 {
		t.Fatalf("expected 2 passes, got %d", eng.PassCount())
	}

	getRec := doJSON(t, e, http.MethodGet, "/v1/scenes/"+created.ID, "")
	var detail SceneDetail
	if err := json.Unmarshal(getRec.Body.Bytes(), &detail); err != nil {
		t.Fatalf("decode get response: %v", err)
	}
	wantTranscript := header + "The door opens\nRain falls\nAna: \"Well met\"\n"
	if detail.Transcript != wantTranscript {
		t.Fatalf("transcript: got %q, want %q", detail.Transcript, wantTranscript)
	}
	if detail.LastSpeaker != "Ana" {
		t.Fatalf("last speaker: got %q, want Ana", detail.LastSpeaker)
	}
}

func TestTurnValidationErrors(t *testing.T) {
	t.Parallel()

	e := newTestEcho(enginetest.New())
	createRec := doJSON(t, e, http.MethodPost, "/v1/scenes", `{"setting":"Inn","characters":["Ana"]}`)
	var created SceneInfo
	if err := json.Unmarshal(createRec.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode create response: %v", err)
	}
	turnsPath := "/v1/scenes/" + created.ID + "/turns"

	for _, tc := range []struct {
		name, body, want string
	}{
		{"bad kind", `{"kind":"epic"}`, "kind"},
		{"auto with text", `{"kind":"auto","text":"x"}`, "auto"},
		{"dialogue without character", `{"kind":"dialogue"}`, "character"},
	} {
		rec := doJSON(t, e, http.MethodPost, turnsPath, tc.body)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("%s: expected 400, got %d body=%s", tc.name, rec.Code, rec.Body.String())
		}
		if !strings.Contains(rec.Body.String(), tc.want) {
			t.Fatalf("%s: unexpected error body: %s", tc.name, rec.Body.String())
		}
	}
}

func TestTurnNoEligibleSpeaker(t *testing.T) {
	t.Parallel()

	// A single-character roster where that character just spoke: with
	// seed 0 the auto turn lands on dialogue and finds nobody eligible.
	e := newTestEcho(enginetest.New())
	createRec := doJSON(t, e, http.MethodPost, "/v1/scenes", `{"setting":"Cell","characters":["Solo"],"seed":0}`)
	var created SceneInfo
	if err := json.Unmarshal(createRec.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode create response: %v", err)
	}
	turnsPath := "/v1/scenes/" + created.ID + "/turns"

	pushRec := doJSON(t, e, http.MethodPost, turnsPath, `{"character":"Solo","text":"Hi"}`)
	if pushRec.Code != http.StatusOK {
		t.Fatalf("push status: got %d body=%s", pushRec.Code, pushRec.Body.String())
	}

	autoRec := doJSON(t, e, http.MethodPost, turnsPath, `{}`)
	if autoRec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d body=%s", autoRec.Code, autoRec.Body.String())
	}
	if !strings.Contains(autoRec.Body.String(), "no eligible speaker") {
		t.Fatalf("unexpected error body: %s", autoRec.Body.String())
	}
}

func TestCraftEndpoint(t *testing.T) {
	t.Parallel()

	eng := enginetest.New("steam.")
	e := newTestEcho(eng)

	rec := doJSON(t, e, http.MethodPost, "/v1/craft", `{"items":["water","fire"]}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("craft status: got %d body=%s", rec.Code, rec.Body.String())
	}
	var resp CraftResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode craft response: %v", err)
	}
	if resp.Result != "steam" {
		t.Fatalf("craft result: got %q, want steam", resp.Result)
	}

	prompt, err := eng.Decode(eng.FirstForward(0))
	if err != nil {
		t.Fatalf("decode prompt: %v", err)
	}
	if !strings.Contains(prompt, "When you combine water and fire you get steam.") {
		t.Fatalf("server example pack missing from prompt: %q", prompt)
	}
}

func TestCraftSeedOverride(t *testing.T) {
	t.Parallel()

	eng := enginetest.New("ore.")
	e := newTestEcho(eng)

	// Seeds arrive as bare JSON integers and must survive the full
	// uint64 range.
	rec := doJSON(t, e, http.MethodPost, "/v1/craft", `{"items":["rock"],"seed":18446744073709551615}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("craft status: got %d body=%s", rec.Code, rec.Body.String())
	}
	samples := eng.Samples()
	if len(samples) == 0 {
		t.Fatalf("expected sample calls")
	}
	if samples[0].Seed != ^uint64(0) {
		t.Fatalf("seed: got %d, want %d", samples[0].Seed, uint64(18446744073709551615))
	}
	if samples[0].Temperature != 0.5 {
		t.Fatalf("temperature: got %v, want 0.5", samples[0].Temperature)
	}
}

func TestCraftValidation(t *testing.T) {
	t.Parallel()

	e := newTestEcho(enginetest.New())
	rec := doJSON(t, e, http.MethodPost, "/v1/craft", `{"items":[]}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d body=%s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), "items") {
		t.Fatalf("unexpected error body: %s", rec.Body.String())
	}
}

func TestChooseEndpoint(t *testing.T) {
	t.Parallel()

	eng := enginetest.New("sw")
	e := newTestEcho(eng)

	rec := doJSON(t, e, http.MethodPost, "/v1/choose", `{"context":"armory","traits":"sharp","candidates":["Sword","Shield"]}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("choose status: got %d body=%s", rec.Code, rec.Body.String())
	}
	var resp ChooseResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode choose response: %v", err)
	}
	if resp.Choice == nil || *resp.Choice != "sword" {
		t.Fatalf("unexpected choice: %+v", resp.Choice)
	}
}

func TestChooseNoCandidateIsNull(t *testing.T) {
	t.Parallel()

	eng := enginetest.New("zz", "zz")
	e := newTestEcho(eng)

	rec := doJSON(t, e, http.MethodPost, "/v1/choose", `{"candidates":["alpha","beta"],"attempts":2}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("choose status: got %d body=%s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), `"choice":null`) {
		t.Fatalf("expected null choice, got %s", rec.Body.String())
	}
	if eng.PassCount() != 2 {
		t.Fatalf("expected 2 attempts, got %d passes", eng.PassCount())
	}
}

func TestChooseValidation(t *testing.T) {
	t.Parallel()

	e := newTestEcho(enginetest.New())
	rec := doJSON(t, e, http.MethodPost, "/v1/choose", `{"candidates":[]}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d body=%s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), "candidates") {
		t.Fatalf("unexpected error body: %s", rec.Body.String())
	}
}

func TestVersionEndpoint(t *testing.T) {
	t.Parallel()

	e := newTestEcho(enginetest.New())
	rec := doJSON(t, e, http.MethodGet, "/v1/version", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("version status: got %d body=%s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), `"version"`) {
		t.Fatalf("unexpected version body: %s", rec.Body.String())
	}
}

func TestMetricsEndpoint(t *testing.T) {
	t.Parallel()

	e := newTestEcho(enginetest.New())
	createRec := doJSON(t, e, http.MethodPost, "/v1/scenes", `{"setting":"Inn","characters":["Ana"]}`)
	var created SceneInfo
	if err := json.Unmarshal(createRec.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode create response: %v", err)
	}
	doJSON(t, e, http.MethodPost, "/v1/scenes/"+created.ID+"/turns", `{"text":"Dust settles"}`)

	rec := doJSON(t, e, http.MethodGet, "/metrics", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("metrics status: got %d body=%s", rec.Code, rec.Body.String())
	}
	body := rec.Body.String()
	if !strings.Contains(body, `bard_turns_total{kind="story"} 1`) {
		t.Fatalf("turns counter missing: %s", body)
	}
	if !strings.Contains(body, "bard_crafts_total") {
		t.Fatalf("crafts counter missing: %s", body)
	}
	if !strings.Contains(body, "bard_generation_seconds") {
		t.Fatalf("generation histogram missing: %s", body)
	}
}

func TestRateLimit(t *testing.T) {
	t.Parallel()

	srv := NewServer(Config{
		Engine:    enginetest.New(),
		Log:       logger.Text(io.Discard, slog.LevelError),
		RateLimit: 0.001,
	})
	e := echo.New()
	srv.Register(e)

	first := doJSON(t, e, http.MethodGet, "/v1/scenes", "")
	if first.Code != http.StatusOK {
		t.Fatalf("first status: got %d body=%s", first.Code, first.Body.String())
	}
	second := doJSON(t, e, http.MethodGet, "/v1/scenes", "")
	if second.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d body=%s", second.Code, second.Body.String())
	}
	if !strings.Contains(second.Body.String(), "rate_limit_error") {
		t.Fatalf("unexpected error body: %s", second.Body.String())
	}
}

func TestEngineFaultIs500(t *testing.T) {
	t.Parallel()

	eng := enginetest.NewTokens([]uint32{enginetest.Fail})
	e := newTestEcho(eng)

	createRec := doJSON(t, e, http.MethodPost, "/v1/scenes", `{"setting":"Inn","characters":["Ana"]}`)
	var created SceneInfo
	if err := json.Unmarshal(createRec.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode create response: %v", err)
	}

	rec := doJSON(t, e, http.MethodPost, "/v1/scenes/"+created.ID+"/turns", `{"kind":"story"}`)
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d body=%s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), "server_error") {
		t.Fatalf("unexpected error body: %s", rec.Body.String())
	}

	metricsRec := doJSON(t, e, http.MethodGet, "/metrics", "")
	if !strings.Contains(metricsRec.Body.String(), "bard_engine_faults_total 1") {
		t.Fatalf("engine fault counter missing: %s", metricsRec.Body.String())
	}
}
