package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/julienschmidt/httprouter"

	"github.com/chriselgee/whiteboard/game"
	"github.com/chriselgee/whiteboard/store"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	cfg := &Config{}
	words, err := game.NewWordList([]string{"honey", "apple", "river", "cloud", "star"})
	if err != nil {
		t.Fatalf("unable to build word list: %s", err)
	}
	engine := game.NewEngine(store.NewMemory(), words)

	mux := httprouter.New()
	registerWhiteboardGame(cfg, "/whiteboard", mux, engine)

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	return srv
}

func postJSON(t *testing.T, srv *httptest.Server, path string, body any) (*http.Response, map[string]any) {
	t.Helper()

	data, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("unable to marshal request: %s", err)
	}

	res, err := http.Post(srv.URL+path, "application/json", bytes.NewReader(data))
	if err != nil {
		t.Fatalf("request failed: %s", err)
	}
	defer res.Body.Close()

	decoded := make(map[string]any)
	if err := json.NewDecoder(res.Body).Decode(&decoded); err != nil {
		t.Fatalf("unable to decode response: %s", err)
	}
	return res, decoded
}

func getJSON(t *testing.T, srv *httptest.Server, path string) (*http.Response, map[string]any) {
	t.Helper()

	res, err := http.Get(srv.URL + path)
	if err != nil {
		t.Fatalf("request failed: %s", err)
	}
	defer res.Body.Close()

	decoded := make(map[string]any)
	if err := json.NewDecoder(res.Body).Decode(&decoded); err != nil {
		t.Fatalf("unable to decode response: %s", err)
	}
	return res, decoded
}

func TestCreateAndJoinOverHTTP(t *testing.T) {
	srv := newTestServer(t)

	res, created := postJSON(t, srv, "/whiteboard/create", nil)
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("create should return 201, got %d", res.StatusCode)
	}
	code, _ := created["game_code"].(string)
	if len(code) != 6 {
		t.Fatalf("expected a 6-character game code, got %q", code)
	}

	res, joined := postJSON(t, srv, "/whiteboard/join", map[string]string{
		"game_code": code,
		"name":      "alice",
	})
	if res.StatusCode != http.StatusOK {
		t.Fatalf("join should return 200, got %d: %v", res.StatusCode, joined)
	}
	if id, _ := joined["player_id"].(string); id == "" {
		t.Error("join should return a player id")
	}

	res, state := getJSON(t, srv, "/whiteboard/"+code+"/state")
	if res.StatusCode != http.StatusOK {
		t.Fatalf("state should return 200, got %d", res.StatusCode)
	}
	if state["state"] != "lobby" {
		t.Errorf("new game should be in the lobby, got %v", state["state"])
	}
}

func TestJoinValidationOverHTTP(t *testing.T) {
	srv := newTestServer(t)

	res, body := postJSON(t, srv, "/whiteboard/join", map[string]string{"name": "alice"})
	if res.StatusCode != http.StatusBadRequest {
		t.Errorf("missing game code should return 400, got %d", res.StatusCode)
	}
	if msg, _ := body["error"].(string); msg == "" {
		t.Error("error responses should carry an error field")
	}

	res, _ = postJSON(t, srv, "/whiteboard/join", map[string]string{
		"game_code": "nosuch",
		"name":      "alice",
	})
	if res.StatusCode != http.StatusNotFound {
		t.Errorf("unknown game should return 404, got %d", res.StatusCode)
	}

	res, _ = getJSON(t, srv, "/whiteboard/nosuch/state")
	if res.StatusCode != http.StatusNotFound {
		t.Errorf("unknown game state should return 404, got %d", res.StatusCode)
	}
}

func TestFullGameFlowOverHTTP(t *testing.T) {
	srv := newTestServer(t)

	_, created := postJSON(t, srv, "/whiteboard/create", nil)
	code := created["game_code"].(string)

	ids := make([]string, 0, 3)
	for _, name := range []string{"alice", "bob", "carol"} {
		_, joined := postJSON(t, srv, "/whiteboard/join", map[string]string{
			"game_code": code,
			"name":      name,
		})
		ids = append(ids, joined["player_id"].(string))
	}

	var state map[string]any
	for _, id := range ids {
		_, state = postJSON(t, srv, "/whiteboard/ready", map[string]string{
			"game_code": code,
			"player_id": id,
		})
	}
	if state["state"] != "playing" {
		t.Fatalf("three ready players should start the game, got %v", state["state"])
	}
	if word, _ := state["current_word"].(string); word == "" {
		t.Error("playing game should expose the prompt word")
	}

	answers := []string{"cat", "cat", "dog"}
	for i, id := range ids {
		res, body := postJSON(t, srv, "/whiteboard/submit", map[string]string{
			"game_code": code,
			"player_id": id,
			"answer":    answers[i],
		})
		if res.StatusCode != http.StatusOK {
			t.Fatalf("submit should return 200, got %d: %v", res.StatusCode, body)
		}
		state = body
	}

	if state["state"] != "scoring" {
		t.Fatalf("completed round should land in scoring, got %v", state["state"])
	}

	players := state["players"].([]any)
	scores := make(map[string]float64, len(players))
	for _, p := range players {
		entry := p.(map[string]any)
		scores[entry["name"].(string)] = entry["score"].(float64)
	}
	if scores["alice"] != 3 || scores["bob"] != 3 || scores["carol"] != 0 {
		t.Errorf("unexpected scores: %v", scores)
	}

	// Submitting outside a round is a state conflict.
	res, _ := postJSON(t, srv, "/whiteboard/submit", map[string]string{
		"game_code": code,
		"player_id": ids[0],
		"answer":    "late",
	})
	if res.StatusCode != http.StatusConflict {
		t.Errorf("submitting during scoring should return 409, got %d", res.StatusCode)
	}
}

func TestQROverHTTP(t *testing.T) {
	srv := newTestServer(t)

	_, created := postJSON(t, srv, "/whiteboard/create", nil)
	code := created["game_code"].(string)

	res, err := http.Get(srv.URL + "/whiteboard/" + code + "/qr")
	if err != nil {
		t.Fatalf("request failed: %s", err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		t.Fatalf("qr should return 200, got %d", res.StatusCode)
	}
	if ct := res.Header.Get("Content-Type"); ct != "image/png" {
		t.Errorf("qr should be a png, got %q", ct)
	}
}
