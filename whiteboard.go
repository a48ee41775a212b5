// Whiteboard matching game
//
// Players join a shared game by 6-character code and hold up a metaphorical
// whiteboard each round: everyone sees the same prompt word, writes a
// free-text answer, and scores by matching other players. An exact pair of
// matching answers earns those two players 3 points each, three or more
// matching answers earn 1 point each, and unmatched answers earn nothing.
// First player to 20 points wins.
//
// Features:
// - JSON API mapping one-to-one onto the round engine's operations:
//   POST /path/create, /path/join, /path/ready, /path/submit
//   GET  /path/:code/state
// - Embedded browser client at /path and /path/:code
// - Per-game WebSocket watch channel at /path/:code/ws, pushed a fresh
//   state snapshot after every successful mutation
// - In-browser QR button to share the current game, backed by go-qrcode
// - Random 6-char game codes via crypto/rand, with store-side collision check

package main

import (
	_ "embed"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"
	"github.com/skip2/go-qrcode"

	"github.com/chriselgee/whiteboard/game"
)

// Messages coming from clients
type joinRequest struct {
	GameCode string `json:"game_code"`
	Name     string `json:"name"`
}

type readyRequest struct {
	GameCode string `json:"game_code"`
	PlayerID string `json:"player_id"`
}

type submitRequest struct {
	GameCode string `json:"game_code"`
	PlayerID string `json:"player_id"`
	Answer   string `json:"answer"`
}

// Messages sent to clients
type createResponse struct {
	GameCode string `json:"game_code"`
}

type joinResponse struct {
	GameCode string `json:"game_code"`
	PlayerID string `json:"player_id"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(cfg *Config, w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	securityHeaders(cfg, w)
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeGameError maps the engine's typed errors onto HTTP status codes.
// All of them are client errors; anything else is a server fault.
func writeGameError(cfg *Config, w http.ResponseWriter, err error) {
	var status int

	switch {
	case errors.Is(err, game.ErrGameNotFound), errors.Is(err, game.ErrPlayerNotFound):
		status = http.StatusNotFound
	case errors.Is(err, game.ErrWrongState):
		status = http.StatusConflict
	case errors.Is(err, game.ErrMissingField):
		status = http.StatusBadRequest
	default:
		status = http.StatusInternalServerError
	}

	writeJSON(cfg, w, status, errorResponse{Error: err.Error()})
}

func decodeBody(cfg *Config, w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeJSON(cfg, w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return false
	}
	return true
}

// watcher is one websocket subscriber to a game's state.
type watcher struct {
	conn *websocket.Conn
	send chan *game.Snapshot
}

// watchHub fans freshly mutated game snapshots out to websocket watchers,
// keyed by game code. Push only; watchers never send.
type watchHub struct {
	mu       sync.Mutex
	watchers map[string]map[*watcher]bool
}

func newWatchHub() *watchHub {
	return &watchHub{
		watchers: make(map[string]map[*watcher]bool),
	}
}

func (h *watchHub) add(code string, w *watcher) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.watchers[code] == nil {
		h.watchers[code] = make(map[*watcher]bool)
	}
	h.watchers[code][w] = true
}

func (h *watchHub) remove(code string, w *watcher) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if set, ok := h.watchers[code]; ok {
		if set[w] {
			delete(set, w)
			close(w.send)
		}
		if len(set) == 0 {
			delete(h.watchers, code)
		}
	}
}

func (h *watchHub) broadcast(snap *game.Snapshot) {
	if snap == nil {
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	for w := range h.watchers[snap.Code] {
		select {
		case w.send <- snap:
		default:
			delete(h.watchers[snap.Code], w)
			close(w.send)
		}
	}
}

func (w *watcher) writePump() {
	defer w.conn.Close()

	for snap := range w.send {
		if err := w.conn.WriteJSON(snap); err != nil {
			return
		}
	}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

func serveCreateGame(cfg *Config, engine *game.Engine) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		code, err := engine.CreateGame()
		if err != nil {
			writeGameError(cfg, w, err)
			return
		}

		logf(cfg, "GAMES: Created game %s for %s", code, realIP(r))

		writeJSON(cfg, w, http.StatusCreated, createResponse{GameCode: code})
	}
}

func serveJoinGame(cfg *Config, engine *game.Engine, hub *watchHub) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		var req joinRequest
		if !decodeBody(cfg, w, r, &req) {
			return
		}
		if req.GameCode == "" || strings.TrimSpace(req.Name) == "" {
			writeGameError(cfg, w, game.ErrMissingField)
			return
		}

		playerID, err := engine.JoinGame(req.GameCode, req.Name)
		if err != nil {
			writeGameError(cfg, w, err)
			return
		}

		logf(cfg, "GAMES: Player %q joined %s", strings.TrimSpace(req.Name), req.GameCode)

		if snap, err := engine.State(req.GameCode); err == nil {
			hub.broadcast(snap)
		}

		writeJSON(cfg, w, http.StatusOK, joinResponse{
			GameCode: req.GameCode,
			PlayerID: playerID,
		})
	}
}

func serveReady(cfg *Config, engine *game.Engine, hub *watchHub) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		var req readyRequest
		if !decodeBody(cfg, w, r, &req) {
			return
		}
		if req.GameCode == "" || req.PlayerID == "" {
			writeGameError(cfg, w, game.ErrMissingField)
			return
		}

		snap, err := engine.SetReady(req.GameCode, req.PlayerID)
		if err != nil {
			writeGameError(cfg, w, err)
			return
		}

		if snap.State == game.StatePlaying {
			logf(cfg, "GAMES: Game %s started round %d", snap.Code, snap.Round)
		}

		hub.broadcast(snap)

		writeJSON(cfg, w, http.StatusOK, snap)
	}
}

func serveSubmitAnswer(cfg *Config, engine *game.Engine, hub *watchHub) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		var req submitRequest
		if !decodeBody(cfg, w, r, &req) {
			return
		}
		if req.GameCode == "" || req.PlayerID == "" {
			writeGameError(cfg, w, game.ErrMissingField)
			return
		}

		snap, err := engine.SubmitAnswer(req.GameCode, req.PlayerID, req.Answer)
		if err != nil {
			writeGameError(cfg, w, err)
			return
		}

		if snap.State == game.StateFinished {
			logf(cfg, "GAMES: Game %s won by %q", snap.Code, snap.Winner)
		}

		hub.broadcast(snap)

		writeJSON(cfg, w, http.StatusOK, snap)
	}
}

func serveGameState(cfg *Config, engine *game.Engine) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		code := ps.ByName("code")
		if code == "" {
			writeGameError(cfg, w, game.ErrMissingField)
			return
		}

		snap, err := engine.State(code)
		if err != nil {
			writeGameError(cfg, w, err)
			return
		}

		writeJSON(cfg, w, http.StatusOK, snap)
	}
}

// WebSocket handler: subscribes the client to state pushes for one game.
func serveWatch(cfg *Config, engine *game.Engine, hub *watchHub) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		code := ps.ByName("code")

		// Reject unknown games before upgrading.
		snap, err := engine.State(code)
		if err != nil {
			writeGameError(cfg, w, err)
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logf(cfg, "GAMES: Watch upgrade failed for %s: %v", code, err)
			return
		}

		watch := &watcher{
			conn: conn,
			send: make(chan *game.Snapshot, 8),
		}

		hub.add(code, watch)
		watch.send <- snap

		go watch.writePump()

		// Watchers never send anything meaningful; read until the peer
		// goes away, then unsubscribe.
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				break
			}
		}

		hub.remove(code, watch)
		_ = conn.Close()
	}
}

// QR handler: generates a PNG QR code for the current game URL using go-qrcode.
func qrHandler(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	code := ps.ByName("code")
	if code == "" {
		http.Error(w, "missing game code", http.StatusBadRequest)
		return
	}

	// Derive scheme (respecting TLS and X-Forwarded-Proto if present).
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
		scheme = proto
	}

	// We are at /.../:code/qr; strip trailing "/qr" to get the game URL.
	path := strings.TrimSuffix(r.URL.Path, "/qr")

	url := scheme + "://" + r.Host + path

	const qrSize = 320 // mobile-friendly size
	png, err := qrcode.Encode(url, qrcode.Medium, qrSize)
	if err != nil {
		http.Error(w, "qr generation failed", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	_, _ = w.Write(png)
}

// ---- Static file paths ----

//go:embed whiteboard/index.html
var indexHTML []byte

//go:embed whiteboard/app.css
var whiteboardCSS []byte

//go:embed whiteboard/app.js
var whiteboardJS []byte

func getIndexHandler(cfg *Config) func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Header().Set("Cache-Control", "public, max-age=3600")
		w.Header().Set("Expires", time.Now().Add(time.Hour).UTC().Format(http.TimeFormat))
		securityHeaders(cfg, w)

		_, _ = w.Write(indexHTML)
	}
}

func getCssHandler(cfg *Config) func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		w.Header().Set("Content-Type", "text/css; charset=utf-8")
		w.Header().Set("Cache-Control", "public, max-age=3600")
		w.Header().Set("Expires", time.Now().Add(time.Hour).UTC().Format(http.TimeFormat))
		securityHeaders(cfg, w)

		_, _ = w.Write(whiteboardCSS)
	}
}

func getJsHandler(cfg *Config) func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		w.Header().Set("Content-Type", "application/javascript; charset=utf-8")
		w.Header().Set("Cache-Control", "public, max-age=3600")
		w.Header().Set("Expires", time.Now().Add(time.Hour).UTC().Format(http.TimeFormat))
		securityHeaders(cfg, w)

		_, _ = w.Write(whiteboardJS)
	}
}

// registerWhiteboardGame sets up routes so that:
//   - $path                  → HTML client (create/join from there)
//   - $path/:code            → HTML client for an existing game
//   - $path/:code/state      → JSON state snapshot
//   - $path/:code/ws         → WebSocket state pushes for that game
//   - $path/:code/qr         → PNG QR code for that game URL
//   - $path/create|join|ready|submit → mutating operations (POST)
func registerWhiteboardGame(cfg *Config, path string, mux *httprouter.Router, engine *game.Engine) {
	hub := newWatchHub()

	mux.GET(cfg.prefix+path, getIndexHandler(cfg))
	mux.GET(cfg.prefix+path+"/:code", getIndexHandler(cfg))

	// Shared assets (no game code in route)
	mux.GET(cfg.prefix+"/assets/whiteboard/app.css", getCssHandler(cfg))
	mux.GET(cfg.prefix+"/assets/whiteboard/app.js", getJsHandler(cfg))

	mux.GET(cfg.prefix+path+"/:code/state", serveGameState(cfg, engine))
	mux.GET(cfg.prefix+path+"/:code/ws", serveWatch(cfg, engine, hub))
	mux.GET(cfg.prefix+path+"/:code/qr", qrHandler)

	mux.POST(cfg.prefix+path+"/create", serveCreateGame(cfg, engine))
	mux.POST(cfg.prefix+path+"/join", serveJoinGame(cfg, engine, hub))
	mux.POST(cfg.prefix+path+"/ready", serveReady(cfg, engine, hub))
	mux.POST(cfg.prefix+path+"/submit", serveSubmitAnswer(cfg, engine, hub))
}
