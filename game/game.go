// Package game implements the core logic of the whiteboard party game:
// players join a shared game by code, answer a prompt word each round, and
// score points by matching other players' answers.
package game

// State is the single source of truth for which operations a game accepts.
type State string

const (
	StateLobby    State = "lobby"
	StatePlaying  State = "playing"
	StateScoring  State = "scoring"
	StateFinished State = "finished"
)

func (s State) String() string {
	return string(s)
}

// Player holds the data we store server-side for one participant.
type Player struct {
	Name  string `json:"name"`
	Score int    `json:"score"`
	Ready bool   `json:"ready"`
	// Answer is the normalized current-round submission, or "" before the
	// player has answered this round.
	Answer string `json:"answer,omitempty"`
}

// Game is the aggregate for one session, keyed by its short join code.
type Game struct {
	Code        string             `json:"code"`
	State       State              `json:"state"`
	Round       int                `json:"round"`
	CurrentWord string             `json:"current_word,omitempty"`
	Players     map[string]*Player `json:"players"`
	// Order lists player IDs in join order. Winner scans walk it, so "first
	// player at the winning score" always means the earliest joiner.
	Order     []string        `json:"order"`
	UsedWords map[string]bool `json:"used_words,omitempty"`
	Winner    string          `json:"winner,omitempty"`
}

// NewGame returns an empty game in the lobby state.
func NewGame(code string) *Game {
	return &Game{
		Code:      code,
		State:     StateLobby,
		Players:   make(map[string]*Player),
		UsedWords: make(map[string]bool),
	}
}

// Clone deep-copies the aggregate so callers can mutate freely.
func (g *Game) Clone() *Game {
	c := &Game{
		Code:        g.Code,
		State:       g.State,
		Round:       g.Round,
		CurrentWord: g.CurrentWord,
		Players:     make(map[string]*Player, len(g.Players)),
		Order:       append([]string(nil), g.Order...),
		UsedWords:   make(map[string]bool, len(g.UsedWords)),
		Winner:      g.Winner,
	}
	for id, p := range g.Players {
		cp := *p
		c.Players[id] = &cp
	}
	for w := range g.UsedWords {
		c.UsedWords[w] = true
	}
	return c
}

func (g *Game) allReady() bool {
	for _, p := range g.Players {
		if !p.Ready {
			return false
		}
	}
	return true
}

func (g *Game) allAnswered() bool {
	for _, p := range g.Players {
		if p.Answer == "" {
			return false
		}
	}
	return true
}

// PlayerView is the per-player slice of a state snapshot.
type PlayerView struct {
	ID     string `json:"player_id"`
	Name   string `json:"name"`
	Score  int    `json:"score"`
	Ready  bool   `json:"ready"`
	Answer string `json:"answer,omitempty"`
}

// Snapshot is a read-only projection of a game, in the shape returned to
// clients.
type Snapshot struct {
	Code        string       `json:"game_code"`
	State       State        `json:"state"`
	Round       int          `json:"round"`
	CurrentWord string       `json:"current_word,omitempty"`
	Players     []PlayerView `json:"players"`
	Winner      string       `json:"winner,omitempty"`
}

// View projects the game into a snapshot, players in join order.
func (g *Game) View() *Snapshot {
	s := &Snapshot{
		Code:        g.Code,
		State:       g.State,
		Round:       g.Round,
		CurrentWord: g.CurrentWord,
		Players:     make([]PlayerView, 0, len(g.Players)),
		Winner:      g.Winner,
	}
	for _, id := range g.Order {
		p, ok := g.Players[id]
		if !ok {
			continue
		}
		s.Players = append(s.Players, PlayerView{
			ID:     id,
			Name:   p.Name,
			Score:  p.Score,
			Ready:  p.Ready,
			Answer: p.Answer,
		})
	}
	return s
}
