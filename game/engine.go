package game

import (
	"crypto/rand"
	"errors"
	"strings"

	"github.com/google/uuid"
)

const (
	// MinPlayers is the smallest lobby that can start a round.
	MinPlayers = 3

	// WinningScore ends the game for the first player to reach it.
	WinningScore = 20

	codeLength = 6
)

// Engine drives one game at a time through the lobby → playing → scoring →
// finished lifecycle. All mutations run inside a single Store.Update call,
// so concurrent requests against the same game cannot interleave and score
// deltas land atomically.
type Engine struct {
	store Store
	words WordSource
}

// NewEngine wires an engine to its collaborators.
func NewEngine(store Store, words WordSource) *Engine {
	return &Engine{
		store: store,
		words: words,
	}
}

// CreateGame allocates a fresh unique code and an empty lobby-state game.
func (e *Engine) CreateGame() (string, error) {
	for {
		code, err := randomCode(codeLength)
		if err != nil {
			return "", err
		}

		err = e.store.Create(NewGame(code))
		if errors.Is(err, ErrCodeInUse) {
			continue
		}
		if err != nil {
			return "", err
		}

		return code, nil
	}
}

// JoinGame adds a named player to a lobby and returns their opaque ID.
// Joining is limited to the lobby: a player added mid-round would have no
// answer and stall the everyone-answered check forever.
func (e *Engine) JoinGame(code, name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", ErrMissingField
	}

	playerID := uuid.NewString()

	_, err := e.store.Update(code, func(g *Game) error {
		if g.State != StateLobby {
			return ErrWrongState
		}
		g.Players[playerID] = &Player{Name: name}
		g.Order = append(g.Order, playerID)
		return nil
	})
	if err != nil {
		return "", err
	}

	return playerID, nil
}

// SetReady marks a player ready. In the lobby this is the "ready to start"
// signal: once at least MinPlayers have joined and everyone is ready, the
// first round begins. In scoring it is the "ready to continue" signal: once
// everyone has re-readied, the next round begins. Readiness has no meaning
// while a round is being played, and finished games accept no mutations.
func (e *Engine) SetReady(code, playerID string) (*Snapshot, error) {
	g, err := e.store.Update(code, func(g *Game) error {
		p, ok := g.Players[playerID]
		if !ok {
			return ErrPlayerNotFound
		}

		switch g.State {
		case StateLobby:
			p.Ready = true
			if len(g.Players) >= MinPlayers && g.allReady() {
				e.startRound(g)
			}
		case StateScoring:
			p.Ready = true
			if g.allReady() {
				e.startRound(g)
			}
		default:
			return ErrWrongState
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return g.View(), nil
}

// SubmitAnswer normalizes and records a player's answer for the current
// round. Resubmitting overwrites. The final answer of a round triggers
// scoring within the same atomic update.
func (e *Engine) SubmitAnswer(code, playerID, text string) (*Snapshot, error) {
	answer := strings.ToLower(strings.TrimSpace(text))
	if answer == "" {
		return nil, ErrMissingField
	}

	g, err := e.store.Update(code, func(g *Game) error {
		p, ok := g.Players[playerID]
		if !ok {
			return ErrPlayerNotFound
		}
		if g.State != StatePlaying {
			return ErrWrongState
		}

		p.Answer = answer
		if g.allAnswered() {
			e.scoreRound(g)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return g.View(), nil
}

// State returns a read-only snapshot of a game.
func (e *Engine) State(code string) (*Snapshot, error) {
	g, err := e.store.Snapshot(code)
	if err != nil {
		return nil, err
	}
	return g.View(), nil
}

// startRound picks a fresh word, bumps the round counter, and moves the
// game into the playing state with all answers cleared.
func (e *Engine) startRound(g *Game) {
	// Treat the pool as exhausted once 80% of the bank has been shown, and
	// recycle so repeats become possible again.
	if 5*len(g.UsedWords) >= 4*e.words.Size() {
		g.UsedWords = make(map[string]bool)
	}

	word := e.words.Pick(g.UsedWords)
	g.UsedWords[word] = true

	// Ready flags only need clearing between rounds; on the one-time lobby
	// start they are left alone, since the lobby is never re-entered.
	if g.State == StateScoring {
		for _, p := range g.Players {
			p.Ready = false
		}
	}

	g.Round++
	g.CurrentWord = word
	g.State = StatePlaying
	for _, p := range g.Players {
		p.Answer = ""
	}
}

// scoreRound applies this round's points and either finishes the game or
// parks it in scoring until every player re-readies. Runs exactly once per
// round, on the update that records the final answer.
func (e *Engine) scoreRound(g *Game) {
	answers := make([]string, 0, len(g.Players))
	for _, p := range g.Players {
		answers = append(answers, p.Answer)
	}
	points := answerPoints(answers)

	for _, p := range g.Players {
		p.Score += points[p.Answer]
	}

	for _, id := range g.Order {
		if g.Players[id].Score >= WinningScore {
			g.State = StateFinished
			g.Winner = g.Players[id].Name
			return
		}
	}

	g.State = StateScoring
	for _, p := range g.Players {
		p.Ready = false
	}
}

// answerPoints maps each distinct answer to the points every holder of that
// answer earns: an exact pair scores 3 each, a larger cluster 1 each, and a
// unique answer nothing.
func answerPoints(answers []string) map[string]int {
	counts := make(map[string]int, len(answers))
	for _, a := range answers {
		counts[a]++
	}

	points := make(map[string]int, len(counts))
	for a, n := range counts {
		switch {
		case n == 2:
			points[a] = 3
		case n > 2:
			points[a] = 1
		default:
			points[a] = 0
		}
	}
	return points
}

// randomCode returns a short random game code, in the style of the session
// IDs used elsewhere in this codebase.
func randomCode(n int) (string, error) {
	const letters = "abcdefghijklmnopqrstuvwxyz0123456789"

	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	for i, b := range buf {
		buf[i] = letters[int(b)%len(letters)]
	}
	return string(buf), nil
}
