// Package store provides persistence backends for game aggregates. The
// memory backend is the default; the sqlite backend survives restarts.
package store

import (
	"sync"

	"github.com/chriselgee/whiteboard/game"
)

type entry struct {
	mu sync.Mutex
	g  *game.Game
}

// Memory keeps games in a process-local map. Each game carries its own
// lock, so updates to one game never block another.
type Memory struct {
	mu    sync.RWMutex
	games map[string]*entry
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		games: make(map[string]*entry),
	}
}

func (m *Memory) Create(g *game.Game) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.games[g.Code]; ok {
		return game.ErrCodeInUse
	}
	m.games[g.Code] = &entry{g: g.Clone()}
	return nil
}

func (m *Memory) Snapshot(code string) (*game.Game, error) {
	e, err := m.entry(code)
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	return e.g.Clone(), nil
}

func (m *Memory) Update(code string, fn func(*game.Game) error) (*game.Game, error) {
	e, err := m.entry(code)
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	// fn works on a copy, so a mid-update failure leaves the stored
	// aggregate exactly as it was.
	next := e.g.Clone()
	if err := fn(next); err != nil {
		return nil, err
	}
	e.g = next

	return next.Clone(), nil
}

func (m *Memory) entry(code string) (*entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	e, ok := m.games[code]
	if !ok {
		return nil, game.ErrGameNotFound
	}
	return e, nil
}
