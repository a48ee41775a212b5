package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	_ "modernc.org/sqlite"

	"github.com/chriselgee/whiteboard/game"
)

// SQLite persists each game as one JSON document, updated inside a
// transaction so score deltas and state transitions land atomically.
// Writes are additionally serialized per process; sqlite allows only one
// writer at a time anyway.
type SQLite struct {
	db *sql.DB
	mu sync.Mutex
}

// NewSQLite opens (and if needed bootstraps) a sqlite database at path.
func NewSQLite(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	// WAL keeps readers from blocking the writer.
	if _, err := db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout=5000;"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}

	schema := `CREATE TABLE IF NOT EXISTS games (
		code TEXT PRIMARY KEY,
		data TEXT NOT NULL,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	return &SQLite{db: db}, nil
}

// Close releases the underlying database handle.
func (s *SQLite) Close() error {
	return s.db.Close()
}

func (s *SQLite) Create(g *game.Game) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.Marshal(g)
	if err != nil {
		return err
	}

	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var exists int
	err = tx.QueryRow("SELECT 1 FROM games WHERE code = ?", g.Code).Scan(&exists)
	switch {
	case err == nil:
		return game.ErrCodeInUse
	case !errors.Is(err, sql.ErrNoRows):
		return err
	}

	if _, err := tx.Exec("INSERT INTO games (code, data) VALUES (?, ?)", g.Code, string(data)); err != nil {
		return err
	}

	return tx.Commit()
}

func (s *SQLite) Snapshot(code string) (*game.Game, error) {
	var data string
	err := s.db.QueryRow("SELECT data FROM games WHERE code = ?", code).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, game.ErrGameNotFound
	}
	if err != nil {
		return nil, err
	}

	return decodeGame(data)
}

func (s *SQLite) Update(code string, fn func(*game.Game) error) (*game.Game, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	var data string
	err = tx.QueryRow("SELECT data FROM games WHERE code = ?", code).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, game.ErrGameNotFound
	}
	if err != nil {
		return nil, err
	}

	g, err := decodeGame(data)
	if err != nil {
		return nil, err
	}

	if err := fn(g); err != nil {
		return nil, err
	}

	next, err := json.Marshal(g)
	if err != nil {
		return nil, err
	}

	if _, err := tx.Exec(
		"UPDATE games SET data = ?, updated_at = CURRENT_TIMESTAMP WHERE code = ?",
		string(next), code,
	); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	return g, nil
}

func decodeGame(data string) (*game.Game, error) {
	g := &game.Game{}
	if err := json.Unmarshal([]byte(data), g); err != nil {
		return nil, fmt.Errorf("decoding game record: %w", err)
	}
	if g.Players == nil {
		g.Players = make(map[string]*game.Player)
	}
	if g.UsedWords == nil {
		g.UsedWords = make(map[string]bool)
	}
	return g, nil
}
