package store

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/chriselgee/whiteboard/game"
)

func newTestSQLite(t *testing.T) *SQLite {
	t.Helper()

	s, err := NewSQLite(filepath.Join(t.TempDir(), "games.db"))
	if err != nil {
		t.Fatalf("unable to open sqlite store: %s", err)
	}
	t.Cleanup(func() { _ = s.Close() })

	return s
}

func TestSQLiteRoundTrip(t *testing.T) {
	s := newTestSQLite(t)

	g := game.NewGame("abc123")
	g.Players["p1"] = &game.Player{Name: "alice"}
	g.Order = append(g.Order, "p1")

	if err := s.Create(g); err != nil {
		t.Fatalf("unable to create game: %s", err)
	}
	if err := s.Create(game.NewGame("abc123")); !errors.Is(err, game.ErrCodeInUse) {
		t.Errorf("duplicate code should fail with ErrCodeInUse, got %v", err)
	}

	got, err := s.Snapshot("abc123")
	if err != nil {
		t.Fatalf("unable to read game: %s", err)
	}
	if got.State != game.StateLobby || got.Players["p1"].Name != "alice" {
		t.Errorf("unexpected game after round trip: %+v", got)
	}
	if len(got.Order) != 1 || got.Order[0] != "p1" {
		t.Errorf("join order lost in round trip: %+v", got.Order)
	}
}

func TestSQLiteNotFound(t *testing.T) {
	s := newTestSQLite(t)

	if _, err := s.Snapshot("nope"); !errors.Is(err, game.ErrGameNotFound) {
		t.Errorf("expected ErrGameNotFound, got %v", err)
	}
	if _, err := s.Update("nope", func(*game.Game) error { return nil }); !errors.Is(err, game.ErrGameNotFound) {
		t.Errorf("expected ErrGameNotFound, got %v", err)
	}
}

func TestSQLiteUpdate(t *testing.T) {
	s := newTestSQLite(t)
	if err := s.Create(game.NewGame("abc123")); err != nil {
		t.Fatalf("unable to create game: %s", err)
	}

	got, err := s.Update("abc123", func(g *game.Game) error {
		g.State = game.StatePlaying
		g.Round = 1
		g.CurrentWord = "honey"
		g.UsedWords["honey"] = true
		return nil
	})
	if err != nil {
		t.Fatalf("unable to update game: %s", err)
	}
	if got.State != game.StatePlaying || got.CurrentWord != "honey" {
		t.Errorf("update not applied: %+v", got)
	}

	stored, err := s.Snapshot("abc123")
	if err != nil {
		t.Fatalf("unable to read game: %s", err)
	}
	if stored.Round != 1 || !stored.UsedWords["honey"] {
		t.Errorf("update not persisted: %+v", stored)
	}
}

func TestSQLiteFailedUpdateRollsBack(t *testing.T) {
	s := newTestSQLite(t)
	if err := s.Create(game.NewGame("abc123")); err != nil {
		t.Fatalf("unable to create game: %s", err)
	}

	boom := errors.New("boom")
	_, err := s.Update("abc123", func(g *game.Game) error {
		g.Round = 99
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected fn's error back, got %v", err)
	}

	stored, err := s.Snapshot("abc123")
	if err != nil {
		t.Fatalf("unable to read game: %s", err)
	}
	if stored.Round != 0 {
		t.Errorf("failed update should roll back, got round %d", stored.Round)
	}
}

func TestSQLiteSurvivesReopen(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "games.db")

	s, err := NewSQLite(path)
	if err != nil {
		t.Fatalf("unable to open sqlite store: %s", err)
	}

	g := game.NewGame("abc123")
	g.Round = 2
	if err := s.Create(g); err != nil {
		t.Fatalf("unable to create game: %s", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("unable to close store: %s", err)
	}

	reopened, err := NewSQLite(path)
	if err != nil {
		t.Fatalf("unable to reopen sqlite store: %s", err)
	}
	defer reopened.Close()

	stored, err := reopened.Snapshot("abc123")
	if err != nil {
		t.Fatalf("unable to read game after reopen: %s", err)
	}
	if stored.Round != 2 {
		t.Errorf("game should survive a reopen, got %+v", stored)
	}
}
