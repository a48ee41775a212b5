package store

import (
	"errors"
	"sync"
	"testing"

	"github.com/chriselgee/whiteboard/game"
)

func TestMemoryCreateAndSnapshot(t *testing.T) {
	m := NewMemory()

	g := game.NewGame("abc123")
	if err := m.Create(g); err != nil {
		t.Fatalf("unable to create game: %s", err)
	}

	if err := m.Create(game.NewGame("abc123")); !errors.Is(err, game.ErrCodeInUse) {
		t.Errorf("duplicate code should fail with ErrCodeInUse, got %v", err)
	}

	got, err := m.Snapshot("abc123")
	if err != nil {
		t.Fatalf("unable to read game: %s", err)
	}
	if got.Code != "abc123" || got.State != game.StateLobby {
		t.Errorf("unexpected game: %+v", got)
	}

	// Snapshots are copies; mutating one must not leak into the store.
	got.State = game.StatePlaying
	again, err := m.Snapshot("abc123")
	if err != nil {
		t.Fatalf("unable to re-read game: %s", err)
	}
	if again.State != game.StateLobby {
		t.Error("snapshot mutation leaked into the store")
	}
}

func TestMemoryNotFound(t *testing.T) {
	m := NewMemory()

	if _, err := m.Snapshot("nope"); !errors.Is(err, game.ErrGameNotFound) {
		t.Errorf("expected ErrGameNotFound, got %v", err)
	}
	if _, err := m.Update("nope", func(*game.Game) error { return nil }); !errors.Is(err, game.ErrGameNotFound) {
		t.Errorf("expected ErrGameNotFound, got %v", err)
	}
}

func TestMemoryUpdate(t *testing.T) {
	m := NewMemory()
	if err := m.Create(game.NewGame("abc123")); err != nil {
		t.Fatalf("unable to create game: %s", err)
	}

	got, err := m.Update("abc123", func(g *game.Game) error {
		g.Round = 3
		g.Players["p1"] = &game.Player{Name: "alice", Score: 5}
		g.Order = append(g.Order, "p1")
		return nil
	})
	if err != nil {
		t.Fatalf("unable to update game: %s", err)
	}
	if got.Round != 3 || got.Players["p1"].Score != 5 {
		t.Errorf("update not applied: %+v", got)
	}

	stored, err := m.Snapshot("abc123")
	if err != nil {
		t.Fatalf("unable to read game: %s", err)
	}
	if stored.Round != 3 {
		t.Errorf("update not persisted: %+v", stored)
	}
}

func TestMemoryFailedUpdateChangesNothing(t *testing.T) {
	m := NewMemory()
	if err := m.Create(game.NewGame("abc123")); err != nil {
		t.Fatalf("unable to create game: %s", err)
	}

	boom := errors.New("boom")
	_, err := m.Update("abc123", func(g *game.Game) error {
		g.Round = 99
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected fn's error back, got %v", err)
	}

	stored, err := m.Snapshot("abc123")
	if err != nil {
		t.Fatalf("unable to read game: %s", err)
	}
	if stored.Round != 0 {
		t.Errorf("failed update should leave the game untouched, got round %d", stored.Round)
	}
}

func TestMemoryUpdatesAreSerialized(t *testing.T) {
	m := NewMemory()
	if err := m.Create(game.NewGame("abc123")); err != nil {
		t.Fatalf("unable to create game: %s", err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := m.Update("abc123", func(g *game.Game) error {
				g.Round++
				return nil
			})
			if err != nil {
				t.Errorf("unable to update game: %s", err)
			}
		}()
	}
	wg.Wait()

	stored, err := m.Snapshot("abc123")
	if err != nil {
		t.Fatalf("unable to read game: %s", err)
	}
	if stored.Round != 50 {
		t.Errorf("expected 50 serialized increments, got %d", stored.Round)
	}
}
