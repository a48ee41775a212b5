package game

// Store persists Game aggregates keyed by their join code. Implementations
// may be backed by memory, sqlite, or anything else that can satisfy the
// contract below.
//
// Operations on different codes are fully independent. For a single code,
// Update must serialize callers: fn receives the current aggregate, and the
// result is persisted as one atomic unit, so read-modify-write sequences
// (readiness tallies, answer tallies, score deltas) never interleave. If fn
// returns an error, nothing is persisted.
type Store interface {
	// Create persists a new game, failing with ErrCodeInUse if the code is
	// already taken.
	Create(g *Game) error

	// Snapshot returns a copy of the game that the caller may read freely,
	// or ErrGameNotFound.
	Snapshot(code string) (*Game, error)

	// Update applies fn to the stored game under that game's lock and
	// persists the result atomically, returning a copy of the updated
	// aggregate. Returns ErrGameNotFound if no such game exists, or fn's
	// error unchanged with the stored game untouched.
	Update(code string, fn func(*Game) error) (*Game, error)
}
