package game

import "errors"

// Client-facing errors. The transport maps these onto HTTP status codes;
// none are retryable without correcting the request.
var (
	ErrGameNotFound   = errors.New("game not found")
	ErrPlayerNotFound = errors.New("player not found")
	ErrWrongState     = errors.New("operation not valid in current game state")
	ErrMissingField   = errors.New("missing or empty field")

	// ErrCodeInUse is returned by Store.Create when a code is already taken.
	// The engine retries with a fresh code.
	ErrCodeInUse = errors.New("game code already in use")
)
