package ponggame

import "errors"

// Sentinel errors returned by the matchmaking and match operations. The
// transport layer maps them onto response codes.
var (
	ErrNotQueued       = errors.New("player is not queued")
	ErrAlreadyQueued   = errors.New("player is already queued")
	ErrNotInMatch      = errors.New("player not part of this game")
	ErrNotFound        = errors.New("game not found")
	ErrAlreadyStarted  = errors.New("game has already started")
	ErrAlreadyAccepted = errors.New("game was already accepted by both players")
	ErrNotMatched      = errors.New("game is not matched yet")
	ErrInvalidRules    = errors.New("invalid game rules")
)
