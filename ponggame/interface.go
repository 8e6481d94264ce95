package ponggame

import (
	"context"
	"fmt"
	"time"

	"github.com/decred/slog"
)

// PlayerID is the opaque, prevalidated identity of a player. Ownership
// and authentication live outside this package.
type PlayerID int64

// Room name prefixes kept wire-compatible with the historical clients.
const (
	proposalRoomPrefix = "Game_In_Creation-"
	matchRoomPrefix    = "Game-"
)

func proposalRoom(id int64) string { return fmt.Sprintf("%s%d", proposalRoomPrefix, id) }
func matchRoom(id int64) string    { return fmt.Sprintf("%s%d", matchRoomPrefix, id) }

// RoomGateway fans JSON-shaped events out to the sockets subscribed to
// a named room. Delivery is best effort; the engine never blocks on it.
type RoomGateway interface {
	AddToRoom(room string, player PlayerID)
	RemoveFromRoom(room string, player PlayerID)
	Broadcast(room string, event EventName, payload any)
	SendToPlayer(player PlayerID, event EventName, payload any)
	DeleteRoom(room string)
}

// MatchStore is the durable side of a match: the record created at
// promotion and the participant outcomes written at the end.
type MatchStore interface {
	CreateMatchRecord(ctx context.Context, rules Rules, playerA, playerB PlayerID) (int64, error)
	UpdateParticipant(ctx context.Context, matchID int64, player PlayerID, score int, isWinner bool) error
	SetMatchStatus(ctx context.Context, matchID int64, status MatchStatus, finishedAt *time.Time) error
}

// AchievementEvaluator is the best-effort hook fired for each
// participant after a natural finish. Failures never affect teardown.
type AchievementEvaluator interface {
	EvaluateAchievements(ctx context.Context, matchID int64, player PlayerID, finalScore int, rules Rules) error
}

// MatchDeps bundles the collaborators a match needs for its lifetime.
type MatchDeps struct {
	Gateway      RoomGateway
	Store        MatchStore
	Achievements AchievementEvaluator
	Log          slog.Logger
}
