package ponggame

// EventName tags every payload shape delivered through the room
// gateway; one payload type per event kind.
type EventName string

const (
	EventMatched          EventName = "matched"
	EventProposalChanged  EventName = "proposalChanged"
	EventMatchStart       EventName = "matchStart"
	EventMatchStateUpdate EventName = "matchStateUpdate"
	EventMatchLeave       EventName = "matchLeave"
)

// MatchedPayload announces that two queued players were paired into a
// proposal.
type MatchedPayload struct {
	ProposalID int64 `json:"proposalId"`
}

// ProposalSlotView is one player's side of a proposal.
type ProposalSlotView struct {
	PlayerID    PlayerID `json:"playerId"`
	HasAccepted bool     `json:"hasAccepted"`
}

// ProposalView is the full negotiation state broadcast after every
// proposal change.
type ProposalView struct {
	ProposalID int64               `json:"proposalId"`
	Status     ProposalStatus      `json:"status"`
	Rules      Rules               `json:"rules"`
	Players    [2]ProposalSlotView `json:"players"`
}

// MatchStartPayload announces a freshly promoted match.
type MatchStartPayload struct {
	MatchID int64 `json:"matchId"`
}

// PlayerSnapshot is one player's side of a match state update.
type PlayerSnapshot struct {
	PlayerID     PlayerID `json:"playerId"`
	PaddlePos    float64  `json:"paddlePos"`
	Score        int      `json:"score"`
	Disconnected bool     `json:"disconnected"`
}

// BallSnapshot is the ball center position.
type BallSnapshot struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// MatchSnapshot is the full state update broadcast to the match room on
// every tick. CountdownMs is set while a ball reset is pending.
type MatchSnapshot struct {
	MatchID     int64             `json:"matchId"`
	Status      MatchStatus       `json:"status"`
	Players     [2]PlayerSnapshot `json:"players"`
	Ball        BallSnapshot      `json:"ball"`
	CountdownMs *int64            `json:"countdownMs,omitempty"`
}

// MatchLeavePayload announces that a participant abandoned the game.
type MatchLeavePayload struct {
	PlayerID PlayerID `json:"playerId"`
	MatchID  int64    `json:"matchId"`
}
