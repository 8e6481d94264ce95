package ponggame

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

const (
	playerA  PlayerID = 10
	playerB  PlayerID = 20
	outsider PlayerID = 99
)

func TestProposal_Defaults(t *testing.T) {
	prop := NewProposal(1, playerA, playerB)

	v := prop.View()
	assert.Equal(t, int64(1), v.ProposalID)
	assert.Equal(t, ProposalInCreation, v.Status)
	assert.Equal(t, DefaultRules(), v.Rules)
	assert.Equal(t, playerA, v.Players[0].PlayerID)
	assert.Equal(t, playerB, v.Players[1].PlayerID)
	assert.False(t, v.Players[0].HasAccepted)
	assert.False(t, v.Players[1].HasAccepted)
	assert.False(t, prop.HasMatched())

	assert.True(t, prop.HasPlayer(playerA))
	assert.True(t, prop.HasPlayer(playerB))
	assert.False(t, prop.HasPlayer(outsider))
}

func TestProposal_UpdateRulesRevokesAcceptances(t *testing.T) {
	prop := NewProposal(1, playerA, playerB)
	assert.NoError(t, prop.Accept(playerA, true))

	rules := DefaultRules()
	rules.ScoreToWin = 7
	rules.BallSpeed = SpeedFast
	assert.NoError(t, prop.UpdateRules(playerB, rules))

	v := prop.View()
	assert.Equal(t, rules, v.Rules)
	assert.False(t, v.Players[0].HasAccepted, "rule edit revokes prior acceptance")
	assert.False(t, v.Players[1].HasAccepted)
}

func TestProposal_UpdateRulesGuards(t *testing.T) {
	prop := NewProposal(1, playerA, playerB)

	assert.ErrorIs(t, prop.UpdateRules(outsider, DefaultRules()), ErrNotInMatch)

	bad := DefaultRules()
	bad.ScoreToWin = 42
	assert.ErrorIs(t, prop.UpdateRules(playerA, bad), ErrInvalidRules)

	assert.NoError(t, prop.Accept(playerA, true))
	assert.NoError(t, prop.Accept(playerB, true))
	assert.ErrorIs(t, prop.UpdateRules(playerA, DefaultRules()), ErrAlreadyAccepted)
}

func TestProposal_AcceptHandshake(t *testing.T) {
	prop := NewProposal(1, playerA, playerB)

	assert.ErrorIs(t, prop.Accept(outsider, true), ErrNotInMatch)

	assert.NoError(t, prop.Accept(playerA, true))
	assert.False(t, prop.HasMatched(), "one acceptance is not a match")

	// Retracting and re-accepting works while unmatched.
	assert.NoError(t, prop.Accept(playerA, false))
	assert.NoError(t, prop.Accept(playerA, true))

	assert.NoError(t, prop.Accept(playerB, true))
	assert.True(t, prop.HasMatched())

	assert.ErrorIs(t, prop.Accept(playerA, true), ErrAlreadyAccepted)
	assert.ErrorIs(t, prop.Accept(playerB, false), ErrAlreadyAccepted)
}

func TestProposal_Promote(t *testing.T) {
	gw := newFakeGateway()
	st := &fakeStore{}
	prop := NewProposal(1, playerA, playerB)

	_, err := prop.Promote(context.Background(), testDeps(gw, st, nil))
	assert.ErrorIs(t, err, ErrNotMatched)

	assert.NoError(t, prop.Accept(playerA, true))
	assert.NoError(t, prop.Accept(playerB, true))

	match, err := prop.Promote(context.Background(), testDeps(gw, st, nil))
	assert.NoError(t, err)
	assert.NotNil(t, match)
	assert.Equal(t, int64(1), match.ID(), "id assigned by persistence")
	assert.True(t, match.HasPlayer(playerA))
	assert.True(t, match.HasPlayer(playerB))

	starts := gw.eventsNamed(EventMatchStart)
	assert.Len(t, starts, 1)

	// Promoting twice is impossible.
	_, err = prop.Promote(context.Background(), testDeps(gw, st, nil))
	assert.ErrorIs(t, err, ErrAlreadyStarted)

	match.Cancel()
}
