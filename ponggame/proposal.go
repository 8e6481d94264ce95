package ponggame

import (
	"context"
	"fmt"
	"sync"
)

// ProposalStatus tracks whether a proposal is still negotiable or has
// been promoted to a running match.
type ProposalStatus string

const (
	ProposalInCreation ProposalStatus = "IN_CREATION"
	ProposalInProgress ProposalStatus = "IN_PROGRESS"
)

type proposalSlot struct {
	playerID    PlayerID
	hasAccepted bool
}

// Proposal is the pre-match negotiation state between exactly two
// candidate players: rule editing plus a mutual-acceptance handshake.
type Proposal struct {
	sync.RWMutex
	id         int64
	rules      Rules
	status     ProposalStatus
	players    [2]proposalSlot
	hasMatched bool
}

// NewProposal pairs two players with the default rules and no
// acceptances.
func NewProposal(id int64, playerA, playerB PlayerID) *Proposal {
	return &Proposal{
		id:     id,
		rules:  DefaultRules(),
		status: ProposalInCreation,
		players: [2]proposalSlot{
			{playerID: playerA},
			{playerID: playerB},
		},
	}
}

func (p *Proposal) ID() int64 { return p.id }

// HasPlayer reports whether the given player occupies one of the two
// slots.
func (p *Proposal) HasPlayer(player PlayerID) bool {
	p.RLock()
	defer p.RUnlock()
	return p.slotLocked(player) >= 0
}

// HasMatched reports whether both slots accepted simultaneously.
func (p *Proposal) HasMatched() bool {
	p.RLock()
	defer p.RUnlock()
	return p.hasMatched
}

func (p *Proposal) slotLocked(player PlayerID) int {
	for i := range p.players {
		if p.players[i].playerID == player {
			return i
		}
	}
	return -1
}

func (p *Proposal) guardLocked(player PlayerID) error {
	if p.slotLocked(player) < 0 {
		return ErrNotInMatch
	}
	if p.status != ProposalInCreation {
		return ErrAlreadyStarted
	}
	if p.players[0].hasAccepted && p.players[1].hasAccepted {
		return ErrAlreadyAccepted
	}
	return nil
}

// UpdateRules replaces the negotiated rules wholesale. Any edit revokes
// both prior acceptances.
func (p *Proposal) UpdateRules(player PlayerID, rules Rules) error {
	if err := rules.Validate(); err != nil {
		return err
	}
	p.Lock()
	defer p.Unlock()
	if err := p.guardLocked(player); err != nil {
		return err
	}
	p.rules = rules
	p.players[0].hasAccepted = false
	p.players[1].hasAccepted = false
	return nil
}

// Accept records the caller's acceptance flag. Once both slots accept,
// the proposal is matched and further accepts fail.
func (p *Proposal) Accept(player PlayerID, hasAccepted bool) error {
	p.Lock()
	defer p.Unlock()
	if err := p.guardLocked(player); err != nil {
		return err
	}
	p.players[p.slotLocked(player)].hasAccepted = hasAccepted
	if p.players[0].hasAccepted && p.players[1].hasAccepted {
		p.hasMatched = true
	}
	return nil
}

// View returns the full negotiation state for broadcasting.
func (p *Proposal) View() ProposalView {
	p.RLock()
	defer p.RUnlock()
	v := ProposalView{
		ProposalID: p.id,
		Status:     p.status,
		Rules:      p.rules,
	}
	for i, slot := range p.players {
		v.Players[i] = ProposalSlotView{PlayerID: slot.playerID, HasAccepted: slot.hasAccepted}
	}
	return v
}

// Promote persists a new match record and constructs the running Match
// with the frozen rules. Valid exactly once, and only after both
// players accepted. The status flips only after the record write
// succeeds, so a failed promotion stays retryable.
func (p *Proposal) Promote(ctx context.Context, deps MatchDeps) (*Match, error) {
	p.Lock()
	defer p.Unlock()
	if !p.hasMatched {
		return nil, ErrNotMatched
	}
	if p.status != ProposalInCreation {
		return nil, ErrAlreadyStarted
	}
	matchID, err := deps.Store.CreateMatchRecord(ctx, p.rules, p.players[0].playerID, p.players[1].playerID)
	if err != nil {
		return nil, fmt.Errorf("create match record: %w", err)
	}
	p.status = ProposalInProgress
	return NewMatch(ctx, matchID, p.rules, p.players[0].playerID, p.players[1].playerID, deps), nil
}
