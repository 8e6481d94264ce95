package ponggame

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/decred/slog"
	"github.com/go-co-op/gocron/v2"
)

// reapInterval paces the background sweep of finished matches.
const reapInterval = time.Second

// MatchmakingState is the answer to "where is this player right now".
type MatchmakingState string

const (
	MatchmakingWaiting    MatchmakingState = "WAITING"
	MatchmakingInProposal MatchmakingState = "IN_PROPOSAL"
	MatchmakingInMatch    MatchmakingState = "IN_MATCH"
	MatchmakingNone       MatchmakingState = "NONE"
)

// MatchmakingStatus carries the state plus the id of the proposal or
// match the player is in, when applicable.
type MatchmakingStatus struct {
	Status     MatchmakingState `json:"status"`
	ProposalID *int64           `json:"proposalId,omitempty"`
	MatchID    *int64           `json:"matchId,omitempty"`
}

// CoordinatorConfig wires the coordinator's collaborators.
type CoordinatorConfig struct {
	Gateway      RoomGateway
	Store        MatchStore
	Achievements AchievementEvaluator
	Log          slog.Logger
}

// Coordinator is the process-wide registry of the waiting queue, the
// proposals under negotiation and the in-progress matches. All three
// collections are owned by this one instance and mutated only through
// its methods; gateway calls happen outside the registry lock.
type Coordinator struct {
	mu        sync.RWMutex
	waiting   []PlayerID
	proposals map[int64]*Proposal
	matches   map[int64]*Match

	nextProposalID atomic.Int64

	cfg   CoordinatorConfig
	log   slog.Logger
	sched gocron.Scheduler

	ctx    context.Context
	cancel context.CancelFunc
}

// NewCoordinator builds an empty registry. The reaper does not run
// until StartReaper.
func NewCoordinator(cfg CoordinatorConfig) *Coordinator {
	if cfg.Log == nil {
		cfg.Log = slog.Disabled
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Coordinator{
		waiting:   nil,
		proposals: make(map[int64]*Proposal),
		matches:   make(map[int64]*Match),
		cfg:       cfg,
		log:       cfg.Log,
		ctx:       ctx,
		cancel:    cancel,
	}
}

// StartReaper schedules the periodic sweep that removes terminal
// matches from the registry and tears their rooms down.
func (c *Coordinator) StartReaper() error {
	sched, err := gocron.NewScheduler()
	if err != nil {
		return fmt.Errorf("new scheduler: %w", err)
	}
	if _, err := sched.NewJob(
		gocron.DurationJob(reapInterval),
		gocron.NewTask(c.reapFinished),
	); err != nil {
		_ = sched.Shutdown()
		return fmt.Errorf("schedule reaper: %w", err)
	}
	sched.Start()
	c.sched = sched
	return nil
}

// Close stops the reaper and the tick drivers of all live matches.
func (c *Coordinator) Close() error {
	c.cancel()
	if c.sched != nil {
		return c.sched.Shutdown()
	}
	return nil
}

func (c *Coordinator) matchDeps() MatchDeps {
	return MatchDeps{
		Gateway:      c.cfg.Gateway,
		Store:        c.cfg.Store,
		Achievements: c.cfg.Achievements,
		Log:          c.log,
	}
}

// JoinQueue adds the player to the waiting set. As soon as two players
// wait, the two earliest-inserted are paired into a fresh proposal and
// moved into its negotiation room.
func (c *Coordinator) JoinQueue(player PlayerID) error {
	c.mu.Lock()
	for _, id := range c.waiting {
		if id == player {
			c.mu.Unlock()
			return ErrAlreadyQueued
		}
	}
	c.waiting = append(c.waiting, player)
	var prop *Proposal
	if len(c.waiting) >= 2 {
		a, b := c.waiting[0], c.waiting[1]
		c.waiting = append([]PlayerID(nil), c.waiting[2:]...)
		prop = NewProposal(c.nextProposalID.Add(1), a, b)
		c.proposals[prop.ID()] = prop
	}
	c.mu.Unlock()

	if prop != nil {
		v := prop.View()
		room := proposalRoom(prop.ID())
		c.cfg.Gateway.AddToRoom(room, v.Players[0].PlayerID)
		c.cfg.Gateway.AddToRoom(room, v.Players[1].PlayerID)
		c.cfg.Gateway.Broadcast(room, EventMatched, MatchedPayload{ProposalID: prop.ID()})
		c.log.Debugf("paired players %d and %d into proposal %d",
			v.Players[0].PlayerID, v.Players[1].PlayerID, prop.ID())
	}
	return nil
}

// Leave removes the player from wherever they currently are, checking
// the waiting set, then proposals, then matches. Leaving a proposal
// dissolves it; leaving a match cancels it.
func (c *Coordinator) Leave(player PlayerID) error {
	c.mu.Lock()
	for i, id := range c.waiting {
		if id == player {
			c.waiting = append(c.waiting[:i], c.waiting[i+1:]...)
			c.mu.Unlock()
			return nil
		}
	}
	var prop *Proposal
	for id, p := range c.proposals {
		if p.HasPlayer(player) {
			prop = p
			delete(c.proposals, id)
			break
		}
	}
	if prop != nil {
		c.mu.Unlock()
		room := proposalRoom(prop.ID())
		c.cfg.Gateway.Broadcast(room, EventMatchLeave, MatchLeavePayload{PlayerID: player, MatchID: prop.ID()})
		c.cfg.Gateway.DeleteRoom(room)
		return nil
	}
	var match *Match
	for id, m := range c.matches {
		if m.HasPlayer(player) && !m.Status().Terminal() {
			match = m
			delete(c.matches, id)
			break
		}
	}
	c.mu.Unlock()
	if match != nil {
		room := matchRoom(match.ID())
		c.cfg.Gateway.Broadcast(room, EventMatchLeave, MatchLeavePayload{PlayerID: player, MatchID: match.ID()})
		c.cfg.Gateway.DeleteRoom(room)
		match.Cancel()
		return nil
	}
	return ErrNotQueued
}

func (c *Coordinator) proposal(id int64) *Proposal {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.proposals[id]
}

// UpdateProposalRules replaces the addressed proposal's rules and
// broadcasts the new negotiation state.
func (c *Coordinator) UpdateProposalRules(player PlayerID, proposalID int64, rules Rules) error {
	prop := c.proposal(proposalID)
	if prop == nil {
		return ErrNotFound
	}
	if err := prop.UpdateRules(player, rules); err != nil {
		return err
	}
	c.cfg.Gateway.Broadcast(proposalRoom(proposalID), EventProposalChanged, prop.View())
	return nil
}

// AcceptProposal records the caller's acceptance. Once both players
// accept, the proposal promotes: the match is registered under its
// persisted id and starts ticking, then the negotiation room is torn
// down. A failed promotion keeps the proposal (and its room) intact so
// a repeated accept retries it.
func (c *Coordinator) AcceptProposal(player PlayerID, proposalID int64, hasAccepted bool) error {
	prop := c.proposal(proposalID)
	if prop == nil {
		return ErrNotFound
	}
	if err := prop.Accept(player, hasAccepted); err != nil {
		// A matched proposal whose earlier promotion failed at the
		// store stays fully accepted; the same accept call retries.
		if !errors.Is(err, ErrAlreadyAccepted) || !hasAccepted || !prop.HasMatched() {
			return err
		}
	}
	if !prop.HasMatched() {
		c.cfg.Gateway.Broadcast(proposalRoom(proposalID), EventProposalChanged, prop.View())
		return nil
	}

	match, err := prop.Promote(c.ctx, c.matchDeps())
	if err != nil {
		return err
	}
	c.cfg.Gateway.DeleteRoom(proposalRoom(proposalID))
	c.mu.Lock()
	c.matches[match.ID()] = match
	delete(c.proposals, proposalID)
	c.mu.Unlock()
	match.Run()
	c.log.Infof("proposal %d promoted to match %d", proposalID, match.ID())
	return nil
}

// GetProposalState returns the negotiation view, restricted to the two
// participants.
func (c *Coordinator) GetProposalState(player PlayerID, proposalID int64) (ProposalView, error) {
	prop := c.proposal(proposalID)
	if prop == nil {
		return ProposalView{}, ErrNotFound
	}
	if !prop.HasPlayer(player) {
		return ProposalView{}, ErrNotInMatch
	}
	return prop.View(), nil
}

// GetMatchmakingStatus reports where the player currently is, checking
// the waiting set, then proposals, then live matches.
func (c *Coordinator) GetMatchmakingStatus(player PlayerID) MatchmakingStatus {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, id := range c.waiting {
		if id == player {
			return MatchmakingStatus{Status: MatchmakingWaiting}
		}
	}
	for _, p := range c.proposals {
		if p.HasPlayer(player) {
			id := p.ID()
			return MatchmakingStatus{Status: MatchmakingInProposal, ProposalID: &id}
		}
	}
	for _, m := range c.matches {
		if m.HasPlayer(player) && !m.Status().Terminal() {
			id := m.ID()
			return MatchmakingStatus{Status: MatchmakingInMatch, MatchID: &id}
		}
	}
	return MatchmakingStatus{Status: MatchmakingNone}
}

// MovePaddle routes a paddle input to the addressed match.
func (c *Coordinator) MovePaddle(player PlayerID, matchID int64, dir Direction) error {
	c.mu.RLock()
	match := c.matches[matchID]
	c.mu.RUnlock()
	if match == nil {
		return ErrNotFound
	}
	return match.MovePaddle(player, dir)
}

// OnPlayerConnect re-subscribes a returning player to the room of the
// proposal or match they belong to and resumes a paused match.
func (c *Coordinator) OnPlayerConnect(player PlayerID) {
	c.mu.RLock()
	for _, p := range c.proposals {
		if p.HasPlayer(player) {
			id := p.ID()
			c.mu.RUnlock()
			c.cfg.Gateway.AddToRoom(proposalRoom(id), player)
			return
		}
	}
	for _, m := range c.matches {
		if m.HasPlayer(player) && !m.Status().Terminal() {
			c.mu.RUnlock()
			c.cfg.Gateway.AddToRoom(matchRoom(m.ID()), player)
			m.OnReconnect(player)
			return
		}
	}
	c.mu.RUnlock()
}

// OnPlayerDisconnect unsubscribes the player's socket and lets a live
// match freeze while it waits for the reconnect.
func (c *Coordinator) OnPlayerDisconnect(player PlayerID) {
	c.mu.RLock()
	for _, p := range c.proposals {
		if p.HasPlayer(player) {
			id := p.ID()
			c.mu.RUnlock()
			c.cfg.Gateway.RemoveFromRoom(proposalRoom(id), player)
			return
		}
	}
	for _, m := range c.matches {
		if m.HasPlayer(player) && !m.Status().Terminal() {
			c.mu.RUnlock()
			c.cfg.Gateway.RemoveFromRoom(matchRoom(m.ID()), player)
			m.OnDisconnect(player)
			return
		}
	}
	c.mu.RUnlock()
}

// reapFinished sweeps terminal matches out of the registry and deletes
// their broadcast rooms.
func (c *Coordinator) reapFinished() {
	c.mu.Lock()
	var done []*Match
	for id, m := range c.matches {
		if m.Status().Terminal() {
			done = append(done, m)
			delete(c.matches, id)
		}
	}
	c.mu.Unlock()
	for _, m := range done {
		c.cfg.Gateway.DeleteRoom(matchRoom(m.ID()))
		c.log.Debugf("reaped match %d (%s)", m.ID(), m.Status())
	}
}
