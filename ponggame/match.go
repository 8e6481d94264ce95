package ponggame

import (
	"context"
	"sync"
	"time"

	"github.com/decred/slog"
)

// MatchStatus is the lifecycle state of a running match. Transitions
// are monotonic except IN_PROGRESS <-> PAUSED; FINISHED and CANCELED
// are terminal.
type MatchStatus string

const (
	MatchInProgress MatchStatus = "IN_PROGRESS"
	MatchPaused     MatchStatus = "PAUSED"
	MatchFinished   MatchStatus = "FINISHED"
	MatchCanceled   MatchStatus = "CANCELED"
)

// Terminal reports whether the status ends the match.
func (s MatchStatus) Terminal() bool {
	return s == MatchFinished || s == MatchCanceled
}

// Direction is a paddle move input.
type Direction string

const (
	DirectionUp   Direction = "up"
	DirectionDown Direction = "down"
)

const (
	tickRate     = 60
	tickInterval = time.Second / tickRate

	// rampTicks spaces the in-rally speed ramp one second apart.
	rampTicks  = tickRate
	rampFactor = 1.01

	resetDelay      = 3 * time.Second
	disconnectGrace = 30 * time.Second
	persistTimeout  = 10 * time.Second
)

type matchPlayer struct {
	ID           PlayerID
	Paddle       float64
	Score        int
	Disconnected bool
}

// Match owns one game's full mutable state and drives its fixed-rate
// simulation. All mutation happens under the embedded mutex; gateway
// and store calls are made without it.
type Match struct {
	sync.RWMutex
	id    int64
	rules Rules

	status  MatchStatus
	players [2]matchPlayer
	ball    Ball

	paddleH    float64
	paddleStep float64

	// Physics stays frozen until resumeAt; the ball launches on the
	// first tick past it.
	resumeAt    time.Time
	inFlight    bool
	flightTicks int

	graceTimer *time.Timer
	finishedAt time.Time

	// Fixed delays, fields so tests can shorten them.
	resetDelay time.Duration
	graceDelay time.Duration

	ctx    context.Context
	cancel context.CancelFunc
	deps   MatchDeps
	log    slog.Logger
}

// NewMatch registers both players into the match room, announces the
// start and prepares the first serve. The tick driver starts with Run.
func NewMatch(ctx context.Context, id int64, rules Rules, playerA, playerB PlayerID, deps MatchDeps) *Match {
	if deps.Log == nil {
		deps.Log = slog.Disabled
	}
	ctx, cancel := context.WithCancel(ctx)
	m := &Match{
		id:     id,
		rules:  rules,
		status: MatchInProgress,
		players: [2]matchPlayer{
			{ID: playerA, Paddle: fieldHeight / 2},
			{ID: playerB, Paddle: fieldHeight / 2},
		},
		ball:       ResetBall(rules),
		paddleH:    rules.paddleHeight(),
		paddleStep: rules.paddleStep(),
		resumeAt:   time.Now().Add(resetDelay),
		resetDelay: resetDelay,
		graceDelay: disconnectGrace,
		ctx:        ctx,
		cancel:     cancel,
		deps:       deps,
		log:        deps.Log,
	}

	room := matchRoom(id)
	deps.Gateway.AddToRoom(room, playerA)
	deps.Gateway.AddToRoom(room, playerB)
	deps.Gateway.Broadcast(room, EventMatchStart, MatchStartPayload{MatchID: id})
	return m
}

func (m *Match) ID() int64 { return m.id }

// Rules returns the frozen rules of the match.
func (m *Match) Rules() Rules { return m.rules }

// Status returns the current lifecycle state.
func (m *Match) Status() MatchStatus {
	m.RLock()
	defer m.RUnlock()
	return m.status
}

// HasPlayer reports whether the given player occupies one of the two
// slots.
func (m *Match) HasPlayer(player PlayerID) bool {
	return m.slot(player) >= 0
}

// slot is safe without the lock: player ids never change after
// construction.
func (m *Match) slot(player PlayerID) int {
	for i := range m.players {
		if m.players[i].ID == player {
			return i
		}
	}
	return -1
}

// Run starts the 60 Hz tick driver. It stops on its own once the match
// reaches a terminal status.
func (m *Match) Run() {
	go func() {
		ticker := time.NewTicker(tickInterval)
		defer ticker.Stop()
		for {
			select {
			case <-m.ctx.Done():
				return
			case <-ticker.C:
				if m.tick() {
					return
				}
			}
		}
	}()
}

// tick advances one simulation step and broadcasts the state snapshot.
// Returns true once the match is terminal. A panic inside a single
// match's tick is contained here and force-cancels only this match.
func (m *Match) tick() (terminal bool) {
	defer func() {
		if r := recover(); r != nil {
			m.log.Errorf("match %d: tick panic: %v", m.id, r)
			m.Cancel()
			terminal = true
		}
	}()

	snap, terminal := m.advance()
	m.deps.Gateway.Broadcast(matchRoom(m.id), EventMatchStateUpdate, snap)
	return terminal
}

// advance applies one tick's worth of state change under the lock. The
// deferred unlock keeps the mutex released even when physics panics,
// so the recovery path in tick can cancel the match.
func (m *Match) advance() (MatchSnapshot, bool) {
	m.Lock()
	defer m.Unlock()
	if m.status.Terminal() {
		return m.snapshotLocked(), true
	}
	if m.status == MatchInProgress && !time.Now().Before(m.resumeAt) {
		if !m.inFlight {
			LaunchBall(&m.ball, m.rules)
			m.inFlight = true
			m.flightTicks = 0
		} else {
			m.stepLocked()
		}
	}
	return m.snapshotLocked(), m.status.Terminal()
}

// stepLocked runs the pinned physics order for one tick: advance, wall
// reflect, left paddle, right paddle, then scoring. A paddle hit
// resolves before any wall-crossing score in the same tick.
func (m *Match) stepLocked() {
	m.flightTicks++
	if m.flightTicks%rampTicks == 0 {
		m.ball.DX *= rampFactor
		m.ball.DY *= rampFactor
	}

	m.ball.Advance()
	m.ball.ReflectOffWall()

	if PaddleCollision(&m.ball, m.players[0].Paddle, PaddleWidth, m.paddleH, SideLeft) {
		return
	}
	if PaddleCollision(&m.ball, m.players[1].Paddle, PaddleWidth, m.paddleH, SideRight) {
		return
	}

	switch {
	case m.ball.X-m.ball.RadiusX <= 0:
		m.scoreLocked(1)
	case m.ball.X+m.ball.RadiusX >= fieldWidth:
		m.scoreLocked(0)
	}
}

func (m *Match) scoreLocked(winner int) {
	m.players[winner].Score++
	m.inFlight = false
	m.flightTicks = 0
	// Recenter before any terminal transition too, so the last
	// broadcast snapshot never shows the ball beyond the walls.
	m.ball = ResetBall(m.rules)
	if m.players[winner].Score >= m.rules.ScoreToWin {
		m.endMatchLocked(MatchFinished)
		return
	}
	m.resumeAt = time.Now().Add(m.resetDelay)
}

func (m *Match) snapshotLocked() MatchSnapshot {
	snap := MatchSnapshot{
		MatchID: m.id,
		Status:  m.status,
		Ball:    BallSnapshot{X: m.ball.X, Y: m.ball.Y},
	}
	for i, p := range m.players {
		snap.Players[i] = PlayerSnapshot{
			PlayerID:     p.ID,
			PaddlePos:    p.Paddle,
			Score:        p.Score,
			Disconnected: p.Disconnected,
		}
	}
	if remain := time.Until(m.resumeAt); remain > 0 && !m.status.Terminal() {
		ms := remain.Milliseconds()
		snap.CountdownMs = &ms
	}
	return snap
}

// Snapshot returns the current state as broadcast to the room.
func (m *Match) Snapshot() MatchSnapshot {
	m.RLock()
	defer m.RUnlock()
	return m.snapshotLocked()
}

// MovePaddle offsets the player's paddle center, clamped so the full
// paddle height stays on the field. Inputs are dropped while the match
// is not actively in progress.
func (m *Match) MovePaddle(player PlayerID, dir Direction) error {
	i := m.slot(player)
	if i < 0 {
		return ErrNotInMatch
	}
	m.Lock()
	defer m.Unlock()
	if m.status != MatchInProgress {
		return nil
	}
	pos := m.players[i].Paddle
	switch dir {
	case DirectionUp:
		pos -= m.paddleStep
	case DirectionDown:
		pos += m.paddleStep
	default:
		return nil
	}
	if min := m.paddleH / 2; pos < min {
		pos = min
	}
	if max := fieldHeight - m.paddleH/2; pos > max {
		pos = max
	}
	m.players[i].Paddle = pos
	return nil
}

// OnDisconnect marks the slot disconnected and pauses play. Once both
// players are gone a grace timer starts; if nobody reconnects before it
// fires, the match is canceled.
func (m *Match) OnDisconnect(player PlayerID) {
	i := m.slot(player)
	if i < 0 {
		return
	}
	m.Lock()
	defer m.Unlock()
	if m.status.Terminal() {
		return
	}
	m.players[i].Disconnected = true
	if m.status == MatchInProgress {
		m.status = MatchPaused
	}
	if m.players[0].Disconnected && m.players[1].Disconnected && m.graceTimer == nil {
		m.graceTimer = time.AfterFunc(m.graceDelay, m.Cancel)
		m.log.Debugf("match %d: both players disconnected, cancel in %s", m.id, m.graceDelay)
	}
}

// OnReconnect clears the slot's disconnected flag. Once neither player
// is disconnected, play resumes with a fresh serve countdown so the
// ball never reappears mid-flight.
func (m *Match) OnReconnect(player PlayerID) {
	i := m.slot(player)
	if i < 0 {
		return
	}
	m.Lock()
	defer m.Unlock()
	if m.status.Terminal() {
		return
	}
	m.players[i].Disconnected = false
	if m.graceTimer != nil {
		m.graceTimer.Stop()
		m.graceTimer = nil
	}
	if !m.players[0].Disconnected && !m.players[1].Disconnected && m.status == MatchPaused {
		m.status = MatchInProgress
		m.ball = ResetBall(m.rules)
		m.inFlight = false
		m.flightTicks = 0
		m.resumeAt = time.Now().Add(m.resetDelay)
	}
}

// Cancel force-ends the match. Safe to call concurrently with an
// in-flight tick and with a natural win; the first terminal transition
// wins and later calls are no-ops.
func (m *Match) Cancel() {
	m.Lock()
	m.endMatchLocked(MatchCanceled)
	m.Unlock()
}

// endMatchLocked performs the single idempotent terminal transition:
// stamps the finish time, stops the timers and hands the final scores
// to persistence. The store writes happen off the tick path; their
// failure is logged and never blocks teardown.
func (m *Match) endMatchLocked(status MatchStatus) {
	if m.status.Terminal() {
		return
	}
	m.status = status
	m.finishedAt = time.Now()
	m.inFlight = false
	if m.graceTimer != nil {
		m.graceTimer.Stop()
		m.graceTimer = nil
	}
	m.cancel()

	players := m.players
	finishedAt := m.finishedAt
	go m.persistResult(status, players, finishedAt)
}

func (m *Match) persistResult(status MatchStatus, players [2]matchPlayer, finishedAt time.Time) {
	defer func() {
		if r := recover(); r != nil {
			m.log.Errorf("match %d: result persistence panic: %v", m.id, r)
		}
	}()
	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()

	for i, p := range players {
		other := players[1-i]
		isWinner := p.Score > other.Score && p.Score >= m.rules.ScoreToWin
		if err := m.deps.Store.UpdateParticipant(ctx, m.id, p.ID, p.Score, isWinner); err != nil {
			m.log.Errorf("match %d: persist participant %d: %v", m.id, p.ID, err)
		}
	}
	if err := m.deps.Store.SetMatchStatus(ctx, m.id, status, &finishedAt); err != nil {
		m.log.Errorf("match %d: persist status %s: %v", m.id, status, err)
	}

	if status != MatchFinished || m.deps.Achievements == nil {
		return
	}
	for _, p := range players {
		if err := m.deps.Achievements.EvaluateAchievements(ctx, m.id, p.ID, p.Score, m.rules); err != nil {
			m.log.Warnf("match %d: achievement evaluation for %d: %v", m.id, p.ID, err)
		}
	}
}
