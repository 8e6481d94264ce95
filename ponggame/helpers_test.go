package ponggame

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

type gatewayEvent struct {
	Room    string
	Event   EventName
	Payload any
}

// fakeGateway records room membership and every broadcast so tests can
// assert on the emitted event stream.
type fakeGateway struct {
	mu          sync.Mutex
	rooms       map[string]map[PlayerID]struct{}
	events      []gatewayEvent
	deleted     []string
	panicOnSend bool
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{rooms: make(map[string]map[PlayerID]struct{})}
}

func (g *fakeGateway) AddToRoom(room string, player PlayerID) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.rooms[room] == nil {
		g.rooms[room] = make(map[PlayerID]struct{})
	}
	g.rooms[room][player] = struct{}{}
}

func (g *fakeGateway) RemoveFromRoom(room string, player PlayerID) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.rooms[room], player)
}

func (g *fakeGateway) Broadcast(room string, event EventName, payload any) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.panicOnSend {
		panic("gateway unavailable")
	}
	g.events = append(g.events, gatewayEvent{Room: room, Event: event, Payload: payload})
}

func (g *fakeGateway) SendToPlayer(player PlayerID, event EventName, payload any) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.events = append(g.events, gatewayEvent{Event: event, Payload: payload})
}

func (g *fakeGateway) DeleteRoom(room string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.rooms, room)
	g.deleted = append(g.deleted, room)
}

func (g *fakeGateway) eventsNamed(event EventName) []gatewayEvent {
	g.mu.Lock()
	defer g.mu.Unlock()
	var out []gatewayEvent
	for _, e := range g.events {
		if e.Event == event {
			out = append(out, e)
		}
	}
	return out
}

func (g *fakeGateway) roomSize(room string) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.rooms[room])
}

func (g *fakeGateway) deletedRooms() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]string(nil), g.deleted...)
}

type participantRecord struct {
	MatchID  int64
	Player   PlayerID
	Score    int
	IsWinner bool
}

type statusRecord struct {
	MatchID    int64
	Status     MatchStatus
	FinishedAt *time.Time
}

// fakeStore hands out sequential match ids and records every write.
// failCreates makes the next N record creations fail.
type fakeStore struct {
	mu           sync.Mutex
	nextID       int64
	failCreates  int
	participants []participantRecord
	statuses     []statusRecord
}

func (s *fakeStore) CreateMatchRecord(_ context.Context, _ Rules, _, _ PlayerID) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failCreates > 0 {
		s.failCreates--
		return 0, errors.New("store unavailable")
	}
	s.nextID++
	return s.nextID, nil
}

func (s *fakeStore) UpdateParticipant(_ context.Context, matchID int64, player PlayerID, score int, isWinner bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.participants = append(s.participants, participantRecord{
		MatchID: matchID, Player: player, Score: score, IsWinner: isWinner,
	})
	return nil
}

func (s *fakeStore) SetMatchStatus(_ context.Context, matchID int64, status MatchStatus, finishedAt *time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.statuses = append(s.statuses, statusRecord{MatchID: matchID, Status: status, FinishedAt: finishedAt})
	return nil
}

func (s *fakeStore) participantFor(player PlayerID) (participantRecord, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.participants {
		if p.Player == player {
			return p, true
		}
	}
	return participantRecord{}, false
}

func (s *fakeStore) statusCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.statuses)
}

func (s *fakeStore) lastStatus() (statusRecord, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.statuses) == 0 {
		return statusRecord{}, false
	}
	return s.statuses[len(s.statuses)-1], true
}

type achievementCall struct {
	MatchID int64
	Player  PlayerID
	Score   int
}

type fakeAchievements struct {
	mu    sync.Mutex
	calls []achievementCall
}

func (a *fakeAchievements) EvaluateAchievements(_ context.Context, matchID int64, player PlayerID, finalScore int, _ Rules) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.calls = append(a.calls, achievementCall{MatchID: matchID, Player: player, Score: finalScore})
	return nil
}

func (a *fakeAchievements) callCount() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.calls)
}

func testDeps(gw *fakeGateway, st *fakeStore, ach *fakeAchievements) MatchDeps {
	deps := MatchDeps{Gateway: gw, Store: st}
	if ach != nil {
		deps.Achievements = ach
	}
	return deps
}

// waitUntil polls cond until it holds or the deadline passes; the
// match persists results from a goroutine, so tests wait on it.
func waitUntil(t *testing.T, d time.Duration, cond func() bool) bool {
	t.Helper()
	deadline := time.Now().Add(d)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(2 * time.Millisecond)
	}
	return cond()
}
