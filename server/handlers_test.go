package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"

	"github.com/pfrances/transcendence-back/ponggame"
	"github.com/pfrances/transcendence-back/server/gamedb"
)

// memStore satisfies the engine's store contract with sequential ids.
type memStore struct {
	mu     sync.Mutex
	nextID int64
}

func (s *memStore) CreateMatchRecord(context.Context, ponggame.Rules, ponggame.PlayerID, ponggame.PlayerID) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	return s.nextID, nil
}

func (s *memStore) UpdateParticipant(context.Context, int64, ponggame.PlayerID, int, bool) error {
	return nil
}

func (s *memStore) SetMatchStatus(context.Context, int64, ponggame.MatchStatus, *time.Time) error {
	return nil
}

type stubHistorian struct {
	entries []gamedb.MatchHistoryEntry
}

func (h *stubHistorian) MatchHistory(context.Context, ponggame.PlayerID) ([]gamedb.MatchHistoryEntry, error) {
	return h.entries, nil
}

func newTestServer(t *testing.T, history MatchHistorian) (*Server, *fiber.App) {
	t.Helper()
	hub := NewHub(nil)
	coord := ponggame.NewCoordinator(ponggame.CoordinatorConfig{
		Gateway: hub,
		Store:   &memStore{},
	})
	t.Cleanup(func() { _ = coord.Close() })
	s := New(Config{Coordinator: coord, Hub: hub, History: history})
	return s, s.newApp()
}

func doRequest(t *testing.T, app *fiber.App, method, path string, player ponggame.PlayerID, body string) *http.Response {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if player != 0 {
		req.Header.Set(playerIDHeader, strconv.FormatInt(int64(player), 10))
	}
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := app.Test(req)
	assert.NoError(t, err)
	return resp
}

func TestHandlers_RequireIdentity(t *testing.T) {
	_, app := newTestServer(t, nil)

	resp := doRequest(t, app, http.MethodPost, "/api/game/queue/join", 0, "")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = doRequest(t, app, http.MethodGet, "/api/game/matchmaking", 0, "")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestHandlers_QueueFlow(t *testing.T) {
	_, app := newTestServer(t, nil)

	resp := doRequest(t, app, http.MethodPost, "/api/game/queue/join", 10, "")
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = doRequest(t, app, http.MethodPost, "/api/game/queue/join", 10, "")
	assert.Equal(t, http.StatusConflict, resp.StatusCode, "double join")

	resp = doRequest(t, app, http.MethodGet, "/api/game/matchmaking", 10, "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var status ponggame.MatchmakingStatus
	assert.NoError(t, json.NewDecoder(resp.Body).Decode(&status))
	assert.Equal(t, ponggame.MatchmakingWaiting, status.Status)

	resp = doRequest(t, app, http.MethodDelete, "/api/game/queue/leave", 10, "")
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = doRequest(t, app, http.MethodDelete, "/api/game/queue/leave", 10, "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode, "not queued anymore")
}

func TestHandlers_ProposalFlow(t *testing.T) {
	_, app := newTestServer(t, nil)

	doRequest(t, app, http.MethodPost, "/api/game/queue/join", 10, "")
	doRequest(t, app, http.MethodPost, "/api/game/queue/join", 20, "")

	resp := doRequest(t, app, http.MethodGet, "/api/game/proposals/1", 10, "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var view ponggame.ProposalView
	assert.NoError(t, json.NewDecoder(resp.Body).Decode(&view))
	assert.Equal(t, int64(1), view.ProposalID)

	resp = doRequest(t, app, http.MethodGet, "/api/game/proposals/1", 99, "")
	assert.Equal(t, http.StatusForbidden, resp.StatusCode, "outsiders cannot peek")

	resp = doRequest(t, app, http.MethodGet, "/api/game/proposals/42", 10, "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = doRequest(t, app, http.MethodPatch, "/api/game/proposals/1/rules", 10,
		`{"scoreToWin":50,"ballSpeed":"NORMAL","ballSize":"NORMAL","paddleSpeed":"NORMAL","paddleSize":"NORMAL"}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode, "out-of-range scoreToWin")

	resp = doRequest(t, app, http.MethodPatch, "/api/game/proposals/1/rules", 10,
		`{"scoreToWin":5,"ballSpeed":"FAST","ballSize":"SMALL","paddleSpeed":"NORMAL","paddleSize":"BIG"}`)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = doRequest(t, app, http.MethodPatch, "/api/game/proposals/1/accept", 10, `{"hasAccepted":true}`)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp = doRequest(t, app, http.MethodPatch, "/api/game/proposals/1/accept", 20, `{"hasAccepted":true}`)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = doRequest(t, app, http.MethodGet, "/api/game/matchmaking", 10, "")
	var status ponggame.MatchmakingStatus
	assert.NoError(t, json.NewDecoder(resp.Body).Decode(&status))
	assert.Equal(t, ponggame.MatchmakingInMatch, status.Status)
	assert.Equal(t, int64(1), *status.MatchID)
}

func TestHandlers_MatchHistory(t *testing.T) {
	finished := time.Now()
	historian := &stubHistorian{entries: []gamedb.MatchHistoryEntry{{
		MatchID:       3,
		Status:        string(ponggame.MatchFinished),
		Rules:         ponggame.DefaultRules(),
		PlayerScore:   3,
		OpponentID:    20,
		OpponentScore: 1,
		IsWinner:      true,
		StartedAt:     finished.Add(-time.Minute),
		FinishedAt:    &finished,
	}}}
	_, app := newTestServer(t, historian)

	resp := doRequest(t, app, http.MethodGet, "/api/game/history", 10, "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var entries []gamedb.MatchHistoryEntry
	assert.NoError(t, json.NewDecoder(resp.Body).Decode(&entries))
	assert.Len(t, entries, 1)
	assert.Equal(t, int64(3), entries[0].MatchID)
	assert.True(t, entries[0].IsWinner)
}

func TestHandlers_MatchHistoryUnavailable(t *testing.T) {
	_, app := newTestServer(t, nil)
	resp := doRequest(t, app, http.MethodGet, "/api/game/history", 10, "")
	assert.Equal(t, http.StatusNotImplemented, resp.StatusCode)
}
