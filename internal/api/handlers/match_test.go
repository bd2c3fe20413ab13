package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ramonehamilton/BG-Companion/internal/hearthstone/gametag"
	"github.com/ramonehamilton/BG-Companion/internal/hearthstone/recorder"
	"github.com/ramonehamilton/BG-Companion/internal/stats"
	"github.com/ramonehamilton/BG-Companion/internal/storage"
)

type fakeStore struct {
	matches map[string]*recorder.MatchRecord
	limit   int
	err     error
}

func (f *fakeStore) RecentMatches(_ context.Context, limit int) ([]storage.MatchSummary, error) {
	f.limit = limit
	if f.err != nil {
		return nil, f.err
	}
	var out []storage.MatchSummary
	for _, m := range f.matches {
		out = append(out, storage.MatchSummary{ID: m.ID, StartTime: m.StartTime, Turns: len(m.Turns)})
	}
	return out, nil
}

func (f *fakeStore) GetMatch(_ context.Context, id string) (*recorder.MatchRecord, error) {
	if f.err != nil {
		return nil, f.err
	}
	m, ok := f.matches[id]
	if !ok {
		return nil, storage.ErrMatchNotFound
	}
	return m, nil
}

func (f *fakeStore) DeleteMatch(_ context.Context, id string) error {
	if _, ok := f.matches[id]; !ok {
		return storage.ErrMatchNotFound
	}
	delete(f.matches, id)
	return nil
}

func newFakeStore() *fakeStore {
	start := time.Date(2025, 3, 1, 20, 4, 5, 0, time.UTC)
	return &fakeStore{matches: map[string]*recorder.MatchRecord{
		"m1": {
			ID:        "m1",
			StartTime: start,
			Turns: []*recorder.TurnRecord{{
				TurnNumber:          1,
				Timestamp:           start,
				Outcome:             recorder.OutcomeWin,
				PlayerStartHealth:   30,
				PlayerEndHealth:     30,
				OpponentStartHealth: 30,
				OpponentEndHealth:   27,
				DamageToOpponent:    3,
			}},
		},
	}}
}

func matchRouter(store MatchStore) http.Handler {
	h := NewMatchHandler(store)
	r := chi.NewRouter()
	r.Get("/matches", h.GetMatches)
	r.Get("/matches/stats", h.GetStats)
	r.Get("/matches/{matchID}", h.GetMatch)
	r.Delete("/matches/{matchID}", h.DeleteMatch)
	r.Get("/matches/{matchID}/turns", h.GetMatchTurns)
	return r
}

func do(t *testing.T, h http.Handler, method, target string) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(method, target, nil))
	return w
}

func TestGetMatches(t *testing.T) {
	store := newFakeStore()
	h := matchRouter(store)

	w := do(t, h, http.MethodGet, "/matches?limit=500")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, maxMatchLimit, store.limit)

	var body struct {
		Data []storage.MatchSummary `json:"data"`
	}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	require.Len(t, body.Data, 1)
	assert.Equal(t, "m1", body.Data[0].ID)

	assert.Equal(t, http.StatusBadRequest, do(t, h, http.MethodGet, "/matches?limit=abc").Code)
	assert.Equal(t, http.StatusBadRequest, do(t, h, http.MethodGet, "/matches?limit=0").Code)

	store.err = errors.New("db down")
	assert.Equal(t, http.StatusInternalServerError, do(t, h, http.MethodGet, "/matches").Code)
}

func TestGetMatch(t *testing.T) {
	h := matchRouter(newFakeStore())

	w := do(t, h, http.MethodGet, "/matches/m1")
	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Data recorder.MatchRecord `json:"data"`
	}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	require.Len(t, body.Data.Turns, 1)
	assert.Equal(t, recorder.OutcomeWin, body.Data.Turns[0].Outcome)

	assert.Equal(t, http.StatusNotFound, do(t, h, http.MethodGet, "/matches/nope").Code)
}

func TestGetMatchTurns_CSV(t *testing.T) {
	h := matchRouter(newFakeStore())

	w := do(t, h, http.MethodGet, "/matches/m1/turns?format=csv")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/csv", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "20250301_200405_m1.csv")

	lines := strings.Split(strings.TrimSpace(w.Body.String()), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[0], "turn,timestamp,outcome"))
	assert.True(t, strings.HasPrefix(lines[1], "1,2025-03-01T20:04:05Z,Win"))

	assert.Equal(t, http.StatusOK, do(t, h, http.MethodGet, "/matches/m1/turns").Code)
	assert.Equal(t, http.StatusBadRequest, do(t, h, http.MethodGet, "/matches/m1/turns?format=xml").Code)
}

func TestDeleteMatch(t *testing.T) {
	store := newFakeStore()
	h := matchRouter(store)

	assert.Equal(t, http.StatusNoContent, do(t, h, http.MethodDelete, "/matches/m1").Code)
	assert.Empty(t, store.matches)
	assert.Equal(t, http.StatusNotFound, do(t, h, http.MethodDelete, "/matches/m1").Code)
}

type fakeSession struct {
	status   recorder.SessionStatus
	entities map[int]recorder.EntityState
	boards   [][]recorder.BoardCard
}

func (f *fakeSession) Snapshot() recorder.SessionStatus { return f.status }

func (f *fakeSession) Entity(id int) (recorder.EntityState, bool) {
	e, ok := f.entities[id]
	return e, ok
}

func (f *fakeSession) UpdateOpponentBoard(cards []recorder.BoardCard) {
	f.boards = append(f.boards, cards)
}

func sessionRouter(s Session) http.Handler {
	h := NewSessionHandler(s)
	r := chi.NewRouter()
	r.Get("/session", h.GetStatus)
	r.Get("/session/entities/{entityID}", h.GetEntity)
	r.Post("/session/board", h.PostOpponentBoard)
	return r
}

func TestSessionHandler(t *testing.T) {
	session := &fakeSession{
		status: recorder.SessionStatus{MatchID: "m9", InMatch: true, Turn: 4, CombatPhase: "active"},
		entities: map[int]recorder.EntityState{
			12: {
				ID:       12,
				CardID:   "BGS_004",
				Zone:     gametag.ZonePlay,
				CardType: gametag.CardTypeMinion,
				Tags:     map[gametag.Tag]int{gametag.TagAtk: 2, gametag.TagHealth: 1},
			},
		},
	}
	h := sessionRouter(session)

	w := do(t, h, http.MethodGet, "/session")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"matchId":"m9"`)
	assert.Contains(t, w.Body.String(), `"combatPhase":"active"`)

	w = do(t, h, http.MethodGet, "/session/entities/12")
	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Data EntityView `json:"data"`
	}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	assert.Equal(t, "BGS_004", body.Data.CardID)
	assert.Equal(t, 2, body.Data.Tags[gametag.TagAtk.String()])

	assert.Equal(t, http.StatusNotFound, do(t, h, http.MethodGet, "/session/entities/99").Code)
	assert.Equal(t, http.StatusBadRequest, do(t, h, http.MethodGet, "/session/entities/x").Code)

	req := httptest.NewRequest(http.MethodPost, "/session/board", strings.NewReader(`{"boardCards":[{"entityId":12},{"entityId":13}]}`))
	w = httptest.NewRecorder()
	h.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNoContent, w.Code)
	require.Len(t, session.boards, 1)
	assert.Equal(t, []recorder.BoardCard{{EntityID: 12}, {EntityID: 13}}, session.boards[0])

	req = httptest.NewRequest(http.MethodPost, "/session/board", strings.NewReader(`{`))
	w = httptest.NewRecorder()
	h.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetStats(t *testing.T) {
	h := matchRouter(newFakeStore())

	w := do(t, h, http.MethodGet, "/matches/stats")
	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Data stats.Summary `json:"data"`
	}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	assert.Equal(t, 1, body.Data.Matches)
	assert.Equal(t, 1, body.Data.Wins)
	assert.Equal(t, 3, body.Data.DamageDealt)
	assert.Equal(t, "all time", body.Data.Period)

	assert.Equal(t, http.StatusBadRequest, do(t, h, http.MethodGet, "/matches/stats?period=decade").Code)
}
