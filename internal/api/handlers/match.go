package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/ramonehamilton/BG-Companion/internal/api/response"
	"github.com/ramonehamilton/BG-Companion/internal/hearthstone/recorder"
	"github.com/ramonehamilton/BG-Companion/internal/output"
	"github.com/ramonehamilton/BG-Companion/internal/stats"
	"github.com/ramonehamilton/BG-Companion/internal/storage"
)

const maxMatchLimit = 200

// MatchStore is the part of the match store the API reads.
type MatchStore interface {
	RecentMatches(ctx context.Context, limit int) ([]storage.MatchSummary, error)
	GetMatch(ctx context.Context, id string) (*recorder.MatchRecord, error)
	DeleteMatch(ctx context.Context, id string) error
}

// MatchHandler handles match-related API requests.
type MatchHandler struct {
	store MatchStore
}

// NewMatchHandler creates a new MatchHandler.
func NewMatchHandler(store MatchStore) *MatchHandler {
	return &MatchHandler{store: store}
}

func parseLimit(r *http.Request, def int) (int, error) {
	v := r.URL.Query().Get("limit")
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid limit %q", v)
	}
	return min(n, maxMatchLimit), nil
}

// GetMatches returns the most recent matches, newest first.
func (h *MatchHandler) GetMatches(w http.ResponseWriter, r *http.Request) {
	limit, err := parseLimit(r, 20)
	if err != nil {
		response.BadRequest(w, err)
		return
	}

	matches, err := h.store.RecentMatches(r.Context(), limit)
	if err != nil {
		response.InternalError(w, err)
		return
	}
	response.Success(w, matches)
}

// GetStats summarizes the newest matches (?limit, default and max 200)
// inside ?period (all, week, month, last-week, last-month).
func (h *MatchHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	tr, err := stats.ParsePeriod(r.URL.Query().Get("period"), time.Now())
	if err != nil {
		response.BadRequest(w, err)
		return
	}
	limit, err := parseLimit(r, maxMatchLimit)
	if err != nil {
		response.BadRequest(w, err)
		return
	}
	matches, err := stats.LoadRecent(r.Context(), h.store, limit)
	if err != nil {
		response.InternalError(w, err)
		return
	}
	response.Success(w, stats.Summarize(matches, tr))
}

// GetMatch returns a single match with its turns.
func (h *MatchHandler) GetMatch(w http.ResponseWriter, r *http.Request) {
	m, ok := h.load(w, r)
	if !ok {
		return
	}
	response.Success(w, m)
}

// GetMatchTurns returns a match's turns as JSON, or as CSV rows with
// ?format=csv.
func (h *MatchHandler) GetMatchTurns(w http.ResponseWriter, r *http.Request) {
	format, err := output.ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		response.BadRequest(w, err)
		return
	}
	m, ok := h.load(w, r)
	if !ok {
		return
	}

	if format == output.FormatJSON {
		response.Success(w, m.Turns)
		return
	}
	response.Attachment(w, "text/csv", output.FileName(m)+".csv")
	if err := output.Encode(w, format, output.TurnRows(m.Turns)); err != nil {
		response.InternalError(w, err)
	}
}

// DeleteMatch removes a stored match.
func (h *MatchHandler) DeleteMatch(w http.ResponseWriter, r *http.Request) {
	matchID := chi.URLParam(r, "matchID")
	if matchID == "" {
		response.BadRequest(w, errors.New("match ID is required"))
		return
	}
	err := h.store.DeleteMatch(r.Context(), matchID)
	if errors.Is(err, storage.ErrMatchNotFound) {
		response.NotFound(w, err)
		return
	}
	if err != nil {
		response.InternalError(w, err)
		return
	}
	response.NoContent(w)
}

func (h *MatchHandler) load(w http.ResponseWriter, r *http.Request) (*recorder.MatchRecord, bool) {
	matchID := chi.URLParam(r, "matchID")
	if matchID == "" {
		response.BadRequest(w, errors.New("match ID is required"))
		return nil, false
	}
	m, err := h.store.GetMatch(r.Context(), matchID)
	if errors.Is(err, storage.ErrMatchNotFound) {
		response.NotFound(w, err)
		return nil, false
	}
	if err != nil {
		response.InternalError(w, err)
		return nil, false
	}
	return m, true
}
