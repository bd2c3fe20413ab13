package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/ramonehamilton/BG-Companion/internal/api/response"
	"github.com/ramonehamilton/BG-Companion/internal/hearthstone/recorder"
)

// Session is the live recorder session as seen by the API.
type Session interface {
	Snapshot() recorder.SessionStatus
	Entity(id int) (recorder.EntityState, bool)
	UpdateOpponentBoard(cards []recorder.BoardCard)
}

// SessionHandler exposes the running recorder session.
type SessionHandler struct {
	session Session
}

// NewSessionHandler creates a new SessionHandler.
func NewSessionHandler(session Session) *SessionHandler {
	return &SessionHandler{session: session}
}

// GetStatus returns the session snapshot.
func (h *SessionHandler) GetStatus(w http.ResponseWriter, _ *http.Request) {
	response.Success(w, h.session.Snapshot())
}

// EntityView is an entity with its tags keyed by name.
type EntityView struct {
	ID         int            `json:"id"`
	CardID     string         `json:"cardId,omitempty"`
	Controller int            `json:"controller"`
	Zone       string         `json:"zone"`
	Position   int            `json:"zonePosition"`
	CardType   string         `json:"cardType"`
	PlayerID   int            `json:"playerId,omitempty"`
	Tags       map[string]int `json:"tags"`
}

// GetEntity returns one entity from the session's table.
func (h *SessionHandler) GetEntity(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "entityID"))
	if err != nil || id <= 0 {
		response.BadRequest(w, errors.New("entity ID must be a positive integer"))
		return
	}
	e, ok := h.session.Entity(id)
	if !ok {
		response.NotFound(w, fmt.Errorf("entity %d not found", id))
		return
	}

	view := EntityView{
		ID:         e.ID,
		CardID:     e.CardID,
		Controller: e.Controller,
		Zone:       e.Zone.String(),
		Position:   e.ZonePosition,
		CardType:   e.CardType.String(),
		PlayerID:   e.PlayerID,
		Tags:       make(map[string]int, len(e.Tags)),
	}
	for tag, v := range e.Tags {
		view.Tags[tag.String()] = v
	}
	response.Success(w, view)
}

// BoardRequest is the body of a board watcher push, the same shape as the
// data of a board:opponent websocket frame.
type BoardRequest struct {
	BoardCards []recorder.BoardCard `json:"boardCards"`
}

// PostOpponentBoard accepts a board watcher push over HTTP.
func (h *SessionHandler) PostOpponentBoard(w http.ResponseWriter, r *http.Request) {
	var req BoardRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, fmt.Errorf("invalid request body: %w", err))
		return
	}
	h.session.UpdateOpponentBoard(req.BoardCards)
	response.NoContent(w)
}
