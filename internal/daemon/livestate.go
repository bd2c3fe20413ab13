package daemon

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/ramonehamilton/BG-Companion/internal/hearthstone/gametag"
	"github.com/ramonehamilton/BG-Companion/internal/hearthstone/recorder"
)

var _ recorder.LiveGame = (*LiveState)(nil)

// GameStateMessage is the payload of a game:state frame pushed by a
// companion watcher that reads the running client's memory.
type GameStateMessage struct {
	GameType         string                      `json:"gameType"`
	LocalPlayerID    int                         `json:"localPlayerId"`
	OpponentPlayerID int                         `json:"opponentPlayerId"`
	Entities         []LiveEntityMessage         `json:"entities"`
	Heroes           map[int]int                 `json:"heroes"`         // player id -> hero entity id
	PlayerBoard      []LiveEntityMessage         `json:"playerBoard"`
	BoardSnapshots   map[int][]LiveEntityMessage `json:"boardSnapshots"` // hero entity id -> board
}

// LiveEntityMessage is one entity in a game:state frame. Tag keys are tag
// names or numeric codes; values are integers or enum names.
type LiveEntityMessage struct {
	ID     int                        `json:"id"`
	CardID string                     `json:"cardId,omitempty"`
	Tags   map[string]json.RawMessage `json:"tags,omitempty"`
}

func (m LiveEntityMessage) decode() (recorder.LiveEntity, error) {
	e := recorder.LiveEntity{ID: m.ID, CardID: m.CardID, Tags: make(map[gametag.Tag]int, len(m.Tags))}
	for key, raw := range m.Tags {
		tag, err := gametag.Parse(key)
		if err != nil {
			return e, err
		}
		var n int
		if err := json.Unmarshal(raw, &n); err == nil {
			e.Tags[tag] = n
			continue
		}
		var text string
		if err := json.Unmarshal(raw, &text); err != nil {
			return e, fmt.Errorf("entity %d tag %s: %w", m.ID, key, err)
		}
		v, err := gametag.ParseValue(tag, text)
		if err != nil {
			return e, fmt.Errorf("entity %d: %w", m.ID, err)
		}
		e.Tags[tag] = v
	}
	return e, nil
}

func decodeEntities(msgs []LiveEntityMessage) ([]recorder.LiveEntity, error) {
	out := make([]recorder.LiveEntity, 0, len(msgs))
	for _, m := range msgs {
		e, err := m.decode()
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}

// LiveState is the latest game state reported by a companion watcher. It
// satisfies recorder.LiveGame; before the first report every query answers
// "unknown" and the game is assumed to be Battlegrounds.
type LiveState struct {
	mu sync.RWMutex

	seen             bool
	gameType         string
	localPlayerID    int
	opponentPlayerID int
	entities         map[int]recorder.LiveEntity
	heroes           map[int]int
	playerBoard      []recorder.LiveEntity
	snapshots        map[int][]recorder.LiveEntity
}

// NewLiveState creates an empty live state.
func NewLiveState() *LiveState {
	return &LiveState{
		entities:  make(map[int]recorder.LiveEntity),
		heroes:    make(map[int]int),
		snapshots: make(map[int][]recorder.LiveEntity),
	}
}

// Update replaces the state with msg. A frame that fails to decode leaves
// the previous state in place.
func (l *LiveState) Update(msg GameStateMessage) error {
	entities, err := decodeEntities(msg.Entities)
	if err != nil {
		return err
	}
	board, err := decodeEntities(msg.PlayerBoard)
	if err != nil {
		return err
	}
	snapshots := make(map[int][]recorder.LiveEntity, len(msg.BoardSnapshots))
	for hero, msgs := range msg.BoardSnapshots {
		if snapshots[hero], err = decodeEntities(msgs); err != nil {
			return err
		}
	}

	index := make(map[int]recorder.LiveEntity, len(entities)+len(board))
	for _, e := range entities {
		index[e.ID] = e
	}
	for _, e := range board {
		if _, ok := index[e.ID]; !ok {
			index[e.ID] = e
		}
	}
	heroes := make(map[int]int, len(msg.Heroes))
	for pid, hero := range msg.Heroes {
		heroes[pid] = hero
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.seen = true
	l.gameType = msg.GameType
	l.localPlayerID = msg.LocalPlayerID
	l.opponentPlayerID = msg.OpponentPlayerID
	l.entities = index
	l.heroes = heroes
	l.playerBoard = board
	l.snapshots = snapshots
	return nil
}

// Reset forgets the reported state.
func (l *LiveState) Reset() {
	fresh := NewLiveState()
	l.mu.Lock()
	defer l.mu.Unlock()
	l.seen = false
	l.gameType = ""
	l.localPlayerID = 0
	l.opponentPlayerID = 0
	l.entities = fresh.entities
	l.heroes = fresh.heroes
	l.playerBoard = nil
	l.snapshots = fresh.snapshots
}

func (l *LiveState) IsBattlegrounds() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if !l.seen || l.gameType == "" {
		return true
	}
	return strings.Contains(l.gameType, "BATTLEGROUNDS")
}

func (l *LiveState) GameType() string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.gameType
}

func (l *LiveState) LocalPlayerID() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.localPlayerID
}

func (l *LiveState) OpponentPlayerID() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.opponentPlayerID
}

func (l *LiveState) Entity(id int) (recorder.LiveEntity, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	e, ok := l.entities[id]
	return e, ok
}

// PlayerEntity returns the player root entity carrying PLAYER_ID playerID.
func (l *LiveState) PlayerEntity(playerID int) (recorder.LiveEntity, bool) {
	if playerID <= 0 {
		return recorder.LiveEntity{}, false
	}
	l.mu.RLock()
	defer l.mu.RUnlock()
	for _, e := range l.entities {
		if e.Tag(gametag.TagPlayerID) == playerID && gametag.CardType(e.Tag(gametag.TagCardType)) == gametag.CardTypePlayer {
			return e, true
		}
	}
	return recorder.LiveEntity{}, false
}

func (l *LiveState) HeroEntityID(playerID int) int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.heroes[playerID]
}

func (l *LiveState) PlayerBoard() []recorder.LiveEntity {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.playerBoard
}

func (l *LiveState) BoardSnapshot(heroEntityID int) []recorder.LiveEntity {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.snapshots[heroEntityID]
}
