// Package recorder rebuilds Battlegrounds matches from Power.log lines.
//
// A Session consumes lines in order, keeps an entity table for the current
// match, snapshots both boards and heroes whenever combat starts, and hands
// every finished match to a MatchSink once.
package recorder

import (
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ramonehamilton/BG-Companion/internal/hearthstone/carddb"
	"github.com/ramonehamilton/BG-Companion/internal/hearthstone/gametag"
	"github.com/ramonehamilton/BG-Companion/internal/hearthstone/powerlog"
	"github.com/ramonehamilton/BG-Companion/internal/metrics"
)

// Settings are the behavior toggles. The session reads them at creation and
// on Configure; it never changes them.
type Settings struct {
	RecordShopEvents bool
	SaveRawBlocks    bool
	KeepDebugLogs    bool
	MaxRawBlocks     int // 0 keeps every block
}

// DefaultSettings returns the toggles used when none are configured.
func DefaultSettings() Settings {
	return Settings{RecordShopEvents: true, SaveRawBlocks: true}
}

// EventPublisher receives match and combat notifications.
type EventPublisher interface {
	Publish(eventType string, payload any)
}

type noopPublisher struct{}

func (noopPublisher) Publish(string, any) {}

// Options configure a Session. Every field is optional.
type Options struct {
	Settings Settings
	Cards    carddb.Database
	Live     LiveGame
	Sink     MatchSink
	Logger   *zap.Logger
	Metrics  *metrics.Metrics
	Events   EventPublisher
	Clock    func() time.Time
	NewID    func() string
}

// header holds what GameState.DebugPrintGame prints about a game. Those
// lines arrive before PowerTaskList's CREATE_GAME, so starting a match does
// not clear them.
type header struct {
	gameType    string
	playerNames map[string]int
}

// Session is one log-processing session. ProcessLine must be called from a
// single goroutine; UpdateOpponentBoard, Configure, Flush and Snapshot may be
// called from any goroutine.
type Session struct {
	mu sync.Mutex

	settings Settings
	cards    carddb.Database
	live     LiveGame
	sink     MatchSink
	log      *zap.Logger
	metrics  *metrics.Metrics
	events   EventPublisher
	clock    func() time.Time
	newID    func() string

	entities *entityTable
	match    *MatchRecord
	written  bool
	header   header

	gameEntityID    int
	localPlayerID   int
	pendingEntityID int
	turn            int
	nextOpponentID  int

	heroByPlayer map[int]int // player id -> hero entity id
	pendingHero  map[int]int // player entity id -> hero entity id, until PLAYER_ID is known
	heroDamage   map[int]int // hero entity id -> last DAMAGE

	combat combatState
	feed   boardFeed
}

// NewSession creates a session with no match open.
func NewSession(opts Options) *Session {
	s := &Session{
		settings: opts.Settings,
		cards:    opts.Cards,
		live:     opts.Live,
		sink:     opts.Sink,
		log:      opts.Logger,
		metrics:  opts.Metrics,
		events:   opts.Events,
		clock:    opts.Clock,
		newID:    opts.NewID,
		entities: newEntityTable(),
		header:   header{playerNames: make(map[string]int)},

		heroByPlayer: make(map[int]int),
		pendingHero:  make(map[int]int),
		heroDamage:   make(map[int]int),
	}
	if s.cards == nil {
		s.cards = carddb.Empty{}
	}
	if s.live == nil {
		s.live = NoLiveGame{}
	}
	if s.sink == nil {
		s.sink = discardSink{}
	}
	if s.log == nil {
		s.log = zap.NewNop()
	}
	if s.events == nil {
		s.events = noopPublisher{}
	}
	if s.clock == nil {
		s.clock = time.Now
	}
	if s.newID == nil {
		s.newID = uuid.NewString
	}
	return s
}

// Configure replaces the behavior toggles.
func (s *Session) Configure(settings Settings) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.settings = settings
}

// ProcessLine applies one Power.log line. Blank, unrecognized and
// undecodable lines are skipped.
func (s *Session) ProcessLine(line string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	start := time.Now()
	rec, err := powerlog.ParseLine(line)
	defer func() { s.metrics.ObserveLine(rec.Kind.String(), time.Since(start)) }()

	if err != nil {
		s.metrics.DecodeFailure()
		s.debug("record_discarded", zap.Error(err), zap.String("line", line))
		// A bad continuation line does not end the entity's tag list.
		if rec.Kind != powerlog.KindTagLine {
			s.pendingEntityID = 0
		}
		return
	}
	if rec.Echo() {
		return
	}
	s.apply(rec)
}

func (s *Session) apply(rec powerlog.Record) {
	if rec.Kind == powerlog.KindTagLine {
		if s.pendingEntityID > 0 {
			s.assignTag(s.entities.getOrCreate(s.pendingEntityID), rec.Tag, rec.Value, fromContinuation)
		}
		return
	}
	s.pendingEntityID = 0

	switch rec.Kind {
	case powerlog.KindCreateGame:
		s.startMatch()

	case powerlog.KindGameEntity:
		s.ensureMatch()
		e := s.entities.getOrCreate(rec.EntityID)
		e.CardType = gametag.CardTypeGame
		s.gameEntityID = rec.EntityID
		s.pendingEntityID = rec.EntityID

	case powerlog.KindPlayerEntity:
		s.ensureMatch()
		e := s.entities.getOrCreate(rec.EntityID)
		e.root = true
		s.setPlayerID(e, rec.PlayerID)
		s.pendingEntityID = rec.EntityID

	case powerlog.KindFullEntity:
		e := s.entities.getOrCreate(rec.EntityID)
		if rec.Zone != gametag.ZoneInvalid {
			e.Zone = rec.Zone
			e.Tags[gametag.TagZone] = int(rec.Zone)
		}
		if d := rec.Entity.Descriptor; d != nil && d.PlayerID > 0 && e.Controller == 0 {
			e.Controller = d.PlayerID
		}
		s.setCardID(e, rec.CardID)
		s.pendingEntityID = rec.EntityID

	case powerlog.KindShowEntity:
		e := s.entities.getOrCreate(rec.EntityID)
		s.setCardID(e, rec.CardID)
		s.pendingEntityID = rec.EntityID

	case powerlog.KindTagChange:
		if e := s.resolveRef(rec.Entity); e != nil {
			s.assignTag(e, rec.Tag, rec.Value, fromTagChange)
		}

	case powerlog.KindBlockStart:
		s.recordBlock(rec)
		s.refreshSnapshot(false)

	case powerlog.KindPlayerName:
		s.header.playerNames[rec.PlayerName] = rec.PlayerID

	case powerlog.KindGameType:
		s.header.gameType = rec.GameType
	}
}

// setCardID records a revealed card id and seeds the card type from the
// card database when the log has not supplied one.
func (s *Session) setCardID(e *EntityState, cardID string) {
	if cardID == "" {
		return
	}
	e.CardID = cardID
	if e.CardType != gametag.CardTypeInvalid {
		return
	}
	if card, ok := s.cards.Lookup(cardID); ok {
		e.CardType = card.CardType()
	}
}

// resolveRef finds the entity a TAG_CHANGE names. Player display names only
// resolve once a PlayerName line has mapped them to a player id.
func (s *Session) resolveRef(ref powerlog.EntityRef) *EntityState {
	switch {
	case ref.GameEntity:
		if s.gameEntityID == 0 {
			// GameEntity is always entity 1 when its declaration was missed.
			s.gameEntityID = 1
		}
		return s.entities.getOrCreate(s.gameEntityID)
	case ref.ID > 0:
		e := s.entities.getOrCreate(ref.ID)
		if d := ref.Descriptor; d != nil && e.CardID == "" {
			s.setCardID(e, d.CardID)
		}
		return e
	case ref.PlayerName != "":
		pid, ok := s.header.playerNames[ref.PlayerName]
		if !ok {
			return nil
		}
		return s.playerRoot(pid)
	}
	return nil
}

func (s *Session) recordBlock(rec powerlog.Record) {
	if !s.settings.SaveRawBlocks || s.match == nil || rec.Block == nil {
		return
	}
	if limit := s.settings.MaxRawBlocks; limit > 0 && len(s.match.RawBlocks) >= limit {
		return
	}
	b := rec.Block
	s.match.RawBlocks = append(s.match.RawBlocks, RawBlock{
		Turn:           s.turn,
		Clock:          rec.Clock,
		Type:           b.Type,
		SourceEntityID: b.SourceEntityID,
		SourceCardID:   b.SourceCardID,
		PlayerID:       b.PlayerID,
		EffectCardID:   b.EffectCardID,
		TargetCardID:   b.TargetCardID,
		TriggerKeyword: b.TriggerKeyword,
	})
}

// Flush writes the open match, if it has anything to write, and resets the
// session. Call it on shutdown.
func (s *Session) Flush() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.finishMatch()
	s.resetHeader()
}

// debug logs a diagnostic when debug logs are kept.
func (s *Session) debug(msg string, fields ...zap.Field) {
	if s.settings.KeepDebugLogs {
		s.log.Debug(msg, fields...)
	}
}

// SessionStatus is a read-only view of a session.
type SessionStatus struct {
	MatchID          string      `json:"matchId,omitempty"`
	InMatch          bool        `json:"inMatch"`
	GameType         string      `json:"gameType,omitempty"`
	Turn             int         `json:"turn"`
	Turns            int         `json:"turns"`
	Entities         int         `json:"entities"`
	LocalPlayerID    int         `json:"localPlayerId"`
	OpponentPlayerID int         `json:"opponentPlayerId"`
	CombatPhase      string      `json:"combatPhase"`
	NeedsRefresh     bool        `json:"needsRefresh"`
	Missing          []string    `json:"missing,omitempty"`
	CurrentTurn      *TurnRecord `json:"currentTurn,omitempty"`
	ShopEvents       int         `json:"shopEvents"`
	FeedIDs          []int       `json:"feedIds,omitempty"`
	FeedUpdatedAt    time.Time   `json:"feedUpdatedAt,omitzero"`
}

// Snapshot returns the session's current status. The returned turn is a copy.
func (s *Session) Snapshot() SessionStatus {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := SessionStatus{
		InMatch:          s.match != nil,
		GameType:         s.header.gameType,
		Turn:             s.turn,
		Entities:         s.entities.len(),
		LocalPlayerID:    s.resolveLocalPlayerID(),
		OpponentPlayerID: s.nextOpponentID,
		CombatPhase:      s.combat.phase.String(),
		NeedsRefresh:     s.combat.needsRefresh,
	}
	if s.match != nil {
		st.MatchID = s.match.ID
		st.Turns = len(s.match.Turns)
		st.ShopEvents = len(s.match.ShopEvents)
	}
	if t := s.combat.turn; t != nil {
		cp := *t
		cp.PlayerBoard = slices.Clone(t.PlayerBoard)
		cp.OpponentBoard = slices.Clone(t.OpponentBoard)
		st.CurrentTurn = &cp
		st.Missing = t.missing()
		if st.OpponentPlayerID == 0 {
			st.OpponentPlayerID = s.combat.opponentID
		}
	}
	st.FeedIDs, st.FeedUpdatedAt = s.feed.snapshot()
	return st
}

// Entity returns a copy of the entity's current state.
func (s *Session) Entity(id int) (EntityState, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e := s.entities.get(id)
	if e == nil {
		return EntityState{}, false
	}
	cp := *e
	cp.Tags = maps.Clone(e.Tags)
	return cp, true
}
