package recorder

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ramonehamilton/BG-Companion/internal/hearthstone/carddb"
	"github.com/ramonehamilton/BG-Companion/internal/hearthstone/gametag"
)

// Player 1 (entity 2, hero 10) is local; player 2 (entity 3, hero 20) is the opponent.
const gameStart = `CREATE_GAME
GameEntity EntityID=1
    tag=STATE value=RUNNING
Player EntityID=2 PlayerID=1
    tag=HERO_ENTITY value=10
Player EntityID=3 PlayerID=2
    tag=HERO_ENTITY value=20`

const (
	combatStart = "TAG_CHANGE Entity=GameEntity tag=BACON_COMBAT_SETUP value=1\nTAG_CHANGE Entity=GameEntity tag=BACON_COMBAT_SETUP value=0"
	combatEnd   = "TAG_CHANGE Entity=GameEntity tag=BACON_SETUP value=1\nTAG_CHANGE Entity=GameEntity tag=BACON_SETUP value=0"
	gameOver    = "TAG_CHANGE Entity=GameEntity tag=STATE value=COMPLETE"
	nextOpp     = "TAG_CHANGE Entity=2 tag=NEXT_OPPONENT_PLAYER_ID value=2"
)

func hero(id, controller int, cardID string, health, damage int) string {
	return fmt.Sprintf(`FULL_ENTITY - Creating ID=%d CardID=%s
    tag=CARDTYPE value=HERO
    tag=CONTROLLER value=%d
    tag=ZONE value=PLAY
    tag=HEALTH value=%d
    tag=DAMAGE value=%d`, id, cardID, controller, health, damage)
}

func minion(id, controller, pos int, cardID string, atk, health int) string {
	return fmt.Sprintf(`FULL_ENTITY - Creating ID=%d CardID=%s
    tag=CARDTYPE value=MINION
    tag=CONTROLLER value=%d
    tag=ZONE value=PLAY
    tag=ZONE_POSITION value=%d
    tag=ATK value=%d
    tag=HEALTH value=%d`, id, cardID, controller, pos, atk, health)
}

func tagChange(entity any, tag string, value any) string {
	return fmt.Sprintf("TAG_CHANGE Entity=%v tag=%s value=%v", entity, tag, value)
}

var testCards = carddb.NewCatalog(
	carddb.Card{ID: "HERO_A", Name: "Hero A", Type: "HERO"},
	carddb.Card{ID: "HERO_B", Name: "Hero B", Type: "HERO"},
	carddb.Card{ID: "BGS_004", Name: "Wrath Weaver", Type: "MINION", TechLevel: 1},
	carddb.Card{ID: "BGS_039", Name: "Dragonspawn Lieutenant", Type: "MINION", TechLevel: 1},
	carddb.Card{ID: "BG_SPELL", Name: "Tavern Coin", Type: "BATTLEGROUND_SPELL"},
)

type captureSink struct {
	mu      sync.Mutex
	matches []*MatchRecord
	err     error
}

func (c *captureSink) WriteMatch(_ context.Context, m *MatchRecord) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.matches = append(c.matches, m)
	return c.err
}

func (c *captureSink) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.matches)
}

type fakeLive struct {
	NoLiveGame
	local     int
	opponent  int
	entities  map[int]LiveEntity
	players   map[int]LiveEntity
	heroes    map[int]int
	board     []LiveEntity
	snapshots map[int][]LiveEntity
}

func (f *fakeLive) LocalPlayerID() int    { return f.local }
func (f *fakeLive) OpponentPlayerID() int { return f.opponent }
func (f *fakeLive) HeroEntityID(pid int) int {
	return f.heroes[pid]
}
func (f *fakeLive) Entity(id int) (LiveEntity, bool) {
	e, ok := f.entities[id]
	return e, ok
}
func (f *fakeLive) PlayerEntity(pid int) (LiveEntity, bool) {
	e, ok := f.players[pid]
	return e, ok
}
func (f *fakeLive) PlayerBoard() []LiveEntity { return f.board }
func (f *fakeLive) BoardSnapshot(heroID int) []LiveEntity {
	return f.snapshots[heroID]
}

func liveMinion(id, controller, pos int, cardID string) LiveEntity {
	return LiveEntity{ID: id, CardID: cardID, Tags: map[gametag.Tag]int{
		gametag.TagCardType:     int(gametag.CardTypeMinion),
		gametag.TagController:   controller,
		gametag.TagZone:         int(gametag.ZonePlay),
		gametag.TagZonePosition: pos,
		gametag.TagAtk:          2,
		gametag.TagHealth:       2,
	}}
}

type harness struct {
	t    *testing.T
	s    *Session
	sink *captureSink
}

func newHarness(t *testing.T, configure ...func(*Options)) *harness {
	t.Helper()
	sink := &captureSink{}
	now := time.Date(2025, 3, 1, 20, 0, 0, 0, time.UTC)
	ids := 0
	opts := Options{
		Settings: DefaultSettings(),
		Cards:    testCards,
		Sink:     sink,
		Clock: func() time.Time {
			now = now.Add(time.Second)
			return now
		},
		NewID: func() string {
			ids++
			return fmt.Sprintf("match-%d", ids)
		},
	}
	for _, fn := range configure {
		fn(&opts)
	}
	return &harness{t: t, s: NewSession(opts), sink: sink}
}

// feed processes each non-blank line of text.
func (h *harness) feed(text ...string) {
	for _, block := range text {
		for _, line := range strings.Split(block, "\n") {
			h.s.ProcessLine(strings.TrimSpace(line))
		}
	}
}

// currentTurn returns the open turn.
func (h *harness) currentTurn() *TurnRecord {
	h.t.Helper()
	if h.s.combat.turn == nil {
		h.t.Fatal("no open turn")
	}
	return h.s.combat.turn
}

// standardMatch starts a match with both heroes at full health and one
// minion each.
func (h *harness) standardMatch() {
	h.feed(gameStart,
		hero(10, 1, "HERO_A", 30, 0),
		hero(20, 2, "HERO_B", 30, 0),
		minion(30, 1, 1, "BGS_004", 1, 3),
		minion(40, 2, 1, "BGS_039", 2, 3),
		tagChange("GameEntity", "TURN", 1),
		nextOpp,
	)
}
