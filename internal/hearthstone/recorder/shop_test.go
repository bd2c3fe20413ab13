package recorder

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// shopEntity creates a card waiting in the tavern.
func shopEntity(id, controller int, cardID string) string {
	return fmt.Sprintf(`FULL_ENTITY - Creating ID=%d CardID=%s
    tag=CONTROLLER value=%d
    tag=ZONE value=SETASIDE`, id, cardID, controller)
}

func TestShopEvents_Purchases(t *testing.T) {
	h := newHarness(t)
	h.standardMatch()
	h.feed(shopEntity(50, 1, "BGS_004"),
		shopEntity(51, 1, "BG_SPELL"),
		shopEntity(52, 1, "UNKNOWN_CARD"),
		tagChange(50, "ZONE", "HAND"),
		tagChange(51, "ZONE", "PLAY"),
		tagChange(52, "ZONE", "HAND"))

	events := h.s.match.ShopEvents
	require.Len(t, events, 3)

	assert.Equal(t, ShopBuyMinion, events[0].Type)
	assert.Equal(t, 50, events[0].EntityID)
	assert.Equal(t, "Wrath Weaver", events[0].Name)
	assert.Equal(t, 1, events[0].Turn)
	assert.False(t, events[0].Timestamp.IsZero())

	assert.Equal(t, ShopBuySpell, events[1].Type)
	assert.Equal(t, "Tavern Coin", events[1].Name)

	assert.Equal(t, ShopBuy, events[2].Type)
	assert.Empty(t, events[2].Name)
}

func TestShopEvents_Ignored(t *testing.T) {
	tests := []struct {
		name  string
		lines []string
	}{
		{
			name:  "opponent purchase",
			lines: []string{shopEntity(50, 2, "BGS_004"), tagChange(50, "ZONE", "HAND")},
		},
		{
			name:  "not from the tavern",
			lines: []string{minion(50, 1, 2, "BGS_004", 1, 1), tagChange(50, "ZONE", "HAND")},
		},
		{
			name:  "sold back",
			lines: []string{shopEntity(50, 1, "BGS_004"), tagChange(50, "ZONE", "GRAVEYARD")},
		},
		{
			name:  "during combat",
			lines: []string{combatStart, shopEntity(50, 1, "BGS_004"), tagChange(50, "ZONE", "PLAY")},
		},
		{
			name:  "first tier assignment",
			lines: []string{tagChange(2, "PLAYER_TECH_LEVEL", 1)},
		},
		{
			name: "opponent upgrade",
			lines: []string{
				tagChange(3, "PLAYER_TECH_LEVEL", 1),
				tagChange(3, "PLAYER_TECH_LEVEL", 2),
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			h.standardMatch()
			h.feed(tt.lines...)
			assert.Empty(t, h.s.match.ShopEvents)
		})
	}
}

func TestShopEvents_TavernUpgrade(t *testing.T) {
	h := newHarness(t)
	h.standardMatch()
	h.feed(tagChange(2, "PLAYER_TECH_LEVEL", 1),
		tagChange(10, "PLAYER_TECH_LEVEL", 1),
		tagChange(2, "PLAYER_TECH_LEVEL", 2),
		// The hero mirrors the player's tier.
		tagChange(10, "PLAYER_TECH_LEVEL", 2),
		tagChange("GameEntity", "TURN", 5),
		tagChange(2, "PLAYER_TECH_LEVEL", 3))

	events := h.s.match.ShopEvents
	require.Len(t, events, 2)
	assert.Equal(t, ShopEvent{Type: ShopTavernUpgrade, Turn: 1, Timestamp: events[0].Timestamp, TechLevel: 2}, events[0])
	assert.Equal(t, ShopTavernUpgrade, events[1].Type)
	assert.Equal(t, 3, events[1].Turn)
	assert.Equal(t, 3, events[1].TechLevel)
}

func TestShopEvents_AfterCombatEnds(t *testing.T) {
	h := newHarness(t)
	h.standardMatch()
	h.feed(combatStart, combatEnd,
		shopEntity(50, 1, "BGS_039"),
		tagChange(50, "ZONE", "HAND"))

	require.Len(t, h.s.match.ShopEvents, 1)
	assert.Equal(t, ShopBuyMinion, h.s.match.ShopEvents[0].Type)
}

func TestShopEvents_Disabled(t *testing.T) {
	h := newHarness(t, func(o *Options) { o.Settings.RecordShopEvents = false })
	h.standardMatch()
	h.feed(shopEntity(50, 1, "BGS_004"),
		tagChange(50, "ZONE", "HAND"),
		tagChange(2, "PLAYER_TECH_LEVEL", 1),
		tagChange(2, "PLAYER_TECH_LEVEL", 2))

	assert.Empty(t, h.s.match.ShopEvents)
}
