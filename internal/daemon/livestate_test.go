package daemon

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ramonehamilton/BG-Companion/internal/hearthstone/gametag"
	"github.com/ramonehamilton/BG-Companion/internal/hearthstone/recorder"
)

const stateFrame = `{
	"gameType": "GT_BATTLEGROUNDS",
	"localPlayerId": 5,
	"opponentPlayerId": 7,
	"entities": [
		{"id": 2, "tags": {"PLAYER_ID": 5, "CARDTYPE": "PLAYER"}},
		{"id": 3, "tags": {"PLAYER_ID": 7, "44": 2}},
		{"id": 10, "cardId": "HERO_A", "tags": {"CARDTYPE": "HERO", "HEALTH": 30}}
	],
	"heroes": {"5": 10, "7": 20},
	"playerBoard": [
		{"id": 30, "cardId": "BGS_004", "tags": {"ZONE": "PLAY", "ZONE_POSITION": 1}}
	],
	"boardSnapshots": {
		"20": [{"id": 40, "cardId": "BGS_039", "tags": {"ZONE": "PLAY"}}]
	}
}`

func decodeFrame(t *testing.T, text string) GameStateMessage {
	t.Helper()
	var msg GameStateMessage
	require.NoError(t, json.Unmarshal([]byte(text), &msg))
	return msg
}

func TestLiveState_BeforeFirstFrame(t *testing.T) {
	l := NewLiveState()

	assert.True(t, l.IsBattlegrounds())
	assert.Empty(t, l.GameType())
	assert.Zero(t, l.LocalPlayerID())
	_, ok := l.Entity(1)
	assert.False(t, ok)
	_, ok = l.PlayerEntity(1)
	assert.False(t, ok)
	assert.Nil(t, l.PlayerBoard())
}

func TestLiveState_Update(t *testing.T) {
	l := NewLiveState()
	require.NoError(t, l.Update(decodeFrame(t, stateFrame)))

	assert.True(t, l.IsBattlegrounds())
	assert.Equal(t, "GT_BATTLEGROUNDS", l.GameType())
	assert.Equal(t, 5, l.LocalPlayerID())
	assert.Equal(t, 7, l.OpponentPlayerID())
	assert.Equal(t, 10, l.HeroEntityID(5))
	assert.Equal(t, 20, l.HeroEntityID(7))

	hero, ok := l.Entity(10)
	require.True(t, ok)
	assert.Equal(t, "HERO_A", hero.CardID)
	assert.Equal(t, int(gametag.CardTypeHero), hero.Tag(gametag.TagCardType))
	assert.Equal(t, 30, hero.Tag(gametag.TagHealth))

	// Numeric tag codes are accepted as keys.
	third, ok := l.Entity(3)
	require.True(t, ok)
	assert.Equal(t, 2, third.Tag(gametag.TagDamage))

	// Board entities are reachable by id.
	minion, ok := l.Entity(30)
	require.True(t, ok)
	assert.Equal(t, int(gametag.ZonePlay), minion.Tag(gametag.TagZone))

	player, ok := l.PlayerEntity(5)
	require.True(t, ok)
	assert.Equal(t, 2, player.ID)
	_, ok = l.PlayerEntity(7)
	assert.False(t, ok, "entity 3 has no CARDTYPE")

	// Numeric CARDTYPE makes it a player entity.
	withType := decodeFrame(t, `{"entities":[{"id":3,"tags":{"PLAYER_ID":7,"202":2}}]}`)
	require.NoError(t, l.Update(withType))
	player, ok = l.PlayerEntity(7)
	require.True(t, ok)
	assert.Equal(t, 3, player.ID)

	require.Len(t, l.PlayerBoard(), 1)
	snap := l.BoardSnapshot(20)
	require.Len(t, snap, 1)
	assert.Equal(t, "BGS_039", snap[0].CardID)
}

func TestLiveState_BadFrameKeepsState(t *testing.T) {
	l := NewLiveState()
	require.NoError(t, l.Update(decodeFrame(t, stateFrame)))

	bad := decodeFrame(t, `{"gameType":"GT_RANKED","entities":[{"id":1,"tags":{"ZONE":"NOWHERE"}}]}`)
	assert.Error(t, l.Update(bad))
	assert.Equal(t, "GT_BATTLEGROUNDS", l.GameType())

	notEnum := decodeFrame(t, `{"entities":[{"id":1,"tags":{"ATK":"lots"}}]}`)
	assert.Error(t, l.Update(notEnum))
	assert.Equal(t, 5, l.LocalPlayerID())
}

func TestLiveState_NonBattlegrounds(t *testing.T) {
	l := NewLiveState()
	require.NoError(t, l.Update(GameStateMessage{GameType: "GT_RANKED"}))
	assert.False(t, l.IsBattlegrounds())

	l.Reset()
	assert.True(t, l.IsBattlegrounds())
	assert.Empty(t, l.GameType())
}

func TestLiveState_FeedsSession(t *testing.T) {
	l := NewLiveState()
	require.NoError(t, l.Update(GameStateMessage{GameType: "GT_RANKED"}))

	s := recorder.NewSession(recorder.Options{Live: l})
	for _, line := range []string{
		"CREATE_GAME",
		"GameEntity EntityID=1",
		"Player EntityID=2 PlayerID=1",
		"TAG_CHANGE Entity=GameEntity tag=BACON_COMBAT_SETUP value=1",
		"TAG_CHANGE Entity=GameEntity tag=BACON_COMBAT_SETUP value=0",
	} {
		s.ProcessLine(line)
	}

	st := s.Snapshot()
	assert.True(t, st.InMatch)
	assert.Equal(t, "idle", st.CombatPhase, "combat is not tracked outside Battlegrounds")
}
