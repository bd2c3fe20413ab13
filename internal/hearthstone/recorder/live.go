package recorder

import (
	"strings"

	"github.com/ramonehamilton/BG-Companion/internal/hearthstone/gametag"
)

// LiveEntity is an entity as reported by a live game-state source.
type LiveEntity struct {
	ID     int
	CardID string
	Tags   map[gametag.Tag]int
}

// Tag returns the value of tag, or 0.
func (l LiveEntity) Tag(tag gametag.Tag) int {
	return l.Tags[tag]
}

func (l LiveEntity) effectiveZone() gametag.Zone {
	return effectiveZone(l.Tags, gametag.Zone(l.Tags[gametag.TagZone]))
}

func (l LiveEntity) effectivePosition() int {
	return effectivePosition(l.Tags, l.Tags[gametag.TagZonePosition])
}

func (l LiveEntity) effectiveController() int {
	return effectiveController(l.Tags, l.Tags[gametag.TagController])
}

// LiveGame is an authoritative view of the running game, when one is
// available. Every method is best effort: zero values mean "unknown".
type LiveGame interface {
	IsBattlegrounds() bool
	GameType() string
	LocalPlayerID() int
	OpponentPlayerID() int
	Entity(id int) (LiveEntity, bool)
	PlayerEntity(playerID int) (LiveEntity, bool)
	HeroEntityID(playerID int) int
	PlayerBoard() []LiveEntity
	BoardSnapshot(heroEntityID int) []LiveEntity
}

// NoLiveGame is used when nothing but the log is available. It assumes the
// log is a Battlegrounds log; a GameType line in the log overrides that.
type NoLiveGame struct{}

func (NoLiveGame) IsBattlegrounds() bool { return true }
func (NoLiveGame) GameType() string { return "" }
func (NoLiveGame) LocalPlayerID() int { return 0 }
func (NoLiveGame) OpponentPlayerID() int { return 0 }
func (NoLiveGame) Entity(int) (LiveEntity, bool) { return LiveEntity{}, false }
func (NoLiveGame) PlayerEntity(int) (LiveEntity, bool) { return LiveEntity{}, false }
func (NoLiveGame) HeroEntityID(int) int { return 0 }
func (NoLiveGame) PlayerBoard() []LiveEntity { return nil }
func (NoLiveGame) BoardSnapshot(int) []LiveEntity { return nil }

// isBattlegrounds trusts the log's GameType line when one was seen.
func (s *Session) isBattlegrounds() bool {
	if s.header.gameType != "" {
		return strings.Contains(s.header.gameType, "BATTLEGROUNDS")
	}
	return s.live.IsBattlegrounds()
}

// gameType returns the match-type label for the record.
func (s *Session) gameType() string {
	if gt := s.live.GameType(); gt != "" {
		return gt
	}
	return s.header.gameType
}
