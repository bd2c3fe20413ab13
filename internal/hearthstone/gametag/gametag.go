// Package gametag holds the numeric attribute codes and enum values that
// appear in Hearthstone's Power.log, plus the decoding rules for their
// textual forms.
package gametag

import (
	"fmt"
	"hash/fnv"
	"strconv"
	"strings"
	"sync"
)

// Tag is a game attribute code.
type Tag int

// Known attribute codes.
const (
	TagInvalid              Tag = 0
	TagStep                 Tag = 19
	TagTurn                 Tag = 20
	TagCurrentPlayer        Tag = 23
	TagFirstPlayer          Tag = 24
	TagHeroEntity           Tag = 27
	TagPlayerID             Tag = 30
	TagExhausted            Tag = 43
	TagDamage               Tag = 44
	TagHealth               Tag = 45
	TagAtk                  Tag = 47
	TagCost                 Tag = 48
	TagZone                 Tag = 49
	TagController           Tag = 50
	TagEntityID             Tag = 53
	TagPlayState            Tag = 17
	TagSilenced             Tag = 188
	TagWindfury             Tag = 189
	TagTaunt                Tag = 190
	TagStealth              Tag = 191
	TagDivineShield         Tag = 194
	TagNextStep             Tag = 198
	TagCardType             Tag = 202
	TagState                Tag = 204
	TagFrozen               Tag = 260
	TagZonePosition         Tag = 263
	TagNumTurnsInPlay       Tag = 271
	TagArmor                Tag = 292
	TagMulliganState        Tag = 305
	TagPoisonous            Tag = 363
	TagNextOpponentPlayerID Tag = 1034
	TagPlayerTechLevel      Tag = 1037
	TagReborn               Tag = 1085
	TagMegaWindfury         Tag = 1207
	TagPlayerLeaderboard    Tag = 1373
	TagTechLevel            Tag = 1440
	TagLettuceController    Tag = 1653
	TagFakeZone             Tag = 1702
	TagFakeZonePosition     Tag = 1703
	TagBaconSetup           Tag = 2022
	TagBaconCombatSetup     Tag = 3533
)

var tagNames = map[Tag]string{
	TagStep:                 "STEP",
	TagTurn:                 "TURN",
	TagCurrentPlayer:        "CURRENT_PLAYER",
	TagFirstPlayer:          "FIRST_PLAYER",
	TagHeroEntity:           "HERO_ENTITY",
	TagPlayerID:             "PLAYER_ID",
	TagExhausted:            "EXHAUSTED",
	TagDamage:               "DAMAGE",
	TagHealth:               "HEALTH",
	TagAtk:                  "ATK",
	TagCost:                 "COST",
	TagZone:                 "ZONE",
	TagController:           "CONTROLLER",
	TagEntityID:             "ENTITY_ID",
	TagPlayState:            "PLAYSTATE",
	TagSilenced:             "SILENCED",
	TagWindfury:             "WINDFURY",
	TagTaunt:                "TAUNT",
	TagStealth:              "STEALTH",
	TagDivineShield:         "DIVINE_SHIELD",
	TagNextStep:             "NEXT_STEP",
	TagCardType:             "CARDTYPE",
	TagState:                "STATE",
	TagFrozen:               "FROZEN",
	TagZonePosition:         "ZONE_POSITION",
	TagNumTurnsInPlay:       "NUM_TURNS_IN_PLAY",
	TagArmor:                "ARMOR",
	TagMulliganState:        "MULLIGAN_STATE",
	TagPoisonous:            "POISONOUS",
	TagNextOpponentPlayerID: "NEXT_OPPONENT_PLAYER_ID",
	TagPlayerTechLevel:      "PLAYER_TECH_LEVEL",
	TagReborn:               "REBORN",
	TagMegaWindfury:         "MEGA_WINDFURY",
	TagPlayerLeaderboard:    "PLAYER_LEADERBOARD_PLACE",
	TagTechLevel:            "TECH_LEVEL",
	TagLettuceController:    "LETTUCE_CONTROLLER",
	TagFakeZone:             "FAKE_ZONE",
	TagFakeZonePosition:     "FAKE_ZONE_POSITION",
	TagBaconSetup:           "BACON_SETUP",
	TagBaconCombatSetup:     "BACON_COMBAT_SETUP",
}

// synthetic remembers the names behind codes handed out for unregistered
// tag names.
var synthetic sync.Map

var tagsByName = func() map[string]Tag {
	m := make(map[string]Tag, len(tagNames))
	for tag, name := range tagNames {
		m[name] = tag
	}
	return m
}()

// String returns the Power.log name of the tag, or TAG_<code> for codes
// without a known name.
func (t Tag) String() string {
	if name, ok := tagNames[t]; ok {
		return name
	}
	if name, ok := synthetic.Load(t); ok {
		return name.(string)
	}
	return "TAG_" + strconv.Itoa(int(t))
}

// Known reports whether the tag has a registered name.
func (t Tag) Known() bool {
	_, ok := tagNames[t]
	return ok
}

// Parse decodes a tag written either as a raw numeric code or as its name.
// Names that are not registered map to a stable negative code derived from
// the name, so unknown attributes are still stored and compared consistently.
func Parse(text string) (Tag, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return TagInvalid, fmt.Errorf("empty tag")
	}
	if code, err := strconv.Atoi(text); err == nil {
		return Tag(code), nil
	}
	if tag, ok := tagsByName[text]; ok {
		return tag, nil
	}
	if strings.HasPrefix(text, "TAG_") {
		if code, err := strconv.Atoi(text[len("TAG_"):]); err == nil {
			return Tag(code), nil
		}
	}
	h := fnv.New32a()
	_, _ = h.Write([]byte(text))
	tag := Tag(-int(h.Sum32()&0x3fffffff) - 1)
	synthetic.LoadOrStore(tag, text)
	return tag, nil
}

// ParseValue decodes a tag value. Integers are accepted for every tag;
// enum names are accepted for the tags that carry an enum.
func ParseValue(tag Tag, text string) (int, error) {
	text = strings.TrimSpace(text)
	if v, err := strconv.Atoi(text); err == nil {
		return v, nil
	}

	var table map[string]int
	switch tag {
	case TagZone, TagFakeZone:
		table = zoneByName
	case TagCardType:
		table = cardTypeByName
	case TagState:
		table = stateByName
	case TagPlayState:
		table = playStateByName
	case TagStep, TagNextStep:
		table = stepByName
	case TagMulliganState:
		table = mulliganByName
	}
	if table != nil {
		if v, ok := table[text]; ok {
			return v, nil
		}
	}
	return 0, fmt.Errorf("decode value %q for tag %s", text, tag)
}
