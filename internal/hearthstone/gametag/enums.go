package gametag

import "strconv"

// Zone is the value of the ZONE tag.
type Zone int

const (
	ZoneInvalid Zone = iota
	ZonePlay
	ZoneDeck
	ZoneHand
	ZoneGraveyard
	ZoneRemovedFromGame
	ZoneSetAside
	ZoneSecret
)

var zoneNames = []string{"INVALID", "PLAY", "DECK", "HAND", "GRAVEYARD", "REMOVEDFROMGAME", "SETASIDE", "SECRET"}

func (z Zone) String() string { return enumString(zoneNames, int(z)) }

// ParseZone decodes a zone name or number. Unknown names yield ZoneInvalid.
func ParseZone(text string) Zone {
	v, err := ParseValue(TagZone, text)
	if err != nil {
		return ZoneInvalid
	}
	return Zone(v)
}

// CardType is the value of the CARDTYPE tag.
type CardType int

const (
	CardTypeInvalid           CardType = 0
	CardTypeGame              CardType = 1
	CardTypePlayer            CardType = 2
	CardTypeHero              CardType = 3
	CardTypeMinion            CardType = 4
	CardTypeSpell             CardType = 5
	CardTypeEnchantment       CardType = 6
	CardTypeWeapon            CardType = 7
	CardTypeItem              CardType = 8
	CardTypeToken             CardType = 9
	CardTypeHeroPower         CardType = 10
	CardTypeLocation          CardType = 39
	CardTypeQuestReward       CardType = 40
	CardTypeBattlegroundSpell CardType = 42
	CardTypeAnomaly           CardType = 43
	CardTypeTrinket           CardType = 44
)

var cardTypeNames = map[CardType]string{
	CardTypeInvalid:           "INVALID",
	CardTypeGame:              "GAME",
	CardTypePlayer:            "PLAYER",
	CardTypeHero:              "HERO",
	CardTypeMinion:            "MINION",
	CardTypeSpell:             "SPELL",
	CardTypeEnchantment:       "ENCHANTMENT",
	CardTypeWeapon:            "WEAPON",
	CardTypeItem:              "ITEM",
	CardTypeToken:             "TOKEN",
	CardTypeHeroPower:         "HERO_POWER",
	CardTypeLocation:          "LOCATION",
	CardTypeQuestReward:       "BATTLEGROUND_QUEST_REWARD",
	CardTypeBattlegroundSpell: "BATTLEGROUND_SPELL",
	CardTypeAnomaly:           "BATTLEGROUND_ANOMALY",
	CardTypeTrinket:           "BATTLEGROUND_TRINKET",
}

func (c CardType) String() string {
	if name, ok := cardTypeNames[c]; ok {
		return name
	}
	return strconv.Itoa(int(c))
}

// ParseCardType decodes a card type name as used by Power.log and the card
// database. Unknown names yield CardTypeInvalid.
func ParseCardType(text string) CardType {
	v, err := ParseValue(TagCardType, text)
	if err != nil {
		return CardTypeInvalid
	}
	return CardType(v)
}

// State is the value of the STATE tag on the game entity.
type State int

const (
	StateInvalid State = iota
	StateLoading
	StateRunning
	StateComplete
)

var stateNames = []string{"INVALID", "LOADING", "RUNNING", "COMPLETE"}

func (s State) String() string { return enumString(stateNames, int(s)) }

// PlayState is the value of the PLAYSTATE tag on a player entity.
type PlayState int

const (
	PlayStateInvalid PlayState = iota
	PlayStatePlaying
	PlayStateWinning
	PlayStateLosing
	PlayStateWon
	PlayStateLost
	PlayStateTied
	PlayStateDisconnected
	PlayStateConceded
)

var playStateNames = []string{"INVALID", "PLAYING", "WINNING", "LOSING", "WON", "LOST", "TIED", "DISCONNECTED", "CONCEDED"}

func (p PlayState) String() string { return enumString(playStateNames, int(p)) }

// Step is the value of the STEP and NEXT_STEP tags.
type Step int

var stepNames = []string{
	"INVALID", "BEGIN_FIRST", "BEGIN_SHUFFLE", "BEGIN_DRAW", "BEGIN_MULLIGAN",
	"MAIN_BEGIN", "MAIN_READY", "MAIN_RESOURCE", "MAIN_DRAW", "MAIN_START",
	"MAIN_ACTION", "MAIN_COMBAT", "MAIN_END", "MAIN_NEXT", "FINAL_WRAPUP",
	"FINAL_GAMEOVER", "MAIN_CLEANUP", "MAIN_START_TRIGGERS",
}

func (s Step) String() string { return enumString(stepNames, int(s)) }

var mulliganNames = []string{"INVALID", "INPUT", "DEALING", "WAITING", "DONE"}

var (
	zoneByName      = indexNames(zoneNames)
	stateByName     = indexNames(stateNames)
	playStateByName = indexNames(playStateNames)
	stepByName      = indexNames(stepNames)
	mulliganByName  = indexNames(mulliganNames)
	cardTypeByName  = func() map[string]int {
		m := make(map[string]int, len(cardTypeNames))
		for v, name := range cardTypeNames {
			m[name] = int(v)
		}
		return m
	}()
)

func indexNames(names []string) map[string]int {
	m := make(map[string]int, len(names))
	for i, name := range names {
		m[name] = i
	}
	return m
}

func enumString(names []string, v int) string {
	if v >= 0 && v < len(names) {
		return names[v]
	}
	return strconv.Itoa(v)
}
