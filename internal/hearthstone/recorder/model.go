package recorder

import "time"

// Outcome is the result of one combat from the local player's side.
type Outcome string

const (
	OutcomeWin  Outcome = "Win"
	OutcomeLoss Outcome = "Loss"
	OutcomeTie  Outcome = "Tie"
)

// BoardSource names the tier that produced a board snapshot.
type BoardSource string

const (
	SourceNone              BoardSource = ""
	SourceLivePlayerBoard   BoardSource = "LivePlayerBoard"
	SourceWatcher           BoardSource = "Watcher"
	SourceLiveBoardSnapshot BoardSource = "LiveBoardSnapshot"
	SourcePowerLog          BoardSource = "PowerLog"
)

// rank orders sources by priority; lower is preferred.
func (b BoardSource) rank() int {
	switch b {
	case SourceLivePlayerBoard:
		return 0
	case SourceWatcher:
		return 1
	case SourceLiveBoardSnapshot:
		return 2
	case SourcePowerLog:
		return 3
	}
	return 4
}

// HeroInfo identifies a hero card.
type HeroInfo struct {
	CardID string `json:"CardId"`
	Name   string `json:"Name"`
}

// MinionRecord is one minion on a board snapshot.
type MinionRecord struct {
	EntityID     int            `json:"EntityId"`
	CardID       string         `json:"CardId"`
	Name         string         `json:"Name"`
	ZonePosition int            `json:"ZonePosition"`
	Attack       int            `json:"Attack"`
	Health       int            `json:"Health"`
	MaxHealth    int            `json:"MaxHealth"`
	Damage       int            `json:"Damage"`
	Statuses     []string       `json:"Statuses"`
	Tags         map[string]int `json:"Tags"`
}

// TurnRecord describes one combat round. It is opened when combat starts
// and may be updated until the post-combat window closes.
type TurnRecord struct {
	TurnNumber       int       `json:"TurnNumber"`
	Timestamp        time.Time `json:"Timestamp"`
	OpponentPlayerID int       `json:"OpponentPlayerId"`

	PlayerHero   HeroInfo `json:"PlayerHero"`
	OpponentHero HeroInfo `json:"OpponentHero"`

	PlayerStartHealth   int `json:"PlayerStartHealth"`
	PlayerStartArmor    int `json:"PlayerStartArmor"`
	PlayerEndHealth     int `json:"PlayerEndHealth"`
	PlayerEndArmor      int `json:"PlayerEndArmor"`
	OpponentStartHealth int `json:"OpponentStartHealth"`
	OpponentStartArmor  int `json:"OpponentStartArmor"`
	OpponentEndHealth   int `json:"OpponentEndHealth"`
	OpponentEndArmor    int `json:"OpponentEndArmor"`

	PlayerTechLevel   int `json:"PlayerTechLevel"`
	OpponentTechLevel int `json:"OpponentTechLevel"`

	PlayerBoard         []MinionRecord `json:"PlayerBoard"`
	OpponentBoard       []MinionRecord `json:"OpponentBoard"`
	PlayerBoardSource   BoardSource    `json:"PlayerBoardSource"`
	OpponentBoardSource BoardSource    `json:"OpponentBoardSource"`

	DamageToPlayer   int     `json:"DamageToPlayer"`
	DamageToOpponent int     `json:"DamageToOpponent"`
	Outcome          Outcome `json:"Outcome"`
}

// side is one half of a turn record.
type side int

const (
	sidePlayer side = iota
	sideOpponent
)

var sides = [...]side{sidePlayer, sideOpponent}

func (sd side) String() string {
	if sd == sidePlayer {
		return "player"
	}
	return "opponent"
}

// turnSide points at one side's fields of a TurnRecord.
type turnSide struct {
	hero        *HeroInfo
	startHealth *int
	startArmor  *int
	endHealth   *int
	endArmor    *int
	techLevel   *int
	board       *[]MinionRecord
	source      *BoardSource
}

func (t *TurnRecord) side(sd side) turnSide {
	if sd == sidePlayer {
		return turnSide{
			hero: &t.PlayerHero, startHealth: &t.PlayerStartHealth, startArmor: &t.PlayerStartArmor,
			endHealth: &t.PlayerEndHealth, endArmor: &t.PlayerEndArmor, techLevel: &t.PlayerTechLevel,
			board: &t.PlayerBoard, source: &t.PlayerBoardSource,
		}
	}
	return turnSide{
		hero: &t.OpponentHero, startHealth: &t.OpponentStartHealth, startArmor: &t.OpponentStartArmor,
		endHealth: &t.OpponentEndHealth, endArmor: &t.OpponentEndArmor, techLevel: &t.OpponentTechLevel,
		board: &t.OpponentBoard, source: &t.OpponentBoardSource,
	}
}

// score recomputes damage and outcome from start and end health.
func (t *TurnRecord) score() {
	t.DamageToPlayer = max(0, t.PlayerStartHealth-t.PlayerEndHealth)
	t.DamageToOpponent = max(0, t.OpponentStartHealth-t.OpponentEndHealth)
	switch {
	case t.DamageToOpponent > 0 && t.DamageToPlayer == 0:
		t.Outcome = OutcomeWin
	case t.DamageToPlayer > 0 && t.DamageToOpponent == 0:
		t.Outcome = OutcomeLoss
	default:
		t.Outcome = OutcomeTie
	}
}

// Missing snapshot fields, as reported in refresh diagnostics.
const (
	missingPlayerHero    = "playerHeroHpArmor"
	missingOpponentHero  = "opponentHeroHpArmor"
	missingPlayerBoard   = "playerBoard"
	missingOpponentBoard = "opponentBoard"
)

// missing lists the snapshot fields that are still empty.
func (t *TurnRecord) missing() []string {
	var out []string
	if t.PlayerStartHealth <= 0 && t.PlayerStartArmor <= 0 {
		out = append(out, missingPlayerHero)
	}
	if t.OpponentStartHealth <= 0 && t.OpponentStartArmor <= 0 {
		out = append(out, missingOpponentHero)
	}
	if len(t.PlayerBoard) == 0 {
		out = append(out, missingPlayerBoard)
	}
	if len(t.OpponentBoard) == 0 {
		out = append(out, missingOpponentBoard)
	}
	return out
}

// ShopEventType classifies an inferred shop action.
type ShopEventType string

const (
	ShopTavernUpgrade ShopEventType = "TavernUpgrade"
	ShopBuyMinion     ShopEventType = "BuyMinion"
	ShopBuySpell      ShopEventType = "BuySpell"
	ShopBuy           ShopEventType = "Buy"
)

// ShopEvent is a best-effort annotation inferred from tag changes outside combat.
type ShopEvent struct {
	Type      ShopEventType `json:"Type"`
	Turn      int           `json:"Turn"`
	Timestamp time.Time     `json:"Timestamp"`
	EntityID  int           `json:"EntityId,omitempty"`
	CardID    string        `json:"CardId,omitempty"`
	Name      string        `json:"Name,omitempty"`
	TechLevel int           `json:"TechLevel,omitempty"`
}

// RawBlock is a retained BLOCK_START line.
type RawBlock struct {
	Turn           int    `json:"Turn"`
	Clock          string `json:"Clock,omitempty"`
	Type           string `json:"Type"`
	SourceEntityID int    `json:"SourceEntityId"`
	SourceCardID   string `json:"SourceCardId,omitempty"`
	PlayerID       int    `json:"PlayerId,omitempty"`
	EffectCardID   string `json:"EffectCardId,omitempty"`
	TargetCardID   string `json:"TargetCardId,omitempty"`
	TriggerKeyword string `json:"TriggerKeyword,omitempty"`
}

// MatchRecord is everything recorded for one match. It is handed to the
// sink once, when the match completes or is flushed.
type MatchRecord struct {
	ID            string        `json:"Id"`
	StartTime     time.Time     `json:"StartTime"`
	EndTime       time.Time     `json:"EndTime"`
	GameType      string        `json:"GameType,omitempty"`
	LocalPlayerID int           `json:"LocalPlayerId"`
	Result        string        `json:"Result,omitempty"`
	Turns         []*TurnRecord `json:"Turns"`
	ShopEvents    []ShopEvent   `json:"ShopEvents,omitempty"`
	RawBlocks     []RawBlock    `json:"RawBlocks,omitempty"`
}

// HeroSnapshot is a derived view of a hero's current state.
type HeroSnapshot struct {
	EntityID   int
	CardID     string
	Name       string
	BaseHealth int
	Damage     int
	Armor      int
	Health     int
	TechLevel  int
	IsDead     bool
}
