package events

import "time"

// Event types published by the recorder.
const (
	TypeMatchStart    = "match:start"
	TypeCombatStart   = "combat:start"
	TypeCombatEnd     = "combat:end"
	TypeMatchComplete = "match:complete"
)

// MatchStartedEvent is the payload for match:start.
type MatchStartedEvent struct {
	MatchID   string    `json:"matchId"`
	StartTime time.Time `json:"startTime"`
}

// CombatStartedEvent is the payload for combat:start.
type CombatStartedEvent struct {
	MatchID            string `json:"matchId"`
	Turn               int    `json:"turn"`
	OpponentPlayerID   int    `json:"opponentPlayerId"`
	PlayerHeroCardID   string `json:"playerHeroCardId,omitempty"`
	OpponentHeroCardID string `json:"opponentHeroCardId,omitempty"`
	PlayerBoardSize    int    `json:"playerBoardSize"`
	OpponentBoardSize  int    `json:"opponentBoardSize"`
	OpponentBoardFrom  string `json:"opponentBoardSource,omitempty"`
}

// CombatEndedEvent is the payload for combat:end.
type CombatEndedEvent struct {
	MatchID          string `json:"matchId"`
	Turn             int    `json:"turn"`
	Outcome          string `json:"outcome"`
	DamageToPlayer   int    `json:"damageToPlayer"`
	DamageToOpponent int    `json:"damageToOpponent"`
}

// MatchCompletedEvent is the payload for match:complete.
type MatchCompletedEvent struct {
	MatchID string `json:"matchId"`
	Turns   int    `json:"turns"`
	Result  string `json:"result,omitempty"` // Local PLAYSTATE at the end, e.g. "WON"
	Written bool   `json:"written"`          // False when the sink failed
}
