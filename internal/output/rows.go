package output

import (
	"time"

	"github.com/ramonehamilton/BG-Companion/internal/hearthstone/recorder"
)

// TurnRow is the flat CSV form of a turn.
type TurnRow struct {
	Turn                int       `csv:"turn"`
	Timestamp           time.Time `csv:"timestamp"`
	Outcome             string    `csv:"outcome"`
	PlayerHero          string    `csv:"player_hero"`
	OpponentHero        string    `csv:"opponent_hero"`
	PlayerStartHealth   int       `csv:"player_start_health"`
	PlayerEndHealth     int       `csv:"player_end_health"`
	OpponentStartHealth int       `csv:"opponent_start_health"`
	OpponentEndHealth   int       `csv:"opponent_end_health"`
	DamageToPlayer      int       `csv:"damage_to_player"`
	DamageToOpponent    int       `csv:"damage_to_opponent"`
	PlayerTechLevel     int       `csv:"player_tier"`
	OpponentTechLevel   int       `csv:"opponent_tier"`
	PlayerMinions       int       `csv:"player_minions"`
	OpponentMinions     int       `csv:"opponent_minions"`
	PlayerBoardSource   string    `csv:"player_board_source"`
	OpponentBoardSource string    `csv:"opponent_board_source"`
}

// TurnRows flattens turns for CSV output.
func TurnRows(turns []*recorder.TurnRecord) []TurnRow {
	rows := make([]TurnRow, 0, len(turns))
	for _, t := range turns {
		rows = append(rows, TurnRow{
			Turn:                t.TurnNumber,
			Timestamp:           t.Timestamp,
			Outcome:             string(t.Outcome),
			PlayerHero:          heroName(t.PlayerHero),
			OpponentHero:        heroName(t.OpponentHero),
			PlayerStartHealth:   t.PlayerStartHealth,
			PlayerEndHealth:     t.PlayerEndHealth,
			OpponentStartHealth: t.OpponentStartHealth,
			OpponentEndHealth:   t.OpponentEndHealth,
			DamageToPlayer:      t.DamageToPlayer,
			DamageToOpponent:    t.DamageToOpponent,
			PlayerTechLevel:     t.PlayerTechLevel,
			OpponentTechLevel:   t.OpponentTechLevel,
			PlayerMinions:       len(t.PlayerBoard),
			OpponentMinions:     len(t.OpponentBoard),
			PlayerBoardSource:   string(t.PlayerBoardSource),
			OpponentBoardSource: string(t.OpponentBoardSource),
		})
	}
	return rows
}

func heroName(h recorder.HeroInfo) string {
	if h.Name != "" {
		return h.Name
	}
	return h.CardID
}
