package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/ramonehamilton/BG-Companion/internal/hearthstone/recorder"
)

// ErrMatchNotFound is returned when no match has the requested id.
var ErrMatchNotFound = errors.New("match not found")

// MatchStore saves recorded matches. It implements recorder.MatchSink.
type MatchStore struct {
	db *DB
}

// NewMatchStore creates a store backed by db.
func NewMatchStore(db *DB) *MatchStore {
	return &MatchStore{db: db}
}

// MatchSummary is one row of the match list.
type MatchSummary struct {
	ID        string    `json:"id"`
	StartTime time.Time `json:"startTime"`
	EndTime   time.Time `json:"endTime"`
	GameType  string    `json:"gameType,omitempty"`
	Result    string    `json:"result,omitempty"`
	Turns     int       `json:"turns"`
	Wins      int       `json:"wins"`
	Losses    int       `json:"losses"`
	Ties      int       `json:"ties"`
}

// WriteMatch stores m, replacing any earlier copy with the same id.
func (s *MatchStore) WriteMatch(ctx context.Context, m *recorder.MatchRecord) error {
	if len(m.Turns) == 0 {
		return recorder.ErrNoTurns
	}
	rawBlocks, err := json.Marshal(nonNil(m.RawBlocks))
	if err != nil {
		return fmt.Errorf("failed to encode raw blocks: %w", err)
	}

	return s.db.WithTransaction(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM matches WHERE id = ?`, m.ID); err != nil {
			return fmt.Errorf("failed to replace match: %w", err)
		}
		_, err := tx.ExecContext(ctx, `
			INSERT INTO matches (id, start_time, end_time, game_type, local_player_id, result, raw_blocks)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			m.ID, m.StartTime.UTC(), m.EndTime.UTC(), m.GameType, m.LocalPlayerID, m.Result, string(rawBlocks))
		if err != nil {
			return fmt.Errorf("failed to insert match: %w", err)
		}

		for i, t := range m.Turns {
			if err := insertTurn(ctx, tx, m.ID, i, t); err != nil {
				return err
			}
		}
		for i, ev := range m.ShopEvents {
			_, err := tx.ExecContext(ctx, `
				INSERT INTO shop_events (match_id, seq, type, turn, timestamp, entity_id, card_id, name, tech_level)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
				m.ID, i, string(ev.Type), ev.Turn, ev.Timestamp.UTC(), ev.EntityID, ev.CardID, ev.Name, ev.TechLevel)
			if err != nil {
				return fmt.Errorf("failed to insert shop event %d: %w", i, err)
			}
		}
		return nil
	})
}

func insertTurn(ctx context.Context, tx *sql.Tx, matchID string, idx int, t *recorder.TurnRecord) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO turns (
			match_id, turn_index, turn_number, timestamp, opponent_player_id,
			player_hero_card_id, player_hero_name, opponent_hero_card_id, opponent_hero_name,
			player_start_health, player_start_armor, player_end_health, player_end_armor,
			opponent_start_health, opponent_start_armor, opponent_end_health, opponent_end_armor,
			player_tech_level, opponent_tech_level, player_board_source, opponent_board_source,
			damage_to_player, damage_to_opponent, outcome
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		matchID, idx, t.TurnNumber, t.Timestamp.UTC(), t.OpponentPlayerID,
		t.PlayerHero.CardID, t.PlayerHero.Name, t.OpponentHero.CardID, t.OpponentHero.Name,
		t.PlayerStartHealth, t.PlayerStartArmor, t.PlayerEndHealth, t.PlayerEndArmor,
		t.OpponentStartHealth, t.OpponentStartArmor, t.OpponentEndHealth, t.OpponentEndArmor,
		t.PlayerTechLevel, t.OpponentTechLevel, string(t.PlayerBoardSource), string(t.OpponentBoardSource),
		t.DamageToPlayer, t.DamageToOpponent, string(t.Outcome))
	if err != nil {
		return fmt.Errorf("failed to insert turn %d: %w", t.TurnNumber, err)
	}

	boards := map[string][]recorder.MinionRecord{
		sidePlayer:   t.PlayerBoard,
		sideOpponent: t.OpponentBoard,
	}
	for side, board := range boards {
		for slot, mr := range board {
			statuses, err := json.Marshal(nonNil(mr.Statuses))
			if err != nil {
				return fmt.Errorf("failed to encode statuses: %w", err)
			}
			tags, err := json.Marshal(mr.Tags)
			if err != nil {
				return fmt.Errorf("failed to encode tags: %w", err)
			}
			_, err = tx.ExecContext(ctx, `
				INSERT INTO minions (
					match_id, turn_index, side, slot, entity_id, card_id, name, zone_position,
					attack, health, max_health, damage, statuses, tags
				) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
				matchID, idx, side, slot, mr.EntityID, mr.CardID, mr.Name, mr.ZonePosition,
				mr.Attack, mr.Health, mr.MaxHealth, mr.Damage, string(statuses), string(tags))
			if err != nil {
				return fmt.Errorf("failed to insert minion %d: %w", mr.EntityID, err)
			}
		}
	}
	return nil
}

const (
	sidePlayer   = "player"
	sideOpponent = "opponent"
)

// GetMatch loads a stored match with its turns, boards and shop events.
func (s *MatchStore) GetMatch(ctx context.Context, id string) (*recorder.MatchRecord, error) {
	conn := s.db.Conn()
	m := &recorder.MatchRecord{}
	var rawBlocks string
	err := conn.QueryRowContext(ctx, `
		SELECT id, start_time, end_time, game_type, local_player_id, result, raw_blocks
		FROM matches WHERE id = ?`, id).Scan(
		&m.ID, &m.StartTime, &m.EndTime, &m.GameType, &m.LocalPlayerID, &m.Result, &rawBlocks)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrMatchNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get match: %w", err)
	}
	if err := json.Unmarshal([]byte(rawBlocks), &m.RawBlocks); err != nil {
		return nil, fmt.Errorf("failed to decode raw blocks: %w", err)
	}
	if len(m.RawBlocks) == 0 {
		m.RawBlocks = nil
	}

	if m.Turns, err = s.loadTurns(ctx, id); err != nil {
		return nil, err
	}
	if m.ShopEvents, err = s.loadShopEvents(ctx, id); err != nil {
		return nil, err
	}
	return m, nil
}

func (s *MatchStore) loadTurns(ctx context.Context, matchID string) ([]*recorder.TurnRecord, error) {
	rows, err := s.db.Conn().QueryContext(ctx, `
		SELECT turn_number, timestamp, opponent_player_id,
			player_hero_card_id, player_hero_name, opponent_hero_card_id, opponent_hero_name,
			player_start_health, player_start_armor, player_end_health, player_end_armor,
			opponent_start_health, opponent_start_armor, opponent_end_health, opponent_end_armor,
			player_tech_level, opponent_tech_level, player_board_source, opponent_board_source,
			damage_to_player, damage_to_opponent, outcome
		FROM turns WHERE match_id = ? ORDER BY turn_index`, matchID)
	if err != nil {
		return nil, fmt.Errorf("failed to query turns: %w", err)
	}
	defer rows.Close()

	var turns []*recorder.TurnRecord
	for rows.Next() {
		t := &recorder.TurnRecord{}
		err := rows.Scan(&t.TurnNumber, &t.Timestamp, &t.OpponentPlayerID,
			&t.PlayerHero.CardID, &t.PlayerHero.Name, &t.OpponentHero.CardID, &t.OpponentHero.Name,
			&t.PlayerStartHealth, &t.PlayerStartArmor, &t.PlayerEndHealth, &t.PlayerEndArmor,
			&t.OpponentStartHealth, &t.OpponentStartArmor, &t.OpponentEndHealth, &t.OpponentEndArmor,
			&t.PlayerTechLevel, &t.OpponentTechLevel, &t.PlayerBoardSource, &t.OpponentBoardSource,
			&t.DamageToPlayer, &t.DamageToOpponent, &t.Outcome)
		if err != nil {
			return nil, fmt.Errorf("failed to scan turn: %w", err)
		}
		turns = append(turns, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read turns: %w", err)
	}

	if err := s.loadBoards(ctx, matchID, turns); err != nil {
		return nil, err
	}
	return turns, nil
}

func (s *MatchStore) loadBoards(ctx context.Context, matchID string, turns []*recorder.TurnRecord) error {
	rows, err := s.db.Conn().QueryContext(ctx, `
		SELECT turn_index, side, entity_id, card_id, name, zone_position,
			attack, health, max_health, damage, statuses, tags
		FROM minions WHERE match_id = ? ORDER BY turn_index, side, slot`, matchID)
	if err != nil {
		return fmt.Errorf("failed to query minions: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			idx            int
			side           string
			statuses, tags string
			mr             recorder.MinionRecord
		)
		err := rows.Scan(&idx, &side, &mr.EntityID, &mr.CardID, &mr.Name, &mr.ZonePosition,
			&mr.Attack, &mr.Health, &mr.MaxHealth, &mr.Damage, &statuses, &tags)
		if err != nil {
			return fmt.Errorf("failed to scan minion: %w", err)
		}
		if err := json.Unmarshal([]byte(statuses), &mr.Statuses); err != nil {
			return fmt.Errorf("failed to decode statuses: %w", err)
		}
		if err := json.Unmarshal([]byte(tags), &mr.Tags); err != nil {
			return fmt.Errorf("failed to decode tags: %w", err)
		}
		if idx < 0 || idx >= len(turns) {
			continue
		}
		t := turns[idx]
		if side == sidePlayer {
			t.PlayerBoard = append(t.PlayerBoard, mr)
		} else {
			t.OpponentBoard = append(t.OpponentBoard, mr)
		}
	}
	return rows.Err()
}

func (s *MatchStore) loadShopEvents(ctx context.Context, matchID string) ([]recorder.ShopEvent, error) {
	rows, err := s.db.Conn().QueryContext(ctx, `
		SELECT type, turn, timestamp, entity_id, card_id, name, tech_level
		FROM shop_events WHERE match_id = ? ORDER BY seq`, matchID)
	if err != nil {
		return nil, fmt.Errorf("failed to query shop events: %w", err)
	}
	defer rows.Close()

	var events []recorder.ShopEvent
	for rows.Next() {
		var ev recorder.ShopEvent
		if err := rows.Scan(&ev.Type, &ev.Turn, &ev.Timestamp, &ev.EntityID, &ev.CardID, &ev.Name, &ev.TechLevel); err != nil {
			return nil, fmt.Errorf("failed to scan shop event: %w", err)
		}
		events = append(events, ev)
	}
	return events, rows.Err()
}

// RecentMatches lists the latest matches, newest first.
func (s *MatchStore) RecentMatches(ctx context.Context, limit int) ([]MatchSummary, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.Conn().QueryContext(ctx, `
		SELECT m.id, m.start_time, m.end_time, m.game_type, m.result,
			COUNT(t.turn_index),
			COALESCE(SUM(t.outcome = 'Win'), 0),
			COALESCE(SUM(t.outcome = 'Loss'), 0),
			COALESCE(SUM(t.outcome = 'Tie'), 0)
		FROM matches m
		LEFT JOIN turns t ON t.match_id = m.id
		GROUP BY m.id
		ORDER BY m.start_time DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list matches: %w", err)
	}
	defer rows.Close()

	var out []MatchSummary
	for rows.Next() {
		var ms MatchSummary
		if err := rows.Scan(&ms.ID, &ms.StartTime, &ms.EndTime, &ms.GameType, &ms.Result,
			&ms.Turns, &ms.Wins, &ms.Losses, &ms.Ties); err != nil {
			return nil, fmt.Errorf("failed to scan match summary: %w", err)
		}
		out = append(out, ms)
	}
	return out, rows.Err()
}

// DeleteMatch removes a match and everything recorded for it.
func (s *MatchStore) DeleteMatch(ctx context.Context, id string) error {
	res, err := s.db.Conn().ExecContext(ctx, `DELETE FROM matches WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete match: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: %s", ErrMatchNotFound, id)
	}
	return nil
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
