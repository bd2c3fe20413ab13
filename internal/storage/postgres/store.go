// Package postgres stores recorded matches in PostgreSQL.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ramonehamilton/BG-Companion/internal/hearthstone/recorder"
)

var _ recorder.MatchSink = (*Store)(nil)

// ErrMatchNotFound is returned when no match has the requested id.
var ErrMatchNotFound = errors.New("match not found")

type Store struct {
	pool *pgxpool.Pool
}

func New(ctx context.Context, dsn string) (*Store, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("creating postgres pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging postgres: %w", err)
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Close() {
	s.pool.Close()
}

// EnsureSchema creates the tables if they are missing. Boards and shop
// events are kept as JSONB.
func (s *Store) EnsureSchema(ctx context.Context) error {
	ddl := `
CREATE TABLE IF NOT EXISTS bg_matches (
    id              TEXT PRIMARY KEY,
    start_time      TIMESTAMPTZ NOT NULL,
    end_time        TIMESTAMPTZ,
    game_type       TEXT NOT NULL DEFAULT '',
    local_player_id INTEGER NOT NULL DEFAULT 0,
    result          TEXT NOT NULL DEFAULT '',
    shop_events     JSONB NOT NULL DEFAULT '[]',
    raw_blocks      JSONB NOT NULL DEFAULT '[]',
    created_at      TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS bg_turns (
    match_id    TEXT NOT NULL REFERENCES bg_matches(id) ON DELETE CASCADE,
    turn_index  INTEGER NOT NULL,
    turn_number INTEGER NOT NULL,
    outcome     TEXT NOT NULL DEFAULT '',
    record      JSONB NOT NULL,
    PRIMARY KEY (match_id, turn_index)
);

CREATE INDEX IF NOT EXISTS idx_bg_matches_start ON bg_matches (start_time DESC);
CREATE INDEX IF NOT EXISTS idx_bg_turns_outcome ON bg_turns (outcome);
`
	if _, err := s.pool.Exec(ctx, ddl); err != nil {
		return fmt.Errorf("ensuring schema: %w", err)
	}
	return nil
}

// WriteMatch stores m, replacing any earlier copy with the same id.
func (s *Store) WriteMatch(ctx context.Context, m *recorder.MatchRecord) error {
	if len(m.Turns) == 0 {
		return recorder.ErrNoTurns
	}
	shop, err := jsonArray(m.ShopEvents)
	if err != nil {
		return fmt.Errorf("encoding shop events: %w", err)
	}
	blocks, err := jsonArray(m.RawBlocks)
	if err != nil {
		return fmt.Errorf("encoding raw blocks: %w", err)
	}

	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM bg_matches WHERE id = $1`, m.ID); err != nil {
			return fmt.Errorf("replacing match: %w", err)
		}
		_, err := tx.Exec(ctx, `
			INSERT INTO bg_matches (id, start_time, end_time, game_type, local_player_id, result, shop_events, raw_blocks)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			m.ID, m.StartTime, nullTime(m.EndTime), m.GameType, m.LocalPlayerID, m.Result, shop, blocks)
		if err != nil {
			return fmt.Errorf("inserting match: %w", err)
		}

		batch := &pgx.Batch{}
		for i, t := range m.Turns {
			record, err := json.Marshal(t)
			if err != nil {
				return fmt.Errorf("encoding turn %d: %w", t.TurnNumber, err)
			}
			batch.Queue(`
				INSERT INTO bg_turns (match_id, turn_index, turn_number, outcome, record)
				VALUES ($1, $2, $3, $4, $5)`,
				m.ID, i, t.TurnNumber, string(t.Outcome), record)
		}
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("inserting turns: %w", err)
		}
		return nil
	})
}

// GetMatch loads a stored match.
func (s *Store) GetMatch(ctx context.Context, id string) (*recorder.MatchRecord, error) {
	m := &recorder.MatchRecord{}
	var (
		end          *time.Time
		shop, blocks []byte
	)
	err := s.pool.QueryRow(ctx, `
		SELECT id, start_time, end_time, game_type, local_player_id, result, shop_events, raw_blocks
		FROM bg_matches WHERE id = $1`, id).Scan(
		&m.ID, &m.StartTime, &end, &m.GameType, &m.LocalPlayerID, &m.Result, &shop, &blocks)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrMatchNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("querying match: %w", err)
	}
	if end != nil {
		m.EndTime = *end
	}
	if err := json.Unmarshal(shop, &m.ShopEvents); err != nil {
		return nil, fmt.Errorf("decoding shop events: %w", err)
	}
	if err := json.Unmarshal(blocks, &m.RawBlocks); err != nil {
		return nil, fmt.Errorf("decoding raw blocks: %w", err)
	}

	rows, err := s.pool.Query(ctx, `SELECT record FROM bg_turns WHERE match_id = $1 ORDER BY turn_index`, id)
	if err != nil {
		return nil, fmt.Errorf("querying turns: %w", err)
	}
	m.Turns, err = pgx.CollectRows(rows, func(row pgx.CollectableRow) (*recorder.TurnRecord, error) {
		var raw []byte
		if err := row.Scan(&raw); err != nil {
			return nil, err
		}
		t := &recorder.TurnRecord{}
		return t, json.Unmarshal(raw, t)
	})
	if err != nil {
		return nil, fmt.Errorf("reading turns: %w", err)
	}
	return m, nil
}

func jsonArray[T any](items []T) ([]byte, error) {
	if items == nil {
		items = []T{}
	}
	return json.Marshal(items)
}

func nullTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
