// Package stats summarizes recorded matches: combat record, damage and
// streaks, overall and per hero.
package stats

import (
	"cmp"
	"context"
	"fmt"
	"slices"

	"github.com/samber/lo"

	"github.com/ramonehamilton/BG-Companion/internal/hearthstone/recorder"
	"github.com/ramonehamilton/BG-Companion/internal/storage"
)

// Record counts combat outcomes.
type Record struct {
	Combats int `json:"combats"`
	Wins    int `json:"wins"`
	Losses  int `json:"losses"`
	Ties    int `json:"ties"`
}

// WinRate returns wins over combats, or 0 without combats.
func (r Record) WinRate() float64 {
	if r.Combats == 0 {
		return 0
	}
	return float64(r.Wins) / float64(r.Combats)
}

func (r *Record) add(o recorder.Outcome) {
	r.Combats++
	switch o {
	case recorder.OutcomeWin:
		r.Wins++
	case recorder.OutcomeLoss:
		r.Losses++
	default:
		r.Ties++
	}
}

// HeroSummary is the record of the matches played with one hero.
type HeroSummary struct {
	Record

	CardID  string `json:"cardId"`
	Name    string `json:"name,omitempty"`
	Matches int    `json:"matches"`
}

// Summary aggregates a set of matches.
type Summary struct {
	Record

	Period      string        `json:"period"`
	Matches     int           `json:"matches"`
	DamageDealt int           `json:"damageDealt"`
	DamageTaken int           `json:"damageTaken"`
	Streaks     StreakStats   `json:"streaks"`
	Heroes      []HeroSummary `json:"heroes"`
}

// Summarize aggregates the matches that started inside tr; a zero range
// takes every match. Heroes are ordered by matches played, then card id.
func Summarize(matches []*recorder.MatchRecord, tr TimeRange) Summary {
	if !tr.Start.IsZero() {
		matches = lo.Filter(matches, func(m *recorder.MatchRecord, _ int) bool {
			return tr.Contains(m.StartTime)
		})
	}
	matches = slices.Clone(matches)
	slices.SortStableFunc(matches, func(a, b *recorder.MatchRecord) int {
		return a.StartTime.Compare(b.StartTime)
	})

	sum := Summary{Period: tr.FormatPeriod(), Matches: len(matches)}
	var outcomes []recorder.Outcome
	heroes := make(map[string]*HeroSummary)

	for _, m := range matches {
		var hero *HeroSummary
		if h := matchHero(m); h.CardID != "" {
			hero = heroes[h.CardID]
			if hero == nil {
				hero = &HeroSummary{CardID: h.CardID, Name: h.Name}
				heroes[h.CardID] = hero
			}
			hero.Matches++
		}
		for _, t := range m.Turns {
			sum.add(t.Outcome)
			if hero != nil {
				hero.add(t.Outcome)
			}
			outcomes = append(outcomes, t.Outcome)
		}
		sum.DamageDealt += lo.SumBy(m.Turns, func(t *recorder.TurnRecord) int { return t.DamageToOpponent })
		sum.DamageTaken += lo.SumBy(m.Turns, func(t *recorder.TurnRecord) int { return t.DamageToPlayer })
	}

	sum.Streaks = CalculateStreaks(outcomes)
	sum.Heroes = lo.Map(lo.Values(heroes), func(h *HeroSummary, _ int) HeroSummary { return *h })
	slices.SortFunc(sum.Heroes, func(a, b HeroSummary) int {
		if c := cmp.Compare(b.Matches, a.Matches); c != 0 {
			return c
		}
		return cmp.Compare(a.CardID, b.CardID)
	})
	return sum
}

// matchHero is the local hero of the match's first recorded turn.
func matchHero(m *recorder.MatchRecord) recorder.HeroInfo {
	t, ok := lo.Find(m.Turns, func(t *recorder.TurnRecord) bool { return t.PlayerHero.CardID != "" })
	if !ok {
		return recorder.HeroInfo{}
	}
	return t.PlayerHero
}

// Source lists and loads stored matches.
type Source interface {
	RecentMatches(ctx context.Context, limit int) ([]storage.MatchSummary, error)
	GetMatch(ctx context.Context, id string) (*recorder.MatchRecord, error)
}

// LoadRecent loads up to limit of the newest stored matches with their turns.
func LoadRecent(ctx context.Context, src Source, limit int) ([]*recorder.MatchRecord, error) {
	summaries, err := src.RecentMatches(ctx, limit)
	if err != nil {
		return nil, err
	}
	matches := make([]*recorder.MatchRecord, 0, len(summaries))
	for _, s := range summaries {
		m, err := src.GetMatch(ctx, s.ID)
		if err != nil {
			return nil, fmt.Errorf("load match %s: %w", s.ID, err)
		}
		matches = append(matches, m)
	}
	return matches, nil
}
