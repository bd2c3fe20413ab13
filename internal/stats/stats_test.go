package stats

import (
	"testing"
	"time"

	"github.com/ramonehamilton/BG-Companion/internal/hearthstone/recorder"
)

const (
	w = recorder.OutcomeWin
	l = recorder.OutcomeLoss
	x = recorder.OutcomeTie
)

func TestCalculateStreaks(t *testing.T) {
	tests := []struct {
		name     string
		outcomes []recorder.Outcome
		want     StreakStats
	}{
		{"empty", nil, StreakStats{}},
		{"single win", []recorder.Outcome{w}, StreakStats{CurrentStreak: 1, LongestWinStreak: 1}},
		{"losing run", []recorder.Outcome{w, w, l, l, l}, StreakStats{CurrentStreak: -3, LongestWinStreak: 2, LongestLossStreak: 3}},
		{"tie breaks streak", []recorder.Outcome{w, w, w, x}, StreakStats{LongestWinStreak: 3}},
		{"comeback", []recorder.Outcome{l, l, w, x, w, w}, StreakStats{CurrentStreak: 2, LongestWinStreak: 2, LongestLossStreak: 2}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CalculateStreaks(tt.outcomes); got != tt.want {
				t.Errorf("CalculateStreaks() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestFormatCurrentStreak(t *testing.T) {
	tests := map[int]string{
		0:  "No active streak",
		1:  "1 combat win",
		4:  "4 combat wins in a row",
		-1: "1 combat loss",
		-2: "2 combat losses in a row",
	}
	for streak, want := range tests {
		if got := FormatCurrentStreak(streak); got != want {
			t.Errorf("FormatCurrentStreak(%d) = %q, want %q", streak, got, want)
		}
	}
}

func TestWeekRangeFrom(t *testing.T) {
	// Wednesday.
	ref := time.Date(2025, 3, 5, 15, 30, 0, 0, time.UTC)

	tr := WeekRangeFrom(ref, 0)
	if want := time.Date(2025, 3, 3, 0, 0, 0, 0, time.UTC); !tr.Start.Equal(want) {
		t.Errorf("Start = %v, want %v", tr.Start, want)
	}
	if want := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC); !tr.End.Equal(want) {
		t.Errorf("End = %v, want %v", tr.End, want)
	}
	if got := tr.FormatPeriod(); got != "2025-03-03 to 2025-03-09" {
		t.Errorf("FormatPeriod() = %q", got)
	}

	// Sunday belongs to the week that started the previous Monday.
	sunday := time.Date(2025, 3, 9, 23, 0, 0, 0, time.UTC)
	if got := WeekRangeFrom(sunday, 0).Start; !got.Equal(tr.Start) {
		t.Errorf("Sunday week start = %v", got)
	}

	prev := WeekRangeFrom(ref, -1)
	if want := time.Date(2025, 2, 24, 0, 0, 0, 0, time.UTC); !prev.Start.Equal(want) {
		t.Errorf("previous week start = %v, want %v", prev.Start, want)
	}
}

func TestMonthRangeFrom(t *testing.T) {
	ref := time.Date(2025, 1, 31, 12, 0, 0, 0, time.UTC)

	tr := MonthRangeFrom(ref, -1)
	if want := time.Date(2024, 12, 1, 0, 0, 0, 0, time.UTC); !tr.Start.Equal(want) {
		t.Errorf("Start = %v, want %v", tr.Start, want)
	}
	if want := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC); !tr.End.Equal(want) {
		t.Errorf("End = %v, want %v", tr.End, want)
	}
	if !tr.Contains(time.Date(2024, 12, 31, 23, 59, 0, 0, time.UTC)) || tr.Contains(tr.End) {
		t.Error("Contains should be half-open")
	}
}

func TestParsePeriod(t *testing.T) {
	now := time.Date(2025, 3, 5, 0, 0, 0, 0, time.UTC)
	for _, p := range []string{"", "all", "week", "month", "last-week", "last-month"} {
		if _, err := ParsePeriod(p, now); err != nil {
			t.Errorf("ParsePeriod(%q) failed: %v", p, err)
		}
	}
	if _, err := ParsePeriod("fortnight", now); err == nil {
		t.Error("Expected error for unknown period")
	}
}

func match(id, hero string, start time.Time, turns ...recorder.Outcome) *recorder.MatchRecord {
	m := &recorder.MatchRecord{ID: id, StartTime: start}
	for i, o := range turns {
		t := &recorder.TurnRecord{TurnNumber: i + 1, Outcome: o, PlayerHero: recorder.HeroInfo{CardID: hero, Name: hero + " name"}}
		switch o {
		case w:
			t.DamageToOpponent = 3
		case l:
			t.DamageToPlayer = 5
		}
		m.Turns = append(m.Turns, t)
	}
	return m
}

func TestSummarize(t *testing.T) {
	base := time.Date(2025, 3, 5, 20, 0, 0, 0, time.UTC)
	matches := []*recorder.MatchRecord{
		// Out of order on purpose; streaks follow start time.
		match("m2", "HERO_B", base.Add(time.Hour), w, w),
		match("m1", "HERO_A", base, l, x, l),
		match("m3", "HERO_A", base.Add(2*time.Hour), w),
		match("old", "HERO_C", base.AddDate(0, -2, 0), w),
	}

	sum := Summarize(matches, WeekRangeFrom(base, 0))

	if sum.Matches != 3 || sum.Combats != 6 {
		t.Fatalf("Expected 3 matches and 6 combats, got %d and %d", sum.Matches, sum.Combats)
	}
	if sum.Wins != 3 || sum.Losses != 2 || sum.Ties != 1 {
		t.Errorf("Unexpected record: %+v", sum.Record)
	}
	if sum.WinRate() != 0.5 {
		t.Errorf("WinRate() = %v", sum.WinRate())
	}
	if sum.DamageDealt != 9 || sum.DamageTaken != 10 {
		t.Errorf("Unexpected damage: dealt %d taken %d", sum.DamageDealt, sum.DamageTaken)
	}
	if sum.Streaks.CurrentStreak != 3 || sum.Streaks.LongestLossStreak != 1 {
		t.Errorf("Unexpected streaks: %+v", sum.Streaks)
	}

	if len(sum.Heroes) != 2 {
		t.Fatalf("Expected 2 heroes, got %+v", sum.Heroes)
	}
	if a := sum.Heroes[0]; a.CardID != "HERO_A" || a.Matches != 2 || a.Wins != 1 || a.Losses != 2 {
		t.Errorf("Unexpected HERO_A summary: %+v", a)
	}

	all := Summarize(matches, TimeRange{})
	if all.Matches != 4 || all.Period != "all time" {
		t.Errorf("Expected all 4 matches, got %d (%s)", all.Matches, all.Period)
	}
}
