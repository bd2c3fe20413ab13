package stats

import (
	"fmt"

	"github.com/ramonehamilton/BG-Companion/internal/hearthstone/recorder"
)

// StreakStats holds combat streaks. CurrentStreak is positive for wins and
// negative for losses.
type StreakStats struct {
	CurrentStreak     int `json:"currentStreak"`
	LongestWinStreak  int `json:"longestWinStreak"`
	LongestLossStreak int `json:"longestLossStreak"`
}

// CalculateStreaks calculates win/loss streaks over combat outcomes ordered
// oldest to newest. A tie ends both streaks.
func CalculateStreaks(outcomes []recorder.Outcome) StreakStats {
	var stats StreakStats
	wins, losses := 0, 0

	for _, o := range outcomes {
		switch o {
		case recorder.OutcomeWin:
			wins++
			losses = 0
			stats.LongestWinStreak = max(stats.LongestWinStreak, wins)
		case recorder.OutcomeLoss:
			losses++
			wins = 0
			stats.LongestLossStreak = max(stats.LongestLossStreak, losses)
		default:
			wins, losses = 0, 0
		}
	}

	switch {
	case wins > 0:
		stats.CurrentStreak = wins
	case losses > 0:
		stats.CurrentStreak = -losses
	}
	return stats
}

// FormatCurrentStreak returns a human-readable string for the current streak.
func FormatCurrentStreak(streak int) string {
	switch {
	case streak == 0:
		return "No active streak"
	case streak == 1:
		return "1 combat win"
	case streak > 1:
		return fmt.Sprintf("%d combat wins in a row", streak)
	case streak == -1:
		return "1 combat loss"
	default:
		return fmt.Sprintf("%d combat losses in a row", -streak)
	}
}
