package recorder

import (
	"fmt"
	"strings"
	"testing"

	"github.com/ramonehamilton/BG-Companion/internal/hearthstone/powerlog"
)

// benchMatch returns the lines of a match with the given number of combats,
// each with a few stat changes and a tier upgrade in the shop phase.
func benchMatch(combats int) []string {
	parts := []string{
		gameStart,
		hero(10, 1, "HERO_A", 30, 0),
		hero(20, 2, "HERO_B", 30, 0),
		minion(30, 1, 1, "BGS_004", 1, 3),
		minion(40, 2, 1, "BGS_039", 2, 3),
	}
	for i := 1; i <= combats; i++ {
		parts = append(parts,
			tagChange("GameEntity", "TURN", 2*i-1),
			nextOpp,
			tagChange(30, "ATK", i+1),
			tagChange(2, "PLAYER_TECH_LEVEL", min(i, 6)),
			combatStart,
			tagChange(20, "DAMAGE", i),
			tagChange("GameEntity", "TURN", 2*i),
			combatEnd,
		)
	}
	parts = append(parts, gameOver)

	var lines []string
	for _, p := range parts {
		for _, line := range strings.Split(p, "\n") {
			lines = append(lines, "D 20:00:00.0000000 PowerTaskList.DebugPrintPower() - "+strings.TrimSpace(line))
		}
	}
	return lines
}

func BenchmarkParseLine(b *testing.B) {
	lines := benchMatch(15)
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		for _, line := range lines {
			_, _ = powerlog.ParseLine(line)
		}
	}
}

func BenchmarkSessionMatch(b *testing.B) {
	for _, combats := range []int{5, 15, 30} {
		lines := benchMatch(combats)
		b.Run(fmt.Sprintf("combats=%d", combats), func(b *testing.B) {
			b.ReportAllocs()
			for i := 0; i < b.N; i++ {
				s := NewSession(Options{Settings: DefaultSettings(), Cards: testCards, Sink: &captureSink{}})
				for _, line := range lines {
					s.ProcessLine(line)
				}
			}
			b.SetBytes(int64(len(strings.Join(lines, "\n"))))
		})
	}
}
