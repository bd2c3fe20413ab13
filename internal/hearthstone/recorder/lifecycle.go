package recorder

import (
	"context"

	"go.uber.org/zap"

	"github.com/ramonehamilton/BG-Companion/internal/events"
	"github.com/ramonehamilton/BG-Companion/internal/hearthstone/gametag"
)

// startMatch closes any open match and opens a new one.
func (s *Session) startMatch() {
	s.finishMatch()
	s.match = &MatchRecord{ID: s.newID(), StartTime: s.clock()}
	s.log.Info("match_start", zap.String("match_id", s.match.ID))
	s.events.Publish(events.TypeMatchStart, events.MatchStartedEvent{
		MatchID:   s.match.ID,
		StartTime: s.match.StartTime,
	})
}

// ensureMatch opens a match when a root entity shows up without one, e.g.
// when the CREATE_GAME line was rotated out of the log.
func (s *Session) ensureMatch() {
	if s.match == nil {
		s.startMatch()
	}
}

// completeMatch handles STATE=COMPLETE on the game entity.
func (s *Session) completeMatch() {
	s.finishMatch()
	s.resetHeader()
}

// finishMatch writes the open match if it is pending and resets all
// match-scoped state.
func (s *Session) finishMatch() {
	if s.match != nil {
		s.writeMatch()
	}
	s.reset()
}

func (s *Session) writeMatch() {
	m := s.match
	if s.written || len(m.Turns) == 0 {
		return
	}
	if s.combat.phase == phaseActive {
		s.endCombat()
	}
	m.EndTime = s.clock()
	m.LocalPlayerID = s.resolveLocalPlayerID()
	m.GameType = s.gameType()
	if !s.isBattlegrounds() {
		s.debug("match_skipped", zap.String("match_id", m.ID), zap.String("game_type", m.GameType))
		return
	}
	s.applyEndHealthFallback()

	// Marked before the write: a failed match is dropped, not retried.
	s.written = true
	err := s.sink.WriteMatch(context.Background(), m)
	s.metrics.MatchWritten(err)
	if err != nil {
		s.log.Error("match_write_failed", zap.String("match_id", m.ID), zap.Error(err))
	} else {
		s.log.Info("match_written",
			zap.String("match_id", m.ID),
			zap.Int("turns", len(m.Turns)),
			zap.String("result", m.Result))
	}
	s.events.Publish(events.TypeMatchComplete, events.MatchCompletedEvent{
		MatchID: m.ID,
		Turns:   len(m.Turns),
		Result:  m.Result,
		Written: err == nil,
	})
}

// applyEndHealthFallback fills the last turn's end health from the live
// source for sides whose end health was never observed.
func (s *Session) applyEndHealthFallback() {
	turns := s.match.Turns
	if len(turns) == 0 {
		return
	}
	turn := turns[len(turns)-1]
	players := [...]int{s.resolveLocalPlayerID(), turn.OpponentPlayerID}
	changed := false
	for _, sd := range sides {
		ts := turn.side(sd)
		if *ts.endHealth > 0 || *ts.endArmor > 0 || players[sd] <= 0 {
			continue
		}
		hero, ok := s.live.Entity(s.live.HeroEntityID(players[sd]))
		if !ok {
			continue
		}
		*ts.endHealth = max(0, hero.Tag(gametag.TagHealth)-hero.Tag(gametag.TagDamage))
		*ts.endArmor = hero.Tag(gametag.TagArmor)
		changed = true
	}
	if changed {
		turn.score()
	}
}

// reset clears everything scoped to one match.
func (s *Session) reset() {
	s.entities.reset()
	s.match = nil
	s.written = false
	s.gameEntityID = 0
	s.localPlayerID = 0
	s.pendingEntityID = 0
	s.turn = 0
	s.nextOpponentID = 0
	clear(s.heroByPlayer)
	clear(s.pendingHero)
	clear(s.heroDamage)
	s.combat = combatState{}
	s.feed.clear()
}

func (s *Session) resetHeader() {
	s.header.gameType = ""
	clear(s.header.playerNames)
}

// resolveLocalPlayerID returns the local player id: cached, then from the
// live source, then the first player entity in the table.
func (s *Session) resolveLocalPlayerID() int {
	id, _, _ := firstOf(
		provider[int]{"cached", func() (int, bool) {
			return s.localPlayerID, s.localPlayerID > 0
		}},
		provider[int]{"live", func() (int, bool) {
			id := s.live.LocalPlayerID()
			if id > 0 {
				s.localPlayerID = id
			}
			return id, id > 0
		}},
		provider[int]{"inferred", func() (int, bool) {
			e := s.entities.find(func(e *EntityState) bool { return e.IsPlayerRoot() && e.PlayerID > 0 })
			if e == nil {
				e = s.entities.find(func(e *EntityState) bool { return e.PlayerID > 0 })
			}
			if e == nil {
				return 0, false
			}
			return e.PlayerID, true
		}},
	)
	return id
}
