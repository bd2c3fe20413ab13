package recorder

import (
	"go.uber.org/zap"

	"github.com/ramonehamilton/BG-Companion/internal/events"
	"github.com/ramonehamilton/BG-Companion/internal/hearthstone/gametag"
)

type combatPhase int

const (
	phaseIdle combatPhase = iota
	// phaseActive runs from combat start to the shop phase. The turn is
	// refreshed while fields are missing.
	phaseActive
	// phaseReconciling follows combat: late hero health changes still
	// update the turn until both sides are confirmed or combat starts again.
	phaseReconciling
)

func (p combatPhase) String() string {
	switch p {
	case phaseActive:
		return "active"
	case phaseReconciling:
		return "reconciling"
	}
	return "idle"
}

// edgeSignal detects a boolean-like tag falling from 1 to 0.
type edgeSignal struct {
	name string
	tag  gametag.Tag
}

func (e edgeSignal) fired(tag gametag.Tag, prev, value int) bool {
	return tag == e.tag && prev == 1 && value == 0
}

var (
	combatSetupSignal = edgeSignal{name: "combat_setup", tag: gametag.TagBaconCombatSetup}
	shopSetupSignal   = edgeSignal{name: "shop_setup", tag: gametag.TagBaconSetup}
)

// combatState is the open turn and what is needed to finish it.
type combatState struct {
	phase        combatPhase
	turn         *TurnRecord
	playerID     int
	opponentID   int
	heroIDs      [2]int // hero entity ids resolved for each side
	baseline     [2]int // hero DAMAGE when the snapshot was taken
	needsRefresh bool
	confirmed    [2]bool
}

func (c *combatState) playerFor(sd side) int {
	if sd == sidePlayer {
		return c.playerID
	}
	return c.opponentID
}

// startCombat snapshots both sides into a new turn.
func (s *Session) startCombat() {
	if s.combat.phase == phaseActive || s.match == nil || !s.isBattlegrounds() {
		return
	}
	s.closeWindow("next_combat")

	opponent := s.nextOpponentID
	if opponent == 0 {
		opponent = s.live.OpponentPlayerID()
	}
	turn := &TurnRecord{
		TurnNumber:       s.turn,
		Timestamp:        s.clock(),
		OpponentPlayerID: opponent,
	}
	s.combat = combatState{
		phase:      phaseActive,
		turn:       turn,
		playerID:   s.resolveLocalPlayerID(),
		opponentID: opponent,
	}
	for _, sd := range sides {
		s.fillSide(sd)
	}
	s.match.Turns = append(s.match.Turns, turn)

	missing := turn.missing()
	s.combat.needsRefresh = len(missing) > 0
	s.metrics.CombatTransition("start")
	s.log.Info("combat_start",
		zap.Int("turn", turn.TurnNumber),
		zap.Int("opponent_player_id", opponent),
		zap.Int("player_board", len(turn.PlayerBoard)),
		zap.Int("opponent_board", len(turn.OpponentBoard)),
		zap.String("opponent_board_source", string(turn.OpponentBoardSource)),
		zap.Strings("missing", missing))
	s.events.Publish(events.TypeCombatStart, events.CombatStartedEvent{
		MatchID:            s.match.ID,
		Turn:               turn.TurnNumber,
		OpponentPlayerID:   opponent,
		PlayerHeroCardID:   turn.PlayerHero.CardID,
		OpponentHeroCardID: turn.OpponentHero.CardID,
		PlayerBoardSize:    len(turn.PlayerBoard),
		OpponentBoardSize:  len(turn.OpponentBoard),
		OpponentBoardFrom:  string(turn.OpponentBoardSource),
	})
}

// fillSide fills the empty fields of one side of the open turn. Populated
// fields are kept; a board is replaced only by a longer one, or by one of
// the same length from a preferred source.
func (s *Session) fillSide(sd side) bool {
	c := &s.combat
	pid := c.playerFor(sd)
	ts := c.turn.side(sd)
	changed := false

	hero, ok := s.resolveHero(pid)
	if ok {
		if ts.hero.CardID == "" && hero.CardID != "" {
			*ts.hero = HeroInfo{CardID: hero.CardID, Name: hero.Name}
			changed = true
		}
		if *ts.startHealth <= 0 && hero.Health > 0 {
			*ts.startHealth = hero.Health
			c.baseline[sd] = s.damageBaseline(hero)
			changed = true
		}
		if *ts.startArmor <= 0 && hero.Armor > 0 {
			*ts.startArmor = hero.Armor
			changed = true
		}
		if c.heroIDs[sd] == 0 {
			c.heroIDs[sd] = hero.EntityID
		}
	}
	if *ts.techLevel <= 0 {
		if lvl := s.techLevel(pid, hero.EntityID); lvl > 0 {
			*ts.techLevel = lvl
			changed = true
		}
	}

	board, source := s.resolveBoard(pid, sd == sideOpponent)
	if replacesBoard(*ts.board, *ts.source, board, source) {
		*ts.board, *ts.source = board, source
		s.metrics.BoardSource(sd.String(), string(source))
		changed = true
	}
	return changed
}

func replacesBoard(old []MinionRecord, oldSource BoardSource, next []MinionRecord, nextSource BoardSource) bool {
	switch {
	case len(next) > len(old):
		return true
	case len(next) == len(old) && len(next) > 0:
		return nextSource.rank() < oldSource.rank()
	}
	return false
}

func (s *Session) damageBaseline(hero HeroSnapshot) int {
	if d, ok := s.heroDamage[hero.EntityID]; ok {
		return d
	}
	return hero.Damage
}

// refreshSnapshot completes the open turn from current state. Without force
// it only runs while fields are missing.
func (s *Session) refreshSnapshot(force bool) {
	c := &s.combat
	if c.phase != phaseActive || c.turn == nil || (!c.needsRefresh && !force) {
		return
	}
	if c.opponentID == 0 {
		c.opponentID = s.nextOpponentID
		if c.opponentID == 0 {
			c.opponentID = s.live.OpponentPlayerID()
		}
		c.turn.OpponentPlayerID = c.opponentID
	}

	changed := false
	for _, sd := range sides {
		if s.fillSide(sd) {
			changed = true
		}
	}
	missing := c.turn.missing()
	c.needsRefresh = len(missing) > 0
	if changed {
		s.metrics.CombatTransition("refresh")
		s.debug("combat_refresh",
			zap.Int("turn", c.turn.TurnNumber),
			zap.Strings("missing", missing),
			zap.String("player_board_source", string(c.turn.PlayerBoardSource)),
			zap.String("opponent_board_source", string(c.turn.OpponentBoardSource)))
	}
}

// endCombat takes end-of-combat hero health, scores the turn and opens the
// reconciliation window.
func (s *Session) endCombat() {
	c := &s.combat
	if c.phase != phaseActive {
		return
	}
	turn := c.turn
	for _, sd := range sides {
		ts := turn.side(sd)
		if hero, ok := s.resolveHero(c.playerFor(sd)); ok {
			*ts.endHealth, *ts.endArmor = hero.Health, hero.Armor
		} else {
			*ts.endHealth, *ts.endArmor = *ts.startHealth, *ts.startArmor
		}
	}
	turn.score()

	c.phase = phaseReconciling
	c.confirmed = [2]bool{}

	s.metrics.CombatTransition("end")
	s.log.Info("combat_end",
		zap.Int("turn", turn.TurnNumber),
		zap.String("outcome", string(turn.Outcome)),
		zap.Int("damage_to_player", turn.DamageToPlayer),
		zap.Int("damage_to_opponent", turn.DamageToOpponent))
	s.events.Publish(events.TypeCombatEnd, events.CombatEndedEvent{
		MatchID:          s.match.ID,
		Turn:             turn.TurnNumber,
		Outcome:          string(turn.Outcome),
		DamageToPlayer:   turn.DamageToPlayer,
		DamageToOpponent: turn.DamageToOpponent,
	})
}

// reconcileHeroStat applies a hero HEALTH, ARMOR or DAMAGE change that
// arrives after combat ended. DAMAGE is converted to health through the
// baseline taken with the snapshot.
func (s *Session) reconcileHeroStat(e *EntityState, tag gametag.Tag, value int) {
	c := &s.combat
	if c.phase != phaseReconciling || c.turn == nil {
		return
	}
	sd, ok := s.sideOf(e)
	if !ok {
		return
	}
	ts := c.turn.side(sd)
	switch tag {
	case gametag.TagDamage:
		*ts.endHealth = max(0, *ts.startHealth-(value-c.baseline[sd]))
		c.confirmed[sd] = true
	case gametag.TagHealth:
		*ts.endHealth = max(0, value-e.Tag(gametag.TagDamage))
		c.confirmed[sd] = true
	case gametag.TagArmor:
		*ts.endArmor = value
	}
	c.turn.score()
	s.debug("combat_reconcile",
		zap.Int("turn", c.turn.TurnNumber),
		zap.Stringer("side", sd),
		zap.Stringer("tag", tag),
		zap.Int("value", value),
		zap.String("outcome", string(c.turn.Outcome)))

	if c.confirmed[sidePlayer] && c.confirmed[sideOpponent] {
		s.closeWindow("confirmed")
	}
}

// sideOf matches an entity to a side of the open turn by hero card id, then
// by hero entity id, then by player id for player entities.
func (s *Session) sideOf(e *EntityState) (side, bool) {
	c := &s.combat
	if e.CardID != "" {
		for _, sd := range sides {
			if c.turn.side(sd).hero.CardID == e.CardID {
				return sd, true
			}
		}
	}
	for _, sd := range sides {
		if c.heroIDs[sd] == e.ID {
			return sd, true
		}
	}
	if e.IsPlayerRoot() && e.PlayerID > 0 {
		for _, sd := range sides {
			if c.playerFor(sd) == e.PlayerID {
				return sd, true
			}
		}
	}
	return sidePlayer, false
}

// turnAdvanced closes the reconciliation window once the game moves past the
// turn it belongs to. A hero that took no damage never confirms, and shop
// phase damage must not be scored against the previous combat.
func (s *Session) turnAdvanced() {
	if c := &s.combat; c.phase == phaseReconciling && c.turn != nil && s.turn > c.turn.TurnNumber {
		s.closeWindow("next_turn")
	}
}

func (s *Session) closeWindow(reason string) {
	if s.combat.phase != phaseReconciling {
		return
	}
	if t := s.combat.turn; t != nil {
		s.debug("combat_window_closed",
			zap.Int("turn", t.TurnNumber),
			zap.String("reason", reason),
			zap.String("outcome", string(t.Outcome)))
	}
	s.combat = combatState{}
}
