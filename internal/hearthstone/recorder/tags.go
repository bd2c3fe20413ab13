package recorder

import (
	"go.uber.org/zap"

	"github.com/ramonehamilton/BG-Companion/internal/hearthstone/gametag"
)

type tagOrigin int

const (
	// fromContinuation is a "tag= value=" line listed under an entity
	// creation or update record.
	fromContinuation tagOrigin = iota
	fromTagChange
)

// refreshTriggers are the tags that can complete a pending combat snapshot.
var refreshTriggers = map[gametag.Tag]bool{
	gametag.TagZone:         true,
	gametag.TagZonePosition: true,
	gametag.TagController:   true,
	gametag.TagAtk:          true,
	gametag.TagHealth:       true,
	gametag.TagDamage:       true,
	gametag.TagArmor:        true,
}

// assignTag writes one tag value and runs its side effects. Writing the
// value a tag already holds does nothing.
func (s *Session) assignTag(e *EntityState, tag gametag.Tag, value int, origin tagOrigin) {
	prev := e.Tags[tag]
	if prev == value {
		return
	}
	e.Tags[tag] = value
	s.syncDerived(e, tag, value)

	switch tag {
	case gametag.TagDamage:
		if s.cardType(e) == gametag.CardTypeHero {
			s.heroDamage[e.ID] = value
		}
	case gametag.TagTurn:
		if e.ID == s.gameEntityID {
			s.turn = (value + 1) / 2
			s.turnAdvanced()
		}
	case gametag.TagHeroEntity:
		if e.PlayerID > 0 {
			s.heroByPlayer[e.PlayerID] = value
		} else {
			s.pendingHero[e.ID] = value
		}
	}

	if origin == fromTagChange && s.tagChangeEffects(e, tag, prev, value) {
		return
	}

	if refreshTriggers[tag] && s.affectsSnapshot(e) {
		s.refreshSnapshot(false)
	}
}

// syncDerived mirrors well-known tags onto the typed fields.
func (s *Session) syncDerived(e *EntityState, tag gametag.Tag, value int) {
	switch tag {
	case gametag.TagZone:
		e.Zone = gametag.Zone(value)
	case gametag.TagZonePosition:
		e.ZonePosition = value
	case gametag.TagController:
		e.Controller = value
	case gametag.TagCardType:
		e.CardType = gametag.CardType(value)
	case gametag.TagPlayerID:
		s.setPlayerID(e, value)
	}
}

func (s *Session) setPlayerID(e *EntityState, playerID int) {
	e.PlayerID = playerID
	if hero, ok := s.pendingHero[e.ID]; ok && playerID > 0 {
		s.heroByPlayer[playerID] = hero
		delete(s.pendingHero, e.ID)
	}
}

// tagChangeEffects runs the effects reserved for TAG_CHANGE records. It
// reports true when the match ended and the entity is gone.
func (s *Session) tagChangeEffects(e *EntityState, tag gametag.Tag, prev, value int) bool {
	switch tag {
	case gametag.TagPlayState:
		if s.match != nil && e.PlayerID > 0 && e.PlayerID == s.resolveLocalPlayerID() {
			s.match.Result = gametag.PlayState(value).String()
		}
	case gametag.TagNextOpponentPlayerID:
		if local := s.resolveLocalPlayerID(); local == 0 || e.PlayerID == local {
			s.nextOpponentID = value
		}
	case gametag.TagState:
		if e.ID == s.gameEntityID && gametag.State(value) == gametag.StateComplete {
			s.completeMatch()
			return true
		}
	}

	switch {
	case combatSetupSignal.fired(tag, prev, value):
		s.debug("signal", zap.String("name", combatSetupSignal.name), zap.Stringer("phase", s.combat.phase))
		s.startCombat()
	case shopSetupSignal.fired(tag, prev, value):
		s.debug("signal", zap.String("name", shopSetupSignal.name), zap.Stringer("phase", s.combat.phase))
		s.endCombat()
	}

	s.inferShopEvent(e, tag, prev, value)

	switch tag {
	case gametag.TagHealth, gametag.TagArmor, gametag.TagDamage:
		if s.cardType(e) == gametag.CardTypeHero || e.IsPlayerRoot() {
			s.reconcileHeroStat(e, tag, value)
		}
	}
	return false
}

// affectsSnapshot reports whether a change on e can alter a board or hero
// snapshot.
func (s *Session) affectsSnapshot(e *EntityState) bool {
	switch s.cardType(e) {
	case gametag.CardTypeHero, gametag.CardTypeMinion:
		return true
	}
	return e.CardID != ""
}

// cardType returns the entity's card type, falling back to the card database.
func (s *Session) cardType(e *EntityState) gametag.CardType {
	if e.CardType != gametag.CardTypeInvalid {
		return e.CardType
	}
	if card, ok := s.cards.Lookup(e.CardID); ok {
		return card.CardType()
	}
	return gametag.CardTypeInvalid
}
