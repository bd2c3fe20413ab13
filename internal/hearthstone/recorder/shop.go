package recorder

import (
	"go.uber.org/zap"

	"github.com/ramonehamilton/BG-Companion/internal/hearthstone/gametag"
)

// inferShopEvent records tavern upgrades and purchases seen outside combat.
// The events are annotations only; turn records never depend on them.
func (s *Session) inferShopEvent(e *EntityState, tag gametag.Tag, prev, value int) {
	if !s.settings.RecordShopEvents || s.match == nil || s.combat.phase == phaseActive {
		return
	}
	local := s.resolveLocalPlayerID()
	if local == 0 {
		return
	}

	switch tag {
	case gametag.TagPlayerTechLevel:
		if prev <= 0 || value <= prev {
			return
		}
		if e.PlayerID != local && e.EffectiveController() != local {
			return
		}
		// The hero and the player entity both carry the tier.
		if n := len(s.match.ShopEvents); n > 0 {
			last := s.match.ShopEvents[n-1]
			if last.Type == ShopTavernUpgrade && last.Turn == s.turn && last.TechLevel == value {
				return
			}
		}
		s.addShopEvent(ShopEvent{Type: ShopTavernUpgrade, TechLevel: value})

	case gametag.TagZone:
		if gametag.Zone(prev) != gametag.ZoneSetAside {
			return
		}
		if to := gametag.Zone(value); to != gametag.ZoneHand && to != gametag.ZonePlay {
			return
		}
		if e.EffectiveController() != local {
			return
		}
		ev := ShopEvent{Type: ShopBuy, EntityID: e.ID, CardID: e.CardID}
		switch s.cardType(e) {
		case gametag.CardTypeMinion:
			ev.Type = ShopBuyMinion
		case gametag.CardTypeSpell, gametag.CardTypeBattlegroundSpell:
			ev.Type = ShopBuySpell
		}
		if card, ok := s.cards.Lookup(e.CardID); ok {
			ev.Name = card.Name
		}
		s.addShopEvent(ev)
	}
}

func (s *Session) addShopEvent(ev ShopEvent) {
	ev.Turn = s.turn
	ev.Timestamp = s.clock()
	s.match.ShopEvents = append(s.match.ShopEvents, ev)
	s.debug("shop_event",
		zap.String("type", string(ev.Type)),
		zap.Int("turn", ev.Turn),
		zap.String("card_id", ev.CardID))
}
