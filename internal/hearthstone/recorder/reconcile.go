package recorder

import (
	"cmp"
	"slices"

	"github.com/ramonehamilton/BG-Companion/internal/hearthstone/gametag"
)

// provider is one named source in a fallback chain.
type provider[T any] struct {
	name  string
	fetch func() (T, bool)
}

// firstOf returns the first value a provider reports, with the provider's name.
func firstOf[T any](providers ...provider[T]) (T, string, bool) {
	for _, p := range providers {
		if v, ok := p.fetch(); ok {
			return v, p.name, true
		}
	}
	var zero T
	return zero, "", false
}

func positive(v int) (int, bool) { return v, v > 0 }

// heroEntityID locates a player's hero: the HERO_ENTITY map, then the live
// source, then a hero in play attributed to the player.
func (s *Session) heroEntityID(playerID int) (int, bool) {
	if playerID <= 0 {
		return 0, false
	}
	id, _, ok := firstOf(
		provider[int]{"cache", func() (int, bool) { return positive(s.heroByPlayer[playerID]) }},
		provider[int]{"live", func() (int, bool) { return positive(s.live.HeroEntityID(playerID)) }},
		provider[int]{"scan", func() (int, bool) {
			e := s.entities.find(func(e *EntityState) bool {
				return s.cardType(e) == gametag.CardTypeHero &&
					e.EffectiveZone() == gametag.ZonePlay &&
					(e.PlayerID == playerID || e.EffectiveController() == playerID)
			})
			if e == nil {
				return 0, false
			}
			return e.ID, true
		}},
	)
	return id, ok
}

func (s *Session) playerRoot(playerID int) *EntityState {
	return s.entities.find(func(e *EntityState) bool {
		return e.IsPlayerRoot() && e.PlayerID == playerID
	})
}

type heroStats struct {
	base, damage, armor int
}

func statsOf(tags map[gametag.Tag]int) (heroStats, bool) {
	st := heroStats{
		base:   tags[gametag.TagHealth],
		damage: tags[gametag.TagDamage],
		armor:  tags[gametag.TagArmor],
	}
	return st, st.base > 0 || st.armor > 0
}

// resolveHero builds a snapshot of the player's hero. Health and armor come
// from the hero entity, else the player entity, else the live source.
func (s *Session) resolveHero(playerID int) (HeroSnapshot, bool) {
	heroID, ok := s.heroEntityID(playerID)
	if !ok {
		return HeroSnapshot{}, false
	}
	e := s.entities.get(heroID)
	live, liveOK := s.live.Entity(heroID)
	if e == nil && !liveOK {
		return HeroSnapshot{}, false
	}

	stats, _, _ := firstOf(
		provider[heroStats]{"hero", func() (heroStats, bool) {
			if e == nil {
				return heroStats{}, false
			}
			return statsOf(e.Tags)
		}},
		provider[heroStats]{"player", func() (heroStats, bool) {
			if root := s.playerRoot(playerID); root != nil {
				return statsOf(root.Tags)
			}
			return heroStats{}, false
		}},
		provider[heroStats]{"live", func() (heroStats, bool) {
			if !liveOK {
				return heroStats{}, false
			}
			return statsOf(live.Tags)
		}},
	)

	snap := HeroSnapshot{
		EntityID:   heroID,
		CardID:     live.CardID,
		BaseHealth: stats.base,
		Damage:     stats.damage,
		Armor:      stats.armor,
		Health:     max(0, stats.base-stats.damage),
		TechLevel:  s.techLevel(playerID, heroID),
	}
	if e != nil && e.CardID != "" {
		snap.CardID = e.CardID
	}
	snap.IsDead = snap.Health <= 0
	if card, ok := s.cards.Lookup(snap.CardID); ok {
		snap.Name = card.Name
	}
	return snap, true
}

// techLevel resolves a player's tavern tier.
func (s *Session) techLevel(playerID, heroID int) int {
	lvl, _, _ := firstOf(
		provider[int]{"hero", func() (int, bool) {
			if e := s.entities.get(heroID); e != nil {
				return positive(e.Tag(gametag.TagPlayerTechLevel))
			}
			return 0, false
		}},
		provider[int]{"player", func() (int, bool) {
			if root := s.playerRoot(playerID); root != nil {
				return positive(root.Tag(gametag.TagPlayerTechLevel))
			}
			return 0, false
		}},
		provider[int]{"live_player", func() (int, bool) {
			if p, ok := s.live.PlayerEntity(playerID); ok {
				return positive(p.Tag(gametag.TagPlayerTechLevel))
			}
			return 0, false
		}},
		provider[int]{"live_hero", func() (int, bool) {
			if h, ok := s.live.Entity(heroID); ok && heroID > 0 {
				return positive(h.Tag(gametag.TagPlayerTechLevel))
			}
			return 0, false
		}},
	)
	return lvl
}

// resolveBoard returns a player's board and the tier that produced it:
// the live board for the local player, the board watcher's ids for the
// opponent, the live snapshot for the player's hero, then the entity table.
func (s *Session) resolveBoard(playerID int, allowFeed bool) ([]MinionRecord, BoardSource) {
	if playerID <= 0 {
		return nil, SourceNone
	}
	local := s.resolveLocalPlayerID()
	nonEmpty := func(b []MinionRecord) ([]MinionRecord, bool) { return b, len(b) > 0 }

	board, name, ok := firstOf(
		provider[[]MinionRecord]{string(SourceLivePlayerBoard), func() ([]MinionRecord, bool) {
			if playerID != local {
				return nil, false
			}
			return nonEmpty(s.liveMinions(s.live.PlayerBoard()))
		}},
		provider[[]MinionRecord]{string(SourceWatcher), func() ([]MinionRecord, bool) {
			if !allowFeed || playerID == local {
				return nil, false
			}
			return nonEmpty(s.feedMinions(playerID))
		}},
		provider[[]MinionRecord]{string(SourceLiveBoardSnapshot), func() ([]MinionRecord, bool) {
			heroID, ok := s.heroEntityID(playerID)
			if !ok {
				return nil, false
			}
			return nonEmpty(s.liveMinions(s.live.BoardSnapshot(heroID)))
		}},
		provider[[]MinionRecord]{string(SourcePowerLog), func() ([]MinionRecord, bool) {
			return nonEmpty(s.scanBoard(playerID))
		}},
	)
	if !ok {
		return nil, SourceNone
	}
	return board, BoardSource(name)
}

func (s *Session) isBoardMinion(e *EntityState, playerID int) bool {
	return e.EffectiveZone() == gametag.ZonePlay &&
		s.cardType(e) == gametag.CardTypeMinion &&
		e.EffectiveController() == playerID
}

func (s *Session) isLiveBoardMinion(l LiveEntity, playerID int) bool {
	ct := gametag.CardType(l.Tag(gametag.TagCardType))
	if ct == gametag.CardTypeInvalid {
		if card, ok := s.cards.Lookup(l.CardID); ok {
			ct = card.CardType()
		}
	}
	return l.effectiveZone() == gametag.ZonePlay &&
		ct == gametag.CardTypeMinion &&
		l.effectiveController() == playerID
}

// scanBoard collects the player's minions in play from the entity table.
func (s *Session) scanBoard(playerID int) []MinionRecord {
	var board []MinionRecord
	s.entities.each(func(e *EntityState) bool {
		if s.isBoardMinion(e, playerID) {
			board = append(board, s.minionRecord(e.ID, e.CardID, e.EffectivePosition(), e.Tags))
		}
		return true
	})
	sortBoard(board)
	return board
}

// feedMinions resolves the board watcher's ids against the entity table,
// falling back to the live source for ids the log has not shown yet.
func (s *Session) feedMinions(playerID int) []MinionRecord {
	ids, _ := s.feed.snapshot()
	var board []MinionRecord
	for _, id := range ids {
		if e := s.entities.get(id); e != nil {
			if s.isBoardMinion(e, playerID) {
				board = append(board, s.minionRecord(e.ID, e.CardID, e.EffectivePosition(), e.Tags))
			}
			continue
		}
		if l, ok := s.live.Entity(id); ok && s.isLiveBoardMinion(l, playerID) {
			board = append(board, s.minionRecord(l.ID, l.CardID, l.effectivePosition(), l.Tags))
		}
	}
	sortBoard(board)
	return board
}

// liveMinions converts a board reported by the live source.
func (s *Session) liveMinions(entities []LiveEntity) []MinionRecord {
	var board []MinionRecord
	for _, l := range entities {
		if l.ID <= 0 {
			continue
		}
		board = append(board, s.minionRecord(l.ID, l.CardID, l.effectivePosition(), l.Tags))
	}
	sortBoard(board)
	return board
}

// sortBoard orders minions by position, keeping discovery order for ties.
func sortBoard(board []MinionRecord) {
	slices.SortStableFunc(board, func(a, b MinionRecord) int {
		return cmp.Compare(a.ZonePosition, b.ZonePosition)
	})
}

var statusTags = []gametag.Tag{
	gametag.TagTaunt,
	gametag.TagDivineShield,
	gametag.TagWindfury,
	gametag.TagMegaWindfury,
	gametag.TagStealth,
	gametag.TagReborn,
	gametag.TagPoisonous,
	gametag.TagFrozen,
	gametag.TagSilenced,
}

func (s *Session) minionRecord(id int, cardID string, pos int, tags map[gametag.Tag]int) MinionRecord {
	m := MinionRecord{
		EntityID:     id,
		CardID:       cardID,
		ZonePosition: pos,
		Attack:       tags[gametag.TagAtk],
		MaxHealth:    tags[gametag.TagHealth],
		Damage:       tags[gametag.TagDamage],
		Health:       max(0, tags[gametag.TagHealth]-tags[gametag.TagDamage]),
		Statuses:     []string{},
		Tags:         make(map[string]int, len(tags)),
	}
	if card, ok := s.cards.Lookup(cardID); ok {
		m.Name = card.Name
	}
	for _, tag := range statusTags {
		if tags[tag] > 0 {
			m.Statuses = append(m.Statuses, tag.String())
		}
	}
	for tag, v := range tags {
		m.Tags[tag.String()] = v
	}
	return m
}
