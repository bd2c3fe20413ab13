package recorder

import "github.com/ramonehamilton/BG-Companion/internal/hearthstone/gametag"

// EntityState is everything the log has told us about one entity.
type EntityState struct {
	ID           int
	CardID       string
	Controller   int
	Zone         gametag.Zone
	ZonePosition int
	CardType     gametag.CardType
	PlayerID     int
	Tags         map[gametag.Tag]int

	// root is set for entities declared by a "Player EntityID=" line.
	root bool
}

func newEntityState(id int) *EntityState {
	return &EntityState{ID: id, Tags: make(map[gametag.Tag]int)}
}

// Tag returns the last written value of tag, or 0.
func (e *EntityState) Tag(tag gametag.Tag) int {
	return e.Tags[tag]
}

// IsPlayerRoot reports whether the entity is a player entity rather than a
// card. Battlegrounds hero cards also carry PLAYER_ID, so PlayerID alone
// does not decide it.
func (e *EntityState) IsPlayerRoot() bool {
	return e.root || e.CardType == gametag.CardTypePlayer
}

// EffectiveZone prefers FAKE_ZONE over ZONE.
func (e *EntityState) EffectiveZone() gametag.Zone {
	return effectiveZone(e.Tags, e.Zone)
}

// EffectivePosition prefers FAKE_ZONE_POSITION over ZONE_POSITION.
func (e *EntityState) EffectivePosition() int {
	return effectivePosition(e.Tags, e.ZonePosition)
}

// EffectiveController prefers LETTUCE_CONTROLLER over CONTROLLER.
func (e *EntityState) EffectiveController() int {
	return effectiveController(e.Tags, e.Controller)
}

func effectiveZone(tags map[gametag.Tag]int, zone gametag.Zone) gametag.Zone {
	if v := tags[gametag.TagFakeZone]; v > 0 {
		return gametag.Zone(v)
	}
	return zone
}

func effectivePosition(tags map[gametag.Tag]int, pos int) int {
	if v := tags[gametag.TagFakeZonePosition]; v > 0 {
		return v
	}
	return pos
}

func effectiveController(tags map[gametag.Tag]int, controller int) int {
	if v := tags[gametag.TagLettuceController]; v > 0 {
		return v
	}
	return controller
}

// entityTable maps entity ids to their state and remembers the order in
// which ids were first seen.
type entityTable struct {
	byID  map[int]*EntityState
	order []int
}

func newEntityTable() *entityTable {
	return &entityTable{byID: make(map[int]*EntityState)}
}

func (t *entityTable) get(id int) *EntityState {
	return t.byID[id]
}

func (t *entityTable) getOrCreate(id int) *EntityState {
	if e, ok := t.byID[id]; ok {
		return e
	}
	e := newEntityState(id)
	t.byID[id] = e
	t.order = append(t.order, id)
	return e
}

func (t *entityTable) len() int {
	return len(t.order)
}

// each visits entities in discovery order until fn returns false.
func (t *entityTable) each(fn func(*EntityState) bool) {
	for _, id := range t.order {
		if !fn(t.byID[id]) {
			return
		}
	}
}

// find returns the first entity, in discovery order, matching pred.
func (t *entityTable) find(pred func(*EntityState) bool) *EntityState {
	var found *EntityState
	t.each(func(e *EntityState) bool {
		if pred(e) {
			found = e
			return false
		}
		return true
	})
	return found
}

func (t *entityTable) reset() {
	clear(t.byID)
	t.order = t.order[:0]
}
