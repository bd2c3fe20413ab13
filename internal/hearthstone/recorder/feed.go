package recorder

import (
	"slices"
	"sync"
	"time"

	"github.com/samber/lo"
	"go.uber.org/zap"
)

// BoardCard is one opponent board entry pushed by a board watcher.
type BoardCard struct {
	EntityID int    `json:"entityId"`
	CardID   string `json:"cardId,omitempty"`
}

// boardFeed holds the latest opponent entity ids from the board watcher.
type boardFeed struct {
	mu        sync.Mutex
	ids       []int
	updatedAt time.Time
}

func (f *boardFeed) set(ids []int, at time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ids = ids
	f.updatedAt = at
}

func (f *boardFeed) snapshot() ([]int, time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.ids), f.updatedAt
}

func (f *boardFeed) clear() {
	f.set(nil, time.Time{})
}

// UpdateOpponentBoard records the opponent board reported by a board
// watcher. It may be called from any goroutine. Ids are kept in first-seen
// order without duplicates; entries without an id are ignored. During
// combat the current turn is refreshed against the new ids.
func (s *Session) UpdateOpponentBoard(cards []BoardCard) {
	ids := lo.Uniq(lo.FilterMap(cards, func(c BoardCard, _ int) (int, bool) {
		return c.EntityID, c.EntityID > 0
	}))
	s.mu.Lock()
	defer s.mu.Unlock()
	s.feed.set(ids, s.clock())
	s.metrics.FeedUpdate()
	if s.combat.phase == phaseActive {
		s.log.Debug("board_feed", zap.Ints("ids", ids))
		s.refreshSnapshot(true)
	}
}
