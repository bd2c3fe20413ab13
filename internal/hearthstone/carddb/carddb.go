// Package carddb resolves card ids seen in Power.log to card metadata.
package carddb

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/ramonehamilton/BG-Companion/internal/hearthstone/gametag"
)

// ErrNotFound is returned when a card id is not in the database.
var ErrNotFound = errors.New("card not found")

// Card is the subset of HearthstoneJSON card fields the recorder uses.
type Card struct {
	ID        string `json:"id"`
	DbfID     int    `json:"dbfId"`
	Name      string `json:"name"`
	Type      string `json:"type"`
	Set       string `json:"set,omitempty"`
	TechLevel int    `json:"techLevel,omitempty"`
	Attack    int    `json:"attack,omitempty"`
	Health    int    `json:"health,omitempty"`
}

// CardType decodes the card's type name.
func (c Card) CardType() gametag.CardType {
	return gametag.ParseCardType(strings.ToUpper(c.Type))
}

// Database looks up cards by id. Implementations must be safe for
// concurrent reads.
type Database interface {
	Lookup(cardID string) (Card, bool)
}

// Catalog is an in-memory Database.
type Catalog struct {
	mu    sync.RWMutex
	cards map[string]Card
}

// NewCatalog builds a catalog from the given cards.
func NewCatalog(cards ...Card) *Catalog {
	c := &Catalog{cards: make(map[string]Card, len(cards))}
	for _, card := range cards {
		if card.ID != "" {
			c.cards[card.ID] = card
		}
	}
	return c
}

// Lookup returns the card with the given id.
func (c *Catalog) Lookup(cardID string) (Card, bool) {
	if c == nil || cardID == "" {
		return Card{}, false
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	card, ok := c.cards[cardID]
	return card, ok
}

// Get is Lookup with an error for callers that want one.
func (c *Catalog) Get(cardID string) (Card, error) {
	card, ok := c.Lookup(cardID)
	if !ok {
		return Card{}, fmt.Errorf("%w: %s", ErrNotFound, cardID)
	}
	return card, nil
}

// Add inserts or replaces cards.
func (c *Catalog) Add(cards ...Card) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, card := range cards {
		if card.ID != "" {
			c.cards[card.ID] = card
		}
	}
}

// Len returns the number of cards in the catalog.
func (c *Catalog) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.cards)
}

// LoadFile reads a HearthstoneJSON cards.json file.
func LoadFile(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read card database: %w", err)
	}
	var cards []Card
	if err := json.Unmarshal(data, &cards); err != nil {
		return nil, fmt.Errorf("decode card database: %w", err)
	}
	return NewCatalog(cards...), nil
}

// Empty is a Database with no cards.
type Empty struct{}

// Lookup always reports the card as missing.
func (Empty) Lookup(string) (Card, bool) { return Card{}, false }
