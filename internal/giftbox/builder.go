package giftbox

import (
	"errors"
	"strings"
)

// Default builder limits.
const (
	// DefaultMaxCards is the card count cap of the builder.
	DefaultMaxCards = 7
	// DefaultMaxUnlockDelayDays is the largest delay the builder accepts.
	DefaultMaxUnlockDelayDays = 30
)

// Builder errors.
var (
	// ErrCardLimit is returned when adding a card to a full box.
	ErrCardLimit = errors.New("giftbox: card limit reached")
	// ErrLastCard is returned when removing the only remaining card.
	ErrLastCard = errors.New("giftbox: a box needs at least one card")
	// ErrCardNotFound is returned when a card id is not part of the draft.
	ErrCardNotFound = errors.New("giftbox: card not found")
)

// Limits are the configurable validation bounds of the builder.
type Limits struct {
	MaxCards           int `json:"max_cards"`
	MaxUnlockDelayDays int `json:"max_unlock_delay_days"`
}

// DefaultLimits returns the builder's stock limits.
func DefaultLimits() Limits {
	return Limits{MaxCards: DefaultMaxCards, MaxUnlockDelayDays: DefaultMaxUnlockDelayDays}
}

func (l Limits) withDefaults() Limits {
	if l.MaxCards <= 0 {
		l.MaxCards = DefaultMaxCards
	}
	if l.MaxUnlockDelayDays <= 0 {
		l.MaxUnlockDelayDays = DefaultMaxUnlockDelayDays
	}
	return l
}

// AddCard appends a blank card and returns it.
func (d *Draft) AddCard(limits Limits) (Card, error) {
	limits = limits.withDefaults()
	if len(d.Cards) >= limits.MaxCards {
		return Card{}, ErrCardLimit
	}
	card := Card{ID: NewCardID()}
	d.Cards = append(d.Cards, card)
	return card, nil
}

// RemoveCard deletes a card by id, keeping at least one card in the box.
func (d *Draft) RemoveCard(id string) error {
	idx := d.indexOf(id)
	if idx < 0 {
		return ErrCardNotFound
	}
	if len(d.Cards) <= 1 {
		return ErrLastCard
	}
	d.Cards = append(d.Cards[:idx:idx], d.Cards[idx+1:]...)
	return nil
}

// UpdateCard applies edit to the card with the given id. The id itself cannot change.
func (d *Draft) UpdateCard(id string, edit func(*Card)) error {
	idx := d.indexOf(id)
	if idx < 0 {
		return ErrCardNotFound
	}
	if edit == nil {
		return nil
	}
	card := d.Cards[idx]
	edit(&card)
	card.ID = d.Cards[idx].ID
	d.Cards[idx] = card
	return nil
}

func (d *Draft) indexOf(id string) int {
	id = strings.TrimSpace(id)
	for i := range d.Cards {
		if d.Cards[i].ID == id {
			return i
		}
	}
	return -1
}
