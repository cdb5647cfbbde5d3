package unlock

import (
	"errors"
	"time"

	"github.com/IanTiba/unbox-surprise-gifts/internal/giftbox"
)

// Viewer session errors.
var (
	// ErrLocked is returned when opening a card whose delay has not elapsed.
	ErrLocked = errors.New("unlock: card is still locked")
	// ErrNoSuchCard is returned for an index outside the box.
	ErrNoSuchCard = errors.New("unlock: no such card")
)

// ViewerSession tracks which cards one viewer has opened. Being eligible to open a card and
// having opened it are separate: an unlocked card stays closed until the viewer asks for it.
// A session is owned by a single viewer and is not safe for concurrent use.
type ViewerSession struct {
	record giftbox.Record
	opened map[int]struct{}
}

// NewViewerSession starts a session with the first card already open.
func NewViewerSession(record giftbox.Record) *ViewerSession {
	s := &ViewerSession{record: record, opened: map[int]struct{}{}}
	if len(record.Cards) > 0 {
		s.opened[0] = struct{}{}
	}
	return s
}

// Open marks a card as opened when it is eligible at now.
func (s *ViewerSession) Open(index int, now time.Time) (giftbox.Card, error) {
	card, ok := s.record.Card(index)
	if !ok {
		return giftbox.Card{}, ErrNoSuchCard
	}
	if !CanReveal(s.record.CreatedAt, card.UnlockDelayDays, now, index) {
		return giftbox.Card{}, ErrLocked
	}
	s.opened[index] = struct{}{}
	return card, nil
}

// Opened reports whether the viewer has opened the card.
func (s *ViewerSession) Opened(index int) bool {
	_, ok := s.opened[index]
	return ok
}

// Eligible reports whether the card may be opened at now.
func (s *ViewerSession) Eligible(index int, now time.Time) bool {
	card, ok := s.record.Card(index)
	if !ok {
		return false
	}
	return CanReveal(s.record.CreatedAt, card.UnlockDelayDays, now, index)
}
