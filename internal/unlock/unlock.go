// Package unlock decides when the cards of a gift box may be revealed.
//
// Every delay is measured from the box's creation time. Functions here take the current time
// as an argument and keep no state, so callers can re-evaluate on every render or timer tick.
package unlock

import (
	"fmt"
	"strings"
	"time"

	"github.com/IanTiba/unbox-surprise-gifts/internal/giftbox"
)

// State is the lock state of a card.
type State string

// Card states.
const (
	// StateLocked means the delay has not elapsed yet.
	StateLocked State = "locked"
	// StateUnlocked means the card may be opened.
	StateUnlocked State = "unlocked"
)

const day = 24 * time.Hour

// maxDelayDays keeps delay arithmetic inside time.Duration's range (about 292 years).
const maxDelayDays = 100000

// Threshold returns the instant a delayed card unlocks. Negative delays count as zero.
func Threshold(createdAt time.Time, unlockDelayDays int) time.Time {
	return createdAt.Add(required(unlockDelayDays))
}

// CanReveal reports whether the card at cardIndex may be revealed at now.
// The first card opens the box and is never gated.
func CanReveal(createdAt time.Time, unlockDelayDays int, now time.Time, cardIndex int) bool {
	if cardIndex == 0 {
		return true
	}
	return elapsed(createdAt, now) >= required(unlockDelayDays)
}

// RemainingTime returns how long until a card with the given delay unlocks.
// ok is false once the delay has elapsed. It ignores the card index, so card 0 may report time
// left while CanReveal is true; use Status for per-card remaining time.
func RemainingTime(createdAt time.Time, unlockDelayDays int, now time.Time) (remaining time.Duration, ok bool) {
	left := required(unlockDelayDays) - elapsed(createdAt, now)
	if left <= 0 {
		return 0, false
	}
	return left, true
}

// FormatRemaining renders a remaining duration for display: "2 days, 3 hours remaining",
// "2 days remaining", "5 hours remaining". Durations of a day or more round up to whole hours;
// below a day only hours are shown, rounded up but never past 23.
func FormatRemaining(remaining time.Duration) string {
	if remaining <= 0 {
		return ""
	}
	hours := int64(remaining / time.Hour)
	if remaining%time.Hour != 0 {
		hours++
	}
	if remaining < day {
		return plural(min(hours, 23), "hour") + " remaining"
	}
	days := hours / 24
	hours %= 24

	parts := []string{plural(days, "day")}
	if hours > 0 {
		parts = append(parts, plural(hours, "hour"))
	}
	return strings.Join(parts, ", ") + " remaining"
}

// CardStatus is the reveal state of one card at a given instant.
type CardStatus struct {
	Index         int
	State         State
	UnlocksAt     time.Time
	Remaining     time.Duration
	RemainingText string
}

// Eligible reports whether the card may be opened.
func (s CardStatus) Eligible() bool {
	return s.State == StateUnlocked
}

// Status evaluates one card. Remaining fields are zero whenever the card is revealable.
func Status(createdAt time.Time, unlockDelayDays int, now time.Time, cardIndex int) CardStatus {
	status := CardStatus{
		Index:     cardIndex,
		State:     StateUnlocked,
		UnlocksAt: Threshold(createdAt, unlockDelayDays),
	}
	if cardIndex == 0 {
		status.UnlocksAt = createdAt
	}
	if CanReveal(createdAt, unlockDelayDays, now, cardIndex) {
		return status
	}
	remaining, _ := RemainingTime(createdAt, unlockDelayDays, now)
	status.State = StateLocked
	status.Remaining = remaining
	status.RemainingText = FormatRemaining(remaining)
	return status
}

// Schedule evaluates every card of a record, in order.
func Schedule(record giftbox.Record, now time.Time) []CardStatus {
	out := make([]CardStatus, 0, len(record.Cards))
	for i, card := range record.Cards {
		out = append(out, Status(record.CreatedAt, card.UnlockDelayDays, now, i))
	}
	return out
}

func required(unlockDelayDays int) time.Duration {
	if unlockDelayDays <= 0 {
		return 0
	}
	if unlockDelayDays > maxDelayDays {
		unlockDelayDays = maxDelayDays
	}
	return time.Duration(unlockDelayDays) * day
}

// elapsed never goes negative, so a viewer clock behind the server never re-locks a zero-delay card.
func elapsed(createdAt, now time.Time) time.Duration {
	d := now.Sub(createdAt)
	if d < 0 {
		return 0
	}
	return d
}

func plural(n int64, unit string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s", unit)
	}
	return fmt.Sprintf("%d %ss", n, unit)
}
