package unlock

import (
	"errors"
	"testing"
	"time"

	"github.com/IanTiba/unbox-surprise-gifts/internal/giftbox"
)

var createdAt = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func TestFirstCardIsAlwaysRevealable(t *testing.T) {
	nows := []time.Time{
		createdAt.Add(-365 * day),
		createdAt,
		createdAt.Add(time.Second),
	}
	for _, now := range nows {
		for _, delay := range []int{-1, 0, 1, 365, 1 << 20} {
			if !CanReveal(createdAt, delay, now, 0) {
				t.Fatalf("expected card 0 revealable at %s with delay %d", now, delay)
			}
		}
	}
}

func TestThresholdIsInclusive(t *testing.T) {
	for _, delay := range []int{1, 2, 30} {
		threshold := createdAt.Add(time.Duration(delay) * day)
		if CanReveal(createdAt, delay, threshold.Add(-time.Second), 1) {
			t.Fatalf("delay %d: expected locked one second before threshold", delay)
		}
		if !CanReveal(createdAt, delay, threshold, 1) {
			t.Fatalf("delay %d: expected unlocked at threshold", delay)
		}
		if !Threshold(createdAt, delay).Equal(threshold) {
			t.Fatalf("delay %d: expected threshold %s, got %s", delay, threshold, Threshold(createdAt, delay))
		}
	}
}

func TestZeroAndNegativeDelayUnlockImmediately(t *testing.T) {
	for _, delay := range []int{0, -3} {
		if !CanReveal(createdAt, delay, createdAt, 2) {
			t.Fatalf("delay %d: expected unlocked at creation", delay)
		}
		if !CanReveal(createdAt, delay, createdAt.Add(-time.Hour), 2) {
			t.Fatalf("delay %d: expected unlocked with a viewer clock behind creation", delay)
		}
		if _, ok := RemainingTime(createdAt, delay, createdAt); ok {
			t.Fatalf("delay %d: expected no remaining time", delay)
		}
	}
}

func TestRevealIsMonotonic(t *testing.T) {
	const delay = 3
	unlocked := false
	for step := time.Duration(0); step <= 4*day; step += 17 * time.Minute {
		now := createdAt.Add(step)
		got := CanReveal(createdAt, delay, now, 1)
		if unlocked && !got {
			t.Fatalf("card re-locked at %s", now)
		}
		unlocked = unlocked || got
	}
	if !unlocked {
		t.Fatalf("expected card to unlock within four days")
	}
}

func TestRemainingTimeMatchesCanReveal(t *testing.T) {
	const delay = 2
	prev := time.Duration(-1)
	for step := time.Duration(0); step <= 3*day; step += 7 * time.Minute {
		now := createdAt.Add(step)
		remaining, ok := RemainingTime(createdAt, delay, now)
		if ok == CanReveal(createdAt, delay, now, 1) {
			t.Fatalf("at %s: remaining ok=%v disagrees with CanReveal", now, ok)
		}
		if !ok {
			continue
		}
		if remaining <= 0 {
			t.Fatalf("at %s: expected positive remaining, got %s", now, remaining)
		}
		if prev >= 0 && remaining >= prev {
			t.Fatalf("at %s: expected remaining to decrease, got %s after %s", now, remaining, prev)
		}
		prev = remaining
	}
}

func TestFormatRemaining(t *testing.T) {
	cases := []struct {
		in   time.Duration
		want string
	}{
		{in: 2*day + 3*time.Hour, want: "2 days, 3 hours remaining"},
		{in: 2 * day, want: "2 days remaining"},
		{in: day + time.Hour, want: "1 day, 1 hour remaining"},
		{in: 5 * time.Hour, want: "5 hours remaining"},
		{in: 23*time.Hour + 30*time.Minute, want: "23 hours remaining"},
		{in: 23*time.Hour + 59*time.Minute + 59*time.Second, want: "23 hours remaining"},
		{in: day, want: "1 day remaining"},
		{in: day + time.Second, want: "1 day, 1 hour remaining"},
		{in: time.Second, want: "1 hour remaining"},
		{in: 0, want: ""},
	}
	for _, tc := range cases {
		if got := FormatRemaining(tc.in); got != tc.want {
			t.Fatalf("FormatRemaining(%s): expected %q, got %q", tc.in, tc.want, got)
		}
	}
}

func TestRemainingUnderADayUsesHoursOnly(t *testing.T) {
	now := createdAt.Add(24*time.Hour + 30*time.Minute)
	remaining, ok := RemainingTime(createdAt, 2, now)
	if !ok || remaining != 23*time.Hour+30*time.Minute {
		t.Fatalf("expected 23h30m remaining, got %s ok=%v", remaining, ok)
	}
	status := Status(createdAt, 2, now, 1)
	if status.RemainingText != "23 hours remaining" {
		t.Fatalf("expected hours-only text, got %q", status.RemainingText)
	}
}

func TestStatusOfFirstCardHasNoRemaining(t *testing.T) {
	s := Status(createdAt, 5, createdAt, 0)
	if !s.Eligible() || s.Remaining != 0 || s.RemainingText != "" {
		t.Fatalf("expected open first card without countdown, got %+v", s)
	}
}

func TestSchedule(t *testing.T) {
	record := giftbox.Record{
		CreatedAt: createdAt,
		Draft: giftbox.Draft{Cards: []giftbox.Card{
			{ID: "a", UnlockDelayDays: 3},
			{ID: "b"},
			{ID: "c", UnlockDelayDays: 1},
			{ID: "d", UnlockDelayDays: 3},
		}},
	}
	now := createdAt.Add(day + 2*time.Hour)
	statuses := Schedule(record, now)

	want := []State{StateUnlocked, StateUnlocked, StateUnlocked, StateLocked}
	for i, s := range statuses {
		if s.State != want[i] {
			t.Fatalf("card %d: expected %s, got %s", i, want[i], s.State)
		}
	}
	if statuses[3].RemainingText != "1 day, 22 hours remaining" {
		t.Fatalf("unexpected remaining text %q", statuses[3].RemainingText)
	}
}

func TestViewerSessionSeparatesEligibleFromOpened(t *testing.T) {
	record := giftbox.Record{
		CreatedAt: createdAt,
		Draft: giftbox.Draft{Cards: []giftbox.Card{
			{ID: "a"},
			{ID: "b"},
			{ID: "c", UnlockDelayDays: 1},
		}},
	}
	s := NewViewerSession(record)
	now := createdAt.Add(time.Hour)

	if !s.Opened(0) {
		t.Fatalf("expected first card opened from the start")
	}
	if !s.Eligible(1, now) || s.Opened(1) {
		t.Fatalf("expected card 1 eligible but unopened")
	}
	if _, errOpen := s.Open(1, now); errOpen != nil {
		t.Fatalf("open card 1: %v", errOpen)
	}
	if !s.Opened(1) {
		t.Fatalf("expected card 1 opened")
	}
	if _, errOpen := s.Open(2, now); !errors.Is(errOpen, ErrLocked) {
		t.Fatalf("expected ErrLocked, got %v", errOpen)
	}
	if s.Opened(2) {
		t.Fatalf("expected card 2 to stay closed")
	}
	if _, errOpen := s.Open(2, createdAt.Add(day)); errOpen != nil {
		t.Fatalf("open card 2 after delay: %v", errOpen)
	}
	if _, errOpen := s.Open(9, now); !errors.Is(errOpen, ErrNoSuchCard) {
		t.Fatalf("expected ErrNoSuchCard, got %v", errOpen)
	}
}
