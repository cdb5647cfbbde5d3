package giftbox

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Theme is the visual style tag of a gift box.
type Theme string

// Supported themes.
const (
	// ThemePurplePink is the default gradient.
	ThemePurplePink Theme = "purple-pink"
	// ThemeBlueTeal is the cool gradient.
	ThemeBlueTeal Theme = "blue-teal"
	// ThemeWarmSunset is the warm gradient.
	ThemeWarmSunset Theme = "warm-sunset"
)

// DefaultEmoji is shown on boxes that did not pick one.
const DefaultEmoji = "🎁"

// Themes lists every supported theme in display order.
func Themes() []Theme {
	return []Theme{ThemePurplePink, ThemeBlueTeal, ThemeWarmSunset}
}

// ParseTheme normalizes a theme tag, falling back to purple-pink for unknown values.
func ParseTheme(raw string) Theme {
	candidate := Theme(strings.ToLower(strings.TrimSpace(raw)))
	for _, theme := range Themes() {
		if theme == candidate {
			return theme
		}
	}
	return ThemePurplePink
}

// Card is one message inside a gift box.
type Card struct {
	ID              string `json:"id"`                      // Unique within one box.
	Message         string `json:"message"`                 // Text shown on reveal.
	ImageURL        string `json:"image_url,omitempty"`     // Uploaded image reference.
	AudioURL        string `json:"audio_url,omitempty"`     // Uploaded voice recording reference.
	UnlockDelayDays int    `json:"unlock_delay_days"`       // Days after creation before the card unlocks.
	ImagePending    bool   `json:"image_pending,omitempty"` // Image chosen but upload not finished.
	AudioPending    bool   `json:"audio_pending,omitempty"` // Recording captured but upload not finished.
}

// HasAudio reports whether the card carries a voice recording, uploaded or not.
func (c Card) HasAudio() bool {
	return strings.TrimSpace(c.AudioURL) != "" || c.AudioPending
}

// IsDelayed reports whether the card is time-gated.
func (c Card) IsDelayed() bool {
	return c.UnlockDelayDays > 0
}

// UploadPending reports whether any media upload for the card is still in flight.
func (c Card) UploadPending() bool {
	return c.ImagePending || c.AudioPending
}

// Draft is the mutable, builder-owned gift box.
type Draft struct {
	Title              string `json:"title"`
	Cards              []Card `json:"cards"`
	Theme              Theme  `json:"theme"`
	Emoji              string `json:"emoji"`
	HasConfetti        bool   `json:"has_confetti"`
	HasBackgroundMusic bool   `json:"has_background_music"`
	SpotifyEmbed       string `json:"spotify_embed,omitempty"`
}

// Record is a persisted gift box. It never changes after creation.
type Record struct {
	Draft
	Slug      string    `json:"slug"`
	CreatedAt time.Time `json:"created_at"`
}

// Card returns the card at a reveal index.
func (r Record) Card(index int) (Card, bool) {
	if index < 0 || index >= len(r.Cards) {
		return Card{}, false
	}
	return r.Cards[index], true
}

// NewCardID returns a fresh card identifier.
func NewCardID() string {
	return uuid.NewString()
}

// NewDraft returns the draft a user starts from: one blank card and default styling.
func NewDraft() Draft {
	return Draft{
		Cards: []Card{{ID: NewCardID()}},
		Theme: ThemePurplePink,
		Emoji: DefaultEmoji,
	}
}

// Normalize returns a copy with trimmed text, clamped delays, default styling and card ids filled in.
func (d Draft) Normalize() Draft {
	out := d
	out.Title = strings.TrimSpace(d.Title)
	out.Theme = ParseTheme(string(d.Theme))
	out.Emoji = strings.TrimSpace(d.Emoji)
	if out.Emoji == "" {
		out.Emoji = DefaultEmoji
	}
	out.SpotifyEmbed = strings.TrimSpace(d.SpotifyEmbed)

	out.Cards = make([]Card, len(d.Cards))
	for i, card := range d.Cards {
		card.ID = strings.TrimSpace(card.ID)
		if card.ID == "" {
			card.ID = NewCardID()
		}
		card.ImageURL = strings.TrimSpace(card.ImageURL)
		card.AudioURL = strings.TrimSpace(card.AudioURL)
		if card.UnlockDelayDays < 0 {
			card.UnlockDelayDays = 0
		}
		out.Cards[i] = card
	}
	return out
}

// MediaURLs returns every uploaded media reference in card order.
func (d Draft) MediaURLs() []string {
	var urls []string
	for _, card := range d.Cards {
		if url := strings.TrimSpace(card.ImageURL); url != "" {
			urls = append(urls, url)
		}
		if url := strings.TrimSpace(card.AudioURL); url != "" {
			urls = append(urls, url)
		}
	}
	return urls
}
