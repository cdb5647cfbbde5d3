package pricing

import (
	"fmt"
	"strings"

	"github.com/IanTiba/unbox-surprise-gifts/internal/giftbox"
)

// Tier is the price bucket of a gift box.
type Tier int

// Tier constants, in ascending price order.
const (
	// TierStandard covers plain boxes.
	TierStandard Tier = iota + 1
	// TierDeluxe covers large boxes, voice recordings or confetti.
	TierDeluxe
	// TierTimeCapsule covers boxes with at least one delayed card.
	TierTimeCapsule
)

// Currency is the ISO currency code every price is expressed in.
const Currency = "usd"

// deluxeCardThreshold is the card count above which a box is Deluxe.
const deluxeCardThreshold = 5

var tierNames = map[Tier]string{
	TierStandard:    "Standard",
	TierDeluxe:      "Deluxe",
	TierTimeCapsule: "Time Capsule",
}

var tierCents = map[Tier]int64{
	TierStandard:    499,
	TierDeluxe:      799,
	TierTimeCapsule: 999,
}

var tierFeatures = map[Tier][]string{
	TierStandard:    {"Up to 5 cards", "Text & images", "Basic themes", "Instant delivery"},
	TierDeluxe:      {"Up to 7 cards", "Text, images & audio", "Confetti animation", "Background music"},
	TierTimeCapsule: {"Up to 7 cards", "Text, images & audio", "Delayed delivery", "All premium features"},
}

// Name returns the display name of the tier.
func (t Tier) Name() string {
	if name, ok := tierNames[t]; ok {
		return name
	}
	return "Unknown"
}

// String implements fmt.Stringer.
func (t Tier) String() string { return t.Name() }

// AmountCents returns the tier price in cents.
func (t Tier) AmountCents() int64 { return tierCents[t] }

// ParseTier resolves a tier from its Name.
func ParseTier(name string) (Tier, bool) {
	for tier, tierName := range tierNames {
		if strings.EqualFold(strings.TrimSpace(name), tierName) {
			return tier, true
		}
	}
	return 0, false
}

// Features returns the selling points listed for the tier.
func (t Tier) Features() []string {
	features := tierFeatures[t]
	out := make([]string, len(features))
	copy(out, features)
	return out
}

// Quote is the price of a draft together with the tier that produced it.
type Quote struct {
	Tier        Tier
	AmountCents int64
	Currency    string
}

// Amount returns the price in dollars.
func (q Quote) Amount() float64 {
	return float64(q.AmountCents) / 100
}

// AmountString formats the price as a decimal string, e.g. "9.99".
func (q Quote) AmountString() string {
	return fmt.Sprintf("%d.%02d", q.AmountCents/100, q.AmountCents%100)
}

// Price derives the tier and price of a draft. Rules are evaluated in order and the first
// match wins:
// 1) any card with an unlock delay -> Time Capsule
// 2) more than five cards, any voice recording, or confetti -> Deluxe
// 3) everything else -> Standard
func Price(d giftbox.Draft) Quote {
	tier := TierStandard
	switch {
	case anyCard(d.Cards, giftbox.Card.IsDelayed):
		tier = TierTimeCapsule
	case len(d.Cards) > deluxeCardThreshold,
		anyCard(d.Cards, giftbox.Card.HasAudio),
		d.HasConfetti:
		tier = TierDeluxe
	}
	return Quote{Tier: tier, AmountCents: tier.AmountCents(), Currency: Currency}
}

// CatalogEntry describes one tier for the public price list.
type CatalogEntry struct {
	Tier        Tier
	AmountCents int64
	Features    []string
}

// Catalog returns every tier in ascending price order.
func Catalog() []CatalogEntry {
	tiers := []Tier{TierStandard, TierDeluxe, TierTimeCapsule}
	out := make([]CatalogEntry, 0, len(tiers))
	for _, t := range tiers {
		out = append(out, CatalogEntry{Tier: t, AmountCents: t.AmountCents(), Features: t.Features()})
	}
	return out
}

func anyCard(cards []giftbox.Card, match func(giftbox.Card) bool) bool {
	for _, card := range cards {
		if match(card) {
			return true
		}
	}
	return false
}
