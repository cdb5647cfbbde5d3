package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/IanTiba/unbox-surprise-gifts/internal/db"
	"github.com/IanTiba/unbox-surprise-gifts/internal/giftbox"
	"github.com/IanTiba/unbox-surprise-gifts/internal/models"
	"github.com/IanTiba/unbox-surprise-gifts/internal/pricing"
	"github.com/IanTiba/unbox-surprise-gifts/internal/security"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// maxSlugAttempts bounds retries when a generated slug is already taken.
const maxSlugAttempts = 5

// NewGiftBox is everything needed to persist a paid box.
type NewGiftBox struct {
	PaymentIntentID string
	OrderID         string
	Email           string
	Draft           giftbox.Draft
	Quote           pricing.Quote
}

// GiftBoxStore persists gift boxes. Rows are written once and never updated.
type GiftBoxStore struct {
	db        *gorm.DB
	now       func() time.Time
	newSuffix func() (string, error)
}

// NewGiftBoxStore returns a store stamping CreatedAt with now (time.Now when nil).
func NewGiftBoxStore(conn *gorm.DB, now func() time.Time) *GiftBoxStore {
	if now == nil {
		now = time.Now
	}
	return &GiftBoxStore{
		db:  conn,
		now: now,
		newSuffix: func() (string, error) {
			return security.GenerateSlugSuffix(slugSuffixLength)
		},
	}
}

// CreateForPayment writes the box for a payment exactly once.
// A second call for the same payment intent returns the existing record with created=false.
func (s *GiftBoxStore) CreateForPayment(ctx context.Context, in NewGiftBox) (giftbox.Record, bool, error) {
	paymentIntentID := strings.TrimSpace(in.PaymentIntentID)
	if paymentIntentID == "" {
		return giftbox.Record{}, false, errors.New("store: empty payment intent id")
	}

	existing, errFind := s.GetByPaymentIntent(ctx, paymentIntentID)
	if errFind == nil {
		return existing, false, nil
	}
	if !errors.Is(errFind, ErrNotFound) {
		return giftbox.Record{}, false, errFind
	}

	draft := in.Draft.Normalize()
	stem := Slugify(draft.Title)
	for attempt := 0; attempt < maxSlugAttempts; attempt++ {
		suffix, errSuffix := s.newSuffix()
		if errSuffix != nil {
			return giftbox.Record{}, false, errSuffix
		}
		row := newGiftBoxRow(in, draft, stem+"-"+suffix, s.now())

		errCreate := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			return tx.Create(&row).Error
		})
		if errCreate == nil {
			return toRecord(row), true, nil
		}
		if !db.IsUniqueViolation(errCreate) {
			return giftbox.Record{}, false, fmt.Errorf("store: create gift box: %w", errCreate)
		}
		if raced, errRaced := s.GetByPaymentIntent(ctx, paymentIntentID); errRaced == nil {
			return raced, false, nil
		}
		log.Debugf("store: slug %s taken, retrying", row.Slug)
	}
	return giftbox.Record{}, false, fmt.Errorf("store: no free slug for %q after %d attempts", stem, maxSlugAttempts)
}

// GetBySlug loads a box by its share slug.
func (s *GiftBoxStore) GetBySlug(ctx context.Context, slug string) (giftbox.Record, error) {
	slug = strings.TrimSpace(slug)
	if slug == "" {
		return giftbox.Record{}, ErrNotFound
	}
	return s.first(ctx, "slug = ?", slug)
}

// GetByPaymentIntent loads the box produced by a payment.
func (s *GiftBoxStore) GetByPaymentIntent(ctx context.Context, paymentIntentID string) (giftbox.Record, error) {
	return s.first(ctx, "payment_intent_id = ?", paymentIntentID)
}

// IDBySlug returns the primary key of a box, for linking orders.
func (s *GiftBoxStore) IDBySlug(ctx context.Context, slug string) (uint64, error) {
	var row models.GiftBox
	if errFind := s.db.WithContext(ctx).Select("id").Where("slug = ?", slug).First(&row).Error; errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			return 0, ErrNotFound
		}
		return 0, errFind
	}
	return row.ID, nil
}

func (s *GiftBoxStore) first(ctx context.Context, query string, args ...any) (giftbox.Record, error) {
	var row models.GiftBox
	if errFind := s.db.WithContext(ctx).
		Preload("Cards", func(tx *gorm.DB) *gorm.DB { return tx.Order("position ASC") }).
		Where(query, args...).
		First(&row).Error; errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			return giftbox.Record{}, ErrNotFound
		}
		return giftbox.Record{}, errFind
	}
	return toRecord(row), nil
}

func newGiftBoxRow(in NewGiftBox, draft giftbox.Draft, slug string, now time.Time) models.GiftBox {
	cards := make([]models.GiftBoxCard, len(draft.Cards))
	for i, card := range draft.Cards {
		cards[i] = models.GiftBoxCard{
			Position:        i,
			CardKey:         card.ID,
			Message:         card.Message,
			ImageURL:        card.ImageURL,
			AudioURL:        card.AudioURL,
			UnlockDelayDays: card.UnlockDelayDays,
		}
	}
	currency := in.Quote.Currency
	if currency == "" {
		currency = pricing.Currency
	}
	return models.GiftBox{
		Slug:               slug,
		PaymentIntentID:    strings.TrimSpace(in.PaymentIntentID),
		OrderID:            in.OrderID,
		Title:              draft.Title,
		Theme:              string(draft.Theme),
		Emoji:              draft.Emoji,
		HasConfetti:        draft.HasConfetti,
		HasBackgroundMusic: draft.HasBackgroundMusic,
		SpotifyEmbed:       draft.SpotifyEmbed,
		Tier:               in.Quote.Tier.Name(),
		AmountCents:        in.Quote.AmountCents,
		Currency:           currency,
		ContactEmail:       strings.TrimSpace(in.Email),
		Cards:              cards,
		CreatedAt:          now.UTC().Truncate(time.Microsecond),
	}
}

func toRecord(row models.GiftBox) giftbox.Record {
	cards := make([]giftbox.Card, len(row.Cards))
	for i, card := range row.Cards {
		cards[i] = giftbox.Card{
			ID:              card.CardKey,
			Message:         card.Message,
			ImageURL:        card.ImageURL,
			AudioURL:        card.AudioURL,
			UnlockDelayDays: card.UnlockDelayDays,
		}
	}
	return giftbox.Record{
		Draft: giftbox.Draft{
			Title:              row.Title,
			Cards:              cards,
			Theme:              giftbox.ParseTheme(row.Theme),
			Emoji:              row.Emoji,
			HasConfetti:        row.HasConfetti,
			HasBackgroundMusic: row.HasBackgroundMusic,
			SpotifyEmbed:       row.SpotifyEmbed,
		},
		Slug:      row.Slug,
		CreatedAt: row.CreatedAt.UTC(),
	}
}
