package checkout

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/mail"
	"strconv"
	"strings"
	"time"

	"github.com/IanTiba/unbox-surprise-gifts/internal/cache"
	"github.com/IanTiba/unbox-surprise-gifts/internal/giftbox"
	"github.com/IanTiba/unbox-surprise-gifts/internal/metrics"
	"github.com/IanTiba/unbox-surprise-gifts/internal/models"
	"github.com/IanTiba/unbox-surprise-gifts/internal/payment"
	"github.com/IanTiba/unbox-surprise-gifts/internal/pricing"
	"github.com/IanTiba/unbox-surprise-gifts/internal/security"
	"github.com/IanTiba/unbox-surprise-gifts/internal/store"
	"github.com/IanTiba/unbox-surprise-gifts/internal/util"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"gorm.io/datatypes"
)

const (
	defaultTokenTTL      = 2 * time.Hour
	defaultLockTTL       = 30 * time.Second
	reconcileBatchSize   = 100
	reconcileWindow      = 7 * 24 * time.Hour
	maxFailureReasonSize = 500
)

// BoxStore persists purchased boxes.
type BoxStore interface {
	CreateForPayment(ctx context.Context, in store.NewGiftBox) (giftbox.Record, bool, error)
	GetByPaymentIntent(ctx context.Context, paymentIntentID string) (giftbox.Record, error)
	IDBySlug(ctx context.Context, slug string) (uint64, error)
}

// OrderStore persists checkout attempts.
type OrderStore interface {
	Create(ctx context.Context, order *models.Order) error
	Get(ctx context.Context, id string) (models.Order, error)
	SetPaymentIntent(ctx context.Context, id, paymentIntentID string) error
	MarkStatus(ctx context.Context, id string, status models.OrderStatus, reason string) error
	AttachBox(ctx context.Context, id string, giftBoxID uint64, completedAt time.Time) error
	ListReconcilable(ctx context.Context, since, cutoff time.Time, limit int) ([]models.Order, error)
	AbandonPendingBefore(ctx context.Context, cutoff, now time.Time) (int64, error)
}

// MediaVerifier reports media URLs that no completed upload produced.
type MediaVerifier interface {
	Verify(ctx context.Context, urls []string) ([]string, error)
}

// Options configures a Service.
type Options struct {
	TokenSecret   string
	TokenTTL      time.Duration
	LockTTL       time.Duration
	PublicBaseURL string
	// Limits returns the current builder limits; giftbox.DefaultLimits when nil.
	Limits func() giftbox.Limits
	// Now is the clock; time.Now when nil.
	Now func() time.Time
}

// Service turns validated drafts into paid, persisted gift boxes.
type Service struct {
	boxes    BoxStore
	orders   OrderStore
	media    MediaVerifier
	payments payment.Provider
	locker   cache.Locker
	records  *cache.RecordCache
	opts     Options
}

// NewService wires a checkout service. media and records may be nil.
func NewService(boxes BoxStore, orders OrderStore, media MediaVerifier, payments payment.Provider, locker cache.Locker, records *cache.RecordCache, opts Options) *Service {
	if opts.TokenTTL <= 0 {
		opts.TokenTTL = defaultTokenTTL
	}
	if opts.LockTTL <= 0 {
		opts.LockTTL = defaultLockTTL
	}
	if opts.Limits == nil {
		opts.Limits = giftbox.DefaultLimits
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	opts.PublicBaseURL = strings.TrimRight(opts.PublicBaseURL, "/")
	if locker == nil {
		locker = cache.NewLocalLocker()
	}
	return &Service{
		boxes:    boxes,
		orders:   orders,
		media:    media,
		payments: payments,
		locker:   locker,
		records:  records,
		opts:     opts,
	}
}

// Session is what the client needs to collect payment.
type Session struct {
	OrderID         string
	PaymentIntentID string
	ClientSecret    string
	Quote           pricing.Quote
	Token           string
	ExpiresAt       time.Time
}

// Result is a completed purchase.
type Result struct {
	Record   giftbox.Record
	ShareURL string
	// Created is false when the box already existed from an earlier completion.
	Created bool
}

// Limits returns the builder limits currently in force.
func (s *Service) Limits() giftbox.Limits {
	return s.opts.Limits()
}

// Quote prices a draft as it stands.
func (s *Service) Quote(draft giftbox.Draft) pricing.Quote {
	quote := pricing.Price(draft.Normalize())
	metrics.IncQuote(quote.Tier.Name())
	return quote
}

// ShareURL returns the public link of a box.
func (s *Service) ShareURL(slug string) string {
	return s.opts.PublicBaseURL + "/" + slug
}

// Begin validates a draft, records an order and opens a payment intent for its fresh quote.
func (s *Service) Begin(ctx context.Context, draft giftbox.Draft, email string) (Session, error) {
	draft = draft.Normalize()
	email = strings.TrimSpace(email)
	if errValidate := s.validate(ctx, draft, email); errValidate != nil {
		return Session{}, errValidate
	}

	quote := pricing.Price(draft)
	snapshot, errMarshal := json.Marshal(draft)
	if errMarshal != nil {
		return Session{}, fmt.Errorf("checkout: encode draft: %w", errMarshal)
	}
	order := models.Order{
		ID:          uuid.NewString(),
		Email:       email,
		Tier:        quote.Tier.Name(),
		AmountCents: quote.AmountCents,
		Currency:    quote.Currency,
		Status:      models.OrderStatusPending,
		Draft:       datatypes.JSON(snapshot),
		CreatedAt:   s.opts.Now().UTC(),
	}
	if errCreate := s.orders.Create(ctx, &order); errCreate != nil {
		return Session{}, fmt.Errorf("checkout: create order: %w", errCreate)
	}

	intent, errIntent := s.payments.CreateIntent(ctx, payment.IntentRequest{
		IdempotencyKey: order.ID,
		AmountCents:    quote.AmountCents,
		Currency:       quote.Currency,
		Email:          email,
		Metadata: map[string]string{
			"order_id":       order.ID,
			"gift_box_title": draft.Title,
			"card_count":     strconv.Itoa(len(draft.Cards)),
			"customer_email": email,
			"tier":           quote.Tier.Name(),
		},
	})
	if errIntent != nil {
		metrics.IncCheckoutFailure("create_intent")
		s.markStatus(ctx, order.ID, models.OrderStatusFailed, errIntent.Error())
		return Session{}, &UpstreamError{Op: "create payment intent", Err: errIntent}
	}
	if errSet := s.orders.SetPaymentIntent(ctx, order.ID, intent.ID); errSet != nil {
		metrics.IncCheckoutFailure("save_intent")
		if _, errCancel := s.payments.CancelIntent(ctx, intent.ID); errCancel != nil {
			log.WithError(errCancel).Warnf("checkout: cancel orphaned payment intent %s for order %s", intent.ID, order.ID)
		}
		s.markStatus(ctx, order.ID, models.OrderStatusFailed, "save payment intent: "+errSet.Error())
		return Session{}, fmt.Errorf("checkout: save payment intent: %w", errSet)
	}

	now := s.opts.Now()
	token, errToken := security.GenerateCheckoutToken(s.opts.TokenSecret, security.CheckoutClaims{
		OrderID:         order.ID,
		PaymentIntentID: intent.ID,
		Tier:            quote.Tier.Name(),
		AmountCents:     quote.AmountCents,
	}, now, s.opts.TokenTTL)
	if errToken != nil {
		return Session{}, fmt.Errorf("checkout: sign token: %w", errToken)
	}

	metrics.IncCheckoutStarted(quote.Tier.Name())
	log.Infof("checkout: order %s started (tier=%s amount=%s email=%s)", order.ID, quote.Tier.Name(), quote.AmountString(), util.MaskEmail(email))
	return Session{
		OrderID:         order.ID,
		PaymentIntentID: intent.ID,
		ClientSecret:    intent.ClientSecret,
		Quote:           quote,
		Token:           token,
		ExpiresAt:       now.Add(s.opts.TokenTTL).UTC(),
	}, nil
}

// Complete persists the box once its payment has succeeded. Repeated calls return the same box.
func (s *Service) Complete(ctx context.Context, token string) (Result, error) {
	claims, errClaims := s.parseToken(token)
	if errClaims != nil {
		return Result{}, errClaims
	}
	order, errOrder := s.orders.Get(ctx, claims.OrderID)
	if errOrder != nil {
		if errors.Is(errOrder, store.ErrNotFound) {
			return Result{}, ErrInvalidToken
		}
		return Result{}, errOrder
	}
	if order.PaymentIntentID == nil || *order.PaymentIntentID != claims.PaymentIntentID {
		return Result{}, ErrInvalidToken
	}
	return s.completeOrder(ctx, order)
}

// Cancel abandons the payment of an unfinished order and returns its draft for editing.
func (s *Service) Cancel(ctx context.Context, token string) (giftbox.Draft, error) {
	claims, errClaims := s.parseToken(token)
	if errClaims != nil {
		return giftbox.Draft{}, errClaims
	}
	order, errOrder := s.orders.Get(ctx, claims.OrderID)
	if errOrder != nil {
		if errors.Is(errOrder, store.ErrNotFound) {
			return giftbox.Draft{}, ErrInvalidToken
		}
		return giftbox.Draft{}, errOrder
	}
	if order.Status == models.OrderStatusSucceeded {
		return giftbox.Draft{}, ErrOrderCompleted
	}

	intent, errCancel := s.payments.CancelIntent(ctx, claims.PaymentIntentID)
	if errCancel != nil && !errors.Is(errCancel, payment.ErrIntentNotFound) {
		metrics.IncCheckoutFailure("cancel_intent")
		return giftbox.Draft{}, &UpstreamError{Op: "cancel payment intent", Err: errCancel}
	}
	if errCancel == nil && intent.Status == payment.IntentSucceeded {
		return giftbox.Draft{}, ErrOrderCompleted
	}
	s.markStatus(ctx, order.ID, models.OrderStatusCanceled, "")

	draft, errDraft := decodeDraft(order)
	if errDraft != nil {
		return giftbox.Draft{}, errDraft
	}
	return draft, nil
}

// ReconcilePending completes orders whose payment succeeded but whose client never came back,
// including orders already abandoned. Orders older than reconcileWindow are no longer checked.
func (s *Service) ReconcilePending(ctx context.Context, olderThan time.Duration) (int, error) {
	now := s.opts.Now()
	orders, errList := s.orders.ListReconcilable(ctx, now.Add(-reconcileWindow), now.Add(-olderThan), reconcileBatchSize)
	if errList != nil {
		return 0, fmt.Errorf("checkout: list pending: %w", errList)
	}
	completed := 0
	for _, order := range orders {
		if ctx.Err() != nil {
			return completed, ctx.Err()
		}
		result, errComplete := s.completeOrder(ctx, order)
		switch {
		case errComplete == nil:
			if result.Created {
				completed++
			}
		case errors.Is(errComplete, ErrPaymentIncomplete):
		default:
			log.WithError(errComplete).Warnf("checkout: reconcile order %s failed", order.ID)
		}
	}
	return completed, nil
}

// AbandonStale marks orders pending for longer than olderThan as abandoned.
func (s *Service) AbandonStale(ctx context.Context, olderThan time.Duration) (int64, error) {
	now := s.opts.Now()
	n, err := s.orders.AbandonPendingBefore(ctx, now.Add(-olderThan), now)
	metrics.AddOrdersAbandoned(n)
	return n, err
}

func (s *Service) completeOrder(ctx context.Context, order models.Order) (Result, error) {
	if order.PaymentIntentID == nil {
		return Result{}, ErrPaymentIncomplete
	}
	paymentIntentID := *order.PaymentIntentID

	if order.Status == models.OrderStatusSucceeded {
		record, errFind := s.boxes.GetByPaymentIntent(ctx, paymentIntentID)
		if errFind == nil {
			return Result{Record: record, ShareURL: s.ShareURL(record.Slug)}, nil
		}
		if !errors.Is(errFind, store.ErrNotFound) {
			return Result{}, errFind
		}
	}

	intent, errIntent := s.payments.GetIntent(ctx, paymentIntentID)
	if errIntent != nil {
		metrics.IncCheckoutFailure("fetch_intent")
		return Result{}, &UpstreamError{Op: "fetch payment intent", Err: errIntent}
	}
	switch intent.Status {
	case payment.IntentSucceeded:
	case payment.IntentCanceled:
		s.markStatus(ctx, order.ID, models.OrderStatusCanceled, "")
		return Result{}, fmt.Errorf("%w: payment canceled", ErrPaymentIncomplete)
	case payment.IntentFailed:
		s.markStatus(ctx, order.ID, models.OrderStatusFailed, intent.FailureMessage)
		return Result{}, fmt.Errorf("%w: payment failed", ErrPaymentIncomplete)
	default:
		return Result{}, fmt.Errorf("%w: payment %s", ErrPaymentIncomplete, intent.Status)
	}
	if intent.AmountCents != order.AmountCents {
		metrics.IncCheckoutFailure("amount_mismatch")
		log.Errorf("checkout: order %s charged %d, quoted %d", order.ID, intent.AmountCents, order.AmountCents)
		return Result{}, ErrAmountMismatch
	}

	release, errLock := s.locker.Acquire(ctx, "payment:"+paymentIntentID, s.opts.LockTTL)
	if errLock != nil {
		metrics.IncCheckoutFailure("lock")
		return Result{}, &UpstreamError{Op: "lock payment", Err: errLock}
	}
	defer release()

	draft, errDraft := decodeDraft(order)
	if errDraft != nil {
		return Result{}, errDraft
	}
	tier, okTier := pricing.ParseTier(order.Tier)
	if !okTier {
		tier = pricing.Price(draft).Tier
	}

	record, created, errCreate := s.boxes.CreateForPayment(ctx, store.NewGiftBox{
		PaymentIntentID: paymentIntentID,
		OrderID:         order.ID,
		Email:           order.Email,
		Draft:           draft,
		Quote:           pricing.Quote{Tier: tier, AmountCents: order.AmountCents, Currency: order.Currency},
	})
	if errCreate != nil {
		metrics.IncCheckoutFailure("persist")
		return Result{}, fmt.Errorf("checkout: persist box: %w", errCreate)
	}

	boxID, errID := s.boxes.IDBySlug(ctx, record.Slug)
	if errID != nil {
		return Result{}, fmt.Errorf("checkout: resolve box id: %w", errID)
	}
	if errAttach := s.orders.AttachBox(ctx, order.ID, boxID, s.opts.Now()); errAttach != nil {
		return Result{}, fmt.Errorf("checkout: attach box: %w", errAttach)
	}
	s.records.Set(ctx, record)

	if created {
		metrics.IncCheckoutCompleted(tier.Name())
		log.Infof("checkout: order %s completed as box %s", order.ID, record.Slug)
	}
	return Result{Record: record, ShareURL: s.ShareURL(record.Slug), Created: created}, nil
}

func (s *Service) validate(ctx context.Context, draft giftbox.Draft, email string) error {
	var fields []giftbox.FieldError
	if errValidate := draft.Validate(s.opts.Limits()); errValidate != nil {
		var verr *giftbox.ValidationError
		if !errors.As(errValidate, &verr) {
			return errValidate
		}
		fields = append(fields, verr.Fields...)
	}

	if email == "" {
		fields = append(fields, giftbox.FieldError{Field: "email", Message: "email is required"})
	} else if addr, errParse := mail.ParseAddress(email); errParse != nil || addr.Address != email {
		fields = append(fields, giftbox.FieldError{Field: "email", Message: "email is not a valid address"})
	}

	if s.media != nil {
		missing, errVerify := s.media.Verify(ctx, draft.MediaURLs())
		if errVerify != nil {
			return errVerify
		}
		fields = append(fields, missingMediaFields(draft, missing)...)
	}

	if len(fields) > 0 {
		return &giftbox.ValidationError{Fields: fields}
	}
	return nil
}

func missingMediaFields(draft giftbox.Draft, missing []string) []giftbox.FieldError {
	if len(missing) == 0 {
		return nil
	}
	unknown := make(map[string]struct{}, len(missing))
	for _, url := range missing {
		unknown[url] = struct{}{}
	}
	var fields []giftbox.FieldError
	for i, card := range draft.Cards {
		if _, ok := unknown[card.ImageURL]; ok && card.ImageURL != "" {
			fields = append(fields, giftbox.FieldError{Field: fmt.Sprintf("cards[%d].image_url", i), Message: "image upload not found, upload it again"})
		}
		if _, ok := unknown[card.AudioURL]; ok && card.AudioURL != "" {
			fields = append(fields, giftbox.FieldError{Field: fmt.Sprintf("cards[%d].audio_url", i), Message: "recording upload not found, record it again"})
		}
	}
	return fields
}

func (s *Service) parseToken(token string) (*security.CheckoutClaims, error) {
	claims, err := security.ParseCheckoutToken(s.opts.TokenSecret, strings.TrimSpace(token), s.opts.Now())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	return claims, nil
}

func (s *Service) markStatus(ctx context.Context, orderID string, status models.OrderStatus, reason string) {
	if len(reason) > maxFailureReasonSize {
		reason = reason[:maxFailureReasonSize]
	}
	if errMark := s.orders.MarkStatus(ctx, orderID, status, reason); errMark != nil {
		log.WithError(errMark).Warnf("checkout: mark order %s %s failed", orderID, status)
	}
}

func decodeDraft(order models.Order) (giftbox.Draft, error) {
	var draft giftbox.Draft
	if errUnmarshal := json.Unmarshal(order.Draft, &draft); errUnmarshal != nil {
		return giftbox.Draft{}, fmt.Errorf("checkout: decode draft of order %s: %w", order.ID, errUnmarshal)
	}
	return draft, nil
}
