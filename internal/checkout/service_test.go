package checkout

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/IanTiba/unbox-surprise-gifts/internal/cache"
	"github.com/IanTiba/unbox-surprise-gifts/internal/db"
	"github.com/IanTiba/unbox-surprise-gifts/internal/giftbox"
	"github.com/IanTiba/unbox-surprise-gifts/internal/models"
	"github.com/IanTiba/unbox-surprise-gifts/internal/payment"
	"github.com/IanTiba/unbox-surprise-gifts/internal/pricing"
	"github.com/IanTiba/unbox-surprise-gifts/internal/store"
	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

type fakeProvider struct {
	mu        sync.Mutex
	intents   map[string]payment.Intent
	requests  []payment.IntentRequest
	createErr error
	getErr    error
	canceled  []string
	next      int
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{intents: map[string]payment.Intent{}}
}

func (f *fakeProvider) CreateIntent(_ context.Context, req payment.IntentRequest) (payment.Intent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return payment.Intent{}, f.createErr
	}
	f.requests = append(f.requests, req)
	f.next++
	id := fmt.Sprintf("pi_%d", f.next)
	intent := payment.Intent{ID: id, ClientSecret: id + "_secret", Status: payment.IntentPending, AmountCents: req.AmountCents, Currency: req.Currency}
	f.intents[id] = intent
	return intent, nil
}

func (f *fakeProvider) GetIntent(_ context.Context, id string) (payment.Intent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return payment.Intent{}, f.getErr
	}
	intent, ok := f.intents[id]
	if !ok {
		return payment.Intent{}, payment.ErrIntentNotFound
	}
	return intent, nil
}

func (f *fakeProvider) CancelIntent(_ context.Context, id string) (payment.Intent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	intent, ok := f.intents[id]
	if !ok {
		return payment.Intent{}, payment.ErrIntentNotFound
	}
	f.canceled = append(f.canceled, id)
	intent.Status = payment.IntentCanceled
	f.intents[id] = intent
	return intent, nil
}

func (f *fakeProvider) set(id string, edit func(*payment.Intent)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	intent := f.intents[id]
	edit(&intent)
	f.intents[id] = intent
}

type fakeMedia struct {
	known map[string]bool
}

func (m fakeMedia) Verify(_ context.Context, urls []string) ([]string, error) {
	var missing []string
	for _, url := range urls {
		if !m.known[url] {
			missing = append(missing, url)
		}
	}
	return missing, nil
}

type harness struct {
	svc      *Service
	conn     *gorm.DB
	provider *fakeProvider
	orders   *store.OrderStore
	now      *time.Time
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	dsn := fmt.Sprintf("file:checkout_%d?mode=memory&cache=shared", time.Now().UnixNano())
	conn, errOpen := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if errOpen != nil {
		t.Fatalf("open sqlite: %v", errOpen)
	}
	sqlDB, errSQL := conn.DB()
	if errSQL != nil {
		t.Fatalf("sql db: %v", errSQL)
	}
	sqlDB.SetMaxOpenConns(1)
	if errMigrate := db.Migrate(conn); errMigrate != nil {
		t.Fatalf("migrate: %v", errMigrate)
	}
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	provider := newFakeProvider()
	orders := store.NewOrderStore(conn)
	svc := NewService(
		store.NewGiftBoxStore(conn, clock),
		orders,
		fakeMedia{known: map[string]bool{"https://cdn/known.png": true}},
		provider,
		cache.NewLocalLocker(),
		nil,
		Options{TokenSecret: "test-secret", PublicBaseURL: "https://unbox.example/", Now: clock},
	)
	return &harness{svc: svc, conn: conn, provider: provider, orders: orders, now: &now}
}

func capsuleDraft() giftbox.Draft {
	draft := giftbox.NewDraft()
	draft.Title = "For Alex"
	draft.Cards[0].Message = "Hello"
	draft.Cards[0].ImageURL = "https://cdn/known.png"
	draft.Cards = append(draft.Cards, giftbox.Card{ID: giftbox.NewCardID(), Message: "Later", UnlockDelayDays: 3})
	return draft
}

func countBoxes(t *testing.T, conn *gorm.DB) int64 {
	t.Helper()
	var count int64
	if errCount := conn.Model(&models.GiftBox{}).Count(&count).Error; errCount != nil {
		t.Fatalf("count: %v", errCount)
	}
	return count
}

func TestBeginReportsAllValidationErrors(t *testing.T) {
	h := newHarness(t)
	draft := giftbox.NewDraft()
	draft.Cards[0].ImageURL = "https://cdn/unknown.png"

	_, errBegin := h.svc.Begin(context.Background(), draft, "not-an-email")
	var verr *giftbox.ValidationError
	if !errors.As(errBegin, &verr) {
		t.Fatalf("expected ValidationError, got %v", errBegin)
	}
	got := map[string]bool{}
	for _, f := range verr.Fields {
		got[f.Field] = true
	}
	for _, field := range []string{"title", "cards[0].message", "email", "cards[0].image_url"} {
		if !got[field] {
			t.Fatalf("expected error for %s, got %+v", field, verr.Fields)
		}
	}
	if len(h.provider.requests) != 0 {
		t.Fatalf("expected no payment intent for invalid draft")
	}
}

func TestBeginProviderFailureIsRetryable(t *testing.T) {
	h := newHarness(t)
	h.provider.createErr = errors.New("stripe down")

	_, errBegin := h.svc.Begin(context.Background(), capsuleDraft(), "alex@example.com")
	if !errors.Is(errBegin, ErrUpstream) {
		t.Fatalf("expected ErrUpstream, got %v", errBegin)
	}
	var order models.Order
	if errFind := h.conn.First(&order).Error; errFind != nil {
		t.Fatalf("find order: %v", errFind)
	}
	if order.Status != models.OrderStatusFailed || order.FailureReason != "stripe down" {
		t.Fatalf("expected failed order with reason, got %+v", order)
	}
	if countBoxes(t, h.conn) != 0 {
		t.Fatalf("expected no box")
	}
}

func TestBeginCompleteFlow(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	session, errBegin := h.svc.Begin(ctx, capsuleDraft(), "alex@example.com")
	if errBegin != nil {
		t.Fatalf("begin: %v", errBegin)
	}
	if session.Quote.Tier != pricing.TierTimeCapsule || session.Quote.AmountCents != 999 {
		t.Fatalf("expected time capsule quote, got %+v", session.Quote)
	}
	req := h.provider.requests[0]
	if req.IdempotencyKey != session.OrderID || req.AmountCents != 999 || req.Metadata["card_count"] != "2" || req.Metadata["gift_box_title"] != "For Alex" {
		t.Fatalf("unexpected intent request %+v", req)
	}

	if _, errEarly := h.svc.Complete(ctx, session.Token); !errors.Is(errEarly, ErrPaymentIncomplete) {
		t.Fatalf("expected ErrPaymentIncomplete before payment, got %v", errEarly)
	}
	if countBoxes(t, h.conn) != 0 {
		t.Fatalf("expected no box before payment")
	}

	h.provider.set(session.PaymentIntentID, func(i *payment.Intent) { i.Status = payment.IntentSucceeded })
	result, errComplete := h.svc.Complete(ctx, session.Token)
	if errComplete != nil {
		t.Fatalf("complete: %v", errComplete)
	}
	if !result.Created || result.ShareURL != "https://unbox.example/"+result.Record.Slug {
		t.Fatalf("unexpected result %+v", result)
	}
	if !result.Record.CreatedAt.Equal(*h.now) {
		t.Fatalf("expected created_at %s, got %s", *h.now, result.Record.CreatedAt)
	}

	again, errAgain := h.svc.Complete(ctx, session.Token)
	if errAgain != nil {
		t.Fatalf("complete again: %v", errAgain)
	}
	if again.Created || again.Record.Slug != result.Record.Slug {
		t.Fatalf("expected the same box, got %+v", again)
	}
	if countBoxes(t, h.conn) != 1 {
		t.Fatalf("expected exactly one box")
	}

	order, _ := h.orders.Get(ctx, session.OrderID)
	if order.Status != models.OrderStatusSucceeded || order.GiftBoxID == nil {
		t.Fatalf("expected succeeded order linked to box, got %+v", order)
	}
}

func TestConcurrentCompleteCreatesOneBox(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	session, errBegin := h.svc.Begin(ctx, capsuleDraft(), "alex@example.com")
	if errBegin != nil {
		t.Fatalf("begin: %v", errBegin)
	}
	h.provider.set(session.PaymentIntentID, func(i *payment.Intent) { i.Status = payment.IntentSucceeded })

	var wg sync.WaitGroup
	slugs := make([]string, 6)
	created := make([]bool, 6)
	for i := range slugs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			result, errComplete := h.svc.Complete(ctx, session.Token)
			if errComplete != nil {
				t.Errorf("complete %d: %v", i, errComplete)
				return
			}
			slugs[i] = result.Record.Slug
			created[i] = result.Created
		}(i)
	}
	wg.Wait()

	createdCount := 0
	for i := range slugs {
		if slugs[i] != slugs[0] {
			t.Fatalf("expected one slug, got %v", slugs)
		}
		if created[i] {
			createdCount++
		}
	}
	if createdCount != 1 || countBoxes(t, h.conn) != 1 {
		t.Fatalf("expected exactly one creation, got %d (rows=%d)", createdCount, countBoxes(t, h.conn))
	}
}

func TestCompleteRejectsBadTokens(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	session, _ := h.svc.Begin(ctx, capsuleDraft(), "alex@example.com")

	if _, errForged := h.svc.Complete(ctx, session.Token+"x"); !errors.Is(errForged, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken for forged token, got %v", errForged)
	}
	*h.now = h.now.Add(3 * time.Hour)
	if _, errExpired := h.svc.Complete(ctx, session.Token); !errors.Is(errExpired, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken for expired token, got %v", errExpired)
	}
}

func TestCompleteUpstreamAndDecline(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	session, _ := h.svc.Begin(ctx, capsuleDraft(), "alex@example.com")

	h.provider.getErr = errors.New("timeout")
	if _, errFetch := h.svc.Complete(ctx, session.Token); !errors.Is(errFetch, ErrUpstream) {
		t.Fatalf("expected ErrUpstream, got %v", errFetch)
	}
	h.provider.getErr = nil

	h.provider.set(session.PaymentIntentID, func(i *payment.Intent) {
		i.Status = payment.IntentFailed
		i.FailureMessage = "card declined"
	})
	if _, errDeclined := h.svc.Complete(ctx, session.Token); !errors.Is(errDeclined, ErrPaymentIncomplete) {
		t.Fatalf("expected ErrPaymentIncomplete, got %v", errDeclined)
	}
	order, _ := h.orders.Get(ctx, session.OrderID)
	if order.Status != models.OrderStatusFailed || order.FailureReason != "card declined" {
		t.Fatalf("expected failed order, got %+v", order)
	}
}

func TestCompleteRejectsAmountMismatch(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	session, _ := h.svc.Begin(ctx, capsuleDraft(), "alex@example.com")
	h.provider.set(session.PaymentIntentID, func(i *payment.Intent) {
		i.Status = payment.IntentSucceeded
		i.AmountCents = 1
	})

	if _, errComplete := h.svc.Complete(ctx, session.Token); !errors.Is(errComplete, ErrAmountMismatch) {
		t.Fatalf("expected ErrAmountMismatch, got %v", errComplete)
	}
	if countBoxes(t, h.conn) != 0 {
		t.Fatalf("expected no box")
	}
}

func TestCancelKeepsDraft(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	draft := capsuleDraft()
	session, _ := h.svc.Begin(ctx, draft, "alex@example.com")

	restored, errCancel := h.svc.Cancel(ctx, session.Token)
	if errCancel != nil {
		t.Fatalf("cancel: %v", errCancel)
	}
	if restored.Title != draft.Title || len(restored.Cards) != len(draft.Cards) || restored.Cards[1].ID != draft.Cards[1].ID {
		t.Fatalf("expected draft back, got %+v", restored)
	}
	if len(h.provider.canceled) != 1 {
		t.Fatalf("expected intent canceled")
	}
	order, _ := h.orders.Get(ctx, session.OrderID)
	if order.Status != models.OrderStatusCanceled {
		t.Fatalf("expected canceled order, got %s", order.Status)
	}
	if _, errComplete := h.svc.Complete(ctx, session.Token); !errors.Is(errComplete, ErrPaymentIncomplete) {
		t.Fatalf("expected canceled order to stay incomplete, got %v", errComplete)
	}
}

func TestCancelAfterCompletion(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	session, _ := h.svc.Begin(ctx, capsuleDraft(), "alex@example.com")
	h.provider.set(session.PaymentIntentID, func(i *payment.Intent) { i.Status = payment.IntentSucceeded })
	if _, errComplete := h.svc.Complete(ctx, session.Token); errComplete != nil {
		t.Fatalf("complete: %v", errComplete)
	}

	if _, errCancel := h.svc.Cancel(ctx, session.Token); !errors.Is(errCancel, ErrOrderCompleted) {
		t.Fatalf("expected ErrOrderCompleted, got %v", errCancel)
	}
}

func TestReconcilePendingFinishesPaidOrders(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	paid, _ := h.svc.Begin(ctx, capsuleDraft(), "alex@example.com")
	unpaid, _ := h.svc.Begin(ctx, capsuleDraft(), "sam@example.com")
	h.provider.set(paid.PaymentIntentID, func(i *payment.Intent) { i.Status = payment.IntentSucceeded })

	*h.now = h.now.Add(10 * time.Minute)
	completed, errReconcile := h.svc.ReconcilePending(ctx, 5*time.Minute)
	if errReconcile != nil {
		t.Fatalf("reconcile: %v", errReconcile)
	}
	if completed != 1 || countBoxes(t, h.conn) != 1 {
		t.Fatalf("expected one reconciled box, got %d", completed)
	}
	order, _ := h.orders.Get(ctx, unpaid.OrderID)
	if order.Status != models.OrderStatusPending {
		t.Fatalf("expected unpaid order pending, got %s", order.Status)
	}
}

func TestAbandonStale(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	session, _ := h.svc.Begin(ctx, capsuleDraft(), "alex@example.com")

	*h.now = h.now.Add(25 * time.Hour)
	n, errAbandon := h.svc.AbandonStale(ctx, 24*time.Hour)
	if errAbandon != nil {
		t.Fatalf("abandon: %v", errAbandon)
	}
	if n != 1 {
		t.Fatalf("expected 1 abandoned, got %d", n)
	}
	order, _ := h.orders.Get(ctx, session.OrderID)
	if order.Status != models.OrderStatusAbandoned {
		t.Fatalf("expected abandoned, got %s", order.Status)
	}
}

func TestReconcileCompletesAbandonedOrderPaidLate(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	session, _ := h.svc.Begin(ctx, capsuleDraft(), "alex@example.com")

	*h.now = h.now.Add(25 * time.Hour)
	if _, errAbandon := h.svc.AbandonStale(ctx, 24*time.Hour); errAbandon != nil {
		t.Fatalf("abandon: %v", errAbandon)
	}
	h.provider.set(session.PaymentIntentID, func(i *payment.Intent) { i.Status = payment.IntentSucceeded })

	completed, errReconcile := h.svc.ReconcilePending(ctx, 5*time.Minute)
	if errReconcile != nil {
		t.Fatalf("reconcile: %v", errReconcile)
	}
	if completed != 1 || countBoxes(t, h.conn) != 1 {
		t.Fatalf("expected the late payment to produce a box, got %d", completed)
	}
	order, _ := h.orders.Get(ctx, session.OrderID)
	if order.Status != models.OrderStatusSucceeded {
		t.Fatalf("expected succeeded, got %s", order.Status)
	}
}

type intentlessOrders struct {
	*store.OrderStore
}

func (intentlessOrders) SetPaymentIntent(context.Context, string, string) error {
	return errors.New("database unavailable")
}

func TestBeginCancelsIntentWhenItCannotBeSaved(t *testing.T) {
	h := newHarness(t)
	clock := func() time.Time { return *h.now }
	svc := NewService(
		store.NewGiftBoxStore(h.conn, clock),
		intentlessOrders{h.orders},
		fakeMedia{known: map[string]bool{"https://cdn/known.png": true}},
		h.provider,
		cache.NewLocalLocker(),
		nil,
		Options{TokenSecret: "test-secret", PublicBaseURL: "https://unbox.example", Now: clock},
	)

	_, errBegin := svc.Begin(context.Background(), capsuleDraft(), "alex@example.com")
	if errBegin == nil {
		t.Fatalf("expected error when the intent cannot be saved")
	}
	if len(h.provider.canceled) != 1 || h.provider.canceled[0] != "pi_1" {
		t.Fatalf("expected pi_1 to be canceled, got %v", h.provider.canceled)
	}
	var order models.Order
	if errFind := h.conn.First(&order).Error; errFind != nil {
		t.Fatalf("find order: %v", errFind)
	}
	if order.Status != models.OrderStatusFailed {
		t.Fatalf("expected failed order, got %s", order.Status)
	}
}

func TestQuoteFollowsDraft(t *testing.T) {
	h := newHarness(t)
	draft := giftbox.NewDraft()
	if q := h.svc.Quote(draft); q.Tier != pricing.TierStandard {
		t.Fatalf("expected standard, got %v", q.Tier)
	}
	draft.HasConfetti = true
	if q := h.svc.Quote(draft); q.Tier != pricing.TierDeluxe {
		t.Fatalf("expected deluxe, got %v", q.Tier)
	}
}
