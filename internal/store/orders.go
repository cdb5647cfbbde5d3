package store

import (
	"context"
	"errors"
	"time"

	"github.com/IanTiba/unbox-surprise-gifts/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// defaultAbandonBatchSize bounds one abandon UPDATE.
const defaultAbandonBatchSize = 500

// maxAbandonBatchesPerRun bounds one AbandonPendingBefore call.
const maxAbandonBatchesPerRun = 200

// OrderStore persists checkout attempts.
type OrderStore struct {
	db        *gorm.DB
	batchSize int
}

// NewOrderStore returns an order store.
func NewOrderStore(conn *gorm.DB) *OrderStore {
	return &OrderStore{db: conn, batchSize: defaultAbandonBatchSize}
}

// Create inserts a new order.
func (s *OrderStore) Create(ctx context.Context, order *models.Order) error {
	return s.db.WithContext(ctx).Create(order).Error
}

// Get loads an order by id.
func (s *OrderStore) Get(ctx context.Context, id string) (models.Order, error) {
	return s.first(ctx, "id = ?", id)
}

// GetByPaymentIntent loads the order paid through a payment intent.
func (s *OrderStore) GetByPaymentIntent(ctx context.Context, paymentIntentID string) (models.Order, error) {
	return s.first(ctx, "payment_intent_id = ?", paymentIntentID)
}

// SetPaymentIntent records the payment intent created for an order.
func (s *OrderStore) SetPaymentIntent(ctx context.Context, id, paymentIntentID string) error {
	res := s.db.WithContext(ctx).Model(&models.Order{}).
		Where("id = ?", id).
		Update("payment_intent_id", paymentIntentID)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// MarkStatus moves an unfinished order to status. Succeeded orders are never changed.
func (s *OrderStore) MarkStatus(ctx context.Context, id string, status models.OrderStatus, reason string) error {
	res := s.db.WithContext(ctx).Model(&models.Order{}).
		Where("id = ? AND status <> ?", id, models.OrderStatusSucceeded).
		Updates(map[string]any{
			"status":         status,
			"failure_reason": reason,
		})
	return res.Error
}

// AttachBox marks an order succeeded and links the box its payment produced.
func (s *OrderStore) AttachBox(ctx context.Context, id string, giftBoxID uint64, completedAt time.Time) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var order models.Order
		if errFind := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ?", id).
			First(&order).Error; errFind != nil {
			if errors.Is(errFind, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return errFind
		}
		if order.Status == models.OrderStatusSucceeded && order.GiftBoxID != nil {
			return nil
		}
		completed := completedAt.UTC()
		return tx.Model(&order).Updates(map[string]any{
			"status":         models.OrderStatusSucceeded,
			"gift_box_id":    giftBoxID,
			"completed_at":   &completed,
			"failure_reason": "",
		}).Error
	})
}

// ListReconcilable returns pending or abandoned orders with a payment intent, created in
// [since, cutoff), oldest first. Abandoned orders stay listed because a late payment still completes them.
func (s *OrderStore) ListReconcilable(ctx context.Context, since, cutoff time.Time, limit int) ([]models.Order, error) {
	if limit <= 0 {
		limit = defaultAbandonBatchSize
	}
	var orders []models.Order
	if errFind := s.db.WithContext(ctx).
		Where("status IN ? AND payment_intent_id IS NOT NULL AND created_at >= ? AND created_at < ?",
			[]models.OrderStatus{models.OrderStatusPending, models.OrderStatusAbandoned}, since.UTC(), cutoff.UTC()).
		Order("created_at ASC").
		Limit(limit).
		Find(&orders).Error; errFind != nil {
		return nil, errFind
	}
	return orders, nil
}

// AbandonPendingBefore marks pending orders created before cutoff as abandoned, in batches.
// now stamps updated_at.
func (s *OrderStore) AbandonPendingBefore(ctx context.Context, cutoff, now time.Time) (int64, error) {
	total := int64(0)
	for i := 0; i < maxAbandonBatchesPerRun; i++ {
		if ctx.Err() != nil {
			return total, ctx.Err()
		}
		n, err := s.abandonBatch(ctx, cutoff.UTC(), now.UTC())
		if err != nil {
			return total, err
		}
		if n <= 0 {
			break
		}
		total += n
	}
	return total, nil
}

func (s *OrderStore) abandonBatch(ctx context.Context, cutoff, now time.Time) (int64, error) {
	limit := s.batchSize
	if limit <= 0 {
		limit = defaultAbandonBatchSize
	}
	// Limited subquery keeps each UPDATE short.
	res := s.db.WithContext(ctx).Exec(`
		UPDATE orders
		SET status = ?, updated_at = ?
		WHERE id IN (
			SELECT id FROM orders
			WHERE status = ? AND created_at < ?
			ORDER BY created_at ASC
			LIMIT ?
		)
	`, models.OrderStatusAbandoned, now, models.OrderStatusPending, cutoff, limit)
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}

func (s *OrderStore) first(ctx context.Context, query string, args ...any) (models.Order, error) {
	var order models.Order
	if errFind := s.db.WithContext(ctx).Where(query, args...).First(&order).Error; errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			return models.Order{}, ErrNotFound
		}
		return models.Order{}, errFind
	}
	return order, nil
}
