package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cartly/internal/domain"
	"cartly/internal/models"
	"cartly/pkg/orders"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// RedemptionService owns the promotion's stock counters and usage records.
// It is the only place a promotion is mutated.
type RedemptionService struct {
	promos PromotionStore
	usages UsageStore
	orders orders.Provider
}

func NewRedemptionService(promos PromotionStore, usages UsageStore, provider orders.Provider) *RedemptionService {
	return &RedemptionService{promos: promos, usages: usages, orders: provider}
}

// RequestMeta carries audit fields captured from the applying request.
type RequestMeta struct {
	UserID    uint
	IP        string
	UserAgent string
}

// Reserve applies a promotion code to an order: evaluate, decrement stock,
// record the usage. Returned errors are either *domain.BusinessError
// (expected rejection) or infrastructure failures.
func (s *RedemptionService) Reserve(ctx context.Context, code, orderID string, meta RequestMeta) (*models.PromotionUsage, error) {
	// Fast pre-check; the unique index on active_order_id is the
	// authoritative guard below.
	if _, err := s.usages.GetActiveByOrderID(orderID); err == nil {
		return nil, domain.ErrAlreadyUsed
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("lookup active usage: %w", err)
	}

	promo, err := s.promos.GetByCode(code)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrPromoNotFound
		}
		return nil, fmt.Errorf("load promotion: %w", err)
	}

	order, err := s.orders.GetOrder(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("order context: %w", err)
	}

	useCount, err := s.usages.CountAppliedByUser(promo.ID, meta.UserID)
	if err != nil {
		return nil, fmt.Errorf("count usages: %w", err)
	}

	discount, bizErr := Evaluate(promo, order, useCount, time.Now())
	if bizErr != nil {
		return nil, bizErr
	}

	// Single atomic conditional decrement. Zero rows affected means a
	// concurrent caller took the last unit between evaluation and here;
	// that is a retryable race, not a bug.
	ok, err := s.promos.ReserveStock(promo.ID)
	if err != nil {
		return nil, fmt.Errorf("reserve stock: %w", err)
	}
	if !ok {
		return nil, domain.ErrOutOfStock
	}

	now := time.Now()
	activeOrderID := orderID
	usage := &models.PromotionUsage{
		PromotionID:    promo.ID,
		PromotionCode:  promo.Code,
		UserID:         meta.UserID,
		OrderID:        orderID,
		ActiveOrderID:  &activeOrderID,
		OrderAmount:    order.Amount,
		DiscountAmount: discount,
		FinalAmount:    order.Amount.Sub(discount),
		Status:         domain.UsageApplied,
		IP:             meta.IP,
		UserAgent:      meta.UserAgent,
		AppliedAt:      now,
	}
	if err := s.usages.Create(usage); err != nil {
		// Never leave stock decremented without a usage record.
		if relErr := s.promos.ReleaseStock(promo.ID); relErr != nil {
			return nil, fmt.Errorf("create usage: %v (stock compensation also failed: %w)", err, relErr)
		}
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			// A concurrent request won the race to redeem for this order.
			return nil, domain.ErrAlreadyUsed
		}
		return nil, fmt.Errorf("create usage: %w", err)
	}
	return usage, nil
}

// Release moves a redemption to CANCELLED or REFUNDED and returns its unit
// of stock. Idempotent: calling it twice releases exactly one unit.
func (s *RedemptionService) Release(usageID uint, status domain.UsageStatus) error {
	if !status.Terminal() {
		return fmt.Errorf("release: %q is not a terminal status", status)
	}
	usage, err := s.usages.GetByID(usageID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.ErrPromoNotFound
		}
		return fmt.Errorf("load usage: %w", err)
	}
	if usage.Status.Terminal() {
		return nil
	}
	moved, err := s.usages.MarkTerminal(usageID, status, time.Now())
	if err != nil {
		return fmt.Errorf("mark terminal: %w", err)
	}
	if !moved {
		// Another caller completed the transition first; stock was
		// already released by them.
		return nil
	}
	if err := s.promos.ReleaseStock(usage.PromotionID); err != nil {
		return fmt.Errorf("release stock: %w", err)
	}
	return nil
}

// Validate runs the evaluator without reserving anything.
func (s *RedemptionService) Validate(ctx context.Context, code, orderID string, userID uint) (decimal.Decimal, error) {
	promo, err := s.promos.GetByCode(code)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return decimal.Zero, domain.ErrPromoNotFound
		}
		return decimal.Zero, fmt.Errorf("load promotion: %w", err)
	}
	order, err := s.orders.GetOrder(ctx, orderID)
	if err != nil {
		return decimal.Zero, fmt.Errorf("order context: %w", err)
	}
	useCount, err := s.usages.CountAppliedByUser(promo.ID, userID)
	if err != nil {
		return decimal.Zero, fmt.Errorf("count usages: %w", err)
	}
	discount, bizErr := Evaluate(promo, order, useCount, time.Now())
	if bizErr != nil {
		return decimal.Zero, bizErr
	}
	return discount, nil
}

// Calculate computes the discount for a bare amount, without an order or a
// user. Per-user and applicability checks are skipped; window, stock and
// minimum-order checks still apply.
func (s *RedemptionService) Calculate(code string, amount, shippingFee decimal.Decimal) (decimal.Decimal, error) {
	promo, err := s.promos.GetByCode(code)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return decimal.Zero, domain.ErrPromoNotFound
		}
		return decimal.Zero, fmt.Errorf("load promotion: %w", err)
	}
	order := &orders.Order{Amount: amount, ShippingFee: shippingFee, FirstTimeUser: true, UserGroup: promo.UserGroup}
	discount, bizErr := Evaluate(promo, order, 0, time.Now())
	if bizErr != nil {
		return decimal.Zero, bizErr
	}
	return discount, nil
}

// AutoApply picks the highest-priority auto-apply promotion eligible for the
// order, if any. Read-only; the caller still reserves explicitly.
func (s *RedemptionService) AutoApply(ctx context.Context, orderID string, userID uint) (*models.Promotion, decimal.Decimal, error) {
	order, err := s.orders.GetOrder(ctx, orderID)
	if err != nil {
		return nil, decimal.Zero, fmt.Errorf("order context: %w", err)
	}
	candidates, err := s.promos.AutoApplyCandidates()
	if err != nil {
		return nil, decimal.Zero, fmt.Errorf("load candidates: %w", err)
	}
	for i := range candidates {
		promo := &candidates[i]
		useCount, err := s.usages.CountAppliedByUser(promo.ID, userID)
		if err != nil {
			return nil, decimal.Zero, fmt.Errorf("count usages: %w", err)
		}
		if discount, bizErr := Evaluate(promo, order, useCount, time.Now()); bizErr == nil {
			return promo, discount, nil
		}
	}
	return nil, decimal.Zero, domain.ErrPromoNotFound
}
