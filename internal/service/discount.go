package service

import (
	"time"

	"cartly/internal/domain"
	"cartly/internal/models"
	"cartly/pkg/orders"

	"github.com/shopspring/decimal"
)

var oneHundred = decimal.NewFromInt(100)

// Evaluate decides whether a promotion can be applied to an order and
// computes the discount. Pure: no I/O, safe to call for both the validate
// and the apply flow. Checks run in a fixed order and short-circuit so that
// the reported reason is deterministic.
//
// userUseCount is the caller-supplied number of APPLIED redemptions this
// user already holds on the promotion.
func Evaluate(p *models.Promotion, order *orders.Order, userUseCount int64, now time.Time) (decimal.Decimal, *domain.BusinessError) {
	if p == nil {
		return decimal.Zero, domain.ErrPromoNotFound
	}
	if !p.Active {
		return decimal.Zero, domain.ErrPromoInactive
	}
	if now.Before(p.StartsAt) {
		return decimal.Zero, domain.ErrPromoNotStarted
	}
	if now.After(p.EndsAt) {
		return decimal.Zero, domain.ErrPromoExpired
	}
	if p.Stock <= 0 {
		return decimal.Zero, domain.ErrOutOfStock
	}
	if order.Amount.LessThan(p.MinOrderAmount) {
		return decimal.Zero, domain.MinOrderNotMet(p.MinOrderAmount)
	}
	if p.MaxUsesPerUser > 0 && userUseCount >= int64(p.MaxUsesPerUser) {
		return decimal.Zero, domain.ErrMaxUsesExceeded
	}
	if p.FirstTimeOnly && !order.FirstTimeUser {
		return decimal.Zero, domain.ErrNotApplicable
	}
	if p.UserGroup != "" && p.UserGroup != order.UserGroup {
		return decimal.Zero, domain.ErrNotApplicable
	}
	if !appliesTo(p, order) {
		return decimal.Zero, domain.ErrNotApplicable
	}
	discount := ComputeDiscount(p, order)
	if !discount.IsPositive() {
		return decimal.Zero, domain.ErrNotApplicable
	}
	return discount, nil
}

// ComputeDiscount returns the raw discount for an order, rounded half-up to
// currency minor units. It does not check eligibility.
func ComputeDiscount(p *models.Promotion, order *orders.Order) decimal.Decimal {
	var d decimal.Decimal
	switch p.Kind {
	case domain.DiscountPercentage:
		d = order.Amount.Mul(p.Percent).Div(oneHundred)
		if p.MaxDiscount.IsPositive() && d.GreaterThan(p.MaxDiscount) {
			d = p.MaxDiscount
		}
	case domain.DiscountFixedAmount:
		d = p.DiscountAmount
		if d.GreaterThan(order.Amount) {
			d = order.Amount
		}
	case domain.DiscountFreeShipping:
		d = order.ShippingFee
	}
	return d.Round(2)
}

// appliesTo enforces the product/category/brand applicability sets. An empty
// set imposes no constraint.
func appliesTo(p *models.Promotion, order *orders.Order) bool {
	if ids := models.IDList(p.ApplicableProducts); len(ids) > 0 && !intersects(ids, order.ProductIDs) {
		return false
	}
	if ids := models.IDList(p.ApplicableCategories); len(ids) > 0 && !intersects(ids, order.CategoryIDs) {
		return false
	}
	if ids := models.IDList(p.ExcludedCategories); intersects(ids, order.CategoryIDs) {
		return false
	}
	if ids := models.IDList(p.ApplicableBrands); len(ids) > 0 && !intersects(ids, order.BrandIDs) {
		return false
	}
	if ids := models.IDList(p.ExcludedBrands); intersects(ids, order.BrandIDs) {
		return false
	}
	return true
}

func intersects(a, b []uint) bool {
	if len(a) == 0 || len(b) == 0 {
		return false
	}
	set := make(map[uint]struct{}, len(a))
	for _, id := range a {
		set[id] = struct{}{}
	}
	for _, id := range b {
		if _, ok := set[id]; ok {
			return true
		}
	}
	return false
}
