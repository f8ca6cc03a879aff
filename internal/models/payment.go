package models

import (
	"time"

	"cartly/internal/domain"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type Payment struct {
	ID               uint                 `gorm:"primaryKey" json:"id"`
	Reference        string               `gorm:"size:64;uniqueIndex;not null" json:"reference"`
	OrderID          string               `gorm:"size:64;not null;index" json:"order_id"`
	UserID           uint                 `gorm:"not null;index" json:"user_id"`
	Amount           decimal.Decimal      `gorm:"type:decimal(12,2);not null" json:"amount"`
	Currency         string               `gorm:"size:3;default:'USD'" json:"currency"`
	Gateway          string               `gorm:"size:50;not null" json:"gateway"`
	GatewayRef       string               `gorm:"size:255;index" json:"gateway_ref"`
	Status           domain.PaymentStatus `gorm:"size:20;not null;index" json:"status"`
	RefundableAmount decimal.Decimal      `gorm:"type:decimal(12,2);not null" json:"refundable_amount"`
	RefundedAmount   decimal.Decimal      `gorm:"type:decimal(12,2);default:0" json:"refunded_amount"`

	// Discount linkage: a weak reference to the promotion subsystem. The
	// original amount is kept so a detach can restore it.
	OriginalAmount *decimal.Decimal `gorm:"type:decimal(12,2)" json:"original_amount,omitempty"`
	PromotionID    *uint            `gorm:"index" json:"promotion_id,omitempty"`
	PromotionCode  string           `gorm:"size:64" json:"promotion_code,omitempty"`
	UsageID        *uint            `json:"usage_id,omitempty"`

	ExpiresAt   *time.Time     `json:"expires_at"`
	CompletedAt *time.Time     `json:"completed_at"`
	FailedAt    *time.Time     `json:"failed_at"`
	CancelledAt *time.Time     `json:"cancelled_at"`
	RefundedAt  *time.Time     `json:"refunded_at"`
	FailReason  string         `gorm:"size:255" json:"fail_reason,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`
}

func (Payment) TableName() string {
	return "payments"
}

// DiscountAmount is the applied discount, zero when no promotion is attached.
func (p *Payment) DiscountAmount() decimal.Decimal {
	if p.OriginalAmount == nil {
		return decimal.Zero
	}
	return p.OriginalAmount.Sub(p.Amount)
}
