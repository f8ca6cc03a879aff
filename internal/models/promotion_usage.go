package models

import (
	"time"

	"cartly/internal/domain"

	"github.com/shopspring/decimal"
)

// PromotionUsage is one successful redemption of a promotion code against one
// order. The code is snapshotted so the audit trail survives later edits to
// the promotion. ActiveOrderID mirrors OrderID while status=APPLIED and is
// cleared on a terminal transition; the unique index on it is what guarantees
// at most one active redemption per order.
type PromotionUsage struct {
	ID             uint               `gorm:"primaryKey" json:"id"`
	PromotionID    uint               `gorm:"not null;index" json:"promotion_id"`
	PromotionCode  string             `gorm:"size:64;not null;index" json:"promotion_code"`
	UserID         uint               `gorm:"not null;index" json:"user_id"`
	OrderID        string             `gorm:"size:64;not null;index" json:"order_id"`
	ActiveOrderID  *string            `gorm:"size:64;uniqueIndex" json:"-"`
	OrderAmount    decimal.Decimal    `gorm:"type:decimal(12,2);not null" json:"order_amount"`
	DiscountAmount decimal.Decimal    `gorm:"type:decimal(12,2);not null" json:"discount_amount"`
	FinalAmount    decimal.Decimal    `gorm:"type:decimal(12,2);not null" json:"final_amount"`
	Status         domain.UsageStatus `gorm:"size:20;not null;index" json:"status"`
	IP             string             `gorm:"size:45" json:"ip"`
	UserAgent      string             `gorm:"size:512" json:"user_agent"`
	AppliedAt      time.Time          `json:"applied_at"`
	CancelledAt    *time.Time         `json:"cancelled_at"`
	RefundedAt     *time.Time         `json:"refunded_at"`
	CreatedAt      time.Time          `json:"created_at"`
	UpdatedAt      time.Time          `json:"updated_at"`

	Promotion Promotion `gorm:"foreignKey:PromotionID" json:"-"`
}

func (PromotionUsage) TableName() string {
	return "promotion_usages"
}
