package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// PaymentTransaction is an append-only ledger entry under a payment: one row
// per payment attempt, refund, or partial refund. Refund rows point back to
// the payment transaction via ParentID, never to each other.
type PaymentTransaction struct {
	ID           uint            `gorm:"primaryKey" json:"id"`
	PaymentID    uint            `gorm:"not null;index" json:"payment_id"`
	ParentID     *uint           `gorm:"index" json:"parent_id,omitempty"`
	Type         string          `gorm:"size:20;not null;index" json:"type"` // PAYMENT, REFUND, PARTIAL_REFUND
	Amount       decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"amount"`
	Currency     string          `gorm:"size:3;not null" json:"currency"`
	Status       string          `gorm:"size:20;not null" json:"status"`
	GatewayTxnID string          `gorm:"size:255;index" json:"gateway_txn_id"`
	Reason       string          `gorm:"size:255" json:"reason,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`

	Payment Payment `gorm:"foreignKey:PaymentID" json:"-"`
}

func (PaymentTransaction) TableName() string {
	return "payment_transactions"
}
