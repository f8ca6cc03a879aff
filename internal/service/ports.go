package service

import (
	"time"

	"cartly/internal/domain"
	"cartly/internal/models"

	"github.com/shopspring/decimal"
)

// Store interfaces implemented by internal/repository; tests substitute
// in-memory fakes.

type PromotionStore interface {
	GetByID(id uint) (*models.Promotion, error)
	GetByCode(code string) (*models.Promotion, error)
	AutoApplyCandidates() ([]models.Promotion, error)
	ReserveStock(id uint) (bool, error)
	ReleaseStock(id uint) error
}

type UsageStore interface {
	Create(u *models.PromotionUsage) error
	GetByID(id uint) (*models.PromotionUsage, error)
	GetActiveByOrderID(orderID string) (*models.PromotionUsage, error)
	CountAppliedByUser(promotionID, userID uint) (int64, error)
	MarkTerminal(id uint, status domain.UsageStatus, at time.Time) (bool, error)
}

type PaymentStore interface {
	Create(p *models.Payment) error
	GetByReference(ref string) (*models.Payment, error)
	UpdateFromStatus(p *models.Payment, expect domain.PaymentStatus) (bool, error)
	UpdateFromRefundState(p *models.Payment, expectStatus domain.PaymentStatus, expectRefunded decimal.Decimal) (bool, error)
	FindExpiredPending(now time.Time, limit int) ([]models.Payment, error)
}

type TransactionStore interface {
	Create(t *models.PaymentTransaction) error
	ListByPayment(paymentID uint) ([]models.PaymentTransaction, error)
}

type WebhookStore interface {
	Create(e *models.WebhookEvent) error
	GetByID(id uint) (*models.WebhookEvent, error)
	GetByDedupKey(gateway, eventID string) (*models.WebhookEvent, error)
	MarkProcessed(id uint, at time.Time) error
	RecordAttempt(id uint, at time.Time, errMsg string) error
	FindDue(maxRetries int, before time.Time, limit int) ([]models.WebhookEvent, error)
}

// RedemptionReleaser is the slice of the redemption ledger the payment state
// machine needs: returning stock when a discounted payment dies.
type RedemptionReleaser interface {
	Release(usageID uint, status domain.UsageStatus) error
}
