package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"cartly/internal/domain"
	"cartly/internal/models"
	"cartly/pkg/gateway"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// PaymentService owns the payment lifecycle. Every transition re-validates
// the current status and commits through a conditional update keyed on the
// status that was read, so no two transitions on the same payment can both
// commit. Refund commits additionally key on the refunded amount, because a
// partial refund can leave the status unchanged.
type PaymentService struct {
	payments    PaymentStore
	txns        TransactionStore
	redemptions RedemptionReleaser
	gw          gateway.Provider
	pendingTTL  time.Duration
}

func NewPaymentService(payments PaymentStore, txns TransactionStore, redemptions RedemptionReleaser, gw gateway.Provider, pendingTTL time.Duration) *PaymentService {
	return &PaymentService{
		payments:    payments,
		txns:        txns,
		redemptions: redemptions,
		gw:          gw,
		pendingTTL:  pendingTTL,
	}
}

// Create opens a PENDING payment and initiates the gateway charge. A reserved
// redemption, when given, is applied before the gateway round trip, so the
// gateway charges the discounted amount. Returns the payment and the gateway
// checkout URL, when the gateway provides one.
func (s *PaymentService) Create(ctx context.Context, orderID string, userID uint, amount decimal.Decimal, currency, gatewayName string, usage *models.PromotionUsage) (*models.Payment, string, error) {
	ref := uuid.NewString()
	charge := amount
	if usage != nil {
		charge = amount.Sub(usage.DiscountAmount)
		if charge.IsNegative() {
			charge = decimal.Zero
		}
	}
	resp, err := s.gw.InitiatePayment(ctx, gateway.InitiateRequest{
		Reference: ref,
		OrderID:   orderID,
		UserID:    userID,
		Amount:    charge,
		Currency:  currency,
		ExpiresIn: s.pendingTTL,
	})
	if err != nil {
		return nil, "", fmt.Errorf("initiate payment: %w", err)
	}
	expiresAt := time.Now().Add(s.pendingTTL)
	p := &models.Payment{
		Reference:        ref,
		OrderID:          orderID,
		UserID:           userID,
		Amount:           charge,
		Currency:         currency,
		Gateway:          gatewayName,
		GatewayRef:       resp.GatewayRef,
		Status:           domain.PaymentPending,
		RefundableAmount: charge,
		RefundedAmount:   decimal.Zero,
		ExpiresAt:        &expiresAt,
	}
	if usage != nil {
		orig := amount
		p.OriginalAmount = &orig
		p.PromotionID = &usage.PromotionID
		p.PromotionCode = usage.PromotionCode
		p.UsageID = &usage.ID
	}
	if err := s.payments.Create(p); err != nil {
		return nil, "", fmt.Errorf("create payment: %w", err)
	}
	return p, resp.CheckoutURL, nil
}

func (s *PaymentService) Get(ref string) (*models.Payment, error) {
	p, err := s.payments.GetByReference(ref)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &domain.BusinessError{Code: domain.CodeNotFound, Message: "payment not found"}
		}
		return nil, fmt.Errorf("load payment: %w", err)
	}
	return p, nil
}

func (s *PaymentService) Transactions(paymentID uint) ([]models.PaymentTransaction, error) {
	return s.txns.ListByPayment(paymentID)
}

// AttachDiscount applies a reserved redemption to a PENDING payment, keeping
// the original amount so a detach can restore it.
func (s *PaymentService) AttachDiscount(ref string, usage *models.PromotionUsage) (*models.Payment, error) {
	p, err := s.Get(ref)
	if err != nil {
		return nil, err
	}
	if p.Status != domain.PaymentPending || s.expired(p, time.Now()) {
		return nil, domain.InvalidTransition(s.effectiveStatus(p), "attach a discount to")
	}
	if p.UsageID != nil {
		return nil, &domain.BusinessError{Code: domain.CodeInvalidTransition, Message: "payment already carries a discount"}
	}
	orig := p.Amount
	discounted := orig.Sub(usage.DiscountAmount)
	if discounted.IsNegative() {
		discounted = decimal.Zero
	}
	p.OriginalAmount = &orig
	p.Amount = discounted
	p.RefundableAmount = discounted
	p.PromotionID = &usage.PromotionID
	p.PromotionCode = usage.PromotionCode
	p.UsageID = &usage.ID
	if err := s.commit(p, domain.PaymentPending); err != nil {
		return nil, err
	}
	return p, nil
}

// DetachDiscount restores the original amount and releases the redemption so
// the promotion's stock is returned.
func (s *PaymentService) DetachDiscount(ref string) (*models.Payment, error) {
	p, err := s.Get(ref)
	if err != nil {
		return nil, err
	}
	if p.Status != domain.PaymentPending {
		return nil, domain.InvalidTransition(p.Status, "detach a discount from")
	}
	if p.UsageID == nil || p.OriginalAmount == nil {
		return nil, &domain.BusinessError{Code: domain.CodeInvalidTransition, Message: "payment has no discount attached"}
	}
	usageID := *p.UsageID
	p.Amount = *p.OriginalAmount
	p.RefundableAmount = p.Amount
	p.OriginalAmount = nil
	p.PromotionID = nil
	p.PromotionCode = ""
	p.UsageID = nil
	if err := s.commit(p, domain.PaymentPending); err != nil {
		return nil, err
	}
	if err := s.redemptions.Release(usageID, domain.UsageCancelled); err != nil {
		return nil, fmt.Errorf("release redemption: %w", err)
	}
	return p, nil
}

// BeginProcessing moves a PENDING payment into PROCESSING, e.g. when the
// gateway acknowledges the charge attempt.
func (s *PaymentService) BeginProcessing(ref string) (*models.Payment, error) {
	p, err := s.Get(ref)
	if err != nil {
		return nil, err
	}
	if p.Status != domain.PaymentPending || s.expired(p, time.Now()) {
		return nil, domain.InvalidTransition(s.effectiveStatus(p), "process")
	}
	p.Status = domain.PaymentProcessing
	if err := s.commit(p, domain.PaymentPending); err != nil {
		return nil, err
	}
	return p, nil
}

// Confirm completes a payment. A PENDING payment past its expiry is rejected
// even if the sweep has not run yet; expiry wins over a late confirm.
func (s *PaymentService) Confirm(ref, gatewayTxnID string) (*models.Payment, error) {
	p, err := s.Get(ref)
	if err != nil {
		return nil, err
	}
	prev := p.Status
	if prev != domain.PaymentPending && prev != domain.PaymentProcessing {
		return nil, domain.InvalidTransition(prev, "confirm")
	}
	if prev == domain.PaymentPending && s.expired(p, time.Now()) {
		return nil, domain.InvalidTransition(domain.PaymentExpired, "confirm")
	}
	now := time.Now()
	p.Status = domain.PaymentCompleted
	p.CompletedAt = &now
	if gatewayTxnID != "" {
		p.GatewayRef = gatewayTxnID
	}
	if err := s.commit(p, prev); err != nil {
		return nil, err
	}
	txn := &models.PaymentTransaction{
		PaymentID:    p.ID,
		Type:         domain.TxnTypePayment,
		Amount:       p.Amount,
		Currency:     p.Currency,
		Status:       domain.TxnStatusCompleted,
		GatewayTxnID: gatewayTxnID,
	}
	if err := s.txns.Create(txn); err != nil {
		return nil, fmt.Errorf("append transaction: %w", err)
	}
	return p, nil
}

// Fail marks a payment FAILED. Refund fields are untouched and any attached
// redemption stays reserved until an explicit cancel.
func (s *PaymentService) Fail(ref, reason, errorCode string) (*models.Payment, error) {
	p, err := s.Get(ref)
	if err != nil {
		return nil, err
	}
	prev := p.Status
	if prev != domain.PaymentPending && prev != domain.PaymentProcessing {
		return nil, domain.InvalidTransition(prev, "fail")
	}
	now := time.Now()
	p.Status = domain.PaymentFailed
	p.FailedAt = &now
	p.FailReason = reason
	if errorCode != "" {
		p.FailReason = errorCode + ": " + reason
	}
	if err := s.commit(p, prev); err != nil {
		return nil, err
	}
	return p, nil
}

// Cancel aborts a PENDING or PROCESSING payment and releases any attached
// redemption.
func (s *PaymentService) Cancel(ref, reason string) (*models.Payment, error) {
	p, err := s.Get(ref)
	if err != nil {
		return nil, err
	}
	prev := p.Status
	if !prev.Cancellable() {
		return nil, domain.InvalidTransition(prev, "cancel")
	}
	now := time.Now()
	p.Status = domain.PaymentCancelled
	p.CancelledAt = &now
	p.FailReason = reason
	if err := s.commit(p, prev); err != nil {
		return nil, err
	}
	if p.UsageID != nil {
		if err := s.redemptions.Release(*p.UsageID, domain.UsageCancelled); err != nil {
			return nil, fmt.Errorf("release redemption: %w", err)
		}
	}
	return p, nil
}

// Expire moves a PENDING payment past its deadline to EXPIRED. Driven by the
// periodic sweep; re-running on an already-expired payment is a no-op.
func (s *PaymentService) Expire(ref string) (*models.Payment, error) {
	p, err := s.Get(ref)
	if err != nil {
		return nil, err
	}
	if p.Status != domain.PaymentPending {
		return p, nil
	}
	if !s.expired(p, time.Now()) {
		return nil, domain.InvalidTransition(p.Status, "expire")
	}
	p.Status = domain.PaymentExpired
	if err := s.commit(p, domain.PaymentPending); err != nil {
		return nil, err
	}
	if p.UsageID != nil {
		if err := s.redemptions.Release(*p.UsageID, domain.UsageCancelled); err != nil {
			return nil, fmt.Errorf("release redemption: %w", err)
		}
	}
	return p, nil
}

// FindExpiredPending exposes sweep candidates to the expiry worker.
func (s *PaymentService) FindExpiredPending(now time.Time, limit int) ([]models.Payment, error) {
	return s.payments.FindExpiredPending(now, limit)
}

// Refund refunds some or all of a completed payment. A nil amount means the
// full remaining refundable balance. The refund that exhausts the balance
// flips the status to REFUNDED and releases any attached redemption.
func (s *PaymentService) Refund(ctx context.Context, ref string, amount *decimal.Decimal, reason string) (*models.Payment, error) {
	p, err := s.Get(ref)
	if err != nil {
		return nil, err
	}
	prev := p.Status
	if prev != domain.PaymentCompleted && prev != domain.PaymentPartiallyRefunded {
		return nil, domain.InvalidTransition(prev, "refund")
	}
	remaining := p.RefundableAmount.Sub(p.RefundedAmount)
	if !remaining.IsPositive() {
		return nil, domain.RefundExceedsRemaining(remaining)
	}
	amt := remaining
	if amount != nil {
		amt = *amount
	}
	if !amt.IsPositive() || amt.GreaterThan(remaining) {
		return nil, domain.RefundExceedsRemaining(remaining)
	}

	// Reserve the balance before touching the gateway. The commit is keyed on
	// both the status and the refunded amount that were read: two refunds
	// racing from the same PARTIALLY_REFUNDED state leave the status unchanged,
	// so status alone would let both commit and one refund's accounting would
	// vanish while the gateway moved both amounts.
	prevRefunded := p.RefundedAmount
	prevRefundedAt := p.RefundedAt
	now := time.Now()
	p.RefundedAmount = p.RefundedAmount.Add(amt)
	full := p.RefundedAmount.Equal(p.RefundableAmount)
	if full {
		p.Status = domain.PaymentRefunded
		p.RefundedAt = &now
	} else {
		p.Status = domain.PaymentPartiallyRefunded
	}
	if err := s.commitRefund(p, prev, prevRefunded); err != nil {
		return nil, err
	}

	gatewayTxnID, err := s.gw.RefundPayment(ctx, gateway.RefundRequest{
		GatewayRef: p.GatewayRef,
		Amount:     amt,
		Currency:   p.Currency,
		Reason:     reason,
	})
	if err != nil {
		// Give the reserved balance back; no money moved.
		reservedStatus := p.Status
		reservedRefunded := p.RefundedAmount
		p.Status = prev
		p.RefundedAmount = prevRefunded
		p.RefundedAt = prevRefundedAt
		if revertErr := s.commitRefund(p, reservedStatus, reservedRefunded); revertErr != nil {
			log.Printf("[payment] %s: revert refund reservation: %v", p.Reference, revertErr)
		}
		return nil, fmt.Errorf("gateway refund: %w", err)
	}

	txnType := domain.TxnTypePartialRefund
	if full {
		txnType = domain.TxnTypeRefund
	}
	txn := &models.PaymentTransaction{
		PaymentID:    p.ID,
		ParentID:     s.paymentTxnID(p.ID),
		Type:         txnType,
		Amount:       amt,
		Currency:     p.Currency,
		Status:       domain.TxnStatusCompleted,
		GatewayTxnID: gatewayTxnID,
		Reason:       reason,
	}
	if err := s.txns.Create(txn); err != nil {
		return nil, fmt.Errorf("append transaction: %w", err)
	}

	if full && p.UsageID != nil {
		if err := s.redemptions.Release(*p.UsageID, domain.UsageRefunded); err != nil {
			return nil, fmt.Errorf("release redemption: %w", err)
		}
	}
	return p, nil
}

// paymentTxnID finds the originating PAYMENT ledger entry so refund rows can
// point at it.
func (s *PaymentService) paymentTxnID(paymentID uint) *uint {
	txns, err := s.txns.ListByPayment(paymentID)
	if err != nil {
		return nil
	}
	for i := range txns {
		if txns[i].Type == domain.TxnTypePayment {
			return &txns[i].ID
		}
	}
	return nil
}

func (s *PaymentService) expired(p *models.Payment, now time.Time) bool {
	return p.ExpiresAt != nil && now.After(*p.ExpiresAt)
}

// effectiveStatus reports EXPIRED for a pending payment past its deadline
// even before the sweep has persisted the transition.
func (s *PaymentService) effectiveStatus(p *models.Payment) domain.PaymentStatus {
	if p.Status == domain.PaymentPending && s.expired(p, time.Now()) {
		return domain.PaymentExpired
	}
	return p.Status
}

func (s *PaymentService) commit(p *models.Payment, expect domain.PaymentStatus) error {
	ok, err := s.payments.UpdateFromStatus(p, expect)
	if err != nil {
		return fmt.Errorf("save payment: %w", err)
	}
	if !ok {
		return domain.ErrConcurrentTransition
	}
	return nil
}

// commitRefund commits only if neither the status nor the refund accounting
// moved since the read.
func (s *PaymentService) commitRefund(p *models.Payment, expectStatus domain.PaymentStatus, expectRefunded decimal.Decimal) error {
	ok, err := s.payments.UpdateFromRefundState(p, expectStatus, expectRefunded)
	if err != nil {
		return fmt.Errorf("save payment: %w", err)
	}
	if !ok {
		return domain.ErrConcurrentTransition
	}
	return nil
}
