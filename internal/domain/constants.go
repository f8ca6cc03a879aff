package domain

// DiscountKind is how a promotion reduces an order total.
type DiscountKind string

const (
	DiscountPercentage   DiscountKind = "PERCENTAGE"
	DiscountFixedAmount  DiscountKind = "FIXED_AMOUNT"
	DiscountFreeShipping DiscountKind = "FREE_SHIPPING"
)

// UsageStatus tracks one redemption of a promotion code.
type UsageStatus string

const (
	UsageApplied   UsageStatus = "APPLIED"
	UsageCancelled UsageStatus = "CANCELLED"
	UsageRefunded  UsageStatus = "REFUNDED"
)

// Terminal reports whether a usage status can no longer change.
func (s UsageStatus) Terminal() bool {
	return s == UsageCancelled || s == UsageRefunded
}

// PaymentStatus is the lifecycle state of a payment.
type PaymentStatus string

const (
	PaymentPending           PaymentStatus = "PENDING"
	PaymentProcessing        PaymentStatus = "PROCESSING"
	PaymentCompleted         PaymentStatus = "COMPLETED"
	PaymentFailed            PaymentStatus = "FAILED"
	PaymentCancelled         PaymentStatus = "CANCELLED"
	PaymentExpired           PaymentStatus = "EXPIRED"
	PaymentRefunded          PaymentStatus = "REFUNDED"
	PaymentPartiallyRefunded PaymentStatus = "PARTIALLY_REFUNDED"
	PaymentDisputed          PaymentStatus = "DISPUTED"
)

// Cancellable reports whether a payment in this state may still be cancelled.
func (s PaymentStatus) Cancellable() bool {
	return s == PaymentPending || s == PaymentProcessing
}

const (
	TxnTypePayment       = "PAYMENT"
	TxnTypeRefund        = "REFUND"
	TxnTypePartialRefund = "PARTIAL_REFUND"
)

const (
	TxnStatusCompleted = "COMPLETED"
	TxnStatusFailed    = "FAILED"
)

// Normalized webhook event types. Gateway-specific payloads are mapped onto
// these before any business effect is applied.
const (
	EventPaymentCompleted = "payment.completed"
	EventPaymentFailed    = "payment.failed"
	EventPaymentRefunded  = "payment.refunded"
)

const (
	RoleAdmin    = "ADMIN"
	RoleCustomer = "CUSTOMER"
)
