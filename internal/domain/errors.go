package domain

import "github.com/shopspring/decimal"

// BusinessError is an expected business failure: the operation was understood
// and rejected by a rule, not by infrastructure. Handlers surface it as a
// structured result (success=false, code, message) instead of a 5xx.
type BusinessError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *BusinessError) Error() string { return e.Code + ": " + e.Message }

// Ineligibility codes, in evaluator precedence order.
const (
	CodeNotFound        = "NOT_FOUND"
	CodeInactive        = "INACTIVE"
	CodeNotStarted      = "NOT_STARTED"
	CodeExpired         = "EXPIRED"
	CodeOutOfStock      = "OUT_OF_STOCK"
	CodeMinOrderNotMet  = "MIN_ORDER_NOT_MET"
	CodeMaxUsesExceeded = "MAX_USES_EXCEEDED"
	CodeNotApplicable   = "NOT_APPLICABLE"
	CodeAlreadyUsed     = "ALREADY_USED"
)

// State-conflict codes (409-equivalent: caller must re-fetch current state).
const (
	CodeInvalidTransition = "INVALID_TRANSITION"
	CodeRefundExceeds     = "REFUND_EXCEEDS_REMAINING"
)

const CodeValidation = "VALIDATION"

var (
	ErrPromoNotFound   = &BusinessError{CodeNotFound, "promotion code not found"}
	ErrPromoInactive   = &BusinessError{CodeInactive, "promotion is not active"}
	ErrPromoNotStarted = &BusinessError{CodeNotStarted, "promotion has not started yet"}
	ErrPromoExpired    = &BusinessError{CodeExpired, "promotion has expired"}
	ErrOutOfStock      = &BusinessError{CodeOutOfStock, "promotion is out of stock"}
	ErrMaxUsesExceeded = &BusinessError{CodeMaxUsesExceeded, "promotion usage limit reached for this user"}
	ErrNotApplicable   = &BusinessError{CodeNotApplicable, "promotion is not applicable to this order"}
	ErrAlreadyUsed     = &BusinessError{CodeAlreadyUsed, "order already has an applied promotion"}

	// ErrConcurrentTransition means another transition committed between the
	// caller's read and its conditional write.
	ErrConcurrentTransition = &BusinessError{CodeInvalidTransition, "payment was modified concurrently; re-fetch current state"}
)

// MinOrderNotMet carries the threshold so the client can show it.
func MinOrderNotMet(min decimal.Decimal) *BusinessError {
	return &BusinessError{CodeMinOrderNotMet, "order amount is below the minimum of " + min.StringFixed(2)}
}

// InvalidTransition reports a payment state-machine violation.
func InvalidTransition(from PaymentStatus, op string) *BusinessError {
	return &BusinessError{CodeInvalidTransition, "cannot " + op + " a payment in status " + string(from)}
}

// RefundExceedsRemaining rejects a refund larger than what is still refundable.
func RefundExceedsRemaining(remaining decimal.Decimal) *BusinessError {
	return &BusinessError{CodeRefundExceeds, "refund exceeds remaining refundable amount " + remaining.StringFixed(2)}
}
