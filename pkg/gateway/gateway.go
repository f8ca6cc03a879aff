package gateway

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

type InitiateRequest struct {
	Reference string
	OrderID   string
	UserID    uint
	Amount    decimal.Decimal
	Currency  string
	ExpiresIn time.Duration
}

type InitiateResponse struct {
	GatewayRef  string
	CheckoutURL string
}

type RefundRequest struct {
	GatewayRef string
	Amount     decimal.Decimal
	Currency   string
	Reason     string
}

// Provider is the outbound side of a payment gateway. The inbound side
// (asynchronous callbacks) arrives through the webhook intake.
type Provider interface {
	InitiatePayment(ctx context.Context, req InitiateRequest) (*InitiateResponse, error)
	// RefundPayment returns the gateway's transaction id for the refund.
	RefundPayment(ctx context.Context, req RefundRequest) (string, error)
}
