package gateway

import (
	"context"
	"fmt"
	"time"
)

// StubProvider is a no-op provider for development; replace with Stripe/M-Pesa etc.
type StubProvider struct{}

func (s *StubProvider) InitiatePayment(ctx context.Context, req InitiateRequest) (*InitiateResponse, error) {
	return &InitiateResponse{
		GatewayRef:  fmt.Sprintf("stub_%d_%s", time.Now().UnixNano(), req.Reference),
		CheckoutURL: "",
	}, nil
}

func (s *StubProvider) RefundPayment(ctx context.Context, req RefundRequest) (string, error) {
	return fmt.Sprintf("stub_refund_%d", time.Now().UnixNano()), nil
}
