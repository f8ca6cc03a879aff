package orders

import (
	"context"

	"github.com/shopspring/decimal"
)

// Order is the context the order service exposes for eligibility checks.
type Order struct {
	ID            string          `json:"id"`
	UserID        uint            `json:"user_id"`
	Amount        decimal.Decimal `json:"amount"`
	ShippingFee   decimal.Decimal `json:"shipping_fee"`
	Currency      string          `json:"currency"`
	ProductIDs    []uint          `json:"product_ids"`
	CategoryIDs   []uint          `json:"category_ids"`
	BrandIDs      []uint          `json:"brand_ids"`
	UserGroup     string          `json:"user_group"`
	FirstTimeUser bool            `json:"first_time_user"`
}

type Provider interface {
	GetOrder(ctx context.Context, orderID string) (*Order, error)
}
