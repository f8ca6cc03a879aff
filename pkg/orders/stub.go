package orders

import (
	"context"
	"errors"
	"sync"
)

var ErrOrderNotFound = errors.New("order not found")

// StaticProvider serves orders from memory; used in development and tests
// when no order service is configured.
type StaticProvider struct {
	mu     sync.RWMutex
	orders map[string]*Order
}

func NewStaticProvider() *StaticProvider {
	return &StaticProvider{orders: make(map[string]*Order)}
}

func (p *StaticProvider) Put(o *Order) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.orders[o.ID] = o
}

func (p *StaticProvider) GetOrder(ctx context.Context, orderID string) (*Order, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	o, ok := p.orders[orderID]
	if !ok {
		return nil, ErrOrderNotFound
	}
	return o, nil
}
