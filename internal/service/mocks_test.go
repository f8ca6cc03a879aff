package service

import (
	"strings"
	"sync"
	"time"

	"cartly/internal/domain"
	"cartly/internal/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// In-memory store fakes. They uphold the same guarantees as the SQL
// repositories: conditional stock updates, status-gated transitions and the
// unique active-order constraint, all under a mutex so concurrency tests are
// meaningful.

type memPromotionStore struct {
	mu     sync.Mutex
	promos map[uint]*models.Promotion
	nextID uint
}

func newMemPromotionStore() *memPromotionStore {
	return &memPromotionStore{promos: make(map[uint]*models.Promotion), nextID: 1}
}

func (s *memPromotionStore) add(p *models.Promotion) *models.Promotion {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p.ID == 0 {
		p.ID = s.nextID
		s.nextID++
	}
	cp := *p
	s.promos[p.ID] = &cp
	return p
}

func (s *memPromotionStore) GetByID(id uint) (*models.Promotion, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.promos[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *p
	return &cp, nil
}

func (s *memPromotionStore) GetByCode(code string) (*models.Promotion, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	code = strings.ToLower(strings.TrimSpace(code))
	for _, p := range s.promos {
		if p.Code == code {
			cp := *p
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *memPromotionStore) AutoApplyCandidates() ([]models.Promotion, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Promotion
	for _, p := range s.promos {
		if p.Active && p.AutoApply && p.Stock > 0 {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (s *memPromotionStore) ReserveStock(id uint) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.promos[id]
	if !ok || p.Stock <= 0 {
		return false, nil
	}
	p.Stock--
	p.UsedCount++
	return true, nil
}

func (s *memPromotionStore) ReleaseStock(id uint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.promos[id]
	if !ok || p.UsedCount <= 0 {
		return nil
	}
	p.Stock++
	p.UsedCount--
	return nil
}

type memUsageStore struct {
	mu         sync.Mutex
	usages     map[uint]*models.PromotionUsage
	nextID     uint
	failCreate error // injected create failure
}

func newMemUsageStore() *memUsageStore {
	return &memUsageStore{usages: make(map[uint]*models.PromotionUsage), nextID: 1}
}

func (s *memUsageStore) Create(u *models.PromotionUsage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failCreate != nil {
		return s.failCreate
	}
	if u.ActiveOrderID != nil {
		for _, other := range s.usages {
			if other.ActiveOrderID != nil && *other.ActiveOrderID == *u.ActiveOrderID {
				return gorm.ErrDuplicatedKey
			}
		}
	}
	u.ID = s.nextID
	s.nextID++
	cp := *u
	s.usages[u.ID] = &cp
	return nil
}

func (s *memUsageStore) GetByID(id uint) (*models.PromotionUsage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.usages[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *u
	return &cp, nil
}

func (s *memUsageStore) GetActiveByOrderID(orderID string) (*models.PromotionUsage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.usages {
		if u.ActiveOrderID != nil && *u.ActiveOrderID == orderID {
			cp := *u
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *memUsageStore) CountAppliedByUser(promotionID, userID uint) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var c int64
	for _, u := range s.usages {
		if u.PromotionID == promotionID && u.UserID == userID && u.Status == domain.UsageApplied {
			c++
		}
	}
	return c, nil
}

func (s *memUsageStore) MarkTerminal(id uint, status domain.UsageStatus, at time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.usages[id]
	if !ok || u.Status != domain.UsageApplied {
		return false, nil
	}
	u.Status = status
	u.ActiveOrderID = nil
	switch status {
	case domain.UsageCancelled:
		u.CancelledAt = &at
	case domain.UsageRefunded:
		u.RefundedAt = &at
	}
	return true, nil
}

type memPaymentStore struct {
	mu       sync.Mutex
	payments map[string]*models.Payment
	nextID   uint
}

func newMemPaymentStore() *memPaymentStore {
	return &memPaymentStore{payments: make(map[string]*models.Payment), nextID: 1}
}

func (s *memPaymentStore) Create(p *models.Payment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.payments[p.Reference]; exists {
		return gorm.ErrDuplicatedKey
	}
	p.ID = s.nextID
	s.nextID++
	cp := *p
	s.payments[p.Reference] = &cp
	return nil
}

func (s *memPaymentStore) GetByReference(ref string) (*models.Payment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.payments[ref]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *p
	return &cp, nil
}

func (s *memPaymentStore) UpdateFromStatus(p *models.Payment, expect domain.PaymentStatus) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.payments[p.Reference]
	if !ok || stored.Status != expect {
		return false, nil
	}
	cp := *p
	s.payments[p.Reference] = &cp
	return true, nil
}

func (s *memPaymentStore) UpdateFromRefundState(p *models.Payment, expectStatus domain.PaymentStatus, expectRefunded decimal.Decimal) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.payments[p.Reference]
	if !ok || stored.Status != expectStatus || !stored.RefundedAmount.Equal(expectRefunded) {
		return false, nil
	}
	cp := *p
	s.payments[p.Reference] = &cp
	return true, nil
}

func (s *memPaymentStore) FindExpiredPending(now time.Time, limit int) ([]models.Payment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Payment
	for _, p := range s.payments {
		if p.Status == domain.PaymentPending && p.ExpiresAt != nil && p.ExpiresAt.Before(now) {
			out = append(out, *p)
			if len(out) == limit {
				break
			}
		}
	}
	return out, nil
}

type memTransactionStore struct {
	mu     sync.Mutex
	txns   []models.PaymentTransaction
	nextID uint
}

func newMemTransactionStore() *memTransactionStore {
	return &memTransactionStore{nextID: 1}
}

func (s *memTransactionStore) Create(t *models.PaymentTransaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t.ID = s.nextID
	s.nextID++
	s.txns = append(s.txns, *t)
	return nil
}

func (s *memTransactionStore) ListByPayment(paymentID uint) ([]models.PaymentTransaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.PaymentTransaction
	for _, t := range s.txns {
		if t.PaymentID == paymentID {
			out = append(out, t)
		}
	}
	return out, nil
}

type memWebhookStore struct {
	mu     sync.Mutex
	events map[uint]*models.WebhookEvent
	nextID uint
}

func newMemWebhookStore() *memWebhookStore {
	return &memWebhookStore{events: make(map[uint]*models.WebhookEvent), nextID: 1}
}

func (s *memWebhookStore) Create(e *models.WebhookEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, other := range s.events {
		if other.Gateway == e.Gateway && other.GatewayEventID == e.GatewayEventID {
			return gorm.ErrDuplicatedKey
		}
	}
	e.ID = s.nextID
	s.nextID++
	cp := *e
	s.events[e.ID] = &cp
	return nil
}

func (s *memWebhookStore) GetByID(id uint) (*models.WebhookEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.events[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *e
	return &cp, nil
}

func (s *memWebhookStore) GetByDedupKey(gateway, eventID string) (*models.WebhookEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.events {
		if e.Gateway == gateway && e.GatewayEventID == eventID {
			cp := *e
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *memWebhookStore) MarkProcessed(id uint, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.events[id]; ok {
		e.Processed = true
		e.ProcessedAt = &at
		e.ErrorMessage = ""
	}
	return nil
}

func (s *memWebhookStore) RecordAttempt(id uint, at time.Time, errMsg string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.events[id]; ok {
		e.RetryCount++
		e.LastRetryAt = &at
		e.ErrorMessage = errMsg
	}
	return nil
}

func (s *memWebhookStore) FindDue(maxRetries int, before time.Time, limit int) ([]models.WebhookEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.WebhookEvent
	for _, e := range s.events {
		if !e.Processed && e.RetryCount < maxRetries && (e.LastRetryAt == nil || e.LastRetryAt.Before(before)) {
			out = append(out, *e)
			if len(out) == limit {
				break
			}
		}
	}
	return out, nil
}
