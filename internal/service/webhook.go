package service

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"cartly/internal/domain"
	"cartly/internal/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// GatewayEvent is the normalized shape all gateway callbacks are mapped to.
// Anything beyond these fields is opaque to the core and stays in the raw
// payload.
type GatewayEvent struct {
	EventID      string           `json:"event_id"`
	Type         string           `json:"type"`
	Reference    string           `json:"reference"`
	GatewayTxnID string           `json:"gateway_txn_id"`
	Amount       *decimal.Decimal `json:"amount,omitempty"`
	Reason       string           `json:"reason,omitempty"`
}

// WebhookService normalizes asynchronous gateway callbacks into payment
// transitions. The raw event is always persisted before any processing so a
// failed effect can be retried without re-delivery.
type WebhookService struct {
	webhooks   WebhookStore
	payments   *PaymentService
	audit      AuditWriter
	secrets    map[string]string
	maxRetries int
	backoff    time.Duration
}

// AuditWriter is the subset of the audit repository the webhook pipeline uses.
type AuditWriter interface {
	Create(a *models.AuditLog) error
}

func NewWebhookService(webhooks WebhookStore, payments *PaymentService, audit AuditWriter, secrets map[string]string, maxRetries int, backoff time.Duration) *WebhookService {
	return &WebhookService{
		webhooks:   webhooks,
		payments:   payments,
		audit:      audit,
		secrets:    secrets,
		maxRetries: maxRetries,
		backoff:    backoff,
	}
}

// Ingest persists an inbound callback and attempts to apply it. Duplicate
// deliveries (same gateway + event id) return the already-stored event and
// apply no further effect. The returned error is only for malformed input or
// infrastructure failure; a processing failure is recorded on the event and
// retried later.
func (s *WebhookService) Ingest(ctx context.Context, gatewayName string, payload []byte, signature string) (*models.WebhookEvent, error) {
	var evt GatewayEvent
	if err := json.Unmarshal(payload, &evt); err != nil {
		return nil, &domain.BusinessError{Code: domain.CodeValidation, Message: "malformed webhook payload"}
	}
	if evt.EventID == "" {
		return nil, &domain.BusinessError{Code: domain.CodeValidation, Message: "event id required"}
	}

	if existing, err := s.webhooks.GetByDedupKey(gatewayName, evt.EventID); err == nil {
		return existing, nil
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("dedup lookup: %w", err)
	}

	record := &models.WebhookEvent{
		Gateway:        gatewayName,
		GatewayEventID: evt.EventID,
		EventType:      evt.Type,
		Payload:        string(payload),
		SignatureValid: s.verifySignature(gatewayName, payload, signature),
	}
	if err := s.webhooks.Create(record); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			// Concurrent delivery of the same event; the other copy wins.
			return s.webhooks.GetByDedupKey(gatewayName, evt.EventID)
		}
		return nil, fmt.Errorf("store webhook: %w", err)
	}

	s.attempt(ctx, record)
	return record, nil
}

// Process applies the stored event's business effect. Safe to call again on
// an already-processed event.
func (s *WebhookService) Process(ctx context.Context, e *models.WebhookEvent) error {
	if e.Processed {
		return nil
	}
	if !e.SignatureValid {
		return errors.New("signature verification failed")
	}
	var evt GatewayEvent
	if err := json.Unmarshal([]byte(e.Payload), &evt); err != nil {
		return fmt.Errorf("decode payload: %w", err)
	}
	if evt.Reference == "" {
		return errors.New("payment reference missing")
	}

	var err error
	switch evt.Type {
	case domain.EventPaymentCompleted:
		_, err = s.payments.Confirm(evt.Reference, evt.GatewayTxnID)
	case domain.EventPaymentFailed:
		_, err = s.payments.Fail(evt.Reference, evt.Reason, "")
	case domain.EventPaymentRefunded:
		_, err = s.payments.Refund(ctx, evt.Reference, evt.Amount, "gateway refund")
	default:
		return fmt.Errorf("unsupported event type %q", evt.Type)
	}
	if err != nil {
		if s.alreadySettled(evt) {
			err = nil
		} else {
			return err
		}
	}

	if s.audit != nil {
		_ = s.audit.Create(&models.AuditLog{
			Action:     "webhook_" + evt.Type,
			Resource:   "payment",
			ResourceID: evt.Reference,
			Metadata:   e.Gateway + "/" + e.GatewayEventID,
		})
	}
	return nil
}

// RetryDue reprocesses unprocessed events whose backoff has elapsed. Every
// attempt bumps the retry bookkeeping regardless of outcome; events that
// exhaust their retries stay unprocessed and visible for review.
func (s *WebhookService) RetryDue(ctx context.Context, now time.Time, limit int) (int, error) {
	due, err := s.webhooks.FindDue(s.maxRetries, now.Add(-s.backoff), limit)
	if err != nil {
		return 0, fmt.Errorf("find due webhooks: %w", err)
	}
	processed := 0
	for i := range due {
		if s.attempt(ctx, &due[i]) {
			processed++
		}
	}
	return processed, nil
}

// attempt runs one processing attempt and records its outcome. Returns true
// on success.
func (s *WebhookService) attempt(ctx context.Context, e *models.WebhookEvent) bool {
	now := time.Now()
	err := s.Process(ctx, e)
	msg := ""
	if err != nil {
		msg = err.Error()
		log.Printf("[webhook] event %s/%s attempt failed: %v", e.Gateway, e.GatewayEventID, err)
	}
	if recErr := s.webhooks.RecordAttempt(e.ID, now, msg); recErr != nil {
		log.Printf("[webhook] event %s/%s: record attempt: %v", e.Gateway, e.GatewayEventID, recErr)
	}
	if err != nil {
		return false
	}
	if markErr := s.webhooks.MarkProcessed(e.ID, now); markErr != nil {
		log.Printf("[webhook] event %s/%s: mark processed: %v", e.Gateway, e.GatewayEventID, markErr)
		return false
	}
	e.Processed = true
	return true
}

// alreadySettled reports whether the payment is already in the state the
// event was trying to reach, which makes a duplicate-effect delivery a no-op
// success instead of a state conflict.
func (s *WebhookService) alreadySettled(evt GatewayEvent) bool {
	p, err := s.payments.Get(evt.Reference)
	if err != nil {
		return false
	}
	switch evt.Type {
	case domain.EventPaymentCompleted:
		return p.Status == domain.PaymentCompleted
	case domain.EventPaymentFailed:
		return p.Status == domain.PaymentFailed
	case domain.EventPaymentRefunded:
		return p.Status == domain.PaymentRefunded
	}
	return false
}

func (s *WebhookService) verifySignature(gatewayName string, body []byte, signature string) bool {
	secret := s.secrets[gatewayName]
	if secret == "" {
		// No secret configured for this gateway: verification disabled.
		return true
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(signature), []byte(expected))
}
