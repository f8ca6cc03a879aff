package service

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sync"
	"testing"
	"time"

	"cartly/internal/domain"
	"cartly/internal/models"
	"cartly/pkg/gateway"
	"cartly/pkg/orders"
)

type memAuditWriter struct {
	mu   sync.Mutex
	logs []models.AuditLog
}

func (w *memAuditWriter) Create(a *models.AuditLog) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.logs = append(w.logs, *a)
	return nil
}

type webhookFixture struct {
	webhooks *WebhookService
	payments *PaymentService
	store    *memWebhookStore
	audit    *memAuditWriter
	txns     *memTransactionStore
}

func newWebhookFixture(t *testing.T, secrets map[string]string) *webhookFixture {
	t.Helper()
	promos := newMemPromotionStore()
	usages := newMemUsageStore()
	redemptions := NewRedemptionService(promos, usages, orders.NewStaticProvider())
	payStore := newMemPaymentStore()
	txns := newMemTransactionStore()
	payments := NewPaymentService(payStore, txns, redemptions, &gateway.StubProvider{}, 15*time.Minute)
	store := newMemWebhookStore()
	audit := &memAuditWriter{}
	webhooks := NewWebhookService(store, payments, audit, secrets, 5, 5*time.Minute)
	return &webhookFixture{webhooks: webhooks, payments: payments, store: store, audit: audit, txns: txns}
}

func (f *webhookFixture) newPendingPayment(t *testing.T) string {
	t.Helper()
	p, _, err := f.payments.Create(context.Background(), "order-1", 42, dec("100"), "USD", "stub", nil)
	if err != nil {
		t.Fatalf("create payment: %v", err)
	}
	return p.Reference
}

func completedPayload(eventID, ref string) []byte {
	return []byte(fmt.Sprintf(`{"event_id":%q,"type":"payment.completed","reference":%q,"gateway_txn_id":"gw-1"}`, eventID, ref))
}

func signPayload(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func TestWebhookService_IngestCompleted(t *testing.T) {
	f := newWebhookFixture(t, nil)
	ctx := context.Background()
	ref := f.newPendingPayment(t)

	e, err := f.webhooks.Ingest(ctx, "stub", completedPayload("evt-1", ref), "")
	if err != nil {
		t.Fatalf("ingest: %v", err)
	}
	if !e.Processed {
		t.Fatal("event not processed on first delivery")
	}

	p, _ := f.payments.Get(ref)
	if p.Status != domain.PaymentCompleted {
		t.Fatalf("payment status = %s, want COMPLETED", p.Status)
	}
	if len(f.audit.logs) != 1 || f.audit.logs[0].Action != "webhook_payment.completed" {
		t.Fatalf("audit trail = %+v, want one webhook_payment.completed entry", f.audit.logs)
	}
}

func TestWebhookService_DuplicateDelivery(t *testing.T) {
	f := newWebhookFixture(t, nil)
	ctx := context.Background()
	ref := f.newPendingPayment(t)
	payload := completedPayload("evt-1", ref)

	first, err := f.webhooks.Ingest(ctx, "stub", payload, "")
	if err != nil {
		t.Fatalf("first ingest: %v", err)
	}
	second, err := f.webhooks.Ingest(ctx, "stub", payload, "")
	if err != nil {
		t.Fatalf("second ingest: %v", err)
	}
	if second.ID != first.ID {
		t.Fatalf("duplicate created a new record: %d vs %d", second.ID, first.ID)
	}

	// Exactly one settlement effect: one PAYMENT ledger entry.
	p, _ := f.payments.Get(ref)
	txns, _ := f.txns.ListByPayment(p.ID)
	if len(txns) != 1 {
		t.Fatalf("ledger entries = %d, want 1", len(txns))
	}
}

func TestWebhookService_DuplicateEffectIsSuccess(t *testing.T) {
	f := newWebhookFixture(t, nil)
	ctx := context.Background()
	ref := f.newPendingPayment(t)

	if _, err := f.payments.Confirm(ref, "gw-1"); err != nil {
		t.Fatalf("confirm: %v", err)
	}

	// The gateway retransmits completion under a fresh event id. The payment
	// is already COMPLETED, so the event must settle as a no-op success.
	e, err := f.webhooks.Ingest(ctx, "stub", completedPayload("evt-2", ref), "")
	if err != nil {
		t.Fatalf("ingest: %v", err)
	}
	if !e.Processed {
		t.Fatalf("duplicate-effect event left unprocessed: %q", e.ErrorMessage)
	}
}

func TestWebhookService_SignatureVerification(t *testing.T) {
	secrets := map[string]string{"stub": "topsecret"}

	t.Run("valid", func(t *testing.T) {
		f := newWebhookFixture(t, secrets)
		ref := f.newPendingPayment(t)
		payload := completedPayload("evt-1", ref)

		e, err := f.webhooks.Ingest(context.Background(), "stub", payload, signPayload("topsecret", payload))
		if err != nil {
			t.Fatalf("ingest: %v", err)
		}
		if !e.SignatureValid || !e.Processed {
			t.Fatalf("valid signature rejected: %+v", e)
		}
	})

	t.Run("invalid", func(t *testing.T) {
		f := newWebhookFixture(t, secrets)
		ref := f.newPendingPayment(t)
		payload := completedPayload("evt-1", ref)

		e, err := f.webhooks.Ingest(context.Background(), "stub", payload, "deadbeef")
		if err != nil {
			t.Fatalf("ingest: %v", err)
		}
		if e.SignatureValid || e.Processed {
			t.Fatalf("forged signature accepted: %+v", e)
		}
		stored, _ := f.store.GetByID(e.ID)
		if stored.ErrorMessage == "" {
			t.Fatal("rejection reason not recorded")
		}

		// The payment must be untouched.
		p, _ := f.payments.Get(ref)
		if p.Status != domain.PaymentPending {
			t.Fatalf("payment status = %s, want PENDING", p.Status)
		}
	})
}

func TestWebhookService_MalformedPayload(t *testing.T) {
	f := newWebhookFixture(t, nil)
	ctx := context.Background()

	if _, err := f.webhooks.Ingest(ctx, "stub", []byte("not json"), ""); err == nil {
		t.Fatal("malformed payload accepted")
	}
	if _, err := f.webhooks.Ingest(ctx, "stub", []byte(`{"type":"payment.completed"}`), ""); err == nil {
		t.Fatal("payload without event id accepted")
	}
}

func TestWebhookService_RetryDue(t *testing.T) {
	f := newWebhookFixture(t, nil)
	ctx := context.Background()

	// Reference an unknown payment so the first attempt fails.
	e, err := f.webhooks.Ingest(ctx, "stub", completedPayload("evt-1", "no-such-ref"), "")
	if err != nil {
		t.Fatalf("ingest: %v", err)
	}
	if e.Processed {
		t.Fatal("event for unknown payment marked processed")
	}
	stored, _ := f.store.GetByID(e.ID)
	if stored.RetryCount != 1 || stored.ErrorMessage == "" {
		t.Fatalf("attempt bookkeeping = %d/%q, want 1/non-empty", stored.RetryCount, stored.ErrorMessage)
	}

	// Within the backoff window nothing is due.
	n, err := f.webhooks.RetryDue(ctx, time.Now(), 10)
	if err != nil || n != 0 {
		t.Fatalf("retry inside backoff = %d (%v), want 0", n, err)
	}

	// Once the backoff elapses and the payment exists, the retry settles it.
	p, _, _ := f.payments.Create(ctx, "order-1", 42, dec("100"), "USD", "stub", nil)
	fixRef(f.store, e.ID, completedPayload("evt-1", p.Reference))
	ageLastRetry(f.store, e.ID, -time.Hour)

	n, err = f.webhooks.RetryDue(ctx, time.Now(), 10)
	if err != nil || n != 1 {
		t.Fatalf("retry after backoff = %d (%v), want 1", n, err)
	}
	got, _ := f.payments.Get(p.Reference)
	if got.Status != domain.PaymentCompleted {
		t.Fatalf("payment status = %s, want COMPLETED after retry", got.Status)
	}
}

func TestWebhookService_RetryCap(t *testing.T) {
	f := newWebhookFixture(t, nil)
	ctx := context.Background()

	e, err := f.webhooks.Ingest(ctx, "stub", completedPayload("evt-1", "no-such-ref"), "")
	if err != nil {
		t.Fatalf("ingest: %v", err)
	}

	for i := 0; i < 10; i++ {
		ageLastRetry(f.store, e.ID, -time.Hour)
		if _, err := f.webhooks.RetryDue(ctx, time.Now(), 10); err != nil {
			t.Fatalf("retry round %d: %v", i, err)
		}
	}

	stored, _ := f.store.GetByID(e.ID)
	if stored.RetryCount != 5 {
		t.Fatalf("retry count = %d, want capped at 5", stored.RetryCount)
	}
	if stored.Processed {
		t.Fatal("exhausted event must stay unprocessed")
	}
}

// fixRef rewrites a stored event's payload, standing in for operator
// correction of a mis-referenced event.
func fixRef(s *memWebhookStore, id uint, payload []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events[id].Payload = string(payload)
}

func ageLastRetry(s *memWebhookStore, id uint, d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e := s.events[id]; e.LastRetryAt != nil {
		aged := e.LastRetryAt.Add(d)
		e.LastRetryAt = &aged
	}
}
