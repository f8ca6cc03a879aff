package worker

import (
	"context"
	"log"
	"time"

	"cartly/internal/service"
)

const sweepBatchSize = 100

// ExpirySweeper periodically expires PENDING payments past their deadline.
// Each run is idempotent: already-expired rows are skipped by the state
// machine's status guard.
type ExpirySweeper struct {
	payments *service.PaymentService
	interval time.Duration
}

func NewExpirySweeper(payments *service.PaymentService, interval time.Duration) *ExpirySweeper {
	return &ExpirySweeper{payments: payments, interval: interval}
}

// Run blocks until ctx is cancelled.
func (w *ExpirySweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.Sweep(ctx)
		}
	}
}

// Sweep expires one batch of overdue payments and returns how many moved.
func (w *ExpirySweeper) Sweep(ctx context.Context) int {
	now := time.Now()
	due, err := w.payments.FindExpiredPending(now, sweepBatchSize)
	if err != nil {
		log.Printf("[sweep] list expired payments: %v", err)
		return 0
	}
	expired := 0
	for i := range due {
		if _, err := w.payments.Expire(due[i].Reference); err != nil {
			log.Printf("[sweep] expire %s: %v", due[i].Reference, err)
			continue
		}
		expired++
	}
	if expired > 0 {
		log.Printf("[sweep] expired %d payment(s)", expired)
	}
	return expired
}
