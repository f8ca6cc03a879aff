package worker

import (
	"context"
	"log"
	"time"

	"cartly/internal/service"
)

const retryBatchSize = 50

// WebhookRetrier drives bounded re-processing of failed webhook events.
type WebhookRetrier struct {
	webhooks *service.WebhookService
	interval time.Duration
}

func NewWebhookRetrier(webhooks *service.WebhookService, interval time.Duration) *WebhookRetrier {
	return &WebhookRetrier{webhooks: webhooks, interval: interval}
}

// Run blocks until ctx is cancelled.
func (w *WebhookRetrier) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			processed, err := w.webhooks.RetryDue(ctx, time.Now(), retryBatchSize)
			if err != nil {
				log.Printf("[retry] webhook retry pass: %v", err)
				continue
			}
			if processed > 0 {
				log.Printf("[retry] processed %d webhook(s)", processed)
			}
		}
	}
}
