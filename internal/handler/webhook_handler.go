package handler

import (
	"io"
	"net/http"

	"cartly/internal/repository"
	"cartly/internal/service"

	"github.com/gin-gonic/gin"
)

type WebhookHandler struct {
	webhooks    *service.WebhookService
	webhookRepo *repository.WebhookRepository
	maxRetries  int
}

func NewWebhookHandler(webhooks *service.WebhookService, webhookRepo *repository.WebhookRepository, maxRetries int) *WebhookHandler {
	return &WebhookHandler{webhooks: webhooks, webhookRepo: webhookRepo, maxRetries: maxRetries}
}

// Ingest accepts a gateway callback. The raw event is persisted before any
// processing, and a duplicate delivery still answers success so the gateway
// stops redelivering.
func (h *WebhookHandler) Ingest(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		respondBadRequest(c, "invalid body")
		return
	}
	event, err := h.webhooks.Ingest(c.Request.Context(), c.Param("gateway"), body, c.GetHeader("X-Webhook-Signature"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"received": true, "webhook_id": event.ID})
}

// ListFailed surfaces events that exhausted their retries for manual review.
func (h *WebhookHandler) ListFailed(c *gin.Context) {
	events, err := h.webhookRepo.FindExhausted(h.maxRetries, pageLimit(c), pageOffset(c))
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, events)
}
