package repository

import (
	"time"

	"cartly/internal/models"

	"gorm.io/gorm"
)

type WebhookRepository struct {
	db *gorm.DB
}

func NewWebhookRepository(db *gorm.DB) *WebhookRepository {
	return &WebhookRepository{db: db}
}

func (r *WebhookRepository) Create(e *models.WebhookEvent) error {
	return r.db.Create(e).Error
}

func (r *WebhookRepository) GetByID(id uint) (*models.WebhookEvent, error) {
	var e models.WebhookEvent
	err := r.db.First(&e, id).Error
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// GetByDedupKey looks up an event by its (gateway, gateway_event_id)
// idempotency key.
func (r *WebhookRepository) GetByDedupKey(gateway, eventID string) (*models.WebhookEvent, error) {
	var e models.WebhookEvent
	err := r.db.Where("gateway = ? AND gateway_event_id = ?", gateway, eventID).First(&e).Error
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func (r *WebhookRepository) MarkProcessed(id uint, at time.Time) error {
	return r.db.Model(&models.WebhookEvent{}).Where("id = ?", id).
		Updates(map[string]interface{}{
			"processed":     true,
			"processed_at":  at,
			"error_message": "",
		}).Error
}

// RecordAttempt bumps the retry bookkeeping whether or not the attempt
// succeeded, and keeps the latest error for review.
func (r *WebhookRepository) RecordAttempt(id uint, at time.Time, errMsg string) error {
	return r.db.Model(&models.WebhookEvent{}).Where("id = ?", id).
		Updates(map[string]interface{}{
			"retry_count":   gorm.Expr("retry_count + 1"),
			"last_retry_at": at,
			"error_message": errMsg,
		}).Error
}

// FindDue selects unprocessed events still under the retry cap whose last
// attempt is older than the backoff window (or that were never retried).
func (r *WebhookRepository) FindDue(maxRetries int, before time.Time, limit int) ([]models.WebhookEvent, error) {
	var events []models.WebhookEvent
	err := r.db.
		Where("processed = ? AND retry_count < ? AND (last_retry_at IS NULL OR last_retry_at < ?)", false, maxRetries, before).
		Order("id ASC").Limit(limit).
		Find(&events).Error
	return events, err
}

// FindExhausted lists events that burned all retries without processing;
// these are surfaced for manual review, never dropped.
func (r *WebhookRepository) FindExhausted(maxRetries, limit, offset int) ([]models.WebhookEvent, error) {
	var events []models.WebhookEvent
	err := r.db.
		Where("processed = ? AND retry_count >= ?", false, maxRetries).
		Order("id DESC").Limit(limit).Offset(offset).
		Find(&events).Error
	return events, err
}
