package models

import "time"

// WebhookEvent stores every inbound gateway callback before any processing
// happens. The (gateway, gateway_event_id) pair is the deduplication key for
// idempotent delivery; the retry worker is the only writer after creation.
type WebhookEvent struct {
	ID             uint       `gorm:"primaryKey" json:"id"`
	Gateway        string     `gorm:"size:50;not null;index:idx_webhook_dedup,unique" json:"gateway"`
	GatewayEventID string     `gorm:"size:255;not null;index:idx_webhook_dedup,unique" json:"gateway_event_id"`
	EventType      string     `gorm:"size:100;index" json:"event_type"`
	Payload        string     `gorm:"type:text;not null" json:"payload"`
	SignatureValid bool       `gorm:"default:false" json:"signature_valid"`
	Processed      bool       `gorm:"default:false;index" json:"processed"`
	ProcessedAt    *time.Time `json:"processed_at"`
	RetryCount     int        `gorm:"default:0" json:"retry_count"`
	LastRetryAt    *time.Time `json:"last_retry_at"`
	ErrorMessage   string     `gorm:"size:1024" json:"error_message"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

func (WebhookEvent) TableName() string {
	return "webhook_events"
}
