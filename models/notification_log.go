package models

import (
	"time"
)

// Audit log actions, one per state transition
const (
	ActionCreated   = "CREATED"
	ActionSent      = "SENT"
	ActionDelivered = "DELIVERED"
	ActionRead      = "READ"
	ActionFailed    = "FAILED"
	ActionRetried   = "RETRIED"
)

// NotificationLog is an append-only audit row, one per transition of a
// delivery record. Never updated or deleted, and never used for control flow.
type NotificationLog struct {
	ID             uint      `json:"id" gorm:"primaryKey"`
	NotificationID uint      `json:"notification_id" gorm:"index;not null"`
	Action         string    `json:"action" gorm:"type:varchar(10);not null"`
	Details        string    `json:"details" gorm:"type:text"` // JSON payload
	Timestamp      time.Time `json:"timestamp" gorm:"autoCreateTime;index"`
}
