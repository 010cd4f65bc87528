package models

import (
	"time"
)

// NotificationTemplate holds the subject/body templates for one
// (notification type, channel) pair. When no active template exists the
// renderer falls back to the event's own title and message.
type NotificationTemplate struct {
	ID                 uint      `json:"id" gorm:"primaryKey"`
	NotificationTypeID uint      `json:"notification_type_id" gorm:"uniqueIndex:idx_template_type_channel"`
	Channel            string    `json:"channel" gorm:"type:varchar(10);uniqueIndex:idx_template_type_channel"`
	SubjectTemplate    string    `json:"subject_template" gorm:"type:varchar(200)"`
	MessageTemplate    string    `json:"message_template" gorm:"type:text;not null"`
	IsActive           bool      `json:"is_active"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}
