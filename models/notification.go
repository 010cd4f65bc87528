package models

import (
	"time"
)

// Delivery channels
const (
	ChannelEmail     = "EMAIL"
	ChannelSMS       = "SMS"
	ChannelPush      = "PUSH"
	ChannelInApp     = "IN_APP"
	ChannelWebsocket = "WEBSOCKET"
)

// Notification statuses
const (
	StatusPending   = "PENDING"
	StatusSent      = "SENT"
	StatusDelivered = "DELIVERED"
	StatusRead      = "READ"
	StatusFailed    = "FAILED"
)

// DefaultMaxRetries is applied to every new delivery record
const DefaultMaxRetries = 3

// UnreadStatuses are the statuses counted by the unread counter
var UnreadStatuses = []string{StatusPending, StatusSent, StatusDelivered}

// Notification is one delivery record: one row per (event, channel) pair
type Notification struct {
	ID                 uint             `json:"id" gorm:"primaryKey"`
	NotificationID     string           `json:"notification_id" gorm:"type:varchar(12);uniqueIndex;not null"`
	NotificationTypeID uint             `json:"notification_type_id" gorm:"index"`
	NotificationType   NotificationType `json:"notification_type,omitempty" gorm:"foreignKey:NotificationTypeID"`
	TypeName           string           `json:"type_name" gorm:"type:varchar(100)"` // snapshot, immutable at delivery time
	Priority           string           `json:"priority" gorm:"type:varchar(10)"`   // snapshot, may carry an event override
	RecipientID        uint             `json:"recipient_id" gorm:"index:idx_recipient_created"`
	Recipient          User             `json:"-" gorm:"foreignKey:RecipientID"`
	Title              string           `json:"title" gorm:"type:varchar(200);not null"`
	Message            string           `json:"message" gorm:"type:text;not null"`
	Data               string           `json:"data" gorm:"type:text"` // opaque JSON payload
	Channel            string           `json:"channel" gorm:"type:varchar(10);index"`
	Status             string           `json:"status" gorm:"type:varchar(10);default:'PENDING';index"`
	CreatedAt          time.Time        `json:"created_at" gorm:"index:idx_recipient_created"`
	SentAt             *time.Time       `json:"sent_at"`
	DeliveredAt        *time.Time       `json:"delivered_at"`
	ReadAt             *time.Time       `json:"read_at"`
	RetryCount         uint             `json:"retry_count" gorm:"default:0"`
	MaxRetries         uint             `json:"max_retries" gorm:"default:3"`
	NextRetryAt        *time.Time       `json:"next_retry_at"`
	ErrorMessage       string           `json:"error_message" gorm:"type:text"`
}

// IsUnread reports whether the record counts toward the unread counter
func (n *Notification) IsUnread() bool {
	return n.Status == StatusPending || n.Status == StatusSent || n.Status == StatusDelivered
}

// IsTerminal reports whether no further automatic transition can occur
func (n *Notification) IsTerminal() bool {
	if n.Status == StatusRead {
		return true
	}
	return n.Status == StatusFailed && n.RetryCount >= n.MaxRetries
}

// RetryBackoff returns the delay before retry attempt n (5, 10, 15 minutes...)
func RetryBackoff(retryCount uint) time.Duration {
	return time.Duration(retryCount) * 5 * time.Minute
}

// ChannelAutoDelivers reports whether the channel has no external delivery
// confirmation and therefore transitions straight to DELIVERED on send.
func ChannelAutoDelivers(channel string) bool {
	return channel == ChannelInApp || channel == ChannelWebsocket
}

// ValidChannel reports whether the given channel name is known
func ValidChannel(channel string) bool {
	switch channel {
	case ChannelEmail, ChannelSMS, ChannelPush, ChannelInApp, ChannelWebsocket:
		return true
	}
	return false
}
