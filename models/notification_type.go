package models

import (
	"time"
)

// Priority tiers
const (
	PriorityLow    = "LOW"
	PriorityMedium = "MEDIUM"
	PriorityHigh   = "HIGH"
	PriorityUrgent = "URGENT"
)

// NotificationType is a catalog entry declaring default priority and which
// channels are eligible for notifications of this category.
type NotificationType struct {
	ID          uint      `json:"id" gorm:"primaryKey"`
	Name        string    `json:"name" gorm:"type:varchar(100);uniqueIndex;not null"`
	Description string    `json:"description" gorm:"type:text"`
	Priority    string    `json:"priority" gorm:"type:varchar(10);default:'MEDIUM'"`
	// Toggles carry no column default: an explicit false must survive the
	// insert instead of being swapped for the default by the ORM.
	IsActive     bool      `json:"is_active"`
	EmailEnabled bool      `json:"email_enabled"`
	SMSEnabled   bool      `json:"sms_enabled"`
	PushEnabled  bool      `json:"push_enabled"`
	InAppEnabled bool      `json:"in_app_enabled"`
	CreatedAt    time.Time `json:"created_at"`
}

// DefaultChannels returns the channels eligible by default for this type.
// The WEBSOCKET channel follows the in-app flag: the live push is the
// real-time side of in-app delivery.
func (nt *NotificationType) DefaultChannels() []string {
	var channels []string
	if nt.EmailEnabled {
		channels = append(channels, ChannelEmail)
	}
	if nt.SMSEnabled {
		channels = append(channels, ChannelSMS)
	}
	if nt.PushEnabled {
		channels = append(channels, ChannelPush)
	}
	if nt.InAppEnabled {
		channels = append(channels, ChannelInApp, ChannelWebsocket)
	}
	return channels
}

// ChannelEnabled reports whether a single channel is eligible for this type
func (nt *NotificationType) ChannelEnabled(channel string) bool {
	switch channel {
	case ChannelEmail:
		return nt.EmailEnabled
	case ChannelSMS:
		return nt.SMSEnabled
	case ChannelPush:
		return nt.PushEnabled
	case ChannelInApp, ChannelWebsocket:
		return nt.InAppEnabled
	}
	return false
}

// ValidPriority reports whether the given priority tier is known
func ValidPriority(priority string) bool {
	switch priority {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}
