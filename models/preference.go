package models

import (
	"time"
)

// Digest frequencies
const (
	DigestDaily  = "DAILY"
	DigestWeekly = "WEEKLY"
)

// NotificationPreference holds a user's global channel toggles, quiet-hours
// window and digest settings. One row per user, created lazily with system
// defaults on first write.
type NotificationPreference struct {
	ID                uint      `json:"id" gorm:"primaryKey"`
	UserID            uint      `json:"user_id" gorm:"uniqueIndex;not null"`
	// Toggles carry no column default so an explicit false survives the insert
	EmailEnabled      bool      `json:"email_enabled"`
	SMSEnabled        bool      `json:"sms_enabled"`
	PushEnabled       bool      `json:"push_enabled"`
	InAppEnabled      bool      `json:"in_app_enabled"`
	QuietHoursEnabled bool      `json:"quiet_hours_enabled"`
	QuietStartTime    string    `json:"quiet_start_time" gorm:"type:varchar(5);default:'22:00'"` // local HH:MM
	QuietEndTime      string    `json:"quiet_end_time" gorm:"type:varchar(5);default:'08:00'"`
	DigestEnabled     bool      `json:"digest_enabled" gorm:"default:false"`
	DigestFrequency   string    `json:"digest_frequency" gorm:"type:varchar(10);default:'DAILY'"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// DefaultPreference returns the system defaults used when a user has no
// stored preference row yet.
func DefaultPreference(userID uint) NotificationPreference {
	return NotificationPreference{
		UserID:          userID,
		EmailEnabled:    true,
		SMSEnabled:      true,
		PushEnabled:     true,
		InAppEnabled:    true,
		QuietStartTime:  "22:00",
		QuietEndTime:    "08:00",
		DigestFrequency: DigestDaily,
	}
}

// ChannelEnabled reports the user's global toggle for a channel
func (p *NotificationPreference) ChannelEnabled(channel string) bool {
	switch channel {
	case ChannelEmail:
		return p.EmailEnabled
	case ChannelSMS:
		return p.SMSEnabled
	case ChannelPush:
		return p.PushEnabled
	case ChannelInApp, ChannelWebsocket:
		return p.InAppEnabled
	}
	return false
}

// NotificationTypePreference overrides the global channel toggles for one
// (user, notification type) pair. Absence of a row means "inherit global".
type NotificationTypePreference struct {
	ID                 uint      `json:"id" gorm:"primaryKey"`
	UserID             uint      `json:"user_id" gorm:"uniqueIndex:idx_type_pref_user_type;not null"`
	NotificationTypeID uint      `json:"notification_type_id" gorm:"uniqueIndex:idx_type_pref_user_type;not null"`
	EmailEnabled       bool      `json:"email_enabled"`
	SMSEnabled         bool      `json:"sms_enabled"`
	PushEnabled        bool      `json:"push_enabled"`
	InAppEnabled       bool      `json:"in_app_enabled"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// ChannelEnabled reports the per-type override for a channel
func (tp *NotificationTypePreference) ChannelEnabled(channel string) bool {
	switch channel {
	case ChannelEmail:
		return tp.EmailEnabled
	case ChannelSMS:
		return tp.SMSEnabled
	case ChannelPush:
		return tp.PushEnabled
	case ChannelInApp, ChannelWebsocket:
		return tp.InAppEnabled
	}
	return false
}
