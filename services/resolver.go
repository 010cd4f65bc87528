package services

import (
	"errors"
	"time"

	"github.com/yeremiapane/hospital-app/models"
	"gorm.io/gorm"
)

// PreferenceResolver merges a user's global channel toggles, per-type
// overrides and quiet-hours window into the final enabled channel set for a
// (user, type, time) triple. Resolution is never fatal: missing preference
// rows fall back to the type's own defaults.
type PreferenceResolver struct {
	db *gorm.DB
}

func NewPreferenceResolver(db *gorm.DB) *PreferenceResolver {
	return &PreferenceResolver{db: db}
}

// Resolve returns the channels an event for this user and type should fan
// out to. Priority is the effective priority (type default or event
// override); URGENT bypasses quiet hours.
func (pr *PreferenceResolver) Resolve(userID uint, ntype *models.NotificationType, priority string, now time.Time) []string {
	defaults := ntype.DefaultChannels()
	if len(defaults) == 0 {
		return nil
	}

	pref := pr.globalPreference(userID)
	typePref := pr.typePreference(userID, ntype.ID)

	var channels []string
	for _, ch := range defaults {
		enabled := pref.ChannelEnabled(ch)
		if typePref != nil {
			// An override row replaces the global toggle for this type
			enabled = typePref.ChannelEnabled(ch)
		}
		if enabled {
			channels = append(channels, ch)
		}
	}

	if pref.QuietHoursEnabled && priority != models.PriorityUrgent {
		if inQuietWindow(now, pref.QuietStartTime, pref.QuietEndTime) {
			return nil
		}
	}
	return channels
}

func (pr *PreferenceResolver) globalPreference(userID uint) models.NotificationPreference {
	var pref models.NotificationPreference
	err := pr.db.Where("user_id = ?", userID).First(&pref).Error
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			logWarn("Error loading preferences for user %d: %v", userID, err)
		}
		return models.DefaultPreference(userID)
	}
	return pref
}

func (pr *PreferenceResolver) typePreference(userID, typeID uint) *models.NotificationTypePreference {
	var tp models.NotificationTypePreference
	err := pr.db.Where("user_id = ? AND notification_type_id = ?", userID, typeID).First(&tp).Error
	if err != nil {
		return nil
	}
	return &tp
}

// inQuietWindow reports whether t falls inside the [start, end) window.
// The window may wrap midnight (e.g. 22:00 -> 08:00).
func inQuietWindow(t time.Time, start, end string) bool {
	startMin, okStart := parseClock(start)
	endMin, okEnd := parseClock(end)
	if !okStart || !okEnd || startMin == endMin {
		return false
	}

	nowMin := t.Hour()*60 + t.Minute()
	if startMin < endMin {
		return nowMin >= startMin && nowMin < endMin
	}
	return nowMin >= startMin || nowMin < endMin
}

// parseClock parses "HH:MM" into minutes since midnight
func parseClock(clock string) (int, bool) {
	parsed, err := time.Parse("15:04", clock)
	if err != nil {
		return 0, false
	}
	return parsed.Hour()*60 + parsed.Minute(), true
}
