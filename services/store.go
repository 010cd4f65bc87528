package services

import (
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/yeremiapane/hospital-app/models"
	"gorm.io/gorm"
)

var (
	// ErrNotFound is returned when a delivery record does not exist or does
	// not belong to the requesting recipient.
	ErrNotFound = errors.New("notification not found")
	// ErrInvalidTransition is returned for a state change the machine does
	// not allow (e.g. confirming delivery of a record that was never sent).
	ErrInvalidTransition = errors.New("invalid notification state transition")
)

// AuditContext identifies who caused a state transition. It is passed
// explicitly through the call chain, never read from ambient state.
type AuditContext struct {
	ActorID   uint   `json:"actor_id,omitempty"`
	SessionID string `json:"session_id,omitempty"`
	ClientIP  string `json:"client_ip,omitempty"`
}

// NotificationStore is the single source of truth for delivery records.
// Every state transition appends one append-only NotificationLog row.
type NotificationStore struct {
	DB *gorm.DB
}

func NewNotificationStore(db *gorm.DB) *NotificationStore {
	return &NotificationStore{DB: db}
}

// NewNotificationID generates the public record id ("N" + 8 hex chars)
func NewNotificationID() string {
	raw := strings.ReplaceAll(uuid.NewString(), "-", "")
	return "N" + strings.ToUpper(raw[:8])
}

func appendLog(tx *gorm.DB, notificationPK uint, action string, details map[string]interface{}) error {
	payload, err := json.Marshal(details)
	if err != nil {
		return err
	}
	entry := models.NotificationLog{
		NotificationID: notificationPK,
		Action:         action,
		Details:        string(payload),
	}
	return tx.Create(&entry).Error
}

func auditDetails(audit AuditContext, extra map[string]interface{}) map[string]interface{} {
	details := make(map[string]interface{}, len(extra)+3)
	for k, v := range extra {
		details[k] = v
	}
	if audit.ActorID != 0 {
		details["actor_id"] = audit.ActorID
	}
	if audit.SessionID != "" {
		details["session_id"] = audit.SessionID
	}
	if audit.ClientIP != "" {
		details["client_ip"] = audit.ClientIP
	}
	return details
}

// Create persists a new delivery record in PENDING and logs CREATED
func (s *NotificationStore) Create(n *models.Notification, audit AuditContext) error {
	if n.NotificationID == "" {
		n.NotificationID = NewNotificationID()
	}
	if n.MaxRetries == 0 {
		n.MaxRetries = models.DefaultMaxRetries
	}
	n.Status = models.StatusPending

	return s.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(n).Error; err != nil {
			return err
		}
		return appendLog(tx, n.ID, models.ActionCreated, auditDetails(audit, map[string]interface{}{
			"channel":  n.Channel,
			"type":     n.TypeName,
			"priority": n.Priority,
		}))
	})
}

// MarkSent transitions PENDING -> SENT and clears any pending retry slot
func (s *NotificationStore) MarkSent(id uint, audit AuditContext) error {
	now := time.Now()
	return s.DB.Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Notification{}).
			Where("id = ? AND status = ?", id, models.StatusPending).
			Updates(map[string]interface{}{
				"status":        models.StatusSent,
				"sent_at":       now,
				"next_retry_at": nil,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrInvalidTransition
		}
		return appendLog(tx, id, models.ActionSent, auditDetails(audit, map[string]interface{}{
			"old_status": models.StatusPending,
			"new_status": models.StatusSent,
		}))
	})
}

// MarkDelivered transitions SENT -> DELIVERED
func (s *NotificationStore) MarkDelivered(id uint, audit AuditContext) error {
	now := time.Now()
	return s.DB.Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Notification{}).
			Where("id = ? AND status = ?", id, models.StatusSent).
			Updates(map[string]interface{}{
				"status":       models.StatusDelivered,
				"delivered_at": now,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrInvalidTransition
		}
		return appendLog(tx, id, models.ActionDelivered, auditDetails(audit, map[string]interface{}{
			"old_status": models.StatusSent,
			"new_status": models.StatusDelivered,
		}))
	})
}

// MarkRead transitions an unread record to terminal READ. Marking an
// already-READ record is an idempotent no-op: it reports false and appends
// no additional log entry. A FAILED record cannot be read.
func (s *NotificationStore) MarkRead(publicID string, recipientID uint, audit AuditContext) (bool, error) {
	transitioned := false
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		var n models.Notification
		if err := tx.Where("notification_id = ? AND recipient_id = ?", publicID, recipientID).
			First(&n).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}
		if n.Status == models.StatusRead {
			return nil
		}
		if !n.IsUnread() {
			return ErrInvalidTransition
		}

		oldStatus := n.Status
		now := time.Now()
		res := tx.Model(&models.Notification{}).
			Where("id = ? AND status = ?", n.ID, oldStatus).
			Updates(map[string]interface{}{
				"status":  models.StatusRead,
				"read_at": now,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			// Lost the race against another reader, treat as already read
			return nil
		}
		transitioned = true
		return appendLog(tx, n.ID, models.ActionRead, auditDetails(audit, map[string]interface{}{
			"old_status": oldStatus,
			"new_status": models.StatusRead,
		}))
	})
	return transitioned, err
}

// MarkAllRead transitions every unread record of a recipient to READ and
// returns how many records changed.
func (s *NotificationStore) MarkAllRead(recipientID uint, audit AuditContext) (int64, error) {
	var changed int64
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		var unread []models.Notification
		if err := tx.Where("recipient_id = ? AND status IN ?", recipientID, models.UnreadStatuses).
			Find(&unread).Error; err != nil {
			return err
		}
		now := time.Now()
		for i := range unread {
			res := tx.Model(&models.Notification{}).
				Where("id = ? AND status = ?", unread[i].ID, unread[i].Status).
				Updates(map[string]interface{}{
					"status":  models.StatusRead,
					"read_at": now,
				})
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				continue
			}
			if err := appendLog(tx, unread[i].ID, models.ActionRead, auditDetails(audit, map[string]interface{}{
				"old_status": unread[i].Status,
				"new_status": models.StatusRead,
			})); err != nil {
				return err
			}
			changed++
		}
		return nil
	})
	return changed, err
}

// MarkFailed records a failed send attempt. Permanent failures go terminal
// immediately with retry_count forced to the cap. Transient failures
// increment retry_count and, while under the cap, flag the record back to
// PENDING with the next backoff slot (5 minutes * retry_count).
func (s *NotificationStore) MarkFailed(id uint, reason string, permanent bool, audit AuditContext) error {
	return s.DB.Transaction(func(tx *gorm.DB) error {
		var n models.Notification
		if err := tx.First(&n, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}
		if n.Status == models.StatusRead {
			return ErrInvalidTransition
		}

		oldStatus := n.Status
		updates := map[string]interface{}{
			"status":        models.StatusFailed,
			"error_message": reason,
			"next_retry_at": nil,
		}
		action := models.ActionFailed

		if permanent {
			updates["retry_count"] = n.MaxRetries
		} else {
			retryCount := n.RetryCount + 1
			if retryCount > n.MaxRetries {
				retryCount = n.MaxRetries
			}
			updates["retry_count"] = retryCount
			if retryCount < n.MaxRetries {
				// Still retryable: back to PENDING with a backoff slot
				updates["status"] = models.StatusPending
				updates["next_retry_at"] = time.Now().Add(models.RetryBackoff(retryCount))
				action = models.ActionRetried
			}
		}

		if err := tx.Model(&models.Notification{}).Where("id = ?", id).Updates(updates).Error; err != nil {
			return err
		}
		return appendLog(tx, id, action, auditDetails(audit, map[string]interface{}{
			"old_status":  oldStatus,
			"new_status":  updates["status"],
			"error":       reason,
			"permanent":   permanent,
			"retry_count": updates["retry_count"],
		}))
	})
}

// Get fetches one delivery record by primary key
func (s *NotificationStore) Get(id uint) (*models.Notification, error) {
	var n models.Notification
	if err := s.DB.First(&n, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &n, nil
}

// GetByPublicID fetches one delivery record by its public notification id
func (s *NotificationStore) GetByPublicID(publicID string) (*models.Notification, error) {
	var n models.Notification
	if err := s.DB.Where("notification_id = ?", publicID).First(&n).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &n, nil
}

// ListByRecipient returns one page of a recipient's notifications, newest
// first, plus the total count.
func (s *NotificationStore) ListByRecipient(recipientID uint, page, limit int) ([]models.Notification, int64, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}

	var total int64
	if err := s.DB.Model(&models.Notification{}).
		Where("recipient_id = ?", recipientID).
		Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var notifs []models.Notification
	err := s.DB.Where("recipient_id = ?", recipientID).
		Order("created_at DESC, id DESC").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&notifs).Error
	return notifs, total, err
}

// ListAll returns one page of every recipient's records for the operator
// view, optionally filtered by status and channel.
func (s *NotificationStore) ListAll(page, limit int, status, channel string) ([]models.Notification, int64, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}

	query := s.DB.Model(&models.Notification{})
	if status != "" {
		query = query.Where("status = ?", status)
	}
	if channel != "" {
		query = query.Where("channel = ?", channel)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var notifs []models.Notification
	err := query.
		Order("created_at DESC, id DESC").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&notifs).Error
	return notifs, total, err
}

// UnreadCount counts the recipient's records in PENDING/SENT/DELIVERED
func (s *NotificationStore) UnreadCount(recipientID uint) (int64, error) {
	var count int64
	err := s.DB.Model(&models.Notification{}).
		Where("recipient_id = ? AND status IN ?", recipientID, models.UnreadStatuses).
		Count(&count).Error
	return count, err
}

// Logs returns the audit trail of one delivery record, newest first
func (s *NotificationStore) Logs(notificationPK uint) ([]models.NotificationLog, error) {
	var logs []models.NotificationLog
	err := s.DB.Where("notification_id = ?", notificationPK).
		Order("timestamp DESC, id DESC").
		Find(&logs).Error
	return logs, err
}

// DueForRetry selects records eligible for a retry pass: PENDING with at
// least one failed attempt and an elapsed backoff slot.
func (s *NotificationStore) DueForRetry(now time.Time, limit int) ([]models.Notification, error) {
	var notifs []models.Notification
	err := s.DB.Where("status = ? AND retry_count > 0 AND next_retry_at IS NOT NULL AND next_retry_at <= ?",
		models.StatusPending, now).
		Order("next_retry_at ASC").
		Limit(limit).
		Find(&notifs).Error
	return notifs, err
}

// ClaimForRetry atomically claims a due record by advancing next_retry_at
// past the hold window, so a slow sender is not re-picked by the next tick.
// Returns false when another worker already claimed the record.
func (s *NotificationStore) ClaimForRetry(id uint, now time.Time, hold time.Duration) (bool, error) {
	res := s.DB.Model(&models.Notification{}).
		Where("id = ? AND status = ? AND retry_count > 0 AND next_retry_at IS NOT NULL AND next_retry_at <= ?",
			id, models.StatusPending, now).
		Update("next_retry_at", now.Add(hold))
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}
