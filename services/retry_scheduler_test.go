package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/yeremiapane/hospital-app/models"
	"gorm.io/gorm"
)

// failAndAge pushes a fresh record into the retryable window
func failAndAge(t *testing.T, db *gorm.DB, store *NotificationStore, id uint) {
	t.Helper()
	assert.NoError(t, store.MarkFailed(id, "smtp timeout", false, AuditContext{}))
	past := time.Now().Add(-time.Minute)
	assert.NoError(t, db.Model(&models.Notification{}).Where("id = ?", id).Update("next_retry_at", past).Error)
}

func TestTickResendsDueRecord(t *testing.T) {
	db, d := setupDispatcher(t)
	user := seedUser(t, db, "Pat Patient", models.RolePatient)
	email := newFakeSender(models.ChannelEmail)
	d.RegisterSender(email)

	n := createTestNotification(t, d.Store(), user.ID, models.ChannelEmail)
	failAndAge(t, db, d.Store(), n.ID)

	rs := NewRetryScheduler(d.Store(), d)
	rs.Tick()

	assert.Equal(t, 1, email.Attempts())
	fresh, err := d.Store().Get(n.ID)
	assert.NoError(t, err)
	assert.Equal(t, models.StatusSent, fresh.Status)
	assert.Nil(t, fresh.NextRetryAt)
}

func TestTickIgnoresRecordsNotYetDue(t *testing.T) {
	db, d := setupDispatcher(t)
	user := seedUser(t, db, "Pat Patient", models.RolePatient)
	email := newFakeSender(models.ChannelEmail)
	d.RegisterSender(email)

	n := createTestNotification(t, d.Store(), user.ID, models.ChannelEmail)
	// Transient failure leaves next_retry_at five minutes out
	assert.NoError(t, d.Store().MarkFailed(n.ID, "smtp timeout", false, AuditContext{}))

	rs := NewRetryScheduler(d.Store(), d)
	rs.Tick()

	assert.Equal(t, 0, email.Attempts())
	fresh, _ := d.Store().Get(n.ID)
	assert.Equal(t, models.StatusPending, fresh.Status)
}

func TestTickClaimPreventsDoubleSend(t *testing.T) {
	db, d := setupDispatcher(t)
	user := seedUser(t, db, "Pat Patient", models.RolePatient)
	email := newFakeSender(models.ChannelEmail, TransientFailure("still down"))
	d.RegisterSender(email)

	n := createTestNotification(t, d.Store(), user.ID, models.ChannelEmail)
	failAndAge(t, db, d.Store(), n.ID)

	rs := NewRetryScheduler(d.Store(), d)
	rs.Tick()
	// Second pass inside the claim hold finds nothing due
	rs.Tick()

	assert.Equal(t, 1, email.Attempts())
}

func TestTickMissingSenderLeavesRecordUntouched(t *testing.T) {
	db, d := setupDispatcher(t)
	user := seedUser(t, db, "Pat Patient", models.RolePatient)

	n := createTestNotification(t, d.Store(), user.ID, "PAGER")
	failAndAge(t, db, d.Store(), n.ID)

	rs := NewRetryScheduler(d.Store(), d)
	rs.Tick()

	// Claimed but not attempted: no extra failure, no state change
	fresh, _ := d.Store().Get(n.ID)
	assert.Equal(t, models.StatusPending, fresh.Status)
	assert.Equal(t, uint(1), fresh.RetryCount)
}

func TestTickSingleFlight(t *testing.T) {
	db, d := setupDispatcher(t)
	user := seedUser(t, db, "Pat Patient", models.RolePatient)
	email := newFakeSender(models.ChannelEmail)
	d.RegisterSender(email)

	n := createTestNotification(t, d.Store(), user.ID, models.ChannelEmail)
	failAndAge(t, db, d.Store(), n.ID)

	rs := NewRetryScheduler(d.Store(), d)
	// Simulate a pass still in flight
	rs.running.Store(true)
	rs.Tick()
	assert.Equal(t, 0, email.Attempts())

	rs.running.Store(false)
	rs.Tick()
	assert.Equal(t, 1, email.Attempts())
}

func TestTickExhaustsRetriesThenStops(t *testing.T) {
	db, d := setupDispatcher(t)
	user := seedUser(t, db, "Pat Patient", models.RolePatient)
	email := newFakeSender(models.ChannelEmail, TransientFailure("still down"))
	d.RegisterSender(email)

	n := createTestNotification(t, d.Store(), user.ID, models.ChannelEmail)
	rs := NewRetryScheduler(d.Store(), d)

	// Drive the record through every backoff slot
	failAndAge(t, db, d.Store(), n.ID)
	for i := 0; i < 5; i++ {
		rs.Tick()
		past := time.Now().Add(-time.Minute)
		db.Model(&models.Notification{}).Where("id = ? AND next_retry_at IS NOT NULL", n.ID).Update("next_retry_at", past)
	}

	fresh, _ := d.Store().Get(n.ID)
	assert.Equal(t, models.StatusFailed, fresh.Status)
	assert.Equal(t, fresh.MaxRetries, fresh.RetryCount)
	assert.True(t, fresh.IsTerminal())
	// Attempts: max_retries minus the first failure that happened inline
	assert.Equal(t, int(fresh.MaxRetries)-1, email.Attempts())
}
