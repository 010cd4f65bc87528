package services

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/yeremiapane/hospital-app/models"
	"github.com/yeremiapane/hospital-app/utils"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	utils.InitLogger()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", name)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to connect database: %v", err)
	}

	// Serialize access: the in-memory DB does not tolerate concurrent writers
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("failed to get sql.DB: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	err = db.AutoMigrate(
		&models.User{},
		&models.NotificationType{},
		&models.NotificationTemplate{},
		&models.Notification{},
		&models.NotificationPreference{},
		&models.NotificationTypePreference{},
		&models.NotificationLog{},
	)
	if err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	return db
}

func seedUser(t *testing.T, db *gorm.DB, name, role string) models.User {
	t.Helper()
	user := models.User{
		Name:     name,
		Email:    strings.ToLower(strings.ReplaceAll(name, " ", ".")) + "@example.com",
		Password: "secret",
		Role:     role,
	}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("failed to seed user: %v", err)
	}
	return user
}

func seedType(t *testing.T, db *gorm.DB, name, priority string, email, sms, push, inApp bool) models.NotificationType {
	t.Helper()
	ntype := models.NotificationType{
		Name:         name,
		Priority:     priority,
		IsActive:     true,
		EmailEnabled: email,
		SMSEnabled:   sms,
		PushEnabled:  push,
		InAppEnabled: inApp,
	}
	if err := db.Create(&ntype).Error; err != nil {
		t.Fatalf("failed to seed notification type: %v", err)
	}
	return ntype
}

// fakeSender is a scriptable channel sender for dispatcher tests
type fakeSender struct {
	channel string
	delay   time.Duration

	mu       sync.Mutex
	outcomes []SendOutcome
	attempts int
}

func newFakeSender(channel string, outcomes ...SendOutcome) *fakeSender {
	if len(outcomes) == 0 {
		outcomes = []SendOutcome{Sent()}
	}
	return &fakeSender{channel: channel, outcomes: outcomes}
}

func (f *fakeSender) Channel() string { return f.channel }

func (f *fakeSender) AttemptSend(ctx context.Context, n *models.Notification) SendOutcome {
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return TransientFailure("cancelled")
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.attempts++
	if f.attempts <= len(f.outcomes) {
		return f.outcomes[f.attempts-1]
	}
	return f.outcomes[len(f.outcomes)-1]
}

func (f *fakeSender) Attempts() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.attempts
}
