package Controllers_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/hospital-app/controllers"
	"github.com/yeremiapane/hospital-app/middlewares"
	"github.com/yeremiapane/hospital-app/models"
	"github.com/yeremiapane/hospital-app/realtime"
	"github.com/yeremiapane/hospital-app/services"
	"github.com/yeremiapane/hospital-app/utils"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// setupTestDB uses a per-test in-memory SQLite database
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	utils.InitLogger()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:ctrl_%s?mode=memory&cache=shared", name)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to connect database: %v", err)
	}
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

// fakeAuth injects the claims the auth middleware would normally set
func fakeAuth(userID uint, role string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set("user_id", userID)
		c.Set("role", role)
		c.Next()
	}
}

// setupRouterForTest wires the full authenticated surface behind a fake
// identity so the handlers themselves are what is under test.
func setupRouterForTest(db *gorm.DB, userID uint, role string) (*gin.Engine, *services.Dispatcher) {
	gin.SetMode(gin.TestMode)
	router := gin.Default()

	hub := realtime.NewHub()
	dispatcher := services.NewDispatcher(db, hub)

	userCtrl := controllers.NewUserController(db, dispatcher)
	eventCtrl := controllers.NewEventController(dispatcher)
	notifCtrl := controllers.NewNotificationController(dispatcher.Store())
	typeCtrl := controllers.NewNotificationTypeController(dispatcher.Registry())
	prefCtrl := controllers.NewPreferenceController(db)

	router.POST("/register", userCtrl.Register)
	router.POST("/login", userCtrl.Login)

	auth := router.Group("/admin", fakeAuth(userID, role))
	auth.GET("/profile", userCtrl.GetProfile)
	auth.POST("/events",
		middlewares.RequireRoles(models.RoleDoctor, models.RoleNurse, models.RoleReceptionist),
		eventCtrl.SubmitEvent)
	auth.GET("/notifications", notifCtrl.GetMyNotifications)
	auth.GET("/notifications/all", middlewares.RequireRoles(), notifCtrl.GetAllNotifications)
	auth.GET("/notifications/unread-count", notifCtrl.GetUnreadCount)
	auth.POST("/notifications/read-all", notifCtrl.MarkAllNotificationsRead)
	auth.GET("/notifications/:notif_id", notifCtrl.GetNotificationByID)
	auth.POST("/notifications/:notif_id/read", notifCtrl.MarkNotificationRead)
	auth.POST("/notifications/:notif_id/delivered", middlewares.RequireRoles(), notifCtrl.ConfirmDelivered)
	auth.GET("/preferences", prefCtrl.GetPreferences)
	auth.PUT("/preferences", prefCtrl.UpdatePreferences)
	auth.GET("/preferences/types/:type_id", prefCtrl.GetTypePreference)
	auth.PUT("/preferences/types/:type_id", prefCtrl.UpdateTypePreference)
	auth.DELETE("/preferences/types/:type_id", prefCtrl.DeleteTypePreference)
	auth.GET("/notification-types", typeCtrl.GetAllTypes)
	auth.POST("/notification-types", middlewares.RequireRoles(), typeCtrl.CreateType)

	return router, dispatcher
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

func seedType(t *testing.T, db *gorm.DB, name, priority string) models.NotificationType {
	t.Helper()
	ntype := models.NotificationType{
		Name:         name,
		Priority:     priority,
		IsActive:     true,
		EmailEnabled: true,
		InAppEnabled: true,
	}
	if err := db.Create(&ntype).Error; err != nil {
		t.Fatalf("failed to seed notification type: %v", err)
	}
	return ntype
}

func doJSON(t *testing.T, router *gin.Engine, method, url string, payload interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var body *bytes.Buffer
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			t.Fatalf("failed to marshal payload: %v", err)
		}
		body = bytes.NewBuffer(raw)
	} else {
		body = bytes.NewBuffer(nil)
	}
	req, err := http.NewRequest(method, url, body)
	if err != nil {
		t.Fatalf("failed to build request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func parseBody(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var resp map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to parse response %q: %v", w.Body.String(), err)
	}
	return resp
}
