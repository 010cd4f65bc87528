package main

import (
	"log"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/yeremiapane/hospital-app/config"
	"github.com/yeremiapane/hospital-app/middlewares"
	"github.com/yeremiapane/hospital-app/models"
	"github.com/yeremiapane/hospital-app/realtime"
	"github.com/yeremiapane/hospital-app/router"
	"github.com/yeremiapane/hospital-app/services"
	"github.com/yeremiapane/hospital-app/utils"
	"gorm.io/gorm"
)

func init() {
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: .env file not found or error loading: %v", err)
	}

	utils.InfoLogger = logrus.New()
	utils.ErrorLogger = logrus.New()

	utils.InfoLogger.SetOutput(os.Stdout)
	utils.ErrorLogger.SetOutput(os.Stderr)

	utils.InfoLogger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
		ForceColors:   true,
	})
	utils.ErrorLogger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
		ForceColors:   true,
	})
}

func main() {
	db, err := config.InitDB()
	if err != nil {
		utils.ErrorLogger.Fatalf("Failed to connect to database: %v", err)
	}
	utils.InitDB(db)

	if os.Getenv("GIN_MODE") == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	autoMigrate(db)
	seedNotificationTypes(db)

	hub := realtime.NewHub()
	dispatcher := services.NewDispatcher(db, hub)

	scheduler := services.NewRetryScheduler(dispatcher.Store(), dispatcher)
	scheduler.Start()
	defer scheduler.Stop()

	// 50 requests per second per IP
	rateLimiter := middlewares.NewRateLimiter(50, 1)

	r := router.SetupRouter(db, hub, dispatcher)
	r.Use(rateLimiter.RateLimit())

	r.SetTrustedProxies([]string{"127.0.0.1", "localhost"})

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	utils.InfoLogger.Printf("Listening on port %s", port)
	if err := r.Run(":" + port); err != nil {
		utils.ErrorLogger.Fatal(err)
	}
}

func autoMigrate(db *gorm.DB) {
	err := db.AutoMigrate(
		&models.User{},
		&models.NotificationType{},
		&models.NotificationTemplate{},
		&models.Notification{},
		&models.NotificationPreference{},
		&models.NotificationTypePreference{},
		&models.NotificationLog{},
	)
	if err != nil {
		utils.ErrorLogger.Fatalf("Failed to AutoMigrate: %v", err)
	}
	utils.InfoLogger.Println("AutoMigrate completed.")
}

// seedNotificationTypes installs the default catalog on first boot
func seedNotificationTypes(db *gorm.DB) {
	defaults := []models.NotificationType{
		{Name: "Appointment Booked", Description: "A new appointment was scheduled", Priority: models.PriorityMedium,
			IsActive: true, EmailEnabled: true, PushEnabled: true, InAppEnabled: true},
		{Name: "Appointment Cancelled", Description: "An appointment was cancelled", Priority: models.PriorityHigh,
			IsActive: true, EmailEnabled: true, SMSEnabled: true, PushEnabled: true, InAppEnabled: true},
		{Name: "Critical Lab Result", Description: "A lab result needs immediate attention", Priority: models.PriorityUrgent,
			IsActive: true, EmailEnabled: true, SMSEnabled: true, PushEnabled: true, InAppEnabled: true},
		{Name: "Payment Due", Description: "An invoice is awaiting payment", Priority: models.PriorityLow,
			IsActive: true, EmailEnabled: true, InAppEnabled: true},
		{Name: "Welcome", Description: "Welcome notifications for new users", Priority: models.PriorityLow,
			IsActive: true, InAppEnabled: true},
	}

	for i := range defaults {
		var existing models.NotificationType
		if err := db.Where("name = ?", defaults[i].Name).First(&existing).Error; err == nil {
			continue
		}
		if err := db.Create(&defaults[i]).Error; err != nil {
			utils.ErrorLogger.Printf("Error seeding notification type %q: %v", defaults[i].Name, err)
		}
	}
}
