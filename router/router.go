package router

import (
	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/hospital-app/controllers"
	"github.com/yeremiapane/hospital-app/middlewares"
	"github.com/yeremiapane/hospital-app/models"
	"github.com/yeremiapane/hospital-app/realtime"
	"github.com/yeremiapane/hospital-app/services"
	"gorm.io/gorm"
)

func SetupRouter(db *gorm.DB, hub *realtime.Hub, dispatcher *services.Dispatcher) *gin.Engine {
	r := gin.Default()

	r.Use(middlewares.SecurityHeaders())
	r.Use(middlewares.CORSMiddlewares())
	r.Use(middlewares.LoggerMiddleware())

	userCtrl := controllers.NewUserController(db, dispatcher)
	eventCtrl := controllers.NewEventController(dispatcher)
	notifCtrl := controllers.NewNotificationController(dispatcher.Store())
	typeCtrl := controllers.NewNotificationTypeController(dispatcher.Registry())
	prefCtrl := controllers.NewPreferenceController(db)
	wsCtrl := controllers.NewWSController(hub, dispatcher.Store())

	// ----------------------------------------------------------------
	//                      PUBLIC ROUTES
	// ----------------------------------------------------------------
	r.GET("/ping", func(c *gin.Context) {
		c.JSON(200, gin.H{"message": "pong"})
	})

	public := r.Group("/")
	public.Use(middlewares.NewStrictRateLimiter())
	{
		public.POST("/register", userCtrl.Register)
		public.POST("/login", userCtrl.Login)
	}

	// Live notification stream (token via query param)
	wsGroup := r.Group("/ws")
	wsGroup.Use(middlewares.WebSocketAuthMiddleware())
	{
		wsGroup.GET("/notifications", wsCtrl.NotificationStream)
	}

	// ----------------------------------------------------------------
	//                      AUTHENTICATED ROUTES
	// ----------------------------------------------------------------
	auth := r.Group("/admin")
	auth.Use(middlewares.AuthMiddleware())

	auth.GET("/profile", userCtrl.GetProfile)

	// EVENT SUBMISSION (collaborator modules: appointments, billing, labs)
	auth.POST("/events",
		middlewares.RequireRoles(models.RoleDoctor, models.RoleNurse, models.RoleReceptionist),
		eventCtrl.SubmitEvent)

	// NOTIFICATIONS (every authenticated user sees their own)
	auth.GET("/notifications", notifCtrl.GetMyNotifications)
	auth.GET("/notifications/all", middlewares.RequireRoles(), notifCtrl.GetAllNotifications)
	auth.GET("/notifications/unread-count", notifCtrl.GetUnreadCount)
	auth.POST("/notifications/read-all", notifCtrl.MarkAllNotificationsRead)
	auth.GET("/notifications/:notif_id", notifCtrl.GetNotificationByID)
	auth.POST("/notifications/:notif_id/read", notifCtrl.MarkNotificationRead)
	auth.POST("/notifications/:notif_id/delivered",
		middlewares.RequireRoles(), // delivery callbacks are operator-only
		notifCtrl.ConfirmDelivered)

	// PREFERENCES
	auth.GET("/preferences", prefCtrl.GetPreferences)
	auth.PUT("/preferences", prefCtrl.UpdatePreferences)
	auth.GET("/preferences/types/:type_id", prefCtrl.GetTypePreference)
	auth.PUT("/preferences/types/:type_id", prefCtrl.UpdateTypePreference)
	auth.DELETE("/preferences/types/:type_id", prefCtrl.DeleteTypePreference)

	// NOTIFICATION TYPE CATALOG
	auth.GET("/notification-types", typeCtrl.GetAllTypes)
	auth.POST("/notification-types", middlewares.RequireRoles(), typeCtrl.CreateType)

	return r
}
