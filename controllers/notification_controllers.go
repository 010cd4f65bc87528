package controllers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/hospital-app/models"
	"github.com/yeremiapane/hospital-app/services"
	"github.com/yeremiapane/hospital-app/utils"
)

type NotificationController struct {
	Store *services.NotificationStore
}

func NewNotificationController(store *services.NotificationStore) *NotificationController {
	return &NotificationController{Store: store}
}

// GetMyNotifications -> paginated list for the authenticated user, newest first
func (nc *NotificationController) GetMyNotifications(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		utils.RespondError(c, http.StatusUnauthorized, errors.New("user id not found in context"))
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))

	notifs, total, err := nc.Store.ListByRecipient(userID, page, limit)
	if err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}

	utils.RespondJSON(c, http.StatusOK, "Notifications", gin.H{
		"notifications": notifs,
		"total":         total,
		"page":          page,
		"limit":         limit,
	})
}

// GetAllNotifications -> operator view across all recipients, including
// FAILED records; filterable by ?status= and ?channel=
func (nc *NotificationController) GetAllNotifications(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))

	notifs, total, err := nc.Store.ListAll(page, limit, c.Query("status"), c.Query("channel"))
	if err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}

	utils.RespondJSON(c, http.StatusOK, "All notifications", gin.H{
		"notifications": notifs,
		"total":         total,
		"page":          page,
		"limit":         limit,
	})
}

// GetUnreadCount -> count of PENDING/SENT/DELIVERED records for the user
func (nc *NotificationController) GetUnreadCount(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		utils.RespondError(c, http.StatusUnauthorized, errors.New("user id not found in context"))
		return
	}

	count, err := nc.Store.UnreadCount(userID)
	if err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Unread count", gin.H{"count": count})
}

// MarkNotificationRead -> idempotent; marking an already-read record is a no-op
func (nc *NotificationController) MarkNotificationRead(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		utils.RespondError(c, http.StatusUnauthorized, errors.New("user id not found in context"))
		return
	}

	publicID := c.Param("notif_id")
	transitioned, err := nc.Store.MarkRead(publicID, userID, auditFromContext(c))
	if err != nil {
		switch {
		case errors.Is(err, services.ErrNotFound):
			utils.RespondError(c, http.StatusNotFound, err)
		case errors.Is(err, services.ErrInvalidTransition):
			utils.RespondError(c, http.StatusConflict, err)
		default:
			utils.RespondError(c, http.StatusInternalServerError, err)
		}
		return
	}

	utils.RespondJSON(c, http.StatusOK, "Notification read", gin.H{
		"notification_id": publicID,
		"changed":         transitioned,
	})
}

// MarkAllNotificationsRead -> all unread records of the user
func (nc *NotificationController) MarkAllNotificationsRead(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		utils.RespondError(c, http.StatusUnauthorized, errors.New("user id not found in context"))
		return
	}

	changed, err := nc.Store.MarkAllRead(userID, auditFromContext(c))
	if err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "All notifications read", gin.H{"changed": changed})
}

// GetNotificationByID -> detail plus audit trail (operator diagnostics)
func (nc *NotificationController) GetNotificationByID(c *gin.Context) {
	publicID := c.Param("notif_id")

	notif, err := nc.Store.GetByPublicID(publicID)
	if err != nil {
		if errors.Is(err, services.ErrNotFound) {
			utils.RespondError(c, http.StatusNotFound, err)
			return
		}
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}

	// Recipients may only see their own records; operators see everything
	userID, _ := currentUserID(c)
	role, _ := c.Get("role")
	if notif.RecipientID != userID && role != models.RoleAdmin {
		utils.RespondError(c, http.StatusForbidden, errors.New("not your notification"))
		return
	}

	logs, err := nc.Store.Logs(notif.ID)
	if err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}

	utils.RespondJSON(c, http.StatusOK, "Notification detail", gin.H{
		"notification": notif,
		"logs":         logs,
	})
}

// ConfirmDelivered -> delivery confirmation callback for channels with an
// external transport (email/SMS/push); moves SENT to DELIVERED.
func (nc *NotificationController) ConfirmDelivered(c *gin.Context) {
	publicID := c.Param("notif_id")

	notif, err := nc.Store.GetByPublicID(publicID)
	if err != nil {
		if errors.Is(err, services.ErrNotFound) {
			utils.RespondError(c, http.StatusNotFound, err)
			return
		}
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}

	if err := nc.Store.MarkDelivered(notif.ID, auditFromContext(c)); err != nil {
		if errors.Is(err, services.ErrInvalidTransition) {
			utils.RespondError(c, http.StatusConflict, err)
			return
		}
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}

	utils.RespondJSON(c, http.StatusOK, "Delivery confirmed", gin.H{"notification_id": publicID})
}
