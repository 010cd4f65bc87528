package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/hospital-app/models"
	"github.com/yeremiapane/hospital-app/services"
	"github.com/yeremiapane/hospital-app/utils"
)

type NotificationTypeController struct {
	Registry *services.TypeRegistry
}

func NewNotificationTypeController(registry *services.TypeRegistry) *NotificationTypeController {
	return &NotificationTypeController{Registry: registry}
}

// GetAllTypes -> the full notification catalog
func (tc *NotificationTypeController) GetAllTypes(c *gin.Context) {
	types, err := tc.Registry.List()
	if err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Notification types", types)
}

// CreateType -> add a catalog entry (admin only)
func (tc *NotificationTypeController) CreateType(c *gin.Context) {
	type reqBody struct {
		Name         string `json:"name" binding:"required"`
		Description  string `json:"description"`
		Priority     string `json:"priority"`
		EmailEnabled *bool  `json:"email_enabled"`
		SMSEnabled   bool   `json:"sms_enabled"`
		PushEnabled  *bool  `json:"push_enabled"`
		InAppEnabled *bool  `json:"in_app_enabled"`
	}
	var body reqBody
	if err := c.ShouldBindJSON(&body); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	enabled := func(v *bool) bool {
		if v == nil {
			return true
		}
		return *v
	}

	ntype := models.NotificationType{
		Name:         body.Name,
		Description:  body.Description,
		Priority:     body.Priority,
		IsActive:     true,
		EmailEnabled: enabled(body.EmailEnabled),
		SMSEnabled:   body.SMSEnabled,
		PushEnabled:  enabled(body.PushEnabled),
		InAppEnabled: enabled(body.InAppEnabled),
	}

	if err := tc.Registry.Create(&ntype); err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}

	utils.InfoLogger.Printf("Notification type created: %s (priority=%s)", ntype.Name, ntype.Priority)
	utils.RespondJSON(c, http.StatusCreated, "Notification type created", ntype)
}
