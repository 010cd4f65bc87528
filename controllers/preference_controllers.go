package controllers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/hospital-app/models"
	"github.com/yeremiapane/hospital-app/utils"
	"gorm.io/gorm"
)

type PreferenceController struct {
	DB *gorm.DB
}

func NewPreferenceController(db *gorm.DB) *PreferenceController {
	return &PreferenceController{DB: db}
}

// GetPreferences -> the user's stored row, or the system defaults when none
// exists yet (the row itself is only created on first write)
func (pc *PreferenceController) GetPreferences(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		utils.RespondError(c, http.StatusUnauthorized, errors.New("user id not found in context"))
		return
	}

	var pref models.NotificationPreference
	err := pc.DB.Where("user_id = ?", userID).First(&pref).Error
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			utils.RespondError(c, http.StatusInternalServerError, err)
			return
		}
		pref = models.DefaultPreference(userID)
	}

	utils.RespondJSON(c, http.StatusOK, "Notification preferences", pref)
}

// UpdatePreferences -> upsert the user's global preference row
func (pc *PreferenceController) UpdatePreferences(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		utils.RespondError(c, http.StatusUnauthorized, errors.New("user id not found in context"))
		return
	}

	type reqBody struct {
		EmailEnabled      *bool   `json:"email_enabled"`
		SMSEnabled        *bool   `json:"sms_enabled"`
		PushEnabled       *bool   `json:"push_enabled"`
		InAppEnabled      *bool   `json:"in_app_enabled"`
		QuietHoursEnabled *bool   `json:"quiet_hours_enabled"`
		QuietStartTime    *string `json:"quiet_start_time"`
		QuietEndTime      *string `json:"quiet_end_time"`
		DigestEnabled     *bool   `json:"digest_enabled"`
		DigestFrequency   *string `json:"digest_frequency"`
	}
	var body reqBody
	if err := c.ShouldBindJSON(&body); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	if body.QuietStartTime != nil && !validClock(*body.QuietStartTime) {
		utils.RespondError(c, http.StatusBadRequest, errors.New("quiet_start_time must be HH:MM"))
		return
	}
	if body.QuietEndTime != nil && !validClock(*body.QuietEndTime) {
		utils.RespondError(c, http.StatusBadRequest, errors.New("quiet_end_time must be HH:MM"))
		return
	}
	if body.DigestFrequency != nil &&
		*body.DigestFrequency != models.DigestDaily && *body.DigestFrequency != models.DigestWeekly {
		utils.RespondError(c, http.StatusBadRequest, errors.New("digest_frequency must be DAILY or WEEKLY"))
		return
	}

	// Lazy creation with system defaults on first write
	var pref models.NotificationPreference
	err := pc.DB.Where("user_id = ?", userID).First(&pref).Error
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			utils.RespondError(c, http.StatusInternalServerError, err)
			return
		}
		pref = models.DefaultPreference(userID)
	}

	applyBool := func(dst *bool, src *bool) {
		if src != nil {
			*dst = *src
		}
	}
	applyBool(&pref.EmailEnabled, body.EmailEnabled)
	applyBool(&pref.SMSEnabled, body.SMSEnabled)
	applyBool(&pref.PushEnabled, body.PushEnabled)
	applyBool(&pref.InAppEnabled, body.InAppEnabled)
	applyBool(&pref.QuietHoursEnabled, body.QuietHoursEnabled)
	applyBool(&pref.DigestEnabled, body.DigestEnabled)
	if body.QuietStartTime != nil {
		pref.QuietStartTime = *body.QuietStartTime
	}
	if body.QuietEndTime != nil {
		pref.QuietEndTime = *body.QuietEndTime
	}
	if body.DigestFrequency != nil {
		pref.DigestFrequency = *body.DigestFrequency
	}

	if err := pc.DB.Save(&pref).Error; err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}

	utils.RespondJSON(c, http.StatusOK, "Preferences updated", pref)
}

// GetTypePreference -> the override row for one type, or the inherit-global
// defaults when no override is stored
func (pc *PreferenceController) GetTypePreference(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		utils.RespondError(c, http.StatusUnauthorized, errors.New("user id not found in context"))
		return
	}

	typeID, err := strconv.Atoi(c.Param("type_id"))
	if err != nil {
		utils.RespondError(c, http.StatusBadRequest, errors.New("invalid type id"))
		return
	}

	var ntype models.NotificationType
	if err := pc.DB.First(&ntype, typeID).Error; err != nil {
		utils.RespondError(c, http.StatusNotFound, errors.New("notification type not found"))
		return
	}

	var tp models.NotificationTypePreference
	err = pc.DB.Where("user_id = ? AND notification_type_id = ?", userID, ntype.ID).First(&tp).Error
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			utils.RespondError(c, http.StatusInternalServerError, err)
			return
		}
		utils.RespondJSON(c, http.StatusOK, "Type preference (inherited)", gin.H{
			"type_id":   ntype.ID,
			"inherited": true,
		})
		return
	}

	utils.RespondJSON(c, http.StatusOK, "Type preference", tp)
}

// UpdateTypePreference -> upsert the per-(user, type) override row.
// The override replaces the global toggles for that type entirely.
func (pc *PreferenceController) UpdateTypePreference(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		utils.RespondError(c, http.StatusUnauthorized, errors.New("user id not found in context"))
		return
	}

	typeID, err := strconv.Atoi(c.Param("type_id"))
	if err != nil {
		utils.RespondError(c, http.StatusBadRequest, errors.New("invalid type id"))
		return
	}

	var ntype models.NotificationType
	if err := pc.DB.First(&ntype, typeID).Error; err != nil {
		utils.RespondError(c, http.StatusNotFound, errors.New("notification type not found"))
		return
	}

	type reqBody struct {
		EmailEnabled bool `json:"email_enabled"`
		SMSEnabled   bool `json:"sms_enabled"`
		PushEnabled  bool `json:"push_enabled"`
		InAppEnabled bool `json:"in_app_enabled"`
	}
	var body reqBody
	if err := c.ShouldBindJSON(&body); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	var tp models.NotificationTypePreference
	err = pc.DB.Where("user_id = ? AND notification_type_id = ?", userID, ntype.ID).First(&tp).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}
	tp.UserID = userID
	tp.NotificationTypeID = ntype.ID
	tp.EmailEnabled = body.EmailEnabled
	tp.SMSEnabled = body.SMSEnabled
	tp.PushEnabled = body.PushEnabled
	tp.InAppEnabled = body.InAppEnabled

	if err := pc.DB.Save(&tp).Error; err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}

	utils.RespondJSON(c, http.StatusOK, "Type preference updated", tp)
}

// DeleteTypePreference -> remove the override, reverting to "inherit global"
func (pc *PreferenceController) DeleteTypePreference(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		utils.RespondError(c, http.StatusUnauthorized, errors.New("user id not found in context"))
		return
	}

	typeID, err := strconv.Atoi(c.Param("type_id"))
	if err != nil {
		utils.RespondError(c, http.StatusBadRequest, errors.New("invalid type id"))
		return
	}

	if err := pc.DB.Where("user_id = ? AND notification_type_id = ?", userID, typeID).
		Delete(&models.NotificationTypePreference{}).Error; err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Type preference removed", gin.H{"type_id": typeID})
}

func validClock(clock string) bool {
	_, err := time.Parse("15:04", clock)
	return err == nil
}
