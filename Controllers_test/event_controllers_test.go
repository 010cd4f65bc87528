package Controllers_test

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/yeremiapane/hospital-app/models"
)

func TestSubmitEventAccepted(t *testing.T) {
	db := setupTestDB(t)
	doctor := seedUser(t, db, "Doc Doctor", models.RoleDoctor)
	patient := seedUser(t, db, "Pat Patient", models.RolePatient)
	seedType(t, db, "Appointment Booked", models.PriorityMedium)

	router, dispatcher := setupRouterForTest(db, doctor.ID, doctor.Role)

	w := doJSON(t, router, "POST", "/admin/events", map[string]interface{}{
		"type_name":    "Appointment Booked",
		"recipient_id": patient.ID,
		"title":        "Appointment Booked",
		"message":      "See you Monday at 10:00",
		"data":         map[string]interface{}{"appointment_id": 42},
	})
	assert.Equal(t, http.StatusAccepted, w.Code)
	dispatcher.Wait()

	resp := parseBody(t, w)
	assert.Equal(t, true, resp["status"])
	data := resp["data"].(map[string]interface{})
	ids := data["notification_ids"].([]interface{})
	// email + in_app + websocket for the seeded type
	assert.Len(t, ids, 3)

	var count int64
	db.Model(&models.Notification{}).Where("recipient_id = ?", patient.ID).Count(&count)
	assert.Equal(t, int64(3), count)
}

func TestSubmitEventUnknownType(t *testing.T) {
	db := setupTestDB(t)
	doctor := seedUser(t, db, "Doc Doctor", models.RoleDoctor)
	patient := seedUser(t, db, "Pat Patient", models.RolePatient)
	router, _ := setupRouterForTest(db, doctor.ID, doctor.Role)

	w := doJSON(t, router, "POST", "/admin/events", map[string]interface{}{
		"type_name":    "No Such Type",
		"recipient_id": patient.ID,
		"title":        "x",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSubmitEventUnknownRecipient(t *testing.T) {
	db := setupTestDB(t)
	doctor := seedUser(t, db, "Doc Doctor", models.RoleDoctor)
	seedType(t, db, "Appointment Booked", models.PriorityMedium)
	router, _ := setupRouterForTest(db, doctor.ID, doctor.Role)

	w := doJSON(t, router, "POST", "/admin/events", map[string]interface{}{
		"type_name":    "Appointment Booked",
		"recipient_id": 9999,
		"title":        "x",
	})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSubmitEventMissingFields(t *testing.T) {
	db := setupTestDB(t)
	doctor := seedUser(t, db, "Doc Doctor", models.RoleDoctor)
	router, _ := setupRouterForTest(db, doctor.ID, doctor.Role)

	w := doJSON(t, router, "POST", "/admin/events", map[string]interface{}{
		"type_name": "Appointment Booked",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSubmitEventRequiresClinicalRole(t *testing.T) {
	db := setupTestDB(t)
	patient := seedUser(t, db, "Pat Patient", models.RolePatient)
	seedType(t, db, "Appointment Booked", models.PriorityMedium)

	// Patients cannot submit events
	router, _ := setupRouterForTest(db, patient.ID, patient.Role)
	w := doJSON(t, router, "POST", "/admin/events", map[string]interface{}{
		"type_name":    "Appointment Booked",
		"recipient_id": patient.ID,
		"title":        "x",
	})
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestSubmitEventAllChannelsFailRender(t *testing.T) {
	db := setupTestDB(t)
	doctor := seedUser(t, db, "Doc Doctor", models.RoleDoctor)
	patient := seedUser(t, db, "Pat Patient", models.RolePatient)
	ntype := seedType(t, db, "Appointment Booked", models.PriorityMedium)

	// Every eligible channel gets a template demanding a missing variable
	for _, channel := range []string{models.ChannelEmail, models.ChannelInApp, models.ChannelWebsocket} {
		tmpl := models.NotificationTemplate{
			NotificationTypeID: ntype.ID,
			Channel:            channel,
			MessageTemplate:    "{{.missing_var}}",
			IsActive:           true,
		}
		assert.NoError(t, db.Create(&tmpl).Error)
	}

	router, _ := setupRouterForTest(db, doctor.ID, doctor.Role)
	w := doJSON(t, router, "POST", "/admin/events", map[string]interface{}{
		"type_name":    "Appointment Booked",
		"recipient_id": patient.ID,
		"title":        "Appointment Booked",
		"message":      "See you Monday",
	})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	var count int64
	db.Model(&models.Notification{}).Where("recipient_id = ?", patient.ID).Count(&count)
	assert.Equal(t, int64(0), count)
}
