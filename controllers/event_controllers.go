package controllers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/hospital-app/services"
	"github.com/yeremiapane/hospital-app/utils"
)

// EventController is the entry point for collaborator modules (appointments,
// billing, lab results). They submit an event; the dispatcher fans it out.
type EventController struct {
	Dispatcher *services.Dispatcher
}

func NewEventController(dispatcher *services.Dispatcher) *EventController {
	return &EventController{Dispatcher: dispatcher}
}

// SubmitEvent -> one domain event in, zero or more delivery records out
func (ec *EventController) SubmitEvent(c *gin.Context) {
	var ev services.Event
	if err := c.ShouldBindJSON(&ev); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	ids, err := ec.Dispatcher.Dispatch(c.Request.Context(), ev, auditFromContext(c))
	if err != nil {
		switch {
		case errors.Is(err, services.ErrUnknownType):
			utils.RespondError(c, http.StatusBadRequest, err)
			return
		case errors.Is(err, services.ErrUnknownRecipient):
			utils.RespondError(c, http.StatusNotFound, err)
			return
		case len(ids) == 0:
			// Every channel failed to render, nothing was persisted
			utils.RespondError(c, http.StatusUnprocessableEntity, err)
			return
		}
		// Partial render failure: siblings were still dispatched
		utils.InfoLogger.Printf("Event %q partially dispatched: %v", ev.TypeName, err)
	}

	utils.RespondJSON(c, http.StatusAccepted, "Event accepted", gin.H{
		"notification_ids": ids,
		"channels":         len(ids),
	})
}
