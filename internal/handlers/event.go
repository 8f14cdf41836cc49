package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/anuragind003/cdp-backend/internal/services"
)

type EventHandler struct {
	eventService services.EventService
}

func NewEventHandler(eventService services.EventService) *EventHandler {
	return &EventHandler{eventService: eventService}
}

func (eh *EventHandler) Create(c *gin.Context) {
	var input services.EventInput
	if err := c.ShouldBindJSON(&input); err != nil {
		RespondError(c, http.StatusBadRequest, "bad_request", err)
		return
	}
	event, err := eh.eventService.Record(c.Request.Context(), &input)
	if err != nil {
		RespondError(c, http.StatusUnprocessableEntity, "event_rejected", err)
		return
	}
	RespondOK(c, gin.H{"event": event})
}
