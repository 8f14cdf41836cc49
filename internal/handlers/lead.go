package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/anuragind003/cdp-backend/internal/services"
)

type LeadHandler struct {
	ingestionService services.IngestionService
}

func NewLeadHandler(ingestionService services.IngestionService) *LeadHandler {
	return &LeadHandler{ingestionService: ingestionService}
}

func (lh *LeadHandler) Create(c *gin.Context) {
	var input services.LeadInput
	if err := c.ShouldBindJSON(&input); err != nil {
		RespondError(c, http.StatusBadRequest, "bad_request", err)
		return
	}
	result, err := lh.ingestionService.ProcessLead(c.Request.Context(), &input)
	if err != nil {
		RespondError(c, http.StatusUnprocessableEntity, "lead_rejected", err)
		return
	}
	RespondOK(c, gin.H{"lead": result})
}
