package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/anuragind003/cdp-backend/internal/services"
)

type OfferHandler struct {
	offerService services.OfferService
}

func NewOfferHandler(offerService services.OfferService) *OfferHandler {
	return &OfferHandler{offerService: offerService}
}

func (oh *OfferHandler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("offerID"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "bad_request", err)
		return
	}
	offer, err := oh.offerService.GetByID(c.Request.Context(), id)
	if err != nil {
		RespondError(c, http.StatusNotFound, "not_found", err)
		return
	}
	RespondOK(c, gin.H{"offer": offer})
}

func (oh *OfferHandler) ListByCustomer(c *gin.Context) {
	customerID, err := uuid.Parse(c.Param("customerID"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "bad_request", err)
		return
	}
	offers, err := oh.offerService.ListByCustomer(c.Request.Context(), customerID)
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "internal_error", err)
		return
	}
	RespondOK(c, gin.H{"offers": offers})
}

func (oh *OfferHandler) History(c *gin.Context) {
	id, err := uuid.Parse(c.Param("offerID"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "bad_request", err)
		return
	}
	history, err := oh.offerService.History(c.Request.Context(), id)
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "internal_error", err)
		return
	}
	RespondOK(c, gin.H{"history": history})
}
