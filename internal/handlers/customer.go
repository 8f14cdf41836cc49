package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/anuragind003/cdp-backend/internal/services"
)

type CustomerHandler struct {
	customerService services.CustomerService
}

func NewCustomerHandler(customerService services.CustomerService) *CustomerHandler {
	return &CustomerHandler{customerService: customerService}
}

func (ch *CustomerHandler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("customerID"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "bad_request", err)
		return
	}
	customer, err := ch.customerService.GetByID(c.Request.Context(), id)
	if err != nil {
		RespondError(c, http.StatusNotFound, "not_found", err)
		return
	}
	RespondOK(c, gin.H{"customer": customer})
}

func (ch *CustomerHandler) ListEvents(c *gin.Context) {
	id, err := uuid.Parse(c.Param("customerID"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "bad_request", err)
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	events, err := ch.customerService.ListEvents(c.Request.Context(), id, limit, offset)
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "internal_error", err)
		return
	}
	RespondOK(c, gin.H{"events": events})
}
