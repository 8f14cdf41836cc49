package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/anuragind003/cdp-backend/internal/services"
)

type IngestionHandler struct {
	ingestionService services.IngestionService
}

func NewIngestionHandler(ingestionService services.IngestionService) *IngestionHandler {
	return &IngestionHandler{ingestionService: ingestionService}
}

// Upload accepts a multipart CSV under the "file" field and processes it
// synchronously, returning the finished run with its counts and row errors.
func (ih *IngestionHandler) Upload(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		RespondError(c, http.StatusBadRequest, "bad_request", err)
		return
	}
	f, err := fileHeader.Open()
	if err != nil {
		RespondError(c, http.StatusBadRequest, "bad_request", err)
		return
	}
	defer f.Close()

	run, err := ih.ingestionService.UploadCSV(c.Request.Context(), fileHeader.Filename, f)
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "internal_error", err)
		return
	}
	RespondOK(c, gin.H{"run": run})
}

// LatestRun returns the newest run for ?source= (defaults to offermart).
func (ih *IngestionHandler) LatestRun(c *gin.Context) {
	run, err := ih.ingestionService.LatestRun(c.Request.Context(), c.Query("source"))
	if err != nil {
		RespondError(c, http.StatusNotFound, "not_found", err)
		return
	}
	RespondOK(c, gin.H{"run": run})
}

func (ih *IngestionHandler) GetRun(c *gin.Context) {
	id, err := uuid.Parse(c.Param("runID"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "bad_request", err)
		return
	}
	run, err := ih.ingestionService.GetRun(c.Request.Context(), id)
	if err != nil {
		RespondError(c, http.StatusNotFound, "not_found", err)
		return
	}
	RespondOK(c, gin.H{"run": run})
}
