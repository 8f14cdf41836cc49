package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/anuragind003/cdp-backend/internal/services"
)

type ExportHandler struct {
	exportService services.ExportService
}

func NewExportHandler(exportService services.ExportService) *ExportHandler {
	return &ExportHandler{exportService: exportService}
}

func csvHeaders(c *gin.Context, name string) {
	c.Header("Content-Type", "text/csv")
	c.Header("Content-Disposition", `attachment; filename="`+name+`"`)
}

func (eh *ExportHandler) Moengage(c *gin.Context) {
	csvHeaders(c, "moengage.csv")
	if _, err := eh.exportService.WriteMoengageCSV(c.Request.Context(), c.Writer); err != nil {
		c.Status(http.StatusInternalServerError)
		return
	}
}

func (eh *ExportHandler) Duplicates(c *gin.Context) {
	since, err := sinceParam(c)
	if err != nil {
		RespondError(c, http.StatusBadRequest, "bad_request", err)
		return
	}
	csvHeaders(c, "duplicates.csv")
	if _, err := eh.exportService.WriteDuplicatesCSV(c.Request.Context(), c.Writer, since); err != nil {
		c.Status(http.StatusInternalServerError)
		return
	}
}

func (eh *ExportHandler) Uniques(c *gin.Context) {
	since, err := sinceParam(c)
	if err != nil {
		RespondError(c, http.StatusBadRequest, "bad_request", err)
		return
	}
	csvHeaders(c, "uniques.csv")
	if _, err := eh.exportService.WriteUniquesCSV(c.Request.Context(), c.Writer, since); err != nil {
		c.Status(http.StatusInternalServerError)
		return
	}
}

func (eh *ExportHandler) RunErrors(c *gin.Context) {
	runID, err := uuid.Parse(c.Param("runID"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "bad_request", err)
		return
	}
	csvHeaders(c, "errors-"+runID.String()+".csv")
	if _, err := eh.exportService.WriteRunErrorsCSV(c.Request.Context(), c.Writer, runID); err != nil {
		c.Status(http.StatusInternalServerError)
		return
	}
}

// sinceParam parses an optional ?since=2006-01-02 cutoff, defaulting to the
// last 24 hours.
func sinceParam(c *gin.Context) (time.Time, error) {
	raw := c.Query("since")
	if raw == "" {
		return time.Now().Add(-24 * time.Hour), nil
	}
	return time.Parse("2006-01-02", raw)
}
