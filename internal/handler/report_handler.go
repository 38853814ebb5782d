package handler

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	appErrors "github.com/baudigital/bauform-api/pkg/errors"
	"github.com/baudigital/bauform-api/pkg/response"
)

type reportService interface {
	Render(ctx context.Context, id string) ([]byte, string, error)
}

type reportCounter interface {
	CountReport()
}

// ReportHandler streams the PDF summary of one form.
type ReportHandler struct {
	service reportService
	metrics reportCounter
}

// NewReportHandler constructs the handler.
func NewReportHandler(service reportService, metrics reportCounter) *ReportHandler {
	return &ReportHandler{service: service, metrics: metrics}
}

// Download godoc
// @Summary Download the PDF summary of a form
// @Tags Reports
// @Produce application/pdf
// @Param id query string true "Form ID"
// @Success 200 {file} binary
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /report [get]
func (h *ReportHandler) Download(c *gin.Context) {
	id := c.Query("id")
	if id == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "form id is required"))
		return
	}

	payload, filename, err := h.service.Render(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	if h.metrics != nil {
		h.metrics.CountReport()
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s", filename))
	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, "application/pdf", payload)
}
