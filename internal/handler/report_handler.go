package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/lms-api/internal/models"
	"github.com/noah-isme/lms-api/internal/service"
	appErrors "github.com/noah-isme/lms-api/pkg/errors"
	"github.com/noah-isme/lms-api/pkg/response"
)

type reportService interface {
	Generate(ctx context.Context, actor models.Actor, kind service.ReportKind, format service.ReportFormat) (*service.ReportFile, error)
}

// ReportHandler streams CSV and PDF exports.
type ReportHandler struct {
	reports reportService
	enabled bool
}

// NewReportHandler constructs handler. A disabled handler answers every request with 404.
func NewReportHandler(reports reportService, enabled bool) *ReportHandler {
	return &ReportHandler{reports: reports, enabled: enabled}
}

// Download godoc
// @Summary Download a report
// @Description Admins export users, courses or enrollments. Instructors use /reports/instructor/{kind} for their own courses.
// @Tags Reports
// @Produce text/csv
// @Produce application/pdf
// @Param kind path string true "users, courses or enrollments"
// @Param format query string false "csv (default) or pdf"
// @Success 200 {file} file
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Security BearerAuth
// @Router /reports/{kind} [get]
func (h *ReportHandler) Download(c *gin.Context) {
	if !h.enabled || h.reports == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrNotFound, "reports are disabled"))
		return
	}
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	file, err := h.reports.Generate(c.Request.Context(), actor, service.ReportKind(c.Param("kind")), service.ParseReportFormat(c.Query("format")))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, file.Filename, file.ContentType, file.Payload)
}
