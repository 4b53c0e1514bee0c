package handler

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/noah-isme/obe-attainment-api/internal/service"
	appErrors "github.com/noah-isme/obe-attainment-api/pkg/errors"
	"github.com/noah-isme/obe-attainment-api/pkg/export"
	"github.com/noah-isme/obe-attainment-api/pkg/response"
)

// ExportHandler renders attainment reports as downloadable files.
type ExportHandler struct {
	reports  *service.ReportService
	csv      *export.CSVExporter
	pdf      *export.PDFExporter
	validate *validator.Validate
}

// NewExportHandler constructs handler.
func NewExportHandler(reports *service.ReportService) *ExportHandler {
	return &ExportHandler{
		reports:  reports,
		csv:      export.NewCSVExporter(),
		pdf:      export.NewPDFExporter(),
		validate: validator.New(),
	}
}

type exportQuery struct {
	Format string `form:"format" validate:"required,oneof=csv pdf"`
	Report string `form:"report" validate:"required,oneof=combined final"`
}

// Export godoc
// @Summary Export attainment results as CSV or PDF
// @Tags Attainment
// @Produce octet-stream
// @Param id path string true "Course ID"
// @Param format query string false "csv or pdf" default(csv)
// @Param report query string false "combined or final" default(combined)
// @Success 200 {file} file
// @Router /courses/{id}/attainment/export [get]
func (h *ExportHandler) Export(c *gin.Context) {
	courseID := c.Param("id")
	query := exportQuery{
		Format: c.DefaultQuery("format", "csv"),
		Report: c.DefaultQuery("report", "combined"),
	}
	if err := h.validate.Struct(query); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "format must be csv or pdf, report must be combined or final"))
		return
	}

	attainment, err := h.reports.CourseAttainment(c.Request.Context(), courseID)
	if err != nil {
		response.Error(c, err)
		return
	}

	var dataset export.Dataset
	var title string
	switch query.Report {
	case "combined":
		dataset = export.CombinedAttainmentDataset(attainment.Combined)
		title = "Combined CO Attainment"
	case "final":
		dataset = export.FinalCompositionDataset(attainment.Finals)
		title = "Final CIE Composition"
	}

	filename := fmt.Sprintf("attainment-%s-%s", query.Report, courseID)
	switch query.Format {
	case "csv":
		payload, err := h.csv.Render(dataset)
		if err != nil {
			response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render csv"))
			return
		}
		c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s.csv", filename))
		c.Data(http.StatusOK, "text/csv", payload)
	case "pdf":
		payload, err := h.pdf.Render(dataset, title)
		if err != nil {
			response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render pdf"))
			return
		}
		c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s.pdf", filename))
		c.Data(http.StatusOK, "application/pdf", payload)
	}
}
