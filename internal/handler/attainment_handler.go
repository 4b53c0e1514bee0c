package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/obe-attainment-api/internal/service"
	appErrors "github.com/noah-isme/obe-attainment-api/pkg/errors"
	"github.com/noah-isme/obe-attainment-api/pkg/jobs"
	"github.com/noah-isme/obe-attainment-api/pkg/response"
)

// AttainmentHandler exposes the attainment pipeline and its read endpoints.
type AttainmentHandler struct {
	pipeline *service.PipelineService
	reports  *service.ReportService
	queue    *jobs.RunQueue
}

// NewAttainmentHandler constructs handler.
func NewAttainmentHandler(pipeline *service.PipelineService, reports *service.ReportService, queue *jobs.RunQueue) *AttainmentHandler {
	return &AttainmentHandler{pipeline: pipeline, reports: reports, queue: queue}
}

// Run godoc
// @Summary Run the attainment pipeline for a course
// @Tags Attainment
// @Produce json
// @Param id path string true "Course ID"
// @Param async query bool false "Enqueue instead of waiting"
// @Success 200 {object} response.Envelope
// @Success 202 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /courses/{id}/attainment/run [post]
func (h *AttainmentHandler) Run(c *gin.Context) {
	courseID := c.Param("id")

	if c.Query("async") == "true" && h.queue != nil {
		accepted, err := h.queue.Enqueue(courseID)
		if err != nil {
			response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to enqueue attainment run"))
			return
		}
		if !accepted {
			response.Error(c, appErrors.ErrRunInProgress)
			return
		}
		response.Accepted(c, gin.H{"course_id": courseID, "status": "queued"})
		return
	}

	result, err := h.pipeline.Run(c.Request.Context(), courseID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// CourseAttainment godoc
// @Summary Course-wide CO attainment report
// @Tags Attainment
// @Produce json
// @Param id path string true "Course ID"
// @Success 200 {object} response.Envelope
// @Router /courses/{id}/attainment [get]
func (h *AttainmentHandler) CourseAttainment(c *gin.Context) {
	report, err := h.reports.CourseAttainment(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, report, nil)
}

// FinalComposition godoc
// @Summary Final continuous-assessment composition per student
// @Tags Attainment
// @Produce json
// @Param id path string true "Course ID"
// @Success 200 {object} response.Envelope
// @Router /courses/{id}/attainment/final [get]
func (h *AttainmentHandler) FinalComposition(c *gin.Context) {
	report, err := h.reports.CourseAttainment(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, report.Finals, nil)
}

// AssessmentAnalysis godoc
// @Summary Vertical, horizontal and summary analysis of one assessment
// @Tags Attainment
// @Produce json
// @Param id path string true "Assessment ID"
// @Success 200 {object} response.Envelope
// @Router /assessments/{id}/analysis [get]
func (h *AttainmentHandler) AssessmentAnalysis(c *gin.Context) {
	analysis, err := h.reports.AssessmentAnalysis(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, analysis, nil)
}
