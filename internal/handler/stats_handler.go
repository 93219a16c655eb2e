package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/lms-api/internal/models"
	"github.com/noah-isme/lms-api/pkg/response"
)

type statsService interface {
	CourseCompletion(ctx context.Context, actor models.Actor, courseID int64) (*models.CourseCompletion, error)
	InstructorSummary(ctx context.Context, actor models.Actor, instructorID int64) (*models.InstructorSummary, error)
	StudentLessonProgress(ctx context.Context, actor models.Actor, studentID int64) (*models.StudentProgress, error)
	GlobalSummary(ctx context.Context, actor models.Actor) (*models.GlobalSummary, error)
}

// StatsHandler exposes completion statistics.
type StatsHandler struct {
	stats statsService
}

// NewStatsHandler constructs StatsHandler.
func NewStatsHandler(stats statsService) *StatsHandler {
	return &StatsHandler{stats: stats}
}

// Course godoc
// @Summary Course completion rate
// @Tags Stats
// @Produce json
// @Param id path int true "Course ID"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /courses/{id}/stats [get]
func (h *StatsHandler) Course(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	courseID, ok := idParam(c, "id")
	if !ok {
		return
	}
	stats, err := h.stats.CourseCompletion(c.Request.Context(), actor, courseID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, stats, nil)
}

// Instructor godoc
// @Summary Instructor summary
// @Tags Stats
// @Produce json
// @Param id path int true "Instructor ID"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /stats/instructors/{id} [get]
func (h *StatsHandler) Instructor(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	summary, err := h.stats.InstructorSummary(c.Request.Context(), actor, id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, summary, nil)
}

// Student godoc
// @Summary Student lesson progress
// @Tags Stats
// @Produce json
// @Param id path int true "Student ID"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /stats/students/{id} [get]
func (h *StatsHandler) Student(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	progress, err := h.stats.StudentLessonProgress(c.Request.Context(), actor, id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, progress, nil)
}

// Global godoc
// @Summary Platform summary
// @Tags Stats
// @Produce json
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /stats/global [get]
func (h *StatsHandler) Global(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	summary, err := h.stats.GlobalSummary(c.Request.Context(), actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, summary, nil)
}
