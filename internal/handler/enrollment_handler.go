package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/lms-api/internal/models"
	"github.com/noah-isme/lms-api/internal/service"
	"github.com/noah-isme/lms-api/pkg/response"
)

type enrollmentService interface {
	Enroll(ctx context.Context, courseID, studentID int64) (*service.EnrollmentResult, error)
	EnrollByEmail(ctx context.Context, actor models.Actor, courseID int64, req service.EnrollByEmailRequest) (*service.EnrollmentResult, error)
	RemoveEnrollment(ctx context.Context, actor models.Actor, enrollmentID int64) error
	SetStatus(ctx context.Context, actor models.Actor, enrollmentID int64, req service.SetStatusRequest) (*models.Enrollment, error)
	ListForCourse(ctx context.Context, actor models.Actor, courseID int64) ([]models.EnrollmentDetail, error)
	ListForStudent(ctx context.Context, actor models.Actor, studentID int64) ([]models.EnrollmentDetail, error)
}

// EnrollmentHandler exposes roster management for course managers.
type EnrollmentHandler struct {
	enrollments enrollmentService
}

// NewEnrollmentHandler constructs EnrollmentHandler.
func NewEnrollmentHandler(enrollments enrollmentService) *EnrollmentHandler {
	return &EnrollmentHandler{enrollments: enrollments}
}

// ListForCourse godoc
// @Summary List course enrollments
// @Tags Enrollments
// @Produce json
// @Param id path int true "Course ID"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Security BearerAuth
// @Router /courses/{id}/enrollments [get]
func (h *EnrollmentHandler) ListForCourse(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	courseID, ok := idParam(c, "id")
	if !ok {
		return
	}
	enrollments, err := h.enrollments.ListForCourse(c.Request.Context(), actor, courseID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, enrollments, nil)
}

// EnrollByEmail godoc
// @Summary Enroll a student by email
// @Description Returns 201 for a new enrollment and 200 when the student was already enrolled
// @Tags Enrollments
// @Accept json
// @Produce json
// @Param id path int true "Course ID"
// @Param payload body service.EnrollByEmailRequest true "Student email"
// @Success 200 {object} response.Envelope
// @Success 201 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Security BearerAuth
// @Router /courses/{id}/enrollments [post]
func (h *EnrollmentHandler) EnrollByEmail(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	courseID, ok := idParam(c, "id")
	if !ok {
		return
	}
	var req service.EnrollByEmailRequest
	if !bindJSON(c, &req) {
		return
	}
	result, err := h.enrollments.EnrollByEmail(c.Request.Context(), actor, courseID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	respondEnrollment(c, result)
}

// SetStatus godoc
// @Summary Change enrollment status
// @Description COMPLETED records every outstanding lesson for the student
// @Tags Enrollments
// @Accept json
// @Produce json
// @Param id path int true "Enrollment ID"
// @Param payload body service.SetStatusRequest true "Status payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Security BearerAuth
// @Router /enrollments/{id}/status [patch]
func (h *EnrollmentHandler) SetStatus(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var req service.SetStatusRequest
	if !bindJSON(c, &req) {
		return
	}
	enrollment, err := h.enrollments.SetStatus(c.Request.Context(), actor, id, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, enrollment, nil)
}

// Remove godoc
// @Summary Remove an enrollment
// @Description Lesson progress is kept
// @Tags Enrollments
// @Param id path int true "Enrollment ID"
// @Success 204 {object} response.Envelope
// @Security BearerAuth
// @Router /enrollments/{id} [delete]
func (h *EnrollmentHandler) Remove(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	if err := h.enrollments.RemoveEnrollment(c.Request.Context(), actor, id); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

func respondEnrollment(c *gin.Context, result *service.EnrollmentResult) {
	status := http.StatusOK
	if result.Created {
		status = http.StatusCreated
	}
	response.JSON(c, status, result, nil)
}
