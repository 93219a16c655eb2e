package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/lms-api/internal/models"
	"github.com/noah-isme/lms-api/internal/service"
	"github.com/noah-isme/lms-api/pkg/response"
)

type catalogService interface {
	Catalog(ctx context.Context, actor models.Actor, search string) ([]models.CatalogCourse, error)
}

type progressService interface {
	CompleteLesson(ctx context.Context, actor models.Actor, lessonID int64) (*service.LessonCompletionResult, error)
	CourseProgress(ctx context.Context, actor models.Actor, courseID int64) (*service.CourseProgressView, error)
}

type studentProgressService interface {
	StudentLessonProgress(ctx context.Context, actor models.Actor, studentID int64) (*models.StudentProgress, error)
}

// StudentHandler serves the student side: catalog, self enrollment and lesson progress.
type StudentHandler struct {
	catalog     catalogService
	enrollments enrollmentService
	progress    progressService
	stats       studentProgressService
}

// NewStudentHandler constructs StudentHandler.
func NewStudentHandler(catalog catalogService, enrollments enrollmentService, progress progressService, stats studentProgressService) *StudentHandler {
	return &StudentHandler{catalog: catalog, enrollments: enrollments, progress: progress, stats: stats}
}

// Catalog godoc
// @Summary Browse active courses
// @Tags Catalog
// @Produce json
// @Param search query string false "Matches title, description, category or instructor"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /catalog [get]
func (h *StudentHandler) Catalog(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	courses, err := h.catalog.Catalog(c.Request.Context(), actor, c.Query("search"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, courses, nil)
}

// Course godoc
// @Summary Course detail with lesson progress
// @Tags Catalog
// @Produce json
// @Param id path int true "Course ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Security BearerAuth
// @Router /catalog/{id} [get]
func (h *StudentHandler) Course(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	courseID, ok := idParam(c, "id")
	if !ok {
		return
	}
	view, err := h.progress.CourseProgress(c.Request.Context(), actor, courseID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, view, nil)
}

// Enroll godoc
// @Summary Enroll in a course
// @Description Returns 201 for a new enrollment and 200 when already enrolled
// @Tags Catalog
// @Produce json
// @Param id path int true "Course ID"
// @Success 200 {object} response.Envelope
// @Success 201 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Security BearerAuth
// @Router /catalog/{id}/enroll [post]
func (h *StudentHandler) Enroll(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	courseID, ok := idParam(c, "id")
	if !ok {
		return
	}
	result, err := h.enrollments.Enroll(c.Request.Context(), courseID, actor.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	respondEnrollment(c, result)
}

// MyEnrollments godoc
// @Summary List my enrollments
// @Tags Catalog
// @Produce json
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /me/enrollments [get]
func (h *StudentHandler) MyEnrollments(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	enrollments, err := h.enrollments.ListForStudent(c.Request.Context(), actor, actor.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, enrollments, nil)
}

// CompleteLesson godoc
// @Summary Mark a lesson complete
// @Description Idempotent; completes the enrollment once every lesson is done
// @Tags Catalog
// @Produce json
// @Param id path int true "Lesson ID"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Security BearerAuth
// @Router /lessons/{id}/complete [post]
func (h *StudentHandler) CompleteLesson(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	lessonID, ok := idParam(c, "id")
	if !ok {
		return
	}
	result, err := h.progress.CompleteLesson(c.Request.Context(), actor, lessonID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// MyProgress godoc
// @Summary My lesson progress
// @Tags Catalog
// @Produce json
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /me/progress [get]
func (h *StudentHandler) MyProgress(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	progress, err := h.stats.StudentLessonProgress(c.Request.Context(), actor, actor.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, progress, nil)
}
