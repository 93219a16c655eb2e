package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/lms-api/internal/models"
	"github.com/noah-isme/lms-api/internal/service"
	"github.com/noah-isme/lms-api/pkg/response"
)

type courseService interface {
	List(ctx context.Context, actor models.Actor, search string) ([]models.CourseDetail, error)
	Get(ctx context.Context, actor models.Actor, id int64) (*models.CourseDetail, error)
	Create(ctx context.Context, actor models.Actor, req service.CourseRequest) (*models.Course, error)
	Update(ctx context.Context, actor models.Actor, id int64, req service.CourseRequest) (*models.Course, error)
	Delete(ctx context.Context, actor models.Actor, id int64) error
}

type lessonService interface {
	List(ctx context.Context, actor models.Actor, courseID int64) ([]models.Lesson, error)
	Create(ctx context.Context, actor models.Actor, courseID int64, req service.LessonRequest) (*models.Lesson, error)
	Update(ctx context.Context, actor models.Actor, lessonID int64, req service.LessonRequest) (*models.Lesson, error)
	Delete(ctx context.Context, actor models.Actor, lessonID int64) error
}

// CourseHandler exposes course and lesson management for admins and instructors.
type CourseHandler struct {
	courses courseService
	lessons lessonService
}

// NewCourseHandler constructs CourseHandler.
func NewCourseHandler(courses courseService, lessons lessonService) *CourseHandler {
	return &CourseHandler{courses: courses, lessons: lessons}
}

// List godoc
// @Summary List managed courses
// @Description Admins see every course, instructors their own
// @Tags Courses
// @Produce json
// @Param search query string false "Title search"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /courses [get]
func (h *CourseHandler) List(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	courses, err := h.courses.List(c.Request.Context(), actor, c.Query("search"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, courses, nil)
}

// Get godoc
// @Summary Get course
// @Tags Courses
// @Produce json
// @Param id path int true "Course ID"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Security BearerAuth
// @Router /courses/{id} [get]
func (h *CourseHandler) Get(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	course, err := h.courses.Get(c.Request.Context(), actor, id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, course, nil)
}

// Create godoc
// @Summary Create course
// @Tags Courses
// @Accept json
// @Produce json
// @Param payload body service.CourseRequest true "Course payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Security BearerAuth
// @Router /courses [post]
func (h *CourseHandler) Create(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	var req service.CourseRequest
	if !bindJSON(c, &req) {
		return
	}
	course, err := h.courses.Create(c.Request.Context(), actor, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, course)
}

// Update godoc
// @Summary Update course
// @Tags Courses
// @Accept json
// @Produce json
// @Param id path int true "Course ID"
// @Param payload body service.CourseRequest true "Course payload"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Security BearerAuth
// @Router /courses/{id} [put]
func (h *CourseHandler) Update(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var req service.CourseRequest
	if !bindJSON(c, &req) {
		return
	}
	course, err := h.courses.Update(c.Request.Context(), actor, id, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, course, nil)
}

// Delete godoc
// @Summary Delete course
// @Description Fails with 409 while the course has enrollments
// @Tags Courses
// @Param id path int true "Course ID"
// @Success 204 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Security BearerAuth
// @Router /courses/{id} [delete]
func (h *CourseHandler) Delete(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	if err := h.courses.Delete(c.Request.Context(), actor, id); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// ListLessons godoc
// @Summary List lessons of a course
// @Tags Lessons
// @Produce json
// @Param id path int true "Course ID"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /courses/{id}/lessons [get]
func (h *CourseHandler) ListLessons(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	courseID, ok := idParam(c, "id")
	if !ok {
		return
	}
	lessons, err := h.lessons.List(c.Request.Context(), actor, courseID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, lessons, nil)
}

// CreateLesson godoc
// @Summary Add a lesson
// @Tags Lessons
// @Accept json
// @Produce json
// @Param id path int true "Course ID"
// @Param payload body service.LessonRequest true "Lesson payload"
// @Success 201 {object} response.Envelope
// @Security BearerAuth
// @Router /courses/{id}/lessons [post]
func (h *CourseHandler) CreateLesson(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	courseID, ok := idParam(c, "id")
	if !ok {
		return
	}
	var req service.LessonRequest
	if !bindJSON(c, &req) {
		return
	}
	lesson, err := h.lessons.Create(c.Request.Context(), actor, courseID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, lesson)
}

// UpdateLesson godoc
// @Summary Update a lesson
// @Tags Lessons
// @Accept json
// @Produce json
// @Param id path int true "Lesson ID"
// @Param payload body service.LessonRequest true "Lesson payload"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /lessons/{id} [put]
func (h *CourseHandler) UpdateLesson(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	lessonID, ok := idParam(c, "id")
	if !ok {
		return
	}
	var req service.LessonRequest
	if !bindJSON(c, &req) {
		return
	}
	lesson, err := h.lessons.Update(c.Request.Context(), actor, lessonID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, lesson, nil)
}

// DeleteLesson godoc
// @Summary Delete a lesson
// @Tags Lessons
// @Param id path int true "Lesson ID"
// @Success 204 {object} response.Envelope
// @Security BearerAuth
// @Router /lessons/{id} [delete]
func (h *CourseHandler) DeleteLesson(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	lessonID, ok := idParam(c, "id")
	if !ok {
		return
	}
	if err := h.lessons.Delete(c.Request.Context(), actor, lessonID); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
