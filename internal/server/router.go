// Package server assembles the gin engine and its route table.
package server

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/noah-isme/lms-api/internal/handler"
	"github.com/noah-isme/lms-api/internal/middleware"
	"github.com/noah-isme/lms-api/internal/models"
	"github.com/noah-isme/lms-api/internal/service"
	"github.com/noah-isme/lms-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/lms-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/lms-api/pkg/middleware/requestid"
)

// Handlers groups the HTTP handlers mounted by the router.
type Handlers struct {
	Auth        *handler.AuthHandler
	Users       *handler.UserHandler
	Categories  *handler.CategoryHandler
	Courses     *handler.CourseHandler
	Enrollments *handler.EnrollmentHandler
	Students    *handler.StudentHandler
	Stats       *handler.StatsHandler
	Reports     *handler.ReportHandler
	Metrics     *handler.MetricsHandler
}

// Options configures cross-cutting router behaviour.
type Options struct {
	APIPrefix      string
	AllowedOrigins []string
	EnableDocs     bool
	Logger         *zap.Logger
	Tokens         middleware.TokenValidator
	Audit          middleware.AuditWriter
	Metrics        *service.MetricsService
}

// New builds the engine with middleware and every route.
func New(h Handlers, opts Options) *gin.Engine {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(opts.Logger))
	r.Use(corsmiddleware.New(opts.AllowedOrigins))
	r.Use(middleware.Metrics(opts.Metrics))

	r.GET("/health", h.Metrics.Health)
	r.GET("/ready", h.Metrics.Ready)
	r.GET("/metrics", h.Metrics.Prometheus)
	if opts.EnableDocs {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	admin := middleware.RequireRoles(models.RoleAdmin)
	managers := middleware.RequireRoles(models.RoleAdmin, models.RoleInstructor)
	students := middleware.RequireRoles(models.RoleStudent)
	audit := func(action, resource string) gin.HandlerFunc {
		return middleware.Audit(opts.Audit, opts.Logger, action, resource)
	}

	api := r.Group(opts.APIPrefix)
	api.POST("/auth/login", h.Auth.Login)

	secured := api.Group("")
	secured.Use(middleware.JWT(opts.Tokens))

	secured.POST("/auth/logout", h.Auth.Logout)
	secured.GET("/auth/me", h.Auth.Me)

	users := secured.Group("/users", admin)
	users.GET("", h.Users.List)
	users.POST("", h.Users.Create)
	users.GET("/:id", h.Users.Get)
	users.PUT("/:id", h.Users.Update)
	users.DELETE("/:id", h.Users.Delete)

	secured.GET("/categories", h.Categories.List)
	secured.POST("/categories", admin, h.Categories.Create)
	secured.PUT("/categories/:id", admin, h.Categories.Update)
	secured.DELETE("/categories/:id", admin, audit(models.AuditActionCategoryDeactivate, "categories"), h.Categories.Delete)

	courses := secured.Group("/courses", managers)
	courses.GET("", h.Courses.List)
	courses.POST("", h.Courses.Create)
	courses.GET("/:id", h.Courses.Get)
	courses.PUT("/:id", h.Courses.Update)
	courses.DELETE("/:id", audit(models.AuditActionCourseDelete, "courses"), h.Courses.Delete)
	courses.GET("/:id/lessons", h.Courses.ListLessons)
	courses.POST("/:id/lessons", h.Courses.CreateLesson)
	courses.GET("/:id/enrollments", h.Enrollments.ListForCourse)
	courses.POST("/:id/enrollments", h.Enrollments.EnrollByEmail)
	courses.GET("/:id/stats", h.Stats.Course)

	secured.PUT("/lessons/:id", managers, h.Courses.UpdateLesson)
	secured.DELETE("/lessons/:id", managers, h.Courses.DeleteLesson)
	secured.POST("/lessons/:id/complete", students, h.Students.CompleteLesson)

	secured.PATCH("/enrollments/:id/status", managers, audit(models.AuditActionEnrollmentStatus, "enrollments"), h.Enrollments.SetStatus)
	secured.DELETE("/enrollments/:id", managers, audit(models.AuditActionEnrollmentRemove, "enrollments"), h.Enrollments.Remove)

	catalog := secured.Group("/catalog", students)
	catalog.GET("", h.Students.Catalog)
	catalog.GET("/:id", h.Students.Course)
	catalog.POST("/:id/enroll", h.Students.Enroll)

	me := secured.Group("/me", students)
	me.GET("/enrollments", h.Students.MyEnrollments)
	me.GET("/progress", h.Students.MyProgress)

	stats := secured.Group("/stats")
	stats.GET("/instructors/:id", middleware.RBAC(string(models.RoleAdmin), middleware.RoleSelf), h.Stats.Instructor)
	stats.GET("/students/:id", middleware.RBAC(string(models.RoleAdmin), middleware.RoleSelf), h.Stats.Student)
	stats.GET("/global", admin, h.Stats.Global)

	secured.GET("/reports/:kind", admin, h.Reports.Download)
	secured.GET("/reports/instructor/:kind", middleware.RequireRoles(models.RoleInstructor), h.Reports.Download)

	secured.GET("/metrics/summary", admin, h.Metrics.Summary)

	return r
}
