package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/lms-api/internal/models"
	appErrors "github.com/noah-isme/lms-api/pkg/errors"
)

// histogramMonths is the length of the trailing enrollment histogram, current month included.
const histogramMonths = 6

type statsRepository interface {
	CourseEnrollments(ctx context.Context, courseID int64) (models.CompletionCounts, error)
	InstructorCourses(ctx context.Context, instructorID int64) (models.InstructorCourseCounts, error)
	InstructorEnrollments(ctx context.Context, instructorID int64) (models.CompletionCounts, error)
	StudentCourses(ctx context.Context, studentID int64) ([]models.StudentCourseLessons, error)
	Users(ctx context.Context) (models.UserCounts, error)
	Courses(ctx context.Context) (models.CourseCounts, error)
	Enrollments(ctx context.Context) (models.CompletionCounts, error)
	CourseBreakdown(ctx context.Context, instructorID *int64) ([]models.CourseEnrollmentCounts, error)
	MonthlyEnrollments(ctx context.Context, since time.Time) ([]models.MonthlyCount, error)
}

type userByIDReader interface {
	FindByID(ctx context.Context, id int64) (*models.User, error)
}

// StatsService computes read-only completion statistics. Nothing is cached: every call reflects
// the current data.
type StatsService struct {
	repo    statsRepository
	courses courseReader
	users   userByIDReader
	logger  *zap.Logger
	now     func() time.Time
}

// NewStatsService constructs StatsService.
func NewStatsService(repo statsRepository, courses courseReader, users userByIDReader, logger *zap.Logger) *StatsService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StatsService{
		repo:    repo,
		courses: courses,
		users:   users,
		logger:  logger,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// CourseCompletion returns the share of a course's enrollments that are completed.
func (s *StatsService) CourseCompletion(ctx context.Context, actor models.Actor, courseID int64) (*models.CourseCompletion, error) {
	course, err := s.courses.FindByID(ctx, courseID)
	if err != nil {
		return nil, lookupError(err, "course not found", "failed to load course")
	}
	if !CanManage(*course, actor) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "not allowed to view this course")
	}

	counts, err := s.repo.CourseEnrollments(ctx, courseID)
	if err != nil {
		return nil, appErrors.Storage(err, "failed to count enrollments")
	}

	return &models.CourseCompletion{
		CourseID:             courseID,
		TotalEnrollments:     counts.Total,
		CompletedEnrollments: counts.Completed,
		Percent:              completionPercent(counts.Completed, counts.Total),
	}, nil
}

// InstructorSummary aggregates an instructor's courses. Instructors may only see their own.
func (s *StatsService) InstructorSummary(ctx context.Context, actor models.Actor, instructorID int64) (*models.InstructorSummary, error) {
	if !actor.IsAdmin() && !(actor.IsInstructor() && actor.UserID == instructorID) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "not allowed to view this instructor")
	}
	if err := s.requireRole(ctx, instructorID, models.RoleInstructor, "instructor not found"); err != nil {
		return nil, err
	}

	courses, err := s.repo.InstructorCourses(ctx, instructorID)
	if err != nil {
		return nil, appErrors.Storage(err, "failed to count courses")
	}
	enrollments, err := s.repo.InstructorEnrollments(ctx, instructorID)
	if err != nil {
		return nil, appErrors.Storage(err, "failed to count enrollments")
	}
	breakdown, err := s.repo.CourseBreakdown(ctx, &instructorID)
	if err != nil {
		return nil, appErrors.Storage(err, "failed to load course stats")
	}

	return &models.InstructorSummary{
		InstructorID:         instructorID,
		Courses:              courses.Courses,
		ActiveCourses:        courses.ActiveCourses,
		TotalEnrollments:     enrollments.Total,
		CompletedEnrollments: enrollments.Completed,
		Percent:              completionPercent(enrollments.Completed, enrollments.Total),
		CourseStats:          toCourseStats(breakdown),
	}, nil
}

// StudentLessonProgress aggregates lesson completion over the student's enrollments in active
// courses. Students may only see their own.
func (s *StatsService) StudentLessonProgress(ctx context.Context, actor models.Actor, studentID int64) (*models.StudentProgress, error) {
	if !actor.IsAdmin() && !(actor.IsStudent() && actor.UserID == studentID) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "not allowed to view this student")
	}
	if err := s.requireRole(ctx, studentID, models.RoleStudent, "student not found"); err != nil {
		return nil, err
	}

	rows, err := s.repo.StudentCourses(ctx, studentID)
	if err != nil {
		return nil, appErrors.Storage(err, "failed to load student progress")
	}

	return buildStudentProgress(studentID, rows), nil
}

// GlobalSummary returns platform-wide totals. Admin only.
func (s *StatsService) GlobalSummary(ctx context.Context, actor models.Actor) (*models.GlobalSummary, error) {
	if !actor.IsAdmin() {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "admin only")
	}

	users, err := s.repo.Users(ctx)
	if err != nil {
		return nil, appErrors.Storage(err, "failed to count users")
	}
	courses, err := s.repo.Courses(ctx)
	if err != nil {
		return nil, appErrors.Storage(err, "failed to count courses")
	}
	enrollments, err := s.repo.Enrollments(ctx)
	if err != nil {
		return nil, appErrors.Storage(err, "failed to count enrollments")
	}
	breakdown, err := s.repo.CourseBreakdown(ctx, nil)
	if err != nil {
		return nil, appErrors.Storage(err, "failed to load course stats")
	}

	now := s.now()
	monthly, err := s.repo.MonthlyEnrollments(ctx, histogramStart(now))
	if err != nil {
		return nil, appErrors.Storage(err, "failed to count monthly enrollments")
	}

	return &models.GlobalSummary{
		TotalUsers:  users.Total,
		ActiveUsers: users.Active,
		ActiveByRole: map[models.UserRole]int{
			models.RoleAdmin:      users.Admins,
			models.RoleInstructor: users.Instructors,
			models.RoleStudent:    users.Students,
		},
		TotalCourses:         courses.Total,
		ActiveCourses:        courses.Active,
		TotalEnrollments:     enrollments.Total,
		CompletedEnrollments: enrollments.Completed,
		Percent:              completionPercent(enrollments.Completed, enrollments.Total),
		CourseStats:          toCourseStats(breakdown),
		MonthlyEnrollments:   buildMonthlyBuckets(now, monthly),
		GeneratedAt:          now,
	}, nil
}

func (s *StatsService) requireRole(ctx context.Context, userID int64, role models.UserRole, notFound string) error {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return lookupError(err, notFound, "failed to load user")
	}
	if user.Role != role {
		return appErrors.Clone(appErrors.ErrNotFound, notFound)
	}
	return nil
}

func buildStudentProgress(studentID int64, rows []models.StudentCourseLessons) *models.StudentProgress {
	result := &models.StudentProgress{
		StudentID: studentID,
		Courses:   make([]models.StudentCourseProgress, 0, len(rows)),
	}
	for _, row := range rows {
		result.TotalLessons += row.TotalLessons
		result.CompletedLessons += row.CompletedLessons
		if row.Status == models.EnrollmentStatusCompleted {
			result.CompletedEnrollments++
		} else {
			result.InProgressEnrollments++
		}
		result.Courses = append(result.Courses, models.StudentCourseProgress{
			CourseID:         row.CourseID,
			Title:            row.Title,
			Status:           row.Status,
			TotalLessons:     row.TotalLessons,
			CompletedLessons: row.CompletedLessons,
			Percent:          completionPercent(row.CompletedLessons, row.TotalLessons),
		})
	}
	result.Percent = completionPercent(result.CompletedLessons, result.TotalLessons)
	return result
}

func toCourseStats(rows []models.CourseEnrollmentCounts) []models.CourseStat {
	stats := make([]models.CourseStat, 0, len(rows))
	for _, row := range rows {
		stats = append(stats, models.CourseStat{
			CourseID:             row.CourseID,
			Title:                row.Title,
			CategoryName:         row.CategoryName,
			InstructorName:       row.InstructorName,
			IsActive:             row.IsActive,
			TotalEnrollments:     row.Total,
			CompletedEnrollments: row.Completed,
			Percent:              completionPercent(row.Completed, row.Total),
		})
	}
	return stats
}

// histogramStart is the first instant of the oldest month in the histogram window.
func histogramStart(now time.Time) time.Time {
	now = now.UTC()
	return time.Date(now.Year(), now.Month()-(histogramMonths-1), 1, 0, 0, 0, 0, time.UTC)
}

// buildMonthlyBuckets lays counts onto the trailing window ending at now's month, oldest first.
// Months without rows get zero.
func buildMonthlyBuckets(now time.Time, rows []models.MonthlyCount) []models.MonthlyEnrollmentCount {
	counts := make(map[string]int, len(rows))
	for _, row := range rows {
		counts[row.Month.Format("2006-01")] += row.Count
	}

	start := histogramStart(now)
	buckets := make([]models.MonthlyEnrollmentCount, 0, histogramMonths)
	for i := 0; i < histogramMonths; i++ {
		key := start.AddDate(0, i, 0).Format("2006-01")
		buckets = append(buckets, models.MonthlyEnrollmentCount{Month: key, Count: counts[key]})
	}
	return buckets
}
