package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/lms-api/internal/models"
	appErrors "github.com/noah-isme/lms-api/pkg/errors"
	"github.com/noah-isme/lms-api/pkg/export"
)

// ReportKind names an exportable dataset.
type ReportKind string

// Supported report kinds.
const (
	ReportUsers       ReportKind = "users"
	ReportCourses     ReportKind = "courses"
	ReportEnrollments ReportKind = "enrollments"
)

// ReportFormat names an output encoding.
type ReportFormat string

// Supported report formats.
const (
	ReportFormatCSV ReportFormat = "csv"
	ReportFormatPDF ReportFormat = "pdf"
)

// ReportFile is a rendered report ready to be sent as an attachment.
type ReportFile struct {
	Filename    string
	ContentType string
	Payload     []byte
}

type reportUserRepository interface {
	ListAll(ctx context.Context) ([]models.User, error)
}

type reportEnrollmentRepository interface {
	ListDetails(ctx context.Context, filter models.EnrollmentFilter) ([]models.EnrollmentDetail, error)
}

type reportStatsRepository interface {
	CourseBreakdown(ctx context.Context, instructorID *int64) ([]models.CourseEnrollmentCounts, error)
}

type renderer interface {
	Render(data export.Dataset, title string) ([]byte, error)
	ContentType() string
	Extension() string
}

// ReportService builds export datasets scoped to the actor and renders them.
type ReportService struct {
	users       reportUserRepository
	enrollments reportEnrollmentRepository
	stats       reportStatsRepository
	renderers   map[ReportFormat]renderer
	logger      *zap.Logger
	now         func() time.Time
}

// NewReportService constructs ReportService. Nil renderers fall back to the default exporters.
func NewReportService(users reportUserRepository, enrollments reportEnrollmentRepository, stats reportStatsRepository, csv, pdf renderer, logger *zap.Logger) *ReportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if csv == nil {
		csv = export.NewCSVExporter(";")
	}
	if pdf == nil {
		pdf = export.NewPDFExporter()
	}
	return &ReportService{
		users:       users,
		enrollments: enrollments,
		stats:       stats,
		renderers:   map[ReportFormat]renderer{ReportFormatCSV: csv, ReportFormatPDF: pdf},
		logger:      logger,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// Generate renders the requested report. Admins export everything; instructors export only their
// own courses and enrollments and cannot export users.
func (s *ReportService) Generate(ctx context.Context, actor models.Actor, kind ReportKind, format ReportFormat) (*ReportFile, error) {
	if format == "" {
		format = ReportFormatCSV
	}
	r, ok := s.renderers[format]
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrValidation, "format must be csv or pdf")
	}

	var scope *int64
	switch {
	case actor.IsAdmin():
	case actor.IsInstructor() && kind != ReportUsers:
		scope = &actor.UserID
	default:
		return nil, appErrors.Clone(appErrors.ErrForbidden, "not allowed to export this report")
	}

	var (
		data  export.Dataset
		title string
		err   error
	)
	switch kind {
	case ReportUsers:
		data, err = s.usersDataset(ctx)
		title = "Users"
	case ReportCourses:
		data, err = s.coursesDataset(ctx, scope)
		title = "Courses"
	case ReportEnrollments:
		data, err = s.enrollmentsDataset(ctx, scope)
		title = "Enrollments"
	default:
		return nil, appErrors.Clone(appErrors.ErrNotFound, "unknown report")
	}
	if err != nil {
		return nil, err
	}

	payload, err := r.Render(data, title)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render report")
	}

	prefix := string(kind)
	if scope != nil {
		prefix = "instructor_" + prefix
	}
	filename := fmt.Sprintf("%s_%s.%s", prefix, s.now().Format("20060102_150405"), r.Extension())

	s.logger.Info("report generated",
		zap.String("report", string(kind)),
		zap.String("format", string(format)),
		zap.Int("rows", len(data.Rows)),
		zap.Int64("actor_id", actor.UserID),
	)

	return &ReportFile{Filename: filename, ContentType: r.ContentType(), Payload: payload}, nil
}

func (s *ReportService) usersDataset(ctx context.Context) (export.Dataset, error) {
	users, err := s.users.ListAll(ctx)
	if err != nil {
		return export.Dataset{}, appErrors.Storage(err, "failed to load users")
	}
	data := export.Dataset{Headers: []string{"UserId", "Name", "Email", "Role", "Active"}}
	for _, u := range users {
		data.Rows = append(data.Rows, map[string]string{
			"UserId": strconv.FormatInt(u.ID, 10),
			"Name":   u.FullName,
			"Email":  u.Email,
			"Role":   string(u.Role),
			"Active": strconv.FormatBool(u.IsActive),
		})
	}
	return data, nil
}

func (s *ReportService) coursesDataset(ctx context.Context, instructorID *int64) (export.Dataset, error) {
	rows, err := s.stats.CourseBreakdown(ctx, instructorID)
	if err != nil {
		return export.Dataset{}, appErrors.Storage(err, "failed to load courses")
	}
	data := export.Dataset{Headers: []string{"CourseId", "Title", "Category", "Instructor", "Active", "Enrollments", "Completed", "Percent"}}
	for _, stat := range toCourseStats(rows) {
		data.Rows = append(data.Rows, map[string]string{
			"CourseId":    strconv.FormatInt(stat.CourseID, 10),
			"Title":       stat.Title,
			"Category":    stat.CategoryName,
			"Instructor":  stat.InstructorName,
			"Active":      strconv.FormatBool(stat.IsActive),
			"Enrollments": strconv.Itoa(stat.TotalEnrollments),
			"Completed":   strconv.Itoa(stat.CompletedEnrollments),
			"Percent":     strconv.Itoa(stat.Percent),
		})
	}
	return data, nil
}

func (s *ReportService) enrollmentsDataset(ctx context.Context, instructorID *int64) (export.Dataset, error) {
	rows, err := s.enrollments.ListDetails(ctx, models.EnrollmentFilter{InstructorID: instructorID})
	if err != nil {
		return export.Dataset{}, appErrors.Storage(err, "failed to load enrollments")
	}
	data := export.Dataset{Headers: []string{"EnrollmentId", "CourseId", "Course", "Category", "StudentId", "Student", "Email", "EnrolledAt", "Status"}}
	for _, e := range rows {
		data.Rows = append(data.Rows, map[string]string{
			"EnrollmentId": strconv.FormatInt(e.ID, 10),
			"CourseId":     strconv.FormatInt(e.CourseID, 10),
			"Course":       e.CourseTitle,
			"Category":     e.CategoryName,
			"StudentId":    strconv.FormatInt(e.StudentID, 10),
			"Student":      e.StudentName,
			"Email":        e.StudentEmail,
			"EnrolledAt":   e.EnrolledAt.UTC().Format("2006-01-02 15:04"),
			"Status":       string(e.Status),
		})
	}
	return data, nil
}

// ParseReportFormat normalises a format query value.
func ParseReportFormat(raw string) ReportFormat {
	return ReportFormat(strings.ToLower(strings.TrimSpace(raw)))
}
