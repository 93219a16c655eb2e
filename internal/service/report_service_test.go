package service

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/lms-api/internal/models"
	appErrors "github.com/noah-isme/lms-api/pkg/errors"
	"github.com/noah-isme/lms-api/pkg/export"
)

func newReportFixture(t *testing.T) (*ReportService, *memStore, int64, int64) {
	t.Helper()
	store := newMemStore()
	ownerID := store.addUser(models.RoleInstructor, "owner@lms.local")
	otherID := store.addUser(models.RoleInstructor, "other@lms.local")
	studentID := store.addUser(models.RoleStudent, "student@lms.local")
	mine := store.addCourse(ownerID, true)
	theirs := store.addCourse(otherID, true)

	enrollments := memEnrollments{store}
	for _, courseID := range []int64{mine, theirs} {
		_, _, err := enrollments.Create(context.Background(), courseID, studentID, time.Date(2024, 5, 1, 9, 30, 0, 0, time.UTC))
		require.NoError(t, err)
	}

	svc := NewReportService(memUsers{store}, enrollments, memStats{store}, export.NewCSVExporter(","), nil, nil)
	svc.now = func() time.Time { return time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC) }
	return svc, store, ownerID, studentID
}

func TestReportEnrollmentsScopedToInstructor(t *testing.T) {
	svc, _, ownerID, _ := newReportFixture(t)

	file, err := svc.Generate(context.Background(), instructor(ownerID), ReportEnrollments, ReportFormatCSV)
	require.NoError(t, err)
	assert.Equal(t, "instructor_enrollments_20240601_120000.csv", file.Filename)
	assert.Equal(t, "text/csv; charset=utf-8", file.ContentType)

	lines := strings.Split(strings.TrimSpace(string(file.Payload)), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[0], "EnrollmentId,CourseId"))
	assert.Contains(t, lines[1], "2024-05-01 09:30")

	all, err := svc.Generate(context.Background(), admin(1), ReportEnrollments, "")
	require.NoError(t, err)
	assert.Len(t, strings.Split(strings.TrimSpace(string(all.Payload)), "\n"), 3)
}

func TestReportPermissionsAndFormats(t *testing.T) {
	svc, _, ownerID, studentID := newReportFixture(t)

	_, err := svc.Generate(context.Background(), instructor(ownerID), ReportUsers, ReportFormatCSV)
	assert.True(t, errors.Is(err, appErrors.ErrForbidden))

	_, err = svc.Generate(context.Background(), student(studentID), ReportCourses, ReportFormatCSV)
	assert.True(t, errors.Is(err, appErrors.ErrForbidden))

	_, err = svc.Generate(context.Background(), admin(1), ReportCourses, ParseReportFormat("XLSX"))
	assert.True(t, errors.Is(err, appErrors.ErrValidation))

	_, err = svc.Generate(context.Background(), admin(1), "grades", ReportFormatCSV)
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))

	pdf, err := svc.Generate(context.Background(), admin(1), ReportUsers, ParseReportFormat(" PDF "))
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", pdf.ContentType)
	assert.True(t, bytes.HasPrefix(pdf.Payload, []byte("%PDF")))
}
