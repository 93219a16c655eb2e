package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/lms-api/internal/models"
	appErrors "github.com/noah-isme/lms-api/pkg/errors"
)

func strPtr(v string) *string { return &v }

func TestLessonCreateAppendsByDefault(t *testing.T) {
	store := newMemStore()
	svc := NewLessonService(memLessons{store}, memCourses{store}, nil, nil)
	ownerID := store.addUser(models.RoleInstructor, "owner@lms.local")
	courseID := store.addCourse(ownerID, true)
	store.addLessons(courseID, 2)

	lesson, err := svc.Create(context.Background(), instructor(ownerID), courseID, LessonRequest{
		Title: "Third", ResourceURL: strPtr(" https://example.com/video "),
	})
	require.NoError(t, err)
	assert.Equal(t, 3, lesson.Order)
	assert.Equal(t, "https://example.com/video", *lesson.ResourceURL)

	order := 10
	lesson, err = svc.Create(context.Background(), admin(1), courseID, LessonRequest{Title: "Explicit", Order: &order})
	require.NoError(t, err)
	assert.Equal(t, 10, lesson.Order)

	lessons, err := svc.List(context.Background(), instructor(ownerID), courseID)
	require.NoError(t, err)
	assert.Len(t, lessons, 4)
}

func TestLessonValidationAndAccess(t *testing.T) {
	store := newMemStore()
	svc := NewLessonService(memLessons{store}, memCourses{store}, nil, nil)
	ownerID := store.addUser(models.RoleInstructor, "owner@lms.local")
	otherID := store.addUser(models.RoleInstructor, "other@lms.local")
	courseID := store.addCourse(ownerID, true)
	lessonID := store.addLessons(courseID, 1)[0]

	_, err := svc.Create(context.Background(), instructor(ownerID), courseID, LessonRequest{Title: "Bad", ResourceURL: strPtr("ftp://files")})
	assert.True(t, errors.Is(err, appErrors.ErrValidation))

	_, err = svc.Create(context.Background(), instructor(ownerID), courseID, LessonRequest{Title: "<p></p>"})
	assert.True(t, errors.Is(err, appErrors.ErrValidation))

	_, err = svc.Create(context.Background(), instructor(otherID), courseID, LessonRequest{Title: "Hijack"})
	assert.True(t, errors.Is(err, appErrors.ErrForbidden))

	_, err = svc.Update(context.Background(), instructor(otherID), lessonID, LessonRequest{Title: "Hijack"})
	assert.True(t, errors.Is(err, appErrors.ErrForbidden))

	err = svc.Delete(context.Background(), instructor(otherID), lessonID)
	assert.True(t, errors.Is(err, appErrors.ErrForbidden))

	updated, err := svc.Update(context.Background(), instructor(ownerID), lessonID, LessonRequest{Title: "Renamed"})
	require.NoError(t, err)
	assert.Equal(t, "Renamed", updated.Title)
	assert.Equal(t, 1, updated.Order)

	require.NoError(t, svc.Delete(context.Background(), instructor(ownerID), lessonID))
	_, err = svc.Update(context.Background(), instructor(ownerID), lessonID, LessonRequest{Title: "Gone"})
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))
}
