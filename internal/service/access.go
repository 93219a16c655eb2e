package service

import (
	"database/sql"
	"errors"

	"github.com/noah-isme/lms-api/internal/models"
	appErrors "github.com/noah-isme/lms-api/pkg/errors"
)

// CanManage reports whether actor may administer course: admins manage every course,
// instructors only the courses they own.
func CanManage(course models.Course, actor models.Actor) bool {
	switch actor.Role {
	case models.RoleAdmin:
		return true
	case models.RoleInstructor:
		return course.InstructorID == actor.UserID
	default:
		return false
	}
}

// lookupError maps a repository lookup failure to NotFound or a storage error.
func lookupError(err error, notFound, failure string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return appErrors.Clone(appErrors.ErrNotFound, notFound)
	}
	return appErrors.Storage(err, failure)
}

func completionPercent(completed, total int) int {
	if total <= 0 {
		return 0
	}
	return completed * 100 / total
}
