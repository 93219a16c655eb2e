package models

import "time"

// EnrollmentStatus represents the lifecycle of an enrollment.
type EnrollmentStatus string

// Possible enrollment statuses.
const (
	EnrollmentStatusInProgress EnrollmentStatus = "IN_PROGRESS"
	EnrollmentStatusCompleted  EnrollmentStatus = "COMPLETED"
)

// Valid reports whether s is a known status.
func (s EnrollmentStatus) Valid() bool {
	return s == EnrollmentStatusInProgress || s == EnrollmentStatusCompleted
}

// Enrollment captures a student's registration to a course. At most one exists per (course, student).
type Enrollment struct {
	ID         int64            `db:"id" json:"id"`
	CourseID   int64            `db:"course_id" json:"course_id"`
	StudentID  int64            `db:"student_id" json:"student_id"`
	EnrolledAt time.Time        `db:"enrolled_at" json:"enrolled_at"`
	Status     EnrollmentStatus `db:"status" json:"status"`
}

// EnrollmentDetail enriches Enrollment with course and student info.
type EnrollmentDetail struct {
	Enrollment
	CourseTitle    string `db:"course_title" json:"course_title"`
	CategoryName   string `db:"category_name" json:"category_name"`
	InstructorName string `db:"instructor_name" json:"instructor_name"`
	StudentName    string `db:"student_name" json:"student_name"`
	StudentEmail   string `db:"student_email" json:"student_email"`
}

// EnrollmentFilter provides filters for listing enrollments.
type EnrollmentFilter struct {
	CourseID     *int64
	StudentID    *int64
	InstructorID *int64
}
