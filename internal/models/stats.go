package models

import "time"

// CompletionCounts are raw enrollment counters.
type CompletionCounts struct {
	Total     int `db:"total"`
	Completed int `db:"completed"`
}

// CourseEnrollmentCounts holds per-course enrollment counters with descriptive fields.
type CourseEnrollmentCounts struct {
	CourseID       int64  `db:"course_id"`
	Title          string `db:"title"`
	CategoryName   string `db:"category_name"`
	InstructorName string `db:"instructor_name"`
	IsActive       bool   `db:"is_active"`
	Total          int    `db:"total"`
	Completed      int    `db:"completed"`
}

// InstructorCourseCounts aggregates an instructor's course portfolio.
type InstructorCourseCounts struct {
	Courses       int `db:"courses"`
	ActiveCourses int `db:"active_courses"`
}

// StudentCourseLessons holds lesson counters for one of a student's enrollments.
type StudentCourseLessons struct {
	CourseID         int64            `db:"course_id"`
	Title            string           `db:"title"`
	Status           EnrollmentStatus `db:"status"`
	TotalLessons     int              `db:"total_lessons"`
	CompletedLessons int              `db:"completed_lessons"`
}

// UserCounts summarises the users table.
type UserCounts struct {
	Total       int `db:"total"`
	Active      int `db:"active"`
	Admins      int `db:"admins"`
	Instructors int `db:"instructors"`
	Students    int `db:"students"`
}

// CourseCounts summarises the courses table.
type CourseCounts struct {
	Total  int `db:"total"`
	Active int `db:"active"`
}

// MonthlyCount is the number of enrollments whose enrolled_at falls in Month.
type MonthlyCount struct {
	Month time.Time `db:"month"`
	Count int       `db:"count"`
}

// CourseCompletion is the enrollment completion rate of a single course.
type CourseCompletion struct {
	CourseID             int64 `json:"course_id"`
	TotalEnrollments     int   `json:"total_enrollments"`
	CompletedEnrollments int   `json:"completed_enrollments"`
	Percent              int   `json:"percent"`
}

// CourseStat is one row of a per-course breakdown.
type CourseStat struct {
	CourseID             int64  `json:"course_id"`
	Title                string `json:"title"`
	CategoryName         string `json:"category_name"`
	InstructorName       string `json:"instructor_name"`
	IsActive             bool   `json:"is_active"`
	TotalEnrollments     int    `json:"total_enrollments"`
	CompletedEnrollments int    `json:"completed_enrollments"`
	Percent              int    `json:"percent"`
}

// InstructorSummary aggregates an instructor's courses and their enrollments.
type InstructorSummary struct {
	InstructorID         int64        `json:"instructor_id"`
	Courses              int          `json:"courses"`
	ActiveCourses        int          `json:"active_courses"`
	TotalEnrollments     int          `json:"total_enrollments"`
	CompletedEnrollments int          `json:"completed_enrollments"`
	Percent              int          `json:"percent"`
	CourseStats          []CourseStat `json:"course_stats"`
}

// StudentCourseProgress is a student's lesson progress in one course.
type StudentCourseProgress struct {
	CourseID         int64            `json:"course_id"`
	Title            string           `json:"title"`
	Status           EnrollmentStatus `json:"status"`
	TotalLessons     int              `json:"total_lessons"`
	CompletedLessons int              `json:"completed_lessons"`
	Percent          int              `json:"percent"`
}

// StudentProgress aggregates lesson completion across a student's active-course enrollments.
type StudentProgress struct {
	StudentID             int64                   `json:"student_id"`
	TotalLessons          int                     `json:"total_lessons"`
	CompletedLessons      int                     `json:"completed_lessons"`
	Percent               int                     `json:"percent"`
	InProgressEnrollments int                     `json:"in_progress_enrollments"`
	CompletedEnrollments  int                     `json:"completed_enrollments"`
	Courses               []StudentCourseProgress `json:"courses"`
}

// MonthlyEnrollmentCount is one bucket of the enrollment histogram. Month is formatted YYYY-MM.
type MonthlyEnrollmentCount struct {
	Month string `json:"month"`
	Count int    `json:"count"`
}

// GlobalSummary is the administrator dashboard projection.
type GlobalSummary struct {
	TotalUsers           int                      `json:"total_users"`
	ActiveUsers          int                      `json:"active_users"`
	ActiveByRole         map[UserRole]int         `json:"active_by_role"`
	TotalCourses         int                      `json:"total_courses"`
	ActiveCourses        int                      `json:"active_courses"`
	TotalEnrollments     int                      `json:"total_enrollments"`
	CompletedEnrollments int                      `json:"completed_enrollments"`
	Percent              int                      `json:"percent"`
	CourseStats          []CourseStat             `json:"course_stats"`
	MonthlyEnrollments   []MonthlyEnrollmentCount `json:"monthly_enrollments"`
	GeneratedAt          time.Time                `json:"generated_at"`
}

// SystemMetrics is a lightweight snapshot of process counters.
type SystemMetrics struct {
	RequestsTotal            uint64    `json:"requests_total"`
	AverageRequestDurationMs float64   `json:"average_request_duration_ms"`
	EnrollmentsCreated       uint64    `json:"enrollments_created"`
	LessonsCompleted         uint64    `json:"lessons_completed"`
	EnrollmentsCompleted     uint64    `json:"enrollments_completed"`
	Goroutines               int       `json:"goroutines"`
	GeneratedAt              time.Time `json:"generated_at"`
}
