package models

import "time"

// Course is owned by exactly one instructor.
type Course struct {
	ID           int64     `db:"id" json:"id"`
	Title        string    `db:"title" json:"title"`
	Description  string    `db:"description" json:"description"`
	CategoryID   int64     `db:"category_id" json:"category_id"`
	InstructorID int64     `db:"instructor_id" json:"instructor_id"`
	IsActive     bool      `db:"is_active" json:"is_active"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

// CourseDetail enriches Course with category and instructor names.
type CourseDetail struct {
	Course
	CategoryName   string `db:"category_name" json:"category_name"`
	InstructorName string `db:"instructor_name" json:"instructor_name"`
}

// CatalogCourse is a course as listed to students.
type CatalogCourse struct {
	CourseDetail
	Enrolled bool `db:"enrolled" json:"enrolled"`
}

// CourseFilter narrows course listings.
type CourseFilter struct {
	InstructorID *int64
	ActiveOnly   bool
	Search       string
}
