package models

import "time"

// CourseCategory groups courses in the catalog. Categories are only ever deactivated.
type CourseCategory struct {
	ID          int64     `db:"id" json:"id"`
	Name        string    `db:"name" json:"name"`
	Description *string   `db:"description" json:"description,omitempty"`
	IsActive    bool      `db:"is_active" json:"is_active"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// CourseCategoryDetail adds the number of courses filed under the category.
type CourseCategoryDetail struct {
	CourseCategory
	CourseCount int `db:"course_count" json:"course_count"`
}
