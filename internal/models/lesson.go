package models

// Lesson belongs to one course. Order is a display hint and is not unique.
type Lesson struct {
	ID          int64   `db:"id" json:"id"`
	CourseID    int64   `db:"course_id" json:"course_id"`
	Title       string  `db:"title" json:"title"`
	Description *string `db:"description" json:"description,omitempty"`
	ResourceURL *string `db:"resource_url" json:"resource_url,omitempty"`
	Order       int     `db:"order" json:"order"`
}

// LessonWithCourse is a lesson joined with the fields of its course that access checks need.
type LessonWithCourse struct {
	Lesson
	InstructorID   int64 `db:"instructor_id" json:"-"`
	CourseIsActive bool  `db:"course_is_active" json:"-"`
}

// Course returns the subset of the parent course carried by the join.
func (l LessonWithCourse) Course() Course {
	return Course{ID: l.CourseID, InstructorID: l.InstructorID, IsActive: l.CourseIsActive}
}

// LessonProgressItem is a lesson annotated with the student's completion.
type LessonProgressItem struct {
	Lesson
	Completed bool `db:"completed" json:"completed"`
}
