package models

import "time"

// LessonProgress records that a student completed a lesson. At most one exists per (lesson, student).
type LessonProgress struct {
	ID          int64     `db:"id" json:"id"`
	LessonID    int64     `db:"lesson_id" json:"lesson_id"`
	StudentID   int64     `db:"student_id" json:"student_id"`
	CompletedAt time.Time `db:"completed_at" json:"completed_at"`
}

// CompletionOutcome reports what recording a lesson completion changed.
type CompletionOutcome struct {
	// Recorded is false when the lesson had already been completed.
	Recorded bool
	// Promoted is true when the enrollment moved to COMPLETED in the same transaction.
	Promoted bool
}
