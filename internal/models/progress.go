package models

import "time"

// ProgressStatus represents the status of a progress record
type ProgressStatus string

const (
	ProgressStatusCompleted  ProgressStatus = "completed"
	ProgressStatusInProgress ProgressStatus = "in_progress"
)

// ProgressRecord represents a user's completion of a lesson in a course.
// Records are permanent: there is no un-completion.
type ProgressRecord struct {
	ID          int            `json:"id,omitempty"`
	UserID      int            `json:"userId"`
	CourseID    string         `json:"courseId"`
	LessonID    int            `json:"lessonId"`
	Status      ProgressStatus `json:"status"`
	CompletedAt time.Time      `json:"completedAt"`
}
