package progression

import "fmt"

// DataDriftError reports stored state that refers to something the course flow does not know.
// It is never fatal: the offending record is ignored by the engine.
type DataDriftError struct {
	UserID   int
	LessonID int
	// Source is "progress" for completion records and "jobs" for content generation jobs
	Source string
}

func (e *DataDriftError) Error() string {
	return fmt.Sprintf("user %d has %s for lesson %d which is not part of the course flow", e.UserID, e.Source, e.LessonID)
}
