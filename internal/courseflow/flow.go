// Package courseflow holds the static, ordered course definition and the
// personalization form configuration that the progression engine reads.
package courseflow

import (
	"fmt"

	"github.com/linguapath/backend/internal/models"
)

// Flow is the ordered sequence of steps of a course. It is immutable after construction
// and safe to share between goroutines.
type Flow struct {
	courseID string
	steps    []models.Step
	index    map[string]int
}

// NewFlow validates steps and builds a Flow
func NewFlow(courseID string, steps []models.Step) (*Flow, error) {
	if len(steps) == 0 {
		return nil, fmt.Errorf("course flow %q has no steps", courseID)
	}

	f := &Flow{
		courseID: courseID,
		steps:    make([]models.Step, len(steps)),
		index:    make(map[string]int, len(steps)),
	}
	copy(f.steps, steps)

	for i, step := range f.steps {
		switch step.Kind {
		case models.StepKindLesson:
			if step.LessonID <= 0 {
				return nil, fmt.Errorf("step %d: lesson id must be positive, got %d", i, step.LessonID)
			}
		case models.StepKindPersonalization:
			if step.FormID == "" {
				return nil, fmt.Errorf("step %d: personalization id is empty", i)
			}
		default:
			return nil, fmt.Errorf("step %d: unknown step type %q", i, step.Kind)
		}

		if prev, ok := f.index[step.Key()]; ok {
			return nil, fmt.Errorf("step %d: duplicate %s (first seen at step %d)", i, step, prev)
		}
		f.index[step.Key()] = i
	}

	return f, nil
}

// CourseID returns the course the flow belongs to
func (f *Flow) CourseID() string {
	return f.courseID
}

// Len returns the number of steps
func (f *Flow) Len() int {
	return len(f.steps)
}

// Steps returns a copy of the steps in order
func (f *Flow) Steps() []models.Step {
	out := make([]models.Step, len(f.steps))
	copy(out, f.steps)
	return out
}

// At returns the step at position i
func (f *Flow) At(i int) (models.Step, bool) {
	if i < 0 || i >= len(f.steps) {
		return models.Step{}, false
	}
	return f.steps[i], true
}

// First returns the first step
func (f *Flow) First() models.Step {
	return f.steps[0]
}

// Last returns the last step
func (f *Flow) Last() models.Step {
	return f.steps[len(f.steps)-1]
}

// IndexOf returns the position of step, or -1 when the flow does not contain it
func (f *Flow) IndexOf(step models.Step) int {
	if i, ok := f.index[step.Key()]; ok {
		return i
	}
	return -1
}

// Contains reports whether the flow contains step
func (f *Flow) Contains(step models.Step) bool {
	return f.IndexOf(step) >= 0
}

// Next returns the step following step. The second value is false when step
// is the last one or is not part of the flow.
func (f *Flow) Next(step models.Step) (models.Step, bool) {
	i := f.IndexOf(step)
	if i < 0 {
		return models.Step{}, false
	}
	return f.At(i + 1)
}

// Previous returns the step preceding step
func (f *Flow) Previous(step models.Step) (models.Step, bool) {
	i := f.IndexOf(step)
	if i <= 0 {
		return models.Step{}, false
	}
	return f.At(i - 1)
}
