package models

import (
	"fmt"
	"strconv"
)

// StepKind represents the kind of a course flow step
type StepKind string

const (
	StepKindLesson          StepKind = "lesson"
	StepKindPersonalization StepKind = "personalization"
)

// Step represents one node of the course flow: either a lesson or a personalization form.
// Only the id field matching Kind is meaningful.
type Step struct {
	Kind     StepKind `json:"type"`
	LessonID int      `json:"lessonId,omitempty"`
	FormID   string   `json:"formId,omitempty"`
}

// LessonStep creates a lesson step
func LessonStep(id int) Step {
	return Step{Kind: StepKindLesson, LessonID: id}
}

// PersonalizationStep creates a personalization step
func PersonalizationStep(id string) Step {
	return Step{Kind: StepKindPersonalization, FormID: id}
}

// IsLesson reports whether the step is a lesson
func (s Step) IsLesson() bool {
	return s.Kind == StepKindLesson
}

// IsPersonalization reports whether the step is a personalization form
func (s Step) IsPersonalization() bool {
	return s.Kind == StepKindPersonalization
}

// ID returns the step id as text
func (s Step) ID() string {
	if s.IsLesson() {
		return strconv.Itoa(s.LessonID)
	}
	return s.FormID
}

// Key returns a value unique across both step kinds
func (s Step) Key() string {
	return string(s.Kind) + ":" + s.ID()
}

// Path returns the view path of the step
func (s Step) Path() string {
	switch s.Kind {
	case StepKindLesson:
		return fmt.Sprintf("/lessons/%d", s.LessonID)
	case StepKindPersonalization:
		return "/personalize/" + s.FormID
	}
	return ""
}

func (s Step) String() string {
	return s.Key()
}
