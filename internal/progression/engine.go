// Package progression decides which course step a user may enter, what follows it, and
// whether generated content a lesson depends on is ready. Every query is a pure
// function of a Snapshot and the course flow.
package progression

import (
	"math"
	"slices"
	"sort"

	"github.com/linguapath/backend/internal/courseflow"
	"github.com/linguapath/backend/internal/models"
)

// Reason explains an access decision
type Reason string

const (
	ReasonOK              Reason = "ok"
	ReasonNotApproved     Reason = "not_approved"
	ReasonUnknownStep     Reason = "unknown_step"
	ReasonOutOfSequence   Reason = "out_of_sequence"
	ReasonAwaitingContent Reason = "awaiting_content"
)

// Access is the result of an access check
type Access struct {
	Allowed bool
	Reason  Reason
}

// Engine evaluates progression rules. It is immutable and safe for concurrent use.
type Engine struct {
	flow       *courseflow.Flow
	forms      courseflow.Forms
	dependents map[int][]string
}

// NewEngine creates an engine over flow and forms.
// A nil flow puts the engine in degraded mode where only lesson numbers are compared.
func NewEngine(flow *courseflow.Flow, forms courseflow.Forms) *Engine {
	if forms == nil {
		forms = courseflow.Forms{}
	}
	e := &Engine{
		flow:       flow,
		forms:      forms,
		dependents: make(map[int][]string),
	}
	for _, lessonID := range forms.DependentLessons() {
		e.dependents[lessonID] = forms.OwnersOf(lessonID)
	}
	return e
}

// Degraded reports whether the engine runs without a course flow
func (e *Engine) Degraded() bool {
	return e.flow == nil
}

// Flow returns the course flow, nil in degraded mode
func (e *Engine) Flow() *courseflow.Flow {
	return e.flow
}

// Form returns the personalization form with the given id
func (e *Engine) Form(formID string) (*models.PersonalizationForm, bool) {
	return e.forms.Get(formID)
}

// DependentLessons returns the lessons that wait on generated content, sorted
func (e *Engine) DependentLessons() []int {
	lessons := make([]int, 0, len(e.dependents))
	for lessonID := range e.dependents {
		lessons = append(lessons, lessonID)
	}
	sort.Ints(lessons)
	return lessons
}

// DependsOnContent reports whether lessonID waits on generated content
func (e *Engine) DependsOnContent(lessonID int) bool {
	_, ok := e.dependents[lessonID]
	return ok
}

// OwningForms returns the forms whose submission generates content for lessonID
func (e *Engine) OwningForms(lessonID int) []string {
	return slices.Clone(e.dependents[lessonID])
}

// CanAccess reports whether the user may enter step
func (e *Engine) CanAccess(snap *Snapshot, step models.Step) bool {
	return e.Access(snap, step).Allowed
}

// Access evaluates the access rules for step in order: approval, sequence position,
// then the content generation dependency.
func (e *Engine) Access(snap *Snapshot, step models.Step) Access {
	if !snap.Approved() {
		return Access{Reason: ReasonNotApproved}
	}

	if reason := e.checkSequence(snap, step); reason != ReasonOK {
		return Access{Reason: reason}
	}

	if step.IsLesson() && e.DependsOnContent(step.LessonID) {
		if e.GenerationState(snap, step.LessonID) != GenerationReady {
			return Access{Reason: ReasonAwaitingContent}
		}
	}

	return Access{Allowed: true, Reason: ReasonOK}
}

func (e *Engine) checkSequence(snap *Snapshot, step models.Step) Reason {
	if e.Degraded() {
		switch step.Kind {
		case models.StepKindLesson:
			if step.LessonID <= 0 {
				return ReasonUnknownStep
			}
			if step.LessonID > highestLesson(snap)+1 {
				return ReasonOutOfSequence
			}
			return ReasonOK
		case models.StepKindPersonalization:
			return ReasonOK
		}
		return ReasonUnknownStep
	}

	idx := e.flow.IndexOf(step)
	if idx < 0 {
		return ReasonUnknownStep
	}
	if idx > e.HighestCompletedIndex(snap)+1 {
		return ReasonOutOfSequence
	}
	return ReasonOK
}

// HighestCompletedIndex returns the flow index of the furthest step the user has completed,
// or -1 when nothing is completed. Lessons are completed by a progress record and
// personalization steps by having their required fields filled. Records for lessons
// the flow does not contain are ignored.
func (e *Engine) HighestCompletedIndex(snap *Snapshot) int {
	highest := -1
	if e.Degraded() || snap == nil {
		return highest
	}

	for _, lessonID := range snap.CompletedLessons {
		if idx := e.flow.IndexOf(models.LessonStep(lessonID)); idx > highest {
			highest = idx
		}
	}
	for idx, step := range e.flow.Steps() {
		if idx > highest && step.IsPersonalization() && e.FormSatisfied(snap, step.FormID) {
			highest = idx
		}
	}
	return highest
}

// NextStep returns the step that follows step. The second value is false when
// step is the last one or unknown.
func (e *Engine) NextStep(step models.Step) (models.Step, bool) {
	if e.Degraded() {
		if step.IsLesson() && step.LessonID > 0 {
			return models.LessonStep(step.LessonID + 1), true
		}
		return models.Step{}, false
	}
	return e.flow.Next(step)
}

// CurrentStep derives the step the user should be on: the one right after the furthest
// completed step, or the last step once everything is completed.
func (e *Engine) CurrentStep(snap *Snapshot) models.Step {
	if e.Degraded() {
		return models.LessonStep(highestLesson(snap) + 1)
	}

	if step, ok := e.flow.At(e.HighestCompletedIndex(snap) + 1); ok {
		return step
	}
	return e.flow.Last()
}

// IsSatisfied reports whether the user is done with step. A personalization form that
// generates content is done once its fields are filled and its jobs have been created.
func (e *Engine) IsSatisfied(snap *Snapshot, step models.Step) bool {
	switch step.Kind {
	case models.StepKindLesson:
		return snap.HasCompleted(step.LessonID)
	case models.StepKindPersonalization:
		if !e.FormSatisfied(snap, step.FormID) {
			return false
		}
		form, _ := e.forms.Get(step.FormID)
		return !form.TriggersGeneration() || e.FormJobsCreated(snap, step.FormID)
	}
	return false
}

// FormSatisfied reports whether the profile holds every required field of the form.
// A form without required fields counts as filled once any of its fields has a value.
func (e *Engine) FormSatisfied(snap *Snapshot, formID string) bool {
	form, ok := e.forms.Get(formID)
	if !ok || snap == nil {
		return false
	}

	required := form.RequiredFields()
	if len(required) == 0 {
		for _, field := range form.Fields {
			if snap.ProfileData.Has(field.ID) {
				return true
			}
		}
		return false
	}

	for _, key := range required {
		if !snap.ProfileData.Has(key) {
			return false
		}
	}
	return true
}

// FormJobsCreated reports whether content generation jobs exist for any lesson the form feeds
func (e *Engine) FormJobsCreated(snap *Snapshot, formID string) bool {
	form, ok := e.forms.Get(formID)
	if !ok || snap == nil {
		return false
	}
	for _, lessonID := range form.UsedInLessons {
		if len(snap.Jobs[lessonID]) > 0 {
			return true
		}
	}
	return false
}

// GenerationState returns the state of the generated content of lessonID
func (e *Engine) GenerationState(snap *Snapshot, lessonID int) GenerationState {
	if !e.DependsOnContent(lessonID) {
		return GenerationNotRequired
	}
	if snap == nil {
		return GenerationNotSubmitted
	}
	return stateOf(snap.Jobs[lessonID])
}

// StatusInfo reports whether the user can proceed into lessonID as far as generated
// content is concerned. A lesson without any job is not ready: the owning form has
// not been submitted yet.
func (e *Engine) StatusInfo(snap *Snapshot, lessonID int) StatusInfo {
	state := e.GenerationState(snap, lessonID)
	canProceed := state == GenerationReady || state == GenerationNotRequired
	return StatusInfo{
		LessonID:   lessonID,
		CanProceed: canProceed,
		State:      state,
		Message:    messageOf(state),
	}
}

// ProgressPercentage returns the share of flow steps the user has completed, 0 to 100
func (e *Engine) ProgressPercentage(snap *Snapshot) int {
	if e.Degraded() || snap == nil {
		return 0
	}

	done := 0
	for _, step := range e.flow.Steps() {
		switch {
		case step.IsLesson() && snap.HasCompleted(step.LessonID):
			done++
		case step.IsPersonalization() && e.FormSatisfied(snap, step.FormID):
			done++
		}
	}
	return int(math.Round(float64(done) * 100 / float64(e.flow.Len())))
}

// Drift lists stored records that refer to lessons outside the course flow
func (e *Engine) Drift(snap *Snapshot) []*DataDriftError {
	if e.Degraded() || snap == nil {
		return nil
	}

	var drift []*DataDriftError
	for _, lessonID := range snap.CompletedLessons {
		if !e.flow.Contains(models.LessonStep(lessonID)) {
			drift = append(drift, &DataDriftError{UserID: snap.UserID, LessonID: lessonID, Source: "progress"})
		}
	}

	lessons := make([]int, 0, len(snap.Jobs))
	for lessonID, statuses := range snap.Jobs {
		if len(statuses) > 0 {
			lessons = append(lessons, lessonID)
		}
	}
	sort.Ints(lessons)
	for _, lessonID := range lessons {
		if !e.flow.Contains(models.LessonStep(lessonID)) {
			drift = append(drift, &DataDriftError{UserID: snap.UserID, LessonID: lessonID, Source: "jobs"})
		}
	}
	return drift
}

func highestLesson(snap *Snapshot) int {
	highest := 0
	if snap == nil {
		return highest
	}
	for _, lessonID := range snap.CompletedLessons {
		if lessonID > highest {
			highest = lessonID
		}
	}
	return highest
}
