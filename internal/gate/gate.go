// Package gate turns progression rules into a per-view routing decision:
// render the step, redirect somewhere else, show the waiting screen, or ask for a retry.
package gate

import (
	"net/http"

	"github.com/linguapath/backend/internal/models"
	"github.com/linguapath/backend/internal/progression"
)

// Action is what the view layer should do with a request
type Action string

const (
	ActionRender   Action = "render"
	ActionRedirect Action = "redirect"
	// ActionBlocked renders the waiting screen for content that is still being generated
	ActionBlocked Action = "blocked"
	// ActionRetry means the user state could not be read. It never implies a login problem.
	ActionRetry Action = "retry"
)

// View paths outside the course flow
const (
	PathLogin   = "/login"
	PathPending = "/pending"
)

// Reasons attached to decisions
const (
	ReasonUnauthenticated  = "unauthenticated"
	ReasonStateUnavailable = "state_unavailable"
	ReasonNotApproved      = "not_approved"
	ReasonAlreadySatisfied = "already_satisfied"
	ReasonOutOfSequence    = "out_of_sequence"
	ReasonUnknownStep      = "unknown_step"
	ReasonAwaitingContent  = "awaiting_content"
	ReasonFormRequired     = "form_required"
)

// Request is one protected page view
type Request struct {
	Authenticated bool
	Snapshot      *progression.Snapshot
	// SnapshotErr is set when the user state could not be loaded
	SnapshotErr error
	Step        models.Step
}

// Decision is the outcome of a page view
type Decision struct {
	Action   Action                  `json:"action"`
	Location string                  `json:"location,omitempty"`
	Target   *models.Step            `json:"step,omitempty"`
	Status   *progression.StatusInfo `json:"status,omitempty"`
	Reason   string                  `json:"reason,omitempty"`
}

// HTTPStatus maps the decision to a response status code.
// Redirects are answered with 200: Location is a view path the client navigates to, not an API route.
func (d Decision) HTTPStatus() int {
	if d.Action == ActionRetry {
		return http.StatusServiceUnavailable
	}
	return http.StatusOK
}

// Gate resolves page views against a progression engine
type Gate struct {
	engine *progression.Engine
}

// New creates a gate
func New(engine *progression.Engine) *Gate {
	return &Gate{engine: engine}
}

// Resolve applies the routing rules in order and returns the first that matches
func (g *Gate) Resolve(req Request) Decision {
	if !req.Authenticated {
		return Decision{Action: ActionRedirect, Location: PathLogin, Reason: ReasonUnauthenticated}
	}

	if req.SnapshotErr != nil || req.Snapshot == nil {
		status := progression.UnavailableStatus(req.Step.LessonID)
		return Decision{Action: ActionRetry, Status: &status, Reason: ReasonStateUnavailable}
	}

	snap := req.Snapshot
	if !snap.Approved() {
		return Decision{Action: ActionRedirect, Location: PathPending, Reason: ReasonNotApproved}
	}

	if req.Step.IsPersonalization() && g.engine.IsSatisfied(snap, req.Step) {
		next, ok := g.engine.NextStep(req.Step)
		if !ok {
			next = g.engine.CurrentStep(snap)
		}
		if next.Key() == req.Step.Key() {
			// last step of the course, nothing to move on to
			return Decision{Action: ActionRender, Target: stepPtr(req.Step), Reason: ReasonAlreadySatisfied}
		}
		return redirectTo(next, ReasonAlreadySatisfied)
	}

	access := g.engine.Access(snap, req.Step)
	switch access.Reason {
	case progression.ReasonOK:
		return Decision{Action: ActionRender, Target: stepPtr(req.Step)}
	case progression.ReasonOutOfSequence:
		return redirectTo(g.engine.CurrentStep(snap), ReasonOutOfSequence)
	case progression.ReasonUnknownStep:
		return redirectTo(g.engine.CurrentStep(snap), ReasonUnknownStep)
	case progression.ReasonAwaitingContent:
		return g.awaitingContent(snap, req.Step)
	}

	return redirectTo(g.engine.CurrentStep(snap), string(access.Reason))
}

// awaitingContent sends the user to the form that generates the lesson content when it
// has not been submitted yet, and to the waiting screen otherwise
func (g *Gate) awaitingContent(snap *progression.Snapshot, step models.Step) Decision {
	status := g.engine.StatusInfo(snap, step.LessonID)

	if status.State == progression.GenerationNotSubmitted {
		for _, formID := range g.engine.OwningForms(step.LessonID) {
			form := models.PersonalizationStep(formID)
			if !g.engine.IsSatisfied(snap, form) && g.engine.CanAccess(snap, form) {
				decision := redirectTo(form, ReasonFormRequired)
				decision.Status = &status
				return decision
			}
		}
	}

	return Decision{
		Action: ActionBlocked,
		Target: stepPtr(step),
		Status: &status,
		Reason: ReasonAwaitingContent,
	}
}

func redirectTo(step models.Step, reason string) Decision {
	return Decision{
		Action:   ActionRedirect,
		Location: step.Path(),
		Target:   stepPtr(step),
		Reason:   reason,
	}
}

func stepPtr(step models.Step) *models.Step {
	return &step
}
