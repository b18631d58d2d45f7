package gate

import (
	"errors"
	"net/http"
	"testing"

	"github.com/linguapath/backend/internal/courseflow"
	"github.com/linguapath/backend/internal/models"
	"github.com/linguapath/backend/internal/progression"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupTestGate builds [L1, L2, P basic, L3, L4] where basic generates content for lesson 3
func setupTestGate(t *testing.T, generating bool) *Gate {
	t.Helper()
	flow, err := courseflow.NewFlow("en-es", []models.Step{
		models.LessonStep(1),
		models.LessonStep(2),
		models.PersonalizationStep("basic"),
		models.LessonStep(3),
		models.LessonStep(4),
	})
	require.NoError(t, err)

	form := models.PersonalizationForm{
		ID:     "basic",
		Fields: []models.FormField{{ID: "name", Required: true}},
	}
	if generating {
		form.UsedInLessons = []int{3}
	}
	return New(progression.NewEngine(flow, courseflow.Forms{"basic": form}))
}

func snapshot(status models.AccountStatus, completed ...int) *progression.Snapshot {
	return &progression.Snapshot{UserID: 1, Status: status, CompletedLessons: completed}
}

func TestGate_Resolve(t *testing.T) {
	filled := models.ProfileData{"name": "Lee"}

	tests := []struct {
		name             string
		generating       bool
		request          func() Request
		expectedAction   Action
		expectedLocation string
		expectedReason   string
		expectedStatus   int
	}{
		{
			name:             "unauthenticated goes to login",
			request:          func() Request { return Request{Step: models.LessonStep(1)} },
			expectedAction:   ActionRedirect,
			expectedLocation: PathLogin,
			expectedReason:   ReasonUnauthenticated,
			expectedStatus:   http.StatusOK,
		},
		{
			name: "store failure asks for retry instead of login",
			request: func() Request {
				return Request{Authenticated: true, SnapshotErr: errors.New("connection refused"), Step: models.LessonStep(1)}
			},
			expectedAction: ActionRetry,
			expectedReason: ReasonStateUnavailable,
			expectedStatus: http.StatusServiceUnavailable,
		},
		{
			name: "pending account",
			request: func() Request {
				return Request{Authenticated: true, Snapshot: snapshot(models.AccountStatusPending), Step: models.LessonStep(1)}
			},
			expectedAction:   ActionRedirect,
			expectedLocation: PathPending,
			expectedReason:   ReasonNotApproved,
		},
		{
			name: "first lesson renders for a new user",
			request: func() Request {
				return Request{Authenticated: true, Snapshot: snapshot(models.AccountStatusApproved), Step: models.LessonStep(1)}
			},
			expectedAction: ActionRender,
			expectedStatus: http.StatusOK,
		},
		{
			name: "later lesson redirects to current step",
			request: func() Request {
				return Request{Authenticated: true, Snapshot: snapshot(models.AccountStatusApproved, 1), Step: models.LessonStep(4)}
			},
			expectedAction:   ActionRedirect,
			expectedLocation: "/lessons/2",
			expectedReason:   ReasonOutOfSequence,
		},
		{
			name: "unknown lesson redirects to current step",
			request: func() Request {
				return Request{Authenticated: true, Snapshot: snapshot(models.AccountStatusApproved, 1), Step: models.LessonStep(40)}
			},
			expectedAction:   ActionRedirect,
			expectedLocation: "/lessons/2",
			expectedReason:   ReasonUnknownStep,
		},
		{
			name: "satisfied form redirects forward",
			request: func() Request {
				snap := snapshot(models.AccountStatusApproved, 1, 2)
				snap.ProfileData = filled
				return Request{Authenticated: true, Snapshot: snap, Step: models.PersonalizationStep("basic")}
			},
			expectedAction:   ActionRedirect,
			expectedLocation: "/lessons/3",
			expectedReason:   ReasonAlreadySatisfied,
		},
		{
			name: "unfilled form renders",
			request: func() Request {
				return Request{Authenticated: true, Snapshot: snapshot(models.AccountStatusApproved, 1, 2), Step: models.PersonalizationStep("basic")}
			},
			expectedAction: ActionRender,
		},
		{
			name:       "generating form with fields but without jobs renders",
			generating: true,
			request: func() Request {
				snap := snapshot(models.AccountStatusApproved, 1, 2)
				snap.ProfileData = filled
				return Request{Authenticated: true, Snapshot: snap, Step: models.PersonalizationStep("basic")}
			},
			expectedAction: ActionRender,
		},
		{
			name:       "generating form with jobs redirects forward",
			generating: true,
			request: func() Request {
				snap := snapshot(models.AccountStatusApproved, 1, 2)
				snap.ProfileData = filled
				snap.Jobs = map[int][]models.TTSRequestStatus{3: {models.TTSRequestStatusPending}}
				return Request{Authenticated: true, Snapshot: snap, Step: models.PersonalizationStep("basic")}
			},
			expectedAction:   ActionRedirect,
			expectedLocation: "/lessons/3",
			expectedReason:   ReasonAlreadySatisfied,
		},
		{
			name:       "pending jobs show the waiting screen",
			generating: true,
			request: func() Request {
				snap := snapshot(models.AccountStatusApproved, 1, 2)
				snap.ProfileData = filled
				snap.Jobs = map[int][]models.TTSRequestStatus{3: {models.TTSRequestStatusCompleted, models.TTSRequestStatusPending}}
				return Request{Authenticated: true, Snapshot: snap, Step: models.LessonStep(3)}
			},
			expectedAction: ActionBlocked,
			expectedReason: ReasonAwaitingContent,
			expectedStatus: http.StatusOK,
		},
		{
			name:       "completed jobs render the lesson",
			generating: true,
			request: func() Request {
				snap := snapshot(models.AccountStatusApproved, 1, 2)
				snap.ProfileData = filled
				snap.Jobs = map[int][]models.TTSRequestStatus{3: {models.TTSRequestStatusCompleted}}
				return Request{Authenticated: true, Snapshot: snap, Step: models.LessonStep(3)}
			},
			expectedAction: ActionRender,
		},
		{
			name:       "missing jobs send the user back to the form",
			generating: true,
			request: func() Request {
				snap := snapshot(models.AccountStatusApproved, 1, 2)
				snap.ProfileData = filled
				return Request{Authenticated: true, Snapshot: snap, Step: models.LessonStep(3)}
			},
			expectedAction:   ActionRedirect,
			expectedLocation: "/personalize/basic",
			expectedReason:   ReasonFormRequired,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := setupTestGate(t, tt.generating)

			decision := g.Resolve(tt.request())

			assert.Equal(t, tt.expectedAction, decision.Action)
			assert.Equal(t, tt.expectedLocation, decision.Location)
			if tt.expectedReason != "" {
				assert.Equal(t, tt.expectedReason, decision.Reason)
			}
			if tt.expectedStatus != 0 {
				assert.Equal(t, tt.expectedStatus, decision.HTTPStatus())
			}
		})
	}
}

func TestGate_BlockedCarriesStatusInfo(t *testing.T) {
	g := setupTestGate(t, true)
	snap := snapshot(models.AccountStatusApproved, 1, 2)
	snap.ProfileData = models.ProfileData{"name": "Lee"}
	snap.Jobs = map[int][]models.TTSRequestStatus{3: {models.TTSRequestStatusProcessing}}

	decision := g.Resolve(Request{Authenticated: true, Snapshot: snap, Step: models.LessonStep(3)})

	require.NotNil(t, decision.Status)
	assert.False(t, decision.Status.CanProceed)
	assert.Equal(t, progression.GenerationProcessing, decision.Status.State)
	assert.Equal(t, progression.MessageProcessing, decision.Status.Message)
	require.NotNil(t, decision.Target)
	assert.Equal(t, models.LessonStep(3), *decision.Target)
}

func TestGate_SatisfiedLastStepDoesNotLoop(t *testing.T) {
	flow, err := courseflow.NewFlow("en-es", []models.Step{
		models.LessonStep(1),
		models.PersonalizationStep("final"),
	})
	require.NoError(t, err)
	g := New(progression.NewEngine(flow, courseflow.Forms{
		"final": {ID: "final", Fields: []models.FormField{{ID: "feedback", Required: true}}},
	}))

	snap := snapshot(models.AccountStatusApproved, 1)
	snap.ProfileData = models.ProfileData{"feedback": "great"}

	decision := g.Resolve(Request{Authenticated: true, Snapshot: snap, Step: models.PersonalizationStep("final")})
	assert.Equal(t, ActionRender, decision.Action)
	assert.Equal(t, ReasonAlreadySatisfied, decision.Reason)
	assert.Empty(t, decision.Location)
}

func TestGate_DegradedMode(t *testing.T) {
	g := New(progression.NewEngine(nil, nil))
	snap := snapshot(models.AccountStatusApproved, 1, 2)

	assert.Equal(t, ActionRender, g.Resolve(Request{Authenticated: true, Snapshot: snap, Step: models.LessonStep(3)}).Action)

	decision := g.Resolve(Request{Authenticated: true, Snapshot: snap, Step: models.LessonStep(5)})
	assert.Equal(t, ActionRedirect, decision.Action)
	assert.Equal(t, "/lessons/3", decision.Location)

	assert.Equal(t, ActionRender, g.Resolve(Request{Authenticated: true, Snapshot: snap, Step: models.PersonalizationStep("basic")}).Action)
}
