package courseflow

import (
	"testing"

	"github.com/linguapath/backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleSteps() []models.Step {
	return []models.Step{
		models.LessonStep(1),
		models.LessonStep(2),
		models.PersonalizationStep("basic"),
		models.LessonStep(3),
	}
}

func TestNewFlow(t *testing.T) {
	tests := []struct {
		name          string
		steps         []models.Step
		expectedError bool
	}{
		{name: "success", steps: sampleSteps()},
		{name: "empty flow", steps: nil, expectedError: true},
		{name: "duplicate lesson", steps: []models.Step{models.LessonStep(1), models.LessonStep(1)}, expectedError: true},
		{name: "duplicate form", steps: []models.Step{models.PersonalizationStep("a"), models.PersonalizationStep("a")}, expectedError: true},
		{name: "same id across kinds is allowed", steps: []models.Step{models.LessonStep(1), models.PersonalizationStep("1")}},
		{name: "non positive lesson id", steps: []models.Step{models.LessonStep(0)}, expectedError: true},
		{name: "empty form id", steps: []models.Step{models.PersonalizationStep("")}, expectedError: true},
		{name: "unknown kind", steps: []models.Step{{Kind: "quiz"}}, expectedError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			flow, err := NewFlow("en-es", tt.steps)
			if tt.expectedError {
				assert.Error(t, err)
				assert.Nil(t, flow)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, len(tt.steps), flow.Len())
		})
	}
}

func TestFlow_Navigation(t *testing.T) {
	flow, err := NewFlow("en-es", sampleSteps())
	require.NoError(t, err)

	assert.Equal(t, "en-es", flow.CourseID())
	assert.Equal(t, models.LessonStep(1), flow.First())
	assert.Equal(t, models.LessonStep(3), flow.Last())
	assert.Equal(t, 2, flow.IndexOf(models.PersonalizationStep("basic")))
	assert.Equal(t, -1, flow.IndexOf(models.LessonStep(99)))
	assert.True(t, flow.Contains(models.LessonStep(2)))

	next, ok := flow.Next(models.LessonStep(2))
	assert.True(t, ok)
	assert.Equal(t, models.PersonalizationStep("basic"), next)

	_, ok = flow.Next(models.LessonStep(3))
	assert.False(t, ok, "last step has no successor")

	_, ok = flow.Next(models.LessonStep(42))
	assert.False(t, ok, "unknown step has no successor")

	prev, ok := flow.Previous(models.LessonStep(3))
	assert.True(t, ok)
	assert.Equal(t, models.PersonalizationStep("basic"), prev)

	_, ok = flow.Previous(models.LessonStep(1))
	assert.False(t, ok)

	steps := flow.Steps()
	steps[0] = models.LessonStep(100)
	assert.Equal(t, models.LessonStep(1), flow.First(), "Steps returns a copy")
}

func TestForms(t *testing.T) {
	forms := Forms{
		"basic": {ID: "basic", UsedInLessons: []int{7, 8}},
		"work":  {ID: "work", UsedInLessons: []int{8, 12}},
		"empty": {ID: "empty"},
	}

	assert.Equal(t, []string{"basic"}, forms.OwnersOf(7))
	assert.Equal(t, []string{"basic", "work"}, forms.OwnersOf(8))
	assert.Empty(t, forms.OwnersOf(1))
	assert.Equal(t, []int{7, 8, 12}, forms.DependentLessons())

	form, ok := forms.Get("work")
	require.True(t, ok)
	assert.Equal(t, "work", form.ID)

	_, ok = forms.Get("missing")
	assert.False(t, ok)
}
