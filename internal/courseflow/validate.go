package courseflow

import (
	"errors"
	"fmt"

	"github.com/linguapath/backend/internal/models"
)

// Validate cross-checks a flow against its forms.
//
// Every personalization step needs a form definition, and every lesson a form
// generates content for must be in the flow after that form. A lesson that waits
// on content from a form the flow never shows could never be unlocked.
func Validate(flow *Flow, forms Forms) error {
	var errs []error

	for _, step := range flow.Steps() {
		if step.IsPersonalization() {
			if _, ok := forms.Get(step.FormID); !ok {
				errs = append(errs, fmt.Errorf("personalization step %q has no form definition", step.FormID))
			}
		}
	}

	for id, form := range forms {
		if !form.TriggersGeneration() {
			continue
		}
		formIndex := flow.IndexOf(models.PersonalizationStep(id))
		if formIndex < 0 {
			errs = append(errs, fmt.Errorf("form %q generates content for lessons %v but is not part of the flow", id, form.UsedInLessons))
			continue
		}
		for _, lessonID := range form.UsedInLessons {
			lessonIndex := flow.IndexOf(models.LessonStep(lessonID))
			switch {
			case lessonIndex < 0:
				errs = append(errs, fmt.Errorf("form %q references lesson %d which is not in the flow", id, lessonID))
			case lessonIndex < formIndex:
				errs = append(errs, fmt.Errorf("form %q generates content for lesson %d which comes before it", id, lessonID))
			}
		}
	}

	if len(errs) > 0 {
		return &ConfigLoadError{Err: errors.Join(errs...)}
	}
	return nil
}
