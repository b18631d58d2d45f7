package courseflow

import (
	"slices"
	"sort"

	"github.com/linguapath/backend/internal/models"
)

// Forms maps form ids to personalization form definitions
type Forms map[string]models.PersonalizationForm

// Get returns the form with the given id
func (fs Forms) Get(id string) (*models.PersonalizationForm, bool) {
	form, ok := fs[id]
	if !ok {
		return nil, false
	}
	return &form, true
}

// OwnersOf returns the ids of the forms whose answers generate content for lessonID, sorted
func (fs Forms) OwnersOf(lessonID int) []string {
	var owners []string
	for id, form := range fs {
		if slices.Contains(form.UsedInLessons, lessonID) {
			owners = append(owners, id)
		}
	}
	sort.Strings(owners)
	return owners
}

// DependentLessons returns every lesson that waits on generated content, sorted
func (fs Forms) DependentLessons() []int {
	seen := make(map[int]struct{})
	for _, form := range fs {
		for _, lessonID := range form.UsedInLessons {
			seen[lessonID] = struct{}{}
		}
	}

	lessons := make([]int, 0, len(seen))
	for lessonID := range seen {
		lessons = append(lessons, lessonID)
	}
	sort.Ints(lessons)
	return lessons
}
