package progression

import (
	"slices"

	"github.com/linguapath/backend/internal/models"
)

// Snapshot is everything the engine knows about one user at one moment.
// It is assembled by the caller from the progress, profile and job stores.
type Snapshot struct {
	UserID           int
	Status           models.AccountStatus
	ProfileData      models.ProfileData
	CompletedLessons []int
	// Jobs holds the statuses of the content generation jobs per lesson
	Jobs map[int][]models.TTSRequestStatus
}

// Approved reports whether the account has been approved
func (s *Snapshot) Approved() bool {
	return s != nil && s.Status == models.AccountStatusApproved
}

// HasCompleted reports whether lessonID has a completion record
func (s *Snapshot) HasCompleted(lessonID int) bool {
	return s != nil && slices.Contains(s.CompletedLessons, lessonID)
}

// WithCompleted returns a copy of the snapshot that also contains a completion of lessonID.
// It is used to compute navigation right after a successful write without re-reading the store.
func (s *Snapshot) WithCompleted(lessonID int) *Snapshot {
	out := s.clone()
	if !slices.Contains(out.CompletedLessons, lessonID) {
		out.CompletedLessons = append(out.CompletedLessons, lessonID)
	}
	return out
}

// WithProfileData returns a copy of the snapshot with data merged over the profile
func (s *Snapshot) WithProfileData(data models.ProfileData) *Snapshot {
	out := s.clone()
	out.ProfileData = out.ProfileData.Merge(data)
	return out
}

// WithJobs returns a copy of the snapshot with the job statuses of lessonID replaced
func (s *Snapshot) WithJobs(lessonID int, statuses []models.TTSRequestStatus) *Snapshot {
	out := s.clone()
	out.Jobs[lessonID] = slices.Clone(statuses)
	return out
}

func (s *Snapshot) clone() *Snapshot {
	out := &Snapshot{Jobs: make(map[int][]models.TTSRequestStatus)}
	if s == nil {
		return out
	}
	out.UserID = s.UserID
	out.Status = s.Status
	out.CompletedLessons = slices.Clone(s.CompletedLessons)
	if s.ProfileData != nil {
		out.ProfileData = s.ProfileData.Merge(nil)
	}
	for lessonID, statuses := range s.Jobs {
		out.Jobs[lessonID] = slices.Clone(statuses)
	}
	return out
}
