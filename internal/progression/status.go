package progression

import "github.com/linguapath/backend/internal/models"

// GenerationState describes where the personalized content of a lesson stands
type GenerationState string

const (
	// GenerationNotRequired means the lesson has no generated content
	GenerationNotRequired GenerationState = "not_required"
	// GenerationNotSubmitted means the lesson depends on generated content but no job exists yet
	GenerationNotSubmitted GenerationState = "not_submitted"
	GenerationPending      GenerationState = "pending"
	GenerationProcessing   GenerationState = "processing"
	GenerationFailed       GenerationState = "failed"
	GenerationRejected     GenerationState = "rejected"
	// GenerationReady means at least one job exists and every job is completed
	GenerationReady GenerationState = "ready"
)

// Messages shown on the waiting screen
const (
	MessagePending      = "We're preparing your personalized content. This usually takes within 24 hours."
	MessageProcessing   = "We're processing your personalized content. This usually takes within 24 hours."
	MessageNotSubmitted = "Complete your personalization form to unlock this lesson."
	MessageRejected     = "Your personalized content could not be approved. Please contact support to continue."
	MessageFailed       = "Something went wrong while generating your personalized content. We will try again shortly."
	MessageUnavailable  = "Unable to check personalization status. Please try again later."
)

// StatusInfo is the answer to "can the user proceed into this lesson yet"
type StatusInfo struct {
	LessonID   int             `json:"lessonId"`
	CanProceed bool            `json:"canProceed"`
	State      GenerationState `json:"state"`
	Message    string          `json:"message,omitempty"`
}

// UnavailableStatus is reported when job statuses could not be read
func UnavailableStatus(lessonID int) StatusInfo {
	return StatusInfo{LessonID: lessonID, Message: MessageUnavailable}
}

func stateOf(statuses []models.TTSRequestStatus) GenerationState {
	if len(statuses) == 0 {
		return GenerationNotSubmitted
	}

	var completed, rejected, failed, processing int
	for _, status := range statuses {
		switch status {
		case models.TTSRequestStatusCompleted:
			completed++
		case models.TTSRequestStatusRejected:
			rejected++
		case models.TTSRequestStatusFailed:
			failed++
		case models.TTSRequestStatusProcessing, models.TTSRequestStatusApproved:
			processing++
		}
	}

	switch {
	case completed == len(statuses):
		return GenerationReady
	case rejected > 0:
		return GenerationRejected
	case failed > 0:
		return GenerationFailed
	case processing > 0:
		return GenerationProcessing
	default:
		return GenerationPending
	}
}

func messageOf(state GenerationState) string {
	switch state {
	case GenerationPending:
		return MessagePending
	case GenerationProcessing:
		return MessageProcessing
	case GenerationNotSubmitted:
		return MessageNotSubmitted
	case GenerationRejected:
		return MessageRejected
	case GenerationFailed:
		return MessageFailed
	}
	return ""
}
