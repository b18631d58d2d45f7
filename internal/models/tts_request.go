package models

import (
	"slices"
	"time"
)

// TTSRequestStatus represents the status of a content generation job
type TTSRequestStatus string

const (
	TTSRequestStatusPending    TTSRequestStatus = "pending"
	TTSRequestStatusApproved   TTSRequestStatus = "approved"
	TTSRequestStatusProcessing TTSRequestStatus = "processing"
	TTSRequestStatusCompleted  TTSRequestStatus = "completed"
	TTSRequestStatusRejected   TTSRequestStatus = "rejected"
	TTSRequestStatusFailed     TTSRequestStatus = "failed"
)

var ttsTransitions = map[TTSRequestStatus][]TTSRequestStatus{
	TTSRequestStatusPending:    {TTSRequestStatusApproved, TTSRequestStatusRejected},
	TTSRequestStatusApproved:   {TTSRequestStatusProcessing, TTSRequestStatusRejected},
	TTSRequestStatusProcessing: {TTSRequestStatusCompleted, TTSRequestStatusFailed},
	TTSRequestStatusFailed:     {TTSRequestStatusApproved},
}

// IsValid reports whether s is a known status
func (s TTSRequestStatus) IsValid() bool {
	switch s {
	case TTSRequestStatusPending, TTSRequestStatusApproved, TTSRequestStatusProcessing,
		TTSRequestStatusCompleted, TTSRequestStatusRejected, TTSRequestStatusFailed:
		return true
	}
	return false
}

// IsTerminal reports whether no further transition is possible
func (s TTSRequestStatus) IsTerminal() bool {
	return len(ttsTransitions[s]) == 0
}

// CanTransitionTo reports whether moving from s to next is allowed
func (s TTSRequestStatus) CanTransitionTo(next TTSRequestStatus) bool {
	return slices.Contains(ttsTransitions[s], next)
}

// SourcesOf returns the statuses that may transition to target
func SourcesOf(target TTSRequestStatus) []TTSRequestStatus {
	var sources []TTSRequestStatus
	for _, from := range []TTSRequestStatus{
		TTSRequestStatusPending, TTSRequestStatusApproved, TTSRequestStatusProcessing,
		TTSRequestStatusCompleted, TTSRequestStatusRejected, TTSRequestStatusFailed,
	} {
		if from.CanTransitionTo(target) {
			sources = append(sources, from)
		}
	}
	return sources
}

// TTSRequest represents a content generation job: one personalized audio file for a lesson
type TTSRequest struct {
	ID               int              `json:"id"`
	UserID           int              `json:"userId"`
	LessonID         int              `json:"lessonId"`
	SectionName      string           `json:"sectionName"`
	AudioFilename    string           `json:"audioFilename"`
	PersonalizedText string           `json:"personalizedText"`
	NativeText       string           `json:"nativeText"`
	SentenceCount    int              `json:"sentenceCount"`
	RepeatCount      int              `json:"repeatCount"`
	Status           TTSRequestStatus `json:"status"`
	RejectionReason  string           `json:"rejectionReason,omitempty"`
	AudioURL         string           `json:"audioUrl,omitempty"`
	CreatedAt        time.Time        `json:"createdAt"`
	ApprovedAt       *time.Time       `json:"approvedAt,omitempty"`
	CompletedAt      *time.Time       `json:"completedAt,omitempty"`
}

// TTSRequestListItem represents a content generation job in admin list responses
type TTSRequestListItem struct {
	ID               int              `json:"id"`
	UserID           int              `json:"userId"`
	LessonID         int              `json:"lessonId"`
	SectionName      string           `json:"sectionName"`
	AudioFilename    string           `json:"audioFilename"`
	PersonalizedText string           `json:"personalizedText"`
	Status           TTSRequestStatus `json:"status"`
	CreatedAt        time.Time        `json:"createdAt"`
}

// LessonJobStatus represents the status of one job of a lesson
type LessonJobStatus struct {
	LessonID int              `json:"lessonId"`
	Status   TTSRequestStatus `json:"status"`
}

// RejectTTSRequest represents an admin request to reject a job
type RejectTTSRequest struct {
	Reason string `json:"reason"`
}

// UpdateTTSStatusRequest represents a status callback from the external TTS engine
type UpdateTTSStatusRequest struct {
	UserID        int              `json:"userId"`
	LessonID      int              `json:"lessonId"`
	Status        TTSRequestStatus `json:"status"`
	AudioFilename string           `json:"audioFilename,omitempty"`
}

// TTSStatusTransition describes a compare-and-set status change of a job.
// The change applies only while the job is in one of From.
type TTSStatusTransition struct {
	From            []TTSRequestStatus
	To              TTSRequestStatus
	RejectionReason string
	AudioURL        string
}

// NewTTSRecoveryTransition returns a job stalled in processing to approved so it is rendered again.
// This edge is not part of the lifecycle offered to admins and status callbacks.
func NewTTSRecoveryTransition() TTSStatusTransition {
	return TTSStatusTransition{
		From: []TTSRequestStatus{TTSRequestStatusProcessing},
		To:   TTSRequestStatusApproved,
	}
}

// NewTTSStatusTransition creates a transition to status from every status allowed to reach it
func NewTTSStatusTransition(to TTSRequestStatus) TTSStatusTransition {
	return TTSStatusTransition{From: SourcesOf(to), To: to}
}
