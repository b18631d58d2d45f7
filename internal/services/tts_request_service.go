package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/linguapath/backend/internal/models"
	"github.com/linguapath/backend/internal/monitoring"
	"go.uber.org/zap"
)

// TTSRequestRepository is the interface that wraps methods for tts_requests table data access
type TTSRequestRepository interface {
	// GetAll retrieves a page of jobs
	//
	// "page" and "count" parameters are used for pagination.
	// "userID" parameter filters by user when it is not 0.
	// "status" parameter filters by status when it is not empty.
	//
	// If some error occurs during data retrieve, the error will be returned together with "nil" value.
	GetAll(ctx context.Context, page, count int, userID int, status models.TTSRequestStatus) ([]models.TTSRequestListItem, error)
	// GetByID retrieves a job by its ID
	//
	// Returns models.ErrNotFound if the job does not exist.
	// Please reference GetAll method for more information about error values.
	GetByID(ctx context.Context, id int) (*models.TTSRequest, error)
	// GetIDsByStatus retrieves up to "limit" job IDs in the given status, oldest first
	//
	// Please reference GetAll method for more information about error values.
	GetIDsByStatus(ctx context.Context, status models.TTSRequestStatus, limit int) ([]int, error)
	// GetStaleIDs retrieves up to "limit" job IDs that have not changed for longer than "olderThan" in the given status
	//
	// Please reference GetAll method for more information about error values.
	GetStaleIDs(ctx context.Context, status models.TTSRequestStatus, olderThan time.Duration, limit int) ([]int, error)
	// TransitionStatus applies a compare-and-set status change to one job
	//
	// Returns "false" without error if the job does not exist or is not in one of the source statuses.
	TransitionStatus(ctx context.Context, id int, t models.TTSStatusTransition) (bool, error)
	// TransitionByUserLesson applies a compare-and-set status change to the jobs of a user's lesson
	//
	// "audioFilename" parameter narrows the update to one audio file when it is not empty.
	// Returns the number of updated jobs.
	TransitionByUserLesson(ctx context.Context, userID, lessonID int, audioFilename string, t models.TTSStatusTransition) (int, error)
}

// RenderEnqueuer submits approved jobs to the worker
type RenderEnqueuer interface {
	EnqueueRender(ctx context.Context, requestID int) error
}

// Listing limits
const (
	maxListCount     = 100
	defaultBulkLimit = 500
)

type ttsRequestService struct {
	repo     TTSRequestRepository
	enqueuer RenderEnqueuer
	logger   *zap.Logger
}

// NewTTSRequestService creates a new content generation job service
func NewTTSRequestService(repo TTSRequestRepository, enqueuer RenderEnqueuer, logger *zap.Logger) *ttsRequestService {
	return &ttsRequestService{
		repo:     repo,
		enqueuer: enqueuer,
		logger:   logger,
	}
}

// List retrieves a page of jobs for the review screen
//
// "page" must be at least 1, "count" between 1 and 100 and "status" empty or a known status.
// Otherwise *ValidationError will be returned.
func (s *ttsRequestService) List(ctx context.Context, page, count, userID int, status string) ([]models.TTSRequestListItem, error) {
	invalid := make(map[string]string)
	if page < 1 {
		invalid["page"] = "must be at least 1"
	}
	if count < 1 || count > maxListCount {
		invalid["count"] = fmt.Sprintf("must be between 1 and %d", maxListCount)
	}
	if userID < 0 {
		invalid["userId"] = "must not be negative"
	}
	if status != "" && !models.TTSRequestStatus(status).IsValid() {
		invalid["status"] = "unknown status " + status
	}
	if len(invalid) > 0 {
		return nil, &ValidationError{Fields: invalid}
	}

	items, err := s.repo.GetAll(ctx, page, count, userID, models.TTSRequestStatus(status))
	if err != nil {
		s.logger.Error("failed to list tts requests", zap.Error(err))
		return nil, fmt.Errorf("failed to list tts requests: %w", err)
	}
	return items, nil
}

// GetByID retrieves one job
func (s *ttsRequestService) GetByID(ctx context.Context, id int) (*models.TTSRequest, error) {
	request, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return request, nil
}

// Approve approves a pending or failed job and hands it to the worker.
// An enqueue failure is logged only: the scheduler sweep picks the job up later.
func (s *ttsRequestService) Approve(ctx context.Context, id int) error {
	if err := s.transition(ctx, id, models.NewTTSStatusTransition(models.TTSRequestStatusApproved)); err != nil {
		return err
	}
	s.enqueue(ctx, id)
	return nil
}

// ApprovePending approves up to "limit" pending jobs, oldest first, and returns how many were approved.
// A limit of 0 or less uses the default batch size.
func (s *ttsRequestService) ApprovePending(ctx context.Context, limit int) (int, error) {
	if limit <= 0 {
		limit = defaultBulkLimit
	}

	ids, err := s.repo.GetIDsByStatus(ctx, models.TTSRequestStatusPending, limit)
	if err != nil {
		return 0, fmt.Errorf("failed to get pending tts requests: %w", err)
	}

	approved := 0
	for _, id := range ids {
		ok, err := s.repo.TransitionStatus(ctx, id, models.TTSStatusTransition{
			From: []models.TTSRequestStatus{models.TTSRequestStatusPending},
			To:   models.TTSRequestStatusApproved,
		})
		if err != nil {
			return approved, fmt.Errorf("failed to approve tts request %d: %w", id, err)
		}
		if !ok {
			// approved or rejected concurrently
			continue
		}
		monitoring.TTSTransitions.WithLabelValues(string(models.TTSRequestStatusApproved)).Inc()
		approved++
		s.enqueue(ctx, id)
	}

	s.logger.Info("approved pending tts requests", zap.Int("count", approved))
	return approved, nil
}

// Reject rejects a pending or approved job. The reason is required.
func (s *ttsRequestService) Reject(ctx context.Context, id int, reason string) error {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return &ValidationError{Fields: map[string]string{"reason": "is required"}}
	}

	t := models.NewTTSStatusTransition(models.TTSRequestStatusRejected)
	t.RejectionReason = reason
	return s.transition(ctx, id, t)
}

// UpdateStatus applies a status reported by the external TTS engine to the jobs of a
// user's lesson, or to one audio file when the filename is given. Returns the number of
// updated jobs. When no job may take the status, ErrInvalidTransition is returned.
func (s *ttsRequestService) UpdateStatus(ctx context.Context, req models.UpdateTTSStatusRequest) (int, error) {
	invalid := make(map[string]string)
	if req.UserID <= 0 {
		invalid["userId"] = "must be positive"
	}
	if req.LessonID <= 0 {
		invalid["lessonId"] = "must be positive"
	}
	if !req.Status.IsValid() || req.Status == models.TTSRequestStatusPending {
		invalid["status"] = fmt.Sprintf("unsupported status %q", req.Status)
	}
	if len(invalid) > 0 {
		return 0, &ValidationError{Fields: invalid}
	}

	updated, err := s.repo.TransitionByUserLesson(ctx, req.UserID, req.LessonID, strings.TrimSpace(req.AudioFilename),
		models.NewTTSStatusTransition(req.Status))
	if err != nil {
		s.logger.Error("failed to update tts request status",
			zap.Int("user_id", req.UserID),
			zap.Int("lesson_id", req.LessonID),
			zap.String("status", string(req.Status)),
			zap.Error(err),
		)
		return 0, fmt.Errorf("failed to update tts request status: %w", err)
	}
	if updated == 0 {
		return 0, ErrInvalidTransition
	}

	monitoring.TTSTransitions.WithLabelValues(string(req.Status)).Add(float64(updated))
	s.logger.Info("tts request status updated",
		zap.Int("user_id", req.UserID),
		zap.Int("lesson_id", req.LessonID),
		zap.String("status", string(req.Status)),
		zap.Int("updated", updated),
	)
	return updated, nil
}

// StartProcessing claims an approved job for rendering and returns it
func (s *ttsRequestService) StartProcessing(ctx context.Context, id int) (*models.TTSRequest, error) {
	if err := s.transition(ctx, id, models.NewTTSStatusTransition(models.TTSRequestStatusProcessing)); err != nil {
		return nil, err
	}
	return s.repo.GetByID(ctx, id)
}

// Complete marks a processing job as completed with the location of its audio
func (s *ttsRequestService) Complete(ctx context.Context, id int, audioURL string) error {
	t := models.NewTTSStatusTransition(models.TTSRequestStatusCompleted)
	t.AudioURL = audioURL
	return s.transition(ctx, id, t)
}

// Fail marks a processing job as failed
func (s *ttsRequestService) Fail(ctx context.Context, id int) error {
	return s.transition(ctx, id, models.NewTTSStatusTransition(models.TTSRequestStatusFailed))
}

// SweepApproved re-submits approved jobs to the worker and returns how many were submitted.
// Render tasks are deduplicated by job, so a job that is still queued is not rendered twice.
func (s *ttsRequestService) SweepApproved(ctx context.Context, limit int) (int, error) {
	if limit <= 0 {
		limit = defaultBulkLimit
	}

	ids, err := s.repo.GetIDsByStatus(ctx, models.TTSRequestStatusApproved, limit)
	if err != nil {
		return 0, fmt.Errorf("failed to get approved tts requests: %w", err)
	}

	submitted := 0
	for _, id := range ids {
		if err := s.enqueuer.EnqueueRender(ctx, id); err != nil {
			s.logger.Error("failed to enqueue render task", zap.Int("request_id", id), zap.Error(err))
			continue
		}
		submitted++
	}
	return submitted, nil
}

// RecoverStale returns jobs stuck in processing for longer than "olderThan" to approved and
// submits them to the worker again. A worker that crashed mid-render or could not record the
// result leaves such jobs behind. Returns how many jobs were recovered.
func (s *ttsRequestService) RecoverStale(ctx context.Context, olderThan time.Duration, limit int) (int, error) {
	if limit <= 0 {
		limit = defaultBulkLimit
	}

	ids, err := s.repo.GetStaleIDs(ctx, models.TTSRequestStatusProcessing, olderThan, limit)
	if err != nil {
		return 0, fmt.Errorf("failed to get stale tts requests: %w", err)
	}

	recovered := 0
	for _, id := range ids {
		ok, err := s.repo.TransitionStatus(ctx, id, models.NewTTSRecoveryTransition())
		if err != nil {
			return recovered, fmt.Errorf("failed to recover tts request %d: %w", id, err)
		}
		if !ok {
			// finished while we looked
			continue
		}
		monitoring.TTSTransitions.WithLabelValues(string(models.TTSRequestStatusApproved)).Inc()
		s.logger.Warn("recovered stalled tts request", zap.Int("request_id", id))
		recovered++
		s.enqueue(ctx, id)
	}
	return recovered, nil
}

// transition applies a compare-and-set change to one job and tells a missing job apart
// from a job in the wrong status
func (s *ttsRequestService) transition(ctx context.Context, id int, t models.TTSStatusTransition) error {
	ok, err := s.repo.TransitionStatus(ctx, id, t)
	if err != nil {
		s.logger.Error("failed to update tts request status",
			zap.Int("request_id", id),
			zap.String("status", string(t.To)),
			zap.Error(err),
		)
		return fmt.Errorf("failed to update tts request status: %w", err)
	}

	if !ok {
		current, err := s.repo.GetByID(ctx, id)
		if err != nil {
			if errors.Is(err, models.ErrNotFound) {
				return err
			}
			return fmt.Errorf("failed to get tts request: %w", err)
		}
		return fmt.Errorf("%w: %s to %s", ErrInvalidTransition, current.Status, t.To)
	}

	monitoring.TTSTransitions.WithLabelValues(string(t.To)).Inc()
	s.logger.Info("tts request status updated",
		zap.Int("request_id", id),
		zap.String("status", string(t.To)),
	)
	return nil
}

func (s *ttsRequestService) enqueue(ctx context.Context, id int) {
	if err := s.enqueuer.EnqueueRender(ctx, id); err != nil {
		s.logger.Warn("failed to enqueue render task, the sweep will retry",
			zap.Int("request_id", id),
			zap.Error(err),
		)
	}
}
