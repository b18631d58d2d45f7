// Package tasks defines the background task types shared by the API, the worker and the scheduler.
package tasks

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/hibiken/asynq"
)

// Task type names
const (
	TypeRenderAudio     = "tts:render"
	TypeReviewRequested = "notify:tts_review"
)

// Queue names
const (
	QueueTTS           = "tts"
	QueueNotifications = "notifications"
)

// Queues returns the queue priorities the worker serves
func Queues() map[string]int {
	return map[string]int{
		QueueTTS:           5,
		QueueNotifications: 2,
		"default":          1,
	}
}

// NewRenderAudioTask creates a task rendering the audio of one content generation job
func NewRenderAudioTask(requestID int) *asynq.Task {
	return asynq.NewTask(TypeRenderAudio, []byte(strconv.Itoa(requestID)))
}

// ParseRenderAudioPayload returns the job id carried by a render task
func ParseRenderAudioPayload(payload []byte) (int, error) {
	id, err := strconv.Atoi(strings.TrimSpace(string(payload)))
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid render payload %q", payload)
	}
	return id, nil
}

// NewReviewRequestedTask creates a task notifying reviewers that a user has new jobs to approve.
// The payload is "userID;count".
func NewReviewRequestedTask(userID, count int) *asynq.Task {
	return asynq.NewTask(TypeReviewRequested, []byte(fmt.Sprintf("%d;%d", userID, count)))
}

// ParseReviewRequestedPayload returns the user id and job count carried by a review task
func ParseReviewRequestedPayload(payload []byte) (userID, count int, err error) {
	parts := strings.Split(string(payload), ";")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("invalid review payload %q", payload)
	}
	if userID, err = strconv.Atoi(parts[0]); err != nil {
		return 0, 0, fmt.Errorf("invalid review payload user: %w", err)
	}
	if count, err = strconv.Atoi(parts[1]); err != nil {
		return 0, 0, fmt.Errorf("invalid review payload count: %w", err)
	}
	return userID, count, nil
}

// Enqueuer is the subset of *asynq.Client used to submit tasks
type Enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// Queue submits domain tasks to asynq
type Queue struct {
	client Enqueuer
}

// NewQueue creates a queue over an asynq client
func NewQueue(client Enqueuer) *Queue {
	return &Queue{client: client}
}

// EnqueueRender submits a render task for a job. A render task already queued for the
// same job is not duplicated.
func (q *Queue) EnqueueRender(ctx context.Context, requestID int) error {
	_, err := q.client.EnqueueContext(ctx, NewRenderAudioTask(requestID),
		asynq.Queue(QueueTTS),
		asynq.TaskID(fmt.Sprintf("%s:%d", TypeRenderAudio, requestID)),
		asynq.MaxRetry(3),
	)
	if err != nil && !errors.Is(err, asynq.ErrTaskIDConflict) {
		return fmt.Errorf("failed to enqueue render task for request %d: %w", requestID, err)
	}
	return nil
}

// EnqueueReviewRequested submits a reviewer notification
func (q *Queue) EnqueueReviewRequested(ctx context.Context, userID, count int) error {
	if _, err := q.client.EnqueueContext(ctx, NewReviewRequestedTask(userID, count), asynq.Queue(QueueNotifications)); err != nil {
		return fmt.Errorf("failed to enqueue review notification: %w", err)
	}
	return nil
}
