package main

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"testing"
	"time"

	"github.com/hibiken/asynq"
	"github.com/linguapath/backend/internal/models"
	"github.com/linguapath/backend/internal/services"
	"github.com/linguapath/backend/internal/tasks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// mockJobProcessor is a mock implementation of JobProcessor
type mockJobProcessor struct {
	job         *models.TTSRequest
	startErr    error
	completeErr error
	failErr     error

	completedURL string
	failed       bool
}

func (m *mockJobProcessor) StartProcessing(ctx context.Context, id int) (*models.TTSRequest, error) {
	if m.startErr != nil {
		return nil, m.startErr
	}
	return m.job, nil
}

func (m *mockJobProcessor) Complete(ctx context.Context, id int, audioURL string) error {
	m.completedURL = audioURL
	return m.completeErr
}

func (m *mockJobProcessor) Fail(ctx context.Context, id int) error {
	m.failed = true
	return m.failErr
}

// mockSynthesizer is a mock implementation of AudioSynthesizer
type mockSynthesizer struct {
	audio []byte
	err   error
	text  string
}

func (m *mockSynthesizer) Synthesize(ctx context.Context, text string) ([]byte, error) {
	m.text = text
	return m.audio, m.err
}

// mockStorage is a mock implementation of AudioStorage
type mockStorage struct {
	err      error
	userID   int
	filename string
}

func (m *mockStorage) Save(userID int, filename string, audio []byte) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	m.userID, m.filename = userID, filename
	return fmt.Sprintf("/media/personalized/%d/%s", userID, filename), nil
}

// mockSender is a mock implementation of EmailSender
type mockSender struct {
	err  error
	to   string
	body string
}

func (m *mockSender) Send(to, subject, body string) error {
	m.to, m.body = to, body
	return m.err
}

func testJob() *models.TTSRequest {
	return &models.TTSRequest{
		ID:               5,
		UserID:           7,
		LessonID:         3,
		AudioFilename:    "l3.mp3",
		PersonalizedText: "Me llamo Sam. Me llamo Sam.",
		Status:           models.TTSRequestStatusProcessing,
	}
}

func newTestWorker(jobs JobProcessor, synth AudioSynthesizer, storage AudioStorage, sender EmailSender) *Worker {
	return NewWorker(zap.NewNop(), jobs, synth, storage, sender, "admin@example.com", time.Second)
}

func TestWorker_HandleRenderAudio(t *testing.T) {
	tests := []struct {
		name           string
		payload        []byte
		jobs           *mockJobProcessor
		synth          *mockSynthesizer
		storage        *mockStorage
		expectedErr    bool
		skipRetry      bool
		expectedURL    string
		expectedFailed bool
	}{
		{
			name:        "rendered",
			payload:     []byte("5"),
			jobs:        &mockJobProcessor{job: testJob()},
			synth:       &mockSynthesizer{audio: []byte("mp3")},
			storage:     &mockStorage{},
			expectedURL: "/media/personalized/7/l3.mp3",
		},
		{
			name:        "invalid payload",
			payload:     []byte("abc"),
			jobs:        &mockJobProcessor{},
			synth:       &mockSynthesizer{},
			storage:     &mockStorage{},
			expectedErr: true,
			skipRetry:   true,
		},
		{
			name:    "job no longer approved",
			payload: []byte("5"),
			jobs:    &mockJobProcessor{startErr: fmt.Errorf("%w: rejected to processing", services.ErrInvalidTransition)},
			synth:   &mockSynthesizer{},
			storage: &mockStorage{},
		},
		{
			name:    "job deleted",
			payload: []byte("5"),
			jobs:    &mockJobProcessor{startErr: models.ErrNotFound},
			synth:   &mockSynthesizer{},
			storage: &mockStorage{},
		},
		{
			name:        "store unavailable is retried",
			payload:     []byte("5"),
			jobs:        &mockJobProcessor{startErr: errors.New("connection refused")},
			synth:       &mockSynthesizer{},
			storage:     &mockStorage{},
			expectedErr: true,
		},
		{
			name:           "synthesis failed",
			payload:        []byte("5"),
			jobs:           &mockJobProcessor{job: testJob()},
			synth:          &mockSynthesizer{err: errors.New("quota exceeded")},
			storage:        &mockStorage{},
			expectedFailed: true,
		},
		{
			name:           "storage failed",
			payload:        []byte("5"),
			jobs:           &mockJobProcessor{job: testJob()},
			synth:          &mockSynthesizer{audio: []byte("mp3")},
			storage:        &mockStorage{err: errors.New("disk full")},
			expectedFailed: true,
		},
		{
			name:           "fail not recorded",
			payload:        []byte("5"),
			jobs:           &mockJobProcessor{job: testJob(), failErr: errors.New("connection refused")},
			synth:          &mockSynthesizer{err: errors.New("quota exceeded")},
			storage:        &mockStorage{},
			expectedErr:    true,
			expectedFailed: true,
		},
		{
			name:        "complete not recorded",
			payload:     []byte("5"),
			jobs:        &mockJobProcessor{job: testJob(), completeErr: errors.New("connection refused")},
			synth:       &mockSynthesizer{audio: []byte("mp3")},
			storage:     &mockStorage{},
			expectedErr: true,
			expectedURL: "/media/personalized/7/l3.mp3",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := newTestWorker(tt.jobs, tt.synth, tt.storage, &mockSender{})

			err := w.HandleRenderAudio(context.Background(), asynq.NewTask(tasks.TypeRenderAudio, tt.payload))

			if tt.expectedErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, tt.skipRetry, errors.Is(err, asynq.SkipRetry))
			assert.Equal(t, tt.expectedURL, tt.jobs.completedURL)
			assert.Equal(t, tt.expectedFailed, tt.jobs.failed)
		})
	}

	t.Run("synthesizes the personalized text", func(t *testing.T) {
		synth := &mockSynthesizer{audio: []byte("mp3")}
		storage := &mockStorage{}
		w := newTestWorker(&mockJobProcessor{job: testJob()}, synth, storage, &mockSender{})

		err := w.HandleRenderAudio(context.Background(), tasks.NewRenderAudioTask(5))

		assert.NoError(t, err)
		assert.Equal(t, "Me llamo Sam. Me llamo Sam.", synth.text)
		assert.Equal(t, 7, storage.userID)
		assert.Equal(t, "l3.mp3", storage.filename)
	})
}

func TestWorker_HandleReviewRequested(t *testing.T) {
	t.Run("sent", func(t *testing.T) {
		sender := &mockSender{}
		w := newTestWorker(&mockJobProcessor{}, &mockSynthesizer{}, &mockStorage{}, sender)

		err := w.HandleReviewRequested(context.Background(), tasks.NewReviewRequestedTask(7, 3))

		assert.NoError(t, err)
		assert.Equal(t, "admin@example.com", sender.to)
		assert.Contains(t, sender.body, "User 7")
		assert.Contains(t, sender.body, "3 audio request(s)")
	})

	t.Run("send failed is retried", func(t *testing.T) {
		sender := &mockSender{err: errors.New("smtp down")}
		w := newTestWorker(&mockJobProcessor{}, &mockSynthesizer{}, &mockStorage{}, sender)

		err := w.HandleReviewRequested(context.Background(), tasks.NewReviewRequestedTask(7, 3))

		assert.Error(t, err)
		assert.False(t, errors.Is(err, asynq.SkipRetry))
	})

	t.Run("no admin email", func(t *testing.T) {
		sender := &mockSender{}
		w := NewWorker(zap.NewNop(), &mockJobProcessor{}, &mockSynthesizer{}, &mockStorage{}, sender, "", time.Second)

		err := w.HandleReviewRequested(context.Background(), tasks.NewReviewRequestedTask(7, 3))

		assert.NoError(t, err)
		assert.Empty(t, sender.to)
	})

	t.Run("invalid payload", func(t *testing.T) {
		w := newTestWorker(&mockJobProcessor{}, &mockSynthesizer{}, &mockStorage{}, &mockSender{})

		err := w.HandleReviewRequested(context.Background(), asynq.NewTask(tasks.TypeReviewRequested, []byte("x")))

		assert.ErrorIs(t, err, asynq.SkipRetry)
	})
}

// memoryJobRepository is an in-memory services.TTSRequestRepository with compare-and-set transitions
type memoryJobRepository struct {
	jobs          map[int]*models.TTSRequest
	completeFails int
}

func (m *memoryJobRepository) GetAll(ctx context.Context, page, count int, userID int, status models.TTSRequestStatus) ([]models.TTSRequestListItem, error) {
	return nil, nil
}

func (m *memoryJobRepository) GetByID(ctx context.Context, id int) (*models.TTSRequest, error) {
	job, ok := m.jobs[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	copied := *job
	return &copied, nil
}

func (m *memoryJobRepository) GetIDsByStatus(ctx context.Context, status models.TTSRequestStatus, limit int) ([]int, error) {
	var ids []int
	for id, job := range m.jobs {
		if job.Status == status {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func (m *memoryJobRepository) GetStaleIDs(ctx context.Context, status models.TTSRequestStatus, olderThan time.Duration, limit int) ([]int, error) {
	return m.GetIDsByStatus(ctx, status, limit)
}

func (m *memoryJobRepository) TransitionStatus(ctx context.Context, id int, t models.TTSStatusTransition) (bool, error) {
	job, ok := m.jobs[id]
	if !ok || !slices.Contains(t.From, job.Status) {
		return false, nil
	}
	if t.To == models.TTSRequestStatusCompleted && m.completeFails > 0 {
		m.completeFails--
		return false, errors.New("db gone")
	}
	job.Status = t.To
	if t.AudioURL != "" {
		job.AudioURL = t.AudioURL
	}
	return true, nil
}

func (m *memoryJobRepository) TransitionByUserLesson(ctx context.Context, userID, lessonID int, audioFilename string, t models.TTSStatusTransition) (int, error) {
	return 0, nil
}

// recordingEnqueuer is a services.RenderEnqueuer that records submitted jobs
type recordingEnqueuer struct {
	ids []int
}

func (r *recordingEnqueuer) EnqueueRender(ctx context.Context, requestID int) error {
	r.ids = append(r.ids, requestID)
	return nil
}

func TestWorker_HandleRenderAudio_CompleteFailureIsRecovered(t *testing.T) {
	job := testJob()
	job.ID = 1
	job.Status = models.TTSRequestStatusApproved
	repo := &memoryJobRepository{jobs: map[int]*models.TTSRequest{1: job}, completeFails: 1}
	enqueuer := &recordingEnqueuer{}
	svc := services.NewTTSRequestService(repo, enqueuer, zap.NewNop())
	w := newTestWorker(svc, &mockSynthesizer{audio: []byte("mp3")}, &mockStorage{}, &mockSender{})
	task := asynq.NewTask(tasks.TypeRenderAudio, []byte("1"))

	// result could not be recorded: asynq retries the task
	err := w.HandleRenderAudio(context.Background(), task)
	require.Error(t, err)
	assert.Equal(t, models.TTSRequestStatusProcessing, repo.jobs[1].Status)

	// the retry finds the job claimed and leaves it for recovery
	err = w.HandleRenderAudio(context.Background(), task)
	require.NoError(t, err)
	assert.Equal(t, models.TTSRequestStatusProcessing, repo.jobs[1].Status)

	recovered, err := svc.RecoverStale(context.Background(), 0, 10)
	require.NoError(t, err)
	assert.Equal(t, 1, recovered)
	assert.Equal(t, []int{1}, enqueuer.ids)
	assert.Equal(t, models.TTSRequestStatusApproved, repo.jobs[1].Status)

	err = w.HandleRenderAudio(context.Background(), task)
	require.NoError(t, err)
	assert.Equal(t, models.TTSRequestStatusCompleted, repo.jobs[1].Status)
	assert.Equal(t, "/media/personalized/7/l3.mp3", repo.jobs[1].AudioURL)
}
