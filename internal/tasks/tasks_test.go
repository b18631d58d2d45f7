package tasks

import (
	"context"
	"errors"
	"testing"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockEnqueuer records submitted tasks
type mockEnqueuer struct {
	tasks []*asynq.Task
	err   error
}

func (m *mockEnqueuer) EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error) {
	if m.err != nil {
		return nil, m.err
	}
	m.tasks = append(m.tasks, task)
	return &asynq.TaskInfo{ID: "1", Type: task.Type()}, nil
}

func TestRenderAudioPayload(t *testing.T) {
	task := NewRenderAudioTask(42)
	assert.Equal(t, TypeRenderAudio, task.Type())

	id, err := ParseRenderAudioPayload(task.Payload())
	require.NoError(t, err)
	assert.Equal(t, 42, id)

	_, err = ParseRenderAudioPayload([]byte("abc"))
	assert.Error(t, err)
	_, err = ParseRenderAudioPayload([]byte("0"))
	assert.Error(t, err)
}

func TestReviewRequestedPayload(t *testing.T) {
	task := NewReviewRequestedTask(7, 3)
	assert.Equal(t, TypeReviewRequested, task.Type())

	userID, count, err := ParseReviewRequestedPayload(task.Payload())
	require.NoError(t, err)
	assert.Equal(t, 7, userID)
	assert.Equal(t, 3, count)

	for _, payload := range []string{"", "7", "x;3", "7;y", "1;2;3"} {
		_, _, err := ParseReviewRequestedPayload([]byte(payload))
		assert.Error(t, err, payload)
	}
}

func TestQueue_EnqueueRender(t *testing.T) {
	tests := []struct {
		name          string
		err           error
		expectedError bool
	}{
		{name: "success"},
		{name: "already queued", err: asynq.ErrTaskIDConflict},
		{name: "redis down", err: errors.New("dial tcp: connection refused"), expectedError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := &mockEnqueuer{err: tt.err}
			err := NewQueue(client).EnqueueRender(context.Background(), 5)

			if tt.expectedError {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestQueue_EnqueueReviewRequested(t *testing.T) {
	client := &mockEnqueuer{}
	require.NoError(t, NewQueue(client).EnqueueReviewRequested(context.Background(), 7, 2))
	require.Len(t, client.tasks, 1)
	assert.Equal(t, "7;2", string(client.tasks[0].Payload()))

	failing := &mockEnqueuer{err: errors.New("redis down")}
	assert.Error(t, NewQueue(failing).EnqueueReviewRequested(context.Background(), 7, 2))
}

func TestQueues(t *testing.T) {
	queues := Queues()
	assert.Greater(t, queues[QueueTTS], queues[QueueNotifications])
	assert.Contains(t, queues, "default")
}
