package queue

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestNewGenerateTask(t *testing.T) {
	claimed := uuid.New()
	tests := []struct {
		name    string
		payload GeneratePayload
		wantID  func(t *testing.T, id uuid.UUID)
	}{
		{
			name:    "unclaimed gets a fresh id",
			payload: GeneratePayload{Event: "Birthday Party"},
			wantID:  func(t *testing.T, id uuid.UUID) { assert.NotEqual(t, uuid.Nil, id) },
		},
		{
			name:    "claimed generation keeps its task id",
			payload: GeneratePayload{Event: "Birthday Party", Seq: 4, TaskID: claimed},
			wantID:  func(t *testing.T, id uuid.UUID) { assert.Equal(t, claimed, id) },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			task, err := NewGenerateTask(tt.payload)
			require.NoError(t, err)

			assert.Equal(t, TaskTypeGenerate, task.Type)
			assert.Equal(t, 1, task.MaxAttempts)
			tt.wantID(t, task.ID)

			var payload GeneratePayload
			require.NoError(t, json.Unmarshal(task.Payload, &payload))
			assert.Equal(t, tt.payload, payload)
		})
	}
}

func TestEnqueueWithRetry(t *testing.T) {
	task, err := NewGenerateTask(GeneratePayload{Event: "picnic"})
	require.NoError(t, err)

	t.Run("succeeds after transient failure", func(t *testing.T) {
		q := new(MockQueue)
		q.On("Enqueue", mock.Anything, task).Return(errors.New("nats down")).Once()
		q.On("Enqueue", mock.Anything, task).Return(nil).Once()

		err := EnqueueWithRetry(context.Background(), q, task, 3, time.Millisecond)
		assert.NoError(t, err)
		q.AssertExpectations(t)
	})

	t.Run("gives up after attempts", func(t *testing.T) {
		q := new(MockQueue)
		q.On("Enqueue", mock.Anything, task).Return(errors.New("nats down")).Times(2)

		err := EnqueueWithRetry(context.Background(), q, task, 2, time.Millisecond)
		assert.EqualError(t, err, "nats down")
		q.AssertExpectations(t)
	})

	t.Run("stops on canceled context", func(t *testing.T) {
		q := new(MockQueue)
		q.On("Enqueue", mock.Anything, task).Return(errors.New("nats down")).Once()
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		err := EnqueueWithRetry(ctx, q, task, 5, time.Hour)
		assert.ErrorIs(t, err, context.Canceled)
	})
}
