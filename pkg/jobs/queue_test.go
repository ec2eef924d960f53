package jobs

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueueProcessesAndDrains(t *testing.T) {
	var processed atomic.Int32
	q := NewQueue[string]("test", func(_ context.Context, job Job[string]) error {
		if job.Payload == "" {
			return errors.New("empty payload")
		}
		processed.Add(1)
		return nil
	}, QueueConfig{Workers: 2, BufferSize: 8})

	q.Start(context.Background())
	for i := 0; i < 5; i++ {
		require.NoError(t, q.Enqueue(context.Background(), Job[string]{ID: "j", Payload: "x"}))
	}
	q.Stop()

	assert.Equal(t, int32(5), processed.Load())
}

func TestQueueRetriesFailedJobs(t *testing.T) {
	var attempts atomic.Int32
	q := NewQueue[int]("retry", func(_ context.Context, _ Job[int]) error {
		if attempts.Add(1) < 3 {
			return errors.New("transient")
		}
		return nil
	}, QueueConfig{MaxRetries: 5, RetryDelay: time.Millisecond})

	q.Start(context.Background())
	require.NoError(t, q.Enqueue(context.Background(), Job[int]{ID: "r", Payload: 1}))
	q.Stop()

	assert.Equal(t, int32(3), attempts.Load())
}

func TestQueueRejectsBeforeStart(t *testing.T) {
	q := NewQueue[int]("idle", func(context.Context, Job[int]) error { return nil }, QueueConfig{})
	assert.Error(t, q.Enqueue(context.Background(), Job[int]{}))
}
