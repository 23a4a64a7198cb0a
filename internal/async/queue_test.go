package async

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueueProcessesJobs(t *testing.T) {
	var mu sync.Mutex
	seen := map[uuid.UUID]int{}
	done := make(chan struct{}, 8)

	q := NewProcessorQueue(func(_ context.Context, id uuid.UUID) error {
		mu.Lock()
		seen[id]++
		mu.Unlock()
		done <- struct{}{}
		return nil
	}, slog.New(slog.NewTextHandler(io.Discard, nil)), WithWorkers(2), WithQueueSize(8))
	q.Start()
	defer q.Stop()

	ids := []uuid.UUID{uuid.New(), uuid.New(), uuid.New()}
	for _, id := range ids {
		require.NoError(t, q.Enqueue(context.Background(), Job{ProblemID: id, SubmittedAt: time.Now()}))
	}
	for range ids {
		select {
		case <-done:
		case <-time.After(5 * time.Second):
			t.Fatal("timed out waiting for jobs")
		}
	}

	mu.Lock()
	defer mu.Unlock()
	for _, id := range ids {
		assert.Equal(t, 1, seen[id])
	}
}

func TestQueueFullReturnsBackpressure(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{})
	var once sync.Once

	q := NewProcessorQueue(func(context.Context, uuid.UUID) error {
		once.Do(func() { close(started) })
		<-release
		return nil
	}, slog.New(slog.NewTextHandler(io.Discard, nil)), WithWorkers(1), WithQueueSize(1))
	q.Start()
	defer func() {
		close(release)
		q.Stop()
	}()

	// First job occupies the worker, second fills the buffer.
	require.NoError(t, q.Enqueue(context.Background(), Job{ProblemID: uuid.New()}))
	<-started
	require.NoError(t, q.Enqueue(context.Background(), Job{ProblemID: uuid.New()}))

	err := q.Enqueue(context.Background(), Job{ProblemID: uuid.New()})
	assert.ErrorIs(t, err, ErrQueueFull)
}

func TestQueueStopDrainsAndRefuses(t *testing.T) {
	var mu sync.Mutex
	var count int

	q := NewProcessorQueue(func(context.Context, uuid.UUID) error {
		mu.Lock()
		count++
		mu.Unlock()
		return nil
	}, slog.New(slog.NewTextHandler(io.Discard, nil)), WithWorkers(1), WithQueueSize(4))
	q.Start()

	for i := 0; i < 3; i++ {
		require.NoError(t, q.Enqueue(context.Background(), Job{ProblemID: uuid.New()}))
	}
	q.Stop()

	mu.Lock()
	assert.Equal(t, 3, count)
	mu.Unlock()

	err := q.Enqueue(context.Background(), Job{ProblemID: uuid.New()})
	assert.ErrorIs(t, err, ErrStopped)
}

func TestQueueJobErrorDoesNotStopWorkers(t *testing.T) {
	done := make(chan error, 2)
	q := NewProcessorQueue(func(_ context.Context, id uuid.UUID) error {
		err := errors.New("boom")
		done <- err
		return err
	}, slog.New(slog.NewTextHandler(io.Discard, nil)), WithWorkers(1))
	q.Start()
	defer q.Stop()

	require.NoError(t, q.Enqueue(context.Background(), Job{ProblemID: uuid.New()}))
	require.NoError(t, q.Enqueue(context.Background(), Job{ProblemID: uuid.New()}))
	for i := 0; i < 2; i++ {
		select {
		case <-done:
		case <-time.After(5 * time.Second):
			t.Fatal("worker stalled after a failed job")
		}
	}
}
