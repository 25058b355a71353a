package redisqueue_test

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/davidbz/promptdesk/internal/domain"
	"github.com/davidbz/promptdesk/internal/queue/redisqueue"
)

func newTestDispatcher(t *testing.T) (*redisqueue.Dispatcher, *miniredis.Miniredis) {
	t.Helper()

	server := miniredis.RunT(t)
	client, err := redisqueue.NewClient("redis://" + server.Addr())
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	return redisqueue.NewDispatcher(client, redisqueue.Config{
		QueueName:   "test",
		Concurrency: 2,
		RevokeTTL:   time.Minute,
		PollTimeout: time.Second,
	}), server
}

func runDispatcher(t *testing.T, d *redisqueue.Dispatcher, handler redisqueue.Handler) {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- d.Run(ctx, handler) }()

	t.Cleanup(func() {
		cancel()
		select {
		case err := <-done:
			require.NoError(t, err)
		case <-time.After(5 * time.Second):
			t.Error("dispatcher did not stop")
		}
	})
}

func enqueue(t *testing.T, d *redisqueue.Dispatcher, requestID uint) string {
	t.Helper()

	jobID := uuid.NewString()
	require.NoError(t, d.Enqueue(context.Background(), jobID, requestID))
	return jobID
}

func TestNewClient(t *testing.T) {
	_, err := redisqueue.NewClient("not a url")
	require.Error(t, err)
	require.Contains(t, err.Error(), "invalid redis url")
}

func TestDispatcher_Enqueue(t *testing.T) {
	ctx := context.Background()
	d, server := newTestDispatcher(t)

	jobID := enqueue(t, d, 42)

	items, err := server.List("test:jobs")
	require.NoError(t, err)
	require.Len(t, items, 1)

	var payload struct {
		JobID     string `json:"job_id"`
		RequestID uint   `json:"request_id"`
	}
	require.NoError(t, json.Unmarshal([]byte(items[0]), &payload))
	require.Equal(t, jobID, payload.JobID)
	require.Equal(t, uint(42), payload.RequestID)

	pending, err := d.Pending(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(1), pending)
}

func TestDispatcher_Enqueue_RedisDown(t *testing.T) {
	d, server := newTestDispatcher(t)
	server.Close()

	err := d.Enqueue(context.Background(), "job-1", 1)
	require.Error(t, err)
	require.Contains(t, err.Error(), "failed to enqueue request 1")
}

func TestDispatcher_Run(t *testing.T) {
	ctx := context.Background()

	t.Run("should hand queued requests to the handler", func(t *testing.T) {
		d, _ := newTestDispatcher(t)

		var mu sync.Mutex
		var seen []uint
		runDispatcher(t, d, func(_ context.Context, id uint) error {
			mu.Lock()
			defer mu.Unlock()
			seen = append(seen, id)
			return nil
		})

		enqueue(t, d, 1)
		enqueue(t, d, 2)

		require.Eventually(t, func() bool {
			mu.Lock()
			defer mu.Unlock()
			return len(seen) == 2
		}, 5*time.Second, 20*time.Millisecond)

		mu.Lock()
		require.ElementsMatch(t, []uint{1, 2}, seen)
		mu.Unlock()
	})

	t.Run("should keep running after handler errors", func(t *testing.T) {
		d, _ := newTestDispatcher(t)

		calls := make(chan uint, 2)
		runDispatcher(t, d, func(_ context.Context, id uint) error {
			calls <- id
			return errors.New("handler failed")
		})

		enqueue(t, d, 1)
		enqueue(t, d, 2)

		for range 2 {
			select {
			case <-calls:
			case <-time.After(5 * time.Second):
				t.Fatal("handler was not called")
			}
		}
	})

	t.Run("should skip revoked jobs", func(t *testing.T) {
		d, server := newTestDispatcher(t)

		jobID := enqueue(t, d, 7)
		require.NoError(t, d.Terminate(ctx, jobID))
		require.True(t, server.Exists("test:revoked:"+jobID))

		called := make(chan uint, 1)
		runDispatcher(t, d, func(_ context.Context, id uint) error {
			called <- id
			return nil
		})

		require.Eventually(t, func() bool {
			pending, pendingErr := d.Pending(ctx)
			return pendingErr == nil && pending == 0
		}, 5*time.Second, 20*time.Millisecond)

		select {
		case id := <-called:
			t.Fatalf("revoked job for request %d was handled", id)
		case <-time.After(200 * time.Millisecond):
		}
	})

	t.Run("should interrupt a running job on terminate", func(t *testing.T) {
		d, _ := newTestDispatcher(t)

		started := make(chan struct{})
		causes := make(chan error, 1)
		runDispatcher(t, d, func(jobCtx context.Context, _ uint) error {
			close(started)
			<-jobCtx.Done()
			causes <- context.Cause(jobCtx)
			return nil
		})

		jobID := enqueue(t, d, 3)

		select {
		case <-started:
		case <-time.After(5 * time.Second):
			t.Fatal("job did not start")
		}

		require.NoError(t, d.Terminate(ctx, jobID))

		select {
		case cause := <-causes:
			require.ErrorIs(t, cause, domain.ErrJobTerminated)
		case <-time.After(5 * time.Second):
			t.Fatal("job was not interrupted")
		}
	})

	t.Run("should reject a nil handler", func(t *testing.T) {
		d, _ := newTestDispatcher(t)

		require.Error(t, d.Run(ctx, nil))
	})
}

func TestDispatcher_TerminateFromAnotherProcess(t *testing.T) {
	ctx := context.Background()
	server := miniredis.RunT(t)

	newClient := func() *redis.Client {
		client := redis.NewClient(&redis.Options{Addr: server.Addr()})
		t.Cleanup(func() { _ = client.Close() })
		return client
	}

	cfg := redisqueue.Config{QueueName: "shared", Concurrency: 1, PollTimeout: time.Second}
	worker := redisqueue.NewDispatcher(newClient(), cfg)
	api := redisqueue.NewDispatcher(newClient(), cfg)

	started := make(chan struct{})
	causes := make(chan error, 1)
	runDispatcher(t, worker, func(jobCtx context.Context, _ uint) error {
		close(started)
		<-jobCtx.Done()
		causes <- context.Cause(jobCtx)
		return nil
	})

	jobID := enqueue(t, api, 5)

	select {
	case <-started:
	case <-time.After(5 * time.Second):
		t.Fatal("job did not start")
	}

	require.NoError(t, api.Terminate(ctx, jobID))

	select {
	case cause := <-causes:
		require.ErrorIs(t, cause, domain.ErrJobTerminated)
	case <-time.After(5 * time.Second):
		t.Fatal("job was not interrupted over pub/sub")
	}
}

func TestDispatcher_RequiresJobID(t *testing.T) {
	d, _ := newTestDispatcher(t)

	require.Error(t, d.Enqueue(context.Background(), "", 1))
	require.Error(t, d.Terminate(context.Background(), ""))
}
