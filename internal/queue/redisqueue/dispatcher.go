// Package redisqueue implements the background dispatcher on Redis. Jobs are
// JSON payloads on a list consumed with BRPOP; termination writes a revoke
// marker and broadcasts the job id so the worker running it can cancel.
package redisqueue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/davidbz/promptdesk/internal/domain"
	"github.com/davidbz/promptdesk/internal/observability"
)

const (
	defaultConcurrency = 1
	defaultPollTimeout = time.Second
	defaultRevokeTTL   = 24 * time.Hour
	errorBackoff       = time.Second
)

// Config contains dispatcher settings.
type Config struct {
	QueueName   string
	Concurrency int
	RevokeTTL   time.Duration
	PollTimeout time.Duration
}

// Handler resolves one request. It runs under a context that is cancelled
// with domain.ErrJobTerminated when the job is terminated.
type Handler func(ctx context.Context, requestID uint) error

type job struct {
	JobID      string    `json:"job_id"`
	RequestID  uint      `json:"request_id"`
	EnqueuedAt time.Time `json:"enqueued_at"`
}

// Dispatcher implements domain.Dispatcher and runs the worker pool.
type Dispatcher struct {
	client *redis.Client
	cfg    Config

	mu      sync.Mutex
	running map[string]context.CancelCauseFunc
}

// NewClient creates a Redis client from a redis:// URL.
func NewClient(url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	return redis.NewClient(opts), nil
}

// NewDispatcher creates a dispatcher on top of an existing client.
func NewDispatcher(client *redis.Client, cfg Config) *Dispatcher {
	if cfg.QueueName == "" {
		cfg.QueueName = "promptdesk"
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = defaultConcurrency
	}
	if cfg.PollTimeout <= 0 {
		cfg.PollTimeout = defaultPollTimeout
	}
	if cfg.RevokeTTL <= 0 {
		cfg.RevokeTTL = defaultRevokeTTL
	}

	return &Dispatcher{
		client:  client,
		cfg:     cfg,
		running: make(map[string]context.CancelCauseFunc),
	}
}

// Enqueue schedules resolution of a request under jobID.
func (d *Dispatcher) Enqueue(ctx context.Context, jobID string, requestID uint) error {
	if jobID == "" {
		return errors.New("job id cannot be empty")
	}

	payload, err := json.Marshal(job{
		JobID:      jobID,
		RequestID:  requestID,
		EnqueuedAt: time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("failed to encode job: %w", err)
	}

	if err := d.client.LPush(ctx, d.queueKey(), payload).Err(); err != nil {
		return fmt.Errorf("failed to enqueue request %d: %w", requestID, err)
	}

	return nil
}

// Terminate revokes a job so no worker starts it, and interrupts the worker
// running it if there is one.
func (d *Dispatcher) Terminate(ctx context.Context, jobID string) error {
	if jobID == "" {
		return errors.New("job id cannot be empty")
	}

	pipe := d.client.TxPipeline()
	pipe.Set(ctx, d.revokeKey(jobID), 1, d.cfg.RevokeTTL)
	pipe.Publish(ctx, d.terminateChannel(), jobID)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to terminate job %s: %w", jobID, err)
	}

	d.cancelRunning(jobID)
	return nil
}

// Pending returns the number of jobs waiting in the queue.
func (d *Dispatcher) Pending(ctx context.Context) (int64, error) {
	n, err := d.client.LLen(ctx, d.queueKey()).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to read queue length: %w", err)
	}
	return n, nil
}

// Run starts the worker pool and blocks until ctx is done. Jobs already
// running when ctx ends are allowed to finish.
func (d *Dispatcher) Run(ctx context.Context, handler Handler) error {
	if handler == nil {
		return errors.New("handler cannot be nil")
	}

	logger := observability.FromContext(ctx)

	sub := d.client.Subscribe(ctx, d.terminateChannel())
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return fmt.Errorf("failed to subscribe to terminate channel: %w", err)
	}

	go d.listen(sub)

	var wg sync.WaitGroup
	for range d.cfg.Concurrency {
		wg.Add(1)
		go func() {
			defer wg.Done()
			d.work(ctx, handler)
		}()
	}

	logger.Info("dispatcher started",
		observability.String("queue", d.queueKey()),
		observability.Int("concurrency", d.cfg.Concurrency),
	)

	<-ctx.Done()
	wg.Wait()

	if err := sub.Close(); err != nil {
		logger.Warn("failed to close terminate subscription", observability.Error(err))
	}
	logger.Info("dispatcher stopped")

	return nil
}

func (d *Dispatcher) listen(sub *redis.PubSub) {
	for msg := range sub.Channel() {
		d.cancelRunning(msg.Payload)
	}
}

func (d *Dispatcher) work(ctx context.Context, handler Handler) {
	logger := observability.FromContext(ctx)

	for ctx.Err() == nil {
		res, err := d.client.BRPop(ctx, d.cfg.PollTimeout, d.queueKey()).Result()
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			logger.Warn("failed to poll queue", observability.Error(err))
			select {
			case <-ctx.Done():
				return
			case <-time.After(errorBackoff):
			}
			continue
		}

		// BRPOP replies with [key, value].
		d.process(ctx, handler, res[1])
	}
}

func (d *Dispatcher) process(ctx context.Context, handler Handler, payload string) {
	var j job
	if err := json.Unmarshal([]byte(payload), &j); err != nil {
		observability.FromContext(ctx).Error("dropping malformed job", observability.Error(err))
		return
	}

	// Jobs outlive a shutdown signal; only Terminate cancels them.
	jobCtx, cancel := context.WithCancelCause(context.WithoutCancel(ctx))
	jobCtx = observability.WithJobID(jobCtx, j.JobID)
	jobCtx = observability.WithRecordID(jobCtx, j.RequestID)
	logger := observability.FromContext(jobCtx)

	d.track(j.JobID, cancel)
	defer d.untrack(j.JobID)

	revoked, err := d.client.Exists(jobCtx, d.revokeKey(j.JobID)).Result()
	if err != nil {
		logger.Warn("failed to check revoke marker", observability.Error(err))
	}
	if revoked > 0 {
		logger.Info("skipping revoked job")
		return
	}

	started := time.Now()
	if err := handler(jobCtx, j.RequestID); err != nil {
		logger.Error("job failed", observability.Error(err))
		return
	}

	logger.Info("job finished",
		observability.Duration("elapsed", time.Since(started)),
		observability.Duration("queued", started.Sub(j.EnqueuedAt)),
	)
}

func (d *Dispatcher) track(jobID string, cancel context.CancelCauseFunc) {
	d.mu.Lock()
	d.running[jobID] = cancel
	d.mu.Unlock()
}

func (d *Dispatcher) untrack(jobID string) {
	d.mu.Lock()
	cancel, ok := d.running[jobID]
	delete(d.running, jobID)
	d.mu.Unlock()

	if ok {
		cancel(nil)
	}
}

func (d *Dispatcher) cancelRunning(jobID string) {
	d.mu.Lock()
	cancel, ok := d.running[jobID]
	d.mu.Unlock()

	if ok {
		cancel(domain.ErrJobTerminated)
	}
}

func (d *Dispatcher) queueKey() string {
	return d.cfg.QueueName + ":jobs"
}

func (d *Dispatcher) revokeKey(jobID string) string {
	return d.cfg.QueueName + ":revoked:" + jobID
}

func (d *Dispatcher) terminateChannel() string {
	return d.cfg.QueueName + ":terminate"
}
