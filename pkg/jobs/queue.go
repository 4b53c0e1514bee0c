package jobs

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// RunFunc executes one keyed run (e.g. a full course recomputation).
type RunFunc func(ctx context.Context, key string) error

// RunQueueConfig configures worker pool behaviour.
type RunQueueConfig struct {
	Workers    int
	BufferSize int
	MaxRetries int
	RetryDelay time.Duration
	Logger     *zap.Logger
}

// RunQueue is an in-memory single-flight dispatcher for keyed runs. A key
// that is already queued or executing is not enqueued a second time, so at
// most one run per key is in flight at any moment.
type RunQueue struct {
	name string
	run  RunFunc

	workers    int
	maxRetries int
	retryDelay time.Duration
	logger     *zap.Logger

	keys    chan string
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	mu      sync.Mutex
	pending map[string]struct{}
	started bool
}

// NewRunQueue builds a queue executing the provided run function.
func NewRunQueue(name string, run RunFunc, cfg RunQueueConfig) *RunQueue {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = cfg.Workers * 4
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	return &RunQueue{
		name:       name,
		run:        run,
		workers:    cfg.Workers,
		maxRetries: cfg.MaxRetries,
		retryDelay: cfg.RetryDelay,
		logger:     cfg.Logger,
		keys:       make(chan string, cfg.BufferSize),
		pending:    make(map[string]struct{}),
	}
}

// Start begins worker consumption. Safe to call once.
func (q *RunQueue) Start(ctx context.Context) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.started {
		return
	}
	q.ctx, q.cancel = context.WithCancel(ctx)
	for i := 0; i < q.workers; i++ {
		q.wg.Add(1)
		go q.worker()
	}
	q.started = true
	q.logger.Sugar().Infow("run queue started", "queue", q.name, "workers", q.workers)
}

// Stop cancels workers and waits for them to exit.
func (q *RunQueue) Stop() {
	q.mu.Lock()
	if !q.started {
		q.mu.Unlock()
		return
	}
	q.cancel()
	q.mu.Unlock()
	q.wg.Wait()
	q.logger.Sugar().Infow("run queue stopped", "queue", q.name)
}

// Enqueue schedules a run for the key. The boolean reports whether the key
// was accepted; false means a run for the same key is already pending.
func (q *RunQueue) Enqueue(key string) (bool, error) {
	q.mu.Lock()
	if !q.started {
		q.mu.Unlock()
		return false, fmt.Errorf("run queue %s not started", q.name)
	}
	if _, dup := q.pending[key]; dup {
		q.mu.Unlock()
		return false, nil
	}
	q.pending[key] = struct{}{}
	ctx := q.ctx
	q.mu.Unlock()

	select {
	case <-ctx.Done():
		q.forget(key)
		return false, fmt.Errorf("run queue %s stopped: %w", q.name, ctx.Err())
	case q.keys <- key:
		return true, nil
	}
}

func (q *RunQueue) worker() {
	defer q.wg.Done()
	for {
		select {
		case <-q.ctx.Done():
			return
		case key := <-q.keys:
			q.execute(key)
		}
	}
}

func (q *RunQueue) execute(key string) {
	defer q.forget(key)

	var err error
	for attempt := 0; attempt <= q.maxRetries; attempt++ {
		if attempt > 0 {
			timer := time.NewTimer(q.retryDelay)
			select {
			case <-q.ctx.Done():
				timer.Stop()
				return
			case <-timer.C:
			}
			q.logger.Sugar().Warnw("retrying run", "queue", q.name, "key", key, "attempt", attempt)
		}
		if err = q.run(q.ctx, key); err == nil {
			return
		}
	}
	q.logger.Sugar().Errorw("run exhausted retries", "queue", q.name, "key", key, "error", err)
}

func (q *RunQueue) forget(key string) {
	q.mu.Lock()
	delete(q.pending, key)
	q.mu.Unlock()
}
