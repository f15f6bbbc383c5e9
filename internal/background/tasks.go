package background

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
)

// ErrQueueClosed is returned by Enqueue after Shutdown
var ErrQueueClosed = errors.New("task queue closed")

// ErrQueueFull is returned when the buffer has no room
var ErrQueueFull = errors.New("task queue full")

// TaskFunc is one attempt at a task. Returning an error schedules a retry.
type TaskFunc func(ctx context.Context) error

// TaskObserver is told how each task ended
type TaskObserver interface {
	ObserveTask(name string, success bool, attempts int)
}

type task struct {
	name string
	fn   TaskFunc
}

// QueueConfig sizes the queue and its retry policy
type QueueConfig struct {
	Workers     int
	Buffer      int
	MaxAttempts int
	BaseBackoff time.Duration
	MaxBackoff  time.Duration
	// AttemptTimeout bounds a single attempt
	AttemptTimeout time.Duration
}

func DefaultQueueConfig() QueueConfig {
	return QueueConfig{
		Workers:        2,
		Buffer:         256,
		MaxAttempts:    5,
		BaseBackoff:    500 * time.Millisecond,
		MaxBackoff:     30 * time.Second,
		AttemptTimeout: 30 * time.Second,
	}
}

// TaskQueue runs tasks on a fixed set of workers and retries failures with
// exponential backoff until MaxAttempts. Tasks may run more than once, so
// they must be idempotent.
type TaskQueue struct {
	cfg      QueueConfig
	tasks    chan task
	logger   *slog.Logger
	observer TaskObserver
	sleep    func(ctx context.Context, d time.Duration) error

	ctx    context.Context
	cancel context.CancelFunc

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

func NewTaskQueue(cfg QueueConfig, observer TaskObserver, logger *slog.Logger) *TaskQueue {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 1
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &TaskQueue{
		cfg:      cfg,
		tasks:    make(chan task, cfg.Buffer),
		logger:   logger,
		observer: observer,
		sleep:    sleepContext,
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Start launches the workers
func (q *TaskQueue) Start() {
	for i := 0; i < q.cfg.Workers; i++ {
		q.wg.Add(1)
		go q.worker()
	}
}

// Enqueue schedules fn without blocking
func (q *TaskQueue) Enqueue(name string, fn TaskFunc) error {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		return ErrQueueClosed
	}

	select {
	case q.tasks <- task{name: name, fn: fn}:
		return nil
	default:
		q.logger.Error("task queue full, dropping task", slog.String("task", name))
		return ErrQueueFull
	}
}

// Shutdown stops accepting tasks and waits for queued ones to finish.
// When ctx ends first, pending retries are abandoned.
func (q *TaskQueue) Shutdown(ctx context.Context) error {
	q.mu.Lock()
	if !q.closed {
		q.closed = true
		close(q.tasks)
	}
	q.mu.Unlock()

	done := make(chan struct{})
	go func() {
		q.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		q.cancel()
		return nil
	case <-ctx.Done():
		q.cancel()
		<-done
		return ctx.Err()
	}
}

func (q *TaskQueue) worker() {
	defer q.wg.Done()
	for t := range q.tasks {
		q.run(t)
	}
}

func (q *TaskQueue) run(t task) {
	var err error
	attempt := 0
	for attempt < q.cfg.MaxAttempts {
		attempt++
		err = q.attempt(t)
		if err == nil {
			break
		}

		q.logger.Warn("task attempt failed",
			slog.String("task", t.name),
			slog.Int("attempt", attempt),
			slog.Any("error", err))

		if attempt == q.cfg.MaxAttempts {
			break
		}
		if q.sleep(q.ctx, q.backoff(attempt)) != nil {
			break
		}
	}

	if err != nil {
		q.logger.Error("task failed",
			slog.String("task", t.name),
			slog.Int("attempts", attempt),
			slog.Any("error", err))
	}
	if q.observer != nil {
		q.observer.ObserveTask(t.name, err == nil, attempt)
	}
}

func (q *TaskQueue) attempt(t task) (err error) {
	ctx := q.ctx
	if q.cfg.AttemptTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, q.cfg.AttemptTimeout)
		defer cancel()
	}

	defer func() {
		if r := recover(); r != nil {
			q.logger.Error("task panicked", slog.String("task", t.name), slog.Any("panic", r))
			err = errors.New("task panicked")
		}
	}()

	return t.fn(ctx)
}

func (q *TaskQueue) backoff(attempt int) time.Duration {
	d := q.cfg.BaseBackoff << (attempt - 1)
	if q.cfg.MaxBackoff > 0 && (d > q.cfg.MaxBackoff || d <= 0) {
		d = q.cfg.MaxBackoff
	}
	return d
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
