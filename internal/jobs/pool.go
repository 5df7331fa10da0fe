package jobs

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/kubev2v/transcription-api/pkg/metrics"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"
)

var ErrPoolStopped = errors.New("worker pool is stopped")

// Task is one unit of background work bound to a transcription job.
type Task struct {
	JobID string
	Kind  string
	Work  func(ctx context.Context) error
	// Cleanup runs once the task is over, including when it never got a slot.
	Cleanup func()
}

// FailureHook is called when a task returns an error or panics.
type FailureHook func(jobID string, err error)

type PoolOption func(p *Pool)

func WithJobTimeout(timeout time.Duration) PoolOption {
	return func(p *Pool) {
		p.timeout = timeout
	}
}

func WithFailureHook(hook FailureHook) PoolOption {
	return func(p *Pool) {
		p.onFailure = hook
	}
}

// Pool runs tasks in the background with at most maxWorkers of them at the same time.
// Tasks run on the pool context, never on the context of the caller.
type Pool struct {
	sem       *semaphore.Weighted
	ctx       context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	lock      sync.Mutex
	stopped   bool
	timeout   time.Duration
	onFailure FailureHook
	log       *zap.SugaredLogger
}

func NewPool(maxWorkers int64, opts ...PoolOption) *Pool {
	if maxWorkers <= 0 {
		maxWorkers = 1
	}

	ctx, cancel := context.WithCancel(context.Background())
	p := &Pool{
		sem:     semaphore.NewWeighted(maxWorkers),
		ctx:     ctx,
		cancel:  cancel,
		timeout: DefaultJobTimeout,
		log:     zap.S().Named("worker_pool"),
	}

	for _, o := range opts {
		o(p)
	}

	return p
}

// Go schedules the task and returns immediately.
func (p *Pool) Go(task Task) error {
	p.lock.Lock()
	if p.stopped {
		p.lock.Unlock()
		return ErrPoolStopped
	}
	p.wg.Add(1)
	p.lock.Unlock()

	go func() {
		defer p.wg.Done()
		defer p.cleanup(task)

		if err := p.sem.Acquire(p.ctx, 1); err != nil {
			p.fail(task, fmt.Errorf("task was not started: %w", err), "not_started")
			return
		}
		defer p.sem.Release(1)

		p.run(task)
	}()

	return nil
}

func (p *Pool) run(task Task) {
	metrics.IncreaseWorkersBusy()
	defer metrics.DecreaseWorkersBusy()

	ctx, cancel := context.WithTimeout(p.ctx, p.timeout)
	defer cancel()

	start := time.Now()
	p.log.Debugw("task started", "job_id", task.JobID, "kind", task.Kind)

	if err := p.safeWork(ctx, task); err != nil {
		reason := "error"
		var pe *panicError
		if errors.As(err, &pe) {
			reason = "panic"
		}
		p.fail(task, err, reason)
		return
	}

	p.log.Debugw("task finished", "job_id", task.JobID, "kind", task.Kind, "duration", time.Since(start))
}

type panicError struct {
	value any
	stack []byte
}

func (e *panicError) Error() string {
	return fmt.Sprintf("worker panicked: %v", e.value)
}

func (p *Pool) safeWork(ctx context.Context, task Task) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &panicError{value: r, stack: debug.Stack()}
		}
	}()

	return task.Work(ctx)
}

func (p *Pool) cleanup(task Task) {
	if task.Cleanup == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			p.log.Errorw("task cleanup panicked", "job_id", task.JobID, "kind", task.Kind, "panic", r)
		}
	}()

	task.Cleanup()
}

func (p *Pool) fail(task Task, err error, reason string) {
	metrics.IncreaseTaskFailuresMetric(reason)

	var pe *panicError
	if errors.As(err, &pe) {
		p.log.Errorw("task panicked", "job_id", task.JobID, "kind", task.Kind, "panic", pe.value, "stack", string(pe.stack))
	} else {
		p.log.Errorw("task failed", "job_id", task.JobID, "kind", task.Kind, "error", err)
	}

	if p.onFailure != nil {
		p.onFailure(task.JobID, err)
	}
}

// Stop refuses new tasks and waits for the running ones until ctx expires.
// Tasks still running after that have their context cancelled.
func (p *Pool) Stop(ctx context.Context) error {
	p.lock.Lock()
	p.stopped = true
	p.lock.Unlock()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		p.cancel()
		return nil
	case <-ctx.Done():
		p.cancel()
		// cancelled tasks still record their terminal state
		<-done
		return ctx.Err()
	}
}
