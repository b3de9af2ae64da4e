// Package workers provides a bounded pool for CPU-heavy simulation jobs.
// Forecast runs are embarrassingly parallel internally; the pool's job is
// to cap how many of them run at once so a burst of requests cannot
// oversubscribe the machine.
package workers

import (
	"errors"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// Task represents a unit of work to be processed
type Task interface {
	Execute() error
}

// TaskFunc is a function that can be used as a Task
type TaskFunc func() error

func (f TaskFunc) Execute() error { return f() }

// ErrPoolStopped is returned by Submit after Stop.
var ErrPoolStopped = errors.New("worker pool stopped")

// ErrQueueFull is returned by Submit when the task queue is saturated.
var ErrQueueFull = errors.New("worker pool queue full")

// PoolConfig configures the worker pool
type PoolConfig struct {
	Name          string // Pool name for logging
	NumWorkers    int    // Number of worker goroutines
	QueueSize     int    // Size of the task queue
	PanicRecovery bool   // Enable panic recovery in workers
}

// DefaultPoolConfig returns sensible defaults for simulation workloads:
// one worker per CPU, since each task is itself CPU-bound and internally
// parallel.
func DefaultPoolConfig(name string) *PoolConfig {
	return &PoolConfig{
		Name:          name,
		NumWorkers:    runtime.NumCPU(),
		QueueSize:     64,
		PanicRecovery: true,
	}
}

// PoolStats contains pool counters.
type PoolStats struct {
	TasksSubmitted int64         `json:"tasks_submitted"`
	TasksCompleted int64         `json:"tasks_completed"`
	TasksFailed    int64         `json:"tasks_failed"`
	PanicRecovered int64         `json:"panic_recovered"`
	Uptime         time.Duration `json:"uptime"`
}

// Pool manages a pool of worker goroutines
type Pool struct {
	logger *zap.Logger
	config *PoolConfig

	taskQueue chan Task
	wg        sync.WaitGroup

	// submitMu serializes queue sends against Stop closing the queue:
	// submitters hold the read side across the send, so the close in Stop
	// can only happen when no send is in flight.
	submitMu sync.RWMutex
	running  atomic.Bool

	tasksSubmitted atomic.Int64
	tasksCompleted atomic.Int64
	tasksFailed    atomic.Int64
	panicRecovered atomic.Int64
	startTime      time.Time
}

// NewPool creates a new worker pool
func NewPool(logger *zap.Logger, config *PoolConfig) *Pool {
	if config == nil {
		config = DefaultPoolConfig("default")
	}
	if config.NumWorkers <= 0 {
		config.NumWorkers = runtime.NumCPU()
	}

	return &Pool{
		logger:    logger,
		config:    config,
		taskQueue: make(chan Task, config.QueueSize),
	}
}

// Start launches the workers. Calling Start twice is a no-op.
func (p *Pool) Start() {
	if p.running.Swap(true) {
		return
	}
	p.startTime = time.Now()

	p.logger.Info("starting worker pool",
		zap.String("name", p.config.Name),
		zap.Int("workers", p.config.NumWorkers),
		zap.Int("queue_size", p.config.QueueSize),
	)

	for i := 0; i < p.config.NumWorkers; i++ {
		p.wg.Add(1)
		go p.run(i)
	}
}

// Submit enqueues a task without blocking. It fails fast when the queue is
// full so callers can shed load instead of piling up latency.
func (p *Pool) Submit(task Task) error {
	p.submitMu.RLock()
	defer p.submitMu.RUnlock()

	if !p.running.Load() {
		return ErrPoolStopped
	}

	select {
	case p.taskQueue <- task:
		p.tasksSubmitted.Add(1)
		return nil
	default:
		return ErrQueueFull
	}
}

// Stop drains the queue and waits for in-flight tasks to finish.
func (p *Pool) Stop() {
	if !p.running.Swap(false) {
		return
	}

	// Taking the write lock waits out any submitter that saw the pool as
	// running; only then is closing the queue safe.
	p.submitMu.Lock()
	close(p.taskQueue)
	p.submitMu.Unlock()

	p.wg.Wait()

	p.logger.Info("worker pool stopped",
		zap.String("name", p.config.Name),
		zap.Int64("completed", p.tasksCompleted.Load()),
		zap.Int64("failed", p.tasksFailed.Load()),
	)
}

// Stats returns a snapshot of the pool counters.
func (p *Pool) Stats() PoolStats {
	return PoolStats{
		TasksSubmitted: p.tasksSubmitted.Load(),
		TasksCompleted: p.tasksCompleted.Load(),
		TasksFailed:    p.tasksFailed.Load(),
		PanicRecovered: p.panicRecovered.Load(),
		Uptime:         time.Since(p.startTime),
	}
}

func (p *Pool) run(id int) {
	defer p.wg.Done()

	for task := range p.taskQueue {
		p.execute(id, task)
	}
}

func (p *Pool) execute(id int, task Task) {
	if p.config.PanicRecovery {
		defer func() {
			if r := recover(); r != nil {
				p.panicRecovered.Add(1)
				p.tasksFailed.Add(1)
				p.logger.Error("worker recovered from panic",
					zap.Int("worker", id),
					zap.Any("panic", r),
				)
			}
		}()
	}

	if err := task.Execute(); err != nil {
		p.tasksFailed.Add(1)
		p.logger.Warn("task failed",
			zap.Int("worker", id),
			zap.Error(err),
		)
		return
	}
	p.tasksCompleted.Add(1)
}
