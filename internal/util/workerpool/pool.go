// Package workerpool bounds the number of asset pipelines a sync pass runs
// concurrently.
package workerpool

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// Task is one unit of work, typically a single asset's sync pipeline.
type Task struct {
	ID string
	Fn func(context.Context) error
}

// WorkerPool manages a bounded pool of goroutines executing tasks.
type WorkerPool struct {
	name           string
	maxWorkers     int
	taskQueue      chan Task
	logger         *zap.Logger
	wg             sync.WaitGroup
	stopOnce       sync.Once
	stopChan       chan struct{}
	completedTasks uint64
	failedTasks    uint64
}

// Config holds worker pool configuration.
type Config struct {
	Name       string
	MaxWorkers int
	QueueSize  int
	Logger     *zap.Logger
}

// New creates and starts a worker pool.
func New(cfg *Config) *WorkerPool {
	if cfg.MaxWorkers <= 0 {
		cfg.MaxWorkers = 4
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 64
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	pool := &WorkerPool{
		name:       cfg.Name,
		maxWorkers: cfg.MaxWorkers,
		taskQueue:  make(chan Task, cfg.QueueSize),
		logger:     cfg.Logger,
		stopChan:   make(chan struct{}),
	}

	for i := 0; i < pool.maxWorkers; i++ {
		pool.wg.Add(1)
		go pool.worker(i)
	}

	pool.logger.Debug("Worker pool started",
		zap.String("name", pool.name),
		zap.Int("max_workers", pool.maxWorkers))

	return pool
}

func (p *WorkerPool) worker(id int) {
	defer p.wg.Done()

	for {
		select {
		case <-p.stopChan:
			return
		case task := <-p.taskQueue:
			if err := p.safeExecute(task); err != nil {
				atomic.AddUint64(&p.failedTasks, 1)
				p.logger.Debug("Task failed",
					zap.String("pool", p.name),
					zap.Int("worker_id", id),
					zap.String("task_id", task.ID),
					zap.Error(err))
			} else {
				atomic.AddUint64(&p.completedTasks, 1)
			}
		}
	}
}

// safeExecute runs a task with panic recovery so one bad asset cannot take
// down the pass.
func (p *WorkerPool) safeExecute(task Task) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("task panicked: %v", r)
			p.logger.Error("Task panic recovered",
				zap.String("pool", p.name),
				zap.String("task_id", task.ID),
				zap.Any("panic", r))
		}
	}()

	return task.Fn(context.Background())
}

// Submit blocks until the task is queued, the context is canceled, or the
// pool is stopped.
func (p *WorkerPool) Submit(ctx context.Context, task Task) error {
	select {
	case <-p.stopChan:
		return fmt.Errorf("worker pool %q is stopped", p.name)
	case <-ctx.Done():
		return ctx.Err()
	case p.taskQueue <- task:
		return nil
	}
}

// Stop stops the pool, waiting up to timeout for in-flight tasks.
func (p *WorkerPool) Stop(timeout time.Duration) error {
	var err error
	p.stopOnce.Do(func() {
		close(p.stopChan)

		done := make(chan struct{})
		go func() {
			p.wg.Wait()
			close(done)
		}()

		select {
		case <-done:
		case <-time.After(timeout):
			err = fmt.Errorf("worker pool %q stop timeout after %v", p.name, timeout)
		}
	})
	return err
}

// Completed returns how many tasks finished without error.
func (p *WorkerPool) Completed() uint64 {
	return atomic.LoadUint64(&p.completedTasks)
}

// Failed returns how many tasks returned an error or panicked.
func (p *WorkerPool) Failed() uint64 {
	return atomic.LoadUint64(&p.failedTasks)
}
