// Package worker runs user actions on a small bounded pool so a burst of key
// presses cannot open an unbounded number of vendor connections.
package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

var (
	// ErrQueueFull is returned by Submit when every worker is busy and the
	// queue has no room left.
	ErrQueueFull = errors.New("action queue is full")
	// ErrStopped is returned by Submit after Stop.
	ErrStopped = errors.New("worker pool stopped")
)

// Job is one user action. Run receives a context that is cancelled by Stop.
type Job struct {
	Name string
	Run  func(ctx context.Context)
}

type Stats struct {
	Processed  int64
	Panicked   int64
	QueueDepth int
	Busy       int
}

type Pool struct {
	workers  int
	jobQueue chan Job
	ctx      context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	logger   *zap.Logger
	stopOnce sync.Once

	mu        sync.RWMutex
	stopped   bool
	processed int64
	panicked  int64
	busy      int
}

func NewPool(workers, queueSize int, logger *zap.Logger) *Pool {
	if workers < 1 {
		workers = 1
	}
	if queueSize < 0 {
		queueSize = 0
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Pool{
		workers:  workers,
		jobQueue: make(chan Job, queueSize),
		ctx:      ctx,
		cancel:   cancel,
		logger:   logger,
	}
}

func (p *Pool) Start() {
	p.logger.Info("Starting worker pool", zap.Int("workers", p.workers), zap.Int("queueSize", cap(p.jobQueue)))

	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.worker(i)
	}
}

// Stop cancels in-flight jobs, drops queued ones and waits for the workers.
func (p *Pool) Stop() {
	p.stopOnce.Do(func() {
		p.logger.Info("Stopping worker pool")
		p.cancel()

		p.mu.Lock()
		p.stopped = true
		close(p.jobQueue)
		p.mu.Unlock()

		p.wg.Wait()
		p.logger.Info("Worker pool stopped")
	})
}

// Submit queues job without blocking.
func (p *Pool) Submit(job Job) error {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.stopped {
		return ErrStopped
	}

	select {
	case p.jobQueue <- job:
		return nil
	default:
		return fmt.Errorf("%s: %w", job.Name, ErrQueueFull)
	}
}

func (p *Pool) worker(id int) {
	defer p.wg.Done()

	p.logger.Debug("Worker started", zap.Int("worker_id", id))

	for {
		select {
		case job, ok := <-p.jobQueue:
			if !ok {
				p.logger.Debug("Worker stopping", zap.Int("worker_id", id))
				return
			}
			if p.ctx.Err() != nil {
				continue
			}
			p.process(job, id)

		case <-p.ctx.Done():
			p.logger.Debug("Worker context cancelled", zap.Int("worker_id", id))
			return
		}
	}
}

func (p *Pool) process(job Job, workerID int) {
	start := time.Now()

	p.mu.Lock()
	p.busy++
	p.mu.Unlock()

	defer func() {
		panicked := recover()

		p.mu.Lock()
		p.busy--
		p.processed++
		if panicked != nil {
			p.panicked++
		}
		p.mu.Unlock()

		if panicked != nil {
			p.logger.Error("Job panicked",
				zap.Int("worker_id", workerID),
				zap.String("job", job.Name),
				zap.Any("panic", panicked))
			return
		}

		p.logger.Debug("Job processed",
			zap.Int("worker_id", workerID),
			zap.String("job", job.Name),
			zap.Duration("duration", time.Since(start)))
	}()

	job.Run(p.ctx)
}

func (p *Pool) Stats() Stats {
	p.mu.RLock()
	defer p.mu.RUnlock()

	return Stats{
		Processed:  p.processed,
		Panicked:   p.panicked,
		QueueDepth: len(p.jobQueue),
		Busy:       p.busy,
	}
}
