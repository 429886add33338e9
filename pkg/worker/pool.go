// Package worker provides an asynchronous worker pool for writing answered
// queries to the audit log and publishing them to the event stream.
//
// The pool decouples auditing from the API's request path so a slow or
// failing audit store never delays an answer.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/papercomputeco/vakki/pkg/eventstream"
	"github.com/papercomputeco/vakki/pkg/storage"
)

var (
	defaultNumWorkers   uint = 3
	defaultJobQueueSize uint = 256
	defaultJobTimeout        = 30 * time.Second
)

// Job is a unit of work for the worker pool to execute against.
type Job struct {
	Record *storage.AnswerRecord

	// Model that generated the answer, carried on the event.
	Model string
}

// Config is the configuration options for the worker pool.
type Config struct {
	// Driver is the audit store.
	Driver storage.Driver

	// Publisher is the optional event stream publisher.
	Publisher eventstream.Publisher

	// NumWorkers is the number of background workers in the pool.
	NumWorkers uint

	// QueueSize is the capacity of the buffered job channel (defaults to 256).
	QueueSize uint

	// JobTimeout bounds the store and publish calls of one job.
	JobTimeout time.Duration

	Logger *slog.Logger
}

// Pool processes audit jobs asynchronously via a worker pool.
type Pool struct {
	config *Config
	queue  chan Job
	wg     sync.WaitGroup
	logger *slog.Logger

	closeOnce sync.Once
	mu        sync.RWMutex
	closed    bool
}

// NewPool creates a new Pool and starts its worker goroutines.
func NewPool(c *Config) (*Pool, error) {
	if c.Driver == nil {
		return nil, errors.New("audit driver is required")
	}

	if c.NumWorkers == 0 {
		c.NumWorkers = defaultNumWorkers
	}

	if c.QueueSize == 0 {
		c.QueueSize = defaultJobQueueSize
	}

	if c.JobTimeout == 0 {
		c.JobTimeout = defaultJobTimeout
	}

	if c.NumWorkers > uint(math.MaxInt) {
		return nil, fmt.Errorf("NumWorkers %d exceeds max int", c.NumWorkers)
	}

	wp := &Pool{
		config: c,
		queue:  make(chan Job, c.QueueSize),
		logger: c.Logger,
	}

	wp.wg.Add(int(c.NumWorkers))
	for i := range c.NumWorkers {
		go wp.worker(i)
	}

	return wp, nil
}

// Enqueue submits a job for processing by the worker pool.
// Returns true if enqueued, false if the queue is full or the pool is
// closed, resulting in the job being dropped.
func (p *Pool) Enqueue(job Job) bool {
	if job.Record == nil {
		return false
	}

	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		p.logger.Warn("job not queued, pool closed", "record_id", job.Record.ID)
		return false
	}

	select {
	case p.queue <- job:
		p.logger.Debug("job queued",
			"record_id", job.Record.ID,
			"session_id", job.Record.SessionID,
		)
		return true
	default:
		p.logger.Error("job not queued, queue full, job dropped",
			"record_id", job.Record.ID,
			"session_id", job.Record.SessionID,
		)
		return false
	}
}

// Close signals workers to stop and waits for in-flight jobs to drain.
// Call this during graceful shutdown after the HTTP server has stopped.
func (p *Pool) Close() {
	p.closeOnce.Do(func() {
		p.mu.Lock()
		p.closed = true
		close(p.queue)
		p.mu.Unlock()
	})
	p.wg.Wait()
}

// worker is the inner worker thread that continuously pulls jobs off the jobs queue
func (p *Pool) worker(id uint) {
	defer p.wg.Done()
	p.logger.Debug("worker started", "worker_id", id)

	for job := range p.queue {
		p.processJob(job)
	}

	p.logger.Debug("audit worker stopped", "worker_id", id)
}

// processJob stores the record and, if it was stored, publishes it.
func (p *Pool) processJob(job Job) {
	ctx, cancel := context.WithTimeout(context.Background(), p.config.JobTimeout)
	defer cancel()

	if err := p.config.Driver.Put(ctx, job.Record); err != nil {
		p.logger.Error("async audit storage failed",
			"record_id", job.Record.ID,
			"error", err,
		)
		return
	}

	p.logger.Info("answer recorded",
		"record_id", job.Record.ID,
		"session_id", job.Record.SessionID,
	)

	if p.config.Publisher == nil {
		return
	}

	event := eventstream.NewAnswerRecordedEvent(*job.Record, job.Model, time.Now())
	if err := p.config.Publisher.PublishAnswer(ctx, event); err != nil {
		p.logger.Warn("failed to publish answer event",
			"record_id", job.Record.ID,
			"event_id", event.EventID,
			"error", err,
		)
	}
}
