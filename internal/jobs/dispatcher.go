// Package jobs runs background work the review flow fires and forgets,
// namely persisting locally generated reviews to the backend.
package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/codecritic/codecritic/internal/backend"
	"github.com/codecritic/codecritic/internal/core"
)

// PersistJob asks for one completed review to be saved upstream.
type PersistJob struct {
	Token  string
	Params backend.CreateReviewParams
}

// Saver persists reviews. *backend.Client satisfies it.
type Saver interface {
	CreateReview(ctx context.Context, token string, params backend.CreateReviewParams) (*core.Review, error)
}

// Dispatcher accepts persist jobs for asynchronous processing. Dispatch
// returns an error when the queue is full, providing backpressure.
type Dispatcher interface {
	Dispatch(ctx context.Context, job PersistJob) error
	Stop()
}

// dispatcher manages a pool of worker goroutines draining the job queue.
type dispatcher struct {
	saver      Saver
	jobQueue   chan PersistJob
	maxWorkers int
	wg         sync.WaitGroup
	logger     *slog.Logger
}

// NewDispatcher initializes a dispatcher with a worker pool. If maxWorkers
// is 0 or negative, it defaults to 1.
func NewDispatcher(saver Saver, maxWorkers int, logger *slog.Logger) Dispatcher {
	if maxWorkers <= 0 {
		maxWorkers = 1
	}
	d := &dispatcher{
		saver:      saver,
		maxWorkers: maxWorkers,
		jobQueue:   make(chan PersistJob, 100),
		logger:     logger,
	}
	d.startWorkers()
	return d
}

func (d *dispatcher) startWorkers() {
	for i := range d.maxWorkers {
		d.wg.Add(1)
		go d.startWorker(i)
	}
}

// startWorker processes jobs from the queue until it's closed.
func (d *dispatcher) startWorker(workerID int) {
	defer d.wg.Done()
	d.logger.Debug("starting persist worker", "id", workerID)

	for job := range d.jobQueue {
		d.processJob(workerID, job)
	}

	d.logger.Debug("shutting down persist worker", "id", workerID)
}

func (d *dispatcher) processJob(workerID int, job PersistJob) {
	d.logger.Info("worker persisting review", "worker_id", workerID, "review_id", job.Params.ID)

	if _, err := d.saver.CreateReview(context.Background(), job.Token, job.Params); err != nil {
		d.logger.Error("failed to persist review",
			"review_id", job.Params.ID,
			"model", job.Params.ChatModelID,
			"error", err,
		)
	}
}

// Dispatch queues a job for processing by a worker.
func (d *dispatcher) Dispatch(_ context.Context, job PersistJob) error {
	select {
	case d.jobQueue <- job:
		return nil
	default:
		return fmt.Errorf("job queue is full, cannot accept new persist job")
	}
}

// Stop gracefully shuts down the dispatcher, waiting for all workers to
// finish their current jobs.
func (d *dispatcher) Stop() {
	d.logger.Info("stopping persist dispatcher and waiting for jobs to finish")
	close(d.jobQueue)
	d.wg.Wait()
}
