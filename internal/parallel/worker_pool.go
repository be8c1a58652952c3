// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package parallel

import (
	"context"
	"fmt"
	"sync"
	"time"

	"dob-redact/internal/observability"
)

// ProcessFunc handles one job input
type ProcessFunc[T, R any] func(ctx context.Context, input T) (R, error)

// WorkerPool runs a fixed number of workers over a job queue
type WorkerPool[T, R any] struct {
	name     string
	workers  int
	jobs     chan *Job[T]
	results  chan *Result[R]
	wg       sync.WaitGroup
	ctx      context.Context
	cancel   context.CancelFunc
	observer *observability.StandardObserver
	process  ProcessFunc[T, R]
}

// Job represents one unit of work. Index is its position in the input.
type Job[T any] struct {
	Index int
	Input T
}

// Result represents processing results
type Result[R any] struct {
	Index    int
	Value    R
	Error    error
	Duration time.Duration
}

// NewWorkerPool creates a pool bound to ctx. Cancelling ctx or calling
// Cancel stops workers from picking up further jobs.
func NewWorkerPool[T, R any](ctx context.Context, name string, workers int, observer *observability.StandardObserver, process ProcessFunc[T, R]) *WorkerPool[T, R] {
	if workers < 1 {
		workers = 1
	}
	ctx, cancel := context.WithCancel(ctx)

	return &WorkerPool[T, R]{
		name:     name,
		workers:  workers,
		jobs:     make(chan *Job[T], workers*2),
		results:  make(chan *Result[R], workers*2),
		ctx:      ctx,
		cancel:   cancel,
		observer: observer,
		process:  process,
	}
}

// Start initializes worker goroutines
func (wp *WorkerPool[T, R]) Start() {
	for i := 0; i < wp.workers; i++ {
		wp.wg.Add(1)
		go wp.worker(i)
	}
}

// Stop waits for workers to drain and closes the results channel. Close
// must have been called first.
func (wp *WorkerPool[T, R]) Stop() {
	wp.wg.Wait()
	close(wp.results)
	wp.cancel()
}

// Cancel abandons queued jobs
func (wp *WorkerPool[T, R]) Cancel() {
	wp.cancel()
}

// Submit adds a job to the queue. It returns false once the pool is cancelled.
func (wp *WorkerPool[T, R]) Submit(job *Job[T]) bool {
	select {
	case wp.jobs <- job:
		return true
	case <-wp.ctx.Done():
		return false
	}
}

// Close signals that no more jobs will be submitted
func (wp *WorkerPool[T, R]) Close() {
	close(wp.jobs)
}

// Results returns the results channel
func (wp *WorkerPool[T, R]) Results() <-chan *Result[R] {
	return wp.results
}

// worker processes jobs from the queue
func (wp *WorkerPool[T, R]) worker(id int) {
	defer wp.wg.Done()

	for job := range wp.jobs {
		if wp.ctx.Err() != nil {
			continue
		}
		result := wp.processJob(job, id)

		select {
		case wp.results <- result:
		case <-wp.ctx.Done():
		}
	}
}

// processJob executes a single job and converts a panic into an error
func (wp *WorkerPool[T, R]) processJob(job *Job[T], workerID int) (result *Result[R]) {
	start := time.Now()
	finish := observability.Timing(wp.observer, wp.name, "process_job", fmt.Sprintf("job-%d", job.Index))

	result = &Result[R]{Index: job.Index}
	defer func() {
		if r := recover(); r != nil {
			result.Error = fmt.Errorf("job %d panicked: %v", job.Index, r)
		}
		result.Duration = time.Since(start)

		meta := map[string]interface{}{
			"worker_id":   workerID,
			"duration_ms": result.Duration.Milliseconds(),
		}
		if result.Error != nil {
			meta["error"] = result.Error.Error()
		}
		finish(result.Error == nil, meta)
	}()

	result.Value, result.Error = wp.process(wp.ctx, job.Input)
	return result
}
