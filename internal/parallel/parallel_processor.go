// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package parallel

import (
	"context"
	"errors"
	"runtime"

	"dob-redact/internal/observability"
)

// maxWorkers caps the default pool size to avoid resource exhaustion
const maxWorkers = 8

// DefaultWorkers returns NumCPU capped at 8
func DefaultWorkers() int {
	workers := runtime.NumCPU()
	if workers > maxWorkers {
		workers = maxWorkers
	}
	return workers
}

// ProgressCallback is called each time a job completes
type ProgressCallback func(completed, total int)

// Map runs process over inputs on a bounded pool and returns the outputs in
// input order regardless of completion order. The first failure cancels
// outstanding jobs; the error of the lowest failing index is returned,
// ignoring cancellations that the first failure itself caused.
func Map[T, R any](ctx context.Context, name string, workers int, observer *observability.StandardObserver, inputs []T, process ProcessFunc[T, R], progress ProgressCallback) ([]R, error) {
	if len(inputs) == 0 {
		return nil, nil
	}
	if workers <= 0 {
		workers = DefaultWorkers()
	}
	if workers > len(inputs) {
		workers = len(inputs)
	}

	pool := NewWorkerPool(ctx, name, workers, observer, process)
	pool.Start()

	go func() {
		defer pool.Close()
		for i, in := range inputs {
			if !pool.Submit(&Job[T]{Index: i, Input: in}) {
				return
			}
		}
	}()
	go pool.Stop()

	outputs := make([]R, len(inputs))
	failedIndex := -1
	var firstErr error
	completed := 0

	for res := range pool.Results() {
		completed++
		if progress != nil {
			progress(completed, len(inputs))
		}
		if res.Error != nil {
			if failedIndex < 0 || (res.Index < failedIndex && !errors.Is(res.Error, context.Canceled)) ||
				(errors.Is(firstErr, context.Canceled) && !errors.Is(res.Error, context.Canceled)) {
				failedIndex = res.Index
				firstErr = res.Error
			}
			pool.Cancel()
			continue
		}
		outputs[res.Index] = res.Value
	}

	if firstErr != nil {
		return nil, firstErr
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if completed != len(inputs) {
		return nil, context.Canceled
	}
	return outputs, nil
}
