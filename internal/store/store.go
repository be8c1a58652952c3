// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package store

import (
	"errors"
	"fmt"

	"dob-redact/internal/detector"
)

// ErrMalformed is returned by Load when persisted batches cannot be read back
var ErrMalformed = errors.New("candidate store is empty or malformed")

// Store accumulates per-page candidate batches for a single run
type Store interface {
	// Reset discards everything appended so far
	Reset() error

	// Append adds one batch as a new entry. Safe for concurrent use.
	Append(batch detector.Batch) error

	// Load returns every batch in append order
	Load() ([]detector.Batch, error)
}

const (
	BackendMemory = "memory"
	BackendFile   = "file"
)

// New creates the store for the named backend
func New(backend, path string) (Store, error) {
	switch backend {
	case "", BackendMemory:
		return NewMemoryStore(), nil
	case BackendFile:
		if path == "" {
			return nil, fmt.Errorf("file store requires a path")
		}
		return NewFileStore(path), nil
	default:
		return nil, fmt.Errorf("unknown store backend %q", backend)
	}
}
