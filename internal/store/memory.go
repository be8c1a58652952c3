// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package store

import (
	"sync"

	"dob-redact/internal/detector"
)

// MemoryStore keeps batches in process memory
type MemoryStore struct {
	mu      sync.Mutex
	batches []detector.Batch
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Reset() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.batches = nil
	return nil
}

func (s *MemoryStore) Append(batch detector.Batch) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.batches = append(s.batches, append(detector.Batch(nil), batch...))
	return nil
}

// Load returns a copy of the accumulated batches. An empty store is not an
// error here; only the file backend can be malformed.
func (s *MemoryStore) Load() ([]detector.Batch, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]detector.Batch, len(s.batches))
	copy(out, s.batches)
	return out, nil
}
