// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package store

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"dob-redact/internal/detector"
)

// FileStore persists batches as a JSON list of lists in a scratch file
type FileStore struct {
	mu   sync.Mutex
	path string
}

// NewFileStore creates a store backed by the file at path
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Path returns the scratch file location
func (s *FileStore) Path() string {
	return s.path
}

// Reset removes the scratch file and leaves an empty placeholder behind
func (s *FileStore) Reset() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove scratch file: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0750); err != nil {
		return fmt.Errorf("failed to create scratch directory: %w", err)
	}
	// #nosec G304 - scratch path comes from configuration
	f, err := os.OpenFile(s.path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("failed to create scratch file: %w", err)
	}
	return f.Close()
}

// Append performs a read-modify-write of the whole file under the store lock
func (s *FileStore) Append(batch detector.Batch) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var batches []detector.Batch
	// #nosec G304 - scratch path comes from configuration
	data, err := os.ReadFile(s.path)
	switch {
	case os.IsNotExist(err):
	case err != nil:
		return fmt.Errorf("failed to read scratch file: %w", err)
	case len(bytes.TrimSpace(data)) > 0:
		if err := json.Unmarshal(data, &batches); err != nil {
			return fmt.Errorf("%w: %v", ErrMalformed, err)
		}
	}

	if batch == nil {
		batch = detector.Batch{}
	}
	batches = append(batches, batch)

	out, err := json.MarshalIndent(batches, "", "    ")
	if err != nil {
		return fmt.Errorf("failed to encode batches: %w", err)
	}
	return writeFileAtomic(s.path, out)
}

// Load parses the scratch file. A missing, empty or unparseable file is
// reported as ErrMalformed.
func (s *FileStore) Load() ([]detector.Batch, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// #nosec G304 - scratch path comes from configuration
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, ErrMalformed
	}

	var batches []detector.Batch
	if err := json.Unmarshal(data, &batches); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return batches, nil
}

func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".store-*.json")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to replace scratch file: %w", err)
	}
	return nil
}
