// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package core

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"dob-redact/internal/paths"
	"dob-redact/internal/preprocessors"
)

// CollectInputs expands path into the documents to process. A file is
// returned as is; a directory yields its PDF files (extension matched
// case-insensitively, not recursive) sorted by name. Outputs of an earlier
// run are skipped, also matched case-insensitively.
func CollectInputs(path string) ([]string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("cannot access %s: %w", path, err)
	}
	if !info.IsDir() {
		return []string{path}, nil
	}

	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory %s: %w", path, err)
	}

	var files []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !preprocessors.IsPDFFile(name) {
			continue
		}
		if isOutputName(name) {
			continue
		}
		files = append(files, filepath.Join(path, name))
	}
	sort.Strings(files)
	return files, nil
}

func isOutputName(name string) bool {
	lower := strings.ToLower(name)
	return strings.HasSuffix(lower, strings.ToLower(paths.OCRSuffix)) ||
		strings.HasSuffix(lower, strings.ToLower(paths.RedactedSuffix))
}
