// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package paths

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"dob-redact/internal/platform"
)

const (
	// OCRSuffix is appended to the input base name for the searchable PDF
	OCRSuffix = "_OCR.pdf"

	// RedactedSuffix is appended to the input base name for the redacted PDF
	RedactedSuffix = "_OCR_redacted.pdf"

	// DefaultScratchFile is where the file store keeps candidate batches
	DefaultScratchFile = "data/uploads/data.json"
)

// GetConfigDir returns the dob-redact configuration directory
func GetConfigDir() string {
	// Check for explicit override first (works on all platforms)
	if dir := os.Getenv("DOB_REDACT_CONFIG_DIR"); dir != "" {
		return dir
	}

	p := platform.GetPlatform()
	return p.GetConfigDir()
}

// GetConfigFile returns the path to the main config file
func GetConfigFile() string {
	return filepath.Join(GetConfigDir(), "config.yaml")
}

// GetTempDir returns the platform-appropriate temporary directory
func GetTempDir() string {
	p := platform.GetPlatform()
	return p.GetTempDir()
}

// OutputPaths holds the artifacts written next to an input document
type OutputPaths struct {
	// Dir is the directory of the resolved input path
	Dir string

	// Base is the input file name without its extension
	Base string

	// OCR is the searchable PDF
	OCR string

	// Redacted is the searchable PDF with date regions blacked out
	Redacted string
}

// ForInput resolves symlinks on input and derives the output file names
// from its directory and base name.
func ForInput(input string) (OutputPaths, error) {
	abs, err := filepath.Abs(input)
	if err != nil {
		return OutputPaths{}, fmt.Errorf("failed to resolve %s: %w", input, err)
	}
	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return OutputPaths{}, fmt.Errorf("failed to resolve %s: %w", input, err)
	}

	dir := filepath.Dir(resolved)
	name := filepath.Base(resolved)
	base := strings.TrimSuffix(name, filepath.Ext(name))

	return OutputPaths{
		Dir:      dir,
		Base:     base,
		OCR:      filepath.Join(dir, base+OCRSuffix),
		Redacted: filepath.Join(dir, base+RedactedSuffix),
	}, nil
}
