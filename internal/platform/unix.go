// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package platform

import (
	"os"
	"path/filepath"
)

// UnixPlatform implements Platform interface for Unix-like systems (Linux, macOS, etc.)
type UnixPlatform struct{}

// GetConfigDir returns the Unix-appropriate configuration directory
func (u *UnixPlatform) GetConfigDir() string {
	// Check for explicit override first
	if dir := os.Getenv("DOB_REDACT_CONFIG_DIR"); dir != "" {
		return dir
	}

	// Check XDG Base Directory specification
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "dob-redact")
	}

	// Default to home directory
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".dob-redact")
}

// GetTempDir returns the Unix temporary directory
func (u *UnixPlatform) GetTempDir() string {
	if tmpDir := os.Getenv("TMPDIR"); tmpDir != "" {
		return tmpDir
	}
	if tmp := os.Getenv("TMP"); tmp != "" {
		return tmp
	}
	return "/tmp"
}

// GetExecutableExtension returns empty string for Unix (no extension needed)
func (u *UnixPlatform) GetExecutableExtension() string {
	return ""
}
