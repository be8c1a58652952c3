// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package platform

import (
	"os"
	"path/filepath"
)

// WindowsPlatform implements Platform interface for Windows systems
type WindowsPlatform struct{}

// GetConfigDir returns the Windows-appropriate configuration directory
func (w *WindowsPlatform) GetConfigDir() string {
	if dir := os.Getenv("DOB_REDACT_CONFIG_DIR"); dir != "" {
		return dir
	}

	if appData := os.Getenv("APPDATA"); appData != "" {
		return filepath.Join(appData, "dob-redact")
	}

	home, _ := os.UserHomeDir()
	return filepath.Join(home, "AppData", "Roaming", "dob-redact")
}

// GetTempDir returns the Windows temporary directory
func (w *WindowsPlatform) GetTempDir() string {
	if temp := os.Getenv("TEMP"); temp != "" {
		return temp
	}
	if tmp := os.Getenv("TMP"); tmp != "" {
		return tmp
	}
	return os.TempDir()
}

// GetExecutableExtension returns .exe for Windows
func (w *WindowsPlatform) GetExecutableExtension() string {
	return ".exe"
}
