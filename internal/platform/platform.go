// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package platform

import (
	"runtime"
)

// Platform defines the interface for platform-specific operations
type Platform interface {
	GetConfigDir() string
	GetTempDir() string
	GetExecutableExtension() string
}

// Config holds platform-specific configuration
type Config struct {
	OS                  string `json:"os"`
	Architecture        string `json:"architecture"`
	ConfigDirectory     string `json:"config_directory"`
	TempDirectory       string `json:"temp_directory"`
	ExecutableExtension string `json:"executable_extension"`
}

// GetPlatform returns the appropriate platform implementation for the current OS
func GetPlatform() Platform {
	switch runtime.GOOS {
	case "windows":
		return &WindowsPlatform{}
	default:
		return &UnixPlatform{}
	}
}

// GetConfig returns platform configuration for the current system
func GetConfig() *Config {
	platform := GetPlatform()
	return &Config{
		OS:                  runtime.GOOS,
		Architecture:        runtime.GOARCH,
		ConfigDirectory:     platform.GetConfigDir(),
		TempDirectory:       platform.GetTempDir(),
		ExecutableExtension: platform.GetExecutableExtension(),
	}
}

// ToolName appends the platform executable extension to a bare tool name
// such as "tesseract". Names that already carry a path or extension are
// returned unchanged.
func ToolName(name string) string {
	ext := GetPlatform().GetExecutableExtension()
	if ext == "" || name == "" {
		return name
	}
	for i := len(name) - 1; i >= 0; i-- {
		switch name[i] {
		case '.':
			return name
		case '/', '\\':
			return name + ext
		}
	}
	return name + ext
}

// IsWindows returns true if running on Windows
func IsWindows() bool {
	return runtime.GOOS == "windows"
}
