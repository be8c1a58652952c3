// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	"dob-redact/internal/ocr"
	"dob-redact/internal/parallel"
	"dob-redact/internal/paths"
	"dob-redact/internal/preprocessors"
	"dob-redact/internal/store"
	"dob-redact/internal/validators/dob"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// EnvPrefix is prepended to every environment override
const EnvPrefix = "DOB_REDACT_"

// Config represents the application configuration
type Config struct {
	// Default settings
	Defaults struct {
		Format  string `yaml:"format"`
		Verbose bool   `yaml:"verbose"`
		Debug   bool   `yaml:"debug"`
		NoColor bool   `yaml:"no_color"`
	} `yaml:"defaults"`

	// Date extraction bounds, in years
	Extraction struct {
		MinAge float64 `yaml:"min_age"`
		MaxAge float64 `yaml:"max_age"`
	} `yaml:"extraction"`

	// External OCR tooling
	OCR struct {
		Tesseract   string `yaml:"tesseract"`
		Pdftoppm    string `yaml:"pdftoppm"`
		Language    string `yaml:"language"`
		TessdataDir string `yaml:"tessdata_dir"`
		DPI         int    `yaml:"dpi"`
		PSM         int    `yaml:"psm"`
	} `yaml:"ocr"`

	// Raster enhancement applied before OCR
	Enhance struct {
		Scale      int     `yaml:"scale"`
		Contrast   float64 `yaml:"contrast"`
		Brightness float64 `yaml:"brightness"`
		Threshold  int     `yaml:"threshold"`
	} `yaml:"enhance"`

	Pipeline struct {
		Workers int    `yaml:"workers"`
		WorkDir string `yaml:"work_dir"`
	} `yaml:"pipeline"`

	// Candidate scratch store
	Store struct {
		Backend string `yaml:"backend"`
		Path    string `yaml:"path"`
	} `yaml:"store"`

	Redaction struct {
		Enabled bool `yaml:"enabled"`
	} `yaml:"redaction"`
}

// Default returns the built-in configuration
func Default() *Config {
	config := &Config{}

	config.Defaults.Format = "text"
	config.Defaults.Verbose = false
	config.Defaults.Debug = false
	config.Defaults.NoColor = false

	config.Extraction.MinAge = dob.DefaultMinAge
	config.Extraction.MaxAge = dob.DefaultMaxAge

	config.OCR.Tesseract = ocr.DefaultTesseract
	config.OCR.Pdftoppm = preprocessors.DefaultPdftoppm
	config.OCR.Language = ocr.DefaultLanguage
	config.OCR.DPI = preprocessors.DefaultDPI
	config.OCR.PSM = ocr.DefaultLayoutPSM

	config.Enhance.Scale = preprocessors.DefaultScale
	config.Enhance.Contrast = preprocessors.DefaultContrast
	config.Enhance.Brightness = preprocessors.DefaultBrightness
	config.Enhance.Threshold = preprocessors.DefaultThreshold

	config.Pipeline.Workers = parallel.DefaultWorkers()

	config.Store.Backend = store.BackendMemory
	config.Store.Path = paths.DefaultScratchFile

	config.Redaction.Enabled = true

	return config
}

// LoadConfig loads configuration from a YAML file on top of the defaults,
// then applies environment overrides. An empty path yields the defaults
// with overrides applied.
func LoadConfig(configPath string) (*Config, error) {
	config := Default()

	if configPath != "" {
		cleanPath := filepath.Clean(configPath)
		data, err := os.ReadFile(cleanPath)
		if err != nil {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}

		if err := yaml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("error parsing config file: %w", err)
		}
	}

	if err := ApplyEnv(config); err != nil {
		return nil, fmt.Errorf("error applying environment overrides: %w", err)
	}

	if err := ValidateConfig(config); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}

// LoadDotEnv loads a .env file from the working directory if one exists.
// Variables already set in the environment are not overwritten.
func LoadDotEnv() error {
	if !fileExists(".env") {
		return nil
	}
	return godotenv.Load(".env")
}

// ApplyEnv overrides config fields from DOB_REDACT_* environment variables
func ApplyEnv(config *Config) error {
	var err error
	str := func(name string, dst *string) {
		if v, ok := lookupEnv(name); ok {
			*dst = v
		}
	}
	boolean := func(name string, dst *bool) {
		if v, ok := lookupEnv(name); ok && err == nil {
			b, perr := strconv.ParseBool(v)
			if perr != nil {
				err = fmt.Errorf("%s%s: %w", EnvPrefix, name, perr)
				return
			}
			*dst = b
		}
	}
	integer := func(name string, dst *int) {
		if v, ok := lookupEnv(name); ok && err == nil {
			n, perr := strconv.Atoi(v)
			if perr != nil {
				err = fmt.Errorf("%s%s: %w", EnvPrefix, name, perr)
				return
			}
			*dst = n
		}
	}
	float := func(name string, dst *float64) {
		if v, ok := lookupEnv(name); ok && err == nil {
			f, perr := strconv.ParseFloat(v, 64)
			if perr != nil {
				err = fmt.Errorf("%s%s: %w", EnvPrefix, name, perr)
				return
			}
			*dst = f
		}
	}

	str("FORMAT", &config.Defaults.Format)
	boolean("DEBUG", &config.Defaults.Debug)
	boolean("VERBOSE", &config.Defaults.Verbose)
	boolean("NO_COLOR", &config.Defaults.NoColor)
	float("MIN_AGE", &config.Extraction.MinAge)
	float("MAX_AGE", &config.Extraction.MaxAge)
	str("TESSERACT", &config.OCR.Tesseract)
	str("PDFTOPPM", &config.OCR.Pdftoppm)
	str("LANGUAGE", &config.OCR.Language)
	str("TESSDATA_DIR", &config.OCR.TessdataDir)
	integer("DPI", &config.OCR.DPI)
	integer("PSM", &config.OCR.PSM)
	integer("THRESHOLD", &config.Enhance.Threshold)
	integer("WORKERS", &config.Pipeline.Workers)
	str("WORK_DIR", &config.Pipeline.WorkDir)
	str("STORE", &config.Store.Backend)
	str("SCRATCH", &config.Store.Path)
	boolean("REDACT", &config.Redaction.Enabled)

	return err
}

func lookupEnv(name string) (string, bool) {
	v, ok := os.LookupEnv(EnvPrefix + name)
	if !ok {
		return "", false
	}
	v = strings.TrimSpace(v)
	return v, v != ""
}

// FindConfigFile looks for a config file in standard locations
func FindConfigFile() string {
	// Project-specific config in the current directory first
	for _, name := range []string{"dob-redact.yaml", "dob-redact.yml", ".dob-redact.yaml", ".dob-redact.yml"} {
		if fileExists(name) {
			return name
		}
	}

	// Check standard location using platform-aware paths
	standardConfig := paths.GetConfigFile()
	if fileExists(standardConfig) {
		return standardConfig
	}

	if runtime.GOOS == "windows" {
		return ""
	}
	return findUnixConfigFile()
}

func findUnixConfigFile() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}

	xdgConfig := os.Getenv("XDG_CONFIG_HOME")
	if xdgConfig == "" {
		xdgConfig = filepath.Join(home, ".config")
	}
	for _, name := range []string{"config.yaml", "config.yml"} {
		xdgConfigFile := filepath.Join(xdgConfig, "dob-redact", name)
		if fileExists(xdgConfigFile) {
			return xdgConfigFile
		}
	}

	return ""
}

// fileExists checks if a file exists and is not a directory
func fileExists(filename string) bool {
	info, err := os.Stat(filename)
	if os.IsNotExist(err) {
		return false
	}
	return err == nil && !info.IsDir()
}

// ValidateConfig validates the configuration
func ValidateConfig(config *Config) error {
	if config == nil {
		return fmt.Errorf("configuration cannot be nil")
	}

	switch config.Defaults.Format {
	case "text", "json", "yaml":
	default:
		return fmt.Errorf("unsupported format %q", config.Defaults.Format)
	}

	if config.Extraction.MinAge < 0 {
		return fmt.Errorf("extraction.min_age must not be negative")
	}
	if config.Extraction.MaxAge > 0 && config.Extraction.MaxAge < config.Extraction.MinAge {
		return fmt.Errorf("extraction.max_age must not be below min_age")
	}

	if config.OCR.DPI <= 0 {
		return fmt.Errorf("ocr.dpi must be positive")
	}
	if config.OCR.PSM < 0 || config.OCR.PSM > 13 {
		return fmt.Errorf("ocr.psm must be between 0 and 13")
	}

	if config.Enhance.Scale < 1 {
		return fmt.Errorf("enhance.scale must be at least 1")
	}
	if config.Enhance.Threshold < 0 || config.Enhance.Threshold > 255 {
		return fmt.Errorf("enhance.threshold must be between 0 and 255")
	}

	if config.Pipeline.Workers < 0 {
		return fmt.Errorf("pipeline.workers must not be negative")
	}

	switch config.Store.Backend {
	case store.BackendMemory:
	case store.BackendFile:
		if config.Store.Path == "" {
			return fmt.Errorf("store.path is required for the file backend")
		}
	default:
		return fmt.Errorf("unknown store backend %q", config.Store.Backend)
	}

	return nil
}

// LoadConfigOrDefault loads the config file if provided (or discovered),
// falling back to defaults if the file is missing or invalid.
func LoadConfigOrDefault(configFile string) *Config {
	configPath := configFile
	if configPath == "" {
		configPath = FindConfigFile()
	}

	cfg, err := LoadConfig(configPath)
	if err != nil {
		// Fall back to defaults; callers should not crash on a missing or bad config file.
		return Default()
	}
	return cfg
}
