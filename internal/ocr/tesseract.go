// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package ocr

import (
	"context"
	"fmt"
	"os"
	"regexp"
	"strconv"

	"dob-redact/internal/observability"
	"dob-redact/internal/platform"
)

const (
	DefaultTesseract = "tesseract"
	DefaultLanguage  = "eng"

	// DefaultLayoutPSM treats the page as a single column of variable
	// sized text when building the searchable PDF.
	DefaultLayoutPSM = 4
)

var rotatePattern = regexp.MustCompile(`Rotate: (\d+)`)

// Config holds tesseract invocation settings
type Config struct {
	Tesseract   string
	Language    string
	TessdataDir string
	LayoutPSM   int
}

// Engine runs the tesseract CLI
type Engine struct {
	runner   platform.Runner
	cfg      Config
	observer *observability.StandardObserver
}

// Output is the searchable PDF and word boxes produced for one raster
type Output struct {
	PDFPath string
	Words   []Word
}

// NewEngine creates an engine. Empty config fields fall back to defaults.
func NewEngine(runner platform.Runner, cfg Config) *Engine {
	if cfg.Tesseract == "" {
		cfg.Tesseract = DefaultTesseract
	}
	if cfg.Language == "" {
		cfg.Language = DefaultLanguage
	}
	if cfg.LayoutPSM == 0 {
		cfg.LayoutPSM = DefaultLayoutPSM
	}
	return &Engine{runner: runner, cfg: cfg}
}

// GetComponentName returns the component identifier
func (e *Engine) GetComponentName() string {
	return "tesseract"
}

// SetObserver sets the observability component
func (e *Engine) SetObserver(observer *observability.StandardObserver) {
	e.observer = observer
}

// DetectRotation runs orientation and script detection and returns the
// counter-clockwise rotation, in degrees, that makes the page upright.
func (e *Engine) DetectRotation(ctx context.Context, imagePath string) (int, error) {
	finish := observability.Timing(e.observer, e.GetComponentName(), "osd", imagePath)

	args := append([]string{imagePath, "stdout", "--psm", "0"}, e.commonArgs()...)
	stdout, _, err := e.runner.Run(ctx, e.cfg.Tesseract, args...)
	if err != nil {
		finish(false, map[string]interface{}{"error": err.Error()})
		return 0, fmt.Errorf("orientation detection failed: %w", err)
	}

	angle, err := ParseRotation(string(stdout))
	if err != nil {
		finish(false, map[string]interface{}{"error": err.Error()})
		return 0, err
	}
	finish(true, map[string]interface{}{"rotate": angle})
	return angle, nil
}

// Text returns the plain OCR text of a raster using the default page
// segmentation.
func (e *Engine) Text(ctx context.Context, imagePath string) (string, error) {
	finish := observability.Timing(e.observer, e.GetComponentName(), "text", imagePath)

	args := append([]string{imagePath, "stdout"}, e.commonArgs()...)
	stdout, _, err := e.runner.Run(ctx, e.cfg.Tesseract, args...)
	if err != nil {
		finish(false, map[string]interface{}{"error": err.Error()})
		return "", fmt.Errorf("text recognition failed: %w", err)
	}

	finish(true, map[string]interface{}{"content_length": len(stdout)})
	return string(stdout), nil
}

// SearchablePDF renders a single-page PDF with an invisible text layer and
// the matching word boxes. outBase gets .pdf and .tsv appended. dpi is the
// resolution of the raster so the PDF page keeps its physical size.
func (e *Engine) SearchablePDF(ctx context.Context, imagePath, outBase string, dpi int) (*Output, error) {
	finish := observability.Timing(e.observer, e.GetComponentName(), "searchable_pdf", imagePath)

	args := []string{imagePath, outBase,
		"--psm", strconv.Itoa(e.cfg.LayoutPSM),
		"-c", "preserve_interword_spaces=1",
	}
	if dpi > 0 {
		args = append(args, "--dpi", strconv.Itoa(dpi))
	}
	args = append(args, e.commonArgs()...)
	args = append(args, "pdf", "tsv")

	if _, _, err := e.runner.Run(ctx, e.cfg.Tesseract, args...); err != nil {
		finish(false, map[string]interface{}{"error": err.Error()})
		return nil, fmt.Errorf("searchable PDF generation failed: %w", err)
	}

	// #nosec G304 - path is built from the run's scratch directory
	tsv, err := os.ReadFile(outBase + ".tsv")
	if err != nil {
		finish(false, map[string]interface{}{"error": err.Error()})
		return nil, fmt.Errorf("failed to read word boxes: %w", err)
	}
	words, err := ParseTSV(tsv)
	if err != nil {
		finish(false, map[string]interface{}{"error": err.Error()})
		return nil, err
	}

	finish(true, map[string]interface{}{"words": len(words)})
	return &Output{PDFPath: outBase + ".pdf", Words: words}, nil
}

func (e *Engine) commonArgs() []string {
	args := []string{"-l", e.cfg.Language}
	if e.cfg.TessdataDir != "" {
		args = append(args, "--tessdata-dir", e.cfg.TessdataDir)
	}
	return args
}

// ParseRotation extracts the "Rotate: N" value from OSD output
func ParseRotation(osd string) (int, error) {
	m := rotatePattern.FindStringSubmatch(osd)
	if m == nil {
		return 0, fmt.Errorf("no rotation in orientation output")
	}
	angle, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, fmt.Errorf("invalid rotation %q: %w", m[1], err)
	}
	return angle, nil
}
