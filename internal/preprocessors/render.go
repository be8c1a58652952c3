// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package preprocessors

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"

	"dob-redact/internal/observability"
	"dob-redact/internal/platform"
)

const (
	DefaultPdftoppm = "pdftoppm"
	DefaultDPI      = 200
)

var pageFilePattern = regexp.MustCompile(`^page-(\d+)\.png$`)

// PDFRenderer rasterises PDF pages with poppler's pdftoppm
type PDFRenderer struct {
	runner   platform.Runner
	tool     string
	dpi      int
	observer *observability.StandardObserver
}

// NewPDFRenderer creates a renderer. Zero values fall back to defaults.
func NewPDFRenderer(runner platform.Runner, tool string, dpi int) *PDFRenderer {
	if tool == "" {
		tool = DefaultPdftoppm
	}
	if dpi <= 0 {
		dpi = DefaultDPI
	}
	return &PDFRenderer{runner: runner, tool: tool, dpi: dpi}
}

// DPI returns the render resolution
func (r *PDFRenderer) DPI() int {
	return r.dpi
}

// SetObserver sets the observability component
func (r *PDFRenderer) SetObserver(observer *observability.StandardObserver) {
	r.observer = observer
}

// Render writes one PNG per page into outDir and returns them in page order
func (r *PDFRenderer) Render(ctx context.Context, pdfPath, outDir string) ([]PageSource, error) {
	finish := observability.Timing(r.observer, "pdf_renderer", "render", pdfPath)

	prefix := filepath.Join(outDir, "page")
	if _, _, err := r.runner.Run(ctx, r.tool, "-r", strconv.Itoa(r.dpi), "-png", pdfPath, prefix); err != nil {
		finish(false, map[string]interface{}{"error": err.Error()})
		return nil, fmt.Errorf("failed to render %s: %w", pdfPath, err)
	}

	pages, err := collectPages(outDir)
	if err != nil {
		finish(false, map[string]interface{}{"error": err.Error()})
		return nil, err
	}
	if len(pages) == 0 {
		finish(false, map[string]interface{}{"error": "no pages rendered"})
		return nil, fmt.Errorf("pdftoppm produced no pages for %s", pdfPath)
	}

	finish(true, map[string]interface{}{"pages": len(pages), "dpi": r.dpi})
	return pages, nil
}

// RenderPage renders a single 1-based page to outPath (a .png file)
func (r *PDFRenderer) RenderPage(ctx context.Context, pdfPath string, page int, outPath string) error {
	n := strconv.Itoa(page)
	prefix := outPath[:len(outPath)-len(filepath.Ext(outPath))]
	if _, _, err := r.runner.Run(ctx, r.tool, "-r", strconv.Itoa(r.dpi), "-png", "-f", n, "-l", n, "-singlefile", pdfPath, prefix); err != nil {
		return fmt.Errorf("failed to render page %d of %s: %w", page, pdfPath, err)
	}
	return nil
}

// collectPages finds page-N.png files and orders them numerically.
// pdftoppm zero-pads the suffix based on page count, so lexical order is
// not reliable across widths.
func collectPages(dir string) ([]PageSource, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list rendered pages: %w", err)
	}

	var pages []PageSource
	for _, e := range entries {
		m := pageFilePattern.FindStringSubmatch(e.Name())
		if m == nil {
			continue
		}
		n, _ := strconv.Atoi(m[1])
		pages = append(pages, PageSource{Number: n, Path: filepath.Join(dir, e.Name())})
	}

	sort.Slice(pages, func(i, j int) bool { return pages[i].Number < pages[j].Number })
	return pages, nil
}
