// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package preprocessors

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"dob-redact/internal/observability"
	"dob-redact/internal/platform"
)

// PageSource is one rasterised page waiting to be processed
type PageSource struct {
	// Number is 1-based
	Number int

	// Path is the raster image on disk
	Path string
}

// Rasterizer turns an input document into page rasters under workDir
type Rasterizer interface {
	Rasterize(ctx context.Context, inputPath, workDir string) ([]PageSource, error)
}

// imageExtensions are inputs treated as a single scanned page
var imageExtensions = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".tif":  true,
	".tiff": true,
}

// IsImageFile reports whether path is a supported scanned image
func IsImageFile(path string) bool {
	return imageExtensions[strings.ToLower(filepath.Ext(path))]
}

// IsPDFFile reports whether path has a PDF extension
func IsPDFFile(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".pdf")
}

// InputRasterizer dispatches PDFs to pdftoppm and images to the loader
type InputRasterizer struct {
	pdf      *PDFRenderer
	observer *observability.StandardObserver
}

// NewInputRasterizer creates a rasterizer for PDF and image inputs
func NewInputRasterizer(runner platform.Runner, tool string, dpi int) *InputRasterizer {
	return &InputRasterizer{pdf: NewPDFRenderer(runner, tool, dpi)}
}

// GetComponentName returns the component identifier
func (r *InputRasterizer) GetComponentName() string {
	return "rasterizer"
}

// SetObserver sets the observability component
func (r *InputRasterizer) SetObserver(observer *observability.StandardObserver) {
	r.observer = observer
	r.pdf.observer = observer
}

// Rasterize renders every page of a PDF, or normalises a single image, into
// PNG files under workDir.
func (r *InputRasterizer) Rasterize(ctx context.Context, inputPath, workDir string) ([]PageSource, error) {
	switch {
	case IsPDFFile(inputPath):
		return r.pdf.Render(ctx, inputPath, workDir)
	case IsImageFile(inputPath):
		finish := observability.Timing(r.observer, r.GetComponentName(), "load_image", inputPath)
		img, err := LoadImage(inputPath)
		if err != nil {
			finish(false, map[string]interface{}{"error": err.Error()})
			return nil, err
		}
		out := filepath.Join(workDir, "page-1.png")
		if err := SavePNG(img, out); err != nil {
			finish(false, map[string]interface{}{"error": err.Error()})
			return nil, err
		}
		finish(true, nil)
		return []PageSource{{Number: 1, Path: out}}, nil
	default:
		return nil, fmt.Errorf("unsupported input type %q", filepath.Ext(inputPath))
	}
}
