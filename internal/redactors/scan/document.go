// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package scan provides a redactable document over OCR'd page rasters.
// Search runs over the tesseract word boxes, redaction paints the raster,
// and saving re-runs OCR on changed pages so their text layer no longer
// carries the removed text.
package scan

import (
	"context"
	"fmt"
	"image"
	"path/filepath"

	"golang.org/x/sync/errgroup"

	"dob-redact/internal/observability"
	"dob-redact/internal/ocr"
	"dob-redact/internal/preprocessors"
	"dob-redact/internal/redactors"
)

// Rebuilder regenerates a searchable single-page PDF from a raster
type Rebuilder interface {
	SearchablePDF(ctx context.Context, imagePath, outBase string, dpi int) (*ocr.Output, error)
}

// Merger combines single-page PDFs in order
type Merger interface {
	Merge(fragments []string, outputPath string) error
}

// PageData is the OCR result for one page
type PageData struct {
	// Number is 1-based
	Number int

	// Raster is the enhanced, upright page image the words refer to
	Raster *image.Gray

	// Words are tesseract's word boxes in raster pixels
	Words []ocr.Word

	// FragmentPath is the searchable PDF built from the unredacted raster
	FragmentPath string
}

// Options configures a Document
type Options struct {
	// WorkDir receives rebuilt rasters and fragments
	WorkDir string

	// DPI is the raster resolution passed to the rebuild
	DPI int

	// Workers bounds concurrent page rebuilds
	Workers int
}

// Document implements redactors.Document over OCR page data
type Document struct {
	pages     []*Page
	rebuilder Rebuilder
	merger    Merger
	opts      Options
	observer  *observability.StandardObserver
}

// NewDocument wraps OCR page data. Pages must be in reading order.
func NewDocument(pages []PageData, rebuilder Rebuilder, merger Merger, opts Options) *Document {
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	doc := &Document{rebuilder: rebuilder, merger: merger, opts: opts}
	for _, p := range pages {
		doc.pages = append(doc.pages, newPage(p))
	}
	return doc
}

// SetObserver sets the observability component
func (d *Document) SetObserver(observer *observability.StandardObserver) {
	d.observer = observer
}

// Pages returns the pages in order
func (d *Document) Pages() []redactors.Page {
	out := make([]redactors.Page, len(d.pages))
	for i, p := range d.pages {
		out[i] = p
	}
	return out
}

// Save writes the document to outputPath. Clean pages reuse their
// original fragment; redacted pages are rebuilt from the painted raster.
func (d *Document) Save(ctx context.Context, outputPath string) error {
	finish := observability.Timing(d.observer, "scan_document", "save", outputPath)

	fragments := make([]string, len(d.pages))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(d.opts.Workers)

	rebuilt := 0
	for i, p := range d.pages {
		i, p := i, p
		if !p.dirty {
			fragments[i] = p.data.FragmentPath
			continue
		}
		rebuilt++
		g.Go(func() error {
			path, err := d.rebuild(gctx, p)
			if err != nil {
				return redactors.NewRedactionError(redactors.ErrorDocumentProcessing,
					"failed to rebuild redacted page", outputPath, "scan_document", err).WithPage(p.Number())
			}
			fragments[i] = path
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		finish(false, map[string]interface{}{"error": err.Error()})
		return err
	}

	if err := d.merger.Merge(fragments, outputPath); err != nil {
		finish(false, map[string]interface{}{"error": err.Error()})
		return err
	}

	finish(true, map[string]interface{}{"pages": len(d.pages), "pages_rebuilt": rebuilt})
	return nil
}

func (d *Document) rebuild(ctx context.Context, p *Page) (string, error) {
	base := filepath.Join(d.opts.WorkDir, fmt.Sprintf("redacted-%d", p.Number()))
	if err := preprocessors.SavePNG(p.data.Raster, base+".png"); err != nil {
		return "", err
	}
	out, err := d.rebuilder.SearchablePDF(ctx, base+".png", base, d.opts.DPI)
	if err != nil {
		return "", err
	}
	return out.PDFPath, nil
}

// Page implements redactors.Page over one OCR'd raster
type Page struct {
	data    PageData
	lines   []redactors.TextLine
	pending []redactors.Annotation
	dirty   bool
}

func newPage(data PageData) *Page {
	p := &Page{data: data}
	for _, line := range ocr.GroupLines(data.Words) {
		var b redactors.LineBuilder
		for _, w := range line.Words {
			b.AddWord(w.Text, redactors.Rect{
				X0: float64(w.Left),
				Y0: float64(w.Top),
				X1: float64(w.Right()),
				Y1: float64(w.Bottom()),
			})
		}
		if b.Len() > 0 {
			p.lines = append(p.lines, b.Line())
		}
	}
	return p
}

func (p *Page) Number() int { return p.data.Number }

// SearchFor finds exact literal occurrences in the OCR lines. Rectangles
// are in raster pixels.
func (p *Page) SearchFor(term string) []redactors.Rect {
	return redactors.FindInLines(p.lines, term)
}

func (p *Page) AddRedaction(a redactors.Annotation) {
	p.pending = append(p.pending, a)
}

// ApplyRedactions burns pending fills into the raster
func (p *Page) ApplyRedactions(ctx context.Context) error {
	if len(p.pending) == 0 {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if p.data.Raster == nil {
		return fmt.Errorf("page %d has no raster", p.Number())
	}

	redactors.BurnIn(p.data.Raster, p.pending, 1)
	p.pending = nil
	p.dirty = true
	return nil
}

