// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package pdf provides a redactable document over an existing PDF file.
// Text positions come from the PDF's own text layer. Redacted pages are
// rasterised, painted and rebuilt through OCR so no text remains under the
// fill; untouched pages are carried over unchanged.
package pdf

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	ledpdf "github.com/ledongthuc/pdf"
	"golang.org/x/sync/errgroup"

	"dob-redact/internal/observability"
	"dob-redact/internal/ocr"
	"dob-redact/internal/preprocessors"
	"dob-redact/internal/redactors"
)

const pointsPerInch = 72.0

// Renderer rasterises a single page
type Renderer interface {
	RenderPage(ctx context.Context, pdfPath string, page int, outPath string) error
	DPI() int
}

// Rebuilder regenerates a searchable single-page PDF from a raster
type Rebuilder interface {
	SearchablePDF(ctx context.Context, imagePath, outBase string, dpi int) (*ocr.Output, error)
}

// PageTool splits and merges PDFs and checks their structure
type PageTool interface {
	Merge(fragments []string, outputPath string) error
	ExtractPage(inputPath string, page int, outputPath string) error
	Validate(inputPath string) error
	PageCount(inputPath string) (int, error)
}

// Options configures a Document
type Options struct {
	// WorkDir receives rendered rasters and page fragments
	WorkDir string

	// Workers bounds concurrent page work during Save
	Workers int
}

// Document implements redactors.Document over a PDF file
type Document struct {
	path      string
	pages     []*Page
	renderer  Renderer
	rebuilder Rebuilder
	tool      PageTool
	opts      Options
	observer  *observability.StandardObserver
}

// Open reads the text layer of every page of path. The page count comes
// from tool; pages the text reader cannot resolve are kept without text so
// they are still carried into the output.
func Open(path string, renderer Renderer, rebuilder Rebuilder, tool PageTool, opts Options) (*Document, error) {
	if err := tool.Validate(path); err != nil {
		return nil, redactors.NewRedactionError(redactors.ErrorValidation, "PDF validation failed", path, "pdf_document", err)
	}

	f, r, err := openReader(path)
	if err != nil {
		return nil, redactors.NewRedactionError(redactors.ErrorDocumentProcessing, "failed to open PDF", path, "pdf_document", err)
	}
	defer f.Close()

	count, err := tool.PageCount(path)
	if err != nil {
		return nil, redactors.NewRedactionError(redactors.ErrorDocumentProcessing, "failed to count PDF pages", path, "pdf_document", err)
	}

	doc := newDocument(path, renderer, rebuilder, tool, opts)
	for n := 1; n <= count; n++ {
		p := r.Page(n)
		if p.V.IsNull() {
			doc.pages = append(doc.pages, doc.newPage(n, defaultGeometry, nil))
			continue
		}
		geom := readGeometry(p)
		texts, err := readPageText(p)
		if err != nil {
			return nil, redactors.NewRedactionError(redactors.ErrorDocumentProcessing,
				"failed to read page text", path, "pdf_document", err).WithPage(n)
		}
		doc.pages = append(doc.pages, doc.newPage(n, geom, buildLines(texts, geom)))
	}
	return doc, nil
}

// openReader guards against parser panics on malformed files
func openReader(path string) (f *os.File, r *ledpdf.Reader, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			if f != nil {
				f.Close()
			}
			f, r, err = nil, nil, fmt.Errorf("failed to parse PDF: %v", rec)
		}
	}()
	return ledpdf.Open(path)
}

func newDocument(path string, renderer Renderer, rebuilder Rebuilder, tool PageTool, opts Options) *Document {
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	return &Document{path: path, renderer: renderer, rebuilder: rebuilder, tool: tool, opts: opts}
}

func (d *Document) newPage(n int, geom pageGeometry, lines []redactors.TextLine) *Page {
	return &Page{doc: d, number: n, geom: geom, lines: lines}
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

// Save writes the document to outputPath
func (d *Document) Save(ctx context.Context, outputPath string) error {
	finish := observability.Timing(d.observer, "pdf_document", "save", outputPath)

	fragments := make([]string, len(d.pages))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(d.opts.Workers)

	for i, p := range d.pages {
		i, p := i, p
		g.Go(func() error {
			base := filepath.Join(d.opts.WorkDir, fmt.Sprintf("page-%d", p.number))
			if !p.dirty {
				if err := d.tool.ExtractPage(d.path, p.number, base+".pdf"); err != nil {
					return err
				}
				fragments[i] = base + ".pdf"
				return nil
			}
			out, err := d.rebuilder.SearchablePDF(gctx, p.rasterPath, base+"-redacted", d.renderer.DPI())
			if err != nil {
				return redactors.NewRedactionError(redactors.ErrorDocumentProcessing,
					"failed to rebuild redacted page", outputPath, "pdf_document", err).WithPage(p.number)
			}
			fragments[i] = out.PDFPath
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		finish(false, map[string]interface{}{"error": err.Error()})
		return err
	}

	if err := d.tool.Merge(fragments, outputPath); err != nil {
		finish(false, map[string]interface{}{"error": err.Error()})
		return err
	}
	finish(true, map[string]interface{}{"pages": len(d.pages)})
	return nil
}

// Page implements redactors.Page over one page of the source PDF. Units
// are PDF points with a top-left origin.
type Page struct {
	doc        *Document
	number     int
	geom       pageGeometry
	lines      []redactors.TextLine
	pending    []redactors.Annotation
	rasterPath string
	dirty      bool
}

func (p *Page) Number() int { return p.number }

func (p *Page) SearchFor(term string) []redactors.Rect {
	return redactors.FindInLines(p.lines, term)
}

func (p *Page) AddRedaction(a redactors.Annotation) {
	p.pending = append(p.pending, a)
}

// ApplyRedactions renders the page once, then paints every pending fill
// into the raster. The text layer of this page is dropped.
func (p *Page) ApplyRedactions(ctx context.Context) error {
	if len(p.pending) == 0 {
		return nil
	}

	if p.rasterPath == "" {
		path := filepath.Join(p.doc.opts.WorkDir, fmt.Sprintf("render-%d.png", p.number))
		if err := p.doc.renderer.RenderPage(ctx, p.doc.path, p.number, path); err != nil {
			return err
		}
		p.rasterPath = path
	}

	img, err := preprocessors.LoadImage(p.rasterPath)
	if err != nil {
		return err
	}
	raster := preprocessors.ToGray(img)

	scale := float64(p.doc.renderer.DPI()) / pointsPerInch
	if raster.Bounds().Dx() > 0 && p.geom.width() > 0 {
		// Use the actual raster size in case the renderer rounded
		scale = float64(raster.Bounds().Dx()) / p.geom.width()
	}
	redactors.BurnIn(raster, p.pending, scale)

	if err := preprocessors.SavePNG(raster, p.rasterPath); err != nil {
		return err
	}

	p.pending = nil
	// The rebuilt page only carries what OCR sees in the painted raster
	p.lines = nil
	p.dirty = true
	return nil
}

