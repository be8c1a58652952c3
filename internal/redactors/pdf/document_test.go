// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package pdf

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"sync"
	"testing"

	ledpdf "github.com/ledongthuc/pdf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dob-redact/internal/ocr"
	"dob-redact/internal/preprocessors"
	"dob-redact/internal/redactors"
)

// glyphs lays out s one rune per Text at the given baseline, 6pt apart
func glyphs(s string, x, y float64) []ledpdf.Text {
	var out []ledpdf.Text
	for _, r := range s {
		if r != ' ' {
			out = append(out, ledpdf.Text{Font: "Helvetica", FontSize: 12, X: x, Y: y, W: 6, S: string(r)})
		}
		x += 6
	}
	return out
}

type fakeRenderer struct {
	dpi   int
	calls int
}

func (f *fakeRenderer) DPI() int { return f.dpi }

func (f *fakeRenderer) RenderPage(ctx context.Context, pdfPath string, page int, outPath string) error {
	f.calls++
	scale := float64(f.dpi) / 72
	img := image.NewGray(image.Rect(0, 0, int(612*scale), int(792*scale)))
	for i := range img.Pix {
		img.Pix[i] = 255
	}
	return preprocessors.SavePNG(img, outPath)
}

type fakeRebuilder struct {
	mu     sync.Mutex
	images []string
}

func (f *fakeRebuilder) SearchablePDF(ctx context.Context, imagePath, outBase string, dpi int) (*ocr.Output, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.images = append(f.images, imagePath)
	return &ocr.Output{PDFPath: outBase + ".pdf"}, nil
}

type fakeTool struct {
	mu        sync.Mutex
	extracted []int
	merged    []string
	validErr  error
	pages     int
	countErr  error
}

func (f *fakeTool) Merge(fragments []string, outputPath string) error {
	f.merged = fragments
	return nil
}

func (f *fakeTool) ExtractPage(inputPath string, page int, outputPath string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.extracted = append(f.extracted, page)
	return nil
}

func (f *fakeTool) Validate(inputPath string) error { return f.validErr }

func (f *fakeTool) PageCount(inputPath string) (int, error) { return f.pages, f.countErr }

// writeTestPDF writes a PDF with the given objects, numbered from 1, and a
// classic xref table. Object 1 must be the catalog.
func writeTestPDF(t *testing.T, objects ...string) string {
	t.Helper()

	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n")
	offsets := make([]int, len(objects))
	for i, obj := range objects {
		offsets[i] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", i+1, obj)
	}

	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n0000000000 65535 f \n", len(objects)+1)
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objects)+1, xref)

	path := filepath.Join(t.TempDir(), "test.pdf")
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0600))
	return path
}

const testCatalog = "<< /Type /Catalog /Pages 2 0 R >>"

func TestReadGeometryInheritsMediaBox(t *testing.T) {
	path := writeTestPDF(t,
		testCatalog,
		"<< /Type /Pages /Count 2 /Kids [3 0 R 4 0 R] /MediaBox [0 0 300 400] >>",
		"<< /Type /Page /Parent 2 0 R >>",
		"<< /Type /Page /Parent 2 0 R /MediaBox [10 20 110 220] >>",
	)

	f, r, err := ledpdf.Open(path)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, pageGeometry{X0: 0, Y0: 0, X1: 300, Y1: 400}, readGeometry(r.Page(1)))
	assert.Equal(t, pageGeometry{X0: 10, Y0: 20, X1: 110, Y1: 220}, readGeometry(r.Page(2)))
	assert.Equal(t, defaultGeometry, readGeometry(r.Page(3)))
}

func TestOpenReadsGeometry(t *testing.T) {
	path := writeTestPDF(t,
		testCatalog,
		"<< /Type /Pages /Count 1 /Kids [3 0 R] /MediaBox [0 0 300 400] >>",
		"<< /Type /Page /Parent 2 0 R >>",
	)

	doc, err := Open(path, &fakeRenderer{dpi: 72}, &fakeRebuilder{}, &fakeTool{pages: 1}, Options{})
	require.NoError(t, err)
	require.Len(t, doc.pages, 1)
	assert.Equal(t, pageGeometry{X1: 300, Y1: 400}, doc.pages[0].geom)
	assert.Empty(t, doc.pages[0].lines)
}

func TestOpenKeepsPagesWithoutText(t *testing.T) {
	// The page tree claims two pages but only links one
	path := writeTestPDF(t,
		testCatalog,
		"<< /Type /Pages /Count 2 /Kids [3 0 R] >>",
		"<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] >>",
	)
	tool := &fakeTool{pages: 2}

	doc, err := Open(path, &fakeRenderer{dpi: 72}, &fakeRebuilder{}, tool, Options{WorkDir: t.TempDir()})
	require.NoError(t, err)

	pages := doc.Pages()
	require.Len(t, pages, 2)
	assert.Equal(t, 2, pages[1].Number())
	assert.Empty(t, pages[1].SearchFor("1990"))

	require.NoError(t, doc.Save(context.Background(), filepath.Join(t.TempDir(), "out.pdf")))
	assert.ElementsMatch(t, []int{1, 2}, tool.extracted)
	assert.Len(t, tool.merged, 2)
}

func TestOpenPageCountFailure(t *testing.T) {
	path := writeTestPDF(t,
		testCatalog,
		"<< /Type /Pages /Count 1 /Kids [3 0 R] >>",
		"<< /Type /Page /Parent 2 0 R >>",
	)
	tool := &fakeTool{countErr: errors.New("broken page tree")}

	_, err := Open(path, &fakeRenderer{dpi: 72}, &fakeRebuilder{}, tool, Options{})
	require.Error(t, err)
	assert.True(t, redactors.IsErrorType(err, redactors.ErrorDocumentProcessing))
}

func TestBuildLinesGroupsByBaseline(t *testing.T) {
	var texts []ledpdf.Text
	texts = append(texts, glyphs("DOB: 01/15/1990", 72, 700)...)
	texts = append(texts, glyphs("Name", 72, 680)...)

	lines := buildLines(texts, defaultGeometry)
	require.Len(t, lines, 2)
	assert.Equal(t, "DOB: 01/15/1990", lines[0].Text)
	assert.Equal(t, "Name", lines[1].Text)
}

func TestBuildLinesCoordinates(t *testing.T) {
	lines := buildLines(glyphs("DOB: 01/15/1990", 72, 700), defaultGeometry)

	hits := redactors.FindInLines(lines, "01/15/1990")
	require.Len(t, hits, 1)
	assert.InDelta(t, 72+5*6, hits[0].X0, 1e-9)
	assert.InDelta(t, 72+15*6, hits[0].X1, 1e-9)
	// Top-left origin: baseline 700 on a 792pt page
	assert.InDelta(t, 792-700-12*ascentRatio, hits[0].Y0, 1e-9)
	assert.InDelta(t, 792-700+12*descentRatio, hits[0].Y1, 1e-9)
}

func TestBuildLinesZeroWidthGlyphs(t *testing.T) {
	texts := []ledpdf.Text{
		{FontSize: 10, X: 100, Y: 500, S: "1"},
		{FontSize: 10, X: 106, Y: 500, S: "9"},
		{FontSize: 10, X: 112, Y: 500, S: "9"},
	}

	lines := buildLines(texts, defaultGeometry)
	require.Len(t, lines, 1)
	assert.Equal(t, "199", lines[0].Text)
	assert.InDelta(t, 106, lines[0].Boxes[0].X1, 1e-9)
	// Last glyph falls back to half the font size
	assert.InDelta(t, 117, lines[0].Boxes[2].X1, 1e-9)
}

func TestBuildLinesMultiRuneRuns(t *testing.T) {
	texts := []ledpdf.Text{{FontSize: 10, X: 0, Y: 500, W: 40, S: "1990"}}

	lines := buildLines(texts, defaultGeometry)
	require.Len(t, lines, 1)
	require.Len(t, lines[0].Boxes, 4)
	assert.InDelta(t, 30, lines[0].Boxes[3].X0, 1e-9)
}

func newTestDocument(t *testing.T) (*Document, *fakeRenderer, *fakeRebuilder, *fakeTool) {
	renderer := &fakeRenderer{dpi: 144}
	rebuilder := &fakeRebuilder{}
	tool := &fakeTool{}
	doc := newDocument("in.pdf", renderer, rebuilder, tool, Options{WorkDir: t.TempDir(), Workers: 2})
	doc.pages = []*Page{
		doc.newPage(1, defaultGeometry, buildLines(glyphs("DOB: 01/15/1990", 72, 700), defaultGeometry)),
		doc.newPage(2, defaultGeometry, buildLines(glyphs("Nothing here", 72, 700), defaultGeometry)),
	}
	return doc, renderer, rebuilder, tool
}

func TestRedactAndSave(t *testing.T) {
	doc, renderer, rebuilder, tool := newTestDocument(t)

	result, err := redactors.NewPlanner().PlanAndApply(context.Background(), doc, "out.pdf", []string{"01/15/1990"}, 0.4)
	require.NoError(t, err)
	assert.Equal(t, 1, result.PagesRedacted)

	assert.Equal(t, 1, renderer.calls)
	require.Len(t, rebuilder.images, 1)
	assert.Equal(t, []int{2}, tool.extracted)
	require.Len(t, tool.merged, 2)
	assert.Equal(t, filepath.Join(doc.opts.WorkDir, "page-2.pdf"), tool.merged[1])

	// Region starts at 162 - 60*0.4 = 138pt, which is pixel 276 at 144 dpi
	img, err := preprocessors.LoadImage(rebuilder.images[0])
	require.NoError(t, err)
	gray := preprocessors.ToGray(img)
	y := int((792 - 700 - 4) * 2)
	assert.Equal(t, uint8(0), gray.GrayAt(280, y).Y)
	assert.Equal(t, uint8(255), gray.GrayAt(270, y).Y)

	page := doc.Pages()[0].(*Page)
	assert.True(t, page.dirty)
	assert.Empty(t, page.pending)
	assert.Empty(t, page.SearchFor("01/15/1990"))
}

func TestSaveWithoutRedactionsCopiesPages(t *testing.T) {
	doc, renderer, rebuilder, tool := newTestDocument(t)

	_, err := redactors.NewPlanner().PlanAndApply(context.Background(), doc, "out.pdf", []string{"12/12/1912"}, 0.4)
	require.NoError(t, err)

	assert.Zero(t, renderer.calls)
	assert.Empty(t, rebuilder.images)
	assert.ElementsMatch(t, []int{1, 2}, tool.extracted)
}

func TestOpenRejectsInvalid(t *testing.T) {
	tool := &fakeTool{validErr: errors.New("not a pdf")}
	_, err := Open("in.pdf", &fakeRenderer{dpi: 72}, &fakeRebuilder{}, tool, Options{})
	require.Error(t, err)
	assert.True(t, redactors.IsErrorType(err, redactors.ErrorValidation))
}

func TestOpenUnparseable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.pdf")
	require.NoError(t, os.WriteFile(path, []byte("%PDF-1.4 garbage"), 0600))

	_, err := Open(path, &fakeRenderer{dpi: 72}, &fakeRebuilder{}, &fakeTool{}, Options{})
	assert.Error(t, err)
}
