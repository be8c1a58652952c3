// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package pdf

import (
	"fmt"
	"math"
	"unicode/utf8"

	ledpdf "github.com/ledongthuc/pdf"

	"dob-redact/internal/redactors"
)

const (
	// ascentRatio and descentRatio approximate the glyph box around the
	// baseline as a share of the font size.
	ascentRatio  = 0.8
	descentRatio = 0.2

	// spaceGapRatio is the horizontal gap, relative to the font size, that
	// is read as a word break.
	spaceGapRatio = 0.25

	// fallbackWidthRatio is used for glyphs reported with zero width when
	// no following glyph gives a better estimate.
	fallbackWidthRatio = 0.5
)

// pageGeometry is the MediaBox of a page in PDF user space
type pageGeometry struct {
	X0, Y0, X1, Y1 float64
}

func (g pageGeometry) width() float64  { return g.X1 - g.X0 }
func (g pageGeometry) height() float64 { return g.Y1 - g.Y0 }

// defaultGeometry is US Letter, used when a page has no MediaBox
var defaultGeometry = pageGeometry{X1: 612, Y1: 792}

// maxTreeDepth bounds the walk up the page tree against Parent cycles
const maxTreeDepth = 64

// inheritedKey looks key up on the page and then on its ancestors, the way
// PDF resolves inheritable page attributes.
func inheritedKey(p ledpdf.Page, key string) ledpdf.Value {
	v := p.V
	for i := 0; i < maxTreeDepth && !v.IsNull(); i++ {
		if r := v.Key(key); !r.IsNull() {
			return r
		}
		v = v.Key("Parent")
	}
	return ledpdf.Value{}
}

func readGeometry(p ledpdf.Page) pageGeometry {
	box := inheritedKey(p, "MediaBox")
	if box.IsNull() || box.Len() < 4 {
		return defaultGeometry
	}
	g := pageGeometry{
		X0: box.Index(0).Float64(),
		Y0: box.Index(1).Float64(),
		X1: box.Index(2).Float64(),
		Y1: box.Index(3).Float64(),
	}
	if g.width() <= 0 || g.height() <= 0 {
		return defaultGeometry
	}
	return g
}

// readPageText extracts the glyph runs of one page. The parser panics on
// some malformed content streams, which is reported as an error.
func readPageText(p ledpdf.Page) (texts []ledpdf.Text, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("failed to parse page content: %v", r)
		}
	}()
	return p.Content().Text, nil
}

// buildLines groups glyph runs into text lines in top-left page
// coordinates. Runs are taken in content stream order; a new line starts
// when the baseline moves or the pen jumps backwards.
func buildLines(texts []ledpdf.Text, geom pageGeometry) []redactors.TextLine {
	var lines []redactors.TextLine
	var b redactors.LineBuilder
	var lastY, lastX1, lastSize float64

	flush := func() {
		if b.Len() > 0 {
			lines = append(lines, b.Line())
		}
		b = redactors.LineBuilder{}
	}

	for i, t := range texts {
		if t.S == "" {
			continue
		}
		size := t.FontSize
		if size <= 0 {
			size = 10
		}

		width := t.W
		if width <= 0 {
			width = estimateWidth(texts, i, size)
		}

		if b.Len() > 0 {
			tol := math.Max(lastSize, size) * 0.5
			switch {
			case math.Abs(t.Y-lastY) > tol, t.X < lastX1-tol:
				flush()
			case t.X-lastX1 > size*spaceGapRatio:
				b.AddRune(' ', redactors.Rect{
					X0: lastX1 - geom.X0,
					Y0: geom.Y1 - t.Y - size*ascentRatio,
					X1: t.X - geom.X0,
					Y1: geom.Y1 - t.Y + size*descentRatio,
				})
			}
		}

		n := utf8.RuneCountInString(t.S)
		step := width / float64(n)
		k := 0
		for _, r := range t.S {
			x0 := t.X + step*float64(k)
			b.AddRune(r, redactors.Rect{
				X0: x0 - geom.X0,
				Y0: geom.Y1 - t.Y - size*ascentRatio,
				X1: x0 + step - geom.X0,
				Y1: geom.Y1 - t.Y + size*descentRatio,
			})
			k++
		}

		lastY = t.Y
		lastX1 = t.X + width
		lastSize = size
	}
	flush()
	return lines
}

// estimateWidth uses the advance to the next glyph on the same baseline,
// or half the font size.
func estimateWidth(texts []ledpdf.Text, i int, size float64) float64 {
	t := texts[i]
	if i+1 < len(texts) {
		next := texts[i+1]
		if math.Abs(next.Y-t.Y) <= size*0.5 && next.X > t.X && next.X-t.X < size*2 {
			return next.X - t.X
		}
	}
	return size * fallbackWidthRatio * float64(utf8.RuneCountInString(t.S))
}
