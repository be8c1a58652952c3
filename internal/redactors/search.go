// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package redactors

import (
	"math"
	"strings"
)

// TextLine is one line of page text with a box for every rune of Text
type TextLine struct {
	Text  string
	Boxes []Rect
}

// LineBuilder accumulates words into a TextLine, inserting a single space
// between consecutive words.
type LineBuilder struct {
	text  strings.Builder
	boxes []Rect
}

// AddWord appends a word whose runes share box evenly across its width
func (b *LineBuilder) AddWord(word string, box Rect) {
	runes := []rune(word)
	if len(runes) == 0 {
		return
	}
	if len(b.boxes) > 0 {
		prev := b.boxes[len(b.boxes)-1]
		b.text.WriteRune(' ')
		b.boxes = append(b.boxes, Rect{
			X0: prev.X1,
			Y0: math.Min(prev.Y0, box.Y0),
			X1: math.Max(prev.X1, box.X0),
			Y1: math.Max(prev.Y1, box.Y1),
		})
	}
	step := box.Width() / float64(len(runes))
	for i, r := range runes {
		b.text.WriteRune(r)
		b.boxes = append(b.boxes, Rect{
			X0: box.X0 + step*float64(i),
			Y0: box.Y0,
			X1: box.X0 + step*float64(i+1),
			Y1: box.Y1,
		})
	}
}

// AddRune appends a single glyph with its own box
func (b *LineBuilder) AddRune(r rune, box Rect) {
	b.text.WriteRune(r)
	b.boxes = append(b.boxes, box)
}

// Len is the number of runes added so far
func (b *LineBuilder) Len() int {
	return len(b.boxes)
}

// Line returns the accumulated line
func (b *LineBuilder) Line() TextLine {
	return TextLine{Text: b.text.String(), Boxes: append([]Rect(nil), b.boxes...)}
}

// FindInLines returns one rectangle per exact, non-overlapping occurrence
// of term across all lines. Matches never span lines.
func FindInLines(lines []TextLine, term string) []Rect {
	needle := []rune(term)
	if len(needle) == 0 {
		return nil
	}

	var hits []Rect
	for _, line := range lines {
		hay := []rune(line.Text)
		if len(hay) != len(line.Boxes) {
			continue
		}
		for i := 0; i+len(needle) <= len(hay); {
			if !runesEqual(hay[i:i+len(needle)], needle) {
				i++
				continue
			}
			hits = append(hits, union(line.Boxes[i:i+len(needle)]))
			i += len(needle)
		}
	}
	return hits
}

func runesEqual(a, b []rune) bool {
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func union(boxes []Rect) Rect {
	u := boxes[0]
	for _, b := range boxes[1:] {
		u.X0 = math.Min(u.X0, b.X0)
		u.Y0 = math.Min(u.Y0, b.Y0)
		u.X1 = math.Max(u.X1, b.X1)
		u.Y1 = math.Max(u.Y1, b.Y1)
	}
	return u
}
