// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package ocr

import (
	"bufio"
	"bytes"
	"fmt"
	"strconv"
	"strings"
)

// wordLevel is the TSV level value for individual words
const wordLevel = 5

// Word is one recognised word with its pixel box
type Word struct {
	Text   string
	Block  int
	Par    int
	Line   int
	Left   int
	Top    int
	Width  int
	Height int
	Conf   float64
}

// Right is the exclusive right edge
func (w Word) Right() int { return w.Left + w.Width }

// Bottom is the exclusive bottom edge
func (w Word) Bottom() int { return w.Top + w.Height }

// Line is a run of words tesseract placed on the same text line
type Line struct {
	Words []Word
}

// Text joins the words with single spaces
func (l Line) Text() string {
	parts := make([]string, len(l.Words))
	for i, w := range l.Words {
		parts[i] = w.Text
	}
	return strings.Join(parts, " ")
}

// ParseTSV reads tesseract's tsv output and returns the non-empty words in
// reading order.
func ParseTSV(data []byte) ([]Word, error) {
	var words []Word
	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 64*1024), 1<<20)

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		row := scanner.Text()
		if lineNo == 1 && strings.HasPrefix(row, "level") {
			continue
		}
		if strings.TrimSpace(row) == "" {
			continue
		}

		fields := strings.SplitN(row, "\t", 12)
		if len(fields) < 11 {
			return nil, fmt.Errorf("tsv line %d: expected 12 columns, got %d", lineNo, len(fields))
		}
		level, err := strconv.Atoi(fields[0])
		if err != nil {
			return nil, fmt.Errorf("tsv line %d: bad level: %w", lineNo, err)
		}
		if level != wordLevel || len(fields) < 12 {
			continue
		}
		text := strings.TrimSpace(fields[11])
		if text == "" {
			continue
		}

		ints := make([]int, 9)
		for i := 0; i < 9; i++ {
			ints[i], err = strconv.Atoi(fields[i+1])
			if err != nil {
				return nil, fmt.Errorf("tsv line %d: bad column %d: %w", lineNo, i+2, err)
			}
		}
		conf, _ := strconv.ParseFloat(fields[10], 64)

		words = append(words, Word{
			Text:   text,
			Block:  ints[1],
			Par:    ints[2],
			Line:   ints[3],
			Left:   ints[5],
			Top:    ints[6],
			Width:  ints[7],
			Height: ints[8],
			Conf:   conf,
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read tsv: %w", err)
	}
	return words, nil
}

// GroupLines splits words into lines by block, paragraph and line number
func GroupLines(words []Word) []Line {
	var lines []Line
	for i, w := range words {
		if i == 0 || !sameLine(words[i-1], w) {
			lines = append(lines, Line{})
		}
		last := &lines[len(lines)-1]
		last.Words = append(last.Words, w)
	}
	return lines
}

func sameLine(a, b Word) bool {
	return a.Block == b.Block && a.Par == b.Par && a.Line == b.Line
}
