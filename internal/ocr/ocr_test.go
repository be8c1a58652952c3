// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package ocr

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleTSV = "level\tpage_num\tblock_num\tpar_num\tline_num\tword_num\tleft\ttop\twidth\theight\tconf\ttext\n" +
	"1\t1\t0\t0\t0\t0\t0\t0\t1700\t2200\t-1\t\n" +
	"4\t1\t1\t1\t1\t0\t100\t200\t400\t40\t-1\t\n" +
	"5\t1\t1\t1\t1\t1\t100\t200\t80\t40\t95.1\tDOB:\n" +
	"5\t1\t1\t1\t1\t2\t200\t200\t300\t40\t91.7\t01/15/1990\n" +
	"5\t1\t1\t1\t2\t1\t100\t260\t120\t40\t90\tName\n" +
	"5\t1\t2\t1\t1\t1\t100\t400\t120\t40\t90\t \n"

type fakeRunner struct {
	calls  [][]string
	stdout string
	err    error
	onRun  func(args []string)
}

func (f *fakeRunner) Run(ctx context.Context, name string, args ...string) ([]byte, []byte, error) {
	f.calls = append(f.calls, append([]string{name}, args...))
	if f.onRun != nil {
		f.onRun(args)
	}
	return []byte(f.stdout), nil, f.err
}

func TestParseTSV(t *testing.T) {
	words, err := ParseTSV([]byte(sampleTSV))
	require.NoError(t, err)
	require.Len(t, words, 3)

	assert.Equal(t, "DOB:", words[0].Text)
	assert.Equal(t, Word{Text: "01/15/1990", Block: 1, Par: 1, Line: 1, Left: 200, Top: 200, Width: 300, Height: 40, Conf: 91.7}, words[1])
	assert.Equal(t, 500, words[1].Right())
	assert.Equal(t, 240, words[1].Bottom())
}

func TestParseTSVRejectsShortRows(t *testing.T) {
	_, err := ParseTSV([]byte("5\t1\t1\n"))
	assert.Error(t, err)
}

func TestGroupLines(t *testing.T) {
	words, err := ParseTSV([]byte(sampleTSV))
	require.NoError(t, err)

	lines := GroupLines(words)
	require.Len(t, lines, 2)
	assert.Equal(t, "DOB: 01/15/1990", lines[0].Text())
	assert.Equal(t, "Name", lines[1].Text())
}

func TestParseRotation(t *testing.T) {
	osd := "Page number: 0\nOrientation in degrees: 270\nRotate: 90\nOrientation confidence: 5.20\n"
	angle, err := ParseRotation(osd)
	require.NoError(t, err)
	assert.Equal(t, 90, angle)

	_, err = ParseRotation("Too few characters. Skipping this page")
	assert.Error(t, err)
}

func TestDetectRotationArgs(t *testing.T) {
	runner := &fakeRunner{stdout: "Rotate: 180\n"}
	e := NewEngine(runner, Config{TessdataDir: "/share/tessdata"})

	angle, err := e.DetectRotation(context.Background(), "p1.png")
	require.NoError(t, err)
	assert.Equal(t, 180, angle)
	assert.Equal(t, "tesseract p1.png stdout --psm 0 -l eng --tessdata-dir /share/tessdata", strings.Join(runner.calls[0], " "))
}

func TestDetectRotationFailureIsFatal(t *testing.T) {
	e := NewEngine(&fakeRunner{err: errors.New("exit status 1")}, Config{})
	_, err := e.DetectRotation(context.Background(), "p1.png")
	assert.Error(t, err)
}

func TestText(t *testing.T) {
	runner := &fakeRunner{stdout: "DOB: 01/15/1990\n"}
	e := NewEngine(runner, Config{Language: "eng+deu"})

	text, err := e.Text(context.Background(), "p1.png")
	require.NoError(t, err)
	assert.Equal(t, "DOB: 01/15/1990\n", text)
	assert.Equal(t, "tesseract p1.png stdout -l eng+deu", strings.Join(runner.calls[0], " "))
}

func TestSearchablePDF(t *testing.T) {
	base := t.TempDir() + "/page-1"
	runner := &fakeRunner{onRun: func(args []string) {
		_ = os.WriteFile(args[1]+".tsv", []byte(sampleTSV), 0600)
	}}
	e := NewEngine(runner, Config{})

	out, err := e.SearchablePDF(context.Background(), "p1.png", base, 400)
	require.NoError(t, err)
	assert.Equal(t, base+".pdf", out.PDFPath)
	assert.Len(t, out.Words, 3)
	assert.Equal(t,
		"tesseract p1.png "+base+" --psm 4 -c preserve_interword_spaces=1 --dpi 400 -l eng pdf tsv",
		strings.Join(runner.calls[0], " "))
}

func TestSearchablePDFMissingTSV(t *testing.T) {
	e := NewEngine(&fakeRunner{}, Config{})
	_, err := e.SearchablePDF(context.Background(), "p1.png", t.TempDir()+"/none", 0)
	assert.Error(t, err)
}
