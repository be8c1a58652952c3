// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package text

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"dob-redact/internal/core"
	"dob-redact/internal/formatters"
	"dob-redact/internal/formatters/shared"

	"github.com/fatih/color"
)

// Formatter implements text-based output formatting
type Formatter struct {
	colors map[string]*color.Color
}

// NewFormatter creates a new text formatter
func NewFormatter() *Formatter {
	return &Formatter{
		colors: map[string]*color.Color{
			"green":   color.New(color.FgGreen),
			"yellow":  color.New(color.FgYellow),
			"red":     color.New(color.FgRed),
			"cyan":    color.New(color.FgCyan),
			"magenta": color.New(color.FgMagenta),
			"blue":    color.New(color.FgBlue),
			"white":   color.New(color.FgWhite, color.Bold),
		},
	}
}

func (f *Formatter) Name() string {
	return "text"
}

func (f *Formatter) Description() string {
	return "Human-readable text output with colors"
}

func (f *Formatter) FileExtension() string {
	return ".txt"
}

func (f *Formatter) Format(results []*core.RunResult, failures []formatters.Failure, options formatters.FormatterOptions) (string, error) {
	// Disable colors if requested
	if options.NoColor {
		color.NoColor = true
	}

	if len(results) == 0 && len(failures) == 0 {
		return "No documents processed.", nil
	}

	var builder strings.Builder
	f.appendHeaders(&builder, options)

	for _, result := range results {
		if result == nil {
			continue
		}
		f.appendResultLine(&builder, result, options)
		if options.Verbose {
			f.appendCandidates(&builder, result, options)
		}
	}

	for _, failure := range failures {
		f.appendFailureLine(&builder, failure, options)
	}

	builder.WriteString("\n")
	builder.WriteString(f.summary(results, failures, options))
	return builder.String(), nil
}

func (f *Formatter) paint(name string, options formatters.FormatterOptions, format string, args ...interface{}) string {
	if options.NoColor {
		return fmt.Sprintf(format, args...)
	}
	return f.colors[name].Sprintf(format, args...)
}

// appendHeaders adds column headers to the string builder
func (f *Formatter) appendHeaders(builder *strings.Builder, options formatters.FormatterOptions) {
	builder.WriteString(f.paint("white", options, "%-10s %-5s %-5s %-8s %s\n", "STATUS", "PAGES", "DATES", "TIME", "OUTPUT"))
	builder.WriteString(f.paint("white", options, "%s\n", strings.Repeat("-", 60)))
}

// appendResultLine adds a single line summary for one document
func (f *Formatter) appendResultLine(builder *strings.Builder, result *core.RunResult, options formatters.FormatterOptions) {
	var status string
	if result.Redacted {
		status = f.paint("red", options, "[%-8s]", "REDACTED")
	} else {
		status = f.paint("green", options, "[%-8s]", "CLEAN")
	}

	pages := f.paint("blue", options, "%5d", result.Pages)
	dates := f.paint("yellow", options, "%5d", len(result.Candidates))
	elapsed := f.paint("magenta", options, "%-8s", formatDuration(result.Duration))

	output := result.OutputPath
	if !options.Verbose {
		output = filepath.Base(output)
	}
	builder.WriteString(fmt.Sprintf("%s %s %s %s %s\n", status, pages, dates, elapsed, output))
}

// appendCandidates lists each date of birth under its document
func (f *Formatter) appendCandidates(builder *strings.Builder, result *core.RunResult, options formatters.FormatterOptions) {
	builder.WriteString(fmt.Sprintf("  input: %s\n", result.InputPath))
	if result.Redacted {
		builder.WriteString(fmt.Sprintf("  searchable copy: %s\n", result.OCRPath))
		builder.WriteString(fmt.Sprintf("  regions: %d across %d batch(es)\n", result.Regions, result.Batches))
	}
	for _, c := range result.Candidates {
		date := shared.DisplayDate(c.RawText, c.Year, options)
		builder.WriteString(fmt.Sprintf("    %s  age %s  year %d  redact %.0f%%\n",
			f.paint("cyan", options, "%-20s", date),
			f.paint("yellow", options, "%6.2f", c.Age),
			c.Year,
			c.Proportion()*100))
	}
}

func (f *Formatter) appendFailureLine(builder *strings.Builder, failure formatters.Failure, options formatters.FormatterOptions) {
	status := f.paint("red", options, "[%-8s]", "FAILED")
	stage := ""
	if failure.Stage != "" {
		stage = fmt.Sprintf(" (%s)", failure.Stage)
	}
	builder.WriteString(fmt.Sprintf("%s %s%s: %s\n", status, failure.Input, stage, failure.Error))
}

func (f *Formatter) summary(results []*core.RunResult, failures []formatters.Failure, options formatters.FormatterOptions) string {
	redacted, candidates := 0, 0
	for _, result := range results {
		if result == nil {
			continue
		}
		candidates += len(result.Candidates)
		if result.Redacted {
			redacted++
		}
	}

	line := fmt.Sprintf("Processed %d document(s): %d redacted, %d date(s) of birth found",
		len(results), redacted, candidates)
	if len(failures) > 0 {
		line += ", " + f.paint("red", options, "%d failed", len(failures))
	}
	return line + "\n"
}

func formatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	return fmt.Sprintf("%.1fs", d.Seconds())
}

// Register the formatter during package initialization
func init() {
	formatters.Register(NewFormatter())
}
