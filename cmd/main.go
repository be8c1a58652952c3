// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"dob-redact/internal/config"
	"dob-redact/internal/core"
	"dob-redact/internal/redactors"
	"dob-redact/internal/version"

	"dob-redact/internal/formatters"
	_ "dob-redact/internal/formatters/json"
	_ "dob-redact/internal/formatters/text"
	_ "dob-redact/internal/formatters/yaml"

	"github.com/fatih/color"
	"golang.org/x/term"
)

// defaultProportion covers the four digit year of a ten character date
const defaultProportion = 0.4

// loadConfiguration loads the configuration file or returns default config
func loadConfiguration(configFile string, debug bool) *config.Config {
	if err := config.LoadDotEnv(); err != nil && debug {
		fmt.Fprintf(os.Stderr, "[DEBUG] Failed to load .env: %v\n", err)
	}

	configPath := configFile
	if configPath == "" {
		configPath = config.FindConfigFile()
	}
	if configPath == "" {
		if debug {
			fmt.Fprintf(os.Stderr, "[DEBUG] No config file found, using defaults\n")
		}
		return config.LoadConfigOrDefault("")
	}

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config file %s: %v\n", configPath, err)
		fmt.Fprintf(os.Stderr, "Using default configuration\n")
		return config.Default()
	}
	if debug {
		fmt.Fprintf(os.Stderr, "[DEBUG] Loaded configuration from %s\n", configPath)
	}
	return cfg
}

// cliFlags holds the parsed command line
type cliFlags struct {
	configFile string
	format     string
	output     string
	store      string
	scratch    string
	terms      string
	redactOut  string
	debug      bool
	verbose    bool
	noColor    bool
	showMatch  bool
	quiet      bool
	noRedact   bool
	redactOnly bool
	showHelp   bool
	showVer    bool
	workers    int
	dpi        int
	proportion float64
}

// applyFlags overrides cfg with every flag set explicitly on the command
// line. Flags always win over the config file and the environment.
func applyFlags(cfg *config.Config, flags *cliFlags) {
	if isFlagSet("format") {
		cfg.Defaults.Format = flags.format
	}
	if isFlagSet("debug") {
		cfg.Defaults.Debug = flags.debug
	}
	if isFlagSet("verbose") {
		cfg.Defaults.Verbose = flags.verbose
	}
	if isFlagSet("no-color") {
		cfg.Defaults.NoColor = flags.noColor
	}
	if isFlagSet("workers") {
		cfg.Pipeline.Workers = flags.workers
	}
	if isFlagSet("dpi") {
		cfg.OCR.DPI = flags.dpi
	}
	if isFlagSet("store") {
		cfg.Store.Backend = flags.store
	}
	if isFlagSet("scratch") {
		cfg.Store.Path = flags.scratch
	}
	if isFlagSet("no-redact") {
		cfg.Redaction.Enabled = !flags.noRedact
	}
}

func main() {
	flags := &cliFlags{}
	flag.StringVar(&flags.configFile, "config", "", "Path to configuration file (YAML)")
	flag.StringVar(&flags.format, "format", "text", "Output format: text, json, yaml")
	flag.StringVar(&flags.output, "output", "", "Path to report file (if not specified, output to stdout)")
	flag.StringVar(&flags.store, "store", "memory", "Candidate store backend: memory or file")
	flag.StringVar(&flags.scratch, "scratch", "data/uploads/data.json", "Scratch file used by the file store")
	flag.BoolVar(&flags.debug, "debug", false, "Enable debug logging of every pipeline step")
	flag.BoolVar(&flags.verbose, "verbose", false, "Display the dates found in each document")
	flag.BoolVar(&flags.noColor, "no-color", false, "Disable colored output")
	flag.BoolVar(&flags.showMatch, "show-match", false, "Display detected dates unmasked")
	flag.BoolVar(&flags.quiet, "quiet", false, "Suppress progress output")
	flag.BoolVar(&flags.noRedact, "no-redact", false, "Only produce the searchable PDF")
	flag.IntVar(&flags.workers, "workers", 0, "Pages processed concurrently (default: CPU count, at most 8)")
	flag.IntVar(&flags.dpi, "dpi", 200, "Render resolution for PDF pages")
	flag.BoolVar(&flags.showHelp, "help", false, "Show help information")
	flag.BoolVar(&flags.showVer, "version", false, "Show version information")

	// Standalone redaction of an existing PDF
	flag.BoolVar(&flags.redactOnly, "redact", false, "Redact the given terms in an existing PDF instead of running OCR")
	flag.StringVar(&flags.terms, "terms", "", "Comma-separated literal terms to redact (with -redact)")
	flag.Float64Var(&flags.proportion, "proportion", defaultProportion, "Right-hand share of each match to black out (with -redact)")
	flag.StringVar(&flags.redactOut, "o", "", "Output PDF path (with -redact)")

	flag.Usage = usage
	flag.Parse()

	if flags.showHelp {
		usage()
		os.Exit(0)
	}
	if flags.showVer {
		fmt.Println(version.Info())
		os.Exit(0)
	}

	args := flag.Args()
	if len(args) == 0 {
		fmt.Fprintln(os.Stderr, "Error: no input file or directory given")
		usage()
		os.Exit(2)
	}

	cfg := loadConfiguration(flags.configFile, flags.debug)
	applyFlags(cfg, flags)
	if err := config.ValidateConfig(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	isInteractive := isTerminal(os.Stdout)
	if cfg.Defaults.NoColor || !isInteractive {
		color.NoColor = true
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	observer := core.NewObserver(cfg.Defaults.Debug, os.Stderr)
	pipeline, err := core.BuildPipeline(cfg, observer)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if flags.redactOnly {
		os.Exit(runRedact(ctx, pipeline, flags, args))
	}

	formatter, exists := formatters.Get(cfg.Defaults.Format)
	if !exists {
		fmt.Fprintf(os.Stderr, "Error: unsupported output format '%s'. Use one of: %s\n",
			cfg.Defaults.Format, strings.Join(formatters.List(), ", "))
		os.Exit(1)
	}

	var inputs []string
	for _, arg := range args {
		files, err := core.CollectInputs(arg)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		inputs = append(inputs, files...)
	}
	if len(inputs) == 0 {
		fmt.Fprintln(os.Stderr, "No PDF files found to process")
		os.Exit(2)
	}

	showProgress := !flags.quiet && !cfg.Defaults.Debug && isTerminal(os.Stderr)

	var results []*core.RunResult
	var failures []formatters.Failure
	for i, input := range inputs {
		if showProgress {
			fmt.Fprintf(os.Stderr, "[%d/%d] %s\n", i+1, len(inputs), filepath.Base(input))
			pipeline.SetProgress(progressBar(time.Now()))
		}

		result, err := pipeline.ExecuteOCR(ctx, input)
		if err != nil {
			failures = append(failures, formatters.NewFailure(input, err))
			if ctx.Err() != nil {
				break
			}
			continue
		}
		results = append(results, result)
	}

	report, err := formatter.Format(results, failures, formatters.FormatterOptions{
		Verbose:   cfg.Defaults.Verbose,
		NoColor:   color.NoColor,
		ShowMatch: flags.showMatch,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error formatting results: %v\n", err)
		os.Exit(1)
	}

	if err := writeReport(flags.output, report); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing report: %v\n", err)
		os.Exit(1)
	}

	if len(failures) > 0 {
		os.Exit(1)
	}
	os.Exit(0)
}

// runRedact handles -redact mode and returns the process exit code
func runRedact(ctx context.Context, pipeline *core.Pipeline, flags *cliFlags, args []string) int {
	if len(args) != 1 {
		fmt.Fprintln(os.Stderr, "Error: -redact takes exactly one input PDF")
		return 2
	}
	terms := splitTerms(flags.terms)
	if len(terms) == 0 {
		fmt.Fprintln(os.Stderr, "Error: -redact requires -terms")
		return 2
	}

	input := args[0]
	output := flags.redactOut
	if output == "" {
		ext := filepath.Ext(input)
		output = strings.TrimSuffix(input, ext) + "_redacted" + ext
	}

	result, err := pipeline.RedactFile(ctx, input, output, terms, flags.proportion)
	if err != nil {
		if redactors.IsErrorType(err, redactors.ErrorValidation) {
			fmt.Fprintf(os.Stderr, "Invalid input: %v\n", err)
			return 2
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	msg := fmt.Sprintf("Redacted %d region(s) on %d page(s) -> %s", len(result.RedactionMap), result.PagesRedacted, result.RedactedFilePath)
	if len(result.RedactionMap) == 0 {
		fmt.Println(color.YellowString("No occurrences found, copied unchanged -> %s", result.RedactedFilePath))
		return 0
	}
	fmt.Println(color.GreenString(msg))
	return 0
}

func splitTerms(raw string) []string {
	var terms []string
	for _, term := range strings.Split(raw, ",") {
		if term = strings.TrimSpace(term); term != "" {
			terms = append(terms, term)
		}
	}
	return terms
}

// progressBar returns a page progress callback that draws on stderr
func progressBar(start time.Time) func(completed, total int) {
	return func(completed, total int) {
		const barWidth = 30
		filled := barWidth * completed / total
		bar := strings.Repeat("█", filled) + strings.Repeat("░", barWidth-filled)

		var etaStr string
		if completed > 0 {
			avg := time.Since(start) / time.Duration(completed)
			etaStr = fmt.Sprintf(" ETA: %s", (time.Duration(total-completed) * avg).Round(time.Second))
		}

		fmt.Fprintf(os.Stderr, "\r[%s] %d/%d pages%s", bar, completed, total, etaStr)
		if completed == total {
			fmt.Fprintf(os.Stderr, "\n")
		}
	}
}

// writeReport prints the report or writes it to path with owner-only
// permissions, since it can name files containing personal data
func writeReport(path, report string) error {
	if path == "" {
		fmt.Println(report)
		return nil
	}
	abs, err := filepath.Abs(filepath.Clean(path))
	if err != nil {
		return fmt.Errorf("invalid output file path %s: %w", path, err)
	}
	if err := os.MkdirAll(filepath.Dir(abs), 0700); err != nil {
		return fmt.Errorf("error creating output directory: %w", err)
	}
	return os.WriteFile(abs, []byte(report), 0600)
}

func usage() {
	out := flag.CommandLine.Output()
	fmt.Fprintf(out, "%s\n\n", version.Info())
	fmt.Fprintf(out, "Finds dates of birth in scanned PDFs and writes a searchable copy with\n")
	fmt.Fprintf(out, "the year of each date blacked out.\n\n")
	fmt.Fprintf(out, "Usage:\n")
	fmt.Fprintf(out, "  dob-redact [flags] <file-or-dir>...\n")
	fmt.Fprintf(out, "  dob-redact -redact -terms \"01/15/1990,...\" [-proportion 0.4] [-o out.pdf] <in.pdf>\n\n")
	fmt.Fprintf(out, "Flags:\n")
	flag.PrintDefaults()
}

// isFlagSet checks if a flag was explicitly set on the command line
func isFlagSet(name string) bool {
	found := false
	flag.Visit(func(f *flag.Flag) {
		if f.Name == name {
			found = true
		}
	})
	return found
}

func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}
