// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package platform

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"

	"dob-redact/internal/observability"
	"dob-redact/internal/resilience"
)

// maxStderr caps how much of a failing command's stderr ends up in errors
const maxStderr = 8 << 10

// Runner lets external commands be stubbed in tests
type Runner interface {
	Run(ctx context.Context, name string, args ...string) (stdout, stderr []byte, err error)
}

// ExecRunner runs commands through os/exec
type ExecRunner struct {
	observer *observability.StandardObserver
	retry    resilience.RetryConfig
}

// NewExecRunner creates a runner that reports each invocation to observer.
// Commands that fail to start for transient reasons are relaunched.
func NewExecRunner(observer *observability.StandardObserver) *ExecRunner {
	r := &ExecRunner{observer: observer, retry: resilience.DefaultRetryConfig()}
	r.retry.OnRetry = func(attempt int, err error) {
		observability.Detail(r.observer, "exec", fmt.Sprintf("relaunching after start failure (attempt %d): %v", attempt, err))
	}
	return r
}

// WithRetry replaces the relaunch policy
func (r *ExecRunner) WithRetry(cfg resilience.RetryConfig) *ExecRunner {
	r.retry = cfg
	return r
}

// Run executes name with args. The process is killed when ctx is done.
func (r *ExecRunner) Run(ctx context.Context, name string, args ...string) ([]byte, []byte, error) {
	finish := observability.Timing(r.observer, "exec", name, strings.Join(args, " "))

	var out, errb bytes.Buffer
	err := resilience.RetryWithBackoff(ctx, r.retry, func(ctx context.Context) error {
		out.Reset()
		errb.Reset()
		// #nosec G204 - tool names come from configuration
		cmd := exec.CommandContext(ctx, ToolName(name), args...)
		cmd.Stdout = &out
		cmd.Stderr = &errb
		if err := cmd.Start(); err != nil {
			return err
		}
		// A process that started is never relaunched
		if err := cmd.Wait(); err != nil {
			return resilience.NewPermanentError(err.Error(), err)
		}
		return nil
	})
	if err != nil {
		finish(false, map[string]interface{}{
			"error":  err.Error(),
			"stderr": truncate(errb.String(), maxStderr),
		})
		return out.Bytes(), errb.Bytes(), &CommandError{
			Name:   name,
			Args:   args,
			Stderr: truncate(errb.String(), maxStderr),
			Cause:  err,
		}
	}

	finish(true, map[string]interface{}{
		"stdout_bytes": out.Len(),
		"stderr_bytes": errb.Len(),
	})
	return out.Bytes(), errb.Bytes(), nil
}

// CommandError describes a failed external command
type CommandError struct {
	Name   string
	Args   []string
	Stderr string
	Cause  error
}

func (e *CommandError) Error() string {
	msg := fmt.Sprintf("%s %s: %v", e.Name, strings.Join(e.Args, " "), e.Cause)
	if s := strings.TrimSpace(e.Stderr); s != "" {
		msg += ": " + s
	}
	return msg
}

func (e *CommandError) Unwrap() error {
	return e.Cause
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "...(truncated)"
}
