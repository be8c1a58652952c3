// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package yaml

import (
	"testing"

	"dob-redact/internal/core"
	"dob-redact/internal/formatters"
	"dob-redact/internal/formatters/shared"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestFormat(t *testing.T) {
	results := []*core.RunResult{{InputPath: "b.pdf", OCRPath: "b_OCR.pdf", OutputPath: "b_OCR.pdf", Pages: 4}}
	failures := []formatters.Failure{{Input: "c.pdf", Stage: "ocr", Error: "boom"}}

	out, err := formatters.Export("yaml", results, failures, formatters.FormatterOptions{})
	require.NoError(t, err)

	var response shared.JSONResponse
	require.NoError(t, yaml.Unmarshal([]byte(out), &response))
	require.Len(t, response.Documents, 1)
	assert.Equal(t, 4, response.Documents[0].Pages)
	assert.False(t, response.Documents[0].Redacted)
	require.Len(t, response.Failures, 1)
	assert.Equal(t, "ocr", response.Failures[0].Stage)
	assert.Equal(t, 1, response.Summary.Failed)
}
