// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package version

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInfo(t *testing.T) {
	info := Info()
	assert.True(t, strings.HasPrefix(info, "dob-redact "))
	assert.Contains(t, info, Version)
	assert.Contains(t, info, Platform)
}

func TestFull(t *testing.T) {
	full := Full()
	assert.Equal(t, Short(), full["version"])
	assert.Len(t, full, 5)
}
