// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package dob

import "regexp"

// space matches ASCII and Unicode space separators such as NBSP
const space = `[\s\p{Zs}]`

// labelPrefix is the case-sensitive set of field labels a date must follow
const labelPrefix = `\b(?:DOB|Date of Birth|BIRTH DATE|D\.O\.B\.|Birthdate|BrithDate):` + space + `*`

const monthAlternation = `(?:Jan|Feb|Mar|Apr|May|Jun|Jul|Aug|Sep|Oct|Nov|Dec)[a-z]*`

// patternSources are applied in order. Each has exactly one capture group
// holding the date text.
var patternSources = []string{
	// DD/MM/YYYY, MM-DD-YYYY, YYYY.MM.DD
	labelPrefix + `(\d{2}[/.-]\d{2}[/.-]\d{4}|\d{4}[/.-]\d{2}[/.-]\d{2})\b`,

	// Jan 23, 2020 or April 5, 1999
	labelPrefix + `(\b` + monthAlternation + space + `\d{1,2},` + space + `\d{4})\b`,

	// DD-MM-YY
	labelPrefix + `(\d{2}[/.-]\d{2}[/.-]\d{2})\b`,

	// 23-MAR-2020 or March 23, 2020
	labelPrefix + `(\d{1,2}-[A-Z]{3}-\d{4}|\b` + monthAlternation + space + `\d{1,2},` + space + `\d{4})\b`,

	// MM/YYYY
	labelPrefix + `(\d{2}/\d{4})\b`,
}

var (
	// prefixPattern strips a label that survived inside the captured text
	prefixPattern = regexp.MustCompile(`^(DOB|Date of Birth|Birth Date|Birthdate):` + space + `*`)

	// monthYearPattern selects the month/year special case. Anchored at the
	// start only.
	monthYearPattern = regexp.MustCompile(`^\d{2}/\d{4}`)
)

func compilePatterns() []*regexp.Regexp {
	compiled := make([]*regexp.Regexp, len(patternSources))
	for i, src := range patternSources {
		compiled[i] = regexp.MustCompile(src)
	}
	return compiled
}
