// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package dob

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/araddon/dateparse"
)

const (
	daysPerYear   = 365.25
	secondsPerDay = 24 * 60 * 60
)

var (
	numericDatePattern  = regexp.MustCompile(`^(\d{1,4})[/.\-](\d{1,2})[/.\-](\d{1,4})$`)
	monthDayYearPattern = regexp.MustCompile(`^([A-Za-z]+)\.?` + space + `+(\d{1,2})(?:st|nd|rd|th)?,?` + space + `+(\d{2}|\d{4})$`)
	dayMonthYearPattern = regexp.MustCompile(`^(\d{1,2})[\-\s\p{Zs}/]([A-Za-z]+)\.?[\-\s\p{Zs}/,]+(\d{2}|\d{4})$`)
)

var monthNames = map[string]time.Month{
	"jan": time.January, "january": time.January,
	"feb": time.February, "february": time.February,
	"mar": time.March, "march": time.March,
	"apr": time.April, "april": time.April,
	"may": time.May,
	"jun": time.June, "june": time.June,
	"jul": time.July, "july": time.July,
	"aug": time.August, "august": time.August,
	"sep": time.September, "sept": time.September, "september": time.September,
	"oct": time.October, "october": time.October,
	"nov": time.November, "november": time.November,
	"dec": time.December, "december": time.December,
}

// genericLayouts backs IsDate for shapes the permissive parser does not cover
var genericLayouts = []string{
	"01/2006",
	"1/2006",
	"01-2006",
	"2006/01",
	"2006-01",
	"01/02/06",
	"2006.01.02",
	"02.01.2006",
	"Jan 2 2006",
	"January 2006",
	"Jan 2006",
	"2 January 2006",
	"2 Jan 2006",
}

// TryParseDate converts a cleaned candidate string into a calendar date.
// Strings starting with MM/YYYY become the first of that month. Everything
// else goes through the permissive parser, which prefers month-first order
// and swaps to day-first when the first field cannot be a month. All-numeric
// dates never reach the permissive parser. Two digit years resolve into the
// century window around now. Year 0 does not exist. Failure is reported as
// absence.
func TryParseDate(s string, now time.Time) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}

	if monthYearPattern.MatchString(s) {
		return parseMonthYear(s)
	}

	if numericDatePattern.MatchString(s) {
		return parseKnownShape(s, now)
	}
	if t, ok := parseKnownShape(s, now); ok {
		return t, true
	}

	t, err := dateparse.ParseIn(s, time.UTC,
		dateparse.PreferMonthFirst(true),
		dateparse.RetryAmbiguousDateWithSwap(true))
	if err != nil || t.Year() < 1 {
		return time.Time{}, false
	}
	return dateOnly(t), true
}

// IsDate reports whether s is interpretable as a date by the generic parser
// without any fuzzy token skipping.
func IsDate(s string) bool {
	s = strings.TrimSpace(s)
	if s == "" {
		return false
	}
	if _, err := dateparse.ParseAny(s, dateparse.RetryAmbiguousDateWithSwap(true)); err == nil {
		return true
	}
	for _, layout := range genericLayouts {
		if _, err := time.Parse(layout, s); err == nil {
			return true
		}
	}
	_, ok := parseKnownShape(s, time.Now())
	return ok
}

// AgeInYears is the whole-day difference between now and date divided by
// 365.25. Both are compared as naive wall-clock values.
func AgeInYears(date, now time.Time) float64 {
	wallNow := time.Date(now.Year(), now.Month(), now.Day(), now.Hour(), now.Minute(), now.Second(), now.Nanosecond(), time.UTC)
	wallDate := time.Date(date.Year(), date.Month(), date.Day(), date.Hour(), date.Minute(), date.Second(), date.Nanosecond(), time.UTC)

	// Whole seconds avoid the ~292 year range of time.Duration
	secs := wallNow.Unix() - wallDate.Unix()
	days := secs / secondsPerDay
	if secs%secondsPerDay < 0 {
		days--
	}
	return float64(days) / daysPerYear
}

// RoundAge rounds to two decimals
func RoundAge(age float64) float64 {
	return math.Round(age*100) / 100
}

func parseMonthYear(s string) (time.Time, bool) {
	parts := strings.Split(s, "/")
	if len(parts) != 2 {
		return time.Time{}, false
	}
	month, err := strconv.Atoi(parts[0])
	if err != nil {
		return time.Time{}, false
	}
	year, err := strconv.Atoi(parts[1])
	if err != nil {
		return time.Time{}, false
	}
	return buildDate(year, month, 1)
}

func parseKnownShape(s string, now time.Time) (time.Time, bool) {
	if m := numericDatePattern.FindStringSubmatch(s); m != nil {
		return parseNumeric(m[1], m[2], m[3], now)
	}
	if m := monthDayYearPattern.FindStringSubmatch(s); m != nil {
		month, ok := lookupMonth(m[1])
		if !ok {
			return time.Time{}, false
		}
		day, _ := strconv.Atoi(m[2])
		return buildDate(resolveYear(m[3], now), int(month), day)
	}
	if m := dayMonthYearPattern.FindStringSubmatch(s); m != nil {
		month, ok := lookupMonth(m[2])
		if !ok {
			return time.Time{}, false
		}
		day, _ := strconv.Atoi(m[1])
		return buildDate(resolveYear(m[3], now), int(month), day)
	}
	return time.Time{}, false
}

func parseNumeric(a, b, c string, now time.Time) (time.Time, bool) {
	first, _ := strconv.Atoi(a)
	second, _ := strconv.Atoi(b)
	third, _ := strconv.Atoi(c)

	// Year first
	if len(a) == 4 {
		if len(c) > 2 {
			return time.Time{}, false
		}
		if second > 12 && third <= 12 {
			return buildDate(first, third, second)
		}
		return buildDate(first, second, third)
	}

	if len(c) == 3 {
		return time.Time{}, false
	}
	year := resolveYear(c, now)
	month, day := first, second
	if first > 12 && second <= 12 {
		month, day = second, first
	}
	return buildDate(year, month, day)
}

func resolveYear(s string, now time.Time) int {
	year, _ := strconv.Atoi(s)
	if len(s) > 2 {
		return year
	}
	century := now.Year() / 100 * 100
	year += century
	if year >= now.Year()+50 {
		year -= 100
	} else if year < now.Year()-50 {
		year += 100
	}
	return year
}

func lookupMonth(name string) (time.Month, bool) {
	m, ok := monthNames[strings.ToLower(name)]
	return m, ok
}

// buildDate rejects field values that time.Date would normalise
func buildDate(year, month, day int) (time.Time, bool) {
	if month < 1 || month > 12 || day < 1 || day > 31 || year < 1 {
		return time.Time{}, false
	}
	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	if t.Day() != day || int(t.Month()) != month {
		return time.Time{}, false
	}
	return t, true
}

func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
