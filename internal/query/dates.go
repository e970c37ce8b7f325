package query

import (
	"fmt"
	"strings"
	"time"
)

// Date layouts accepted in filter values
const (
	DateLayout      = "2006-01-02"
	DateTimeLayout  = "2006-01-02 15:04:05"
	ShortTimeLayout = "2006-01-02 15:04"
	MonthLayout     = "2006-01"
)

// MultiFormat is tried in order; the first layout that parses wins.
var MultiFormat = []string{DateLayout, DateTimeLayout, ShortTimeLayout, MonthLayout}

const (
	rangeMarker          = "~"
	fullWidthRangeMarker = "～"
)

// ParseMultiFormat parses s with the first matching layout of MultiFormat
func ParseMultiFormat(s string, loc *time.Location) (time.Time, bool) {
	if loc == nil {
		loc = time.Local
	}
	for _, layout := range MultiFormat {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// FormatDate renders t with DateLayout
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// FormatDateTime renders t with DateTimeLayout
func FormatDateTime(t time.Time) string {
	return t.Format(DateTimeLayout)
}

// normalizeRange replaces the full-width range marker with "~"
func normalizeRange(s string) string {
	return strings.ReplaceAll(s, fullWidthRangeMarker, rangeMarker)
}

// isDateRange reports whether a trimmed raw value looks like "from ~ to"
func isDateRange(s string) bool {
	return strings.Contains(s, rangeMarker) && strings.ContainsAny(s, " \t")
}

// splitRange splits on "~", trims each bound and drops empty ones
func splitRange(s string) []string {
	var bounds []string
	for _, part := range strings.Split(s, rangeMarker) {
		if part = strings.TrimSpace(part); part != "" {
			bounds = append(bounds, part)
		}
	}
	return bounds
}

// ParseBetweenDates parses a value such as "2014-01-01 ~ 2014-01-30"
func ParseBetweenDates(s string, loc *time.Location) (time.Time, time.Time, error) {
	bounds := splitRange(normalizeRange(strings.TrimSpace(s)))
	if len(bounds) != 2 {
		return time.Time{}, time.Time{}, fmt.Errorf("%q is not a date range", s)
	}

	from, ok := ParseMultiFormat(bounds[0], loc)
	if !ok {
		return time.Time{}, time.Time{}, fmt.Errorf("unrecognised date %q", bounds[0])
	}
	to, ok := ParseMultiFormat(bounds[1], loc)
	if !ok {
		return time.Time{}, time.Time{}, fmt.Errorf("unrecognised date %q", bounds[1])
	}
	return from, to, nil
}
