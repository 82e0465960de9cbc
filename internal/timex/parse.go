// Package timex normalizes the heterogeneous timestamp strings that the web
// layer writes into the trust store. Different client runtimes emit ISO-8601
// with a trailing "Z", an explicit offset, fractional seconds of varying
// width, or no zone designator at all; Parse accepts all of them and returns
// a single comparable UTC instant.
package timex

import (
	"fmt"
	"strings"
	"time"

	"github.com/mkarpenko/keywarden/internal/common"
)

// layouts tried in order. Layouts without a zone part parse as UTC, which is
// the convention for zone-less rows in the store.
var layouts = []string{
	"2006-01-02T15:04:05.999999999-07:00",
	"2006-01-02T15:04:05-07:00",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05-07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05",
}

// Parse converts a raw stored timestamp into a UTC instant.
//
// A bare "Z" designator is normalized to an explicit "+00:00" offset before
// parsing. If the fractional-second part cannot be parsed (for example the
// web layer wrote more digits than fit), the fraction is truncated and the
// string is retried at whole-second precision. On failure the returned error
// wraps common.ErrBadTimestamp so the caller can skip the record instead of
// aborting the batch.
func Parse(raw string) (time.Time, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return time.Time{}, fmt.Errorf("%w: empty string", common.ErrBadTimestamp)
	}

	if strings.HasSuffix(s, "Z") || strings.HasSuffix(s, "z") {
		s = s[:len(s)-1] + "+00:00"
	}

	if t, ok := tryLayouts(s); ok {
		return t, nil
	}

	// Fractional seconds failed to parse: truncate to whole seconds and retry.
	if stripped, changed := stripFraction(s); changed {
		if t, ok := tryLayouts(stripped); ok {
			return t, nil
		}
	}

	return time.Time{}, fmt.Errorf("%w: %q", common.ErrBadTimestamp, raw)
}

// Format renders an instant the way the engine writes timestamps back to the
// store: RFC 3339, UTC, whole seconds.
func Format(t time.Time) string {
	return t.UTC().Truncate(time.Second).Format(time.RFC3339)
}

func tryLayouts(s string) (time.Time, bool) {
	for _, layout := range layouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

// stripFraction removes everything between the first '.' and the zone offset
// (or end of string). The '.' always comes after the date part, so a '-' seen
// past it can only start an offset.
func stripFraction(s string) (string, bool) {
	i := strings.IndexByte(s, '.')
	if i < 0 {
		return s, false
	}
	j := i + 1
	for j < len(s) && s[j] != '+' && s[j] != '-' {
		j++
	}
	return s[:i] + s[j:], true
}
