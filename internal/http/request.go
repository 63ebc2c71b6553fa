package http

import (
	"fmt"
	"net/url"
	"strings"

	"spendtrack/internal/core"
)

// parseDateRange extracts optional start_date/end_date bounds from query or
// body values. Either bound may be absent; a present but malformed bound is
// an error for the caller to surface.
func parseDateRange(values url.Values) (core.DateRange, error) {
	var dr core.DateRange
	if v := strings.TrimSpace(values.Get("start_date")); v != "" {
		d, err := core.ParseDate(v)
		if err != nil {
			return core.DateRange{}, fmt.Errorf("start_date: %w", err)
		}
		dr.Start = d
	}
	if v := strings.TrimSpace(values.Get("end_date")); v != "" {
		d, err := core.ParseDate(v)
		if err != nil {
			return core.DateRange{}, fmt.Errorf("end_date: %w", err)
		}
		dr.End = d
	}
	return dr, nil
}

// parseOptionalDate parses a bound from a JSON body field.
func parseOptionalDate(field, v string) (core.Date, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return core.Date{}, nil
	}
	d, err := core.ParseDate(v)
	if err != nil {
		return core.Date{}, fmt.Errorf("%s: %w", field, err)
	}
	return d, nil
}

// sanitizeInput removes control characters and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}
