package http

import (
	"net/url"
	"strconv"
	"strings"
	"time"

	"cashflow/internal/filter"
)

// MonthParams holds parsed year/month values from request parameters.
type MonthParams struct {
	Year  int
	Month int
}

// ParseMonthParams extracts year and month from query parameters, using
// the current date as defaults.
func ParseMonthParams(query url.Values) MonthParams {
	now := time.Now()
	params := MonthParams{
		Year:  now.Year(),
		Month: int(now.Month()),
	}

	if v := strings.TrimSpace(query.Get("year")); v != "" {
		if y, err := strconv.Atoi(v); err == nil {
			params.Year = y
		}
	}
	if v := strings.TrimSpace(query.Get("month")); v != "" {
		if m, err := strconv.Atoi(v); err == nil {
			params.Month = m
		}
	}

	return params
}

// ParseCriteria builds filter criteria from query parameters:
//
//	q           free-text search over category, party and remark
//	from, to    inclusive date bounds, YYYY-MM-DD or epoch millis
//	direction   IN, OUT or All
//	category    repeatable
//	paymentMode repeatable
//
// Absent or unparseable parameters leave the matching predicate off.
func ParseCriteria(query url.Values) filter.Criteria {
	c := filter.Criteria{
		Search:    strings.TrimSpace(query.Get("q")),
		Direction: strings.TrimSpace(query.Get("direction")),
	}

	if v := strings.TrimSpace(query.Get("from")); v != "" {
		c.StartMillis = parseDateBound(v, false)
	}
	if v := strings.TrimSpace(query.Get("to")); v != "" {
		c.EndMillis = parseDateBound(v, true)
	}

	for _, cat := range query["category"] {
		if cat = strings.TrimSpace(cat); cat != "" {
			c.Categories = append(c.Categories, cat)
		}
	}
	for _, mode := range query["paymentMode"] {
		if mode = strings.TrimSpace(mode); mode != "" {
			c.PaymentModes = append(c.PaymentModes, mode)
		}
	}

	return c
}

// parseDateBound accepts YYYY-MM-DD or raw epoch millis. Day-granular
// end bounds extend to the last millisecond of the day so the range
// stays inclusive.
func parseDateBound(v string, endOfDay bool) int64 {
	if t, err := time.Parse("2006-01-02", v); err == nil {
		if endOfDay {
			return t.AddDate(0, 0, 1).UnixMilli() - 1
		}
		return t.UnixMilli()
	}
	if millis, err := strconv.ParseInt(v, 10, 64); err == nil {
		return millis
	}
	return 0
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
