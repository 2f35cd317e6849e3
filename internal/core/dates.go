package core

import (
	"math"
	"strconv"
	"strings"
	"time"
)

// dateLayouts lists the textual formats accepted for order and delivery dates,
// most common first.
var dateLayouts = []string{
	"2006-01-02",
	"2006/01/02",
	"2006/1/2",
	"2006-1-2",
	"2006.01.02",
	"2006.1.2",
	"2006-01-02 15:04:05",
	"2006/01/02 15:04:05",
	"2006/1/2 15:04:05",
	"2006-01-02 15:04",
	"2006/01/02 15:04",
	"2006/1/2 15:04",
	time.RFC3339,
	"2006年1月2日",
	"2006年01月02日",
}

// spreadsheetEpoch is day zero of the serial date system used by Sheets and Excel.
var spreadsheetEpoch = time.Date(1899, time.December, 30, 0, 0, 0, 0, time.UTC)

// ParseDate coerces a raw cell value into a Date. Anything it cannot
// interpret becomes the zero (absent) Date rather than an error.
func ParseDate(raw any) Date {
	switch v := raw.(type) {
	case nil:
		return Date{}
	case Date:
		return v
	case time.Time:
		if v.IsZero() {
			return Date{}
		}
		return NewDate(v.Year(), int(v.Month()), v.Day())
	case float64:
		return fromSerial(v)
	case int:
		return fromSerial(float64(v))
	case int64:
		return fromSerial(float64(v))
	case string:
		return parseDateString(v)
	default:
		return Date{}
	}
}

func parseDateString(s string) Date {
	s = strings.TrimSpace(s)
	if s == "" {
		return Date{}
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return NewDate(t.Year(), int(t.Month()), t.Day())
		}
	}
	// Unformatted cells arrive as serial day numbers.
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return fromSerial(f)
	}
	return Date{}
}

// fromSerial converts a spreadsheet serial day number. Values outside
// 1900-01-01..9999-12-31 are rejected.
func fromSerial(f float64) Date {
	if math.IsNaN(f) || math.IsInf(f, 0) || f < 2 || f > 2958465 {
		return Date{}
	}
	t := spreadsheetEpoch.AddDate(0, 0, int(math.Floor(f)))
	return NewDate(t.Year(), int(t.Month()), t.Day())
}
