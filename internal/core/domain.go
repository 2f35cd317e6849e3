package core

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type (
	// Date is an optional calendar date. The zero value means absent.
	Date struct {
		time.Time
	}

	// Record is one spreadsheet row keyed by exact, case-sensitive column name.
	// Values are strings, numbers or nil as delivered by the source.
	Record map[string]any

	// Table is a fetched sheet: the header row in sheet order and its rows.
	Table struct {
		Columns []string
		Records []Record
	}

	// Metric names an aggregated figure and the column it is summed from.
	Metric struct {
		Name   string
		Column string
	}

	// MonthlyTotal is one month bucket of a fiscal period.
	MonthlyTotal struct {
		Month  time.Time
		Totals map[string]decimal.Decimal
	}

	// AggregateRow is the long-format (month, metric, value) shape used by charts.
	AggregateRow struct {
		Month  time.Time       `json:"month"`
		Metric string          `json:"metric"`
		Value  decimal.Decimal `json:"value"`
	}
)

// Metric names used by the dashboard series.
const (
	MetricRevenue     = "revenue"
	MetricGrossProfit = "gross_profit"
)

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// IsEmpty reports whether the date is absent.
func (d Date) IsEmpty() bool {
	return d.IsZero()
}

// MonthStart truncates the date to the first day of its month.
func (d Date) MonthStart() time.Time {
	return time.Date(d.Year(), d.Month(), 1, 0, 0, 0, 0, time.UTC)
}

// String returns the value of column as trimmed text. Absent values are "".
func (r Record) String(column string) string {
	v, ok := r[column]
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return strings.TrimSpace(s)
	}
	return strings.TrimSpace(fmt.Sprint(v))
}

// Date parses the value of column. Unparseable or missing values are absent.
func (r Record) Date(column string) Date {
	return ParseDate(r[column])
}

// HasColumn reports whether the header contains name.
func (t Table) HasColumn(name string) bool {
	for _, c := range t.Columns {
		if c == name {
			return true
		}
	}
	return false
}

// Len returns the number of records.
func (t Table) Len() int {
	return len(t.Records)
}
