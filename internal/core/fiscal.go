package core

import (
	"fmt"
	"regexp"
	"strconv"
	"time"
)

// OutOfRangePeriod labels dates that fall on or before the fiscal epoch.
const OutOfRangePeriod = "out of range"

// FiscalStartMonth is the first calendar month of every fiscal period.
const FiscalStartMonth = time.April

// MonthsPerPeriod is the number of month buckets in a fiscal period.
const MonthsPerPeriod = 12

var periodLabelRe = regexp.MustCompile(`^Period ([1-9][0-9]*)$`)

// FiscalCalendar derives fiscal period labels relative to BaseYear, the year
// preceding the first tracked period. Period 1 starts on April 1 of BaseYear+1.
type FiscalCalendar struct {
	BaseYear int
}

// NewFiscalCalendar returns a calendar anchored at baseYear.
func NewFiscalCalendar(baseYear int) FiscalCalendar {
	return FiscalCalendar{BaseYear: baseYear}
}

// FiscalYear returns the calendar year in which the fiscal year containing d starts.
func (c FiscalCalendar) FiscalYear(d Date) int {
	if d.Month() >= FiscalStartMonth {
		return d.Year()
	}
	return d.Year() - 1
}

// ResolvePeriod returns the period label for d. The second result is false
// when d is absent, in which case the record takes no part in period grouping.
func (c FiscalCalendar) ResolvePeriod(d Date) (string, bool) {
	if d.IsEmpty() {
		return "", false
	}
	n := c.FiscalYear(d) - c.BaseYear
	if n <= 0 {
		return OutOfRangePeriod, true
	}
	return PeriodLabel(n), true
}

// ExpandPeriodToMonths returns the 12 month starts of period, April through
// March, in ascending order. The second result is false for labels not in the
// "Period N" format, including OutOfRangePeriod and "".
func (c FiscalCalendar) ExpandPeriodToMonths(period string) ([]time.Time, bool) {
	n, ok := ParsePeriodNumber(period)
	if !ok {
		return nil, false
	}
	start := time.Date(c.BaseYear+n, FiscalStartMonth, 1, 0, 0, 0, 0, time.UTC)
	months := make([]time.Time, MonthsPerPeriod)
	for i := range months {
		months[i] = start.AddDate(0, i, 0)
	}
	return months, true
}

// PeriodLabel formats period number n.
func PeriodLabel(n int) string {
	return fmt.Sprintf("Period %d", n)
}

// ParsePeriodNumber extracts N from a "Period N" label.
func ParsePeriodNumber(label string) (int, bool) {
	m := periodLabelRe.FindStringSubmatch(label)
	if m == nil {
		return 0, false
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, false
	}
	return n, true
}
