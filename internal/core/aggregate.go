package core

import (
	"time"

	"github.com/shopspring/decimal"
)

// Aggregator groups records into the month buckets of a fiscal period.
type Aggregator struct {
	Calendar   FiscalCalendar
	Normalizer AmountNormalizer
}

// NewAggregator returns an aggregator for the given calendar and normalizer.
func NewAggregator(cal FiscalCalendar, norm AmountNormalizer) Aggregator {
	return Aggregator{Calendar: cal, Normalizer: norm}
}

// ByMonth sums metrics over the records whose dateColumn falls in period,
// grouped by calendar month and joined onto the period's 12-month skeleton.
// Months without records carry zero for every metric. The result is in
// ascending month order regardless of record order. The second result is
// false when period cannot be expanded; callers render a "no data" state.
func (a Aggregator) ByMonth(records []Record, dateColumn string, metrics []Metric, period string) ([]MonthlyTotal, bool) {
	months, ok := a.Calendar.ExpandPeriodToMonths(period)
	if !ok {
		return nil, false
	}

	grouped := make(map[time.Time]map[string]decimal.Decimal)
	for _, rec := range records {
		d := rec.Date(dateColumn)
		label, ok := a.Calendar.ResolvePeriod(d)
		if !ok || label != period {
			continue
		}
		key := d.MonthStart()
		sums, exists := grouped[key]
		if !exists {
			sums = make(map[string]decimal.Decimal, len(metrics))
			grouped[key] = sums
		}
		for _, m := range metrics {
			sums[m.Name] = sums[m.Name].Add(a.Normalizer.Normalize(rec[m.Column]))
		}
	}

	out := make([]MonthlyTotal, len(months))
	for i, month := range months {
		totals := make(map[string]decimal.Decimal, len(metrics))
		for _, m := range metrics {
			totals[m.Name] = decimal.Zero
			if sums, ok := grouped[month]; ok {
				totals[m.Name] = sums[m.Name]
			}
		}
		out[i] = MonthlyTotal{Month: month, Totals: totals}
	}
	return out, true
}

// Long reshapes wide monthly totals into one row per (month, metric), in
// month order and then in the order metrics are given.
func Long(totals []MonthlyTotal, metrics []Metric) []AggregateRow {
	rows := make([]AggregateRow, 0, len(totals)*len(metrics))
	for _, t := range totals {
		for _, m := range metrics {
			rows = append(rows, AggregateRow{Month: t.Month, Metric: m.Name, Value: t.Totals[m.Name]})
		}
	}
	return rows
}

// Sum returns the total of metric across all months.
func Sum(totals []MonthlyTotal, metric string) decimal.Decimal {
	sum := decimal.Zero
	for _, t := range totals {
		sum = sum.Add(t.Totals[metric])
	}
	return sum
}
