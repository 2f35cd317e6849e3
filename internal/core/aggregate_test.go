package core

import (
	"math/rand"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testMetrics = []Metric{
	{Name: MetricRevenue, Column: "金額"},
	{Name: MetricGrossProfit, Column: "粗利"},
}

func testAggregator() Aggregator {
	return NewAggregator(NewFiscalCalendar(2022), NewAmountNormalizer(""))
}

func TestByMonthSingleRecord(t *testing.T) {
	records := []Record{
		{"受注日": "2023-05-10", "金額": "¥1,000", "商流": "A"},
	}
	totals, ok := testAggregator().ByMonth(records, "受注日", testMetrics, "Period 1")
	require.True(t, ok)
	require.Len(t, totals, 12)

	may := time.Date(2023, 5, 1, 0, 0, 0, 0, time.UTC)
	for _, m := range totals {
		if m.Month.Equal(may) {
			assert.True(t, m.Totals[MetricRevenue].Equal(decimal.NewFromInt(1000)), "may revenue %s", m.Totals[MetricRevenue])
			assert.True(t, m.Totals[MetricGrossProfit].IsZero())
			continue
		}
		assert.True(t, m.Totals[MetricRevenue].IsZero(), "month %s", m.Month)
		assert.True(t, m.Totals[MetricGrossProfit].IsZero(), "month %s", m.Month)
	}
}

func TestByMonthGroupsAndFiltersByPeriod(t *testing.T) {
	records := []Record{
		{"受注日": "2023-05-10", "金額": "1000", "粗利": "100"},
		{"受注日": "2023/05/28", "金額": "¥2,000", "粗利": "200"},
		{"受注日": "2024-03-01", "金額": "500", "粗利": "50"},
		{"受注日": "2024-04-01", "金額": "9999", "粗利": "9"}, // Period 2
		{"受注日": "2022-12-01", "金額": "9999", "粗利": "9"}, // out of range
		{"受注日": "", "金額": "9999", "粗利": "9"},
		{"受注日": "garbage", "金額": "9999", "粗利": "9"},
		{"受注日": "2023-06-01", "金額": "n/a", "粗利": ""},
	}
	totals, ok := testAggregator().ByMonth(records, "受注日", testMetrics, "Period 1")
	require.True(t, ok)
	require.Len(t, totals, 12)

	assert.Equal(t, "3000", totals[1].Totals[MetricRevenue].String()) // May
	assert.Equal(t, "300", totals[1].Totals[MetricGrossProfit].String())
	assert.Equal(t, "0", totals[2].Totals[MetricRevenue].String()) // June, coerced
	assert.Equal(t, "500", totals[11].Totals[MetricRevenue].String()) // March
	assert.Equal(t, "3500", Sum(totals, MetricRevenue).String())
}

func TestByMonthEmptyInputStillHasTwelveMonths(t *testing.T) {
	totals, ok := testAggregator().ByMonth(nil, "受注日", testMetrics, "Period 3")
	require.True(t, ok)
	require.Len(t, totals, 12)
	assert.Equal(t, time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC), totals[0].Month)
	for _, m := range totals {
		for _, metric := range testMetrics {
			assert.True(t, m.Totals[metric.Name].IsZero())
		}
	}
}

func TestByMonthUnknownPeriod(t *testing.T) {
	records := []Record{{"受注日": "2023-05-10", "金額": "1"}}
	for _, period := range []string{"", OutOfRangePeriod, "第1期"} {
		totals, ok := testAggregator().ByMonth(records, "受注日", testMetrics, period)
		assert.False(t, ok)
		assert.Nil(t, totals)
	}
}

func TestByMonthIsOrderIndependentAndIdempotent(t *testing.T) {
	var records []Record
	for i := 0; i < 60; i++ {
		month := i%12 + 1
		year := 2023
		if month < 4 {
			year = 2024
		}
		records = append(records, Record{
			"受注日": NewDate(year, month, i%27+1).Format("2006-01-02"),
			"金額":  decimal.NewFromInt(int64(i * 10)).String(),
			"粗利":  float64(i),
		})
	}
	agg := testAggregator()
	first, ok := agg.ByMonth(records, "受注日", testMetrics, "Period 1")
	require.True(t, ok)
	second, _ := agg.ByMonth(records, "受注日", testMetrics, "Period 1")
	assert.Equal(t, rowStrings(Long(first, testMetrics)), rowStrings(Long(second, testMetrics)))

	shuffled := append([]Record(nil), records...)
	rand.New(rand.NewSource(1)).Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})
	third, _ := agg.ByMonth(shuffled, "受注日", testMetrics, "Period 1")
	require.Len(t, third, 12)
	for i := range first {
		assert.True(t, first[i].Month.Equal(third[i].Month))
		for _, m := range testMetrics {
			assert.True(t, first[i].Totals[m.Name].Equal(third[i].Totals[m.Name]))
		}
	}
}

func TestLong(t *testing.T) {
	totals, ok := testAggregator().ByMonth([]Record{
		{"受注日": "2023-04-02", "金額": "10", "粗利": "1"},
	}, "受注日", testMetrics, "Period 1")
	require.True(t, ok)

	rows := Long(totals, testMetrics)
	require.Len(t, rows, 24)
	assert.Equal(t, MetricRevenue, rows[0].Metric)
	assert.Equal(t, "10", rows[0].Value.String())
	assert.Equal(t, MetricGrossProfit, rows[1].Metric)
	assert.Equal(t, "1", rows[1].Value.String())
	assert.Equal(t, rows[0].Month, rows[1].Month)
	assert.True(t, rows[2].Month.After(rows[1].Month))
}

func rowStrings(rows []AggregateRow) []string {
	out := make([]string, len(rows))
	for i, r := range rows {
		out[i] = r.Month.Format("2006-01") + " " + r.Metric + " " + r.Value.String()
	}
	return out
}
