package core

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolvePeriod(t *testing.T) {
	cal := NewFiscalCalendar(2022)
	cases := []struct {
		d     Date
		want  string
		found bool
	}{
		{NewDate(2023, 4, 1), "Period 1", true},
		{NewDate(2023, 5, 10), "Period 1", true},
		{NewDate(2024, 3, 31), "Period 1", true},
		{NewDate(2024, 4, 1), "Period 2", true},
		{NewDate(2026, 1, 15), "Period 3", true},
		{NewDate(2023, 3, 31), OutOfRangePeriod, true},
		{NewDate(2022, 4, 1), OutOfRangePeriod, true},
		{NewDate(1999, 12, 1), OutOfRangePeriod, true},
		{Date{}, "", false},
	}
	for _, tc := range cases {
		got, ok := cal.ResolvePeriod(tc.d)
		assert.Equal(t, tc.found, ok, "date %v", tc.d)
		assert.Equal(t, tc.want, got, "date %v", tc.d)
	}
}

func TestResolvePeriodMatchesYearRule(t *testing.T) {
	const base = 2010
	cal := NewFiscalCalendar(base)
	for year := 2011; year <= 2040; year++ {
		for month := 1; month <= 12; month++ {
			want := year - base
			if month < 4 {
				want = year - 1 - base
			}
			got, ok := cal.ResolvePeriod(NewDate(year, month, 15))
			require.True(t, ok)
			if want <= 0 {
				assert.Equal(t, OutOfRangePeriod, got)
				continue
			}
			assert.Equal(t, PeriodLabel(want), got)
		}
	}
}

func TestExpandPeriodToMonths(t *testing.T) {
	cal := NewFiscalCalendar(2022)
	months, ok := cal.ExpandPeriodToMonths("Period 1")
	require.True(t, ok)
	require.Len(t, months, 12)
	assert.Equal(t, time.Date(2023, 4, 1, 0, 0, 0, 0, time.UTC), months[0])
	assert.Equal(t, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), months[11])
	for i := 1; i < len(months); i++ {
		assert.Equal(t, months[i-1].AddDate(0, 1, 0), months[i])
	}
}

func TestExpandPeriodRoundTrip(t *testing.T) {
	cal := NewFiscalCalendar(2022)
	for n := 1; n <= 10; n++ {
		months, ok := cal.ExpandPeriodToMonths(PeriodLabel(n))
		require.True(t, ok)
		for _, m := range months {
			label, ok := cal.ResolvePeriod(NewDate(m.Year(), int(m.Month()), 1))
			require.True(t, ok)
			assert.Equal(t, PeriodLabel(n), label)
		}
	}
}

func TestExpandPeriodRejectsUnknownLabels(t *testing.T) {
	cal := NewFiscalCalendar(2022)
	for _, label := range []string{"", OutOfRangePeriod, "Period", "Period 0", "Period -1", "period 1", "Period 1 ", "第5期", "Period x"} {
		months, ok := cal.ExpandPeriodToMonths(label)
		assert.False(t, ok, "label %q", label)
		assert.Nil(t, months, "label %q", label)
	}
}
