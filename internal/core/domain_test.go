package core

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestParseDate(t *testing.T) {
	cases := []struct {
		in   any
		want Date
	}{
		{"2023-05-10", NewDate(2023, 5, 10)},
		{"2023/5/10", NewDate(2023, 5, 10)},
		{"2023/05/10 13:45:00", NewDate(2023, 5, 10)},
		{"2023年5月10日", NewDate(2023, 5, 10)},
		{" 2024-03-31 ", NewDate(2024, 3, 31)},
		{45056.0, NewDate(2023, 5, 10)},
		{"45056", NewDate(2023, 5, 10)},
		{time.Date(2023, 5, 10, 9, 0, 0, 0, time.Local), NewDate(2023, 5, 10)},
		{"", Date{}},
		{"not a date", Date{}},
		{"2023-13-01", Date{}},
		{nil, Date{}},
		{true, Date{}},
	}
	for _, tc := range cases {
		got := ParseDate(tc.in)
		assert.True(t, got.Equal(tc.want.Time), "ParseDate(%v) = %v, want %v", tc.in, got, tc.want)
	}
}

func TestRecordString(t *testing.T) {
	r := Record{"a": "  x ", "n": 12.0, "nil": nil}
	assert.Equal(t, "x", r.String("a"))
	assert.Equal(t, "12", r.String("n"))
	assert.Equal(t, "", r.String("nil"))
	assert.Equal(t, "", r.String("missing"))
}

func TestDateMonthStart(t *testing.T) {
	assert.Equal(t, time.Date(2023, 5, 1, 0, 0, 0, 0, time.UTC), NewDate(2023, 5, 31).MonthStart())
}
