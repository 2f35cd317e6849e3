package dashboard

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"salesdash/internal/config"
	"salesdash/internal/core"
)

type stubReader struct {
	table core.Table
	err   error
}

func (r stubReader) SourceID() string { return "stub" }

func (r stubReader) ReadTable(context.Context) (core.Table, error) {
	return r.table, r.err
}

func testSettings() Settings {
	return Settings{
		Columns: config.Columns{
			OrderDate:    "受注日",
			DeliveryDate: "納品日",
			Revenue:      "金額",
			GrossProfit:  "粗利",
			FlowType:     "商流",
			Phase:        "フェーズ",
			RepPrimary:   "担当営業A",
			RepSecondary: "担当営業B",
		},
		Representatives: []string{"相川直輝", "佐々木亮", "高橋和大"},
		Calendar:        core.NewFiscalCalendar(2022),
		Normalizer:      core.NewAmountNormalizer(""),
	}
}

func testTable() core.Table {
	return core.Table{
		Columns: []string{"受注日", "納品日", "金額", "粗利", "商流", "担当営業A", "担当営業B"},
		Records: []core.Record{
			{"受注日": "2023-05-10", "納品日": "2023-06-01", "金額": "¥12,000", "粗利": "3000", "商流": "直販", "担当営業A": "相川直輝", "担当営業B": ""},
			{"受注日": "2023-05-20", "納品日": "2024-04-02", "金額": "8000", "粗利": "abc", "商流": "代理店", "担当営業A": "外部", "担当営業B": "佐々木亮"},
			{"受注日": "2024-04-15", "納品日": nil, "金額": 5000.0, "粗利": nil, "商流": "直販", "担当営業A": "高橋和大", "担当営業B": nil},
			{"受注日": "2022-01-10", "納品日": "2022-02-01", "金額": "100", "粗利": "10", "商流": "直販", "担当営業A": "相川直輝", "担当営業B": nil},
			{"受注日": "", "納品日": "2023-07-01", "金額": "", "粗利": "", "商流": "", "担当営業A": "部外者", "担当営業B": nil},
		},
	}
}

func totalsByMonth(s Series, metric string) map[string]string {
	out := make(map[string]string)
	for _, r := range s.Rows {
		if r.Metric == metric {
			out[r.Month.Format("2006-01")] = r.Value.String()
		}
	}
	return out
}

func TestValidateSchema(t *testing.T) {
	st := testSettings()

	require.NoError(t, st.ValidateSchema(testTable().Columns))
	require.NoError(t, st.ValidateSchema([]string{"受注日", "納品日", "金額", "商流", "担当営業A"}),
		"optional columns may be missing")

	err := st.ValidateSchema([]string{"受注日", "金額", "商流"})
	require.Error(t, err)
	assert.Equal(t, core.KindSchemaMismatch, core.KindOf(err))
	assert.Contains(t, err.Error(), "納品日")
	assert.Contains(t, err.Error(), "担当営業A")
}

func TestOptions(t *testing.T) {
	st := testSettings()
	opts := st.Options(testTable())

	assert.Equal(t, []string{"直販", "代理店"}, opts.FlowTypes)
	assert.Equal(t, []string{"Period 1", "Period 2"}, opts.Periods, "out-of-range periods are not offered")
	assert.Equal(t, "Period 2", opts.DefaultPeriod)
	assert.Equal(t, st.Representatives, opts.Representatives)
	assert.False(t, opts.HasPhase)
	assert.Nil(t, opts.Phases)
}

func TestFilter(t *testing.T) {
	st := testSettings()
	records := testTable().Records

	t.Run("nil selections keep allow-listed reps", func(t *testing.T) {
		got := st.Filter(records, Selection{}, false)
		assert.Len(t, got, 4)
	})

	t.Run("empty selection selects none", func(t *testing.T) {
		got := st.Filter(records, Selection{FlowTypes: []string{}}, false)
		assert.Empty(t, got)
	})

	t.Run("secondary representative matches", func(t *testing.T) {
		got := st.Filter(records, Selection{Representatives: []string{"佐々木亮"}}, false)
		require.Len(t, got, 1)
		assert.Equal(t, "代理店", got[0].String("商流"))
	})

	t.Run("flow type", func(t *testing.T) {
		got := st.Filter(records, Selection{FlowTypes: []string{"代理店"}}, false)
		assert.Len(t, got, 1)
	})

	t.Run("phase ignored without column", func(t *testing.T) {
		got := st.Filter(records, Selection{Phases: []string{}}, false)
		assert.Len(t, got, 4)
	})

	t.Run("phase applied with column", func(t *testing.T) {
		recs := []core.Record{
			{"担当営業A": "相川直輝", "フェーズ": "受注"},
			{"担当営業A": "相川直輝", "フェーズ": "失注"},
		}
		got := st.Filter(recs, Selection{Phases: []string{"受注"}}, true)
		require.Len(t, got, 1)
		assert.Equal(t, "受注", got[0].String("フェーズ"))
	})
}

func TestResolveDropsUnknownRepresentatives(t *testing.T) {
	st := testSettings()
	opts := Options{Periods: []string{"Period 1", "Period 2"}, DefaultPeriod: "Period 2"}
	got := st.Resolve(Selection{Representatives: []string{"相川直輝", "nobody"}}, opts)
	assert.Equal(t, []string{"相川直輝"}, got.Representatives)
	assert.Equal(t, "Period 2", got.Period)

	got = st.Resolve(Selection{Period: "Period 1"}, opts)
	assert.Equal(t, "Period 1", got.Period)
	assert.Nil(t, got.Representatives)
}

func TestBuild(t *testing.T) {
	svc := NewService(stubReader{table: testTable()}, testSettings(), nil)

	d, err := svc.Build(context.Background(), Selection{Period: "Period 1"})
	require.NoError(t, err)

	assert.Equal(t, "stub", d.Source)
	assert.Equal(t, "Period 1", d.Selection.Period)
	assert.Len(t, d.Records, 2, "records whose order or delivery date is in Period 1")

	require.True(t, d.Order.Available)
	assert.Len(t, d.Order.Totals, 12)
	assert.Equal(t, []string{core.MetricRevenue, core.MetricGrossProfit}, d.Order.Metrics)
	assert.Len(t, d.Order.Rows, 24)

	order := totalsByMonth(d.Order, core.MetricRevenue)
	assert.Equal(t, "20000", order["2023-05"])
	assert.Equal(t, "0", order["2023-04"])
	assert.Equal(t, "20000", d.Order.Sums[core.MetricRevenue].String())
	assert.Equal(t, "3000", totalsByMonth(d.Order, core.MetricGrossProfit)["2023-05"])

	delivery := totalsByMonth(d.Delivery, core.MetricRevenue)
	assert.Equal(t, "12000", delivery["2023-06"])
	assert.Equal(t, "12000", d.Delivery.Sums[core.MetricRevenue].String(), "2024-04 delivery belongs to Period 2")

	assert.Equal(t, Diagnostics{
		Records:              5,
		CoercedAmounts:       1,
		MissingOrderDates:    1,
		MissingDeliveryDates: 1,
		OutOfRangeDates:      2,
	}, d.Diagnostics)
}

func TestBuildDefaultsToLatestPeriod(t *testing.T) {
	svc := NewService(stubReader{table: testTable()}, testSettings(), nil)

	d, err := svc.Build(context.Background(), Selection{})
	require.NoError(t, err)
	assert.Equal(t, "Period 2", d.Selection.Period)
	assert.Equal(t, "5000", d.Order.Sums[core.MetricRevenue].String())
	assert.True(t, d.Order.HasData())
}

func TestBuildUnknownPeriodFallsBackToLatest(t *testing.T) {
	svc := NewService(stubReader{table: testTable()}, testSettings(), nil)

	for _, period := range []string{"Period 99", "FY2023", "Period 0"} {
		t.Run(period, func(t *testing.T) {
			d, err := svc.Build(context.Background(), Selection{Period: period})
			require.NoError(t, err)
			assert.Equal(t, "Period 2", d.Selection.Period)
			assert.Contains(t, d.Options.Periods, d.Selection.Period)
			assert.True(t, d.Order.Available)
			assert.Equal(t, "5000", d.Order.Sums[core.MetricRevenue].String())
			assert.NotEmpty(t, d.Records)
		})
	}
}

func TestResolvePeriod(t *testing.T) {
	st := testSettings()
	opts := Options{Periods: []string{"Period 1", "Period 2"}, DefaultPeriod: "Period 2"}

	assert.Equal(t, "Period 1", st.Resolve(Selection{Period: "Period 1"}, opts).Period)
	assert.Equal(t, "Period 2", st.Resolve(Selection{}, opts).Period)
	assert.Equal(t, "Period 2", st.Resolve(Selection{Period: "Period 99"}, opts).Period)
	assert.Equal(t, "", st.Resolve(Selection{Period: "Period 1"}, Options{}).Period,
		"no periods in the data leaves nothing to select")
}

func TestBuildWithoutDatesIsUnavailable(t *testing.T) {
	table := core.Table{
		Columns: testTable().Columns,
		Records: []core.Record{
			{"受注日": "", "納品日": nil, "金額": "100", "商流": "直販", "担当営業A": "相川直輝"},
		},
	}
	svc := NewService(stubReader{table: table}, testSettings(), nil)

	d, err := svc.Build(context.Background(), Selection{Period: "Period 1"})
	require.NoError(t, err)
	assert.Empty(t, d.Selection.Period)
	assert.False(t, d.Order.Available)
	assert.False(t, d.Delivery.Available)
	assert.Empty(t, d.Order.Rows)
}

func TestBuildWithoutGrossProfitColumn(t *testing.T) {
	table := core.Table{
		Columns: []string{"受注日", "納品日", "金額", "商流", "担当営業A"},
		Records: []core.Record{
			{"受注日": "2023-05-10", "納品日": "2023-06-01", "金額": "100", "商流": "直販", "担当営業A": "相川直輝"},
		},
	}
	svc := NewService(stubReader{table: table}, testSettings(), nil)

	d, err := svc.Build(context.Background(), Selection{})
	require.NoError(t, err)
	assert.Equal(t, []string{core.MetricRevenue}, d.Order.Metrics)
	assert.Len(t, d.Order.Rows, 12)
}

func TestBuildErrors(t *testing.T) {
	t.Run("fetch failure is typed", func(t *testing.T) {
		svc := NewService(stubReader{err: errors.New("dial tcp: timeout")}, testSettings(), nil)
		_, err := svc.Build(context.Background(), Selection{})
		require.Error(t, err)
		assert.Equal(t, core.KindFetch, core.KindOf(err))
	})

	t.Run("typed reader errors pass through", func(t *testing.T) {
		parseErr := core.ParseError("read sheet", errors.New("duplicate header"))
		svc := NewService(stubReader{err: parseErr}, testSettings(), nil)
		_, err := svc.Build(context.Background(), Selection{})
		assert.Equal(t, core.KindParse, core.KindOf(err))
	})

	t.Run("schema mismatch", func(t *testing.T) {
		svc := NewService(stubReader{table: core.Table{Columns: []string{"金額"}}}, testSettings(), nil)
		err := svc.Check(context.Background())
		assert.Equal(t, core.KindSchemaMismatch, core.KindOf(err))
	})
}
