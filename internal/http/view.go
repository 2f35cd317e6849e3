package http

import (
	"fmt"
	"html/template"
	"strconv"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"salesdash/internal/core"
	"salesdash/internal/dashboard"
)

var yenPrinter = message.NewPrinter(language.Japanese)

var metricLabels = map[string]string{
	core.MetricRevenue:     "売上金額",
	core.MetricGrossProfit: "粗利",
}

var templateFuncs = template.FuncMap{
	"yen":         formatYen,
	"selected":    isSelected,
	"metricLabel": metricLabel,
}

// formatYen renders an amount rounded to whole yen with digit grouping.
func formatYen(d decimal.Decimal) string {
	n := d.Round(0).IntPart()
	if n < 0 {
		return yenPrinter.Sprintf("-¥%d", -n)
	}
	return yenPrinter.Sprintf("¥%d", n)
}

// isSelected reports whether option is checked; a nil selection means all.
func isSelected(selection []string, option string) bool {
	if selection == nil {
		return true
	}
	for _, s := range selection {
		if s == option {
			return true
		}
	}
	return false
}

func metricLabel(name string) string {
	if label, ok := metricLabels[name]; ok {
		return label
	}
	return name
}

type pageData struct {
	Title       string
	Dashboard   *dashboard.Dashboard
	Table       tableView
	Order       chartView
	Delivery    chartView
	Charts      map[string]chartView
	Redirect    string
	CanPublish  bool
	RequestID   string
	GeneratedAt string
}

type tableView struct {
	Columns []string
	Rows    [][]string
}

type chartView struct {
	Title     string
	Kind      string            `json:"kind"`
	Available bool              `json:"available"`
	HasData   bool              `json:"has_data"`
	Labels    []string          `json:"labels"`
	Datasets  []datasetView     `json:"datasets"`
	Sums      map[string]string `json:"-"`
}

type datasetView struct {
	Label  string    `json:"label"`
	Values []float64 `json:"values"`
}

func newChartView(title, kind string, s dashboard.Series) chartView {
	cv := chartView{
		Title:     title,
		Kind:      kind,
		Available: s.Available,
		HasData:   s.HasData(),
		Sums:      make(map[string]string, len(s.Metrics)),
	}
	for _, t := range s.Totals {
		cv.Labels = append(cv.Labels, t.Month.Format("2006-01"))
	}
	for _, m := range s.Metrics {
		ds := datasetView{Label: metricLabel(m), Values: make([]float64, 0, len(s.Totals))}
		for _, t := range s.Totals {
			ds.Values = append(ds.Values, t.Totals[m].InexactFloat64())
		}
		cv.Datasets = append(cv.Datasets, ds)
		cv.Sums[metricLabel(m)] = formatYen(s.Sums[m])
	}
	return cv
}

// newTableView lays records out in header order. Date columns are shown as
// ISO dates and numbers without exponent notation.
func newTableView(d *dashboard.Dashboard, settings dashboard.Settings) tableView {
	dateColumns := map[string]bool{
		settings.Columns.OrderDate:    true,
		settings.Columns.DeliveryDate: true,
	}
	tv := tableView{Columns: d.Columns, Rows: make([][]string, 0, len(d.Records))}
	for _, rec := range d.Records {
		row := make([]string, len(d.Columns))
		for i, col := range d.Columns {
			if dateColumns[col] {
				if date := rec.Date(col); !date.IsEmpty() {
					row[i] = date.Format("2006-01-02")
					continue
				}
			}
			row[i] = formatCell(rec[col])
		}
		tv.Rows = append(tv.Rows, row)
	}
	return tv
}

func formatCell(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	default:
		return fmt.Sprint(x)
	}
}

func newPageData(d *dashboard.Dashboard, settings dashboard.Settings, requestID string, canPublish bool) pageData {
	order := newChartView("受注月ごとの売上推移", "bar", d.Order)
	delivery := newChartView("納品月ごとの売上推移", "line", d.Delivery)
	return pageData{
		Title:     "営業成績ダッシュボード",
		Dashboard: d,
		Table:     newTableView(d, settings),
		Order:     order,
		Delivery:  delivery,
		Charts: map[string]chartView{
			"order":    order,
			"delivery": delivery,
		},
		Redirect:    "/?" + EncodeSelection(d.Selection).Encode(),
		CanPublish:  canPublish,
		RequestID:   requestID,
		GeneratedAt: d.GeneratedAt.Format("2006-01-02 15:04:05"),
	}
}

type errorPageData struct {
	Title     string
	Message   string
	Kind      core.ErrorKind
	Guidance  []string
	RequestID string
}
