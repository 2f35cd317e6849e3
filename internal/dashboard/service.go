package dashboard

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"salesdash/internal/core"
	"salesdash/internal/log"
	"salesdash/internal/sheets"
)

// Service builds dashboards from a record source.
type Service struct {
	reader   sheets.RecordReader
	settings Settings
	logger   *log.Logger
	now      func() time.Time
}

// NewService returns a Service reading from reader.
func NewService(reader sheets.RecordReader, settings Settings, logger *log.Logger) *Service {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &Service{
		reader:   reader,
		settings: settings,
		logger:   logger.WithComponent(log.ComponentDashboard),
		now:      time.Now,
	}
}

// Settings returns the render settings.
func (s *Service) Settings() Settings {
	return s.settings
}

// Source identifies the underlying data source.
func (s *Service) Source() string {
	return s.reader.SourceID()
}

// Fetch reads the table and validates it against the configured columns.
func (s *Service) Fetch(ctx context.Context) (core.Table, error) {
	table, err := s.reader.ReadTable(ctx)
	if err != nil {
		if core.KindOf(err) != "" {
			return core.Table{}, err
		}
		return core.Table{}, core.FetchError("read "+s.reader.SourceID(), err)
	}
	if err := s.settings.ValidateSchema(table.Columns); err != nil {
		return core.Table{}, err
	}
	return table, nil
}

// Check verifies that the source is reachable and its header is usable.
func (s *Service) Check(ctx context.Context) error {
	_, err := s.Fetch(ctx)
	return err
}

// Build fetches the source and produces the dashboard for sel.
func (s *Service) Build(ctx context.Context, sel Selection) (*Dashboard, error) {
	table, err := s.Fetch(ctx)
	if err != nil {
		return nil, err
	}
	return s.Render(ctx, table, sel), nil
}

// Render produces the dashboard for sel from an already validated table.
func (s *Service) Render(ctx context.Context, table core.Table, sel Selection) *Dashboard {
	st := s.settings
	opts := st.Options(table)
	resolved := st.Resolve(sel, opts)
	filtered := st.Filter(table.Records, resolved, opts.HasPhase)
	metrics := st.metrics(table)

	d := &Dashboard{
		Source:      s.reader.SourceID(),
		GeneratedAt: s.now(),
		Selection:   resolved,
		Options:     opts,
		Columns:     table.Columns,
		Records:     st.InPeriod(filtered, resolved.Period),
		Order:       st.series(filtered, st.Columns.OrderDate, metrics, resolved.Period),
		Delivery:    st.series(filtered, st.Columns.DeliveryDate, metrics, resolved.Period),
		Diagnostics: st.Diagnose(table, metrics),
	}

	if !d.Diagnostics.Clean() {
		s.logger.WarnContext(ctx, "Source data contains unusable values",
			log.FieldSource, d.Source,
			log.FieldRows, d.Diagnostics.Records,
			"coerced_amounts", d.Diagnostics.CoercedAmounts,
			"missing_order_dates", d.Diagnostics.MissingOrderDates,
			"missing_delivery_dates", d.Diagnostics.MissingDeliveryDates,
			"out_of_range_dates", d.Diagnostics.OutOfRangeDates)
	}
	s.logger.DebugContext(ctx, "Dashboard built",
		log.FieldPeriod, resolved.Period,
		log.FieldRows, len(d.Records))
	return d
}

func (s Settings) series(records []core.Record, column string, metrics []core.Metric, period string) Series {
	out := Series{DateColumn: column, Period: period}
	for _, m := range metrics {
		out.Metrics = append(out.Metrics, m.Name)
	}
	totals, ok := core.NewAggregator(s.Calendar, s.Normalizer).ByMonth(records, column, metrics, period)
	if !ok {
		return out
	}
	out.Available = true
	out.Totals = totals
	out.Rows = core.Long(totals, metrics)
	out.Sums = make(map[string]decimal.Decimal, len(metrics))
	for _, m := range metrics {
		out.Sums[m.Name] = core.Sum(totals, m.Name)
	}
	return out
}

// Diagnose counts amounts coerced to zero and dates that cannot be placed
// in a tracked period.
func (s Settings) Diagnose(t core.Table, metrics []core.Metric) Diagnostics {
	d := Diagnostics{Records: len(t.Records)}
	for _, rec := range t.Records {
		for _, m := range metrics {
			if _, status := s.Normalizer.Parse(rec[m.Column]); status == core.AmountCoerced {
				d.CoercedAmounts++
			}
		}
		for _, col := range []string{s.Columns.OrderDate, s.Columns.DeliveryDate} {
			date := rec.Date(col)
			if date.IsEmpty() {
				if col == s.Columns.OrderDate {
					d.MissingOrderDates++
				} else {
					d.MissingDeliveryDates++
				}
				continue
			}
			if label, _ := s.Calendar.ResolvePeriod(date); label == core.OutOfRangePeriod {
				d.OutOfRangeDates++
			}
		}
	}
	return d
}
