// Package dashboard builds one render of the sales dashboard from a fetched
// table: schema validation, filter options, filtering, the order and
// delivery series, and data-quality diagnostics.
package dashboard

import (
	"time"

	"github.com/shopspring/decimal"

	"salesdash/internal/config"
	"salesdash/internal/core"
)

// Settings are the per-deployment constants a render depends on.
type Settings struct {
	Columns         config.Columns
	Representatives []string
	Calendar        core.FiscalCalendar
	Normalizer      core.AmountNormalizer
}

// NewSettings derives render settings from validated configuration.
func NewSettings(cfg *config.Config) Settings {
	return Settings{
		Columns:         cfg.Columns,
		Representatives: append([]string(nil), cfg.Representatives...),
		Calendar:        core.NewFiscalCalendar(cfg.FiscalBaseYear),
		Normalizer:      core.NewAmountNormalizer(cfg.AmountDecorations),
	}
}

// Selection is the user's filter state. A nil slice selects every option,
// a non-nil empty slice selects none. A blank Period selects the most
// recent available period.
type Selection struct {
	FlowTypes       []string `json:"flow_types"`
	Phases          []string `json:"phases"`
	Representatives []string `json:"representatives"`
	Period          string   `json:"period"`
}

// Options are the values offered by the filter controls.
type Options struct {
	FlowTypes       []string `json:"flow_types"`
	Phases          []string `json:"phases"`
	Representatives []string `json:"representatives"`
	Periods         []string `json:"periods"`
	DefaultPeriod   string   `json:"default_period"`
	HasPhase        bool     `json:"has_phase"`
}

// Series is one chart: monthly totals grouped by a date column.
type Series struct {
	DateColumn string                     `json:"date_column"`
	Period     string                     `json:"period"`
	Available  bool                       `json:"available"`
	Metrics    []string                   `json:"metrics"`
	Totals     []core.MonthlyTotal        `json:"-"`
	Rows       []core.AggregateRow        `json:"rows"`
	Sums       map[string]decimal.Decimal `json:"sums"`
}

// HasData reports whether any month of the series is non-zero.
func (s Series) HasData() bool {
	for _, r := range s.Rows {
		if !r.Value.IsZero() {
			return true
		}
	}
	return false
}

// Diagnostics counts per-record problems absorbed while building a render.
type Diagnostics struct {
	Records              int `json:"records"`
	CoercedAmounts       int `json:"coerced_amounts"`
	MissingOrderDates    int `json:"missing_order_dates"`
	MissingDeliveryDates int `json:"missing_delivery_dates"`
	OutOfRangeDates      int `json:"out_of_range_dates"`
}

// Clean reports whether no problem was counted.
func (d Diagnostics) Clean() bool {
	return d.CoercedAmounts == 0 && d.MissingOrderDates == 0 &&
		d.MissingDeliveryDates == 0 && d.OutOfRangeDates == 0
}

// Dashboard is everything a single page render needs.
type Dashboard struct {
	Source      string        `json:"source"`
	GeneratedAt time.Time     `json:"generated_at"`
	Selection   Selection     `json:"selection"`
	Options     Options       `json:"options"`
	Columns     []string      `json:"columns"`
	Records     []core.Record `json:"records"`
	Order       Series        `json:"order"`
	Delivery    Series        `json:"delivery"`
	Diagnostics Diagnostics   `json:"diagnostics"`
}
