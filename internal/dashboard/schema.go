package dashboard

import (
	"strings"

	"salesdash/internal/core"
)

// RequiredColumns lists the configured columns every source must provide.
func (s Settings) RequiredColumns() []string {
	c := s.Columns
	return []string{c.OrderDate, c.DeliveryDate, c.Revenue, c.FlowType, c.RepPrimary}
}

// ValidateSchema checks the fetched header against the configured columns.
// Gross profit, phase and the secondary representative column are optional.
func (s Settings) ValidateSchema(columns []string) error {
	have := make(map[string]struct{}, len(columns))
	for _, c := range columns {
		have[c] = struct{}{}
	}
	var missing []string
	for _, c := range s.RequiredColumns() {
		if strings.TrimSpace(c) == "" {
			continue
		}
		if _, ok := have[c]; !ok {
			missing = append(missing, c)
		}
	}
	if len(missing) > 0 {
		return core.SchemaMismatch("validate schema", missing)
	}
	return nil
}

func (s Settings) metrics(t core.Table) []core.Metric {
	metrics := []core.Metric{{Name: core.MetricRevenue, Column: s.Columns.Revenue}}
	if s.Columns.GrossProfit != "" && t.HasColumn(s.Columns.GrossProfit) {
		metrics = append(metrics, core.Metric{Name: core.MetricGrossProfit, Column: s.Columns.GrossProfit})
	}
	return metrics
}
