package dashboard

import (
	"sort"

	"salesdash/internal/core"
)

// Options collects filter choices from the table.
func (s Settings) Options(t core.Table) Options {
	opts := Options{
		FlowTypes:       distinct(t.Records, s.Columns.FlowType),
		Representatives: append([]string(nil), s.Representatives...),
		HasPhase:        s.Columns.Phase != "" && t.HasColumn(s.Columns.Phase),
	}
	if opts.HasPhase {
		opts.Phases = distinct(t.Records, s.Columns.Phase)
	}

	seen := make(map[int]struct{})
	for _, rec := range t.Records {
		for _, col := range []string{s.Columns.OrderDate, s.Columns.DeliveryDate} {
			label, ok := s.Calendar.ResolvePeriod(rec.Date(col))
			if !ok {
				continue
			}
			if n, ok := core.ParsePeriodNumber(label); ok {
				seen[n] = struct{}{}
			}
		}
	}
	numbers := make([]int, 0, len(seen))
	for n := range seen {
		numbers = append(numbers, n)
	}
	sort.Ints(numbers)
	for _, n := range numbers {
		opts.Periods = append(opts.Periods, core.PeriodLabel(n))
	}
	if len(opts.Periods) > 0 {
		opts.DefaultPeriod = opts.Periods[len(opts.Periods)-1]
	}
	return opts
}

// Resolve fills defaults into sel and drops representatives outside the
// allow-list. A period that is blank or not offered by opts becomes the
// default period.
func (s Settings) Resolve(sel Selection, opts Options) Selection {
	out := sel
	if !containsString(opts.Periods, out.Period) {
		out.Period = opts.DefaultPeriod
	}
	if sel.Representatives != nil {
		allowed := toSet(s.Representatives)
		out.Representatives = []string{}
		for _, r := range sel.Representatives {
			if _, ok := allowed[r]; ok {
				out.Representatives = append(out.Representatives, r)
			}
		}
	}
	return out
}

// Filter keeps records matching the flow type, representative and phase
// selections, ignoring the period.
func (s Settings) Filter(records []core.Record, sel Selection, hasPhase bool) []core.Record {
	flows := selectionSet(sel.FlowTypes)
	phases := selectionSet(sel.Phases)
	reps := selectionSet(sel.Representatives)
	if reps == nil {
		reps = toSet(s.Representatives)
	}

	out := make([]core.Record, 0, len(records))
	for _, rec := range records {
		if flows != nil && !contains(flows, rec.String(s.Columns.FlowType)) {
			continue
		}
		if hasPhase && phases != nil && !contains(phases, rec.String(s.Columns.Phase)) {
			continue
		}
		if !contains(reps, rec.String(s.Columns.RepPrimary)) &&
			(s.Columns.RepSecondary == "" || !contains(reps, rec.String(s.Columns.RepSecondary))) {
			continue
		}
		out = append(out, rec)
	}
	return out
}

// InPeriod keeps records whose order date or delivery date resolves to period.
func (s Settings) InPeriod(records []core.Record, period string) []core.Record {
	out := make([]core.Record, 0, len(records))
	for _, rec := range records {
		if s.periodOf(rec, s.Columns.OrderDate) == period || s.periodOf(rec, s.Columns.DeliveryDate) == period {
			out = append(out, rec)
		}
	}
	return out
}

func (s Settings) periodOf(rec core.Record, column string) string {
	label, ok := s.Calendar.ResolvePeriod(rec.Date(column))
	if !ok {
		return ""
	}
	return label
}

func distinct(records []core.Record, column string) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, rec := range records {
		v := rec.String(column)
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

// selectionSet returns nil for "all" so callers can skip the check.
func selectionSet(values []string) map[string]struct{} {
	if values == nil {
		return nil
	}
	return toSet(values)
}

func toSet(values []string) map[string]struct{} {
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		set[v] = struct{}{}
	}
	return set
}

func contains(set map[string]struct{}, v string) bool {
	if v == "" {
		return false
	}
	_, ok := set[v]
	return ok
}

func containsString(values []string, v string) bool {
	for _, x := range values {
		if x == v {
			return true
		}
	}
	return false
}
