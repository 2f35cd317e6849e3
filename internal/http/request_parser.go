package http

import (
	"net/url"
	"strings"

	"salesdash/internal/dashboard"
)

// Query parameter names of the filter controls.
const (
	paramFlow   = "flow"
	paramPhase  = "phase"
	paramRep    = "rep"
	paramPeriod = "period"
)

// ParseSelection reads filter state from query values. An absent parameter
// selects every option; a parameter present only with blank values selects
// none. Forms send a blank hidden value so an emptied multi-select arrives
// as "none" rather than "all".
func ParseSelection(q url.Values) dashboard.Selection {
	return dashboard.Selection{
		FlowTypes:       multiValue(q, paramFlow),
		Phases:          multiValue(q, paramPhase),
		Representatives: multiValue(q, paramRep),
		Period:          strings.TrimSpace(q.Get(paramPeriod)),
	}
}

func multiValue(q url.Values, key string) []string {
	raw, present := q[key]
	if !present {
		return nil
	}
	out := []string{}
	seen := make(map[string]struct{}, len(raw))
	for _, v := range raw {
		v = sanitizeInput(v)
		if v == "" {
			continue
		}
		if _, dup := seen[v]; dup {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

// EncodeSelection is the inverse of ParseSelection, used for links that
// must keep the current filters.
func EncodeSelection(sel dashboard.Selection) url.Values {
	q := url.Values{}
	put := func(key string, values []string) {
		if values == nil {
			return
		}
		q[key] = append([]string{""}, values...)
	}
	put(paramFlow, sel.FlowTypes)
	put(paramPhase, sel.Phases)
	put(paramRep, sel.Representatives)
	if sel.Period != "" {
		q.Set(paramPeriod, sel.Period)
	}
	return q
}

// sanitizeInput removes control characters and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 || r == 127 {
			return -1
		}
		return r
	}, s)
}
