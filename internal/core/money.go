// Package core provides money parsing and handling utilities.
//
// Amounts arrive from spreadsheets either as numbers or as display strings
// such as "¥12,000" or full-width "￥１２，０００". The normalizer folds and
// strips those decorations and defaults anything unusable to zero.
package core

import (
	"math"
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
	"golang.org/x/text/width"
)

// DefaultAmountDecorations are the runes stripped from amount strings before
// parsing: currency symbols and the thousands separator.
const DefaultAmountDecorations = "¥￥円$€,"

// AmountStatus reports how a raw amount was interpreted.
type AmountStatus int

const (
	// AmountParsed means the value was numeric after normalization.
	AmountParsed AmountStatus = iota
	// AmountBlank means the value was absent or whitespace only.
	AmountBlank
	// AmountCoerced means the value was present but not numeric and became zero.
	AmountCoerced
)

// AmountNormalizer coerces raw cell values into decimal amounts.
type AmountNormalizer struct {
	decorations string
}

// NewAmountNormalizer returns a normalizer stripping the given runes.
// An empty string selects DefaultAmountDecorations.
func NewAmountNormalizer(decorations string) AmountNormalizer {
	if decorations == "" {
		decorations = DefaultAmountDecorations
	}
	// Decorations are matched after width folding, so fold them too.
	return AmountNormalizer{decorations: width.Narrow.String(decorations)}
}

// NormalizeAmount coerces raw with the default decorations.
func NormalizeAmount(raw any) decimal.Decimal {
	return NewAmountNormalizer("").Normalize(raw)
}

// Normalize returns the numeric value of raw, or zero when raw is absent,
// blank or not numeric. It never fails.
func (n AmountNormalizer) Normalize(raw any) decimal.Decimal {
	d, _ := n.Parse(raw)
	return d
}

// Parse is Normalize with the interpretation reported alongside the value.
func (n AmountNormalizer) Parse(raw any) (decimal.Decimal, AmountStatus) {
	switch v := raw.(type) {
	case nil:
		return decimal.Zero, AmountBlank
	case decimal.Decimal:
		return v, AmountParsed
	case float64:
		return fromFloat(v)
	case float32:
		if d, status := fromFloat(float64(v)); status != AmountParsed {
			return d, status
		}
		return decimal.NewFromFloat32(v), AmountParsed
	case int:
		return decimal.NewFromInt(int64(v)), AmountParsed
	case int64:
		return decimal.NewFromInt(v), AmountParsed
	case int32:
		return decimal.NewFromInt32(v), AmountParsed
	case string:
		return n.parseString(v)
	default:
		return decimal.Zero, AmountCoerced
	}
}

// fromFloat rejects NaN and infinities, which decimal cannot represent.
func fromFloat(v float64) (decimal.Decimal, AmountStatus) {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return decimal.Zero, AmountCoerced
	}
	return decimal.NewFromFloat(v), AmountParsed
}

func (n AmountNormalizer) parseString(s string) (decimal.Decimal, AmountStatus) {
	if strings.TrimSpace(s) == "" {
		return decimal.Zero, AmountBlank
	}
	s = width.Narrow.String(s)
	s = strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) || strings.ContainsRune(n.decorations, r) {
			return -1
		}
		return r
	}, s)
	if s == "" {
		return decimal.Zero, AmountCoerced
	}
	// Accounting-style negatives: "(1,200)".
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		s = "-" + s[1:len(s)-1]
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, AmountCoerced
	}
	return d, AmountParsed
}
