package sheets

import (
	"errors"
	"fmt"
	"strings"

	"salesdash/internal/core"
)

// ErrEmptySheet is returned when a sheet has no header row.
var ErrEmptySheet = errors.New("sheet has no header row")

// TableFromValues converts a values matrix (as returned by the Sheets API or
// read from a workbook) into a Table. The first non-empty row is the header;
// blank header cells are skipped and their column is ignored. Short rows leave
// the missing cells absent. Rows with no non-blank cell are dropped.
func TableFromValues(values [][]any) (core.Table, error) {
	start := -1
	for i, row := range values {
		if !blankRow(row) {
			start = i
			break
		}
	}
	if start == -1 {
		return core.Table{}, core.ParseError("parse header", ErrEmptySheet)
	}

	header := toStrings(values[start])
	columns := make([]string, 0, len(header))
	positions := make([]int, 0, len(header))
	seen := make(map[string]struct{}, len(header))
	for i, h := range header {
		if h == "" {
			continue
		}
		if _, dup := seen[h]; dup {
			return core.Table{}, core.ParseError("parse header", fmt.Errorf("duplicate column %q", h))
		}
		seen[h] = struct{}{}
		columns = append(columns, h)
		positions = append(positions, i)
	}

	records := make([]core.Record, 0, len(values)-start-1)
	for _, row := range values[start+1:] {
		if blankRow(row) {
			continue
		}
		rec := make(core.Record, len(columns))
		for j, col := range columns {
			pos := positions[j]
			if pos < len(row) {
				rec[col] = row[pos]
			} else {
				rec[col] = nil
			}
		}
		records = append(records, rec)
	}
	return core.Table{Columns: columns, Records: records}, nil
}

// StringValues adapts a matrix of strings (CSV, workbook rows) to TableFromValues.
func StringValues(rows [][]string) [][]any {
	out := make([][]any, len(rows))
	for i, row := range rows {
		vals := make([]any, len(row))
		for j, v := range row {
			vals[j] = v
		}
		out[i] = vals
	}
	return out
}

func blankRow(row []any) bool {
	for _, v := range row {
		if v == nil {
			continue
		}
		if strings.TrimSpace(fmt.Sprint(v)) != "" {
			return false
		}
	}
	return true
}

func toStrings(in []any) []string {
	out := make([]string, len(in))
	for i, v := range in {
		if v == nil {
			continue
		}
		out[i] = strings.TrimSpace(fmt.Sprint(v))
	}
	return out
}
