// Package xlsx reads the sales table from a local Excel workbook.
package xlsx

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"

	"salesdash/internal/core"
	"salesdash/internal/sheets"
)

// Reader opens the workbook on every read so edits on disk are picked up.
type Reader struct {
	path  string
	sheet string
}

var _ sheets.RecordReader = (*Reader)(nil)

// New returns a reader for path. A blank sheet selects the first worksheet.
func New(path, sheet string) *Reader {
	return &Reader{path: path, sheet: strings.TrimSpace(sheet)}
}

func (r *Reader) SourceID() string {
	if r.sheet == "" {
		return "xlsx:" + r.path
	}
	return "xlsx:" + r.path + "/" + r.sheet
}

// ReadTable returns raw cell values: numbers and dates come back unformatted,
// dates as serial day numbers.
func (r *Reader) ReadTable(ctx context.Context) (core.Table, error) {
	if err := ctx.Err(); err != nil {
		return core.Table{}, core.FetchError("read workbook", err)
	}
	f, err := excelize.OpenFile(r.path)
	if err != nil {
		return core.Table{}, core.FetchError("open workbook", err)
	}
	defer f.Close()

	sheet := r.sheet
	if sheet == "" {
		sheet = f.GetSheetName(0)
		if sheet == "" {
			return core.Table{}, core.ParseError("open workbook", errors.New("no sheets found in workbook"))
		}
	}

	rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return core.Table{}, core.ParseError("read worksheet", fmt.Errorf("%s: %w", sheet, err))
	}
	return sheets.TableFromValues(sheets.StringValues(rows))
}
