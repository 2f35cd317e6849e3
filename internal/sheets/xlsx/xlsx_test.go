package xlsx

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"salesdash/internal/core"
)

func writeWorkbook(t *testing.T, sheet string, rows [][]any) string {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()

	if sheet != "Sheet1" {
		require.NoError(t, f.SetSheetName("Sheet1", sheet))
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow(sheet, cell, &row))
	}
	path := filepath.Join(t.TempDir(), "sales.xlsx")
	require.NoError(t, f.SaveAs(path))
	return path
}

func TestReadTableFirstSheet(t *testing.T) {
	path := writeWorkbook(t, "営業成績データ", [][]any{
		{"受注日", "金額", "商流"},
		{time.Date(2023, 5, 15, 0, 0, 0, 0, time.UTC), 12000, "直販"},
		{"2023/06/01", "¥8,000"},
	})

	table, err := New(path, "").ReadTable(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"受注日", "金額", "商流"}, table.Columns)
	require.Equal(t, 2, table.Len())
	assert.Equal(t, "2023-05-15", table.Records[0].Date("受注日").Format("2006-01-02"))
	assert.Equal(t, "12000", core.NormalizeAmount(table.Records[0]["金額"]).String())
	assert.Equal(t, "2023-06-01", table.Records[1].Date("受注日").Format("2006-01-02"))
	assert.Nil(t, table.Records[1]["商流"])
}

func TestReadTableNamedSheetMissing(t *testing.T) {
	path := writeWorkbook(t, "Sheet1", [][]any{{"a"}, {"1"}})

	_, err := New(path, "Nope").ReadTable(context.Background())
	require.Error(t, err)
	assert.Equal(t, core.KindParse, core.KindOf(err))
}

func TestReadTableMissingFile(t *testing.T) {
	r := New(filepath.Join(t.TempDir(), "missing.xlsx"), "")
	_, err := r.ReadTable(context.Background())
	assert.Equal(t, core.KindFetch, core.KindOf(err))
	assert.Contains(t, r.SourceID(), "missing.xlsx")
}
