package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"salesdash/internal/core"
)

func newTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "mirror", "test.db"))
	if err != nil {
		t.Fatalf("NewSQLiteRepository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func TestReadTableWithoutSnapshot(t *testing.T) {
	repo := newTestRepo(t)

	_, err := repo.ReadTable(context.Background())
	if core.KindOf(err) != core.KindFetch {
		t.Fatalf("expected fetch error, got %v", err)
	}
	if !errors.Is(err, ErrNoSnapshot) {
		t.Fatalf("expected ErrNoSnapshot in chain, got %v", err)
	}
}

func TestSaveAndReadLatest(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	first := core.Table{
		Columns: []string{"受注日", "金額"},
		Records: []core.Record{{"受注日": "2023-05-01", "金額": "¥1,000"}},
	}
	second := core.Table{
		Columns: []string{"受注日", "金額", "商流"},
		Records: []core.Record{
			{"受注日": 45061.0, "金額": 2500.0, "商流": "直販"},
			{"受注日": "2023-06-01", "金額": nil, "商流": "代理店"},
		},
	}

	if _, err := repo.SaveSnapshot(ctx, "sheets:a", first); err != nil {
		t.Fatalf("SaveSnapshot: %v", err)
	}
	id, err := repo.SaveSnapshot(ctx, "sheets:a", second)
	if err != nil {
		t.Fatalf("SaveSnapshot: %v", err)
	}

	snap, err := repo.Latest(ctx)
	if err != nil || snap.ID != id || snap.RowCount != 2 || snap.Source != "sheets:a" {
		t.Fatalf("unexpected latest snapshot %+v err=%v", snap, err)
	}

	table, err := repo.ReadTable(ctx)
	if err != nil {
		t.Fatalf("ReadTable: %v", err)
	}
	if len(table.Columns) != 3 || table.Columns[2] != "商流" {
		t.Fatalf("columns = %v", table.Columns)
	}
	if table.Len() != 2 {
		t.Fatalf("rows = %d", table.Len())
	}
	if got := table.Records[0].Date("受注日").Format("2006-01-02"); got != "2023-05-15" {
		t.Errorf("serial date round trip: %s", got)
	}
	if got := core.NormalizeAmount(table.Records[0]["金額"]).String(); got != "2500" {
		t.Errorf("amount round trip: %s", got)
	}
	if table.Records[1]["金額"] != nil {
		t.Errorf("nil cell should stay absent")
	}
	if table.Records[1].String("商流") != "代理店" {
		t.Errorf("record order not preserved")
	}
}

func TestSaveSnapshotPrunes(t *testing.T) {
	repo := newTestRepo(t)
	repo.retain = 2
	ctx := context.Background()

	table := core.Table{Columns: []string{"a"}, Records: []core.Record{{"a": "1"}}}
	for i := 0; i < 4; i++ {
		if _, err := repo.SaveSnapshot(ctx, "memory:test", table); err != nil {
			t.Fatalf("SaveSnapshot %d: %v", i, err)
		}
	}

	count, err := repo.SnapshotCount(ctx)
	if err != nil {
		t.Fatalf("SnapshotCount: %v", err)
	}
	if count != 2 {
		t.Fatalf("expected 2 retained snapshots, got %d", count)
	}
}
