package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"salesdash/internal/core"

	_ "modernc.org/sqlite"
)

// DefaultRetain is the number of snapshots kept after each save.
const DefaultRetain = 5

// ErrNoSnapshot is returned when the mirror has never been populated.
var ErrNoSnapshot = errors.New("no snapshot has been mirrored yet")

// SQLiteRepository mirrors fetched tables into SQLite so the dashboard can
// serve the last good copy when the live source is unreachable.
type SQLiteRepository struct {
	db      *sql.DB
	queries *Queries
	path    string
	retain  int
	now     func() time.Time
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set busy timeout: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{
		db:      db,
		queries: New(db),
		path:    dbPath,
		retain:  DefaultRetain,
		now:     time.Now,
	}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// SourceID identifies the mirror database.
func (r *SQLiteRepository) SourceID() string {
	return "sqlite:" + r.path
}

// SaveSnapshot stores t as the newest snapshot of source and prunes old ones.
func (r *SQLiteRepository) SaveSnapshot(ctx context.Context, source string, t core.Table) (int64, error) {
	columns, err := json.Marshal(t.Columns)
	if err != nil {
		return 0, fmt.Errorf("encode columns: %w", err)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	q := r.queries.WithTx(tx)
	snap, err := q.CreateSnapshot(ctx, CreateSnapshotParams{
		Source:    source,
		Columns:   string(columns),
		RowCount:  int64(len(t.Records)),
		CreatedAt: r.now().UTC(),
	})
	if err != nil {
		return 0, fmt.Errorf("create snapshot: %w", err)
	}

	for i, rec := range t.Records {
		payload, err := json.Marshal(rec)
		if err != nil {
			return 0, fmt.Errorf("encode record %d: %w", i, err)
		}
		if err := q.InsertRecord(ctx, InsertRecordParams{
			SnapshotID: snap.ID,
			Position:   int64(i),
			Payload:    string(payload),
		}); err != nil {
			return 0, fmt.Errorf("insert record %d: %w", i, err)
		}
	}

	var pruned int64
	if keepFrom := snap.ID - int64(r.retain) + 1; keepFrom > 1 {
		if err := q.DeleteRecordsBefore(ctx, keepFrom); err != nil {
			return 0, fmt.Errorf("prune records: %w", err)
		}
		if pruned, err = q.DeleteSnapshotsBefore(ctx, keepFrom); err != nil {
			return 0, fmt.Errorf("prune snapshots: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit snapshot: %w", err)
	}

	slog.InfoContext(ctx, "Snapshot saved to SQLite",
		"snapshot_id", snap.ID,
		"source", source,
		"rows", snap.RowCount,
		"pruned", pruned)
	return snap.ID, nil
}

// Latest returns metadata of the newest snapshot.
func (r *SQLiteRepository) Latest(ctx context.Context) (Snapshot, error) {
	snap, err := r.queries.GetLatestSnapshot(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return Snapshot{}, ErrNoSnapshot
	}
	if err != nil {
		return Snapshot{}, fmt.Errorf("get latest snapshot: %w", err)
	}
	return snap, nil
}

// ReadTable returns the newest mirrored table.
func (r *SQLiteRepository) ReadTable(ctx context.Context) (core.Table, error) {
	snap, err := r.Latest(ctx)
	if err != nil {
		return core.Table{}, core.FetchError("read snapshot", err)
	}

	var columns []string
	if err := json.Unmarshal([]byte(snap.Columns), &columns); err != nil {
		return core.Table{}, core.ParseError("decode snapshot columns", err)
	}

	payloads, err := r.queries.ListSnapshotRecords(ctx, snap.ID)
	if err != nil {
		return core.Table{}, core.FetchError("read snapshot records", err)
	}

	records := make([]core.Record, 0, len(payloads))
	for i, p := range payloads {
		var rec core.Record
		if err := json.Unmarshal([]byte(p), &rec); err != nil {
			return core.Table{}, core.ParseError("decode snapshot record", fmt.Errorf("position %d: %w", i, err))
		}
		records = append(records, rec)
	}
	return core.Table{Columns: columns, Records: records}, nil
}

// SnapshotCount reports how many snapshots are retained.
func (r *SQLiteRepository) SnapshotCount(ctx context.Context) (int64, error) {
	return r.queries.CountSnapshots(ctx)
}
