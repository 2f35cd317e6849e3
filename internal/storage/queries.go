package storage

import (
	"context"
	"database/sql"
	"time"
)

type DBTX interface {
	ExecContext(context.Context, string, ...any) (sql.Result, error)
	QueryContext(context.Context, string, ...any) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...any) *sql.Row
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

type Queries struct {
	db DBTX
}

func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{db: tx}
}

type Snapshot struct {
	ID        int64
	Source    string
	Columns   string
	RowCount  int64
	CreatedAt time.Time
}

const createSnapshot = `INSERT INTO snapshots (source, columns, row_count, created_at)
VALUES (?, ?, ?, ?)
RETURNING id, source, columns, row_count, created_at`

type CreateSnapshotParams struct {
	Source    string
	Columns   string
	RowCount  int64
	CreatedAt time.Time
}

func (q *Queries) CreateSnapshot(ctx context.Context, arg CreateSnapshotParams) (Snapshot, error) {
	row := q.db.QueryRowContext(ctx, createSnapshot, arg.Source, arg.Columns, arg.RowCount, arg.CreatedAt)
	var i Snapshot
	err := row.Scan(&i.ID, &i.Source, &i.Columns, &i.RowCount, &i.CreatedAt)
	return i, err
}

const insertRecord = `INSERT INTO snapshot_records (snapshot_id, position, payload) VALUES (?, ?, ?)`

type InsertRecordParams struct {
	SnapshotID int64
	Position   int64
	Payload    string
}

func (q *Queries) InsertRecord(ctx context.Context, arg InsertRecordParams) error {
	_, err := q.db.ExecContext(ctx, insertRecord, arg.SnapshotID, arg.Position, arg.Payload)
	return err
}

const getLatestSnapshot = `SELECT id, source, columns, row_count, created_at
FROM snapshots
ORDER BY id DESC
LIMIT 1`

func (q *Queries) GetLatestSnapshot(ctx context.Context) (Snapshot, error) {
	row := q.db.QueryRowContext(ctx, getLatestSnapshot)
	var i Snapshot
	err := row.Scan(&i.ID, &i.Source, &i.Columns, &i.RowCount, &i.CreatedAt)
	return i, err
}

const listSnapshotRecords = `SELECT payload FROM snapshot_records
WHERE snapshot_id = ?
ORDER BY position`

func (q *Queries) ListSnapshotRecords(ctx context.Context, snapshotID int64) ([]string, error) {
	rows, err := q.db.QueryContext(ctx, listSnapshotRecords, snapshotID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []string
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, err
		}
		items = append(items, payload)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const deleteRecordsBefore = `DELETE FROM snapshot_records WHERE snapshot_id < ?`

func (q *Queries) DeleteRecordsBefore(ctx context.Context, snapshotID int64) error {
	_, err := q.db.ExecContext(ctx, deleteRecordsBefore, snapshotID)
	return err
}

const deleteSnapshotsBefore = `DELETE FROM snapshots WHERE id < ?`

func (q *Queries) DeleteSnapshotsBefore(ctx context.Context, snapshotID int64) (int64, error) {
	result, err := q.db.ExecContext(ctx, deleteSnapshotsBefore, snapshotID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const countSnapshots = `SELECT COUNT(*) FROM snapshots`

func (q *Queries) CountSnapshots(ctx context.Context) (int64, error) {
	row := q.db.QueryRowContext(ctx, countSnapshots)
	var count int64
	err := row.Scan(&count)
	return count, err
}
