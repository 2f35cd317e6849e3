package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"salesdash/internal/amqp"
	"salesdash/internal/core"
	"salesdash/internal/log"
	"salesdash/internal/sheets"
)

// Snapshotter persists fetched tables.
type Snapshotter interface {
	SaveSnapshot(ctx context.Context, source string, t core.Table) (int64, error)
}

// RefreshConsumer delivers refresh requests until its context ends.
type RefreshConsumer interface {
	ConsumeRefresh(ctx context.Context, handler func(context.Context, *amqp.RefreshMessage) error) error
}

// MirrorWorker copies the live source into the SQLite mirror, on a fixed
// interval and whenever a refresh is requested.
type MirrorWorker struct {
	source   sheets.RecordReader
	store    Snapshotter
	validate func(columns []string) error
	interval time.Duration
	logger   *log.Logger

	mu         sync.Mutex
	lastMirror time.Time
	now        func() time.Time
}

// NewMirrorWorker builds a worker. validate may be nil to skip schema checks.
func NewMirrorWorker(source sheets.RecordReader, store Snapshotter, validate func([]string) error, interval time.Duration, logger *log.Logger) *MirrorWorker {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &MirrorWorker{
		source:   source,
		store:    store,
		validate: validate,
		interval: interval,
		logger:   logger.WithComponent(log.ComponentWorker),
		now:      time.Now,
	}
}

// Mirror fetches the live table and saves it as a new snapshot. A table that
// fails schema validation is not saved so the last good snapshot survives.
func (w *MirrorWorker) Mirror(ctx context.Context) (int64, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	started := w.now()
	table, err := w.source.ReadTable(ctx)
	if err != nil {
		return 0, fmt.Errorf("read %s: %w", w.source.SourceID(), err)
	}
	if w.validate != nil {
		if err := w.validate(table.Columns); err != nil {
			return 0, err
		}
	}

	id, err := w.store.SaveSnapshot(ctx, w.source.SourceID(), table)
	if err != nil {
		return 0, fmt.Errorf("save snapshot: %w", err)
	}
	w.lastMirror = started

	w.logger.InfoContext(ctx, "Source mirrored",
		log.FieldSource, w.source.SourceID(),
		log.FieldSnapshotID, id,
		log.FieldRows, table.Len(),
		log.FieldDuration, time.Since(started).Milliseconds())
	return id, nil
}

// HandleRefreshMessage mirrors unless a mirror already started after the
// request was made.
func (w *MirrorWorker) HandleRefreshMessage(ctx context.Context, msg *amqp.RefreshMessage) error {
	w.mu.Lock()
	fresh := !w.lastMirror.IsZero() && !msg.RequestedAt.After(w.lastMirror)
	w.mu.Unlock()
	if fresh {
		w.logger.DebugContext(ctx, "Refresh already satisfied",
			log.FieldSource, msg.Source,
			"requested_at", msg.RequestedAt)
		return nil
	}

	w.logger.InfoContext(ctx, "Processing refresh message",
		log.FieldSource, msg.Source,
		"reason", msg.Reason)
	_, err := w.Mirror(ctx)
	return err
}

// Run mirrors once, then keeps mirroring on the interval and on refresh
// messages from consumer (which may be nil) until ctx is cancelled.
func (w *MirrorWorker) Run(ctx context.Context, consumer RefreshConsumer) error {
	if _, err := w.Mirror(ctx); err != nil {
		w.logger.ErrorContext(ctx, "Startup mirror failed", log.FieldError, err)
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		ticker := time.NewTicker(w.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-ticker.C:
				if _, err := w.Mirror(ctx); err != nil {
					w.logger.ErrorContext(ctx, "Periodic mirror failed",
						log.FieldError, err,
						log.FieldErrorKind, string(core.KindOf(err)))
				}
			}
		}
	})

	if consumer != nil {
		g.Go(func() error {
			return consumer.ConsumeRefresh(ctx, w.HandleRefreshMessage)
		})
	}

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
