package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"salesdash/internal/amqp"
	"salesdash/internal/core"
)

type fakeSource struct {
	mu    sync.Mutex
	table core.Table
	err   error
	reads int
}

func (f *fakeSource) SourceID() string { return "fake:live" }

func (f *fakeSource) ReadTable(context.Context) (core.Table, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reads++
	return f.table, f.err
}

type fakeStore struct {
	mu     sync.Mutex
	saved  []core.Table
	source string
}

func (s *fakeStore) SaveSnapshot(_ context.Context, source string, t core.Table) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saved = append(s.saved, t)
	s.source = source
	return int64(len(s.saved)), nil
}

func (s *fakeStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.saved)
}

type fakeConsumer struct {
	messages []*amqp.RefreshMessage
}

func (c *fakeConsumer) ConsumeRefresh(ctx context.Context, handler func(context.Context, *amqp.RefreshMessage) error) error {
	for _, m := range c.messages {
		if err := handler(ctx, m); err != nil {
			return err
		}
	}
	<-ctx.Done()
	return ctx.Err()
}

func sampleTable() core.Table {
	return core.Table{Columns: []string{"受注日", "金額"}, Records: []core.Record{{"受注日": "2023-05-01", "金額": "100"}}}
}

func TestMirror(t *testing.T) {
	src := &fakeSource{table: sampleTable()}
	store := &fakeStore{}
	w := NewMirrorWorker(src, store, nil, time.Hour, nil)

	id, err := w.Mirror(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), id)
	assert.Equal(t, "fake:live", store.source)
}

func TestMirrorSkipsInvalidSchema(t *testing.T) {
	src := &fakeSource{table: sampleTable()}
	store := &fakeStore{}
	validate := func([]string) error { return core.SchemaMismatch("validate schema", []string{"商流"}) }
	w := NewMirrorWorker(src, store, validate, time.Hour, nil)

	_, err := w.Mirror(context.Background())
	assert.Equal(t, core.KindSchemaMismatch, core.KindOf(err))
	assert.Zero(t, store.count())
}

func TestMirrorReadError(t *testing.T) {
	src := &fakeSource{err: core.FetchError("read", errors.New("timeout"))}
	store := &fakeStore{}
	w := NewMirrorWorker(src, store, nil, time.Hour, nil)

	_, err := w.Mirror(context.Background())
	assert.Equal(t, core.KindFetch, core.KindOf(err))
	assert.Zero(t, store.count())
}

func TestHandleRefreshMessageSkipsStaleRequests(t *testing.T) {
	src := &fakeSource{table: sampleTable()}
	store := &fakeStore{}
	w := NewMirrorWorker(src, store, nil, time.Hour, nil)
	now := time.Date(2024, 4, 1, 12, 0, 0, 0, time.UTC)
	w.now = func() time.Time { return now }

	ctx := context.Background()
	require.NoError(t, w.HandleRefreshMessage(ctx, &amqp.RefreshMessage{Source: "x", RequestedAt: now.Add(-time.Minute)}))
	assert.Equal(t, 1, store.count(), "first request always mirrors")

	require.NoError(t, w.HandleRefreshMessage(ctx, &amqp.RefreshMessage{Source: "x", RequestedAt: now.Add(-time.Second)}))
	assert.Equal(t, 1, store.count(), "request older than the last mirror is satisfied")

	require.NoError(t, w.HandleRefreshMessage(ctx, &amqp.RefreshMessage{Source: "x", RequestedAt: now.Add(time.Second)}))
	assert.Equal(t, 2, store.count())
}

func TestRunMirrorsOnStartupAndMessages(t *testing.T) {
	src := &fakeSource{table: sampleTable()}
	store := &fakeStore{}
	w := NewMirrorWorker(src, store, nil, time.Hour, nil)

	consumer := &fakeConsumer{messages: []*amqp.RefreshMessage{
		{Source: "x", RequestedAt: time.Now().Add(time.Hour)},
	}}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx, consumer) }()

	require.Eventually(t, func() bool { return store.count() == 2 }, time.Second, 10*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Run did not stop after cancel")
	}
}
