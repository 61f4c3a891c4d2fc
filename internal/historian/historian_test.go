// internal/historian/historian_test.go
package historian

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jason-s-yu/kalooki/internal/journal"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// chanSource pops from a channel, honouring the timeout like BLPop.
type chanSource struct {
	ch chan journal.Record
}

func (c *chanSource) Pop(ctx context.Context, timeout time.Duration) (journal.Record, bool, error) {
	select {
	case rec := <-c.ch:
		return rec, true, nil
	case <-time.After(timeout):
		return journal.Record{}, false, nil
	case <-ctx.Done():
		return journal.Record{}, false, ctx.Err()
	}
}

type memStore struct {
	mu      sync.Mutex
	batches [][]journal.Record
	fail    int
}

func (m *memStore) InsertActions(_ context.Context, recs []journal.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail > 0 {
		m.fail--
		return errors.New("db down")
	}
	m.batches = append(m.batches, append([]journal.Record(nil), recs...))
	return nil
}

func (m *memStore) total() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, b := range m.batches {
		n += len(b)
	}
	return n
}

func record(i int) journal.Record {
	return journal.Record{SessionID: uuid.New(), GameID: "1", ActionIndex: i, Action: "draw", Outcome: "ok"}
}

func TestFlushOnBatchSize(t *testing.T) {
	logger, _ := test.NewNullLogger()
	store := &memStore{}
	src := &chanSource{ch: make(chan journal.Record, 8)}
	svc := New(src, store, WithBatchSize(3), WithFlushDelay(time.Hour), WithLogger(logger))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Run(ctx) }()

	for i := 1; i <= 3; i++ {
		src.ch <- record(i)
	}
	assert.Eventually(t, func() bool { return store.total() == 3 }, 2*time.Second, 10*time.Millisecond)

	store.mu.Lock()
	require.Len(t, store.batches, 1)
	assert.Len(t, store.batches[0], 3)
	store.mu.Unlock()

	cancel()
	require.NoError(t, <-done)
}

func TestFlushOnTimer(t *testing.T) {
	logger, _ := test.NewNullLogger()
	store := &memStore{}
	src := &chanSource{ch: make(chan journal.Record, 8)}
	svc := New(src, store, WithBatchSize(100), WithFlushDelay(20*time.Millisecond), WithLogger(logger))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = svc.Run(ctx) }()

	src.ch <- record(1)
	assert.Eventually(t, func() bool { return store.total() == 1 }, 2*time.Second, 10*time.Millisecond)
}

func TestRunFlushesRemainderOnShutdown(t *testing.T) {
	logger, _ := test.NewNullLogger()
	store := &memStore{}
	src := &chanSource{ch: make(chan journal.Record, 8)}
	svc := New(src, store, WithBatchSize(100), WithFlushDelay(time.Hour), WithLogger(logger))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Run(ctx) }()

	src.ch <- record(1)
	src.ch <- record(2)
	assert.Eventually(t, func() bool { return svc.Pending() == 2 }, 2*time.Second, 10*time.Millisecond)

	cancel()
	require.NoError(t, <-done)
	assert.Equal(t, 2, store.total())
}

func TestFailedFlushIsRetried(t *testing.T) {
	logger, hook := test.NewNullLogger()
	store := &memStore{fail: 1}
	svc := New(&chanSource{ch: make(chan journal.Record)}, store, WithLogger(logger))

	svc.add(context.Background(), record(1))
	svc.Flush(context.Background())
	assert.Equal(t, 1, svc.Pending())
	assert.NotEmpty(t, hook.AllEntries())

	svc.Flush(context.Background())
	assert.Equal(t, 0, svc.Pending())
	assert.Equal(t, 1, store.total())
}
