// internal/historian/historian.go
package historian

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/jason-s-yu/kalooki/internal/journal"
	"github.com/sirupsen/logrus"
)

// Source yields journal records; *journal.Redis satisfies it.
type Source interface {
	Pop(ctx context.Context, timeout time.Duration) (journal.Record, bool, error)
}

// Store persists a batch of records; *database.ActionStore satisfies it.
type Store interface {
	InsertActions(ctx context.Context, recs []journal.Record) error
}

// Service drains the journal queue into the store in batches. A batch is
// written when it reaches batchSize or when flushDelay elapses, whichever
// comes first.
type Service struct {
	src        Source
	store      Store
	logger     *logrus.Logger
	batchSize  int
	flushDelay time.Duration
	popTimeout time.Duration

	batchMu sync.Mutex
	batch   []journal.Record
}

// Option configures a Service.
type Option func(*Service)

// WithBatchSize sets the size that forces a flush.
func WithBatchSize(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.batchSize = n
		}
	}
}

// WithFlushDelay sets the periodic flush interval.
func WithFlushDelay(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.flushDelay = d
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *logrus.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// New constructs a Service.
func New(src Source, store Store, opts ...Option) *Service {
	s := &Service{
		src:        src,
		store:      store,
		logger:     logrus.StandardLogger(),
		batchSize:  20,
		flushDelay: 500 * time.Millisecond,
		popTimeout: time.Second,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.batch = make([]journal.Record, 0, s.batchSize)
	return s
}

// Run pops records until ctx is cancelled, then flushes what is left.
func (s *Service) Run(ctx context.Context) error {
	s.logger.Info("historian started")
	defer s.logger.Info("historian stopped")

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		ticker := time.NewTicker(s.flushDelay)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.Flush(ctx)
			}
		}
	}()

	for ctx.Err() == nil {
		rec, ok, err := s.src.Pop(ctx, s.popTimeout)
		if err != nil {
			if ctx.Err() != nil {
				break
			}
			s.logger.WithError(err).Error("pop journal record")
			if errors.Is(err, context.DeadlineExceeded) {
				continue
			}
			// back off so a dead Redis does not spin the loop
			select {
			case <-ctx.Done():
			case <-time.After(s.popTimeout):
			}
			continue
		}
		if !ok {
			continue
		}
		s.add(ctx, rec)
	}
	wg.Wait()

	flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	s.Flush(flushCtx)
	return nil
}

// add appends rec and flushes once the batch is full.
func (s *Service) add(ctx context.Context, rec journal.Record) {
	s.batchMu.Lock()
	s.batch = append(s.batch, rec)
	full := len(s.batch) >= s.batchSize
	s.batchMu.Unlock()
	if full {
		s.Flush(ctx)
	}
}

// Flush writes the pending batch in one transaction. A failed batch is put
// back in front of newer records and retried on the next flush.
func (s *Service) Flush(ctx context.Context) {
	s.batchMu.Lock()
	defer s.batchMu.Unlock()

	if len(s.batch) == 0 {
		return
	}
	pending := make([]journal.Record, len(s.batch))
	copy(pending, s.batch)

	if err := s.store.InsertActions(ctx, pending); err != nil {
		s.logger.WithError(err).WithField("count", len(pending)).Error("flush actions")
		return
	}
	s.batch = s.batch[:0]
	s.logger.Debugf("Flushed %d actions to DB.", len(pending))
}

// Pending reports how many records are waiting for a flush.
func (s *Service) Pending() int {
	s.batchMu.Lock()
	defer s.batchMu.Unlock()
	return len(s.batch)
}
