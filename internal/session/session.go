// internal/session/session.go
package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jason-s-yu/kalooki/internal/client"
	"github.com/jason-s-yu/kalooki/internal/journal"
	"github.com/jason-s-yu/kalooki/internal/models"
	"github.com/sirupsen/logrus"
)

// ErrClosed is returned for work that finished after Close. Its result was
// discarded.
var ErrClosed = errors.New("session closed")

// Gateway is the slice of the server's HTTP surface a game session uses.
// *client.Client satisfies it.
type Gateway interface {
	GameState(ctx context.Context, gameID string, playerID int) (models.GameStateSnapshot, error)
	DrawCard(ctx context.Context, gameID string, playerID int) error
	DiscardCard(ctx context.Context, gameID string, cardIndex int) error
	OpenMeld(ctx context.Context, gameID string, indices []int) error
	AddPoints(ctx context.Context, gameID string, indices []int) error
	PickupDiscard(ctx context.Context, gameID string, indices []int) error
}

// Session owns the local state of one game screen: the latest snapshot, the
// selection over its hand, and the turn flags. All state lives behind mu and
// every snapshot replacement resets the selection under the same lock.
type Session struct {
	identity  Identity
	gateway   Gateway
	journal   journal.Publisher
	logger    *logrus.Entry
	sessionID uuid.UUID

	mu          sync.Mutex
	view        View
	generation  uint64
	closed      bool
	actionIndex int
	roundSeq    uint64
	subscribers []func(View)

	// notifyCh holds at most one pending delivery for the dispatcher.
	notifyCh chan struct{}

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// Option configures a Session.
type Option func(*Session)

// WithJournal publishes every action outcome to p.
func WithJournal(p journal.Publisher) Option {
	return func(s *Session) { s.journal = p }
}

// WithLogger sets the logger.
func WithLogger(l *logrus.Logger) Option {
	return func(s *Session) { s.logger = logrus.NewEntry(l) }
}

// WithSessionID sets the id stamped on journal records.
func WithSessionID(id uuid.UUID) Option {
	return func(s *Session) { s.sessionID = id }
}

// New creates a session for identity. Nothing is fetched until Refresh or the
// first push.
func New(identity Identity, gw Gateway, opts ...Option) *Session {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Session{
		identity:  identity,
		gateway:   gw,
		journal:   journal.Nop{},
		sessionID: uuid.New(),
		view:      View{PlayerID: identity.PlayerID(), Selection: []bool{}},
		notifyCh:  make(chan struct{}, 1),
		ctx:       ctx,
		cancel:    cancel,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logrus.NewEntry(logrus.StandardLogger())
	}
	s.logger = s.logger.WithFields(logrus.Fields{
		"game_id":   identity.GameID(),
		"player_id": identity.PlayerID(),
	})
	go s.dispatch()
	return s
}

// Identity returns the session's identity.
func (s *Session) Identity() Identity { return s.identity }

// View returns a consistent copy of the current state.
func (s *Session) View() View {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.view.Clone()
}

// Toggle flips the selection of hand position i.
func (s *Session) Toggle(i int) error {
	s.mu.Lock()
	next, err := s.view.Toggled(i)
	if err == nil {
		s.view = next
	}
	s.mu.Unlock()
	if err != nil {
		return err
	}
	s.notify()
	return nil
}

// SelectedIndices lists the currently selected hand positions.
func (s *Session) SelectedIndices() []int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.view.SelectedIndices()
}

// Subscribe registers fn to be called with the latest view after changes.
// Callbacks run one at a time on the session's dispatcher goroutine and may
// call back into the session. Changes that land while a callback runs are
// delivered once, as the view current at delivery.
func (s *Session) Subscribe(fn func(View)) {
	s.mu.Lock()
	s.subscribers = append(s.subscribers, fn)
	s.mu.Unlock()
}

// Close tears the session down: in-flight requests are cancelled, results that
// arrive afterwards are dropped, and background fetches are waited for.
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.generation++
	s.mu.Unlock()

	s.cancel()
	s.wg.Wait()
	s.logger.Debug("session closed")
}

// notify schedules a delivery to subscribers without blocking.
func (s *Session) notify() {
	select {
	case s.notifyCh <- struct{}{}:
	default:
	}
}

// dispatch delivers pending notifications until the session closes.
func (s *Session) dispatch() {
	for {
		select {
		case <-s.ctx.Done():
			return
		case <-s.notifyCh:
		}

		s.mu.Lock()
		if s.closed {
			s.mu.Unlock()
			return
		}
		subs := append([]func(View){}, s.subscribers...)
		v := s.view.Clone()
		s.mu.Unlock()

		for _, fn := range subs {
			fn(v)
		}
	}
}

// begin ties ctx to the session lifetime and records the generation the
// operation started under.
func (s *Session) begin(ctx context.Context) (uint64, context.Context, context.CancelFunc, error) {
	s.mu.Lock()
	gen, closed := s.generation, s.closed
	s.mu.Unlock()
	if closed {
		return 0, nil, nil, ErrClosed
	}
	opCtx, cancel := context.WithCancel(ctx)
	stop := context.AfterFunc(s.ctx, cancel)
	return gen, opCtx, func() {
		stop()
		cancel()
	}, nil
}

// commit applies mutate if the session is still on generation gen.
func (s *Session) commit(gen uint64, mutate func(*View)) bool {
	s.mu.Lock()
	if s.generation != gen {
		s.mu.Unlock()
		return false
	}
	next := s.view.Clone()
	mutate(&next)
	s.view = next
	s.mu.Unlock()
	s.notify()
	return true
}

// background runs fn on its own goroutine, tracked by Close.
func (s *Session) background(fn func(ctx context.Context)) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		fn(s.ctx)
	}()
	return true
}

// record publishes an action outcome without holding up the caller.
func (s *Session) record(action string, payload map[string]interface{}, err error) {
	s.mu.Lock()
	s.actionIndex++
	rec := journal.Record{
		SessionID:   s.sessionID,
		GameID:      s.identity.GameID(),
		PlayerID:    s.identity.PlayerID(),
		ActionIndex: s.actionIndex,
		Action:      action,
		Outcome:     client.KindOf(err).String(),
		Payload:     payload,
		Timestamp:   time.Now().UnixMilli(),
	}
	s.mu.Unlock()
	if err != nil {
		rec.Error = err.Error()
	}

	fields := logrus.Fields{"action": action, "outcome": rec.Outcome}
	if err != nil {
		s.logger.WithFields(fields).WithError(err).Info("action failed")
	} else {
		s.logger.WithFields(fields).Debug("action succeeded")
	}

	s.background(func(context.Context) {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if perr := s.journal.Publish(ctx, rec); perr != nil {
			s.logger.WithError(perr).Warn("failed to journal action")
		}
	})
}
