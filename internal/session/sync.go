// internal/session/sync.go
package session

import (
	"context"
	"errors"
)

// Refresh fetches the current snapshot and replaces the local one wholesale,
// resetting the selection in the same step. Results are applied in the order
// fetches complete, so the most recently completed fetch always wins.
func (s *Session) Refresh(ctx context.Context) (View, error) {
	return s.refresh(ctx, nil)
}

// refresh fetches a snapshot and, under one lock, applies it together with
// mutate (if any).
func (s *Session) refresh(ctx context.Context, mutate func(*View)) (View, error) {
	gen, opCtx, release, err := s.begin(ctx)
	if err != nil {
		return View{}, err
	}
	defer release()

	snap, err := s.gateway.GameState(opCtx, s.identity.GameID(), s.identity.PlayerID())
	if err != nil {
		if s.ctx.Err() != nil {
			return View{}, ErrClosed
		}
		s.logger.WithError(err).Warn("could not update the game state")
		return View{}, err
	}

	s.mu.Lock()
	if s.generation != gen {
		s.mu.Unlock()
		return View{}, ErrClosed
	}
	next := s.view.WithSnapshot(snap)
	if mutate != nil {
		mutate(&next)
	}
	s.view = next
	out := s.view.Clone()
	s.mu.Unlock()

	s.logger.WithField("hand_size", len(out.Snapshot.PlayerHand)).Debug("snapshot applied")
	s.notify()
	return out, nil
}

// refreshInBackground starts a refresh that outlives the caller; every call
// issues its own fetch, none are coalesced.
func (s *Session) refreshInBackground(reason string, mutate func(*View)) {
	s.background(func(ctx context.Context) {
		if _, err := s.refresh(ctx, mutate); err != nil && !errors.Is(err, ErrClosed) {
			s.logger.WithField("reason", reason).WithError(err).Warn("background refresh failed")
		}
	})
}
