// internal/session/push.go
package session

import (
	"context"

	"github.com/jason-s-yu/kalooki/internal/events"
	"github.com/jason-s-yu/kalooki/internal/models"
)

var _ events.Handler = (*Session)(nil)

// OnGameSession is a lobby message; a running game ignores it.
func (s *Session) OnGameSession(_ context.Context, resp models.GameResponse) error {
	s.logger.WithField("players", resp.Players).Debug("ignoring roster update during game")
	return nil
}

// OnStartGame arrives again each time a new round is dealt. It clears the
// round-over and did-draw flags and invalidates any end-of-round fetch still
// in flight.
func (s *Session) OnStartGame(context.Context) error {
	s.mu.Lock()
	gen := s.generation
	s.roundSeq++
	s.mu.Unlock()
	if !s.commit(gen, func(v *View) {
		v.Turn.RoundOver = false
		v.Turn.DidDraw = false
	}) {
		return ErrClosed
	}
	s.logger.Info("new round started")
	return nil
}

// OnGameState treats the push as "a newer snapshot exists" and fetches it.
// The payload is never trusted, and each push gets its own fetch.
func (s *Session) OnGameState(context.Context) error {
	s.refreshInBackground("GameState", nil)
	return nil
}

// OnEndRound fetches the final snapshot of the round and, with it, marks the
// round over and captures the team totals. If a new round starts before the
// fetch lands, only the snapshot is applied.
func (s *Session) OnEndRound(context.Context) error {
	s.mu.Lock()
	seq := s.roundSeq
	s.mu.Unlock()
	s.refreshInBackground("EndRound", func(v *View) {
		// runs under s.mu
		if s.roundSeq != seq {
			return
		}
		v.Turn.RoundOver = true
		v.Turn.DidDraw = false
		v.LastRound = &RoundTotals{
			Team1: v.Snapshot.Team1TotalPoints,
			Team2: v.Snapshot.Team2TotalPoints,
		}
	})
	return nil
}

// OnEndGame marks the game finished. It is advisory: actions are still sent
// if attempted, and the server will refuse them.
func (s *Session) OnEndGame(context.Context) error {
	s.mu.Lock()
	gen := s.generation
	s.mu.Unlock()
	if !s.commit(gen, func(v *View) { v.Turn.GameOver = true }) {
		return ErrClosed
	}
	s.logger.Info("game over")
	return nil
}
