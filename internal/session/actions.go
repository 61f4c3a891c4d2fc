// internal/session/actions.go
package session

import (
	"context"
	"errors"
	"fmt"

	"github.com/jason-s-yu/kalooki/internal/client"
)

// Draw draws from the stock. On success did_draw is set and the table is
// refreshed; on any failure of the draw itself local state is untouched.
func (s *Session) Draw(ctx context.Context) error {
	gen, opCtx, release, err := s.begin(ctx)
	if err != nil {
		return err
	}
	err = s.gateway.DrawCard(opCtx, s.identity.GameID(), s.identity.PlayerID())
	release()
	s.record("draw", nil, err)
	if err != nil {
		return err
	}
	if !s.commit(gen, func(v *View) { v.Turn.DidDraw = true }) {
		return ErrClosed
	}
	s.settle(ctx, "draw")
	return nil
}

// Discard discards the single selected card. Any other selection count is
// rejected before a request is made.
func (s *Session) Discard(ctx context.Context) error {
	indices := s.SelectedIndices()
	if len(indices) != 1 {
		err := &client.PreconditionError{
			Op:     "discard",
			Reason: fmt.Sprintf("select exactly one card to discard (%d selected)", len(indices)),
		}
		s.record("discard", nil, err)
		return err
	}

	gen, opCtx, release, err := s.begin(ctx)
	if err != nil {
		return err
	}
	err = s.gateway.DiscardCard(opCtx, s.identity.GameID(), indices[0])
	release()
	s.record("discard", map[string]interface{}{"card_index": indices[0]}, err)
	if err != nil {
		return err
	}
	if !s.commit(gen, func(v *View) { v.Turn.DidDraw = false }) {
		return ErrClosed
	}
	s.settle(ctx, "discard")
	return nil
}

// PickupDiscardPile takes the discard pile against the selected cards. A
// rejection (for example an invalid pile composition) leaves did_draw alone.
func (s *Session) PickupDiscardPile(ctx context.Context) error {
	indices := s.SelectedIndices()
	gen, opCtx, release, err := s.begin(ctx)
	if err != nil {
		return err
	}
	err = s.gateway.PickupDiscard(opCtx, s.identity.GameID(), indices)
	release()
	s.record("pickup_discard", map[string]interface{}{"card_indices": indices}, err)
	if err != nil {
		return err
	}
	if !s.commit(gen, func(v *View) { v.Turn.DidDraw = true }) {
		return ErrClosed
	}
	s.settle(ctx, "pickup_discard")
	return nil
}

// Open lays the selected cards down. Whether the server accepted the meld
// shows up in the next snapshot; nothing local changes here.
func (s *Session) Open(ctx context.Context) error {
	return s.sendSelection(ctx, "open", s.gateway.OpenMeld)
}

// AddPoints banks the selected cards into the team's point pile. Like Open,
// it changes nothing locally.
func (s *Session) AddPoints(ctx context.Context) error {
	return s.sendSelection(ctx, "add_points", s.gateway.AddPoints)
}

func (s *Session) sendSelection(ctx context.Context, action string, send func(context.Context, string, []int) error) error {
	indices := s.SelectedIndices()
	_, opCtx, release, err := s.begin(ctx)
	if err != nil {
		return err
	}
	err = send(opCtx, s.identity.GameID(), indices)
	release()
	s.record(action, map[string]interface{}{"card_indices": indices}, err)
	return err
}

// settle refreshes after an accepted action. The action stands even if the
// refresh fails; the next push or refresh catches the table up.
func (s *Session) settle(ctx context.Context, action string) {
	if _, err := s.Refresh(ctx); err != nil && !errors.Is(err, ErrClosed) {
		s.logger.WithField("action", action).WithError(err).Warn("refresh after action failed")
	}
}
