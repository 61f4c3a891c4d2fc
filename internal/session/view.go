// internal/session/view.go
package session

import (
	"fmt"

	"github.com/jason-s-yu/kalooki/internal/client"
	"github.com/jason-s-yu/kalooki/internal/models"
)

// TurnState is local, optimistic bookkeeping. It gates which controls are
// offered and authorizes nothing.
type TurnState struct {
	DidDraw   bool
	RoundOver bool
	GameOver  bool
}

// RoundTotals are the team totals captured from the snapshot fetched in
// response to the last EndRound.
type RoundTotals struct {
	Team1 int
	Team2 int
}

// View is everything the presentation layer reads. Selection always has the
// same length as Snapshot.PlayerHand.
type View struct {
	PlayerID  int
	Snapshot  models.GameStateSnapshot
	Selection []bool
	Turn      TurnState
	// LastRound is nil until the first round ends.
	LastRound *RoundTotals
	// Version counts applied snapshots.
	Version uint64
}

// WithSnapshot replaces the snapshot and resets the selection to all-false,
// sized to the new hand.
func (v View) WithSnapshot(snap models.GameStateSnapshot) View {
	next := v.Clone()
	next.Snapshot = snap.Clone()
	next.Selection = make([]bool, len(snap.PlayerHand))
	next.Version++
	return next
}

// Toggled flips the selection at i.
func (v View) Toggled(i int) (View, error) {
	if i < 0 || i >= len(v.Selection) {
		return v, &client.PreconditionError{
			Op:     "toggle",
			Reason: fmt.Sprintf("card %d is outside a hand of %d", i, len(v.Selection)),
		}
	}
	next := v.Clone()
	next.Selection[i] = !next.Selection[i]
	return next, nil
}

// SelectedIndices lists the selected hand positions in ascending order.
func (v View) SelectedIndices() []int {
	out := []int{}
	for i, sel := range v.Selection {
		if sel {
			out = append(out, i)
		}
	}
	return out
}

// SelectedCards returns the hand entries behind SelectedIndices.
func (v View) SelectedCards() []models.HandEntry {
	var out []models.HandEntry
	for _, i := range v.SelectedIndices() {
		out = append(out, v.Snapshot.PlayerHand[i])
	}
	return out
}

// MyTurn reports whether the snapshot says it is this player's turn.
func (v View) MyTurn() bool { return v.PlayerID == v.Snapshot.Turn }

// CanDraw gates drawing from the stock.
func (v View) CanDraw() bool { return v.MyTurn() && !v.Turn.DidDraw }

// CanAct gates open, add-points and discard.
func (v View) CanAct() bool { return v.MyTurn() && v.Turn.DidDraw }

// CanPickupPile gates taking the discard pile.
func (v View) CanPickupPile() bool { return v.MyTurn() && !v.Turn.DidDraw }

// Clone deep-copies the view.
func (v View) Clone() View {
	out := v
	out.Snapshot = v.Snapshot.Clone()
	out.Selection = append([]bool(nil), v.Selection...)
	if out.Selection == nil {
		out.Selection = []bool{}
	}
	if v.LastRound != nil {
		totals := *v.LastRound
		out.LastRound = &totals
	}
	return out
}
