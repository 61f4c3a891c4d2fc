// cmd/kalooki/render.go
package main

import (
	"fmt"
	"strings"

	"github.com/jason-s-yu/kalooki/internal/models"
	"github.com/jason-s-yu/kalooki/internal/session"
)

func render(id session.Identity, v session.View) {
	var b strings.Builder
	snap := v.Snapshot

	turnName := id.PlayerName(snap.Turn)
	if turnName == "" {
		turnName = fmt.Sprintf("player %d", snap.Turn)
	}
	fmt.Fprintf(&b, "turn: %s", turnName)
	if v.MyTurn() {
		b.WriteString(" (you)")
	}
	b.WriteString("\n")

	if snap.TopDiscard != nil {
		fmt.Fprintf(&b, "discard: %s\n", snap.TopDiscard)
	} else {
		b.WriteString("discard: empty\n")
	}
	writePile(&b, "team 1", snap.Team1Points, snap.Team1TotalPoints)
	writePile(&b, "team 2", snap.Team2Points, snap.Team2TotalPoints)

	b.WriteString("hand:\n")
	for _, e := range snap.PlayerHand {
		mark := " "
		if e.Index < len(v.Selection) && v.Selection[e.Index] {
			mark = "*"
		}
		fmt.Fprintf(&b, " %s %2d  %-18s %3d\n", mark, e.Index, e.Card, e.Card.DisplayPoints())
	}

	var can []string
	if v.CanDraw() {
		can = append(can, "draw")
	}
	if v.CanPickupPile() {
		can = append(can, "pickup")
	}
	if v.CanAct() {
		can = append(can, "open", "points", "discard")
	}
	if len(can) > 0 {
		fmt.Fprintf(&b, "you can: %s\n", strings.Join(can, ", "))
	}
	switch {
	case v.Turn.GameOver:
		b.WriteString("the game is over\n")
	case v.Turn.RoundOver:
		b.WriteString("the round is over\n")
	}
	fmt.Print(b.String())
}

func writePile(b *strings.Builder, label string, pile models.TeamPointPile, total int) {
	fmt.Fprintf(b, "%s: %d points (%d on the table)\n", label, total, pile.DisplayTotal())
	for _, bucket := range pile.Buckets() {
		cards := make([]string, 0, len(pile[bucket]))
		for _, c := range pile[bucket] {
			cards = append(cards, c.String())
		}
		fmt.Fprintf(b, "   %-6s %s\n", bucket, strings.Join(cards, ", "))
	}
}
