// internal/models/snapshot.go
package models

import "sort"

// TeamPointPile maps a rank bucket to the cards a team has banked under it.
// Bucket labels are whatever the server sends (including the empty bucket);
// the client treats the pile as a read-only projection.
type TeamPointPile map[string][]Card

// Buckets returns the bucket labels in a stable order for rendering.
func (p TeamPointPile) Buckets() []string {
	keys := make([]string, 0, len(p))
	for k := range p {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Len counts every card in the pile.
func (p TeamPointPile) Len() int {
	n := 0
	for _, cards := range p {
		n += len(cards)
	}
	return n
}

// DisplayTotal sums DisplayPoints over the pile. It can disagree with the
// server-supplied totals; those win.
func (p TeamPointPile) DisplayTotal() int {
	total := 0
	for _, cards := range p {
		for _, c := range cards {
			total += c.DisplayPoints()
		}
	}
	return total
}

// Clone deep-copies the pile.
func (p TeamPointPile) Clone() TeamPointPile {
	if p == nil {
		return nil
	}
	out := make(TeamPointPile, len(p))
	for k, cards := range p {
		out[k] = append([]Card(nil), cards...)
	}
	return out
}

// GameStateResponse is the body returned by GET game-state/.
type GameStateResponse struct {
	PlayerHand       []Card        `json:"player_hand"`
	Team1Points      TeamPointPile `json:"team1_points"`
	Team2Points      TeamPointPile `json:"team2_points"`
	Team1TotalPoints int           `json:"team_1_total_points"`
	Team2TotalPoints int           `json:"team_2_total_points"`
	TopDiscard       *Card         `json:"top_discard,omitempty"`
	Turn             int           `json:"turn"`
}

// HandEntry pairs a card with its position in the hand of the snapshot it came
// from. Index is only meaningful against that snapshot.
type HandEntry struct {
	Card  Card `json:"card"`
	Index int  `json:"index"`
}

// GameStateSnapshot is one complete view of the table. It is replaced
// wholesale on every poll and never patched.
type GameStateSnapshot struct {
	PlayerHand       []HandEntry
	Team1Points      TeamPointPile
	Team2Points      TeamPointPile
	Team1TotalPoints int
	Team2TotalPoints int
	TopDiscard       *Card
	Turn             int
}

// Snapshot converts the wire body, numbering the hand 0..n-1 in server order.
func (r GameStateResponse) Snapshot() GameStateSnapshot {
	hand := make([]HandEntry, len(r.PlayerHand))
	for i, c := range r.PlayerHand {
		hand[i] = HandEntry{Card: c, Index: i}
	}
	snap := GameStateSnapshot{
		PlayerHand:       hand,
		Team1Points:      r.Team1Points.Clone(),
		Team2Points:      r.Team2Points.Clone(),
		Team1TotalPoints: r.Team1TotalPoints,
		Team2TotalPoints: r.Team2TotalPoints,
		Turn:             r.Turn,
	}
	if r.TopDiscard != nil {
		top := *r.TopDiscard
		snap.TopDiscard = &top
	}
	return snap
}

// Clone deep-copies the snapshot.
func (s GameStateSnapshot) Clone() GameStateSnapshot {
	out := s
	out.PlayerHand = append([]HandEntry(nil), s.PlayerHand...)
	out.Team1Points = s.Team1Points.Clone()
	out.Team2Points = s.Team2Points.Clone()
	if s.TopDiscard != nil {
		top := *s.TopDiscard
		out.TopDiscard = &top
	}
	return out
}
