// internal/tableserver/rules.go
package tableserver

import (
	"math/rand/v2"

	"github.com/jason-s-yu/kalooki/internal/models"
)

const (
	handSize = 13

	// gameTarget ends the game once a team's running total reaches it.
	gameTarget = 1000
)

// openStatus is what a player's team has opened, seen from that player.
type openStatus int

const (
	nobodyOpened openStatus = iota
	partnerOpened
	selfOpened
	bothOpened
)

func (s openStatus) opened() bool { return s == selfOpened || s == bothOpened }

// newDeck builds two 54-card decks: 52 regular cards plus a red and a black
// Joker each.
func newDeck() []models.Card {
	deck := make([]models.Card, 0, 108)
	for i := 0; i < 2; i++ {
		for _, suit := range models.Suits {
			for _, v := range models.Values {
				if v == models.Joker {
					continue
				}
				deck = append(deck, models.Card{Value: v, Suit: suit})
			}
		}
		deck = append(deck,
			models.Card{Value: models.Joker, Suit: models.Red},
			models.Card{Value: models.Joker, Suit: models.Black},
		)
	}
	return deck
}

// Shuffle randomizes deck in place.
func Shuffle(deck []models.Card) {
	rand.Shuffle(len(deck), func(i, j int) { deck[i], deck[j] = deck[j], deck[i] })
}

// bucketName is the point pile label for a rank.
func bucketName(v models.Value) string {
	switch v {
	case models.Ace:
		return "Ace"
	case models.Two:
		return "Two"
	case models.Three:
		return "Three"
	case models.Four:
		return "Four"
	case models.Five:
		return "Five"
	case models.Six:
		return "Six"
	case models.Seven:
		return "Seven"
	case models.Eight:
		return "Eight"
	case models.Nine:
		return "Nine"
	case models.Ten:
		return "Ten"
	case models.Jack:
		return "Jack"
	case models.Queen:
		return "Queen"
	case models.King:
		return "King"
	}
	return "Joker"
}

// rankCounts tallies non-wild ranks. Twos are wild and counted apart; Jokers
// are ignored.
func rankCounts(cards []models.Card) (counts map[models.Value]int, twos int) {
	counts = make(map[models.Value]int)
	for _, c := range cards {
		switch c.Value {
		case models.Joker:
		case models.Two:
			twos++
		default:
			counts[c.Value]++
		}
	}
	return counts, twos
}

// canOpen reports whether cards form exactly the sets needed to open: three
// sets of three when nobody on the team has opened, one once the partner has.
// A set may be completed with twos. A player never opens twice.
func canOpen(status openStatus, cards []models.Card) bool {
	var want int
	switch status {
	case nobodyOpened:
		want = 3
	case partnerOpened:
		want = 1
	default:
		return false
	}

	counts, twos := rankCounts(cards)
	var singles, doubles, triples int
	for _, n := range counts {
		switch n {
		case 1:
			singles++
		case 2:
			doubles++
		case 3:
			triples++
		default:
			return false
		}
	}
	if twos-2*singles != doubles {
		return false
	}
	return singles+doubles+triples == want
}

// validPoints reports whether cards may be banked: every rank must already
// have a bucket on the team pile or be completed to a set with twos.
func validPoints(pile models.TeamPointPile, cards []models.Card) bool {
	counts, twos := rankCounts(cards)
	for v, n := range counts {
		if len(pile[bucketName(v)]) > 0 {
			continue
		}
		switch n {
		case 1:
			twos -= 2
		case 2:
			twos--
		}
		if twos < 0 {
			return false
		}
	}
	return true
}

// canTakeTop reports whether the top discard may be picked up at all.
func canTakeTop(top *models.Card, status openStatus, pile models.TeamPointPile) bool {
	if top == nil || top.Value == models.Joker || top.Value == models.Two {
		return false
	}
	return len(pile[bucketName(top.Value)]) == 0 || !status.opened()
}

// handPenalty is what cards left in hand cost at the end of a round.
func handPenalty(hand []models.Card) int {
	total := 0
	for _, c := range hand {
		total += c.DisplayPoints()
	}
	return total
}
