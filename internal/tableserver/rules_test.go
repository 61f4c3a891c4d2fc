// internal/tableserver/rules_test.go
package tableserver

import (
	"testing"

	"github.com/jason-s-yu/kalooki/internal/models"
	"github.com/stretchr/testify/assert"
)

func cards(values ...models.Value) []models.Card {
	out := make([]models.Card, len(values))
	for i, v := range values {
		out[i] = models.Card{Value: v, Suit: models.Clubs}
		if v == models.Joker {
			out[i].Suit = models.Black
		}
	}
	return out
}

func TestNewDeck(t *testing.T) {
	deck := newDeck()
	assert.Len(t, deck, 108)

	seen := map[models.Card]int{}
	for _, c := range deck {
		assert.NoError(t, c.Validate())
		seen[c]++
	}
	assert.Len(t, seen, 54)
	for c, n := range seen {
		assert.Equal(t, 2, n, c.String())
	}
}

func TestCanOpen(t *testing.T) {
	const (
		A = models.Ace
		W = models.Two
		T = models.Three
		F = models.Four
		V = models.Five
		S = models.Seven
		J = models.Joker
	)
	cases := []struct {
		name   string
		status openStatus
		hand   []models.Card
		want   bool
	}{
		{"three natural sets", nobodyOpened, cards(T, T, T, F, F, F, V, V, V), true},
		{"pair completed by a two", nobodyOpened, cards(T, T, W, F, F, F, V, V, V), true},
		{"single completed by two twos", nobodyOpened, cards(T, W, W, F, F, F, V, V, V), true},
		{"jokers do not count", nobodyOpened, cards(T, T, T, F, F, F, V, V, V, J), true},
		{"only two sets", nobodyOpened, cards(T, T, T, F, F, F), false},
		{"pair without a wild", nobodyOpened, cards(T, T, F, F, F, V, V, V), false},
		{"spare two", nobodyOpened, cards(T, T, T, F, F, F, V, V, V, W), false},
		{"four of a kind", nobodyOpened, cards(A, A, A, A, F, F, F, V, V, V), false},
		{"one set after partner", partnerOpened, cards(S, S, S), true},
		{"two sets after partner", partnerOpened, cards(S, S, S, T, T, T), false},
		{"already opened", selfOpened, cards(S, S, S), false},
		{"team opened", bothOpened, cards(S, S, S), false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, canOpen(tc.status, tc.hand))
		})
	}
}

func TestValidPoints(t *testing.T) {
	pile := models.TeamPointPile{"Seven": cards(models.Seven, models.Seven, models.Seven)}

	assert.True(t, validPoints(pile, cards(models.Seven)))
	assert.False(t, validPoints(pile, cards(models.Eight)))
	assert.True(t, validPoints(pile, cards(models.Eight, models.Two, models.Two)))
	assert.True(t, validPoints(pile, cards(models.Eight, models.Eight, models.Two)))
	assert.True(t, validPoints(pile, cards(models.Eight, models.Eight, models.Eight)))
	assert.True(t, validPoints(pile, cards(models.Joker)))
	assert.False(t, validPoints(pile, cards(models.Eight, models.Nine, models.Two, models.Two)))
}

func TestCanTakeTop(t *testing.T) {
	pile := models.TeamPointPile{"King": cards(models.King, models.King, models.King)}
	king := models.Card{Value: models.King, Suit: models.Hearts}
	queen := models.Card{Value: models.Queen, Suit: models.Hearts}
	two := models.Card{Value: models.Two, Suit: models.Hearts}
	joker := models.Card{Value: models.Joker, Suit: models.Red}

	assert.False(t, canTakeTop(nil, nobodyOpened, pile))
	assert.False(t, canTakeTop(&two, nobodyOpened, pile))
	assert.False(t, canTakeTop(&joker, nobodyOpened, pile))
	assert.True(t, canTakeTop(&queen, selfOpened, pile))
	assert.True(t, canTakeTop(&king, partnerOpened, pile))
	assert.False(t, canTakeTop(&king, selfOpened, pile))
}

func TestHandPenalty(t *testing.T) {
	hand := []models.Card{
		{Value: models.Queen, Suit: models.Spades},
		{Value: models.Ace, Suit: models.Hearts},
		{Value: models.Joker, Suit: models.Red},
	}
	assert.Equal(t, 165, handPenalty(hand))
	assert.Equal(t, 0, handPenalty(nil))
}
