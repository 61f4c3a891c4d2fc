package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCardUnmarshalRejectsPartialCards(t *testing.T) {
	var c Card
	assert.Error(t, json.Unmarshal([]byte(`{"value":"A"}`), &c))
	assert.Error(t, json.Unmarshal([]byte(`{"suit":"Hearts"}`), &c))
	assert.Equal(t, Card{}, c, "a rejected card must not leave partial data behind")
}

func TestCardUnmarshalJokerPairing(t *testing.T) {
	cases := []struct {
		body string
		ok   bool
	}{
		{`{"value":"Joker","suit":"Red"}`, true},
		{`{"value":"Joker","suit":"Black"}`, true},
		{`{"value":"Joker","suit":"Spades"}`, false},
		{`{"value":"7","suit":"Red"}`, false},
		{`{"value":"10","suit":"Clubs"}`, true},
		{`{"value":"11","suit":"Clubs"}`, false},
		{`{"value":"K","suit":"Stars"}`, false},
	}
	for _, tc := range cases {
		var c Card
		err := json.Unmarshal([]byte(tc.body), &c)
		if tc.ok {
			assert.NoError(t, err, tc.body)
		} else {
			assert.Error(t, err, tc.body)
		}
	}
}

func TestDisplayPoints(t *testing.T) {
	assert.Equal(t, 15, Card{Ace, Hearts}.DisplayPoints())
	assert.Equal(t, 20, Card{Two, Clubs}.DisplayPoints())
	assert.Equal(t, 5, Card{Seven, Diamonds}.DisplayPoints())
	assert.Equal(t, 10, Card{Queen, Hearts}.DisplayPoints())
	assert.Equal(t, 100, Card{Queen, Spades}.DisplayPoints())
	assert.Equal(t, 50, Card{Joker, Black}.DisplayPoints())

	pile := TeamPointPile{
		"A":  {{Ace, Hearts}, {Ace, Spades}},
		"Q":  {{Queen, Spades}},
		"":   {},
		"10": {{Ten, Clubs}},
	}
	assert.Equal(t, 140, pile.DisplayTotal())
	assert.Equal(t, 4, pile.Len())
	assert.Equal(t, []string{"", "10", "A", "Q"}, pile.Buckets())
}

func TestSnapshotIndexesHandInServerOrder(t *testing.T) {
	body := `{
		"player_hand": [{"value":"3","suit":"Spades"},{"value":"Joker","suit":"Red"},{"value":"K","suit":"Hearts"}],
		"team1_points": {"A": [{"value":"A","suit":"Clubs"}]},
		"team2_points": {},
		"team_1_total_points": 15,
		"team_2_total_points": 0,
		"top_discard": {"value":"9","suit":"Diamonds"},
		"turn": 2
	}`
	var resp GameStateResponse
	require.NoError(t, json.Unmarshal([]byte(body), &resp))

	snap := resp.Snapshot()
	require.Len(t, snap.PlayerHand, 3)
	for i, entry := range snap.PlayerHand {
		assert.Equal(t, i, entry.Index)
	}
	assert.Equal(t, Card{Joker, Red}, snap.PlayerHand[1].Card)
	assert.Equal(t, 2, snap.Turn)
	require.NotNil(t, snap.TopDiscard)
	assert.Equal(t, Card{Nine, Diamonds}, *snap.TopDiscard)

	clone := snap.Clone()
	clone.PlayerHand[0].Card = Card{Ace, Spades}
	clone.Team1Points["A"][0] = Card{Two, Spades}
	assert.Equal(t, Card{Three, Spades}, snap.PlayerHand[0].Card)
	assert.Equal(t, Card{Ace, Clubs}, snap.Team1Points["A"][0])
}

func TestSnapshotRejectsMalformedHand(t *testing.T) {
	var resp GameStateResponse
	err := json.Unmarshal([]byte(`{"player_hand":[{"value":"Q"}],"turn":0}`), &resp)
	assert.Error(t, err)
}

func TestNewFrameDefaultsToEmptyObject(t *testing.T) {
	f, err := NewFrame(ResponseEndGame, nil)
	require.NoError(t, err)
	data, err := json.Marshal(f)
	require.NoError(t, err)
	assert.JSONEq(t, `{"response_type":"EndGame","data":{}}`, string(data))
}
