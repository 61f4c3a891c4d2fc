// internal/models/card.go
package models

import (
	"encoding/json"
	"fmt"
)

// Value is a card rank as the server spells it.
type Value string

const (
	Ace   Value = "A"
	Two   Value = "2"
	Three Value = "3"
	Four  Value = "4"
	Five  Value = "5"
	Six   Value = "6"
	Seven Value = "7"
	Eight Value = "8"
	Nine  Value = "9"
	Ten   Value = "10"
	Jack  Value = "J"
	Queen Value = "Q"
	King  Value = "K"
	Joker Value = "Joker"
)

// Values lists every rank in deck order, Joker last.
var Values = []Value{Ace, Two, Three, Four, Five, Six, Seven, Eight, Nine, Ten, Jack, Queen, King, Joker}

// Suit is a card suit. Red and Black only ever accompany a Joker.
type Suit string

const (
	Spades   Suit = "Spades"
	Hearts   Suit = "Hearts"
	Diamonds Suit = "Diamonds"
	Clubs    Suit = "Clubs"
	Red      Suit = "Red"
	Black    Suit = "Black"
)

// Suits lists the four regular suits.
var Suits = []Suit{Spades, Hearts, Diamonds, Clubs}

// Valid reports whether v is a known rank.
func (v Value) Valid() bool {
	for _, known := range Values {
		if v == known {
			return true
		}
	}
	return false
}

// Valid reports whether s is a known suit.
func (s Suit) Valid() bool {
	switch s {
	case Spades, Hearts, Diamonds, Clubs, Red, Black:
		return true
	}
	return false
}

// IsJokerColor reports whether s is one of the two Joker-only suits.
func (s Suit) IsJokerColor() bool {
	return s == Red || s == Black
}

// Card is an immutable value. Both fields always come from the server together.
type Card struct {
	Value Value `json:"value"`
	Suit  Suit  `json:"suit"`
}

// Validate checks the rank/suit pairing.
func (c Card) Validate() error {
	if !c.Value.Valid() {
		return fmt.Errorf("unknown card value %q", c.Value)
	}
	if !c.Suit.Valid() {
		return fmt.Errorf("unknown card suit %q", c.Suit)
	}
	if c.Value == Joker && !c.Suit.IsJokerColor() {
		return fmt.Errorf("joker cannot have suit %q", c.Suit)
	}
	if c.Value != Joker && c.Suit.IsJokerColor() {
		return fmt.Errorf("suit %q is only valid for a joker, got value %q", c.Suit, c.Value)
	}
	return nil
}

// UnmarshalJSON refuses partial cards: a missing value or suit is an error,
// never a zero field.
func (c *Card) UnmarshalJSON(data []byte) error {
	var raw struct {
		Value *Value `json:"value"`
		Suit  *Suit  `json:"suit"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw.Value == nil || raw.Suit == nil {
		return fmt.Errorf("card %s: value and suit must both be present", string(data))
	}
	card := Card{Value: *raw.Value, Suit: *raw.Suit}
	if err := card.Validate(); err != nil {
		return err
	}
	*c = card
	return nil
}

func (c Card) String() string {
	if c.Value == Joker {
		return string(c.Suit) + " Joker"
	}
	return string(c.Value) + " of " + string(c.Suit)
}

// DisplayPoints is the table-side point value of the card. It is a display
// convenience only; the server's team totals are authoritative.
func (c Card) DisplayPoints() int {
	switch c.Value {
	case Ace:
		return 15
	case Two:
		return 20
	case Three, Four, Five, Six, Seven, Eight, Nine:
		return 5
	case Ten, Jack, King:
		return 10
	case Queen:
		if c.Suit == Spades {
			return 100
		}
		return 10
	case Joker:
		return 50
	}
	return 0
}
