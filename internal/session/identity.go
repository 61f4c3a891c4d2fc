// internal/session/identity.go
package session

import (
	"errors"
	"fmt"
)

// Identity is the fixed (game, player, roster) triple of a connected client.
// It is built once when the lobby hands off to the game and never changes.
type Identity struct {
	gameID      string
	playerID    int
	playerNames []string
}

// NewIdentity validates and copies its arguments.
func NewIdentity(gameID string, playerID int, playerNames []string) (Identity, error) {
	if gameID == "" {
		return Identity{}, errors.New("identity: game id is empty")
	}
	if playerID < 0 {
		return Identity{}, fmt.Errorf("identity: player id %d is negative", playerID)
	}
	if len(playerNames) > 0 && playerID >= len(playerNames) {
		return Identity{}, fmt.Errorf("identity: player id %d outside roster of %d", playerID, len(playerNames))
	}
	return Identity{
		gameID:      gameID,
		playerID:    playerID,
		playerNames: append([]string(nil), playerNames...),
	}, nil
}

func (id Identity) GameID() string { return id.gameID }

func (id Identity) PlayerID() int { return id.playerID }

// PlayerNames returns a copy of the roster in seat order.
func (id Identity) PlayerNames() []string {
	return append([]string(nil), id.playerNames...)
}

// PlayerName returns the name seated at index i, or "" if unknown.
func (id Identity) PlayerName(i int) string {
	if i < 0 || i >= len(id.playerNames) {
		return ""
	}
	return id.playerNames[i]
}
