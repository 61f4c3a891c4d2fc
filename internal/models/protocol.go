// internal/models/protocol.go
package models

import (
	"encoding/json"
	"fmt"
)

// RegisterPlayerRequest is the body of POST player-register.
type RegisterPlayerRequest struct {
	Username string `json:"username"`
}

// PlayerResponse is returned by player-register.
type PlayerResponse struct {
	Username      string  `json:"username"`
	GameSessionID *string `json:"game_session_id"`
	WebsocketURL  string  `json:"websocket_url"`
}

// RegisterGameRequest is the body of POST game-register.
type RegisterGameRequest struct {
	GameIdentifier string `json:"game_identifier"`
	PlayerUsername string `json:"player_username"`
}

// GameResponse describes a lobby. It is returned by game-register and is also
// the payload of a GameSession push.
type GameResponse struct {
	GameID      string   `json:"game_id"`
	Players     []string `json:"players"`
	MaxCapacity int      `json:"max_capacity,omitempty"`
	URL         string   `json:"url,omitempty"`
}

// GameSessionListResponse is returned by GET lobby.
type GameSessionListResponse struct {
	Games []GameResponse `json:"games"`
}

// StartGameRequest is the body of POST game-start.
type StartGameRequest struct {
	GameID string `json:"game_id"`
}

// DiscardRequest is the body of POST discard-card.
type DiscardRequest struct {
	GameID    string `json:"game_id"`
	CardIndex int    `json:"card_index"`
}

// CardIndicesRequest is the body shared by player-open, player-add-points and
// player-pickup-discard.
type CardIndicesRequest struct {
	GameID      string `json:"game_id"`
	CardIndices []int  `json:"card_indices"`
}

// ResponseType tags a push frame.
type ResponseType string

const (
	ResponseGameSession ResponseType = "GameSession"
	ResponseStartGame   ResponseType = "StartGameResponse"
	ResponseGameState   ResponseType = "GameState"
	ResponseEndRound    ResponseType = "EndRound"
	ResponseEndGame     ResponseType = "EndGame"
)

// Frame is one inbound WebSocket message.
type Frame struct {
	ResponseType ResponseType    `json:"response_type"`
	Data         json.RawMessage `json:"data,omitempty"`
}

// NewFrame marshals data into a frame of the given type. A nil data becomes {}.
func NewFrame(t ResponseType, data interface{}) (Frame, error) {
	if data == nil {
		return Frame{ResponseType: t, Data: json.RawMessage("{}")}, nil
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return Frame{}, fmt.Errorf("marshal %s payload: %w", t, err)
	}
	return Frame{ResponseType: t, Data: raw}, nil
}
