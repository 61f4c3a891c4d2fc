// internal/client/lobby.go
package client

import (
	"context"
	"net/http"
	"strings"

	"github.com/jason-s-yu/kalooki/internal/models"
)

// RegisterPlayer claims a username and returns the push-channel URL for it.
func (c *Client) RegisterPlayer(ctx context.Context, username string) (models.PlayerResponse, error) {
	var resp models.PlayerResponse
	if strings.TrimSpace(username) == "" {
		return resp, &PreconditionError{Op: "player-register", Reason: "username is empty"}
	}
	err := c.do(ctx, "player-register", http.MethodPost, "player-register", nil, models.RegisterPlayerRequest{Username: username}, &resp)
	return resp, err
}

// UnregisterPlayer releases the username and leaves any lobby it joined.
func (c *Client) UnregisterPlayer(ctx context.Context, username string) error {
	if username == "" || strings.Contains(username, "/") {
		return &PreconditionError{Op: "player-unregister", Reason: "username must be non-empty and contain no '/'"}
	}
	return c.do(ctx, "player-unregister", http.MethodDelete, "player-register/"+username, nil, nil, nil)
}

// RegisterGame joins (or creates) the lobby named gameIdentifier.
func (c *Client) RegisterGame(ctx context.Context, gameIdentifier, username string) (models.GameResponse, error) {
	var resp models.GameResponse
	body := models.RegisterGameRequest{GameIdentifier: gameIdentifier, PlayerUsername: username}
	err := c.do(ctx, "game-register", http.MethodPost, "game-register", nil, body, &resp)
	return resp, err
}

// StartGame asks the server to start a round of gameID.
func (c *Client) StartGame(ctx context.Context, gameID string) error {
	return c.do(ctx, "game-start", http.MethodPost, "game-start", nil, models.StartGameRequest{GameID: gameID}, nil)
}

// Lobby lists the open game sessions.
func (c *Client) Lobby(ctx context.Context) (models.GameSessionListResponse, error) {
	var resp models.GameSessionListResponse
	err := c.do(ctx, "lobby", http.MethodGet, "lobby", nil, nil, &resp)
	return resp, err
}

// Health pings the server.
func (c *Client) Health(ctx context.Context) error {
	return c.do(ctx, "health", http.MethodGet, "health", nil, nil, nil)
}
