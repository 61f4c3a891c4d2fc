// internal/client/actions.go
package client

import (
	"context"
	"fmt"
	"net/http"

	"github.com/jason-s-yu/kalooki/internal/models"
)

// GameState fetches the current table as seen by playerID.
func (c *Client) GameState(ctx context.Context, gameID string, playerID int) (models.GameStateSnapshot, error) {
	var resp models.GameStateResponse
	if err := c.do(ctx, "game-state", http.MethodGet, "game-state/", gameQuery(gameID, playerID), nil, &resp); err != nil {
		return models.GameStateSnapshot{}, err
	}
	return resp.Snapshot(), nil
}

// DrawCard draws from the stock for playerID.
func (c *Client) DrawCard(ctx context.Context, gameID string, playerID int) error {
	return c.do(ctx, "draw-card", http.MethodGet, "draw-card/", gameQuery(gameID, playerID), nil, nil)
}

// DiscardCard discards the card at cardIndex of the current hand.
func (c *Client) DiscardCard(ctx context.Context, gameID string, cardIndex int) error {
	if cardIndex < 0 {
		return &PreconditionError{Op: "discard-card", Reason: fmt.Sprintf("card index %d is negative", cardIndex)}
	}
	body := models.DiscardRequest{GameID: gameID, CardIndex: cardIndex}
	return c.do(ctx, "discard-card", http.MethodPost, "discard-card", nil, body, nil)
}

// OpenMeld lays down the cards at indices to open.
func (c *Client) OpenMeld(ctx context.Context, gameID string, indices []int) error {
	return c.postIndices(ctx, "player-open", gameID, indices, true)
}

// AddPoints banks the cards at indices into the team's point pile.
func (c *Client) AddPoints(ctx context.Context, gameID string, indices []int) error {
	return c.postIndices(ctx, "player-add-points", gameID, indices, true)
}

// PickupDiscard takes the discard pile, offering the cards at indices as the
// meld it is picked up against.
func (c *Client) PickupDiscard(ctx context.Context, gameID string, indices []int) error {
	return c.postIndices(ctx, "player-pickup-discard", gameID, indices, false)
}

func (c *Client) postIndices(ctx context.Context, op, gameID string, indices []int, needCards bool) error {
	if needCards && len(indices) == 0 {
		return &PreconditionError{Op: op, Reason: "no cards selected"}
	}
	seen := make(map[int]bool, len(indices))
	for _, i := range indices {
		if i < 0 {
			return &PreconditionError{Op: op, Reason: fmt.Sprintf("card index %d is negative", i)}
		}
		if seen[i] {
			return &PreconditionError{Op: op, Reason: fmt.Sprintf("card index %d selected twice", i)}
		}
		seen[i] = true
	}
	if indices == nil {
		indices = []int{}
	}
	body := models.CardIndicesRequest{GameID: gameID, CardIndices: indices}
	return c.do(ctx, op, http.MethodPost, op, nil, body, nil)
}
