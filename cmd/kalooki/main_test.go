// cmd/kalooki/main_test.go
package main

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/jason-s-yu/kalooki/internal/client"
	"github.com/jason-s-yu/kalooki/internal/models"
	"github.com/jason-s-yu/kalooki/internal/session"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stateGateway answers GameState and counts the fetches; actions are unused.
type stateGateway struct {
	mu      sync.Mutex
	fetches int
	resp    models.GameStateResponse
	err     error
}

func (g *stateGateway) GameState(context.Context, string, int) (models.GameStateSnapshot, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.fetches++
	if g.err != nil {
		return models.GameStateSnapshot{}, g.err
	}
	return g.resp.Snapshot(), nil
}

func (g *stateGateway) DrawCard(context.Context, string, int) error { return nil }
func (g *stateGateway) DiscardCard(context.Context, string, int) error { return nil }
func (g *stateGateway) OpenMeld(context.Context, string, []int) error { return nil }
func (g *stateGateway) AddPoints(context.Context, string, []int) error { return nil }
func (g *stateGateway) PickupDiscard(context.Context, string, []int) error { return nil }

func testIdentity(t *testing.T) session.Identity {
	t.Helper()
	id, err := session.NewIdentity("1", 2, []string{"ann", "bob", "cat", "dan"})
	require.NoError(t, err)
	return id
}

func TestEnterGameLoadsTheTable(t *testing.T) {
	logger, _ := test.NewNullLogger()
	gw := &stateGateway{resp: models.GameStateResponse{
		PlayerHand: []models.Card{
			{Value: models.Ace, Suit: models.Spades},
			{Value: models.Queen, Suit: models.Spades},
		},
		Turn: 2,
	}}

	sess, err := enterGame(context.Background(), testIdentity(t), gw, session.WithLogger(logger))
	require.NoError(t, err)
	defer sess.Close()

	v := sess.View()
	assert.Equal(t, 1, gw.fetches)
	assert.Len(t, v.Snapshot.PlayerHand, 2)
	assert.Len(t, v.Selection, 2)
	assert.True(t, v.CanDraw())
}

func TestEnterGameKeepsSessionWhenFetchFails(t *testing.T) {
	logger, _ := test.NewNullLogger()
	gw := &stateGateway{err: &client.TransportError{Op: "game-state", Err: errors.New("connection refused")}}

	sess, err := enterGame(context.Background(), testIdentity(t), gw, session.WithLogger(logger))
	require.NotNil(t, sess)
	defer sess.Close()
	assert.Equal(t, client.KindTransport, client.KindOf(err))
	assert.Empty(t, sess.View().Snapshot.PlayerHand)
}
