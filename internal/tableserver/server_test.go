// internal/tableserver/server_test.go
package tableserver_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/jason-s-yu/kalooki/internal/client"
	"github.com/jason-s-yu/kalooki/internal/events"
	"github.com/jason-s-yu/kalooki/internal/lobby"
	"github.com/jason-s-yu/kalooki/internal/session"
	"github.com/jason-s-yu/kalooki/internal/tableserver"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startServer(t *testing.T) (*tableserver.Server, *httptest.Server, *logrus.Logger) {
	t.Helper()
	logger, _ := test.NewNullLogger()
	srv := tableserver.NewServer(logger, 4, tableserver.WithShuffle(nil))
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return srv, ts, logger
}

func newClient(t *testing.T, ts *httptest.Server, logger *logrus.Logger) *client.Client {
	t.Helper()
	c, err := client.New(ts.URL, client.WithLogger(logger))
	require.NoError(t, err)
	return c
}

func TestRegistrationEndpoints(t *testing.T) {
	_, ts, logger := startServer(t)
	c := newClient(t, ts, logger)
	ctx := context.Background()

	require.NoError(t, c.Health(ctx))

	resp, err := c.RegisterPlayer(ctx, "ann")
	require.NoError(t, err)
	assert.Equal(t, "ann", resp.Username)
	assert.Nil(t, resp.GameSessionID)
	assert.Equal(t, "ws"+strings.TrimPrefix(ts.URL, "http")+"/ws/ann", resp.WebsocketURL)

	_, err = c.RegisterPlayer(ctx, "ann")
	var rej *client.RejectionError
	require.True(t, errors.As(err, &rej))
	assert.Equal(t, http.StatusConflict, rej.Status)

	_, err = c.RegisterGame(ctx, "1", "nobody")
	require.True(t, errors.As(err, &rej))
	assert.Equal(t, http.StatusNotFound, rej.Status)

	game, err := c.RegisterGame(ctx, "1", "ann")
	require.NoError(t, err)
	assert.Equal(t, "1", game.GameID)
	assert.Equal(t, []string{"ann"}, game.Players)
	assert.Equal(t, 4, game.MaxCapacity)

	list, err := c.Lobby(ctx)
	require.NoError(t, err)
	require.Len(t, list.Games, 1)
	assert.Equal(t, []string{"ann"}, list.Games[0].Players)

	err = c.StartGame(ctx, "1")
	require.True(t, errors.As(err, &rej))
	assert.Equal(t, http.StatusConflict, rej.Status, "table is not full")

	require.NoError(t, c.UnregisterPlayer(ctx, "ann"))
	list, err = c.Lobby(ctx)
	require.NoError(t, err)
	assert.Empty(t, list.Games[0].Players)
}

func TestWebSocketRequiresRegistration(t *testing.T) {
	_, ts, logger := startServer(t)
	_, err := events.Dial(context.Background(), "ws"+strings.TrimPrefix(ts.URL, "http")+"/ws/ghost", logger)
	assert.ErrorContains(t, err, "not registered")
}

func TestUnregisterClosesSocket(t *testing.T) {
	_, ts, logger := startServer(t)
	c := newClient(t, ts, logger)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	resp, err := c.RegisterPlayer(ctx, "ann")
	require.NoError(t, err)
	conn, err := events.Dial(ctx, resp.WebsocketURL, logger)
	require.NoError(t, err)
	defer conn.CloseNow()

	require.NoError(t, c.UnregisterPlayer(ctx, "ann"))

	_, _, err = conn.Read(ctx)
	assert.Equal(t, tableserver.StatusUnregistered, websocket.CloseStatus(err))
}

func TestNewSocketReplacesOld(t *testing.T) {
	_, ts, logger := startServer(t)
	c := newClient(t, ts, logger)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	resp, err := c.RegisterPlayer(ctx, "ann")
	require.NoError(t, err)
	first, err := events.Dial(ctx, resp.WebsocketURL, logger)
	require.NoError(t, err)
	defer first.CloseNow()
	second, err := events.Dial(ctx, resp.WebsocketURL, logger)
	require.NoError(t, err)
	defer second.CloseNow()

	_, _, err = first.Read(ctx)
	assert.Equal(t, tableserver.StatusReplaced, websocket.CloseStatus(err))

	// the newer socket still receives pushes
	_, err = c.RegisterGame(ctx, "1", "ann")
	require.NoError(t, err)
	_, msg, err := second.Read(ctx)
	require.NoError(t, err)
	assert.Contains(t, string(msg), "GameSession")
}

func TestActionsOutsideAGame(t *testing.T) {
	_, ts, logger := startServer(t)
	c := newClient(t, ts, logger)
	ctx := context.Background()

	_, err := c.GameState(ctx, "missing", 0)
	assert.Equal(t, client.KindRejection, client.KindOf(err))
	assert.Equal(t, client.KindRejection, client.KindOf(c.DiscardCard(ctx, "missing", 0)))
	assert.Equal(t, client.KindRejection, client.KindOf(c.OpenMeld(ctx, "missing", []int{0})))
}

// player is one fully wired client: lobby, push socket and, after the deal,
// a game session.
type player struct {
	name  string
	api   *client.Client
	lobby *lobby.Lobby
	conn  *websocket.Conn
	done  chan error
	sess  *session.Session
}

func TestFullTableFlow(t *testing.T) {
	srv, ts, logger := startServer(t)
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	names := []string{"dave", "bob", "carol", "alice"}
	players := make([]*player, len(names))
	for i, name := range names {
		p := &player{name: name, api: newClient(t, ts, logger), done: make(chan error, 1)}
		p.lobby = lobby.New(p.api, lobby.WithLogger(logger))

		_, err := p.lobby.Register(ctx, name)
		require.NoError(t, err)
		p.conn, err = events.Dial(ctx, p.lobby.WebsocketURL(), logger)
		require.NoError(t, err)
		t.Cleanup(func() { p.conn.CloseNow() })
		go func() { p.done <- events.NewListener(p.conn, logger).Run(ctx, p.lobby) }()

		_, err = p.lobby.Join(ctx, "")
		require.NoError(t, err)
		players[i] = p
	}

	for _, p := range players {
		assert.Eventually(t, p.lobby.CanStart, 5*time.Second, 10*time.Millisecond, p.name)
	}
	require.NoError(t, players[0].lobby.Start(ctx))

	bySeat := make(map[int]*player)
	for _, p := range players {
		select {
		case err := <-p.done:
			require.ErrorIs(t, err, events.ErrHandOff)
		case <-ctx.Done():
			t.Fatalf("%s never left the lobby", p.name)
		}
		id, ok := p.lobby.Identity()
		require.True(t, ok)
		assert.Equal(t, []string{"alice", "bob", "carol", "dave"}, id.PlayerNames())
		assert.Equal(t, p.name, id.PlayerName(id.PlayerID()))

		p.sess = session.New(id, p.api, session.WithLogger(logger))
		t.Cleanup(p.sess.Close)
		sess := p.sess
		conn := p.conn
		go func() { _ = events.NewListener(conn, logger).Run(ctx, sess) }()
		bySeat[id.PlayerID()] = p
	}

	// the GameState push that follows the deal fills every hand
	for _, p := range players {
		sess := p.sess
		assert.Eventually(t, func() bool { return len(sess.View().Snapshot.PlayerHand) == 13 }, 5*time.Second, 10*time.Millisecond, p.name)
	}

	first := bySeat[0].sess
	v := first.View()
	require.True(t, v.CanDraw())
	require.False(t, bySeat[1].sess.View().CanDraw())

	// settled waits until the action's own refresh and the one triggered by
	// its GameState push have both landed, so a late one cannot reset the
	// selection mid-test
	settled := func(s *session.Session, version uint64) {
		assert.Eventually(t, func() bool { return s.View().Version >= version }, 5*time.Second, 10*time.Millisecond)
	}
	base := first.View().Version

	require.NoError(t, first.Draw(ctx))
	settled(first, base+2)
	v = first.View()
	assert.True(t, v.Turn.DidDraw)
	require.Len(t, v.Snapshot.PlayerHand, 14)

	assert.ErrorIs(t, first.Discard(ctx), client.ErrPrecondition)
	require.NoError(t, first.Toggle(13))
	require.NoError(t, first.Discard(ctx))
	settled(first, base+4)
	assert.False(t, first.View().Turn.DidDraw)

	second := bySeat[1].sess
	assert.Eventually(t, func() bool { return second.View().CanDraw() }, 5*time.Second, 10*time.Millisecond)

	// a discard out of turn is refused by the table and changes nothing
	require.NoError(t, first.Toggle(0))
	err := first.Discard(ctx)
	assert.Equal(t, client.KindRejection, client.KindOf(err))
	assert.Equal(t, []int{0}, first.SelectedIndices())

	require.NoError(t, srv.EndRound("1"))
	for _, p := range players {
		sess := p.sess
		assert.Eventually(t, func() bool {
			v := sess.View()
			return v.Turn.RoundOver && v.LastRound != nil
		}, 5*time.Second, 10*time.Millisecond, p.name)
	}
	tbl, ok := srv.Table("1")
	require.True(t, ok)
	snap, err := tbl.Snapshot(0)
	require.NoError(t, err)
	assert.Equal(t, session.RoundTotals{Team1: snap.Team1TotalPoints, Team2: snap.Team2TotalPoints}, *first.View().LastRound)

	// the next round is dealt with the same game-start request
	require.NoError(t, bySeat[2].api.StartGame(ctx, "1"))
	for _, p := range players {
		sess := p.sess
		assert.Eventually(t, func() bool {
			v := sess.View()
			return !v.Turn.RoundOver && len(v.Snapshot.PlayerHand) == 13 && v.Snapshot.Turn == 1
		}, 5*time.Second, 10*time.Millisecond, p.name)
	}

	require.NoError(t, srv.EndGame("1"))
	for _, p := range players {
		sess := p.sess
		assert.Eventually(t, func() bool { return sess.View().Turn.GameOver }, 5*time.Second, 10*time.Millisecond, p.name)
	}
}
