// internal/events/listener_test.go
package events

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/jason-s-yu/kalooki/internal/models"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	BaseHandler
	mu     sync.Mutex
	calls  []string
	roster []string
	stopOn string
}

func (r *recorder) add(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, name)
	if name == r.stopOn {
		return ErrHandOff
	}
	return nil
}

func (r *recorder) OnGameSession(_ context.Context, resp models.GameResponse) error {
	r.mu.Lock()
	r.roster = resp.Players
	r.mu.Unlock()
	return r.add("GameSession")
}

func (r *recorder) OnStartGame(context.Context) error { return r.add("StartGameResponse") }
func (r *recorder) OnGameState(context.Context) error { return r.add("GameState") }
func (r *recorder) OnEndRound(context.Context) error  { return r.add("EndRound") }

// pushServer writes raw frames to the first client and then closes normally.
func pushServer(t *testing.T, frames ...string) string {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := websocket.Accept(w, r, nil)
		if !assert.NoError(t, err) {
			return
		}
		ctx := r.Context()
		for _, f := range frames {
			if err := c.Write(ctx, websocket.MessageText, []byte(f)); err != nil {
				return
			}
		}
		// wait for the client to hang up or hand off
		_, _, _ = c.Read(ctx)
		c.Close(websocket.StatusNormalClosure, "")
	}))
	t.Cleanup(srv.Close)
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func TestListenerDispatchesInOrder(t *testing.T) {
	url := pushServer(t,
		`{"response_type":"GameSession","data":{"game_id":"1","players":["b","a"]}}`,
		`{"response_type":"GameState","data":{}}`,
		`{"response_type":"EndRound","data":{}}`,
		`{"response_type":"StartGameResponse","data":{}}`,
	)
	logger, _ := test.NewNullLogger()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn, err := Dial(ctx, url, logger)
	require.NoError(t, err)
	defer conn.CloseNow()

	h := &recorder{stopOn: "StartGameResponse"}
	err = NewListener(conn, logger).Run(ctx, h)
	assert.ErrorIs(t, err, ErrHandOff)
	assert.Equal(t, []string{"GameSession", "GameState", "EndRound", "StartGameResponse"}, h.calls)
	assert.Equal(t, []string{"b", "a"}, h.roster)
}

func TestListenerSkipsUnknownAndMalformedFrames(t *testing.T) {
	url := pushServer(t,
		`{"response_type":"Chat","data":{"msg":"hi"}}`,
		`not json`,
		`{"response_type":"GameSession","data":"oops"}`,
		`{"response_type":"GameState","data":{}}`,
		`{"response_type":"EndRound","data":{}}`,
	)
	logger, hook := test.NewNullLogger()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn, err := Dial(ctx, url, logger)
	require.NoError(t, err)
	defer conn.CloseNow()

	h := &recorder{stopOn: "EndRound"}
	err = NewListener(conn, logger).Run(ctx, h)
	assert.ErrorIs(t, err, ErrHandOff)
	assert.Equal(t, []string{"GameState", "EndRound"}, h.calls)
	assert.NotEmpty(t, hook.AllEntries())
}

func TestListenerReturnsNilOnNormalClose(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := websocket.Accept(w, r, nil)
		if !assert.NoError(t, err) {
			return
		}
		frame, err := models.NewFrame(models.ResponseGameState, nil)
		if !assert.NoError(t, err) {
			return
		}
		_ = wsjson.Write(r.Context(), c, frame)
		c.Close(websocket.StatusNormalClosure, "bye")
	}))
	defer srv.Close()

	logger, _ := test.NewNullLogger()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	conn, err := Dial(ctx, "ws"+strings.TrimPrefix(srv.URL, "http"), logger)
	require.NoError(t, err)

	h := &recorder{}
	assert.NoError(t, NewListener(conn, logger).Run(ctx, h))
	assert.Equal(t, []string{"GameState"}, h.calls)
}

func TestDispatchUnknownTagIsUnhandled(t *testing.T) {
	h := &recorder{}
	handled, err := Dispatch(context.Background(), h, models.Frame{ResponseType: "Mystery"})
	assert.False(t, handled)
	assert.NoError(t, err)
	assert.Empty(t, h.calls)
}

func TestDialUnknownPlayer(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()
	logger, _ := test.NewNullLogger()
	_, err := Dial(context.Background(), "ws"+strings.TrimPrefix(srv.URL, "http"), logger)
	assert.ErrorContains(t, err, "not registered")
}
