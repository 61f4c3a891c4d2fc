// internal/events/events.go
package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jason-s-yu/kalooki/internal/models"
)

// ErrHandOff is returned by a handler to stop the listener without closing
// the socket, so the next screen can take it over.
var ErrHandOff = errors.New("listener handed off")

// Handler receives push notifications. Each method is called on the
// listener's goroutine, in frame order, and must not block on network I/O.
type Handler interface {
	OnGameSession(ctx context.Context, resp models.GameResponse) error
	OnStartGame(ctx context.Context) error
	OnGameState(ctx context.Context) error
	OnEndRound(ctx context.Context) error
	OnEndGame(ctx context.Context) error
}

// BaseHandler implements Handler with no-ops. Embed it and override what a
// screen cares about.
type BaseHandler struct{}

func (BaseHandler) OnGameSession(context.Context, models.GameResponse) error { return nil }
func (BaseHandler) OnStartGame(context.Context) error                        { return nil }
func (BaseHandler) OnGameState(context.Context) error                        { return nil }
func (BaseHandler) OnEndRound(context.Context) error                         { return nil }
func (BaseHandler) OnEndGame(context.Context) error                          { return nil }

// Dispatch routes one frame to h. handled is false for tags this client does
// not know; those are ignored rather than treated as errors.
func Dispatch(ctx context.Context, h Handler, f models.Frame) (handled bool, err error) {
	switch f.ResponseType {
	case models.ResponseGameSession:
		var resp models.GameResponse
		if len(f.Data) > 0 {
			if err := json.Unmarshal(f.Data, &resp); err != nil {
				return true, fmt.Errorf("decode %s payload: %w", f.ResponseType, err)
			}
		}
		return true, h.OnGameSession(ctx, resp)
	case models.ResponseStartGame:
		return true, h.OnStartGame(ctx)
	case models.ResponseGameState:
		return true, h.OnGameState(ctx)
	case models.ResponseEndRound:
		return true, h.OnEndRound(ctx)
	case models.ResponseEndGame:
		return true, h.OnEndGame(ctx)
	}
	return false, nil
}
