// internal/events/listener.go
package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/coder/websocket"
	"github.com/jason-s-yu/kalooki/internal/middleware"
	"github.com/jason-s-yu/kalooki/internal/models"
	"github.com/sirupsen/logrus"
)

// Dial opens the push channel at url.
func Dial(ctx context.Context, url string, logger *logrus.Logger) (*websocket.Conn, error) {
	c, resp, err := websocket.Dial(ctx, url, nil)
	if err != nil {
		if resp != nil && resp.StatusCode == http.StatusNotFound {
			return nil, fmt.Errorf("dial %s: player is not registered: %w", url, err)
		}
		return nil, fmt.Errorf("dial %s: %w", url, err)
	}
	middleware.LogWebSocketConnect(logger, url, "push")
	return c, nil
}

// Listener reads push frames from one connection and hands them to a Handler.
type Listener struct {
	conn   *websocket.Conn
	logger *logrus.Logger
}

// NewListener wraps an open connection.
func NewListener(conn *websocket.Conn, logger *logrus.Logger) *Listener {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Listener{conn: conn, logger: logger}
}

// Run reads frames until the connection closes, ctx is cancelled, or the
// handler returns ErrHandOff. Undecodable frames and handler errors are
// logged and skipped. A normal close returns nil.
func (l *Listener) Run(ctx context.Context, h Handler) error {
	for {
		msgType, data, err := l.conn.Read(ctx)
		if err != nil {
			status := websocket.CloseStatus(err)
			switch {
			case status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway:
				middleware.LogWebSocketDisconnect(l.logger, "", "push", nil)
				return nil
			case ctx.Err() != nil:
				return ctx.Err()
			}
			middleware.LogWebSocketDisconnect(l.logger, "", "push", err)
			return fmt.Errorf("read push frame: %w", err)
		}

		if msgType != websocket.MessageText {
			l.logger.Warnf("Received non-text push frame type %d. Ignoring.", msgType)
			continue
		}

		var frame models.Frame
		if err := json.Unmarshal(data, &frame); err != nil {
			l.logger.WithError(err).Warnf("Invalid push frame: %s", string(data))
			continue
		}

		entry := l.logger.WithField("response_type", frame.ResponseType)
		handled, err := Dispatch(ctx, h, frame)
		if errors.Is(err, ErrHandOff) {
			entry.Debug("listener handing off")
			return ErrHandOff
		}
		if !handled {
			entry.Debug("ignoring unknown push frame")
			continue
		}
		if err != nil {
			entry.WithError(err).Warn("push handler failed")
			continue
		}
		entry.Debug("push frame handled")
	}
}
