// internal/tableserver/conn.go
package tableserver

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/jason-s-yu/kalooki/internal/models"
	"github.com/sirupsen/logrus"
)

// Close codes the server uses when it drops a push socket itself.
const (
	StatusUnregistered websocket.StatusCode = 3001 // the player unregistered while connected
	StatusReplaced     websocket.StatusCode = 3002 // a newer socket connected for the same player
)

// playerConn is one player's push socket.
type playerConn struct {
	username string
	ws       *websocket.Conn
	out      chan models.Frame
	cancel   context.CancelFunc
	logger   *logrus.Logger

	kickOnce sync.Once
}

func newPlayerConn(username string, ws *websocket.Conn, cancel context.CancelFunc, logger *logrus.Logger) *playerConn {
	return &playerConn{
		username: username,
		ws:       ws,
		out:      make(chan models.Frame, 32),
		cancel:   cancel,
		logger:   logger,
	}
}

// kick closes the socket with status, then stops its pumps. The close
// handshake runs on its own goroutine.
func (c *playerConn) kick(status websocket.StatusCode, reason string) {
	c.kickOnce.Do(func() {
		c.logger.Infof("closing socket for %s: %s (%d)", c.username, reason, status)
		go func() {
			if err := c.ws.Close(status, reason); err != nil {
				c.logger.Debugf("close for %s: %v", c.username, err)
			}
			c.cancel()
		}()
	})
}

// Write queues f without blocking. A full queue drops the frame.
func (c *playerConn) Write(f models.Frame) {
	select {
	case c.out <- f:
	default:
		c.logger.Warnf("playerConn Write WARNING: queue for %s full. Dropped %s frame.", c.username, f.ResponseType)
	}
}

// writePump drains the queue onto the socket and pings it periodically.
func (c *playerConn) writePump(ctx context.Context, ws *websocket.Conn) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case f := <-c.out:
			data, err := json.Marshal(f)
			if err != nil {
				c.logger.Warnf("Failed to marshal %s frame for %s: %v", f.ResponseType, c.username, err)
				continue
			}
			writeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			err = ws.Write(writeCtx, websocket.MessageText, data)
			cancel()
			if err != nil {
				c.logger.Warnf("Failed to write to websocket for %s: %v", c.username, err)
				c.cancel()
				return
			}
		case <-ticker.C:
			pingCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
			err := ws.Ping(pingCtx)
			cancel()
			if err != nil {
				c.logger.Warnf("Failed to ping %s: %v. Assuming disconnect.", c.username, err)
				c.cancel()
				return
			}
		}
	}
}
