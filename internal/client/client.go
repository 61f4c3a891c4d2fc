// internal/client/client.go
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jason-s-yu/kalooki/internal/middleware"
	"github.com/sirupsen/logrus"
)

// SessionHeader carries the client session id on every request so server logs
// can be correlated with the action journal.
const SessionHeader = "X-Client-Session"

// maxErrorBody bounds how much of a rejection body is kept for the error message.
const maxErrorBody = 4 << 10

// Client talks to the game server's HTTP surface. One request per call; no
// retries. Every failure comes back as one of the error types in errors.go.
type Client struct {
	baseURL   *url.URL
	http      *http.Client
	logger    *logrus.Logger
	sessionID uuid.UUID
	timeout   time.Duration
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default http.Client (and its logging transport).
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithLogger sets the logger used for request logging.
func WithLogger(l *logrus.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// WithSessionID pins the id sent in SessionHeader.
func WithSessionID(id uuid.UUID) Option {
	return func(c *Client) { c.sessionID = id }
}

// WithTimeout sets the per-request timeout of the default http.Client.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

// New builds a client for a base URL such as "http://127.0.0.1:8000/".
func New(baseURL string, opts ...Option) (*Client, error) {
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url %q: %w", baseURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("base url %q: unsupported scheme %q", baseURL, u.Scheme)
	}

	c := &Client{
		baseURL:   u,
		sessionID: uuid.New(),
		timeout:   10 * time.Second,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = logrus.StandardLogger()
	}
	if c.http == nil {
		c.http = &http.Client{
			Timeout:   c.timeout,
			Transport: middleware.LogTransport(c.logger, http.DefaultTransport),
		}
	}
	return c, nil
}

// SessionID returns the id attached to every request.
func (c *Client) SessionID() uuid.UUID { return c.sessionID }

// BaseURL returns the server root this client talks to.
func (c *Client) BaseURL() string { return c.baseURL.String() }

// do sends one request. body is JSON-encoded when non-nil; out is decoded from
// a 2xx response when non-nil.
func (c *Client) do(ctx context.Context, op, method, path string, query url.Values, body, out interface{}) error {
	ref := &url.URL{Path: path}
	if len(query) > 0 {
		ref.RawQuery = query.Encode()
	}
	target := c.baseURL.ResolveReference(ref)

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return &PreconditionError{Op: op, Reason: fmt.Sprintf("encode request: %v", err)}
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, target.String(), reader)
	if err != nil {
		return &TransportError{Op: op, Err: err}
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(SessionHeader, c.sessionID.String())

	resp, err := c.http.Do(req)
	if err != nil {
		return &TransportError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &RejectionError{Op: op, Status: resp.StatusCode, Body: strings.TrimSpace(string(msg))}
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &ProtocolError{Op: op, Err: err}
	}
	return nil
}

func gameQuery(gameID string, playerID int) url.Values {
	return url.Values{
		"game-id": {gameID},
		"player":  {strconv.Itoa(playerID)},
	}
}
