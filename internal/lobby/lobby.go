// internal/lobby/lobby.go
package lobby

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/jason-s-yu/kalooki/internal/client"
	"github.com/jason-s-yu/kalooki/internal/events"
	"github.com/jason-s-yu/kalooki/internal/models"
	"github.com/jason-s-yu/kalooki/internal/session"
	"github.com/sirupsen/logrus"
)

// DefaultCapacity is the table size at which the start control is offered.
const DefaultCapacity = 4

// DefaultGameIdentifier is the table joined when none is given.
const DefaultGameIdentifier = "1"

// Gateway is the lobby slice of the server's HTTP surface. *client.Client
// satisfies it.
type Gateway interface {
	RegisterPlayer(ctx context.Context, username string) (models.PlayerResponse, error)
	UnregisterPlayer(ctx context.Context, username string) error
	RegisterGame(ctx context.Context, gameIdentifier, username string) (models.GameResponse, error)
	StartGame(ctx context.Context, gameID string) error
}

// Lobby drives one client from registration to the start of a game. It
// listens on the push channel until StartGameResponse, then hands the
// identity off to a game session.
type Lobby struct {
	events.BaseHandler

	gw       Gateway
	logger   *logrus.Entry
	capacity int

	mu          sync.Mutex
	username    string
	wsURL       string
	gameID      string
	roster      []string
	identity    *session.Identity
	started     chan struct{}
	subscribers []func([]string)
}

// Option configures a Lobby.
type Option func(*Lobby)

// WithCapacity overrides the table size that enables starting.
func WithCapacity(n int) Option {
	return func(l *Lobby) {
		if n > 0 {
			l.capacity = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *logrus.Logger) Option {
	return func(l *Lobby) { l.logger = logrus.NewEntry(logger) }
}

// New creates a lobby that talks to gw.
func New(gw Gateway, opts ...Option) *Lobby {
	l := &Lobby{
		gw:       gw,
		capacity: DefaultCapacity,
		started:  make(chan struct{}),
	}
	for _, opt := range opts {
		opt(l)
	}
	if l.logger == nil {
		l.logger = logrus.NewEntry(logrus.StandardLogger())
	}
	return l
}

// DefaultUsername makes a throwaway name for players who do not pick one.
func DefaultUsername() string {
	return "Player-" + strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
}

// Register claims username on the server, or a generated name if it is blank.
// The returned websocket_url is where the push channel lives.
func (l *Lobby) Register(ctx context.Context, username string) (models.PlayerResponse, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		username = DefaultUsername()
	}
	resp, err := l.gw.RegisterPlayer(ctx, username)
	if err != nil {
		return models.PlayerResponse{}, err
	}
	if resp.Username == "" {
		resp.Username = username
	}

	l.mu.Lock()
	l.username = resp.Username
	l.wsURL = resp.WebsocketURL
	l.mu.Unlock()

	l.logger.WithField("username", resp.Username).Info("registered player")
	return resp, nil
}

// Join sits the registered player at gameIdentifier ("1" when empty) and
// takes the roster the server returns.
func (l *Lobby) Join(ctx context.Context, gameIdentifier string) (models.GameResponse, error) {
	if gameIdentifier == "" {
		gameIdentifier = DefaultGameIdentifier
	}
	l.mu.Lock()
	username := l.username
	l.mu.Unlock()
	if username == "" {
		return models.GameResponse{}, &client.PreconditionError{Op: "join", Reason: "register a player first"}
	}

	resp, err := l.gw.RegisterGame(ctx, gameIdentifier, username)
	if err != nil {
		return models.GameResponse{}, err
	}
	l.mu.Lock()
	l.gameID = resp.GameID
	l.mu.Unlock()
	l.setRoster(resp.Players)

	l.logger.WithFields(logrus.Fields{
		"game_id": resp.GameID,
		"players": len(resp.Players),
	}).Info("joined game")
	return resp, nil
}

// Start asks the server to deal. It is refused locally until the table is
// full.
func (l *Lobby) Start(ctx context.Context) error {
	l.mu.Lock()
	gameID, n := l.gameID, len(l.roster)
	l.mu.Unlock()
	if gameID == "" {
		return &client.PreconditionError{Op: "start", Reason: "join a game first"}
	}
	if n < l.capacity {
		return &client.PreconditionError{
			Op:     "start",
			Reason: fmt.Sprintf("waiting for players (%d/%d)", n, l.capacity),
		}
	}
	return l.gw.StartGame(ctx, gameID)
}

// Leave unregisters the player. It is a no-op before Register.
func (l *Lobby) Leave(ctx context.Context) error {
	l.mu.Lock()
	username := l.username
	l.username = ""
	l.mu.Unlock()
	if username == "" {
		return nil
	}
	if err := l.gw.UnregisterPlayer(ctx, username); err != nil {
		return err
	}
	l.logger.WithField("username", username).Info("left lobby")
	return nil
}

// Username is the registered name, or "" before Register.
func (l *Lobby) Username() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.username
}

// WebsocketURL is the push channel address returned at registration.
func (l *Lobby) WebsocketURL() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.wsURL
}

// GameID is the joined game, or "".
func (l *Lobby) GameID() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.gameID
}

// Roster returns the players at the table in seat order.
func (l *Lobby) Roster() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.roster...)
}

// CanStart reports whether the table is full.
func (l *Lobby) CanStart() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.gameID != "" && len(l.roster) >= l.capacity
}

// Subscribe registers fn for roster changes.
func (l *Lobby) Subscribe(fn func(roster []string)) {
	l.mu.Lock()
	l.subscribers = append(l.subscribers, fn)
	l.mu.Unlock()
}

// Started is closed once the game has started and Identity is available.
func (l *Lobby) Started() <-chan struct{} { return l.started }

// Identity is the session identity built at game start.
func (l *Lobby) Identity() (session.Identity, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.identity == nil {
		return session.Identity{}, false
	}
	return *l.identity, true
}

// OnGameSession replaces the roster when the push is for our table.
func (l *Lobby) OnGameSession(_ context.Context, resp models.GameResponse) error {
	l.mu.Lock()
	gameID := l.gameID
	l.mu.Unlock()
	if gameID != "" && resp.GameID != "" && resp.GameID != gameID {
		l.logger.WithField("game_id", resp.GameID).Debug("ignoring roster for another table")
		return nil
	}
	l.setRoster(resp.Players)
	return nil
}

// OnStartGame builds the identity and stops the lobby's listener so the game
// session can take over the socket.
func (l *Lobby) OnStartGame(context.Context) error {
	l.mu.Lock()
	if l.identity != nil {
		l.mu.Unlock()
		return events.ErrHandOff
	}
	seat := sort.SearchStrings(l.roster, l.username)
	if seat >= len(l.roster) || l.roster[seat] != l.username {
		l.mu.Unlock()
		return fmt.Errorf("player %q is not in the roster %v", l.username, l.roster)
	}
	id, err := session.NewIdentity(l.gameID, seat, l.roster)
	if err != nil {
		l.mu.Unlock()
		return err
	}
	l.identity = &id
	close(l.started)
	l.mu.Unlock()

	l.logger.WithFields(logrus.Fields{
		"game_id":   id.GameID(),
		"player_id": id.PlayerID(),
	}).Info("game started")
	return events.ErrHandOff
}

// setRoster stores players sorted; seat numbers are positions in this order.
func (l *Lobby) setRoster(players []string) {
	roster := append([]string(nil), players...)
	sort.Strings(roster)

	l.mu.Lock()
	l.roster = roster
	subs := append([]func([]string){}, l.subscribers...)
	l.mu.Unlock()

	for _, fn := range subs {
		fn(append([]string(nil), roster...))
	}
}
