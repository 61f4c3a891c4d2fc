// internal/tableserver/server.go
package tableserver

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"sync"

	"github.com/coder/websocket"
	"github.com/jason-s-yu/kalooki/internal/middleware"
	"github.com/jason-s-yu/kalooki/internal/models"
	"github.com/sirupsen/logrus"
)

// player is a registered username and, once joined and connected, its table
// and socket.
type player struct {
	username string
	gameID   string
	conn     *playerConn
}

// Server is an in-memory table server speaking the client protocol: JSON over
// HTTP for requests and a WebSocket per player for pushes.
type Server struct {
	logger  *logrus.Logger
	tables  *TableStore
	shuffle func([]models.Card)

	mu      sync.Mutex
	players map[string]*player
}

// Option configures a Server.
type Option func(*Server)

// WithShuffle replaces the deck shuffle; nil deals the deck in order.
func WithShuffle(fn func([]models.Card)) Option {
	return func(s *Server) { s.shuffle = fn }
}

// NewServer creates a server whose tables seat capacity players.
func NewServer(logger *logrus.Logger, capacity int, opts ...Option) *Server {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	if capacity <= 0 {
		capacity = 4
	}
	s := &Server{
		logger:  logger,
		tables:  NewTableStore(capacity, logger),
		shuffle: Shuffle,
		players: make(map[string]*player),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler returns the routed, logged HTTP handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("POST /player-register", s.handleRegisterPlayer)
	mux.HandleFunc("DELETE /player-register/{username}", s.handleUnregisterPlayer)
	mux.HandleFunc("POST /game-register", s.handleRegisterGame)
	mux.HandleFunc("GET /lobby", s.handleLobby)
	mux.HandleFunc("POST /game-start", s.handleStartGame)

	mux.HandleFunc("GET /game-state/", s.handleGameState)
	mux.HandleFunc("GET /draw-card/", s.handleDraw)
	mux.HandleFunc("POST /discard-card", s.handleDiscard)
	mux.HandleFunc("POST /player-open", s.handleIndices(func(t *Table, idx []int) (Outcome, error) { return t.Open(idx) }))
	mux.HandleFunc("POST /player-add-points", s.handleIndices(func(t *Table, idx []int) (Outcome, error) { return t.AddPoints(idx) }))
	mux.HandleFunc("POST /player-pickup-discard", s.handleIndices(func(t *Table, idx []int) (Outcome, error) { return t.PickupDiscard(idx) }))

	mux.HandleFunc("GET /ws/{username}", s.handleWS)

	return middleware.LogMiddleware(s.logger)(mux)
}

// Table looks up a table by game id.
func (s *Server) Table(gameID string) (*Table, bool) {
	return s.tables.Get(gameID)
}

// EndRound finishes the current round of gameID and pushes the result.
func (s *Server) EndRound(gameID string) error {
	t, ok := s.tables.Get(gameID)
	if !ok {
		return statusErrorf(http.StatusNotFound, "no game %s", gameID)
	}
	out, err := t.EndRound()
	if err != nil {
		return err
	}
	s.pushOutcome(t, out)
	return nil
}

// EndGame finishes gameID and pushes EndGame.
func (s *Server) EndGame(gameID string) error {
	t, ok := s.tables.Get(gameID)
	if !ok {
		return statusErrorf(http.StatusNotFound, "no game %s", gameID)
	}
	t.EndGame()
	s.push(t.Players(), models.ResponseEndGame, nil)
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func (s *Server) handleRegisterPlayer(w http.ResponseWriter, r *http.Request) {
	var req models.RegisterPlayerRequest
	if !s.decode(w, r, &req) {
		return
	}
	name := strings.TrimSpace(req.Username)
	if name == "" || strings.Contains(name, "/") {
		s.fail(w, statusErrorf(http.StatusBadRequest, "invalid username %q", req.Username))
		return
	}

	s.mu.Lock()
	if _, exists := s.players[name]; exists {
		s.mu.Unlock()
		s.fail(w, statusErrorf(http.StatusConflict, "player %s already exists", name))
		return
	}
	s.players[name] = &player{username: name}
	s.mu.Unlock()

	s.logger.Infof("Registered player %s", name)
	writeJSON(w, http.StatusOK, models.PlayerResponse{
		Username:     name,
		WebsocketURL: "ws://" + r.Host + "/ws/" + name,
	})
}

func (s *Server) handleUnregisterPlayer(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("username")

	s.mu.Lock()
	p, ok := s.players[name]
	delete(s.players, name)
	s.mu.Unlock()

	var removed *bool
	if ok {
		if p.conn != nil {
			p.conn.kick(StatusUnregistered, "player unregistered")
		}
		if t, found := s.tables.Get(p.gameID); found {
			left := t.Leave(name)
			removed = &left
			if left {
				s.broadcastRoster(t)
			}
		}
		s.logger.Infof("Unregistered player %s", name)
	}
	writeJSON(w, http.StatusOK, removed)
}

func (s *Server) handleRegisterGame(w http.ResponseWriter, r *http.Request) {
	var req models.RegisterGameRequest
	if !s.decode(w, r, &req) {
		return
	}
	if req.GameIdentifier == "" {
		s.fail(w, statusErrorf(http.StatusBadRequest, "game_identifier is required"))
		return
	}

	s.mu.Lock()
	p, ok := s.players[req.PlayerUsername]
	s.mu.Unlock()
	if !ok {
		s.fail(w, statusErrorf(http.StatusNotFound, "player %s is not registered", req.PlayerUsername))
		return
	}

	t := s.tables.GetOrCreate(req.GameIdentifier)
	resp, err := t.Join(req.PlayerUsername)
	if err != nil {
		s.fail(w, err)
		return
	}
	s.mu.Lock()
	p.gameID = t.ID
	s.mu.Unlock()

	s.broadcastRoster(t)
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleLobby(w http.ResponseWriter, _ *http.Request) {
	resp := models.GameSessionListResponse{Games: []models.GameResponse{}}
	for _, t := range s.tables.List() {
		resp.Games = append(resp.Games, t.Info())
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleStartGame(w http.ResponseWriter, r *http.Request) {
	var req models.StartGameRequest
	if !s.decode(w, r, &req) {
		return
	}
	t, ok := s.tables.Get(req.GameID)
	if !ok {
		s.fail(w, statusErrorf(http.StatusNotFound, "no game %s", req.GameID))
		return
	}
	if err := t.Deal(s.shuffle); err != nil {
		s.fail(w, err)
		return
	}
	s.logger.WithField("game_id", t.ID).Info("dealt a new round")

	players := t.Players()
	s.push(players, models.ResponseStartGame, nil)
	s.push(players, models.ResponseGameState, nil)
	w.WriteHeader(http.StatusOK)
}

func (s *Server) handleGameState(w http.ResponseWriter, r *http.Request) {
	t, seat, ok := s.gameQuery(w, r)
	if !ok {
		return
	}
	resp, err := t.Snapshot(seat)
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleDraw(w http.ResponseWriter, r *http.Request) {
	t, seat, ok := s.gameQuery(w, r)
	if !ok {
		return
	}
	out, err := t.Draw(seat)
	if err != nil {
		s.fail(w, err)
		return
	}
	s.afterAction(t, out)
	w.WriteHeader(http.StatusOK)
}

func (s *Server) handleDiscard(w http.ResponseWriter, r *http.Request) {
	var req models.DiscardRequest
	if !s.decode(w, r, &req) {
		return
	}
	t, ok := s.tables.Get(req.GameID)
	if !ok {
		s.fail(w, statusErrorf(http.StatusNotFound, "no game %s", req.GameID))
		return
	}
	out, err := t.Discard(req.CardIndex)
	if err != nil {
		s.fail(w, err)
		return
	}
	s.afterAction(t, out)
	w.WriteHeader(http.StatusOK)
}

func (s *Server) handleIndices(action func(*Table, []int) (Outcome, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req models.CardIndicesRequest
		if !s.decode(w, r, &req) {
			return
		}
		t, ok := s.tables.Get(req.GameID)
		if !ok {
			s.fail(w, statusErrorf(http.StatusNotFound, "no game %s", req.GameID))
			return
		}
		out, err := action(t, req.CardIndices)
		if err != nil {
			s.fail(w, err)
			return
		}
		s.afterAction(t, out)
		w.WriteHeader(http.StatusOK)
	}
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("username")
	s.mu.Lock()
	p, ok := s.players[name]
	s.mu.Unlock()
	if !ok {
		http.Error(w, "unknown player", http.StatusNotFound)
		return
	}

	c, err := websocket.Accept(w, r, &websocket.AcceptOptions{OriginPatterns: []string{"*"}})
	if err != nil {
		s.logger.Warnf("websocket accept error: %v", err)
		return
	}
	defer c.Close(websocket.StatusInternalError, "handler finished")

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()
	conn := newPlayerConn(name, c, cancel, s.logger)

	s.mu.Lock()
	old := p.conn
	p.conn = conn
	s.mu.Unlock()
	if old != nil {
		old.kick(StatusReplaced, "replaced by a newer connection")
	}

	middleware.LogWebSocketConnect(s.logger, r.RemoteAddr, r.URL.Path)
	go conn.writePump(ctx, c)

	err = s.readLoop(ctx, c, name)
	middleware.LogWebSocketDisconnect(s.logger, r.RemoteAddr, r.URL.Path, err)

	s.mu.Lock()
	current := p.conn == conn
	if current {
		p.conn = nil
	}
	gameID := p.gameID
	s.mu.Unlock()

	// a player who drops before the deal gives up their seat
	if !current {
		return
	}
	if t, found := s.tables.Get(gameID); found && t.Leave(name) {
		s.broadcastRoster(t)
	}
	c.Close(websocket.StatusNormalClosure, "")
}

// readLoop discards client frames; the push channel is one-way.
func (s *Server) readLoop(ctx context.Context, c *websocket.Conn, name string) error {
	for {
		_, msg, err := c.Read(ctx)
		if err != nil {
			switch websocket.CloseStatus(err) {
			case websocket.StatusNormalClosure, websocket.StatusGoingAway, StatusUnregistered, StatusReplaced:
				return nil
			}
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		s.logger.Debugf("ignoring frame from %s: %s", name, string(msg))
	}
}

// afterAction tells the table a new snapshot exists, then reports round and
// game ends.
func (s *Server) afterAction(t *Table, out Outcome) {
	s.push(t.Players(), models.ResponseGameState, nil)
	s.pushOutcome(t, out)
}

func (s *Server) pushOutcome(t *Table, out Outcome) {
	players := t.Players()
	if out.RoundOver {
		s.push(players, models.ResponseEndRound, nil)
	}
	if out.GameOver {
		s.push(players, models.ResponseEndGame, nil)
	}
}

// broadcastRoster sends the table's roster to every connected player; the
// client filters by game id.
func (s *Server) broadcastRoster(t *Table) {
	frame, err := models.NewFrame(models.ResponseGameSession, t.Info())
	if err != nil {
		s.logger.WithError(err).Error("encode roster")
		return
	}
	for _, c := range s.connections(nil) {
		c.Write(frame)
	}
}

// push sends an empty-payload frame to the named players.
func (s *Server) push(names []string, rt models.ResponseType, data interface{}) {
	frame, err := models.NewFrame(rt, data)
	if err != nil {
		s.logger.WithError(err).Errorf("encode %s", rt)
		return
	}
	for _, c := range s.connections(names) {
		c.Write(frame)
	}
}

// connections returns the live sockets of names, or of everyone when names
// is nil.
func (s *Server) connections(names []string) []*playerConn {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*playerConn
	if names == nil {
		for _, p := range s.players {
			if p.conn != nil {
				out = append(out, p.conn)
			}
		}
		return out
	}
	for _, n := range names {
		if p, ok := s.players[n]; ok && p.conn != nil {
			out = append(out, p.conn)
		}
	}
	return out
}

func (s *Server) gameQuery(w http.ResponseWriter, r *http.Request) (*Table, int, bool) {
	q := r.URL.Query()
	t, ok := s.tables.Get(q.Get("game-id"))
	if !ok {
		s.fail(w, statusErrorf(http.StatusNotFound, "no game %q", q.Get("game-id")))
		return nil, 0, false
	}
	seat, err := strconv.Atoi(q.Get("player"))
	if err != nil {
		s.fail(w, statusErrorf(http.StatusBadRequest, "invalid player %q", q.Get("player")))
		return nil, 0, false
	}
	return t, seat, true
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		s.fail(w, statusErrorf(http.StatusBadRequest, "invalid JSON: %v", err))
		return false
	}
	return true
}

func (s *Server) fail(w http.ResponseWriter, err error) {
	var se *StatusError
	if !errors.As(err, &se) {
		se = &StatusError{Status: http.StatusInternalServerError, Msg: err.Error()}
	}
	s.logger.WithField("status", se.Status).Debug(se.Msg)
	http.Error(w, se.Msg, se.Status)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
