// internal/tableserver/table.go
package tableserver

import (
	"fmt"
	"net/http"
	"sort"
	"sync"

	"github.com/jason-s-yu/kalooki/internal/models"
)

// StatusError carries the HTTP status a failed table operation maps to.
type StatusError struct {
	Status int
	Msg    string
}

func (e *StatusError) Error() string { return e.Msg }

func statusErrorf(status int, format string, args ...interface{}) *StatusError {
	return &StatusError{Status: status, Msg: fmt.Sprintf(format, args...)}
}

// Outcome reports what an action did to the round.
type Outcome struct {
	RoundOver bool
	GameOver  bool
}

// Table is one game: its seats, and once dealt, the cards. Seats are the
// roster sorted by username; team of seat i is i%2.
type Table struct {
	ID       string
	capacity int

	mu        sync.Mutex
	players   []string
	active    bool
	round     int
	hands     [][]models.Card
	stock     []models.Card
	discard   []models.Card
	piles     [2]models.TeamPointPile
	totals    [2]int
	opened    []bool
	turn      int
	drew      bool
	roundOver bool
	gameOver  bool
}

// NewTable creates an empty table.
func NewTable(id string, capacity int) *Table {
	return &Table{ID: id, capacity: capacity}
}

// Info is the lobby view of the table.
func (t *Table) Info() models.GameResponse {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.infoLocked()
}

func (t *Table) infoLocked() models.GameResponse {
	return models.GameResponse{
		GameID:      t.ID,
		Players:     append([]string{}, t.players...),
		MaxCapacity: t.capacity,
	}
}

// Players returns the roster.
func (t *Table) Players() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]string(nil), t.players...)
}

// Active reports whether cards have been dealt.
func (t *Table) Active() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.active
}

// Join seats username. Joining twice is a no-op.
func (t *Table) Join(username string) (models.GameResponse, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, p := range t.players {
		if p == username {
			return t.infoLocked(), nil
		}
	}
	if t.active {
		return models.GameResponse{}, statusErrorf(http.StatusConflict, "game %s already started", t.ID)
	}
	if len(t.players) >= t.capacity {
		return models.GameResponse{}, statusErrorf(http.StatusConflict, "game %s is full", t.ID)
	}
	t.players = append(t.players, username)
	return t.infoLocked(), nil
}

// Leave removes username before the game starts. It reports whether the
// player was seated.
func (t *Table) Leave(username string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.active {
		return false
	}
	for i, p := range t.players {
		if p == username {
			t.players = append(t.players[:i], t.players[i+1:]...)
			return true
		}
	}
	return false
}

// Deal starts a round. The first deal requires a full table and fixes the
// seating; later deals start the next round of the same game.
func (t *Table) Deal(shuffle func([]models.Card)) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.gameOver {
		return statusErrorf(http.StatusConflict, "game %s is over", t.ID)
	}
	if t.active && !t.roundOver {
		return statusErrorf(http.StatusConflict, "round %d of game %s is still being played", t.round, t.ID)
	}
	if !t.active {
		if len(t.players) < t.capacity {
			return statusErrorf(http.StatusConflict, "game %s has %d of %d players", t.ID, len(t.players), t.capacity)
		}
		sort.Strings(t.players)
		t.active = true
	}

	deck := newDeck()
	if shuffle != nil {
		shuffle(deck)
	}
	n := len(t.players)
	t.hands = make([][]models.Card, n)
	for i := range t.hands {
		t.hands[i] = append([]models.Card(nil), deck[:handSize]...)
		deck = deck[handSize:]
	}
	t.discard = []models.Card{deck[0]}
	t.stock = deck[1:]
	t.piles = [2]models.TeamPointPile{{}, {}}
	t.opened = make([]bool, n)
	t.turn = t.round % n
	t.drew = false
	t.roundOver = false
	t.round++
	return nil
}

// Snapshot is the game-state body for seat.
func (t *Table) Snapshot(seat int) (models.GameStateResponse, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.checkSeat(seat); err != nil {
		return models.GameStateResponse{}, err
	}
	resp := models.GameStateResponse{
		PlayerHand:       append([]models.Card{}, t.hands[seat]...),
		Team1Points:      t.piles[0].Clone(),
		Team2Points:      t.piles[1].Clone(),
		Team1TotalPoints: t.totals[0],
		Team2TotalPoints: t.totals[1],
		Turn:             t.turn,
	}
	if len(t.discard) > 0 {
		top := t.discard[len(t.discard)-1]
		resp.TopDiscard = &top
	}
	return resp, nil
}

// Draw moves the top of the stock into seat's hand.
func (t *Table) Draw(seat int) (Outcome, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.checkTurn(seat); err != nil {
		return Outcome{}, err
	}
	if t.drew {
		return Outcome{}, statusErrorf(http.StatusBadRequest, "player %d already drew this turn", seat)
	}
	if len(t.stock) == 0 {
		return t.endRoundLocked(), nil
	}
	t.hands[seat] = append(t.hands[seat], t.stock[0])
	t.stock = t.stock[1:]
	t.drew = true
	return Outcome{}, nil
}

// Discard plays one card from the current player's hand and passes the turn.
func (t *Table) Discard(index int) (Outcome, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	seat := t.turn
	if err := t.checkTurn(seat); err != nil {
		return Outcome{}, err
	}
	if !t.drew {
		return Outcome{}, statusErrorf(http.StatusBadRequest, "player %d must draw before discarding", seat)
	}
	cards, err := t.takeLocked(seat, []int{index})
	if err != nil {
		return Outcome{}, err
	}
	t.discard = append(t.discard, cards...)
	if len(t.hands[seat]) == 0 {
		return t.endRoundLocked(), nil
	}
	t.turn = (t.turn + 1) % len(t.players)
	t.drew = false
	return Outcome{}, nil
}

// Open lays down the current player's opening sets onto the team pile.
func (t *Table) Open(indices []int) (Outcome, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	seat := t.turn
	if err := t.checkTurn(seat); err != nil {
		return Outcome{}, err
	}
	cards, err := t.peekLocked(seat, indices)
	if err != nil {
		return Outcome{}, err
	}
	if !canOpen(t.statusLocked(seat), cards) {
		return Outcome{}, statusErrorf(http.StatusBadRequest, "cards %v cannot open", cards)
	}
	if _, err := t.takeLocked(seat, indices); err != nil {
		return Outcome{}, err
	}
	t.bankLocked(seat, cards)
	t.opened[seat] = true
	return t.afterMeldLocked(seat), nil
}

// AddPoints banks cards for a player who has already opened.
func (t *Table) AddPoints(indices []int) (Outcome, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	seat := t.turn
	if err := t.checkTurn(seat); err != nil {
		return Outcome{}, err
	}
	if !t.opened[seat] {
		return Outcome{}, statusErrorf(http.StatusBadRequest, "player %d has not opened", seat)
	}
	cards, err := t.peekLocked(seat, indices)
	if err != nil {
		return Outcome{}, err
	}
	if !validPoints(t.piles[seat%2], cards) {
		return Outcome{}, statusErrorf(http.StatusBadRequest, "cards %v are not valid points", cards)
	}
	if _, err := t.takeLocked(seat, indices); err != nil {
		return Outcome{}, err
	}
	t.bankLocked(seat, cards)
	return t.afterMeldLocked(seat), nil
}

// PickupDiscard takes the whole discard pile. The selected cards plus the top
// discard must make the sets the player would need to open (one set once they
// have opened); those go to the team pile and the rest of the pile to hand.
// It takes the place of the turn's draw.
func (t *Table) PickupDiscard(indices []int) (Outcome, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	seat := t.turn
	if err := t.checkTurn(seat); err != nil {
		return Outcome{}, err
	}
	if t.drew {
		return Outcome{}, statusErrorf(http.StatusBadRequest, "player %d already drew this turn", seat)
	}
	cards, err := t.peekLocked(seat, indices)
	if err != nil {
		return Outcome{}, err
	}

	status := t.statusLocked(seat)
	var top *models.Card
	if len(t.discard) > 0 {
		top = &t.discard[len(t.discard)-1]
	}
	if canOpen(status, cards) || !canTakeTop(top, status, t.piles[seat%2]) {
		return Outcome{}, statusErrorf(http.StatusBadRequest, "the discard pile cannot be taken")
	}
	meld := append(append([]models.Card(nil), cards...), *top)
	need := status
	if status.opened() {
		need = partnerOpened
	}
	if !canOpen(need, meld) {
		return Outcome{}, statusErrorf(http.StatusBadRequest, "cards %v do not make a set with %s", cards, top)
	}

	if _, err := t.takeLocked(seat, indices); err != nil {
		return Outcome{}, err
	}
	rest := t.discard[:len(t.discard)-1]
	t.discard = nil
	t.bankLocked(seat, meld)
	t.opened[seat] = true
	t.hands[seat] = append(t.hands[seat], rest...)
	t.drew = true
	return t.afterMeldLocked(seat), nil
}

// EndRound forces the round to finish, as if a hand had emptied.
func (t *Table) EndRound() (Outcome, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.active || t.roundOver {
		return Outcome{}, statusErrorf(http.StatusConflict, "game %s has no round in play", t.ID)
	}
	return t.endRoundLocked(), nil
}

// EndGame marks the game finished.
func (t *Table) EndGame() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.roundOver = true
	t.gameOver = true
}

func (t *Table) checkSeat(seat int) error {
	if !t.active {
		return statusErrorf(http.StatusConflict, "game %s has not started", t.ID)
	}
	if seat < 0 || seat >= len(t.players) {
		return statusErrorf(http.StatusBadRequest, "no player %d in game %s", seat, t.ID)
	}
	return nil
}

func (t *Table) checkTurn(seat int) error {
	if err := t.checkSeat(seat); err != nil {
		return err
	}
	if t.roundOver {
		return statusErrorf(http.StatusConflict, "round %d of game %s is over", t.round, t.ID)
	}
	if seat != t.turn {
		return statusErrorf(http.StatusBadRequest, "it is not player %d's turn", seat)
	}
	return nil
}

func (t *Table) statusLocked(seat int) openStatus {
	partner := (seat + 2) % len(t.players)
	me, them := t.opened[seat], partner != seat && t.opened[partner]
	switch {
	case me && them:
		return bothOpened
	case me:
		return selfOpened
	case them:
		return partnerOpened
	}
	return nobodyOpened
}

// peekLocked resolves indices against seat's hand without removing anything.
func (t *Table) peekLocked(seat int, indices []int) ([]models.Card, error) {
	hand := t.hands[seat]
	seen := make(map[int]bool, len(indices))
	cards := make([]models.Card, 0, len(indices))
	for _, i := range indices {
		if i < 0 || i >= len(hand) {
			return nil, statusErrorf(http.StatusBadRequest, "card index %d outside a hand of %d", i, len(hand))
		}
		if seen[i] {
			return nil, statusErrorf(http.StatusBadRequest, "card index %d given twice", i)
		}
		seen[i] = true
		cards = append(cards, hand[i])
	}
	return cards, nil
}

// takeLocked removes indices from seat's hand and returns those cards.
func (t *Table) takeLocked(seat int, indices []int) ([]models.Card, error) {
	cards, err := t.peekLocked(seat, indices)
	if err != nil {
		return nil, err
	}
	drop := make(map[int]bool, len(indices))
	for _, i := range indices {
		drop[i] = true
	}
	kept := t.hands[seat][:0:0]
	for i, c := range t.hands[seat] {
		if !drop[i] {
			kept = append(kept, c)
		}
	}
	t.hands[seat] = kept
	return cards, nil
}

func (t *Table) bankLocked(seat int, cards []models.Card) {
	pile := t.piles[seat%2]
	for _, c := range cards {
		name := bucketName(c.Value)
		pile[name] = append(pile[name], c)
	}
}

func (t *Table) afterMeldLocked(seat int) Outcome {
	if len(t.hands[seat]) == 0 {
		return t.endRoundLocked()
	}
	return Outcome{}
}

// endRoundLocked scores the round: each team adds its pile and loses what
// both partners still hold.
func (t *Table) endRoundLocked() Outcome {
	for team := range t.piles {
		t.totals[team] += t.piles[team].DisplayTotal()
	}
	for seat, hand := range t.hands {
		t.totals[seat%2] -= handPenalty(hand)
	}
	t.roundOver = true
	t.drew = false
	if t.totals[0] >= gameTarget || t.totals[1] >= gameTarget {
		t.gameOver = true
	}
	return Outcome{RoundOver: true, GameOver: t.gameOver}
}
