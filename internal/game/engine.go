package game

import (
	"fmt"
	"sort"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"

	"github.com/cardroomhq/tabled/internal/deck"
)

// Config holds the table parameters the engine plays under. Blind and chip
// amounts are in minor units.
type Config struct {
	TableID     string
	SmallBlind  Chips
	BigBlind    Chips
	RakePercent int
	TurnTimeout time.Duration
	MaxSeats    int
}

// Broadcaster is the capability the engine uses to push state to seated
// clients. snap builds a personalized view for one viewer seat; it must
// only be called during the Broadcast invocation, never retained.
type Broadcaster interface {
	Broadcast(tableID string, snap func(viewerSeat int) *View)
}

// Engine owns one table's hand in progress: deck, pots, player records,
// street transitions, action legality, and the turn deadline. It is not
// internally thread-safe; callers must serialize access (see the table
// worker).
type Engine struct {
	cfg    Config
	sink   Broadcaster
	settle func(SettlementRecord)
	logger *log.Logger
	clock  quartz.Clock

	players       map[int]*PlayerRecord
	pendingDetach map[int]bool

	deck      *deck.Deck
	pots      *PotManager
	community []deck.Card

	handID         uint64
	handInProgress bool
	street         Street
	currentBet     Chips
	minRaise       Chips
	dealerSeat     int
	actorSeat      int // 0 when nobody is to act
	actionOrder    []int
	acted          map[int]bool
	turnDeadline   time.Time
}

// NewEngine creates an idle engine for one table. settle is invoked exactly
// once per completed hand with the settlement record.
func NewEngine(cfg Config, sink Broadcaster, settle func(SettlementRecord), logger *log.Logger, clock quartz.Clock) *Engine {
	if clock == nil {
		clock = quartz.NewReal()
	}
	return &Engine{
		cfg:           cfg,
		sink:          sink,
		settle:        settle,
		logger:        logger.WithPrefix("engine").With("table", cfg.TableID),
		clock:         clock,
		players:       make(map[int]*PlayerRecord),
		pendingDetach: make(map[int]bool),
		deck:          deck.NewDeck(),
		pots:          NewPotManager(),
		acted:         make(map[int]bool),
	}
}

// HandInProgress reports whether a hand is currently being played
func (e *Engine) HandInProgress() bool {
	return e.handInProgress
}

// TurnDeadline returns the current actor's deadline, if an actor is set
func (e *Engine) TurnDeadline() (time.Time, bool) {
	if !e.handInProgress || e.actorSeat == 0 {
		return time.Time{}, false
	}
	return e.turnDeadline, true
}

// FundedSeats returns the number of seats able to play the next hand
func (e *Engine) FundedSeats() int {
	n := 0
	for _, p := range e.players {
		if p.Stack > 0 && !e.pendingDetach[p.Seat] {
			n++
		}
	}
	return n
}

// Attach seats a player with the given starting stack. Mid-hand attaches
// sit out until the next deal.
func (e *Engine) Attach(seat int, stack Chips) error {
	if seat < 1 || seat > e.cfg.MaxSeats {
		return fmt.Errorf("seat %d: %w", seat, ErrSeatOutOfRange)
	}
	if _, ok := e.players[seat]; ok {
		return fmt.Errorf("seat %d: %w", seat, ErrSeatTaken)
	}
	p := NewPlayerRecord(seat, stack)
	if e.handInProgress {
		p.Status = StatusSittingOut
	}
	e.players[seat] = p
	e.logger.Info("seat attached", "seat", seat, "stack", stack)
	return nil
}

// Detach removes a seated player and returns their stack. During a hand the
// seat is folded, the removal deferred to hand end, and ErrDetachDeferred
// returned; the caller retries once the hand settles.
func (e *Engine) Detach(seat int) (Chips, error) {
	p, ok := e.players[seat]
	if !ok {
		return 0, fmt.Errorf("seat %d: %w", seat, ErrUnknownSeat)
	}
	if e.handInProgress && p.Status != StatusSittingOut {
		e.pendingDetach[seat] = true
		if p.Status == StatusActive {
			// Leaving mid-hand is a fold. All-in players stay in the
			// hand; their equity settles before the seat is released.
			e.forceFold(seat)
		}
		return 0, ErrDetachDeferred
	}
	delete(e.players, seat)
	delete(e.pendingDetach, seat)
	e.logger.Info("seat detached", "seat", seat, "returned", p.Stack)
	return p.Stack, nil
}

// StartHand deals a new hand. It requires at least two funded seats and is
// a no-op (reported as ErrHandInProgress) while a hand is being played.
func (e *Engine) StartHand() error {
	if e.handInProgress {
		return ErrHandInProgress
	}

	funded := e.fundedSeatsSorted()
	if len(funded) < 2 {
		return ErrNotEnoughPlayers
	}

	e.handID++
	e.handInProgress = true
	e.street = Preflop
	e.community = nil
	e.currentBet = 0
	e.minRaise = e.cfg.BigBlind
	e.pots.Reset()
	e.deck.Reset()

	dealt := make(map[int]bool, len(funded))
	for _, seat := range funded {
		dealt[seat] = true
	}
	for seat, p := range e.players {
		p.ResetForHand()
		if !dealt[seat] {
			p.Status = StatusSittingOut
		}
	}

	e.advanceDealer(funded)

	for _, seat := range funded {
		cards, err := e.deck.Deal(2)
		if err != nil {
			e.abort(fmt.Errorf("dealing hole cards: %w", err))
			return nil
		}
		e.players[seat].HoleCards = cards
	}

	sbSeat, bbSeat := e.blindSeats(funded)
	e.postBlind(sbSeat, e.cfg.SmallBlind)
	e.postBlind(bbSeat, e.cfg.BigBlind)
	e.currentBet = e.cfg.BigBlind
	e.minRaise = e.cfg.BigBlind

	e.buildActionOrder(bbSeat)
	e.acted = make(map[int]bool)

	e.logger.Info("hand started", "hand", e.handID,
		"dealer", e.dealerSeat, "sb", sbSeat, "bb", bbSeat, "players", len(funded))

	if first := e.firstActor(); first != 0 && !e.isRoundOver() {
		e.setActor(first)
		e.broadcast()
	} else {
		// Blinds already put everyone all-in; no betting to do.
		e.endBettingRound()
	}
	return nil
}

func (e *Engine) fundedSeatsSorted() []int {
	seats := make([]int, 0, len(e.players))
	for seat, p := range e.players {
		if p.Stack > 0 && !e.pendingDetach[seat] {
			seats = append(seats, seat)
		}
	}
	sort.Ints(seats)
	return seats
}

// PendingDetaches lists seats whose removal was deferred to hand end; the
// scheduling layer retries Detach for each once the hand settles.
func (e *Engine) PendingDetaches() []int {
	seats := make([]int, 0, len(e.pendingDetach))
	for seat := range e.pendingDetach {
		seats = append(seats, seat)
	}
	sort.Ints(seats)
	return seats
}

// advanceDealer moves the button to the next occupied, funded seat. Seats
// vacated between hands are skipped naturally because only funded seats are
// considered.
func (e *Engine) advanceDealer(funded []int) {
	for _, seat := range funded {
		if seat > e.dealerSeat {
			e.dealerSeat = seat
			return
		}
	}
	e.dealerSeat = funded[0]
}

// blindSeats picks small and big blind seats. Heads-up the dealer posts the
// small blind.
func (e *Engine) blindSeats(funded []int) (sb, bb int) {
	dealerIdx := 0
	for i, seat := range funded {
		if seat == e.dealerSeat {
			dealerIdx = i
			break
		}
	}
	n := len(funded)
	if n == 2 {
		return funded[dealerIdx], funded[(dealerIdx+1)%n]
	}
	return funded[(dealerIdx+1)%n], funded[(dealerIdx+2)%n]
}

// postBlind puts up to the blind amount in for the seat. A short stack goes
// all-in and still counts as having posted.
func (e *Engine) postBlind(seat int, blind Chips) {
	p := e.players[seat]
	actual := p.Bet(blind)
	e.pots.AddBet(seat, actual)
}

// buildActionOrder lists the seats that can act this round, starting after
// afterSeat (the big blind preflop, the dealer post-flop), walking the
// seats clockwise once.
func (e *Engine) buildActionOrder(afterSeat int) {
	var active []int
	for seat, p := range e.players {
		if p.CanAct() {
			active = append(active, seat)
		}
	}
	sort.Ints(active)

	if len(active) == 0 {
		e.actionOrder = nil
		return
	}

	start := 0
	for i, seat := range active {
		if seat > afterSeat {
			start = i
			break
		}
	}

	order := make([]int, 0, len(active))
	for i := range active {
		order = append(order, active[(start+i)%len(active)])
	}
	e.actionOrder = order
}

func (e *Engine) firstActor() int {
	for _, seat := range e.actionOrder {
		if e.players[seat].CanAct() {
			return seat
		}
	}
	return 0
}

// nextActorAfter walks the action order clockwise from the given seat and
// returns the next seat that can still act, or 0 if none remains.
func (e *Engine) nextActorAfter(seat int) int {
	idx := -1
	for i, s := range e.actionOrder {
		if s == seat {
			idx = i
			break
		}
	}
	if idx == -1 {
		return e.firstActor()
	}
	for i := 1; i <= len(e.actionOrder); i++ {
		s := e.actionOrder[(idx+i)%len(e.actionOrder)]
		if s != seat && e.players[s].CanAct() {
			return s
		}
	}
	return 0
}

func (e *Engine) setActor(seat int) {
	e.actorSeat = seat
	e.turnDeadline = e.clock.Now().Add(e.cfg.TurnTimeout)
}

func (e *Engine) clearActor() {
	e.actorSeat = 0
	e.turnDeadline = time.Time{}
}

func (e *Engine) broadcast() {
	if e.sink != nil {
		e.sink.Broadcast(e.cfg.TableID, e.Snapshot)
	}
}

// notFoldedSeats returns the seats still contesting the pot, sorted
func (e *Engine) notFoldedSeats() []int {
	var seats []int
	for seat, p := range e.players {
		if p.InHand() {
			seats = append(seats, seat)
		}
	}
	sort.Ints(seats)
	return seats
}

func (e *Engine) activeCount() int {
	n := 0
	for _, p := range e.players {
		if p.CanAct() {
			n++
		}
	}
	return n
}
