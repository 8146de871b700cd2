package game

import (
	"io"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"

	"github.com/cardroomhq/tabled/internal/deck"
)

func c(rank deck.Rank, suit deck.Suit) deck.Card {
	return deck.NewCard(rank, suit)
}

func testConfig() Config {
	return Config{
		TableID:     "t1",
		SmallBlind:  50,
		BigBlind:    100,
		RakePercent: 0,
		TurnTimeout: 30 * time.Second,
		MaxSeats:    6,
	}
}

// capture records everything the engine pushes out through its
// capabilities.
type capture struct {
	broadcasts  int
	lastView    *View
	settlements []SettlementRecord
}

func (cp *capture) Broadcast(_ string, snap func(viewerSeat int) *View) {
	cp.broadcasts++
	cp.lastView = snap(0)
}

func (cp *capture) settle(rec SettlementRecord) {
	cp.settlements = append(cp.settlements, rec)
}

func newTestEngine(t *testing.T, cfg Config) (*Engine, *capture, *quartz.Mock) {
	t.Helper()
	clock := quartz.NewMock(t)
	cp := &capture{}
	logger := log.New(io.Discard)
	e := NewEngine(cfg, cp, cp.settle, logger, clock)
	return e, cp, clock
}

// seatStacks attaches players seat -> stack and returns the engine ready to
// deal.
func seatStacks(t *testing.T, e *Engine, stacks map[int]Chips) {
	t.Helper()
	for seat, stack := range stacks {
		if err := e.Attach(seat, stack); err != nil {
			t.Fatalf("attach seat %d: %v", seat, err)
		}
	}
}

// totalChips sums stacks plus everything wagered, for conservation checks.
func totalChips(e *Engine) Chips {
	var total Chips
	for _, p := range e.players {
		total += p.Stack + p.TotalBet
	}
	return total
}

func mustSubmit(t *testing.T, e *Engine, seat int, kind ActionKind, amount Chips) ActionResult {
	t.Helper()
	res, err := e.Submit(Action{Seat: seat, Kind: kind, Amount: amount})
	if err != nil {
		t.Fatalf("submit seat %d %s %d: %v", seat, kind, amount, err)
	}
	return res
}
