package game

import (
	"fmt"
	"sort"

	"github.com/cardroomhq/tabled/internal/deck"
)

// showdown evaluates every contesting hand and distributes each pot to its
// best eligible hand, raking each pot first. Ties split evenly with odd
// minor units going to the tied seats closest clockwise from the dealer.
func (e *Engine) showdown() {
	e.street = Showdown

	strengths := make(map[int]HandStrength)
	for seat, p := range e.players {
		if !p.InHand() {
			continue
		}
		hs, err := Evaluate(append(append([]deck.Card{}, p.HoleCards...), e.community...))
		if err != nil {
			e.abort(fmt.Errorf("evaluating seat %d: %w", seat, err))
			return
		}
		strengths[seat] = hs
	}

	var (
		totalRake Chips
		winners   []Winner
	)

	for _, pot := range e.pots.Pots() {
		var eligible []int
		for _, seat := range pot.Eligible {
			if p, ok := e.players[seat]; ok && p.InHand() {
				eligible = append(eligible, seat)
			}
		}
		if len(eligible) == 0 {
			e.abort(fmt.Errorf("pot of %d has no eligible seats", pot.Amount))
			return
		}

		best := strengths[eligible[0]]
		potWinners := []int{eligible[0]}
		for _, seat := range eligible[1:] {
			switch cmp := Compare(strengths[seat], best); {
			case cmp > 0:
				best = strengths[seat]
				potWinners = []int{seat}
			case cmp == 0:
				potWinners = append(potWinners, seat)
			}
		}

		rake := pot.Amount * Chips(e.cfg.RakePercent) / 100
		totalRake += rake

		for _, w := range e.splitPot(pot.Amount-rake, potWinners) {
			p := e.players[w.Seat]
			p.Stack += w.Amount
			w.Rank = strengths[w.Seat].Rank.String()
			w.HoleCards = p.HoleCards
			winners = append(winners, w)
		}
	}

	e.logger.Info("showdown settled", "hand", e.handID,
		"winners", len(winners), "rake", totalRake)

	e.finishHand(SettlementRecord{
		TableID:        e.cfg.TableID,
		HandID:         e.handID,
		Winners:        winners,
		Pots:           e.potBreakdown(),
		Rake:           totalRake,
		CommunityCards: e.community,
	})
}

// splitPot divides amount evenly across the winning seats; remainder minor
// units go one each to the winners closest clockwise from the dealer.
func (e *Engine) splitPot(amount Chips, seats []int) []Winner {
	ordered := append([]int{}, seats...)
	sort.Slice(ordered, func(i, j int) bool {
		return e.clockwiseFromDealer(ordered[i]) < e.clockwiseFromDealer(ordered[j])
	})

	share := amount / Chips(len(ordered))
	remainder := amount % Chips(len(ordered))

	out := make([]Winner, 0, len(ordered))
	for i, seat := range ordered {
		amt := share
		if Chips(i) < remainder {
			amt++
		}
		out = append(out, Winner{Seat: seat, Amount: amt})
	}
	return out
}

// clockwiseFromDealer orders seats by distance clockwise from the dealer,
// the seat just after the dealer being closest and the dealer itself
// farthest.
func (e *Engine) clockwiseFromDealer(seat int) int {
	d := seat - e.dealerSeat
	if d <= 0 {
		d += e.cfg.MaxSeats
	}
	return d
}

// settleUncontested awards the whole pot to the sole remaining seat without
// revealing hole cards.
func (e *Engine) settleUncontested(notFolded []int) {
	if len(notFolded) != 1 {
		e.abort(fmt.Errorf("uncontested settlement with %d contenders", len(notFolded)))
		return
	}

	winner := e.players[notFolded[0]]
	total := e.pots.Total()
	rake := total * Chips(e.cfg.RakePercent) / 100
	winner.Stack += total - rake

	e.logger.Info("hand won uncontested", "hand", e.handID,
		"seat", winner.Seat, "amount", total-rake, "rake", rake)

	e.finishHand(SettlementRecord{
		TableID:        e.cfg.TableID,
		HandID:         e.handID,
		Winners:        []Winner{{Seat: winner.Seat, Amount: total - rake}},
		Pots:           e.potBreakdown(),
		Rake:           rake,
		CommunityCards: e.community,
	})
}

// abort refunds every wager and terminates the hand with no rake and no
// winners. The engine remains usable for the next hand.
func (e *Engine) abort(reason error) {
	e.logger.Error("hand aborted, refunding wagers", "hand", e.handID, "error", reason)

	var refunds []Refund
	for _, seat := range e.seatsSorted() {
		p := e.players[seat]
		if p.TotalBet > 0 {
			p.Stack += p.TotalBet
			refunds = append(refunds, Refund{Seat: seat, Amount: p.TotalBet})
		}
		if p.Status == StatusAllIn {
			p.Status = StatusActive
		}
	}
	e.pots.Reset()

	e.finishHand(SettlementRecord{
		TableID:        e.cfg.TableID,
		HandID:         e.handID,
		Refunds:        refunds,
		CommunityCards: e.community,
		Aborted:        true,
	})
}

// Abort terminates any hand in progress with the refund path; used by the
// scheduling layer on unexpected faults and on table shutdown.
func (e *Engine) Abort(reason error) {
	if !e.handInProgress {
		return
	}
	e.abort(reason)
}

// finishHand closes out the hand: the final broadcast goes to the sink,
// then the settlement is handed to its consumer exactly once.
func (e *Engine) finishHand(rec SettlementRecord) {
	e.handInProgress = false
	e.clearActor()
	e.broadcast()
	if e.settle != nil {
		e.settle(rec)
	}
}

func (e *Engine) potBreakdown() []PotBreakdown {
	pots := e.pots.Pots()
	out := make([]PotBreakdown, 0, len(pots))
	for _, p := range pots {
		out = append(out, PotBreakdown{Amount: p.Amount, Eligible: p.Eligible})
	}
	return out
}

func (e *Engine) seatsSorted() []int {
	seats := make([]int, 0, len(e.players))
	for seat := range e.players {
		seats = append(seats, seat)
	}
	sort.Ints(seats)
	return seats
}
