package game

import (
	"fmt"
)

// Action is a player's submitted move. Amount is the raise-to total for
// Bet/Raise and ignored otherwise.
type Action struct {
	Seat   int
	Kind   ActionKind
	Amount Chips
}

// ActionResult reports what the engine actually applied
type ActionResult struct {
	Seat   int        `json:"seat"`
	Kind   ActionKind `json:"-"`
	Action string     `json:"action"`
	Amount Chips      `json:"amount"`
	Street string     `json:"street"`
}

// ValidAction describes one legal action and its amount bounds
type ValidAction struct {
	Action string `json:"action"`
	Min    Chips  `json:"min,omitempty"`
	Max    Chips  `json:"max,omitempty"`
}

// Submit validates and applies an action for the current actor. Validation
// failures are returned as tagged errors and leave the state untouched.
func (e *Engine) Submit(a Action) (ActionResult, error) {
	if !e.handInProgress {
		return ActionResult{}, ErrNoHandInProgress
	}
	p, ok := e.players[a.Seat]
	if !ok {
		return ActionResult{}, fmt.Errorf("seat %d: %w", a.Seat, ErrUnknownSeat)
	}
	if a.Seat != e.actorSeat {
		return ActionResult{}, ErrNotYourTurn
	}
	if !p.CanAct() {
		return ActionResult{}, fmt.Errorf("seat %d cannot act: %w", a.Seat, ErrIllegalAction)
	}

	applied, err := e.applyAction(p, a)
	if err != nil {
		return ActionResult{}, err
	}
	e.acted[a.Seat] = true

	e.logger.Debug("action applied", "hand", e.handID, "seat", a.Seat,
		"action", a.Kind.String(), "amount", applied, "street", e.street.String())

	result := ActionResult{
		Seat:   a.Seat,
		Kind:   a.Kind,
		Action: a.Kind.String(),
		Amount: applied,
		Street: e.street.String(),
	}

	e.advanceAfterAction(a.Seat)
	return result, nil
}

// applyAction mutates player and betting state; it returns the chips moved.
// Any error is returned before any mutation.
func (e *Engine) applyAction(p *PlayerRecord, a Action) (Chips, error) {
	switch a.Kind {
	case Fold:
		p.Fold()
		return 0, nil

	case Check:
		if e.currentBet != p.CurrentBet {
			return 0, fmt.Errorf("must call %d to stay in: %w", e.currentBet-p.CurrentBet, ErrIllegalAction)
		}
		return 0, nil

	case Call:
		toCall := e.currentBet - p.CurrentBet
		if toCall <= 0 {
			return 0, fmt.Errorf("nothing to call: %w", ErrIllegalAction)
		}
		actual := p.Bet(toCall)
		e.pots.AddBet(p.Seat, actual)
		return actual, nil

	case Bet:
		if e.currentBet != 0 {
			return 0, fmt.Errorf("bet with a live bet outstanding, raise instead: %w", ErrIllegalAction)
		}
		if a.Amount < e.cfg.BigBlind || a.Amount > p.Stack {
			return 0, fmt.Errorf("bet %d outside [%d, %d]: %w", a.Amount, e.cfg.BigBlind, p.Stack, ErrAmountOutOfBounds)
		}
		return e.applyRaiseTo(p, a.Amount)

	case Raise:
		return e.applyRaiseTo(p, a.Amount)

	case AllIn:
		total := p.CurrentBet + p.Stack
		if total > e.currentBet {
			// An all-in above the current bet is a raise and subject to
			// the same re-opening rules.
			return e.applyRaiseTo(p, total)
		}
		// Not enough to raise: the whole stack goes in as a call.
		actual := p.Bet(p.Stack)
		e.pots.AddBet(p.Seat, actual)
		return actual, nil

	default:
		return 0, fmt.Errorf("unknown action kind %d: %w", a.Kind, ErrIllegalAction)
	}
}

// applyRaiseTo raises the seat's round total to raiseTo. A raise below the
// minimum is legal only as an all-in, and a short all-in does not re-open
// the action: the acted set is only cleared by a full raise.
func (e *Engine) applyRaiseTo(p *PlayerRecord, raiseTo Chips) (Chips, error) {
	if e.acted[p.Seat] {
		// Already acted with no intervening full raise: a short all-in
		// does not re-open the action, so only call or fold remain.
		return 0, fmt.Errorf("action is not re-opened: %w", ErrIllegalAction)
	}
	if raiseTo <= e.currentBet {
		return 0, fmt.Errorf("raise to %d does not exceed current bet %d: %w", raiseTo, e.currentBet, ErrAmountOutOfBounds)
	}
	needed := raiseTo - p.CurrentBet
	if needed > p.Stack {
		return 0, fmt.Errorf("raise to %d needs %d, stack is %d: %w", raiseTo, needed, p.Stack, ErrAmountOutOfBounds)
	}
	isAllIn := needed == p.Stack
	if raiseTo < e.currentBet+e.minRaise && !isAllIn {
		return 0, fmt.Errorf("minimum raise is to %d: %w", e.currentBet+e.minRaise, ErrIllegalAction)
	}

	increment := raiseTo - e.currentBet
	actual := p.Bet(needed)
	e.pots.AddBet(p.Seat, actual)
	e.currentBet = raiseTo

	if increment >= e.minRaise {
		e.minRaise = increment
		// A full raise re-opens the action for everyone still in.
		e.acted = map[int]bool{p.Seat: true}
	}
	return actual, nil
}

// advanceAfterAction either hands the turn to the next seat, or closes the
// betting round.
func (e *Engine) advanceAfterAction(seat int) {
	if len(e.notFoldedSeats()) <= 1 {
		// Everyone else folded; the hand is uncontested.
		e.endBettingRound()
		return
	}
	if e.isRoundOver() {
		e.endBettingRound()
		return
	}
	next := e.nextActorAfter(seat)
	if next == 0 {
		// Nobody left to act even though the predicate says otherwise;
		// closing the round is the only way forward.
		e.endBettingRound()
		return
	}
	e.setActor(next)
	e.broadcast()
}

// isRoundOver implements the round-end predicate over ACTIVE seats: at most
// one remains (and it has matched the bet), or everyone has acted and
// matched the current bet.
func (e *Engine) isRoundOver() bool {
	var active []*PlayerRecord
	for _, p := range e.players {
		if p.CanAct() {
			active = append(active, p)
		}
	}

	if len(active) == 0 {
		return true
	}
	if len(active) == 1 {
		// The last seat able to act still owes a response to an all-in
		// bet it has not matched.
		return active[0].CurrentBet == e.currentBet
	}
	for _, p := range active {
		if !e.acted[p.Seat] || p.CurrentBet != e.currentBet {
			return false
		}
	}
	return true
}

// endBettingRound collects bets and advances the street, runs the board
// out, or settles, per the hand lifecycle.
func (e *Engine) endBettingRound() {
	// An over-bet nobody matched goes straight back to its owner; it was
	// never contested and must not be raked. A folded owner forfeits it
	// instead (a forced fold can leave the top bet orphaned).
	if seat, refund := e.pots.UncalledBet(); refund > 0 {
		p := e.players[seat]
		if !p.InHand() {
			e.pots.AddBet(seat, refund)
		} else {
			p.Stack += refund
			p.CurrentBet -= refund
			p.TotalBet -= refund
			if p.Status == StatusAllIn && p.Stack > 0 {
				p.Status = StatusActive
			}
			e.logger.Debug("uncalled bet returned", "hand", e.handID, "seat", seat, "amount", refund)
		}
	}

	notFolded := e.notFoldedSeats()
	e.pots.Collect(notFolded)

	for _, p := range e.players {
		p.ResetForRound()
	}
	e.currentBet = 0
	e.minRaise = e.cfg.BigBlind
	e.acted = make(map[int]bool)
	e.clearActor()

	if len(notFolded) <= 1 {
		e.settleUncontested(notFolded)
		return
	}

	if e.activeCount() <= 1 {
		// Everyone else is all-in: run the board out and show down.
		if err := e.runOutBoard(); err != nil {
			e.abort(err)
			return
		}
		e.showdown()
		return
	}

	if e.street == River {
		e.showdown()
		return
	}

	if err := e.dealNextStreet(); err != nil {
		e.abort(err)
		return
	}

	e.buildActionOrder(e.dealerSeat)
	first := e.firstActor()
	if first == 0 || e.isRoundOver() {
		e.endBettingRound()
		return
	}
	e.setActor(first)
	e.broadcast()
}

// dealNextStreet advances the street marker and deals its community cards
// (burn one; three for the flop, one for the turn and river).
func (e *Engine) dealNextStreet() error {
	e.street++
	if err := e.deck.Burn(); err != nil {
		return fmt.Errorf("burning for %s: %w", e.street, err)
	}
	n := 1
	if e.street == Flop {
		n = 3
	}
	cards, err := e.deck.Deal(n)
	if err != nil {
		return fmt.Errorf("dealing %s: %w", e.street, err)
	}
	e.community = append(e.community, cards...)
	return nil
}

// runOutBoard deals the remaining community cards to five
func (e *Engine) runOutBoard() error {
	for e.street < River {
		if err := e.dealNextStreet(); err != nil {
			return err
		}
	}
	return nil
}

// OnTimeout folds the current actor once its deadline has passed. It
// returns the seat that was folded, or 0 if the deadline had not in fact
// expired (timers re-armed late race there).
func (e *Engine) OnTimeout() int {
	if !e.handInProgress || e.actorSeat == 0 {
		return 0
	}
	if e.clock.Now().Before(e.turnDeadline) {
		return 0
	}
	seat := e.actorSeat
	e.logger.Info("turn timed out, folding", "hand", e.handID, "seat", seat)
	e.forceFold(seat)
	return seat
}

// forceFold folds a seat out of turn (timeouts, disconnect-leaves) and
// advances the hand as needed.
func (e *Engine) forceFold(seat int) {
	p, ok := e.players[seat]
	if !ok || p.Status != StatusActive {
		return
	}
	p.Fold()
	e.acted[seat] = true

	if seat != e.actorSeat {
		if len(e.notFoldedSeats()) <= 1 {
			e.endBettingRound()
		}
		return
	}
	e.advanceAfterAction(seat)
}

// ValidActions reports the legal actions and bounds for a seat right now.
// Seats that are not the current actor have none.
func (e *Engine) ValidActions(seat int) []ValidAction {
	if !e.handInProgress || seat != e.actorSeat {
		return nil
	}
	p, ok := e.players[seat]
	if !ok || !p.CanAct() {
		return nil
	}

	actions := []ValidAction{{Action: Fold.String()}}

	toCall := e.currentBet - p.CurrentBet
	if toCall <= 0 {
		actions = append(actions, ValidAction{Action: Check.String()})
	} else {
		actions = append(actions, ValidAction{
			Action: Call.String(),
			Max:    minChips(toCall, p.Stack),
		})
	}

	allInTotal := p.CurrentBet + p.Stack
	minRaiseTo := e.currentBet + e.minRaise
	canRaise := !e.acted[seat]
	if canRaise && p.Stack > toCall && allInTotal >= minRaiseTo {
		kind := Raise
		if e.currentBet == 0 {
			kind = Bet
			minRaiseTo = e.cfg.BigBlind
		}
		actions = append(actions, ValidAction{
			Action: kind.String(),
			Min:    minRaiseTo,
			Max:    allInTotal,
		})
	}
	if p.Stack > 0 && (canRaise || allInTotal <= e.currentBet) {
		actions = append(actions, ValidAction{Action: AllIn.String(), Max: p.Stack})
	}

	return actions
}
