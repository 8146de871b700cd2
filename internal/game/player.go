package game

import "github.com/cardroomhq/tabled/internal/deck"

// PlayerRecord is a seat's state within a hand. The seat number is
// immutable for the lifetime of the record.
type PlayerRecord struct {
	Seat       int
	Stack      Chips
	HoleCards  []deck.Card
	Status     PlayerStatus
	CurrentBet Chips // chips put in during the current betting round
	TotalBet   Chips // chips put in across the whole hand
}

// NewPlayerRecord seats a player with the given starting stack
func NewPlayerRecord(seat int, stack Chips) *PlayerRecord {
	return &PlayerRecord{
		Seat:   seat,
		Stack:  stack,
		Status: StatusActive,
	}
}

// CanAct reports whether the player may take a betting action
func (p *PlayerRecord) CanAct() bool {
	return p.Status == StatusActive
}

// InHand reports whether the player still contests the pot
func (p *PlayerRecord) InHand() bool {
	return p.Status == StatusActive || p.Status == StatusAllIn
}

// Bet moves up to amount from the stack into the current bet, returning the
// amount actually moved. Emptying the stack flips the player to all-in.
func (p *PlayerRecord) Bet(amount Chips) Chips {
	actual := minChips(amount, p.Stack)
	p.Stack -= actual
	p.CurrentBet += actual
	p.TotalBet += actual
	if p.Stack == 0 {
		p.Status = StatusAllIn
	}
	return actual
}

// Fold removes the player from the hand and drops their hole cards
func (p *PlayerRecord) Fold() {
	p.Status = StatusFolded
	p.HoleCards = nil
}

// ResetForRound clears per-round bet tracking between streets
func (p *PlayerRecord) ResetForRound() {
	p.CurrentBet = 0
}

// ResetForHand clears all per-hand state ahead of a new deal
func (p *PlayerRecord) ResetForHand() {
	p.HoleCards = nil
	p.CurrentBet = 0
	p.TotalBet = 0
	if p.Stack > 0 {
		p.Status = StatusActive
	} else {
		p.Status = StatusSittingOut
	}
}
