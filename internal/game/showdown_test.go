package game

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cardroomhq/tabled/internal/deck"
)

// rigShowdown puts the engine straight into a river-complete state with the
// given board, hole cards and a single collected pot, bypassing the deal.
func rigShowdown(e *Engine, board []deck.Card, holes map[int][]deck.Card, pots []Pot) {
	e.handID++
	e.handInProgress = true
	e.street = River
	e.community = board
	for seat, cards := range holes {
		e.players[seat].HoleCards = cards
		e.players[seat].Status = StatusAllIn
	}
	e.pots.pots = pots
}

func TestShowdownBestHandTakesPot(t *testing.T) {
	t.Parallel()
	e, cp, _ := newTestEngine(t, testConfig())
	seatStacks(t, e, map[int]Chips{1: 0, 2: 0})
	e.dealerSeat = 1

	board := []deck.Card{
		c(deck.King, deck.Spades), c(deck.Seven, deck.Diamonds), c(deck.Two, deck.Clubs),
		c(deck.Nine, deck.Hearts), c(deck.Four, deck.Spades),
	}
	rigShowdown(e, board, map[int][]deck.Card{
		1: {c(deck.King, deck.Hearts), c(deck.King, deck.Diamonds)}, // trip kings
		2: {c(deck.Ace, deck.Clubs), c(deck.Seven, deck.Clubs)},     // pair of sevens
	}, []Pot{{Amount: 400, Eligible: []int{1, 2}}})

	e.showdown()

	require.Len(t, cp.settlements, 1)
	rec := cp.settlements[0]
	require.Len(t, rec.Winners, 1)
	assert.Equal(t, 1, rec.Winners[0].Seat)
	assert.Equal(t, Chips(400), rec.Winners[0].Amount)
	assert.Equal(t, "three_of_a_kind", rec.Winners[0].Rank)
	assert.Len(t, rec.Winners[0].HoleCards, 2)
	assert.Equal(t, Chips(400), e.players[1].Stack)
	assert.Zero(t, e.players[2].Stack)
	assert.False(t, e.HandInProgress())
}

func TestShowdownSplitPotOddChipClockwise(t *testing.T) {
	t.Parallel()
	e, cp, _ := newTestEngine(t, testConfig())
	seatStacks(t, e, map[int]Chips{2: 0, 3: 0})
	e.dealerSeat = 1

	// Broadway on the board: both seats play it and chop. The odd minor
	// unit of 101 goes to seat 2, nearest clockwise from the dealer.
	board := []deck.Card{
		c(deck.Ace, deck.Spades), c(deck.King, deck.Diamonds), c(deck.Queen, deck.Clubs),
		c(deck.Jack, deck.Hearts), c(deck.Ten, deck.Spades),
	}
	rigShowdown(e, board, map[int][]deck.Card{
		2: {c(deck.Two, deck.Hearts), c(deck.Three, deck.Diamonds)},
		3: {c(deck.Four, deck.Clubs), c(deck.Five, deck.Spades)},
	}, []Pot{{Amount: 101, Eligible: []int{2, 3}}})

	e.showdown()

	require.Len(t, cp.settlements, 1)
	winners := cp.settlements[0].Winners
	require.Len(t, winners, 2)
	assert.Equal(t, Chips(51), e.players[2].Stack)
	assert.Equal(t, Chips(50), e.players[3].Stack)
}

func TestShowdownOddChipWrapsPastDealer(t *testing.T) {
	t.Parallel()
	e, cp, _ := newTestEngine(t, testConfig())
	seatStacks(t, e, map[int]Chips{1: 0, 6: 0})
	e.dealerSeat = 5

	board := []deck.Card{
		c(deck.Ace, deck.Spades), c(deck.King, deck.Diamonds), c(deck.Queen, deck.Clubs),
		c(deck.Jack, deck.Hearts), c(deck.Ten, deck.Spades),
	}
	rigShowdown(e, board, map[int][]deck.Card{
		1: {c(deck.Two, deck.Hearts), c(deck.Three, deck.Diamonds)},
		6: {c(deck.Four, deck.Clubs), c(deck.Five, deck.Spades)},
	}, []Pot{{Amount: 301, Eligible: []int{1, 6}}})

	e.showdown()

	// Seat 6 sits one past the dealer at seat 5, seat 1 wraps around
	// behind it, so seat 6 takes the odd unit.
	require.Len(t, cp.settlements, 1)
	assert.Equal(t, Chips(151), e.players[6].Stack)
	assert.Equal(t, Chips(150), e.players[1].Stack)
}

func TestShowdownSidePotsAwardedSeparately(t *testing.T) {
	t.Parallel()
	e, cp, _ := newTestEngine(t, testConfig())
	seatStacks(t, e, map[int]Chips{1: 0, 2: 0, 3: 0})
	e.dealerSeat = 1

	// Seat 2 has the best hand but was all-in for the main pot only; the
	// side pot goes to the better of the two deep stacks.
	board := []deck.Card{
		c(deck.King, deck.Spades), c(deck.Seven, deck.Diamonds), c(deck.Two, deck.Clubs),
		c(deck.Nine, deck.Hearts), c(deck.Four, deck.Spades),
	}
	rigShowdown(e, board, map[int][]deck.Card{
		1: {c(deck.Nine, deck.Clubs), c(deck.Eight, deck.Diamonds)},  // pair of nines
		2: {c(deck.King, deck.Hearts), c(deck.King, deck.Diamonds)},  // trip kings
		3: {c(deck.Queen, deck.Clubs), c(deck.Queen, deck.Diamonds)}, // pair of queens
	}, []Pot{
		{Amount: 150, Eligible: []int{1, 2, 3}},
		{Amount: 100, Eligible: []int{1, 3}},
	})

	e.showdown()

	require.Len(t, cp.settlements, 1)
	rec := cp.settlements[0]
	assert.Equal(t, Chips(150), e.players[2].Stack)
	assert.Equal(t, Chips(100), e.players[3].Stack)
	assert.Zero(t, e.players[1].Stack)
	require.Len(t, rec.Winners, 2)
}

func TestShowdownRakePerPot(t *testing.T) {
	t.Parallel()
	cfg := testConfig()
	cfg.RakePercent = 5
	e, cp, _ := newTestEngine(t, cfg)
	seatStacks(t, e, map[int]Chips{1: 0, 2: 0})
	e.dealerSeat = 1

	board := []deck.Card{
		c(deck.King, deck.Spades), c(deck.Seven, deck.Diamonds), c(deck.Two, deck.Clubs),
		c(deck.Nine, deck.Hearts), c(deck.Four, deck.Spades),
	}
	rigShowdown(e, board, map[int][]deck.Card{
		1: {c(deck.King, deck.Hearts), c(deck.King, deck.Diamonds)},
		2: {c(deck.Ace, deck.Clubs), c(deck.Seven, deck.Clubs)},
	}, []Pot{{Amount: 999, Eligible: []int{1, 2}}})

	e.showdown()

	// 5% of 999 floors to 49.
	require.Len(t, cp.settlements, 1)
	rec := cp.settlements[0]
	assert.Equal(t, Chips(49), rec.Rake)
	assert.Equal(t, Chips(950), e.players[1].Stack)
}

func TestUncontestedWinIsRaked(t *testing.T) {
	t.Parallel()
	cfg := testConfig()
	cfg.RakePercent = 5
	e, cp, _ := newTestEngine(t, cfg)
	seatStacks(t, e, map[int]Chips{1: 1000, 2: 1000, 3: 1000})

	require.NoError(t, e.StartHand())
	mustSubmit(t, e, 1, Raise, 300)
	mustSubmit(t, e, 2, Fold, 0)
	mustSubmit(t, e, 3, Fold, 0)

	// The unmatched 200 over the big blind comes back unraked, leaving a
	// 250 pot: the blinds plus the matched 100 of the raise.
	require.Len(t, cp.settlements, 1)
	rec := cp.settlements[0]
	require.Len(t, rec.Winners, 1)
	assert.Equal(t, 1, rec.Winners[0].Seat)
	assert.Equal(t, Chips(12), rec.Rake) // 5% of 250
	assert.Equal(t, Chips(238), rec.Winners[0].Amount)
	assert.Equal(t, Chips(1138), e.players[1].Stack)
}
