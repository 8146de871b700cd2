package game

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPotCollectSingleLevel(t *testing.T) {
	t.Parallel()

	pm := NewPotManager()
	pm.AddBet(1, 100)
	pm.AddBet(2, 100)
	pm.AddBet(3, 100)
	require.Equal(t, Chips(300), pm.RoundTotal())

	pm.Collect([]int{1, 2, 3})

	pots := pm.Pots()
	require.Len(t, pots, 1)
	assert.Equal(t, Chips(300), pots[0].Amount)
	assert.Equal(t, []int{1, 2, 3}, pots[0].Eligible)
	assert.Zero(t, pm.RoundTotal())
	assert.Equal(t, Chips(300), pm.Total())
}

func TestPotCollectSidePots(t *testing.T) {
	t.Parallel()

	// Three all-ins at 50, 100 and 100 (after the uncalled excess has been
	// returned): a 150 main pot for everyone, a 100 side pot for the two
	// deeper stacks.
	pm := NewPotManager()
	pm.AddBet(1, 100)
	pm.AddBet(2, 50)
	pm.AddBet(3, 100)
	pm.Collect([]int{1, 2, 3})

	pots := pm.Pots()
	require.Len(t, pots, 2)
	assert.Equal(t, Chips(150), pots[0].Amount)
	assert.Equal(t, []int{1, 2, 3}, pots[0].Eligible)
	assert.Equal(t, Chips(100), pots[1].Amount)
	assert.Equal(t, []int{1, 3}, pots[1].Eligible)
}

func TestPotFoldedChipsStayButAreNotEligible(t *testing.T) {
	t.Parallel()

	pm := NewPotManager()
	pm.AddBet(1, 100)
	pm.AddBet(2, 100)
	pm.AddBet(3, 40) // folded after betting 40
	pm.Collect([]int{1, 2})

	pots := pm.Pots()
	require.Len(t, pots, 1)
	assert.Equal(t, Chips(240), pots[0].Amount)
	assert.Equal(t, []int{1, 2}, pots[0].Eligible)
}

func TestPotSweepsLevelsNobodyCanWin(t *testing.T) {
	t.Parallel()

	// Only a folded seat reached the 500 level, so nobody left in the hand
	// is eligible there. The chips are forfeit and sink into the pot below
	// instead of forming a pot no one can win.
	pm := NewPotManager()
	pm.AddBet(1, 500)
	pm.AddBet(2, 100)
	pm.AddBet(3, 100)
	pm.Collect([]int{2, 3})

	pots := pm.Pots()
	require.Len(t, pots, 1)
	assert.Equal(t, Chips(700), pots[0].Amount)
	assert.Equal(t, []int{2, 3}, pots[0].Eligible)
}

func TestPotMergeAcrossRounds(t *testing.T) {
	t.Parallel()

	// Two rounds with the same contenders collapse into one pot.
	pm := NewPotManager()
	pm.AddBet(1, 100)
	pm.AddBet(2, 100)
	pm.Collect([]int{1, 2})
	pm.AddBet(1, 200)
	pm.AddBet(2, 200)
	pm.Collect([]int{1, 2})

	pots := pm.Pots()
	require.Len(t, pots, 1)
	assert.Equal(t, Chips(600), pots[0].Amount)

	// A later round with a different eligible set opens a side pot.
	pm.AddBet(1, 300)
	pm.AddBet(2, 50)
	pm.Collect([]int{1, 2})
	pots = pm.Pots()
	require.Len(t, pots, 2)
	assert.Equal(t, Chips(700), pots[0].Amount)
	assert.Equal(t, []int{1, 2}, pots[0].Eligible)
	assert.Equal(t, Chips(250), pots[1].Amount)
	assert.Equal(t, []int{1}, pots[1].Eligible)
}

func TestPotUncalledBet(t *testing.T) {
	t.Parallel()

	pm := NewPotManager()
	pm.AddBet(1, 1000)
	pm.AddBet(2, 50)
	pm.AddBet(3, 100)

	seat, refund := pm.UncalledBet()
	assert.Equal(t, 1, seat)
	assert.Equal(t, Chips(900), refund)
	assert.Equal(t, Chips(250), pm.RoundTotal())

	// A second call finds nothing left to return.
	seat, refund = pm.UncalledBet()
	assert.Zero(t, seat)
	assert.Zero(t, refund)
}

func TestPotUncalledBetMatched(t *testing.T) {
	t.Parallel()

	pm := NewPotManager()
	pm.AddBet(1, 100)
	pm.AddBet(2, 100)

	seat, refund := pm.UncalledBet()
	assert.Zero(t, seat)
	assert.Zero(t, refund)
}

func TestPotUncalledBetSoleBettor(t *testing.T) {
	t.Parallel()

	// A bet nobody matched at all comes back whole.
	pm := NewPotManager()
	pm.AddBet(4, 75)

	seat, refund := pm.UncalledBet()
	assert.Equal(t, 4, seat)
	assert.Equal(t, Chips(75), refund)
	assert.Zero(t, pm.RoundTotal())
}

func TestPotReset(t *testing.T) {
	t.Parallel()

	pm := NewPotManager()
	pm.AddBet(1, 100)
	pm.AddBet(2, 100)
	pm.Collect([]int{1, 2})
	pm.AddBet(1, 30)

	pm.Reset()
	assert.Zero(t, pm.Total())
	assert.Zero(t, pm.RoundTotal())
	assert.Empty(t, pm.Pots())
}

func TestPotIgnoresNonPositiveBets(t *testing.T) {
	t.Parallel()

	pm := NewPotManager()
	pm.AddBet(1, 0)
	pm.AddBet(2, -5)
	assert.Zero(t, pm.RoundTotal())
	pm.Collect([]int{1, 2})
	assert.Empty(t, pm.Pots())
}
