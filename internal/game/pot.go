package game

import "sort"

// Pot is a contested pile of chips and the seats allowed to win it.
// Folded players' contributions stay in the amount; only eligibility
// excludes them.
type Pot struct {
	Amount   Chips
	Eligible []int
}

func (p Pot) eligibleFor(seat int) bool {
	for _, s := range p.Eligible {
		if s == seat {
			return true
		}
	}
	return false
}

// PotManager accumulates per-round bets and partitions them into main and
// side pots at the end of each betting round.
type PotManager struct {
	pots []Pot
	bets map[int]Chips // seat -> chips put in this round
}

// NewPotManager creates an empty pot manager
func NewPotManager() *PotManager {
	return &PotManager{
		pots: []Pot{{}},
		bets: make(map[int]Chips),
	}
}

// AddBet accumulates chips a seat has put in during the current round
func (pm *PotManager) AddBet(seat int, amount Chips) {
	if amount <= 0 {
		return
	}
	pm.bets[seat] += amount
}

// RoundTotal returns the chips bet so far this round and not yet collected
func (pm *PotManager) RoundTotal() Chips {
	var total Chips
	for _, b := range pm.bets {
		total += b
	}
	return total
}

// Total returns the sum of all collected pots
func (pm *PotManager) Total() Chips {
	var total Chips
	for _, p := range pm.pots {
		total += p.Amount
	}
	return total
}

// Pots returns the current pot list; the last entry is the highest level
func (pm *PotManager) Pots() []Pot {
	out := make([]Pot, 0, len(pm.pots))
	for _, p := range pm.pots {
		if p.Amount > 0 {
			out = append(out, p)
		}
	}
	return out
}

// UncalledBet finds the portion of the round's top bet that no other seat
// matched, truncates it out of the bet map, and returns it so the engine
// can hand it back. Returns a zero seat when every bet was matched.
func (pm *PotManager) UncalledBet() (int, Chips) {
	var (
		topSeat     int
		top, second Chips
	)
	for seat, bet := range pm.bets {
		if bet > top {
			second = top
			top = bet
			topSeat = seat
		} else if bet > second {
			second = bet
		}
	}
	if top == second || topSeat == 0 {
		return 0, 0
	}
	refund := top - second
	pm.bets[topSeat] = second
	if pm.bets[topSeat] == 0 {
		delete(pm.bets, topSeat)
	}
	return topSeat, refund
}

// Collect partitions the round's bets into pots by ascending bet level.
// notFolded is the set of seats still contesting (active or all-in); folded
// players' chips are swept in but never become eligible. Consecutive levels
// with identical eligibility merge, so an uncontested top level collapses
// into the pot below it only when eligibility matches.
func (pm *PotManager) Collect(notFolded []int) {
	if len(pm.bets) == 0 {
		return
	}

	inHand := make(map[int]bool, len(notFolded))
	for _, s := range notFolded {
		inHand[s] = true
	}

	levels := distinctLevels(pm.bets)

	prev := Chips(0)
	for _, level := range levels {
		var amount Chips
		for _, bet := range pm.bets {
			amount += minChips(bet, level) - minChips(bet, prev)
		}

		var eligible []int
		for seat, bet := range pm.bets {
			if bet >= level && inHand[seat] {
				eligible = append(eligible, seat)
			}
		}
		sort.Ints(eligible)

		if amount > 0 {
			pm.appendPot(Pot{Amount: amount, Eligible: eligible})
		}
		prev = level
	}

	pm.bets = make(map[int]Chips)
}

// appendPot merges into the last pot when the eligible sets match,
// otherwise starts a new side pot.
func (pm *PotManager) appendPot(pot Pot) {
	if n := len(pm.pots); n > 0 {
		last := &pm.pots[n-1]
		if last.Amount == 0 || sameSeats(last.Eligible, pot.Eligible) {
			last.Amount += pot.Amount
			last.Eligible = pot.Eligible
			return
		}
		// A level only folded seats reached has nobody left to win it.
		// Those chips are forfeit and sink into the pot below.
		if len(pot.Eligible) == 0 {
			last.Amount += pot.Amount
			return
		}
	}
	pm.pots = append(pm.pots, pot)
}

// Reset clears pots and the bet map for a new hand
func (pm *PotManager) Reset() {
	pm.pots = []Pot{{}}
	pm.bets = make(map[int]Chips)
}

func distinctLevels(bets map[int]Chips) []Chips {
	seen := make(map[Chips]bool, len(bets))
	levels := make([]Chips, 0, len(bets))
	for _, b := range bets {
		if b > 0 && !seen[b] {
			seen[b] = true
			levels = append(levels, b)
		}
	}
	sort.Slice(levels, func(i, j int) bool { return levels[i] < levels[j] })
	return levels
}

func sameSeats(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
