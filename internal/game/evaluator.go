package game

import (
	"fmt"
	"sort"

	"github.com/cardroomhq/tabled/internal/deck"
)

// HandRank is the standard hand category ordering
type HandRank int

const (
	HighCard HandRank = iota
	OnePair
	TwoPair
	ThreeOfAKind
	Straight
	Flush
	FullHouse
	FourOfAKind
	StraightFlush
	RoyalFlush
)

func (hr HandRank) String() string {
	switch hr {
	case HighCard:
		return "high_card"
	case OnePair:
		return "one_pair"
	case TwoPair:
		return "two_pair"
	case ThreeOfAKind:
		return "three_of_a_kind"
	case Straight:
		return "straight"
	case Flush:
		return "flush"
	case FullHouse:
		return "full_house"
	case FourOfAKind:
		return "four_of_a_kind"
	case StraightFlush:
		return "straight_flush"
	case RoyalFlush:
		return "royal_flush"
	default:
		return "unknown"
	}
}

// HandStrength is a fully ordered hand value: category first, then the
// tie-break vector compared lexicographically. Two strengths are equal iff
// the hands tie under Texas Hold'em rules.
type HandStrength struct {
	Rank     HandRank
	Tiebreak []int
}

// Compare returns >0 if a beats b, <0 if b beats a, 0 on a tie.
func Compare(a, b HandStrength) int {
	if a.Rank != b.Rank {
		return int(a.Rank) - int(b.Rank)
	}
	for i := 0; i < len(a.Tiebreak) && i < len(b.Tiebreak); i++ {
		if a.Tiebreak[i] != b.Tiebreak[i] {
			return a.Tiebreak[i] - b.Tiebreak[i]
		}
	}
	return len(a.Tiebreak) - len(b.Tiebreak)
}

// Evaluate returns the strength of the best 5-card hand from 5 to 7 cards.
// It is pure and insensitive to input order.
func Evaluate(cards []deck.Card) (HandStrength, error) {
	if len(cards) < 5 || len(cards) > 7 {
		return HandStrength{}, fmt.Errorf("evaluate: need 5..7 cards, got %d", len(cards))
	}
	if len(cards) == 5 {
		return evaluateFive(cards), nil
	}

	var best HandStrength
	first := true
	combo := make([]deck.Card, 5)
	pickFive(cards, combo, 0, 0, func(hand []deck.Card) {
		hs := evaluateFive(hand)
		if first || Compare(hs, best) > 0 {
			best = hs
			first = false
		}
	})
	return best, nil
}

// pickFive enumerates all 5-subsets of cards, invoking fn with each.
func pickFive(cards, combo []deck.Card, start, depth int, fn func([]deck.Card)) {
	if depth == 5 {
		fn(combo)
		return
	}
	for i := start; i <= len(cards)-(5-depth); i++ {
		combo[depth] = cards[i]
		pickFive(cards, combo, i+1, depth+1, fn)
	}
}

func evaluateFive(cards []deck.Card) HandStrength {
	ranks := make([]int, 5)
	for i, c := range cards {
		ranks[i] = int(c.Rank)
	}
	sort.Sort(sort.Reverse(sort.IntSlice(ranks)))

	isFlush := true
	for _, c := range cards[1:] {
		if c.Suit != cards[0].Suit {
			isFlush = false
			break
		}
	}
	isStraight, straightHigh := checkStraight(ranks)

	counts := make(map[int]int, 5)
	for _, r := range ranks {
		counts[r]++
	}
	// Distinct ranks ordered by count desc, then rank desc: exactly the
	// tie-break order for paired categories.
	byCount := make([]int, 0, len(counts))
	for r := range counts {
		byCount = append(byCount, r)
	}
	sort.Slice(byCount, func(i, j int) bool {
		if counts[byCount[i]] != counts[byCount[j]] {
			return counts[byCount[i]] > counts[byCount[j]]
		}
		return byCount[i] > byCount[j]
	})

	shape := make([]int, 0, len(counts))
	for _, r := range byCount {
		shape = append(shape, counts[r])
	}

	switch {
	case isStraight && isFlush:
		if straightHigh == int(deck.Ace) {
			return HandStrength{Rank: RoyalFlush, Tiebreak: []int{straightHigh}}
		}
		return HandStrength{Rank: StraightFlush, Tiebreak: []int{straightHigh}}
	case shapeIs(shape, 4, 1):
		return HandStrength{Rank: FourOfAKind, Tiebreak: byCount}
	case shapeIs(shape, 3, 2):
		return HandStrength{Rank: FullHouse, Tiebreak: byCount}
	case isFlush:
		return HandStrength{Rank: Flush, Tiebreak: ranks}
	case isStraight:
		return HandStrength{Rank: Straight, Tiebreak: []int{straightHigh}}
	case shapeIs(shape, 3, 1, 1):
		return HandStrength{Rank: ThreeOfAKind, Tiebreak: byCount}
	case shapeIs(shape, 2, 2, 1):
		return HandStrength{Rank: TwoPair, Tiebreak: byCount}
	case shapeIs(shape, 2, 1, 1, 1):
		return HandStrength{Rank: OnePair, Tiebreak: byCount}
	default:
		return HandStrength{Rank: HighCard, Tiebreak: ranks}
	}
}

func shapeIs(shape []int, want ...int) bool {
	if len(shape) != len(want) {
		return false
	}
	for i := range shape {
		if shape[i] != want[i] {
			return false
		}
	}
	return true
}

// checkStraight reports whether the descending-sorted ranks form a
// straight and returns its high card. The wheel A-2-3-4-5 counts as a
// 5-high straight.
func checkStraight(ranks []int) (bool, int) {
	for i := 1; i < len(ranks); i++ {
		if ranks[i] == ranks[i-1] {
			return false, 0
		}
	}
	if ranks[0]-ranks[4] == 4 {
		return true, ranks[0]
	}
	if ranks[0] == int(deck.Ace) && ranks[1] == 5 && ranks[4] == 2 && ranks[1]-ranks[4] == 3 {
		return true, 5
	}
	return false, 0
}
