package deck

import (
	crand "crypto/rand"
	"errors"
	"fmt"
	rand "math/rand/v2"
)

// ErrNotEnoughCards is returned when a deal or burn exceeds the cards remaining.
var ErrNotEnoughCards = errors.New("not enough cards in deck")

// Deck is an ordered sequence of distinct cards. Each deck owns its own
// RNG, a ChaCha8 stream seeded from OS entropy; decks are never shared
// across tables.
type Deck struct {
	cards []Card
	rng   *rand.Rand
}

// NewDeck creates a shuffled 52-card deck
func NewDeck() *Deck {
	d := &Deck{
		cards: make([]Card, 0, 52),
		rng:   newRNG(),
	}
	d.Reset()
	return d
}

func newRNG() *rand.Rand {
	var seed [32]byte
	if _, err := crand.Read(seed[:]); err != nil {
		// No entropy means no fair shuffle; nothing sensible to do but stop.
		panic(fmt.Sprintf("deck: reading OS entropy: %v", err))
	}
	return rand.New(rand.NewChaCha8(seed))
}

// Reset restores all 52 cards in a fresh uniformly random order
func (d *Deck) Reset() {
	d.cards = d.cards[:0]
	for suit := Clubs; suit <= Spades; suit++ {
		for rank := Two; rank <= Ace; rank++ {
			d.cards = append(d.cards, NewCard(rank, suit))
		}
	}
	d.rng.Shuffle(len(d.cards), func(i, j int) {
		d.cards[i], d.cards[j] = d.cards[j], d.cards[i]
	})
}

// Deal removes and returns the first n cards
func (d *Deck) Deal(n int) ([]Card, error) {
	if n < 0 || n > len(d.cards) {
		return nil, fmt.Errorf("deal %d of %d: %w", n, len(d.cards), ErrNotEnoughCards)
	}
	dealt := make([]Card, n)
	copy(dealt, d.cards[:n])
	d.cards = d.cards[n:]
	return dealt, nil
}

// DealOne removes and returns the top card
func (d *Deck) DealOne() (Card, error) {
	cards, err := d.Deal(1)
	if err != nil {
		return Card{}, err
	}
	return cards[0], nil
}

// Burn discards the top card without revealing it
func (d *Deck) Burn() error {
	_, err := d.Deal(1)
	return err
}

// Remaining returns the number of cards left in the deck
func (d *Deck) Remaining() int {
	return len(d.cards)
}
