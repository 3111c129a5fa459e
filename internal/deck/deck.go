package deck

import (
	"fmt"
	"math/rand/v2"
)

// Deck is an ordered sequence of remaining cards. The zero value is not
// usable; construct with Create.
type Deck []Card

// Create returns the canonical 52-card deck in a fixed, unshuffled order.
func Create() Deck {
	d := make(Deck, 0, 52)
	for _, suit := range suits {
		for _, rank := range ranks {
			d = append(d, New(rank, suit))
		}
	}
	return d
}

// Shuffle returns a new deck containing the same cards in a
// Fisher-Yates-shuffled order. The input deck is not mutated.
func Shuffle(d Deck, rng *rand.Rand) Deck {
	shuffled := make(Deck, len(d))
	copy(shuffled, d)
	for i := len(shuffled) - 1; i > 0; i-- {
		j := rng.IntN(i + 1)
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	}
	return shuffled
}

// Deal removes the top n cards from d, returning the dealt cards and the
// remaining deck. Neither the input nor the returned slices alias d.
func Deal(d Deck, n int) (dealt Deck, remaining Deck, err error) {
	if n > len(d) {
		return nil, nil, fmt.Errorf("deck: cannot deal %d cards from a deck of %d", n, len(d))
	}
	dealt = make(Deck, n)
	copy(dealt, d[:n])
	remaining = make(Deck, len(d)-n)
	copy(remaining, d[n:])
	return dealt, remaining, nil
}

// Clone returns an independent copy of d.
func (d Deck) Clone() Deck {
	c := make(Deck, len(d))
	copy(c, d)
	return c
}
