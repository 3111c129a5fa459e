// Package evaluator adapts the external chehsunliu/poker hand evaluator to
// the rank/description contract the game engine needs. The engine treats
// hand evaluation as a black box: it never inspects how a rank was
// computed, only how two ranks compare.
package evaluator

import (
	"fmt"
	"sort"

	"github.com/chehsunliu/poker"

	"github.com/lox/pokerforbots-server/internal/deck"
)

// Rank is a comparable 7-card hand rank. Lower Value is a stronger hand,
// matching the chehsunliu/poker convention (1 is the best possible hand).
type Rank struct {
	Value       int32
	Description string
}

// Better reports whether r beats other.
func (r Rank) Better(other Rank) bool {
	return r.Value < other.Value
}

// Evaluate scores the best 5-card hand obtainable from holeCards plus
// communityCards. It requires exactly 2 hole cards and 3, 4, or 5 community
// cards (the engine only calls this at SHOWDOWN, with 5).
func Evaluate(holeCards, communityCards []deck.Card) (Rank, error) {
	if len(holeCards) != 2 {
		return Rank{}, fmt.Errorf("evaluator: need exactly 2 hole cards, got %d", len(holeCards))
	}
	if len(communityCards) < 3 || len(communityCards) > 5 {
		return Rank{}, fmt.Errorf("evaluator: need 3-5 community cards, got %d", len(communityCards))
	}

	all := make([]poker.Card, 0, len(holeCards)+len(communityCards))
	for _, c := range holeCards {
		all = append(all, convert(c))
	}
	for _, c := range communityCards {
		all = append(all, convert(c))
	}

	value := poker.Evaluate(all)
	return Rank{
		Value:       value,
		Description: poker.RankString(value),
	}, nil
}

// convert translates an engine deck.Card into the chehsunliu/poker card
// encoding, which spells ranks and suits the same way deck.Card's own
// String() does (rank upper-case, suit lower-case).
func convert(c deck.Card) poker.Card {
	return poker.NewCard(c.String())
}

// Best selects the strongest rank among a set of candidate hands, e.g. when
// picking the winning rank among multiple showdown participants. Ties
// return all indices whose rank equals the best.
func Best(ranks []Rank) []int {
	if len(ranks) == 0 {
		return nil
	}
	best := ranks[0]
	for _, r := range ranks[1:] {
		if r.Better(best) {
			best = r
		}
	}
	winners := make([]int, 0, 1)
	for i, r := range ranks {
		if r.Value == best.Value {
			winners = append(winners, i)
		}
	}
	sort.Ints(winners)
	return winners
}
