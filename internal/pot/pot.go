// Package pot turns per-player contributions into a tiered main/side pot
// breakdown and, at showdown, splits each tier among its eligible winners.
package pot

import (
	"sort"

	"github.com/lox/pokerforbots-server/internal/evaluator"
)

// Contribution is one player's standing in the hand at the point pots are
// calculated: how much they have committed in total, and whether they are
// still live for the award.
type Contribution struct {
	PlayerID string
	PotShare int
	Folded   bool
}

// Breakdown is one pot tier: an amount and the set of player ids eligible
// to win it.
type Breakdown struct {
	Amount   int
	Eligible []string
}

// Winner is one payout: a single player receiving chips from a single pot
// index. A player who wins two pots produces two Winner entries.
type Winner struct {
	PlayerID string
	Amount   int
	PotIndex int
}

// Calculate enumerates distinct positive contribution levels and builds one
// breakdown per tier, folding adjacent tiers that end up with identical
// eligibility sets (the common case: several all-in levels among players who
// all called to the final bet).
func Calculate(contributions []Contribution) []Breakdown {
	levels := distinctLevels(contributions)
	if len(levels) == 0 {
		return nil
	}

	raw := make([]Breakdown, 0, len(levels))
	previous := 0
	for _, level := range levels {
		increment := level - previous
		contributors := 0
		eligible := make([]string, 0)
		for _, c := range contributions {
			if c.PotShare < level {
				continue
			}
			contributors++
			if !c.Folded {
				eligible = append(eligible, c.PlayerID)
			}
		}
		sort.Strings(eligible)
		raw = append(raw, Breakdown{
			Amount:   increment * contributors,
			Eligible: eligible,
		})
		previous = level
	}

	return fold(raw)
}

func distinctLevels(contributions []Contribution) []int {
	seen := make(map[int]bool)
	for _, c := range contributions {
		if c.PotShare > 0 {
			seen[c.PotShare] = true
		}
	}
	levels := make([]int, 0, len(seen))
	for level := range seen {
		levels = append(levels, level)
	}
	sort.Ints(levels)
	return levels
}

// fold merges adjacent breakdowns that share an identical eligibility set,
// summing their amounts.
func fold(raw []Breakdown) []Breakdown {
	if len(raw) == 0 {
		return raw
	}
	folded := make([]Breakdown, 0, len(raw))
	folded = append(folded, raw[0])
	for _, b := range raw[1:] {
		last := &folded[len(folded)-1]
		if sameEligibility(last.Eligible, b.Eligible) {
			last.Amount += b.Amount
			continue
		}
		folded = append(folded, b)
	}
	return folded
}

func sameEligibility(a, b []string) bool {
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

// DistributeToSole awards every pot to a single player, used when every
// other player has folded and the evaluator never needs to run.
func DistributeToSole(pots []Breakdown, playerID string) []Winner {
	winners := make([]Winner, 0, len(pots))
	for i, p := range pots {
		if p.Amount == 0 {
			continue
		}
		winners = append(winners, Winner{PlayerID: playerID, Amount: p.Amount, PotIndex: i})
	}
	return winners
}

// Distribute splits each pot among the best-ranking eligible hands. seatOrder
// lists every showdown-eligible player id in clockwise order starting from
// the seat immediately after the dealer; it resolves which player receives
// an odd-chip remainder when a pot doesn't split evenly.
func Distribute(pots []Breakdown, ranks map[string]evaluator.Rank, seatOrder []string) []Winner {
	clockwise := make(map[string]int, len(seatOrder))
	for i, id := range seatOrder {
		clockwise[id] = i
	}

	winners := make([]Winner, 0, len(pots))
	for potIndex, p := range pots {
		if p.Amount == 0 || len(p.Eligible) == 0 {
			continue
		}

		candidates := make([]evaluator.Rank, 0, len(p.Eligible))
		for _, id := range p.Eligible {
			candidates = append(candidates, ranks[id])
		}
		bestIdx := evaluator.Best(candidates)

		potWinners := make([]string, 0, len(bestIdx))
		for _, idx := range bestIdx {
			potWinners = append(potWinners, p.Eligible[idx])
		}
		sort.Slice(potWinners, func(i, j int) bool {
			return clockwise[potWinners[i]] < clockwise[potWinners[j]]
		})

		share := p.Amount / len(potWinners)
		remainder := p.Amount % len(potWinners)
		for i, id := range potWinners {
			amount := share
			if i < remainder {
				amount++
			}
			if amount == 0 {
				continue
			}
			winners = append(winners, Winner{PlayerID: id, Amount: amount, PotIndex: potIndex})
		}
	}
	return winners
}
